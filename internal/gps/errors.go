package gps

import (
	"bytes"
	"fmt"
)

// ErrorKind discriminates the fixed taxonomy of errors this package
// produces. It exists so callers (the orchestrator, the CLI) can dispatch
// on failure shape without resorting to type switches on unexported types.
type ErrorKind uint8

const (
	// KindParse covers malformed manifest, constraint, or PkgVersion text.
	KindParse ErrorKind = iota + 1
	// KindIO covers filesystem read/write failures that were not locally
	// recoverable.
	KindIO
	// KindFetch covers HTTP failures talking to a registry.
	KindFetch
	// KindNoSolution covers a resolve that exhausted its search space.
	KindNoSolution
	// KindDependencyRetrieval covers a provider failure while resolving
	// dependencies of a specific package version.
	KindDependencyRetrieval
	// KindEmptySetDependency covers a manifest dependency whose range is
	// none.
	KindEmptySetDependency
	// KindSelfDependency covers a package that depends on itself.
	KindSelfDependency
	// KindCancelled covers a resolve aborted via a cancellation probe.
	KindCancelled
)

// traceError is implemented by every error kind that also knows how to
// render itself into an explanation tree line, the way golang-dep's
// traceString() idiom does.
type traceError interface {
	error
	traceString() string
}

// parseError is KindParse.
type parseError struct {
	what, input string
	cause       error
}

func newParseError(what, input string, cause error) error {
	return &parseError{what: what, input: input, cause: cause}
}

func (e *parseError) Error() string {
	return fmt.Sprintf("could not parse %s %q: %s", e.what, e.input, e.cause)
}

func (e *parseError) Kind() ErrorKind { return KindParse }
func (e *parseError) Cause() error    { return e.cause }

// fetchError is KindFetch.
type fetchError struct {
	URL   string
	cause error
}

func newFetchError(url string, cause error) error {
	return &fetchError{URL: url, cause: cause}
}

// NewFetchError reports an HTTP failure talking to a registry. Exported so
// the registry provider, which owns the injected Fetch function and thus
// the only place a fetch actually happens, can raise the same error kind
// the resolver package itself would.
func NewFetchError(url string, cause error) error {
	return newFetchError(url, cause)
}

func (e *fetchError) Error() string {
	return fmt.Sprintf("fetching %s: %s", e.URL, e.cause)
}

func (e *fetchError) Kind() ErrorKind { return KindFetch }
func (e *fetchError) Cause() error    { return e.cause }

// dependencyRetrievalError is KindDependencyRetrieval.
type dependencyRetrievalError struct {
	Pkg     PkgId
	Version SemVer
	cause   error
}

func newDependencyRetrievalError(pkg PkgId, v SemVer, cause error) error {
	return &dependencyRetrievalError{Pkg: pkg, Version: v, cause: cause}
}

func (e *dependencyRetrievalError) Error() string {
	return fmt.Sprintf("could not retrieve dependencies of %s@%s: %s", e.Pkg, e.Version, e.cause)
}

func (e *dependencyRetrievalError) traceString() string {
	return fmt.Sprintf("%s@%s: dependency retrieval failed (%s)", e.Pkg, e.Version, e.cause)
}

func (e *dependencyRetrievalError) Kind() ErrorKind { return KindDependencyRetrieval }
func (e *dependencyRetrievalError) Cause() error    { return e.cause }

// emptySetDependencyError is KindEmptySetDependency.
type emptySetDependencyError struct {
	Pkg, Dependent PkgId
	Version        SemVer
}

func (e *emptySetDependencyError) Error() string {
	return fmt.Sprintf("%s@%s declares a dependency on %s with an empty (none) range", e.Dependent, e.Version, e.Pkg)
}

func (e *emptySetDependencyError) traceString() string {
	return fmt.Sprintf("%s@%s -> %s: range is none", e.Dependent, e.Version, e.Pkg)
}

func (e *emptySetDependencyError) Kind() ErrorKind { return KindEmptySetDependency }

// NewEmptySetDependencyError reports that dependent@version requires pkg
// with a range that has collapsed to none — e.g. the root's own extras
// intersected against its existing requirement for pkg. Exported so
// callers outside this package (the orchestrator, building the root's
// direct-dep map before any provider query) can raise the same error kind
// the resolver itself would, for the dependency-graph case.
func NewEmptySetDependencyError(dependent PkgId, version SemVer, pkg PkgId) error {
	return &emptySetDependencyError{Pkg: pkg, Dependent: dependent, Version: version}
}

// selfDependencyError is KindSelfDependency.
type selfDependencyError struct {
	Pkg     PkgId
	Version SemVer
}

func (e *selfDependencyError) Error() string {
	return fmt.Sprintf("%s@%s depends on itself", e.Pkg, e.Version)
}

func (e *selfDependencyError) traceString() string {
	return fmt.Sprintf("%s@%s: self-dependency", e.Pkg, e.Version)
}

func (e *selfDependencyError) Kind() ErrorKind { return KindSelfDependency }

// cancelledError is KindCancelled.
type cancelledError struct {
	cause error
}

func newCancelledError(cause error) error {
	return &cancelledError{cause: cause}
}

func (e *cancelledError) Error() string {
	if e.cause == nil {
		return "resolve cancelled"
	}
	return fmt.Sprintf("resolve cancelled: %s", e.cause)
}

func (e *cancelledError) Kind() ErrorKind { return KindCancelled }
func (e *cancelledError) Cause() error    { return e.cause }

// noSolutionError is KindNoSolution. The explanation is a derivation trace:
// normally the single incompatibility that terminated the search (every
// incompatibility known, if the round limit was hit instead), each rendered
// on its own line via traceString, which for a learned incompatibility
// recursively renders the two it was derived from.
type noSolutionError struct {
	root    PkgId
	explain []*incompatibility
}

func (e *noSolutionError) Error() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "no solution satisfying the constraints of %s:\n", e.root)
	for _, inc := range e.explain {
		fmt.Fprintf(&buf, "  %s\n", inc.traceString())
	}
	return buf.String()
}

func (e *noSolutionError) Kind() ErrorKind { return KindNoSolution }

// KindOf reports the ErrorKind of err, or 0 if err does not originate from
// this package.
func KindOf(err error) ErrorKind {
	type kinder interface{ Kind() ErrorKind }
	for err != nil {
		if k, ok := err.(kinder); ok {
			return k.Kind()
		}
		// Unwrap one layer at a time: errors.Cause would skip straight past
		// this package's own error types, which also implement Cause().
		c, ok := err.(interface{ Cause() error })
		if !ok {
			return 0
		}
		err = c.Cause()
	}
	return 0
}
