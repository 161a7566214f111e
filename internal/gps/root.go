package gps

import "fmt"

// RootPkg is the synthetic PkgId the resolver pins first and whose
// dependency set is the project's own direct requirements. Giving the
// root project a PkgId keeps the resolver uniform: it never special-cases
// "the thing being resolved for" inside the main loop.
var RootPkg = PkgId{Author: "root", Name: "project"}

// ReservedCompilerPkg is the compiler pseudo-package id, reserved the same
// way golang-dep reserves its own pseudo-import-paths: no real package may
// claim it, and neither may a root project.
var ReservedCompilerPkg = PkgId{Author: "elm", Name: ""}

// rootProvider wraps a Provider so that RootPkg behaves as a pinned,
// synthetic package whose dependencies are a precomputed map, while every
// other query delegates to the wrapped provider unchanged.
type rootProvider struct {
	inner   Provider
	id      PkgId
	version SemVer
	deps    map[PkgId]Range
}

// NewRootProvider builds the root adapter described in the resolver
// design: id@version is pinned immediately when offered as a candidate,
// and its dependency set is exactly deps (already merged from the
// manifest's direct dependencies and any caller-supplied extras).
//
// Construction fails if id collides with ReservedCompilerPkg.
func NewRootProvider(inner Provider, id PkgId, version SemVer, deps map[PkgId]Range) (Provider, error) {
	if id == ReservedCompilerPkg {
		return nil, newParseError("root package id", id.String(), fmt.Errorf("collides with the reserved compiler pseudo-package"))
	}
	return &rootProvider{inner: inner, id: id, version: version, deps: deps}, nil
}

func (r *rootProvider) ChooseVersion(candidates []Candidate) (PkgId, SemVer, bool, error) {
	for _, c := range candidates {
		if c.Pkg == r.id {
			return r.id, r.version, true, nil
		}
	}
	return r.inner.ChooseVersion(candidates)
}

func (r *rootProvider) Dependencies(pkg PkgId, version SemVer) (map[PkgId]Range, error) {
	if pkg == r.id {
		out := make(map[PkgId]Range, len(r.deps))
		for k, v := range r.deps {
			out[k] = v
		}
		return out, nil
	}
	return r.inner.Dependencies(pkg, version)
}
