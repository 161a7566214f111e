// Package manifest reads and represents the two manifest shapes the
// resolver operates on: an application's pinned dependency graph, and a
// package's declared version and ranges.
package manifest

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/pkg/errors"

	"github.com/sdboyer/solve-deps/internal/gps"
)

// ManifestName is the conventional filename a manifest is read from.
const ManifestName = "manifest"

// Kind discriminates the two manifest shapes.
type Kind string

const (
	KindApplication Kind = "application"
	KindPackage     Kind = "package"
)

// Application is the manifest of a top-level project: a fully pinned
// dependency graph, split into what it depends on directly and what it
// pulls in only transitively, plus the same split for its test-only
// dependencies.
type Application struct {
	Compiler       gps.SemVer
	Direct         map[gps.PkgId]gps.SemVer
	Indirect       map[gps.PkgId]gps.SemVer
	TestDirect     map[gps.PkgId]gps.SemVer
	TestIndirect   map[gps.PkgId]gps.SemVer
}

// Package is the manifest of a library: a name and version, the compiler
// versions it supports, and its runtime and test-only dependency ranges.
type Package struct {
	Name          gps.PkgId
	Version       gps.SemVer
	CompilerRange gps.Range
	Deps          map[gps.PkgId]gps.Range
	TestDeps      map[gps.PkgId]gps.Range
}

// rawManifest mirrors the on-disk JSON shape. Every field that doesn't
// apply to the manifest's discriminant is simply omitted by the writer and
// ignored by the reader.
type rawManifest struct {
	Type          Kind              `json:"type"`
	Compiler      string            `json:"compiler,omitempty"`
	Direct        map[string]string `json:"direct,omitempty"`
	Indirect      map[string]string `json:"indirect,omitempty"`
	TestDirect    map[string]string `json:"test-direct,omitempty"`
	TestIndirect  map[string]string `json:"test-indirect,omitempty"`
	Name          string            `json:"name,omitempty"`
	Version       string            `json:"version,omitempty"`
	CompilerRange string            `json:"compiler-range,omitempty"`
	Deps          map[string]string `json:"deps,omitempty"`
	TestDeps      map[string]string `json:"test-deps,omitempty"`
}

// ReadManifest decodes a manifest document from r, dispatching on its
// "type" discriminant. An unknown or missing discriminant, or a field
// required by the discriminant that is absent or malformed, is an error.
func ReadManifest(r io.Reader) (interface{}, error) {
	var raw rawManifest
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "decoding manifest")
	}

	switch raw.Type {
	case KindApplication:
		return applicationFromRaw(raw)
	case KindPackage:
		return packageFromRaw(raw)
	case "":
		return nil, errors.New("manifest is missing its \"type\" discriminant")
	default:
		return nil, errors.Errorf("manifest has unknown \"type\" discriminant %q", raw.Type)
	}
}

func applicationFromRaw(raw rawManifest) (*Application, error) {
	if raw.Compiler == "" {
		return nil, errors.New("application manifest is missing \"compiler\"")
	}
	compiler, err := gps.ParseSemVer(raw.Compiler)
	if err != nil {
		return nil, errors.Wrap(err, "application manifest \"compiler\"")
	}

	direct, err := pinnedMap(raw.Direct, "direct")
	if err != nil {
		return nil, err
	}
	indirect, err := pinnedMap(raw.Indirect, "indirect")
	if err != nil {
		return nil, err
	}
	testDirect, err := pinnedMap(raw.TestDirect, "test-direct")
	if err != nil {
		return nil, err
	}
	testIndirect, err := pinnedMap(raw.TestIndirect, "test-indirect")
	if err != nil {
		return nil, err
	}

	return &Application{
		Compiler:     compiler,
		Direct:       direct,
		Indirect:     indirect,
		TestDirect:   testDirect,
		TestIndirect: testIndirect,
	}, nil
}

func packageFromRaw(raw rawManifest) (*Package, error) {
	if raw.Name == "" {
		return nil, errors.New("package manifest is missing \"name\"")
	}
	name, err := gps.ParsePkgId(raw.Name)
	if err != nil {
		return nil, errors.Wrap(err, "package manifest \"name\"")
	}
	if raw.Version == "" {
		return nil, errors.New("package manifest is missing \"version\"")
	}
	version, err := gps.ParseSemVer(raw.Version)
	if err != nil {
		return nil, errors.Wrap(err, "package manifest \"version\"")
	}

	compilerRange := gps.Any()
	if raw.CompilerRange != "" {
		compilerRange, err = gps.ParseConstraint(raw.CompilerRange)
		if err != nil {
			return nil, errors.Wrap(err, "package manifest \"compiler-range\"")
		}
	}

	deps, err := rangeMap(raw.Deps, "deps")
	if err != nil {
		return nil, err
	}
	testDeps, err := rangeMap(raw.TestDeps, "test-deps")
	if err != nil {
		return nil, err
	}

	return &Package{
		Name:          name,
		Version:       version,
		CompilerRange: compilerRange,
		Deps:          deps,
		TestDeps:      testDeps,
	}, nil
}

func pinnedMap(raw map[string]string, field string) (map[gps.PkgId]gps.SemVer, error) {
	out := make(map[gps.PkgId]gps.SemVer, len(raw))
	for k, v := range raw {
		id, err := gps.ParsePkgId(k)
		if err != nil {
			return nil, errors.Wrapf(err, "manifest %q key", field)
		}
		version, err := gps.ParseSemVer(v)
		if err != nil {
			return nil, errors.Wrapf(err, "manifest %q[%s]", field, k)
		}
		out[id] = version
	}
	return out, nil
}

func rangeMap(raw map[string]string, field string) (map[gps.PkgId]gps.Range, error) {
	out := make(map[gps.PkgId]gps.Range, len(raw))
	for k, v := range raw {
		id, err := gps.ParsePkgId(k)
		if err != nil {
			return nil, errors.Wrapf(err, "manifest %q key", field)
		}
		r, err := gps.ParseConstraint(v)
		if err != nil {
			return nil, errors.Wrapf(err, "manifest %q[%s]", field, k)
		}
		out[id] = r
	}
	return out, nil
}

// DirectDeps projects an application's (or package's) declared direct
// dependencies into the (PkgId, Range) form the resolver's root adapter
// wants: an application's pinned versions become exact ranges; a package's
// deps keep their declared ranges. includeTest folds in the test-only
// dependency sets as well.
func (a *Application) DirectDeps(includeTest bool) map[gps.PkgId]gps.Range {
	out := make(map[gps.PkgId]gps.Range, len(a.Direct))
	for id, v := range a.Direct {
		out[id] = gps.Exact(v)
	}
	if includeTest {
		for id, v := range a.TestDirect {
			out[id] = gps.Exact(v)
		}
	}
	return out
}

func (p *Package) DirectDeps(includeTest bool) map[gps.PkgId]gps.Range {
	out := make(map[gps.PkgId]gps.Range, len(p.Deps))
	for id, r := range p.Deps {
		out[id] = r
	}
	if includeTest {
		for id, r := range p.TestDeps {
			out[id] = r
		}
	}
	return out
}

// MarshalJSON renders a as its on-disk form, matching the style (pretty
// indentation, no HTML-escaping) golang-dep's own manifest writer used.
func (a *Application) MarshalJSON() ([]byte, error) {
	raw := rawManifest{
		Type:         KindApplication,
		Compiler:     a.Compiler.String(),
		Direct:       stringifyPinned(a.Direct),
		Indirect:     stringifyPinned(a.Indirect),
		TestDirect:   stringifyPinned(a.TestDirect),
		TestIndirect: stringifyPinned(a.TestIndirect),
	}
	return encodePretty(raw)
}

// MarshalJSON renders p as its on-disk form.
func (p *Package) MarshalJSON() ([]byte, error) {
	raw := rawManifest{
		Type:     KindPackage,
		Name:     p.Name.String(),
		Version:  p.Version.String(),
		Deps:     stringifyRanges(p.Deps),
		TestDeps: stringifyRanges(p.TestDeps),
	}
	// An absent "compiler-range" reads back as Any(); "any" itself would not
	// parse as a constraint.
	if !p.CompilerRange.IsAny() {
		raw.CompilerRange = p.CompilerRange.String()
	}
	return encodePretty(raw)
}

func encodePretty(raw rawManifest) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(raw); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func stringifyPinned(m map[gps.PkgId]gps.SemVer) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for id, v := range m {
		out[id.String()] = v.String()
	}
	return out
}

func stringifyRanges(m map[gps.PkgId]gps.Range) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for id, r := range m {
		out[id.String()] = r.String()
	}
	return out
}
