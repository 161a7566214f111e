package manifest

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sdboyer/solve-deps/internal/gps"
)

func TestReadApplicationManifest(t *testing.T) {
	doc := `{
		"type": "application",
		"compiler": "1.0.0",
		"direct": {"alice/widgets": "1.2.0"},
		"indirect": {"bob/gears": "3.0.0"},
		"test-direct": {"carol/mocks": "0.4.0"}
	}`

	m, err := ReadManifest(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	app, ok := m.(*Application)
	if !ok {
		t.Fatalf("ReadManifest returned %T, want *Application", m)
	}
	if app.Compiler != (gps.SemVer{Major: 1, Minor: 0, Patch: 0}) {
		t.Errorf("Compiler = %v, want 1.0.0", app.Compiler)
	}
	alice := gps.PkgId{Author: "alice", Name: "widgets"}
	if app.Direct[alice] != (gps.SemVer{Major: 1, Minor: 2, Patch: 0}) {
		t.Errorf("Direct[%s] = %v, want 1.2.0", alice, app.Direct[alice])
	}
	bob := gps.PkgId{Author: "bob", Name: "gears"}
	if app.Indirect[bob] != (gps.SemVer{Major: 3}) {
		t.Errorf("Indirect[%s] = %v, want 3.0.0", bob, app.Indirect[bob])
	}
}

func TestReadPackageManifest(t *testing.T) {
	doc := `{
		"type": "package",
		"name": "alice/widgets",
		"version": "1.2.0",
		"compiler-range": "1.0.0 <= v < 2.0.0",
		"deps": {"bob/gears": "3.0.0 <= v < 4.0.0"},
		"test-deps": {"carol/mocks": "0.4.0 <= v < 1.0.0"}
	}`

	m, err := ReadManifest(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	pkg, ok := m.(*Package)
	if !ok {
		t.Fatalf("ReadManifest returned %T, want *Package", m)
	}
	if pkg.Name != (gps.PkgId{Author: "alice", Name: "widgets"}) {
		t.Errorf("Name = %v", pkg.Name)
	}
	if pkg.Version != (gps.SemVer{Major: 1, Minor: 2}) {
		t.Errorf("Version = %v, want 1.2.0", pkg.Version)
	}
	bob := gps.PkgId{Author: "bob", Name: "gears"}
	if !pkg.Deps[bob].Contains(gps.SemVer{Major: 3, Minor: 5}) {
		t.Errorf("Deps[%s] should contain 3.5.0", bob)
	}
	if pkg.Deps[bob].Contains(gps.SemVer{Major: 4}) {
		t.Errorf("Deps[%s] should not contain 4.0.0", bob)
	}
}

func TestReadManifestErrors(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"missing type", `{"compiler": "1.0.0"}`},
		{"unknown type", `{"type": "bogus"}`},
		{"application missing compiler", `{"type": "application"}`},
		{"package missing name", `{"type": "package", "version": "1.0.0"}`},
		{"package missing version", `{"type": "package", "name": "alice/widgets"}`},
		{"malformed json", `{`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := ReadManifest(strings.NewReader(c.doc)); err == nil {
				t.Fatalf("ReadManifest(%q) should have failed", c.doc)
			}
		})
	}
}

func TestApplicationDirectDeps(t *testing.T) {
	alice := gps.PkgId{Author: "alice", Name: "widgets"}
	carol := gps.PkgId{Author: "carol", Name: "mocks"}
	app := &Application{
		Direct:     map[gps.PkgId]gps.SemVer{alice: {Major: 1}},
		TestDirect: map[gps.PkgId]gps.SemVer{carol: {Major: 2}},
	}

	withoutTest := app.DirectDeps(false)
	if len(withoutTest) != 1 || !withoutTest[alice].Contains(gps.SemVer{Major: 1}) {
		t.Fatalf("DirectDeps(false) = %v", withoutTest)
	}

	withTest := app.DirectDeps(true)
	if len(withTest) != 2 || !withTest[carol].Contains(gps.SemVer{Major: 2}) {
		t.Fatalf("DirectDeps(true) = %v", withTest)
	}
}

func TestPackageMarshalRoundTrip(t *testing.T) {
	bob := gps.PkgId{Author: "bob", Name: "gears"}
	p := &Package{
		Name:          gps.PkgId{Author: "alice", Name: "widgets"},
		Version:       gps.SemVer{Major: 1, Minor: 2},
		CompilerRange: mustConstraint(t, "1.0.0 <= v < 2.0.0"),
		Deps:          map[gps.PkgId]gps.Range{bob: mustConstraint(t, "3.0.0 <= v < 4.0.0")},
	}

	b, err := p.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}

	m, err := ReadManifest(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("ReadManifest(round-tripped): %v", err)
	}
	got, ok := m.(*Package)
	if !ok {
		t.Fatalf("round-tripped manifest is %T, not *Package", m)
	}
	if got.Name != p.Name || got.Version != p.Version {
		t.Fatalf("round-tripped package = %+v, want %+v", got, p)
	}
	if !got.Deps[bob].Contains(gps.SemVer{Major: 3, Minor: 5}) {
		t.Fatalf("round-tripped Deps[%s] lost its range", bob)
	}
}

func mustConstraint(t *testing.T, s string) gps.Range {
	t.Helper()
	r, err := gps.ParseConstraint(s)
	if err != nil {
		t.Fatalf("ParseConstraint(%q): %v", s, err)
	}
	return r
}
