package registry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sdboyer/solve-deps/internal/gps"
)

func writeInstalledManifest(t *testing.T, home string, compiler gps.SemVer, pkg gps.PkgId, v gps.SemVer, body string) {
	t.Helper()
	dir := filepath.Join(home, compiler.String(), "packages", pkg.Author, pkg.Name, v.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "manifest"), []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile manifest: %v", err)
	}
}

func TestNewProviderSeedsCacheFromRemote(t *testing.T) {
	home := t.TempDir()
	alice := gps.PkgId{Author: "alice", Name: "widgets"}

	fetch := func(url string) (string, error) {
		return `{"alice/widgets": ["1.0.0", "2.0.0"]}`, nil
	}

	p, err := New(home, gps.SemVer{Major: 1}, "http://registry.example", fetch, Newest)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(p.catalog.Versions[alice]) != 2 {
		t.Fatalf("catalog.Versions[%s] = %v, want 2 entries", alice, p.catalog.Versions[alice])
	}

	// the cache should have been persisted to disk too.
	if _, err := os.Stat(cachePath(home)); err != nil {
		t.Fatalf("expected versions cache to be persisted: %v", err)
	}
}

func TestProviderMergedVersionsUnionsLocalAndRemote(t *testing.T) {
	home := t.TempDir()
	compiler := gps.SemVer{Major: 1}
	alice := gps.PkgId{Author: "alice", Name: "widgets"}

	// locally installed: 1.0.0. Remote catalog reports 1.0.0 (dup) and 2.0.0.
	writeInstalledManifest(t, home, compiler, alice, gps.SemVer{Major: 1}, `{"type":"package","name":"alice/widgets","version":"1.0.0"}`)

	fetch := func(url string) (string, error) {
		return `{"alice/widgets": ["1.0.0", "2.0.0"]}`, nil
	}
	p, err := New(home, compiler, "http://registry.example", fetch, Newest)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	versions, err := p.mergedVersions(alice)
	if err != nil {
		t.Fatalf("mergedVersions: %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("mergedVersions = %v, want 2 distinct entries (deduped)", versions)
	}
	// Newest strategy: highest version first.
	if versions[0] != (gps.SemVer{Major: 2}) {
		t.Fatalf("mergedVersions[0] = %v, want 2.0.0 under Newest strategy", versions[0])
	}
}

func TestProviderMergedVersionsOldestStrategy(t *testing.T) {
	home := t.TempDir()
	compiler := gps.SemVer{Major: 1}
	alice := gps.PkgId{Author: "alice", Name: "widgets"}

	fetch := func(url string) (string, error) {
		return `{"alice/widgets": ["1.0.0", "2.0.0"]}`, nil
	}
	p, err := New(home, compiler, "http://registry.example", fetch, Oldest)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	versions, err := p.mergedVersions(alice)
	if err != nil {
		t.Fatalf("mergedVersions: %v", err)
	}
	if versions[0] != (gps.SemVer{Major: 1}) {
		t.Fatalf("mergedVersions[0] = %v, want 1.0.0 under Oldest strategy", versions[0])
	}
}

func TestProviderChooseVersionOldestWithinRange(t *testing.T) {
	home := t.TempDir()
	compiler := gps.SemVer{Major: 1}
	alice := gps.PkgId{Author: "alice", Name: "widgets"}

	fetch := func(url string) (string, error) {
		return `{"alice/widgets": ["1.0.0", "1.5.0", "2.0.0"]}`, nil
	}
	p, err := New(home, compiler, "http://registry.example", fetch, Oldest)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	pkg, v, ok, err := p.ChooseVersion([]gps.Candidate{{Pkg: alice, Range: gps.Any()}})
	if err != nil || !ok {
		t.Fatalf("ChooseVersion = %v, %v, %v, %v", pkg, v, ok, err)
	}
	if v != (gps.SemVer{Major: 1}) {
		t.Fatalf("ChooseVersion picked %v, want 1.0.0 (oldest)", v)
	}
}

func TestProviderDependenciesPrefersInstalledManifest(t *testing.T) {
	home := t.TempDir()
	compiler := gps.SemVer{Major: 1}
	alice := gps.PkgId{Author: "alice", Name: "widgets"}
	bob := gps.PkgId{Author: "bob", Name: "gears"}

	writeInstalledManifest(t, home, compiler, alice, gps.SemVer{Major: 1}, `{
		"type": "package", "name": "alice/widgets", "version": "1.0.0",
		"deps": {"bob/gears": "1.0.0 <= v < 2.0.0"}
	}`)

	fetchCalled := false
	fetch := func(url string) (string, error) {
		fetchCalled = true
		return `{}`, nil
	}
	p, err := New(home, compiler, "http://registry.example", fetch, Newest)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	fetchCalled = false // ignore the seeding call made by New

	deps, err := p.Dependencies(alice, gps.SemVer{Major: 1})
	if err != nil {
		t.Fatalf("Dependencies: %v", err)
	}
	if !deps[bob].Contains(gps.SemVer{Major: 1, Minor: 5}) {
		t.Fatalf("Dependencies[%s] should contain 1.5.0, got %v", bob, deps[bob])
	}
	if fetchCalled {
		t.Fatal("Dependencies should not hit the network when an installed manifest exists")
	}
}

func TestProviderDependenciesFallsBackToNetworkAndCaches(t *testing.T) {
	home := t.TempDir()
	compiler := gps.SemVer{Major: 1}
	alice := gps.PkgId{Author: "alice", Name: "widgets"}
	bob := gps.PkgId{Author: "bob", Name: "gears"}

	manifestBody := `{
		"type": "package", "name": "alice/widgets", "version": "1.0.0",
		"deps": {"bob/gears": "1.0.0 <= v < 2.0.0"}
	}`

	fetchCount := 0
	fetch := func(url string) (string, error) {
		fetchCount++
		if fetchCount == 1 {
			return `{}`, nil // the seeding catalog fetch in New
		}
		return manifestBody, nil
	}
	p, err := New(home, compiler, "http://registry.example", fetch, Newest)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	deps, err := p.Dependencies(alice, gps.SemVer{Major: 1})
	if err != nil {
		t.Fatalf("Dependencies: %v", err)
	}
	if !deps[bob].Contains(gps.SemVer{Major: 1, Minor: 5}) {
		t.Fatalf("Dependencies[%s] should contain 1.5.0, got %v", bob, deps[bob])
	}

	cachePath := p.localCachePath(alice, gps.SemVer{Major: 1})
	if _, err := os.Stat(cachePath); err != nil {
		t.Fatalf("expected manifest to be written through to %s: %v", cachePath, err)
	}
}

func TestProviderDependenciesNetworkFailureIsKindFetch(t *testing.T) {
	home := t.TempDir()
	compiler := gps.SemVer{Major: 1}
	alice := gps.PkgId{Author: "alice", Name: "widgets"}

	boom := errors.New("connection refused")
	fetchCount := 0
	fetch := func(url string) (string, error) {
		fetchCount++
		if fetchCount == 1 {
			return `{}`, nil // the seeding catalog fetch in New
		}
		return "", boom
	}
	p, err := New(home, compiler, "http://registry.example", fetch, Newest)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = p.Dependencies(alice, gps.SemVer{Major: 1})
	if err == nil {
		t.Fatal("Dependencies should surface the network failure")
	}
	if gps.KindOf(err) != gps.KindFetch {
		t.Errorf("KindOf(err) = %v, want KindFetch", gps.KindOf(err))
	}
}
