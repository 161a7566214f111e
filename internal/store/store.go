// Package store implements the local-store dependency provider: it serves
// candidates and manifests straight out of a compiler's installed package
// tree, with no network access.
package store

import (
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/karrick/godirwalk"
	"github.com/pkg/errors"

	"github.com/sdboyer/solve-deps/internal/gps"
	"github.com/sdboyer/solve-deps/internal/manifest"
)

// versionIndex memoizes, per PkgId, the ordered set of versions found
// installed on disk. It is a typed wrapper around a radix tree keyed by
// the "author/name" textual form, the same trick golang-dep's
// typed_radix.go uses to avoid interface{} assertions scattered through
// the rest of the package.
type versionIndex struct {
	mu   sync.Mutex
	tree *radixTree
}

func newVersionIndex() *versionIndex {
	return &versionIndex{tree: newRadixTree()}
}

func (vi *versionIndex) get(pkg gps.PkgId) ([]gps.SemVer, bool) {
	vi.mu.Lock()
	defer vi.mu.Unlock()
	return vi.tree.Get(pkg.String())
}

func (vi *versionIndex) set(pkg gps.PkgId, versions []gps.SemVer) {
	vi.mu.Lock()
	defer vi.mu.Unlock()
	vi.tree.Insert(pkg.String(), versions)
}

// Provider is the local-store gps.Provider: candidates and dependency
// lookups are both served from the install layout
// "<home>/<compiler>/packages/<author>/<name>/<semver>/manifest".
type Provider struct {
	home     string
	compiler gps.SemVer
	index    *versionIndex
}

// New builds a local-store provider rooted at home for the given compiler
// version.
func New(home string, compiler gps.SemVer) *Provider {
	return &Provider{home: home, compiler: compiler, index: newVersionIndex()}
}

// packageDir is "<home>/<compiler>/packages/<author>/<name>".
func (p *Provider) packageDir(pkg gps.PkgId) string {
	return filepath.Join(p.home, p.compiler.String(), "packages", pkg.Author, pkg.Name)
}

func (p *Provider) manifestPath(pkg gps.PkgId, v gps.SemVer) string {
	return filepath.Join(p.packageDir(pkg), v.String(), "manifest")
}

// Versions returns every installed version of pkg, memoized after the
// first directory scan. A missing package directory is an empty result,
// not an error: it simply means nothing of this package is installed.
// Exported so the remote registry provider can union it with what the
// registry catalog reports for the same package.
func (p *Provider) Versions(pkg gps.PkgId) ([]gps.SemVer, error) {
	if vs, ok := p.index.get(pkg); ok {
		return vs, nil
	}

	dir := p.packageDir(pkg)
	entries, err := readImmediateDirnames(dir)
	if os.IsNotExist(err) {
		p.index.set(pkg, nil)
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "scanning installed versions of %s", pkg)
	}

	var versions []gps.SemVer
	for _, name := range entries {
		v, err := gps.ParseSemVer(name)
		if err != nil {
			// Not every directory entry under a package dir need be a
			// version (e.g. a lockfile); skip what doesn't parse.
			continue
		}
		versions = append(versions, v)
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i].Less(versions[j]) })
	p.index.set(pkg, versions)
	return versions, nil
}

// ChooseVersion implements gps.Provider: it picks the candidate with the
// fewest remaining versions inside its range (smallest search branch
// first), then emits the highest version of that candidate lying in the
// range.
func (p *Provider) ChooseVersion(candidates []gps.Candidate) (gps.PkgId, gps.SemVer, bool, error) {
	type scored struct {
		cand    gps.Candidate
		inRange []gps.SemVer
	}

	var best *scored
	for _, c := range candidates {
		all, err := p.Versions(c.Pkg)
		if err != nil {
			return c.Pkg, gps.SemVer{}, false, err
		}
		var inRange []gps.SemVer
		for _, v := range all {
			if c.Range.Contains(v) {
				inRange = append(inRange, v)
			}
		}
		s := &scored{cand: c, inRange: inRange}
		if best == nil || len(s.inRange) < len(best.inRange) {
			best = s
		}
	}
	if best == nil {
		return gps.PkgId{}, gps.SemVer{}, false, nil
	}
	if len(best.inRange) == 0 {
		return best.cand.Pkg, gps.SemVer{}, false, nil
	}
	// Versions are kept sorted ascending; the highest is the last.
	return best.cand.Pkg, best.inRange[len(best.inRange)-1], true, nil
}

// Dependencies implements gps.Provider by reading and parsing the
// installed manifest. An unparseable manifest is a retrieval error; a
// missing one is too, since ChooseVersion should never offer a version
// that isn't actually installed.
func (p *Provider) Dependencies(pkg gps.PkgId, v gps.SemVer) (map[gps.PkgId]gps.Range, error) {
	f, err := os.Open(p.manifestPath(pkg, v))
	if err != nil {
		return nil, errors.Wrapf(err, "reading manifest for %s@%s", pkg, v)
	}
	defer f.Close()

	m, err := manifest.ReadManifest(f)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing manifest for %s@%s", pkg, v)
	}
	pkgManifest, ok := m.(*manifest.Package)
	if !ok {
		return nil, errors.Errorf("manifest for %s@%s is not a package manifest", pkg, v)
	}
	return pkgManifest.DirectDeps(false), nil
}

// readImmediateDirnames lists the immediate subdirectories of dir, using
// godirwalk so a single Callback can both enumerate and prune: once a
// direct child is seen, its own contents (the package's source tree) are
// skipped rather than walked.
func readImmediateDirnames(dir string) ([]string, error) {
	var names []string
	err := godirwalk.Walk(dir, &godirwalk.Options{
		Callback: func(osPathname string, de *godirwalk.Dirent) error {
			if osPathname == dir {
				return nil
			}
			rel, err := filepath.Rel(dir, osPathname)
			if err != nil {
				return err
			}
			if rel == "." {
				return nil
			}
			if de.IsDir() {
				names = append(names, filepath.Base(osPathname))
				return filepath.SkipDir
			}
			return nil
		},
	})
	return names, err
}
