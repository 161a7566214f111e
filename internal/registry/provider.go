// Package registry implements the remote registry dependency provider: a
// persistent cache of every version a package registry has ever reported,
// refreshed incrementally, layered over whatever is already installed
// locally.
package registry

import (
	"bytes"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"

	"github.com/sdboyer/solve-deps/internal/gps"
	"github.com/sdboyer/solve-deps/internal/manifest"
	"github.com/sdboyer/solve-deps/internal/store"
)

// VersionStrategy controls which end of a candidate's available versions
// Provider.ChooseVersion emits first.
type VersionStrategy int

const (
	// Newest picks the highest compatible version first.
	Newest VersionStrategy = iota
	// Oldest picks the lowest compatible version first.
	Oldest
)

// Provider is the remote-registry gps.Provider. It consults the local
// store first for both candidate versions and manifests, and falls back
// to the network only for what isn't installed.
type Provider struct {
	home     string
	compiler gps.SemVer
	remote   string
	fetch    Fetch
	strategy VersionStrategy

	local   *store.Provider
	catalog *cache
}

// New constructs a remote registry provider rooted at home, refreshing
// its persisted versions cache against remote before returning. fetch
// performs the actual HTTP GET; pass HTTPFetch for a real client, or a
// stub in tests.
func New(home string, compiler gps.SemVer, remote string, fetch Fetch, strategy VersionStrategy) (*Provider, error) {
	p := &Provider{
		home:     home,
		compiler: compiler,
		remote:   remote,
		fetch:    fetch,
		strategy: strategy,
		local:    store.New(home, compiler),
	}

	err := withCacheLock(home, func() error {
		c, err := loadCache(home)
		if err != nil {
			return err
		}
		if err := c.update(remote, fetch); err != nil {
			return err
		}
		if err := c.save(home); err != nil {
			return err
		}
		p.catalog = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// HTTPFetch is a Fetch backed by the standard library's http.Client.
func HTTPFetch(url string) (string, error) {
	resp, err := http.Get(url)
	if err != nil {
		return "", errors.Wrapf(err, "GET %s", url)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("GET %s: unexpected status %s", url, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrapf(err, "reading response body from %s", url)
	}
	return string(body), nil
}

// mergedVersions returns every version known for pkg, from the local
// install tree unioned with the registry catalog, ordered by strategy
// (the first element is the one ChooseVersion should try first).
func (p *Provider) mergedVersions(pkg gps.PkgId) ([]gps.SemVer, error) {
	localAll, err := p.local.Versions(pkg)
	if err != nil {
		return nil, err
	}

	seen := make(map[gps.SemVer]bool, len(localAll))
	var all []gps.SemVer
	for _, v := range localAll {
		if !seen[v] {
			seen[v] = true
			all = append(all, v)
		}
	}
	for _, v := range p.catalog.Versions[pkg] {
		if !seen[v] {
			seen[v] = true
			all = append(all, v)
		}
	}

	sort.Slice(all, func(i, j int) bool { return all[i].Less(all[j]) })
	if p.strategy == Newest {
		for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
			all[i], all[j] = all[j], all[i]
		}
	}
	return all, nil
}

// ChooseVersion applies the fewest-remaining-versions-in-range heuristic
// across the merged local+remote candidate set, then emits the first
// version (per strategy) of the chosen candidate lying in its range.
func (p *Provider) ChooseVersion(candidates []gps.Candidate) (gps.PkgId, gps.SemVer, bool, error) {
	type scored struct {
		cand    gps.Candidate
		inRange []gps.SemVer
	}

	var best *scored
	for _, c := range candidates {
		all, err := p.mergedVersions(c.Pkg)
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
	if best == nil || len(best.inRange) == 0 {
		pkg := gps.PkgId{}
		if best != nil {
			pkg = best.cand.Pkg
		}
		return pkg, gps.SemVer{}, false, nil
	}
	return best.cand.Pkg, best.inRange[0], true, nil
}

// Dependencies implements gps.Provider by trying, in order: the installed
// manifest, the resolver-local manifest cache, and finally an HTTP fetch
// (written through to the local cache as a side effect of success).
func (p *Provider) Dependencies(pkg gps.PkgId, v gps.SemVer) (map[gps.PkgId]gps.Range, error) {
	if deps, err := p.local.Dependencies(pkg, v); err == nil {
		return deps, nil
	}

	cachePath := p.localCachePath(pkg, v)
	if b, err := os.ReadFile(cachePath); err == nil {
		return parsePackageManifest(b)
	}

	url := p.remote + "/packages/" + pkg.Author + "/" + pkg.Name + "/" + v.String() + "/manifest"
	body, err := p.fetch(url)
	if err != nil {
		return nil, gps.NewFetchError(url, err)
	}

	// Writing the fetched manifest through to the local cache is
	// best-effort: a failure here shouldn't fail a resolve that otherwise
	// has everything it needs.
	if err := os.MkdirAll(filepath.Dir(cachePath), 0o755); err == nil {
		_ = os.WriteFile(cachePath, []byte(body), 0o644)
	}

	return parsePackageManifest([]byte(body))
}

func (p *Provider) localCachePath(pkg gps.PkgId, v gps.SemVer) string {
	return filepath.Join(p.home, "pubgrub", "elm_json_cache", pkg.Author, pkg.Name, v.String(), "manifest")
}

func parsePackageManifest(b []byte) (map[gps.PkgId]gps.Range, error) {
	m, err := manifest.ReadManifest(bytes.NewReader(b))
	if err != nil {
		return nil, errors.Wrap(err, "parsing manifest")
	}
	pkgManifest, ok := m.(*manifest.Package)
	if !ok {
		return nil, errors.New("manifest is not a package manifest")
	}
	return pkgManifest.DirectDeps(false), nil
}
