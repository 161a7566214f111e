package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/pkg/errors"
	"github.com/theckman/go-flock"

	"github.com/sdboyer/solve-deps/internal/fs"
	"github.com/sdboyer/solve-deps/internal/gps"
)

// cacheFileName is the persisted-versions-cache path, relative to the
// cache root.
const cacheFileName = "pubgrub/versions_cache.json"

// lockFileName guards concurrent writers to cacheFileName.
const lockFileName = "pubgrub/versions_cache.json.lock"

// Fetch performs a blocking HTTP GET of url and returns its body, or an
// error. It is injected rather than hard-wired so the registry provider
// never owns an HTTP client of its own, matching the "ambient I/O as a
// function value" design: tests can supply a fake, production code an
// http.Client-backed one.
type Fetch func(url string) (string, error)

// cache is the persisted map of every version known to exist for each
// package, as last seen from the remote registry.
type cache struct {
	Versions map[gps.PkgId][]gps.SemVer `json:"versions"`
}

func newCache() *cache {
	return &cache{Versions: make(map[gps.PkgId][]gps.SemVer)}
}

func cachePath(home string) string { return filepath.Join(home, cacheFileName) }
func lockPath(home string) string  { return filepath.Join(home, lockFileName) }

func loadCache(home string) (*cache, error) {
	b, err := os.ReadFile(cachePath(home))
	if os.IsNotExist(err) {
		return newCache(), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading versions cache")
	}
	c := newCache()
	if err := json.Unmarshal(b, c); err != nil {
		return nil, errors.Wrap(err, "parsing versions cache")
	}
	if c.Versions == nil {
		c.Versions = make(map[gps.PkgId][]gps.SemVer)
	}
	return c, nil
}

// save writes the cache to a temp file in the same directory and renames it
// over the real path, so a crash mid-write never leaves a truncated or
// half-encoded versions_cache.json for the next invocation to choke on.
func (c *cache) save(home string) error {
	path := cachePath(home)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "creating cache directory")
	}
	b, err := json.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "encoding versions cache")
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return errors.Wrap(err, "writing versions cache")
	}
	if err := fs.RenameWithFallback(tmp, path); err != nil {
		return errors.Wrap(err, "replacing versions cache")
	}
	return nil
}

func (c *cache) count() int {
	n := 0
	for _, vs := range c.Versions {
		n += len(vs)
	}
	return n
}

// update runs the incremental refresh protocol: a first-ever update pulls
// the full catalog; subsequent updates fetch only what changed since the
// cache's current size, falling back to a full refetch whenever the
// registry's response can't be reconciled against what's cached (a
// package was deleted, shrinking the feed).
func (c *cache) update(remote string, fetch Fetch) error {
	if c.count() == 0 {
		return c.fetchAll(remote, fetch)
	}

	since := c.count() - 1
	if since < 0 {
		since = 0
	}
	url := remote + "/all-packages/since/" + strconv.Itoa(since)
	body, err := fetch(url)
	if err != nil {
		return gps.NewFetchError(url, err)
	}

	var entries []string
	if err := json.Unmarshal([]byte(body), &entries); err != nil {
		return errors.Wrapf(err, "parsing response from %s", url)
	}
	if len(entries) == 0 {
		// The registry shrank: something was deleted. The incremental
		// window can't be trusted; start over.
		return c.fetchAll(remote, fetch)
	}

	// entries is newest-first; the last element is the oldest one
	// returned, which must already be cached for the window to be
	// contiguous with what we have.
	oldest, err := gps.ParsePkgVersion(entries[len(entries)-1])
	if err != nil {
		return errors.Wrapf(err, "parsing entry from %s", url)
	}
	if !contains(c.Versions[oldest.Id], oldest.Version) {
		return c.fetchAll(remote, fetch)
	}

	for _, e := range entries[:len(entries)-1] {
		pv, err := gps.ParsePkgVersion(e)
		if err != nil {
			return errors.Wrapf(err, "parsing entry from %s", url)
		}
		c.insert(pv.Id, pv.Version)
	}
	return nil
}

func (c *cache) fetchAll(remote string, fetch Fetch) error {
	url := remote + "/all-packages"
	body, err := fetch(url)
	if err != nil {
		return gps.NewFetchError(url, err)
	}
	raw := make(map[string][]string)
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return errors.Wrapf(err, "parsing response from %s", url)
	}
	c.Versions = make(map[gps.PkgId][]gps.SemVer, len(raw))
	for name, vs := range raw {
		id, err := gps.ParsePkgId(name)
		if err != nil {
			return errors.Wrapf(err, "parsing package name from %s", url)
		}
		for _, vstr := range vs {
			v, err := gps.ParseSemVer(vstr)
			if err != nil {
				return errors.Wrapf(err, "parsing version from %s", url)
			}
			c.insert(id, v)
		}
	}
	return nil
}

func (c *cache) insert(id gps.PkgId, v gps.SemVer) {
	vs := c.Versions[id]
	if contains(vs, v) {
		return
	}
	vs = append(vs, v)
	sort.Slice(vs, func(i, j int) bool { return vs[i].Less(vs[j]) })
	c.Versions[id] = vs
}

func contains(vs []gps.SemVer, v gps.SemVer) bool {
	for _, x := range vs {
		if x.Eq(v) {
			return true
		}
	}
	return false
}

// withCacheLock takes an advisory file lock on the cache's lock file for
// the duration of fn, so two concurrent invocations sharing a cache root
// don't interleave writes to versions_cache.json.
func withCacheLock(home string, fn func() error) error {
	path := lockPath(home)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "creating cache directory")
	}
	fl := flock.NewFlock(path)
	if err := fl.Lock(); err != nil {
		return errors.Wrap(err, "locking versions cache")
	}
	defer fl.Unlock()
	return fn()
}
