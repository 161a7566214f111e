package store

import (
	radix "github.com/armon/go-radix"

	"github.com/sdboyer/solve-deps/internal/gps"
)

// radixTree is a typed wrapper around armon/go-radix's Tree, the same
// pattern golang-dep's typed_radix.go uses to avoid scattering interface{}
// assertions through the rest of the package. Keys are a PkgId's
// "author/name" textual form. Only exact-key Get and Insert are wrapped;
// no prefix or ordered walk is exposed.
type radixTree struct {
	t *radix.Tree
}

func newRadixTree() *radixTree {
	return &radixTree{t: radix.New()}
}

// Get returns the memoized version list for key, and whether one has been
// recorded at all (as opposed to recorded-but-empty, which is itself a
// valid, memoized "nothing installed" result).
func (t *radixTree) Get(key string) ([]gps.SemVer, bool) {
	v, ok := t.t.Get(key)
	if !ok {
		return nil, false
	}
	return v.([]gps.SemVer), true
}

// Insert records versions for key, overwriting any previous entry.
func (t *radixTree) Insert(key string, versions []gps.SemVer) {
	t.t.Insert(key, versions)
}
