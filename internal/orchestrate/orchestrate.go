// Package orchestrate turns a project manifest and a resolution strategy
// into a single resolver invocation, then partitions the result back into
// direct and indirect dependencies.
package orchestrate

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sdboyer/constext"

	"github.com/sdboyer/solve-deps/internal/gps"
	"github.com/sdboyer/solve-deps/internal/manifest"
	"github.com/sdboyer/solve-deps/internal/registry"
	"github.com/sdboyer/solve-deps/internal/store"
)

// Strategy selects which provider(s) back a resolve.
type Strategy int

const (
	// Offline uses only the local-store provider.
	Offline Strategy = iota
	// OnlineNewest uses the remote registry provider, preferring the
	// newest compatible version of each package.
	OnlineNewest
	// OnlineOldest uses the remote registry provider, preferring the
	// oldest compatible version of each package.
	OnlineOldest
	// Progressive tries Offline first, falling back to OnlineNewest on
	// any resolver error.
	Progressive
)

// Assignment is the resolver's output, partitioned by membership in the
// root's own direct-dependency map.
type Assignment struct {
	Direct   map[gps.PkgId]gps.SemVer
	Indirect map[gps.PkgId]gps.SemVer
}

// Options configures a single resolve.
type Options struct {
	Home     string
	Compiler gps.SemVer
	Remote   string
	Fetch    registry.Fetch
	Strategy Strategy
	UseTest  bool
	Extras   map[gps.PkgId]gps.Range

	// RootID and RootVersion identify the synthetic root package. For an
	// application manifest these are typically RootPkg and 0.0.0; for a
	// package manifest they are the package's own declared name/version,
	// so a published package can be resolved as itself.
	RootID      gps.PkgId
	RootVersion gps.SemVer
}

// Resolve builds the direct-dependency map from m (folding in Extras),
// selects a provider per opts.Strategy, wraps it in the root adapter, and
// runs the resolver. cancel is merged with a resolve-scoped context via
// constext so either source can cooperatively cancel the search, the way
// golang-dep's call manager merges an inbound request context with its
// own internal one.
func Resolve(cancel context.Context, m interface{}, opts Options) (*Assignment, error) {
	direct, err := directDeps(m, opts)
	if err != nil {
		return nil, err
	}

	ctx, cancelFunc := constext.Cons(cancel, context.Background())
	defer cancelFunc()

	var decisions map[gps.PkgId]gps.SemVer
	switch opts.Strategy {
	case Offline:
		decisions, err = resolveWith(ctx, offlineProvider(opts), direct, opts)
	case OnlineNewest:
		p, perr := onlineProvider(opts, registry.Newest)
		if perr != nil {
			return nil, perr
		}
		decisions, err = resolveWith(ctx, p, direct, opts)
	case OnlineOldest:
		p, perr := onlineProvider(opts, registry.Oldest)
		if perr != nil {
			return nil, perr
		}
		decisions, err = resolveWith(ctx, p, direct, opts)
	case Progressive:
		decisions, err = resolveWith(ctx, offlineProvider(opts), direct, opts)
		if err != nil {
			p, perr := onlineProvider(opts, registry.Newest)
			if perr != nil {
				return nil, perr
			}
			decisions, err = resolveWith(ctx, p, direct, opts)
		}
	default:
		return nil, errors.Errorf("unknown strategy %d", opts.Strategy)
	}
	if err != nil {
		return nil, err
	}

	out := &Assignment{
		Direct:   make(map[gps.PkgId]gps.SemVer, len(direct)),
		Indirect: make(map[gps.PkgId]gps.SemVer, len(decisions)),
	}
	for id, v := range decisions {
		if id == opts.RootID {
			continue
		}
		if _, isDirect := direct[id]; isDirect {
			out.Direct[id] = v
		} else {
			out.Indirect[id] = v
		}
	}
	return out, nil
}

func offlineProvider(opts Options) gps.Provider {
	return store.New(opts.Home, opts.Compiler)
}

func onlineProvider(opts Options, strategy registry.VersionStrategy) (gps.Provider, error) {
	fetch := opts.Fetch
	if fetch == nil {
		fetch = registry.HTTPFetch
	}
	return registry.New(opts.Home, opts.Compiler, opts.Remote, fetch, strategy)
}

func resolveWith(ctx context.Context, inner gps.Provider, direct map[gps.PkgId]gps.Range, opts Options) (map[gps.PkgId]gps.SemVer, error) {
	root, err := gps.NewRootProvider(inner, opts.RootID, opts.RootVersion, direct)
	if err != nil {
		return nil, err
	}
	return gps.Solve(ctx, opts.RootID, root)
}

// directDeps builds the root's direct-dependency range map: exact ranges
// for an application's pinned versions, declared ranges for a package's
// deps, test sets folded in when opts.UseTest, and finally opts.Extras
// intersected on top of whatever was already present for that package (or
// intersected with Any() if the package wasn't named at all).
func directDeps(m interface{}, opts Options) (map[gps.PkgId]gps.Range, error) {
	var out map[gps.PkgId]gps.Range
	switch v := m.(type) {
	case *manifest.Application:
		out = v.DirectDeps(opts.UseTest)
	case *manifest.Package:
		out = v.DirectDeps(opts.UseTest)
	default:
		return nil, errors.Errorf("unsupported manifest type %T", m)
	}

	for id, r := range opts.Extras {
		existing, ok := out[id]
		if !ok {
			existing = gps.Any()
		}
		merged := existing.Intersection(r)
		if merged.IsNone() {
			return nil, gps.NewEmptySetDependencyError(opts.RootID, opts.RootVersion, id)
		}
		out[id] = merged
	}
	return out, nil
}
