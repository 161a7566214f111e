package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/sdboyer/solve-deps/internal/gps"
	"github.com/sdboyer/solve-deps/internal/homedir"
	"github.com/sdboyer/solve-deps/internal/manifest"
	"github.com/sdboyer/solve-deps/internal/orchestrate"
	"github.com/sdboyer/solve-deps/log"
)

// defaultCompiler is the only compiler version this exercise's ecosystem
// targets. A real multi-version ecosystem would make this a flag; it is
// pinned here because the spec's install layout is defined in terms of
// exactly one compiler tree.
const defaultCompiler = "1.0.0"

const defaultRemote = "https://package.elm-lang.org"

// extraFlag implements flag.Value so --extra can be repeated, each
// occurrence accumulating one "author/name: RANGE" constraint.
type extraFlag struct {
	values []string
}

func (e *extraFlag) String() string { return strings.Join(e.values, ",") }
func (e *extraFlag) Set(s string) error {
	e.values = append(e.values, s)
	return nil
}

// Run parses c.Args, resolves dependencies accordingly, and returns the
// process exit code: 0 on success (the assignment is printed to Stdout as
// JSON), non-zero on failure (a diagnostic is printed to Stderr).
func (c *Config) Run(ctx context.Context) int {
	fs := flag.NewFlagSet("solve-deps", flag.ContinueOnError)
	fs.SetOutput(c.Stderr)

	var offline, onlineNewest, onlineOldest, useTest, verbose bool
	var extras extraFlag
	fs.BoolVar(&offline, "offline", false, "use only installed packages")
	fs.BoolVar(&onlineNewest, "online-newest", false, "prefer newest compatible versions from the registry")
	fs.BoolVar(&onlineOldest, "online-oldest", false, "prefer oldest compatible versions from the registry")
	fs.BoolVar(&useTest, "test", false, "include test dependencies")
	fs.BoolVar(&verbose, "v", false, "print progress to stderr")
	fs.Var(&extras, "extra", `additional constraint "author/name: RANGE"; may be repeated`)

	if err := fs.Parse(c.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	logger := log.New(c.Stderr)

	strategy, err := chooseStrategy(offline, onlineNewest, onlineOldest)
	if err != nil {
		fmt.Fprintln(c.Stderr, err)
		return 2
	}

	m, rootID, rootVersion, err := loadRoot(fs.Args(), c.WorkingDir)
	if err != nil {
		fmt.Fprintln(c.Stderr, err)
		return 1
	}
	if verbose {
		logger.LogSolveDepsfln("resolving %s@%s", rootID, rootVersion)
	}

	extraConstraints, err := parseExtras(extras.values)
	if err != nil {
		fmt.Fprintln(c.Stderr, err)
		return 2
	}

	home, err := homedir.Resolve()
	if err != nil {
		fmt.Fprintln(c.Stderr, err)
		return 1
	}
	compiler, err := gps.ParseSemVer(defaultCompiler)
	if err != nil {
		fmt.Fprintln(c.Stderr, err)
		return 1
	}

	assignment, err := orchestrate.Resolve(ctx, m, orchestrate.Options{
		Home:        home,
		Compiler:    compiler,
		Remote:      defaultRemote,
		Strategy:    strategy,
		UseTest:     useTest,
		Extras:      extraConstraints,
		RootID:      rootID,
		RootVersion: rootVersion,
	})
	if err != nil {
		fmt.Fprintln(c.Stderr, err)
		return 1
	}
	if verbose {
		logger.LogSolveDepsfln("resolved %d direct, %d indirect dependencies", len(assignment.Direct), len(assignment.Indirect))
	}

	return printAssignment(c.Stdout, assignment)
}

func chooseStrategy(offline, onlineNewest, onlineOldest bool) (orchestrate.Strategy, error) {
	set := 0
	for _, b := range []bool{offline, onlineNewest, onlineOldest} {
		if b {
			set++
		}
	}
	if set > 1 {
		return 0, errors.New("--offline, --online-newest, and --online-oldest are mutually exclusive")
	}
	switch {
	case offline:
		return orchestrate.Offline, nil
	case onlineNewest:
		return orchestrate.OnlineNewest, nil
	case onlineOldest:
		return orchestrate.OnlineOldest, nil
	default:
		return orchestrate.Progressive, nil
	}
}

// loadRoot always reads "./manifest" in workingDir. Without a positional
// argument, the root id and version come from that manifest (RootPkg@0.0.0
// for an application). With a positional "author/name@semver" argument, the
// root is pinned as that id and version, but its dependencies are still the
// ones declared in ./manifest; the published package's own manifest is not
// fetched or read.
func loadRoot(positional []string, workingDir string) (interface{}, gps.PkgId, gps.SemVer, error) {
	if len(positional) > 1 {
		return nil, gps.PkgId{}, gps.SemVer{}, errors.New("at most one positional argument (author/name@semver) is accepted")
	}

	if len(positional) == 1 {
		pv, err := gps.ParsePkgVersion(positional[0])
		if err != nil {
			return nil, gps.PkgId{}, gps.SemVer{}, err
		}
		f, err := os.Open(filepath.Join(workingDir, manifest.ManifestName))
		if err != nil {
			return nil, gps.PkgId{}, gps.SemVer{}, errors.Wrap(err, "reading manifest")
		}
		defer f.Close()
		m, err := manifest.ReadManifest(f)
		if err != nil {
			return nil, gps.PkgId{}, gps.SemVer{}, err
		}
		return m, pv.Id, pv.Version, nil
	}

	f, err := os.Open(filepath.Join(workingDir, manifest.ManifestName))
	if err != nil {
		return nil, gps.PkgId{}, gps.SemVer{}, errors.Wrap(err, "reading manifest")
	}
	defer f.Close()
	m, err := manifest.ReadManifest(f)
	if err != nil {
		return nil, gps.PkgId{}, gps.SemVer{}, err
	}

	switch mm := m.(type) {
	case *manifest.Application:
		return mm, gps.RootPkg, gps.Zero, nil
	case *manifest.Package:
		return mm, mm.Name, mm.Version, nil
	default:
		return nil, gps.PkgId{}, gps.SemVer{}, errors.Errorf("unsupported manifest type %T", m)
	}
}

func parseExtras(raw []string) (map[gps.PkgId]gps.Range, error) {
	out := make(map[gps.PkgId]gps.Range, len(raw))
	for _, e := range raw {
		i := strings.IndexByte(e, ':')
		if i < 0 {
			return nil, errors.Errorf(`--extra %q: expected the form "author/name: RANGE"`, e)
		}
		id, err := gps.ParsePkgId(strings.TrimSpace(e[:i]))
		if err != nil {
			return nil, errors.Wrapf(err, "--extra %q", e)
		}
		r, err := gps.ParseConstraint(strings.TrimSpace(e[i+1:]))
		if err != nil {
			return nil, errors.Wrapf(err, "--extra %q", e)
		}
		out[id] = r
	}
	return out, nil
}

// output is the JSON shape printed to stdout: keys sorted lexicographically
// for reproducibility, as required of the resolver's external interface.
type output struct {
	Direct   map[string]string `json:"direct"`
	Indirect map[string]string `json:"indirect"`
}

func printAssignment(w io.Writer, a *orchestrate.Assignment) int {
	out := output{
		Direct:   sortedStringMap(a.Direct),
		Indirect: sortedStringMap(a.Indirect),
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return 1
	}
	return 0
}

func sortedStringMap(m map[gps.PkgId]gps.SemVer) map[string]string {
	keys := make([]string, 0, len(m))
	idx := make(map[string]gps.PkgId, len(m))
	for id := range m {
		s := id.String()
		keys = append(keys, s)
		idx[s] = id
	}
	sort.Strings(keys)
	out := make(map[string]string, len(m))
	for _, k := range keys {
		out[k] = m[idx[k]].String()
	}
	return out
}
