package gps

// Candidate pairs a package identifier with the range the partial solution
// currently requires of it.
type Candidate struct {
	Pkg   PkgId
	Range Range
}

// Provider is the two-operation oracle the resolver queries. Both
// operations may perform I/O and must be safe to call repeatedly within a
// single resolve; neither is expected to be safe for concurrent use from
// multiple goroutines (the resolver itself is single-threaded, see §5).
type Provider interface {
	// ChooseVersion is given a non-empty list of candidates and picks one
	// to attempt next, optionally also picking a concrete version from its
	// range. Returning a candidate with ok=false means "no version of this
	// package satisfies its current range" — a conflict the resolver will
	// learn from, not a Go error.
	ChooseVersion(candidates []Candidate) (pkg PkgId, version SemVer, ok bool, err error)

	// Dependencies returns the dependency map of pkg@version: every
	// package it requires, and the range it requires it in.
	Dependencies(pkg PkgId, version SemVer) (map[PkgId]Range, error)
}
