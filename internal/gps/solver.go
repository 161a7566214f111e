package gps

import (
	"context"
	"sort"
)

// Solve runs the conflict-driven search described in the package's
// resolver design: unit propagation, conflict resolution with
// backtracking, and decision-making via the supplied Provider, until every
// known package has a committed version or the search is exhausted.
//
// root is the synthetic (or real) package identifying the project being
// resolved; provider is expected to already be wrapped so that root's
// first ChooseVersion call pins it immediately (see the root adapter).
//
// The algorithm itself has no suspension points; ctx is checked only
// between decisions, as a cooperative cancellation probe (see the
// concurrency model's "should cancel" note) — a cancelled resolve reports
// a dedicated error kind rather than leaving the caller to infer it from
// a generic context error.
func Solve(ctx context.Context, root PkgId, provider Provider) (map[PkgId]SemVer, error) {
	ps := newPartialSolution()
	var incompats []*incompatibility
	known := map[PkgId]bool{root: true}

	addIncompatibility := func(inc *incompatibility) {
		incompats = append(incompats, inc)
		for _, t := range inc.terms {
			known[t.Pkg] = true
		}
	}

	// A bound on conflict-resolution rounds, defensive against a logic
	// error turning into an infinite loop rather than a reported failure.
	const maxRounds = 100000

	for round := 0; ; round++ {
		if round > maxRounds {
			return nil, &noSolutionError{root: root, explain: incompats}
		}
		if err := ctx.Err(); err != nil {
			return nil, newCancelledError(err)
		}

		conflict, err := propagate(ps, incompats)
		if err != nil {
			return nil, err
		}
		if conflict != nil {
			learned, backLevel, serr := resolveConflict(ps, conflict, root)
			if serr != nil {
				return nil, serr
			}
			addIncompatibility(learned)
			ps.backtrackTo(backLevel)
			continue
		}

		pkg, v, ok, done, derr := decide(ps, known, provider)
		if derr != nil {
			return nil, newDependencyRetrievalError(pkg, v, derr)
		}
		if done {
			break
		}
		if !ok {
			// No version of pkg satisfies its current range: learn that
			// and keep propagating.
			addIncompatibility(newNoVersionsIncompatibility(pkg, ps.derivedRange(pkg)))
			continue
		}

		deps, derr := provider.Dependencies(pkg, v)
		if derr != nil {
			return nil, newDependencyRetrievalError(pkg, v, derr)
		}
		if r, has := deps[pkg]; has {
			_ = r
			return nil, &selfDependencyError{Pkg: pkg, Version: v}
		}
		for dep, r := range deps {
			if r.IsNone() {
				return nil, &emptySetDependencyError{Pkg: dep, Dependent: pkg, Version: v}
			}
		}

		ps.addDecision(pkg, v)
		for _, dep := range sortedKeys(deps) {
			addIncompatibility(newDependencyIncompatibility(PkgVersion{Id: pkg, Version: v}, dep, deps[dep]))
		}
	}

	out := make(map[PkgId]SemVer, len(ps.decided))
	for pkg, v := range ps.decided {
		out[pkg] = v
	}
	return out, nil
}

// propagate runs unit propagation to a fixed point. It returns the first
// incompatibility found fully satisfied (a conflict to resolve), or nil
// once no further derivation is possible.
func propagate(ps *partialSolution, incompats []*incompatibility) (*incompatibility, error) {
	for {
		changed := false
		for _, inc := range incompats {
			rel, unit, isUnit := inc.relation(ps)
			switch rel {
			case relSatisfied:
				return inc, nil
			case relInconclusive:
				if isUnit {
					if ps.addDerivation(unit.negate(), inc) {
						changed = true
					}
				}
			}
		}
		if !changed {
			return nil, nil
		}
	}
}

// decide asks the provider to pick the next package to work on among every
// known package without a committed decision. done is true once no such
// package remains (the search succeeded). A non-nil err means the provider
// itself failed (e.g. a filesystem error scanning installed versions);
// it is distinct from ok=false, which means the provider ran fine but
// found nothing in range.
func decide(ps *partialSolution, known map[PkgId]bool, provider Provider) (pkg PkgId, v SemVer, ok bool, done bool, err error) {
	var candidates []Candidate
	for p := range known {
		if ps.isDecided(p) {
			continue
		}
		candidates = append(candidates, Candidate{Pkg: p, Range: ps.derivedRange(p)})
	}
	if len(candidates) == 0 {
		return PkgId{}, SemVer{}, false, true, nil
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Pkg.Less(candidates[j].Pkg) })

	p, version, chosen, cverr := provider.ChooseVersion(candidates)
	if cverr != nil {
		// Provider I/O failures during candidate selection are reported
		// the same way as dependency-retrieval failures: they name the
		// package being considered.
		return p, SemVer{}, false, false, cverr
	}
	return p, version, chosen, false, nil
}

func sortedKeys(m map[PkgId]Range) []PkgId {
	out := make([]PkgId, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// resolveConflict implements conflict-driven clause learning: it replays
// the partial solution to find the assignment that most recently made
// conflict satisfied, resolves conflict against that assignment's cause
// when resolution must continue, and otherwise reports the decision level
// to backtrack to together with the newly learned incompatibility.
func resolveConflict(ps *partialSolution, conflict *incompatibility, root PkgId) (*incompatibility, int, error) {
	current := conflict

	for {
		satIdx := findSatisfierIndex(ps, current)
		if satIdx < 0 {
			return nil, 0, &noSolutionError{root: root, explain: []*incompatibility{current}}
		}
		satAssignment := ps.history[satIdx]
		satTerm, hasSatTerm := current.termFor(satAssignment.pkg)
		if !hasSatTerm {
			return nil, 0, &noSolutionError{root: root, explain: []*incompatibility{current}}
		}

		prevLevel := 0
		for _, t := range current.terms {
			if t.Pkg == satTerm.Pkg {
				continue
			}
			if lvl := ps.satisfierLevel(t); lvl > prevLevel {
				prevLevel = lvl
			}
		}

		if satAssignment.kind == kindDecision || prevLevel >= satAssignment.level {
			if satAssignment.level <= 1 && prevLevel == 0 {
				// Backtracking would have to go past the root decision:
				// the constraints are unsatisfiable.
				return nil, 0, &noSolutionError{root: root, explain: []*incompatibility{current}}
			}
			backLevel := prevLevel
			if satAssignment.kind == kindDecision && backLevel >= satAssignment.level {
				backLevel = satAssignment.level - 1
			}
			return current, backLevel, nil
		}

		if satAssignment.cause == nil {
			return nil, 0, &noSolutionError{root: root, explain: []*incompatibility{current}}
		}
		current = resolveTerms(current, satAssignment.cause, satTerm.Pkg)
	}
}

// findSatisfierIndex returns the earliest index into ps.history whose
// prefix already satisfies inc, by replaying assignments one at a time.
// Because derived ranges only ever narrow, once inc becomes satisfied it
// stays satisfied, so the earliest such prefix is well defined.
func findSatisfierIndex(ps *partialSolution, inc *incompatibility) int {
	acc := make(map[PkgId]Range, len(inc.terms))
	get := func(pkg PkgId) Range {
		if r, ok := acc[pkg]; ok {
			return r
		}
		return Any()
	}
	for i, a := range ps.history {
		switch a.kind {
		case kindDecision:
			acc[a.pkg] = get(a.pkg).Intersection(Exact(a.decision))
		case kindDerivation:
			acc[a.pkg] = get(a.pkg).Intersection(a.term.effectiveRange())
		}
		if incompatibilitySatisfiedAgainst(inc, acc) {
			return i
		}
	}
	return -1
}

func incompatibilitySatisfiedAgainst(inc *incompatibility, acc map[PkgId]Range) bool {
	for _, t := range inc.terms {
		derived := Any()
		if r, ok := acc[t.Pkg]; ok {
			derived = r
		}
		if relationOfTerm(t, derived) != relSatisfied {
			return false
		}
	}
	return true
}

// resolveTerms implements the resolution rule: combine a and b, which both
// constrain pkg, into a new incompatibility that no longer mentions pkg.
// Packages named by both parents keep the union of what either parent
// would have permitted for them, expressed as a single positive term
// (any term's effective range is itself a valid positive-term range, so
// this is always representable).
func resolveTerms(a, b *incompatibility, pkg PkgId) *incompatibility {
	merged := make(map[PkgId]Term)
	for _, t := range a.terms {
		if t.Pkg == pkg {
			continue
		}
		merged[t.Pkg] = t
	}
	for _, t := range b.terms {
		if t.Pkg == pkg {
			continue
		}
		if existing, ok := merged[t.Pkg]; ok {
			merged[t.Pkg] = positiveTerm(t.Pkg, existing.effectiveRange().Union(t.effectiveRange()))
		} else {
			merged[t.Pkg] = t
		}
	}

	pkgs := make([]PkgId, 0, len(merged))
	for p := range merged {
		pkgs = append(pkgs, p)
	}
	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].Less(pkgs[j]) })

	terms := make([]Term, 0, len(pkgs))
	for _, p := range pkgs {
		terms = append(terms, merged[p])
	}

	return &incompatibility{
		terms: terms,
		cause: causeConflict,
		left:  a,
		right: b,
	}
}
