package gps

import (
	"bytes"
	"fmt"
)

// incompatCause records why an incompatibility exists, for the
// explanation tree rendered by NoSolution.
type incompatCause uint8

const (
	// causeDependency is "p@v depends on q in R", i.e. derived from a
	// Dependencies() call.
	causeDependency incompatCause = iota
	// causeNoVersions is "no version of p satisfies R", derived from the
	// provider returning ok=false.
	causeNoVersions
	// causeConflict is a learned incompatibility produced by conflict
	// resolution, with two parent incompatibilities.
	causeConflict
)

// incompatibility is a disjunction of terms: a claim that not all of its
// terms can hold simultaneously. Each one is the unit of learning in the
// resolver's conflict-driven search.
type incompatibility struct {
	terms []Term
	cause incompatCause

	// depender/dependency are set when cause == causeDependency.
	depender   PkgVersion
	dependency PkgId

	// noVersionsPkg is set when cause == causeNoVersions.
	noVersionsPkg PkgId

	// left/right are the two incompatibilities resolution combined to
	// produce this one, set when cause == causeConflict.
	left, right *incompatibility
}

// termFor returns the term of inc concerning pkg, and whether one exists.
func (inc *incompatibility) termFor(pkg PkgId) (Term, bool) {
	for _, t := range inc.terms {
		if t.Pkg == pkg {
			return t, true
		}
	}
	return Term{}, false
}

// relation reports how inc currently stands against ps: relSatisfied if
// every term holds (a conflict), relContradicted if some term can never
// hold (inc carries no information), or relInconclusive otherwise. When
// exactly one term is undetermined and the rest are satisfied, isUnit is
// true and unit is that term — a unit clause worth propagating (its
// negation can be derived).
func (inc *incompatibility) relation(ps *partialSolution) (rel termRelation, unit Term, isUnit bool) {
	unsatisfiedCount := 0
	for _, t := range inc.terms {
		derived := ps.derivedRange(t.Pkg)
		switch relationOfTerm(t, derived) {
		case relContradicted:
			return relContradicted, Term{}, false
		case relInconclusive:
			unsatisfiedCount++
			unit = t
		}
		// relSatisfied: this term holds; contributes nothing further.
	}
	switch unsatisfiedCount {
	case 0:
		return relSatisfied, Term{}, false
	case 1:
		return relInconclusive, unit, true
	default:
		return relInconclusive, Term{}, false
	}
}

// relationOfTerm compares t against the range currently admissible for its
// package in the partial solution.
func relationOfTerm(t Term, derived Range) termRelation {
	eff := t.effectiveRange()
	inter := derived.Intersection(eff)
	switch {
	case inter.IsNone():
		return relContradicted
	case rangeEqual(inter, derived):
		return relSatisfied
	default:
		return relInconclusive
	}
}

func (inc *incompatibility) traceString() string {
	var buf bytes.Buffer
	switch inc.cause {
	case causeDependency:
		fmt.Fprintf(&buf, "%s depends on %s", inc.depender, inc.dependency)
	case causeNoVersions:
		fmt.Fprintf(&buf, "no version of %s satisfies the current constraints", inc.noVersionsPkg)
	case causeConflict:
		fmt.Fprintf(&buf, "%s, and %s", inc.left.traceString(), inc.right.traceString())
	}
	return buf.String()
}

func (inc *incompatibility) Error() string { return inc.traceString() }

// newDependencyIncompatibility builds "¬(depender ∧ ¬(dependency in r))",
// i.e. the claim that depender cannot be selected together with a
// dependency version outside r: {depender in exact(depender.Version),
// dependency not in r}.
func newDependencyIncompatibility(depender PkgVersion, dependency PkgId, r Range) *incompatibility {
	return &incompatibility{
		terms: []Term{
			positiveTerm(depender.Id, Exact(depender.Version)),
			negativeTerm(dependency, r),
		},
		cause:      causeDependency,
		depender:   depender,
		dependency: dependency,
	}
}

// newNoVersionsIncompatibility builds "¬(pkg in r)": the claim that no
// version of pkg within r can ever be selected.
func newNoVersionsIncompatibility(pkg PkgId, r Range) *incompatibility {
	return &incompatibility{
		terms:         []Term{positiveTerm(pkg, r)},
		cause:         causeNoVersions,
		noVersionsPkg: pkg,
	}
}
