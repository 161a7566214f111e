package gps

import "fmt"

// Term is a single claim about a package within an incompatibility:
// either "pkg is in Range" (positive) or "pkg is not in Range" (negative,
// i.e. equivalent to the positive claim over Range.Complement()).
type Term struct {
	Pkg      PkgId
	Range    Range
	Positive bool
}

func positiveTerm(pkg PkgId, r Range) Term { return Term{Pkg: pkg, Range: r, Positive: true} }
func negativeTerm(pkg PkgId, r Range) Term { return Term{Pkg: pkg, Range: r, Positive: false} }

// effectiveRange is the set of versions for which the term holds.
func (t Term) effectiveRange() Range {
	if t.Positive {
		return t.Range
	}
	return t.Range.Complement()
}

// negate returns the term asserting the opposite claim.
func (t Term) negate() Term {
	return Term{Pkg: t.Pkg, Range: t.Range, Positive: !t.Positive}
}

func (t Term) String() string {
	if t.Positive {
		return fmt.Sprintf("%s in %s", t.Pkg, t.Range)
	}
	return fmt.Sprintf("%s not in %s", t.Pkg, t.Range)
}

// rangeEqual reports whether a and b denote the same set of versions.
// Both are assumed normalized, so this is a structural comparison.
func rangeEqual(a, b Range) bool {
	if len(a.intervals) != len(b.intervals) {
		return false
	}
	for i := range a.intervals {
		ai, bi := a.intervals[i], b.intervals[i]
		if !ai.Lo.Eq(bi.Lo) {
			return false
		}
		if (ai.Hi == nil) != (bi.Hi == nil) {
			return false
		}
		if ai.Hi != nil && !ai.Hi.Eq(*bi.Hi) {
			return false
		}
	}
	return true
}

// termRelation is the outcome of comparing a term against the partial
// solution's current derived range for its package.
type termRelation uint8

const (
	relInconclusive termRelation = iota
	relSatisfied
	relContradicted
)
