package gps

import (
	"fmt"
	"strings"
)

// ParseConstraint parses the manifest constraint syntax "v1 OP1 v OP2 v2",
// e.g. "1.0.0 <= v < 2.0.0", into the equivalent Range. The middle token
// must be literally "v"; OP1 and OP2 are each one of "<" or "<=".
//
// The lower bound uses OP1: "<=" is inclusive of v1, "<" excludes it (so
// the effective floor is v1.BumpPatch()). The upper bound uses OP2: "<"
// excludes v2, "<=" includes it (so the effective ceiling is
// v2.BumpPatch()).
func ParseConstraint(s string) (Range, error) {
	fields := strings.Fields(s)
	if len(fields) != 5 || fields[2] != "v" {
		return Range{}, newParseError("constraint", s, fmt.Errorf(`expected the form "V1 <lower-op> v <upper-op> V2"`))
	}

	v1, err := ParseSemVer(fields[0])
	if err != nil {
		return Range{}, newParseError("constraint", s, err)
	}
	op1 := fields[1]
	op2 := fields[3]
	v2, err := ParseSemVer(fields[4])
	if err != nil {
		return Range{}, newParseError("constraint", s, err)
	}

	var lo Range
	switch op1 {
	case "<=":
		lo = HigherThan(v1)
	case "<":
		lo = HigherThan(v1.BumpPatch())
	default:
		return Range{}, newParseError("constraint", s, fmt.Errorf("unknown lower-bound operator %q", op1))
	}

	var hi Range
	switch op2 {
	case "<":
		hi = StrictlyLowerThan(v2)
	case "<=":
		hi = StrictlyLowerThan(v2.BumpPatch())
	default:
		return Range{}, newParseError("constraint", s, fmt.Errorf("unknown upper-bound operator %q", op2))
	}

	return lo.Intersection(hi), nil
}
