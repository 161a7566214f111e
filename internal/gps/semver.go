package gps

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// SemVer is a version triple of the target ecosystem: major, minor, and
// patch, each a non-negative integer. Unlike the broader SemVer 2.0 grammar,
// there is deliberately no prerelease or build-metadata component — every
// triple is totally ordered and every Range boundary can be expressed
// exactly in terms of it.
type SemVer struct {
	Major, Minor, Patch uint64
}

// Zero is the smallest possible version, 0.0.0.
var Zero = SemVer{}

// Compare returns -1, 0, or 1 as v is less than, equal to, or greater than
// o, comparing major, then minor, then patch.
func (v SemVer) Compare(o SemVer) int {
	switch {
	case v.Major != o.Major:
		return cmpUint(v.Major, o.Major)
	case v.Minor != o.Minor:
		return cmpUint(v.Minor, o.Minor)
	default:
		return cmpUint(v.Patch, o.Patch)
	}
}

func cmpUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Less reports whether v sorts before o.
func (v SemVer) Less(o SemVer) bool { return v.Compare(o) < 0 }

// Eq reports whether v and o denote the same version.
func (v SemVer) Eq(o SemVer) bool { return v.Compare(o) == 0 }

// BumpPatch returns the version with the patch component incremented by
// one. It is the building block for exact() and the "<" constraint bound:
// an exclusive lower bound of "< v" is represented as the inclusive range
// starting at v.BumpPatch() only when v itself is the excluded floor; see
// Range for the actual boundary semantics.
func (v SemVer) BumpPatch() SemVer {
	return SemVer{Major: v.Major, Minor: v.Minor, Patch: v.Patch + 1}
}

// String renders v as "M.m.p".
func (v SemVer) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// ParseSemVer parses a "M.m.p" string into a SemVer. Any other shape is a
// ParseError.
func ParseSemVer(s string) (SemVer, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return SemVer{}, newParseError("version", s, errors.Errorf("expected three dot-separated components, got %d", len(parts)))
	}

	var nums [3]uint64
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return SemVer{}, newParseError("version", s, errors.Wrapf(err, "component %q is not a non-negative integer", p))
		}
		nums[i] = n
	}

	return SemVer{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

// MarshalJSON renders v the way the registry and manifest wire formats
// expect: as a JSON string "M.m.p", not an object.
func (v SemVer) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(v.String())), nil
}

// UnmarshalJSON parses v from a JSON string "M.m.p".
func (v *SemVer) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return newParseError("version", string(data), err)
	}
	parsed, err := ParseSemVer(s)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
