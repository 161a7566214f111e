package gps

import (
	"bytes"
	"fmt"
	"sort"
)

// interval is a half-open version interval [Lo, Hi), Hi being nil for +∞.
type interval struct {
	Lo SemVer
	Hi *SemVer
}

func (iv interval) contains(v SemVer) bool {
	if v.Less(iv.Lo) {
		return false
	}
	return iv.Hi == nil || v.Less(*iv.Hi)
}

// Range is a normalized union of disjoint, ordered half-open version
// intervals. The zero value is none (the empty range).
type Range struct {
	intervals []interval
}

// Any is the range containing every version.
func Any() Range {
	return Range{intervals: []interval{{Lo: Zero, Hi: nil}}}
}

// None is the empty range. It is also Range's zero value.
func None() Range {
	return Range{}
}

// Exact is the range containing exactly v and nothing else:
// [v, v.BumpPatch()).
func Exact(v SemVer) Range {
	hi := v.BumpPatch()
	return Range{intervals: []interval{{Lo: v, Hi: &hi}}}
}

// HigherThan is the range [v, +∞), i.e. v and every version above it.
func HigherThan(v SemVer) Range {
	return Range{intervals: []interval{{Lo: v, Hi: nil}}}
}

// StrictlyLowerThan is the range [0.0.0, v).
func StrictlyLowerThan(v SemVer) Range {
	if v.Eq(Zero) {
		return None()
	}
	return Range{intervals: []interval{{Lo: Zero, Hi: &v}}}
}

// IsNone reports whether r is the empty range, in O(1).
func (r Range) IsNone() bool { return len(r.intervals) == 0 }

// IsAny reports whether r is exactly the unbounded range.
func (r Range) IsAny() bool {
	return len(r.intervals) == 1 && r.intervals[0].Lo.Eq(Zero) && r.intervals[0].Hi == nil
}

// Contains reports whether v lies within any of r's intervals.
func (r Range) Contains(v SemVer) bool {
	// Intervals are sorted by Lo; binary search for the rightmost interval
	// whose Lo is <= v, then check it.
	i := sort.Search(len(r.intervals), func(i int) bool {
		return v.Less(r.intervals[i].Lo)
	})
	if i == 0 {
		return false
	}
	return r.intervals[i-1].contains(v)
}

// Intersection computes r ∩ o.
func (r Range) Intersection(o Range) Range {
	var out []interval
	i, j := 0, 0
	for i < len(r.intervals) && j < len(o.intervals) {
		a, b := r.intervals[i], o.intervals[j]
		lo := a.Lo
		if b.Lo.Compare(lo) > 0 {
			lo = b.Lo
		}
		hi := a.Hi
		if hiLess(b.Hi, hi) {
			hi = b.Hi
		}
		if hi == nil || lo.Less(*hi) {
			out = append(out, interval{Lo: lo, Hi: hi})
		}
		if hiLess(a.Hi, b.Hi) {
			i++
		} else {
			j++
		}
	}
	return normalize(out)
}

// Union computes r ∪ o.
func (r Range) Union(o Range) Range {
	all := append(append([]interval{}, r.intervals...), o.intervals...)
	sort.Slice(all, func(i, j int) bool { return all[i].Lo.Less(all[j].Lo) })
	return normalize(all)
}

// Complement computes the set of versions not in r: the gaps between its
// (already sorted, disjoint) intervals, plus whatever lies before the first
// and after the last.
func (r Range) Complement() Range {
	if r.IsNone() {
		return Any()
	}
	var out []interval
	cursor := Zero
	for _, iv := range r.intervals {
		if cursor.Less(iv.Lo) {
			out = append(out, interval{Lo: cursor, Hi: cloneVer(iv.Lo)})
		}
		if iv.Hi == nil {
			// This interval runs to +∞; being sorted and disjoint, it must
			// be the last one, so there is no more complement to emit.
			return normalize(out)
		}
		cursor = *iv.Hi
	}
	out = append(out, interval{Lo: cursor, Hi: nil})
	return normalize(out)
}

func cloneVer(v SemVer) *SemVer {
	c := v
	return &c
}

func hiLess(a, b *SemVer) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	return a.Less(*b)
}

// normalize sorts (if not already) and merges overlapping or adjacent
// intervals, dropping empty ones. It is the single choke point through
// which every combining operation produces its result, so the "intervals
// are sorted and non-overlapping" invariant only needs to be maintained
// here.
func normalize(ivs []interval) Range {
	if len(ivs) == 0 {
		return None()
	}
	sort.SliceStable(ivs, func(i, j int) bool { return ivs[i].Lo.Less(ivs[j].Lo) })

	out := make([]interval, 0, len(ivs))
	cur := ivs[0]
	for _, iv := range ivs[1:] {
		if cur.Hi == nil {
			// cur already extends to +∞; nothing after it can extend it further.
			continue
		}
		if iv.Lo.Compare(*cur.Hi) <= 0 {
			if iv.Hi == nil || hiLess(cur.Hi, iv.Hi) {
				cur.Hi = iv.Hi
			}
			continue
		}
		out = append(out, cur)
		cur = iv
	}
	out = append(out, cur)
	return Range{intervals: out}
}

// String renders r for error messages and trace output. It is not required
// to round-trip through ParseConstraint.
func (r Range) String() string {
	if r.IsNone() {
		return "none"
	}
	if r.IsAny() {
		return "any"
	}
	var buf bytes.Buffer
	for i, iv := range r.intervals {
		if i > 0 {
			buf.WriteString(" || ")
		}
		if iv.Hi == nil {
			fmt.Fprintf(&buf, ">= %s", iv.Lo)
		} else {
			fmt.Fprintf(&buf, "%s <= v < %s", iv.Lo, *iv.Hi)
		}
	}
	return buf.String()
}
