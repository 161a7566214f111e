package gps

import "testing"

func v(major, minor, patch uint64) SemVer { return SemVer{major, minor, patch} }

func TestRangeContains(t *testing.T) {
	r := Exact(v(1, 0, 0)).Union(HigherThan(v(2, 0, 0)))

	cases := []struct {
		name string
		ver  SemVer
		want bool
	}{
		{"exact match", v(1, 0, 0), true},
		{"between the two intervals", v(1, 5, 0), false},
		{"at the higher-than floor", v(2, 0, 0), true},
		{"well above the floor", v(9, 9, 9), true},
		{"below everything", v(0, 9, 0), false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := r.Contains(c.ver); got != c.want {
				t.Errorf("Contains(%v) = %v, want %v", c.ver, got, c.want)
			}
		})
	}
}

func TestRangeIntersection(t *testing.T) {
	a := StrictlyLowerThan(v(2, 0, 0))       // [0,2)
	b := HigherThan(v(1, 0, 0))              // [1,inf)
	got := a.Intersection(b)                 // [1,2)
	if !got.Contains(v(1, 0, 0)) || !got.Contains(v(1, 9, 9)) {
		t.Fatalf("intersection %v should contain [1.0.0, 2.0.0)", got)
	}
	if got.Contains(v(2, 0, 0)) || got.Contains(v(0, 9, 0)) {
		t.Fatalf("intersection %v should not contain outside [1.0.0, 2.0.0)", got)
	}
}

func TestRangeIntersectionNone(t *testing.T) {
	a := StrictlyLowerThan(v(1, 0, 0))
	b := HigherThan(v(2, 0, 0))
	if got := a.Intersection(b); !got.IsNone() {
		t.Fatalf("disjoint ranges should intersect to none, got %v", got)
	}
}

func TestRangeUnionMergesAdjacent(t *testing.T) {
	a := Exact(v(1, 0, 0))          // [1.0.0, 1.0.1)
	b := HigherThan(v(1, 0, 1))     // [1.0.1, inf)
	got := a.Union(b)
	if !got.Contains(v(1, 0, 0)) {
		t.Fatalf("union should still contain 1.0.0")
	}
	if !got.Contains(v(5, 0, 0)) {
		t.Fatalf("union of adjacent intervals should merge into one unbounded range, got %v", got)
	}
}

func TestRangeComplement(t *testing.T) {
	r := Exact(v(1, 0, 0)) // [1.0.0, 1.0.1)
	comp := r.Complement()
	if comp.Contains(v(1, 0, 0)) {
		t.Fatalf("complement should not contain 1.0.0")
	}
	if !comp.Contains(v(0, 0, 0)) || !comp.Contains(v(2, 0, 0)) {
		t.Fatalf("complement should contain everything outside [1.0.0, 1.0.1)")
	}
}

func TestRangeComplementOfAnyIsNone(t *testing.T) {
	if !Any().Complement().IsNone() {
		t.Fatal("complement of Any() should be None()")
	}
}

func TestRangeComplementOfNoneIsAny(t *testing.T) {
	if !None().Complement().IsAny() {
		t.Fatal("complement of None() should be Any()")
	}
}

func TestRangeIsNoneZeroValue(t *testing.T) {
	var r Range
	if !r.IsNone() {
		t.Fatal("zero-value Range should be None()")
	}
}

func TestStrictlyLowerThanZeroIsNone(t *testing.T) {
	if !StrictlyLowerThan(Zero).IsNone() {
		t.Fatal("StrictlyLowerThan(0.0.0) should be None()")
	}
}

func TestRangeString(t *testing.T) {
	if got := None().String(); got != "none" {
		t.Errorf("None().String() = %q, want %q", got, "none")
	}
	if got := Any().String(); got != "any" {
		t.Errorf("Any().String() = %q, want %q", got, "any")
	}
}
