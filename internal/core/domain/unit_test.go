package domain_test

import (
	"testing"

	"go.trai.ch/grain/internal/core/domain"
)

func TestUnitID(t *testing.T) {
	id := domain.UnitID("pkg/main.py", 4, 9, "deadbeefcafe0123")
	want := "pkg/main.py:4:9:deadbeef"
	if id != want {
		t.Errorf("expected %q, got %q", want, id)
	}
}

func TestUnitID_ShortHash(t *testing.T) {
	// Hashes shorter than the prefix are used whole.
	id := domain.UnitID("a.py", 1, 1, "ab12")
	if id != "a.py:1:1:ab12" {
		t.Errorf("unexpected id %q", id)
	}
}

func TestUnitType_IsStructural(t *testing.T) {
	structural := []domain.UnitType{domain.UnitTypeFunction, domain.UnitTypeClass}
	for _, ut := range structural {
		if !ut.IsStructural() {
			t.Errorf("expected %s to be structural", ut)
		}
	}

	flat := []domain.UnitType{
		domain.UnitTypeLine,
		domain.UnitTypeStatement,
		domain.UnitTypeModule,
		domain.UnitTypeImport,
		domain.UnitTypeDecorator,
		domain.UnitTypeBlock,
	}
	for _, ut := range flat {
		if ut.IsStructural() {
			t.Errorf("expected %s not to be structural", ut)
		}
	}
}

func TestParseUnitType_RoundTrip(t *testing.T) {
	for ut := domain.UnitTypeLine; ut <= domain.UnitTypeBlock; ut++ {
		if got := domain.ParseUnitType(ut.String()); got != ut {
			t.Errorf("round trip failed for %s: got %s", ut, got)
		}
	}

	if got := domain.ParseUnitType("garbage"); got != domain.UnitTypeStatement {
		t.Errorf("expected unknown type to parse as statement, got %s", got)
	}
}

func TestUnit_Overlaps(t *testing.T) {
	u := &domain.CompilationUnit{StartLine: 4, EndLine: 8}

	cases := []struct {
		name       string
		start, end int
		want       bool
	}{
		{"inside", 5, 6, true},
		{"exact", 4, 8, true},
		{"straddles start", 2, 4, true},
		{"straddles end", 8, 10, true},
		{"before", 1, 3, false},
		{"after", 9, 12, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := u.Overlaps(tc.start, tc.end); got != tc.want {
				t.Errorf("Overlaps(%d, %d) = %v, want %v", tc.start, tc.end, got, tc.want)
			}
		})
	}
}

func TestUnit_Encloses(t *testing.T) {
	outer := &domain.CompilationUnit{StartLine: 4, EndLine: 8}
	inner := &domain.CompilationUnit{StartLine: 5, EndLine: 5}

	if !outer.Encloses(inner) {
		t.Error("expected outer to enclose inner")
	}
	if inner.Encloses(outer) {
		t.Error("expected inner not to enclose outer")
	}
	// A range encloses itself.
	if !outer.Encloses(outer) {
		t.Error("expected range to enclose itself")
	}
}

func TestUnit_Clone(t *testing.T) {
	u := &domain.CompilationUnit{
		ID:           "a.py:1:2:aaaa",
		Dependencies: []string{"a.py:3:4:bbbb"},
		Dependents:   []string{"a.py:5:6:cccc"},
	}

	c := u.Clone()
	c.Dependencies[0] = "mutated"
	c.Dependents = append(c.Dependents, "extra")

	if u.Dependencies[0] != "a.py:3:4:bbbb" {
		t.Error("clone shares dependency slice with original")
	}
	if len(u.Dependents) != 1 {
		t.Error("clone shares dependents slice with original")
	}
}
