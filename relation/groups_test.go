package relation

import (
	"slices"
	"testing"
)

func edge(a, b string, t Type) Edge {
	return Edge{Character1: a, Character2: b, Type: t, Indicator: string(t)}
}

func TestGroupsComponents(t *testing.T) {
	r := Result{
		Characters: []string{"John", "Mary", "Tom", "Ann", "Bob", "Loner"},
		Relationships: []Edge{
			edge("John", "Mary", Romantic),
			edge("Ann", "Bob", Friendship),
			edge("Mary", "Tom", Family),
			edge("Ann", "Bob", Friendship),
		},
	}
	got := Groups(r)
	if len(got) != 2 {
		t.Fatalf("groups = %+v", got)
	}
	if !slices.Equal(got[0].Characters, []string{"John", "Mary", "Tom"}) || got[0].Relationships != 2 {
		t.Errorf("first = %+v", got[0])
	}
	if !slices.Equal(got[1].Characters, []string{"Ann", "Bob"}) || got[1].Types[Friendship] != 2 {
		t.Errorf("second = %+v", got[1])
	}
}

func TestGroupsModularitySplit(t *testing.T) {
	// Two triangles joined by one bridge.
	r := Result{
		Characters: []string{"A", "B", "C", "D", "E", "F"},
		Relationships: []Edge{
			edge("A", "B", Family), edge("B", "C", Family), edge("A", "C", Family),
			edge("D", "E", Professional), edge("E", "F", Professional), edge("D", "F", Professional),
			edge("C", "D", Antagonistic),
		},
	}
	got := Groups(r)
	if len(got) != 2 {
		t.Fatalf("groups = %+v", got)
	}
	if !slices.Equal(got[0].Characters, []string{"A", "B", "C"}) || got[0].Types[Family] != 3 {
		t.Errorf("first = %+v", got[0])
	}
	if !slices.Equal(got[1].Characters, []string{"D", "E", "F"}) || got[1].Types[Antagonistic] != 0 {
		t.Errorf("second = %+v", got[1])
	}

	// Deterministic across calls.
	for i := 0; i < 5; i++ {
		again := Groups(r)
		if !slices.Equal(again[0].Characters, got[0].Characters) {
			t.Fatalf("run %d differs: %+v", i, again)
		}
	}
}

func TestGroupsEmpty(t *testing.T) {
	tests := []Result{
		Default(),
		{Characters: []string{"John", "Mary"}},
		{Characters: []string{"John"}, Relationships: []Edge{edge("John", "Ghost", Family)}},
	}
	for _, r := range tests {
		if got := Groups(r); got == nil || len(got) != 0 {
			t.Errorf("Groups(%+v) = %+v", r, got)
		}
	}
}
