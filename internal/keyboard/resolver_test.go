package keyboard

import "testing"

func TestFindReturnsLowestLevelForTies(t *testing.T) {
	r := &Resolver{
		table: []Entry{
			{Symbol: 10, Code: 1, Level: 0},
			{Symbol: 10, Code: 2, Level: 1},
			{Symbol: 20, Code: 3, Level: 0},
		},
	}
	entry, ok := r.Find(10)
	if !ok {
		t.Fatal("expected symbol 10 to resolve")
	}
	if entry.Level != 0 || entry.Code != 1 {
		t.Errorf("got %+v, want the lowest-level entry", entry)
	}
}

func TestFindMissingSymbol(t *testing.T) {
	r := &Resolver{table: []Entry{{Symbol: 10, Code: 1, Level: 0}}}
	if _, ok := r.Find(999); ok {
		t.Fatal("expected missing symbol to return ok=false")
	}
}

func TestFindOnEmptyTable(t *testing.T) {
	r := &Resolver{}
	if _, ok := r.Find(1); ok {
		t.Fatal("expected empty table to return ok=false")
	}
}
