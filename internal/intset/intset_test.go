package intset

import "testing"

func TestAddContainsRemove(t *testing.T) {
	s := New(256)

	if s.Contains(30) {
		t.Fatal("fresh set should not contain 30")
	}

	s.Add(30)
	if !s.Contains(30) {
		t.Fatal("expected 30 to be a member after Add")
	}

	// Idempotent add.
	s.Add(30)
	if s.Len() != 1 {
		t.Fatalf("expected len 1 after duplicate Add, got %d", s.Len())
	}

	s.Remove(30)
	if s.Contains(30) {
		t.Fatal("expected 30 removed")
	}

	// Idempotent remove.
	s.Remove(30)
	if s.Len() != 0 {
		t.Fatalf("expected len 0, got %d", s.Len())
	}
}

func TestOutOfRangeIsNoop(t *testing.T) {
	s := New(8)
	s.Add(100)
	if s.Contains(100) {
		t.Fatal("out-of-range Add should be a no-op")
	}
	if s.Len() != 0 {
		t.Fatalf("expected len 0, got %d", s.Len())
	}
}

func TestEachAscending(t *testing.T) {
	s := New(256)
	for _, v := range []int{200, 1, 64, 63, 65} {
		s.Add(v)
	}

	var got []int
	s.Each(func(v int) { got = append(got, v) })

	want := []int{1, 63, 64, 65, 200}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
