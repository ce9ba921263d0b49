package wlwire

import "testing"

func TestUint32RoundTrip(t *testing.T) {
	e := NewEncoder()
	e.Uint32(0xdeadbeef)
	d := NewDecoder(e.Bytes())
	got, err := d.Uint32()
	if err != nil {
		t.Fatal(err)
	}
	if got != 0xdeadbeef {
		t.Fatalf("got %#x, want %#x", got, 0xdeadbeef)
	}
}

func TestFixedRoundTrip(t *testing.T) {
	e := NewEncoder()
	e.Fixed(12.5)
	d := NewDecoder(e.Bytes())
	got, err := d.Fixed()
	if err != nil {
		t.Fatal(err)
	}
	if got != 12.5 {
		t.Fatalf("got %v, want 12.5", got)
	}
}

func TestStringRoundTripAndPadding(t *testing.T) {
	e := NewEncoder()
	e.String("pc105")
	e.Uint32(7) // sentinel to confirm padding landed correctly
	d := NewDecoder(e.Bytes())

	s, err := d.String()
	if err != nil {
		t.Fatal(err)
	}
	if s != "pc105" {
		t.Fatalf("got %q, want %q", s, "pc105")
	}

	sentinel, err := d.Uint32()
	if err != nil {
		t.Fatal(err)
	}
	if sentinel != 7 {
		t.Fatalf("got %d, want 7 (padding must be word-aligned)", sentinel)
	}
}

func TestArrayRoundTrip(t *testing.T) {
	e := NewEncoder()
	want := []byte{1, 2, 3, 4, 5}
	e.Array(want)
	d := NewDecoder(e.Bytes())

	got, err := d.Array()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestMultipleArgsSequential(t *testing.T) {
	e := NewEncoder()
	e.Uint32(1).Int32(-2).String("hello").Uint32(9)
	d := NewDecoder(e.Bytes())

	if v, _ := d.Uint32(); v != 1 {
		t.Fatalf("first field: got %d", v)
	}
	if v, _ := d.Int32(); v != -2 {
		t.Fatalf("second field: got %d", v)
	}
	if s, _ := d.String(); s != "hello" {
		t.Fatalf("third field: got %q", s)
	}
	if v, _ := d.Uint32(); v != 9 {
		t.Fatalf("fourth field: got %d", v)
	}
}
