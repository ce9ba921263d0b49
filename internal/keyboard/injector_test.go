package keyboard

import "testing"

type fakeSink struct {
	calls []string
}

func (f *fakeSink) Modifiers(depressed, latched, locked, group uint32) error {
	f.calls = append(f.calls, "modifiers")
	return nil
}

func (f *fakeSink) Key(timeMs, code uint32, pressed bool) error {
	f.calls = append(f.calls, "key")
	return nil
}

func testResolver() *Resolver {
	return &Resolver{
		table: []Entry{
			{Symbol: 0x41, Code: 38, Level: 1}, // 'A' (shifted) at same code
			{Symbol: 0x61, Code: 38, Level: 0}, // 'a' at code 38, level 0
		},
		mods: map[[2]uint32]uint32{
			{38, 0}: 0,
			{38, 1}: 1, // shift mask
		},
	}
}

func TestFeedModifiersPrecedesKey(t *testing.T) {
	sink := &fakeSink{}
	in := NewInjector(testResolver(), sink, func() uint32 { return 0 })

	in.Feed(0x61, true)

	if len(sink.calls) != 2 || sink.calls[0] != "modifiers" || sink.calls[1] != "key" {
		t.Fatalf("got %v, want [modifiers key]", sink.calls)
	}
}

func TestFeedIdempotentPress(t *testing.T) {
	sink := &fakeSink{}
	in := NewInjector(testResolver(), sink, func() uint32 { return 0 })

	in.Feed(0x61, true)
	in.Feed(0x61, true) // duplicate press, should be a no-op

	if len(sink.calls) != 2 {
		t.Fatalf("duplicate press emitted events: %v", sink.calls)
	}
}

func TestFeedUnknownSymbolDropped(t *testing.T) {
	sink := &fakeSink{}
	in := NewInjector(testResolver(), sink, func() uint32 { return 0 })

	in.Feed(0xdeadbeef, true)

	if len(sink.calls) != 0 {
		t.Fatalf("unknown symbol should produce no events, got %v", sink.calls)
	}
}

func TestFeedPressThenRelease(t *testing.T) {
	sink := &fakeSink{}
	in := NewInjector(testResolver(), sink, func() uint32 { return 0 })

	in.Feed(0x61, true)
	in.Feed(0x61, false)

	if len(sink.calls) != 4 {
		t.Fatalf("press+release should emit 4 events, got %v", sink.calls)
	}
}
