package pointer

import (
	"testing"

	"github.com/rfbwld/rfbwld/internal/wlproto"
)

type fakeSink struct {
	calls []string
}

func (f *fakeSink) MotionAbsolute(timeMs, x, y, xExtent, yExtent uint32) error {
	f.calls = append(f.calls, "motion")
	return nil
}

func (f *fakeSink) Button(timeMs, button uint32, state wlproto.ButtonState) error {
	f.calls = append(f.calls, "button")
	return nil
}

func (f *fakeSink) Frame() error {
	f.calls = append(f.calls, "frame")
	return nil
}

func TestFeedFirstMoveEmitsMotionAndFrame(t *testing.T) {
	sink := &fakeSink{}
	in := NewInjector(sink, 1920, 1080, func() uint32 { return 0 })

	in.Feed(100, 200, 0)

	if len(sink.calls) != 2 || sink.calls[0] != "motion" || sink.calls[1] != "frame" {
		t.Fatalf("got %v, want [motion frame]", sink.calls)
	}
}

func TestFeedUnchangedIsNoop(t *testing.T) {
	sink := &fakeSink{}
	in := NewInjector(sink, 1920, 1080, func() uint32 { return 0 })

	in.Feed(100, 200, 0)
	sink.calls = nil
	in.Feed(100, 200, 0)

	if len(sink.calls) != 0 {
		t.Fatalf("unchanged feed should be a no-op, got %v", sink.calls)
	}
}

func TestFeedButtonChangeEmitsButtonAndFrame(t *testing.T) {
	sink := &fakeSink{}
	in := NewInjector(sink, 1920, 1080, func() uint32 { return 0 })

	in.Feed(100, 200, 0)
	sink.calls = nil
	in.Feed(100, 200, ButtonLeft)

	if len(sink.calls) != 2 || sink.calls[0] != "button" || sink.calls[1] != "frame" {
		t.Fatalf("got %v, want [button frame]", sink.calls)
	}
}

func TestFeedMoveAndButtonInOneCall(t *testing.T) {
	sink := &fakeSink{}
	in := NewInjector(sink, 1920, 1080, func() uint32 { return 0 })

	in.Feed(10, 10, ButtonLeft|ButtonRight)

	if len(sink.calls) != 4 {
		t.Fatalf("got %v, want motion + 2 buttons + frame", sink.calls)
	}
	if sink.calls[0] != "motion" || sink.calls[len(sink.calls)-1] != "frame" {
		t.Fatalf("motion must lead and frame must trail: %v", sink.calls)
	}
}
