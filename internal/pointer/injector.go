// Package pointer injects absolute pointer motion and button state into
// the compositor via zwlr_virtual_pointer_v1, mirroring the keyboard
// injector's structure (SPEC_FULL.md §4.8, added).
package pointer

import (
	"github.com/rfbwld/rfbwld/internal/logger"
	"github.com/rfbwld/rfbwld/internal/wlproto"
)

// ButtonMask bits, in RFB PointerEvent button-mask order (bit 0 = left,
// bit 1 = middle, bit 2 = right, bits 3/4 = wheel up/down).
const (
	ButtonLeft   uint8 = 1 << 0
	ButtonMiddle uint8 = 1 << 1
	ButtonRight  uint8 = 1 << 2
	WheelUp      uint8 = 1 << 3
	WheelDown    uint8 = 1 << 4
)

// wire button codes (linux/input-event-codes.h BTN_*).
const (
	btnLeft   = 0x110
	btnRight  = 0x111
	btnMiddle = 0x112
)

// State is PointerState: the last position and button mask injected,
// used to emit only changed buttons (SPEC_FULL.md data model).
type State struct {
	X, Y    uint32
	Buttons uint8
}

// Sink is the virtual-pointer device an Injector drives. Satisfied by
// *wlproto.VirtualPointer.
type Sink interface {
	MotionAbsolute(timeMs, x, y, xExtent, yExtent uint32) error
	Button(timeMs, button uint32, state wlproto.ButtonState) error
	Frame() error
}

// Injector tracks PointerState and emits the minimal set of wire events to
// reach a new (x, y, buttons) tuple.
type Injector struct {
	sink           Sink
	state          State
	xExtent        uint32
	yExtent        uint32
	nowMs         func() uint32
	haveFirstMove bool
}

func NewInjector(sink Sink, width, height uint32, nowMs func() uint32) *Injector {
	return &Injector{sink: sink, xExtent: width, yExtent: height, nowMs: nowMs}
}

// SetExtent updates the absolute-motion scale after an output resize.
func (in *Injector) SetExtent(width, height uint32) {
	in.xExtent, in.yExtent = width, height
}

var _ Sink = (*wlproto.VirtualPointer)(nil)

// Feed implements feed(x, y, buttons): motion_absolute, then one button
// event per bit that changed since State, then frame. An unchanged
// position and mask emits nothing (idempotent, mirroring the keyboard
// injector's step 3).
func (in *Injector) Feed(x, y uint32, buttons uint8) {
	moved := !in.haveFirstMove || x != in.state.X || y != in.state.Y
	changedButtons := buttons ^ in.state.Buttons

	if !moved && changedButtons == 0 {
		return
	}

	emitted := false
	if moved {
		if err := in.sink.MotionAbsolute(in.nowMs(), x, y, in.xExtent, in.yExtent); err != nil {
			logger.Warnf("pointer: motion_absolute failed: %v", err)
			return
		}
		emitted = true
		in.haveFirstMove = true
	}

	for _, b := range []struct {
		bit  uint8
		code uint32
	}{
		{ButtonLeft, btnLeft},
		{ButtonMiddle, btnMiddle},
		{ButtonRight, btnRight},
	} {
		if changedButtons&b.bit == 0 {
			continue
		}
		pressed := buttons&b.bit != 0
		state := wlproto.ButtonReleased
		if pressed {
			state = wlproto.ButtonPressed
		}
		if err := in.sink.Button(in.nowMs(), b.code, state); err != nil {
			logger.Warnf("pointer: button event failed: %v", err)
			return
		}
		emitted = true
	}

	// Wheel events have no held state to diff against; any wheel bit set
	// in this call is a discrete scroll tick (spec.md has no wheel
	// concept, so this module treats the RFB wheel bits as one-shot
	// presses and immediately releases).
	for _, b := range []struct {
		bit  uint8
		code uint32
	}{
		{WheelUp, 0x151},   // BTN_GEAR_UP used as a synthetic scroll-up tick
		{WheelDown, 0x150}, // BTN_GEAR_DOWN, scroll-down tick
	} {
		if buttons&b.bit == 0 {
			continue
		}
		_ = in.sink.Button(in.nowMs(), b.code, wlproto.ButtonPressed)
		_ = in.sink.Button(in.nowMs(), b.code, wlproto.ButtonReleased)
		emitted = true
	}

	in.state = State{X: x, Y: y, Buttons: buttons &^ (WheelUp | WheelDown)}

	if emitted {
		if err := in.sink.Frame(); err != nil {
			logger.Warnf("pointer: frame failed: %v", err)
		}
	}
}
