package keyboard

import (
	"fmt"

	"github.com/ThomasT75/uinput"
)

// UinputSink adapts a uinput virtual keyboard to the Sink interface, used
// on compositors without zwp_virtual_keyboard_manager_v1 (grounded on
// internal/wayland/wayland.go's uinput.CreateKeyboard usage). Modifiers
// are tracked as held keys rather than a wire modifier event, since uinput
// has no separate modifiers request.
type UinputSink struct {
	device      uinput.Keyboard
	heldShift   bool
	heldCtrl    bool
	heldAlt     bool
	evdevByCode map[uint32]int
}

// evdev modifier key codes (linux/input-event-codes.h), used to translate
// the mask passed to Modifiers into held keys.
const (
	evdevLeftShift = 42
	evdevLeftCtrl  = 29
	evdevLeftAlt   = 56
)

func NewUinputSink(device uinput.Keyboard) *UinputSink {
	return &UinputSink{device: device}
}

// Modifiers presses/releases the modifier keys implied by the union of the
// depressed, latched and locked masks, since uinput has no modifier-mask
// request of its own.
func (s *UinputSink) Modifiers(depressed, latched, locked, group uint32) error {
	mask := depressed | latched | locked
	if err := s.setHeld(&s.heldShift, mask&1 != 0, evdevLeftShift); err != nil {
		return err
	}
	if err := s.setHeld(&s.heldCtrl, mask&4 != 0, evdevLeftCtrl); err != nil {
		return err
	}
	return s.setHeld(&s.heldAlt, mask&8 != 0, evdevLeftAlt)
}

func (s *UinputSink) setHeld(held *bool, want bool, evdevCode int) error {
	if want == *held {
		return nil
	}
	*held = want
	if want {
		return s.device.KeyDown(evdevCode)
	}
	return s.device.KeyUp(evdevCode)
}

// Key presses/releases wireCode. The injector has already applied the
// code-8 rule, so wireCode is an evdev code and is passed through unchanged.
func (s *UinputSink) Key(timeMs, wireCode uint32, pressed bool) error {
	evdevCode := int(wireCode)
	if pressed {
		return s.device.KeyDown(evdevCode)
	}
	return s.device.KeyUp(evdevCode)
}

var _ Sink = (*UinputSink)(nil)

func newUinputKeyboard(path string) (uinput.Keyboard, error) {
	kb, err := uinput.CreateKeyboard(path, []byte("rfbwld Virtual Keyboard"))
	if err != nil {
		return nil, fmt.Errorf("keyboard: uinput fallback unavailable: %w", err)
	}
	return kb, nil
}
