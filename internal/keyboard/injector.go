package keyboard

import (
	"github.com/rfbwld/rfbwld/internal/intset"
	"github.com/rfbwld/rfbwld/internal/logger"
	"github.com/rfbwld/rfbwld/internal/wlproto"
)

// MaxKeyCode bounds the KeyStateSet's presence bitset; evdev/XKB key codes
// never exceed this (spec.md §3 KeyStateSet).
const MaxKeyCode = 512

// Sink is the virtual-keyboard device an Injector drives. Satisfied by
// *wlproto.VirtualKeyboard.
type Sink interface {
	Key(timeMs, code uint32, pressed bool) error
	Modifiers(depressed, latched, locked, group uint32) error
}

// Injector implements feed(symbol, pressed) (spec.md §4.8): resolves a
// symbol against the Resolver, tracks pressed codes in a KeyStateSet, and
// emits a modifiers event followed by a key event, in that order.
type Injector struct {
	resolver *Resolver
	sink     Sink
	pressed  *intset.Set
	nowMs    func() uint32
}

// NewInjector wires a resolver to a sink. nowMs supplies the wire
// timestamp; tests override it for determinism.
func NewInjector(resolver *Resolver, sink Sink, nowMs func() uint32) *Injector {
	return &Injector{
		resolver: resolver,
		sink:     sink,
		pressed:  intset.New(MaxKeyCode),
		nowMs:    nowMs,
	}
}

// Feed resolves symbol and injects the press/release, implementing the
// five-step algorithm of spec.md §4.8 exactly, including the idempotency
// check and the code-8 wire translation.
func (in *Injector) Feed(symbol uint32, pressed bool) {
	entry, ok := in.resolver.Find(symbol)
	if !ok {
		logger.Debugf("keyboard: no mapping for symbol %#x, dropping", symbol)
		return
	}

	mods := in.resolver.ModsForLevel(entry.Code, entry.Level)

	isPressed := in.pressed.Contains(int(entry.Code))
	if pressed == isPressed {
		return
	}

	if pressed {
		in.pressed.Add(int(entry.Code))
	} else {
		in.pressed.Remove(int(entry.Code))
	}

	if err := in.sink.Modifiers(0, mods, 0, 0); err != nil {
		logger.Warnf("keyboard: modifiers event failed: %v", err)
		return
	}

	wireCode := entry.Code - 8
	if err := in.sink.Key(in.nowMs(), wireCode, pressed); err != nil {
		logger.Warnf("keyboard: key event failed: %v", err)
	}
}

var _ Sink = (*wlproto.VirtualKeyboard)(nil)
