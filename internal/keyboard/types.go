// Package keyboard resolves keysyms against a compiled XKB keymap and
// drives either the Wayland virtual-keyboard protocol or a uinput fallback
// to inject key events (spec.md §4.7–4.8).
package keyboard

// Entry is one (symbol, code, level) row of the resolver's lookup table
// (spec.md §3 LookupTable).
type Entry struct {
	Symbol uint32
	Code   uint32
	Level  uint32
}

// keymapBackend is satisfied by the cgo xkbcommon implementation
// (xkb.go) and its no-cgo stub (xkb_nocgo.go).
type keymapBackend interface {
	// Entries returns every (symbol, code, level) triple the keymap
	// defines at layout index 0, order unspecified — Resolver sorts them.
	Entries() []Entry
	// ModsForLevel returns the modifier mask required to produce the
	// given level at the given key code, at layout index 0.
	ModsForLevel(code, level uint32) uint32
	// Serialize renders the keymap in the text format the virtual-keyboard
	// sink expects (spec.md §4.7).
	Serialize() (string, error)
	Close()
}
