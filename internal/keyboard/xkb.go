//go:build cgo

package keyboard

/*
#cgo pkg-config: xkbcommon
#include <xkbcommon/xkbcommon.h>
#include <stdlib.h>
#include <string.h>

static int rfbwld_build_table(
	struct xkb_keymap *keymap,
	uint32_t *symbols_out,
	uint32_t *codes_out,
	uint32_t *levels_out,
	int max_entries
) {
	int count = 0;
	xkb_keycode_t min_key = xkb_keymap_min_keycode(keymap);
	xkb_keycode_t max_key = xkb_keymap_max_keycode(keymap);

	for (xkb_keycode_t code = min_key; code <= max_key && count < max_entries; code++) {
		xkb_level_index_t num_levels = xkb_keymap_num_levels_for_key(keymap, code, 0);
		for (xkb_level_index_t level = 0; level < num_levels && count < max_entries; level++) {
			const xkb_keysym_t *syms;
			int num_syms = xkb_keymap_key_get_syms_by_level(keymap, code, 0, level, &syms);
			for (int i = 0; i < num_syms && count < max_entries; i++) {
				symbols_out[count] = syms[i];
				codes_out[count] = code;
				levels_out[count] = level;
				count++;
			}
		}
	}
	return count;
}
*/
import "C"

import (
	"fmt"
	"unsafe"
)

const maxKeymapEntries = 16384

// xkbBackend wraps a compiled xkb_keymap for its lifetime.
type xkbBackend struct {
	ctx    *C.struct_xkb_context
	keymap *C.struct_xkb_keymap
}

// newXKBBackend compiles a keymap from layout/variant plus model=pc105
// (spec.md §4.7).
func newXKBBackend(layout, variant string) (keymapBackend, error) {
	ctx := C.xkb_context_new(C.XKB_CONTEXT_NO_FLAGS)
	if ctx == nil {
		return nil, fmt.Errorf("keyboard: xkb_context_new failed")
	}

	var names C.struct_xkb_rule_names
	cModel := C.CString("pc105")
	defer C.free(unsafe.Pointer(cModel))
	names.model = cModel

	var cLayout, cVariant *C.char
	if layout != "" {
		cLayout = C.CString(layout)
		defer C.free(unsafe.Pointer(cLayout))
		names.layout = cLayout
	}
	if variant != "" {
		cVariant = C.CString(variant)
		defer C.free(unsafe.Pointer(cVariant))
		names.variant = cVariant
	}

	keymap := C.xkb_keymap_new_from_names(ctx, &names, C.XKB_KEYMAP_COMPILE_NO_FLAGS)
	if keymap == nil {
		C.xkb_context_unref(ctx)
		return nil, fmt.Errorf("keyboard: xkb_keymap_new_from_names failed for layout=%q variant=%q", layout, variant)
	}

	return &xkbBackend{ctx: ctx, keymap: keymap}, nil
}

func (b *xkbBackend) Entries() []Entry {
	symbols := make([]C.uint32_t, maxKeymapEntries)
	codes := make([]C.uint32_t, maxKeymapEntries)
	levels := make([]C.uint32_t, maxKeymapEntries)

	count := C.rfbwld_build_table(
		b.keymap,
		(*C.uint32_t)(unsafe.Pointer(&symbols[0])),
		(*C.uint32_t)(unsafe.Pointer(&codes[0])),
		(*C.uint32_t)(unsafe.Pointer(&levels[0])),
		C.int(maxKeymapEntries),
	)

	entries := make([]Entry, int(count))
	for i := range entries {
		entries[i] = Entry{
			Symbol: uint32(symbols[i]),
			Code:   uint32(codes[i]),
			Level:  uint32(levels[i]),
		}
	}
	return entries
}

func (b *xkbBackend) ModsForLevel(code, level uint32) uint32 {
	numMods := C.xkb_keymap_num_mods(b.keymap)
	masks := make([]C.xkb_mod_mask_t, 32)
	if int(numMods) > len(masks) {
		masks = make([]C.xkb_mod_mask_t, numMods)
	}
	n := C.xkb_keymap_key_get_mods_for_level(
		b.keymap, C.xkb_keycode_t(code), 0, C.xkb_level_index_t(level),
		(*C.xkb_mod_mask_t)(unsafe.Pointer(&masks[0])), C.size_t(len(masks)),
	)
	if n <= 0 {
		return 0
	}
	return uint32(masks[0])
}

// Serialize returns the keymap's XKB text-v1 representation.
func (b *xkbBackend) Serialize() (string, error) {
	cstr := C.xkb_keymap_get_as_string(b.keymap, C.XKB_KEYMAP_FORMAT_TEXT_V1)
	if cstr == nil {
		return "", fmt.Errorf("keyboard: xkb_keymap_get_as_string failed")
	}
	defer C.free(unsafe.Pointer(cstr))
	return C.GoString(cstr), nil
}

func (b *xkbBackend) Close() {
	C.xkb_keymap_unref(b.keymap)
	C.xkb_context_unref(b.ctx)
}
