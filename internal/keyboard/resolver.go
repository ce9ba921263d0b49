package keyboard

import "sort"

// Resolver builds and queries the (symbol, code, level) lookup table
// (spec.md §4.7). Construction compiles an xkb keymap; the compiled backend
// is kept alive only long enough to build the table and serialize the
// keymap text, then closed.
type Resolver struct {
	table      []Entry
	mods       map[[2]uint32]uint32 // (code, level) -> modifier mask
	keymapText string
}

// NewResolver compiles layout/variant (model=pc105) and builds the sorted
// lookup table plus the serialized keymap text the virtual-keyboard sink
// needs (spec.md §4.7).
func NewResolver(layout, variant string) (*Resolver, error) {
	backend, err := newXKBBackend(layout, variant)
	if err != nil {
		return nil, err
	}
	defer backend.Close()

	entries := backend.Entries()
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Symbol != entries[j].Symbol {
			return entries[i].Symbol < entries[j].Symbol
		}
		return entries[i].Level < entries[j].Level
	})

	mods := make(map[[2]uint32]uint32, len(entries))
	for _, e := range entries {
		key := [2]uint32{e.Code, e.Level}
		if _, ok := mods[key]; !ok {
			mods[key] = backend.ModsForLevel(e.Code, e.Level)
		}
	}

	text, err := backend.Serialize()
	if err != nil {
		return nil, err
	}

	return &Resolver{table: entries, mods: mods, keymapText: text}, nil
}

// KeymapText returns the serialized keymap text handed to the
// virtual-keyboard sink once at startup.
func (r *Resolver) KeymapText() string { return r.keymapText }

// Find implements find(symbol) -> entry? (spec.md §4.7): binary search for
// any entry with the symbol, then walk left to the first (lowest-level,
// preferred) entry for that symbol. Returns ok=false for unmapped symbols.
func (r *Resolver) Find(symbol uint32) (Entry, bool) {
	i := sort.Search(len(r.table), func(i int) bool { return r.table[i].Symbol >= symbol })
	if i >= len(r.table) || r.table[i].Symbol != symbol {
		return Entry{}, false
	}
	for i > 0 && r.table[i-1].Symbol == symbol {
		i--
	}
	return r.table[i], true
}

// ModsForLevel returns the modifier mask required to produce code's level
// at layout 0.
func (r *Resolver) ModsForLevel(code, level uint32) uint32 {
	return r.mods[[2]uint32{code, level}]
}
