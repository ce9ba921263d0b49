//go:build !cgo

package keyboard

import "fmt"

func newXKBBackend(layout, variant string) (keymapBackend, error) {
	return nil, fmt.Errorf("keyboard: xkbcommon unavailable in a non-cgo build")
}
