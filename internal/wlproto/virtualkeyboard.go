package wlproto

import "github.com/rfbwld/rfbwld/internal/wlwire"

// zwp_virtual_keyboard_manager_v1 requests.
const vkManagerOpCreateVirtualKeyboard uint16 = 0

// zwp_virtual_keyboard_v1 requests.
const (
	vkOpKeymap    uint16 = 0
	vkOpKey       uint16 = 1
	vkOpModifiers uint16 = 2
	vkOpDestroy   uint16 = 3
)

// KeymapFormat mirrors the keymap() request's format argument.
const KeymapFormatXKBV1 uint32 = 1

// VirtualKeyboardManager is the bound zwp_virtual_keyboard_manager_v1
// global.
type VirtualKeyboardManager struct {
	wlwire.BaseProxy
}

func NewVirtualKeyboardManager(conn *wlwire.Conn, id uint32) *VirtualKeyboardManager {
	m := &VirtualKeyboardManager{}
	m.SetConn(conn)
	m.SetID(id)
	return m
}

func (m *VirtualKeyboardManager) Dispatch(*wlwire.Event) {}

// CreateVirtualKeyboard creates one virtual-keyboard device bound to
// seatID, the Wayland seat whose modifier/key state this device injects
// into.
func (m *VirtualKeyboardManager) CreateVirtualKeyboard(seatID uint32) (*VirtualKeyboard, error) {
	kb := &VirtualKeyboard{}
	kb.SetConn(m.Conn())
	kb.SetID(m.Conn().AllocateID())
	m.Conn().Register(kb)

	enc := wlwire.NewEncoder().Uint32(seatID).Uint32(kb.ID())
	if err := m.Conn().SendRequest(m, vkManagerOpCreateVirtualKeyboard, enc); err != nil {
		m.Conn().Unregister(kb)
		return nil, err
	}
	return kb, nil
}

// VirtualKeyboard is a bound zwp_virtual_keyboard_v1 device. It has no
// events (spec.md §6).
type VirtualKeyboard struct {
	wlwire.BaseProxy
}

func (k *VirtualKeyboard) Dispatch(*wlwire.Event) {}

// Keymap uploads the compiled keymap text via an shm fd (see internal/shm
// and internal/keyboard.Resolver.KeymapText), sized bytes including
// the nul terminator.
func (k *VirtualKeyboard) Keymap(fd int, size uint32) error {
	enc := wlwire.NewEncoder().Uint32(KeymapFormatXKBV1).Uint32(size)
	return k.Conn().SendRequestWithFDs(k, vkOpKeymap, []int{fd}, enc)
}

// Key emits a press/release for a wire key code (already translated via
// the injector's code-8 rule) at time (ms, arbitrary monotonic base).
func (k *VirtualKeyboard) Key(timeMs uint32, code uint32, pressed bool) error {
	state := uint32(0)
	if pressed {
		state = 1
	}
	enc := wlwire.NewEncoder().Uint32(timeMs).Uint32(code).Uint32(state)
	return k.Conn().SendRequest(k, vkOpKey, enc)
}

// Modifiers sets the depressed/latched/locked/group modifier mask.
func (k *VirtualKeyboard) Modifiers(depressed, latched, locked, group uint32) error {
	enc := wlwire.NewEncoder().Uint32(depressed).Uint32(latched).Uint32(locked).Uint32(group)
	return k.Conn().SendRequest(k, vkOpModifiers, enc)
}

// Destroy releases the virtual keyboard device.
func (k *VirtualKeyboard) Destroy() error {
	err := k.Conn().SendRequest(k, vkOpDestroy, wlwire.NewEncoder())
	k.Conn().Unregister(k)
	return err
}
