package wlproto

import "github.com/rfbwld/rfbwld/internal/wlwire"

// zwlr_virtual_pointer_manager_v1 requests.
const vpManagerOpCreateVirtualPointer uint16 = 0

// zwlr_virtual_pointer_v1 requests.
const (
	vpOpMotion         uint16 = 0
	vpOpButton         uint16 = 1
	vpOpAxis           uint16 = 2
	vpOpFrame          uint16 = 3
	vpOpMotionAbsolute uint16 = 7
	vpOpDestroy        uint16 = 8
)

// ButtonState mirrors wl_pointer.button_state.
type ButtonState uint32

const (
	ButtonReleased ButtonState = 0
	ButtonPressed  ButtonState = 1
)

// VirtualPointerManager is the bound zwlr_virtual_pointer_manager_v1
// global.
type VirtualPointerManager struct {
	wlwire.BaseProxy
}

func NewVirtualPointerManager(conn *wlwire.Conn, id uint32) *VirtualPointerManager {
	m := &VirtualPointerManager{}
	m.SetConn(conn)
	m.SetID(id)
	return m
}

func (m *VirtualPointerManager) Dispatch(*wlwire.Event) {}

// CreateVirtualPointer creates one virtual-pointer device bound to seatID.
func (m *VirtualPointerManager) CreateVirtualPointer(seatID uint32) (*VirtualPointer, error) {
	p := &VirtualPointer{}
	p.SetConn(m.Conn())
	p.SetID(m.Conn().AllocateID())
	m.Conn().Register(p)

	enc := wlwire.NewEncoder().Uint32(seatID).Uint32(p.ID())
	if err := m.Conn().SendRequest(m, vpManagerOpCreateVirtualPointer, enc); err != nil {
		m.Conn().Unregister(p)
		return nil, err
	}
	return p, nil
}

// VirtualPointer is a bound zwlr_virtual_pointer_v1 device. It has no
// events.
type VirtualPointer struct {
	wlwire.BaseProxy
}

func (p *VirtualPointer) Dispatch(*wlwire.Event) {}

// MotionAbsolute moves the pointer to (x, y) within an xExtent x yExtent
// virtual grid (the protocol's resolution-independent absolute coordinate
// space); the caller scales output pixel coordinates into it.
func (p *VirtualPointer) MotionAbsolute(timeMs uint32, x, y, xExtent, yExtent uint32) error {
	enc := wlwire.NewEncoder().Uint32(timeMs).Uint32(x).Uint32(y).Uint32(xExtent).Uint32(yExtent)
	return p.Conn().SendRequest(p, vpOpMotionAbsolute, enc)
}

// Button emits a single button press/release, identified by a Linux
// input-event-codes button code (e.g. BTN_LEFT = 0x110).
func (p *VirtualPointer) Button(timeMs, button uint32, state ButtonState) error {
	enc := wlwire.NewEncoder().Uint32(timeMs).Uint32(button).Uint32(uint32(state))
	return p.Conn().SendRequest(p, vpOpButton, enc)
}

// Frame terminates a group of pointer events (motion/button/axis) the same
// way wl_pointer.frame groups server-side events; callers must send one
// after every MotionAbsolute/Button batch.
func (p *VirtualPointer) Frame() error {
	return p.Conn().SendRequest(p, vpOpFrame, wlwire.NewEncoder())
}

// Destroy releases the virtual pointer device.
func (p *VirtualPointer) Destroy() error {
	err := p.Conn().SendRequest(p, vpOpDestroy, wlwire.NewEncoder())
	p.Conn().Unregister(p)
	return err
}
