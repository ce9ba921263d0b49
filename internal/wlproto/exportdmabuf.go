package wlproto

import "github.com/rfbwld/rfbwld/internal/wlwire"

// zwlr_export_dmabuf_manager_v1 requests.
const (
	exportDmabufManagerOpCaptureOutput uint16 = 0
	exportDmabufManagerOpDestroy       uint16 = 1
)

// zwlr_export_dmabuf_frame_v1 requests and events.
const (
	exportDmabufFrameOpDestroy uint16 = 0

	ExportDmabufEvFrame  uint16 = 0
	ExportDmabufEvObject uint16 = 1
	ExportDmabufEvReady  uint16 = 2
	ExportDmabufEvCancel uint16 = 3
)

// CancelReason mirrors the cancel() event's reason enum.
type CancelReason uint32

const (
	CancelReasonTemporary CancelReason = 0
	CancelReasonPermanent CancelReason = 1
	CancelReasonResized   CancelReason = 2
)

// ExportDmabufManager is the bound zwlr_export_dmabuf_manager_v1 global.
type ExportDmabufManager struct {
	wlwire.BaseProxy
}

func NewExportDmabufManager(conn *wlwire.Conn, id uint32) *ExportDmabufManager {
	m := &ExportDmabufManager{}
	m.SetConn(conn)
	m.SetID(id)
	return m
}

func (m *ExportDmabufManager) Dispatch(*wlwire.Event) {}

// CaptureOutput requests a single-use frame that exports the next composed
// buffer for outputID by dma-buf fds rather than copying pixels.
func (m *ExportDmabufManager) CaptureOutput(outputID uint32, overlayCursor bool, handler ExportDmabufFrameHandler) (*ExportDmabufFrame, error) {
	frame := &ExportDmabufFrame{handler: handler}
	frame.SetConn(m.Conn())
	frame.SetID(m.Conn().AllocateID())
	m.Conn().Register(frame)

	cursor := int32(0)
	if overlayCursor {
		cursor = 1
	}
	enc := wlwire.NewEncoder().Uint32(frame.ID()).Int32(cursor).Uint32(outputID)
	if err := m.Conn().SendRequest(m, exportDmabufManagerOpCaptureOutput, enc); err != nil {
		m.Conn().Unregister(frame)
		return nil, err
	}
	return frame, nil
}

func (m *ExportDmabufManager) Destroy() error {
	return m.Conn().SendRequest(m, exportDmabufManagerOpDestroy, wlwire.NewEncoder())
}

// ExportDmabufFrameHandler receives decoded export-dmabuf events.
// internal/capture owns all fd lifetime decisions; this package only
// decodes wire arguments, including popping each object() event's fd off
// the connection's fd queue.
type ExportDmabufFrameHandler interface {
	OnFrame(width, height, offsetX, offsetY, bufferFlags, flags, format, modHi, modLo, numObjects uint32)
	OnObject(index uint32, fd int, size, offset, stride, planeIndex uint32)
	OnReady(tvSecHi, tvSecLo, tvNsec uint32)
	OnCancel(reason CancelReason)
}

// ExportDmabufFrame is a single-use zwlr_export_dmabuf_frame_v1 object.
type ExportDmabufFrame struct {
	wlwire.BaseProxy
	handler ExportDmabufFrameHandler
}

func (f *ExportDmabufFrame) Dispatch(ev *wlwire.Event) {
	switch ev.Opcode {
	case ExportDmabufEvFrame:
		w, _ := ev.Args.Uint32()
		h, _ := ev.Args.Uint32()
		ox, _ := ev.Args.Uint32()
		oy, _ := ev.Args.Uint32()
		bf, _ := ev.Args.Uint32()
		flags, _ := ev.Args.Uint32()
		format, _ := ev.Args.Uint32()
		modHi, _ := ev.Args.Uint32()
		modLo, _ := ev.Args.Uint32()
		n, _ := ev.Args.Uint32()
		f.handler.OnFrame(w, h, ox, oy, bf, flags, format, modHi, modLo, n)
	case ExportDmabufEvObject:
		idx, _ := ev.Args.Uint32()
		fd, _ := f.Conn().TakeFD()
		size, _ := ev.Args.Uint32()
		offset, _ := ev.Args.Uint32()
		stride, _ := ev.Args.Uint32()
		plane, _ := ev.Args.Uint32()
		f.handler.OnObject(idx, fd, size, offset, stride, plane)
	case ExportDmabufEvReady:
		hi, _ := ev.Args.Uint32()
		lo, _ := ev.Args.Uint32()
		ns, _ := ev.Args.Uint32()
		f.handler.OnReady(hi, lo, ns)
	case ExportDmabufEvCancel:
		reason, _ := ev.Args.Uint32()
		f.handler.OnCancel(CancelReason(reason))
	}
}

// Destroy releases the frame and, per protocol, implicitly closes the
// compositor's interest in any objects it has not yet delivered — callers
// must still close any fds they already took via TakeFD themselves.
func (f *ExportDmabufFrame) Destroy() error {
	err := f.Conn().SendRequest(f, exportDmabufFrameOpDestroy, wlwire.NewEncoder())
	f.Conn().Unregister(f)
	return err
}
