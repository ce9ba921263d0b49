package capture

import (
	"fmt"
	"time"

	"github.com/rfbwld/rfbwld/internal/wlproto"
	"github.com/rfbwld/rfbwld/internal/wlwire"
)

// DmabufBackend drives zwlr_export_dmabuf_manager_v1 (spec.md §4.3). Pixel
// data is never copied into host memory; the compositor hands over one file
// descriptor per plane, which this backend owns until the renderer has
// imported them.
type DmabufBackend struct {
	conn     *wlwire.Conn
	manager  *wlproto.ExportDmabufManager
	outputID uint32
	cursor   bool

	status Status
	onDone DoneFunc

	frame     *wlproto.ExportDmabufFrame
	frameInfo FrameInfo
	planes    []Plane
	format    uint32
	modifier  uint64
	numPlanes uint32

	startTime time.Time
	lastReady time.Time
	timer     *time.Timer
}

func NewDmabufBackend(conn *wlwire.Conn, manager *wlproto.ExportDmabufManager, outputID uint32, overlayCursor bool) *DmabufBackend {
	return &DmabufBackend{
		conn:     conn,
		manager:  manager,
		outputID: outputID,
		cursor:   overlayCursor,
		status:   StatusIdle,
	}
}

func (b *DmabufBackend) SetOnDone(fn DoneFunc) { b.onDone = fn }
func (b *DmabufBackend) Status() Status        { return b.status }
func (b *DmabufBackend) DamageHint() *Rect     { return nil } // protocol reports none
func (b *DmabufBackend) FrameInfo() FrameInfo  { return b.frameInfo }

// Start issues capture_output immediately; export-dmabuf has no protocol
// rate limit of its own, unlike screencopy (spec.md §4.3 omits one).
func (b *DmabufBackend) Start() error {
	if b.status == StatusInProgress {
		return fmt.Errorf("%w: capture already in progress", ErrCaptureFailed)
	}
	b.status = StatusInProgress
	b.planes = nil
	b.startTime = nowFunc()

	frame, err := b.manager.CaptureOutput(b.outputID, b.cursor, b)
	if err != nil {
		b.fail(StatusFatal, fmt.Errorf("%w: %v", ErrCompositorRefused, err))
		return nil
	}
	b.frame = frame
	return nil
}

// Stop destroys any outstanding frame object and closes any plane fds
// already collected, to prevent descriptor leaks.
func (b *DmabufBackend) Stop() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	if b.frame != nil {
		_ = b.frame.Destroy()
		b.frame = nil
	}
	b.closePlanes()
	b.status = StatusStopped
}

func (b *DmabufBackend) closePlanes() {
	for _, p := range b.planes {
		closeFd(p.FD)
	}
	b.planes = nil
}

func (b *DmabufBackend) fail(status Status, err error) {
	b.status = status
	if b.frame != nil {
		_ = b.frame.Destroy()
		b.frame = nil
	}
	b.closePlanes()
	if b.onDone != nil {
		b.onDone(nil, err)
	}
}

// OnFrame implements wlproto.ExportDmabufFrameHandler's frame() event, the
// ├─frame(start)──▶ COLLECTING_OBJECTS transition.
func (b *DmabufBackend) OnFrame(width, height, offsetX, offsetY, bufferFlags, flags, format, modHi, modLo, numObjects uint32) {
	b.frameInfo = FrameInfo{Width: width, Height: height, FourCC: format}
	b.format = format
	b.modifier = uint64(modHi)<<32 | uint64(modLo)
	b.numPlanes = numObjects
	b.planes = make([]Plane, 0, numObjects)
}

// OnObject collects one plane's fd/offset/stride. Ownership passes to this
// backend until the renderer imports it.
func (b *DmabufBackend) OnObject(index uint32, fd int, size, offset, stride, planeIndex uint32) {
	b.planes = append(b.planes, Plane{
		FD:         fd,
		Offset:     offset,
		Size:       size,
		Pitch:      stride,
		Modifier:   b.modifier,
		PlaneIndex: planeIndex,
	})
}

// OnReady implements the ready() transition: DONE once every plane has
// arrived. If the shared capture-cadence deadline hasn't been reached yet,
// on_done is deferred behind a one-shot timer instead of firing immediately
// (spec.md §4.3), matching the SHM backend's rate limiting.
func (b *DmabufBackend) OnReady(tvSecHi, tvSecLo, tvNsec uint32) {
	b.status = StatusDone
	frame := &CapturedFrame{
		Width:   b.frameInfo.Width,
		Height:  b.frameInfo.Height,
		Format:  b.format,
		Planes:  b.planes,
		YInvert: false,
	}
	b.planes = nil // ownership transferred to frame/renderer
	if b.frame != nil {
		_ = b.frame.Destroy()
		b.frame = nil
	}

	now := nowFunc()
	var timeLeft float64
	if !b.lastReady.IsZero() {
		timeLeft = 1/RateLimit - now.Sub(b.lastReady).Seconds()
	}
	b.lastReady = now

	deliver := func() {
		if b.onDone != nil {
			b.onDone(frame, nil)
		}
	}
	if timeLeft > 0 {
		b.timer = time.AfterFunc(time.Duration(timeLeft*float64(time.Second)), deliver)
		return
	}
	deliver()
}

// OnCancel implements cancel(reason): PERMANENT is fatal, anything else is
// a retryable failure (spec.md §4.3).
func (b *DmabufBackend) OnCancel(reason wlproto.CancelReason) {
	if reason == wlproto.CancelReasonPermanent {
		b.fail(StatusFatal, ErrCaptureFatal)
		return
	}
	b.fail(StatusFailed, ErrCaptureFailed)
}
