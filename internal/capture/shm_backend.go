package capture

import (
	"fmt"
	"time"

	"github.com/rfbwld/rfbwld/internal/logger"
	"github.com/rfbwld/rfbwld/internal/shm"
	"github.com/rfbwld/rfbwld/internal/smoother"
	"github.com/rfbwld/rfbwld/internal/wlproto"
	"github.com/rfbwld/rfbwld/internal/wlwire"
)

// RateLimit is the SHM backend's target capture cadence (spec.md §4.2).
const RateLimit = 20.0 // Hz

// ShmBackend drives zwlr_screencopy_manager_v1/zwlr_screencopy_frame_v1
// (spec.md §4.2). One instance per output.
type ShmBackend struct {
	conn     *wlwire.Conn
	manager  *wlproto.ScreencopyManager
	outputID uint32
	cursor   bool

	status Status
	onDone DoneFunc

	shmGlobal  *wlproto.Shm
	pool       *wlproto.ShmPool
	poolFd     int
	poolSize   int32
	shmData    []byte
	buf        *wlproto.Buffer
	frame      *wlproto.ScreencopyFrame
	frameInfo  FrameInfo
	damageHint *Rect

	yInvert   bool
	startTime time.Time
	lastTime  time.Time
	lastReady time.Time
	delay     *smoother.Delay
	timer     *time.Timer
}

// NewShmBackend builds a backend bound to one output. timeConstant
// parameterises the delay smoother (spec.md §3 DelaySmoother).
func NewShmBackend(conn *wlwire.Conn, manager *wlproto.ScreencopyManager, outputID uint32, overlayCursor bool, timeConstant float64) *ShmBackend {
	return &ShmBackend{
		conn:     conn,
		manager:  manager,
		outputID: outputID,
		cursor:   overlayCursor,
		status:   StatusIdle,
		delay:    smoother.NewDelay(timeConstant),
		poolFd:   -1,
	}
}

func (b *ShmBackend) SetOnDone(fn DoneFunc) { b.onDone = fn }
func (b *ShmBackend) Status() Status        { return b.status }
func (b *ShmBackend) DamageHint() *Rect     { return b.damageHint }
func (b *ShmBackend) FrameInfo() FrameInfo  { return b.frameInfo }

// Start arms the rate limiter and, once the deadline is reached, issues
// capture_output. Fails fast if a capture is already in progress.
func (b *ShmBackend) Start() error {
	if b.status == StatusInProgress {
		return fmt.Errorf("%w: capture already in progress", ErrCaptureFailed)
	}

	now := nowFunc()
	var timeLeft float64
	if !b.lastTime.IsZero() {
		elapsed := now.Sub(b.lastTime).Seconds()
		timeLeft = 1/RateLimit - elapsed - b.delay.Value()
	}

	b.status = StatusInProgress
	if timeLeft > 0 {
		b.timer = time.AfterFunc(time.Duration(timeLeft*float64(time.Second)), func() { b.startCapture() })
		return nil
	}
	b.startCapture()
	return nil
}

func (b *ShmBackend) startCapture() {
	b.startTime = nowFunc()
	frame, err := b.manager.CaptureOutput(b.outputID, b.cursor, b)
	if err != nil {
		b.fail(StatusFatal, fmt.Errorf("%w: %v", ErrCompositorRefused, err))
		return
	}
	b.frame = frame
}

// Stop cancels any pending timer and, if a frame object is outstanding,
// destroys it. No on_done is invoked.
func (b *ShmBackend) Stop() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	if b.frame != nil {
		_ = b.frame.Destroy()
		b.frame = nil
	}
	b.status = StatusStopped
}

func (b *ShmBackend) fail(status Status, err error) {
	b.status = status
	if b.frame != nil {
		_ = b.frame.Destroy()
		b.frame = nil
	}
	if b.onDone != nil {
		b.onDone(nil, err)
	}
}

// OnBuffer implements wlproto.ScreencopyFrameHandler. It (re)allocates the
// pooled SHM buffer when geometry changed, then requests a damage-reporting
// copy.
func (b *ShmBackend) OnBuffer(format, width, height, stride uint32) {
	prev := b.frameInfo
	b.frameInfo = FrameInfo{Width: width, Height: height, Stride: stride, FourCC: wireFormatToFourCC(format)}

	needed := int32(stride) * int32(height)
	geometryChanged := prev.Width != width || prev.Height != height || prev.Stride != stride || prev.FourCC != b.frameInfo.FourCC
	if b.pool == nil || needed != b.poolSize || geometryChanged {
		if err := b.reallocatePool(needed, format, int32(width), int32(height), int32(stride)); err != nil {
			b.fail(StatusFatal, err)
			return
		}
	}

	if err := b.frame.CopyWithDamage(b.buf.ID()); err != nil {
		b.fail(StatusFatal, fmt.Errorf("%w: %v", ErrCaptureFatal, err))
	}
}

func (b *ShmBackend) reallocatePool(size int32, format uint32, width, height, stride int32) error {
	if b.buf != nil {
		_ = b.buf.Destroy()
		b.buf = nil
	}
	if b.pool != nil {
		_ = b.pool.Destroy()
		b.pool = nil
	}
	if b.shmData != nil {
		_ = shm.Unmap(b.shmData)
		b.shmData = nil
	}
	if b.poolFd >= 0 {
		closeFd(b.poolFd)
		b.poolFd = -1
	}

	fd, err := shm.Alloc(int64(size))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAllocationFailed, err)
	}
	data, err := shm.Map(fd, int(size))
	if err != nil {
		closeFd(fd)
		return fmt.Errorf("%w: %v", ErrAllocationFailed, err)
	}

	pool, err := b.shm().CreatePool(fd, size)
	if err != nil {
		_ = shm.Unmap(data)
		closeFd(fd)
		return fmt.Errorf("%w: %v", ErrAllocationFailed, err)
	}
	buf, err := pool.CreateBuffer(0, width, height, stride, format)
	if err != nil {
		_ = pool.Destroy()
		_ = shm.Unmap(data)
		closeFd(fd)
		return fmt.Errorf("%w: %v", ErrAllocationFailed, err)
	}

	// The compositor holds its own reference once create_pool is on the
	// wire and the mapping stays valid, so the local fd is not kept.
	closeFd(fd)
	b.poolSize = size
	b.shmData = data
	b.pool = pool
	b.buf = buf
	return nil
}

// shm returns the bound wl_shm global; set via SetShm before first use.
func (b *ShmBackend) shm() *wlproto.Shm { return b.shmGlobal }

// SetShm wires the already-bound wl_shm global this backend pools buffers
// through. Session wiring calls this once at startup.
func (b *ShmBackend) SetShm(s *wlproto.Shm) { b.shmGlobal = s }

// OnLinuxDmabuf is unused by this backend; screencopy may advertise it but
// this module always requests the SHM buffer path.
func (b *ShmBackend) OnLinuxDmabuf(format, width, height uint32) {}

func (b *ShmBackend) OnBufferDone() {}

func (b *ShmBackend) OnFlags(flags wlproto.FrameFlag) {
	b.yInvert = flags&wlproto.FrameFlagYInvert != 0
}

func (b *ShmBackend) OnDamage(x, y, w, h uint32) {
	b.damageHint = &Rect{X: x, Y: y, W: w, H: h}
}

// OnReady implements the ready() transition: sample the round trip, feed
// the delay smoother, and hand the frame upstream.
func (b *ShmBackend) OnReady(tvSecHi, tvSecLo, tvNsec uint32) {
	now := nowFunc()
	rtt := now.Sub(b.startTime).Seconds()
	filterDt := rtt
	if !b.lastReady.IsZero() {
		filterDt = now.Sub(b.lastReady).Seconds()
	}
	b.delay.Update(rtt, filterDt)
	b.lastReady = now
	b.lastTime = now
	b.status = StatusDone

	frame := &CapturedFrame{
		Width:      b.frameInfo.Width,
		Height:     b.frameInfo.Height,
		Stride:     b.frameInfo.Stride,
		Format:     b.frameInfo.FourCC,
		Pixels:     b.shmData,
		DamageHint: b.damageHint,
		YInvert:    b.yInvert,
	}
	if b.frame != nil {
		_ = b.frame.Destroy()
		b.frame = nil
	}
	if b.onDone != nil {
		b.onDone(frame, nil)
	}
}

func (b *ShmBackend) OnFailed() {
	b.fail(StatusFailed, ErrCaptureFailed)
}

// wireFormatToFourCC maps wl_shm.format values to DRM FourCCs (spec.md §6);
// unmapped values pass through unchanged since the wire and DRM enums
// coincide numerically in every case this module cares about.
func wireFormatToFourCC(format uint32) uint32 {
	switch format {
	case wlproto.ShmFormatARGB8888:
		return 0x34325241 // DRM_FORMAT_ARGB8888
	case wlproto.ShmFormatXRGB8888:
		return 0x34325258 // DRM_FORMAT_XRGB8888
	default:
		logger.Warnf("capture: passing through unmapped wl_shm format %d", format)
		return format
	}
}
