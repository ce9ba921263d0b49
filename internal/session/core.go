// Package session wires compositor bring-up, capture, rendering, input
// injection and the RFB listener into the one long-lived process spec.md §5
// describes, grounded on internal/server/manager.go's single-owner shape:
// one goroutine drives the whole Wayland/GL pipeline and hands frame updates
// to the RFB side through a buffered channel, while RFB key/pointer events
// call the keyboard/pointer injectors directly from the per-connection
// goroutine.
package session

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/rfbwld/rfbwld/internal/admin"
	"github.com/rfbwld/rfbwld/internal/capture"
	"github.com/rfbwld/rfbwld/internal/keyboard"
	"github.com/rfbwld/rfbwld/internal/logger"
	"github.com/rfbwld/rfbwld/internal/pointer"
	"github.com/rfbwld/rfbwld/internal/render"
	"github.com/rfbwld/rfbwld/internal/rfb"
	"github.com/rfbwld/rfbwld/internal/shm"
	"github.com/rfbwld/rfbwld/internal/wlclient"
	"github.com/rfbwld/rfbwld/internal/wlproto"
)

// pushMsg is the only thing the pump goroutine ever hands to the RFB push
// goroutine: either a resize (forces a full update) or a damage-rect list.
type pushMsg struct {
	resize bool
	width  uint32
	height uint32
	rects  []rfb.Rect
}

// Core owns every long-lived object the session needs for its entire life:
// the Wayland connection, the capture scheduler, the GPU renderer, the
// input injectors, and the RFB listener. Run must be called on the
// goroutine that constructed it via NewCore and must not migrate OS
// threads, because the renderer's EGL context is bound to whichever OS
// thread created it (spec.md §5); callers call runtime.LockOSThread before
// NewCore.
type Core struct {
	cfg Config

	wl        *wlclient.Client
	scheduler *capture.Scheduler
	renderer  *render.Renderer
	fbSource  *framebufferSource

	keyInjector *keyboard.Injector
	ptrInjector *pointer.Injector

	rfbServer *rfb.Server

	width, height uint32
	pushCh        chan pushMsg

	dmabufBackend capture.Backend // nil unless dma-buf capture is in use; identifies the scheduler's preferred backend for Stats
	startedAt     time.Time

	statsMu               sync.Mutex
	frameCount            uint64
	fpsWindow             time.Time
	fps                   float64
	lastDamage            int
	geomWidth, geomHeight uint32
	dmabufActive          bool
}

// NewCore performs every setup step that requires the Wayland registry
// roundtrip (binding managers, devices, the keymap) before returning. It
// must run on the same OS thread Run will later be called on, since it
// creates the renderer's EGL context (spec.md §4.5/§5).
func NewCore(cfg Config) (*Core, error) {
	wl, err := wlclient.Connect()
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	seatID := wl.SeatID()
	if seatID == 0 {
		wl.Close()
		return nil, fmt.Errorf("session: compositor advertises no wl_seat")
	}

	outputName, err := pickOutput(wl.Outputs(), cfg.OutputName)
	if err != nil {
		wl.Close()
		return nil, err
	}

	conn := wl.Conn()

	shmGlobal := wlproto.NewShm(conn, conn.AllocateID())
	conn.Register(shmGlobal)
	if err := wl.Bind("wl_shm", 1, shmGlobal.ID()); err != nil {
		wl.Close()
		return nil, fmt.Errorf("session: %w", err)
	}

	screencopyMgr := wlproto.NewScreencopyManager(conn, conn.AllocateID())
	conn.Register(screencopyMgr)
	if err := wl.Bind("zwlr_screencopy_manager_v1", 3, screencopyMgr.ID()); err != nil {
		wl.Close()
		return nil, fmt.Errorf("session: %w", err)
	}

	var dmabufMgr *wlproto.ExportDmabufManager
	if _, advertised := wl.Globals()["zwlr_export_dmabuf_manager_v1"]; advertised {
		dmabufMgr = wlproto.NewExportDmabufManager(conn, conn.AllocateID())
		conn.Register(dmabufMgr)
		if err := wl.Bind("zwlr_export_dmabuf_manager_v1", 1, dmabufMgr.ID()); err != nil {
			logger.Warnf("session: export-dmabuf advertised but bind failed: %v", err)
			dmabufMgr = nil
		}
	}

	vkMgr := wlproto.NewVirtualKeyboardManager(conn, conn.AllocateID())
	conn.Register(vkMgr)
	if err := wl.Bind("zwp_virtual_keyboard_manager_v1", 1, vkMgr.ID()); err != nil {
		wl.Close()
		return nil, fmt.Errorf("session: %w", err)
	}

	vpMgr := wlproto.NewVirtualPointerManager(conn, conn.AllocateID())
	conn.Register(vpMgr)
	if err := wl.Bind("zwlr_virtual_pointer_manager_v1", 1, vpMgr.ID()); err != nil {
		wl.Close()
		return nil, fmt.Errorf("session: %w", err)
	}

	output, err := wl.BindOutput(outputName)
	if err != nil {
		wl.Close()
		return nil, fmt.Errorf("session: %w", err)
	}

	if err := wl.Roundtrip(); err != nil {
		wl.Close()
		return nil, fmt.Errorf("session: flushing binds: %w", err)
	}

	if output.Width <= 0 || output.Height <= 0 {
		wl.Close()
		return nil, fmt.Errorf("session: output %d reported no current mode", outputName)
	}
	width, height := uint32(output.Width), uint32(output.Height)

	vk, err := vkMgr.CreateVirtualKeyboard(seatID)
	if err != nil {
		wl.Close()
		return nil, fmt.Errorf("session: create virtual keyboard: %w", err)
	}
	vp, err := vpMgr.CreateVirtualPointer(seatID)
	if err != nil {
		wl.Close()
		return nil, fmt.Errorf("session: create virtual pointer: %w", err)
	}

	resolver, err := keyboard.NewResolver(cfg.Layout, cfg.Variant)
	if err != nil {
		wl.Close()
		return nil, fmt.Errorf("session: compile keymap: %w", err)
	}
	if err := uploadKeymap(vk, resolver.KeymapText()); err != nil {
		wl.Close()
		return nil, fmt.Errorf("session: upload keymap: %w", err)
	}

	nowMs := func() uint32 { return uint32(time.Now().UnixMilli()) }
	keyInjector := keyboard.NewInjector(resolver, vk, nowMs)
	ptrInjector := pointer.NewInjector(vp, width, height, nowMs)

	timeConstant := cfg.SmootherTimeConstant
	if timeConstant <= 0 {
		timeConstant = 1.0
	}
	shmBackend := capture.NewShmBackend(conn, screencopyMgr, outputName, cfg.OverlayCursor, timeConstant)
	shmBackend.SetShm(shmGlobal)

	var preferred capture.Backend
	if cfg.PreferDmabuf && dmabufMgr != nil {
		preferred = capture.NewDmabufBackend(conn, dmabufMgr, outputName, cfg.OverlayCursor)
	}
	scheduler := capture.NewScheduler(preferred, shmBackend)

	renderer, err := render.NewRenderer(cfg.RenderNode, int32(width), int32(height))
	if err != nil {
		wl.Close()
		return nil, fmt.Errorf("session: %w", err)
	}

	fbSource := &framebufferSource{renderer: renderer, width: width}

	rfbServer, err := rfb.NewServer(cfg.ListenAddr, cfg.Secret, cfg.DesktopName, rfb.Geometry{Width: width, Height: height}, fbSource)
	if err != nil {
		renderer.Close()
		wl.Close()
		return nil, fmt.Errorf("session: %w", err)
	}

	c := &Core{
		cfg:         cfg,
		wl:          wl,
		scheduler:   scheduler,
		renderer:    renderer,
		fbSource:    fbSource,
		keyInjector: keyInjector,
		ptrInjector: ptrInjector,
		rfbServer:   rfbServer,
		width:       width,
		height:      height,
		pushCh:        make(chan pushMsg, 1),
		dmabufBackend: preferred,
		startedAt:     time.Now(),
		fpsWindow:     time.Now(),
		geomWidth:     width,
		geomHeight:    height,
	}

	rfbServer.OnKeyEvent(c.onKeyEvent)
	rfbServer.OnPointerEvent(c.onPointerEvent)
	scheduler.SetOnFrame(c.onFrame)

	return c, nil
}

// pickOutput returns want if non-zero (after checking it exists), else the
// lowest-numbered registry name among the outputs the compositor
// advertised (deterministic in the absence of an explicit choice).
func pickOutput(outputs map[uint32]*wlclient.Output, want uint32) (uint32, error) {
	if want != 0 {
		if _, ok := outputs[want]; !ok {
			return 0, fmt.Errorf("session: no output named %d", want)
		}
		return want, nil
	}
	if len(outputs) == 0 {
		return 0, fmt.Errorf("session: compositor advertises no wl_output")
	}
	names := make([]uint32, 0, len(outputs))
	for name := range outputs {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names[0], nil
}

// toRFBRects converts a capture.DamageRegion into wire-shaped rfb.Rects;
// the two types are structurally identical but kept separate so
// internal/rfb has no dependency on internal/capture.
func toRFBRects(damage capture.DamageRegion) []rfb.Rect {
	rects := make([]rfb.Rect, len(damage))
	for i, r := range damage {
		rects[i] = rfb.Rect{X: r.X, Y: r.Y, W: r.W, H: r.H}
	}
	return rects
}

// uploadKeymap writes text into a fresh shm segment and sends it to vk:
// map, fill and unmap the segment, hand the fd to the compositor, then
// close the local fd once the request is on the wire.
func uploadKeymap(vk *wlproto.VirtualKeyboard, text string) error {
	data := append([]byte(text), 0)
	fd, err := shm.Alloc(int64(len(data)))
	if err != nil {
		return err
	}
	defer unix.Close(fd)

	mapped, err := shm.Map(fd, len(data))
	if err != nil {
		return err
	}
	copy(mapped, data)
	if err := shm.Unmap(mapped); err != nil {
		return err
	}

	return vk.Keymap(fd, uint32(len(data)))
}

// Run starts the RFB accept loop and the push goroutine, kicks off the
// first capture, then drives the Wayland connection on the calling
// goroutine until ctx is cancelled or the connection fails. The caller must
// have called runtime.LockOSThread before NewCore; Run calls it again,
// which keeps the goroutine wired to its current OS thread but does not
// check that this is the thread NewCore ran on.
func (c *Core) Run(ctx context.Context) error {
	runtime.LockOSThread()

	go c.pushLoop()

	serveErr := make(chan error, 1)
	go func() { serveErr <- c.rfbServer.Serve() }()

	stop := make(chan struct{})
	go func() {
		<-ctx.Done()
		close(stop)
	}()

	if err := c.scheduler.Start(); err != nil {
		logger.Warnf("session: initial capture start: %v", err)
	}

	runErr := c.wl.Conn().Run(stop)

	_ = c.rfbServer.Close()
	close(c.pushCh)
	c.renderer.Close()
	_ = c.wl.Close()

	select {
	case err := <-serveErr:
		if err != nil && ctx.Err() == nil {
			logger.Warnf("session: rfb server stopped: %v", err)
		}
	default:
	}

	if runErr != nil && ctx.Err() == nil {
		return fmt.Errorf("session: %w", runErr)
	}
	return nil
}

func (c *Core) pushLoop() {
	for msg := range c.pushCh {
		if msg.resize {
			if err := c.rfbServer.Resize(msg.width, msg.height); err != nil {
				logger.Warnf("session: rfb resize: %v", err)
			}
			continue
		}
		if err := c.rfbServer.PushUpdate(msg.rects); err != nil {
			logger.Warnf("session: rfb push update: %v", err)
		}
	}
}

func (c *Core) onKeyEvent(keysym uint32, down bool) {
	c.keyInjector.Feed(keysym, down)
}

func (c *Core) onPointerEvent(x, y uint32, buttonMask uint8) {
	c.ptrInjector.Feed(x, y, buttonMask)
}

// onFrame is the capture scheduler's on_frame continuation (spec.md §4.4):
// it runs synchronously on the pump goroutine, inside Wayland event
// dispatch. It renders the frame, detects a resize, and hands the result to
// the push goroutine, then always re-arms the scheduler so capture keeps
// cycling even after a transient failure (the backends' own rate limiting
// throttles retries).
func (c *Core) onFrame(frame *capture.CapturedFrame, err error) {
	defer func() {
		if err := c.scheduler.Start(); err != nil {
			logger.Debugf("session: scheduler restart: %v", err)
		}
	}()

	if err != nil {
		logger.Warnf("session: capture failed: %v", err)
		return
	}

	var renderErr error
	if len(frame.Planes) > 0 {
		renderErr = c.renderer.RenderDmabufFrame(frame)
		for _, p := range frame.Planes {
			_ = unix.Close(p.FD)
		}
	} else {
		renderErr = c.renderer.RenderFramebuffer(frame.Pixels, frame.Format, frame.Width, frame.Height, frame.Stride, frame.YInvert)
	}
	if renderErr != nil {
		logger.Warnf("session: render: %v", renderErr)
		return
	}

	c.recordFrame()

	if frame.Width != c.width || frame.Height != c.height {
		if err := c.renderer.Resize(int32(frame.Width), int32(frame.Height)); err != nil {
			logger.Warnf("session: renderer resize: %v", err)
			return
		}
		c.width, c.height = frame.Width, frame.Height
		c.statsMu.Lock()
		c.geomWidth, c.geomHeight = frame.Width, frame.Height
		c.statsMu.Unlock()
		c.fbSource.setWidth(frame.Width)
		c.ptrInjector.SetExtent(frame.Width, frame.Height)
		c.pushCh <- pushMsg{resize: true, width: frame.Width, height: frame.Height}
		return
	}

	damage := c.renderer.CurrentDamage()
	c.setLastDamage(len(damage))
	if len(damage) == 0 {
		return
	}
	c.pushCh <- pushMsg{rects: toRFBRects(damage)}
}

// recordFrame and setLastDamage run on the pump goroutine (onFrame's
// caller) but are read from Stats on an admin console goroutine, so they
// go through statsMu rather than relying on pushCh's happens-before.
// recordFrame also snapshots which backend is currently active, since
// Scheduler.backend is otherwise only safe to read from the pump
// goroutine that mutates it.
func (c *Core) recordFrame() {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	c.frameCount++
	if elapsed := time.Since(c.fpsWindow); elapsed >= time.Second {
		c.fps = float64(c.frameCount) / elapsed.Seconds()
		c.frameCount = 0
		c.fpsWindow = time.Now()
	}
	c.dmabufActive = c.dmabufBackend != nil && c.scheduler.Active() == c.dmabufBackend
}

func (c *Core) setLastDamage(n int) {
	c.statsMu.Lock()
	c.lastDamage = n
	c.statsMu.Unlock()
}

// Stats returns a snapshot for internal/admin's status console.
func (c *Core) Stats() admin.Stats {
	c.statsMu.Lock()
	fps, lastDamage := c.fps, c.lastDamage
	w, h := c.geomWidth, c.geomHeight
	dmabufActive := c.dmabufActive
	c.statsMu.Unlock()

	backend := "shm"
	if dmabufActive {
		backend = "dmabuf"
	}

	viewerAddr, viewerActive := c.rfbServer.Viewer()

	return admin.Stats{
		Backend:      backend,
		OutputWidth:  w,
		OutputHeight: h,
		FPS:          fps,
		LastDamage:   lastDamage,
		ViewerAddr:   viewerAddr,
		ViewerActive: viewerActive,
		Uptime:       time.Since(c.startedAt),
	}
}
