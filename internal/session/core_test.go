package session

import (
	"testing"
	"time"

	"github.com/rfbwld/rfbwld/internal/capture"
	"github.com/rfbwld/rfbwld/internal/rfb"
	"github.com/rfbwld/rfbwld/internal/wlclient"
)

type fakeFBSource struct{}

func (fakeFBSource) CopyInto(dst []byte, rect rfb.Rect) error { return nil }
func (fakeFBSource) Stride() uint32                           { return 0 }

func newTestCore(t *testing.T) *Core {
	t.Helper()
	srv, err := rfb.NewServer("127.0.0.1:0", "secret", "test", rfb.Geometry{Width: 640, Height: 480}, fakeFBSource{})
	if err != nil {
		t.Fatalf("rfb.NewServer: %v", err)
	}
	t.Cleanup(func() { _ = srv.Close() })
	return &Core{
		rfbServer:  srv,
		geomWidth:  640,
		geomHeight: 480,
		startedAt:  time.Now().Add(-5 * time.Second),
		fpsWindow:  time.Now(),
	}
}

func TestPickOutputExplicit(t *testing.T) {
	outputs := map[uint32]*wlclient.Output{
		3: {Name: 3, Width: 1920, Height: 1080},
		7: {Name: 7, Width: 1280, Height: 720},
	}

	got, err := pickOutput(outputs, 7)
	if err != nil {
		t.Fatalf("pickOutput: %v", err)
	}
	if got != 7 {
		t.Fatalf("got output %d, want 7", got)
	}
}

func TestPickOutputExplicitMissing(t *testing.T) {
	outputs := map[uint32]*wlclient.Output{3: {Name: 3}}

	if _, err := pickOutput(outputs, 99); err == nil {
		t.Fatal("expected error for unknown output name")
	}
}

func TestPickOutputDefaultsToLowestName(t *testing.T) {
	outputs := map[uint32]*wlclient.Output{
		9: {Name: 9},
		2: {Name: 2},
		5: {Name: 5},
	}

	got, err := pickOutput(outputs, 0)
	if err != nil {
		t.Fatalf("pickOutput: %v", err)
	}
	if got != 2 {
		t.Fatalf("got output %d, want 2 (lowest name)", got)
	}
}

func TestPickOutputNoOutputs(t *testing.T) {
	if _, err := pickOutput(map[uint32]*wlclient.Output{}, 0); err == nil {
		t.Fatal("expected error when compositor advertises no outputs")
	}
}

func TestToRFBRectsPreservesShapeAndOrder(t *testing.T) {
	damage := capture.DamageRegion{
		{X: 0, Y: 0, W: 32, H: 32},
		{X: 32, Y: 0, W: 32, H: 32},
	}

	rects := toRFBRects(damage)
	if len(rects) != 2 {
		t.Fatalf("got %d rects, want 2", len(rects))
	}
	if rects[0].X != 0 || rects[0].W != 32 || rects[0].H != 32 {
		t.Fatalf("rect 0 mismatch: %+v", rects[0])
	}
	if rects[1].X != 32 || rects[1].W != 32 {
		t.Fatalf("rect 1 mismatch: %+v", rects[1])
	}
}

func TestToRFBRectsEmpty(t *testing.T) {
	if rects := toRFBRects(nil); len(rects) != 0 {
		t.Fatalf("got %d rects, want 0", len(rects))
	}
}

func TestStatsReportsGeometryAndBackend(t *testing.T) {
	c := newTestCore(t)
	c.dmabufActive = true
	c.lastDamage = 4

	st := c.Stats()
	if st.Backend != "dmabuf" {
		t.Errorf("Backend = %q, want dmabuf", st.Backend)
	}
	if st.OutputWidth != 640 || st.OutputHeight != 480 {
		t.Errorf("geometry = %dx%d, want 640x480", st.OutputWidth, st.OutputHeight)
	}
	if st.LastDamage != 4 {
		t.Errorf("LastDamage = %d, want 4", st.LastDamage)
	}
	if st.ViewerActive {
		t.Error("ViewerActive = true with no connected client")
	}
	if st.Uptime < 5*time.Second {
		t.Errorf("Uptime = %v, want >= 5s", st.Uptime)
	}
}

func TestStatsDefaultsToShmBackend(t *testing.T) {
	c := newTestCore(t)
	if got := c.Stats().Backend; got != "shm" {
		t.Errorf("Backend = %q, want shm", got)
	}
}

func TestRecordFrameComputesFPSAfterWindow(t *testing.T) {
	c := newTestCore(t)
	c.frameCount = 20
	c.fpsWindow = time.Now().Add(-2 * time.Second)

	c.recordFrame()

	if c.fps < 9 || c.fps > 11 {
		t.Errorf("fps = %v, want ~10 (21 frames / 2s)", c.fps)
	}
	if c.frameCount != 0 {
		t.Errorf("frameCount = %d, want reset to 0", c.frameCount)
	}
}
