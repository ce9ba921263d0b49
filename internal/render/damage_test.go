package render

import (
	"testing"

	"github.com/rfbwld/rfbwld/internal/capture"
)

func TestRectsFromTilesSkipsZeroTiles(t *testing.T) {
	// 2x1 tile grid; only the second tile is marked changed.
	pixels := []byte{
		0, 0, 0, 255,
		255, 255, 255, 255,
	}
	region := rectsFromTiles(pixels, 2, 1, 64, 32)
	if len(region) != 1 {
		t.Fatalf("got %d rects, want 1", len(region))
	}
	want := capture.Rect{X: 32, Y: 0, W: 32, H: 32}
	if region[0] != want {
		t.Errorf("rect = %+v, want %+v", region[0], want)
	}
}

func TestRectsFromTilesClipsToImageBounds(t *testing.T) {
	pixels := []byte{255, 255, 255, 255}
	region := rectsFromTiles(pixels, 1, 1, 20, 20)
	if len(region) != 1 {
		t.Fatalf("got %d rects, want 1", len(region))
	}
	if region[0].W != 20 || region[0].H != 20 {
		t.Errorf("rect not clipped: %+v", region[0])
	}
}

func TestRectsFromTilesScanOrder(t *testing.T) {
	pixels := []byte{
		255, 255, 255, 255,
		255, 255, 255, 255,
		0, 0, 0, 0,
		255, 255, 255, 255,
	}
	region := rectsFromTiles(pixels, 2, 2, 64, 64)
	if len(region) != 3 {
		t.Fatalf("got %d rects, want 3", len(region))
	}
	if region[0].X != 0 || region[0].Y != 0 {
		t.Errorf("first rect out of scan order: %+v", region[0])
	}
}
