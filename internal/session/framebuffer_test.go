package session

import (
	"testing"

	"github.com/rfbwld/rfbwld/internal/rfb"
)

// fakeCopier simulates a renderer backed by a full-width BGRA8888
// framebuffer, so CopyInto's row-extraction logic can be tested without a
// real EGL context.
type fakeCopier struct {
	width, height uint32
	pixels        []byte // width*height*4, row-major
}

func newFakeCopier(width, height uint32) *fakeCopier {
	pixels := make([]byte, width*height*4)
	for y := uint32(0); y < height; y++ {
		for x := uint32(0); x < width; x++ {
			off := (y*width + x) * 4
			pixels[off] = byte(x)
			pixels[off+1] = byte(y)
			pixels[off+2] = 0xAA
			pixels[off+3] = 0xFF
		}
	}
	return &fakeCopier{width: width, height: height, pixels: pixels}
}

func (f *fakeCopier) CopyPixels(dst []byte, y, height int32) {
	rowBytes := f.width * 4
	copy(dst, f.pixels[uint32(y)*rowBytes:(uint32(y)+uint32(height))*rowBytes])
}

func TestFramebufferSourceCopyIntoFullFrame(t *testing.T) {
	src := &framebufferSource{renderer: newFakeCopier(64, 48), width: 64}

	dst := make([]byte, 64*48*4)
	if err := src.CopyInto(dst, rfb.Rect{X: 0, Y: 0, W: 64, H: 48}); err != nil {
		t.Fatalf("CopyInto: %v", err)
	}

	want := newFakeCopier(64, 48).pixels
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("byte %d: got %#x, want %#x", i, dst[i], want[i])
		}
	}
}

func TestFramebufferSourceCopyIntoSubRect(t *testing.T) {
	const width, height = 64, 48
	fake := newFakeCopier(width, height)
	src := &framebufferSource{renderer: fake, width: width}

	rect := rfb.Rect{X: 10, Y: 5, W: 20, H: 8}
	dst := make([]byte, rect.W*rect.H*4)
	if err := src.CopyInto(dst, rect); err != nil {
		t.Fatalf("CopyInto: %v", err)
	}

	for row := uint32(0); row < rect.H; row++ {
		for col := uint32(0); col < rect.W; col++ {
			srcOff := ((rect.Y+row)*width + (rect.X + col)) * 4
			dstOff := (row*rect.W + col) * 4
			if dst[dstOff] != fake.pixels[srcOff] || dst[dstOff+1] != fake.pixels[srcOff+1] {
				t.Fatalf("pixel (%d,%d): got (%d,%d), want (%d,%d)",
					col, row, dst[dstOff], dst[dstOff+1], fake.pixels[srcOff], fake.pixels[srcOff+1])
			}
		}
	}
}

func TestFramebufferSourceStrideTracksWidth(t *testing.T) {
	src := &framebufferSource{width: 64}
	if got := src.Stride(); got != 256 {
		t.Fatalf("Stride() = %d, want 256", got)
	}
	src.setWidth(32)
	if got := src.Stride(); got != 128 {
		t.Fatalf("Stride() after setWidth = %d, want 128", got)
	}
}
