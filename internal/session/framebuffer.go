package session

import (
	"github.com/rfbwld/rfbwld/internal/render"
	"github.com/rfbwld/rfbwld/internal/rfb"
)

// pixelCopier is the slice of render.Renderer this package depends on,
// narrowed to its own interface so tests can exercise the row-extraction
// logic below without a real EGL context. *render.Renderer satisfies it.
type pixelCopier interface {
	CopyPixels(dst []byte, y, height int32)
}

// framebufferSource adapts render.Renderer.CopyPixels (which only reads
// full-width rows) to rfb.FramebufferSource's arbitrary-rectangle contract,
// grounded on internal/rfb.Server's documented expectation that
// CopyInto's dst is exactly rect.W*rect.H*4 bytes, BGRA8888.
type framebufferSource struct {
	renderer pixelCopier
	width    uint32
}

var _ pixelCopier = (*render.Renderer)(nil)

func (f *framebufferSource) Stride() uint32 { return f.width * 4 }

// setWidth updates the stride basis after a resize. Only the pump goroutine
// calls this, strictly before handing the resize notice to the push
// goroutine over Core.pushCh, so there is no concurrent read/write on width.
func (f *framebufferSource) setWidth(width uint32) { f.width = width }

func (f *framebufferSource) CopyInto(dst []byte, rect rfb.Rect) error {
	rowBytes := f.width * 4
	full := make([]byte, rowBytes*rect.H)
	f.renderer.CopyPixels(full, int32(rect.Y), int32(rect.H))

	destRowBytes := rect.W * 4
	for row := uint32(0); row < rect.H; row++ {
		srcOff := row*rowBytes + rect.X*4
		dstOff := row * destRowBytes
		copy(dst[dstOff:dstOff+destRowBytes], full[srcOff:srcOff+destRowBytes])
	}
	return nil
}
