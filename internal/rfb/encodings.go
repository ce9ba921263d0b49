package rfb

import "io"

// Rect is a rectangle in RFB wire coordinates (matches
// internal/capture.Rect's shape; kept separate so this package has no
// dependency on internal/capture).
type Rect struct {
	X, Y, W, H uint32
}

// writeRectHeader writes the common 12-byte rectangle header (RFB §7.6.1).
func writeRectHeader(w io.Writer, rect Rect, encoding int32) error {
	if err := writeUint16(w, uint16(rect.X)); err != nil {
		return err
	}
	if err := writeUint16(w, uint16(rect.Y)); err != nil {
		return err
	}
	if err := writeUint16(w, uint16(rect.W)); err != nil {
		return err
	}
	if err := writeUint16(w, uint16(rect.H)); err != nil {
		return err
	}
	return writeInt32(w, encoding)
}

// writeRawRect writes one Raw-encoded rectangle: header then
// width*height*bytesPerPixel pixel bytes, rows taken from src at the given
// stride (src is the full framebuffer, not just the rectangle).
func writeRawRect(w io.Writer, rect Rect, src []byte, stride uint32, bpp uint32) error {
	if err := writeRectHeader(w, rect, EncodingRaw); err != nil {
		return err
	}
	rowBytes := rect.W * bpp
	for row := uint32(0); row < rect.H; row++ {
		offset := (rect.Y+row)*stride + rect.X*bpp
		if _, err := w.Write(src[offset : offset+rowBytes]); err != nil {
			return err
		}
	}
	return nil
}

// writeCopyRect writes a CopyRect-encoded rectangle: header then the 4-byte
// source position this rectangle's pixels should be copied from (already
// present in the client's own framebuffer).
func writeCopyRect(w io.Writer, rect Rect, srcX, srcY uint16) error {
	if err := writeRectHeader(w, rect, EncodingCopyRect); err != nil {
		return err
	}
	if err := writeUint16(w, srcX); err != nil {
		return err
	}
	return writeUint16(w, srcY)
}

// writeDesktopSizeRect writes the DesktopSize pseudo-encoding rectangle:
// header only, with width/height carried in the header's own w/h fields
// (RFB extended to pass geometry this way, matching
// other_examples/tenthirtyam-go-vnc__encoding_desktop_size.go's Read using
// rect.Width/rect.Height directly).
func writeDesktopSizeRect(w io.Writer, width, height uint32) error {
	return writeRectHeader(w, Rect{W: width, H: height}, EncodingDesktopSize)
}
