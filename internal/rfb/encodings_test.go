package rfb

import (
	"bytes"
	"testing"
)

func TestWriteRawRectHeaderAndPixels(t *testing.T) {
	// 2x2 framebuffer, BGRA8888, want just the bottom-right 1x1 pixel.
	stride := uint32(2 * 4)
	src := []byte{
		1, 1, 1, 1, 2, 2, 2, 2,
		3, 3, 3, 3, 4, 4, 4, 4,
	}
	var buf bytes.Buffer
	rect := Rect{X: 1, Y: 1, W: 1, H: 1}
	if err := writeRawRect(&buf, rect, src, stride, 4); err != nil {
		t.Fatal(err)
	}

	got := buf.Bytes()
	if len(got) != 12+4 {
		t.Fatalf("got %d bytes, want 16", len(got))
	}
	if !bytes.Equal(got[12:], []byte{4, 4, 4, 4}) {
		t.Errorf("pixel data = %v, want the bottom-right pixel", got[12:])
	}
}

func TestWriteDesktopSizeRectEncoding(t *testing.T) {
	var buf bytes.Buffer
	if err := writeDesktopSizeRect(&buf, 1920, 1080); err != nil {
		t.Fatal(err)
	}
	got := buf.Bytes()
	if len(got) != 12 {
		t.Fatalf("got %d bytes, want 12", len(got))
	}
	// encoding type is a big-endian int32 at offset 8.
	encType := int32(got[8])<<24 | int32(got[9])<<16 | int32(got[10])<<8 | int32(got[11])
	if encType != EncodingDesktopSize {
		t.Errorf("encoding type = %d, want %d", encType, EncodingDesktopSize)
	}
}

func TestWriteCopyRect(t *testing.T) {
	var buf bytes.Buffer
	if err := writeCopyRect(&buf, Rect{X: 0, Y: 0, W: 10, H: 10}, 5, 5); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 16 {
		t.Fatalf("got %d bytes, want 16", buf.Len())
	}
}
