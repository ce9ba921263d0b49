package rfb

import (
	"encoding/binary"
	"fmt"
	"io"
)

// readWriter is the minimal surface auth/handshake code needs; satisfied
// by net.Conn.
type readWriter interface {
	io.Reader
	io.Writer
}

func readFull(r io.Reader, buf []byte) (int, error) {
	return io.ReadFull(r, buf)
}

func readUint8(r io.Reader) (uint8, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func readUint16(r io.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b[:]), nil
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func readInt32(r io.Reader) (int32, error) {
	v, err := readUint32(r)
	return int32(v), err
}

func writeUint8(w io.Writer, v uint8) error {
	_, err := w.Write([]byte{v})
	return err
}

func writeUint16(w io.Writer, v uint16) error {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func writeUint32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func writeInt32(w io.Writer, v int32) error {
	return writeUint32(w, uint32(v))
}

func writePixelFormat(w io.Writer, pf PixelFormat) error {
	if err := writeUint8(w, pf.BitsPerPixel); err != nil {
		return err
	}
	if err := writeUint8(w, pf.Depth); err != nil {
		return err
	}
	if err := writeUint8(w, pf.BigEndian); err != nil {
		return err
	}
	if err := writeUint8(w, pf.TrueColor); err != nil {
		return err
	}
	if err := writeUint16(w, pf.RedMax); err != nil {
		return err
	}
	if err := writeUint16(w, pf.GreenMax); err != nil {
		return err
	}
	if err := writeUint16(w, pf.BlueMax); err != nil {
		return err
	}
	if err := writeUint8(w, pf.RedShift); err != nil {
		return err
	}
	if err := writeUint8(w, pf.GreenShift); err != nil {
		return err
	}
	if err := writeUint8(w, pf.BlueShift); err != nil {
		return err
	}
	var pad [3]byte
	_, err := w.Write(pad[:])
	return err
}

func readPixelFormat(r io.Reader) (PixelFormat, error) {
	var pf PixelFormat
	var err error
	if pf.BitsPerPixel, err = readUint8(r); err != nil {
		return pf, err
	}
	if pf.Depth, err = readUint8(r); err != nil {
		return pf, err
	}
	if pf.BigEndian, err = readUint8(r); err != nil {
		return pf, err
	}
	if pf.TrueColor, err = readUint8(r); err != nil {
		return pf, err
	}
	if pf.RedMax, err = readUint16(r); err != nil {
		return pf, err
	}
	if pf.GreenMax, err = readUint16(r); err != nil {
		return pf, err
	}
	if pf.BlueMax, err = readUint16(r); err != nil {
		return pf, err
	}
	if pf.RedShift, err = readUint8(r); err != nil {
		return pf, err
	}
	if pf.GreenShift, err = readUint8(r); err != nil {
		return pf, err
	}
	if pf.BlueShift, err = readUint8(r); err != nil {
		return pf, err
	}
	var pad [3]byte
	if _, err := io.ReadFull(r, pad[:]); err != nil {
		return pf, err
	}
	return pf, nil
}

func writeString32(w io.Writer, s string) error {
	if err := writeUint32(w, uint32(len(s))); err != nil {
		return err
	}
	_, err := w.Write([]byte(s))
	return err
}

// drainPadded discards n bytes, used for message fields this server
// doesn't act on (e.g. SetEncodings' padding byte).
func drainPadded(r io.Reader, n int) error {
	if n <= 0 {
		return nil
	}
	buf := make([]byte, n)
	_, err := io.ReadFull(r, buf)
	if err != nil {
		return fmt.Errorf("rfb: draining %d padding bytes: %w", n, err)
	}
	return nil
}
