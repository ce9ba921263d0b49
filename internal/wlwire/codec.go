package wlwire

import (
	"encoding/binary"
	"fmt"
)

// Encoder builds the argument bytes of a single request in wire order.
type Encoder struct {
	buf []byte
}

// NewEncoder returns an empty argument encoder.
func NewEncoder() *Encoder {
	return &Encoder{}
}

func (e *Encoder) Bytes() []byte { return e.buf }

// Uint32 appends a plain uint32 argument (also used for object/new_id ids).
func (e *Encoder) Uint32(v uint32) *Encoder {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	e.buf = append(e.buf, b[:]...)
	return e
}

// Int32 appends a signed int32 argument.
func (e *Encoder) Int32(v int32) *Encoder {
	return e.Uint32(uint32(v))
}

// Fixed appends a 24.8 signed fixed-point argument.
func (e *Encoder) Fixed(v float64) *Encoder {
	return e.Int32(int32(v * 256))
}

// String appends a length-prefixed, nul-terminated, 32-bit-padded string.
func (e *Encoder) String(s string) *Encoder {
	data := append([]byte(s), 0)
	e.Uint32(uint32(len(data)))
	e.buf = append(e.buf, data...)
	e.pad(len(data))
	return e
}

// Array appends a length-prefixed, 32-bit-padded opaque byte array.
func (e *Encoder) Array(data []byte) *Encoder {
	e.Uint32(uint32(len(data)))
	e.buf = append(e.buf, data...)
	e.pad(len(data))
	return e
}

func (e *Encoder) pad(n int) {
	if rem := n % 4; rem != 0 {
		e.buf = append(e.buf, make([]byte, 4-rem)...)
	}
}

// Decoder reads argument bytes of an incoming event in wire order.
type Decoder struct {
	buf []byte
	off int
}

// NewDecoder wraps the raw argument bytes of a decoded event.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

func (d *Decoder) Uint32() (uint32, error) {
	if d.off+4 > len(d.buf) {
		return 0, fmt.Errorf("wlwire: decode uint32: truncated")
	}
	v := binary.LittleEndian.Uint32(d.buf[d.off : d.off+4])
	d.off += 4
	return v, nil
}

func (d *Decoder) Int32() (int32, error) {
	v, err := d.Uint32()
	return int32(v), err
}

func (d *Decoder) Fixed() (float64, error) {
	v, err := d.Int32()
	return float64(v) / 256, err
}

func (d *Decoder) String() (string, error) {
	n, err := d.Uint32()
	if err != nil {
		return "", err
	}
	if d.off+int(n) > len(d.buf) {
		return "", fmt.Errorf("wlwire: decode string: truncated")
	}
	s := string(d.buf[d.off : d.off+int(n)-1]) // drop nul terminator
	d.off += int(n)
	d.skipPad(int(n))
	return s, nil
}

func (d *Decoder) Array() ([]byte, error) {
	n, err := d.Uint32()
	if err != nil {
		return nil, err
	}
	if d.off+int(n) > len(d.buf) {
		return nil, fmt.Errorf("wlwire: decode array: truncated")
	}
	out := make([]byte, n)
	copy(out, d.buf[d.off:d.off+int(n)])
	d.off += int(n)
	d.skipPad(int(n))
	return out, nil
}

func (d *Decoder) skipPad(n int) {
	if rem := n % 4; rem != 0 {
		d.off += 4 - rem
	}
}
