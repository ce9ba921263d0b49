// Package rfb implements an RFB 3.8 (VNC) server: handshake, VNC
// Authentication, SetPixelFormat/SetEncodings, FramebufferUpdateRequest/
// Update with Raw, CopyRect, and DesktopSize pseudo-encoding, and
// KeyEvent/PointerEvent. Wire framing is grounded on the encoding type
// tables and rectangle-header shape used by
// other_examples/amitbet-vnc2video__encoding.go and
// other_examples/tenthirtyam-go-vnc__encoding_desktop_size.go, rewritten
// server-side: this module only ever writes rectangles, never decodes
// them.
package rfb

// ProtocolVersion is the only version this server speaks.
const ProtocolVersion = "RFB 003.008\n"

// Security types (RFB §7.2.1). This server supports exactly one.
const (
	SecurityTypeInvalid = 0
	SecurityTypeNone    = 1
	SecurityTypeVNCAuth = 2
)

// SecurityResult values (RFB §7.2.2).
const (
	SecurityResultOK     uint32 = 0
	SecurityResultFailed uint32 = 1
)

// Client-to-server message types (RFB §7.5).
const (
	MsgSetPixelFormat        = 0
	MsgSetEncodings          = 2
	MsgFramebufferUpdateReq  = 3
	MsgKeyEvent              = 4
	MsgPointerEvent          = 5
	MsgClientCutText         = 6
)

// Server-to-client message types (RFB §7.6).
const (
	MsgFramebufferUpdate = 0
	MsgBell              = 2
	MsgServerCutText     = 3
)

// Encoding type identifiers (RFB §7.7, matching
// other_examples/amitbet-vnc2video__encoding.go's EncodingType table).
const (
	EncodingRaw         int32 = 0
	EncodingCopyRect     int32 = 1
	EncodingDesktopSize int32 = -223
)

// PixelFormat mirrors RFB's 16-byte PIXEL_FORMAT structure. This server
// always advertises 32-bit BGRA to match the renderer's native readback
// format (spec.md §6 GL upload format default).
type PixelFormat struct {
	BitsPerPixel  uint8
	Depth         uint8
	BigEndian     uint8
	TrueColor     uint8
	RedMax        uint16
	GreenMax      uint16
	BlueMax       uint16
	RedShift      uint8
	GreenShift    uint8
	BlueShift     uint8
	_             [3]byte // padding
}

// DefaultPixelFormat is BGRA8888: red/green/blue max 255, shifts matching
// little-endian B,G,R,A byte order (the renderer's ReadPixels format).
var DefaultPixelFormat = PixelFormat{
	BitsPerPixel: 32,
	Depth:        24,
	BigEndian:    0,
	TrueColor:    1,
	RedMax:       255,
	GreenMax:     255,
	BlueMax:      255,
	RedShift:     16,
	GreenShift:   8,
	BlueShift:    0,
}
