package rfb

import (
	"bufio"
	"fmt"
	"net"
	"sync"

	"github.com/rfbwld/rfbwld/internal/logger"
)

// clientConn is the per-connection state machine: handshake once, then a
// read loop for client-to-server messages. Writes (FramebufferUpdate) can
// arrive concurrently from the capture pump's goroutine, so writes are
// serialized by writeMu; net.Conn itself permits concurrent Read/Write.
type clientConn struct {
	conn   net.Conn
	server *Server
	r      *bufio.Reader

	writeMu sync.Mutex

	pixelFormat     PixelFormat
	encodings       map[int32]bool
	updateRequested bool
	incremental     bool
}

func (c *clientConn) serve() error {
	c.r = bufio.NewReader(c.conn)
	c.pixelFormat = DefaultPixelFormat
	c.encodings = map[int32]bool{EncodingRaw: true}

	if err := c.handshake(); err != nil {
		return fmt.Errorf("handshake: %w", err)
	}

	for {
		msgType, err := readUint8(c.r)
		if err != nil {
			return err
		}
		if err := c.handleMessage(msgType); err != nil {
			return err
		}
	}
}

func (c *clientConn) handshake() error {
	if _, err := c.conn.Write([]byte(ProtocolVersion)); err != nil {
		return err
	}
	clientVersion := make([]byte, len(ProtocolVersion))
	if _, err := readFull(c.r, clientVersion); err != nil {
		return err
	}

	if err := writeUint8(c.conn, 1); err != nil { // number-of-security-types
		return err
	}
	if err := writeUint8(c.conn, SecurityTypeVNCAuth); err != nil {
		return err
	}

	chosen, err := readUint8(c.r)
	if err != nil {
		return err
	}
	if chosen != SecurityTypeVNCAuth {
		_ = writeUint32(c.conn, SecurityResultFailed)
		return fmt.Errorf("client chose unsupported security type %d", chosen)
	}

	if err := vncAuthenticate(c.connReadWriter(), c.server.secret); err != nil {
		_ = writeUint32(c.conn, SecurityResultFailed)
		return err
	}
	if err := writeUint32(c.conn, SecurityResultOK); err != nil {
		return err
	}

	// ClientInit: one byte, shared-flag. This server ignores it since it
	// only ever serves one client.
	if _, err := readUint8(c.r); err != nil {
		return err
	}

	// ServerInit.
	geom := c.server.geometry
	if err := writeUint16(c.conn, uint16(geom.Width)); err != nil {
		return err
	}
	if err := writeUint16(c.conn, uint16(geom.Height)); err != nil {
		return err
	}
	if err := writePixelFormat(c.conn, DefaultPixelFormat); err != nil {
		return err
	}
	return writeString32(c.conn, c.server.name)
}

// connReadWriter exposes the buffered reader alongside the raw conn for
// auth, since the challenge response must come through the same buffered
// stream as everything else.
type bufferedReadWriter struct {
	r *bufio.Reader
	w net.Conn
}

func (b bufferedReadWriter) Read(p []byte) (int, error)  { return b.r.Read(p) }
func (b bufferedReadWriter) Write(p []byte) (int, error) { return b.w.Write(p) }

func (c *clientConn) connReadWriter() readWriter {
	return bufferedReadWriter{r: c.r, w: c.conn}
}

func (c *clientConn) handleMessage(msgType uint8) error {
	switch msgType {
	case MsgSetPixelFormat:
		return c.handleSetPixelFormat()
	case MsgSetEncodings:
		return c.handleSetEncodings()
	case MsgFramebufferUpdateReq:
		return c.handleFramebufferUpdateRequest()
	case MsgKeyEvent:
		return c.handleKeyEvent()
	case MsgPointerEvent:
		return c.handlePointerEvent()
	case MsgClientCutText:
		return c.handleClientCutText()
	default:
		return fmt.Errorf("rfb: unknown message type %d", msgType)
	}
}

func (c *clientConn) handleSetPixelFormat() error {
	if err := drainPadded(c.r, 3); err != nil {
		return err
	}
	pf, err := readPixelFormat(c.r)
	if err != nil {
		return err
	}
	c.pixelFormat = pf
	logger.Debugf("rfb: client requested pixel format bpp=%d depth=%d", pf.BitsPerPixel, pf.Depth)
	return nil
}

func (c *clientConn) handleSetEncodings() error {
	if err := drainPadded(c.r, 1); err != nil {
		return err
	}
	count, err := readUint16(c.r)
	if err != nil {
		return err
	}
	encodings := make(map[int32]bool, count)
	for i := uint16(0); i < count; i++ {
		enc, err := readInt32(c.r)
		if err != nil {
			return err
		}
		encodings[enc] = true
	}
	c.encodings = encodings
	return nil
}

func (c *clientConn) handleFramebufferUpdateRequest() error {
	incremental, err := readUint8(c.r)
	if err != nil {
		return err
	}
	// x, y, w, h: this server always answers with its own damage region
	// rather than honoring a sub-rectangle request (single-viewer scope,
	// SPEC_FULL.md design notes).
	for i := 0; i < 4; i++ {
		if _, err := readUint16(c.r); err != nil {
			return err
		}
	}
	c.updateRequested = true
	c.incremental = incremental != 0
	return nil
}

func (c *clientConn) handleKeyEvent() error {
	downFlag, err := readUint8(c.r)
	if err != nil {
		return err
	}
	if err := drainPadded(c.r, 2); err != nil {
		return err
	}
	keysym, err := readUint32(c.r)
	if err != nil {
		return err
	}
	if c.server.onKeyEvent != nil {
		c.server.onKeyEvent(keysym, downFlag != 0)
	}
	return nil
}

func (c *clientConn) handlePointerEvent() error {
	buttonMask, err := readUint8(c.r)
	if err != nil {
		return err
	}
	x, err := readUint16(c.r)
	if err != nil {
		return err
	}
	y, err := readUint16(c.r)
	if err != nil {
		return err
	}
	if c.server.onPointer != nil {
		c.server.onPointer(uint32(x), uint32(y), buttonMask)
	}
	return nil
}

func (c *clientConn) handleClientCutText() error {
	if err := drainPadded(c.r, 3); err != nil {
		return err
	}
	length, err := readUint32(c.r)
	if err != nil {
		return err
	}
	return drainPadded(c.r, int(length))
}

func (c *clientConn) pushUpdate(damage []Rect) error {
	if !c.updateRequested || len(damage) == 0 {
		return nil
	}
	c.updateRequested = false

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := writeUint8(c.conn, MsgFramebufferUpdate); err != nil {
		return err
	}
	if err := drainPaddedWrite(c.conn, 1); err != nil {
		return err
	}
	if err := writeUint16(c.conn, uint16(len(damage))); err != nil {
		return err
	}

	for _, rect := range damage {
		buf := make([]byte, rect.W*rect.H*4)
		if err := c.server.source.CopyInto(buf, rect); err != nil {
			return err
		}
		// buf holds only this rectangle's rows, so it is written as-is
		// after the header rather than through writeRawRect, which
		// indexes a full framebuffer.
		if err := writeRectHeader(c.conn, rect, EncodingRaw); err != nil {
			return err
		}
		if _, err := c.conn.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

// pushResize forces a full-framebuffer Raw update behind a DesktopSize
// pseudo-rectangle (spec.md §8 testable property 8).
func (c *clientConn) pushResize(width, height uint32) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := writeUint8(c.conn, MsgFramebufferUpdate); err != nil {
		return err
	}
	if err := drainPaddedWrite(c.conn, 1); err != nil {
		return err
	}
	if err := writeUint16(c.conn, 2); err != nil { // DesktopSize + one full Raw rect
		return err
	}
	if err := writeDesktopSizeRect(c.conn, width, height); err != nil {
		return err
	}

	full := Rect{W: width, H: height}
	buf := make([]byte, width*height*4)
	if err := c.server.source.CopyInto(buf, full); err != nil {
		return err
	}
	c.updateRequested = false
	return writeRawRect(c.conn, full, buf, width*4, 4)
}

func drainPaddedWrite(w net.Conn, n int) error {
	_, err := w.Write(make([]byte, n))
	return err
}
