package rfb

import (
	"net"
	"testing"
	"time"
)

type fakeSource struct {
	width, height uint32
	fill          byte
}

func (f *fakeSource) Stride() uint32 { return f.width * 4 }

func (f *fakeSource) CopyInto(dst []byte, rect Rect) error {
	for i := range dst {
		dst[i] = f.fill
	}
	return nil
}

func dialAndHandshake(t *testing.T, addr net.Addr, secret string) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", addr.String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	version := make([]byte, len(ProtocolVersion))
	if _, err := readFull(conn, version); err != nil {
		t.Fatalf("read server version: %v", err)
	}
	if _, err := conn.Write([]byte(ProtocolVersion)); err != nil {
		t.Fatalf("write client version: %v", err)
	}

	numTypes, err := readUint8(conn)
	if err != nil {
		t.Fatalf("read num security types: %v", err)
	}
	types := make([]byte, numTypes)
	if _, err := readFull(conn, types); err != nil {
		t.Fatalf("read security types: %v", err)
	}
	if err := writeUint8(conn, SecurityTypeVNCAuth); err != nil {
		t.Fatalf("write chosen security type: %v", err)
	}

	challenge := make([]byte, challengeSize)
	if _, err := readFull(conn, challenge); err != nil {
		t.Fatalf("read challenge: %v", err)
	}
	response, err := desEncryptChallenge(challenge, secret)
	if err != nil {
		t.Fatalf("encrypt challenge: %v", err)
	}
	if _, err := conn.Write(response); err != nil {
		t.Fatalf("write response: %v", err)
	}

	result, err := readUint32(conn)
	if err != nil {
		t.Fatalf("read security result: %v", err)
	}
	if result != SecurityResultOK {
		t.Fatalf("security result = %d, want ok", result)
	}

	if err := writeUint8(conn, 1); err != nil { // ClientInit shared-flag
		t.Fatalf("write client init: %v", err)
	}

	if _, err := readUint16(conn); err != nil { // width
		t.Fatalf("read server init width: %v", err)
	}
	if _, err := readUint16(conn); err != nil { // height
		t.Fatalf("read server init height: %v", err)
	}
	if _, err := readPixelFormat(conn); err != nil {
		t.Fatalf("read server init pixel format: %v", err)
	}
	nameLen, err := readUint32(conn)
	if err != nil {
		t.Fatalf("read name length: %v", err)
	}
	name := make([]byte, nameLen)
	if _, err := readFull(conn, name); err != nil {
		t.Fatalf("read name: %v", err)
	}

	return conn
}

func newTestServer(t *testing.T, secret string, src FramebufferSource) *Server {
	t.Helper()
	srv, err := NewServer("127.0.0.1:0", secret, "test desktop", Geometry{Width: 4, Height: 4}, src)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	go func() {
		_ = srv.Serve()
	}()
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func TestHandshakeSucceedsWithCorrectSecret(t *testing.T) {
	srv := newTestServer(t, "correctsecret", &fakeSource{width: 4, height: 4})
	conn := dialAndHandshake(t, srv.Addr(), "correctsecret")
	defer conn.Close()
}

func TestSecondConnectionRejectedWhileClientActive(t *testing.T) {
	srv := newTestServer(t, "s", &fakeSource{width: 4, height: 4})
	first := dialAndHandshake(t, srv.Addr(), "s")
	defer first.Close()

	second, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer second.Close()

	second.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1)
	if n, err := second.Read(buf); n != 0 && err == nil {
		t.Fatalf("expected rejected second connection to be closed without data, got %d bytes", n)
	}
}

func TestKeyEventInvokesCallback(t *testing.T) {
	srv := newTestServer(t, "s", &fakeSource{width: 4, height: 4})

	type event struct {
		keysym uint32
		down   bool
	}
	events := make(chan event, 1)
	srv.OnKeyEvent(func(keysym uint32, down bool) {
		events <- event{keysym, down}
	})

	conn := dialAndHandshake(t, srv.Addr(), "s")
	defer conn.Close()

	if err := writeUint8(conn, MsgKeyEvent); err != nil {
		t.Fatal(err)
	}
	if err := writeUint8(conn, 1); err != nil { // down
		t.Fatal(err)
	}
	if err := drainPaddedWrite(conn, 2); err != nil {
		t.Fatal(err)
	}
	if err := writeUint32(conn, 0x61); err != nil { // 'a'
		t.Fatal(err)
	}

	select {
	case ev := <-events:
		if ev.keysym != 0x61 || !ev.down {
			t.Errorf("got event %+v, want keysym=0x61 down=true", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for key event")
	}
}

func TestPointerEventInvokesCallback(t *testing.T) {
	srv := newTestServer(t, "s", &fakeSource{width: 4, height: 4})

	type event struct {
		x, y uint32
		mask uint8
	}
	events := make(chan event, 1)
	srv.OnPointerEvent(func(x, y uint32, buttonMask uint8) {
		events <- event{x, y, buttonMask}
	})

	conn := dialAndHandshake(t, srv.Addr(), "s")
	defer conn.Close()

	if err := writeUint8(conn, MsgPointerEvent); err != nil {
		t.Fatal(err)
	}
	if err := writeUint8(conn, 0x01); err != nil { // left button
		t.Fatal(err)
	}
	if err := writeUint16(conn, 10); err != nil {
		t.Fatal(err)
	}
	if err := writeUint16(conn, 20); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-events:
		if ev.x != 10 || ev.y != 20 || ev.mask != 0x01 {
			t.Errorf("got event %+v, want x=10 y=20 mask=0x01", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for pointer event")
	}
}

func TestFramebufferUpdateRequestThenPushUpdate(t *testing.T) {
	srv := newTestServer(t, "s", &fakeSource{width: 4, height: 4, fill: 0x7F})

	conn := dialAndHandshake(t, srv.Addr(), "s")
	defer conn.Close()

	if err := writeUint8(conn, MsgFramebufferUpdateReq); err != nil {
		t.Fatal(err)
	}
	if err := writeUint8(conn, 0); err != nil { // incremental
		t.Fatal(err)
	}
	for i := 0; i < 4; i++ {
		if err := writeUint16(conn, 0); err != nil {
			t.Fatal(err)
		}
	}

	// Give the server a moment to process the request before pushing.
	time.Sleep(50 * time.Millisecond)

	damage := []Rect{{X: 0, Y: 0, W: 2, H: 2}}
	if err := srv.PushUpdate(damage); err != nil {
		t.Fatalf("PushUpdate: %v", err)
	}

	msgType, err := readUint8(conn)
	if err != nil {
		t.Fatalf("read message type: %v", err)
	}
	if msgType != MsgFramebufferUpdate {
		t.Fatalf("message type = %d, want FramebufferUpdate", msgType)
	}
	if err := drainPadded(conn, 1); err != nil {
		t.Fatal(err)
	}
	rectCount, err := readUint16(conn)
	if err != nil {
		t.Fatal(err)
	}
	if rectCount != 1 {
		t.Fatalf("rect count = %d, want 1", rectCount)
	}

	for i := 0; i < 4; i++ {
		if _, err := readUint16(conn); err != nil {
			t.Fatal(err)
		}
	}
	encoding, err := readInt32(conn)
	if err != nil {
		t.Fatal(err)
	}
	if encoding != EncodingRaw {
		t.Fatalf("encoding = %d, want Raw", encoding)
	}

	pixels := make([]byte, 2*2*4)
	if _, err := readFull(conn, pixels); err != nil {
		t.Fatal(err)
	}
	for _, b := range pixels {
		if b != 0x7F {
			t.Fatalf("pixel byte = %#x, want 0x7f", b)
		}
	}
}
