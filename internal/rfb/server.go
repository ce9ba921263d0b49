package rfb

import (
	"fmt"
	"net"
	"sync"

	"github.com/rfbwld/rfbwld/internal/logger"
)

// Geometry describes the session's current framebuffer size; the session
// package updates it on resize and the server advertises it at
// ServerInit/DesktopSize time.
type Geometry struct {
	Width, Height uint32
}

// Server is a single-client RFB 3.8 listener (SPEC_FULL.md design notes:
// max_clients=1). Grounded on internal/network/ssh_server.go's
// accept-loop-plus-per-connection-goroutine shape, adapted from SSH
// framing to RFB framing.
type Server struct {
	listener net.Listener
	secret   string
	name     string
	geometry Geometry
	source   FramebufferSource

	mu          sync.Mutex
	activeConn  *clientConn
	onKeyEvent  func(keysym uint32, down bool)
	onPointer   func(x, y uint32, buttonMask uint8)
	onResizeReq func(width, height uint32) // currently unused, reserved for client-initiated resize negotiation
}

// FramebufferSource supplies pixel data on demand; implemented by
// internal/session's renderer adapter.
type FramebufferSource interface {
	// CopyInto fills dst (already sized rect.W*rect.H*4 bytes, BGRA8888)
	// with the current framebuffer content for rect.
	CopyInto(dst []byte, rect Rect) error
	Stride() uint32
}

func NewServer(listenAddr string, secret, name string, geometry Geometry, source FramebufferSource) (*Server, error) {
	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return nil, fmt.Errorf("rfb: listen %s: %w", listenAddr, err)
	}
	return &Server{listener: ln, secret: secret, name: name, geometry: geometry, source: source}, nil
}

func (s *Server) Addr() net.Addr { return s.listener.Addr() }

// OnKeyEvent registers the callback invoked for every KeyEvent message.
func (s *Server) OnKeyEvent(fn func(keysym uint32, down bool)) { s.onKeyEvent = fn }

// OnPointerEvent registers the callback invoked for every PointerEvent
// message.
func (s *Server) OnPointerEvent(fn func(x, y uint32, buttonMask uint8)) { s.onPointer = fn }

// Serve accepts connections until the listener is closed. Only one client
// may be active at a time; while one is active, any further connection is
// closed as soon as it is accepted, before any handshake bytes are sent.
func (s *Server) Serve() error {
	for {
		nc, err := s.listener.Accept()
		if err != nil {
			return err
		}
		s.handleAccept(nc)
	}
}

func (s *Server) Close() error { return s.listener.Close() }

// Viewer reports the remote address of the currently active client, if any.
func (s *Server) Viewer() (addr string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeConn == nil {
		return "", false
	}
	return s.activeConn.conn.RemoteAddr().String(), true
}

func (s *Server) handleAccept(nc net.Conn) {
	s.mu.Lock()
	if s.activeConn != nil {
		s.mu.Unlock()
		logger.Warnf("rfb: rejecting connection from %s, a client is already active", nc.RemoteAddr())
		_ = nc.Close()
		return
	}
	cc := &clientConn{conn: nc, server: s}
	s.activeConn = cc
	s.mu.Unlock()

	go func() {
		if err := cc.serve(); err != nil {
			logger.Warnf("rfb: client %s disconnected: %v", nc.RemoteAddr(), err)
		}
		s.mu.Lock()
		if s.activeConn == cc {
			s.activeConn = nil
		}
		s.mu.Unlock()
		_ = nc.Close()
	}()
}

// Resize updates the server's advertised geometry and, if a client is
// connected, forces a full update by sending a DesktopSize pseudo-rectangle
// followed by one Raw rectangle covering the whole new framebuffer (spec.md
// §8 testable property: resize forces a full update).
func (s *Server) Resize(width, height uint32) error {
	s.mu.Lock()
	s.geometry = Geometry{Width: width, Height: height}
	cc := s.activeConn
	s.mu.Unlock()
	if cc == nil {
		return nil
	}
	return cc.pushResize(width, height)
}

// PushUpdate sends a FramebufferUpdate containing one Raw rectangle per
// entry in damage, sourced from the current FramebufferSource. No-op if no
// client is connected or the client hasn't requested an update.
func (s *Server) PushUpdate(damage []Rect) error {
	s.mu.Lock()
	cc := s.activeConn
	s.mu.Unlock()
	if cc == nil {
		return nil
	}
	return cc.pushUpdate(damage)
}
