// Package wlwire implements the low-level Wayland wire protocol: object
// registration, request/event framing, and fd passing over the compositor
// unix socket. It plays the same role wlturbo/wl plays for the teacher's
// virtual-keyboard bindings (internal/protocols/virtual_keyboard.go) —
// BaseProxy, Context-style SendRequest/SendRequestWithFDs, AllocateID,
// Register/Unregister, Dispatch(event) — generalized here to also drive the
// screencopy and export-dmabuf protocol objects this module needs and that
// no vendored client library in the example pack provides.
package wlwire

import (
	"encoding/binary"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"
)

// Proxy is any Wayland protocol object capable of receiving dispatched
// events for its own ID.
type Proxy interface {
	ID() uint32
	Dispatch(ev *Event)
}

// BaseProxy is embedded by every generated-style protocol object; it
// supplies ID bookkeeping the way wl.BaseProxy does in the teacher's
// binding style.
type BaseProxy struct {
	id   uint32
	conn *Conn
}

func (p *BaseProxy) ID() uint32        { return p.id }
func (p *BaseProxy) SetID(id uint32)   { p.id = id }
func (p *BaseProxy) Conn() *Conn       { return p.conn }

// Dispatch is a no-op default; objects that never receive events (e.g. the
// display and registry proxies used only as SendRequest targets) embed
// BaseProxy without overriding it.
func (p *BaseProxy) Dispatch(ev *Event) {}
func (p *BaseProxy) SetConn(c *Conn)   { p.conn = c }

// Event is a decoded incoming message: the sender's object id, the event
// opcode, and the still-encoded argument bytes plus any fds that arrived
// alongside it.
type Event struct {
	Sender uint32
	Opcode uint16
	Args   *Decoder
	FDs    []int
}

// Conn owns the unix socket connection to the compositor and the table of
// live objects.
type Conn struct {
	sock *net.UnixConn

	// pending holds bytes read from the socket that have not yet been
	// consumed into a full message, and fdQueue holds fds received via
	// SCM_RIGHTS that have not yet been claimed by an event argument.
	// Real Wayland client libraries queue fds the same way: a read
	// syscall may return ancillary data attached to the start of a
	// buffer that spans several logical messages.
	pending []byte
	fdQueue []int

	mu      sync.Mutex
	nextID  uint32
	objects map[uint32]Proxy
}

// Dial connects to the compositor socket named by WAYLAND_DISPLAY inside
// XDG_RUNTIME_DIR (falling back to the default "wayland-0").
func Dial() (*Conn, error) {
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDir == "" {
		return nil, fmt.Errorf("wlwire: XDG_RUNTIME_DIR not set")
	}
	name := os.Getenv("WAYLAND_DISPLAY")
	if name == "" {
		name = "wayland-0"
	}
	path := name
	if !filepath.IsAbs(name) {
		path = filepath.Join(runtimeDir, name)
	}

	addr := &net.UnixAddr{Name: path, Net: "unix"}
	sock, err := net.DialUnix("unix", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("wlwire: dial %s: %w", path, err)
	}

	c := &Conn{
		sock:    sock,
		nextID:  2, // id 1 is wl_display
		objects: make(map[uint32]Proxy),
	}
	return c, nil
}

// Close closes the underlying socket.
func (c *Conn) Close() error {
	return c.sock.Close()
}

// AllocateID reserves the next client-side object id.
func (c *Conn) AllocateID() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	return id
}

// Register associates a proxy with its ID so incoming events can be
// dispatched to it.
func (c *Conn) Register(p Proxy) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.objects[p.ID()] = p
}

// Unregister removes a proxy; further events for its ID are dropped with a
// log-worthy warning at the call site, not here (this package stays
// logging-agnostic).
func (c *Conn) Unregister(p Proxy) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.objects, p.ID())
}

// Lookup returns the proxy registered for id, if any.
func (c *Conn) Lookup(id uint32) (Proxy, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.objects[id]
	return p, ok
}

// SendRequest marshals and sends a request with no attached file
// descriptors. enc must already contain the request's argument bytes.
func (c *Conn) SendRequest(p Proxy, opcode uint16, enc *Encoder) error {
	return c.send(p.ID(), opcode, enc.Bytes(), nil)
}

// SendRequestWithFDs sends a request whose argument list also transfers
// file descriptors via SCM_RIGHTS, ordered the way they appear in the
// request signature.
func (c *Conn) SendRequestWithFDs(p Proxy, opcode uint16, fds []int, enc *Encoder) error {
	return c.send(p.ID(), opcode, enc.Bytes(), fds)
}

func (c *Conn) send(objID uint32, opcode uint16, body []byte, fds []int) error {
	size := uint32(8 + len(body))
	header := make([]byte, 8)
	binary.LittleEndian.PutUint32(header[0:4], objID)
	binary.LittleEndian.PutUint16(header[4:6], opcode)
	binary.LittleEndian.PutUint16(header[6:8], uint16(size))

	msg := append(header, body...)

	if len(fds) == 0 {
		_, err := c.sock.Write(msg)
		return err
	}

	rights := unix.UnixRights(fds...)
	_, _, err := c.sock.WriteMsgUnix(msg, rights, nil)
	return err
}

// Step reads and dispatches exactly one message, blocking until one
// arrives. Callers that need to interleave dispatch with other work (a
// setup-time roundtrip, a select loop) call this directly instead of Run.
func (c *Conn) Step() error {
	ev, err := c.readMessage()
	if err != nil {
		return err
	}
	if p, ok := c.Lookup(ev.Sender); ok {
		p.Dispatch(ev)
	}
	return nil
}

// Run reads messages until the connection closes or stop is closed,
// dispatching each to its registered proxy. It is meant to run on the
// single event-loop goroutine (spec.md §5): there is no internal locking
// beyond the object table because only this goroutine ever calls Step/Run,
// so no two calls to either may be in flight at once on the same Conn.
func (c *Conn) Run(stop <-chan struct{}) error {
	for {
		select {
		case <-stop:
			return nil
		default:
		}
		if err := c.Step(); err != nil {
			return err
		}
	}
}

// fillPending reads one syscall's worth of data (and any fds riding along
// with it via SCM_RIGHTS) and appends them to the connection's queues.
func (c *Conn) fillPending() error {
	buf := make([]byte, 1<<16)
	oob := make([]byte, unix.CmsgSpace(64*4))

	n, oobn, _, _, err := c.sock.ReadMsgUnix(buf, oob)
	if err != nil {
		return err
	}
	c.pending = append(c.pending, buf[:n]...)

	if oobn > 0 {
		cmsgs, err := unix.ParseSocketControlMessage(oob[:oobn])
		if err == nil {
			for _, cm := range cmsgs {
				fds, err := unix.ParseUnixRights(&cm)
				if err == nil {
					c.fdQueue = append(c.fdQueue, fds...)
				}
			}
		}
	}
	return nil
}

// TakeFD pops the next fd received via SCM_RIGHTS, in arrival order. Event
// handlers for requests/events with an fd argument (export-dmabuf's
// object() event, virtual-keyboard's keymap() request on the receiving
// side) call this once per fd in their signature.
func (c *Conn) TakeFD() (int, bool) {
	if len(c.fdQueue) == 0 {
		return -1, false
	}
	fd := c.fdQueue[0]
	c.fdQueue = c.fdQueue[1:]
	return fd, true
}

func (c *Conn) readMessage() (*Event, error) {
	for len(c.pending) < 8 {
		if err := c.fillPending(); err != nil {
			return nil, err
		}
	}
	header := c.pending[:8]
	sender := binary.LittleEndian.Uint32(header[0:4])
	opcode := binary.LittleEndian.Uint16(header[4:6])
	size := binary.LittleEndian.Uint16(header[6:8])

	if int(size) < 8 {
		return nil, fmt.Errorf("wlwire: invalid message size %d", size)
	}
	for len(c.pending) < int(size) {
		if err := c.fillPending(); err != nil {
			return nil, err
		}
	}

	body := make([]byte, int(size)-8)
	copy(body, c.pending[8:size])
	c.pending = c.pending[size:]

	return &Event{
		Sender: sender,
		Opcode: opcode,
		Args:   NewDecoder(body),
	}, nil
}
