// Package wlclient handles compositor bring-up: connecting to the Wayland
// display, walking the registry, and tracking the outputs and seat the
// capture and input-injection subsystems need. It plays the same role
// internal/wayland/wayland.go plays in the teacher: a thin, largely
// boilerplate layer the interesting subsystems sit on top of.
package wlclient

import (
	"fmt"

	"github.com/rfbwld/rfbwld/internal/logger"
	"github.com/rfbwld/rfbwld/internal/wlwire"
)

// wl_display opcodes.
const (
	displayOpSync         uint16 = 0
	displayOpGetRegistry  uint16 = 1
	displayEvError        uint16 = 0
	displayEvDeleteID     uint16 = 1
)

// wl_registry opcodes.
const (
	registryOpBind        uint16 = 0
	registryEvGlobal      uint16 = 0
	registryEvGlobalRemove uint16 = 1
)

// wl_output events.
const (
	outputEvGeometry uint16 = 0
	outputEvMode     uint16 = 1
	outputEvScale    uint16 = 3
)

// outputModeCurrent is the only wl_output.mode.flags bit this module cares
// about: the mode actually in use, as opposed to one merely supported.
const outputModeCurrent uint32 = 0x1

// Output describes a compositor output (monitor) this process can target
// for capture.
type Output struct {
	Name      uint32
	Width     int32
	Height    int32
	Scale     int32
	Transform int32
}

// Global is a single advertised registry entry, kept around so callers can
// bind protocol managers by interface name/version without a second
// roundtrip.
type Global struct {
	Name      uint32
	Interface string
	Version   uint32
}

// Client owns the display connection and the registry snapshot. All setup
// (Connect, Bind, BindOutput, Roundtrip) dispatches events synchronously on
// the calling goroutine via Conn.Step; nothing here spawns a goroutine.
// Once setup is done, the caller drives the connection's long-lived event
// loop itself via Conn().Run, on the single pump goroutine spec.md §5
// describes — the same goroutine that must hold the render package's EGL
// context current.
type Client struct {
	conn     *wlwire.Conn
	display  *wlwire.BaseProxy
	registry *wlwire.BaseProxy

	globals       map[string]Global
	outputs       map[uint32]*Output
	outputGlobals map[uint32]Global
	seatID        uint32
}

// Connect dials the compositor and performs one registry roundtrip so
// Globals/Outputs are populated before it returns.
func Connect() (*Client, error) {
	conn, err := wlwire.Dial()
	if err != nil {
		return nil, fmt.Errorf("wlclient: %w", err)
	}

	c := &Client{
		conn:          conn,
		display:       &wlwire.BaseProxy{},
		globals:       make(map[string]Global),
		outputs:       make(map[uint32]*Output),
		outputGlobals: make(map[uint32]Global),
	}
	c.display.SetID(1)
	c.display.SetConn(conn)

	c.registry = &wlwire.BaseProxy{}
	c.registry.SetID(conn.AllocateID())
	c.registry.SetConn(conn)
	conn.Register(&registryDispatcher{Client: c})

	enc := wlwire.NewEncoder().Uint32(c.registry.ID())
	if err := conn.SendRequest(c.display, displayOpGetRegistry, enc); err != nil {
		conn.Close()
		return nil, fmt.Errorf("wlclient: get_registry: %w", err)
	}

	if err := c.roundtrip(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("wlclient: initial roundtrip: %w", err)
	}

	return c, nil
}

// Close disconnects from the compositor. If the pump goroutine is blocked
// in Conn().Run, closing the socket unblocks its read with an error, the
// standard way to cancel a goroutine parked in a syscall.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Conn exposes the underlying wire connection for protocol packages (e.g.
// wlproto) that bind extension managers against this client's registry,
// and for the caller to drive the long-lived event loop via Conn().Run
// once setup is complete.
func (c *Client) Conn() *wlwire.Conn { return c.conn }

// Globals returns the registry snapshot collected during Connect.
func (c *Client) Globals() map[string]Global {
	return c.globals
}

// Outputs returns the outputs discovered during Connect.
func (c *Client) Outputs() map[uint32]*Output {
	return c.outputs
}

// roundtrip sends wl_display.sync and steps the connection, dispatching one
// message at a time on the calling goroutine, until the resulting callback
// fires — the same synchronization primitive internal/wayland/wayland.go
// relies on (display.Roundtrip()) to know a batch of requests' events has
// been fully delivered. Must only be called before the long-lived pump
// goroutine starts calling Conn().Run, since both drive the same read side.
func (c *Client) roundtrip() error {
	cbID := c.conn.AllocateID()
	done := make(chan struct{}, 1)
	c.conn.Register(&callbackDispatcher{id: cbID, done: done})

	enc := wlwire.NewEncoder().Uint32(cbID)
	if err := c.conn.SendRequest(c.display, displayOpSync, enc); err != nil {
		return err
	}

	for {
		select {
		case <-done:
			return nil
		default:
		}
		if err := c.conn.Step(); err != nil {
			return err
		}
	}
}

// registryDispatcher handles wl_registry events and feeds the Client's
// global/output tables.
type registryDispatcher struct {
	*Client
}

func (r *registryDispatcher) ID() uint32 { return r.registry.ID() }

func (r *registryDispatcher) Dispatch(ev *wlwire.Event) {
	switch ev.Opcode {
	case registryEvGlobal:
		name, _ := ev.Args.Uint32()
		iface, _ := ev.Args.String()
		version, _ := ev.Args.Uint32()
		r.globals[iface] = Global{Name: name, Interface: iface, Version: version}
		if iface == "wl_output" {
			r.outputs[name] = &Output{Name: name}
			r.outputGlobals[name] = Global{Name: name, Interface: iface, Version: version}
		}
		if iface == "wl_seat" {
			r.seatID = name
		}
	case registryEvGlobalRemove:
		name, _ := ev.Args.Uint32()
		delete(r.outputs, name)
		logger.Debugf("wlclient: global %d removed", name)
	}
}

// Bind requests the compositor create a new object bound to the registry
// global named by iface, under the caller-allocated client-side id newID.
// version is capped at the version the compositor advertised.
func (c *Client) Bind(iface string, version uint32, newID uint32) error {
	g, ok := c.globals[iface]
	if !ok {
		return fmt.Errorf("wlclient: compositor does not advertise %s", iface)
	}
	if version > g.Version {
		version = g.Version
	}
	enc := wlwire.NewEncoder().
		Uint32(g.Name).
		String(iface).
		Uint32(version).
		Uint32(newID)
	return c.conn.SendRequest(c.registry, registryOpBind, enc)
}

// SeatID returns the registry name of the first wl_seat advertised; the
// virtual-keyboard and virtual-pointer managers bind their devices to this
// seat (spec.md §6 has exactly one seat in scope).
func (c *Client) SeatID() uint32 { return c.seatID }

// Roundtrip flushes every request sent so far and blocks until the
// compositor has processed them (see roundtrip); exported so callers can
// batch several Bind/BindOutput calls and wait on all of them at once,
// rather than paying a roundtrip per bind.
func (c *Client) Roundtrip() error { return c.roundtrip() }

// BindOutput binds the wl_output global named by outputName, registering a
// dispatcher that fills in Width/Height/Scale/Transform from the
// geometry/mode/scale events. Unlike Bind, this goes by explicit registry
// name rather than c.globals (which only remembers one Global per
// interface string and can't disambiguate multiple outputs). The caller
// must call Roundtrip afterwards before reading the returned Output's
// fields.
func (c *Client) BindOutput(outputName uint32) (*Output, error) {
	g, ok := c.outputGlobals[outputName]
	if !ok {
		return nil, fmt.Errorf("wlclient: no such output %d", outputName)
	}
	out, ok := c.outputs[outputName]
	if !ok {
		return nil, fmt.Errorf("wlclient: no such output %d", outputName)
	}

	version := g.Version
	if version > 3 {
		version = 3
	}
	id := c.conn.AllocateID()
	c.conn.Register(&outputDispatcher{id: id, out: out})

	enc := wlwire.NewEncoder().
		Uint32(g.Name).
		String("wl_output").
		Uint32(version).
		Uint32(id)
	if err := c.conn.SendRequest(c.registry, registryOpBind, enc); err != nil {
		return nil, fmt.Errorf("wlclient: bind output %d: %w", outputName, err)
	}
	return out, nil
}

// outputDispatcher fills in an already-tracked Output's geometry as
// wl_output events arrive.
type outputDispatcher struct {
	id  uint32
	out *Output
}

func (o *outputDispatcher) ID() uint32 { return o.id }

func (o *outputDispatcher) Dispatch(ev *wlwire.Event) {
	switch ev.Opcode {
	case outputEvGeometry:
		_, _ = ev.Args.Int32()  // x
		_, _ = ev.Args.Int32()  // y
		_, _ = ev.Args.Int32()  // physical_width
		_, _ = ev.Args.Int32()  // physical_height
		_, _ = ev.Args.Int32()  // subpixel
		_, _ = ev.Args.String() // make
		_, _ = ev.Args.String() // model
		transform, _ := ev.Args.Int32()
		o.out.Transform = transform
	case outputEvMode:
		flags, _ := ev.Args.Uint32()
		width, _ := ev.Args.Int32()
		height, _ := ev.Args.Int32()
		_, _ = ev.Args.Int32() // refresh
		if flags&outputModeCurrent != 0 {
			o.out.Width = width
			o.out.Height = height
		}
	case outputEvScale:
		scale, _ := ev.Args.Int32()
		o.out.Scale = scale
	}
}

type callbackDispatcher struct {
	id   uint32
	done chan struct{}
}

func (cb *callbackDispatcher) ID() uint32 { return cb.id }
func (cb *callbackDispatcher) Dispatch(ev *wlwire.Event) {
	select {
	case cb.done <- struct{}{}:
	default:
	}
}
