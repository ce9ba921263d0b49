package wlproto

import "github.com/rfbwld/rfbwld/internal/wlwire"

// wl_shm requests.
const shmOpCreatePool uint16 = 0

// wl_shm_pool requests.
const (
	shmPoolOpCreateBuffer uint16 = 0
	shmPoolOpDestroy      uint16 = 1
	shmPoolOpResize       uint16 = 2
)

// wl_buffer requests and events.
const (
	bufferOpDestroy uint16 = 0
	BufferEvRelease uint16 = 0
)

// ShmFormat values this module cares about (wl_shm.format enum). These two
// are the enum's exceptions: they are 0 and 1, not the matching
// DRM_FORMAT_* FourCCs, so internal/capture maps them explicitly.
const (
	ShmFormatARGB8888 uint32 = 0
	ShmFormatXRGB8888 uint32 = 1
)

// Shm is the bound wl_shm global.
type Shm struct {
	wlwire.BaseProxy
}

func NewShm(conn *wlwire.Conn, id uint32) *Shm {
	s := &Shm{}
	s.SetConn(conn)
	s.SetID(id)
	return s
}

func (s *Shm) Dispatch(*wlwire.Event) {}

// CreatePool wraps fd (already sized via internal/shm.Alloc) in a
// compositor-visible wl_shm_pool covering size bytes.
func (s *Shm) CreatePool(fd int, size int32) (*ShmPool, error) {
	pool := &ShmPool{}
	pool.SetConn(s.Conn())
	pool.SetID(s.Conn().AllocateID())
	s.Conn().Register(pool)

	enc := wlwire.NewEncoder().Uint32(pool.ID()).Int32(size)
	if err := s.Conn().SendRequestWithFDs(s, shmOpCreatePool, []int{fd}, enc); err != nil {
		s.Conn().Unregister(pool)
		return nil, err
	}
	return pool, nil
}

// ShmPool is a bound wl_shm_pool.
type ShmPool struct {
	wlwire.BaseProxy
}

func (p *ShmPool) Dispatch(*wlwire.Event) {}

// CreateBuffer describes a buffer view of this pool's backing memory.
func (p *ShmPool) CreateBuffer(offset, width, height, stride int32, format uint32) (*Buffer, error) {
	buf := &Buffer{}
	buf.SetConn(p.Conn())
	buf.SetID(p.Conn().AllocateID())
	p.Conn().Register(buf)

	enc := wlwire.NewEncoder().
		Uint32(buf.ID()).
		Int32(offset).
		Int32(width).
		Int32(height).
		Int32(stride).
		Uint32(format)
	if err := p.Conn().SendRequest(p, shmPoolOpCreateBuffer, enc); err != nil {
		p.Conn().Unregister(buf)
		return nil, err
	}
	return buf, nil
}

// Resize grows the pool after an underlying ftruncate to a larger size
// (used when geometry changes force a bigger backing segment).
func (p *ShmPool) Resize(size int32) error {
	return p.Conn().SendRequest(p, shmPoolOpResize, wlwire.NewEncoder().Int32(size))
}

// Destroy releases the pool. Existing buffers created from it remain valid.
func (p *ShmPool) Destroy() error {
	err := p.Conn().SendRequest(p, shmPoolOpDestroy, wlwire.NewEncoder())
	p.Conn().Unregister(p)
	return err
}

// Buffer is a bound wl_buffer.
type Buffer struct {
	wlwire.BaseProxy
	onRelease func()
}

// OnRelease registers a callback for the release() event, fired once the
// compositor is done reading a buffer handed to copy_with_damage.
func (b *Buffer) OnRelease(fn func()) { b.onRelease = fn }

func (b *Buffer) Dispatch(ev *wlwire.Event) {
	if ev.Opcode == BufferEvRelease && b.onRelease != nil {
		b.onRelease()
	}
}

// Destroy releases the buffer object.
func (b *Buffer) Destroy() error {
	err := b.Conn().SendRequest(b, bufferOpDestroy, wlwire.NewEncoder())
	b.Conn().Unregister(b)
	return err
}
