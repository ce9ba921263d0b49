// Package shm allocates anonymous, file-descriptor-backed memory segments
// that can be mmap-ed by this process and handed to the compositor by fd.
package shm

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// ErrAllocationFailed is returned when the segment could not be created,
// sized, or sealed. Matches spec.md's single AllocationFailure error kind.
type ErrAllocationFailed struct {
	Op  string
	Err error
}

func (e *ErrAllocationFailed) Error() string {
	return fmt.Sprintf("shm: %s: %v", e.Op, e.Err)
}

func (e *ErrAllocationFailed) Unwrap() error { return e.Err }

// Alloc creates an anonymous memory segment of size bytes and returns a
// file descriptor that can be shared with an external process (e.g. bound
// into a wl_shm_pool). The caller owns the fd: hand it to the compositor
// and close the local copy once it has been bound.
func Alloc(size int64) (int, error) {
	if size <= 0 {
		return -1, &ErrAllocationFailed{Op: "alloc", Err: fmt.Errorf("invalid size %d", size)}
	}

	fd, err := memfdCreate(randomName())
	if err != nil {
		return -1, &ErrAllocationFailed{Op: "memfd_create", Err: err}
	}

	if err := unix.Ftruncate(fd, size); err != nil {
		unix.Close(fd)
		return -1, &ErrAllocationFailed{Op: "ftruncate", Err: err}
	}

	return fd, nil
}

// Map mmaps size bytes of fd for read/write access. Callers must Unmap the
// returned slice when done; the compositor keeps its own mapping of the
// same fd independently.
func Map(fd int, size int) ([]byte, error) {
	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, &ErrAllocationFailed{Op: "mmap", Err: err}
	}
	return data, nil
}

// Unmap releases a mapping returned by Map.
func Unmap(data []byte) error {
	return unix.Munmap(data)
}

// memfdCreate wraps the memfd_create syscall, falling back to an unlinked
// tmpfs file on kernels/seccomp profiles that refuse it (the same
// degrade-gracefully behaviour the wlturbo/wl CreateAnonymousFile helper
// that this package is grounded on assumes is available via shm_open-style
// anonymous files).
func memfdCreate(name string) (int, error) {
	fd, err := unix.MemfdCreate(name, unix.MFD_CLOEXEC)
	if err == nil {
		return fd, nil
	}

	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = os.TempDir()
	}
	f, ferr := os.CreateTemp(dir, name+"-*")
	if ferr != nil {
		return -1, err
	}
	_ = os.Remove(f.Name())
	// Dup so the returned fd survives f's finalizer closing the original.
	dupFd, derr := unix.Dup(int(f.Fd()))
	f.Close()
	if derr != nil {
		return -1, derr
	}
	return dupFd, nil
}

func randomName() string {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	return fmt.Sprintf("rfbwld-shm-%08x", r.Uint32())
}
