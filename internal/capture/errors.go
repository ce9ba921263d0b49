package capture

import "errors"

// Sentinel error kinds from spec.md §7, compared with errors.Is — the flat
// style the teacher's own internal/ packages use throughout (no custom
// error-struct hierarchy anywhere in internal/wayland or internal/input).
var (
	// ErrAllocationFailed: SHM/mmap/pool creation failed. Fatal for the
	// SHM backend.
	ErrAllocationFailed = errors.New("capture: allocation failed")

	// ErrCompositorRefused: a request returned no object (e.g.
	// capture_output produced no usable frame). Fatal for that backend.
	ErrCompositorRefused = errors.New("capture: compositor refused request")

	// ErrCaptureFailed: transient per-frame failure. Recovered by the next
	// scheduler tick.
	ErrCaptureFailed = errors.New("capture: frame failed")

	// ErrCaptureFatal: permanent failure. Scheduler should switch backends
	// or give up.
	ErrCaptureFatal = errors.New("capture: fatal failure")
)
