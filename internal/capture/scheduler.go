package capture

import (
	"errors"
	"fmt"

	"github.com/rfbwld/rfbwld/internal/logger"
)

// Scheduler owns exactly one active backend at a time and forwards its
// on_done to a single downstream consumer (spec.md §4.4).
type Scheduler struct {
	backend  Backend
	fallback Backend // SHM, used once DMA-BUF goes FATAL
	onFrame  func(*CapturedFrame, error)
}

// NewScheduler picks preferred if non-nil, else fallback. preferred is
// normally a DmabufBackend, fallback a ShmBackend (spec.md §4.4: "DMA-BUF
// when supported ... else SHM").
func NewScheduler(preferred, fallback Backend) *Scheduler {
	s := &Scheduler{fallback: fallback}
	if preferred != nil {
		s.backend = preferred
	} else {
		s.backend = fallback
	}
	s.backend.SetOnDone(s.handleDone)
	return s
}

// SetOnFrame registers the renderer-facing continuation.
func (s *Scheduler) SetOnFrame(fn func(*CapturedFrame, error)) { s.onFrame = fn }

// Start forwards to the active backend, enforcing single-flight: a backend
// already IN_PROGRESS is never restarted.
func (s *Scheduler) Start() error {
	if s.backend.Status() == StatusInProgress {
		return fmt.Errorf("%w: scheduler tick skipped, capture in progress", ErrCaptureFailed)
	}
	return s.backend.Start()
}

// Stop forwards to the active backend.
func (s *Scheduler) Stop() { s.backend.Stop() }

// Active returns the backend currently driving capture, for diagnostics.
func (s *Scheduler) Active() Backend { return s.backend }

func (s *Scheduler) handleDone(frame *CapturedFrame, err error) {
	fatal := s.backend.Status() == StatusFatal || errors.Is(err, ErrCaptureFatal)
	if fatal && s.backend != s.fallback && s.fallback != nil {
		logger.Warn("capture backend went fatal, falling back to SHM")
		s.backend = s.fallback
		s.backend.SetOnDone(s.handleDone)
	}
	if s.onFrame != nil {
		s.onFrame(frame, err)
	}
}
