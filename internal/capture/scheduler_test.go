package capture

import "testing"

type fakeBackend struct {
	status    Status
	startErr  error
	starts    int
	stops     int
	onDone    DoneFunc
	frameInfo FrameInfo
}

func (f *fakeBackend) Start() error {
	f.starts++
	if f.startErr != nil {
		return f.startErr
	}
	f.status = StatusInProgress
	return nil
}
func (f *fakeBackend) Stop()                 { f.stops++; f.status = StatusStopped }
func (f *fakeBackend) Status() Status        { return f.status }
func (f *fakeBackend) DamageHint() *Rect     { return nil }
func (f *fakeBackend) FrameInfo() FrameInfo  { return f.frameInfo }
func (f *fakeBackend) SetOnDone(fn DoneFunc) { f.onDone = fn }

func (f *fakeBackend) complete(frame *CapturedFrame, err error) {
	if err != nil {
		f.status = StatusFailed
	} else {
		f.status = StatusDone
	}
	f.onDone(frame, err)
}

func TestSchedulerSingleFlight(t *testing.T) {
	preferred := &fakeBackend{}
	s := NewScheduler(preferred, nil)

	if err := s.Start(); err != nil {
		t.Fatalf("first start: %v", err)
	}
	if err := s.Start(); err == nil {
		t.Fatal("expected single-flight error on second start while IN_PROGRESS")
	}
	if preferred.starts != 1 {
		t.Fatalf("backend.Start called %d times, want 1", preferred.starts)
	}
}

func TestSchedulerPrefersDmabufOverShm(t *testing.T) {
	preferred := &fakeBackend{}
	fallback := &fakeBackend{}
	s := NewScheduler(preferred, fallback)
	if s.Active() != preferred {
		t.Fatal("scheduler did not select the preferred backend")
	}
}

func TestSchedulerFallsBackOnFatal(t *testing.T) {
	preferred := &fakeBackend{}
	fallback := &fakeBackend{}
	s := NewScheduler(preferred, fallback)

	var gotErr error
	s.SetOnFrame(func(_ *CapturedFrame, err error) { gotErr = err })

	_ = s.Start()
	preferred.status = StatusFatal
	preferred.complete(nil, ErrCaptureFatal)

	if s.Active() != fallback {
		t.Fatal("scheduler did not fall back to SHM after FATAL")
	}
	if gotErr == nil {
		t.Fatal("expected forwarded error")
	}
}

func TestSchedulerForwardsDoneFrame(t *testing.T) {
	preferred := &fakeBackend{}
	s := NewScheduler(preferred, nil)

	var got *CapturedFrame
	s.SetOnFrame(func(f *CapturedFrame, _ error) { got = f })

	_ = s.Start()
	want := &CapturedFrame{Width: 1920, Height: 1080}
	preferred.complete(want, nil)

	if got != want {
		t.Fatal("scheduler did not forward the completed frame")
	}
}
