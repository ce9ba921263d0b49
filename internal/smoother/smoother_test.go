package smoother

import (
	"math"
	"testing"
)

func TestFirstSampleIsFilteredFromZero(t *testing.T) {
	d := NewDelay(0.5)
	got := d.Update(0.06, 0.06)
	want := 0.06 * (1 - math.Exp(-0.06/0.5))
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("got %v want ~%v", got, want)
	}
}

func TestHappyFrameCadence(t *testing.T) {
	// spec.md §8 scenario 1: first capture at 60ms, tau=0.5s.
	d := NewDelay(0.5)
	got := d.Update(0.06, 0.06)

	want := 0.06 * (1 - math.Exp(-0.06/0.5))
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("got %v want ~%v", got, want)
	}
	if got < 0.006 || got > 0.008 {
		t.Fatalf("expected ~6.8ms smoothed delay, got %v", got)
	}
}

func TestResetClearsValue(t *testing.T) {
	d := NewDelay(0.5)
	d.Update(1, 1)
	d.Reset()
	got := d.Update(0.3, 1)
	want := 0.3 * (1 - math.Exp(-1/0.5))
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected reset filter to restart from zero, got %v want ~%v", got, want)
	}
}
