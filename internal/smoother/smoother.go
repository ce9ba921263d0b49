// Package smoother implements a first-order low-pass filter used to track
// the round-trip delay of frame capture requests.
package smoother

import "math"

// Delay is a first-order IIR low-pass filter: y += (x - y) * (1 - exp(-dt/tau)).
// Zero value is usable with a default time constant of 1 second; call
// NewDelay to set one explicitly.
type Delay struct {
	tau   float64 // time constant, seconds
	value float64
}

// NewDelay returns a Delay with the given time constant in seconds.
func NewDelay(timeConstant float64) *Delay {
	if timeConstant <= 0 {
		timeConstant = 1
	}
	return &Delay{tau: timeConstant}
}

// Update feeds a new sample x observed dt seconds after the previous sample
// and returns the filtered value. The filter starts from zero, so the first
// sample is itself smoothed rather than taken as-is.
func (d *Delay) Update(x, dt float64) float64 {
	if dt < 0 {
		dt = 0
	}
	tau := d.tau
	if tau <= 0 {
		tau = 1
	}
	alpha := 1 - math.Exp(-dt/tau)
	d.value += (x - d.value) * alpha
	return d.value
}

// Value returns the current filtered value without updating it.
func (d *Delay) Value() float64 {
	return d.value
}

// Reset clears the filter back to zero.
func (d *Delay) Reset() {
	d.value = 0
}
