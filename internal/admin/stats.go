// Package admin exposes a read-only SSH status console for an rfbwld
// session, separate from the RFB viewer channel on internal/rfb.
package admin

import "time"

// Stats is a snapshot of a running session, rendered to the admin
// console on each refresh tick.
type Stats struct {
	Backend      string // "dmabuf" or "shm"
	OutputWidth  uint32
	OutputHeight uint32
	FPS          float64
	LastDamage   int // rect count in the most recent push
	ViewerAddr   string
	ViewerActive bool
	Uptime       time.Duration
}

// StatsFunc is supplied by internal/session.Core so the console can pull
// a fresh snapshot on every redraw without the two packages sharing state
// directly.
type StatsFunc func() Stats
