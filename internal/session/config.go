package session

// Config carries every tunable spec.md §6's configuration record names,
// plus the RFB listener settings SPEC_FULL.md adds on top. cmd/serve.go
// builds it from the config.Config that internal/config loads from disk.
type Config struct {
	// Layout/Variant select the xkb keymap (spec.md §6); empty Layout
	// means "whatever XKB_DEFAULT_LAYOUT/the system default resolves to".
	Layout  string
	Variant string

	// SmootherTimeConstant parameterizes the SHM backend's delay smoother
	// (spec.md §3 DelaySmoother); zero means a 1.0s time constant.
	// RateLimitHz is carried from the configuration but NewCore does not
	// read it: both capture backends pace at the fixed capture.RateLimit.
	RateLimitHz          float64
	SmootherTimeConstant float64

	// PreferDmabuf selects DMA-BUF over SHM when the compositor advertises
	// zwlr_export_dmabuf_manager_v1 (spec.md §4.4).
	PreferDmabuf bool

	// OverlayCursor requests the compositor composite the cursor into
	// captured frames rather than leaving it to be drawn client-side.
	OverlayCursor bool

	// OutputName pins capture to a specific wl_output registry name; zero
	// means "the first output the registry advertises".
	OutputName uint32

	// RenderNode is the DRM render node path the GL renderer opens
	// (spec.md §4.5), e.g. "/dev/dri/renderD128".
	RenderNode string

	// ListenAddr, Secret and DesktopName configure the RFB listener
	// (SPEC_FULL.md §6 added).
	ListenAddr  string
	Secret      string
	DesktopName string
}
