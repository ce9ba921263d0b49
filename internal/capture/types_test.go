package capture

import "testing"

func TestStatusString(t *testing.T) {
	cases := map[Status]string{
		StatusIdle:       "IDLE",
		StatusInProgress: "IN_PROGRESS",
		StatusDone:       "DONE",
		StatusFatal:      "FATAL",
	}
	for status, want := range cases {
		if got := status.String(); got != want {
			t.Errorf("Status(%d).String() = %q, want %q", status, got, want)
		}
	}
}

func TestWireFormatToFourCC(t *testing.T) {
	if got := wireFormatToFourCC(0); got != 0x34325241 {
		t.Errorf("ARGB8888 mapped to %#x, want DRM_FORMAT_ARGB8888", got)
	}
	if got := wireFormatToFourCC(1); got != 0x34325258 {
		t.Errorf("XRGB8888 mapped to %#x, want DRM_FORMAT_XRGB8888", got)
	}
	if got := wireFormatToFourCC(999); got != 999 {
		t.Errorf("unknown format should pass through unchanged, got %#x", got)
	}
}
