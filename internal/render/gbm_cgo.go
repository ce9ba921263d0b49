// Package render owns the offscreen GL ES rendering surface, texture
// upload paths, and the tile-granularity damage estimator (spec.md
// §4.5–4.6).
package render

/*
#cgo pkg-config: gbm
#include <gbm.h>
#include <fcntl.h>
#include <unistd.h>
#include <stdlib.h>

static struct gbm_device *rfbwld_gbm_create(const char *path, int *out_fd) {
	int fd = open(path, O_RDWR);
	if (fd < 0) {
		return NULL;
	}
	struct gbm_device *dev = gbm_create_device(fd);
	if (dev == NULL) {
		close(fd);
		return NULL;
	}
	*out_fd = fd;
	return dev;
}
*/
import "C"

import (
	"fmt"
	"unsafe"
)

// gbmDevice wraps the render-node-backed GBM device used to obtain an EGL
// display for headless rendering. No pack repo or known pure-Go module
// wraps libgbm, so this one allocator is cgo (documented in DESIGN.md).
type gbmDevice struct {
	ptr unsafe.Pointer
	fd  C.int
}

func openGBMDevice(renderNode string) (*gbmDevice, error) {
	cpath := C.CString(renderNode)
	defer C.free(unsafe.Pointer(cpath))

	var fd C.int
	dev := C.rfbwld_gbm_create(cpath, &fd)
	if dev == nil {
		return nil, fmt.Errorf("render: gbm_create_device(%s) failed", renderNode)
	}
	return &gbmDevice{ptr: unsafe.Pointer(dev), fd: fd}, nil
}

// nativeDisplay is the value EGL's GetDisplay expects; gbm_device* satisfies
// EGL_PLATFORM_GBM_KHR.
func (d *gbmDevice) nativeDisplay() unsafe.Pointer { return d.ptr }

func (d *gbmDevice) Close() {
	if d.ptr != nil {
		C.gbm_device_destroy((*C.struct_gbm_device)(d.ptr))
		C.close(d.fd)
		d.ptr = nil
	}
}
