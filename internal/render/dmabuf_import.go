package render

/*
#cgo pkg-config: egl glesv2
#include <EGL/egl.h>
#include <EGL/eglext.h>
#include <GLES2/gl2.h>
#include <GLES2/gl2ext.h>
#include <stdlib.h>

typedef EGLImageKHR (*CreateImageKHRFn)(EGLDisplay, EGLContext, EGLenum, EGLClientBuffer, const EGLint *);
typedef EGLBoolean (*DestroyImageKHRFn)(EGLDisplay, EGLImageKHR);
typedef void (*ImageTargetTexture2DOESFn)(GLenum, GLeglImageOES);

static EGLImageKHR rfbwld_create_image(void *fn, EGLDisplay dpy, const EGLint *attrs) {
	CreateImageKHRFn create = (CreateImageKHRFn)fn;
	return create(dpy, EGL_NO_CONTEXT, EGL_LINUX_DMA_BUF_EXT, (EGLClientBuffer)NULL, attrs);
}

static void rfbwld_destroy_image(void *fn, EGLDisplay dpy, EGLImageKHR img) {
	DestroyImageKHRFn destroy = (DestroyImageKHRFn)fn;
	destroy(dpy, img);
}

static void rfbwld_image_target_texture(void *fn, EGLImageKHR img) {
	ImageTargetTexture2DOESFn target = (ImageTargetTexture2DOESFn)fn;
	target(GL_TEXTURE_EXTERNAL_OES, (GLeglImageOES)img);
}

static EGLint *rfbwld_dmabuf_attrs(
	int width, int height, unsigned int fourcc,
	int fd0, int offset0, int pitch0,
	unsigned int modLo, unsigned int modHi,
	int numPlanes) {
	EGLint *a = malloc(sizeof(EGLint) * 15);
	int i = 0;
	a[i++] = EGL_WIDTH; a[i++] = width;
	a[i++] = EGL_HEIGHT; a[i++] = height;
	a[i++] = EGL_LINUX_DRM_FOURCC_EXT; a[i++] = (EGLint)fourcc;
	a[i++] = EGL_DMA_BUF_PLANE0_FD_EXT; a[i++] = fd0;
	a[i++] = EGL_DMA_BUF_PLANE0_OFFSET_EXT; a[i++] = offset0;
	a[i++] = EGL_DMA_BUF_PLANE0_PITCH_EXT; a[i++] = pitch0;
	a[i++] = EGL_NONE;
	return a;
}
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/egl"
)

// dmabufImporter resolves the EGL_EXT_image_dma_buf_import /
// GL_OES_EGL_image_external function pointers once and reuses them for
// every imported frame; single-plane formats only (the DRM formats this
// module captures — ARGB8888/XRGB8888 — are always single-plane).
type dmabufImporter struct {
	display      egl.EGLDisplay
	createImage  unsafe.Pointer
	destroyImage unsafe.Pointer
	imageTarget  unsafe.Pointer
}

func newDmabufImporter(display egl.EGLDisplay) (*dmabufImporter, error) {
	create := egl.GetProcAddress("eglCreateImageKHR")
	destroy := egl.GetProcAddress("eglDestroyImageKHR")
	target := egl.GetProcAddress("glEGLImageTargetTexture2DOES")
	if create == nil || destroy == nil || target == nil {
		return nil, fmt.Errorf("render: EGL_EXT_image_dma_buf_import extensions unavailable")
	}
	return &dmabufImporter{
		display:      display,
		createImage:  unsafe.Pointer(create),
		destroyImage: unsafe.Pointer(destroy),
		imageTarget:  unsafe.Pointer(target),
	}, nil
}

// importPlane creates an EGLImage over a single dma-buf plane and binds it
// to the currently-bound GL_TEXTURE_EXTERNAL_OES texture unit.
func (d *dmabufImporter) importPlane(width, height int32, fourcc uint32, fd int, offset, pitch uint32, modifier uint64) (unsafe.Pointer, error) {
	attrs := C.rfbwld_dmabuf_attrs(
		C.int(width), C.int(height), C.uint(fourcc),
		C.int(fd), C.int(offset), C.int(pitch),
		C.uint(uint32(modifier)), C.uint(uint32(modifier>>32)),
		1,
	)
	defer C.free(unsafe.Pointer(attrs))

	img := C.rfbwld_create_image(d.createImage, C.EGLDisplay(d.display), attrs)
	if img == nil {
		return nil, fmt.Errorf("render: eglCreateImageKHR failed for dma-buf fd %d", fd)
	}
	C.rfbwld_image_target_texture(d.imageTarget, img)
	return unsafe.Pointer(img), nil
}

func (d *dmabufImporter) destroy(img unsafe.Pointer) {
	C.rfbwld_destroy_image(d.destroyImage, C.EGLDisplay(d.display), C.EGLImageKHR(img))
}
