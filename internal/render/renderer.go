package render

import (
	"fmt"
	"unsafe"

	gl "github.com/go-gl/gl/v3.1/gles2"

	"github.com/rfbwld/rfbwld/internal/capture"
)

// Renderer owns one offscreen GLES2 surface sized to an output and the
// three programs it runs (plain-texture, external-image, damage) (spec.md
// §4.5). Not safe for concurrent use; it runs on the single event-loop
// thread per spec.md §5.
type Renderer struct {
	ctx      *eglContext
	importer *dmabufImporter

	planeProg    *program
	externalProg *program
	damageProg   *program

	vbo uint32

	lastTexture  uint32
	lastIsExtern bool
	lastImage    unsafe.Pointer // non-nil only when lastIsExtern imported a dma-buf

	prevTexture uint32

	width, height int32
	damage        capture.DamageRegion
}

// NewRenderer opens renderNode, builds the EGL context sized to
// width/height, and compiles every shader program. Any failure is
// returned; callers should treat it as fatal.
func NewRenderer(renderNode string, width, height int32) (*Renderer, error) {
	ctx, err := newEGLContext(renderNode, width, height)
	if err != nil {
		return nil, err
	}

	planeProg, err := compileProgram(vertexShaderSrc, planeFragmentShaderSrc)
	if err != nil {
		ctx.Close()
		return nil, err
	}
	externalProg, err := compileProgram(vertexShaderSrc, externalFragmentShaderSrc)
	if err != nil {
		planeProg.delete()
		ctx.Close()
		return nil, err
	}
	damageProg, err := compileProgram(vertexShaderSrc, damageFragmentShaderSrc)
	if err != nil {
		planeProg.delete()
		externalProg.delete()
		ctx.Close()
		return nil, err
	}

	importer, err := newDmabufImporter(ctx.display)
	if err != nil {
		// Non-fatal: hosts without the extension simply can't use the
		// DMA-BUF backend; the scheduler falls back to SHM (spec.md §4.4).
		importer = nil
	}

	var vbo uint32
	gl.GenBuffers(1, &vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(quadVertices)*4, gl.Ptr(quadVertices), gl.STATIC_DRAW)

	return &Renderer{
		ctx: ctx, importer: importer,
		planeProg: planeProg, externalProg: externalProg, damageProg: damageProg,
		vbo: vbo, width: width, height: height,
	}, nil
}

func (r *Renderer) Close() {
	gl.DeleteBuffers(1, &r.vbo)
	r.planeProg.delete()
	r.externalProg.delete()
	r.damageProg.delete()
	r.deleteLastTexture()
	if r.prevTexture != 0 {
		gl.DeleteTextures(1, &r.prevTexture)
	}
	r.ctx.Close()
}

// Resize recreates the backing surface for new output geometry.
func (r *Renderer) Resize(width, height int32) error {
	if err := r.ctx.resize(width, height); err != nil {
		return err
	}
	r.width, r.height = width, height
	return nil
}

func (r *Renderer) deleteLastTexture() {
	if r.lastTexture != 0 {
		gl.DeleteTextures(1, &r.lastTexture)
		r.lastTexture = 0
	}
	if r.lastImage != nil && r.importer != nil {
		r.importer.destroy(r.lastImage)
		r.lastImage = nil
	}
}

// RenderDmabufFrame implements render_dmabuf_frame (spec.md §4.5): imports
// the frame's first plane as an EGLImage bound to a GL_TEXTURE_EXTERNAL_OES
// texture, and draws it through the external-image program. The texture is
// not kept as a damage-comparison target: every DMA-BUF frame reports the
// whole frame as damaged (see rotatePrevious and computeDamage). The frame's fds are
// owned by the caller until this call returns; per spec.md §4.3 the caller
// closes them once the EGL image has been created.
func (r *Renderer) RenderDmabufFrame(frame *capture.CapturedFrame) error {
	if r.importer == nil {
		return fmt.Errorf("render: no dma-buf import extension available")
	}
	if len(frame.Planes) == 0 {
		return fmt.Errorf("render: dma-buf frame has no planes")
	}
	plane := frame.Planes[0]

	var tex uint32
	gl.GenTextures(1, &tex)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_EXTERNAL_OES, tex)

	img, err := r.importer.importPlane(int32(frame.Width), int32(frame.Height), frame.Format, plane.FD, plane.Offset, plane.Pitch, plane.Modifier)
	if err != nil {
		gl.DeleteTextures(1, &tex)
		return err
	}

	r.rotatePrevious()
	gl.Viewport(0, 0, r.width, r.height)
	gl.UseProgram(r.externalProg.handle)
	gl.Uniform1i(r.externalProg.texUnif, 0)
	r.drawQuad(r.externalProg)

	r.lastTexture = tex
	r.lastIsExtern = true
	r.lastImage = img
	r.computeDamage()
	return nil
}

// RenderFramebuffer implements render_framebuffer (spec.md §4.5): uploads
// host pixels into a 2D texture honoring stride via GL_UNPACK_ROW_LENGTH,
// generates mips, and draws through the plain-texture program. yInvert
// flips the V coordinate to compensate for a compositor that reports its
// screencopy buffer as Y-inverted (spec.md §9).
func (r *Renderer) RenderFramebuffer(pixels []byte, format uint32, width, height, stride uint32, yInvert bool) error {
	var tex uint32
	gl.GenTextures(1, &tex)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, tex)

	bytesPerPixel := uint32(4)
	rowLengthPixels := stride / bytesPerPixel
	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, int32(rowLengthPixels))
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, int32(width), int32(height), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
	gl.PixelStorei(gl.UNPACK_ROW_LENGTH, 0)
	gl.GenerateMipmap(gl.TEXTURE_2D)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)

	r.rotatePrevious()
	gl.Viewport(0, 0, r.width, r.height)
	gl.UseProgram(r.planeProg.handle)
	gl.Uniform1i(r.planeProg.texUnif, 0)
	gl.Uniform1i(r.planeProg.flipUnif, boolToGLInt(yInvert))
	r.drawQuad(r.planeProg)

	r.lastTexture = tex
	r.lastIsExtern = false
	r.lastImage = nil
	r.computeDamage()
	return nil
}

// rotatePrevious moves the current lastTexture into prevTexture for the
// next damage comparison, releasing whatever prevTexture held before.
// External-image textures are not retained as a comparison target across
// frames (the imported dma-buf fd is already closed by then); the damage
// estimator only compares 2D-texture frames against 2D-texture frames.
func (r *Renderer) rotatePrevious() {
	if r.lastIsExtern {
		r.deleteLastTexture()
		return
	}
	if r.prevTexture != 0 {
		gl.DeleteTextures(1, &r.prevTexture)
	}
	r.prevTexture = r.lastTexture
	r.lastTexture = 0
}

func (r *Renderer) drawQuad(p *program) {
	gl.BindBuffer(gl.ARRAY_BUFFER, r.vbo)
	gl.VertexAttribPointer(uint32(p.posAttr), 2, gl.FLOAT, false, 16, gl.PtrOffset(0))
	gl.EnableVertexAttribArray(uint32(p.posAttr))
	gl.VertexAttribPointer(uint32(p.texAttr), 2, gl.FLOAT, false, 16, gl.PtrOffset(8))
	gl.EnableVertexAttribArray(uint32(p.texAttr))
	gl.DrawArrays(gl.TRIANGLE_STRIP, 0, 4)
}

// CopyPixels implements copy_pixels: reads a horizontal band of the current
// framebuffer into dst, BGRA/unsigned-byte (spec.md §6 default GL upload
// format).
func (r *Renderer) CopyPixels(dst []byte, y, height int32) {
	gl.ReadPixels(0, y, r.width, height, gl.BGRA_EXT, gl.UNSIGNED_BYTE, gl.Ptr(dst))
}

// CurrentDamage implements current_damage.
func (r *Renderer) CurrentDamage() capture.DamageRegion {
	return r.damage
}

func boolToGLInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
