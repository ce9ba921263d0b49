package render

import (
	gl "github.com/go-gl/gl/v3.1/gles2"

	"github.com/rfbwld/rfbwld/internal/capture"
)

// computeDamage implements the damage estimator (spec.md §4.6): downsample
// current vs. previous textures to one pixel per 32x32 tile via the damage
// shader, read the result back, and emit one rectangle per non-zero tile.
// If there is no previous texture yet (first frame), or the current frame
// is a DMA-BUF external texture, the whole frame is damaged.
func (r *Renderer) computeDamage() {
	tilesX := (r.width + TileSizeI32 - 1) / TileSizeI32
	tilesY := (r.height + TileSizeI32 - 1) / TileSizeI32

	if r.prevTexture == 0 || r.lastIsExtern {
		r.damage = capture.DamageRegion{{X: 0, Y: 0, W: uint32(r.width), H: uint32(r.height)}}
		return
	}

	fbo, tex := r.newDownsampleTarget(tilesX, tilesY)
	defer gl.DeleteFramebuffers(1, &fbo)
	defer gl.DeleteTextures(1, &tex)

	gl.BindFramebuffer(gl.FRAMEBUFFER, fbo)
	gl.Viewport(0, 0, tilesX, tilesY)
	gl.UseProgram(r.damageProg.handle)

	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, r.lastTexture)
	gl.Uniform1i(r.damageProg.curUnif, 0)

	gl.ActiveTexture(gl.TEXTURE1)
	gl.BindTexture(gl.TEXTURE_2D, r.prevTexture)
	gl.Uniform1i(r.damageProg.prevUnif, 1)

	r.drawQuad(r.damageProg)

	pixels := make([]byte, tilesX*tilesY*4)
	gl.ReadPixels(0, 0, tilesX, tilesY, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)

	r.damage = rectsFromTiles(pixels, tilesX, tilesY, r.width, r.height)
}

// TileSizeI32 is TileSize as int32, for GL call arguments.
const TileSizeI32 = int32(capture.TileSize)

func (r *Renderer) newDownsampleTarget(w, h int32) (fbo, tex uint32) {
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, w, h, 0, gl.RGBA, gl.UNSIGNED_BYTE, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)

	gl.GenFramebuffers(1, &fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, fbo)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, tex, 0)
	return fbo, tex
}

// rectsFromTiles builds one TileSize x TileSize rectangle per non-zero
// downsampled pixel, clipped to (width, height), in scan order (spec.md
// §4.6: "ties are broken in scan order").
func rectsFromTiles(pixels []byte, tilesX, tilesY, width, height int32) capture.DamageRegion {
	var region capture.DamageRegion
	for ty := int32(0); ty < tilesY; ty++ {
		for tx := int32(0); tx < tilesX; tx++ {
			idx := (ty*tilesX + tx) * 4
			if pixels[idx] == 0 && pixels[idx+1] == 0 && pixels[idx+2] == 0 {
				continue
			}
			x := tx * TileSizeI32
			y := ty * TileSizeI32
			w := TileSizeI32
			h := TileSizeI32
			if x+w > width {
				w = width - x
			}
			if y+h > height {
				h = height - y
			}
			region = append(region, capture.Rect{X: uint32(x), Y: uint32(y), W: uint32(w), H: uint32(h)})
		}
	}
	return region
}
