package render

// vertexShaderSrc is shared by every program: a full-screen quad passed
// through unchanged, with the current framebuffer's natural Y-orientation.
const vertexShaderSrc = `#version 100
attribute vec2 aPos;
attribute vec2 aTexCoord;
varying vec2 vTexCoord;
void main() {
	vTexCoord = aTexCoord;
	gl_Position = vec4(aPos, 0.0, 1.0);
}
`

// planeFragmentShaderSrc samples an ordinary 2D texture (render_framebuffer
// path). uFlipY honors CapturedFrame.YInvert (spec.md §9) the same way the
// external/dma-buf program always does.
const planeFragmentShaderSrc = `#version 100
precision mediump float;
varying vec2 vTexCoord;
uniform sampler2D uTex;
uniform bool uFlipY;
void main() {
	vec2 coord = uFlipY ? vec2(vTexCoord.x, 1.0 - vTexCoord.y) : vTexCoord;
	gl_FragColor = texture2D(uTex, coord);
}
`

// externalFragmentShaderSrc samples a GL_TEXTURE_EXTERNAL_OES image (the
// dma-buf import path) and flips the V coordinate to compensate for
// Y-inversion (spec.md §4.5).
const externalFragmentShaderSrc = `#version 100
#extension GL_OES_EGL_image_external : require
precision mediump float;
varying vec2 vTexCoord;
uniform samplerExternalOES uTex;
void main() {
	gl_FragColor = texture2D(uTex, vec2(vTexCoord.x, 1.0 - vTexCoord.y));
}
`

// damageFragmentShaderSrc samples two same-size textures at matching
// coordinates and writes a non-zero pixel iff they differ (spec.md §4.6).
const damageFragmentShaderSrc = `#version 100
precision mediump float;
varying vec2 vTexCoord;
uniform sampler2D uCurrent;
uniform sampler2D uPrevious;
void main() {
	vec4 a = texture2D(uCurrent, vTexCoord);
	vec4 b = texture2D(uPrevious, vTexCoord);
	float diff = distance(a, b);
	gl_FragColor = diff > 0.001 ? vec4(1.0) : vec4(0.0);
}
`
