package render

import (
	"fmt"
	"strings"

	gl "github.com/go-gl/gl/v3.1/gles2"
)

// program wraps a compiled+linked GLES2 program, attribute/uniform
// locations resolved once at compile time.
type program struct {
	handle   uint32
	posAttr  int32
	texAttr  int32
	texUnif  int32
	curUnif  int32
	prevUnif int32
	flipUnif int32
}

// compileProgram links vertex+fragment sources into a usable program.
// Failure here is fatal to the renderer (spec.md §4.5).
func compileProgram(vertexSrc, fragmentSrc string) (*program, error) {
	vs, err := compileShader(gl.VERTEX_SHADER, vertexSrc)
	if err != nil {
		return nil, fmt.Errorf("render: vertex shader: %w", err)
	}
	defer gl.DeleteShader(vs)

	fs, err := compileShader(gl.FRAGMENT_SHADER, fragmentSrc)
	if err != nil {
		return nil, fmt.Errorf("render: fragment shader: %w", err)
	}
	defer gl.DeleteShader(fs)

	prog := gl.CreateProgram()
	gl.AttachShader(prog, vs)
	gl.AttachShader(prog, fs)
	gl.LinkProgram(prog)

	var status int32
	gl.GetProgramiv(prog, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(prog, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetProgramInfoLog(prog, logLen, nil, gl.Str(log))
		gl.DeleteProgram(prog)
		return nil, fmt.Errorf("render: program link failed: %s", log)
	}

	p := &program{handle: prog}
	p.posAttr = gl.GetAttribLocation(prog, gl.Str("aPos\x00"))
	p.texAttr = gl.GetAttribLocation(prog, gl.Str("aTexCoord\x00"))
	p.texUnif = gl.GetUniformLocation(prog, gl.Str("uTex\x00"))
	p.curUnif = gl.GetUniformLocation(prog, gl.Str("uCurrent\x00"))
	p.prevUnif = gl.GetUniformLocation(prog, gl.Str("uPrevious\x00"))
	p.flipUnif = gl.GetUniformLocation(prog, gl.Str("uFlipY\x00"))
	return p, nil
}

func compileShader(kind uint32, src string) (uint32, error) {
	shader := gl.CreateShader(kind)
	csrc := src + "\x00"
	csources, free := gl.Strs(csrc)
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetShaderInfoLog(shader, logLen, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("compile failed: %s", log)
	}
	return shader, nil
}

func (p *program) delete() {
	gl.DeleteProgram(p.handle)
}

// quadVertices is a full-screen triangle strip: position xy, texcoord uv.
var quadVertices = []float32{
	-1, -1, 0, 1,
	1, -1, 1, 1,
	-1, 1, 0, 0,
	1, 1, 1, 0,
}
