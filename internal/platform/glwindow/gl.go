package glwindow

import (
	"fmt"
	"image"
	"unsafe"

	gl "github.com/go-gl/gl/v3.1/gles2"
	mgl "github.com/go-gl/mathgl/mgl32"
)

const (
	quadVertexShader = `
    precision highp float;
    attribute vec2 a_position;
    attribute vec2 a_texcoord;
    uniform mat4 u_transform;
    varying vec2 v_texcoord;
    void main(void) {
      gl_Position = u_transform * vec4(a_position, 0.0, 1.0);
      v_texcoord = a_texcoord;
    }` + "\x00"
	quadFragmentShader = `
    precision highp float;
    uniform sampler2D u_tex;
    varying vec2 v_texcoord;
    void main(void) {
      gl_FragColor = vec4(texture2D(u_tex, v_texcoord).rgb, 1.0);
    }` + "\x00"
)

type vertex struct {
	position [2]float32
	texcoord [2]float32
}

// quad covers the viewport. Texture row 0 is the top of the canvas.
var quad = [4]vertex{
	{position: [2]float32{-1, 1}, texcoord: [2]float32{0, 0}},
	{position: [2]float32{-1, -1}, texcoord: [2]float32{0, 1}},
	{position: [2]float32{1, 1}, texcoord: [2]float32{1, 0}},
	{position: [2]float32{1, -1}, texcoord: [2]float32{1, 1}},
}

func shaderInfoLog(shader uint32) string {
	var length int32
	gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &length)
	if length == 0 {
		return ""
	}
	buf := make([]uint8, length)
	var n int32
	gl.GetShaderInfoLog(shader, length, &n, &buf[0])
	return string(buf[:n])
}

func programInfoLog(program uint32) string {
	var length int32
	gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &length)
	if length == 0 {
		return ""
	}
	buf := make([]uint8, length)
	var n int32
	gl.GetProgramInfoLog(program, length, &n, &buf[0])
	return string(buf[:n])
}

func compileShader(kind uint32, source string) (uint32, error) {
	shader := gl.CreateShader(kind)
	data := gl.Str(source)
	length := int32(len(source))
	gl.ShaderSource(shader, 1, &data, &length)
	gl.CompileShader(shader)
	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		msg := shaderInfoLog(shader)
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("glwindow: compile shader: %s", msg)
	}
	return shader, nil
}

// renderer draws an RGBA canvas as one textured quad.
type renderer struct {
	program    uint32
	shaders    [2]uint32
	tex        uint32
	aPosition  int32
	aTexcoord  int32
	uTex       int32
	uTransform int32
	texW, texH int
}

func newRenderer() (*renderer, error) {
	vs, err := compileShader(gl.VERTEX_SHADER, quadVertexShader)
	if err != nil {
		return nil, err
	}
	fs, err := compileShader(gl.FRAGMENT_SHADER, quadFragmentShader)
	if err != nil {
		gl.DeleteShader(vs)
		return nil, err
	}
	program := gl.CreateProgram()
	gl.AttachShader(program, vs)
	gl.AttachShader(program, fs)
	gl.LinkProgram(program)
	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		msg := programInfoLog(program)
		gl.DeleteProgram(program)
		gl.DeleteShader(vs)
		gl.DeleteShader(fs)
		return nil, fmt.Errorf("glwindow: link program: %s", msg)
	}

	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	return &renderer{
		program:    program,
		shaders:    [2]uint32{vs, fs},
		tex:        tex,
		aPosition:  gl.GetAttribLocation(program, gl.Str("a_position\x00")),
		aTexcoord:  gl.GetAttribLocation(program, gl.Str("a_texcoord\x00")),
		uTex:       gl.GetUniformLocation(program, gl.Str("u_tex\x00")),
		uTransform: gl.GetUniformLocation(program, gl.Str("u_transform\x00")),
	}, nil
}

func (r *renderer) upload(canvas *image.RGBA) {
	size := canvas.Bounds().Size()
	gl.BindTexture(gl.TEXTURE_2D, r.tex)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	if size.X != r.texW || size.Y != r.texH {
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA,
			int32(size.X), int32(size.Y),
			0, gl.RGBA, gl.UNSIGNED_BYTE,
			gl.Ptr(canvas.Pix))
		r.texW, r.texH = size.X, size.Y
		return
	}
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0,
		int32(size.X), int32(size.Y),
		gl.RGBA, gl.UNSIGNED_BYTE,
		gl.Ptr(canvas.Pix))
}

// fitTransform scales the unit quad so a canvas keeps its aspect ratio
// inside a framebuffer of a different shape. The unused area stays clear.
func fitTransform(canvasW, canvasH, fbW, fbH int) mgl.Mat4 {
	if canvasW <= 0 || canvasH <= 0 || fbW <= 0 || fbH <= 0 {
		return mgl.Ident4()
	}
	canvasAspect := float32(canvasW) / float32(canvasH)
	fbAspect := float32(fbW) / float32(fbH)
	if canvasAspect > fbAspect {
		return mgl.Scale3D(1, fbAspect/canvasAspect, 1)
	}
	return mgl.Scale3D(canvasAspect/fbAspect, 1, 1)
}

// draw expects a canvas with a compact stride anchored at the origin.
func (r *renderer) draw(canvas *image.RGBA, fbW, fbH int) {
	if canvas.Bounds().Empty() {
		return
	}
	gl.UseProgram(r.program)
	r.upload(canvas)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.Uniform1i(r.uTex, 0)
	size := canvas.Bounds().Size()
	transform := fitTransform(size.X, size.Y, fbW, fbH)
	gl.UniformMatrix4fv(r.uTransform, 1, false, &transform[0])

	stride := int32(unsafe.Sizeof(vertex{}))
	gl.EnableVertexAttribArray(uint32(r.aPosition))
	gl.VertexAttribPointer(uint32(r.aPosition), 2, gl.FLOAT, false, stride,
		gl.Ptr(&quad[0].position[0]))
	gl.EnableVertexAttribArray(uint32(r.aTexcoord))
	gl.VertexAttribPointer(uint32(r.aTexcoord), 2, gl.FLOAT, false, stride,
		gl.Ptr(&quad[0].texcoord[0]))
	gl.DrawArrays(gl.TRIANGLE_STRIP, 0, int32(len(quad)))
	gl.DisableVertexAttribArray(uint32(r.aPosition))
	gl.DisableVertexAttribArray(uint32(r.aTexcoord))
	gl.BindTexture(gl.TEXTURE_2D, 0)
}

func (r *renderer) close() {
	if r.tex != 0 {
		gl.DeleteTextures(1, &r.tex)
		r.tex = 0
	}
	for _, s := range r.shaders {
		if s != 0 {
			gl.DeleteShader(s)
		}
	}
	if r.program != 0 {
		gl.DeleteProgram(r.program)
		r.program = 0
	}
}
