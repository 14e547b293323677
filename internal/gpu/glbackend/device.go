// Package glbackend implements gpu.Device on an OpenGL 4.1 core context.
// All methods must be called on the thread that owns the context.
package glbackend

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"defview/internal/gpu"
	"defview/internal/logger"
)

type glMesh struct {
	vao, vbo, ebo uint32
	count         int32
	indexed       bool
	primitive     gpu.Primitive
}

type Device struct {
	log    *zap.Logger
	meshes map[gpu.Mesh]glMesh
	labels map[string]string
	groups []string
	// debug is set when the context exposes KHR_debug
	debug bool

	drawFB gpu.Framebuffer
	readFB gpu.Framebuffer
}

var _ gpu.Device = (*Device)(nil)

// New loads the GL function pointers for the current context and sets the
// state no pass ever changes.
func New(log *zap.Logger) (*Device, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	d := &Device{
		log:    logger.Or(log),
		meshes: make(map[gpu.Mesh]glMesh),
		labels: make(map[string]string),
	}
	d.log.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))))

	d.debug = hasExtension(extensions(), "GL_KHR_debug")
	d.log.Debug("debug labels", zap.Bool("enabled", d.debug))

	gl.DepthFunc(gl.LESS)
	gl.CullFace(gl.BACK)
	gl.FrontFace(gl.CCW)
	return d, nil
}

func formatOf(f gpu.Format) (internal int32, format, xtype uint32) {
	switch f {
	case gpu.FormatRGB32F:
		return gl.RGB32F, gl.RGB, gl.FLOAT
	case gpu.FormatRGBA32F:
		return gl.RGBA32F, gl.RGBA, gl.FLOAT
	case gpu.FormatRGBA16F:
		return gl.RGBA16F, gl.RGBA, gl.FLOAT
	case gpu.FormatRGBA8:
		return gl.RGBA8, gl.RGBA, gl.UNSIGNED_BYTE
	case gpu.FormatDepth32F:
		return gl.DEPTH_COMPONENT32F, gl.DEPTH_COMPONENT, gl.FLOAT
	case gpu.FormatDepth32FStencil8:
		return gl.DEPTH32F_STENCIL8, gl.DEPTH_STENCIL, gl.FLOAT_32_UNSIGNED_INT_24_8_REV
	default:
		panic(fmt.Sprintf("glbackend: unsupported format %v", f))
	}
}

func filterOf(f gpu.Filter) int32 {
	if f == gpu.FilterLinear {
		return gl.LINEAR
	}
	return gl.NEAREST
}

func wrapOf(w gpu.Wrap) int32 {
	switch w {
	case gpu.WrapClampToBorder:
		return gl.CLAMP_TO_BORDER
	case gpu.WrapRepeat:
		return gl.REPEAT
	default:
		return gl.CLAMP_TO_EDGE
	}
}

func (d *Device) CreateTexture(desc gpu.TextureDesc) gpu.Texture {
	var id uint32
	gl.GenTextures(1, &id)
	gl.BindTexture(gl.TEXTURE_2D, id)

	internal, format, xtype := formatOf(desc.Format)
	if desc.Pixels != nil {
		format, xtype = gl.RGBA, gl.UNSIGNED_BYTE
		gl.TexImage2D(gl.TEXTURE_2D, 0, internal, int32(desc.Width), int32(desc.Height), 0, format, xtype, gl.Ptr(desc.Pixels))
	} else {
		gl.TexImage2D(gl.TEXTURE_2D, 0, internal, int32(desc.Width), int32(desc.Height), 0, format, xtype, nil)
	}
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, filterOf(desc.Filter))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, filterOf(desc.Filter))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, wrapOf(desc.Wrap))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, wrapOf(desc.Wrap))
	if desc.Wrap == gpu.WrapClampToBorder {
		border := desc.Border
		gl.TexParameterfv(gl.TEXTURE_2D, gl.TEXTURE_BORDER_COLOR, &border[0])
	}
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return gpu.Texture(id)
}

func (d *Device) DeleteTexture(t gpu.Texture) {
	id := uint32(t)
	gl.DeleteTextures(1, &id)
}

func (d *Device) BindTexture(unit int, t gpu.Texture) {
	gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
	gl.BindTexture(gl.TEXTURE_2D, uint32(t))
}

func (d *Device) CreateRenderbuffer(format gpu.Format, width, height int) gpu.Renderbuffer {
	var id uint32
	internal, _, _ := formatOf(format)
	gl.GenRenderbuffers(1, &id)
	gl.BindRenderbuffer(gl.RENDERBUFFER, id)
	gl.RenderbufferStorage(gl.RENDERBUFFER, uint32(internal), int32(width), int32(height))
	gl.BindRenderbuffer(gl.RENDERBUFFER, 0)
	return gpu.Renderbuffer(id)
}

func (d *Device) DeleteRenderbuffer(rb gpu.Renderbuffer) {
	id := uint32(rb)
	gl.DeleteRenderbuffers(1, &id)
}

func (d *Device) CreateFramebuffer() gpu.Framebuffer {
	var id uint32
	gl.GenFramebuffers(1, &id)
	return gpu.Framebuffer(id)
}

func (d *Device) DeleteFramebuffer(fb gpu.Framebuffer) {
	id := uint32(fb)
	gl.DeleteFramebuffers(1, &id)
	if d.drawFB == fb {
		d.drawFB = gpu.DefaultFramebuffer
	}
	if d.readFB == fb {
		d.readFB = gpu.DefaultFramebuffer
	}
}

// editing binds fb to GL_FRAMEBUFFER for attachment calls and returns a
// func restoring the tracked bindings.
func (d *Device) editing(fb gpu.Framebuffer) func() {
	gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(fb))
	return func() {
		gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, uint32(d.drawFB))
		gl.BindFramebuffer(gl.READ_FRAMEBUFFER, uint32(d.readFB))
	}
}

func (d *Device) AttachColor(fb gpu.Framebuffer, index int, t gpu.Texture) {
	defer d.editing(fb)()
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0+uint32(index), gl.TEXTURE_2D, uint32(t), 0)
}

func (d *Device) AttachDepth(fb gpu.Framebuffer, t gpu.Texture) {
	defer d.editing(fb)()
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.TEXTURE_2D, uint32(t), 0)
}

func (d *Device) AttachDepthStencil(fb gpu.Framebuffer, rb gpu.Renderbuffer) {
	defer d.editing(fb)()
	gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_STENCIL_ATTACHMENT, gl.RENDERBUFFER, uint32(rb))
}

func (d *Device) FramebufferStatus(fb gpu.Framebuffer) gpu.Status {
	defer d.editing(fb)()
	switch gl.CheckFramebufferStatus(gl.FRAMEBUFFER) {
	case gl.FRAMEBUFFER_COMPLETE:
		return gpu.StatusComplete
	case gl.FRAMEBUFFER_INCOMPLETE_ATTACHMENT:
		return gpu.StatusIncompleteAttachment
	case gl.FRAMEBUFFER_INCOMPLETE_MISSING_ATTACHMENT:
		return gpu.StatusMissingAttachment
	case gl.FRAMEBUFFER_UNSUPPORTED:
		return gpu.StatusUnsupported
	default:
		return gpu.StatusUnknown
	}
}

func (d *Device) BindFramebuffer(target gpu.Target, fb gpu.Framebuffer) {
	switch target {
	case gpu.TargetDraw:
		gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, uint32(fb))
		d.drawFB = fb
	case gpu.TargetRead:
		gl.BindFramebuffer(gl.READ_FRAMEBUFFER, uint32(fb))
		d.readFB = fb
	default:
		gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(fb))
		d.drawFB, d.readFB = fb, fb
	}
}

func attachmentEnum(fb gpu.Framebuffer, index int) uint32 {
	if index < 0 {
		return gl.NONE
	}
	if fb == gpu.DefaultFramebuffer {
		return gl.BACK
	}
	return gl.COLOR_ATTACHMENT0 + uint32(index)
}

func (d *Device) DrawBuffers(indices ...int) {
	if len(indices) == 0 {
		gl.DrawBuffer(gl.NONE)
		return
	}
	bufs := make([]uint32, len(indices))
	for i, idx := range indices {
		bufs[i] = attachmentEnum(d.drawFB, idx)
	}
	if d.drawFB == gpu.DefaultFramebuffer {
		gl.DrawBuffer(bufs[0])
		return
	}
	gl.DrawBuffers(int32(len(bufs)), &bufs[0])
}

func (d *Device) ReadBuffer(index int) {
	gl.ReadBuffer(attachmentEnum(d.readFB, index))
}

func (d *Device) Viewport(r gpu.Rect) {
	gl.Viewport(int32(r.X), int32(r.Y), int32(r.W), int32(r.H))
}

func enable(capability uint32, on bool) {
	if on {
		gl.Enable(capability)
	} else {
		gl.Disable(capability)
	}
}

func (d *Device) SetDepth(test, write bool) {
	enable(gl.DEPTH_TEST, test)
	gl.DepthMask(write)
}

func (d *Device) SetBlend(mode gpu.BlendMode) {
	if mode == gpu.BlendAdditive {
		gl.Enable(gl.BLEND)
		gl.BlendEquation(gl.FUNC_ADD)
		gl.BlendFunc(gl.ONE, gl.ONE)
		return
	}
	gl.Disable(gl.BLEND)
}

func (d *Device) SetCullFace(enabled bool) { enable(gl.CULL_FACE, enabled) }

func (d *Device) SetWireframe(enabled bool) {
	if enabled {
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.LINE)
	} else {
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.FILL)
	}
}

func (d *Device) ClearColor(r, g, b, a float32) { gl.ClearColor(r, g, b, a) }

func (d *Device) Clear(mask gpu.ClearMask) {
	var bits uint32
	if mask&gpu.ClearColor != 0 {
		bits |= gl.COLOR_BUFFER_BIT
	}
	if mask&gpu.ClearDepth != 0 {
		bits |= gl.DEPTH_BUFFER_BIT
	}
	if mask&gpu.ClearStencil != 0 {
		bits |= gl.STENCIL_BUFFER_BIT
	}
	gl.Clear(bits)
}

func (d *Device) Blit(src, dst gpu.Bounds, filter gpu.Filter) {
	gl.BlitFramebuffer(
		int32(src.X0), int32(src.Y0), int32(src.X1), int32(src.Y1),
		int32(dst.X0), int32(dst.Y0), int32(dst.X1), int32(dst.Y1),
		gl.COLOR_BUFFER_BIT, uint32(filterOf(filter)))
}

func (d *Device) ReadPixels(r gpu.Rect) []float32 {
	out := make([]float32, 4*r.W*r.H)
	if len(out) == 0 {
		return out
	}
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(int32(r.X), int32(r.Y), int32(r.W), int32(r.H), gl.RGBA, gl.FLOAT, gl.Ptr(&out[0]))
	return out
}

func stageEnum(s gpu.Stage) uint32 {
	switch s {
	case gpu.StageTessControl:
		return gl.TESS_CONTROL_SHADER
	case gpu.StageTessEval:
		return gl.TESS_EVALUATION_SHADER
	case gpu.StageFragment:
		return gl.FRAGMENT_SHADER
	default:
		return gl.VERTEX_SHADER
	}
}

func (d *Device) CompileShader(stage gpu.Stage, source string) (gpu.Shader, string, bool) {
	shader := gl.CreateShader(stageEnum(stage))

	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, strings.TrimRight(log, "\x00"), false
	}
	return gpu.Shader(shader), "", true
}

func (d *Device) DeleteShader(s gpu.Shader) { gl.DeleteShader(uint32(s)) }

func (d *Device) LinkProgram(shaders ...gpu.Shader) (gpu.Program, string, bool) {
	program := gl.CreateProgram()
	for _, s := range shaders {
		gl.AttachShader(program, uint32(s))
	}
	gl.LinkProgram(program)
	for _, s := range shaders {
		gl.DetachShader(program, uint32(s))
	}

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		gl.DeleteProgram(program)
		return 0, strings.TrimRight(log, "\x00"), false
	}
	return gpu.Program(program), "", true
}

func (d *Device) DeleteProgram(p gpu.Program) { gl.DeleteProgram(uint32(p)) }
func (d *Device) UseProgram(p gpu.Program)    { gl.UseProgram(uint32(p)) }

func (d *Device) UniformLocation(p gpu.Program, name string) int32 {
	return gl.GetUniformLocation(uint32(p), gl.Str(name+"\x00"))
}

func (d *Device) Uniform1i(loc int32, v int32)         { gl.Uniform1i(loc, v) }
func (d *Device) Uniform1f(loc int32, v float32)       { gl.Uniform1f(loc, v) }
func (d *Device) Uniform2f(loc int32, x, y float32)    { gl.Uniform2f(loc, x, y) }
func (d *Device) Uniform3f(loc int32, x, y, z float32) { gl.Uniform3f(loc, x, y, z) }

func (d *Device) UniformMatrix4(loc int32, m mgl32.Mat4) {
	gl.UniformMatrix4fv(loc, 1, false, &m[0])
}

func (d *Device) CreateMesh(desc gpu.MeshDesc) gpu.Mesh {
	var m glMesh
	gl.GenVertexArrays(1, &m.vao)
	gl.BindVertexArray(m.vao)

	gl.GenBuffers(1, &m.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, m.vbo)
	if len(desc.Vertices) > 0 {
		gl.BufferData(gl.ARRAY_BUFFER, len(desc.Vertices)*4, gl.Ptr(desc.Vertices), gl.STATIC_DRAW)
	}

	stride := desc.Stride()
	offset := 0
	for i, n := range desc.Layout {
		gl.VertexAttribPointerWithOffset(uint32(i), int32(n), gl.FLOAT, false, int32(stride*4), uintptr(offset*4))
		gl.EnableVertexAttribArray(uint32(i))
		offset += n
	}

	if len(desc.Indices) > 0 {
		gl.GenBuffers(1, &m.ebo)
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, m.ebo)
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(desc.Indices)*4, gl.Ptr(desc.Indices), gl.STATIC_DRAW)
		m.count = int32(len(desc.Indices))
		m.indexed = true
	} else if stride > 0 {
		m.count = int32(len(desc.Vertices) / stride)
	}
	m.primitive = desc.Primitive
	gl.BindVertexArray(0)

	d.meshes[gpu.Mesh(m.vao)] = m
	return gpu.Mesh(m.vao)
}

func (d *Device) DeleteMesh(id gpu.Mesh) {
	m, ok := d.meshes[id]
	if !ok {
		return
	}
	delete(d.meshes, id)
	gl.DeleteVertexArrays(1, &m.vao)
	gl.DeleteBuffers(1, &m.vbo)
	if m.ebo != 0 {
		gl.DeleteBuffers(1, &m.ebo)
	}
}

func (d *Device) DrawMesh(id gpu.Mesh, patches bool) {
	m, ok := d.meshes[id]
	if !ok {
		panic(fmt.Sprintf("glbackend: mesh %d does not exist", id))
	}
	mode := uint32(gl.TRIANGLES)
	switch {
	case patches && m.primitive == gpu.PrimitiveTriangles:
		gl.PatchParameteri(gl.PATCH_VERTICES, 3)
		mode = gl.PATCHES
	case m.primitive == gpu.PrimitiveTriangleStrip:
		mode = gl.TRIANGLE_STRIP
	}
	gl.BindVertexArray(m.vao)
	if m.indexed {
		gl.DrawElements(mode, m.count, gl.UNSIGNED_INT, nil)
	} else {
		gl.DrawArrays(mode, 0, m.count)
	}
	gl.BindVertexArray(0)
}

func extensions() []string {
	var n int32
	gl.GetIntegerv(gl.NUM_EXTENSIONS, &n)
	exts := make([]string, 0, n)
	for i := uint32(0); i < uint32(n); i++ {
		exts = append(exts, gl.GoStr(gl.GetStringi(gl.EXTENSIONS, i)))
	}
	return exts
}

func hasExtension(exts []string, name string) bool {
	for _, e := range exts {
		if e == name {
			return true
		}
	}
	return false
}

// identifierOf maps an object kind to its glObjectLabel namespace. Mesh
// handles are vertex array names.
func identifierOf(kind gpu.ObjectKind) uint32 {
	switch kind {
	case gpu.KindTexture:
		return gl.TEXTURE
	case gpu.KindRenderbuffer:
		return gl.RENDERBUFFER
	case gpu.KindFramebuffer:
		return gl.FRAMEBUFFER
	case gpu.KindShader:
		return gl.SHADER
	case gpu.KindProgram:
		return gl.PROGRAM
	case gpu.KindMesh:
		return gl.VERTEX_ARRAY
	default:
		panic(fmt.Sprintf("glbackend: unknown object kind %d", kind))
	}
}

// Label names an object for log output and, with KHR_debug, for GL
// debuggers.
func (d *Device) Label(kind gpu.ObjectKind, id uint32, label string) {
	d.labels[fmt.Sprintf("%d:%d", kind, id)] = label
	d.log.Debug("gl object", zap.String("label", label), zap.Uint32("id", id))
	if d.debug {
		gl.ObjectLabel(identifierOf(kind), id, -1, gl.Str(label+"\x00"))
	}
}

func (d *Device) PushGroup(name string) {
	d.groups = append(d.groups, name)
	if d.debug {
		gl.PushDebugGroup(gl.DEBUG_SOURCE_APPLICATION, 0, -1, gl.Str(name+"\x00"))
	}
}

// PopGroup closes a group and reports any GL error raised inside it.
func (d *Device) PopGroup() {
	if len(d.groups) == 0 {
		return
	}
	name := d.groups[len(d.groups)-1]
	d.groups = d.groups[:len(d.groups)-1]
	if d.debug {
		gl.PopDebugGroup()
	}
	for code := gl.GetError(); code != gl.NO_ERROR; code = gl.GetError() {
		d.log.Error("GL error", zap.String("group", name), zap.String("code", fmt.Sprintf("0x%04X", code)))
	}
}
