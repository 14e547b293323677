// Package gpu defines the command surface the renderer drives. It mirrors the
// subset of OpenGL 4.1 core the deferred pipeline needs so that a GL backend
// and a CPU reference backend can sit behind the same calls.
package gpu

import "github.com/go-gl/mathgl/mgl32"

// Device issues commands to one graphics context. Implementations are not
// safe for concurrent use; all calls happen on the render thread.
type Device interface {
	CreateTexture(desc TextureDesc) Texture
	DeleteTexture(t Texture)
	// BindTexture binds t to the given texture unit. Zero unbinds.
	BindTexture(unit int, t Texture)

	CreateRenderbuffer(format Format, width, height int) Renderbuffer
	DeleteRenderbuffer(rb Renderbuffer)

	CreateFramebuffer() Framebuffer
	DeleteFramebuffer(fb Framebuffer)
	AttachColor(fb Framebuffer, index int, t Texture)
	AttachDepth(fb Framebuffer, t Texture)
	AttachDepthStencil(fb Framebuffer, rb Renderbuffer)
	FramebufferStatus(fb Framebuffer) Status
	BindFramebuffer(target Target, fb Framebuffer)
	// DrawBuffers routes fragment outputs of the bound draw framebuffer:
	// output location i writes to color attachment indices[i]. No indices
	// disables color output.
	DrawBuffers(indices ...int)
	// ReadBuffer selects the color attachment blits and read-backs use.
	ReadBuffer(index int)

	Viewport(r Rect)
	SetDepth(test, write bool)
	SetBlend(mode BlendMode)
	SetCullFace(enabled bool)
	SetWireframe(enabled bool)
	ClearColor(r, g, b, a float32)
	// Clear clears the enabled draw buffers and, when depth writes are
	// enabled, the depth buffer of the bound draw framebuffer.
	Clear(mask ClearMask)
	Blit(src, dst Bounds, filter Filter)
	// ReadPixels returns RGBA floats of the read buffer, bottom row first.
	ReadPixels(r Rect) []float32

	// CompileShader returns the shader and true, or zero and the compiler log.
	CompileShader(stage Stage, source string) (Shader, string, bool)
	DeleteShader(s Shader)
	// LinkProgram returns the program and true, or zero and the linker log.
	LinkProgram(shaders ...Shader) (Program, string, bool)
	DeleteProgram(p Program)
	UseProgram(p Program)
	// UniformLocation returns -1 for names the program does not use.
	UniformLocation(p Program, name string) int32
	Uniform1i(loc int32, v int32)
	Uniform1f(loc int32, v float32)
	Uniform2f(loc int32, x, y float32)
	Uniform3f(loc int32, x, y, z float32)
	UniformMatrix4(loc int32, m mgl32.Mat4)

	CreateMesh(desc MeshDesc) Mesh
	DeleteMesh(m Mesh)
	// DrawMesh draws with the current program. With patches set, triangle
	// lists are submitted as 3-vertex patches for tessellation.
	DrawMesh(m Mesh, patches bool)

	Label(kind ObjectKind, id uint32, label string)
	PushGroup(name string)
	PopGroup()
}
