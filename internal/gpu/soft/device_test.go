package soft

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"defview/internal/gpu"
)

var constantKernel = &Kernel{
	Name:     "constant",
	Uniforms: []string{"u_color"},
	Outputs:  1,
	Vertex:   quadVertex,
	Fragment: func(c *Context, _ *Varyings, f *Fragment) {
		f.Out[0] = c.Vec3("u_color").Vec4(1)
	},
}

const constantSrc = "#version 410 core\n#pragma soft constant\nvoid main() {}\n"

func quad(d *Device) gpu.Mesh {
	return d.CreateMesh(gpu.MeshDesc{
		Vertices: []float32{
			-1, 1, 0, 0, 1,
			-1, -1, 0, 0, 0,
			1, 1, 0, 1, 1,
			1, -1, 0, 1, 0,
		},
		Layout:    []int{3, 2},
		Primitive: gpu.PrimitiveTriangleStrip,
	})
}

func link(t *testing.T, d *Device, src string) gpu.Program {
	t.Helper()
	vs, log, ok := d.CompileShader(gpu.StageVertex, src)
	require.True(t, ok, log)
	fs, log, ok := d.CompileShader(gpu.StageFragment, src)
	require.True(t, ok, log)
	p, log, ok := d.LinkProgram(vs, fs)
	require.True(t, ok, log)
	d.DeleteShader(vs)
	d.DeleteShader(fs)
	return p
}

func colorTarget(d *Device, w, h int, format gpu.Format) (gpu.Framebuffer, gpu.Texture) {
	tex := d.CreateTexture(gpu.TextureDesc{Width: w, Height: h, Format: format})
	fb := d.CreateFramebuffer()
	d.AttachColor(fb, 0, tex)
	return fb, tex
}

func TestFramebufferStatus(t *testing.T) {
	d := NewDevice(4, 4)
	fb := d.CreateFramebuffer()
	assert.Equal(t, gpu.StatusMissingAttachment, d.FramebufferStatus(fb))

	empty := d.CreateTexture(gpu.TextureDesc{Format: gpu.FormatRGB32F})
	d.AttachColor(fb, 0, empty)
	assert.Equal(t, gpu.StatusIncompleteAttachment, d.FramebufferStatus(fb))

	d.AttachColor(fb, 0, d.CreateTexture(gpu.TextureDesc{Width: 4, Height: 4, Format: gpu.FormatRGB32F}))
	d.AttachDepthStencil(fb, d.CreateRenderbuffer(gpu.FormatDepth32FStencil8, 4, 4))
	assert.Equal(t, gpu.StatusComplete, d.FramebufferStatus(fb))

	d.AttachColor(fb, 1, d.CreateTexture(gpu.TextureDesc{Width: 2, Height: 4, Format: gpu.FormatRGB32F}))
	assert.Equal(t, gpu.StatusUnsupported, d.FramebufferStatus(fb))
}

func TestClearOnlyTouchesDrawBuffers(t *testing.T) {
	d := NewDevice(2, 2)
	a := d.CreateTexture(gpu.TextureDesc{Width: 2, Height: 2, Format: gpu.FormatRGBA32F})
	b := d.CreateTexture(gpu.TextureDesc{Width: 2, Height: 2, Format: gpu.FormatRGBA32F})
	fb := d.CreateFramebuffer()
	d.AttachColor(fb, 0, a)
	d.AttachColor(fb, 1, b)
	d.BindFramebuffer(gpu.TargetBoth, fb)

	d.DrawBuffers(0, 1)
	d.ClearColor(0.5, 0.5, 0.5, 0.5)
	d.Clear(gpu.ClearColor)

	d.DrawBuffers(1)
	d.ClearColor(0, 0, 0, 0)
	d.Clear(gpu.ClearColor)

	assert.Equal(t, mgl32.Vec4{0.5, 0.5, 0.5, 0.5}, d.TexelAt(a, 1, 1))
	assert.Equal(t, mgl32.Vec4{}, d.TexelAt(b, 1, 1))
}

func TestDepthClearHonoursDepthMask(t *testing.T) {
	d := NewDevice(2, 2)
	depth := d.CreateTexture(gpu.TextureDesc{Width: 2, Height: 2, Format: gpu.FormatDepth32F})
	fb := d.CreateFramebuffer()
	d.AttachDepth(fb, depth)
	d.BindFramebuffer(gpu.TargetBoth, fb)
	d.mustTexture(depth).setDepth(0, 0, 0.25)

	d.SetDepth(true, false)
	d.Clear(gpu.ClearDepth)
	assert.InDelta(t, 0.25, d.TexelAt(depth, 0, 0)[0], 1e-6)

	d.SetDepth(true, true)
	d.Clear(gpu.ClearDepth)
	assert.InDelta(t, 1.0, d.TexelAt(depth, 0, 0)[0], 1e-6)
}

func TestClampToBorderSampling(t *testing.T) {
	d := NewDevice(1, 1)
	tex := d.CreateTexture(gpu.TextureDesc{
		Width: 4, Height: 4, Format: gpu.FormatDepth32F,
		Wrap: gpu.WrapClampToBorder, Border: [4]float32{1, 1, 1, 1},
	})
	d.mustTexture(tex).fill(mgl32.Vec4{0.1, 0, 0, 1})

	assert.InDelta(t, 0.1, d.SampleTexture(tex, 0.5, 0.5)[0], 1e-6)
	for _, uv := range [][2]float32{{-0.2, 0.5}, {1.3, 0.5}, {0.5, -1}, {0.5, 2}} {
		assert.Equal(t, mgl32.Vec4{1, 1, 1, 1}, d.SampleTexture(tex, uv[0], uv[1]), "uv %v", uv)
	}
}

func TestFullScreenQuadCoversEveryPixelOnce(t *testing.T) {
	for _, size := range [][2]int{{8, 8}, {7, 5}, {16, 9}} {
		d := NewDevice(size[0], size[1], constantKernel)
		fb, tex := colorTarget(d, size[0], size[1], gpu.FormatRGBA32F)
		d.BindFramebuffer(gpu.TargetBoth, fb)
		p := link(t, d, constantSrc)
		d.UseProgram(p)
		d.Uniform3f(d.UniformLocation(p, "u_color"), 1, 1, 1)
		gpu.PipelineState{Blend: gpu.BlendAdditive, Viewport: gpu.Rect{W: size[0], H: size[1]}}.Apply(d)
		d.DrawMesh(quad(d), false)

		for y := 0; y < size[1]; y++ {
			for x := 0; x < size[0]; x++ {
				require.Equal(t, mgl32.Vec4{1, 1, 1, 1}, d.TexelAt(tex, x, y), "size %v pixel (%d,%d)", size, x, y)
			}
		}
	}
}

func TestBackFaceCulling(t *testing.T) {
	d := NewDevice(4, 4, constantKernel)
	fb, tex := colorTarget(d, 4, 4, gpu.FormatRGBA32F)
	d.BindFramebuffer(gpu.TargetBoth, fb)
	p := link(t, d, constantSrc)
	d.UseProgram(p)
	d.Uniform3f(d.UniformLocation(p, "u_color"), 1, 0, 0)
	cw := d.CreateMesh(gpu.MeshDesc{
		Vertices: []float32{-1, -1, 0, 0, 0, -1, 1, 0, 0, 0, 1, -1, 0, 0, 0},
		Layout:   []int{3, 2},
	})
	gpu.PipelineState{CullFace: true, Viewport: gpu.Rect{W: 4, H: 4}}.Apply(d)
	d.DrawMesh(cw, false)
	assert.Equal(t, mgl32.Vec4{}, d.TexelAt(tex, 0, 0))

	d.SetCullFace(false)
	d.DrawMesh(cw, false)
	assert.Equal(t, mgl32.Vec4{1, 0, 0, 1}, d.TexelAt(tex, 0, 0))
}

func TestCompileAndLinkErrors(t *testing.T) {
	d := NewDevice(1, 1, constantKernel)

	_, log, ok := d.CompileShader(gpu.StageFragment, "void main() {}")
	assert.False(t, ok)
	assert.Contains(t, log, "#version")

	_, log, ok = d.CompileShader(gpu.StageFragment, "#version 410 core\n#error broken on purpose\n")
	assert.False(t, ok)
	assert.Contains(t, log, "0:2")
	assert.Contains(t, log, "broken on purpose")

	_, _, ok = d.CompileShader(gpu.StageVertex, "#version 410 core\n#pragma soft nope\n")
	assert.False(t, ok)

	tcs, _, ok := d.CompileShader(gpu.StageTessControl, "#version 410 core\n")
	assert.True(t, ok)

	vs, _, _ := d.CompileShader(gpu.StageVertex, constantSrc)
	fs, _, _ := d.CompileShader(gpu.StageFragment, "#version 410 core\n#pragma soft postProcess\n")
	_, log, ok = d.LinkProgram(vs, tcs, fs)
	assert.False(t, ok)
	assert.Contains(t, log, "does not match")
	assert.Equal(t, 0, d.Stats().Programs)
}

func TestUniformLocations(t *testing.T) {
	d := NewDevice(1, 1, constantKernel)
	p := link(t, d, constantSrc)
	assert.Equal(t, int32(0), d.UniformLocation(p, "u_color"))
	assert.Equal(t, int32(-1), d.UniformLocation(p, "u_missing"))
	assert.Equal(t, 2, d.Stats().UniformQueries)

	d.UseProgram(p)
	assert.NotPanics(t, func() { d.Uniform1f(-1, 3) })
}

func TestBlitScalesIntoRegion(t *testing.T) {
	d := NewDevice(4, 4)
	src, srcTex := colorTarget(d, 2, 2, gpu.FormatRGBA32F)
	d.mustTexture(srcTex).set(0, 0, mgl32.Vec4{1, 0, 0, 1})
	d.mustTexture(srcTex).set(1, 1, mgl32.Vec4{0, 1, 0, 1})

	d.BindFramebuffer(gpu.TargetRead, src)
	d.ReadBuffer(0)
	d.BindFramebuffer(gpu.TargetDraw, gpu.DefaultFramebuffer)
	d.Blit(gpu.Bounds{X1: 2, Y1: 2}, gpu.Bounds{X0: 2, Y0: 2, X1: 4, Y1: 4}, gpu.FilterNearest)

	d.BindFramebuffer(gpu.TargetRead, gpu.DefaultFramebuffer)
	px := d.ReadPixels(gpu.Rect{X: 2, Y: 2, W: 2, H: 2})
	require.Len(t, px, 16)
	assert.Equal(t, []float32{1, 0, 0, 1}, px[0:4])
	assert.Equal(t, []float32{0, 1, 0, 1}, px[12:16])
	assert.Equal(t, []float32{0, 0, 0, 0}, d.ReadPixels(gpu.Rect{W: 1, H: 1}))
}

func TestDeleteReleasesObjects(t *testing.T) {
	d := NewDevice(2, 2)
	fb, tex := colorTarget(d, 2, 2, gpu.FormatRGB32F)
	rb := d.CreateRenderbuffer(gpu.FormatDepth32FStencil8, 2, 2)
	d.AttachDepthStencil(fb, rb)
	d.BindTexture(3, tex)

	d.DeleteTexture(tex)
	d.DeleteRenderbuffer(rb)
	d.DeleteFramebuffer(fb)
	assert.Equal(t, Stats{}, d.Stats())
}
