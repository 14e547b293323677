package gbuffer

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"defview/internal/gpu"
	"defview/internal/gpu/soft"
)

func TestAttachmentFormats(t *testing.T) {
	assert.Equal(t, gpu.FormatRGB32F, Position.Format())
	assert.Equal(t, gpu.FormatRGB32F, Normal.Format())
	assert.Equal(t, gpu.FormatRGBA32F, AlbedoSpec.Format())
	assert.Equal(t, gpu.FormatRGB32F, Emission.Format())
	assert.Equal(t, gpu.FormatRGB32F, TexCoord.Format())
	assert.Equal(t, gpu.FormatRGBA16F, Final.Format())
	assert.Equal(t, "AlbedoSpec", AlbedoSpec.String())
	assert.Equal(t, "Attachment(9)", Attachment(9).String())
	for a := Position; a <= Final; a++ {
		assert.Equal(t, int(a), a.TextureUnit())
	}
}

func TestScratchUnitIsUntyped(t *testing.T) {
	// assignable to a sampler uniform value and to a texture unit alike
	var sampler int32 = ScratchUnit
	var unit int = ScratchUnit
	assert.EqualValues(t, Final.TextureUnit(), sampler)
	assert.Equal(t, Final.TextureUnit(), unit)
}

func TestNewAllocatesLabelledAttachments(t *testing.T) {
	dev := soft.NewDevice(8, 6)
	g, err := New(dev, 8, 6)
	require.NoError(t, err)
	defer g.Destroy()

	for a := Position; a <= Final; a++ {
		w, h := dev.TextureSize(g.Texture(a))
		assert.Equal(t, 8, w)
		assert.Equal(t, 6, h)
		assert.Equal(t, a.String(), dev.LabelOf(gpu.KindTexture, uint32(g.Texture(a))))
	}
	assert.Equal(t, "GBuffer", dev.LabelOf(gpu.KindFramebuffer, uint32(g.Framebuffer())))
	assert.Equal(t, gpu.StatusComplete, dev.FramebufferStatus(g.Framebuffer()))

	st := dev.Stats()
	assert.Equal(t, NumAttachments+1, st.Textures)
	assert.Equal(t, 1, st.Renderbuffers)
	assert.Equal(t, 2, st.Framebuffers)
}

func TestIncompleteIsReportedButUsable(t *testing.T) {
	dev := soft.NewDevice(8, 6)
	g, err := New(dev, 0, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIncomplete))

	var se *gpu.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "GBuffer", se.Label)
	assert.NotEqual(t, gpu.StatusComplete, se.Status)

	require.NotNil(t, g)
	require.NoError(t, g.Resize(4, 4))
	g.Destroy()
}

func TestResizeReplacesEverything(t *testing.T) {
	dev := soft.NewDevice(8, 6)
	g, err := New(dev, 8, 6)
	require.NoError(t, err)
	before := dev.Stats()
	old := g.Texture(Normal)

	require.NoError(t, g.Resize(16, 12))
	w, h := g.Size()
	assert.Equal(t, []int{16, 12}, []int{w, h})
	for a := Position; a <= Final; a++ {
		tw, th := dev.TextureSize(g.Texture(a))
		assert.Equal(t, []int{16, 12}, []int{tw, th}, a.String())
	}
	tw, _ := dev.TextureSize(old)
	assert.Zero(t, tw, "old attachment must be released")

	after := dev.Stats()
	assert.Equal(t, before.Textures, after.Textures)
	assert.Equal(t, before.Renderbuffers, after.Renderbuffers)
	assert.Equal(t, before.Framebuffers, after.Framebuffers)

	g.Destroy()
	assert.Zero(t, dev.Stats().Textures)
	assert.Zero(t, dev.Stats().Framebuffers)
	assert.Zero(t, dev.Stats().Renderbuffers)
}

func TestClearFinalOnlyTouchesFinal(t *testing.T) {
	dev := soft.NewDevice(4, 4)
	g, err := New(dev, 4, 4)
	require.NoError(t, err)
	defer g.Destroy()

	dev.BindFramebuffer(gpu.TargetDraw, g.Framebuffer())
	dev.DrawBuffers(int(Position), int(Normal), int(AlbedoSpec), int(Emission), int(TexCoord), int(Final))
	dev.ClearColor(0.25, 0.5, 0.75, 1)
	dev.Clear(gpu.ClearColor)

	g.ClearFinal()

	for a := Position; a < Final; a++ {
		assert.Equal(t, mgl32.Vec3{0.25, 0.5, 0.75}, dev.TexelAt(g.Texture(a), 2, 1).Vec3(), a.String())
	}
	assert.Equal(t, mgl32.Vec4{}, dev.TexelAt(g.Texture(Final), 2, 1))
}

func TestPostProcessReadsACopy(t *testing.T) {
	dev := soft.NewDevice(4, 4)
	g, err := New(dev, 4, 4)
	require.NoError(t, err)
	defer g.Destroy()

	dev.BindFramebuffer(gpu.TargetDraw, g.Framebuffer())
	dev.DrawBuffers(int(Final))
	dev.ClearColor(2, 3, 4, 0)
	dev.Clear(gpu.ClearColor)

	g.BindForPostProcess()
	assert.Equal(t, mgl32.Vec4{2, 3, 4, 0}, dev.TexelAt(g.scratch, 3, 3))
	assert.NotEqual(t, g.Texture(Final), g.scratch)
}

func TestUseAfterDestroyPanics(t *testing.T) {
	dev := soft.NewDevice(4, 4)
	g, err := New(dev, 4, 4)
	require.NoError(t, err)
	g.Destroy()
	g.Destroy()

	assert.Panics(t, g.BindForGeometryPass)
	assert.Panics(t, g.BindForLightPass)
	assert.Panics(t, g.ClearFinal)
	assert.Panics(t, func() { _ = g.Resize(4, 4) })
}
