package shadow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"defview/internal/gpu"
	"defview/internal/gpu/soft"
)

func TestNewUsesDefaultResolution(t *testing.T) {
	dev := soft.NewDevice(4, 4)
	target, err := New(dev, 0)
	require.NoError(t, err)
	defer target.Destroy()

	assert.Equal(t, DefaultResolution, target.Resolution())
	w, h := dev.TextureSize(target.Texture())
	assert.Equal(t, DefaultResolution, w)
	assert.Equal(t, DefaultResolution, h)
	assert.Equal(t, "Shadow Depth", dev.LabelOf(gpu.KindTexture, uint32(target.Texture())))
	assert.Equal(t, "Shadow", dev.LabelOf(gpu.KindFramebuffer, uint32(target.Framebuffer())))
}

func TestBorderReadsAsMaximumDepth(t *testing.T) {
	dev := soft.NewDevice(4, 4)
	target, err := New(dev, 16)
	require.NoError(t, err)
	defer target.Destroy()

	dev.SetDepth(true, true)
	target.BindForDepthPass()

	tex := target.Texture()
	for _, uv := range [][2]float32{{-0.1, 0.5}, {1.1, 0.5}, {0.5, -3}, {0.5, 1.01}, {2, 2}} {
		assert.Equal(t, float32(1), dev.SampleTexture(tex, uv[0], uv[1])[0], "uv %v", uv)
	}
}

func TestDepthPassClearsDepth(t *testing.T) {
	dev := soft.NewDevice(4, 4)
	target, err := New(dev, 8)
	require.NoError(t, err)
	defer target.Destroy()

	dev.SetDepth(true, true)
	target.BindForDepthPass()
	assert.Equal(t, float32(1), dev.TexelAt(target.Texture(), 3, 3)[0])

	target.BindAsTexture(Unit)
}

func TestDestroyReleases(t *testing.T) {
	dev := soft.NewDevice(4, 4)
	target, err := New(dev, 8)
	require.NoError(t, err)

	target.Destroy()
	target.Destroy()
	assert.Zero(t, dev.Stats().Textures)
	assert.Zero(t, dev.Stats().Framebuffers)
	assert.Panics(t, target.BindForDepthPass)
	assert.Panics(t, func() { target.BindAsTexture(Unit) })
}
