// Package shadow holds the depth-only render target of directional shadow
// mapping.
package shadow

import (
	"errors"
	"fmt"

	"defview/internal/gpu"
)

// DefaultResolution is the edge length of the square shadow map.
const DefaultResolution = 1024

// Unit is the texture unit the shadow map is sampled from.
const Unit = 6

var ErrIncomplete = errors.New("shadow: framebuffer incomplete")

// Target is a square depth texture attached to its own framebuffer.
// Lookups outside the texture read the border depth 1.0, so everything
// outside the light frustum counts as lit.
type Target struct {
	dev        gpu.Device
	fbo        gpu.Framebuffer
	depth      gpu.Texture
	resolution int
}

func New(dev gpu.Device, resolution int) (*Target, error) {
	if resolution <= 0 {
		resolution = DefaultResolution
	}
	t := &Target{dev: dev, resolution: resolution}

	t.depth = dev.CreateTexture(gpu.TextureDesc{
		Width:  resolution,
		Height: resolution,
		Format: gpu.FormatDepth32F,
		Filter: gpu.FilterNearest,
		Wrap:   gpu.WrapClampToBorder,
		Border: [4]float32{1, 1, 1, 1},
	})
	dev.Label(gpu.KindTexture, uint32(t.depth), "Shadow Depth")

	t.fbo = dev.CreateFramebuffer()
	dev.AttachDepth(t.fbo, t.depth)
	dev.BindFramebuffer(gpu.TargetBoth, t.fbo)
	dev.DrawBuffers()
	dev.ReadBuffer(gpu.NoAttachment)
	dev.Label(gpu.KindFramebuffer, uint32(t.fbo), "Shadow")

	var err error
	if status := dev.FramebufferStatus(t.fbo); status != gpu.StatusComplete {
		err = fmt.Errorf("%w: %w", ErrIncomplete, &gpu.StatusError{Label: "Shadow", Status: status})
	}
	dev.BindFramebuffer(gpu.TargetBoth, gpu.DefaultFramebuffer)
	return t, err
}

func (t *Target) Resolution() int              { return t.resolution }
func (t *Target) Texture() gpu.Texture         { return t.depth }
func (t *Target) Framebuffer() gpu.Framebuffer { return t.fbo }

func (t *Target) mustLive() {
	if t.fbo == 0 {
		panic("shadow: use after Destroy")
	}
}

// BindForDepthPass binds the target with color writes disabled and clears
// the depth. Depth writes must be enabled for the clear to take effect.
func (t *Target) BindForDepthPass() {
	t.mustLive()
	t.dev.BindFramebuffer(gpu.TargetDraw, t.fbo)
	t.dev.DrawBuffers()
	t.dev.Clear(gpu.ClearDepth)
}

// BindAsTexture binds the depth texture for sampling.
func (t *Target) BindAsTexture(unit int) {
	t.mustLive()
	t.dev.BindTexture(unit, t.depth)
}

func (t *Target) Destroy() {
	if t.fbo == 0 {
		return
	}
	t.dev.DeleteFramebuffer(t.fbo)
	t.dev.DeleteTexture(t.depth)
	t.fbo, t.depth = 0, 0
}
