// Package gbuffer manages the geometry buffer of the deferred renderer: one
// framebuffer with a color attachment per surface attribute, the final
// color image lights accumulate into, and a depth/stencil renderbuffer.
package gbuffer

import (
	"errors"
	"fmt"

	"defview/internal/gpu"
)

var ErrIncomplete = errors.New("gbuffer: framebuffer incomplete")

// Attachment is the role of a color attachment. The ordinal is the
// attachment index, the fragment output location in the geometry pass and
// the texture unit in the light passes.
type Attachment int

const (
	Position Attachment = iota
	Normal
	AlbedoSpec
	Emission
	TexCoord
	Final

	NumAttachments = int(Final) + 1
)

// ScratchUnit is the texture unit holding the copy of the final image
// during post-processing. It is the unit of the final attachment, which is
// never sampled while the copy is bound.
const ScratchUnit = 5

var attachmentNames = [NumAttachments]string{
	"Position", "Normal", "AlbedoSpec", "Emission", "TexCoords", "Final",
}

func (a Attachment) String() string {
	if a < 0 || int(a) >= NumAttachments {
		return fmt.Sprintf("Attachment(%d)", int(a))
	}
	return attachmentNames[a]
}

// Format returns the storage format of the attachment.
func (a Attachment) Format() gpu.Format {
	switch a {
	case AlbedoSpec:
		return gpu.FormatRGBA32F
	case Final:
		return gpu.FormatRGBA16F
	default:
		return gpu.FormatRGB32F
	}
}

// TextureUnit is the unit the attachment is bound to for reading.
func (a Attachment) TextureUnit() int { return int(a) }

// GBuffer owns the geometry framebuffer and its attachments. All
// attachments always share one size.
type GBuffer struct {
	dev gpu.Device

	fbo      gpu.Framebuffer
	textures [NumAttachments]gpu.Texture
	depth    gpu.Renderbuffer

	scratchFBO gpu.Framebuffer
	scratch    gpu.Texture

	width, height int
	destroyed     bool
}

// New allocates a G-Buffer of the given size. If the device reports the
// framebuffer incomplete, the G-Buffer is still returned together with an
// error wrapping ErrIncomplete, so callers can keep rendering for diagnosis.
func New(dev gpu.Device, width, height int) (*GBuffer, error) {
	g := &GBuffer{dev: dev}
	return g, g.allocate(width, height)
}

func (g *GBuffer) allocate(width, height int) error {
	g.width, g.height = width, height
	g.fbo = g.dev.CreateFramebuffer()

	for i := range g.textures {
		a := Attachment(i)
		g.textures[i] = g.dev.CreateTexture(gpu.TextureDesc{
			Width:  width,
			Height: height,
			Format: a.Format(),
			Filter: gpu.FilterNearest,
			Wrap:   gpu.WrapClampToEdge,
		})
		g.dev.AttachColor(g.fbo, i, g.textures[i])
		g.dev.Label(gpu.KindTexture, uint32(g.textures[i]), a.String())
	}

	g.depth = g.dev.CreateRenderbuffer(gpu.FormatDepth32FStencil8, width, height)
	g.dev.AttachDepthStencil(g.fbo, g.depth)
	g.dev.Label(gpu.KindRenderbuffer, uint32(g.depth), "GBuffer Depth")
	g.dev.Label(gpu.KindFramebuffer, uint32(g.fbo), "GBuffer")

	g.scratch = g.dev.CreateTexture(gpu.TextureDesc{
		Width:  width,
		Height: height,
		Format: Final.Format(),
		Filter: gpu.FilterNearest,
		Wrap:   gpu.WrapClampToEdge,
	})
	g.scratchFBO = g.dev.CreateFramebuffer()
	g.dev.AttachColor(g.scratchFBO, 0, g.scratch)
	g.dev.Label(gpu.KindTexture, uint32(g.scratch), "Final Copy")
	g.dev.Label(gpu.KindFramebuffer, uint32(g.scratchFBO), "GBuffer Scratch")

	var err error
	if status := g.dev.FramebufferStatus(g.fbo); status != gpu.StatusComplete {
		err = fmt.Errorf("%w: %w", ErrIncomplete, &gpu.StatusError{Label: "GBuffer", Status: status})
	} else if status := g.dev.FramebufferStatus(g.scratchFBO); status != gpu.StatusComplete {
		err = fmt.Errorf("%w: %w", ErrIncomplete, &gpu.StatusError{Label: "GBuffer Scratch", Status: status})
	}
	g.dev.BindFramebuffer(gpu.TargetBoth, gpu.DefaultFramebuffer)
	return err
}

func (g *GBuffer) release() {
	g.dev.DeleteFramebuffer(g.scratchFBO)
	g.dev.DeleteTexture(g.scratch)
	g.dev.DeleteFramebuffer(g.fbo)
	for i, t := range g.textures {
		g.dev.DeleteTexture(t)
		g.textures[i] = 0
	}
	g.dev.DeleteRenderbuffer(g.depth)
	g.fbo, g.scratchFBO, g.scratch, g.depth = 0, 0, 0, 0
}

func (g *GBuffer) mustLive() {
	if g.destroyed {
		panic("gbuffer: use after Destroy")
	}
}

// Resize destroys every attachment and allocates new ones at the new size.
// The error has the same meaning as the one returned by New.
func (g *GBuffer) Resize(width, height int) error {
	g.mustLive()
	g.release()
	return g.allocate(width, height)
}

func (g *GBuffer) Size() (int, int) { return g.width, g.height }

// Framebuffer returns the geometry framebuffer handle.
func (g *GBuffer) Framebuffer() gpu.Framebuffer { return g.fbo }

// Texture returns the texture behind an attachment.
func (g *GBuffer) Texture(a Attachment) gpu.Texture { return g.textures[a] }

// BindForGeometryPass routes fragment outputs 0..4 to the surface
// attachments. The final attachment is not written.
func (g *GBuffer) BindForGeometryPass() {
	g.mustLive()
	g.dev.BindFramebuffer(gpu.TargetDraw, g.fbo)
	g.dev.DrawBuffers(int(Position), int(Normal), int(AlbedoSpec), int(Emission), int(TexCoord))
}

// BindForLightPass restricts output to the final attachment and binds the
// surface attachments to their texture units.
func (g *GBuffer) BindForLightPass() {
	g.mustLive()
	g.dev.BindFramebuffer(gpu.TargetDraw, g.fbo)
	g.dev.DrawBuffers(int(Final))
	for a := Position; a < Final; a++ {
		g.dev.BindTexture(a.TextureUnit(), g.textures[a])
	}
}

// BindForPostProcess copies the final image to the scratch texture, binds
// the copy to ScratchUnit and makes the final attachment the only output.
// The pass never samples the image it writes.
func (g *GBuffer) BindForPostProcess() {
	g.mustLive()
	g.dev.BindFramebuffer(gpu.TargetRead, g.fbo)
	g.dev.ReadBuffer(int(Final))
	g.dev.BindFramebuffer(gpu.TargetDraw, g.scratchFBO)
	g.dev.DrawBuffers(0)
	full := gpu.Bounds{X1: g.width, Y1: g.height}
	g.dev.Blit(full, full, gpu.FilterNearest)

	g.dev.BindFramebuffer(gpu.TargetDraw, g.fbo)
	g.dev.DrawBuffers(int(Final))
	g.dev.BindTexture(ScratchUnit, g.scratch)
}

// BindForFinalPass makes the final attachment the blit source and the
// default framebuffer the destination.
func (g *GBuffer) BindForFinalPass() {
	g.BindForAttachmentRead(Final)
	g.dev.BindFramebuffer(gpu.TargetDraw, gpu.DefaultFramebuffer)
}

// BindForAttachmentRead selects one attachment as the read source.
func (g *GBuffer) BindForAttachmentRead(a Attachment) {
	g.mustLive()
	g.dev.BindFramebuffer(gpu.TargetRead, g.fbo)
	g.dev.ReadBuffer(int(a))
}

// ClearFinal clears the final attachment to transparent black and leaves
// every other attachment untouched.
func (g *GBuffer) ClearFinal() {
	g.mustLive()
	g.dev.BindFramebuffer(gpu.TargetDraw, g.fbo)
	g.dev.DrawBuffers(int(Final))
	g.dev.ClearColor(0, 0, 0, 0)
	g.dev.Clear(gpu.ClearColor)
}

// Destroy releases all device objects. Any further call panics, except
// Destroy itself.
func (g *GBuffer) Destroy() {
	if g.destroyed {
		return
	}
	g.release()
	g.destroyed = true
}
