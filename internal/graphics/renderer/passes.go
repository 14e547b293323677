package renderer

import (
	"github.com/go-gl/mathgl/mgl32"

	"defview/internal/config"
	"defview/internal/gpu"
	"defview/internal/graphics"
	"defview/internal/graphics/gbuffer"
	"defview/internal/graphics/shadow"
	"defview/internal/profiling"
	"defview/internal/scene"
)

// Perspective clip planes of the camera.
const (
	NearPlane = 0.1
	FarPlane  = 200
)

// frameContext is the per-frame data shared by the passes.
type frameContext struct {
	frame    Frame
	settings config.Snapshot

	viewport   gpu.Rect
	view       mgl32.Mat4
	projection mgl32.Mat4
	model      mgl32.Mat4
	viewPos    mgl32.Vec3

	lightDir   mgl32.Vec3
	lightSpace mgl32.Mat4
	shadowed   bool
}

func (r *Renderer) newFrameContext(f Frame) *frameContext {
	s := f.Settings
	fc := &frameContext{
		frame:    f,
		settings: s,
		viewport: gpu.Rect{W: f.Width, H: f.Height},
		model:    s.ModelMatrix(),
		view:     mgl32.Ident4(),
	}
	fov := float32(45)
	if f.Camera != nil {
		fc.view = f.Camera.ViewMatrix()
		fc.viewPos = f.Camera.Position()
		fov = f.Camera.Zoom()
	}
	aspect := float32(f.Width) / float32(f.Height)
	fc.projection = mgl32.Perspective(mgl32.DegToRad(fov), aspect, NearPlane, FarPlane)

	fc.lightDir = s.LightDirection
	if f.DirLight != nil {
		fc.lightDir = f.DirLight.Direction
	}
	fc.lightSpace = LightSpaceMatrix(fc.lightDir, ShadowParams{
		Distance: s.ShadowDistance,
		Near:     s.ShadowNear,
		Far:      s.ShadowFar,
		Extent:   s.ShadowExtent,
	})
	return fc
}

func (r *Renderer) drawScene(fc *frameContext, p *graphics.Program, tess bool) {
	if fc.frame.Scene != nil {
		fc.frame.Scene.DrawScene(p, tess)
	}
}

func (r *Renderer) drawQuad() {
	r.dev.DrawMesh(r.quad, false)
}

func (r *Renderer) begin(pass string, state gpu.PipelineState) func() {
	stop := profiling.Track("pass." + pass)
	r.dev.PushGroup(pass)
	state.Apply(r.dev)
	return func() {
		r.dev.PopGroup()
		stop()
	}
}

// geometryPass writes the surface attributes of the scene into the
// G-Buffer. The G-Buffer is cleared even without a model program, so the
// light passes never shade the surfaces of an earlier frame.
func (r *Renderer) geometryPass(fc *frameContext) bool {
	s := fc.settings
	defer r.begin(PassGeometry, gpu.PipelineState{
		DepthTest:  true,
		DepthWrite: true,
		CullFace:   !s.Wireframe,
		Wireframe:  s.Wireframe,
		Viewport:   fc.viewport,
	})()

	r.gbuf.BindForGeometryPass()
	r.dev.ClearColor(0, 0, 0, 0)
	r.dev.Clear(gpu.ClearColor | gpu.ClearDepth)

	p := r.program(ProgramModel, PassGeometry)
	if p == nil {
		return false
	}
	p.Use()
	p.SetMat4("u_projectionMatrix", fc.projection)
	p.SetMat4("u_viewMatrix", fc.view)
	p.SetMat4("u_modelMatrix", fc.model)
	p.SetBool("u_useTess", s.Tessellation)
	p.SetFloat("u_TessLevelInner", s.TessInner)
	p.SetFloat("u_TessLevelOuter", s.TessOuter)
	// a program with tessellation stages only accepts patches; with
	// tessellation off the control stage uses level 1
	r.drawScene(fc, p, p.HasTessellation())
	return true
}

// lightState is shared by the light passes: no depth, additive blending
// into the final attachment.
func lightState(fc *frameContext) gpu.PipelineState {
	return gpu.PipelineState{Blend: gpu.BlendAdditive, Viewport: fc.viewport}
}

// setLightInputs binds the G-Buffer samplers and the uniforms common to
// both light programs.
func (r *Renderer) setLightInputs(fc *frameContext, p *graphics.Program) {
	p.SetInt("u_Position", int32(gbuffer.Position.TextureUnit()))
	p.SetInt("u_Normal", int32(gbuffer.Normal.TextureUnit()))
	p.SetInt("u_AlbedoSpec", int32(gbuffer.AlbedoSpec.TextureUnit()))
	p.SetInt("u_Emission", int32(gbuffer.Emission.TextureUnit()))
	p.SetVec2("u_screenSize", mgl32.Vec2{float32(fc.viewport.W), float32(fc.viewport.H)})
	p.SetVec3("u_viewPos", fc.viewPos)
	p.SetFloat("u_matAmbient", fc.settings.LightAmbient)
	p.SetFloat("u_matDiffuse", fc.settings.LightDiffuse)
	p.SetFloat("u_matSpecular", fc.settings.LightSpecular)
}

// pointLightPass adds one full-screen quad per point light to the final
// attachment.
func (r *Renderer) pointLightPass(fc *frameContext) bool {
	p := r.program(ProgramPointLight, PassPointLight)
	if p == nil {
		return false
	}
	defer r.begin(PassPointLight, lightState(fc))()

	r.gbuf.BindForLightPass()
	p.Use()
	r.setLightInputs(fc, p)
	for _, l := range fc.frame.PointLights {
		l.Activate(p)
		r.drawQuad()
	}
	return true
}

// shadowPass renders the scene depth from the directional light into the
// shadow target. It reports whether the shadow map is valid this frame.
func (r *Renderer) shadowPass(fc *frameContext) bool {
	if !fc.settings.Shadows {
		return false
	}
	p := r.program(ProgramDirShadow, PassShadow)
	if p == nil {
		return false
	}
	res := r.shadow.Resolution()
	defer r.begin(PassShadow, gpu.PipelineState{
		DepthTest:  true,
		DepthWrite: true,
		CullFace:   true,
		Viewport:   gpu.Rect{W: res, H: res},
	})()

	r.shadow.BindForDepthPass()
	p.Use()
	p.SetMat4("u_lightSpaceMatrix", fc.lightSpace)
	p.SetMat4("u_modelMatrix", fc.model)
	r.drawScene(fc, p, false)
	return true
}

// dirLightPass adds the directional light, attenuated by the shadow map,
// and the emission of every surface.
func (r *Renderer) dirLightPass(fc *frameContext) bool {
	p := r.program(ProgramDirLight, PassDirLight)
	if p == nil {
		return false
	}
	defer r.begin(PassDirLight, lightState(fc))()

	r.gbuf.BindForLightPass()
	r.shadow.BindAsTexture(shadow.Unit)
	p.Use()
	r.setLightInputs(fc, p)
	p.SetInt("u_shadowMap", shadow.Unit)
	p.SetBool("u_useShadow", fc.shadowed)
	p.SetMat4("u_lightSpaceMatrix", fc.lightSpace)

	light := scene.DirLight{Direction: fc.lightDir}
	if fc.frame.DirLight != nil {
		light = *fc.frame.DirLight
	}
	light.Activate(p)
	r.drawQuad()
	return true
}

// postProcessPass tone maps and gamma corrects the final attachment.
func (r *Renderer) postProcessPass(fc *frameContext) bool {
	p := r.program(ProgramPostProcess, PassPostProcess)
	if p == nil {
		return false
	}
	defer r.begin(PassPostProcess, gpu.PipelineState{Viewport: fc.viewport})()

	r.gbuf.BindForPostProcess()
	p.Use()
	p.SetInt("u_final", gbuffer.ScratchUnit)
	p.SetFloat("u_exposure", fc.settings.Exposure)
	p.SetFloat("u_gamma", fc.settings.Gamma)
	p.SetVec2("u_screenSize", mgl32.Vec2{float32(fc.viewport.W), float32(fc.viewport.H)})
	r.drawQuad()
	return true
}

// present copies the final attachment to the default framebuffer, or the
// four surface attachments in quadrants in the debug view.
func (r *Renderer) present(fc *frameContext) bool {
	defer r.begin(PassPresent, gpu.PipelineState{Viewport: fc.viewport})()

	w, h := fc.viewport.W, fc.viewport.H
	r.gbuf.BindForFinalPass()
	r.dev.ClearColor(0, 0, 0, 1)
	r.dev.Clear(gpu.ClearColor)

	full := gpu.Bounds{X1: w, Y1: h}
	if fc.settings.DebugView != ViewQuadrants {
		r.dev.Blit(full, full, gpu.FilterLinear)
		return true
	}
	for _, q := range Quadrants(w, h) {
		r.gbuf.BindForAttachmentRead(q.Attachment)
		r.dev.Blit(full, q.Bounds, gpu.FilterLinear)
	}
	return true
}

// Quadrant places one attachment in the debug view.
type Quadrant struct {
	Attachment gbuffer.Attachment
	Bounds     gpu.Bounds
}

// Quadrants lays out the debug view for a w x h viewport. Half sizes are
// truncated, so with odd sizes the right and top quadrants are one pixel
// wider or taller than the others.
func Quadrants(w, h int) [4]Quadrant {
	hw, hh := w/2, h/2
	return [4]Quadrant{
		{gbuffer.Position, gpu.Bounds{X0: 0, Y0: 0, X1: hw, Y1: hh}},
		{gbuffer.Normal, gpu.Bounds{X0: hw, Y0: hh, X1: w, Y1: h}},
		{gbuffer.Emission, gpu.Bounds{X0: 0, Y0: hh, X1: hw, Y1: h}},
		{gbuffer.AlbedoSpec, gpu.Bounds{X0: hw, Y0: 0, X1: w, Y1: hh}},
	}
}
