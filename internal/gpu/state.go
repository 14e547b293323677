package gpu

// PipelineState is the fixed-function state one pass runs with. Apply sets
// every field, so no pass depends on what an earlier pass left behind.
type PipelineState struct {
	DepthTest  bool
	DepthWrite bool
	Blend      BlendMode
	CullFace   bool
	Wireframe  bool
	Viewport   Rect
}

// Apply pushes the whole state to the device.
func (s PipelineState) Apply(d Device) {
	d.SetDepth(s.DepthTest, s.DepthWrite)
	d.SetBlend(s.Blend)
	d.SetCullFace(s.CullFace)
	d.SetWireframe(s.Wireframe)
	d.Viewport(s.Viewport)
}
