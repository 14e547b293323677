package renderer

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// parallelDot is the cosine above which the light direction counts as
// parallel to the Y axis. Only directions within float precision of it
// change the up vector.
const parallelDot = 1 - 1e-6

// ShadowParams shapes the orthographic frustum of the directional light.
type ShadowParams struct {
	// Distance scales the light direction to the eye position of the
	// light camera.
	Distance float32
	Near     float32
	Far      float32
	// Extent is the half width and half height of the frustum.
	Extent float32
}

// LightSpaceMatrix returns projection x view of a light looking from
// dir*Distance at the origin.
func LightSpaceMatrix(dir mgl32.Vec3, sp ShadowParams) mgl32.Mat4 {
	proj := mgl32.Ortho(-sp.Extent, sp.Extent, -sp.Extent, sp.Extent, sp.Near, sp.Far)

	eye := dir.Mul(sp.Distance)
	up := mgl32.Vec3{0, 1, 0}
	if l := eye.Len(); l > 0 && math32.Abs(up.Dot(eye.Mul(1/l))) > parallelDot {
		// looking straight down; any up vector off the Y axis works
		up[0] = 1
	}
	view := mgl32.LookAtV(eye, mgl32.Vec3{}, up)
	return proj.Mul4(view)
}
