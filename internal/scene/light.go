package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"defview/internal/graphics"
)

// Light colors are split into components with these factors.
const (
	AmbientFactor  = 0.2
	DiffuseFactor  = 0.7
	SpecularFactor = 1.0
)

// Default point light attenuation.
const (
	DefaultConstant  = 1.0
	DefaultLinear    = 0.14
	DefaultQuadratic = 0.07
)

type PointLight struct {
	Position  mgl32.Vec3
	Ambient   mgl32.Vec3
	Diffuse   mgl32.Vec3
	Specular  mgl32.Vec3
	Constant  float32
	Linear    float32
	Quadratic float32
}

// NewPointLight returns a point light with the default attenuation.
func NewPointLight(pos, color mgl32.Vec3) PointLight {
	return NewPointLightEx(pos, color, DefaultConstant, DefaultLinear, DefaultQuadratic)
}

func NewPointLightEx(pos, color mgl32.Vec3, constant, linear, quadratic float32) PointLight {
	return PointLight{
		Position:  pos,
		Ambient:   color.Mul(AmbientFactor),
		Diffuse:   color.Mul(DiffuseFactor),
		Specular:  color.Mul(SpecularFactor),
		Constant:  constant,
		Linear:    linear,
		Quadratic: quadratic,
	}
}

// Activate uploads the light to the pointLight uniform struct of p.
func (l PointLight) Activate(p *graphics.Program) {
	p.SetVec3("pointLight.pos", l.Position)
	p.SetVec3("pointLight.amb", l.Ambient)
	p.SetVec3("pointLight.diff", l.Diffuse)
	p.SetVec3("pointLight.spec", l.Specular)
	p.SetFloat("pointLight.constant", l.Constant)
	p.SetFloat("pointLight.linear", l.Linear)
	p.SetFloat("pointLight.quadratic", l.Quadratic)
}

// DirLight is a directional light. Direction points from the scene
// towards the light.
type DirLight struct {
	Direction mgl32.Vec3
	Ambient   mgl32.Vec3
	Diffuse   mgl32.Vec3
	Specular  mgl32.Vec3
}

func NewDirLight(dir, color mgl32.Vec3) DirLight {
	return DirLight{
		Direction: dir,
		Ambient:   color.Mul(AmbientFactor),
		Diffuse:   color.Mul(DiffuseFactor),
		Specular:  color.Mul(SpecularFactor),
	}
}

// Activate uploads the light to the dirLight uniform struct of p.
func (l DirLight) Activate(p *graphics.Program) {
	p.SetVec3("dirLight.dir", l.Direction)
	p.SetVec3("dirLight.amb", l.Ambient)
	p.SetVec3("dirLight.diff", l.Diffuse)
	p.SetVec3("dirLight.spec", l.Specular)
}
