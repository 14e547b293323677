package soft

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

const shininess = 32

var lightInputs = []string{
	"u_Position", "u_Normal", "u_AlbedoSpec", "u_Emission",
	"u_screenSize", "u_viewPos",
	"u_matAmbient", "u_matDiffuse", "u_matSpecular",
}

// DefaultKernels returns the CPU versions of the programs under
// assets/shaders. They compute the same results as the GLSL sources.
func DefaultKernels() []*Kernel {
	return []*Kernel{
		modelKernel(),
		pointLightKernel(),
		dirLightKernel(),
		postProcessKernel(),
		dirShadowKernel(),
	}
}

func modelKernel() *Kernel {
	return &Kernel{
		Name: "model",
		Uniforms: []string{
			"u_projectionMatrix", "u_viewMatrix", "u_modelMatrix",
			"u_useTess", "u_TessLevelInner", "u_TessLevelOuter",
			"u_material.diffuse", "u_material.specular", "u_material.emission",
			"u_material.useAlbedoMap", "u_material.albedoMap",
		},
		Varyings: 8,
		Outputs:  5,
		Vertex: func(c *Context, attrs [][]float32, out *Varyings) mgl32.Vec4 {
			model := c.Mat4("u_modelMatrix")
			world := model.Mul4x1(vec3(attrs[0]).Vec4(1))
			n := model.Inv().Transpose().Mat3().Mul3x1(vec3(attrs[1]))
			out[0], out[1], out[2] = world[0], world[1], world[2]
			out[3], out[4], out[5] = n[0], n[1], n[2]
			if len(attrs) > 2 {
				out[6], out[7] = attrs[2][0], attrs[2][1]
			}
			return c.Mat4("u_projectionMatrix").Mul4(c.Mat4("u_viewMatrix")).Mul4x1(world)
		},
		Fragment: func(c *Context, in *Varyings, f *Fragment) {
			n := mgl32.Vec3{in[3], in[4], in[5]}
			if n.Len() > 0 {
				n = n.Normalize()
			}
			uv := mgl32.Vec2{in[6], in[7]}
			albedo := c.Vec3("u_material.diffuse")
			if c.Bool("u_material.useAlbedoMap") {
				albedo = c.Sample("u_material.albedoMap", uv).Vec3()
			}
			emission := c.Vec3("u_material.emission")
			f.Out[0] = mgl32.Vec4{in[0], in[1], in[2], 1}
			f.Out[1] = n.Vec4(1)
			f.Out[2] = albedo.Vec4(c.Float("u_material.specular"))
			f.Out[3] = emission.Vec4(1)
			f.Out[4] = mgl32.Vec4{uv[0], uv[1], 0, 1}
		},
	}
}

// quadVertex passes a full-screen quad through untransformed.
func quadVertex(_ *Context, attrs [][]float32, _ *Varyings) mgl32.Vec4 {
	return mgl32.Vec4{attrs[0][0], attrs[0][1], 0, 1}
}

type surface struct {
	pos, normal, albedo, emission mgl32.Vec3
	specular                      float32
}

// readSurface fetches the G-Buffer texels under the fragment. ok is false
// for pixels no geometry was written to.
func readSurface(c *Context, f *Fragment) (surface, bool) {
	screen := c.Vec2("u_screenSize")
	uv := mgl32.Vec2{f.X / screen[0], f.Y / screen[1]}
	n := c.Sample("u_Normal", uv).Vec3()
	if n.Len() < 0.5 {
		return surface{}, false
	}
	as := c.Sample("u_AlbedoSpec", uv)
	return surface{
		pos:      c.Sample("u_Position", uv).Vec3(),
		normal:   n.Normalize(),
		albedo:   as.Vec3(),
		specular: as[3],
		emission: c.Sample("u_Emission", uv).Vec3(),
	}, true
}

func mulElem(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}

// blinnPhong returns the diffuse and specular terms for light direction l.
func blinnPhong(c *Context, s surface, l, diffColor, specColor mgl32.Vec3) (mgl32.Vec3, mgl32.Vec3) {
	ndl := math32.Max(s.normal.Dot(l), 0)
	diffuse := mulElem(diffColor, s.albedo).Mul(ndl * c.Float("u_matDiffuse"))
	view := c.Vec3("u_viewPos").Sub(s.pos)
	if view.Len() > 0 {
		view = view.Normalize()
	}
	var specular mgl32.Vec3
	if h := l.Add(view); h.Len() > 0 && ndl > 0 {
		ndh := math32.Max(s.normal.Dot(h.Normalize()), 0)
		specular = specColor.Mul(math32.Pow(ndh, shininess) * s.specular * c.Float("u_matSpecular"))
	}
	return diffuse, specular
}

func pointLightKernel() *Kernel {
	return &Kernel{
		Name: "pointLight",
		Uniforms: append(append([]string(nil), lightInputs...),
			"pointLight.pos", "pointLight.amb", "pointLight.diff", "pointLight.spec",
			"pointLight.constant", "pointLight.linear", "pointLight.quadratic",
		),
		Outputs: 1,
		Vertex:  quadVertex,
		Fragment: func(c *Context, _ *Varyings, f *Fragment) {
			s, ok := readSurface(c, f)
			if !ok {
				f.Out[0] = mgl32.Vec4{}
				return
			}
			toLight := c.Vec3("pointLight.pos").Sub(s.pos)
			dist := toLight.Len()
			l := mgl32.Vec3{0, 1, 0}
			if dist > 0 {
				l = toLight.Mul(1 / dist)
			}
			ambient := mulElem(c.Vec3("pointLight.amb"), s.albedo).Mul(c.Float("u_matAmbient"))
			diffuse, specular := blinnPhong(c, s, l, c.Vec3("pointLight.diff"), c.Vec3("pointLight.spec"))
			att := 1 / (c.Float("pointLight.constant") + c.Float("pointLight.linear")*dist +
				c.Float("pointLight.quadratic")*dist*dist)
			f.Out[0] = ambient.Add(diffuse).Add(specular).Mul(att).Vec4(0)
		},
	}
}

func dirLightKernel() *Kernel {
	return &Kernel{
		Name: "dirLight",
		Uniforms: append(append([]string(nil), lightInputs...),
			"u_shadowMap", "u_useShadow", "u_lightSpaceMatrix",
			"dirLight.dir", "dirLight.amb", "dirLight.diff", "dirLight.spec",
		),
		Outputs: 1,
		Vertex:  quadVertex,
		Fragment: func(c *Context, _ *Varyings, f *Fragment) {
			s, ok := readSurface(c, f)
			if !ok {
				f.Out[0] = mgl32.Vec4{}
				return
			}
			l := c.Vec3("dirLight.dir")
			if l.Len() > 0 {
				l = l.Normalize()
			}
			ambient := mulElem(c.Vec3("dirLight.amb"), s.albedo).Mul(c.Float("u_matAmbient"))
			diffuse, specular := blinnPhong(c, s, l, c.Vec3("dirLight.diff"), c.Vec3("dirLight.spec"))
			lit := float32(1)
			if c.Bool("u_useShadow") {
				lit = 1 - shadowFactor(c, s, l)
			}
			color := ambient.Add(diffuse.Add(specular).Mul(lit)).Add(s.emission)
			f.Out[0] = color.Vec4(0)
		},
	}
}

// shadowFactor is 1 when the surface is occluded from the light.
func shadowFactor(c *Context, s surface, l mgl32.Vec3) float32 {
	ls := c.Mat4("u_lightSpaceMatrix").Mul4x1(s.pos.Vec4(1))
	if ls[3] == 0 {
		return 0
	}
	proj := ls.Vec3().Mul(1 / ls[3]).Mul(0.5).Add(mgl32.Vec3{0.5, 0.5, 0.5})
	if proj[2] > 1 {
		return 0
	}
	closest := c.Sample("u_shadowMap", mgl32.Vec2{proj[0], proj[1]})[0]
	bias := math32.Max(0.005*(1-s.normal.Dot(l)), 0.0005)
	if proj[2]-bias > closest {
		return 1
	}
	return 0
}

func postProcessKernel() *Kernel {
	return &Kernel{
		Name:     "postProcess",
		Uniforms: []string{"u_final", "u_exposure", "u_gamma", "u_screenSize"},
		Outputs:  1,
		Vertex:   quadVertex,
		Fragment: func(c *Context, _ *Varyings, f *Fragment) {
			screen := c.Vec2("u_screenSize")
			hdr := c.Sample("u_final", mgl32.Vec2{f.X / screen[0], f.Y / screen[1]})
			exposure := c.Float("u_exposure")
			gamma := c.Float("u_gamma")
			var out mgl32.Vec4
			for i := 0; i < 3; i++ {
				mapped := 1 - math32.Exp(-hdr[i]*exposure)
				if gamma > 0 {
					mapped = math32.Pow(mapped, 1/gamma)
				}
				out[i] = mapped
			}
			out[3] = 1
			f.Out[0] = out
		},
	}
}

func dirShadowKernel() *Kernel {
	return &Kernel{
		Name:     "dirShadow",
		Uniforms: []string{"u_lightSpaceMatrix", "u_modelMatrix"},
		Vertex: func(c *Context, attrs [][]float32, _ *Varyings) mgl32.Vec4 {
			return c.Mat4("u_lightSpaceMatrix").Mul4(c.Mat4("u_modelMatrix")).Mul4x1(vec3(attrs[0]).Vec4(1))
		},
		Fragment: func(*Context, *Varyings, *Fragment) {},
	}
}
