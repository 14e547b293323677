package scene

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/go-gl/mathgl/mgl32"

	"defview/internal/gpu"
	"defview/internal/graphics"
)

// MaterialUnit is the texture unit of material textures.
const MaterialUnit = 7

var ErrUnknownModel = errors.New("unknown model")

// VertexLayout is position, normal, texcoord, tangent and bitangent.
var VertexLayout = []int{3, 3, 2, 3, 3}

type Material struct {
	Albedo   mgl32.Vec3
	Specular float32
	Emission mgl32.Vec3
	Texture  gpu.Texture
}

// Apply binds the material for the next draw. Programs that do not use
// material uniforms ignore them.
func (m Material) Apply(dev gpu.Device, p *graphics.Program) {
	p.SetVec3("u_material.diffuse", m.Albedo)
	p.SetFloat("u_material.specular", m.Specular)
	p.SetVec3("u_material.emission", m.Emission)
	p.SetBool("u_material.useAlbedoMap", m.Texture != 0)
	if m.Texture != 0 {
		dev.BindTexture(MaterialUnit, m.Texture)
		p.SetInt("u_material.albedoMap", MaterialUnit)
	}
}

type mesh struct {
	handle   gpu.Mesh
	material Material
}

// Model is a set of meshes with their materials.
type Model struct {
	Name string

	dev      gpu.Device
	meshes   []mesh
	textures []gpu.Texture
}

// Draw draws every mesh with p, which must be in use.
func (m *Model) Draw(p *graphics.Program, tess bool) {
	for _, ms := range m.meshes {
		ms.material.Apply(m.dev, p)
		m.dev.DrawMesh(ms.handle, tess)
	}
}

// SetTexture replaces the texture of the first mesh, which owns it from
// then on.
func (m *Model) SetTexture(t gpu.Texture) {
	if len(m.meshes) == 0 {
		return
	}
	m.meshes[0].material.Texture = t
	m.textures = append(m.textures, t)
}

func (m *Model) Delete() {
	for _, ms := range m.meshes {
		m.dev.DeleteMesh(ms.handle)
	}
	for _, t := range m.textures {
		m.dev.DeleteTexture(t)
	}
	m.meshes, m.textures = nil, nil
}

func (m *Model) add(desc gpu.MeshDesc, mat Material) {
	h := m.dev.CreateMesh(desc)
	m.dev.Label(gpu.KindMesh, uint32(h), fmt.Sprintf("%s#%d", m.Name, len(m.meshes)))
	m.meshes = append(m.meshes, mesh{handle: h, material: mat})
}

// builder accumulates indexed triangles in VertexLayout.
type builder struct {
	vertices []float32
	indices  []uint32
}

// face adds a rectangle centered at c facing n. u and v span it with
// u x v = n, so it winds counter-clockwise seen from the front.
func (b *builder) face(c, n, u, v mgl32.Vec3, hu, hv float32) {
	base := uint32(len(b.vertices) / 14)
	corners := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	for _, k := range corners {
		p := c.Add(u.Mul(k[0] * hu)).Add(v.Mul(k[1] * hv))
		b.vertices = append(b.vertices,
			p[0], p[1], p[2],
			n[0], n[1], n[2],
			(k[0]+1)/2, (k[1]+1)/2,
			u[0], u[1], u[2],
			v[0], v[1], v[2],
		)
	}
	b.indices = append(b.indices, base, base+1, base+2, base, base+2, base+3)
}

func (b *builder) cube(c mgl32.Vec3, h float32) {
	x, y, z := mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}, mgl32.Vec3{0, 0, 1}
	b.face(c.Add(x.Mul(h)), x, z.Mul(-1), y, h, h)
	b.face(c.Sub(x.Mul(h)), x.Mul(-1), z, y, h, h)
	b.face(c.Add(y.Mul(h)), y, x, z.Mul(-1), h, h)
	b.face(c.Sub(y.Mul(h)), y.Mul(-1), x, z, h, h)
	b.face(c.Add(z.Mul(h)), z, x, y, h, h)
	b.face(c.Sub(z.Mul(h)), z.Mul(-1), x.Mul(-1), y, h, h)
}

func (b *builder) plane(c mgl32.Vec3, h float32) {
	b.face(c, mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}, h, h)
}

func (b *builder) desc() gpu.MeshDesc {
	return gpu.MeshDesc{Vertices: b.vertices, Indices: b.indices, Layout: VertexLayout}
}

var (
	grey    = Material{Albedo: mgl32.Vec3{0.8, 0.8, 0.8}, Specular: 0.5}
	red     = Material{Albedo: mgl32.Vec3{0.9, 0.2, 0.2}, Specular: 1}
	green   = Material{Albedo: mgl32.Vec3{0.2, 0.8, 0.3}, Specular: 0.3}
	glowing = Material{Albedo: mgl32.Vec3{1, 0.9, 0.6}, Emission: mgl32.Vec3{1, 0.8, 0.4}}
)

// Builtin lists the models LoadModel can create.
var Builtin = []string{"plane", "cube", "showcase"}

// LoadModel creates a built-in model by name.
func LoadModel(dev gpu.Device, name string) (*Model, error) {
	m := &Model{Name: name, dev: dev}
	switch name {
	case "plane":
		var b builder
		b.plane(mgl32.Vec3{}, 5)
		m.add(b.desc(), grey)
	case "cube":
		var b builder
		b.cube(mgl32.Vec3{0, 0.5, 0}, 0.5)
		m.add(b.desc(), red)
	case "showcase":
		var floor builder
		floor.plane(mgl32.Vec3{}, 5)
		m.add(floor.desc(), grey)
		m.SetTexture(checkerTexture(dev))

		var a, b, c builder
		a.cube(mgl32.Vec3{-1.5, 0.5, 0}, 0.5)
		b.cube(mgl32.Vec3{0, 0.75, -1}, 0.75)
		c.cube(mgl32.Vec3{1.5, 0.25, 0.5}, 0.25)
		m.add(a.desc(), red)
		m.add(b.desc(), green)
		m.add(c.desc(), glowing)
	default:
		return nil, fmt.Errorf("%w %q (built-in models: %v)", ErrUnknownModel, name, Builtin)
	}
	return m, nil
}

func checkerTexture(dev gpu.Device) gpu.Texture {
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	light := color.RGBA{R: 200, G: 200, B: 200, A: 255}
	dark := color.RGBA{R: 90, G: 90, B: 100, A: 255}
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			if (x/8+y/8)%2 == 0 {
				img.SetRGBA(x, y, light)
			} else {
				img.SetRGBA(x, y, dark)
			}
		}
	}
	t, _, _ := graphics.UploadImage(dev, img, gpu.FilterNearest, gpu.WrapRepeat)
	dev.Label(gpu.KindTexture, uint32(t), "Checker")
	return t
}
