package soft

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"defview/internal/gpu"
)

// minW rejects triangles that touch or cross the camera plane. The kernels
// never emit such geometry for the scenes this device renders, so there is
// no near-plane clipper.
const minW = 1e-6

type vertex struct {
	// window space position, 1/w kept for perspective correction
	x, y, z, invW float32
	vary          Varyings
}

// DrawMesh runs the current program over every triangle of m. Patches are
// rasterized as plain triangles.
func (d *Device) DrawMesh(m gpu.Mesh, patches bool) {
	ms, ok := d.meshes[m]
	if !ok {
		panic(fmt.Sprintf("soft: mesh %d does not exist", m))
	}
	prog, ok := d.programs[d.current]
	if !ok {
		panic("soft: DrawMesh without a program in use")
	}
	d.drawCalls++
	ctx := &Context{d: d, p: prog}
	desc := ms.desc

	stride := desc.Stride()
	if stride == 0 {
		return
	}
	count := len(desc.Vertices) / stride
	verts := make([]vertex, count)
	clipped := make([]bool, count)
	attrs := make([][]float32, len(desc.Layout))
	for i := 0; i < count; i++ {
		base := i * stride
		off := 0
		for a, n := range desc.Layout {
			attrs[a] = desc.Vertices[base+off : base+off+n]
			off += n
		}
		var v vertex
		pos := prog.kernel.Vertex(ctx, attrs, &v.vary)
		if pos[3] <= minW {
			clipped[i] = true
			verts[i] = v
			continue
		}
		v.invW = 1 / pos[3]
		ndc := pos.Vec3().Mul(v.invW)
		vp := d.viewport
		v.x = float32(vp.X) + (ndc[0]+1)*0.5*float32(vp.W)
		v.y = float32(vp.Y) + (ndc[1]+1)*0.5*float32(vp.H)
		v.z = (ndc[2] + 1) * 0.5
		verts[i] = v
	}

	index := func(i int) int { return i }
	n := count
	if len(desc.Indices) > 0 {
		index = func(i int) int { return int(desc.Indices[i]) }
		n = len(desc.Indices)
	}

	target := d.mustFramebuffer(d.drawFB)
	emit := func(a, b, c int) {
		if clipped[a] || clipped[b] || clipped[c] {
			return
		}
		d.rasterize(ctx, target, &verts[a], &verts[b], &verts[c])
	}
	if desc.Primitive == gpu.PrimitiveTriangleStrip && !patches {
		for i := 0; i+2 < n; i++ {
			if i%2 == 0 {
				emit(index(i), index(i+1), index(i+2))
			} else {
				emit(index(i+1), index(i), index(i+2))
			}
		}
		return
	}
	for i := 0; i+2 < n; i += 3 {
		emit(index(i), index(i+1), index(i+2))
	}
}

func edge(a, b *vertex, px, py float32) float32 {
	return (b.x-a.x)*(py-a.y) - (b.y-a.y)*(px-a.x)
}

// owns decides pixels lying exactly on the edge a->b of a counter-clockwise
// triangle, so that two triangles sharing an edge never both cover them.
func owns(a, b *vertex) bool {
	dy := b.y - a.y
	dx := b.x - a.x
	return dy > 0 || (dy == 0 && dx < 0)
}

func covered(w float32, a, b *vertex) bool {
	return w > 0 || (w == 0 && owns(a, b))
}

func (d *Device) rasterize(ctx *Context, fb *framebuffer, v0, v1, v2 *vertex) {
	area := edge(v0, v1, v2.x, v2.y)
	if area == 0 {
		return
	}
	if area < 0 {
		if d.cullFace {
			return
		}
		v1, v2 = v2, v1
		area = -area
	}

	minX := int(math32.Floor(math32.Min(v0.x, math32.Min(v1.x, v2.x))))
	maxX := int(math32.Ceil(math32.Max(v0.x, math32.Max(v1.x, v2.x))))
	minY := int(math32.Floor(math32.Min(v0.y, math32.Min(v1.y, v2.y))))
	maxY := int(math32.Ceil(math32.Max(v0.y, math32.Max(v1.y, v2.y))))
	vp := d.viewport
	minX = clampInt(minX, vp.X, vp.X+vp.W)
	maxX = clampInt(maxX, vp.X, vp.X+vp.W)
	minY = clampInt(minY, vp.Y, vp.Y+vp.H)
	maxY = clampInt(maxY, vp.Y, vp.Y+vp.H)

	nvary := ctx.p.kernel.Varyings
	outputs := ctx.p.kernel.Outputs
	var (
		in   Varyings
		frag Fragment
	)
	for y := minY; y < maxY; y++ {
		py := float32(y) + 0.5
		for x := minX; x < maxX; x++ {
			px := float32(x) + 0.5
			w0 := edge(v1, v2, px, py)
			w1 := edge(v2, v0, px, py)
			w2 := edge(v0, v1, px, py)
			if !covered(w0, v1, v2) || !covered(w1, v2, v0) || !covered(w2, v0, v1) {
				continue
			}
			l0, l1, l2 := w0/area, w1/area, w2/area
			z := l0*v0.z + l1*v1.z + l2*v2.z
			if z < 0 || z > 1 {
				continue
			}
			if d.depthTest && fb.depth != nil && fb.depth.inside(x, y) {
				if !(z < fb.depth.depth(x, y)) {
					continue
				}
			}

			p0, p1, p2 := l0*v0.invW, l1*v1.invW, l2*v2.invW
			norm := 1 / (p0 + p1 + p2)
			for i := 0; i < nvary; i++ {
				in[i] = (p0*v0.vary[i] + p1*v1.vary[i] + p2*v2.vary[i]) * norm
			}
			frag = Fragment{X: px, Y: py, Z: z}
			ctx.p.kernel.Fragment(ctx, &in, &frag)
			if frag.Discard {
				continue
			}

			if d.depthTest && d.depthWrite && fb.depth != nil && fb.depth.inside(x, y) {
				fb.depth.setDepth(x, y, z)
			}
			for o := 0; o < outputs && o < len(fb.drawBuffers); o++ {
				idx := fb.drawBuffers[o]
				if idx < 0 || idx >= gpu.MaxColorAttachments {
					continue
				}
				img := fb.color[idx]
				if img == nil || !img.inside(x, y) {
					continue
				}
				if d.blend == gpu.BlendAdditive {
					img.add(x, y, frag.Out[o])
				} else {
					img.set(x, y, frag.Out[o])
				}
			}
		}
	}
}

// vec3 reads a three component attribute.
func vec3(a []float32) mgl32.Vec3 {
	return mgl32.Vec3{a[0], a[1], a[2]}
}
