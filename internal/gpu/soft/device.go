// Package soft is a CPU implementation of gpu.Device. It rasterizes
// triangles with Go kernels standing in for GLSL programs, which makes the
// whole render pipeline runnable and inspectable without a GPU.
package soft

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"defview/internal/gpu"
)

const maxTextureUnits = 16

type framebuffer struct {
	color       [gpu.MaxColorAttachments]*image
	depth       *image
	drawBuffers []int
	readBuffer  int
}

type mesh struct {
	desc gpu.MeshDesc
}

// Stats counts live objects and work done since creation.
type Stats struct {
	Textures       int
	Renderbuffers  int
	Framebuffers   int
	Shaders        int
	Programs       int
	Meshes         int
	UniformQueries int
	DrawCalls      int
}

// Device is a software gpu.Device. The zero value is not usable; call
// NewDevice.
type Device struct {
	kernels map[string]*Kernel

	nextID        uint32
	textures      map[gpu.Texture]*image
	renderbuffers map[gpu.Renderbuffer]*image
	framebuffers  map[gpu.Framebuffer]*framebuffer
	shaders       map[gpu.Shader]*shader
	programs      map[gpu.Program]*program
	meshes        map[gpu.Mesh]*mesh

	surface *framebuffer
	drawFB  gpu.Framebuffer
	readFB  gpu.Framebuffer
	units   [maxTextureUnits]gpu.Texture
	current gpu.Program

	viewport   gpu.Rect
	depthTest  bool
	depthWrite bool
	blend      gpu.BlendMode
	cullFace   bool
	wireframe  bool
	clearColor mgl32.Vec4

	labels map[labelKey]string
	groups []string
	trace  []string

	uniformQueries int
	drawCalls      int
}

type labelKey struct {
	kind gpu.ObjectKind
	id   uint32
}

var _ gpu.Device = (*Device)(nil)

// NewDevice returns a device whose default framebuffer is width x height.
// The built-in kernels are always registered; extra kernels replace
// built-ins of the same name.
func NewDevice(width, height int, kernels ...*Kernel) *Device {
	d := &Device{
		kernels:       make(map[string]*Kernel),
		textures:      make(map[gpu.Texture]*image),
		renderbuffers: make(map[gpu.Renderbuffer]*image),
		framebuffers:  make(map[gpu.Framebuffer]*framebuffer),
		shaders:       make(map[gpu.Shader]*shader),
		programs:      make(map[gpu.Program]*program),
		meshes:        make(map[gpu.Mesh]*mesh),
		labels:        make(map[labelKey]string),
		depthWrite:    true,
	}
	for _, k := range DefaultKernels() {
		d.Register(k)
	}
	for _, k := range kernels {
		d.Register(k)
	}
	d.ResizeSurface(width, height)
	return d
}

// Register makes a kernel available to shaders naming it.
func (d *Device) Register(k *Kernel) {
	d.kernels[k.Name] = k
}

// ResizeSurface reallocates the default framebuffer, like a window resize.
func (d *Device) ResizeSurface(width, height int) {
	d.surface = &framebuffer{drawBuffers: []int{0}}
	d.surface.color[0] = newImage(gpu.FormatRGBA8, width, height)
	d.surface.depth = newImage(gpu.FormatDepth32FStencil8, width, height)
	d.viewport = gpu.Rect{W: width, H: height}
}

// Stats reports live object counts.
func (d *Device) Stats() Stats {
	return Stats{
		Textures:       len(d.textures),
		Renderbuffers:  len(d.renderbuffers),
		Framebuffers:   len(d.framebuffers),
		Shaders:        len(d.shaders),
		Programs:       len(d.programs),
		Meshes:         len(d.meshes),
		UniformQueries: d.uniformQueries,
		DrawCalls:      d.drawCalls,
	}
}

// Trace returns the debug groups pushed since the last ResetTrace.
func (d *Device) Trace() []string {
	out := make([]string, len(d.trace))
	copy(out, d.trace)
	return out
}

func (d *Device) ResetTrace() { d.trace = d.trace[:0] }

// LabelOf returns the debug label of an object.
func (d *Device) LabelOf(kind gpu.ObjectKind, id uint32) string {
	return d.labels[labelKey{kind, id}]
}

// TextureSize returns the dimensions of a texture, or zeros if it does not exist.
func (d *Device) TextureSize(t gpu.Texture) (int, int) {
	img, ok := d.textures[t]
	if !ok {
		return 0, 0
	}
	return img.w, img.h
}

// SampleTexture samples t at (u, v) with its filter and wrap modes.
func (d *Device) SampleTexture(t gpu.Texture, u, v float32) mgl32.Vec4 {
	return d.mustTexture(t).sample(u, v)
}

// TexelAt returns the stored value of one texel.
func (d *Device) TexelAt(t gpu.Texture, x, y int) mgl32.Vec4 {
	return d.mustTexture(t).at(x, y)
}

func (d *Device) id() uint32 {
	d.nextID++
	return d.nextID
}

func (d *Device) mustTexture(t gpu.Texture) *image {
	img, ok := d.textures[t]
	if !ok {
		panic(fmt.Sprintf("soft: texture %d does not exist", t))
	}
	return img
}

func (d *Device) mustFramebuffer(fb gpu.Framebuffer) *framebuffer {
	if fb == gpu.DefaultFramebuffer {
		return d.surface
	}
	f, ok := d.framebuffers[fb]
	if !ok {
		panic(fmt.Sprintf("soft: framebuffer %d does not exist", fb))
	}
	return f
}

func (d *Device) CreateTexture(desc gpu.TextureDesc) gpu.Texture {
	img := newImage(desc.Format, desc.Width, desc.Height)
	img.filter = desc.Filter
	img.wrap = desc.Wrap
	img.border = mgl32.Vec4(desc.Border)
	if len(desc.Pixels) >= 4*img.w*img.h {
		for y := 0; y < img.h; y++ {
			for x := 0; x < img.w; x++ {
				i := 4 * (y*img.w + x)
				img.set(x, y, mgl32.Vec4{
					float32(desc.Pixels[i]) / 255,
					float32(desc.Pixels[i+1]) / 255,
					float32(desc.Pixels[i+2]) / 255,
					float32(desc.Pixels[i+3]) / 255,
				})
			}
		}
	}
	t := gpu.Texture(d.id())
	d.textures[t] = img
	return t
}

func (d *Device) DeleteTexture(t gpu.Texture) {
	img, ok := d.textures[t]
	if !ok {
		return
	}
	delete(d.textures, t)
	for i, u := range d.units {
		if u == t {
			d.units[i] = 0
		}
	}
	for _, fb := range d.framebuffers {
		for i, c := range fb.color {
			if c == img {
				fb.color[i] = nil
			}
		}
		if fb.depth == img {
			fb.depth = nil
		}
	}
}

func (d *Device) BindTexture(unit int, t gpu.Texture) {
	if unit < 0 || unit >= maxTextureUnits {
		panic(fmt.Sprintf("soft: texture unit %d out of range", unit))
	}
	d.units[unit] = t
}

func (d *Device) CreateRenderbuffer(format gpu.Format, width, height int) gpu.Renderbuffer {
	rb := gpu.Renderbuffer(d.id())
	d.renderbuffers[rb] = newImage(format, width, height)
	return rb
}

func (d *Device) DeleteRenderbuffer(rb gpu.Renderbuffer) {
	img, ok := d.renderbuffers[rb]
	if !ok {
		return
	}
	delete(d.renderbuffers, rb)
	for _, fb := range d.framebuffers {
		if fb.depth == img {
			fb.depth = nil
		}
	}
}

func (d *Device) CreateFramebuffer() gpu.Framebuffer {
	fb := gpu.Framebuffer(d.id())
	d.framebuffers[fb] = &framebuffer{drawBuffers: []int{0}}
	return fb
}

func (d *Device) DeleteFramebuffer(fb gpu.Framebuffer) {
	if _, ok := d.framebuffers[fb]; !ok {
		return
	}
	delete(d.framebuffers, fb)
	if d.drawFB == fb {
		d.drawFB = gpu.DefaultFramebuffer
	}
	if d.readFB == fb {
		d.readFB = gpu.DefaultFramebuffer
	}
}

func (d *Device) AttachColor(fb gpu.Framebuffer, index int, t gpu.Texture) {
	d.mustFramebuffer(fb).color[index] = d.mustTexture(t)
}

func (d *Device) AttachDepth(fb gpu.Framebuffer, t gpu.Texture) {
	d.mustFramebuffer(fb).depth = d.mustTexture(t)
}

func (d *Device) AttachDepthStencil(fb gpu.Framebuffer, rb gpu.Renderbuffer) {
	img, ok := d.renderbuffers[rb]
	if !ok {
		panic(fmt.Sprintf("soft: renderbuffer %d does not exist", rb))
	}
	d.mustFramebuffer(fb).depth = img
}

// FramebufferStatus follows the completeness rules that matter here: at
// least one attachment, no empty image, and every attachment the same size.
func (d *Device) FramebufferStatus(fb gpu.Framebuffer) gpu.Status {
	f := d.mustFramebuffer(fb)
	var all []*image
	for _, c := range f.color {
		if c != nil {
			all = append(all, c)
		}
	}
	if f.depth != nil {
		all = append(all, f.depth)
	}
	if len(all) == 0 {
		return gpu.StatusMissingAttachment
	}
	for _, img := range all {
		if img.w == 0 || img.h == 0 {
			return gpu.StatusIncompleteAttachment
		}
		if img.w != all[0].w || img.h != all[0].h {
			return gpu.StatusUnsupported
		}
	}
	return gpu.StatusComplete
}

func (d *Device) BindFramebuffer(target gpu.Target, fb gpu.Framebuffer) {
	d.mustFramebuffer(fb)
	switch target {
	case gpu.TargetDraw:
		d.drawFB = fb
	case gpu.TargetRead:
		d.readFB = fb
	default:
		d.drawFB = fb
		d.readFB = fb
	}
}

func (d *Device) DrawBuffers(indices ...int) {
	f := d.mustFramebuffer(d.drawFB)
	f.drawBuffers = append([]int(nil), indices...)
}

func (d *Device) ReadBuffer(index int) {
	d.mustFramebuffer(d.readFB).readBuffer = index
}

func (d *Device) Viewport(r gpu.Rect)           { d.viewport = r }
func (d *Device) SetDepth(test, write bool)     { d.depthTest, d.depthWrite = test, write }
func (d *Device) SetBlend(mode gpu.BlendMode)   { d.blend = mode }
func (d *Device) SetCullFace(enabled bool)      { d.cullFace = enabled }
func (d *Device) SetWireframe(enabled bool)     { d.wireframe = enabled }
func (d *Device) ClearColor(r, g, b, a float32) { d.clearColor = mgl32.Vec4{r, g, b, a} }

func (d *Device) Clear(mask gpu.ClearMask) {
	f := d.mustFramebuffer(d.drawFB)
	if mask&gpu.ClearColor != 0 {
		for _, idx := range f.drawBuffers {
			if idx < 0 || idx >= gpu.MaxColorAttachments || f.color[idx] == nil {
				continue
			}
			f.color[idx].fill(d.clearColor)
		}
	}
	if mask&gpu.ClearDepth != 0 && d.depthWrite && f.depth != nil {
		for i := 0; i < len(f.depth.data); i += 4 {
			f.depth.data[i] = 1
		}
	}
}

func (d *Device) readImage() *image {
	f := d.mustFramebuffer(d.readFB)
	if f.readBuffer < 0 || f.readBuffer >= gpu.MaxColorAttachments {
		return nil
	}
	return f.color[f.readBuffer]
}

// Blit copies the read buffer of the read framebuffer into every draw
// buffer of the draw framebuffer, scaling with the given filter.
func (d *Device) Blit(src, dst gpu.Bounds, filter gpu.Filter) {
	from := d.readImage()
	if from == nil {
		return
	}
	f := d.mustFramebuffer(d.drawFB)
	dw := dst.X1 - dst.X0
	dh := dst.Y1 - dst.Y0
	if dw == 0 || dh == 0 {
		return
	}
	sx := float32(src.X1-src.X0) / float32(dw)
	sy := float32(src.Y1-src.Y0) / float32(dh)
	view := *from
	view.filter = filter
	view.wrap = gpu.WrapClampToEdge
	for _, idx := range f.drawBuffers {
		if idx < 0 || idx >= gpu.MaxColorAttachments || f.color[idx] == nil {
			continue
		}
		to := f.color[idx]
		for y := dst.Y0; y < dst.Y1; y++ {
			for x := dst.X0; x < dst.X1; x++ {
				if !to.inside(x, y) {
					continue
				}
				u := (float32(src.X0) + (float32(x-dst.X0)+0.5)*sx) / float32(from.w)
				v := (float32(src.Y0) + (float32(y-dst.Y0)+0.5)*sy) / float32(from.h)
				to.set(x, y, view.sample(u, v))
			}
		}
	}
}

func (d *Device) ReadPixels(r gpu.Rect) []float32 {
	out := make([]float32, 0, 4*r.W*r.H)
	img := d.readImage()
	for y := r.Y; y < r.Y+r.H; y++ {
		for x := r.X; x < r.X+r.W; x++ {
			var v mgl32.Vec4
			if img != nil && img.inside(x, y) {
				v = img.at(x, y)
			}
			out = append(out, v[:]...)
		}
	}
	return out
}

func (d *Device) CreateMesh(desc gpu.MeshDesc) gpu.Mesh {
	m := gpu.Mesh(d.id())
	d.meshes[m] = &mesh{desc: gpu.MeshDesc{
		Vertices:  append([]float32(nil), desc.Vertices...),
		Indices:   append([]uint32(nil), desc.Indices...),
		Layout:    append([]int(nil), desc.Layout...),
		Primitive: desc.Primitive,
	}}
	return m
}

func (d *Device) DeleteMesh(m gpu.Mesh) { delete(d.meshes, m) }

func (d *Device) Label(kind gpu.ObjectKind, id uint32, label string) {
	d.labels[labelKey{kind, id}] = label
}

func (d *Device) PushGroup(name string) {
	d.groups = append(d.groups, name)
	d.trace = append(d.trace, name)
}

func (d *Device) PopGroup() {
	if len(d.groups) == 0 {
		panic("soft: PopGroup without PushGroup")
	}
	d.groups = d.groups[:len(d.groups)-1]
}
