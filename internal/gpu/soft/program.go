package soft

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"defview/internal/gpu"
)

// MaxVaryings is the number of float varyings a kernel may interpolate.
const MaxVaryings = 16

type Varyings [MaxVaryings]float32

// Fragment is the per-pixel input and output of a fragment kernel.
type Fragment struct {
	// X and Y are window coordinates of the pixel center, Z its depth.
	X, Y, Z float32
	Out     [gpu.MaxColorAttachments]mgl32.Vec4
	Discard bool
}

// Kernel is the Go rendition of one GLSL program. A shader source selects
// it with a "#pragma soft <name>" line.
type Kernel struct {
	Name string
	// Uniforms lists the active uniforms; the location of a uniform is its
	// index in this list.
	Uniforms []string
	Varyings int
	Outputs  int
	Vertex   func(c *Context, attrs [][]float32, out *Varyings) mgl32.Vec4
	Fragment func(c *Context, in *Varyings, f *Fragment)
}

type shader struct {
	stage  gpu.Stage
	kernel string
}

type uniformValue struct {
	i int32
	f [16]float32
}

type program struct {
	kernel *Kernel
	locs   map[string]int32
	values []uniformValue
}

// Context gives kernels access to the uniforms of the running program and
// to the bound texture units.
type Context struct {
	d *Device
	p *program
}

func (c *Context) value(name string) uniformValue {
	loc, ok := c.p.locs[name]
	if !ok {
		panic(fmt.Sprintf("soft: kernel %s reads undeclared uniform %q", c.p.kernel.Name, name))
	}
	return c.p.values[loc]
}

func (c *Context) Int(name string) int32     { return c.value(name).i }
func (c *Context) Bool(name string) bool     { return c.value(name).i != 0 }
func (c *Context) Float(name string) float32 { return c.value(name).f[0] }

func (c *Context) Vec2(name string) mgl32.Vec2 {
	v := c.value(name)
	return mgl32.Vec2{v.f[0], v.f[1]}
}

func (c *Context) Vec3(name string) mgl32.Vec3 {
	v := c.value(name)
	return mgl32.Vec3{v.f[0], v.f[1], v.f[2]}
}

func (c *Context) Mat4(name string) mgl32.Mat4 {
	return mgl32.Mat4(c.value(name).f)
}

// Sample reads the texture bound to the unit stored in a sampler uniform.
// An empty unit samples as opaque black.
func (c *Context) Sample(sampler string, uv mgl32.Vec2) mgl32.Vec4 {
	unit := c.Int(sampler)
	if unit < 0 || int(unit) >= maxTextureUnits {
		return mgl32.Vec4{0, 0, 0, 1}
	}
	img, ok := c.d.textures[c.d.units[unit]]
	if !ok {
		return mgl32.Vec4{0, 0, 0, 1}
	}
	return img.sample(uv[0], uv[1])
}

// CompileShader accepts any source with a #version line. Vertex and
// fragment sources must name a registered kernel; tessellation stages have
// no CPU counterpart and compile to pass-through objects. An #error
// directive fails compilation the way a GLSL compiler would.
func (d *Device) CompileShader(stage gpu.Stage, source string) (gpu.Shader, string, bool) {
	var (
		version bool
		kernel  string
		line    int
	)
	sc := bufio.NewScanner(strings.NewReader(source))
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		switch {
		case fields[0] == "#version":
			version = true
		case fields[0] == "#error":
			msg := strings.TrimSpace(strings.TrimPrefix(text, "#error"))
			return 0, fmt.Sprintf("ERROR: 0:%d: '#error' : %s", line, msg), false
		case fields[0] == "#pragma" && len(fields) == 3 && fields[1] == "soft":
			kernel = fields[2]
		}
	}
	if !version {
		return 0, "ERROR: 0:1: '' : #version required and missing.", false
	}
	if stage == gpu.StageVertex || stage == gpu.StageFragment {
		if kernel == "" {
			return 0, "ERROR: no soft kernel selected (missing #pragma soft)", false
		}
		if _, ok := d.kernels[kernel]; !ok {
			return 0, fmt.Sprintf("ERROR: unknown soft kernel %q", kernel), false
		}
	}
	s := gpu.Shader(d.id())
	d.shaders[s] = &shader{stage: stage, kernel: kernel}
	return s, "", true
}

func (d *Device) DeleteShader(s gpu.Shader) { delete(d.shaders, s) }

func (d *Device) LinkProgram(shaders ...gpu.Shader) (gpu.Program, string, bool) {
	var vs, fs *shader
	for _, id := range shaders {
		s, ok := d.shaders[id]
		if !ok {
			return 0, fmt.Sprintf("ERROR: shader %d is not a shader object", id), false
		}
		switch s.stage {
		case gpu.StageVertex:
			vs = s
		case gpu.StageFragment:
			fs = s
		}
	}
	if vs == nil || fs == nil {
		return 0, "ERROR: program needs a vertex and a fragment shader", false
	}
	if vs.kernel != fs.kernel {
		return 0, fmt.Sprintf("ERROR: vertex kernel %q does not match fragment kernel %q", vs.kernel, fs.kernel), false
	}
	k := d.kernels[vs.kernel]
	p := &program{
		kernel: k,
		locs:   make(map[string]int32, len(k.Uniforms)),
		values: make([]uniformValue, len(k.Uniforms)),
	}
	for i, name := range k.Uniforms {
		p.locs[name] = int32(i)
	}
	id := gpu.Program(d.id())
	d.programs[id] = p
	return id, "", true
}

func (d *Device) DeleteProgram(p gpu.Program) {
	delete(d.programs, p)
	if d.current == p {
		d.current = 0
	}
}

func (d *Device) UseProgram(p gpu.Program) {
	if p != 0 {
		if _, ok := d.programs[p]; !ok {
			panic(fmt.Sprintf("soft: program %d does not exist", p))
		}
	}
	d.current = p
}

func (d *Device) UniformLocation(p gpu.Program, name string) int32 {
	d.uniformQueries++
	prog, ok := d.programs[p]
	if !ok {
		return -1
	}
	loc, ok := prog.locs[name]
	if !ok {
		return -1
	}
	return loc
}

func (d *Device) uniform(loc int32) *uniformValue {
	if loc < 0 {
		return nil
	}
	p, ok := d.programs[d.current]
	if !ok || int(loc) >= len(p.values) {
		return nil
	}
	return &p.values[loc]
}

func (d *Device) Uniform1i(loc int32, v int32) {
	if u := d.uniform(loc); u != nil {
		u.i = v
		u.f[0] = float32(v)
	}
}

func (d *Device) Uniform1f(loc int32, v float32) {
	if u := d.uniform(loc); u != nil {
		u.f[0] = v
		u.i = int32(v)
	}
}

func (d *Device) Uniform2f(loc int32, x, y float32) {
	if u := d.uniform(loc); u != nil {
		u.f[0], u.f[1] = x, y
	}
}

func (d *Device) Uniform3f(loc int32, x, y, z float32) {
	if u := d.uniform(loc); u != nil {
		u.f[0], u.f[1], u.f[2] = x, y, z
	}
}

func (d *Device) UniformMatrix4(loc int32, m mgl32.Mat4) {
	if u := d.uniform(loc); u != nil {
		u.f = m
	}
}
