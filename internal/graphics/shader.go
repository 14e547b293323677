package graphics

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"defview/internal/gpu"
)

var (
	ErrCompile = errors.New("shader compilation failed")
	ErrLink    = errors.New("program link failed")
)

// ShaderError carries the driver log of a failed compile or link. For a
// link failure File lists every stage file of the program.
type ShaderError struct {
	Program string
	Stage   gpu.Stage
	File    string
	Log     string
	err     error
}

func (e *ShaderError) Error() string {
	if e.err == ErrLink {
		return fmt.Sprintf("failed to link program %s (%s): %s", e.Program, e.File, e.Log)
	}
	return fmt.Sprintf("failed to compile %s shader %s: %s", e.Stage, e.File, e.Log)
}

func (e *ShaderError) Unwrap() error { return e.err }

// StageFile names the source of one pipeline stage.
type StageFile struct {
	Stage gpu.Stage
	Path  string
}

// ProgramSource is everything needed to build a program.
type ProgramSource struct {
	Label string
	Files []StageFile
}

func (s ProgramSource) paths() string {
	names := make([]string, len(s.Files))
	for i, f := range s.Files {
		names[i] = f.Path
	}
	return strings.Join(names, ", ")
}

var stageExt = map[gpu.Stage]string{
	gpu.StageVertex:      ".vert",
	gpu.StageTessControl: ".tesc",
	gpu.StageTessEval:    ".tese",
	gpu.StageFragment:    ".frag",
}

// PassSource lays out a program the way the shader directory does:
// <dir>/<name>/<name>.<ext> for each stage.
func PassSource(dir, name string, stages ...gpu.Stage) ProgramSource {
	src := ProgramSource{Label: name}
	for _, s := range stages {
		src.Files = append(src.Files, StageFile{
			Stage: s,
			Path:  path.Join(dir, name, name+stageExt[s]),
		})
	}
	return src
}

type uniformLocation struct {
	loc   int32
	found bool
}

// Program is a linked shader program with a uniform location cache.
// A name missing from the cache has not been looked up yet; a cached entry
// with found unset is a uniform the driver does not know, and setting it
// does nothing.
type Program struct {
	ID    gpu.Program
	label string
	tess  bool
	dev   gpu.Device

	uniforms map[string]uniformLocation
}

// Compile reads, compiles and links src. On failure every object created
// so far is deleted before the error is returned.
func Compile(dev gpu.Device, fsys fs.FS, src ProgramSource) (*Program, error) {
	shaders := make([]gpu.Shader, 0, len(src.Files))
	release := func() {
		for _, s := range shaders {
			dev.DeleteShader(s)
		}
	}

	tess := false
	for _, f := range src.Files {
		source, err := fs.ReadFile(fsys, f.Path)
		if err != nil {
			release()
			return nil, fmt.Errorf("could not read %s shader file: %w", f.Stage, err)
		}
		s, log, ok := dev.CompileShader(f.Stage, string(source))
		if !ok {
			release()
			return nil, &ShaderError{Program: src.Label, Stage: f.Stage, File: f.Path, Log: log, err: ErrCompile}
		}
		dev.Label(gpu.KindShader, uint32(s), f.Path)
		shaders = append(shaders, s)
		if f.Stage == gpu.StageTessControl || f.Stage == gpu.StageTessEval {
			tess = true
		}
	}

	id, log, ok := dev.LinkProgram(shaders...)
	release()
	if !ok {
		return nil, &ShaderError{Program: src.Label, File: src.paths(), Log: log, err: ErrLink}
	}
	dev.Label(gpu.KindProgram, uint32(id), src.Label)

	return &Program{
		ID:       id,
		label:    src.Label,
		tess:     tess,
		dev:      dev,
		uniforms: make(map[string]uniformLocation),
	}, nil
}

func (p *Program) Label() string { return p.label }

// HasTessellation reports whether the program was linked with tessellation stages.
func (p *Program) HasTessellation() bool { return p.tess }

// Use activates the shader program
func (p *Program) Use() {
	p.dev.UseProgram(p.ID)
}

// Delete releases the program. The Program must not be used afterwards.
func (p *Program) Delete() {
	if p.ID != 0 {
		p.dev.DeleteProgram(p.ID)
		p.ID = 0
	}
}

// Location returns the cached location of a uniform, asking the driver
// only the first time a name is seen.
func (p *Program) Location(name string) (int32, bool) {
	if u, ok := p.uniforms[name]; ok {
		return u.loc, u.found
	}
	loc := p.dev.UniformLocation(p.ID, name)
	u := uniformLocation{loc: loc, found: loc >= 0}
	p.uniforms[name] = u
	return u.loc, u.found
}

// SetBool sets a boolean uniform
func (p *Program) SetBool(name string, value bool) {
	var intValue int32
	if value {
		intValue = 1
	}
	p.SetInt(name, intValue)
}

// SetInt sets an integer uniform
func (p *Program) SetInt(name string, value int32) {
	if loc, ok := p.Location(name); ok {
		p.dev.Uniform1i(loc, value)
	}
}

// SetFloat sets a float uniform
func (p *Program) SetFloat(name string, value float32) {
	if loc, ok := p.Location(name); ok {
		p.dev.Uniform1f(loc, value)
	}
}

func (p *Program) SetVec2(name string, v mgl32.Vec2) {
	if loc, ok := p.Location(name); ok {
		p.dev.Uniform2f(loc, v[0], v[1])
	}
}

// SetVec3 sets a vector3 uniform
func (p *Program) SetVec3(name string, v mgl32.Vec3) {
	if loc, ok := p.Location(name); ok {
		p.dev.Uniform3f(loc, v[0], v[1], v[2])
	}
}

// SetMat4 sets a 4x4 matrix uniform
func (p *Program) SetMat4(name string, m mgl32.Mat4) {
	if loc, ok := p.Location(name); ok {
		p.dev.UniformMatrix4(loc, m)
	}
}
