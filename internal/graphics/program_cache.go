package graphics

import (
	"errors"
	"io/fs"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"defview/internal/gpu"
	"defview/internal/logger"
)

// ProgramCache owns the programs of the render passes by name. A program
// that failed to build is stored as nil so callers can skip its pass.
type ProgramCache struct {
	dev  gpu.Device
	fsys fs.FS
	log  *zap.Logger

	order      []string
	sources    map[string]ProgramSource
	programs   map[string]*Program
	generation int
}

func NewProgramCache(dev gpu.Device, fsys fs.FS, log *zap.Logger) *ProgramCache {
	return &ProgramCache{
		dev:      dev,
		fsys:     fsys,
		log:      logger.Or(log),
		sources:  make(map[string]ProgramSource),
		programs: make(map[string]*Program),
	}
}

// Register adds a program to the cache without building it.
func (c *ProgramCache) Register(name string, src ProgramSource) {
	if _, ok := c.sources[name]; !ok {
		c.order = append(c.order, name)
	}
	c.sources[name] = src
}

// Get returns the program, or nil if it is unknown or failed to build.
func (c *ProgramCache) Get(name string) *Program {
	return c.programs[name]
}

// Generation increases every time the programs are rebuilt.
func (c *ProgramCache) Generation() int { return c.generation }

// Names returns the registered program names in registration order.
func (c *ProgramCache) Names() []string {
	return append([]string(nil), c.order...)
}

// SetSource replaces the file system shader sources are read from. It
// takes effect on the next LoadAll or ReloadAll.
func (c *ProgramCache) SetSource(fsys fs.FS) { c.fsys = fsys }

func (c *ProgramCache) build(name string) (*Program, error) {
	p, err := Compile(c.dev, c.fsys, c.sources[name])
	if err != nil {
		var se *ShaderError
		if errors.As(err, &se) {
			c.log.Error("shader program unavailable",
				zap.String("program", name),
				zap.String("file", se.File),
				zap.String("log", se.Log),
				zap.Error(err))
		} else {
			c.log.Error("shader program unavailable", zap.String("program", name), zap.Error(err))
		}
		return nil, err
	}
	return p, nil
}

// LoadAll builds every registered program that is not built yet. It
// returns the combined build errors; programs that failed stay nil.
func (c *ProgramCache) LoadAll() error {
	var errs error
	for _, name := range c.order {
		if c.programs[name] != nil {
			continue
		}
		p, err := c.build(name)
		errs = multierr.Append(errs, err)
		c.programs[name] = p
	}
	c.generation++
	return errs
}

// ReloadAll tears down and rebuilds every program. A program that fails
// to rebuild becomes nil; the others are replaced by their new builds.
func (c *ProgramCache) ReloadAll() error {
	var errs error
	for _, name := range c.order {
		p, err := c.build(name)
		errs = multierr.Append(errs, err)
		if old := c.programs[name]; old != nil {
			old.Delete()
		}
		c.programs[name] = p
	}
	c.generation++
	c.log.Info("shaders reloaded", zap.Int("generation", c.generation), zap.Bool("ok", errs == nil))
	return errs
}

// Dispose deletes every program.
func (c *ProgramCache) Dispose() {
	for name, p := range c.programs {
		if p != nil {
			p.Delete()
		}
		delete(c.programs, name)
	}
}
