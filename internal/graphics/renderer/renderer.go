package renderer

import (
	"errors"
	"sync/atomic"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"defview/internal/gpu"
	"defview/internal/graphics"
	"defview/internal/graphics/gbuffer"
	"defview/internal/graphics/shadow"
	"defview/internal/logger"
	"defview/internal/profiling"
)

// Renderer orchestrates the deferred passes of a frame. It owns the
// G-Buffer, the shadow target, the pass programs and the full-screen quad.
type Renderer struct {
	dev      gpu.Device
	log      *zap.Logger
	programs *graphics.ProgramCache

	gbuf   *gbuffer.GBuffer
	shadow *shadow.Target
	quad   gpu.Mesh

	width, height int

	reload atomic.Bool
	// generation of the program cache at which a missing program was last
	// reported
	warned map[string]int
}

// New creates the renderer for a viewport of the given size. The returned
// renderer is always usable; the error lists what is degraded (incomplete
// targets, programs that failed to build) and has already been logged.
func New(dev gpu.Device, width, height int, opts Options) (*Renderer, error) {
	log := logger.Or(opts.Logger)
	r := &Renderer{
		dev:      dev,
		log:      log,
		programs: graphics.NewProgramCache(dev, opts.Shaders, log),
		width:    width,
		height:   height,
		warned:   make(map[string]int),
	}

	dir := opts.ShaderDir
	if dir == "" {
		dir = "."
	}
	r.programs.Register(ProgramModel, graphics.PassSource(dir, ProgramModel,
		gpu.StageVertex, gpu.StageTessControl, gpu.StageTessEval, gpu.StageFragment))
	for _, name := range []string{ProgramPointLight, ProgramDirLight, ProgramPostProcess, ProgramDirShadow} {
		r.programs.Register(name, graphics.PassSource(dir, name, gpu.StageVertex, gpu.StageFragment))
	}

	var errs error
	var err error
	r.gbuf, err = gbuffer.New(dev, width, height)
	if err != nil {
		log.Error("G-Buffer incomplete", zap.Int("width", width), zap.Int("height", height), zap.Error(err))
		errs = multierr.Append(errs, err)
	}
	r.shadow, err = shadow.New(dev, opts.ShadowResolution)
	if err != nil {
		log.Error("shadow target incomplete", zap.Int("resolution", r.shadow.Resolution()), zap.Error(err))
		errs = multierr.Append(errs, err)
	}

	r.quad = dev.CreateMesh(gpu.MeshDesc{
		Vertices: []float32{
			-1, -1, 0, 0, 0,
			1, -1, 0, 1, 0,
			-1, 1, 0, 0, 1,
			1, 1, 0, 1, 1,
		},
		Layout:    []int{3, 2},
		Primitive: gpu.PrimitiveTriangleStrip,
	})
	dev.Label(gpu.KindMesh, uint32(r.quad), "Quad")

	errs = multierr.Append(errs, r.programs.LoadAll())
	return r, errs
}

// Programs exposes the pass programs.
func (r *Renderer) Programs() *graphics.ProgramCache { return r.programs }

// GBuffer returns the current G-Buffer. It is replaced on resize.
func (r *Renderer) GBuffer() *gbuffer.GBuffer { return r.gbuf }

func (r *Renderer) Shadow() *shadow.Target { return r.shadow }

// Size returns the viewport size the G-Buffer was last allocated for.
func (r *Renderer) Size() (int, int) { return r.width, r.height }

// ReloadShaders requests a rebuild of every program. It is safe to call
// from any goroutine; the rebuild happens at the start of the next Draw.
func (r *Renderer) ReloadShaders() {
	r.reload.Store(true)
}

// OnResize reallocates the G-Buffer for a new viewport size.
func (r *Renderer) OnResize(width, height int) error {
	defer profiling.Track("renderer.Resize")()
	r.width, r.height = width, height
	if err := r.gbuf.Resize(width, height); err != nil {
		r.log.Error("G-Buffer incomplete after resize",
			zap.Int("width", width), zap.Int("height", height), zap.Error(err))
		return err
	}
	r.log.Debug("G-Buffer resized", zap.Int("width", width), zap.Int("height", height))
	return nil
}

// applyPending runs the frame boundary checks: shader reload first, then
// the viewport size. An empty viewport (minimized window) keeps the
// current G-Buffer.
func (r *Renderer) applyPending(width, height int) {
	if r.reload.CompareAndSwap(true, false) {
		defer profiling.Track("renderer.ReloadShaders")()
		// failures are logged by the cache and leave the pass program nil
		_ = r.programs.ReloadAll()
	}
	if width <= 0 || height <= 0 {
		return
	}
	if width != r.width || height != r.height {
		_ = r.OnResize(width, height)
	}
}

// program returns the named program, or nil. A missing program is
// reported once per program generation.
func (r *Renderer) program(name, pass string) *graphics.Program {
	p := r.programs.Get(name)
	if p != nil {
		return p
	}
	gen := r.programs.Generation()
	if last, ok := r.warned[name]; !ok || last != gen {
		r.warned[name] = gen
		r.log.Warn("skipping pass without program",
			zap.String("pass", pass),
			zap.String("program", name),
			zap.Int("generation", gen))
	}
	return nil
}

// Draw renders one frame into the default framebuffer.
func (r *Renderer) Draw(f Frame) FrameStats {
	defer profiling.Track("renderer.Draw")()
	var stats FrameStats

	r.applyPending(f.Width, f.Height)
	if f.Width <= 0 || f.Height <= 0 {
		return stats
	}

	fc := r.newFrameContext(f)
	record := func(pass string, ran bool) {
		if ran {
			stats.Passes = append(stats.Passes, pass)
		} else {
			stats.Skipped = append(stats.Skipped, pass)
		}
	}

	r.gbuf.ClearFinal()
	record(PassGeometry, r.geometryPass(fc))
	record(PassPointLight, r.pointLightPass(fc))
	shadowed := r.shadowPass(fc)
	record(PassShadow, shadowed)
	fc.shadowed = shadowed
	record(PassDirLight, r.dirLightPass(fc))
	record(PassPostProcess, r.postProcessPass(fc))
	record(PassPresent, r.present(fc))
	return stats
}

// Cleanup releases every device object the renderer owns.
func (r *Renderer) Cleanup() {
	r.programs.Dispose()
	r.gbuf.Destroy()
	r.shadow.Destroy()
	if r.quad != 0 {
		r.dev.DeleteMesh(r.quad)
		r.quad = 0
	}
}

// IsIncomplete reports whether err comes from an incomplete render target.
func IsIncomplete(err error) bool {
	return errors.Is(err, gbuffer.ErrIncomplete) || errors.Is(err, shadow.ErrIncomplete)
}
