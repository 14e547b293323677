// Package viewer runs the interactive main loop: input, camera, settings
// toggles and one renderer frame per tick.
package viewer

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"defview/internal/config"
	"defview/internal/gpu"
	"defview/internal/graphics"
	"defview/internal/graphics/renderer"
	"defview/internal/input"
	"defview/internal/logger"
	"defview/internal/profiling"
	"defview/internal/scene"
)

const (
	slowFrame    = 16 * time.Millisecond
	exposureStep = 1.1
)

var (
	initialEye    = mgl32.Vec3{0, 2, 5}
	initialTarget = mgl32.Vec3{0, 0, 0}
)

var moves = [...]struct {
	action input.Action
	move   graphics.Movement
}{
	{input.ActionMoveForward, graphics.MoveForward},
	{input.ActionMoveBackward, graphics.MoveBackward},
	{input.ActionMoveLeft, graphics.MoveLeft},
	{input.ActionMoveRight, graphics.MoveRight},
	{input.ActionMoveUp, graphics.MoveUp},
	{input.ActionMoveDown, graphics.MoveDown},
}

type Options struct {
	Logger *zap.Logger
	// Title is the window title the frame statistics are appended to.
	Title string
	// ScreenshotDir receives the F6 screenshots.
	ScreenshotDir string
	// WindowWidth and WindowHeight size the window when F2 leaves
	// fullscreen and the app was started fullscreen.
	WindowWidth, WindowHeight int
}

// App owns everything the main loop touches. It must run on the thread
// that owns the GL context.
type App struct {
	window *glfw.Window
	dev    gpu.Device
	input  *input.Manager
	log    *zap.Logger

	renderer *renderer.Renderer
	scene    *scene.Scene
	camera   *graphics.Camera

	screenshotDir string
	windowed      placement
	fpsLimiter    *FPSLimiter
	stats         *titleStats
	lastTime      time.Time
}

func NewApp(window *glfw.Window, dev gpu.Device, im *input.Manager, r *renderer.Renderer, sc *scene.Scene, opts Options) *App {
	cam := graphics.NewCamera()
	cam.SetPosition(initialEye)
	cam.LookAt(initialTarget)

	a := &App{
		window:        window,
		dev:           dev,
		input:         im,
		log:           logger.Or(opts.Logger),
		renderer:      r,
		scene:         sc,
		camera:        cam,
		screenshotDir: opts.ScreenshotDir,
		windowed:      placement{w: opts.WindowWidth, h: opts.WindowHeight},
		fpsLimiter:    NewFPSLimiter(),
		stats:         newTitleStats(opts.Title),
		lastTime:      time.Now(),
	}
	if a.screenshotDir == "" {
		a.screenshotDir = "."
	}
	im.Attach(window)
	// repaint while the user drags the window border; the event loop is
	// blocked inside PollEvents meanwhile
	window.SetFramebufferSizeCallback(func(_ *glfw.Window, _, _ int) {
		a.RefreshRender()
	})
	return a
}

func (a *App) Camera() *graphics.Camera { return a.camera }

func (a *App) Run() {
	for !a.window.ShouldClose() {
		a.tick()
	}
}

func (a *App) tick() {
	profiling.ResetFrame()
	startTick := time.Now()
	dt := startTick.Sub(a.lastTime).Seconds()
	a.lastTime = startTick

	glfw.PollEvents()

	a.update(float32(dt))
	a.render()
	// read back the finished frame before it is swapped away
	if a.input.JustPressed(input.ActionScreenshot) {
		a.screenshot()
	}
	a.window.SwapBuffers()

	if d := time.Since(startTick); d > slowFrame {
		a.log.Debug("slow frame", zap.Duration("took", d), zap.String("top", profiling.TopN(5)))
	}
	if title, ok := a.stats.frame(time.Now()); ok {
		a.window.SetTitle(title)
	}
	profiling.EndFrame()

	a.input.PostUpdate()
	a.fpsLimiter.Wait(a.window.GetAttrib(glfw.Iconified) == glfw.True)
}

func (a *App) update(dt float32) {
	defer profiling.Track("viewer.Update")()
	im := a.input

	if im.JustPressed(input.ActionQuit) {
		a.window.SetShouldClose(true)
	}
	if im.JustPressed(input.ActionToggleFullscreen) {
		a.toggleFullscreen()
	}
	if im.JustPressed(input.ActionToggleWireframe) {
		config.SetWireframe(!config.GetWireframe())
		a.log.Info("wireframe", zap.Bool("on", config.GetWireframe()))
	}
	if im.JustPressed(input.ActionToggleShadows) {
		config.SetShadows(!config.GetShadows())
		a.log.Info("shadows", zap.Bool("on", config.GetShadows()))
	}
	if im.JustPressed(input.ActionToggleDebugView) {
		config.SetDebugView((config.GetDebugView() + 1) % 2)
	}
	if im.JustPressed(input.ActionReloadShaders) {
		a.renderer.ReloadShaders()
	}
	if im.JustPressed(input.ActionExposureUp) {
		config.SetExposure(config.GetExposure() * exposureStep)
	}
	if im.JustPressed(input.ActionExposureDown) {
		config.SetExposure(config.GetExposure() / exposureStep)
	}

	fast := im.IsActive(input.ActionFast)
	for _, m := range moves {
		if im.IsActive(m.action) {
			a.camera.Move(m.move, fast, dt)
		}
	}
	if dx, dy := im.ConsumeLook(); dx != 0 || dy != 0 {
		a.camera.Rotate(float32(dx), float32(dy))
	}
	if s := im.ConsumeScroll(); s != 0 {
		a.camera.ZoomBy(float32(s))
	}
}

// Frame builds the renderer input for the current window state.
func (a *App) Frame() renderer.Frame {
	w, h := a.window.GetFramebufferSize()
	return renderer.NewFrame(w, h, a.camera, a.scene, config.Current())
}

func (a *App) render() {
	a.renderer.Draw(a.Frame())
}

func (a *App) screenshot() {
	w, h := a.window.GetFramebufferSize()
	name := fmt.Sprintf("defview-%s.png", time.Now().Format("20060102-150405"))
	path := filepath.Join(a.screenshotDir, name)
	if err := graphics.SaveScreenshot(a.dev, w, h, path); err != nil {
		a.log.Error("screenshot failed", zap.String("path", path), zap.Error(err))
		return
	}
	a.log.Info("screenshot saved", zap.String("path", path))
}

// toggleFullscreen switches between the primary monitor's video mode and
// the last windowed placement.
func (a *App) toggleFullscreen() {
	if a.window.GetMonitor() != nil {
		p := a.windowed.restore()
		a.window.SetMonitor(nil, p.x, p.y, p.w, p.h, glfw.DontCare)
		a.log.Info("fullscreen", zap.Bool("on", false), zap.Int("width", p.w), zap.Int("height", p.h))
		return
	}
	mon := glfw.GetPrimaryMonitor()
	if mon == nil {
		a.log.Warn("fullscreen unavailable: no monitor")
		return
	}
	x, y := a.window.GetPos()
	w, h := a.window.GetSize()
	a.windowed = placement{x: x, y: y, w: w, h: h}
	mode := mon.GetVideoMode()
	a.window.SetMonitor(mon, 0, 0, mode.Width, mode.Height, mode.RefreshRate)
	a.log.Info("fullscreen", zap.Bool("on", true), zap.Int("width", mode.Width), zap.Int("height", mode.Height))
}

// RefreshRender draws and presents one frame outside the main loop.
func (a *App) RefreshRender() {
	a.render()
	a.window.SwapBuffers()
}
