// Command snapshot renders a scene on the software device and writes the
// result as an image. No GPU or window is needed.
package main

import (
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"defview/assets"
	"defview/internal/config"
	"defview/internal/gpu"
	"defview/internal/gpu/soft"
	"defview/internal/graphics"
	"defview/internal/graphics/renderer"
	"defview/internal/logger"
	"defview/internal/profiling"
	"defview/internal/scene"
)

var (
	out        = flag.String("o", "snapshot.png", "output image (.png, .jpg, .bmp, .tif)")
	width      = flag.Int("width", 640, "image width")
	height     = flag.Int("height", 360, "image height")
	configPath = flag.String("config", "", "TOML configuration file")
	sceneName  = flag.String("scene", "showcase.json", "scene file, or the name of a bundled scene")
	modelName  = flag.String("model", "", "render a built-in model instead of a scene")
	shaderDir  = flag.String("shaders", "", "shader directory (default: bundled shaders)")
	frames     = flag.Int("frames", 1, "frames to render; the last one is written")
	quadrants  = flag.Bool("quadrants", false, "write the G-Buffer debug view")
	eye        = flag.String("eye", "0,2,5", "camera position x,y,z")
	debug      = flag.Bool("debug", false, "debug logging")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "snapshot:", err)
		os.Exit(1)
	}
}

func run() error {
	if err := logger.Init(*debug); err != nil {
		return err
	}
	defer logger.Sync()
	log := logger.Log

	cfg := config.DefaultFile()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return err
		}
	}
	settings := cfg.Snapshot()
	if *quadrants {
		settings.DebugView = renderer.ViewQuadrants
	}

	var pos mgl32.Vec3
	if _, err := fmt.Sscanf(*eye, "%g,%g,%g", &pos[0], &pos[1], &pos[2]); err != nil {
		return fmt.Errorf("-eye: %w", err)
	}

	var shaders fs.FS = assets.Shaders()
	if *shaderDir != "" {
		shaders = os.DirFS(*shaderDir)
	}

	dev := soft.NewDevice(*width, *height)
	r, err := renderer.New(dev, *width, *height, renderer.Options{
		Logger:           log,
		Shaders:          shaders,
		ShadowResolution: settings.ShadowResolution,
	})
	if err != nil {
		log.Warn("rendering degraded", zap.Error(err))
	}
	defer r.Cleanup()

	sc, err := loadScene(dev, log)
	if err != nil {
		return err
	}
	defer sc.Delete()

	cam := graphics.NewCamera()
	cam.SetPosition(pos)
	cam.LookAt(mgl32.Vec3{})

	frame := renderer.NewFrame(*width, *height, cam, sc, settings)
	n := max(*frames, 1)
	var top string
	start := time.Now()
	for i := 0; i < n; i++ {
		profiling.ResetFrame()
		r.Draw(frame)
		top = profiling.TopN(5)
		profiling.EndFrame()
	}
	log.Info("rendered",
		zap.Int("frames", n),
		zap.Duration("took", time.Since(start)),
		zap.Duration("avgFrame", profiling.Average("renderer.Draw")),
		zap.String("top", top))

	return graphics.SaveScreenshot(dev, *width, *height, *out)
}

func loadScene(dev gpu.Device, log *zap.Logger) (*scene.Scene, error) {
	if *modelName != "" {
		return scene.FromModel(dev, *modelName)
	}
	if _, err := os.Stat(*sceneName); err == nil {
		desc, err := scene.Load(*sceneName, log)
		if err != nil {
			return nil, err
		}
		return scene.Build(dev, desc, log)
	}
	data, err := assets.Scene(filepath.Base(*sceneName))
	if err != nil {
		return nil, fmt.Errorf("scene %q: %w", *sceneName, err)
	}
	desc, err := scene.Parse(data, log)
	if err != nil {
		return nil, err
	}
	return scene.Build(dev, desc, log)
}
