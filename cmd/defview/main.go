package main

import (
	"errors"
	"flag"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/xlab/closer"
	"go.uber.org/zap"

	"defview/assets"
	"defview/internal/config"
	"defview/internal/gpu"
	"defview/internal/gpu/glbackend"
	"defview/internal/graphics/renderer"
	"defview/internal/input"
	"defview/internal/logger"
	"defview/internal/scene"
	"defview/internal/viewer"
	"defview/internal/watch"
)

var (
	configPath = flag.String("config", "", "TOML configuration file")
	scenePath  = flag.String("scene", "", "scene file (JSON or YAML), overrides the configured one")
	modelName  = flag.String("model", "", "show a built-in model without a scene file")
	debug      = flag.Bool("debug", false, "debug logging")
)

func init() {
	runtime.LockOSThread()
}

func main() {
	flag.Parse()
	defer closer.Close()

	if err := run(); err != nil {
		logger.Log.Error("defview failed", zap.Error(err))
		logger.Sync()
		closer.Fatalln(err)
	}
}

func loadConfig() (*config.File, error) {
	if *configPath == "" {
		return config.DefaultFile(), nil
	}
	return config.Load(*configPath)
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := logger.Init(*debug || cfg.Debug); err != nil {
		return err
	}
	log := logger.Log
	cfg.Apply()

	if err := glfw.Init(); err != nil {
		return err
	}
	defer glfw.Terminate()

	window, err := setupWindow(cfg)
	if err != nil {
		return err
	}
	defer window.Destroy()

	// a signal ends the main loop; the GL objects are released on this
	// thread before the process exits
	done := make(chan struct{})
	defer close(done)
	closer.Bind(func() {
		select {
		case <-done:
			return
		default:
		}
		window.SetShouldClose(true)
		select {
		case <-done:
		case <-time.After(2 * time.Second):
		}
	})
	closer.Bind(logger.Sync)

	dev, err := glbackend.New(log)
	if err != nil {
		return err
	}

	shaders, watched := shaderSource(cfg.Paths.Shaders, log)
	width, height := window.GetFramebufferSize()
	r, err := renderer.New(dev, width, height, renderer.Options{
		Logger:           log,
		Shaders:          shaders,
		ShadowResolution: config.Current().ShadowResolution,
	})
	if err != nil {
		// degraded, not fatal: the failing passes are skipped
		log.Warn("renderer started degraded", zap.Error(err))
	}
	defer r.Cleanup()

	if watched {
		w, err := watch.New(cfg.Paths.Shaders, watch.Options{
			Logger:   log,
			OnChange: func(string) { r.ReloadShaders() },
		})
		if err != nil {
			log.Warn("shader hot reload disabled", zap.Error(err))
		} else {
			defer w.Close()
		}
	}

	sc, err := loadScene(dev, cfg, log)
	if err != nil {
		return err
	}
	defer sc.Delete()

	app := viewer.NewApp(window, dev, input.NewManager(), r, sc, viewer.Options{
		Logger:        log,
		Title:         cfg.Window.Title,
		ScreenshotDir: cfg.Paths.Screenshots,
		WindowWidth:   cfg.Window.Width,
		WindowHeight:  cfg.Window.Height,
	})
	app.Run()
	return nil
}

// shaderSource prefers the shader directory on disk, which can be edited
// and reloaded, over the embedded copy.
func shaderSource(dir string, log *zap.Logger) (fs.FS, bool) {
	if st, err := os.Stat(dir); err == nil && st.IsDir() {
		log.Info("shaders", zap.String("dir", dir))
		return os.DirFS(dir), true
	}
	log.Info("shaders", zap.String("dir", "embedded"))
	return assets.Shaders(), false
}

func loadScene(dev gpu.Device, cfg *config.File, log *zap.Logger) (*scene.Scene, error) {
	if *modelName != "" {
		return scene.FromModel(dev, *modelName)
	}
	path := cfg.Paths.Scene
	if *scenePath != "" {
		path = *scenePath
	}
	desc, err := scene.Load(path, log)
	if errors.Is(err, fs.ErrNotExist) && *scenePath == "" {
		// no checkout around the binary; use the bundled scene
		data, aerr := assets.Scene(filepath.Base(path))
		if aerr != nil {
			return nil, err
		}
		desc, err = scene.Parse(data, log)
	}
	if err != nil {
		return nil, err
	}
	return scene.Build(dev, desc, log)
}
