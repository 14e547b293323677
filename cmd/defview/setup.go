package main

import (
	"github.com/go-gl/glfw/v3.3/glfw"

	"defview/internal/config"
)

func setupWindow(cfg *config.File) (*glfw.Window, error) {
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	if cfg.Debug {
		glfw.WindowHint(glfw.OpenGLDebugContext, glfw.True)
	}

	width, height := cfg.Window.Width, cfg.Window.Height
	var monitor *glfw.Monitor
	if cfg.Window.Fullscreen {
		monitor = glfw.GetPrimaryMonitor()
		if mode := monitor.GetVideoMode(); mode != nil {
			width, height = mode.Width, mode.Height
		}
	}

	window, err := glfw.CreateWindow(width, height, cfg.Window.Title, monitor, nil)
	if err != nil {
		return nil, err
	}
	window.MakeContextCurrent()

	if cfg.Window.VSync {
		glfw.SwapInterval(1)
	} else {
		glfw.SwapInterval(0)
	}
	return window, nil
}
