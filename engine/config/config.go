// Package config handles viewer configuration loading and management.
package config

import (
	"fmt"
	"slices"
)

// Config holds all viewer settings.
type Config struct {
	Window   WindowConfig   `yaml:"window"`
	Renderer RendererConfig `yaml:"renderer"`
	Cloud    CloudConfig    `yaml:"cloud"`
	Control  ControlConfig  `yaml:"control"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// WindowConfig holds display settings.
type WindowConfig struct {
	Title  string `yaml:"title"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	VSync  bool   `yaml:"vsync"`
	MSAA   int    `yaml:"msaa"`
}

// RendererConfig selects and tunes the GPU backend.
type RendererConfig struct {
	Backend              string `yaml:"backend"` // wgpu or software
	ForceFallbackAdapter bool   `yaml:"force_fallback_adapter"`
	Workers              int    `yaml:"workers"` // software backend worker count, 0 = NumCPU-1
}

// CloudConfig holds the initial point cloud selection.
type CloudConfig struct {
	Generator string     `yaml:"generator"`
	GridSize  uint32     `yaml:"grid_size"`
	BitDepth  uint32     `yaml:"bit_depth"`
	Count     uint32     `yaml:"count"`
	ImagePath string     `yaml:"image_path"`
	Spin      [3]float32 `yaml:"spin"` // radians per second about X, Y, Z
}

// ControlConfig holds the websocket control server settings.
type ControlConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Backends lists the accepted renderer backend names.
var Backends = []string{"wgpu", "software"}

// Generators lists the accepted cloud generator names.
var Generators = []string{"luv_grid", "luv_image", "rgb_cube", "fibonacci"}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Title:  "oxy-luv",
			Width:  1280,
			Height: 720,
			VSync:  true,
			MSAA:   4,
		},
		Renderer: RendererConfig{
			Backend: "wgpu",
		},
		Cloud: CloudConfig{
			Generator: "luv_grid",
			GridSize:  64,
			BitDepth:  6,
			Count:     50000,
			Spin:      [3]float32{0, 0.5, 0},
		},
		Control: ControlConfig{
			Enabled: false,
			Addr:    "127.0.0.1:8765",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate reports the first setting that the viewer cannot run with.
func (c *Config) Validate() error {
	if !slices.Contains(Backends, c.Renderer.Backend) {
		return fmt.Errorf("unknown renderer backend %q (want one of %v)", c.Renderer.Backend, Backends)
	}
	if !slices.Contains(Generators, c.Cloud.Generator) {
		return fmt.Errorf("unknown generator %q (want one of %v)", c.Cloud.Generator, Generators)
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height)
	}
	switch c.Window.MSAA {
	case 1, 4:
	default:
		return fmt.Errorf("msaa must be 1 or 4, got %d", c.Window.MSAA)
	}
	if c.Cloud.GridSize == 0 || c.Cloud.Count == 0 {
		return fmt.Errorf("cloud grid_size and count must be positive")
	}
	if c.Cloud.BitDepth == 0 || c.Cloud.BitDepth > 8 {
		return fmt.Errorf("cloud bit_depth must be in [1, 8], got %d", c.Cloud.BitDepth)
	}
	return nil
}
