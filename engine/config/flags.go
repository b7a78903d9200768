package config

import "flag"

var (
	flagConfig    = flag.String("config", "", "Path to config file")
	flagDebug     = flag.Bool("debug", false, "Enable debug logging")
	flagBackend   = flag.String("backend", "", "Renderer backend (wgpu, software)")
	flagGenerator = flag.String("generator", "", "Cloud generator (luv_grid, luv_image, rgb_cube, fibonacci)")
	flagGrid      = flag.Uint("grid", 0, "CIELUV grid size per axis")
	flagImage     = flag.String("image", "", "Image file feeding the image-driven generators")
	flagControl   = flag.String("control", "", "Enable the websocket control server on this address")
	flagWidth     = flag.Int("width", 0, "Window width")
	flagHeight    = flag.Int("height", 0, "Window height")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via -config.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagBackend != "" {
		cfg.Renderer.Backend = *flagBackend
	}
	if *flagGenerator != "" {
		cfg.Cloud.Generator = *flagGenerator
	}
	if *flagGrid > 0 {
		cfg.Cloud.GridSize = uint32(*flagGrid)
	}
	if *flagImage != "" {
		cfg.Cloud.ImagePath = *flagImage
	}
	if *flagControl != "" {
		cfg.Control.Enabled = true
		cfg.Control.Addr = *flagControl
	}
	if *flagWidth > 0 {
		cfg.Window.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Window.Height = *flagHeight
	}
}
