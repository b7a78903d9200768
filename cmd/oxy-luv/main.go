// Command oxy-luv opens a window showing a GPU point cloud of a color space: a CIELUV grid, an
// image projected into CIELUV, an RGB cube or a Fibonacci sphere.
//
// Controls: drag to orbit, scroll or Q/E to zoom, WASD to step the orbit, Space to toggle the
// spin, 1-4 to switch generators, and drop an image file onto the window to project it.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Carmen-Shannon/oxy-luv/common"
	"github.com/Carmen-Shannon/oxy-luv/engine"
	"github.com/Carmen-Shannon/oxy-luv/engine/camera"
	"github.com/Carmen-Shannon/oxy-luv/engine/config"
	"github.com/Carmen-Shannon/oxy-luv/engine/control"
	"github.com/Carmen-Shannon/oxy-luv/engine/generator"
	"github.com/Carmen-Shannon/oxy-luv/engine/loader"
	"github.com/Carmen-Shannon/oxy-luv/engine/logger"
	"github.com/Carmen-Shannon/oxy-luv/engine/renderer"
	"github.com/Carmen-Shannon/oxy-luv/engine/scene"
	"github.com/Carmen-Shannon/oxy-luv/engine/window"
	"github.com/chewxy/math32"
	"go.uber.org/zap"
)

// maxImagePixels caps how many points an image-driven cloud can have.
const maxImagePixels = 1 << 20

func main() {
	config.ParseFlags()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	win := window.NewWindow(
		window.WithTitle(cfg.Window.Title),
		window.WithSize(cfg.Window.Width, cfg.Window.Height),
	)

	eng := engine.NewEngine(
		engine.WithWindow(win),
		engine.WithTickRate(60),
		engine.WithProfiling(cfg.Logging.Level == "debug"),
	)

	backend := renderer.BackendTypeWGPU
	if cfg.Renderer.Backend == "software" {
		backend = renderer.BackendTypeSoftware
	}
	presentMode := renderer.PresentModeUncapped
	if cfg.Window.VSync {
		presentMode = renderer.PresentModeVSync
	}
	r := renderer.NewRenderer(backend, win,
		renderer.WithPresentMode(presentMode),
		renderer.WithMSAA(renderer.MSAASampleCount(cfg.Window.MSAA)),
		renderer.WithForceSoftwareRenderer(cfg.Renderer.ForceFallbackAdapter),
		renderer.WithWorkers(cfg.Renderer.Workers),
	)
	defer r.Release()

	ctrl := camera.NewOrbitController(
		camera.WithRadius(4),
		camera.WithElevation(0.35),
		camera.WithRadiusBounds(0.5, 50),
	)
	cam := camera.NewCamera(
		camera.WithFov(45*math32.Pi/180),
		camera.WithAspect(float32(win.Width())/float32(win.Height())),
		camera.WithClipPlanes(0.01, 100),
		camera.WithController(ctrl),
	)
	defer cam.Release()

	images := loader.NewLoader(loader.WithMaxPixels(maxImagePixels))
	var img *common.ImageBuffer
	if cfg.Cloud.ImagePath != "" {
		if img, err = images.Load(cfg.Cloud.ImagePath); err != nil {
			logger.Warn("image not loaded, using the synthetic cloud", zap.String("path", cfg.Cloud.ImagePath), zap.Error(err))
		}
	}

	params := generator.Params{GridSize: cfg.Cloud.GridSize, BitDepth: cfg.Cloud.BitDepth, Count: cfg.Cloud.Count}
	g, err := generator.New(cfg.Cloud.Generator, params, img)
	if err != nil {
		logger.Fatal("generator", zap.Error(err))
	}
	sc, err := scene.NewScene(r, cam,
		scene.WithName("cloud"),
		scene.WithGenerator(g),
		scene.WithSpin(common.Vec3(cfg.Cloud.Spin)),
	)
	if err != nil {
		logger.Fatal("scene", zap.Error(err))
	}
	defer sc.Release()
	eng.AddScene(0, sc)

	v := &viewer{scene: sc, params: params, img: img, spin: sc.Spin()}

	if cfg.Control.Enabled {
		srv := control.NewServer(sc,
			control.WithFPS(eng.FPS),
			control.WithParams(params),
			control.WithImage(img),
			control.WithSelected(cfg.Cloud.Generator),
		)
		if err := srv.Start(cfg.Control.Addr); err != nil {
			logger.Fatal("control server", zap.Error(err))
		}
		defer srv.Close()
	}

	win.SetDragCallback(ctrl.Drag)
	win.SetScrollCallback(ctrl.Zoom)
	win.SetKeyDownCallback(func(key uint32) {
		switch key {
		case common.KeyW:
			ctrl.OrbitUp()
		case common.KeyS:
			ctrl.OrbitDown()
		case common.KeyA:
			ctrl.OrbitLeft()
		case common.KeyD:
			ctrl.OrbitRight()
		case common.KeyQ:
			ctrl.Zoom(1)
		case common.KeyE:
			ctrl.Zoom(-1)
		case common.KeySpace:
			v.toggleSpin()
		case common.Key1, common.Key2, common.Key3, common.Key4:
			v.switchTo(generator.Names[key-common.Key1])
		}
	})
	win.SetDropCallback(func(paths []string) {
		dropped, err := images.Load(paths[0])
		if err != nil {
			logger.Warn("dropped file is not an image", zap.String("file", filepath.Base(paths[0])), zap.Error(err))
			return
		}
		v.img = dropped
		v.switchTo(generator.NameLUVImage)
	})

	var sinceTitle float32
	eng.SetTickCallback(func(dt float32) {
		if sinceTitle += dt; sinceTitle < 0.5 {
			return
		}
		sinceTitle = 0
		st := sc.Status()
		win.SetTitle(fmt.Sprintf("%s | %s | %d points | %.0f fps", cfg.Window.Title, st.Generator, st.Points, eng.FPS()))
	})

	start := time.Now()
	eng.Run()
	logger.Info("viewer closed", zap.Duration("uptime", time.Since(start)))
	_ = win.Close()
}

// viewer holds the keyboard-driven state; it is only touched from the window goroutine.
type viewer struct {
	scene  scene.Scene
	params generator.Params
	img    *common.ImageBuffer
	spin   common.Vec3
}

func (v *viewer) toggleSpin() {
	if v.scene.Spin() == common.Zero3 {
		v.scene.SetSpin(v.spin)
		return
	}
	v.spin = v.scene.Spin()
	v.scene.SetSpin(common.Zero3)
}

func (v *viewer) switchTo(name string) {
	g, err := generator.New(name, v.params, v.img)
	if err != nil {
		logger.Warn("generator", zap.String("name", name), zap.Error(err))
		return
	}
	done := v.scene.SetGenerator(g)
	go func() {
		if err := <-done; err != nil {
			logger.Warn("generator swap failed", zap.String("name", name), zap.Error(err))
		}
	}()
}
