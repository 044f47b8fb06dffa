package gui

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"math/rand/v2"
	"os"

	"github.com/charmbracelet/log"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/san-kum/metaballs/internal/config"
	"github.com/san-kum/metaballs/internal/field"
	"github.com/san-kum/metaballs/internal/raymarch"
	"github.com/san-kum/metaballs/internal/sim"
)

const (
	windowWidth  = 1280
	windowHeight = 720
	targetFPS    = 60
	fontPath     = "/usr/share/fonts/liberation/LiberationMono-Regular.ttf"

	thresholdStep = 0.05
	minThreshold  = 0.05
	historyLen    = 200
)

var (
	ColAccent  = rl.NewColor(180, 180, 180, 255)
	ColSelect  = rl.NewColor(255, 255, 255, 255)
	ColText    = rl.NewColor(140, 140, 140, 255)
	ColTextDim = rl.NewColor(60, 60, 60, 255)
	ColWarn    = rl.NewColor(220, 120, 80, 255)
)

// App owns the window state: one simulation loop presented either through
// the fragment shader or through a texture filled by the Go renderer.
type App struct {
	cfg      *config.Config
	loop     *sim.Loop
	renderer *raymarch.Renderer
	gpu      *gpuView
	cpu      *cpuView
	useGPU   bool

	Running bool
	quit    bool
	dt      float64
	bg      color.RGBA
	font    rl.Font
	rng     *rand.Rand

	Energy  *history
	last    sim.FrameStats
	message string
	err     error
}

func initWindow() {
	rl.SetConfigFlags(rl.FlagWindowResizable)
	rl.InitWindow(windowWidth, windowHeight, "metaballs")
	rl.SetTargetFPS(targetFPS)
	rl.SetExitKey(0)
}

// loadFont falls back to raylib's built-in font when the system font is
// missing.
func loadFont() rl.Font {
	if _, err := os.Stat(fontPath); err != nil {
		return rl.GetFontDefault()
	}
	font := rl.LoadFontEx(fontPath, 32, nil, 0)
	rl.SetTextureFilter(font.Texture, rl.FilterBilinear)
	return font
}

// NewApp builds the loop for cfg. It needs an open window. When the shader
// fails to compile the app falls back to CPU mode.
func NewApp(cfg *config.Config, gpu bool) (*App, error) {
	bg, err := cfg.BackgroundColor()
	if err != nil {
		return nil, err
	}
	loop, err := cfg.NewLoop(cfg.Seed, true)
	if err != nil {
		return nil, err
	}
	backend, err := cfg.Backend()
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:      cfg,
		loop:     loop,
		renderer: raymarch.NewRenderer(cfg.RenderSettings(), backend),
		Running:  true,
		dt:       cfg.Dt,
		bg:       bg,
		font:     loadFont(),
		rng:      field.NewRNG(cfg.Seed + 1),
		Energy:   newHistory(historyLen),
	}
	if gpu {
		if a.gpu, err = newGPUView(cfg.Render.MaxSteps); err != nil {
			log.Warn("shader unavailable, using CPU renderer", "err", err)
			a.message = "shader failed, CPU mode"
		}
	}
	a.setMode(a.gpu != nil)
	return a, nil
}

// Run opens the window and blocks until it is closed.
func Run(cfg *config.Config, gpu bool) error {
	initWindow()
	defer rl.CloseWindow()

	app, err := NewApp(cfg, gpu)
	if err != nil {
		return err
	}
	defer app.Close()

	log.Info("window open", "balls", app.loop.Simulator().Len(), "gpu", app.useGPU)
	app.RunLoop()
	log.Info("window closed", "frames", app.loop.FrameCount())
	return app.err
}

func (a *App) RunLoop() {
	for !rl.WindowShouldClose() && !a.quit {
		a.Update()
		a.Draw()
	}
}

func (a *App) Close() {
	if a.gpu != nil {
		a.gpu.close()
	}
	if a.cpu != nil {
		a.cpu.close()
	}
}

// setMode switches between shader and CPU presentation. The loop renders
// only in CPU mode.
func (a *App) setMode(gpu bool) {
	a.useGPU = gpu && a.gpu != nil
	if a.useGPU {
		a.loop.SetRenderer(nil, 0, 0)
		return
	}
	w, h := cpuFrameSize(a.cfg.Render.Width, rl.GetScreenWidth(), rl.GetScreenHeight())
	a.loop.SetRenderer(a.renderer, w, h)
}

func (a *App) Update() {
	a.handleKeys()
	a.syncFrameSize()

	if rl.IsMouseButtonDown(rl.MouseButtonLeft) {
		m := rl.GetMousePosition()
		if _, n, err := a.loop.PointerAt(float64(m.X), float64(m.Y), rl.GetScreenWidth(), rl.GetScreenHeight()); err == nil && n > 0 {
			a.message = fmt.Sprintf("pulling %d", n)
		}
	}

	if a.Running {
		stats, err := a.loop.RunFrame(a.dt)
		if err != nil {
			a.fail(err)
			return
		}
		a.last = stats
		a.Energy.push(stats.KineticEnergy)
	}
}

func (a *App) handleKeys() {
	switch {
	case rl.IsKeyPressed(rl.KeyQ):
		a.quit = true
	case rl.IsKeyPressed(rl.KeySpace):
		a.Running = !a.Running
	case rl.IsKeyPressed(rl.KeyR):
		a.reset()
	case rl.IsKeyPressed(rl.KeyTab):
		if a.gpu == nil {
			a.message = "no shader, CPU only"
			break
		}
		a.setMode(!a.useGPU)
		a.redraw()
	case rl.IsKeyPressed(rl.KeyEqual), rl.IsKeyPressed(rl.KeyKpAdd):
		a.adjustThreshold(thresholdStep)
	case rl.IsKeyPressed(rl.KeyMinus), rl.IsKeyPressed(rl.KeyKpSubtract):
		a.adjustThreshold(-thresholdStep)
	case rl.IsKeyPressed(rl.KeyA):
		a.addBall()
	case rl.IsKeyPressed(rl.KeyX):
		a.removeBall()
	}
}

// syncFrameSize keeps the CPU frame at the window's aspect ratio so pointer
// rays line up with the stretched texture.
func (a *App) syncFrameSize() {
	if a.useGPU || !rl.IsWindowResized() {
		return
	}
	w, h := cpuFrameSize(a.cfg.Render.Width, rl.GetScreenWidth(), rl.GetScreenHeight())
	a.loop.Resize(w, h)
	a.redraw()
}

func (a *App) reset() {
	loop, err := a.cfg.NewLoop(a.cfg.Seed, true)
	if err != nil {
		a.fail(err)
		return
	}
	a.loop = loop
	a.renderer.Settings = a.cfg.RenderSettings()
	a.setMode(a.useGPU)
	a.Energy.clear()
	a.last = sim.FrameStats{}
	a.err = nil
	a.message = "reset"
	a.redraw()
}

func (a *App) adjustThreshold(delta float64) {
	s := &a.renderer.Settings
	s.Threshold = math.Max(minThreshold, s.Threshold+delta)
	a.redraw()
}

func (a *App) addBall() {
	palette, err := a.cfg.ParsePalette()
	if err != nil || len(palette) == 0 {
		palette = field.DefaultPalette
	}
	s := a.loop.Simulator()
	if _, err := s.AddVisible(field.RandomBall(a.rng, palette[s.Len()%len(palette)])); err != nil {
		a.message = err.Error()
		return
	}
	a.redraw()
}

func (a *App) removeBall() {
	s := a.loop.Simulator()
	if s.Len() == 0 {
		return
	}
	if err := s.Remove(s.Len() - 1); err != nil {
		a.message = err.Error()
		return
	}
	a.redraw()
}

// redraw refreshes a paused scene after a change: the CPU frame, or the
// snapshot the shader reads.
func (a *App) redraw() {
	if a.Running {
		return
	}
	if err := a.loop.Redraw(); err != nil {
		a.fail(err)
	}
}

func (a *App) fail(err error) {
	a.err = err
	a.Running = false
	var fe *sim.FrameError
	if errors.As(err, &fe) {
		a.message = fmt.Sprintf("frame %d failed", fe.Frame)
	} else {
		a.message = err.Error()
	}
	log.Error("frame loop stopped", "err", err)
}

func (a *App) Draw() {
	rl.BeginDrawing()
	rl.ClearBackground(a.bg)

	sw, sh := rl.GetScreenWidth(), rl.GetScreenHeight()
	if a.useGPU {
		if a.loop.Posed() {
			err := a.gpu.draw(a.loop.Snapshot(), a.loop.Camera(), a.renderer.Settings, a.loop.Time(), sw, sh)
			if err != nil && a.err == nil {
				a.fail(err)
			}
		}
	} else if frame := a.loop.Frame(); frame != nil {
		if a.cpu == nil || !a.cpu.fits(frame) {
			if a.cpu != nil {
				a.cpu.close()
			}
			a.cpu = newCPUView(frame.Width, frame.Height)
		}
		a.cpu.upload(frame, a.bg)
		a.cpu.draw(sw, sh)
	}

	a.DrawHUD(sw, sh)
	rl.EndDrawing()
}

func (a *App) DrawHUD(sw, sh int) {
	a.drawText("metaballs", 30, 30, 24, ColSelect)
	mode := "CPU"
	if a.useGPU {
		mode = "GPU"
	}
	a.drawText(fmt.Sprintf(":: %s  %d balls  threshold %.2f", mode, a.loop.Simulator().Len(), a.renderer.Settings.Threshold), 170, 34, 16, ColText)

	status, col := "RUNNING", ColSelect
	if !a.Running {
		status, col = "PAUSED", ColTextDim
	}
	a.drawText(status, sw-130, 30, 16, col)

	if a.last.Rendered {
		a.drawText(fmt.Sprintf("coverage %.1f%%  steps %.1f", a.last.Coverage*100, a.last.MeanSteps), 30, 64, 14, ColText)
	}
	if a.message != "" {
		msgCol := ColAccent
		if a.err != nil {
			msgCol = ColWarn
		}
		a.drawText(a.message, 30, 84, 14, msgCol)
	}

	a.DrawTelemetry(30, sh-120, 400, 60)

	a.drawText("[SPACE] PAUSE  [R] RESET  [TAB] GPU/CPU  [+/-] THRESHOLD  [A/X] BALLS  [Q] QUIT", sw-760, sh-40, 14, ColTextDim)
	a.drawText(fmt.Sprintf("%d FPS", rl.GetFPS()), 30, sh-40, 14, ColTextDim)
}

func (a *App) drawText(text string, x, y int, size int, col color.RGBA) {
	rl.DrawTextEx(a.font, text, rl.NewVector2(float32(x), float32(y)), float32(size), 1, col)
}

// DrawTelemetry plots the kinetic energy history as a line strip.
func (a *App) DrawTelemetry(x, y, width, height int) {
	pts := a.Energy.points(float32(x), float32(y), float32(width), float32(height))
	if len(pts) < 2 {
		return
	}
	rl.DrawLineStrip(pts, ColAccent)
	a.drawText(fmt.Sprintf("E: %.2e", a.Energy.last()), x+width+10, y+height-10, 14, ColText)
}
