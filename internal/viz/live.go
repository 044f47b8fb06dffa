package viz

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/guptarohit/asciigraph"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/san-kum/metaballs/internal/config"
	"github.com/san-kum/metaballs/internal/export"
	"github.com/san-kum/metaballs/internal/field"
	"github.com/san-kum/metaballs/internal/sim"
)

const (
	historyCapacity = 300
	panelWidth      = 48
	defaultCols     = 64
	defaultRows     = 24
	thresholdStep   = 0.05
	minThreshold    = 0.05
	orbitStep       = 0.3
	gifPath         = "metaballs.gif"
	pngPath         = "metaballs.png"
)

type TickMsg time.Time

// Model drives a sim.Loop from bubbletea ticks and draws its frames.
type Model struct {
	cfg   *config.Config
	loop  *sim.Loop
	rig   *SpringRig
	theme Theme
	bg    colorful.Color
	rng   *rand.Rand

	dt         float64
	cols, rows int
	running    bool
	mono       bool
	showHelp   bool

	pointerX, pointerY int

	energyHistory   []float64
	coverageHistory []float64
	last            sim.FrameStats

	recorder *export.GIFRecorder
	message  string
	err      error
}

// NewModel builds the live view for cfg. The camera section seeds a
// SpringRig; fixed mode starts facing +z with auto orbit off.
func NewModel(cfg *config.Config) (Model, error) {
	loop, err := cfg.NewLoop(cfg.Seed, false)
	if err != nil {
		return Model{}, err
	}
	fps := int(math.Round(1 / cfg.Dt))
	rig := NewSpringRig(cfg.Camera.Distance, cfg.Camera.Height, cfg.Camera.FOV, cfg.Camera.OrbitSpeed, fps)
	if cfg.Camera.Mode == "fixed" {
		rig.AutoOrbit = false
		rig.SetAngle(math.Pi / 2)
	}
	loop.SetRig(rig)

	bgRGBA, err := cfg.BackgroundColor()
	if err != nil {
		return Model{}, err
	}
	bg, _ := colorful.MakeColor(bgRGBA)

	m := Model{
		cfg:             cfg,
		loop:            loop,
		rig:             rig,
		theme:           Themes[0],
		bg:              bg,
		rng:             field.NewRNG(cfg.Seed + 1),
		dt:              cfg.Dt,
		running:         true,
		energyHistory:   make([]float64, 0, historyCapacity),
		coverageHistory: make([]float64, 0, historyCapacity),
	}
	m.resize(defaultCols, defaultRows)
	return m, nil
}

func (m Model) Init() tea.Cmd {
	return m.tickCmd()
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(time.Duration(m.dt*float64(time.Second)), func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Loop() *sim.Loop  { return m.loop }
func (m Model) Rig() *SpringRig  { return m.rig }
func (m Model) Running() bool    { return m.running }
func (m Model) Recording() bool  { return m.recorder != nil }
func (m Model) Err() error       { return m.err }
func (m Model) Size() (int, int) { return m.cols, m.rows }

// Update handles input events and steps the simulation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width-panelWidth, msg.Height-1)
	case tea.KeyMsg:
		return m.handleKey(msg.String())
	case tea.MouseMsg:
		if msg.Button == tea.MouseButtonLeft && (msg.Action == tea.MouseActionPress || msg.Action == tea.MouseActionMotion) {
			if msg.X < m.cols && msg.Y < m.rows {
				m.pointerX, m.pointerY = msg.X, msg.Y
				m.pull()
			}
		}
	case TickMsg:
		m.tick()
		return m, m.tickCmd()
	}
	return m, nil
}

func (m Model) handleKey(key string) (tea.Model, tea.Cmd) {
	m.message = ""
	switch key {
	case "q", "ctrl+c":
		if m.recorder != nil {
			m.stopRecording()
		}
		return m, tea.Quit
	case " ":
		m.running = !m.running
	case "r":
		m.reset()
	case "+", "=":
		m.adjustThreshold(thresholdStep)
	case "-", "_":
		m.adjustThreshold(-thresholdStep)
	case "left", "h":
		m.rig.Orbit(-orbitStep)
	case "right", "l":
		m.rig.Orbit(orbitStep)
	case "up", "k":
		m.rig.Zoom(0.8)
	case "down", "j":
		m.rig.Zoom(1.25)
	case "o":
		m.rig.AutoOrbit = !m.rig.AutoOrbit
	case "a":
		m.addBall()
	case "x":
		m.removeBall()
	case "shift+left":
		m.movePointer(-1, 0)
	case "shift+right":
		m.movePointer(1, 0)
	case "shift+up":
		m.movePointer(0, -1)
	case "shift+down":
		m.movePointer(0, 1)
	case "p", "enter":
		m.pull()
	case "t":
		m.theme = NextTheme(m.theme)
	case "m":
		m.mono = !m.mono
		m.resize(m.cols, m.rows)
	case "g":
		if m.recorder != nil {
			m.stopRecording()
		} else {
			m.recorder = export.NewGIFRecorder(m.bg, 1)
			m.message = "recording"
		}
	case "s":
		m.saveSnapshot()
	case "?":
		m.showHelp = !m.showHelp
	}
	return m, nil
}

// tick eases the camera and either steps the scene or, when paused,
// re-renders it so camera and threshold changes stay visible.
func (m *Model) tick() {
	m.rig.Advance(m.dt)
	if !m.running {
		if err := m.loop.Redraw(); err != nil {
			m.err = err
		}
		return
	}

	stats, err := m.loop.RunFrame(m.dt)
	if err != nil {
		m.err = err
		m.running = false
		return
	}
	m.last = stats
	m.energyHistory = appendCapped(m.energyHistory, stats.KineticEnergy)
	m.coverageHistory = appendCapped(m.coverageHistory, stats.Coverage)
	if m.recorder != nil {
		m.recorder.OnFrame(stats, m.loop.Snapshot(), m.loop.Frame())
	}
}

func appendCapped(h []float64, v float64) []float64 {
	h = append(h, v)
	if len(h) > historyCapacity {
		h = h[1:]
	}
	return h
}

// resize fits the frame buffer to cols x rows character cells.
func (m *Model) resize(cols, rows int) {
	m.cols, m.rows = max(cols, 8), max(rows, 4)
	m.pointerX = min(max(m.pointerX, 0), m.cols-1)
	m.pointerY = min(max(m.pointerY, 0), m.rows-1)
	if m.pointerX == 0 && m.pointerY == 0 {
		m.pointerX, m.pointerY = m.cols/2, m.rows/2
	}
	w, h := m.frameSize()
	m.loop.Resize(w, h)
}

// frameSize is one pixel per half cell in colour mode and one per braille
// dot in mono mode.
func (m *Model) frameSize() (int, int) {
	if m.mono {
		return m.cols * 2, m.rows * 4
	}
	return m.cols, m.rows * 2
}

func (m *Model) reset() {
	loop, err := m.cfg.NewLoop(m.cfg.Seed, false)
	if err != nil {
		m.err = err
		return
	}
	loop.SetRig(m.rig)
	m.loop = loop
	m.resize(m.cols, m.rows)
	m.energyHistory = m.energyHistory[:0]
	m.coverageHistory = m.coverageHistory[:0]
	m.last = sim.FrameStats{}
	m.err = nil
}

func (m *Model) adjustThreshold(delta float64) {
	r := m.loop.Renderer()
	r.Settings.Threshold = math.Max(minThreshold, r.Settings.Threshold+delta)
}

func (m *Model) addBall() {
	palette, err := m.cfg.ParsePalette()
	if err != nil || len(palette) == 0 {
		palette = field.DefaultPalette
	}
	s := m.loop.Simulator()
	if _, err := s.AddVisible(field.RandomBall(m.rng, palette[s.Len()%len(palette)])); err != nil {
		m.message = err.Error()
		return
	}
}

func (m *Model) removeBall() {
	s := m.loop.Simulator()
	if s.Len() == 0 {
		return
	}
	if err := s.Remove(s.Len() - 1); err != nil {
		m.message = err.Error()
	}
}

func (m *Model) movePointer(dx, dy int) {
	m.pointerX = min(max(m.pointerX+dx, 0), m.cols-1)
	m.pointerY = min(max(m.pointerY+dy, 0), m.rows-1)
}

// pull applies the pointer force at the centre of the pointer cell.
func (m *Model) pull() {
	w, h := m.frameSize()
	px := (float64(m.pointerX) + 0.5) * float64(w) / float64(m.cols)
	py := (float64(m.pointerY) + 0.5) * float64(h) / float64(m.rows)
	_, n, err := m.loop.PointerAt(px, py, w, h)
	if err != nil {
		m.err = err
		return
	}
	m.message = fmt.Sprintf("pulled %d", n)
}

func (m *Model) stopRecording() {
	rec := m.recorder
	m.recorder = nil
	if err := rec.Save(gifPath); err != nil {
		m.message = err.Error()
		return
	}
	m.message = fmt.Sprintf("saved %s (%d frames)", gifPath, rec.Len())
}

func (m *Model) saveSnapshot() {
	frame := m.loop.Frame()
	if frame == nil {
		return
	}
	if err := export.WritePNG(pngPath, export.FrameImage(frame, m.bg, 4)); err != nil {
		m.message = err.Error()
		return
	}
	m.message = "saved " + pngPath
}

// View renders the frame beside the stats panel.
func (m Model) View() string {
	st := m.theme.styles()

	var view string
	if m.mono {
		view = lipgloss.NewStyle().Foreground(m.theme.Primary).Render(Braille(m.loop.Frame(), m.cols, m.rows))
	} else {
		view = HalfBlock(m.loop.Frame(), m.bg)
	}

	var s strings.Builder
	s.WriteString(st.header.Render(GradientText("METABALLS", m.theme.Primary, m.theme.Secondary)) + "\n")

	status := "RUNNING"
	if !m.running {
		status = "PAUSED"
	}
	if m.recorder != nil {
		status += st.warn.Render(fmt.Sprintf("  ● REC %d", m.recorder.Len()))
	}
	s.WriteString(st.active.Render(status) + "\n\n")

	scene := m.loop.Simulator()
	settings := m.loop.Renderer().Settings
	line := func(label, value string) {
		s.WriteString(st.label.Render(label) + st.value.Render(value) + "\n")
	}
	line("Time", fmt.Sprintf("%.2fs", m.loop.Time()))
	line("Frame", fmt.Sprintf("%d", m.loop.FrameCount()))
	line("Balls", fmt.Sprintf("%d", scene.Len()))
	line("Energy", fmt.Sprintf("%.5f", m.last.KineticEnergy))
	line("Threshold", fmt.Sprintf("%.2f", settings.Threshold))
	line("Steps/px", fmt.Sprintf("%.1f", m.last.MeanSteps))
	line("Camera", fmt.Sprintf("%.1f @ %.0f°", m.rig.Distance(), math.Mod(m.rig.Angle()*180/math.Pi, 360)))
	line("Backend", m.loop.Renderer().Backend().Name())
	s.WriteString(st.label.Render("Coverage") + ProgressBar(m.last.Coverage, 20, st.active) + "\n")
	s.WriteString(st.label.Render("") + SparklineChart(m.coverageHistory, 20) + "\n")

	if len(m.energyHistory) > 1 {
		chart := asciigraph.Plot(m.energyHistory, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Kinetic energy"))
		s.WriteString(st.graph.Render(chart) + "\n")
	}

	mini := NewCanvas(20, 5)
	positions := make([]mgl64.Vec3, 0, scene.Len())
	radii := make([]float64, 0, scene.Len())
	for _, b := range scene.Balls() {
		positions = append(positions, b.Position)
		radii = append(radii, b.Radius)
	}
	mini.PlotTopDown(positions, radii, scene.Params().Bound)
	s.WriteString(lipgloss.NewStyle().Foreground(m.theme.Secondary).Render(mini.String()) + "\n")

	if m.err != nil {
		s.WriteString(st.warn.Render(m.err.Error()) + "\n")
	} else if m.message != "" {
		s.WriteString(st.value.Render(m.message) + "\n")
	}
	s.WriteString(st.help.Render("SP:Pause R:Reset Q:Quit ?:Help\n+/-:Threshold ←→:Orbit ↑↓:Zoom"))

	main := lipgloss.JoinHorizontal(lipgloss.Top, view, st.panel.Render(s.String()))
	if m.showHelp {
		return helpText + "\n" + main
	}
	return main
}

const helpText = `
╔══════════════════════════════════════╗
║           KEYBOARD SHORTCUTS         ║
╠══════════════════════════════════════╣
║  Space       Pause / resume          ║
║  R           Reset scene             ║
║  + / -       Raise / lower threshold ║
║  ← → / H L   Orbit camera            ║
║  ↑ ↓ / K J   Zoom camera             ║
║  O           Toggle auto orbit       ║
║  A / X       Add / remove a ball     ║
║  Shift+Arrow Move pointer            ║
║  P / Click   Pull balls to pointer   ║
║  M           Colour / braille mode   ║
║  T           Cycle themes            ║
║  G           Toggle GIF recording    ║
║  S           Save PNG snapshot       ║
║  Q           Quit                    ║
╚══════════════════════════════════════╝`

// RunLive runs the live view until the user quits.
func RunLive(cfg *config.Config) error {
	m, err := NewModel(cfg)
	if err != nil {
		return err
	}
	final, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion()).Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(Model); ok && fm.err != nil {
		return fm.err
	}
	return nil
}
