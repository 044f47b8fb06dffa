package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/metaballs/internal/config"
)

var presetInfo = map[string]string{
	"default": "eight random balls",
	"pair":    "two touching balls",
	"split":   "two separate balls",
	"swarm":   "sixteen balls",
	"lava":    "slow warm drift",
	"still":   "no pairwise forces",
}

const (
	stateMenu = iota
	stateLive
)

// Picker lists the scene presets and opens the live view on the chosen one.
type Picker struct {
	state         int
	cursor        int
	presets       []string
	width, height int
	live          Model
	hasLive       bool
	err           error
}

func NewPicker() Picker {
	return Picker{presets: config.ListPresets()}
}

func (p Picker) Init() tea.Cmd { return nil }

func (p Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if size, ok := msg.(tea.WindowSizeMsg); ok {
		p.width, p.height = size.Width, size.Height
	}
	if p.state == stateLive {
		next, cmd := p.live.Update(msg)
		p.live = next.(Model)
		return p, cmd
	}

	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return p, nil
	}
	switch key.String() {
	case "q", "ctrl+c", "esc":
		return p, tea.Quit
	case "up", "k":
		if p.cursor > 0 {
			p.cursor--
		}
	case "down", "j":
		if p.cursor < len(p.presets)-1 {
			p.cursor++
		}
	case "enter", " ":
		return p.start()
	}
	return p, nil
}

func (p Picker) start() (tea.Model, tea.Cmd) {
	cfg := config.GetPreset(p.presets[p.cursor])
	live, err := NewModel(cfg)
	if err != nil {
		p.err = err
		return p, nil
	}
	if p.width > 0 && p.height > 0 {
		live.resize(p.width-panelWidth, p.height-1)
	}
	p.live, p.hasLive, p.state = live, true, stateLive
	return p, live.Init()
}

func (p Picker) View() string {
	if p.state == stateLive {
		return p.live.View()
	}

	var b strings.Builder
	h := lipgloss.NewStyle().Foreground(lipgloss.Color("#00cccc")).Bold(true)
	sub := lipgloss.NewStyle().Foreground(lipgloss.Color("#666688"))
	cursor := lipgloss.NewStyle().Foreground(lipgloss.Color("#00ffff")).Bold(true)
	name := lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")).Bold(true)
	desc := lipgloss.NewStyle().Foreground(lipgloss.Color("#ff88ff"))
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("#555566"))
	key := lipgloss.NewStyle().Foreground(lipgloss.Color("#00aaaa")).Bold(true)

	b.WriteString("\n\n    " + h.Render("METABALLS") + "\n    " + sub.Render("raymarched implicit surfaces") + "\n    " + sub.Render("─────────────────────────") + "\n\n")
	for i, preset := range p.presets {
		if i == p.cursor {
			b.WriteString(fmt.Sprintf("    %s %s  %s\n", cursor.Render("▸"), name.Render(fmt.Sprintf("%-10s", preset)), desc.Render(presetInfo[preset])))
		} else {
			b.WriteString(fmt.Sprintf("    %s  %s\n", dim.Render(fmt.Sprintf("  %-10s", preset)), dim.Render(presetInfo[preset])))
		}
	}
	if p.err != nil {
		b.WriteString("\n    " + desc.Render(p.err.Error()) + "\n")
	}
	b.WriteString("\n    " + key.Render("j/k") + dim.Render(" navigate  ") + key.Render("enter") + dim.Render(" start  ") + key.Render("q") + dim.Render(" quit") + "\n")
	return b.String()
}

// RunInteractive shows the preset menu, then the live view.
func RunInteractive() error {
	final, err := tea.NewProgram(NewPicker(), tea.WithAltScreen(), tea.WithMouseCellMotion()).Run()
	if err != nil {
		return err
	}
	if p, ok := final.(Picker); ok && p.hasLive && p.live.err != nil {
		return p.live.err
	}
	return nil
}
