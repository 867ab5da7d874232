package viz

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/tshirt/internal/config"
	"github.com/san-kum/tshirt/internal/experiment"
)

type appState int

const (
	stateMenu appState = iota
	stateLive
)

var scenarioInfo = map[string]string{
	"storm":   "a day of rain, ten days draining",
	"drydown": "wet column under summer demand",
	"flash":   "short burst, three-hour hydrograph",
}

type choice struct{ soil, scenario string }

// App lists the presets and opens the live view on the chosen one.
type App struct {
	ctx     context.Context
	choices []choice
	cursor  int
	state   appState
	live    Live
	fps     int
	err     error
}

func NewApp(ctx context.Context, fps int) App {
	var choices []choice
	for _, soil := range config.ListSoils() {
		for _, name := range config.ListPresets(soil) {
			choices = append(choices, choice{soil: soil, scenario: name})
		}
	}
	return App{ctx: ctx, choices: choices, fps: fps}
}

func (a App) Init() tea.Cmd { return nil }

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if a.state == stateLive {
		if k, ok := msg.(tea.KeyMsg); ok && k.String() == "esc" {
			a.state = stateMenu
			return a, nil
		}
		next, cmd := a.live.Update(msg)
		a.live = next.(Live)
		return a, cmd
	}

	// ticks still queued from a closed live view are dropped here
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return a, nil
	}
	switch k.String() {
	case "q", "ctrl+c":
		return a, tea.Quit
	case "up", "k":
		if a.cursor > 0 {
			a.cursor--
		}
	case "down", "j":
		if a.cursor < len(a.choices)-1 {
			a.cursor++
		}
	case "enter", " ":
		return a.start()
	}
	return a, nil
}

func (a App) start() (App, tea.Cmd) {
	if len(a.choices) == 0 {
		return a, nil
	}
	c := a.choices[a.cursor]
	exp, err := experiment.New(config.GetPreset(c.soil, c.scenario))
	if err == nil {
		a.live, err = NewLive(a.ctx, exp, a.fps)
	}
	if err != nil {
		a.err = err
		return a, nil
	}
	a.err = nil
	a.state = stateLive
	return a, a.live.Init()
}

func (a App) View() string {
	if a.state == stateLive {
		return a.live.View() + "\n" + KeyHint.Render("  esc: back to presets")
	}

	var b strings.Builder
	h := lipgloss.NewStyle().Foreground(CurrentTheme.Primary).Bold(true)
	b.WriteString("\n\n    " + h.Render("TSHIRT") + "\n    " + Subtle.Render("lumped rainfall-runoff") + "\n    " + Subtle.Render("─────────────────────────") + "\n\n")

	sel := lipgloss.NewStyle().Foreground(CurrentTheme.Text).Bold(true)
	desc := lipgloss.NewStyle().Foreground(CurrentTheme.Rain)
	dim := lipgloss.NewStyle().Foreground(CurrentTheme.Muted)
	for i, c := range a.choices {
		name := fmt.Sprintf("%-22s", c.soil+"/"+c.scenario)
		if i == a.cursor {
			b.WriteString(fmt.Sprintf("    %s %s  %s\n", h.Render("▸"), sel.Render(name), desc.Render(scenarioInfo[c.scenario])))
		} else {
			b.WriteString(fmt.Sprintf("      %s  %s\n", dim.Render(name), dim.Render(scenarioInfo[c.scenario])))
		}
	}
	if a.err != nil {
		b.WriteString("\n    " + StatusFailed.Render(a.err.Error()) + "\n")
	}
	b.WriteString("\n    " + KeyHint.Render("j/k navigate  enter select  q quit") + "\n")
	return b.String()
}

// RunApp opens the preset picker full screen.
func RunApp(ctx context.Context, fps int) error {
	_, err := tea.NewProgram(NewApp(ctx, fps), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
