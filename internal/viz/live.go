package viz

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/tshirt/internal/experiment"
	"github.com/san-kum/tshirt/internal/forcing"
	"github.com/san-kum/tshirt/internal/sim"
	"github.com/san-kum/tshirt/internal/tshirt"
)

const (
	canvasWidth     = 40
	canvasHeight    = 10
	plotWidth       = 60
	plotHeight      = 6
	historyCapacity = 600
	defaultFPS      = 20
)

var (
	canvasStyle = lipgloss.NewStyle().Padding(1, 2)
	statsStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(42)
	graphStyle  = lipgloss.NewStyle().Padding(1, 2)
)

type TickMsg time.Time

// Frame is one completed step kept for replay.
type Frame struct {
	Index     int
	Time      float64 // end of the step (s)
	Precip    float64
	Discharge float64
	State     tshirt.State
	Residual  float64
	Closed    bool
}

// Live steps an experiment on a timer and draws its storages and
// hydrograph.
type Live struct {
	ctx      context.Context
	exp      *experiment.Experiment
	cfg      sim.Config
	series   forcing.Series
	next     int
	history  []Frame
	playHead int
	running  bool
	showHelp bool
	err      error
	fps      int
	canvas   *Canvas
}

// NewLive sets up exp from its initial state. ctx carries the logger the
// simulator writes to and is checked before every step.
func NewLive(ctx context.Context, exp *experiment.Experiment, fps int) (Live, error) {
	if err := exp.Setup(); err != nil {
		return Live{}, err
	}
	if fps <= 0 {
		fps = defaultFPS
	}
	return Live{
		ctx:      ctx,
		exp:      exp,
		cfg:      exp.SimConfig(),
		series:   exp.Forcing(),
		history:  make([]Frame, 0, historyCapacity),
		playHead: -1,
		running:  true,
		fps:      fps,
		canvas:   NewCanvas(canvasWidth, canvasHeight),
	}, nil
}

func (m Live) tick() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(m.fps), func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Live) Init() tea.Cmd { return m.tick() }

func (m Live) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.reset()
		case "[":
			m.scrub(-1)
		case "]":
			m.scrub(1)
		case "t":
			NextTheme()
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running {
			if m.playHead == -1 {
				m.step()
			} else {
				m.playHead++
				if m.playHead >= len(m.history) {
					m.playHead = -1
				}
			}
		}
		return m, m.tick()
	}
	return m, nil
}

// Done reports whether every forcing record has been consumed.
func (m Live) Done() bool { return m.next >= len(m.series) }

func (m Live) Err() error { return m.err }

func (m Live) History() []Frame { return m.history }

// step advances the model by one forcing record.
func (m *Live) step() {
	if m.err != nil || m.Done() {
		m.running = false
		return
	}
	if err := m.ctx.Err(); err != nil {
		m.err, m.running = err, false
		return
	}

	st, err := m.exp.GetSimulator().Advance(m.ctx, m.next, m.series[m.next], m.cfg)
	if err != nil {
		m.err, m.running = err, false
		// strict mass balance fails after the model has moved on
		if tshirt.StatusOf(err) != tshirt.StatusMassBalanceError {
			return
		}
	}
	m.next++

	m.history = append(m.history, Frame{
		Index:     st.Index,
		Time:      st.Time + st.Dt,
		Precip:    st.Forcing.Precip,
		Discharge: st.Result.Fluxes.Discharge(),
		State:     st.Result.State,
		Residual:  st.Balance.Residual,
		Closed:    st.Balance.OK(),
	})
	if len(m.history) > historyCapacity {
		m.history = m.history[1:]
	}
}

// scrub moves the replay position through history.
func (m *Live) scrub(dir int) {
	if m.playHead == -1 {
		if len(m.history) == 0 {
			return
		}
		m.playHead = len(m.history) - 1
		m.running = false
	}
	m.playHead += dir
	if m.playHead < 0 {
		m.playHead = 0
	}
	if m.playHead >= len(m.history) {
		m.playHead = -1
	}
}

// reset rebuilds the model from its initial state.
func (m *Live) reset() {
	if err := m.exp.Setup(); err != nil {
		m.err, m.running = err, false
		return
	}
	m.next = 0
	m.history = m.history[:0]
	m.playHead = -1
	m.err = nil
	m.running = true
}

// frame returns what the view shows: the replay position, else the most
// recent step, else the initial state.
func (m Live) frame() Frame {
	if m.playHead >= 0 && m.playHead < len(m.history) {
		return m.history[m.playHead]
	}
	if n := len(m.history); n > 0 {
		return m.history[n-1]
	}
	var t0 float64
	if len(m.series) > 0 {
		t0 = m.series[0].Time
	}
	return Frame{Index: -1, Time: t0, State: m.exp.Initial(), Closed: true}
}

func (m Live) status() string {
	switch {
	case m.err != nil:
		return StatusFailed.Render(strings.ToUpper(tshirt.StatusOf(m.err).String()))
	case m.playHead >= 0:
		last := m.history[len(m.history)-1]
		return StatusPaused.Render(fmt.Sprintf("REPLAY (%.1fh)", (m.history[m.playHead].Time-last.Time)/3600))
	case m.Done():
		return StatusRunning.Render("DONE")
	case !m.running:
		return StatusPaused.Render("PAUSED")
	default:
		return StatusRunning.Render("RUNNING")
	}
}

func (m Live) View() string {
	f := m.frame()
	p := m.exp.Params()

	tanks := Tanks(f.State, p)
	DrawTanks(m.canvas, tanks)
	water := lipgloss.NewStyle().Foreground(CurrentTheme.Water)
	canvasView := canvasStyle.Render(water.Render(m.canvas.String()) + TankLabels(tanks, canvasWidth))

	var s strings.Builder
	s.WriteString(HeaderStyle.Foreground(CurrentTheme.Primary).Render(strings.ToUpper(m.exp.Config().Name)) + "\n")
	s.WriteString(m.status() + "\n\n")
	s.WriteString(Metric("Time", "%.1fh", f.Time/3600) + "\n")
	s.WriteString(Metric("Step", "%d/%d", f.Index+1, len(m.series)) + "\n")
	s.WriteString(Metric("Rain", "%.3f mm/h", f.Precip*mmPerHour) + "\n")
	s.WriteString(Metric("Discharge", "%.3f mm/h", f.Discharge*mmPerHour) + "\n")
	s.WriteString(Metric("Soil", "%.4f m", f.State.Soil) + "\n")
	s.WriteString(Metric("Groundwater", "%.4f m", f.State.Groundwater) + "\n")
	s.WriteString(Metric("Residual", "%.2e m", f.Residual) + "\n")
	s.WriteString(MetricLabel.Render("Saturation") + ProgressBar(fraction(f.State.Soil, p.MaxSoilStorage()), 14) + "\n")
	s.WriteString(MetricLabel.Render("Theme") + Subtle.Render(CurrentTheme.Name) + "\n")
	if m.err != nil {
		s.WriteString("\n" + lipgloss.NewStyle().Foreground(CurrentTheme.Error).Width(36).Render(m.err.Error()) + "\n")
	}
	s.WriteString(KeyHint.Render("\n─────────────────────\nSP:Pause R:Reset Q:Quit\nT:Theme  ?:Help\n[ ]:Time-Travel"))
	statsView := statsStyle.Render(s.String())

	discharge, precip := m.plotted()
	graphView := graphStyle.Render(RenderHydrograph(discharge, precip, plotWidth, plotHeight))

	mainView := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsView),
		graphView,
	)
	if m.showHelp {
		return helpText + "\n\n" + mainView
	}
	return mainView
}

// plotted returns discharge and rain up to the frame on screen.
func (m Live) plotted() (discharge, precip []float64) {
	end := len(m.history)
	if m.playHead >= 0 {
		end = m.playHead + 1
	}
	discharge = make([]float64, end)
	precip = make([]float64, end)
	for i, f := range m.history[:end] {
		discharge[i], precip[i] = f.Discharge, f.Precip
	}
	return discharge, precip
}

const helpText = `
╔══════════════════════════════════════╗
║          KEYBOARD SHORTCUTS          ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume stepping    ║
║  R        - Reset to initial state   ║
║  Q        - Quit                     ║
║  [        - Rewind (time travel)     ║
║  ]        - Forward (time travel)    ║
║  T        - Cycle themes             ║
║  ?        - Toggle this help         ║
╚══════════════════════════════════════╝`

// RunLive opens the live view full screen until the user quits.
func RunLive(ctx context.Context, exp *experiment.Experiment, fps int) error {
	m, err := NewLive(ctx, exp, fps)
	if err != nil {
		return err
	}
	final, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil {
		return err
	}
	if l, ok := final.(Live); ok {
		return l.Err()
	}
	return nil
}
