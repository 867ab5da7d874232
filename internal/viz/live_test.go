package viz

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/tshirt/internal/config"
	"github.com/san-kum/tshirt/internal/experiment"
)

func newTestLive(t *testing.T, ctx context.Context, steps int) Live {
	t.Helper()
	cfg := config.GetPreset("loam", "storm")
	cfg.Steps = steps
	exp, err := experiment.New(cfg)
	if err != nil {
		t.Fatalf("experiment: %v", err)
	}
	m, err := NewLive(ctx, exp, 0)
	if err != nil {
		t.Fatalf("live: %v", err)
	}
	return m
}

func send(m Live, msgs ...tea.Msg) Live {
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(Live)
	}
	return m
}

func key(s string) tea.KeyMsg {
	if s == " " {
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestLiveStepsOnTick(t *testing.T) {
	m := newTestLive(t, context.Background(), 5)

	for i := 0; i < 7; i++ {
		m = send(m, TickMsg{})
	}
	if got := len(m.History()); got != 5 {
		t.Fatalf("expected 5 frames, got %d", got)
	}
	if !m.Done() || m.Err() != nil {
		t.Errorf("expected a clean finish, done=%v err=%v", m.Done(), m.Err())
	}
	for i, f := range m.History() {
		if f.Index != i || !f.Closed {
			t.Errorf("frame %d: %+v", i, f)
		}
	}

	view := m.View()
	for _, want := range []string{"LOAM/STORM", "DONE", "soil", "mm/h"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestLivePauseAndReset(t *testing.T) {
	m := newTestLive(t, context.Background(), 10)

	m = send(m, TickMsg{}, TickMsg{}, key(" "), TickMsg{})
	if got := len(m.History()); got != 2 {
		t.Fatalf("paused view should not step, got %d frames", got)
	}

	m = send(m, key("r"))
	if len(m.History()) != 0 || m.Done() {
		t.Fatalf("reset should clear history, got %d frames", len(m.History()))
	}

	m = send(m, TickMsg{})
	if got := m.History()[0].State; got.Soil == 0 {
		t.Error("first step after reset should have infiltrated rain")
	}
}

func TestLiveScrub(t *testing.T) {
	m := newTestLive(t, context.Background(), 4)
	m = send(m, TickMsg{}, TickMsg{}, TickMsg{})

	m = send(m, key("["))
	if m.playHead != 1 || m.running {
		t.Fatalf("expected paused replay at frame 1, got head=%d running=%v", m.playHead, m.running)
	}
	if f := m.frame(); f.Index != 1 {
		t.Errorf("expected frame 1 on screen, got %d", f.Index)
	}
	if !strings.Contains(m.View(), "REPLAY") {
		t.Error("expected replay status")
	}

	m = send(m, key("]"), key("]"))
	if m.playHead != -1 {
		t.Errorf("scrubbing past the end should return to live, got %d", m.playHead)
	}
	if got := len(m.History()); got != 3 {
		t.Errorf("scrubbing must not step, got %d frames", got)
	}
}

func TestLiveStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := newTestLive(t, ctx, 10)

	m = send(m, TickMsg{})
	cancel()
	m = send(m, TickMsg{}, TickMsg{})

	if !errors.Is(m.Err(), context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", m.Err())
	}
	if got := len(m.History()); got != 1 {
		t.Errorf("expected 1 frame before cancel, got %d", got)
	}
}

func TestLiveQuit(t *testing.T) {
	m := newTestLive(t, context.Background(), 3)
	_, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatal("expected a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestAppOpensPreset(t *testing.T) {
	a := NewApp(context.Background(), 0)
	if len(a.choices) == 0 {
		t.Fatal("expected presets to choose from")
	}

	next, _ := a.Update(tea.KeyMsg{Type: tea.KeyEnter})
	a = next.(App)
	if a.state != stateLive || a.err != nil {
		t.Fatalf("expected live view, state=%v err=%v", a.state, a.err)
	}

	next, _ = a.Update(tea.KeyMsg{Type: tea.KeyEsc})
	a = next.(App)
	if a.state != stateMenu {
		t.Error("esc should return to the menu")
	}
	if !strings.Contains(a.View(), "TSHIRT") {
		t.Error("menu view missing title")
	}
}
