package cli

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/panpart/pkg/evolution"
)

func TestEvolutionModelProgress(t *testing.T) {
	cancelled := false
	var m tea.Model = newEvolutionModel(12, func() { cancelled = true })

	m, _ = m.Update(evolutionStartMsg{samples: 4})
	m, _ = m.Update(sampleDoneMsg{size: 2})
	m, _ = m.Update(sampleDoneMsg{size: 3, err: errors.New("no convergence")})

	em := m.(evolutionModel)
	if em.done != 2 || em.failed != 1 || em.lastSize != 3 {
		t.Errorf("done=%d failed=%d last=%d, want 2 1 3", em.done, em.failed, em.lastSize)
	}
	if em.percent() != 0.5 {
		t.Errorf("percent = %g, want 0.5", em.percent())
	}
	view := em.View()
	for _, want := range []string{"12 organisms", "2/4 samples", "1 failed", "q quit"} {
		if !strings.Contains(view, want) {
			t.Errorf("view does not contain %q:\n%s", want, view)
		}
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if !cancelled || !m.(evolutionModel).stopping {
		t.Error("q did not cancel the run")
	}
	if !strings.Contains(m.View(), "stopping") {
		t.Error("view does not show the stop")
	}

	report := &evolution.Report{Samples: 4}
	m, cmd := m.Update(evolutionDoneMsg{report: report})
	if cmd == nil {
		t.Fatal("done message did not quit")
	}
	if em := m.(evolutionModel); !em.finished || em.report != report {
		t.Errorf("finished=%v report=%v", em.finished, em.report)
	}
}

func TestEvolutionModelEmpty(t *testing.T) {
	m := newEvolutionModel(3, func() {})
	if m.percent() != 0 {
		t.Errorf("percent before start = %g", m.percent())
	}
}
