package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/panpart/pkg/evolution"
)

// =============================================================================
// Messages
// =============================================================================

type evolutionStartMsg struct{ samples int }

type sampleDoneMsg struct {
	size int
	err  error
}

type evolutionDoneMsg struct {
	report *evolution.Report
	err    error
}

// =============================================================================
// EvolutionModel - live progress of an evolution run
// =============================================================================

// evolutionModel is the bubbletea model showing resampling progress.
type evolutionModel struct {
	bar       progress.Model
	total     int
	done      int
	failed    int
	lastSize  int
	start     time.Time
	cancel    context.CancelFunc
	stopping  bool
	finished  bool
	report    *evolution.Report
	err       error
	organisms int
}

func newEvolutionModel(organisms int, cancel context.CancelFunc) evolutionModel {
	return evolutionModel{
		bar:       progress.New(progress.WithDefaultGradient(), progress.WithWidth(50)),
		start:     time.Now(),
		cancel:    cancel,
		organisms: organisms,
	}
}

func (m evolutionModel) Init() tea.Cmd {
	return nil
}

func (m evolutionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			// Running samples are cancelled; the model quits once the
			// resampler has returned.
			m.stopping = true
			m.cancel()
		}
	case tea.WindowSizeMsg:
		m.bar.Width = max(min(msg.Width-20, 80), 10)
	case evolutionStartMsg:
		m.total = msg.samples
	case sampleDoneMsg:
		m.done++
		m.lastSize = msg.size
		if msg.err != nil {
			m.failed++
		}
	case evolutionDoneMsg:
		m.finished = true
		m.report, m.err = msg.report, msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m evolutionModel) percent() float64 {
	if m.total == 0 {
		return 0
	}
	return float64(m.done) / float64(m.total)
}

func (m evolutionModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(fmt.Sprintf("Evolution of %d organisms", m.organisms)))
	b.WriteString("\n\n  ")
	b.WriteString(m.bar.ViewAs(m.percent()))
	b.WriteString("\n\n")

	parts := []string{fmt.Sprintf("%d/%d samples", m.done, m.total)}
	if m.lastSize > 0 {
		parts = append(parts, fmt.Sprintf("last size %d", m.lastSize))
	}
	if m.failed > 0 {
		parts = append(parts, lipgloss.NewStyle().Foreground(colorRed).Render(fmt.Sprintf("%d failed", m.failed)))
	}
	parts = append(parts, time.Since(m.start).Round(time.Second).String())
	b.WriteString("  " + strings.Join(parts, StyleDim.Render(" · ")))
	b.WriteString("\n")

	switch {
	case m.finished:
	case m.stopping:
		b.WriteString(StyleWarning.Render("  stopping...") + "\n")
	default:
		b.WriteString(StyleDim.Render("  q quit") + "\n")
	}
	return b.String()
}

// =============================================================================
// Hooks
// =============================================================================

// tuiHooks forwards evolution events to a running program.
type tuiHooks struct {
	program *tea.Program
}

func (h tuiHooks) OnEvolutionStart(_ context.Context, samples int) {
	h.program.Send(evolutionStartMsg{samples: samples})
}

func (h tuiHooks) OnSampleComplete(_ context.Context, size int, err error) {
	h.program.Send(sampleDoneMsg{size: size, err: err})
}

func (h tuiHooks) OnEvolutionComplete(context.Context, int, time.Duration) {}

// runEvolutionTUI runs fn while showing its progress. register installs
// the hooks feeding the view before fn starts.
func runEvolutionTUI(ctx context.Context, organisms int, register func(tuiHooks),
	fn func(context.Context) (*evolution.Report, error)) (*evolution.Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newEvolutionModel(organisms, cancel), tea.WithOutput(os.Stderr))
	register(tuiHooks{program: p})

	go func() {
		report, err := fn(ctx)
		p.Send(evolutionDoneMsg{report: report, err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	m := final.(evolutionModel)
	return m.report, m.err
}
