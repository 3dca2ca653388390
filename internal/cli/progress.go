package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	progressbar "github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/vtprint/vtp/pkg/engine"
)

// =============================================================================
// Progress bar
// =============================================================================

type progressMsg struct{ done, total int }

type finishedMsg struct{}

// progressModel is the bubbletea model for the planning progress bar.
type progressModel struct {
	bar         progressbar.Model
	label       string
	done, total int
	finished    bool
}

func newProgressModel(label string) progressModel {
	return progressModel{
		bar: progressbar.New(
			progressbar.WithDefaultGradient(),
			progressbar.WithWidth(40),
			progressbar.WithoutPercentage(),
		),
		label: label,
	}
}

func (m progressModel) Init() tea.Cmd {
	return nil
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case progressMsg:
		m.done, m.total = msg.done, msg.total
	case finishedMsg:
		m.finished = true
		return m, tea.Quit
	case tea.WindowSizeMsg:
		m.bar.Width = msg.Width - len(m.label) - 24
		if m.bar.Width < 20 {
			m.bar.Width = 20
		}
		if m.bar.Width > 60 {
			m.bar.Width = 60
		}
	}
	return m, nil
}

func (m progressModel) percent() float64 {
	if m.total == 0 {
		return 0
	}
	return float64(m.done) / float64(m.total)
}

func (m progressModel) View() string {
	if m.finished {
		return ""
	}
	counter := fmt.Sprintf("%d/%d moves", m.done, m.total)
	return StyleDim.Render(m.label) + " " + m.bar.ViewAs(m.percent()) + " " + StyleDim.Render(counter) + "\n"
}

// progressThrottle forwards a report only when the whole percentage changes.
type progressThrottle struct {
	send func(tea.Msg)
	last int
}

func (t *progressThrottle) report(done, total int) {
	pct := -1
	if total > 0 {
		pct = done * 100 / total
	}
	if pct == t.last && done != total {
		return
	}
	t.last = pct
	t.send(progressMsg{done: done, total: total})
}

// runWithProgress runs fn while a progress bar renders on stderr. fn is
// handed the callback that advances the bar.
func runWithProgress(ctx context.Context, label string, fn func(report func(done, total int)) error) error {
	p := tea.NewProgram(newProgressModel(label),
		tea.WithContext(ctx),
		tea.WithOutput(os.Stderr),
		tea.WithInput(nil),
	)
	ui := make(chan error, 1)
	go func() {
		_, err := p.Run()
		ui <- err
	}()

	throttle := &progressThrottle{send: p.Send, last: -2}
	err := fn(throttle.report)
	p.Send(finishedMsg{})
	if uiErr := <-ui; uiErr != nil {
		loggerFromContext(ctx).Debug("progress bar stopped", "err", uiErr)
	}
	return err
}

// =============================================================================
// Stats table
// =============================================================================

// statsTable renders per-region sub-move statistics.
func statsTable(s engine.Stats) string {
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	var totalLen float64
	for _, r := range s.PerRegion {
		totalLen += r.Length
	}

	rows := make([][]string, 0, len(s.PerRegion)+1)
	for _, name := range s.Regions() {
		r := s.PerRegion[name]
		share := 0.0
		if totalLen > 0 {
			share = r.Length / totalLen * 100
		}
		rows = append(rows, []string{
			name,
			fmt.Sprintf("%d", r.SubMoves),
			fmt.Sprintf("%.1f", r.Length),
			fmt.Sprintf("%.5f", r.E),
			fmt.Sprintf("%.1f%%", share),
		})
	}
	rows = append(rows, []string{
		"total",
		fmt.Sprintf("%d", s.SubMoves),
		fmt.Sprintf("%.1f", totalLen),
		fmt.Sprintf("%.5f", s.DepositedE),
		fmt.Sprintf("x%.3f", s.Ratio()),
	})
	last := len(rows) - 1

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Region", "Sub-moves", "Length mm", "E mm", "Share").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return headerStyle.Padding(0, 1)
			case row == last:
				return cellStyle.Foreground(colorCyan)
			case col == 0 && rows[row][0] == engine.TagNone:
				return cellStyle.Foreground(colorDim)
			case col > 0:
				return cellStyle.Align(lipgloss.Right)
			}
			return cellStyle
		})

	return strings.TrimRight(t.Render(), "\n")
}
