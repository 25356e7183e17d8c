package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/dotstim/pkg/pipeline"
)

const (
	maxBarWidth   = 60
	maxRecentLogs = 5
)

// =============================================================================
// BatchModel - Interactive batch progress
// =============================================================================

// jobDoneMsg reports one finished job.
type jobDoneMsg pipeline.JobResult

// batchDoneMsg reports the end of the batch.
type batchDoneMsg struct{ err error }

// BatchModel is the bubbletea model showing batch progress.
type BatchModel struct {
	Total    int
	Done     int
	Failed   int
	Recent   []string // last few finished jobs, newest last
	Started  time.Time
	Finished bool
	Err      error

	bar    progress.Model
	cancel context.CancelFunc
}

// NewBatchModel creates a progress model for total jobs. cancel is called
// when the user quits early.
func NewBatchModel(total int, cancel context.CancelFunc) BatchModel {
	return BatchModel{
		Total:   total,
		Started: time.Now(),
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		cancel:  cancel,
	}
}

func (m BatchModel) Init() tea.Cmd {
	return nil
}

func (m BatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			// Keep running until the batch reports back so in-flight jobs
			// are accounted for.
			if m.cancel != nil {
				m.cancel()
			}
		}
	case tea.WindowSizeMsg:
		m.bar.Width = min(max(msg.Width-20, 10), maxBarWidth)
	case jobDoneMsg:
		m.Done++
		if msg.Err != nil {
			m.Failed++
		}
		m.Recent = append(m.Recent, jobLine(pipeline.JobResult(msg)))
		if len(m.Recent) > maxRecentLogs {
			m.Recent = m.Recent[len(m.Recent)-maxRecentLogs:]
		}
	case batchDoneMsg:
		m.Finished = true
		m.Err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

// Percent returns the completed fraction.
func (m BatchModel) Percent() float64 {
	if m.Total == 0 {
		return 0
	}
	return float64(m.Done) / float64(m.Total)
}

func (m BatchModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Generating stimuli"))
	b.WriteString("\n\n")
	b.WriteString(m.bar.ViewAs(m.Percent()))
	b.WriteString("  ")
	b.WriteString(StyleNumber.Render(fmt.Sprintf("%d/%d", m.Done, m.Total)))
	if m.Failed > 0 {
		b.WriteString(StyleDim.Render(" · "))
		b.WriteString(styleIconError.Render(fmt.Sprintf("%d failed", m.Failed)))
	}
	b.WriteString(StyleDim.Render(" · " + time.Since(m.Started).Round(time.Second).String()))
	b.WriteString("\n\n")

	for _, line := range m.Recent {
		b.WriteString(line)
		b.WriteString("\n")
	}
	if !m.Finished {
		b.WriteString("\n")
		b.WriteString(StyleDim.Render("q quit"))
		b.WriteString("\n")
	}
	return b.String()
}

// jobLine formats one finished job.
func jobLine(jr pipeline.JobResult) string {
	prefix := fmt.Sprintf("#%-4d seed %-8d ", jr.Job.Index, jr.Job.Seed)
	if jr.Err != nil {
		return styleIconError.Render(iconError) + " " + StyleDim.Render(prefix) + jr.Err.Error()
	}
	target := ""
	if len(jr.Paths) > 0 {
		target = jr.Paths[0]
	}
	return styleIconSuccess.Render(iconSuccess) + " " + StyleDim.Render(prefix) + StyleValue.Render(target)
}

// =============================================================================
// Summary Table
// =============================================================================

// batchSummary renders the report as a table.
func batchSummary(r pipeline.BatchReport) string {
	s := r.Summary
	rows := [][]string{
		{"Succeeded", fmt.Sprintf("%d", r.Succeeded)},
		{"Failed", fmt.Sprintf("%d", r.Failed)},
	}
	if r.Skipped > 0 {
		rows = append(rows, []string{"Skipped", fmt.Sprintf("%d", r.Skipped)})
	}
	if r.Succeeded > 0 {
		rows = append(rows,
			[]string{"Hull error", fmt.Sprintf("mean %+.2f%% · max %.2f%%", 100*s.HullErrorMean, 100*s.HullErrorMax)},
			[]string{"Attempts", fmt.Sprintf("mean %.2f", s.AttemptsMean)},
			[]string{"Per image", fmt.Sprintf("p50 %s · p95 %s", s.DurationP50.Round(time.Millisecond), s.DurationP95.Round(time.Millisecond))},
		)
	}
	rows = append(rows, []string{"Elapsed", r.Duration.Round(time.Millisecond).String()})

	keyStyle := lipgloss.NewStyle().Foreground(colorGray).PaddingRight(1)
	valueStyle := lipgloss.NewStyle().Foreground(colorWhite).PaddingLeft(1)

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 0 {
				return keyStyle
			}
			return valueStyle
		}).
		String()
}
