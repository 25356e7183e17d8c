package cli

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/dotstim/pkg/dots"
	"github.com/matzehuels/dotstim/pkg/pipeline"
)

func update(t *testing.T, m BatchModel, msg tea.Msg) (BatchModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	bm, ok := next.(BatchModel)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return bm, cmd
}

func TestBatchModelCounts(t *testing.T) {
	m := NewBatchModel(3, nil)

	ok := pipeline.JobResult{Job: pipeline.Job{Index: 0, Seed: 42}, Paths: []string{"out/000.png"}}
	bad := pipeline.JobResult{Job: pipeline.Job{Index: 1, Seed: 43}, Err: errors.New("placement failed")}

	m, _ = update(t, m, jobDoneMsg(ok))
	m, _ = update(t, m, jobDoneMsg(bad))

	if m.Done != 2 || m.Failed != 1 {
		t.Errorf("done=%d failed=%d", m.Done, m.Failed)
	}
	if p := m.Percent(); p < 0.66 || p > 0.67 {
		t.Errorf("percent = %v", p)
	}
	view := m.View()
	for _, want := range []string{"2/3", "1 failed", "out/000.png", "placement failed"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestBatchModelRecentIsBounded(t *testing.T) {
	m := NewBatchModel(10, nil)
	for i := range 8 {
		m, _ = update(t, m, jobDoneMsg(pipeline.JobResult{Job: pipeline.Job{Index: i}}))
	}
	if len(m.Recent) != maxRecentLogs {
		t.Errorf("recent = %d lines, want %d", len(m.Recent), maxRecentLogs)
	}
	if !strings.Contains(m.Recent[len(m.Recent)-1], "#7") {
		t.Errorf("newest line = %q", m.Recent[len(m.Recent)-1])
	}
}

func TestBatchModelQuit(t *testing.T) {
	cancelled := false
	m := NewBatchModel(2, func() { cancelled = true })

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if !cancelled {
		t.Error("q should cancel the batch")
	}
	if cmd != nil || m.Finished {
		t.Error("the model should wait for the batch to report back")
	}

	m, cmd = update(t, m, batchDoneMsg{})
	if !m.Finished || cmd == nil {
		t.Error("batchDoneMsg should finish the program")
	}
}

func TestBatchModelResize(t *testing.T) {
	m := NewBatchModel(1, nil)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 300, Height: 40})
	if m.bar.Width != maxBarWidth {
		t.Errorf("bar width = %d, want %d", m.bar.Width, maxBarWidth)
	}
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 5, Height: 40})
	if m.bar.Width != 10 {
		t.Errorf("bar width = %d, want 10", m.bar.Width)
	}
}

func TestBatchSummary(t *testing.T) {
	r := pipeline.BatchReport{
		Succeeded: 9,
		Failed:    1,
		Duration:  1500 * time.Millisecond,
		Summary:   pipeline.Summary{HullErrorMean: 0.001, HullErrorMax: 0.004, AttemptsMean: 1.2},
	}
	out := batchSummary(r)
	for _, want := range []string{"Succeeded", "9", "Hull error", "Attempts", "1.5s"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Skipped") {
		t.Error("summary should omit skipped when none were")
	}
}

func TestLayoutStats(t *testing.T) {
	l := dots.Layout{Seed: 5, Attempts: 2, HullArea: 60600, TargetHullArea: 60000}
	line := layoutStats(l, true)
	for _, want := range []string{"seed 5", "2 attempts", "+1.00%", iconCached} {
		if !strings.Contains(line, want) {
			t.Errorf("stats %q missing %q", line, want)
		}
	}
	if !strings.Contains(layoutStats(l, false), iconFresh) {
		t.Error("fresh layouts should be marked")
	}
}
