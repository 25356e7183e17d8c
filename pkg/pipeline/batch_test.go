package pipeline

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/dotstim/pkg/errors"
)

func TestRunBatch(t *testing.T) {
	r := NewRunner(nil, nil, testLogger())
	opts := smallOptions(0)
	opts.Formats = []string{FormatJSON}

	var calls atomic.Int32
	report, err := RunBatch(context.Background(), r, BatchOptions{
		Count:    6,
		Workers:  3,
		BaseSeed: 100,
		Options:  opts,
		OnResult: func(JobResult) { calls.Add(1) },
	})
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}

	if report.Succeeded != 6 || report.Failed != 0 || report.Skipped != 0 {
		t.Errorf("report = %d ok / %d failed / %d skipped", report.Succeeded, report.Failed, report.Skipped)
	}
	if calls.Load() != 6 {
		t.Errorf("OnResult called %d times", calls.Load())
	}
	for i, jr := range report.Results {
		if jr.Job.Index != i || jr.Job.Seed != 100+uint64(i) {
			t.Errorf("result %d: index %d seed %d", i, jr.Job.Index, jr.Job.Seed)
		}
		if jr.Result == nil || jr.Result.Layout.Seed != jr.Job.Seed {
			t.Errorf("result %d carries the wrong layout", i)
		}
	}
	if report.Summary.AttemptsMean < 1 {
		t.Errorf("summary = %+v", report.Summary)
	}
	if report.Summary.HullErrorMax > 0.05 {
		t.Errorf("max hull error %v", report.Summary.HullErrorMax)
	}
}

func TestRunBatchIsolatesFailures(t *testing.T) {
	r := NewRunner(nil, nil, testLogger())
	opts := smallOptions(0)
	opts.Formats = []string{FormatJSON}
	errDisk := stderrors.New("disk full")

	report, err := RunBatch(context.Background(), r, BatchOptions{
		Count:   5,
		Workers: 2,
		Options: opts,
		Persist: func(_ context.Context, jr *JobResult) error {
			if jr.Job.Index == 2 {
				return errDisk
			}
			return nil
		},
	})
	if err != nil {
		t.Fatalf("a failing job must not fail the batch: %v", err)
	}
	if report.Succeeded != 4 || report.Failed != 1 {
		t.Errorf("succeeded %d, failed %d", report.Succeeded, report.Failed)
	}
	failures := report.Failures()
	if len(failures) != 1 || failures[0].Job.Index != 2 || !stderrors.Is(failures[0].Err, errDisk) {
		t.Errorf("failures = %+v", failures)
	}
	if failures[0].Result != nil {
		t.Error("failed job should not carry a result")
	}
}

func TestRunBatchRecoversPanics(t *testing.T) {
	r := NewRunner(nil, nil, testLogger())
	opts := smallOptions(0)
	opts.Formats = []string{FormatJSON}

	var calls atomic.Int32
	report, err := RunBatch(context.Background(), r, BatchOptions{
		Count:   6,
		Workers: 3,
		Options: opts,
		Persist: func(_ context.Context, jr *JobResult) error {
			if jr.Job.Index == 1 || jr.Job.Index == 4 {
				panic("writer exploded")
			}
			return nil
		},
		OnResult: func(JobResult) { calls.Add(1) },
	})
	if err != nil {
		t.Fatalf("a panicking job must not fail the batch: %v", err)
	}
	if report.Succeeded != 4 || report.Failed != 2 || calls.Load() != 6 {
		t.Fatalf("succeeded %d, failed %d, OnResult calls %d", report.Succeeded, report.Failed, calls.Load())
	}
	for _, jr := range report.Failures() {
		if jr.Job.Index != 1 && jr.Job.Index != 4 {
			t.Errorf("unexpected failure at index %d", jr.Job.Index)
		}
		if !errors.Is(jr.Err, errors.ErrCodeInternal) || !strings.Contains(jr.Err.Error(), "writer exploded") {
			t.Errorf("job %d error = %v", jr.Job.Index, jr.Err)
		}
		if jr.Result != nil {
			t.Errorf("job %d carries a result", jr.Job.Index)
		}
	}
}

func TestRunBatchTinyDotsFailCleanly(t *testing.T) {
	r := NewRunner(nil, nil, testLogger())
	// The default bin starts at one pixel here, so rescaling could push areas
	// below it. Every job fails with a configuration error instead.
	opts := Options{Dots: 100, TotalArea: 400, Formats: []string{FormatJSON}}
	report, err := RunBatch(context.Background(), r, BatchOptions{Count: 20, Workers: 4, Options: opts})
	if err != nil {
		t.Fatal(err)
	}
	if report.Failed != 20 {
		t.Fatalf("failed = %d, want 20", report.Failed)
	}
	for _, jr := range report.Failures() {
		if !errors.Is(jr.Err, errors.ErrCodeInvalidConfiguration) {
			t.Errorf("job %d error = %v, want INVALID_CONFIGURATION", jr.Job.Index, jr.Err)
		}
	}
}

func TestRunBatchGenerationFailure(t *testing.T) {
	r := NewRunner(nil, nil, testLogger())
	// Square regions use the smaller per-dot budget, which keeps this fast.
	opts := Options{Dots: 10000, TotalArea: 100000, HullArea: 1000, Shape: "square", Tries: 1, Formats: []string{FormatJSON}}

	report, err := RunBatch(context.Background(), r, BatchOptions{Count: 2, Workers: 2, Options: opts})
	if err != nil {
		t.Fatal(err)
	}
	if report.Failed != 2 {
		t.Errorf("failed = %d, want 2", report.Failed)
	}
	if report.Summary != (Summary{}) {
		t.Errorf("summary over no successes = %+v", report.Summary)
	}
}

func TestRunBatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRunner(nil, nil, testLogger())
	report, err := RunBatch(ctx, r, BatchOptions{Count: 4, Options: smallOptions(0)})
	if !stderrors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if report.Skipped != 4 || len(report.Results) != 0 {
		t.Errorf("skipped %d, results %d", report.Skipped, len(report.Results))
	}
}

func TestRunBatchValidation(t *testing.T) {
	r := NewRunner(nil, nil, testLogger())
	if _, err := RunBatch(context.Background(), r, BatchOptions{Count: 0}); err == nil {
		t.Error("zero count should fail")
	}
	if _, err := RunBatch(context.Background(), r, BatchOptions{Count: 1, Options: Options{Shape: "blob"}}); err == nil {
		t.Error("invalid options should fail before dispatch")
	}
}

func TestSummarize(t *testing.T) {
	ok := func(hullErr float64, attempts int, d time.Duration) JobResult {
		return JobResult{
			Result:   &Result{Stats: Stats{HullError: hullErr, Attempts: attempts}},
			Duration: d,
		}
	}
	s := summarize([]JobResult{
		ok(0.01, 1, 10*time.Millisecond),
		ok(-0.03, 3, 20*time.Millisecond),
		{Err: stderrors.New("failed")},
	})
	if s.HullErrorMax != 0.03 {
		t.Errorf("HullErrorMax = %v", s.HullErrorMax)
	}
	if s.AttemptsMean != 2 {
		t.Errorf("AttemptsMean = %v", s.AttemptsMean)
	}
	if s.DurationP50 <= 0 || s.DurationP95 < s.DurationP50 {
		t.Errorf("durations = %v / %v", s.DurationP50, s.DurationP95)
	}
}
