package pipeline

import (
	"context"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/dotstim/pkg/errors"
)

// =============================================================================
// Batch Types
// =============================================================================

// Job is one image of a batch.
type Job struct {
	Index   int
	Seed    uint64
	Options Options
}

// JobResult is the outcome of one job. Exactly one of Result and Err is set.
type JobResult struct {
	Job      Job
	Result   *Result
	Err      error
	Duration time.Duration

	// Paths lists the files written by Persist, if any.
	Paths []string
}

// BatchOptions configures RunBatch.
type BatchOptions struct {
	// Count is the number of images to produce.
	Count int

	// Workers bounds concurrency (default runtime.NumCPU()).
	Workers int

	// BaseSeed seeds job i with BaseSeed+i (default DefaultSeed).
	BaseSeed uint64

	// Options is the parameter set shared by every job. Its Seed is ignored.
	Options Options

	// Persist is called from the worker after a job succeeds, e.g. to write
	// files. A Persist error marks the job failed.
	Persist func(ctx context.Context, res *JobResult) error

	// OnResult is called once per finished job, serialized across workers.
	OnResult func(JobResult)
}

// BatchReport collects every job outcome, ordered by index.
type BatchReport struct {
	Results   []JobResult
	Succeeded int
	Failed    int
	Skipped   int // not started because the context was cancelled
	Duration  time.Duration
	Summary   Summary
}

// Summary describes the successful jobs of a batch.
type Summary struct {
	HullErrorMean float64 // mean relative hull error
	HullErrorMax  float64 // largest absolute relative hull error
	AttemptsMean  float64
	DurationP50   time.Duration
	DurationP95   time.Duration
}

// Failures returns the failed job results.
func (r BatchReport) Failures() []JobResult {
	var out []JobResult
	for _, jr := range r.Results {
		if jr.Err != nil {
			out = append(out, jr)
		}
	}
	return out
}

// =============================================================================
// RunBatch
// =============================================================================

// RunBatch generates opts.Count images on a fixed-size worker pool. Jobs are
// independent: a failed job is recorded and logged, and never stops its
// siblings. Cancelling ctx stops dispatching; jobs not started are reported
// as skipped and RunBatch returns ctx.Err() along with the partial report.
func RunBatch(ctx context.Context, r *Runner, bo BatchOptions) (BatchReport, error) {
	if err := errors.ValidatePositiveInt("count", bo.Count); err != nil {
		return BatchReport{}, err
	}
	if bo.Workers <= 0 {
		bo.Workers = runtime.NumCPU()
	}
	if bo.BaseSeed == 0 {
		bo.BaseSeed = DefaultSeed
	}
	shared := bo.Options
	if err := shared.ValidateAndSetDefaults(); err != nil {
		return BatchReport{}, err
	}

	start := time.Now()
	results := make([]JobResult, bo.Count)
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(bo.Workers)

	dispatched := 0
	for i := range bo.Count {
		if ctx.Err() != nil {
			break
		}
		job := Job{Index: i, Seed: bo.BaseSeed + uint64(i), Options: shared}
		job.Options.Seed = job.Seed
		dispatched++

		g.Go(func() error {
			jr := runJob(ctx, r, job, bo.Persist)
			results[job.Index] = jr
			if jr.Err != nil {
				r.Logger.Warn("job failed", "index", job.Index, "seed", job.Seed, "error", jr.Err)
			}
			if bo.OnResult != nil {
				mu.Lock()
				bo.OnResult(jr)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	report := BatchReport{Results: results[:dispatched], Duration: time.Since(start)}
	report.Skipped = bo.Count - dispatched
	for _, jr := range report.Results {
		if jr.Err != nil {
			report.Failed++
		} else {
			report.Succeeded++
		}
	}
	report.Summary = summarize(report.Results)

	r.Logger.Info("batch complete",
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"skipped", report.Skipped,
		"duration", report.Duration.Round(time.Millisecond))

	if report.Skipped > 0 {
		return report, ctx.Err()
	}
	return report, nil
}

// runJob runs one job. A panic is recovered into the job's error so that it
// fails only this job.
func runJob(ctx context.Context, r *Runner, job Job, persist func(context.Context, *JobResult) error) (jr JobResult) {
	start := time.Now()
	jr = JobResult{Job: job}
	defer func() {
		if v := recover(); v != nil {
			jr.Result = nil
			jr.Err = errors.New(errors.ErrCodeInternal, "job %d (seed %d) panicked: %v", job.Index, job.Seed, v)
		}
		jr.Duration = time.Since(start)
	}()

	jr.Result, jr.Err = r.Execute(ctx, job.Options)
	if jr.Err == nil && persist != nil {
		if err := persist(ctx, &jr); err != nil {
			jr.Err = err
		}
	}
	if jr.Err != nil {
		jr.Result = nil
	}
	return jr
}

// summarize computes statistics over successful jobs. Empty input yields a
// zero Summary.
func summarize(results []JobResult) Summary {
	var hullErr, absErr, attempts, durations stats.Float64Data
	for _, jr := range results {
		if jr.Err != nil {
			continue
		}
		hullErr = append(hullErr, jr.Result.Stats.HullError)
		absErr = append(absErr, math.Abs(jr.Result.Stats.HullError))
		attempts = append(attempts, float64(jr.Result.Stats.Attempts))
		durations = append(durations, float64(jr.Duration))
	}
	if len(hullErr) == 0 {
		return Summary{}
	}

	var s Summary
	s.HullErrorMean, _ = stats.Mean(hullErr)
	s.HullErrorMax, _ = stats.Max(absErr)
	s.AttemptsMean, _ = stats.Mean(attempts)
	p50, _ := stats.Percentile(durations, 50)
	p95, _ := stats.Percentile(durations, 95)
	s.DurationP50 = time.Duration(p50)
	s.DurationP95 = time.Duration(p95)
	return s
}
