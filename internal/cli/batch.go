package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/dotstim/pkg/config"
	"github.com/matzehuels/dotstim/pkg/pipeline"
	"github.com/matzehuels/dotstim/pkg/store"
)

// batchFlags overrides values from the job file.
type batchFlags struct {
	configPath string
	count      int
	workers    int
	seed       uint64
	output     string
	records    string
	noTUI      bool
	noCache    bool
	redisURL   string
}

// batchCommand creates the batch command.
func (c *CLI) batchCommand() *cobra.Command {
	var flags batchFlags

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Generate many stimuli from a job file",
		Long: `Generate many stimuli from a TOML job file.

Image i is generated with seed (seed + i), so any single image can be
reproduced later with 'dotstim generate --seed'. A failed image is reported
and skipped; the rest of the batch keeps going.

Each image is written to the path produced by the output template, which
sees {{.Index}}, {{.Seed}} and {{.ID}}. With --records (or 'records' in the
job file) every image is also recorded to a JSONL manifest or, for a
mongodb:// URI, to MongoDB.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			job, err := loadJob(cmd, flags)
			if err != nil {
				return err
			}
			return c.runBatch(cmd.Context(), job, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "job file (TOML)")
	cmd.Flags().IntVar(&flags.count, "count", 0, "number of images (overrides the job file)")
	cmd.Flags().IntVarP(&flags.workers, "workers", "w", 0, "parallel workers (default: number of CPUs)")
	cmd.Flags().Uint64Var(&flags.seed, "seed", 0, "base seed (overrides the job file)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "output path template (overrides the job file)")
	cmd.Flags().StringVar(&flags.records, "records", "", "JSONL manifest path or mongodb:// URI")
	cmd.Flags().BoolVar(&flags.noTUI, "no-tui", false, "log progress lines instead of the progress bar")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "disable caching")
	cmd.Flags().StringVar(&flags.redisURL, "redis", "", "cache in Redis at this URL instead of the local cache")

	return cmd
}

// loadJob reads the job file, if any, and applies flag overrides.
func loadJob(cmd *cobra.Command, flags batchFlags) (*config.Job, error) {
	var (
		job *config.Job
		err error
	)
	if flags.configPath != "" {
		job, err = config.Load(flags.configPath)
	} else {
		job, err = config.Parse(nil)
	}
	if err != nil {
		return nil, err
	}

	changed := cmd.Flags().Changed
	if changed("count") {
		job.Count = flags.count
	}
	if changed("workers") {
		job.Workers = flags.workers
	}
	if changed("seed") {
		job.Seed = flags.seed
	}
	if changed("output") {
		job.Output = flags.output
	}
	if changed("records") {
		job.Records = flags.records
	}
	if err := job.Validate(); err != nil {
		return nil, err
	}
	return job, nil
}

// runBatch runs the job and prints a summary.
func (c *CLI) runBatch(ctx context.Context, job *config.Job, flags batchFlags) error {
	runner, err := c.newRunner(ctx, flags.noCache, flags.redisURL)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	var records store.Store
	if job.Records != "" {
		records, err = store.Open(ctx, job.Records)
		if err != nil {
			return fmt.Errorf("open records %s: %w", job.Records, err)
		}
		defer records.Close()
	}

	opts := job.Options()
	opts.Logger = c.Logger
	bo := pipeline.BatchOptions{
		Count:    job.Count,
		Workers:  job.Workers,
		BaseSeed: job.Seed,
		Options:  opts,
		Persist:  newPersister(job, records).persist,
	}

	var report pipeline.BatchReport
	if flags.noTUI {
		report, err = c.batchWithLogs(ctx, runner, bo)
	} else {
		report, err = batchWithTUI(ctx, runner, bo)
	}

	if err != nil && len(report.Results) == 0 {
		return err
	}
	fmt.Println(batchSummary(report))
	if report.Failed > 0 {
		printWarning("%d of %d images failed", report.Failed, job.Count)
		for _, jr := range report.Failures() {
			printDetail("#%d seed %d: %v", jr.Job.Index, jr.Job.Seed, jr.Err)
		}
	}
	if err != nil {
		return err
	}
	if report.Succeeded > 0 {
		printSuccess("Wrote %d images", report.Succeeded)
		printDetail("Output: %s", job.Output)
		if job.Records != "" {
			printDetail("Records: %s", job.Records)
		}
	}
	if report.Succeeded == 0 {
		return fmt.Errorf("no image could be generated")
	}
	return nil
}

// batchWithLogs runs the batch with one log line per image.
func (c *CLI) batchWithLogs(ctx context.Context, runner *pipeline.Runner, bo pipeline.BatchOptions) (pipeline.BatchReport, error) {
	logger := loggerFromContext(ctx)
	done := 0
	bo.OnResult = func(jr pipeline.JobResult) {
		done++
		if jr.Err != nil {
			return // RunBatch already logs failures
		}
		logger.Info("image",
			"progress", fmt.Sprintf("%d/%d", done, bo.Count),
			"seed", jr.Job.Seed,
			"path", strings.Join(jr.Paths, ","),
			"hull_error", fmt.Sprintf("%+.2f%%", 100*jr.Result.Stats.HullError),
			"attempts", jr.Result.Stats.Attempts,
		)
	}
	return pipeline.RunBatch(ctx, runner, bo)
}

// batchWithTUI runs the batch behind a progress bar.
func batchWithTUI(ctx context.Context, runner *pipeline.Runner, bo pipeline.BatchOptions) (pipeline.BatchReport, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Worker log lines would tear the progress view.
	quiet := *runner
	quiet.Logger = newLogger(io.Discard, LogInfo)
	bo.Options.Logger = quiet.Logger

	p := tea.NewProgram(NewBatchModel(bo.Count, cancel), tea.WithContext(ctx))
	bo.OnResult = func(jr pipeline.JobResult) { p.Send(jobDoneMsg(jr)) }

	type outcome struct {
		report pipeline.BatchReport
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		report, err := pipeline.RunBatch(ctx, &quiet, bo)
		done <- outcome{report, err}
		p.Send(batchDoneMsg{err: err})
	}()

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		cancel()
		<-done
		return pipeline.BatchReport{}, fmt.Errorf("progress display: %w", err)
	}
	out := <-done
	return out.report, out.err
}

// =============================================================================
// Persistence
// =============================================================================

// persister writes job artifacts and records.
type persister struct {
	job     *config.Job
	records store.Store
}

func newPersister(job *config.Job, records store.Store) *persister {
	return &persister{job: job, records: records}
}

// persist writes the PNG to the templated path, the layout JSON next to it
// when requested, and appends a record.
func (p *persister) persist(ctx context.Context, jr *pipeline.JobResult) error {
	res := jr.Result
	rec := store.NewRecord(jr.Job.Index, "", jr.Job.Options.Params(), res.Layout)

	path, err := p.job.OutputPath(config.OutputData{Index: jr.Job.Index, Seed: jr.Job.Seed, ID: rec.ID.String()})
	if err != nil {
		return err
	}
	if err := writeFile(path, res.Artifacts[pipeline.FormatPNG]); err != nil {
		return err
	}
	jr.Paths = append(jr.Paths, path)

	if data, ok := res.Artifacts[pipeline.FormatJSON]; ok {
		jsonPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".json"
		if err := writeFile(jsonPath, data); err != nil {
			return err
		}
		jr.Paths = append(jr.Paths, jsonPath)
	}

	if p.records != nil {
		rec.Path = path
		if err := p.records.Put(ctx, rec); err != nil {
			return fmt.Errorf("record image %d: %w", jr.Job.Index, err)
		}
	}
	return nil
}
