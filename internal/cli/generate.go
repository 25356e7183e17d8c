package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/dotstim/pkg/dots"
	"github.com/matzehuels/dotstim/pkg/pipeline"
	"github.com/matzehuels/dotstim/pkg/render"
	"github.com/matzehuels/dotstim/pkg/render/sink"
)

// generateFlags holds the non-parameter flags of the generate command.
type generateFlags struct {
	output   string // output file (single format) or base path (multiple)
	formats  string // comma-separated output formats
	layout   string // re-render this layout JSON instead of generating
	noCache  bool
	redisURL string
}

// generateCommand creates the generate command for a single stimulus.
func (c *CLI) generateCommand() *cobra.Command {
	var flags generateFlags
	opts := defaultOptions()

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate one dot stimulus",
		Long: `Generate one dot stimulus.

Dot areas are sampled around total-area/dots, placed without overlap inside a
region sized from the hull target, and rescaled until the convex hull matches
hull-area. The same flags and seed always produce the same image.

Use --layout to re-render a layout exported with -f json, for example with
other colors or a different supersampling factor.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Formats = parseFormats(flags.formats)
			if err := pipeline.ValidateFormats(opts.Formats); err != nil {
				return err
			}
			if flags.layout != "" {
				return c.runRerender(cmd.Context(), opts, flags)
			}
			return c.runGenerate(cmd.Context(), opts, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&flags.formats, "format", "f", "", "output format(s): png (default), json (comma-separated)")
	cmd.Flags().StringVar(&flags.layout, "layout", "", "render an existing layout JSON instead of generating")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "ignore cached results")
	cmd.Flags().StringVar(&flags.redisURL, "redis", "", "cache in Redis at this URL instead of the local cache")
	bindOptionFlags(cmd, &opts)
	_ = cmd.RegisterFlagCompletionFunc("format", fixedCompletion(pipeline.ValidFormats...))

	return cmd
}

// defaultOptions returns options pre-filled with the pipeline defaults so
// flag help shows real values.
func defaultOptions() pipeline.Options {
	opts := pipeline.Options{}
	opts.SetGenerateDefaults()
	opts.SetRenderDefaults()
	opts.Logger = nil
	opts.Formats = nil
	return opts
}

// bindOptionFlags registers one flag per stimulus parameter.
func bindOptionFlags(cmd *cobra.Command, opts *pipeline.Options) {
	f := cmd.Flags()

	// Generation
	f.IntVarP(&opts.Dots, "dots", "n", opts.Dots, "number of dots")
	f.Float64Var(&opts.TotalArea, "total-area", opts.TotalArea, "summed dot area in px²")
	f.Float64Var(&opts.HullArea, "hull-area", opts.HullArea, "target convex hull area in px²")
	f.StringVar((*string)(&opts.Shape), "shape", string(opts.Shape), "placement region: circle, square")
	f.IntVar(&opts.Tries, "tries", opts.Tries, "placement attempts before giving up")
	f.Uint64Var(&opts.Seed, "seed", opts.Seed, "random seed")
	f.IntVar(&opts.Width, "width", opts.Width, "canvas width in px")
	f.IntVar(&opts.Height, "height", opts.Height, "canvas height in px")

	// Size distribution
	f.Float64Var(&opts.Sampling.BinWidth, "bin-width", 0, "width of the uniform area distribution (default 1.5 × average)")
	f.Float64Var(&opts.Sampling.StandardDev, "standard-dev", 0, "standard deviation of dot areas")
	f.Float64Var(&opts.Sampling.MinArea, "min-area", 0, "smallest dot area")
	f.Float64Var(&opts.Sampling.MaxArea, "max-area", 0, "largest dot area")

	// Hull fitting
	f.IntVar(&opts.HullIterations, "hull-iterations", opts.HullIterations, "maximum hull rescaling passes")
	f.Float64Var(&opts.HullTolerance, "hull-tolerance", 0, "stop rescaling once the relative hull error is below this")

	// Rendering
	f.IntVar(&opts.Render.Supersample, "supersample", opts.Render.Supersample, "supersampling factor")
	f.StringVar(&opts.Render.Background, "background", opts.Render.Background, "background color")
	f.StringVar(&opts.Render.Foreground, "foreground", opts.Render.Foreground, "dot color")
	f.BoolVar(&opts.Render.DrawHull, "draw-hull", false, "outline the convex hull")
	f.StringVar(&opts.Render.HullColor, "hull-color", opts.Render.HullColor, "hull outline color")
	f.Float64Var(&opts.Render.HullWidth, "hull-width", opts.Render.HullWidth, "hull outline width in px")
	f.StringVar((*string)(&opts.Render.Filter), "filter", string(opts.Render.Filter), "downsampling filter: box, catmullrom")

	_ = cmd.RegisterFlagCompletionFunc("shape", fixedCompletion(string(dots.ShapeCircle), string(dots.ShapeSquare)))
	_ = cmd.RegisterFlagCompletionFunc("filter", fixedCompletion(string(render.FilterBox), string(render.FilterCatmullRom)))
}

func fixedCompletion(values ...string) cobra.CompletionFunc {
	return func(*cobra.Command, []string, string) ([]cobra.Completion, cobra.ShellCompDirective) {
		return values, cobra.ShellCompDirectiveNoFileComp
	}
}

// runGenerate generates, renders and writes one stimulus.
func (c *CLI) runGenerate(ctx context.Context, opts pipeline.Options, flags generateFlags) error {
	runner, err := c.newRunner(ctx, flags.noCache, flags.redisURL)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	opts.Logger = c.Logger

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Placing %d dots...", opts.Dots))
	spinner.Start()

	result, err := runner.Execute(ctx, opts)
	if err != nil {
		spinner.StopWithError("Generation failed")
		return err
	}
	spinner.Stop()

	paths, err := writeArtifacts(result.Artifacts, opts.Formats, flags.output, defaultStem(opts.Seed))
	if err != nil {
		return err
	}

	printSuccess("Generated %d dots", len(result.Layout.Centers))
	for _, p := range paths {
		printFile(p)
	}
	printLayoutStats(result.Layout, result.CacheInfo.LayoutHit)
	return nil
}

// runRerender renders a previously exported layout.
func (c *CLI) runRerender(ctx context.Context, opts pipeline.Options, flags generateFlags) error {
	data, err := os.ReadFile(flags.layout)
	if err != nil {
		return fmt.Errorf("read layout %s: %w", flags.layout, err)
	}
	l, params, err := sink.ReadJSON(data)
	if err != nil {
		return fmt.Errorf("load layout %s: %w", flags.layout, err)
	}
	if params != nil {
		applyParams(&opts, *params)
	}
	opts.Seed = l.Seed

	runner, err := c.newRunner(ctx, flags.noCache, flags.redisURL)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()
	opts.Logger = c.Logger

	sw := startStopwatch(c.Logger)
	artifacts, cacheHit, err := runner.RenderWithCacheInfo(ctx, l, opts)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	sw.done("rendered layout", "dots", len(l.Centers), "cached", cacheHit)

	stem := strings.TrimSuffix(flags.layout, filepath.Ext(flags.layout))
	paths, err := writeArtifacts(artifacts, opts.Formats, flags.output, stem)
	if err != nil {
		return err
	}

	printSuccess("Rendered %d dots", len(l.Centers))
	for _, p := range paths {
		printFile(p)
	}
	printLayoutStats(l, cacheHit)
	return nil
}

func applyParams(opts *pipeline.Options, p dots.Params) {
	opts.Dots = p.Dots
	opts.TotalArea = p.TotalArea
	opts.HullArea = p.HullArea
	opts.Shape = p.Shape
	opts.Tries = p.Tries
	opts.Sampling = p.Sampling
}

// =============================================================================
// Output Paths
// =============================================================================

func defaultStem(seed uint64) string {
	return fmt.Sprintf("stimulus_%d", seed)
}

// basePath strips a known format extension from output, falling back to
// stem when output is empty.
func basePath(output, stem string) string {
	if output == "" {
		return stem
	}
	ext := filepath.Ext(output)
	if slices.Contains(pipeline.ValidFormats, strings.TrimPrefix(ext, ".")) {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

// outputPaths maps each format to the file it is written to. A single format
// with an explicit output is written exactly there.
func outputPaths(formats []string, output, stem string) map[string]string {
	paths := make(map[string]string, len(formats))
	if len(formats) == 1 && output != "" {
		paths[formats[0]] = output
		return paths
	}
	base := basePath(output, stem)
	for _, f := range formats {
		paths[f] = base + "." + f
	}
	return paths
}

// writeArtifacts writes artifacts in format order and returns the paths.
func writeArtifacts(artifacts map[string][]byte, formats []string, output, stem string) ([]string, error) {
	targets := outputPaths(formats, output, stem)
	written := make([]string, 0, len(formats))
	for _, f := range formats {
		path := targets[f]
		if err := writeFile(path, artifacts[f]); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write output %s: %w", path, err)
	}
	return nil
}
