package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/dotstim/pkg/cache"
	"github.com/matzehuels/dotstim/pkg/dots"
	"github.com/matzehuels/dotstim/pkg/observability"
)

// Runner executes the pipeline with caching. It holds no per-run state, so
// one Runner can serve many goroutines with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner. A nil keyer uses DefaultKeyer, a nil cache
// disables caching and a nil logger uses log.Default().
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Keyer: keyer, Logger: logger}
}

// Execute runs generate → render with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result := &Result{}

	genStart := time.Now()
	layout, layoutHit, err := r.GenerateWithCacheInfo(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	result.Layout = layout
	result.Stats.GenerateTime = time.Since(genStart)
	result.Stats.Dots = len(layout.Centers)
	result.Stats.Attempts = layout.Attempts
	result.Stats.HullError = layout.HullError()
	result.CacheInfo.LayoutHit = layoutHit
	if data, err := json.Marshal(layout); err == nil {
		result.LayoutHash = cache.Hash(data)
	}

	r.Logger.Debug("generated layout",
		"seed", opts.Seed,
		"dots", result.Stats.Dots,
		"attempts", layout.Attempts,
		"hull_area", fmt.Sprintf("%.0f", layout.HullArea),
		"cached", layoutHit,
		"duration", result.Stats.GenerateTime)

	renderStart := time.Now()
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, layout, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	r.Logger.Debug("rendered outputs",
		"formats", opts.Formats,
		"cached", renderHit,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// GenerateWithCacheInfo returns the layout for opts and whether it came from
// the cache.
func (r *Runner) GenerateWithCacheInfo(ctx context.Context, opts Options) (dots.Layout, bool, error) {
	if err := opts.ValidateForGenerate(); err != nil {
		return dots.Layout{}, false, err
	}
	hooks := observability.Cache()
	key := r.Keyer.LayoutKey(opts.LayoutKeyOpts())

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			var l dots.Layout
			if err := json.Unmarshal(data, &l); err == nil {
				hooks.OnCacheHit(ctx, "layout")
				return l, true, nil
			}
		}
		hooks.OnCacheMiss(ctx, "layout")
	}

	l, err := GenerateLayout(ctx, opts)
	if err != nil {
		return dots.Layout{}, false, err
	}

	if data, err := json.Marshal(l); err == nil {
		if err := r.Cache.Set(ctx, key, data, cache.TTLLayout); err != nil {
			r.Logger.Warn("cache write failed", "key", key, "error", err)
		} else {
			hooks.OnCacheSet(ctx, "layout", len(data))
		}
	}
	return l, false, nil
}

// Generate calls GenerateWithCacheInfo and discards the cache hit info.
func (r *Runner) Generate(ctx context.Context, opts Options) (dots.Layout, error) {
	l, _, err := r.GenerateWithCacheInfo(ctx, opts)
	return l, err
}

// RenderWithCacheInfo encodes l in every requested format. The second result
// reports whether all artifacts came from the cache.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, l dots.Layout, opts Options) (map[string][]byte, bool, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}

	base, err := artifactBase(l, opts)
	if err != nil {
		return nil, false, err
	}
	hooks := observability.Cache()

	if !opts.Refresh {
		artifacts := make(map[string][]byte, len(opts.Formats))
		for _, format := range opts.Formats {
			data, hit, err := r.Cache.Get(ctx, r.Keyer.ArtifactKey(base, opts.ArtifactKeyOpts(format)))
			if err != nil || !hit {
				break
			}
			artifacts[format] = data
		}
		if len(artifacts) == len(opts.Formats) {
			hooks.OnCacheHit(ctx, "artifact")
			return artifacts, true, nil
		}
		hooks.OnCacheMiss(ctx, "artifact")
	}

	pipeHooks := observability.Pipeline()
	start := time.Now()
	pipeHooks.OnRenderStart(ctx, opts.Formats)
	artifacts, err := RenderLayout(l, opts)
	pipeHooks.OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	for format, data := range artifacts {
		if err := r.Cache.Set(ctx, r.Keyer.ArtifactKey(base, opts.ArtifactKeyOpts(format)), data, cache.TTLArtifact); err == nil {
			hooks.OnCacheSet(ctx, "artifact", len(data))
		}
	}
	return artifacts, false, nil
}

// Render calls RenderWithCacheInfo and discards the cache hit info.
func (r *Runner) Render(ctx context.Context, l dots.Layout, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, l, opts)
	return artifacts, err
}

// Close releases the cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

// artifactBase hashes the layout together with its parameters, which the
// JSON artifact embeds.
func artifactBase(l dots.Layout, opts Options) (string, error) {
	data, err := json.Marshal(struct {
		Layout dots.Layout `json:"layout"`
		Params dots.Params `json:"params"`
	}{l, opts.Params()})
	if err != nil {
		return "", fmt.Errorf("serialize layout for cache key: %w", err)
	}
	return cache.Hash(data), nil
}
