package dots

import (
	"context"
	stderrors "errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/dotstim/pkg/errors"
	"github.com/matzehuels/dotstim/pkg/observability"
)

type recordingHooks struct {
	observability.NoopGenerationHooks

	mu       sync.Mutex
	started  int
	attempts []error
	done     int
}

func (h *recordingHooks) OnGenerateStart(context.Context, int, string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.started++
}

func (h *recordingHooks) OnPlacementAttempt(_ context.Context, _ int, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.attempts = append(h.attempts, err)
}

func (h *recordingHooks) OnGenerateComplete(context.Context, int, time.Duration, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.done++
}

func withHooks(t *testing.T) *recordingHooks {
	t.Helper()
	h := &recordingHooks{}
	observability.SetGenerationHooks(h)
	t.Cleanup(observability.Reset)
	return h
}

func TestGenerateCircle(t *testing.T) {
	cfg := NewConfig(DefaultWidth, DefaultHeight)
	p := Params{Dots: 10, TotalArea: 8000, HullArea: 140000, Shape: ShapeCircle, Tries: 10}

	layout, err := Generate(context.Background(), newRNG(42), cfg, p)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(layout.Centers) != 10 || len(layout.Radii) != 10 {
		t.Fatalf("got %d centers and %d radii", len(layout.Centers), len(layout.Radii))
	}
	for i, c := range layout.Centers {
		if !cfg.Bounds().Contains(c) {
			t.Errorf("center %d at %v outside the canvas", i, c)
		}
	}
	if got := layout.TotalArea(); math.Abs(got-8000) > 1e-6 {
		t.Errorf("total area = %v, want 8000", got)
	}
	if e := math.Abs(layout.HullError()); e > 0.05 {
		t.Errorf("hull area %.0f is %.1f%% from target", layout.HullArea, 100*e)
	}
	if layout.Attempts < 1 || layout.Attempts > p.Tries {
		t.Errorf("attempts = %d", layout.Attempts)
	}
	if layout.Width != DefaultWidth || layout.Height != DefaultHeight {
		t.Errorf("canvas = %dx%d", layout.Width, layout.Height)
	}
}

func TestGenerateSquare(t *testing.T) {
	cfg := NewConfig(DefaultWidth, DefaultHeight)
	p := Params{Dots: 15, TotalArea: 6000, HullArea: 100000, Shape: ShapeSquare, Tries: 10}

	layout, err := Generate(context.Background(), newRNG(7), cfg, p)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(layout.Dots()) != 15 {
		t.Fatalf("got %d dots", len(layout.Dots()))
	}
	if layout.Region.Shape != ShapeSquare || layout.Region.Size != math.Sqrt(100000) {
		t.Errorf("region = %+v", layout.Region)
	}
}

func TestGenerateFewDots(t *testing.T) {
	cfg := NewConfig(DefaultWidth, DefaultHeight)
	tests := []struct {
		name  string
		shape Shape
		dots  int
		total float64
		hull  float64
	}{
		{"one circle", ShapeCircle, 1, 3000, 140000},
		{"two circle", ShapeCircle, 2, 4000, 140000},
		{"two square", ShapeSquare, 2, 4000, 80000},
		{"five circle", ShapeCircle, 5, 8000, 140000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for seed := uint64(1); seed <= 10; seed++ {
				p := Params{Dots: tt.dots, TotalArea: tt.total, HullArea: tt.hull, Shape: tt.shape, Tries: 10}
				layout, err := Generate(context.Background(), newRNG(seed), cfg, p)
				if err != nil {
					t.Fatalf("seed %d: %v", seed, err)
				}
				if layout.Attempts != 1 {
					t.Errorf("seed %d: attempts = %d, want 1", seed, layout.Attempts)
				}
				for i, c := range layout.Centers {
					if !cfg.Bounds().Contains(c) {
						t.Errorf("seed %d: center %d at %v outside the canvas", seed, i, c)
					}
				}
			}
		})
	}
}

func TestGenerateRadiiSortedDescending(t *testing.T) {
	cfg := NewConfig(DefaultWidth, DefaultHeight)
	p := Params{Dots: 20, TotalArea: 8000, HullArea: 120000, Shape: ShapeCircle, Tries: 10}

	layout, err := Generate(context.Background(), newRNG(3), cfg, p)
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i < len(layout.Radii); i++ {
		if layout.Radii[i] > layout.Radii[i-1] {
			t.Fatalf("radii not descending at %d: %v > %v", i, layout.Radii[i], layout.Radii[i-1])
		}
	}
}

func TestGenerateDeterministic(t *testing.T) {
	cfg := NewConfig(DefaultWidth, DefaultHeight)
	p := Params{Dots: 12, TotalArea: 6000, HullArea: 100000, Shape: ShapeCircle, Tries: 10}

	a, err := Generate(context.Background(), newRNG(11), cfg, p)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Generate(context.Background(), newRNG(11), cfg, p)
	if err != nil {
		t.Fatal(err)
	}
	for i := range a.Centers {
		if a.Centers[i] != b.Centers[i] || a.Radii[i] != b.Radii[i] {
			t.Fatalf("dot %d differs between runs with the same seed", i)
		}
	}
}

func TestGenerateDotTooLarge(t *testing.T) {
	hooks := withHooks(t)
	cfg := NewConfig(DefaultWidth, DefaultHeight)
	p := Params{Dots: 1, TotalArea: cfg.MaxDotArea * 1.1, HullArea: 140000, Shape: ShapeCircle, Tries: 10}

	_, err := Generate(context.Background(), newRNG(1), cfg, p)
	if !errors.Is(err, errors.ErrCodeInvalidConfiguration) {
		t.Fatalf("err = %v, want INVALID_CONFIGURATION", err)
	}
	if hooks.started != 0 || len(hooks.attempts) != 0 {
		t.Errorf("placement started despite a configuration error (%d attempts)", len(hooks.attempts))
	}
}

func TestGenerateGivesUp(t *testing.T) {
	hooks := withHooks(t)
	cfg := NewConfig(DefaultWidth, DefaultHeight)
	cfg.CircleTries = 500
	p := Params{Dots: 10000, TotalArea: 100000, HullArea: 1000, Shape: ShapeCircle, Tries: 3}

	_, err := Generate(context.Background(), newRNG(1), cfg, p)
	var ge *GenerationError
	if !stderrors.As(err, &ge) {
		t.Fatalf("err = %v, want *GenerationError", err)
	}
	if ge.Attempts != 3 || ge.Params != p {
		t.Errorf("GenerationError = %+v", ge)
	}
	var pe *PlacementError
	if !stderrors.As(err, &pe) {
		t.Errorf("last cause %T is not *PlacementError", ge.Last)
	}
	if !errors.Is(err, errors.ErrCodeGenerationFailed) {
		t.Errorf("code = %q", errors.GetCode(err))
	}
	if len(hooks.attempts) != 3 || hooks.done != 1 {
		t.Errorf("hooks saw %d attempts and %d completions", len(hooks.attempts), hooks.done)
	}
	for i, aerr := range hooks.attempts {
		if aerr == nil {
			t.Errorf("attempt %d reported success", i+1)
		}
	}
}

func TestGenerateValidation(t *testing.T) {
	cfg := NewConfig(DefaultWidth, DefaultHeight)
	valid := Params{Dots: 10, TotalArea: 8000, HullArea: 140000, Shape: ShapeCircle, Tries: 10}

	tests := []struct {
		name   string
		modify func(*Params)
		code   errors.Code
	}{
		{"zero dots", func(p *Params) { p.Dots = 0 }, errors.ErrCodeInvalidConfiguration},
		{"negative area", func(p *Params) { p.TotalArea = -1 }, errors.ErrCodeInvalidConfiguration},
		{"zero hull", func(p *Params) { p.HullArea = 0 }, errors.ErrCodeInvalidConfiguration},
		{"zero tries", func(p *Params) { p.Tries = 0 }, errors.ErrCodeInvalidConfiguration},
		{"unknown shape", func(p *Params) { p.Shape = "hex" }, errors.ErrCodeInvalidShape},
		{"NaN bin width", func(p *Params) { p.Sampling.BinWidth = math.NaN() }, errors.ErrCodeInvalidConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.modify(&p)
			_, err := Generate(context.Background(), newRNG(1), cfg, p)
			if !errors.Is(err, tt.code) {
				t.Errorf("err = %v (code %q), want %q", err, errors.GetCode(err), tt.code)
			}
		})
	}
}

func TestGenerateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := NewConfig(DefaultWidth, DefaultHeight)
	p := Params{Dots: 10, TotalArea: 8000, HullArea: 140000, Shape: ShapeCircle, Tries: 10}
	if _, err := Generate(ctx, newRNG(1), cfg, p); !stderrors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
