package cli

import (
	"context"
	"testing"
	"time"
)

func TestSpinnerStop(t *testing.T) {
	s := newSpinner("Placing 40 dots...")
	s.Start()
	time.Sleep(100 * time.Millisecond)
	s.Stop()
	s.Stop() // idempotent

	if !s.Cancelled() {
		t.Error("a stopped spinner reports its context as done")
	}
}

func TestSpinnerContext(t *testing.T) {
	tests := []struct {
		name string
		ctx  func() (context.Context, context.CancelFunc)
	}{
		{"cancel", func() (context.Context, context.CancelFunc) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			return ctx, cancel
		}},
		{"timeout", func() (context.Context, context.CancelFunc) {
			return context.WithTimeout(context.Background(), 20*time.Millisecond)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := tt.ctx()
			defer cancel()

			s := newSpinnerWithContext(ctx, "Placing dots...")
			s.Start()
			time.Sleep(100 * time.Millisecond)
			if !s.Cancelled() {
				t.Error("spinner should be cancelled with its parent context")
			}
			s.Stop()
		})
	}
}

func TestSpinnerStopWithMessage(t *testing.T) {
	s := newSpinner("Placing dots...")
	s.Start()
	s.StopWithSuccess("Generated 10 dots")

	s = newSpinner("Placing dots...")
	s.Start()
	s.StopWithError("Generation failed")
}
