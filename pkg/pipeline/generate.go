package pipeline

import (
	"context"
	"math/rand/v2"

	"github.com/matzehuels/dotstim/pkg/dots"
)

// NewRand returns the generator used for a seed. Equal seeds give equal
// layouts.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0xdeadbeef))
}

// GenerateLayout runs dot generation for opts without caching. The seed is
// recorded on the returned layout.
func GenerateLayout(ctx context.Context, opts Options) (dots.Layout, error) {
	if err := opts.ValidateForGenerate(); err != nil {
		return dots.Layout{}, err
	}
	l, err := dots.Generate(ctx, NewRand(opts.Seed), opts.Config(), opts.Params())
	if err != nil {
		return dots.Layout{}, err
	}
	l.Seed = opts.Seed
	return l, nil
}
