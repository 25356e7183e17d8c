package dots

import (
	"fmt"

	"github.com/matzehuels/dotstim/pkg/errors"
)

// PlacementError reports that one dot exhausted its candidate budget during a
// single placement attempt. No dots of that attempt are kept.
type PlacementError struct {
	Dot    int     // index of the dot that could not be placed
	Placed int     // dots placed before giving up
	Tries  int     // candidates drawn for the failing dot
	Radius float64 // radius of the failing dot
}

func (e *PlacementError) Error() string {
	return fmt.Sprintf("could not place dot %d (radius %.2f) after %d tries; %d dots placed",
		e.Dot, e.Radius, e.Tries, e.Placed)
}

// Code returns PLACEMENT_FAILED.
func (e *PlacementError) Code() errors.Code { return errors.ErrCodePlacementFailed }

// GenerationError is returned by [Generate] once every wholesale placement
// attempt has failed. It carries the parameter set so callers can relax the
// dot count, hull area or total area.
type GenerationError struct {
	Params   Params
	Region   Region
	Attempts int
	Last     error // cause of the final failed attempt
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed after %d attempts (dots=%d total_area=%.1f hull_area=%.1f shape=%s region_size=%.1f): %v",
		e.Attempts, e.Params.Dots, e.Params.TotalArea, e.Params.HullArea, e.Params.Shape, e.Region.Size, e.Last)
}

// Code returns GENERATION_FAILED.
func (e *GenerationError) Code() errors.Code { return errors.ErrCodeGenerationFailed }

// Unwrap returns the cause of the last attempt.
func (e *GenerationError) Unwrap() error { return e.Last }

// overflowError marks an attempt that placed a center off the canvas, which
// happens when the region is larger than the canvas.
type overflowError struct {
	Dot int
}

func (e *overflowError) Error() string {
	return fmt.Sprintf("dot %d center lies outside the canvas", e.Dot)
}

func (e *overflowError) Code() errors.Code { return errors.ErrCodePlacementFailed }

func configError(format string, args ...any) error {
	return errors.New(errors.ErrCodeInvalidConfiguration, format, args...)
}
