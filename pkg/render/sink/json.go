package sink

import (
	"encoding/json"

	"github.com/matzehuels/dotstim/pkg/dots"
	"github.com/matzehuels/dotstim/pkg/errors"
	"github.com/matzehuels/dotstim/pkg/geom"
)

// JSONOption configures JSON rendering via [RenderJSON].
type JSONOption func(*jsonRenderer)

type jsonRenderer struct {
	params *dots.Params
	id     string
}

// WithJSONParams records the parameter set that produced the layout.
func WithJSONParams(p dots.Params) JSONOption {
	return func(r *jsonRenderer) { r.params = &p }
}

// WithJSONID records a stimulus identifier.
func WithJSONID(id string) JSONOption {
	return func(r *jsonRenderer) { r.id = id }
}

type jsonOutput struct {
	ID             string       `json:"id,omitempty"`
	Width          int          `json:"width"`
	Height         int          `json:"height"`
	Seed           uint64       `json:"seed,omitempty"`
	Params         *dots.Params `json:"params,omitempty"`
	Region         dots.Region  `json:"region"`
	Attempts       int          `json:"attempts"`
	TotalArea      float64      `json:"total_area"`
	HullArea       float64      `json:"hull_area"`
	TargetHullArea float64      `json:"target_hull_area"`
	Hull           []geom.Point `json:"hull"`
	Dots           []jsonDot    `json:"dots"`
}

type jsonDot struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"radius"`
	Area   float64 `json:"area"`
}

// RenderJSON exports the layout as a pretty-printed JSON document. Dots keep
// their generation order (largest first).
func RenderJSON(l dots.Layout, opts ...JSONOption) ([]byte, error) {
	r := jsonRenderer{}
	for _, opt := range opts {
		opt(&r)
	}

	out := jsonOutput{
		ID:             r.id,
		Width:          l.Width,
		Height:         l.Height,
		Seed:           l.Seed,
		Params:         r.params,
		Region:         l.Region,
		Attempts:       l.Attempts,
		TotalArea:      l.TotalArea(),
		HullArea:       l.HullArea,
		TargetHullArea: l.TargetHullArea,
		Hull:           l.Hull,
		Dots:           make([]jsonDot, len(l.Centers)),
	}
	if out.Hull == nil {
		out.Hull = []geom.Point{}
	}
	for i, c := range l.Centers {
		out.Dots[i] = jsonDot{X: c.X, Y: c.Y, Radius: l.Radii[i], Area: geom.CircleArea(l.Radii[i])}
	}
	return json.MarshalIndent(out, "", "  ")
}

// ReadJSON parses a document written by [RenderJSON]. The returned params are
// nil when the document carries none.
func ReadJSON(data []byte) (dots.Layout, *dots.Params, error) {
	var in jsonOutput
	if err := json.Unmarshal(data, &in); err != nil {
		return dots.Layout{}, nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "parse layout json")
	}
	if in.Width <= 0 || in.Height <= 0 {
		return dots.Layout{}, nil, errors.New(errors.ErrCodeInvalidFormat, "layout json: canvas must be positive, got %dx%d", in.Width, in.Height)
	}

	l := dots.Layout{
		Width:          in.Width,
		Height:         in.Height,
		Centers:        make([]geom.Point, len(in.Dots)),
		Radii:          make([]float64, len(in.Dots)),
		Hull:           in.Hull,
		HullArea:       in.HullArea,
		TargetHullArea: in.TargetHullArea,
		Region:         in.Region,
		Attempts:       in.Attempts,
		Seed:           in.Seed,
	}
	for i, d := range in.Dots {
		if !(d.Radius > 0) {
			return dots.Layout{}, nil, errors.New(errors.ErrCodeInvalidFormat, "layout json: dot %d has radius %v", i, d.Radius)
		}
		l.Centers[i] = geom.Pt(d.X, d.Y)
		l.Radii[i] = d.Radius
	}
	return l, in.Params, nil
}
