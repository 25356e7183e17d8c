package cache

// Keyer derives cache keys. Keys for equal inputs are equal across processes,
// so file and Redis backends can be shared between the CLI and the server.
type Keyer interface {
	// LayoutKey identifies a generated layout.
	LayoutKey(opts LayoutKeyOpts) string

	// ArtifactKey identifies a rendered artifact of a layout.
	ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string
}

// LayoutKeyOpts holds every input that influences generation. Two option
// sets that differ in any field must produce different layouts.
type LayoutKeyOpts struct {
	Width          int     `json:"w"`
	Height         int     `json:"h"`
	Dots           int     `json:"n"`
	TotalArea      float64 `json:"total"`
	HullArea       float64 `json:"hull"`
	Shape          string  `json:"shape"`
	Tries          int     `json:"tries"`
	Seed           uint64  `json:"seed"`
	BinWidth       float64 `json:"bin,omitempty"`
	StandardDev    float64 `json:"sd,omitempty"`
	MinArea        float64 `json:"min,omitempty"`
	MaxArea        float64 `json:"max,omitempty"`
	HullIterations int     `json:"iter"`
	HullTolerance  float64 `json:"tol,omitempty"`
}

// ArtifactKeyOpts holds the render inputs for one output format.
type ArtifactKeyOpts struct {
	Format      string  `json:"format"`
	Supersample int     `json:"ss,omitempty"`
	Background  string  `json:"bg,omitempty"`
	Foreground  string  `json:"fg,omitempty"`
	DrawHull    bool    `json:"hull,omitempty"`
	HullColor   string  `json:"hull_color,omitempty"`
	HullWidth   float64 `json:"hull_width,omitempty"`
	Filter      string  `json:"filter,omitempty"`
}

// DefaultKeyer hashes the JSON encoding of the options.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// LayoutKey returns "layout:<sha256>".
func (DefaultKeyer) LayoutKey(opts LayoutKeyOpts) string {
	return hashKey("layout", opts)
}

// ArtifactKey returns "artifact:<format>:<sha256>".
func (DefaultKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact:"+opts.Format, layoutHash, opts)
}
