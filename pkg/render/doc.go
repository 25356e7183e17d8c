// Package render rasterizes dot layouts into pixel buffers.
//
// # Overview
//
// [Render] draws a [dots.Layout] at Supersample times the canvas resolution
// with filled circles, optionally overlays the convex hull outline, and then
// downsamples to the canvas size. gg already anti-aliases circle edges at the
// supersampled size; the area-averaging box filter then folds each k×k block
// into one pixel, so edge pixels take intermediate colors in proportion to
// their coverage.
//
//	img, err := render.Render(layout, render.DefaultOptions())
//	png, err := sink.EncodePNG(img)
//
// # Filters
//
// Two resamplers are available:
//
//   - [FilterBox]: area averaging (default). Uniform regions stay exact.
//   - [FilterCatmullRom]: bicubic Catmull-Rom, slightly sharper edges.
//
// # Colors
//
// Colors are hex strings ("#00ffff", "#0ff"). The defaults reproduce the
// classic stimulus palette: cyan dots on black.
//
// Output encoders live in the [sink] subpackage.
//
// [dots.Layout]: github.com/matzehuels/dotstim/pkg/dots.Layout
// [sink]: github.com/matzehuels/dotstim/pkg/render/sink
package render
