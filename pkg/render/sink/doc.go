// Package sink encodes rendered stimuli and their layouts.
//
// # Overview
//
// A "sink" turns the output of a pipeline stage into bytes:
//
//   - PNG: [EncodePNG] encodes the pixel buffer from [render.Render]
//   - JSON: [RenderJSON] exports a [dots.Layout] with its generation
//     parameters, and [ReadJSON] reads it back
//
// The JSON document is the stimulus' ground truth: dot centers and radii,
// the hull polygon and its area, the enclosing region and the seed. Reading
// it back yields a layout that renders to the same image.
//
//	img, _ := render.Render(layout, render.DefaultOptions())
//	pngBytes, err := sink.EncodePNG(img)
//	jsonBytes, err := sink.RenderJSON(layout, sink.WithJSONParams(params))
//
// [render.Render]: github.com/matzehuels/dotstim/pkg/render.Render
// [dots.Layout]: github.com/matzehuels/dotstim/pkg/dots.Layout
package sink
