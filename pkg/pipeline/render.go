package pipeline

import (
	"fmt"

	"github.com/matzehuels/dotstim/pkg/dots"
	"github.com/matzehuels/dotstim/pkg/render"
	"github.com/matzehuels/dotstim/pkg/render/sink"
)

// RenderLayout encodes l in every requested format without caching.
func RenderLayout(l dots.Layout, opts Options) (map[string][]byte, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, err
	}

	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		var data []byte
		var err error

		switch format {
		case FormatPNG:
			data, err = renderPNG(l, opts.Render)
		case FormatJSON:
			data, err = sink.RenderJSON(l, sink.WithJSONParams(opts.Params()))
		default:
			return nil, fmt.Errorf("unsupported format: %s", format)
		}
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}

func renderPNG(l dots.Layout, o render.Options) ([]byte, error) {
	img, err := render.Render(l, o)
	if err != nil {
		return nil, err
	}
	return sink.EncodePNG(img)
}
