package sink

import (
	"bytes"
	"image"
	"image/png"

	"github.com/matzehuels/dotstim/pkg/errors"
)

// PNGOption configures PNG encoding.
type PNGOption func(*pngEncoder)

type pngEncoder struct {
	level png.CompressionLevel
}

// WithCompression sets the zlib compression level (default png.DefaultCompression).
func WithCompression(level png.CompressionLevel) PNGOption {
	return func(e *pngEncoder) { e.level = level }
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image, opts ...PNGOption) ([]byte, error) {
	e := pngEncoder{level: png.DefaultCompression}
	for _, opt := range opts {
		opt(&e)
	}
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: e.level}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode png")
	}
	return buf.Bytes(), nil
}
