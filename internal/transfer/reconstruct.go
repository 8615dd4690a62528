package transfer

import (
	"errors"
	"fmt"

	"github.com/ironsheep/color-palette-api/internal/imaging"
	"github.com/lucasb-eyer/go-colorful"
)

// ErrLabelRange is returned when label data does not fit the palette or the
// requested dimensions.
var ErrLabelRange = errors.New("label out of range")

// Reconstruct builds a width×height image in which every pixel takes the
// color of its cluster: pixel i becomes remapped[labels[i]].
//
// No interpolation happens, so every output pixel is one of the remapped colors.
//
// # Errors
//
//   - ErrLabelRange if len(labels) != width*height
//   - ErrLabelRange if any label is outside [0, len(remapped))
func Reconstruct(remapped []colorful.Color, labels []int, width, height int) (*imaging.PixelArray, error) {
	if width <= 0 || height <= 0 || len(labels) != width*height {
		return nil, fmt.Errorf("%w: %d labels for %dx%d image", ErrLabelRange, len(labels), width, height)
	}

	out := imaging.NewPixelArray(width, height)
	for i, l := range labels {
		if l < 0 || l >= len(remapped) {
			return nil, fmt.Errorf("%w: label %d at pixel %d, %d colors", ErrLabelRange, l, i, len(remapped))
		}
		out.Pix[i] = remapped[l]
	}
	return out, nil
}
