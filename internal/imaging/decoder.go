package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// DefaultPaletteSize is the edge length palette-mode images are resized to.
const DefaultPaletteSize = 150

// ErrDecode is returned when input bytes cannot be decoded into an image.
var ErrDecode = errors.New("decode error")

// Decode decodes encoded image bytes.
//
// Supported formats are the ones registered by the imaging library: PNG, JPEG,
// GIF, BMP and TIFF. The format is detected from the content, not from any
// file name. EXIF orientation is not applied, so the returned dimensions are
// the stored ones.
//
// # Errors
//
//   - ErrDecode if data is empty
//   - ErrDecode wrapping the underlying decoder error if the data is not a
//     valid image
//   - ErrDecode if the decoded image has no pixels
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image data", ErrDecode)
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	if img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: image has no pixels", ErrDecode)
	}

	return img, nil
}

// DecodeForPalette decodes an image and prepares it for palette extraction.
//
// The image is converted to 3-channel color and resized to size×size with a
// Lanczos filter regardless of its aspect ratio. A non-positive size selects
// DefaultPaletteSize.
//
// Parameters:
//   - data: Encoded image bytes.
//   - size: Edge length of the square output.
//
// Returns:
//   - *PixelArray: size×size normalized pixels.
//   - error: ErrDecode if the bytes cannot be decoded.
func DecodeForPalette(data []byte, size int) (*PixelArray, error) {
	if size <= 0 {
		size = DefaultPaletteSize
	}

	img, err := Decode(data)
	if err != nil {
		return nil, err
	}

	resized := imaging.Resize(opaque(img), size, size, imaging.Lanczos)
	return fromNRGBA(resized), nil
}

// DecodeForTransfer decodes an image at its native resolution for color transfer.
//
// The image is converted to 3-channel color and each 8-bit sample is divided
// by 255, so the output dimensions match the encoded image exactly.
func DecodeForTransfer(data []byte) (*PixelArray, error) {
	img, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return FromImage(img), nil
}
