package imaging

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
)

// ErrShape is returned when a PixelArray's dimensions disagree with its pixel data.
var ErrShape = errors.New("malformed pixel array")

// PixelArray is a height × width × 3 array of RGB samples normalized to [0,1].
//
// Pixels are stored row-major: the pixel at (x, y) lives at Pix[y*Width+x].
// Each element is a go-colorful Color whose R, G and B fields carry the three
// channels, so the channel dimension is always exactly 3. There is no alpha.
type PixelArray struct {
	// Width is the number of columns.
	Width int

	// Height is the number of rows.
	Height int

	// Pix holds Width*Height colors in row-major order.
	Pix []colorful.Color
}

// NewPixelArray allocates a black PixelArray of the given size.
func NewPixelArray(width, height int) *PixelArray {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &PixelArray{
		Width:  width,
		Height: height,
		Pix:    make([]colorful.Color, width*height),
	}
}

// Len returns the number of pixels.
func (p *PixelArray) Len() int {
	return len(p.Pix)
}

// At returns the color at (x, y). Coordinates must be inside the array.
func (p *PixelArray) At(x, y int) colorful.Color {
	return p.Pix[y*p.Width+x]
}

// Set stores c at (x, y). Coordinates must be inside the array.
func (p *PixelArray) Set(x, y int, c colorful.Color) {
	p.Pix[y*p.Width+x] = c
}

// Validate reports whether the array is a well-formed H×W×3 array.
//
// # Errors
//
//   - ErrShape if the array is nil, has a non-positive dimension, or if
//     len(Pix) differs from Width*Height
func (p *PixelArray) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: nil array", ErrShape)
	}
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("%w: dimensions %dx%d", ErrShape, p.Width, p.Height)
	}
	if len(p.Pix) != p.Width*p.Height {
		return fmt.Errorf("%w: %d pixels for %dx%d", ErrShape, len(p.Pix), p.Width, p.Height)
	}
	return nil
}

// ToNRGBA converts the array to an opaque 8-bit image.
//
// Each channel is clamped to [0,1], scaled by 255 and rounded to the nearest
// integer. The caller should Validate the array first.
func (p *PixelArray) ToNRGBA() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, p.Width, p.Height))
	for y := 0; y < p.Height; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < p.Width; x++ {
			r, g, b := p.Pix[y*p.Width+x].Clamped().RGB255()
			i := x * 4
			row[i] = r
			row[i+1] = g
			row[i+2] = b
			row[i+3] = 0xff
		}
	}
	return img
}

// FromImage converts any image.Image to a normalized PixelArray.
//
// The alpha channel is discarded without compositing: non-premultiplied color
// values are kept as-is, so a half-transparent red pixel becomes pure red.
// 8-bit samples are divided by 255.
func FromImage(img image.Image) *PixelArray {
	return fromNRGBA(opaque(img))
}

// opaque clones img into an NRGBA image whose alpha channel is forced to 255.
func opaque(img image.Image) *image.NRGBA {
	dst := imaging.Clone(img)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}

func fromNRGBA(img *image.NRGBA) *PixelArray {
	bounds := img.Bounds()
	out := NewPixelArray(bounds.Dx(), bounds.Dy())
	for y := 0; y < out.Height; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < out.Width; x++ {
			i := x * 4
			out.Pix[y*out.Width+x] = colorful.Color{
				R: float64(row[i]) / 255.0,
				G: float64(row[i+1]) / 255.0,
				B: float64(row[i+2]) / 255.0,
			}
		}
	}
	return out
}
