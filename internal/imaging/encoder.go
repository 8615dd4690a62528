package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/disintegration/imaging"
)

// PNGMimeType is the MIME type of every encoded output.
const PNGMimeType = "image/png"

// DataURIPrefix precedes the base64 payload returned by EncodeDataURI.
const DataURIPrefix = "data:" + PNGMimeType + ";base64,"

// ErrEncode is returned when a PixelArray cannot be serialized.
var ErrEncode = errors.New("encode error")

// EncodePNG serializes a PixelArray as a lossless PNG.
//
// Channels are clamped to [0,1], scaled to [0,255] and rounded to the nearest
// integer before encoding.
//
// # Errors
//
//   - ErrEncode wrapping ErrShape if the array is not a valid H×W×3 array
//   - ErrEncode wrapping the PNG writer error
func EncodePNG(p *PixelArray) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, p.ToNRGBA(), imaging.PNG); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	return buf.Bytes(), nil
}

// EncodeDataURI encodes a PixelArray as PNG and wraps it in a data URI of the
// form "data:image/png;base64,<payload>".
func EncodeDataURI(p *PixelArray) (string, error) {
	data, err := EncodePNG(p)
	if err != nil {
		return "", err
	}
	return DataURI(data), nil
}

// DataURI wraps already encoded PNG bytes in a data URI.
func DataURI(png []byte) string {
	return DataURIPrefix + base64.StdEncoding.EncodeToString(png)
}
