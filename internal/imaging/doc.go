// Package imaging converts between encoded images and normalized pixel arrays.
//
// A PixelArray holds Width×Height RGB colors in row-major order, every channel
// in [0,1]. Alpha is dropped on decode without compositing, and nothing is
// written back to disk.
//
// # Coordinate System
//
// Pixel coordinates are 0-based with (0,0) at the top-left corner; X increases
// rightward and Y increases downward. Pix[y*Width+x] is the pixel at (x,y).
//
// # Decoding
//
// DecodeForPalette resizes to a fixed square (150×150 by default) with a
// Lanczos filter before clustering, so palette cost does not depend on the
// upload size. DecodeForTransfer keeps the native resolution because the
// output must match the target pixel for pixel. PNG, JPEG, GIF, BMP and TIFF
// are accepted. EXIF orientation is not applied.
//
// # Encoding
//
// EncodePNG clamps each channel to [0,1], scales it to [0,255] and rounds to
// the nearest integer. EncodeDataURI prefixes the base64 payload with
// "data:image/png;base64,".
//
// # Error Handling
//
// Failures wrap one of the package sentinels so callers can match them with
// errors.Is:
//   - ErrDecode: empty input or bytes that are not a supported image
//   - ErrShape: a PixelArray whose dimensions and length disagree
//   - ErrEncode: a PixelArray that cannot be serialized
package imaging
