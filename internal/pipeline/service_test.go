package pipeline

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/ironsheep/color-palette-api/internal/cluster"
	"github.com/ironsheep/color-palette-api/internal/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"go.uber.org/zap"
)

var hexPattern = regexp.MustCompile(`^#[0-9a-f]{6}$`)

func newTestService(t *testing.T, parallel bool) *Service {
	t.Helper()
	return NewService(NewPool(2, time.Second), cluster.New(), Options{Parallel: parallel}, zap.NewNop())
}

// encodeSolid returns a PNG of a width×height image filled with c.
func encodeSolid(t *testing.T, width, height int, c colorful.Color) []byte {
	t.Helper()
	p := imaging.NewPixelArray(width, height)
	for i := range p.Pix {
		p.Pix[i] = c
	}
	data, err := imaging.EncodePNG(p)
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return data
}

// encodeBands returns a PNG whose columns cycle through colors.
func encodeBands(t *testing.T, width, height int, colors ...colorful.Color) []byte {
	t.Helper()
	p := imaging.NewPixelArray(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			p.Set(x, y, colors[x*len(colors)/width])
		}
	}
	data, err := imaging.EncodePNG(p)
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return data
}

func TestExtractPalette_SolidRed(t *testing.T) {
	svc := newTestService(t, false)
	data := encodeSolid(t, 2, 2, colorful.Color{R: 1})

	got, err := svc.ExtractPalette(context.Background(), data, 1)
	if err != nil {
		t.Fatalf("ExtractPalette failed: %v", err)
	}
	if len(got) != 1 || got[0] != "#ff0000" {
		t.Errorf("got %v, want [#ff0000]", got)
	}
}

func TestExtractPalette_CountAndFormat(t *testing.T) {
	svc := newTestService(t, false)
	data := encodeBands(t, 60, 40,
		colorful.Color{R: 0.9, G: 0.1, B: 0.1},
		colorful.Color{R: 0.1, G: 0.8, B: 0.2},
		colorful.Color{R: 0.2, G: 0.2, B: 0.9},
		colorful.Color{R: 0.95, G: 0.95, B: 0.3},
	)

	for _, k := range []int{1, 3, 4, 6} {
		got, err := svc.ExtractPalette(context.Background(), data, k)
		if err != nil {
			t.Fatalf("k=%d: %v", k, err)
		}
		if len(got) != k {
			t.Errorf("k=%d: got %d colors", k, len(got))
		}
		for _, h := range got {
			if !hexPattern.MatchString(h) {
				t.Errorf("k=%d: %q is not a lowercase #rrggbb color", k, h)
			}
		}
	}
}

func TestExtractPalette_Deterministic(t *testing.T) {
	svc := newTestService(t, false)
	data := encodeBands(t, 50, 30,
		colorful.Color{R: 0.3, G: 0.1, B: 0.6},
		colorful.Color{R: 0.7, G: 0.7, B: 0.1},
		colorful.Color{R: 0.1, G: 0.5, B: 0.5},
	)

	first, err := svc.ExtractPalette(context.Background(), data, 3)
	if err != nil {
		t.Fatal(err)
	}
	second, err := newTestService(t, false).ExtractPalette(context.Background(), data, 3)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(first, ",") != strings.Join(second, ",") {
		t.Errorf("palettes differ: %v vs %v", first, second)
	}
}

func TestExtractSwatches_Percentages(t *testing.T) {
	svc := newTestService(t, false)
	data := encodeBands(t, 40, 40, colorful.Color{B: 1}, colorful.Color{R: 1, G: 1})

	swatches, err := svc.ExtractSwatches(context.Background(), data, 2)
	if err != nil {
		t.Fatal(err)
	}
	var total float64
	for _, sw := range swatches {
		total += sw.Percentage
	}
	if total < 99.999 || total > 100.001 {
		t.Errorf("percentages sum to %v", total)
	}
}

func TestService_InvalidCount(t *testing.T) {
	svc := newTestService(t, false)
	// Invalid bytes prove the count is checked before any decoding.
	junk := []byte("not an image")

	for _, k := range []int{0, -1} {
		if _, err := svc.ExtractPalette(context.Background(), junk, k); !errors.Is(err, ErrInvalidCount) {
			t.Errorf("ExtractPalette k=%d: expected ErrInvalidCount, got %v", k, err)
		}
		if _, err := svc.TransferColors(context.Background(), junk, junk, k); !errors.Is(err, ErrInvalidCount) {
			t.Errorf("TransferColors k=%d: expected ErrInvalidCount, got %v", k, err)
		}
	}
	if !IsInvalidInput(ErrInvalidCount) || IsInvalidInput(imaging.ErrDecode) {
		t.Error("IsInvalidInput misclassifies errors")
	}
	if m := svc.Pool().Metrics(); m.TotalAcquired != 0 {
		t.Errorf("invalid counts must not reach the pool: %+v", m)
	}
}

func TestService_DecodeFailure(t *testing.T) {
	svc := newTestService(t, false)
	good := encodeSolid(t, 4, 4, colorful.Color{G: 1})

	if _, err := svc.ExtractPalette(context.Background(), []byte("garbage"), 3); !errors.Is(err, imaging.ErrDecode) {
		t.Errorf("ExtractPalette: expected ErrDecode, got %v", err)
	}
	if _, err := svc.TransferColors(context.Background(), good, nil, 2); !errors.Is(err, imaging.ErrDecode) {
		t.Errorf("TransferColors: expected ErrDecode, got %v", err)
	}
}

func TestTransferColors_TargetDimensions(t *testing.T) {
	source := encodeBands(t, 30, 20, colorful.Color{R: 0.9, G: 0.2, B: 0.1}, colorful.Color{R: 0.1, G: 0.1, B: 0.4})
	target := encodeBands(t, 17, 11, colorful.Color{R: 0.2, G: 0.9, B: 0.2}, colorful.Color{R: 0.9, G: 0.9, B: 0.9})

	for _, parallel := range []bool{false, true} {
		out, err := newTestService(t, parallel).TransferColors(context.Background(), source, target, 2)
		if err != nil {
			t.Fatalf("parallel=%v: %v", parallel, err)
		}
		if out.Image.Width != 17 || out.Image.Height != 11 {
			t.Errorf("size: got %dx%d, want 17x11", out.Image.Width, out.Image.Height)
		}
		decoded, err := imaging.DecodeForTransfer(out.PNG)
		if err != nil {
			t.Fatalf("output PNG does not decode: %v", err)
		}
		if decoded.Width != 17 || decoded.Height != 11 {
			t.Errorf("PNG size: got %dx%d", decoded.Width, decoded.Height)
		}
		if !strings.HasPrefix(out.DataURI(), "data:image/png;base64,") {
			t.Errorf("data URI prefix: %q", out.DataURI()[:30])
		}
	}
}

func TestTransferColors_DeterministicBytes(t *testing.T) {
	source := encodeBands(t, 24, 24, colorful.Color{R: 0.8}, colorful.Color{G: 0.6}, colorful.Color{B: 0.7})
	target := encodeBands(t, 20, 10, colorful.Color{R: 0.1, G: 0.1}, colorful.Color{R: 0.5, B: 0.5}, colorful.Color{G: 0.9, B: 0.9})

	first, err := newTestService(t, true).TransferColors(context.Background(), source, target, 3)
	if err != nil {
		t.Fatal(err)
	}
	second, err := newTestService(t, false).TransferColors(context.Background(), source, target, 3)
	if err != nil {
		t.Fatal(err)
	}
	if first.DataURI() != second.DataURI() {
		t.Error("transfer output is not deterministic")
	}
}

func TestTransferColors_SingleClusterIsSolid(t *testing.T) {
	source := encodeSolid(t, 8, 8, colorful.Color{R: 1})
	target := encodeBands(t, 9, 5, colorful.Color{B: 1}, colorful.Color{G: 1}, colorful.Color{R: 1, G: 1, B: 1})

	out, err := newTestService(t, false).TransferColors(context.Background(), source, target, 1)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := imaging.DecodeForTransfer(out.PNG)
	if err != nil {
		t.Fatal(err)
	}
	red := colorful.Color{R: 1}
	for i, c := range decoded.Pix {
		if c != red {
			t.Fatalf("pixel %d: got %v, want pure red", i, c)
		}
	}
}

func TestService_Cancelled(t *testing.T) {
	svc := newTestService(t, false)
	data := encodeSolid(t, 4, 4, colorful.Color{R: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.ExtractPalette(ctx, data, 2); !errors.Is(err, context.Canceled) {
		t.Errorf("ExtractPalette: expected context.Canceled, got %v", err)
	}
	if _, err := svc.TransferColors(ctx, data, data, 2); !errors.Is(err, context.Canceled) {
		t.Errorf("TransferColors: expected context.Canceled, got %v", err)
	}
}
