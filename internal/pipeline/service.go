// Package pipeline runs the palette extraction and color transfer flows.
//
// Each request is one unit of work on a bounded Pool. Inside a job the steps
// run in order and the context is checked between them, so a caller that goes
// away stops the job after the current step. Nothing is shared between jobs.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ironsheep/color-palette-api/internal/cluster"
	"github.com/ironsheep/color-palette-api/internal/imaging"
	"github.com/ironsheep/color-palette-api/internal/palette"
	"github.com/ironsheep/color-palette-api/internal/transfer"
	"go.uber.org/zap"
)

// Service wires the decoder, clusterer, ranker, mapper and encoder together.
type Service struct {
	pool       *Pool
	clusterer  *cluster.KMeans
	transferer *transfer.Transferer
	resize     int
	logger     *zap.Logger
}

// Options configures a Service.
type Options struct {
	// Resize is the edge length palette images are resized to; 0 uses imaging.DefaultPaletteSize.
	Resize int
	// Parallel clusters transfer source and target concurrently.
	Parallel bool
}

// NewService creates a Service. A nil clusterer uses cluster.New() and a nil
// logger disables logging.
func NewService(pool *Pool, clusterer *cluster.KMeans, opts Options, logger *zap.Logger) *Service {
	if clusterer == nil {
		clusterer = cluster.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	resize := opts.Resize
	if resize <= 0 {
		resize = imaging.DefaultPaletteSize
	}
	return &Service{
		pool:       pool,
		clusterer:  clusterer,
		transferer: transfer.NewTransferer(clusterer, opts.Parallel),
		resize:     resize,
		logger:     logger,
	}
}

// Pool returns the worker pool the service runs on.
func (s *Service) Pool() *Pool {
	return s.pool
}

// ExtractPalette returns the k dominant colors of an encoded image as hex
// strings, most frequent first.
func (s *Service) ExtractPalette(ctx context.Context, data []byte, k int) (palette.Palette, error) {
	swatches, err := s.ExtractSwatches(ctx, data, k)
	if err != nil {
		return nil, err
	}
	return palette.FromSwatches(swatches), nil
}

// ExtractSwatches is ExtractPalette with populations and percentages.
//
// # Errors
//
//   - ErrInvalidCount if k <= 0, before any image work
//   - imaging.ErrDecode, cluster.ErrCluster or palette.ErrLabelRange from the steps
//   - ctx.Err() if the caller is gone
func (s *Service) ExtractSwatches(ctx context.Context, data []byte, k int) ([]palette.Swatch, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCount, k)
	}

	j := newJob(s.logger, "extract", k)
	var swatches []palette.Swatch

	err := s.pool.Run(ctx, func(ctx context.Context) error {
		pixels, err := step(ctx, j, "decode", func() (*imaging.PixelArray, error) {
			return imaging.DecodeForPalette(data, s.resize)
		})
		if err != nil {
			return err
		}
		j.log.Debug("decoded", zap.Int("width", pixels.Width), zap.Int("height", pixels.Height))

		res, err := step(ctx, j, "cluster", func() (*cluster.Result, error) {
			return s.clusterer.FitContext(ctx, pixels.Pix, k)
		})
		if err != nil {
			return err
		}
		j.log.Debug("clustered", zap.Int("iterations", res.Iterations), zap.Float64("inertia", res.Inertia))

		swatches, err = step(ctx, j, "rank", func() ([]palette.Swatch, error) {
			return palette.Rank(res.Centers, res.Labels)
		})
		return err
	})

	j.finish(err)
	if err != nil {
		return nil, err
	}
	return swatches, nil
}

// TransferOutput is the recolored image in both pixel and PNG form.
type TransferOutput struct {
	Image   *imaging.PixelArray
	PNG     []byte
	Mapping transfer.Mapping
}

// DataURI returns the PNG as a "data:image/png;base64," URI.
func (o *TransferOutput) DataURI() string {
	return imaging.DataURI(o.PNG)
}

// TransferColors recolors the target image with k clusters learned from the
// source image. The output has the target's dimensions.
//
// # Errors
//
//   - ErrInvalidCount if k <= 0, before any image work
//   - imaging.ErrDecode, cluster.ErrCluster, transfer.ErrMap,
//     transfer.ErrLabelRange or imaging.ErrEncode from the steps
//   - ctx.Err() if the caller is gone
func (s *Service) TransferColors(ctx context.Context, source, target []byte, k int) (*TransferOutput, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCount, k)
	}

	j := newJob(s.logger, "transfer", k)
	var out *TransferOutput

	err := s.pool.Run(ctx, func(ctx context.Context) error {
		src, err := step(ctx, j, "decode_source", func() (*imaging.PixelArray, error) {
			return imaging.DecodeForTransfer(source)
		})
		if err != nil {
			return err
		}
		tgt, err := step(ctx, j, "decode_target", func() (*imaging.PixelArray, error) {
			return imaging.DecodeForTransfer(target)
		})
		if err != nil {
			return err
		}
		j.log.Debug("decoded",
			zap.String("source", fmt.Sprintf("%dx%d", src.Width, src.Height)),
			zap.String("target", fmt.Sprintf("%dx%d", tgt.Width, tgt.Height)),
		)

		res, err := step(ctx, j, "transfer", func() (*transfer.Result, error) {
			return s.transferer.Transfer(ctx, src, tgt, k)
		})
		if err != nil {
			return err
		}

		png, err := step(ctx, j, "encode", func() ([]byte, error) {
			return imaging.EncodePNG(res.Image)
		})
		if err != nil {
			return err
		}

		out = &TransferOutput{Image: res.Image, PNG: png, Mapping: res.Mapping}
		return nil
	})

	j.finish(err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

type job struct {
	log     *zap.Logger
	started time.Time
}

func newJob(logger *zap.Logger, kind string, k int) *job {
	j := &job{
		log:     logger.With(zap.String("job", uuid.NewString()), zap.String("kind", kind), zap.Int("k", k)),
		started: time.Now(),
	}
	j.log.Debug("job started")
	return j
}

func (j *job) finish(err error) {
	elapsed := zap.Duration("elapsed", time.Since(j.started))
	if err != nil {
		j.log.Error("job failed", zap.Error(err), elapsed)
		return
	}
	j.log.Debug("job finished", elapsed)
}

// step runs fn after checking that the caller is still waiting, and logs its duration.
func step[T any](ctx context.Context, j *job, name string, fn func() (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	start := time.Now()
	v, err := fn()
	if err != nil {
		j.log.Debug("step failed", zap.String("step", name), zap.Duration("took", time.Since(start)))
		return zero, err
	}
	j.log.Debug("step done", zap.String("step", name), zap.Duration("took", time.Since(start)))
	return v, nil
}
