// Package transfer recolors a target image with the color clusters of a source image.
//
// Both images are clustered independently into K colors. Each target cluster
// is then replaced by the nearest source cluster center and the target is
// rebuilt pixel by pixel from its labels, which preserves the target's
// structure while adopting the source's colors.
package transfer

import (
	"context"

	"github.com/ironsheep/color-palette-api/internal/cluster"
	"github.com/ironsheep/color-palette-api/internal/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/sync/errgroup"
)

// Clusterer partitions colors into k clusters.
type Clusterer interface {
	FitContext(ctx context.Context, points []colorful.Color, k int) (*cluster.Result, error)
}

// Transferer runs cluster-based color transfer.
type Transferer struct {
	clusterer Clusterer
	parallel  bool
}

// NewTransferer returns a Transferer using c. When parallel is true the source
// and target images are clustered concurrently; the output is the same either way.
func NewTransferer(c Clusterer, parallel bool) *Transferer {
	return &Transferer{clusterer: c, parallel: parallel}
}

// Result holds the recolored image and the intermediate cluster data.
type Result struct {
	Image         *imaging.PixelArray
	Mapping       Mapping
	SourceCenters []colorful.Color
	TargetCenters []colorful.Color
}

// Transfer recolors target with k clusters learned from source.
//
// The returned image has exactly the target's dimensions.
func (t *Transferer) Transfer(ctx context.Context, source, target *imaging.PixelArray, k int) (*Result, error) {
	if err := source.Validate(); err != nil {
		return nil, err
	}
	if err := target.Validate(); err != nil {
		return nil, err
	}

	src, tgt, err := t.clusterBoth(ctx, source, target, k)
	if err != nil {
		return nil, err
	}

	mapping, err := MapClusters(tgt.Centers, src.Centers)
	if err != nil {
		return nil, err
	}
	remapped, err := Remap(mapping, src.Centers)
	if err != nil {
		return nil, err
	}

	img, err := Reconstruct(remapped, tgt.Labels, target.Width, target.Height)
	if err != nil {
		return nil, err
	}

	return &Result{
		Image:         img,
		Mapping:       mapping,
		SourceCenters: src.Centers,
		TargetCenters: tgt.Centers,
	}, nil
}

func (t *Transferer) clusterBoth(ctx context.Context, source, target *imaging.PixelArray, k int) (*cluster.Result, *cluster.Result, error) {
	var src, tgt *cluster.Result

	if !t.parallel {
		var err error
		if src, err = t.clusterer.FitContext(ctx, source.Pix, k); err != nil {
			return nil, nil, err
		}
		if tgt, err = t.clusterer.FitContext(ctx, target.Pix, k); err != nil {
			return nil, nil, err
		}
		return src, tgt, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		src, err = t.clusterer.FitContext(gctx, source.Pix, k)
		return err
	})
	g.Go(func() error {
		var err error
		tgt, err = t.clusterer.FitContext(gctx, target.Pix, k)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return src, tgt, nil
}
