// Package palette turns clustering results into ranked color palettes.
package palette

import (
	"errors"
	"fmt"
	"sort"

	"github.com/lucasb-eyer/go-colorful"
)

// ErrLabelRange is returned when a label does not index into the centers.
var ErrLabelRange = errors.New("label out of range")

// Palette is an ordered list of "#rrggbb" colors, most frequent first.
type Palette []string

// Swatch is one ranked palette entry.
type Swatch struct {
	Hex        string  `json:"hex"`        // "#rrggbb", lowercase
	Cluster    int     `json:"cluster"`    // index of the center in the clustering result
	Population int     `json:"population"` // number of pixels assigned to the cluster
	Percentage float64 `json:"percentage"` // population share, 0-100
}

// Rank orders centers by descending population.
//
// Population is the number of labels equal to the center's index. Equal
// populations keep ascending cluster order, so the result does not depend on
// the order of labels. Every center is returned, including empty ones.
func Rank(centers []colorful.Color, labels []int) ([]Swatch, error) {
	counts := make([]int, len(centers))
	for i, l := range labels {
		if l < 0 || l >= len(centers) {
			return nil, fmt.Errorf("%w: label %d at %d, %d centers", ErrLabelRange, l, i, len(centers))
		}
		counts[l]++
	}

	order := make([]int, len(centers))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return counts[order[a]] > counts[order[b]]
	})

	swatches := make([]Swatch, len(order))
	for rank, idx := range order {
		pct := 0.0
		if len(labels) > 0 {
			pct = float64(counts[idx]) / float64(len(labels)) * 100
		}
		swatches[rank] = Swatch{
			Hex:        Hex(centers[idx]),
			Cluster:    idx,
			Population: counts[idx],
			Percentage: pct,
		}
	}
	return swatches, nil
}

// FromClusters ranks centers and returns only their hex strings.
func FromClusters(centers []colorful.Color, labels []int) (Palette, error) {
	swatches, err := Rank(centers, labels)
	if err != nil {
		return nil, err
	}
	return FromSwatches(swatches), nil
}

// FromSwatches keeps the hex strings of ranked swatches, in order.
func FromSwatches(swatches []Swatch) Palette {
	p := make(Palette, len(swatches))
	for i, s := range swatches {
		p[i] = s.Hex
	}
	return p
}

// Hex renders c as "#rrggbb". Channels are clamped to [0,1] and rounded to the
// nearest 8-bit value.
func Hex(c colorful.Color) string {
	return c.Clamped().Hex()
}
