package transfer

import (
	"errors"
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
)

// ErrMap is returned when clusters cannot be mapped.
var ErrMap = errors.New("map error")

// Pair links a target cluster to the source cluster whose color replaces it.
type Pair struct {
	Target int `json:"target"`
	Source int `json:"source"`
}

// Mapping holds one Pair per target cluster, in target order.
//
// Each source index is chosen independently, so several target clusters may
// share the same source cluster.
type Mapping []Pair

// DistanceMatrix returns the full len(a)×len(b) matrix of Euclidean RGB
// distances, where m[i][j] is the distance between a[i] and b[j].
func DistanceMatrix(a, b []colorful.Color) [][]float64 {
	m := make([][]float64, len(a))
	for i := range a {
		row := make([]float64, len(b))
		for j := range b {
			row[j] = a[i].DistanceRgb(b[j])
		}
		m[i] = row
	}
	return m
}

// MapClusters maps every target center to its nearest source center.
//
// Exact distance ties resolve to the lowest source index. This is a
// per-target nearest-neighbor lookup, not an assignment: the result is not
// necessarily a bijection.
//
// # Errors
//
//   - ErrMap if target or source is empty
func MapClusters(target, source []colorful.Color) (Mapping, error) {
	if len(target) == 0 {
		return nil, fmt.Errorf("%w: no target clusters", ErrMap)
	}
	if len(source) == 0 {
		return nil, fmt.Errorf("%w: no source clusters", ErrMap)
	}

	distances := DistanceMatrix(target, source)
	mapping := make(Mapping, len(target))
	for i, row := range distances {
		best := 0
		for j := 1; j < len(row); j++ {
			if row[j] < row[best] {
				best = j
			}
		}
		mapping[i] = Pair{Target: i, Source: best}
	}
	return mapping, nil
}

// Remap returns, for each target cluster, the color of its mapped source cluster.
//
// # Errors
//
//   - ErrMap if a pair references a source index outside source
func Remap(mapping Mapping, source []colorful.Color) ([]colorful.Color, error) {
	remapped := make([]colorful.Color, len(mapping))
	for i, p := range mapping {
		if p.Source < 0 || p.Source >= len(source) {
			return nil, fmt.Errorf("%w: source index %d for target %d, %d source clusters", ErrMap, p.Source, p.Target, len(source))
		}
		remapped[i] = source[p.Source]
	}
	return remapped, nil
}
