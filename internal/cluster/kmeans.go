package cluster

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/lucasb-eyer/go-colorful"
)

// Defaults match the behaviour the palette and transfer pipelines were tuned with.
const (
	DefaultSeed          uint64  = 42
	DefaultMaxIterations         = 300
	DefaultTolerance     float64 = 1e-4
	DefaultInits                 = 1
)

// ErrCluster is returned for invalid clustering input.
var ErrCluster = errors.New("cluster error")

// Result is the outcome of one clustering run.
type Result struct {
	// Centers holds K cluster centers. Centers of clusters that received no
	// points are still present so that len(Centers) == K.
	Centers []colorful.Color

	// Labels assigns every input point to an index into Centers.
	Labels []int

	// Inertia is the sum of squared distances of points to their center.
	Inertia float64

	// Iterations is the number of Lloyd iterations of the kept run.
	Iterations int
}

// KMeans partitions colors into K groups by minimizing the within-cluster sum
// of squared Euclidean distances in RGB space.
//
// Centers are seeded with greedy k-means++ from a PCG generator seeded with
// Seed, so identical input always yields identical output.
//
// When K exceeds the number of distinct colors, seeding duplicates centers
// once every point already sits on one. Points are assigned to the lowest
// index among equidistant centers, so the duplicates stay empty: they keep a
// center but never appear in Labels.
type KMeans struct {
	// Seed drives center initialization.
	Seed uint64

	// MaxIterations bounds the Lloyd iterations of each run.
	MaxIterations int

	// Tolerance is relative to the mean per-channel variance of the input.
	// A run stops once the total squared center shift falls to or below it.
	Tolerance float64

	// Inits is the number of independently seeded runs; the one with the
	// lowest inertia is kept.
	Inits int
}

// New returns a KMeans with default settings.
func New() *KMeans {
	return &KMeans{
		Seed:          DefaultSeed,
		MaxIterations: DefaultMaxIterations,
		Tolerance:     DefaultTolerance,
		Inits:         DefaultInits,
	}
}

// Fit clusters points into k groups.
func (km *KMeans) Fit(points []colorful.Color, k int) (*Result, error) {
	return km.FitContext(context.Background(), points, k)
}

// FitContext is Fit with cancellation checked between iterations.
//
// # Errors
//
//   - ErrCluster if k <= 0 or points is empty
//   - ctx.Err() if the context is done before the run completes
func (km *KMeans) FitContext(ctx context.Context, points []colorful.Color, k int) (*Result, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: cluster count must be positive, got %d", ErrCluster, k)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: no points to cluster", ErrCluster)
	}

	maxIter := km.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}
	inits := km.Inits
	if inits <= 0 {
		inits = DefaultInits
	}
	tol := km.Tolerance
	if tol < 0 {
		tol = 0
	}
	tol *= meanVariance(points)

	rng := rand.New(rand.NewPCG(km.Seed, km.Seed^0x9e3779b97f4a7c15))

	var best *Result
	for run := 0; run < inits; run++ {
		centers := seedPlusPlus(points, k, rng)
		res, err := lloyd(ctx, points, centers, maxIter, tol)
		if err != nil {
			return nil, err
		}
		if best == nil || res.Inertia < best.Inertia {
			best = res
		}
	}
	return best, nil
}

// seedPlusPlus picks k initial centers with greedy k-means++: each new center
// is the best of several candidates sampled proportionally to their squared
// distance from the nearest existing center.
func seedPlusPlus(points []colorful.Color, k int, rng *rand.Rand) []colorful.Color {
	n := len(points)
	trials := 2 + int(math.Log(float64(k)))

	centers := make([]colorful.Color, 0, k)
	centers = append(centers, points[rng.IntN(n)])

	closest := make([]float64, n)
	potential := 0.0
	for i, p := range points {
		closest[i] = sqDist(p, centers[0])
		potential += closest[i]
	}

	cumulative := make([]float64, n)
	candidateDist := make([]float64, n)
	bestDist := make([]float64, n)

	for len(centers) < k {
		sum := 0.0
		for i, d := range closest {
			sum += d
			cumulative[i] = sum
		}

		bestIdx := -1
		bestPot := math.Inf(1)
		for t := 0; t < trials; t++ {
			idx := searchCumulative(cumulative, rng.Float64()*potential)

			pot := 0.0
			for i, p := range points {
				d := sqDist(p, points[idx])
				if closest[i] < d {
					d = closest[i]
				}
				candidateDist[i] = d
				pot += d
			}
			if pot < bestPot {
				bestPot = pot
				bestIdx = idx
				copy(bestDist, candidateDist)
			}
		}

		centers = append(centers, points[bestIdx])
		potential = bestPot
		copy(closest, bestDist)
	}
	return centers
}

// searchCumulative returns the first index whose cumulative weight is >= v,
// clamped to the last index.
func searchCumulative(cumulative []float64, v float64) int {
	lo, hi := 0, len(cumulative)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if cumulative[mid] < v {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo >= len(cumulative) {
		lo = len(cumulative) - 1
	}
	return lo
}

// lloyd refines centers until labels stop changing, the center shift drops
// to tol, or maxIter iterations have run.
func lloyd(ctx context.Context, points []colorful.Color, centers []colorful.Color, maxIter int, tol float64) (*Result, error) {
	k := len(centers)
	labels := make([]int, len(points))
	for i := range labels {
		labels[i] = -1
	}
	dists := make([]float64, len(points))
	sums := make([][3]float64, k)
	counts := make([]int, k)

	iterations := 0
	for iterations < maxIter {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		iterations++

		for j := range sums {
			sums[j] = [3]float64{}
			counts[j] = 0
		}
		changed := 0
		for i, p := range points {
			label, d := nearest(p, centers)
			if label != labels[i] {
				changed++
				labels[i] = label
			}
			dists[i] = d
			sums[label][0] += p.R
			sums[label][1] += p.G
			sums[label][2] += p.B
			counts[label]++
		}
		if changed == 0 {
			break
		}

		next := make([]colorful.Color, k)
		copy(next, centers)
		relocateEmpty(points, labels, dists, sums, counts, next)

		shift := 0.0
		for j := range next {
			if counts[j] > 0 {
				n := float64(counts[j])
				next[j] = colorful.Color{R: sums[j][0] / n, G: sums[j][1] / n, B: sums[j][2] / n}
			}
			shift += sqDist(next[j], centers[j])
		}
		centers = next

		if shift <= tol {
			break
		}
	}

	inertia := 0.0
	for i, p := range points {
		label, d := nearest(p, centers)
		labels[i] = label
		inertia += d
	}

	return &Result{
		Centers:    centers,
		Labels:     labels,
		Inertia:    inertia,
		Iterations: iterations,
	}, nil
}

// relocateEmpty moves every empty cluster onto the point farthest from its
// current center. Clusters stay empty when no point is off-center.
func relocateEmpty(points []colorful.Color, labels []int, dists []float64, sums [][3]float64, counts []int, centers []colorful.Color) {
	var used map[int]bool
	for j := range counts {
		if counts[j] > 0 {
			continue
		}
		far := -1
		for i, d := range dists {
			if d > 0 && !used[i] && (far < 0 || d > dists[far]) {
				far = i
			}
		}
		if far < 0 {
			return
		}
		if used == nil {
			used = make(map[int]bool)
		}
		used[far] = true

		p := points[far]
		old := labels[far]
		sums[old][0] -= p.R
		sums[old][1] -= p.G
		sums[old][2] -= p.B
		counts[old]--

		labels[far] = j
		sums[j] = [3]float64{p.R, p.G, p.B}
		counts[j] = 1
		centers[j] = p
	}
}

// nearest returns the index of the closest center and the squared distance
// to it. Ties resolve to the lowest index.
func nearest(p colorful.Color, centers []colorful.Color) (int, float64) {
	best := 0
	bestDist := sqDist(p, centers[0])
	for j := 1; j < len(centers); j++ {
		if d := sqDist(p, centers[j]); d < bestDist {
			best = j
			bestDist = d
		}
	}
	return best, bestDist
}

func sqDist(a, b colorful.Color) float64 {
	dr := a.R - b.R
	dg := a.G - b.G
	db := a.B - b.B
	return dr*dr + dg*dg + db*db
}

// meanVariance returns the mean of the per-channel variances of points.
func meanVariance(points []colorful.Color) float64 {
	n := float64(len(points))
	var mean [3]float64
	for _, p := range points {
		mean[0] += p.R
		mean[1] += p.G
		mean[2] += p.B
	}
	for c := range mean {
		mean[c] /= n
	}
	var variance float64
	for _, p := range points {
		dr := p.R - mean[0]
		dg := p.G - mean[1]
		db := p.B - mean[2]
		variance += dr*dr + dg*dg + db*db
	}
	return variance / n / 3
}
