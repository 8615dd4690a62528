// Package cluster groups pixel colors into K representative clusters.
//
// The only algorithm is seeded k-means (see KMeans). Results are fully
// deterministic for a given seed, which keeps palette extraction stable across
// calls and lets the two independent clusterings of a color transfer be
// reproduced byte for byte.
package cluster
