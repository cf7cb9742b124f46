// Package cluster implements density-based spatial clustering (DBSCAN) of
// geographic points over great-circle distance.
package cluster

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/incident-risk-zones/internal/geo"
)

// Noise labels a point that is reachable from no core point.
const Noise = -1

// unvisited marks a point the outer loop has not reached yet.
const unvisited = -2

// parallelThreshold is the smallest input for which neighbourhoods are
// precomputed on multiple goroutines.
const parallelThreshold = 512

// Options configures a clustering run.
type Options struct {
	RadiusMeters float64   // neighbourhood radius
	MinPoints    int       // minimum neighbourhood size, self included
	Index        IndexKind // neighbour search strategy, brute force when empty
	Workers      int       // >1 precomputes neighbourhoods in parallel
}

// Result holds one label per input point and the number of clusters found.
type Result struct {
	Labels   []int
	Clusters int
}

// Members returns the point indices of each cluster, in input order.
func (r Result) Members() [][]int {
	members := make([][]int, r.Clusters)
	for i, l := range r.Labels {
		if l >= 0 {
			members[l] = append(members[l], i)
		}
	}
	return members
}

// NoiseCount returns the number of points labelled Noise.
func (r Result) NoiseCount() int {
	var n int
	for _, l := range r.Labels {
		if l == Noise {
			n++
		}
	}
	return n
}

// DBSCAN clusters points in input order. A point is a core point when at
// least MinPoints points (itself included) lie within RadiusMeters. Cluster
// ids start at 0 and follow the order in which their first core point
// appears in the input, so a fixed input always yields the same labels.
//
// The context is only consulted while precomputing neighbourhoods and
// between outer iterations.
func DBSCAN(ctx context.Context, points []geo.Point, opts Options) (Result, error) {
	n := len(points)
	if n == 0 {
		return Result{Labels: []int{}}, nil
	}

	eps := geo.MetersToRadians(opts.RadiusMeters)
	finder := NewNeighborFinder(opts.Index, points, eps)

	neighbors := finder.Neighbors
	if opts.Workers > 1 && n >= parallelThreshold {
		cache, err := precomputeNeighbors(ctx, finder, n, opts.Workers)
		if err != nil {
			return Result{}, err
		}
		neighbors = func(i int) []int { return cache[i] }
	}

	labels := make([]int, n)
	for i := range labels {
		labels[i] = unvisited
	}

	clusterID := 0
	for i := 0; i < n; i++ {
		if labels[i] != unvisited {
			continue
		}
		if i%1024 == 0 && ctx.Err() != nil {
			return Result{}, ctx.Err()
		}

		nb := neighbors(i)
		if len(nb) < opts.MinPoints {
			labels[i] = Noise
			continue
		}

		expandCluster(labels, neighbors, i, nb, clusterID, opts.MinPoints)
		clusterID++
	}

	return Result{Labels: labels, Clusters: clusterID}, nil
}

// expandCluster grows a cluster breadth-first from a core seed. Noise points
// reached from a core point become border points; they were already found
// not to be core, so they are not expanded again.
func expandCluster(labels []int, neighbors func(int) []int, seed int, seedNeighbors []int, clusterID, minPts int) {
	labels[seed] = clusterID

	queue := make([]int, 0, len(seedNeighbors))
	queue = append(queue, seedNeighbors...)

	for head := 0; head < len(queue); head++ {
		idx := queue[head]

		switch labels[idx] {
		case Noise:
			labels[idx] = clusterID
			continue
		case unvisited:
		default:
			continue
		}

		labels[idx] = clusterID
		nb := neighbors(idx)
		if len(nb) < minPts {
			continue
		}
		for _, q := range nb {
			if labels[q] == unvisited || labels[q] == Noise {
				queue = append(queue, q)
			}
		}
	}
}

// precomputeNeighbors runs every neighbourhood query up front, fanning out
// over workers goroutines in contiguous index ranges.
func precomputeNeighbors(ctx context.Context, finder NeighborFinder, n, workers int) ([][]int, error) {
	if workers > runtime.GOMAXPROCS(0) {
		workers = runtime.GOMAXPROCS(0)
	}
	out := make([][]int, n)
	chunk := (n + workers - 1) / workers

	g, ctx := errgroup.WithContext(ctx)
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		g.Go(func() error {
			for i := start; i < end; i++ {
				if i%256 == 0 && ctx.Err() != nil {
					return ctx.Err()
				}
				out[i] = finder.Neighbors(i)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
