package cluster

import (
	"fmt"
	"slices"
	"strings"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"

	"github.com/couchcryptid/incident-risk-zones/internal/geo"
)

// IndexKind selects the neighbour search strategy.
type IndexKind string

const (
	// IndexBruteForce compares every pair of points.
	IndexBruteForce IndexKind = "bruteforce"
	// IndexS2 buckets points into S2 cells sized to the search radius.
	IndexS2 IndexKind = "s2"
)

// ParseIndexKind maps a configuration string to an IndexKind.
func ParseIndexKind(s string) (IndexKind, error) {
	switch k := IndexKind(strings.ToLower(strings.TrimSpace(s))); k {
	case IndexBruteForce, IndexS2:
		return k, nil
	default:
		return "", fmt.Errorf("unknown neighbor index %q (want %q or %q)", s, IndexBruteForce, IndexS2)
	}
}

// NeighborFinder answers eps-neighbourhood queries over a fixed point set.
// Neighbors returns the indices of all points within eps of point idx,
// including idx itself, in ascending order.
type NeighborFinder interface {
	Neighbors(idx int) []int
}

// NewNeighborFinder builds the finder for kind. Unknown kinds fall back to
// brute force.
func NewNeighborFinder(kind IndexKind, points []geo.Point, eps float64) NeighborFinder {
	if kind == IndexS2 {
		return NewCellIndex(points, eps)
	}
	return NewBruteForce(points, eps)
}

// BruteForce scans every point for each query.
type BruteForce struct {
	points []geo.Point
	eps    float64
}

// NewBruteForce creates an O(N) per query finder. eps is a central angle in
// radians.
func NewBruteForce(points []geo.Point, eps float64) *BruteForce {
	return &BruteForce{points: points, eps: eps}
}

func (b *BruteForce) Neighbors(idx int) []int {
	p := b.points[idx]
	var out []int
	for j, q := range b.points {
		if geo.CentralAngle(p, q) <= b.eps {
			out = append(out, j)
		}
	}
	return out
}

// capMargin widens the covering cap so points on an S2 cell edge next to the
// radius are never missed. Candidates are still filtered with the exact
// haversine distance.
const capMargin = 1.01

// CellIndex buckets points by S2 cell at the deepest level whose minimum cell
// width is at least eps, so a query only touches a handful of cells.
type CellIndex struct {
	points  []geo.Point
	eps     float64
	level   int
	cells   map[s2.CellID][]int
	coverer *s2.RegionCoverer
}

// NewCellIndex indexes points for eps-neighbourhood queries. eps is a
// central angle in radians.
func NewCellIndex(points []geo.Point, eps float64) *CellIndex {
	level := s2.MinWidthMetric.MaxLevel(eps)
	idx := &CellIndex{
		points: points,
		eps:    eps,
		level:  level,
		cells:  make(map[s2.CellID][]int, len(points)),
		coverer: &s2.RegionCoverer{
			MinLevel: level,
			MaxLevel: level,
			MaxCells: 8,
		},
	}
	for i, p := range points {
		id := cellAt(p, level)
		idx.cells[id] = append(idx.cells[id], i)
	}
	return idx
}

// Level returns the S2 level used for bucketing.
func (c *CellIndex) Level() int {
	return c.level
}

func (c *CellIndex) Neighbors(idx int) []int {
	p := c.points[idx]
	center := s2.PointFromLatLng(s2.LatLngFromDegrees(p.Lat, p.Lng))
	region := s2.CapFromCenterAngle(center, s1.Angle(c.eps*capMargin))

	var out []int
	for _, id := range c.coverer.Covering(region) {
		for _, j := range c.cells[id] {
			if geo.CentralAngle(p, c.points[j]) <= c.eps {
				out = append(out, j)
			}
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func cellAt(p geo.Point, level int) s2.CellID {
	return s2.CellIDFromLatLng(s2.LatLngFromDegrees(p.Lat, p.Lng)).Parent(level)
}
