// Package grid provides the spatial index candidate matching algorithms use
// to retrieve nearby vehicles by pickup proximity (spec.md §4.6), grounded
// on cargo::Grid (include/libcargo/grid.h) — "Optimization of Large-Scale,
// Real-Time Simulations by Spatial Hashing" (Hastings, Mesit, Guha, 2005).
//
// A second backend, RedisGrid, mirrors the teacher's dual in-memory/Redis
// GeoLocator split (internal/geo) for algorithms that want a
// process-external, shareable index.
package grid

import (
	"math"

	"darpsim/internal/model"
	"darpsim/internal/network"
)

// Index is the interface matching algorithms depend on. The grid is
// algorithm-owned: it is rebuilt every batch from Handle calls and is never
// shared with the stepper (spec.md §4.6, §5).
type Index interface {
	Insert(v model.Vehicle)
	Within(radiusMeters float64, node int) []model.Vehicle
	Clear()
}

type cell struct {
	row, col int
}

// Grid is a uniform n x n bucket grid over the bounding box of the road
// network's nodes. Vehicles are bucketed by the coordinates of their
// last-visited node.
type Grid struct {
	n          int
	minLng     float64
	minLat     float64
	lngPerCell float64
	latPerCell float64
	buckets    map[cell][]model.Vehicle
	located    map[int]cell // vehicle id -> bucket, for re-bucketing on re-insert
	graph      *network.Graph
}

// NewGrid builds an n x n grid over the bounding box of graph's nodes.
func NewGrid(n int, graph *network.Graph) *Grid {
	g := &Grid{
		n:       n,
		buckets: make(map[cell][]model.Vehicle),
		located: make(map[int]cell),
		graph:   graph,
	}
	g.computeBounds()
	return g
}

func (g *Grid) computeBounds() {
	minLng, minLat := 1e18, 1e18
	maxLng, maxLat := -1e18, -1e18
	for _, id := range g.graph.Nodes() {
		p, _ := g.graph.Point(id)
		if p.Lng < minLng {
			minLng = p.Lng
		}
		if p.Lng > maxLng {
			maxLng = p.Lng
		}
		if p.Lat < minLat {
			minLat = p.Lat
		}
		if p.Lat > maxLat {
			maxLat = p.Lat
		}
	}
	if minLng > maxLng {
		// Empty graph; avoid division by zero downstream.
		minLng, maxLng, minLat, maxLat = 0, 1, 0, 1
	}
	g.minLng = minLng
	g.minLat = minLat
	span := maxLng - minLng
	if span <= 0 {
		span = 1
	}
	g.lngPerCell = span / float64(g.n)
	span = maxLat - minLat
	if span <= 0 {
		span = 1
	}
	g.latPerCell = span / float64(g.n)
}

func (g *Grid) cellFor(p model.Point) cell {
	col := int((p.Lng - g.minLng) / g.lngPerCell)
	row := int((p.Lat - g.minLat) / g.latPerCell)
	if col < 0 {
		col = 0
	}
	if col >= g.n {
		col = g.n - 1
	}
	if row < 0 {
		row = 0
	}
	if row >= g.n {
		row = g.n - 1
	}
	return cell{row: row, col: col}
}

// Insert places v in the bucket containing its last-visited node. A vehicle
// appears in at most one bucket; re-inserting after it has moved re-buckets
// it.
func (g *Grid) Insert(v model.Vehicle) {
	if prev, ok := g.located[int(v.Id)]; ok {
		g.removeFrom(prev, int(v.Id))
	}
	p, ok := g.graph.Point(v.LastVisitedNode())
	if !ok {
		return
	}
	c := g.cellFor(p)
	g.buckets[c] = append(g.buckets[c], v)
	g.located[int(v.Id)] = c
}

func (g *Grid) removeFrom(c cell, vehlID int) {
	bucket := g.buckets[c]
	for i, v := range bucket {
		if int(v.Id) == vehlID {
			g.buckets[c] = append(bucket[:i], bucket[i+1:]...)
			return
		}
	}
}

// Within returns vehicles whose bucket overlaps the geodesic disc of
// radiusMeters around node. The flat-earth approximation used to convert
// meters to degrees at node's latitude means this is a superset of the true
// disc; callers must filter with network.Haversine if exactness matters
// (spec.md §4.6).
func (g *Grid) Within(radiusMeters float64, node int) []model.Vehicle {
	center, ok := g.graph.Point(node)
	if !ok {
		return nil
	}
	latRad := center.Lat * math.Pi / 180
	metersPerDegLat := 110574.0
	metersPerDegLng := 111320.0 * math.Cos(latRad)
	if metersPerDegLng <= 0 {
		metersPerDegLng = 1
	}

	dLat := radiusMeters / metersPerDegLat
	dLng := radiusMeters / metersPerDegLng

	minCell := g.cellFor(model.Point{Lng: center.Lng - dLng, Lat: center.Lat - dLat})
	maxCell := g.cellFor(model.Point{Lng: center.Lng + dLng, Lat: center.Lat + dLat})

	var out []model.Vehicle
	for row := minCell.row; row <= maxCell.row; row++ {
		for col := minCell.col; col <= maxCell.col; col++ {
			out = append(out, g.buckets[cell{row: row, col: col}]...)
		}
	}
	return out
}

// Clear resets all buckets. Called at the start of each listen cycle.
func (g *Grid) Clear() {
	g.buckets = make(map[cell][]model.Vehicle)
	g.located = make(map[int]cell)
}
