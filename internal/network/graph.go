// Package network provides the static road network and the shortest-path
// oracle every other component queries: sop_insert, the feasibility kernel,
// and the grid index all go through an Oracle rather than touching the
// graph directly.
//
// The reference implementation (cargo) backs this with a G-tree binary
// index (.gtree) behind a single mutex. The G-tree format is out of
// bit-exact scope per spec.md §6, so DijkstraOracle below is the from-
// scratch, thread-safe stand-in: same single-mutex-around-a-shared-index
// shape, different index.
package network

import (
	"container/heap"
	"errors"
	"fmt"
	"math"
	"sync"

	"darpsim/internal/model"
)

// ErrNoPath is returned when two nodes are not connected.
var ErrNoPath = errors.New("network: no path between nodes")

type edge struct {
	to     int
	weight int
}

// Graph is a static, undirected-by-default weighted road network.
type Graph struct {
	nodes map[int]model.Point
	adj   map[int][]edge
}

// NewGraph builds an empty graph. Use AddNode/AddEdge to populate it before
// handing it to NewDijkstraOracle.
func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[int]model.Point),
		adj:   make(map[int][]edge),
	}
}

// AddNode registers a node's coordinates. Required before edges touching it
// can be queried for Haversine pruning.
func (g *Graph) AddNode(id int, p model.Point) {
	g.nodes[id] = p
	if _, ok := g.adj[id]; !ok {
		g.adj[id] = nil
	}
}

// AddEdge adds a weighted edge. Undirected unless directed is true, matching
// the .edges/.rnet file convention of spec.md §6.
func (g *Graph) AddEdge(from, to, weight int, directed bool) {
	g.adj[from] = append(g.adj[from], edge{to: to, weight: weight})
	if !directed {
		g.adj[to] = append(g.adj[to], edge{to: from, weight: weight})
	}
}

// Point returns a node's coordinates.
func (g *Graph) Point(id int) (model.Point, bool) {
	p, ok := g.nodes[id]
	return p, ok
}

// NodeCount returns the number of distinct nodes registered.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// Nodes returns all node ids, order unspecified.
func (g *Graph) Nodes() []int {
	out := make([]int, 0, len(g.nodes))
	for id := range g.nodes {
		out = append(out, id)
	}
	return out
}

// Oracle is the interface every other component depends on: distance(u,v)
// and find_path(u,v) from spec.md §4.1.
type Oracle interface {
	Distance(u, v int) (int, error)
	FindPath(u, v int) ([]int, error)
}

// DijkstraOracle computes shortest paths on demand with a single
// sync.RWMutex guarding the underlying graph, so concurrent readers (the
// matching algorithm side) never race a topology change. The stepper never
// mutates the graph, so this is read-mostly in practice; the spec only
// requires thread-safety for concurrent reads.
type DijkstraOracle struct {
	mu    sync.RWMutex
	graph *Graph
	cache *pathCache
}

// NewDijkstraOracle wraps a built Graph. The graph must not be mutated after
// this call; construct it fully first.
func NewDijkstraOracle(g *Graph) *DijkstraOracle {
	return &DijkstraOracle{graph: g, cache: newPathCache(4096)}
}

// Distance returns the shortest-path cost between u and v in meters.
func (o *DijkstraOracle) Distance(u, v int) (int, error) {
	if u == v {
		return 0, nil
	}
	_, dist, err := o.shortestPath(u, v)
	return dist, err
}

// FindPath returns the sequence of node ids on the shortest path from u to
// v, inclusive of both endpoints.
func (o *DijkstraOracle) FindPath(u, v int) ([]int, error) {
	if u == v {
		return []int{u}, nil
	}
	path, _, err := o.shortestPath(u, v)
	return path, err
}

func (o *DijkstraOracle) shortestPath(u, v int) ([]int, int, error) {
	if path, dist, ok := o.cache.get(u, v); ok {
		return path, dist, nil
	}

	o.mu.RLock()
	defer o.mu.RUnlock()

	if _, ok := o.graph.nodes[u]; !ok {
		return nil, 0, fmt.Errorf("network: unknown node %d", u)
	}
	if _, ok := o.graph.nodes[v]; !ok {
		return nil, 0, fmt.Errorf("network: unknown node %d", v)
	}

	dist := map[int]int{u: 0}
	prev := map[int]int{}
	visited := map[int]bool{}

	pq := &priorityQueue{{node: u, dist: 0}}
	heap.Init(pq)

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(pqItem)
		if visited[cur.node] {
			continue
		}
		visited[cur.node] = true
		if cur.node == v {
			break
		}
		for _, e := range o.graph.adj[cur.node] {
			nd := cur.dist + e.weight
			if existing, ok := dist[e.to]; !ok || nd < existing {
				dist[e.to] = nd
				prev[e.to] = cur.node
				heap.Push(pq, pqItem{node: e.to, dist: nd})
			}
		}
	}

	finalDist, ok := dist[v]
	if !ok {
		return nil, 0, ErrNoPath
	}

	path := []int{v}
	for n := v; n != u; {
		p, ok := prev[n]
		if !ok {
			return nil, 0, ErrNoPath
		}
		path = append(path, p)
		n = p
	}
	reverse(path)

	o.cache.put(u, v, path, finalDist)
	return path, finalDist, nil
}

func reverse(s []int) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

type pqItem struct {
	node int
	dist int
}

type priorityQueue []pqItem

func (pq priorityQueue) Len() int            { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool  { return pq[i].dist < pq[j].dist }
func (pq priorityQueue) Swap(i, j int)       { pq[i], pq[j] = pq[j], pq[i] }
func (pq *priorityQueue) Push(x interface{}) { *pq = append(*pq, x.(pqItem)) }
func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}

// EarthRadiusMeters is used by Haversine below.
const EarthRadiusMeters = 6371000.0

// Haversine is a cheap underestimate of network distance, used for
// Euclidean pruning only — it must never stand in for oracle.Distance where
// true path cost is required (spec.md §4.1).
func Haversine(a, b model.Point) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng
	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(h))
}

func toRadians(deg float64) float64 { return deg * math.Pi / 180 }
