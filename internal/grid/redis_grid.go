package grid

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"darpsim/internal/model"
	"darpsim/internal/network"
)

// RedisGrid is an alternate Index backend built on Redis's GEO commands,
// mirroring the teacher's geo.Index (internal/geo/redis_geo.go). Useful
// when several algorithm processes need to share one candidate index
// instead of each rebuilding an in-memory grid from its own batch snapshot.
type RedisGrid struct {
	client  *redis.Client
	key     string
	graph   *network.Graph
	vehicle map[string]model.Vehicle
}

// NewRedisGrid wraps a redis client. key namespaces the sorted set so
// multiple simulation runs can share one Redis instance.
func NewRedisGrid(client *redis.Client, key string, graph *network.Graph) *RedisGrid {
	return &RedisGrid{
		client:  client,
		key:     key,
		graph:   graph,
		vehicle: make(map[string]model.Vehicle),
	}
}

func vehlMember(id int) string { return strconv.Itoa(id) }

// Insert adds/updates v's position in the Redis GEO index.
func (g *RedisGrid) Insert(v model.Vehicle) {
	p, ok := g.graph.Point(v.LastVisitedNode())
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	member := vehlMember(v.Id)
	_ = g.client.GeoAdd(ctx, g.key, &redis.GeoLocation{
		Name:      member,
		Longitude: p.Lng,
		Latitude:  p.Lat,
	}).Err()
	g.vehicle[member] = v
}

// Within returns vehicles within radiusMeters of node's position, per
// Redis's GEOSEARCH, which already computes the true geodesic disc (no
// flat-earth superset the way the in-memory Grid does).
func (g *RedisGrid) Within(radiusMeters float64, node int) []model.Vehicle {
	center, ok := g.graph.Point(node)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	results, err := g.client.GeoSearchLocation(ctx, g.key, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Longitude:  center.Lng,
			Latitude:   center.Lat,
			Radius:     radiusMeters,
			RadiusUnit: "m",
			Sort:       "ASC",
		},
	}).Result()
	if err != nil {
		return nil
	}
	out := make([]model.Vehicle, 0, len(results))
	for _, r := range results {
		if v, ok := g.vehicle[r.Name]; ok {
			out = append(out, v)
		}
	}
	return out
}

// Clear drops the whole GEO key, resetting the index for the next batch.
func (g *RedisGrid) Clear() {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	_ = g.client.Del(ctx, g.key).Err()
	g.vehicle = make(map[string]model.Vehicle)
}
