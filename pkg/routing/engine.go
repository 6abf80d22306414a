package routing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"poi_router/pkg/geo"
	"poi_router/pkg/logging"
	"poi_router/pkg/store"
)

// ErrPointTooFar is returned when a query coordinate is farther than the
// snap limit from every node.
var ErrPointTooFar = errors.New("point too far from road network")

// LatLng represents a geographic coordinate.
type LatLng struct {
	Lat float64
	Lng float64
}

// Segment is one traversed edge of a route result.
type Segment struct {
	DistanceMeters float64
	TravelTime     int64
	Label          string
	Geometry       []LatLng
}

// RouteResult is the output of a route query. Clock values are in the
// graph's time unit and only set for time-dependent routes.
type RouteResult struct {
	TotalDistanceMeters float64
	TravelTime          int64
	Departure           int32
	Arrival             int32
	Segments            []Segment
}

// POIResult is one nearest POI.
type POIResult struct {
	ID         int64
	Category   int32
	Label      string
	Location   LatLng
	TravelTime int64
	Arrival    int32
	Route      *RouteResult
}

// CategoryResult is the best POI of one category.
type CategoryResult struct {
	Bound
	Label    string
	Location LatLng
}

// Router is the interface for queries served over HTTP.
type Router interface {
	// Route returns the shortest path by distance, or the fastest path
	// leaving at *departure when departure is non-nil.
	Route(ctx context.Context, start, end LatLng, departure *int32) (*RouteResult, error)
	Nearest(ctx context.Context, at LatLng, departure int32, k int) ([]POIResult, error)
	CategoryBounds(ctx context.Context, at LatLng, categories []int32, mode Mode) ([]CategoryResult, error)
}

// EngineConfig configures an Engine.
type EngineConfig struct {
	// MaxSnapMeters bounds the distance from a query point to its node.
	// Zero disables the check.
	MaxSnapMeters float64
	Logger        *logging.Logger
}

// DefaultEngineConfig snaps within 1 km and discards logs.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{MaxSnapMeters: 1000, Logger: logging.Noop()}
}

// Engine implements Router over a loaded graph.
type Engine struct {
	g          *store.Graph
	cfg        EngineConfig
	dijkstra   *Dijkstra
	td         *TimeDependent
	categories *CategorySearch
	knn        *KNN
}

// NewEngine precomputes the KNN bounds of g and returns a ready engine.
func NewEngine(ctx context.Context, g *store.Graph, cfg EngineConfig) (*Engine, error) {
	if cfg.Logger == nil {
		cfg.Logger = logging.Noop()
	}
	start := time.Now()
	bounds, err := ComputeBounds(ctx, g)
	if err != nil {
		return nil, fmt.Errorf("compute POI bounds: %w", err)
	}
	cfg.Logger.InfoContext(ctx, "POI bounds computed",
		"nodes", g.NumberOfNodes(),
		"pois", len(g.POIs(nil)),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return &Engine{
		g:          g,
		cfg:        cfg,
		dijkstra:   NewDijkstra(g),
		td:         NewTimeDependent(g),
		categories: NewCategorySearch(g),
		knn:        NewKNN(g, bounds),
	}, nil
}

// Graph returns the graph the engine queries.
func (e *Engine) Graph() *store.Graph { return e.g }

func (e *Engine) snap(ll LatLng) (int64, error) {
	n, err := e.g.NearestNode(ll.Lat, ll.Lng)
	if err != nil {
		return store.None, err
	}
	if e.cfg.MaxSnapMeters > 0 && geo.Haversine(ll.Lat, ll.Lng, n.Latitude, n.Longitude) > e.cfg.MaxSnapMeters {
		return store.None, ErrPointTooFar
	}
	return n.ID, nil
}

// Route computes a path between the nodes nearest to start and end.
func (e *Engine) Route(ctx context.Context, start, end LatLng, departure *int32) (result *RouteResult, err error) {
	began := time.Now()
	src := store.None
	defer func() {
		e.cfg.Logger.LogQuery(ctx, "route", src, len(resultSegments(result)), time.Since(began), err)
	}()

	if src, err = e.snap(start); err != nil {
		return nil, err
	}
	dst, err := e.snap(end)
	if err != nil {
		return nil, err
	}

	var p *Path
	if departure == nil {
		p, err = e.dijkstra.ShortestPath(ctx, src, dst)
	} else {
		p, err = e.td.ShortestPath(ctx, src, dst, *departure)
	}
	if err != nil {
		return nil, err
	}
	return e.buildResult(p)
}

func resultSegments(r *RouteResult) []Segment {
	if r == nil {
		return nil
	}
	return r.Segments
}

// Nearest returns the k POIs with the smallest travel time from at.
func (e *Engine) Nearest(ctx context.Context, at LatLng, departure int32, k int) (out []POIResult, err error) {
	began := time.Now()
	src := store.None
	defer func() {
		e.cfg.Logger.LogQuery(ctx, "knn", src, len(out), time.Since(began), err)
	}()

	if src, err = e.snap(at); err != nil {
		return nil, err
	}
	nns, err := e.knn.Search(ctx, src, departure, k)
	if err != nil {
		return nil, err
	}
	for _, nn := range nns {
		n, err := e.g.Node(nn.ID)
		if err != nil {
			return nil, err
		}
		route, err := e.buildResult(nn.Path)
		if err != nil {
			return nil, err
		}
		out = append(out, POIResult{
			ID:         nn.ID,
			Category:   n.Category,
			Label:      n.Label,
			Location:   LatLng{Lat: n.Latitude, Lng: n.Longitude},
			TravelTime: nn.TravelTime,
			Arrival:    nn.Arrival,
			Route:      route,
		})
	}
	return out, nil
}

// CategoryBounds returns the best POI per category from at.
func (e *Engine) CategoryBounds(ctx context.Context, at LatLng, categories []int32, mode Mode) (out []CategoryResult, err error) {
	began := time.Now()
	src := store.None
	defer func() {
		e.cfg.Logger.LogQuery(ctx, "categories", src, len(out), time.Since(began), err)
	}()

	if src, err = e.snap(at); err != nil {
		return nil, err
	}
	bounds, err := e.categories.Bounds(ctx, src, categories, mode)
	if err != nil {
		return nil, err
	}
	for _, b := range bounds {
		n, err := e.g.Node(b.POI)
		if err != nil {
			return nil, err
		}
		out = append(out, CategoryResult{
			Bound:    b,
			Label:    n.Label,
			Location: LatLng{Lat: n.Latitude, Lng: n.Longitude},
		})
	}
	return out, nil
}

// buildResult converts a node path into coordinates, inserting the shape
// points of each traversed edge.
func (e *Engine) buildResult(p *Path) (*RouteResult, error) {
	result := &RouteResult{
		TotalDistanceMeters: float64(p.Distance) / 1000.0,
		TravelTime:          p.TravelTime,
		Departure:           p.Departure,
		Arrival:             p.Arrival,
	}
	for _, st := range p.Steps {
		from, err := e.g.Node(st.From)
		if err != nil {
			return nil, err
		}
		to, err := e.g.Node(st.To)
		if err != nil {
			return nil, err
		}
		seg := Segment{
			DistanceMeters: float64(st.Distance) / 1000.0,
			TravelTime:     int64(st.Cost),
			Label:          st.Label,
			Geometry:       []LatLng{{Lat: from.Latitude, Lng: from.Longitude}},
		}
		if st.EdgeID != store.None {
			shape, err := e.g.Geometry(st.EdgeID)
			if err != nil {
				return nil, err
			}
			for _, pt := range shape {
				seg.Geometry = append(seg.Geometry, LatLng{Lat: pt[0], Lng: pt[1]})
			}
		}
		seg.Geometry = append(seg.Geometry, LatLng{Lat: to.Latitude, Lng: to.Longitude})
		result.Segments = append(result.Segments, seg)
	}
	return result, nil
}

// Stats summarizes the loaded graph.
type Stats struct {
	NumNodes      int64
	NumEdges      int64
	NumPOIs       int
	NumCategories int
}

// Stats returns graph counts.
func (e *Engine) Stats() Stats {
	return Stats{
		NumNodes:      e.g.NumberOfNodes(),
		NumEdges:      e.g.NumberOfEdges(),
		NumPOIs:       len(e.g.POIs(nil)),
		NumCategories: len(e.g.Categories()),
	}
}
