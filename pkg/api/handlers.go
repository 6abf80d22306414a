package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"mime"
	"net/http"

	"poi_router/pkg/routing"
	"poi_router/pkg/store"
)

// MaxK caps the number of neighbors a KNN request may ask for.
const MaxK = 100

const maxBodyBytes = 4096

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	router routing.Router
	stats  StatsResponse
}

// NewHandlers creates handlers with the given router.
func NewHandlers(router routing.Router, stats StatsResponse) *Handlers {
	return &Handlers{
		router: router,
		stats:  stats,
	}
}

// decodeJSON enforces the content type and body size, then decodes into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return false
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return false
	}
	return true
}

// HandleRoute handles POST /api/v1/route.
func (h *Handlers) HandleRoute(w http.ResponseWriter, r *http.Request) {
	var req RouteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validateCoord(req.Start); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_coordinates", "start")
		return
	}
	if err := validateCoord(req.End); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_coordinates", "end")
		return
	}
	if req.Departure != nil && *req.Departure < 0 {
		writeError(w, http.StatusBadRequest, "invalid_departure", "departure")
		return
	}

	result, err := h.router.Route(r.Context(), toLatLng(req.Start), toLatLng(req.End), req.Departure)
	if err != nil {
		writeRoutingError(w, err)
		return
	}
	writeJSON(w, toRouteResponse(result, req.Departure != nil))
}

// HandleKNN handles POST /api/v1/knn.
func (h *Handlers) HandleKNN(w http.ResponseWriter, r *http.Request) {
	var req KNNRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validateCoord(req.Location); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_coordinates", "location")
		return
	}
	if req.K < 1 || req.K > MaxK {
		writeError(w, http.StatusBadRequest, "invalid_k", "k")
		return
	}
	if req.Departure < 0 {
		writeError(w, http.StatusBadRequest, "invalid_departure", "departure")
		return
	}

	pois, err := h.router.Nearest(r.Context(), toLatLng(req.Location), req.Departure, req.K)
	if err != nil {
		writeRoutingError(w, err)
		return
	}
	resp := KNNResponse{Results: make([]POIJSON, 0, len(pois))}
	for _, p := range pois {
		item := POIJSON{
			ID:         p.ID,
			Category:   p.Category,
			Label:      p.Label,
			Location:   fromLatLng(p.Location),
			TravelTime: p.TravelTime,
			Arrival:    p.Arrival,
		}
		if p.Route != nil {
			item.Route = toRouteResponse(p.Route, true)
		}
		resp.Results = append(resp.Results, item)
	}
	writeJSON(w, resp)
}

// HandleCategories handles POST /api/v1/categories.
func (h *Handlers) HandleCategories(w http.ResponseWriter, r *http.Request) {
	var req CategoriesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validateCoord(req.Location); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_coordinates", "location")
		return
	}
	var mode routing.Mode
	switch req.Mode {
	case "", "lower":
		mode = routing.Lower
	case "upper":
		mode = routing.Upper
	default:
		writeError(w, http.StatusBadRequest, "invalid_mode", "mode")
		return
	}

	bounds, err := h.router.CategoryBounds(r.Context(), toLatLng(req.Location), req.Categories, mode)
	if err != nil {
		writeRoutingError(w, err)
		return
	}
	resp := CategoriesResponse{Results: make([]CategoryJSON, 0, len(bounds))}
	for _, b := range bounds {
		resp.Results = append(resp.Results, CategoryJSON{
			Category:    b.Category,
			POI:         b.POI,
			Label:       b.Label,
			Location:    fromLatLng(b.Location),
			TravelTime:  b.TravelTime,
			ServiceTime: b.ServiceTime,
			Cost:        b.Cost,
		})
	}
	writeJSON(w, resp)
}

// HandleHealth handles GET /api/v1/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, HealthResponse{Status: "ok"})
}

// HandleStats handles GET /api/v1/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.stats)
}

func toRouteResponse(result *routing.RouteResult, timed bool) *RouteResponse {
	resp := &RouteResponse{
		TotalDistanceMeters: result.TotalDistanceMeters,
		TravelTime:          result.TravelTime,
		Segments:            make([]SegmentJSON, 0, len(result.Segments)),
	}
	if timed {
		dep, arr := result.Departure, result.Arrival
		resp.Departure, resp.Arrival = &dep, &arr
	}
	for _, seg := range result.Segments {
		geom := make([]LatLngJSON, len(seg.Geometry))
		for i, ll := range seg.Geometry {
			geom[i] = fromLatLng(ll)
		}
		resp.Segments = append(resp.Segments, SegmentJSON{
			DistanceMeters: seg.DistanceMeters,
			TravelTime:     seg.TravelTime,
			Label:          seg.Label,
			Geometry:       geom,
		})
	}
	return resp
}

func toLatLng(ll LatLngJSON) routing.LatLng { return routing.LatLng{Lat: ll.Lat, Lng: ll.Lng} }

func fromLatLng(ll routing.LatLng) LatLngJSON { return LatLngJSON{Lat: ll.Lat, Lng: ll.Lng} }

func validateCoord(ll LatLngJSON) error {
	if math.IsNaN(ll.Lat) || math.IsNaN(ll.Lng) || math.IsInf(ll.Lat, 0) || math.IsInf(ll.Lng, 0) {
		return errors.New("coordinates must be finite numbers")
	}
	if ll.Lat < -90 || ll.Lat > 90 || ll.Lng < -180 || ll.Lng > 180 {
		return errors.New("coordinates out of range")
	}
	return nil
}

func writeRoutingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, routing.ErrPointTooFar):
		writeError(w, http.StatusUnprocessableEntity, "point_too_far_from_road", "")
	case errors.Is(err, store.ErrEmptyIndex):
		writeError(w, http.StatusUnprocessableEntity, "empty_graph", "")
	case errors.Is(err, routing.ErrNoRoute):
		writeError(w, http.StatusNotFound, "no_route_found", "")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "request_timeout", "")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "")
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, field string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: code, Field: field})
}
