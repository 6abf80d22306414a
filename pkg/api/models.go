package api

// LatLngJSON represents a lat/lng pair in JSON.
type LatLngJSON struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// RouteRequest is the JSON body for POST /api/v1/route. Without a
// departure the route minimizes distance; with one it minimizes travel
// time leaving at that time of day.
type RouteRequest struct {
	Start     LatLngJSON `json:"start"`
	End       LatLngJSON `json:"end"`
	Departure *int32     `json:"departure,omitempty"`
}

// RouteResponse is the JSON response for a successful route query.
type RouteResponse struct {
	TotalDistanceMeters float64       `json:"total_distance_meters"`
	TravelTime          int64         `json:"travel_time"`
	Departure           *int32        `json:"departure,omitempty"`
	Arrival             *int32        `json:"arrival,omitempty"`
	Segments            []SegmentJSON `json:"segments"`
}

// SegmentJSON represents a road segment in the response.
type SegmentJSON struct {
	DistanceMeters float64      `json:"distance_meters"`
	TravelTime     int64        `json:"travel_time"`
	Label          string       `json:"label,omitempty"`
	Geometry       []LatLngJSON `json:"geometry"`
}

// KNNRequest is the JSON body for POST /api/v1/knn.
type KNNRequest struct {
	Location  LatLngJSON `json:"location"`
	Departure int32      `json:"departure"`
	K         int        `json:"k"`
}

// KNNResponse lists POIs by increasing travel time.
type KNNResponse struct {
	Results []POIJSON `json:"results"`
}

// POIJSON is one nearest POI.
type POIJSON struct {
	ID         int64          `json:"id"`
	Category   int32          `json:"category"`
	Label      string         `json:"label,omitempty"`
	Location   LatLngJSON     `json:"location"`
	TravelTime int64          `json:"travel_time"`
	Arrival    int32          `json:"arrival"`
	Route      *RouteResponse `json:"route,omitempty"`
}

// CategoriesRequest is the JSON body for POST /api/v1/categories. An empty
// category list means every category.
type CategoriesRequest struct {
	Location   LatLngJSON `json:"location"`
	Categories []int32    `json:"categories,omitempty"`
	Mode       string     `json:"mode,omitempty"` // lower (default) or upper
}

// CategoriesResponse holds one bound per reachable category.
type CategoriesResponse struct {
	Results []CategoryJSON `json:"results"`
}

// CategoryJSON is the best POI of one category.
type CategoryJSON struct {
	Category    int32      `json:"category"`
	POI         int64      `json:"poi"`
	Label       string     `json:"label,omitempty"`
	Location    LatLngJSON `json:"location"`
	TravelTime  int64      `json:"travel_time"`
	ServiceTime int32      `json:"service_time"`
	Cost        int64      `json:"cost"`
}

// ErrorResponse is the JSON response for errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// StatsResponse is the JSON response for GET /api/v1/stats.
type StatsResponse struct {
	NumNodes      int64  `json:"num_nodes"`
	NumEdges      int64  `json:"num_edges"`
	NumPOIs       int    `json:"num_pois"`
	NumCategories int    `json:"num_categories"`
	TimeUnit      string `json:"time_unit"`
}

// HealthResponse is the JSON response for GET /api/v1/health.
type HealthResponse struct {
	Status string `json:"status"`
}
