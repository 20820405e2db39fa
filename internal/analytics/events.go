package analytics

import "time"

// RecommendEvent records one answered recommendation request.
type RecommendEvent struct {
	Mode       string    `json:"mode"`
	Query      string    `json:"query"`
	Status     string    `json:"status"`
	Candidates int       `json:"candidates"`
	Matches    int       `json:"matches"`
	Returned   int       `json:"returned"`
	LatencyMs  int64     `json:"latency_ms"`
	CacheHit   bool      `json:"cache_hit"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id,omitempty"`
}
