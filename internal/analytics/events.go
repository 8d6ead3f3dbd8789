package analytics

import "time"

type EventType string

const (
	EventScan      EventType = "scan"
	EventCacheHit  EventType = "cache_hit"
	EventCacheMiss EventType = "cache_miss"
	EventIngest    EventType = "ingest_text"
	EventZeroMatch EventType = "zero_match"
)

// ScanEvent records one scan query for downstream aggregation.
type ScanEvent struct {
	Type          EventType `json:"type"`
	Pattern       string    `json:"pattern"`
	PatternLength int       `json:"pattern_length"`
	Mode          string    `json:"mode"`
	TotalHits     int       `json:"total_hits"`
	Returned      int       `json:"returned"`
	LatencyMs     int64     `json:"latency_ms"`
	CacheHit      bool      `json:"cache_hit"`
	Timestamp     time.Time `json:"timestamp"`
	RequestID     string    `json:"request_id"`
}

// IngestEvent records one text admitted to the corpus.
type IngestEvent struct {
	Type      EventType `json:"type"`
	TextID    string    `json:"text_id"`
	Partition int       `json:"partition"`
	SizeBytes int       `json:"size_bytes"`
	LatencyMs int64     `json:"latency_ms"`
	Timestamp time.Time `json:"timestamp"`
}
