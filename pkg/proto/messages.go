// Package proto defines the shared message types exchanged over the
// internal JSON-over-TCP RPC layer (see pkg/rpc). The types are hand-written
// with JSON struct tags instead of generated Protocol Buffer code.
package proto

// ---------- Common ----------

// Text is a corpus entry shared across services.
type Text struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	BodyHash    string `json:"body_hash"`
	BodySize    int32  `json:"body_size"`
	Partition   int32  `json:"partition"`
	Status      string `json:"status"`
	CreatedAt   int64  `json:"created_at"`
	ScannableAt int64  `json:"scannable_at,omitempty"`
}

// Pagination controls limit/offset for list endpoints.
type Pagination struct {
	Limit  int32 `json:"limit"`
	Offset int32 `json:"offset"`
}

// HealthCheckResponse mirrors the gRPC health checking protocol statuses.
type HealthCheckResponse struct {
	Status string `json:"status"` // SERVING, NOT_SERVING, UNKNOWN
}

// ---------- Scan ----------

// ScanRequest is the input to the Scan RPC. Mode selects how much work the
// scan does per text: "exists" stops at the first window match, "first"
// returns one index per text, "all" collects every index.
type ScanRequest struct {
	Pattern string `json:"pattern"`
	Mode    string `json:"mode"`
	Limit   int32  `json:"limit"`
}

// ScanResponse is the output of the Scan RPC.
type ScanResponse struct {
	Pattern   string      `json:"pattern"`
	Mode      string      `json:"mode"`
	TotalHits int32       `json:"total_hits"`
	Results   []TextMatch `json:"results"`
	LatencyMs int64       `json:"latency_ms"`
}

// TextMatch is one matched text with its permutation-window indices.
type TextMatch struct {
	TextID     string  `json:"text_id"`
	Title      string  `json:"title"`
	Score      float32 `json:"score"`
	FirstIndex int32   `json:"first_index"`
	Indices    []int32 `json:"indices,omitempty"`
}

// ---------- Corpus ----------

// AddTextRequest is the input to the AddText RPC.
type AddTextRequest struct {
	TextID    string `json:"text_id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Partition int32  `json:"partition"`
}

// AddTextResponse is the output of the AddText RPC.
type AddTextResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// GetTextRequest is the input to the GetText RPC.
type GetTextRequest struct {
	TextID string `json:"text_id"`
}

// ListTextsRequest pages through one partition's texts.
type ListTextsRequest struct {
	Partition int32      `json:"partition"`
	Page      Pagination `json:"page"`
}

// ListTextsResponse is the output of the ListTexts RPC. Total is the
// partition's full text count, independent of paging.
type ListTextsResponse struct {
	Texts []Text `json:"texts"`
	Total int64  `json:"total"`
}

// StatsRequest optionally filters by partition (-1 = all).
type StatsRequest struct {
	Partition int32 `json:"partition"`
}

// StatsResponse contains corpus-level statistics.
type StatsResponse struct {
	TotalTexts     int64           `json:"total_texts"`
	TotalBytes     int64           `json:"total_bytes"`
	Partitions     []PartitionStat `json:"partitions,omitempty"`
	SnapshotsTaken int64           `json:"snapshots_taken"`
}

// PartitionStat holds per-partition statistics.
type PartitionStat struct {
	Partition int32 `json:"partition"`
	TextCount int64 `json:"text_count"`
	SizeBytes int64 `json:"size_bytes"`
}

// SnapshotRequest triggers a corpus snapshot to disk.
type SnapshotRequest struct {
	Partition int32 `json:"partition"` // -1 snapshots all partitions
}

// SnapshotResponse confirms the snapshot.
type SnapshotResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
