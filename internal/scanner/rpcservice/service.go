// Package rpcservice registers the scanner's internal RPC methods so other
// services can scan the corpus and manage snapshots without going through
// the HTTP API.
package rpcservice

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/permscan/permscan/internal/corpus"
	"github.com/permscan/permscan/internal/corpus/snapshot"
	"github.com/permscan/permscan/internal/scanner/executor"
	"github.com/permscan/permscan/internal/scanner/handler"
	"github.com/permscan/permscan/pkg/proto"
	"github.com/permscan/permscan/pkg/rpc"
)

// Service bundles the dependencies behind the scanner's RPC methods.
type Service struct {
	executor    handler.ScanExecutor
	store       *corpus.Store
	snapshotter *snapshot.Snapshotter
	logger      *slog.Logger
}

// New creates a Service. snapshotter may be nil when snapshots are disabled.
func New(exec handler.ScanExecutor, store *corpus.Store, snapshotter *snapshot.Snapshotter) *Service {
	return &Service{
		executor:    exec,
		store:       store,
		snapshotter: snapshotter,
		logger:      slog.Default().With("component", "scanner-rpc"),
	}
}

// RegisterAll registers every RPC method on the server.
func (s *Service) RegisterAll(server *rpc.Server) {
	server.Register("ScanService.Scan", s.scan)
	server.Register("CorpusService.AddText", s.addText)
	server.Register("CorpusService.GetText", s.getText)
	server.Register("CorpusService.ListTexts", s.listTexts)
	server.Register("CorpusService.Stats", s.stats)
	server.Register("CorpusService.Snapshot", s.snapshot)
	server.Register("HealthService.Check", s.healthCheck)
}

func (s *Service) scan(ctx context.Context, req json.RawMessage) (any, error) {
	var scanReq proto.ScanRequest
	if err := json.Unmarshal(req, &scanReq); err != nil {
		return nil, fmt.Errorf("decoding scan request: %w", err)
	}
	mode, err := executor.ParseMode(scanReq.Mode)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := s.executor.Execute(ctx, executor.Query{
		Pattern: scanReq.Pattern,
		Mode:    mode,
		Limit:   int(scanReq.Limit),
	})
	if err != nil {
		return nil, err
	}

	resp := proto.ScanResponse{
		Pattern:   result.Pattern,
		Mode:      string(result.Mode),
		TotalHits: int32(result.TotalHits),
		Results:   make([]proto.TextMatch, 0, len(result.Results)),
		LatencyMs: time.Since(start).Milliseconds(),
	}
	for _, r := range result.Results {
		tm := proto.TextMatch{
			TextID:     r.TextID,
			Title:      r.Title,
			Score:      float32(r.Score),
			FirstIndex: int32(r.FirstIndex),
		}
		if len(r.Indices) > 0 {
			tm.Indices = make([]int32, len(r.Indices))
			for i, idx := range r.Indices {
				tm.Indices[i] = int32(idx)
			}
		}
		resp.Results = append(resp.Results, tm)
	}
	return &resp, nil
}

func (s *Service) addText(ctx context.Context, req json.RawMessage) (any, error) {
	var addReq proto.AddTextRequest
	if err := json.Unmarshal(req, &addReq); err != nil {
		return nil, fmt.Errorf("decoding add-text request: %w", err)
	}
	if addReq.TextID == "" {
		return nil, fmt.Errorf("text_id is required")
	}
	s.store.Add(corpus.Text{
		ID:      addReq.TextID,
		Title:   addReq.Title,
		Body:    addReq.Body,
		AddedAt: time.Now().UTC(),
	})
	s.logger.Info("text added via rpc", "text_id", addReq.TextID)
	return &proto.AddTextResponse{Success: true, Message: "text added"}, nil
}

func (s *Service) getText(ctx context.Context, req json.RawMessage) (any, error) {
	var getReq proto.GetTextRequest
	if err := json.Unmarshal(req, &getReq); err != nil {
		return nil, fmt.Errorf("decoding get-text request: %w", err)
	}
	text, err := s.store.Get(getReq.TextID)
	if err != nil {
		return nil, err
	}
	return wireText(text, int32(s.store.PartitionFor(text.ID))), nil
}

func (s *Service) listTexts(ctx context.Context, req json.RawMessage) (any, error) {
	var listReq proto.ListTextsRequest
	if err := json.Unmarshal(req, &listReq); err != nil {
		return nil, fmt.Errorf("decoding list-texts request: %w", err)
	}

	texts, err := s.store.PartitionTexts(int(listReq.Partition))
	if err != nil {
		return nil, err
	}
	sort.Slice(texts, func(i, j int) bool { return texts[i].ID < texts[j].ID })

	limit := int(listReq.Page.Limit)
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := int(listReq.Page.Offset)
	if offset < 0 {
		offset = 0
	}

	resp := proto.ListTextsResponse{
		Texts: make([]proto.Text, 0, limit),
		Total: int64(len(texts)),
	}
	for i := offset; i < len(texts) && i < offset+limit; i++ {
		resp.Texts = append(resp.Texts, *wireText(texts[i], listReq.Partition))
	}
	return &resp, nil
}

func wireText(t corpus.Text, partition int32) *proto.Text {
	hash := sha256.Sum256([]byte(t.Body))
	return &proto.Text{
		ID:        t.ID,
		Title:     t.Title,
		Body:      t.Body,
		BodyHash:  hex.EncodeToString(hash[:]),
		BodySize:  int32(len(t.Body)),
		Partition: partition,
		Status:    "SCANNABLE",
		CreatedAt: t.AddedAt.Unix(),
	}
}

func (s *Service) stats(ctx context.Context, req json.RawMessage) (any, error) {
	// An omitted partition field means "all partitions".
	statsReq := proto.StatsRequest{Partition: -1}
	if len(req) > 0 {
		if err := json.Unmarshal(req, &statsReq); err != nil {
			return nil, fmt.Errorf("decoding stats request: %w", err)
		}
	}

	resp := proto.StatsResponse{
		TotalTexts: int64(s.store.TextCount()),
		TotalBytes: s.store.TotalBytes(),
	}
	if s.snapshotter != nil {
		resp.SnapshotsTaken = s.snapshotter.SnapshotsTaken()
	}
	for _, ps := range s.store.Stats() {
		if statsReq.Partition >= 0 && statsReq.Partition != int32(ps.Partition) {
			continue
		}
		resp.Partitions = append(resp.Partitions, proto.PartitionStat{
			Partition: int32(ps.Partition),
			TextCount: int64(ps.TextCount),
			SizeBytes: ps.SizeBytes,
		})
	}
	return &resp, nil
}

func (s *Service) snapshot(ctx context.Context, req json.RawMessage) (any, error) {
	if s.snapshotter == nil {
		return &proto.SnapshotResponse{Success: false, Message: "snapshots disabled"}, nil
	}
	if err := s.snapshotter.SnapshotAll(); err != nil {
		return nil, fmt.Errorf("snapshotting corpus: %w", err)
	}
	return &proto.SnapshotResponse{Success: true, Message: "snapshot written"}, nil
}

func (s *Service) healthCheck(ctx context.Context, req json.RawMessage) (any, error) {
	return &proto.HealthCheckResponse{Status: "SERVING"}, nil
}
