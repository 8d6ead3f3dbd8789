package rpcservice

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/permscan/permscan/internal/corpus"
	"github.com/permscan/permscan/internal/match"
	"github.com/permscan/permscan/internal/scanner/executor"
	"github.com/permscan/permscan/pkg/config"
	"github.com/permscan/permscan/pkg/proto"
	"github.com/permscan/permscan/pkg/rpc"
)

func newTestService(t *testing.T) (*Service, *corpus.Store) {
	t.Helper()
	store, err := corpus.NewStore(4)
	if err != nil {
		t.Fatal(err)
	}
	store.Add(corpus.Text{ID: "t1", Title: "first", Body: "cbaebabacd", AddedAt: time.Now()})
	store.Add(corpus.Text{ID: "t2", Title: "second", Body: "xxyyzz", AddedAt: time.Now()})

	exec := executor.New(store, match.NewEngine(match.Lowercase()), config.ScanConfig{
		Alphabet:            "abcdefghijklmnopqrstuvwxyz",
		MaxPatternLength:    64,
		DefaultLimit:        10,
		MaxResults:          100,
		MaxMatchesPerText:   100,
		TimeoutPerPartition: time.Second,
	})
	return New(exec, store, nil), store
}

func call(t *testing.T, fn func(ctx context.Context, req json.RawMessage) (any, error), req any) any {
	t.Helper()
	raw, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := fn(context.Background(), raw)
	if err != nil {
		t.Fatalf("rpc call: %v", err)
	}
	return resp
}

func TestScanMethod(t *testing.T) {
	svc, _ := newTestService(t)

	resp := call(t, svc.scan, &proto.ScanRequest{Pattern: "abc", Mode: "all", Limit: 10})
	scanResp, ok := resp.(*proto.ScanResponse)
	if !ok {
		t.Fatalf("response type = %T", resp)
	}
	if scanResp.TotalHits != 1 {
		t.Errorf("TotalHits = %d, want 1", scanResp.TotalHits)
	}
	if len(scanResp.Results) != 1 || scanResp.Results[0].TextID != "t1" {
		t.Errorf("Results = %+v, want single match on t1", scanResp.Results)
	}
}

func TestScanMethodRejectsBadMode(t *testing.T) {
	svc, _ := newTestService(t)

	raw, _ := json.Marshal(&proto.ScanRequest{Pattern: "abc", Mode: "bogus"})
	if _, err := svc.scan(context.Background(), raw); err == nil {
		t.Error("bogus mode accepted")
	}
}

func TestAddAndGetText(t *testing.T) {
	svc, store := newTestService(t)

	call(t, svc.addText, &proto.AddTextRequest{TextID: "t3", Title: "third", Body: "abcabc"})
	if _, err := store.Get("t3"); err != nil {
		t.Fatalf("added text missing from store: %v", err)
	}

	resp := call(t, svc.getText, &proto.GetTextRequest{TextID: "t3"})
	text, ok := resp.(*proto.Text)
	if !ok {
		t.Fatalf("response type = %T", resp)
	}
	if text.Title != "third" || text.BodySize != 6 {
		t.Errorf("text = %+v, want title=third body_size=6", text)
	}
	if text.BodyHash == "" {
		t.Error("BodyHash not populated")
	}
}

func TestGetTextNotFound(t *testing.T) {
	svc, _ := newTestService(t)

	raw, _ := json.Marshal(&proto.GetTextRequest{TextID: "missing"})
	if _, err := svc.getText(context.Background(), raw); err == nil {
		t.Error("missing text returned no error")
	}
}

func TestListTexts(t *testing.T) {
	svc, store := newTestService(t)

	part := store.PartitionFor("t1")
	resp := call(t, svc.listTexts, &proto.ListTextsRequest{
		Partition: int32(part),
		Page:      proto.Pagination{Limit: 10},
	})
	listResp, ok := resp.(*proto.ListTextsResponse)
	if !ok {
		t.Fatalf("response type = %T", resp)
	}
	if listResp.Total < 1 {
		t.Errorf("Total = %d, want at least 1", listResp.Total)
	}
	found := false
	for _, text := range listResp.Texts {
		if text.ID == "t1" {
			found = true
		}
	}
	if !found {
		t.Errorf("t1 not listed in partition %d: %+v", part, listResp.Texts)
	}
}

func TestStatsMethodAllPartitions(t *testing.T) {
	svc, _ := newTestService(t)

	// An empty params payload means all partitions.
	resp, err := svc.stats(context.Background(), nil)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	statsResp, ok := resp.(*proto.StatsResponse)
	if !ok {
		t.Fatalf("response type = %T", resp)
	}
	if statsResp.TotalTexts != 2 {
		t.Errorf("TotalTexts = %d, want 2", statsResp.TotalTexts)
	}
}

func TestRegisterAll(t *testing.T) {
	svc, _ := newTestService(t)
	server := rpc.NewServer()
	svc.RegisterAll(server)
	if got := server.MethodCount(); got != 7 {
		t.Errorf("MethodCount = %d, want 7", got)
	}
}
