package snapshot

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/permscan/permscan/internal/corpus"
	"github.com/permscan/permscan/pkg/metrics"
)

// Snapshotter periodically writes every corpus partition to disk and can
// restore the corpus from the newest snapshot set on startup.
type Snapshotter struct {
	store    *corpus.Store
	writer   *Writer
	dataDir  string
	interval time.Duration
	metrics  *metrics.Metrics
	logger   *slog.Logger
	taken    atomic.Int64
}

// NewSnapshotter creates a Snapshotter for the given store and directory.
// m may be nil when metrics are disabled.
func NewSnapshotter(store *corpus.Store, dataDir string, interval time.Duration, m *metrics.Metrics) *Snapshotter {
	return &Snapshotter{
		store:    store,
		writer:   NewWriter(dataDir),
		dataDir:  dataDir,
		interval: interval,
		metrics:  m,
		logger:   slog.Default().With("component", "snapshotter"),
	}
}

// Restore loads the newest snapshot of each partition into the store.
// Returns the number of texts restored. Corrupt snapshots are skipped with a
// warning rather than failing the whole restore.
func (s *Snapshotter) Restore() (int, error) {
	latest, err := LatestPerPartition(s.dataDir)
	if err != nil {
		return 0, err
	}
	restored := 0
	for part, path := range latest {
		header, texts, err := Read(path)
		if err != nil {
			s.logger.Warn("skipping unreadable snapshot", "path", path, "error", err)
			continue
		}
		for _, text := range texts {
			s.store.Add(text)
		}
		restored += len(texts)
		s.logger.Info("partition restored",
			"partition", part,
			"texts", len(texts),
			"snapshot_age", time.Since(time.Unix(header.CreatedAt, 0)).Round(time.Second),
		)
	}
	return restored, nil
}

// SnapshotAll writes one snapshot per partition and prunes stale files.
func (s *Snapshotter) SnapshotAll() error {
	start := time.Now()
	for part := 0; part < s.store.NumPartitions(); part++ {
		texts, err := s.store.PartitionTexts(part)
		if err != nil {
			return err
		}
		if len(texts) == 0 {
			continue
		}
		name, err := s.writer.Write(part, texts)
		if err != nil {
			if s.metrics != nil {
				s.metrics.SnapshotsTotal.WithLabelValues("error").Inc()
			}
			return err
		}
		s.logger.Debug("partition snapshot written", "partition", part, "file", name, "texts", len(texts))
	}
	if deleted, err := Prune(s.dataDir); err != nil {
		s.logger.Warn("snapshot prune failed", "error", err)
	} else if deleted > 0 {
		s.logger.Debug("stale snapshots pruned", "deleted", deleted)
	}
	s.taken.Add(1)
	if s.metrics != nil {
		s.metrics.SnapshotsTotal.WithLabelValues("success").Inc()
	}
	s.logger.Info("corpus snapshot complete",
		"texts", s.store.TextCount(),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

// SnapshotsTaken returns how many full snapshot rounds have completed.
func (s *Snapshotter) SnapshotsTaken() int64 {
	return s.taken.Load()
}

// Run snapshots on the configured interval until ctx is cancelled, writing a
// final snapshot on shutdown.
func (s *Snapshotter) Run(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Info("periodic snapshots disabled")
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.logger.Info("snapshot loop started", "interval", s.interval)
	for {
		select {
		case <-ticker.C:
			if err := s.SnapshotAll(); err != nil {
				s.logger.Error("snapshot failed", "error", err)
			}
		case <-ctx.Done():
			if err := s.SnapshotAll(); err != nil {
				s.logger.Error("final snapshot failed", "error", err)
			}
			s.logger.Info("snapshot loop stopped")
			return
		}
	}
}
