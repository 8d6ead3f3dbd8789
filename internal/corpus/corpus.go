// Package corpus holds the scannable text collection. Texts are spread
// across a fixed number of partitions by an FNV hash of their ID so that
// scans can fan out across partitions concurrently.
package corpus

import (
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	apperrors "github.com/permscan/permscan/pkg/errors"
)

// Text is one corpus entry.
type Text struct {
	ID      string    `json:"id"`
	Title   string    `json:"title"`
	Body    string    `json:"body"`
	AddedAt time.Time `json:"added_at"`
}

// PartitionStats summarises one partition.
type PartitionStats struct {
	Partition int   `json:"partition"`
	TextCount int   `json:"text_count"`
	SizeBytes int64 `json:"size_bytes"`
}

type partition struct {
	mu    sync.RWMutex
	texts map[string]Text
	bytes int64
}

// Store is a partitioned in-memory text store.
type Store struct {
	partitions []*partition
	logger     *slog.Logger
}

// NewStore creates a Store with numPartitions partitions.
func NewStore(numPartitions int) (*Store, error) {
	if numPartitions <= 0 {
		return nil, fmt.Errorf("%w: numPartitions must be positive, got %d", apperrors.ErrInvalidInput, numPartitions)
	}
	parts := make([]*partition, numPartitions)
	for i := range parts {
		parts[i] = &partition{texts: make(map[string]Text)}
	}
	return &Store{
		partitions: parts,
		logger:     slog.Default().With("component", "corpus"),
	}, nil
}

// NumPartitions returns the partition count.
func (s *Store) NumPartitions() int {
	return len(s.partitions)
}

// PartitionFor returns the partition index that owns the given text ID.
func (s *Store) PartitionFor(textID string) int {
	h := fnv.New32a()
	h.Write([]byte(textID))
	return int(h.Sum32() % uint32(len(s.partitions)))
}

// Add inserts or replaces a text in its partition.
func (s *Store) Add(text Text) {
	p := s.partitions[s.PartitionFor(text.ID)]
	p.mu.Lock()
	if old, ok := p.texts[text.ID]; ok {
		p.bytes -= int64(len(old.Body))
	}
	p.texts[text.ID] = text
	p.bytes += int64(len(text.Body))
	p.mu.Unlock()
}

// Get returns the text with the given ID.
func (s *Store) Get(textID string) (Text, error) {
	p := s.partitions[s.PartitionFor(textID)]
	p.mu.RLock()
	defer p.mu.RUnlock()
	text, ok := p.texts[textID]
	if !ok {
		return Text{}, fmt.Errorf("%w: %s", apperrors.ErrTextNotFound, textID)
	}
	return text, nil
}

// Remove deletes a text. Removing an unknown ID is a no-op.
func (s *Store) Remove(textID string) {
	p := s.partitions[s.PartitionFor(textID)]
	p.mu.Lock()
	if old, ok := p.texts[textID]; ok {
		p.bytes -= int64(len(old.Body))
		delete(p.texts, textID)
	}
	p.mu.Unlock()
}

// TextCount returns the total number of texts across all partitions.
func (s *Store) TextCount() int {
	total := 0
	for _, p := range s.partitions {
		p.mu.RLock()
		total += len(p.texts)
		p.mu.RUnlock()
	}
	return total
}

// TotalBytes returns the total body size across all partitions.
func (s *Store) TotalBytes() int64 {
	var total int64
	for _, p := range s.partitions {
		p.mu.RLock()
		total += p.bytes
		p.mu.RUnlock()
	}
	return total
}

// Stats returns per-partition statistics in partition order.
func (s *Store) Stats() []PartitionStats {
	stats := make([]PartitionStats, len(s.partitions))
	for i, p := range s.partitions {
		p.mu.RLock()
		stats[i] = PartitionStats{
			Partition: i,
			TextCount: len(p.texts),
			SizeBytes: p.bytes,
		}
		p.mu.RUnlock()
	}
	return stats
}

// ForEachInPartition calls fn for every text in the given partition over a
// point-in-time copy, so fn may block without holding the partition lock.
// fn returning false stops the iteration.
func (s *Store) ForEachInPartition(part int, fn func(text Text) bool) error {
	if part < 0 || part >= len(s.partitions) {
		return fmt.Errorf("%w: partition %d out of range [0,%d)", apperrors.ErrInvalidInput, part, len(s.partitions))
	}
	p := s.partitions[part]
	p.mu.RLock()
	snapshot := make([]Text, 0, len(p.texts))
	for _, t := range p.texts {
		snapshot = append(snapshot, t)
	}
	p.mu.RUnlock()

	for _, t := range snapshot {
		if !fn(t) {
			return nil
		}
	}
	return nil
}

// PartitionTexts returns a copy of all texts in the given partition.
func (s *Store) PartitionTexts(part int) ([]Text, error) {
	if part < 0 || part >= len(s.partitions) {
		return nil, fmt.Errorf("%w: partition %d out of range [0,%d)", apperrors.ErrInvalidInput, part, len(s.partitions))
	}
	p := s.partitions[part]
	p.mu.RLock()
	defer p.mu.RUnlock()
	texts := make([]Text, 0, len(p.texts))
	for _, t := range p.texts {
		texts = append(texts, t)
	}
	return texts, nil
}
