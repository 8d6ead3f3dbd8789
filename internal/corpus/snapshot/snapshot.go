// Package snapshot persists corpus partitions to disk as binary snapshot
// files so the scanner can restore its corpus after a restart.
//
// File layout: a fixed-size header (magic, version, partition, text count,
// payload offset and size), a JSON-encoded payload of texts, and a footer
// carrying a CRC32 checksum of the payload.
package snapshot

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/permscan/permscan/internal/corpus"
)

const (
	MagicBytes    uint32 = 0x5053434E // "PSCN"
	FormatVersion uint32 = 1
	HeaderSize    int    = 40
	FooterSize    int    = 8

	fileSuffix = ".pscn"
)

// Header is the fixed-size header at the start of every snapshot file.
type Header struct {
	Magic         uint32
	Version       uint32
	Partition     uint32
	TextCount     uint32
	CreatedAt     int64
	PayloadOffset int64
	PayloadSize   int64
}

// Writer serialises corpus partitions into snapshot files.
type Writer struct {
	dataDir string
}

// NewWriter creates a Writer that writes snapshots into dataDir.
func NewWriter(dataDir string) *Writer {
	return &Writer{dataDir: dataDir}
}

// Write atomically creates a snapshot file for one partition. It writes to a
// .tmp file first and renames on success, returning the final file name.
func (w *Writer) Write(part int, texts []corpus.Text) (string, error) {
	name := fmt.Sprintf("snap_%d_%d%s", part, time.Now().UnixNano(), fileSuffix)
	finalPath := filepath.Join(w.dataDir, name)
	tmpPath := finalPath + ".tmp"

	if err := os.MkdirAll(w.dataDir, 0755); err != nil {
		return "", fmt.Errorf("creating snapshot directory: %w", err)
	}
	payload, err := json.Marshal(texts)
	if err != nil {
		return "", fmt.Errorf("marshaling snapshot payload: %w", err)
	}

	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("creating temp snapshot file: %w", err)
	}
	defer f.Close()

	header := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(header[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(header[4:8], FormatVersion)
	binary.LittleEndian.PutUint32(header[8:12], uint32(part))
	binary.LittleEndian.PutUint32(header[12:16], uint32(len(texts)))
	binary.LittleEndian.PutUint64(header[16:24], uint64(time.Now().Unix()))
	binary.LittleEndian.PutUint64(header[24:32], uint64(HeaderSize))
	binary.LittleEndian.PutUint64(header[32:40], uint64(len(payload)))
	if _, err := f.Write(header); err != nil {
		return "", fmt.Errorf("writing header: %w", err)
	}
	if _, err := f.Write(payload); err != nil {
		return "", fmt.Errorf("writing payload: %w", err)
	}

	footer := make([]byte, FooterSize)
	binary.LittleEndian.PutUint32(footer[0:4], crc32.ChecksumIEEE(payload))
	if _, err := f.Write(footer); err != nil {
		return "", fmt.Errorf("writing footer: %w", err)
	}
	if err := f.Sync(); err != nil {
		return "", fmt.Errorf("syncing snapshot file: %w", err)
	}
	f.Close()
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return "", fmt.Errorf("renaming snapshot file: %w", err)
	}
	return name, nil
}

// Read loads and validates a single snapshot file.
func Read(path string) (Header, []corpus.Text, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, nil, fmt.Errorf("opening snapshot file: %w", err)
	}
	defer f.Close()

	headerBytes := make([]byte, HeaderSize)
	if _, err := f.ReadAt(headerBytes, 0); err != nil {
		return Header{}, nil, fmt.Errorf("reading header: %w", err)
	}
	header := Header{
		Magic:         binary.LittleEndian.Uint32(headerBytes[0:4]),
		Version:       binary.LittleEndian.Uint32(headerBytes[4:8]),
		Partition:     binary.LittleEndian.Uint32(headerBytes[8:12]),
		TextCount:     binary.LittleEndian.Uint32(headerBytes[12:16]),
		CreatedAt:     int64(binary.LittleEndian.Uint64(headerBytes[16:24])),
		PayloadOffset: int64(binary.LittleEndian.Uint64(headerBytes[24:32])),
		PayloadSize:   int64(binary.LittleEndian.Uint64(headerBytes[32:40])),
	}
	if header.Magic != MagicBytes {
		return Header{}, nil, fmt.Errorf("invalid snapshot file: bad magic bytes %x", header.Magic)
	}
	if header.Version != FormatVersion {
		return Header{}, nil, fmt.Errorf("unsupported snapshot version %d", header.Version)
	}

	payload := make([]byte, header.PayloadSize)
	if _, err := f.ReadAt(payload, header.PayloadOffset); err != nil {
		return Header{}, nil, fmt.Errorf("reading payload: %w", err)
	}
	footer := make([]byte, FooterSize)
	if _, err := f.ReadAt(footer, header.PayloadOffset+header.PayloadSize); err != nil {
		return Header{}, nil, fmt.Errorf("reading footer: %w", err)
	}
	want := binary.LittleEndian.Uint32(footer[0:4])
	if got := crc32.ChecksumIEEE(payload); got != want {
		return Header{}, nil, fmt.Errorf("snapshot checksum mismatch: got %x, want %x", got, want)
	}

	var texts []corpus.Text
	if err := json.Unmarshal(payload, &texts); err != nil {
		return Header{}, nil, fmt.Errorf("parsing snapshot payload: %w", err)
	}
	if len(texts) != int(header.TextCount) {
		return Header{}, nil, fmt.Errorf("snapshot text count mismatch: got %d, header says %d", len(texts), header.TextCount)
	}
	return header, texts, nil
}

// LatestPerPartition scans dataDir and returns the newest snapshot file per
// partition. Snapshot names embed a nanosecond timestamp, so lexicographic
// order within a partition matches creation order.
func LatestPerPartition(dataDir string) (map[int]string, error) {
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[int]string{}, nil
		}
		return nil, fmt.Errorf("reading snapshot directory: %w", err)
	}

	type candidate struct {
		name string
		ts   int64
	}
	latest := make(map[int]candidate)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		var part int
		var ts int64
		if _, err := fmt.Sscanf(name, "snap_%d_%d", &part, &ts); err != nil {
			continue
		}
		if cur, ok := latest[part]; !ok || ts > cur.ts {
			latest[part] = candidate{name: name, ts: ts}
		}
	}

	result := make(map[int]string, len(latest))
	for part, c := range latest {
		result[part] = filepath.Join(dataDir, c.name)
	}
	return result, nil
}

// Prune removes all snapshot files in dataDir except the newest one per
// partition, returning the number of files deleted.
func Prune(dataDir string) (int, error) {
	keep, err := LatestPerPartition(dataDir)
	if err != nil {
		return 0, err
	}
	keepSet := make(map[string]struct{}, len(keep))
	for _, path := range keep {
		keepSet[filepath.Base(path)] = struct{}{}
	}

	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return 0, fmt.Errorf("reading snapshot directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), fileSuffix) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	deleted := 0
	for _, name := range names {
		if _, ok := keepSet[name]; ok {
			continue
		}
		if err := os.Remove(filepath.Join(dataDir, name)); err != nil {
			return deleted, fmt.Errorf("removing stale snapshot %s: %w", name, err)
		}
		deleted++
	}
	return deleted, nil
}
