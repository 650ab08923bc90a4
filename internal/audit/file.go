package audit

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// GenesisHash is the prev_hash of the first line in a new log.
const GenesisHash = "sha256:0000000000000000000000000000000000000000000000000000000000000000"

type fileRecord struct {
	Entry
	PrevHash string `json:"prev_hash"`
}

// FileSink is an append-only JSONL log. Each line carries the hash of the
// line before it, so any edit or deletion breaks the chain.
type FileSink struct {
	mu       sync.Mutex
	file     *os.File
	prevHash string
}

// OpenFile opens (or creates) the log at path and recovers the chain tail.
func OpenFile(path string) (*FileSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("audit: create directory: %w", err)
	}

	prevHash := GenesisHash
	last, err := lastLine(path)
	if err != nil {
		return nil, err
	}
	if len(last) > 0 {
		prevHash = HashLine(last)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("audit: open file: %w", err)
	}
	return &FileSink{file: f, prevHash: prevHash}, nil
}

func lastLine(path string) ([]byte, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("audit: read existing log: %w", err)
	}
	defer f.Close()

	var last []byte
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		last = append(last[:0], sc.Bytes()...)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("audit: scan existing log: %w", err)
	}
	return last, nil
}

// Record appends e and syncs it to disk.
func (s *FileSink) Record(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	line, err := json.Marshal(fileRecord{Entry: e, PrevHash: s.prevHash})
	if err != nil {
		return fmt.Errorf("audit: marshal entry: %w", err)
	}
	if _, err := s.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("audit: write entry: %w", err)
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("audit: sync: %w", err)
	}
	s.prevHash = HashLine(line)
	return nil
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

// HashLine returns "sha256:<hex>" of line.
func HashLine(line []byte) string {
	h := sha256.Sum256(line)
	return "sha256:" + hex.EncodeToString(h[:])
}

// Verify walks the log at path and returns the number of lines if the chain
// is intact, or an error naming the first broken line.
func Verify(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("audit: open: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	expected := GenesisHash
	n := 0
	for sc.Scan() {
		n++
		var rec fileRecord
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			return n - 1, fmt.Errorf("audit: line %d: parse: %w", n, err)
		}
		if rec.PrevHash != expected {
			return n - 1, fmt.Errorf("audit: line %d: prev_hash %s, expected %s", n, rec.PrevHash, expected)
		}
		expected = HashLine(sc.Bytes())
	}
	if err := sc.Err(); err != nil {
		return n, fmt.Errorf("audit: scan: %w", err)
	}
	return n, nil
}
