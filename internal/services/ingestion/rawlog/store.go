package rawlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"trackframe-worker-go/internal/models"
)

// Entry is one line of the raw event log
type Entry struct {
	ReceivedAt string             `json:"received_at"`
	Source     models.EventSource `json:"source"`
	Sequence   *int               `json:"sequence"`
	OriginFile *string            `json:"origin_file"`
	Raw        any                `json:"raw"`
}

// Store appends raw events to a JSON Lines file. Writes are serialized so
// concurrent live and replay callers never interleave lines.
type Store struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// Open creates the parent directory and opens path for appending
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create raw log dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open raw log: %w", err)
	}
	return &Store{path: path, file: f}, nil
}

// Append writes raw as a single line
func (s *Store) Append(raw models.RawEvent) error {
	entry := Entry{
		ReceivedAt: raw.ReceivedAt.UTC().Format(time.RFC3339Nano),
		Source:     raw.Source,
		Sequence:   raw.Sequence,
		Raw:        raw.Payload,
	}
	if raw.OriginFile != "" {
		origin := raw.OriginFile
		entry.OriginFile = &origin
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode raw event: %w", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return fmt.Errorf("raw log %s is closed", s.path)
	}
	if _, err := s.file.Write(line); err != nil {
		return fmt.Errorf("write raw log: %w", err)
	}
	return nil
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
