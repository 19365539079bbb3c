// Package logs provides the append-only JSONL result log used by the
// batch runner.
package logs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/corpora-labs/corpora-cli/internal/core/domain"
	"github.com/corpora-labs/corpora-cli/internal/core/ports/driven"
)

// Ensure JSONLLog implements the interface.
var _ driven.ResultLog = (*JSONLLog)(nil)

// JSONLLog appends one JSON object per line to a file. Every record is
// synced before Append returns, so a crash mid-run loses at most the
// in-flight item. Records are never rewritten.
type JSONLLog struct {
	mu   sync.Mutex
	file *os.File
	path string
}

// NewJSONLLog opens (creating if needed) an append-only result log.
func NewJSONLLog(path string) (*JSONLLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("opening result log: %w", err)
	}

	return &JSONLLog{file: file, path: path}, nil
}

// Append writes one record and syncs it to durable storage.
func (l *JSONLLog) Append(record domain.QueryResult) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshalling result %s: %w", record.PromptID, err)
	}
	line = append(line, '\n')

	if _, err := l.file.Write(line); err != nil {
		return fmt.Errorf("appending result %s: %w", record.PromptID, err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("syncing result log: %w", err)
	}
	return nil
}

// Path returns the log file path.
func (l *JSONLLog) Path() string {
	return l.path
}

// Close releases the underlying file.
func (l *JSONLLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
