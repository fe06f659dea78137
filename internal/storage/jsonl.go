package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"chocoLedger/internal/model"
)

// DecodeErrorSink appends decode failures to a JSONL file so corrupt events
// can be inspected after the fact without halting ingestion.
type DecodeErrorSink struct {
	path string
	mu   sync.Mutex
}

func NewDecodeErrorSink(path string) *DecodeErrorSink {
	return &DecodeErrorSink{path: path}
}

// Put appends a batch of decode error records as JSON lines. A nil sink or
// empty path is a no-op.
func (s *DecodeErrorSink) Put(errs []model.DecodeError) error {
	if s == nil || s.path == "" || len(errs) == 0 {
		return nil
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create errors dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open errors file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, rec := range errs {
		line, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal decode error: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write decode error: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush errors file: %w", err)
	}

	return nil
}
