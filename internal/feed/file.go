package feed

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// FileSource replays log batches from a JSONL capture, one LogBatch per
// line. It backs the backfill command and deterministic pipeline tests.
type FileSource struct {
	file    *os.File
	scanner *bufio.Scanner
	line    int
}

func NewFileSource(path string) (*FileSource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open feed file: %w", err)
	}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &FileSource{file: file, scanner: scanner}, nil
}

func (s *FileSource) Next(ctx context.Context) (LogBatch, error) {
	for {
		if err := ctx.Err(); err != nil {
			return LogBatch{}, err
		}
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return LogBatch{}, fmt.Errorf("read feed file: %w", err)
			}
			return LogBatch{}, io.EOF
		}
		s.line++

		raw := s.scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var batch LogBatch
		if err := json.Unmarshal(raw, &batch); err != nil {
			return LogBatch{}, fmt.Errorf("feed file line %d: %w", s.line, err)
		}
		return batch, nil
	}
}

func (s *FileSource) Close() error { return s.file.Close() }
