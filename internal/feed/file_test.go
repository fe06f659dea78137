package feed

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestFileSourceReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.jsonl")
	content := `{"slot":10,"signature":"sig-a","block_time":100,"logs":["Program log: one"]}

{"slot":11,"signature":"sig-b","block_time":101,"failed":true,"logs":[]}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write capture: %v", err)
	}

	src, err := NewFileSource(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer src.Close()

	ctx := context.Background()
	first, err := src.Next(ctx)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	want := LogBatch{Slot: 10, Signature: "sig-a", BlockTime: 100, Logs: []string{"Program log: one"}}
	if !reflect.DeepEqual(first, want) {
		t.Fatalf("first = %+v, want %+v", first, want)
	}

	second, err := src.Next(ctx)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if second.Signature != "sig-b" || !second.Failed {
		t.Fatalf("second = %+v", second)
	}

	if _, err := src.Next(ctx); !errors.Is(err, io.EOF) {
		t.Fatalf("end of file: got %v, want io.EOF", err)
	}
}

func TestFileSourceMalformedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.jsonl")
	if err := os.WriteFile(path, []byte("{not json}\n"), 0o644); err != nil {
		t.Fatalf("write capture: %v", err)
	}
	src, err := NewFileSource(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer src.Close()

	if _, err := src.Next(context.Background()); err == nil {
		t.Fatal("expected parse error")
	}
}
