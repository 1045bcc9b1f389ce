package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadTrace_FileNotFound(t *testing.T) {
	_, err := LoadTrace(context.Background(), "/nonexistent/path/trace.parquet")
	if err == nil {
		t.Error("expected error for non-existent file")
	}
}

func TestLoadTrace_InvalidParquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invalid.parquet")
	if err := os.WriteFile(path, []byte("not a parquet file"), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	if _, err := LoadTrace(context.Background(), path); err == nil {
		t.Error("expected error for invalid parquet file")
	}
}

func TestLoadTrace_UnknownExtension(t *testing.T) {
	_, err := LoadTrace(context.Background(), "trace.xlsx")
	if !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestLoadTrace_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.csv")
	content := "step,state,pc,instruction\n1,start,0,SET 5\n2,start,1,STATE ACCEPT\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	df, err := LoadTrace(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadTrace failed: %v", err)
	}
	if df.NRows() != 2 || len(df.Series) != 4 {
		t.Errorf("expected 2x4 frame, got %dx%d", df.NRows(), len(df.Series))
	}
}
