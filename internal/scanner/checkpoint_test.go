package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileCheckpointSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "checkpoint.json")
	cp := NewFileCheckpoint(path, true)

	if _, ok, err := cp.Load(context.Background()); err != nil || ok {
		t.Fatalf("expected empty checkpoint, got ok=%v err=%v", ok, err)
	}
	if err := cp.Save(context.Background(), 1234); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok, err := cp.Load(context.Background())
	if err != nil || !ok || got != 1234 {
		t.Fatalf("load: got=%d ok=%v err=%v", got, ok, err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temporary file left behind")
	}
}

func TestFileCheckpointDisabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	cp := NewFileCheckpoint(path, false)
	if err := cp.Save(context.Background(), 10); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("disabled checkpoint wrote a file")
	}
}
