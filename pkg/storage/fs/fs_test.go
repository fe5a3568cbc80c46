package fs

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/tendant/direct-upload/pkg/storage"
)

func TestFSBackend_BasicOps(t *testing.T) {
	tmp := t.TempDir()
	backend, err := New(Config{BaseDir: tmp})
	if err != nil {
		t.Fatalf("new fs backend: %v", err)
	}

	ctx := context.Background()
	key := "uploads/ab/cd1234/file.txt"

	// Upload
	data := []byte("hello fs")
	if err := backend.UploadWithParams(ctx, bytes.NewReader(data), storage.UploadParams{ObjectKey: key, MimeType: "text/plain"}); err != nil {
		t.Fatalf("upload: %v", err)
	}

	// GetObjectMeta
	meta, err := backend.GetObjectMeta(ctx, key)
	if err != nil {
		t.Fatalf("get meta: %v", err)
	}
	if meta.Size != int64(len(data)) {
		t.Fatalf("expected size %d, got %d", len(data), meta.Size)
	}
	if meta.ContentType != "text/plain; charset=utf-8" {
		t.Fatalf("unexpected content type %q", meta.ContentType)
	}

	// Download
	rc, err := backend.Download(ctx, key)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	got, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(got) != string(data) {
		t.Fatalf("download mismatch: %q", string(got))
	}

	// Delete
	if err := backend.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmp, "uploads")); !os.IsNotExist(err) {
		t.Fatalf("expected empty directories to be removed")
	}
	if _, err := backend.GetObjectMeta(ctx, key); err != storage.ErrObjectNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestFSBackend_RejectsEscapingKeys(t *testing.T) {
	backend, err := New(Config{BaseDir: t.TempDir()})
	if err != nil {
		t.Fatalf("new fs backend: %v", err)
	}

	for _, key := range []string{"../outside.txt", "uploads/../../outside.txt", ""} {
		if err := backend.Upload(context.Background(), key, bytes.NewReader([]byte("x"))); err == nil {
			t.Fatalf("expected error for key %q", key)
		}
	}
}

func TestFSBackend_RequiresBaseDir(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error for empty base dir")
	}
}
