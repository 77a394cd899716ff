package artifact

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "nested", "index.bin"))

	exists, err := store.Exists(ctx)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if exists {
		t.Fatal("artifact should not exist before upload")
	}

	payload := []byte("opaque artifact bytes")
	if err := store.Upload(ctx, bytes.NewReader(payload)); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	exists, err = store.Exists(ctx)
	if err != nil {
		t.Fatalf("Exists after upload: %v", err)
	}
	if !exists {
		t.Fatal("artifact should exist after upload")
	}

	var buf bytes.Buffer
	n, err := store.Download(ctx, &buf)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if n != int64(len(payload)) {
		t.Errorf("Download returned %d bytes, want %d", n, len(payload))
	}
	if !bytes.Equal(buf.Bytes(), payload) {
		t.Errorf("downloaded bytes differ from uploaded")
	}
}

func TestFileStore_UploadReplacesAtomically(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "index.bin"))

	if err := store.Upload(ctx, strings.NewReader("first")); err != nil {
		t.Fatal(err)
	}
	if err := store.Upload(ctx, strings.NewReader("second")); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if _, err := store.Download(ctx, &buf); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "second" {
		t.Errorf("artifact = %q, want %q", buf.String(), "second")
	}
}
