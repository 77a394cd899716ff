package artifact

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	storage "github.com/supabase-community/storage-go"
	supabase "github.com/supabase-community/supabase-go"
)

// SupabaseConfig locates the artifact inside a Supabase storage bucket.
type SupabaseConfig struct {
	// SupabaseURL is the project URL, e.g. "https://[project-ref].supabase.co".
	SupabaseURL string

	// SupabaseKey is the API key. Use the service_role key for uploads.
	SupabaseKey string

	// Bucket is the storage bucket holding the artifact.
	Bucket string

	// Key is the object key of the artifact inside the bucket,
	// e.g. "search/index.msgpack.gz".
	Key string
}

// SupabaseStore keeps the deployment's single index artifact in a Supabase
// storage bucket.
type SupabaseStore struct {
	sdk    *supabase.Client
	bucket string
	key    string
}

// NewSupabaseStore connects the SDK client and binds it to one bucket/key.
func NewSupabaseStore(cfg SupabaseConfig) (*SupabaseStore, error) {
	if cfg.SupabaseURL == "" || cfg.SupabaseKey == "" {
		return nil, fmt.Errorf("supabase URL and key are required")
	}
	if cfg.Bucket == "" || cfg.Key == "" {
		return nil, fmt.Errorf("artifact bucket and key are required")
	}

	sdk, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseKey, nil)
	if err != nil {
		return nil, fmt.Errorf("initialize supabase SDK: %w", err)
	}

	return &SupabaseStore{sdk: sdk, bucket: cfg.Bucket, key: cfg.Key}, nil
}

// Exists lists the artifact's parent folder and scans for the object name.
func (s *SupabaseStore) Exists(ctx context.Context) (bool, error) {
	dir := path.Dir(s.key)
	if dir == "." {
		dir = ""
	}
	base := path.Base(s.key)

	files, err := s.sdk.Storage.ListFiles(s.bucket, dir, storage.FileSearchOptions{})
	if err != nil {
		return false, fmt.Errorf("list artifact folder %q: %w", dir, err)
	}
	for _, f := range files {
		if f.Name == base {
			return true, nil
		}
	}
	return false, nil
}

// Download fetches the artifact and writes it to w. The storage SDK returns
// the object as a single byte slice; it is written out immediately and not
// retained, so the caller decides how long the raw bytes live.
func (s *SupabaseStore) Download(ctx context.Context, w io.Writer) (int64, error) {
	data, err := s.sdk.Storage.DownloadFile(s.bucket, s.key)
	if err != nil {
		return 0, fmt.Errorf("download artifact %s/%s: %w", s.bucket, s.key, err)
	}
	n, err := w.Write(data)
	if err != nil {
		return int64(n), fmt.Errorf("persist artifact bytes: %w", err)
	}
	return int64(n), nil
}

// Upload replaces the artifact, creating it if absent.
func (s *SupabaseStore) Upload(ctx context.Context, r io.Reader) error {
	contentType := "application/octet-stream"
	upsert := true

	_, err := s.sdk.Storage.UploadFile(s.bucket, s.key, r, storage.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "exists") {
		_, err = s.sdk.Storage.UpdateFile(s.bucket, s.key, r)
	}
	if err != nil {
		return fmt.Errorf("upload artifact %s/%s: %w", s.bucket, s.key, err)
	}
	return nil
}
