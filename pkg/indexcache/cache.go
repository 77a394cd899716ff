// Package indexcache owns the process-wide lifecycle of the in-memory search
// index: Empty until first use, Loading while the artifact is downloaded and
// restored, Warm once a deserialized index is resident.
package indexcache

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"runtime/debug"
	"sync"

	"golang.org/x/sync/singleflight"

	"podcast-search/pkg/artifact"
	"podcast-search/pkg/index"
)

// ErrIndexNotFound means the remote artifact is absent. No query can proceed
// until an index has been built and uploaded.
var ErrIndexNotFound = errors.New("index artifact not found in remote storage")

// LoadError wraps any failure while moving from Empty to Warm: network error,
// disk error, corrupt or incompatible artifact. The cache stays Empty, so the
// next call retries from scratch; a partial index is never reachable.
type LoadError struct {
	Stage string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("index load failed during %s: %v", e.Stage, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Cache holds at most one deserialized index per process. It is safe for
// concurrent use; concurrent cold-start callers share one download instead of
// racing duplicates.
type Cache struct {
	store  artifact.Store
	tmpDir string

	group singleflight.Group

	mu   sync.RWMutex
	warm *index.Index
}

// New creates an Empty cache over the given artifact store. tmpDir is where
// the downloaded blob is staged before restoration; empty means os.TempDir.
func New(store artifact.Store, tmpDir string) *Cache {
	return &Cache{store: store, tmpDir: tmpDir}
}

// Warm reports whether an index is resident.
func (c *Cache) Warm() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.warm != nil
}

// GetOrLoad returns the resident index, loading it from remote storage first
// if needed. With forceRefresh the current index is discarded before loading,
// so the caller always observes a freshly downloaded artifact.
func (c *Cache) GetOrLoad(ctx context.Context, forceRefresh bool) (*index.Index, error) {
	if forceRefresh {
		c.discard()
	} else {
		c.mu.RLock()
		warm := c.warm
		c.mu.RUnlock()
		if warm != nil {
			return warm, nil
		}
	}

	// All concurrent cold-start callers join one in-flight load.
	v, err, _ := c.group.Do("load", func() (any, error) {
		c.mu.RLock()
		warm := c.warm
		c.mu.RUnlock()
		if warm != nil {
			return warm, nil
		}

		ix, err := c.load(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.warm = ix
		c.mu.Unlock()
		return ix, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*index.Index), nil
}

// discard drops the warm index reference and asks the runtime to hand unused
// pages back to the OS before the replacement load starts. Constrained hosts
// cannot afford the old and new index resident at once.
func (c *Cache) discard() {
	c.mu.Lock()
	wasWarm := c.warm != nil
	c.warm = nil
	c.mu.Unlock()

	if wasWarm {
		debug.FreeOSMemory()
	}
}

// load performs the Empty -> Warm transition: verify, download to disk,
// release the raw buffer, stream-restore. Any failure leaves the cache Empty.
func (c *Cache) load(ctx context.Context) (*index.Index, error) {
	logMemory("pre-download")

	exists, err := c.store.Exists(ctx)
	if err != nil {
		return nil, &LoadError{Stage: "existence check", Err: err}
	}
	if !exists {
		return nil, ErrIndexNotFound
	}

	tmp, err := os.CreateTemp(c.tmpDir, "search-index-*.bin")
	if err != nil {
		return nil, &LoadError{Stage: "staging", Err: err}
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	// Download lands on disk, not in a long-lived buffer: once the copy below
	// returns, the only owner of the compressed bytes is the temp file.
	n, err := c.store.Download(ctx, tmp)
	if err != nil {
		tmp.Close()
		return nil, &LoadError{Stage: "download", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return nil, &LoadError{Stage: "download", Err: err}
	}
	log.Printf("index cache: downloaded %d byte artifact", n)
	logMemory("post-download")

	f, err := os.Open(tmpPath)
	if err != nil {
		return nil, &LoadError{Stage: "restore", Err: err}
	}
	defer f.Close()

	logMemory("pre-restore")
	ix, err := index.Restore(f)
	if err != nil {
		return nil, &LoadError{Stage: "restore", Err: err}
	}
	logMemory("post-restore")

	log.Printf("index cache: restored index with %d entries", ix.Count())
	return ix, nil
}
