package driver

import (
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"ember/internal/observ"
	"ember/internal/project"
)

// Bumped when UnitSummary changes shape; stale entries read as misses.
const diskCacheSchemaVersion uint16 = 1

// DiskCache stores per-unit compile summaries keyed by content digest.
// Thread-safe for concurrent access.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// UnitSummary is the cached record of one compiled unit. It is enough to
// answer "did this exact source compile cleanly, and what did it declare"
// without rerunning the passes.
type UnitSummary struct {
	Schema uint16 `msgpack:"schema"`

	Unit   string `msgpack:"unit"`
	State  string `msgpack:"state"`
	Broken bool   `msgpack:"broken"`

	Types       int `msgpack:"types"`
	Functions   int `msgpack:"functions"`
	Globals     int `msgpack:"globals"`
	Diagnostics int `msgpack:"diagnostics"`

	// Declared type hashes, sorted, for quick cross-unit diffing.
	TypeHashes []uint64 `msgpack:"type_hashes"`

	Timing observ.Report `msgpack:"timing"`
}

// OpenDiskCache initializes a disk cache at the standard user location.
func OpenDiskCache(app string) (*DiskCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return OpenDiskCacheAt(filepath.Join(base, app))
}

// OpenDiskCacheAt initializes a disk cache rooted at an explicit directory.
func OpenDiskCacheAt(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

func (c *DiskCache) pathFor(key project.Digest) string {
	hexKey := hex.EncodeToString(key[:])
	// Subdirectory keeps entries separable from any future artifact kinds.
	return filepath.Join(c.dir, "units", hexKey+".mp")
}

// Put serializes and writes a summary to the disk cache.
func (c *DiskCache) Put(key project.Digest, payload *UnitSummary) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(f.Name()) }()

	enc := msgpack.NewEncoder(f)
	if err := enc.Encode(payload); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	// Atomic replace.
	return os.Rename(f.Name(), p)
}

// Get reads a summary from the disk cache. A missing entry or a schema
// mismatch is a miss, not an error.
func (c *DiskCache) Get(key project.Digest, out *UnitSummary) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer func() { _ = f.Close() }()

	dec := msgpack.NewDecoder(f)
	if err := dec.Decode(out); err != nil {
		return false, err
	}
	if out.Schema != diskCacheSchemaVersion {
		return false, nil
	}
	return true, nil
}

// DropAll invalidates the whole cache, useful after format changes.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		return err
	}
	if err := os.RemoveAll(old); err != nil {
		return err
	}
	return os.MkdirAll(c.dir, 0o755)
}
