package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	lerrors "github.com/FocuswithJustin/lumina/core/errors"
	"github.com/FocuswithJustin/lumina/internal/validation"
)

const (
	lockFileName   = ".lock"
	lockRetryDelay = 25 * time.Millisecond

	// DefaultLockTimeout bounds how long a cloud operation waits for another
	// process holding the store lock.
	DefaultLockTimeout = 5 * time.Second
)

// CloudStore is the mocked cloud document store. Each key maps to one JSON
// file below the root directory ("users/u1/history" becomes
// users/u1/history.json). Readers take a shared file lock and writers an
// exclusive one, so several lumina processes can share a root. Writes land
// in a temp file that is renamed over the target.
type CloudStore struct {
	root        string
	lockTimeout time.Duration

	// mu serializes goroutines of this process; a flock.Flock handle is
	// not reentrant-safe across goroutines.
	mu   sync.Mutex
	lock *flock.Flock
}

// OpenCloud creates the root directory if needed.
func OpenCloud(root string) (*CloudStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, lerrors.NewIO("create", root, err)
	}
	return &CloudStore{
		root:        root,
		lock:        flock.New(filepath.Join(root, lockFileName)),
		lockTimeout: DefaultLockTimeout,
	}, nil
}

// Name implements Backend.
func (c *CloudStore) Name() string { return "cloud" }

// Root returns the store directory.
func (c *CloudStore) Root() string { return c.root }

// Get implements Backend.
func (c *CloudStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	path, err := c.pathFor(key)
	if err != nil {
		return nil, false, err
	}
	unlock, err := c.acquire(ctx, false)
	if err != nil {
		return nil, false, err
	}
	defer unlock()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, lerrors.NewIO("read", path, err)
	}
	return data, true, nil
}

// Put implements Backend.
func (c *CloudStore) Put(ctx context.Context, key string, value []byte) error {
	path, err := c.pathFor(key)
	if err != nil {
		return err
	}
	unlock, err := c.acquire(ctx, true)
	if err != nil {
		return err
	}
	defer unlock()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return lerrors.NewIO("create", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return lerrors.NewIO("create", dir, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return lerrors.NewIO("write", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return lerrors.NewIO("sync", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return lerrors.NewIO("close", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return lerrors.NewIO("rename", path, err)
	}
	return nil
}

// Delete implements Backend.
func (c *CloudStore) Delete(ctx context.Context, key string) error {
	path, err := c.pathFor(key)
	if err != nil {
		return err
	}
	unlock, err := c.acquire(ctx, true)
	if err != nil {
		return err
	}
	defer unlock()

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return lerrors.NewIO("delete", path, err)
	}
	return nil
}

// Close implements Backend.
func (c *CloudStore) Close() error {
	return c.lock.Close()
}

// pathFor maps a slash-separated key onto the root. Each segment is
// path-escaped so a uid can never climb out of the store.
func (c *CloudStore) pathFor(key string) (string, error) {
	if key == "" {
		return "", lerrors.NewValidation("key", "empty")
	}
	segments := strings.Split(key, "/")
	for i, s := range segments {
		if s == "" || s == "." || s == ".." {
			return "", lerrors.NewValidation("key", fmt.Sprintf("invalid segment in %q", key))
		}
		segments[i] = url.PathEscape(s)
	}
	path := filepath.Join(c.root, filepath.Join(segments...)+".json")
	if err := validation.EnsureWithin(c.root, path); err != nil {
		return "", lerrors.NewValidation("key", err.Error())
	}
	return path, nil
}

// acquire takes the store lock, polling until the context ends or
// lockTimeout passes.
func (c *CloudStore) acquire(ctx context.Context, exclusive bool) (func(), error) {
	c.mu.Lock()

	try := c.lock.TryRLock
	if exclusive {
		try = c.lock.TryLock
	}

	deadline := time.Now().Add(c.lockTimeout)
	for {
		locked, err := try()
		if err != nil {
			c.mu.Unlock()
			return nil, lerrors.NewIO("lock", c.lock.Path(), err)
		}
		if locked {
			return func() {
				_ = c.lock.Unlock()
				c.mu.Unlock()
			}, nil
		}
		if time.Now().After(deadline) {
			c.mu.Unlock()
			return nil, lerrors.NewIO("lock", c.lock.Path(), errors.New("another process holds the store lock"))
		}
		select {
		case <-ctx.Done():
			c.mu.Unlock()
			return nil, ctx.Err()
		case <-time.After(lockRetryDelay):
		}
	}
}
