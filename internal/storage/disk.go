package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// DiskBackend keeps media under a local directory served at BaseURL.
type DiskBackend struct {
	Root    string
	BaseURL string

	dirs      map[string]bool
	dirsMutex sync.Mutex
}

// NewDiskBackend creates a backend rooted at root.
func NewDiskBackend(root, baseURL string) *DiskBackend {
	return &DiskBackend{
		Root:    root,
		BaseURL: baseURL,
		dirs:    make(map[string]bool, 4),
	}
}

func (d *DiskBackend) createDir(dir string) error {
	d.dirsMutex.Lock()
	defer d.dirsMutex.Unlock()

	if d.dirs[dir] {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	d.dirs[dir] = true
	return nil
}

func (d *DiskBackend) fullPath(key string) string {
	return filepath.Join(d.Root, filepath.FromSlash(key))
}

// Save writes r to key through a temp file so readers never see partial images.
func (d *DiskBackend) Save(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	if err := validKey(key); err != nil {
		return err
	}
	fileName := d.fullPath(key)
	if err := d.createDir(filepath.Dir(fileName)); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(fileName), ".upload-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), fileName)
}

// Delete removes key; a missing file is not an error.
func (d *DiskBackend) Delete(_ context.Context, key string) error {
	if err := validKey(key); err != nil {
		return err
	}
	err := os.Remove(d.fullPath(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// URL returns the public address of key.
func (d *DiskBackend) URL(key string) string {
	return joinURL(d.BaseURL, key)
}
