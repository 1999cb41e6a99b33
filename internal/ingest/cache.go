package ingest

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

// Cache keeps a plaintext copy of each accepted document's raw bytes,
// addressed by source message and filename, so later analysis passes do not
// refetch mail. It is a companion to the candidate store and must be cleared
// together with a purge.
type Cache struct {
	fs  afero.Fs
	dir string
}

func NewCache(fs afero.Fs, dir string) *Cache {
	return &Cache{fs: fs, dir: dir}
}

func (c *Cache) path(messageID, filename string) string {
	return filepath.Join(c.dir, messageID, filepath.Base(filename))
}

// Put stores one document's bytes.
func (c *Cache) Put(messageID, filename string, document []byte) error {
	dir := filepath.Join(c.dir, messageID)
	if err := c.fs.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	if err := afero.WriteFile(c.fs, c.path(messageID, filename), document, 0o600); err != nil {
		return fmt.Errorf("writing cached document: %w", err)
	}

	return nil
}

// Get returns the cached bytes for one document.
func (c *Cache) Get(messageID, filename string) ([]byte, error) {
	document, err := afero.ReadFile(c.fs, c.path(messageID, filename))
	if err != nil {
		return nil, fmt.Errorf("reading cached document: %w", err)
	}

	return document, nil
}

// Clear removes every cached document. Called after a store purge.
func (c *Cache) Clear() error {
	if err := c.fs.RemoveAll(c.dir); err != nil {
		return fmt.Errorf("clearing attachment cache: %w", err)
	}

	return c.fs.MkdirAll(c.dir, 0o700)
}
