package cache

import (
	"context"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const fileVersion = 2

// CacheFilePath derives cache path from config path
// config.yaml -> config.data-cache
func CacheFilePath(configPath string) string {
	ext := filepath.Ext(configPath)
	base := strings.TrimSuffix(configPath, ext)
	return base + ".data-cache"
}

// FileStore keeps entries in a gob file, rewritten on every change.
type FileStore struct {
	mu   sync.Mutex
	path string
	data fileData
}

func newFileData() fileData {
	return fileData{
		Metadata: Metadata{
			Version:     fileVersion,
			CreatedAt:   time.Now(),
			LastUpdated: time.Now(),
		},
		Entries: make(map[string][]byte),
	}
}

// OpenFileStore reads the cache at path, or starts an empty one if the
// file doesn't exist. A file from another cache version is discarded.
func OpenFileStore(path string) (*FileStore, error) {
	fs := &FileStore{path: path, data: newFileData()}

	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return fs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening cache file: %w", err)
	}
	defer file.Close()

	var data fileData
	if err := gob.NewDecoder(file).Decode(&data); err != nil {
		return nil, fmt.Errorf("decoding cache: %w", err)
	}
	if data.Metadata.Version != fileVersion {
		return fs, nil
	}
	if data.Entries == nil {
		data.Entries = make(map[string][]byte)
	}
	fs.data = data
	return fs, nil
}

func (fs *FileStore) Get(_ context.Context, key string) (Entry, bool, error) {
	fs.mu.Lock()
	raw, ok := fs.data.Entries[key]
	fs.mu.Unlock()
	if !ok {
		return Entry{}, false, nil
	}

	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, false, fmt.Errorf("decoding entry %s: %w", key, err)
	}
	return e, true, nil
}

func (fs *FileStore) Put(_ context.Context, key string, e Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding entry %s: %w", key, err)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.data.Entries[key] = raw
	return fs.save()
}

// Clear removes all cached entries but preserves metadata
func (fs *FileStore) Clear(_ context.Context) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.data.Entries = make(map[string][]byte)
	return fs.save()
}

// save writes cache to disk atomically (write to temp, then rename)
func (fs *FileStore) save() error {
	fs.data.Metadata.LastUpdated = time.Now()

	tmpPath := fs.path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp cache file: %w", err)
	}

	if err := gob.NewEncoder(file).Encode(&fs.data); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("encoding cache: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp cache file: %w", err)
	}

	if err := os.Rename(tmpPath, fs.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming cache file: %w", err)
	}

	return nil
}

// Delete removes the cache file from disk
func Delete(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil // Already deleted
	}
	return err
}
