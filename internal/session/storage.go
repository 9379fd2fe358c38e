// Package session implements session-scoped key/value storage for the
// player state, the selected title and the current page. Entries are kept in
// a TSV file (key<TAB>json per line) under the XDG state directory and are
// rewritten atomically (temp+rename) on every change.
package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Well-known keys. Per-title player state lives under media.Ref.Key().
const (
	KeyCurrentPage   = "currentPage"
	KeySelectedMedia = "selectedMedia"
	PlayerPrefix     = "player_"
)

// Storage is a namespaced key/value store. An empty path keeps it in memory.
type Storage struct {
	mu   sync.Mutex
	path string
	data map[string]string
}

// Open loads the storage file at path. A missing file is an empty store.
func Open(path string) (*Storage, error) {
	s := &Storage{path: path, data: make(map[string]string)}
	if path == "" {
		return s, nil
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("opening session storage: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "\t")
		if !ok || key == "" || !json.Valid([]byte(value)) {
			continue // Skip malformed lines
		}
		s.data[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading session storage: %w", err)
	}

	return s, nil
}

// Memory returns a storage that is never written to disk.
func Memory() *Storage {
	s, _ := Open("")
	return s
}

// Get decodes the value stored under key into v. It reports false when the
// key is absent.
func (s *Storage) Get(key string, v any) (bool, error) {
	s.mu.Lock()
	raw, ok := s.data[key]
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("decoding %s: %w", key, err)
	}
	return true, nil
}

// Has reports whether key is present.
func (s *Storage) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	return ok
}

// Set stores v under key and persists the whole store.
func (s *Storage) Set(key string, v any) error {
	if err := validateKey(key); err != nil {
		return err
	}
	// Compact JSON never contains raw tabs or newlines.
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = string(raw)
	return s.flush()
}

// Remove deletes key. Removing a missing key is not an error.
func (s *Storage) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; !ok {
		return nil
	}
	delete(s.data, key)
	return s.flush()
}

// Keys returns the sorted keys starting with prefix.
func (s *Storage) Keys(prefix string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// RemovePrefix deletes every key starting with prefix.
func (s *Storage) RemovePrefix(prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := false
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			delete(s.data, k)
			removed = true
		}
	}
	if !removed {
		return nil
	}
	return s.flush()
}

// Clear wipes the store.
func (s *Storage) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]string)
	return s.flush()
}

// Len returns the number of stored keys.
func (s *Storage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

// flush writes all entries with a temp file + rename. Callers hold mu.
func (s *Storage) flush() error {
	if s.path == "" {
		return nil
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating session dir: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, "session-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	writer := bufio.NewWriter(tmpFile)
	for _, k := range keys {
		if _, err := writer.WriteString(k + "\t" + s.data[k] + "\n"); err != nil {
			tmpFile.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("writing session storage: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("flushing session storage: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming session file: %w", err)
	}

	return nil
}

func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("empty session key")
	}
	if strings.ContainsAny(key, "\t\n\r") {
		return fmt.Errorf("session key %q contains whitespace control characters", key)
	}
	return nil
}
