package fs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// metaFileName is the cache document kept next to the images. The dot name
// keeps it out of directory listings and ZIP exports.
const metaFileName = ".metadata.json"

// metaEntry is one cache record. TakenMs is null in the persisted JSON when
// parsing found no capture time; the key stays present so the file is not
// parsed again on the next listing.
type metaEntry struct {
	TakenMs *int64 `json:"taken_ms"`
}

// loadMeta reads the cache document into s.meta. A missing file is not an
// error; a malformed one leaves the cache empty, to be rebuilt lazily.
func (s *Store) loadMeta() error {
	data, err := os.ReadFile(s.metaPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read metadata cache: %w", err)
	}
	meta := make(map[string]metaEntry)
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("parse metadata cache: %w", err)
	}
	s.meta = meta
	return nil
}

// saveMeta persists s.meta as a single JSON document, whole-file overwrite.
// Must be called with s.mu held.
func (s *Store) saveMeta() error {
	data, err := json.MarshalIndent(s.meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata cache: %w", err)
	}
	if err := os.WriteFile(s.metaPath, data, 0644); err != nil {
		return fmt.Errorf("write metadata cache: %w", err)
	}
	return nil
}

// parseEntry extracts the capture time of the named image into a cache
// record. Parse failure is recorded as an explicit no-value entry.
func (s *Store) parseEntry(name string) metaEntry {
	ms, ok := s.parseTaken(filepath.Join(s.root, name))
	if !ok {
		return metaEntry{}
	}
	return metaEntry{TakenMs: &ms}
}

// ensureMeta backfills cache entries for names that have none yet, then
// persists. Image parsing runs outside the lock; two concurrent calls may
// both parse the same new file, which is harmless since the result is
// identical either way.
func (s *Store) ensureMeta(names []string) {
	s.mu.RLock()
	var missing []string
	for _, n := range names {
		if _, ok := s.meta[n]; !ok {
			missing = append(missing, n)
		}
	}
	s.mu.RUnlock()
	if len(missing) == 0 {
		return
	}

	parsed := make(map[string]metaEntry, len(missing))
	for _, n := range missing {
		parsed[n] = s.parseEntry(n)
	}

	s.mu.Lock()
	for n, e := range parsed {
		s.meta[n] = e
	}
	// Best effort; the cache is rebuildable from the images.
	_ = s.saveMeta()
	s.mu.Unlock()
}
