// Package fs implements the filesystem-backed photo store for photowall.
// A single flat directory of image files is the source of truth; capture
// times parsed from image metadata live in a JSON side cache that can be
// rebuilt from the images at any time.
package fs

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/banux/photowall/internal/gallery"
	"github.com/banux/photowall/internal/imgmeta"
)

// Listing bounds, enforced regardless of the requested limit.
const (
	defaultListLimit = 200
	maxListLimit     = 2000
)

// Store is a filesystem-backed photo gallery rooted at a single directory.
type Store struct {
	root     string
	metaPath string // {root}/.metadata.json, parsed capture times

	// parseTaken extracts the capture time of an image file. Swapped out
	// in tests to count parses.
	parseTaken func(path string) (int64, bool)

	mu   sync.RWMutex
	meta map[string]metaEntry
}

// New creates a store rooted at dir, creating the directory if needed and
// loading the persisted metadata cache.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	s := &Store{
		root:       dir,
		metaPath:   filepath.Join(dir, metaFileName),
		parseTaken: imgmeta.Extract,
		meta:       make(map[string]metaEntry),
	}
	// A missing or corrupt cache rebuilds lazily on the first listing.
	_ = s.loadMeta()
	return s, nil
}

// scanDir returns the names of all image files currently in the store,
// sorted by name.
func (s *Store) scanDir() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("read uploads dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if allowedExts[strings.ToLower(filepath.Ext(e.Name()))] {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// photoFor assembles the Photo view of a stored file: decoded filename
// fields plus the cached capture time. Must be called with s.mu held.
func (s *Store) photoFor(name string) gallery.Photo {
	p := gallery.Photo{Name: name}
	ms, caption, ok := decodeName(name)
	p.Caption = caption
	if ok {
		p.UploadMs = ms
	} else if info, err := os.Stat(filepath.Join(s.root, name)); err == nil {
		p.UploadMs = info.ModTime().UnixMilli()
	}
	if e, ok := s.meta[name]; ok && e.TakenMs != nil {
		taken := *e.TakenMs
		p.TakenMs = &taken
	}
	return p
}

// List implements gallery.Gallery. The directory is the authoritative
// existence set; cache entries are backfilled for any file not yet indexed
// before sorting and pagination are applied.
func (s *Store) List(opts gallery.ListOptions) ([]gallery.Photo, error) {
	names, err := s.scanDir()
	if err != nil {
		return nil, err
	}
	s.ensureMeta(names)

	s.mu.RLock()
	photos := make([]gallery.Photo, 0, len(names))
	for _, n := range names {
		photos = append(photos, s.photoFor(n))
	}
	s.mu.RUnlock()

	// Sort value: "taken" falls back to the upload time for photos with no
	// capture time, so missing metadata degrades to upload order.
	byTaken := opts.Sort == "taken"
	sortVal := func(p gallery.Photo) int64 {
		if byTaken && p.TakenMs != nil {
			return *p.TakenMs
		}
		return p.UploadMs
	}

	asc := opts.Order == "asc"
	sort.Slice(photos, func(i, j int) bool {
		vi, vj := sortVal(photos[i]), sortVal(photos[j])
		if vi != vj {
			if asc {
				return vi < vj
			}
			return vi > vj
		}
		return photos[i].Name < photos[j].Name
	})

	// The cursor is strict and direction-aware on the sort value, so a
	// poller never sees an item twice across refreshes.
	if opts.Before != 0 {
		kept := photos[:0]
		for _, p := range photos {
			v := sortVal(p)
			if (asc && v > opts.Before) || (!asc && v < opts.Before) {
				kept = append(kept, p)
			}
		}
		photos = kept
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if len(photos) > limit {
		photos = photos[:limit]
	}
	return photos, nil
}

// StorePhoto writes src into the store under a freshly encoded name and
// indexes its capture time immediately. It implements gallery.Uploader.
// src is closed after reading regardless of success.
func (s *Store) StorePhoto(filename, caption string, src io.ReadCloser) (*gallery.Photo, error) {
	defer src.Close()

	base := filepath.Base(filename)
	ext := strings.ToLower(filepath.Ext(base))
	if !allowedExts[ext] {
		return nil, fmt.Errorf("%w %q (only jpg, jpeg, png, gif and webp are accepted)",
			gallery.ErrUnsupportedType, ext)
	}

	token, err := randToken()
	if err != nil {
		return nil, err
	}
	name := encodeName(time.Now().UnixMilli(), token, base, caption, ext)
	destPath := filepath.Join(s.root, name)

	// Refuse to overwrite an existing file
	if _, err := os.Stat(destPath); err == nil {
		return nil, fmt.Errorf("file %q already exists", name)
	}

	// Write to a temp file first, then rename (atomic on most filesystems)
	tmp, err := os.CreateTemp(s.root, ".upload-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }() // clean up temp on failure

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return nil, fmt.Errorf("rename upload: %w", err)
	}

	entry := s.parseEntry(name)

	s.mu.Lock()
	s.meta[name] = entry
	// Best effort; the cache is rebuildable from the images.
	_ = s.saveMeta()
	photo := s.photoFor(name)
	s.mu.Unlock()

	return &photo, nil
}

// DeletePhoto removes the named file and its cache entry. It implements
// gallery.Deleter.
func (s *Store) DeletePhoto(name string) error {
	path, err := s.ImagePath(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %q", gallery.ErrNotFound, name)
		}
		return fmt.Errorf("delete %q: %w", name, err)
	}

	s.mu.Lock()
	delete(s.meta, name)
	// Best effort; a stale persisted entry is dropped by the next rescan.
	_ = s.saveMeta()
	s.mu.Unlock()
	return nil
}

// Rescan re-parses every image in the store and rebuilds the cache from
// scratch, dropping entries for files that no longer exist. It implements
// gallery.Rescanner.
func (s *Store) Rescan() (gallery.RescanResult, error) {
	names, err := s.scanDir()
	if err != nil {
		return gallery.RescanResult{}, err
	}

	meta := make(map[string]metaEntry, len(names))
	for _, n := range names {
		meta[n] = s.parseEntry(n)
	}

	s.mu.Lock()
	s.meta = meta
	err = s.saveMeta()
	s.mu.Unlock()
	if err != nil {
		return gallery.RescanResult{}, err
	}
	return gallery.RescanResult{Rescanned: len(names), Cached: len(meta)}, nil
}

// ImagePath returns the on-disk path of the named image after validating
// that name is a plain filename with an allowed extension and that the file
// exists. It implements gallery.Gallery.
func (s *Store) ImagePath(name string) (string, error) {
	if name == "" || name != filepath.Base(name) {
		return "", fmt.Errorf("%w: %q", gallery.ErrNotFound, name)
	}
	if !allowedExts[strings.ToLower(filepath.Ext(name))] {
		return "", fmt.Errorf("%w: %q", gallery.ErrNotFound, name)
	}
	path := filepath.Join(s.root, name)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: %q", gallery.ErrNotFound, name)
	}
	return path, nil
}

// WriteZip streams a ZIP archive of every image in the store to w, sorted
// by name, and returns the number of files archived. It implements
// gallery.Archiver.
func (s *Store) WriteZip(w io.Writer) (int, error) {
	names, err := s.scanDir()
	if err != nil {
		return 0, err
	}

	zw := zip.NewWriter(w)
	count := 0
	for _, name := range names {
		f, err := os.Open(filepath.Join(s.root, name))
		if err != nil {
			if os.IsNotExist(err) {
				continue // deleted while archiving
			}
			return 0, fmt.Errorf("open %q: %w", name, err)
		}
		err = addZipFile(zw, f, name)
		f.Close()
		if err != nil {
			return 0, fmt.Errorf("zip %q: %w", name, err)
		}
		count++
	}
	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("close zip: %w", err)
	}
	return count, nil
}

// addZipFile writes one deflate-compressed entry to the archive.
func addZipFile(zw *zip.Writer, f *os.File, name string) error {
	info, err := f.Stat()
	if err != nil {
		return err
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = name
	hdr.Method = zip.Deflate
	dst, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, f)
	return err
}
