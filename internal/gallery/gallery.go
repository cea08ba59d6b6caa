// Package gallery provides the photo collection abstraction for photowall.
// It defines the core data types and the Gallery interface that storage
// backends implement.
package gallery

import (
	"errors"
	"io"
)

// Photo represents one stored image, computed from the filename, the file
// itself and the metadata cache at listing time. It is never persisted as a
// structured record.
type Photo struct {
	// Name is the unique filename on disk. It encodes the upload time, a
	// random disambiguator, the sanitized original basename and an optional
	// caption (see the fs backend's filename codec).
	Name string

	// UploadMs is the upload instant in epoch milliseconds, parsed from the
	// filename's leading digit run, or the file's mtime when absent.
	UploadMs int64

	// TakenMs is the capture time in epoch milliseconds from the image's
	// EXIF/IPTC/XMP metadata. Nil when no capture time could be extracted.
	TakenMs *int64

	// Caption is the sanitized caption decoded from the filename ("" if none).
	// Stored form; display code replaces underscores with spaces.
	Caption string
}

// ListOptions carries parameters for Gallery.List.
type ListOptions struct {
	// Sort is the sort key: "upload" (default) or "taken". The taken sort
	// falls back to the upload time for photos without a capture time.
	Sort string

	// Order is the direction: "desc" (default) or "asc".
	Order string

	// Limit is the maximum number of photos to return. Values <= 0 use the
	// server default; values above the fixed cap are clamped.
	Limit int

	// Before is a pagination cursor on the sort value, exclusive and
	// direction-aware: desc keeps values < Before, asc keeps values > Before.
	// 0 disables the cursor.
	Before int64
}

// RescanResult reports what a metadata rescan did.
type RescanResult struct {
	// Rescanned is the number of image files whose metadata was re-parsed.
	Rescanned int

	// Cached is the number of entries in the cache after the rescan.
	Cached int
}

// ErrNotFound is returned when a named photo does not exist in the store.
var ErrNotFound = errors.New("photo not found")

// ErrUnsupportedType is returned when a file's extension is outside the
// allowed image set.
var ErrUnsupportedType = errors.New("unsupported file type")

// Gallery is the interface that storage backends must satisfy.
// A Gallery provides read access to the photo collection.
type Gallery interface {
	// List returns photos sorted, filtered and truncated per opts.
	List(opts ListOptions) ([]Photo, error)

	// ImagePath returns the filesystem path for a stored photo name.
	// Returns ErrNotFound if the name does not resolve to a stored image.
	ImagePath(name string) (string, error)
}

// Uploader is an optional interface that gallery backends may implement
// to support adding photos via file upload.
type Uploader interface {
	// StorePhoto saves src into the store under a freshly encoded filename
	// derived from the original filename and optional caption, indexes its
	// capture time, and returns the resulting Photo.
	// src is consumed and closed by the implementation.
	StorePhoto(filename, caption string, src io.ReadCloser) (*Photo, error)
}

// Deleter is an optional interface for gallery backends that support
// removing a photo and its cache entry.
type Deleter interface {
	// DeletePhoto removes the named photo from disk and drops its metadata
	// cache entry. Returns ErrNotFound if no such photo exists.
	DeletePhoto(name string) error
}

// Rescanner is an optional interface for gallery backends that support
// forcing a full metadata re-parse, picking up files added or removed
// externally and dropping stale cache entries.
type Rescanner interface {
	// Rescan re-parses capture times for every image currently in the store,
	// rebuilds the metadata cache from scratch and persists it.
	Rescan() (RescanResult, error)
}

// Archiver is an optional interface for gallery backends that can bundle
// the whole collection into a ZIP archive.
type Archiver interface {
	// WriteZip writes a ZIP archive of all stored images to w, entries
	// sorted by name. Returns the number of images written.
	WriteZip(w io.Writer) (int, error)
}
