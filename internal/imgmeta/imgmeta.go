// Package imgmeta extracts capture timestamps from image files.
//
// Extraction checks metadata sources in a fixed priority order: EXIF
// (DateTimeOriginal, DateTimeDigitized, DateTime), then the IPTC IIM
// DateCreated/TimeCreated datasets, then XMP date elements. The first
// parseable value wins. A file with no usable metadata is not an error;
// callers fall back to the upload time.
package imgmeta

import (
	"bytes"
	"io"
	"os"

	"github.com/rwcarlsen/goexif/exif"
)

// xmpScanLimit bounds how much of a file is searched for an XMP packet.
const xmpScanLimit = 1 << 20

// xmpDateTags are the XMP element names checked for a capture date, in order.
var xmpDateTags = []string{
	"xmp:CreateDate",
	"xmp:DateCreated",
	"xmp:ModifyDate",
	"exif:DateTimeOriginal",
}

// exifDateFields are the EXIF fields checked for a capture date, in order.
var exifDateFields = []exif.FieldName{
	exif.DateTimeOriginal,
	exif.DateTimeDigitized,
	exif.DateTime,
}

// Extract returns the capture time of the image at path in epoch
// milliseconds. The boolean is false when the file is unreadable or carries
// no parseable capture time in any supported metadata block.
func Extract(path string) (int64, bool) {
	f, err := os.Open(path)
	if err != nil {
		return 0, false
	}
	defer f.Close()

	if ms, ok := exifTakenMs(f); ok {
		return ms, true
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0, false
	}
	if ms, ok := iptcTakenMs(f); ok {
		return ms, true
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0, false
	}
	return xmpTakenMs(f)
}

// exifTakenMs reads the EXIF block (JPEG APP1 or raw TIFF) and returns the
// first parseable date field.
func exifTakenMs(r io.Reader) (int64, bool) {
	x, err := exif.Decode(r)
	if err != nil {
		return 0, false
	}
	for _, field := range exifDateFields {
		tag, err := x.Get(field)
		if err != nil {
			continue
		}
		s, err := tag.StringVal()
		if err != nil {
			continue
		}
		if ms, ok := ParseDate(s); ok {
			return ms, true
		}
	}
	return 0, false
}

// xmpTakenMs scans the head of the file for an embedded XMP packet and pulls
// the first known date element out of it. The scan is a plain byte search,
// which covers JPEG APP1, PNG iTXt and WebP XMP chunks alike since XMP is
// stored uncompressed in all of them.
func xmpTakenMs(r io.Reader) (int64, bool) {
	head, err := io.ReadAll(io.LimitReader(r, xmpScanLimit))
	if err != nil {
		return 0, false
	}
	for _, tag := range xmpDateTags {
		i := bytes.Index(head, []byte(tag))
		if i < 0 {
			continue
		}
		window := head[i:min(i+200, len(head))]
		j1 := bytes.IndexByte(window, '>')
		if j1 < 0 {
			continue
		}
		j2 := bytes.IndexByte(window[j1+1:], '<')
		if j2 < 0 {
			continue
		}
		val := string(bytes.TrimSpace(window[j1+1 : j1+1+j2]))
		if ms, ok := ParseDate(val); ok {
			return ms, true
		}
	}
	return 0, false
}
