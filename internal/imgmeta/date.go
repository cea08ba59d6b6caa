package imgmeta

import (
	"strings"
	"time"
)

// isoLayouts cover values carrying a T separator, with or without a zone.
// time.Parse accepts a fractional second after the seconds field even when
// the layout omits it, so fractional variants need no layouts of their own.
var isoLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// plainLayouts cover zone-less EXIF and IPTC style values.
var plainLayouts = []string{
	"2006:01:02 15:04:05",
	"2006-01-02 15:04:05",
	"2006:01:02",
	"2006-01-02",
}

// ParseDate interprets a metadata date string and returns the instant as
// epoch milliseconds. Accepted forms are ISO-8601 with a T separator
// (optional fraction, optional zone, EXIF-style colons in the date part
// normalized first), EXIF "2006:01:02 15:04:05", and the same with dash
// separators or a bare date. Zone-less values are taken as UTC.
func ParseDate(s string) (int64, bool) {
	s = strings.Trim(s, " \t\r\n\x00")
	if s == "" {
		return 0, false
	}

	if strings.ContainsRune(s, 'T') || strings.HasSuffix(s, "Z") {
		v := s
		if i := strings.IndexByte(v, 'T'); i >= 8 {
			v = strings.Replace(v[:i], ":", "-", 2) + v[i:]
		}
		for _, layout := range isoLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t.UnixMilli(), true
			}
		}
	}

	for _, layout := range plainLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UnixMilli(), true
		}
	}
	return 0, false
}
