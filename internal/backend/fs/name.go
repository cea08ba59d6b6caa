package fs

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// allowedExts is the set of image extensions the store accepts and lists.
var allowedExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

const (
	maxStemLen      = 60
	maxCaptionLen   = 40
	stemPlaceholder = "photo"

	// captionSep separates the basename stem from the caption inside a
	// stored filename. sanitize can never emit two adjacent underscores,
	// so the last occurrence of this separator is always the encoder's own.
	captionSep = "__"
)

// sanitize maps s onto the safe filename alphabet [A-Za-z0-9._-]: every run
// of other characters or underscores becomes a single underscore, leading
// and trailing underscores are dropped, and the result is capped at maxLen.
// May return the empty string.
func sanitize(s string, maxLen int) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		default:
			pendingSep = true
		}
	}
	out := b.String()
	if len(out) > maxLen {
		out = out[:maxLen]
	}
	return strings.TrimRight(out, "_")
}

// randToken returns the 6-hex-char disambiguator used in stored filenames.
func randToken() (string, error) {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate name token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// encodeName builds the stored filename for an upload received at uploadMs:
// "{uploadMs}-{token}-{stem}{ext}", with "__{caption}" appended to the stem
// when a caption is given. base keeps its extension; ext must already be
// validated and lowercased by the caller.
func encodeName(uploadMs int64, token, base, caption, ext string) string {
	stem := sanitize(strings.TrimSuffix(base, filepath.Ext(base)), maxStemLen)
	if stem == "" {
		stem = stemPlaceholder
	}
	name := strconv.FormatInt(uploadMs, 10) + "-" + token + "-" + stem
	if c := sanitize(caption, maxCaptionLen); c != "" {
		name += captionSep + c
	}
	return name + ext
}

// decodeName splits a stored filename into its encoded fields. ok is false
// when the leading upload-time prefix is absent or unparseable; the caption
// is decoded either way.
func decodeName(name string) (uploadMs int64, caption string, ok bool) {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if i := strings.LastIndex(stem, captionSep); i >= 0 {
		caption = stem[i+len(captionSep):]
	}

	dash := strings.IndexByte(name, '-')
	if dash <= 0 {
		return 0, caption, false
	}
	ms, err := strconv.ParseInt(name[:dash], 10, 64)
	if err != nil || ms < 0 {
		return 0, caption, false
	}
	return ms, caption, true
}
