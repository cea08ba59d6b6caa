// Package web embeds the static frontend assets.
package web

import "embed"

// FS holds the embedded web directory contents.
//
//go:embed upload.html disabled.html wall.html slideshow.html admin.html
var FS embed.FS
