// Package config handles loading application configuration from a YAML file
// with environment variable overrides.
//
// Config file format (photowall.yaml):
//
//	listen_addr: ":8081"
//	uploads_dir: "./uploads"
//	allow_upload: true
//	upload_pin: "1234"
//	admin_pin: "change-me"
//	view_pin: ""
//	max_upload_bytes: 10485760
//
// Configuration sources, in increasing priority order:
//  1. Built-in defaults
//  2. YAML config file (located by FindConfigFile or explicit path)
//  3. Environment variables (LISTEN_ADDR, PORT, UPLOADS_DIR, ALLOW_UPLOAD,
//     UPLOAD_PIN, ADMIN_PIN, VIEW_PIN, MAX_UPLOAD_BYTES)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	// ListenAddr is the TCP address for the HTTP server (e.g. ":8081").
	ListenAddr string `yaml:"listen_addr"`

	// UploadsDir is the directory where photos are stored.
	UploadsDir string `yaml:"uploads_dir"`

	// AllowUpload enables the public upload form and endpoint.
	AllowUpload bool `yaml:"allow_upload"`

	// UploadPIN, when set, must accompany every upload (X-Upload-Pin header
	// or "pin" form field).
	UploadPIN string `yaml:"upload_pin"`

	// AdminPIN protects moderation actions (delete, rescan) via the
	// X-Admin-Pin header. Leave empty to disable moderation entirely.
	AdminPIN string `yaml:"admin_pin"`

	// ViewPIN, when set, gates the wall, slideshow, admin, list and
	// download surfaces behind a login. Leave empty for an open gallery.
	ViewPIN string `yaml:"view_pin"`

	// MaxUploadBytes caps the size of a single upload request.
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
}

// Default returns a Config populated with sensible defaults. Uploads are
// off until allow_upload (or ALLOW_UPLOAD=1) switches them on, so a freshly
// deployed wall is view-only.
func Default() Config {
	return Config{
		ListenAddr:     ":8081",
		UploadsDir:     "./uploads",
		MaxUploadBytes: 10 << 20,
	}
}

// Load reads configuration from the YAML file at path (if non-empty), then
// applies environment variable overrides on top. Returns the merged Config.
// If path is empty, only defaults and environment variables are applied.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %q: %w", path, err)
		}
	}

	// Environment variables always override file values so that Docker /
	// systemd overrides still work even when a config file is present.
	// PORT is accepted as a bare port number; LISTEN_ADDR wins over it.
	if v := os.Getenv("PORT"); v != "" {
		if _, err := strconv.Atoi(v); err == nil {
			cfg.ListenAddr = ":" + v
		}
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("UPLOADS_DIR"); v != "" {
		cfg.UploadsDir = v
	}
	if v := os.Getenv("ALLOW_UPLOAD"); v != "" {
		cfg.AllowUpload = truthy(v)
	}
	if v := os.Getenv("UPLOAD_PIN"); v != "" {
		cfg.UploadPIN = v
	}
	if v := os.Getenv("ADMIN_PIN"); v != "" {
		cfg.AdminPIN = v
	}
	if v := os.Getenv("VIEW_PIN"); v != "" {
		cfg.ViewPIN = v
	}
	if v := os.Getenv("MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.MaxUploadBytes = n
		}
		// Invalid values are silently ignored; the previous value stays.
	}

	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = Default().MaxUploadBytes
	}

	return cfg, nil
}

// truthy interprets the common boolean spellings used in env vars.
func truthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// FindConfigFile returns the path to the first config file found in the
// standard search order, or "" if none is found.
//
// Search order:
//  1. PHOTOWALL_CONFIG environment variable (explicit override)
//  2. ./photowall.yaml (current working directory)
//  3. ~/.config/photowall/config.yaml (XDG user config)
func FindConfigFile() string {
	// 1. Explicit path via environment variable.
	if p := os.Getenv("PHOTOWALL_CONFIG"); p != "" {
		return p
	}

	// 2. Config file in the current working directory.
	if _, err := os.Stat("photowall.yaml"); err == nil {
		return "photowall.yaml"
	}

	// 3. XDG user config directory.
	if home, err := os.UserHomeDir(); err == nil {
		p := filepath.Join(home, ".config", "photowall", "config.yaml")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
