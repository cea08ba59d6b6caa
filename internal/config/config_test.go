package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/banux/photowall/internal/config"
)

func TestDefault_Values(t *testing.T) {
	cfg := config.Default()
	if cfg.ListenAddr != ":8081" {
		t.Errorf("ListenAddr: got %q, want :8081", cfg.ListenAddr)
	}
	if cfg.UploadsDir != "./uploads" {
		t.Errorf("UploadsDir: got %q, want ./uploads", cfg.UploadsDir)
	}
	if cfg.AllowUpload {
		t.Error("AllowUpload: got true, want false (uploads are opt-in)")
	}
	if cfg.UploadPIN != "" || cfg.AdminPIN != "" || cfg.ViewPIN != "" {
		t.Errorf("PINs: got %q/%q/%q, want all empty", cfg.UploadPIN, cfg.AdminPIN, cfg.ViewPIN)
	}
	if cfg.MaxUploadBytes != 10<<20 {
		t.Errorf("MaxUploadBytes: got %d, want %d", cfg.MaxUploadBytes, 10<<20)
	}
}

func TestLoad_EmptyPath_UsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error: %v", err)
	}
	if cfg.ListenAddr != ":8081" {
		t.Errorf("ListenAddr: got %q, want :8081", cfg.ListenAddr)
	}
	if cfg.UploadsDir != "./uploads" {
		t.Errorf("UploadsDir: got %q, want ./uploads", cfg.UploadsDir)
	}
}

func TestLoad_FromYAMLFile(t *testing.T) {
	yaml := `
listen_addr: ":9090"
uploads_dir: "/var/lib/photos"
allow_upload: true
upload_pin: "4321"
admin_pin: "moderator"
view_pin: "guests"
max_upload_bytes: 2097152
`
	path := writeTemp(t, "config.yaml", yaml)
	clearEnv(t)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.ListenAddr != ":9090" {
		t.Errorf("ListenAddr: got %q, want :9090", cfg.ListenAddr)
	}
	if cfg.UploadsDir != "/var/lib/photos" {
		t.Errorf("UploadsDir: got %q, want /var/lib/photos", cfg.UploadsDir)
	}
	if !cfg.AllowUpload {
		t.Error("AllowUpload: got false, want true (from file)")
	}
	if cfg.UploadPIN != "4321" {
		t.Errorf("UploadPIN: got %q, want 4321", cfg.UploadPIN)
	}
	if cfg.AdminPIN != "moderator" {
		t.Errorf("AdminPIN: got %q, want moderator", cfg.AdminPIN)
	}
	if cfg.ViewPIN != "guests" {
		t.Errorf("ViewPIN: got %q, want guests", cfg.ViewPIN)
	}
	if cfg.MaxUploadBytes != 2097152 {
		t.Errorf("MaxUploadBytes: got %d, want 2097152", cfg.MaxUploadBytes)
	}
}

func TestLoad_PartialYAML_UsesDefaults(t *testing.T) {
	// Only override one field; the others should stay at defaults.
	yaml := `listen_addr: ":7777"`
	path := writeTemp(t, "partial.yaml", yaml)
	clearEnv(t)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.ListenAddr != ":7777" {
		t.Errorf("ListenAddr: got %q, want :7777", cfg.ListenAddr)
	}
	if cfg.UploadsDir != "./uploads" {
		t.Errorf("UploadsDir: got %q, want ./uploads (default)", cfg.UploadsDir)
	}
	if cfg.AllowUpload {
		t.Error("AllowUpload: got true, want false (default)")
	}
}

func TestLoad_EnvVarsOverrideFile(t *testing.T) {
	yaml := `
listen_addr: ":9090"
uploads_dir: "/file/photos"
admin_pin: "filepin"
`
	path := writeTemp(t, "config.yaml", yaml)
	clearEnv(t)

	// Environment variables should win over file values.
	t.Setenv("LISTEN_ADDR", ":5555")
	t.Setenv("UPLOADS_DIR", "/env/photos")
	t.Setenv("ADMIN_PIN", "envpin")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.ListenAddr != ":5555" {
		t.Errorf("ListenAddr: got %q, want :5555 (from env)", cfg.ListenAddr)
	}
	if cfg.UploadsDir != "/env/photos" {
		t.Errorf("UploadsDir: got %q, want /env/photos (from env)", cfg.UploadsDir)
	}
	if cfg.AdminPIN != "envpin" {
		t.Errorf("AdminPIN: got %q, want envpin (from env)", cfg.AdminPIN)
	}
}

func TestLoad_EnvVarsOverrideDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("LISTEN_ADDR", ":3000")
	t.Setenv("UPLOADS_DIR", "/custom/photos")
	t.Setenv("UPLOAD_PIN", "party")
	t.Setenv("VIEW_PIN", "family")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.ListenAddr != ":3000" {
		t.Errorf("ListenAddr: got %q, want :3000", cfg.ListenAddr)
	}
	if cfg.UploadsDir != "/custom/photos" {
		t.Errorf("UploadsDir: got %q, want /custom/photos", cfg.UploadsDir)
	}
	if cfg.UploadPIN != "party" {
		t.Errorf("UploadPIN: got %q, want party", cfg.UploadPIN)
	}
	if cfg.ViewPIN != "family" {
		t.Errorf("ViewPIN: got %q, want family", cfg.ViewPIN)
	}
}

func TestLoad_NonexistentFile_ReturnsError(t *testing.T) {
	_, err := config.Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error for nonexistent config file, got nil")
	}
}

func TestLoad_InvalidYAML_ReturnsError(t *testing.T) {
	path := writeTemp(t, "bad.yaml", "{ invalid yaml: [")
	_, err := config.Load(path)
	if err == nil {
		t.Error("expected error for invalid YAML, got nil")
	}
}

func TestFindConfigFile_EnvVar(t *testing.T) {
	path := writeTemp(t, "explicit.yaml", "listen_addr: \":1234\"")
	t.Setenv("PHOTOWALL_CONFIG", path)

	found := config.FindConfigFile()
	if found != path {
		t.Errorf("FindConfigFile: got %q, want %q", found, path)
	}
}

func TestFindConfigFile_NoFile_ReturnsEmpty(t *testing.T) {
	// Ensure no env var and no local file interferes.
	t.Setenv("PHOTOWALL_CONFIG", "")

	// Run from a fresh temp directory so there's no photowall.yaml nearby.
	orig, _ := os.Getwd()
	dir := t.TempDir()
	_ = os.Chdir(dir)
	defer func() { _ = os.Chdir(orig) }()

	found := config.FindConfigFile()
	// We can't guarantee there's no ~/.config/photowall/config.yaml on the
	// test machine, so only verify the env-var and local-file cases don't fire.
	if found == "photowall.yaml" {
		t.Error("should not return local photowall.yaml from temp dir")
	}
}

// ---- upload toggle, port and size limits ----

func TestLoad_AllowUpload_TruthyForms(t *testing.T) {
	cases := []struct {
		value string
		want  bool
	}{
		{"1", true},
		{"true", true},
		{"TRUE", true},
		{"yes", true},
		{"on", true},
		{"0", false},
		{"false", false},
		{"no", false},
		{"off", false},
		{"banana", false},
	}
	for _, tc := range cases {
		clearEnv(t)
		t.Setenv("ALLOW_UPLOAD", tc.value)

		cfg, err := config.Load("")
		if err != nil {
			t.Fatalf("Load error for ALLOW_UPLOAD=%q: %v", tc.value, err)
		}
		if cfg.AllowUpload != tc.want {
			t.Errorf("ALLOW_UPLOAD=%q: got %v, want %v", tc.value, cfg.AllowUpload, tc.want)
		}
	}
}

func TestLoad_AllowUpload_UnsetKeepsFileValue(t *testing.T) {
	yaml := `allow_upload: true`
	path := writeTemp(t, "upload.yaml", yaml)
	clearEnv(t)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if !cfg.AllowUpload {
		t.Error("AllowUpload: got false, want true (from file, env unset)")
	}
}

func TestLoad_Port_Numeric(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.ListenAddr != ":9000" {
		t.Errorf("ListenAddr with PORT=9000: got %q, want :9000", cfg.ListenAddr)
	}
}

func TestLoad_Port_NonNumeric_Ignored(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "not-a-port")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.ListenAddr != ":8081" {
		t.Errorf("ListenAddr with bad PORT: got %q, want :8081 (default)", cfg.ListenAddr)
	}
}

func TestLoad_ListenAddrWinsOverPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("LISTEN_ADDR", "127.0.0.1:8888")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:8888" {
		t.Errorf("ListenAddr: got %q, want 127.0.0.1:8888 (LISTEN_ADDR wins)", cfg.ListenAddr)
	}
}

func TestLoad_MaxUploadBytes_FromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("MAX_UPLOAD_BYTES", "5242880")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.MaxUploadBytes != 5242880 {
		t.Errorf("MaxUploadBytes: got %d, want 5242880", cfg.MaxUploadBytes)
	}
}

func TestLoad_MaxUploadBytes_Invalid_KeepsDefault(t *testing.T) {
	for _, v := range []string{"lots", "-1", "0"} {
		clearEnv(t)
		t.Setenv("MAX_UPLOAD_BYTES", v)

		cfg, err := config.Load("")
		if err != nil {
			t.Fatalf("Load error for MAX_UPLOAD_BYTES=%q: %v", v, err)
		}
		// Invalid or non-positive values are silently ignored.
		if cfg.MaxUploadBytes != 10<<20 {
			t.Errorf("MAX_UPLOAD_BYTES=%q: got %d, want %d (preserved default)", v, cfg.MaxUploadBytes, 10<<20)
		}
	}
}

func TestLoad_MaxUploadBytes_NonPositiveInFile_ResetsToDefault(t *testing.T) {
	yaml := `max_upload_bytes: 0`
	path := writeTemp(t, "zerosize.yaml", yaml)
	clearEnv(t)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.MaxUploadBytes != 10<<20 {
		t.Errorf("MaxUploadBytes with 0 in file: got %d, want %d (default)", cfg.MaxUploadBytes, 10<<20)
	}
}

// clearEnv unsets every environment variable Load consults.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"LISTEN_ADDR", "PORT", "UPLOADS_DIR", "ALLOW_UPLOAD",
		"UPLOAD_PIN", "ADMIN_PIN", "VIEW_PIN", "MAX_UPLOAD_BYTES",
	} {
		t.Setenv(k, "")
	}
}

// writeTemp creates a temporary file with the given content and returns its path.
func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writeTemp: %v", err)
	}
	return path
}
