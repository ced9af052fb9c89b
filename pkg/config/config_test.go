package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("ASSETD_CONFIG", "")
	t.Setenv("ASSETD_SCAN_BASE_URL", "https://scan.example.com/assets/")
	t.Setenv("ASSETD_ARTIFACT_PUBLIC_BASE_URL", "https://cdn.example.com/qr-images//")
}

func TestLoadDefaultsAndTrimming(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got, want := cfg.Assets.ScanBaseURL, "https://scan.example.com/assets"; got != want {
		t.Fatalf("ScanBaseURL = %q, want %q", got, want)
	}
	// Only one trailing slash is removed.
	if got, want := cfg.Artifacts.PublicBaseURL, "https://cdn.example.com/qr-images/"; got != want {
		t.Fatalf("PublicBaseURL = %q, want %q", got, want)
	}
	if cfg.Assets.CodePrefix != "QR-" {
		t.Fatalf("CodePrefix = %q, want QR-", cfg.Assets.CodePrefix)
	}
	if cfg.Manuals.PreviewDefault != 2000 {
		t.Fatalf("PreviewDefault = %d, want 2000", cfg.Manuals.PreviewDefault)
	}
	if cfg.Artifacts.Backend != BackendLocal {
		t.Fatalf("Backend = %q, want local", cfg.Artifacts.Backend)
	}
	if cfg.Bus.MaxDeliver != 5 {
		t.Fatalf("MaxDeliver = %d, want 5", cfg.Bus.MaxDeliver)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	setRequired(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "assetd.yaml")
	body := `
http:
  addr: ":9090"
assets:
  code_prefix: "EQ-"
artifacts:
  backend: S3
  s3_bucket: qr-bucket
reconcile:
  enabled: true
  interval: 30s
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("ASSETD_CONFIG", path)
	t.Setenv("ASSETD_HTTP_ADDR", ":7070")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HTTP.Addr != ":7070" {
		t.Fatalf("Addr = %q, want env override :7070", cfg.HTTP.Addr)
	}
	if cfg.Assets.CodePrefix != "EQ-" {
		t.Fatalf("CodePrefix = %q, want EQ-", cfg.Assets.CodePrefix)
	}
	if cfg.Artifacts.Backend != BackendS3 || cfg.Artifacts.S3Bucket != "qr-bucket" {
		t.Fatalf("Artifacts = %+v, want s3/qr-bucket", cfg.Artifacts)
	}
	if !cfg.Reconcile.Enabled || cfg.Reconcile.Interval != 30*time.Second {
		t.Fatalf("Reconcile = %+v, want enabled every 30s", cfg.Reconcile)
	}
}

func TestValidate(t *testing.T) {
	valid := Defaults()
	valid.Assets.ScanBaseURL = "https://scan.example.com"
	valid.Artifacts.PublicBaseURL = "https://cdn.example.com"

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing scan base", mutate: func(c *Config) { c.Assets.ScanBaseURL = "" }, wantErr: "ASSETD_SCAN_BASE_URL"},
		{name: "missing public base", mutate: func(c *Config) { c.Artifacts.PublicBaseURL = "" }, wantErr: "ASSETD_ARTIFACT_PUBLIC_BASE_URL"},
		{name: "unknown backend", mutate: func(c *Config) { c.Artifacts.Backend = "ftp" }, wantErr: "unknown artifact backend"},
		{name: "gcs without bucket", mutate: func(c *Config) { c.Artifacts.Backend = BackendGCS }, wantErr: "GCS_BUCKET"},
		{name: "zero max deliver", mutate: func(c *Config) { c.Bus.MaxDeliver = 0 }, wantErr: "ASSETD_BUS_MAX_DELIVER"},
		{name: "preview max below default", mutate: func(c *Config) { c.Manuals.PreviewMax = 10 }, wantErr: "below the default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
