package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	BackendLocal = "local"
	BackendS3    = "s3"
	BackendGCS   = "gcs"
)

// Defaults returns the configuration used before any file or environment is applied.
func Defaults() Config {
	return Config{
		HTTP: HTTPConfig{
			Addr:       ":8080",
			MCPEnabled: true,
		},
		Log: LogConfig{Mode: "development"},
		Bus: BusConfig{MaxDeliver: 5},
		Database: DatabaseConfig{
			Migrate: true,
		},
		Assets: AssetsConfig{
			CodePrefix: "QR-",
		},
		Artifacts: ArtifactsConfig{
			Backend:   BackendLocal,
			Dir:       "./qr-images",
			KeyPrefix: "qr/",
		},
		Manuals: ManualsConfig{
			PreviewDefault: 2000,
			PreviewMax:     50000,
		},
		Reconcile: ReconcileConfig{
			Interval:  time.Minute,
			BatchSize: 50,
		},
	}
}

// Load reads the optional YAML file named by ASSETD_CONFIG, applies
// environment overrides and validates the result.
func Load() (Config, error) {
	cfg := Defaults()

	if path := strings.TrimSpace(os.Getenv("ASSETD_CONFIG")); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}

	cfg.applyEnv()
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.HTTP.Addr = getEnv("ASSETD_HTTP_ADDR", c.HTTP.Addr)
	c.HTTP.MCPEnabled = getEnvBool("ASSETD_MCP_ENABLED", c.HTTP.MCPEnabled)

	c.Log.Mode = getEnv("ASSETD_LOG_MODE", c.Log.Mode)

	c.Database.URL = getEnv("ASSETD_DATABASE_URL", c.Database.URL)
	c.Database.Migrate = getEnvBool("ASSETD_DATABASE_MIGRATE", c.Database.Migrate)

	c.Bus.NATSURL = getEnv("NATS_URL", c.Bus.NATSURL)
	c.Bus.MaxDeliver = getEnvInt("ASSETD_BUS_MAX_DELIVER", c.Bus.MaxDeliver)

	c.Assets.ScanBaseURL = getEnv("ASSETD_SCAN_BASE_URL", c.Assets.ScanBaseURL)
	c.Assets.CodePrefix = getEnv("ASSETD_CODE_PREFIX", c.Assets.CodePrefix)

	c.Artifacts.Backend = getEnv("ASSETD_ARTIFACT_BACKEND", c.Artifacts.Backend)
	c.Artifacts.Dir = getEnv("ASSETD_ARTIFACT_DIR", c.Artifacts.Dir)
	c.Artifacts.PublicBaseURL = getEnv("ASSETD_ARTIFACT_PUBLIC_BASE_URL", c.Artifacts.PublicBaseURL)
	c.Artifacts.KeyPrefix = getEnv("ASSETD_ARTIFACT_KEY_PREFIX", c.Artifacts.KeyPrefix)
	c.Artifacts.S3Bucket = getEnv("S3_BUCKET", c.Artifacts.S3Bucket)
	c.Artifacts.GCSBucket = getEnv("GCS_BUCKET", c.Artifacts.GCSBucket)
	c.Artifacts.GCSEndpoint = getEnv("GCS_ENDPOINT", c.Artifacts.GCSEndpoint)

	c.Manuals.PreviewDefault = getEnvInt("ASSETD_MANUAL_PREVIEW_DEFAULT", c.Manuals.PreviewDefault)
	c.Manuals.PreviewMax = getEnvInt("ASSETD_MANUAL_PREVIEW_MAX", c.Manuals.PreviewMax)

	c.Reconcile.Enabled = getEnvBool("ASSETD_RECONCILE", c.Reconcile.Enabled)
	c.Reconcile.Interval = getEnvDuration("ASSETD_RECONCILE_INTERVAL", c.Reconcile.Interval)
	c.Reconcile.BatchSize = getEnvInt("ASSETD_RECONCILE_BATCH", c.Reconcile.BatchSize)
}

// normalize strips trailing slashes from base URLs once so that callers can
// join with a single "/".
func (c *Config) normalize() {
	c.Assets.ScanBaseURL = trimBase(c.Assets.ScanBaseURL)
	c.Artifacts.PublicBaseURL = trimBase(c.Artifacts.PublicBaseURL)
	c.Artifacts.Backend = strings.ToLower(strings.TrimSpace(c.Artifacts.Backend))
	c.Artifacts.KeyPrefix = strings.TrimLeft(strings.TrimSpace(c.Artifacts.KeyPrefix), "/")
}

func trimBase(s string) string {
	return strings.TrimSuffix(strings.TrimSpace(s), "/")
}

// Validate checks settings needed by every binary. Database presence is
// checked by the server only.
func (c Config) Validate() error {
	var errs []error

	if c.Assets.ScanBaseURL == "" {
		errs = append(errs, errors.New("ASSETD_SCAN_BASE_URL is required"))
	}
	if c.Artifacts.PublicBaseURL == "" {
		errs = append(errs, errors.New("ASSETD_ARTIFACT_PUBLIC_BASE_URL is required"))
	}

	switch c.Artifacts.Backend {
	case BackendLocal:
		if strings.TrimSpace(c.Artifacts.Dir) == "" {
			errs = append(errs, errors.New("ASSETD_ARTIFACT_DIR is required for the local backend"))
		}
	case BackendS3:
		if c.Artifacts.S3Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is required for the s3 backend"))
		}
	case BackendGCS:
		if c.Artifacts.GCSBucket == "" {
			errs = append(errs, errors.New("GCS_BUCKET is required for the gcs backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown artifact backend %q", c.Artifacts.Backend))
	}

	if c.Manuals.PreviewDefault <= 0 {
		errs = append(errs, fmt.Errorf("manual preview default must be positive, got %d", c.Manuals.PreviewDefault))
	}
	if c.Manuals.PreviewMax < c.Manuals.PreviewDefault {
		errs = append(errs, fmt.Errorf("manual preview max %d is below the default %d", c.Manuals.PreviewMax, c.Manuals.PreviewDefault))
	}
	if c.Bus.MaxDeliver <= 0 {
		errs = append(errs, fmt.Errorf("ASSETD_BUS_MAX_DELIVER must be positive, got %d", c.Bus.MaxDeliver))
	}
	if c.Reconcile.Enabled && c.Reconcile.Interval <= 0 {
		errs = append(errs, errors.New("ASSETD_RECONCILE_INTERVAL must be positive"))
	}

	return errors.Join(errs...)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
