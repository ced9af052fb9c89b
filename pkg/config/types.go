package config

import "time"

type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Bus       BusConfig       `yaml:"bus"`
	Assets    AssetsConfig    `yaml:"assets"`
	Artifacts ArtifactsConfig `yaml:"artifacts"`
	Manuals   ManualsConfig   `yaml:"manuals"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
}

type HTTPConfig struct {
	Addr       string `yaml:"addr"`
	MCPEnabled bool   `yaml:"mcp_enabled"`
}

type LogConfig struct {
	Mode string `yaml:"mode"`
}

type DatabaseConfig struct {
	URL     string `yaml:"url"`
	Migrate bool   `yaml:"migrate"`
}

type BusConfig struct {
	NATSURL    string `yaml:"nats_url"`
	MaxDeliver int    `yaml:"max_deliver"`
}

type AssetsConfig struct {
	ScanBaseURL string `yaml:"scan_base_url"`
	CodePrefix  string `yaml:"code_prefix"`
}

type ArtifactsConfig struct {
	Backend       string `yaml:"backend"`
	Dir           string `yaml:"dir"`
	PublicBaseURL string `yaml:"public_base_url"`
	KeyPrefix     string `yaml:"key_prefix"`
	S3Bucket      string `yaml:"s3_bucket"`
	GCSBucket     string `yaml:"gcs_bucket"`
	GCSEndpoint   string `yaml:"gcs_endpoint"`
}

type ManualsConfig struct {
	PreviewDefault int `yaml:"preview_default"`
	PreviewMax     int `yaml:"preview_max"`
}

type ReconcileConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Interval  time.Duration `yaml:"interval"`
	BatchSize int           `yaml:"batch_size"`
}
