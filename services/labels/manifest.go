package labels

import (
	"time"

	"gopkg.in/yaml.v3"
)

const manifestVersion = "1"

// Manifest lists every label sheet in an export.
type Manifest struct {
	Version          string    `yaml:"version"`
	CreatedAt        time.Time `yaml:"created_at"`
	ScanBaseURL      string    `yaml:"scan_base_url"`
	Signer           string    `yaml:"signer,omitempty"`
	SigningPublicKey string    `yaml:"signing_public_key,omitempty"`
	Signature        string    `yaml:"signature,omitempty"`
	Labels           []Label   `yaml:"labels"`
}

// Label describes one code image in the archive.
type Label struct {
	Code     string `yaml:"code"`
	Name     string `yaml:"name"`
	Location string `yaml:"location,omitempty"`
	Locator  string `yaml:"locator,omitempty"`
	Payload  string `yaml:"payload"`
	File     string `yaml:"file"`
	Size     int64  `yaml:"size"`
	SHA256   string `yaml:"sha256"`
}

// SigningBytes is the manifest without its signature.
func (m Manifest) SigningBytes() ([]byte, error) {
	clone := m
	clone.Signature = ""
	return yaml.Marshal(clone)
}
