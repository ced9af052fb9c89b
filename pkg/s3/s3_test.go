package s3

import "testing"

func TestEncodeSHA256(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "empty", in: "", wantErr: true},
		{name: "not hex", in: "zz", wantErr: true},
		{
			name: "digest of empty input",
			in:   "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
			want: "47DEQpj8HBSa+/TImW+5JCeuQeRkm5NMpJWZG3hSuFU=",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := encodeSHA256(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("encodeSHA256() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("encodeSHA256() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("S3_ENDPOINT", " seaweed:8333 ")
	t.Setenv("S3_REGION", "")
	t.Setenv("S3_DISABLE_TLS", "true")
	t.Setenv("S3_FORCE_PATH_STYLE", "false")

	cfg := ConfigFromEnv()
	if cfg.Endpoint != "seaweed:8333" {
		t.Fatalf("Endpoint = %q, want seaweed:8333", cfg.Endpoint)
	}
	if cfg.Region != "us-east-1" {
		t.Fatalf("Region = %q, want us-east-1", cfg.Region)
	}
	if !cfg.DisableTLS || cfg.ForcePathStyle {
		t.Fatalf("DisableTLS = %v ForcePathStyle = %v, want true/false", cfg.DisableTLS, cfg.ForcePathStyle)
	}
}
