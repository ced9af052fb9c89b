package app

import (
	"context"
	"strings"
	"testing"

	"assetd/pkg/config"
)

func TestNewArtifactStore(t *testing.T) {
	ctx := context.Background()

	store, local, err := NewArtifactStore(ctx, config.ArtifactsConfig{
		Backend:       config.BackendLocal,
		Dir:           t.TempDir(),
		PublicBaseURL: "https://assets.example.com/qr-images",
	})
	if err != nil {
		t.Fatalf("local backend: %v", err)
	}
	if local == nil || store == nil {
		t.Fatal("local backend must expose its directory store")
	}
	locator, err := store.Put(ctx, "QR-1.png", []byte("png"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if locator != "https://assets.example.com/qr-images/QR-1.png" {
		t.Fatalf("locator = %q", locator)
	}

	if _, _, err := NewArtifactStore(ctx, config.ArtifactsConfig{Backend: "ftp"}); err == nil || !strings.Contains(err.Error(), "ftp") {
		t.Fatalf("unknown backend error = %v", err)
	}
	if _, _, err := NewArtifactStore(ctx, config.ArtifactsConfig{Backend: config.BackendLocal, PublicBaseURL: "https://x"}); err == nil {
		t.Fatal("expected error for a missing directory")
	}
}

func TestNewRequiresDatabaseURL(t *testing.T) {
	if _, err := New(context.Background(), config.Defaults(), nil); err == nil {
		t.Fatal("expected error without a database url")
	}
}
