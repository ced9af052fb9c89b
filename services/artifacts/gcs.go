package artifacts

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"assetd/pkg/metrics"
)

const gcsWriteTimeout = 2 * time.Minute

// GCSStore uploads artifacts to a Google Cloud Storage bucket.
type GCSStore struct {
	open       func(ctx context.Context, key string) io.WriteCloser
	keyPrefix  string
	publicBase string
}

// NewGCSClient creates a storage client. A non-empty endpoint points the
// client at an emulator and disables authentication.
func NewGCSClient(ctx context.Context, endpoint string) (*storage.Client, error) {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint != "" {
		return storage.NewClient(ctx,
			option.WithEndpoint(endpoint+"/storage/v1/"),
			option.WithoutAuthentication(),
		)
	}
	return storage.NewClient(ctx, option.WithScopes(storage.ScopeReadWrite))
}

// NewGCSStore returns a store writing objects to bucket.
func NewGCSStore(client *storage.Client, bucket, keyPrefix, publicBase string) (*GCSStore, error) {
	if client == nil {
		return nil, errors.New("gcs client is required")
	}
	if bucket == "" {
		return nil, errors.New("bucket is required")
	}
	handle := client.Bucket(bucket)
	open := func(ctx context.Context, key string) io.WriteCloser {
		w := handle.Object(key).NewWriter(ctx)
		w.ForceEmptyContentType = true
		w.ChunkSize = 0
		return w
	}
	return newGCSStore(open, keyPrefix, publicBase)
}

func newGCSStore(open func(context.Context, string) io.WriteCloser, keyPrefix, publicBase string) (*GCSStore, error) {
	if strings.TrimSpace(publicBase) == "" {
		return nil, errors.New("public base url is required")
	}
	return &GCSStore{
		open:       open,
		keyPrefix:  strings.TrimLeft(keyPrefix, "/"),
		publicBase: strings.TrimSuffix(publicBase, "/"),
	}, nil
}

func (s *GCSStore) Put(ctx context.Context, name string, data []byte) (string, error) {
	const op = "artifacts.GCSStore.Put"

	if err := validateName(op, name); err != nil {
		return "", err
	}
	key := s.keyPrefix + name

	ctx, cancel := context.WithTimeout(ctx, gcsWriteTimeout)
	defer cancel()

	// The object only becomes visible when Close succeeds.
	w := s.open(ctx, key)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", storageErr(op, key, err)
	}
	if err := w.Close(); err != nil {
		return "", storageErr(op, key, err)
	}

	metrics.ArtifactBytes.WithLabelValues("gcs").Add(float64(len(data)))
	return joinLocator(s.publicBase, key), nil
}
