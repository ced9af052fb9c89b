package artifacts

import (
	"context"
	"errors"
	"strings"

	"assetd/pkg/metrics"
)

type objectPutter interface {
	PutBytes(ctx context.Context, bucket, key string, data []byte) (string, error)
}

// S3Store uploads artifacts to an S3 bucket. Objects are stored under
// keyPrefix+name and the locator is publicBase/keyPrefix+name.
type S3Store struct {
	client     objectPutter
	bucket     string
	keyPrefix  string
	publicBase string
}

// NewS3Store returns a store writing through client, typically a *s3.Client.
func NewS3Store(client objectPutter, bucket, keyPrefix, publicBase string) (*S3Store, error) {
	if client == nil {
		return nil, errors.New("s3 client is required")
	}
	if bucket == "" {
		return nil, errors.New("bucket is required")
	}
	if strings.TrimSpace(publicBase) == "" {
		return nil, errors.New("public base url is required")
	}
	return &S3Store{
		client:     client,
		bucket:     bucket,
		keyPrefix:  strings.TrimLeft(keyPrefix, "/"),
		publicBase: strings.TrimSuffix(publicBase, "/"),
	}, nil
}

func (s *S3Store) Put(ctx context.Context, name string, data []byte) (string, error) {
	const op = "artifacts.S3Store.Put"

	if err := validateName(op, name); err != nil {
		return "", err
	}
	key := s.keyPrefix + name
	if _, err := s.client.PutBytes(ctx, s.bucket, key, data); err != nil {
		return "", storageErr(op, key, err)
	}

	metrics.ArtifactBytes.WithLabelValues("s3").Add(float64(len(data)))
	return joinLocator(s.publicBase, key), nil
}
