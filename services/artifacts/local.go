package artifacts

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"assetd/pkg/metrics"
)

// LocalStore writes artifacts into a directory that is served over HTTP.
type LocalStore struct {
	dir        string
	publicBase string
}

// NewLocalStore returns a store rooted at dir. publicBase is the URL the
// directory is reachable under; one trailing slash is dropped.
func NewLocalStore(dir, publicBase string) (*LocalStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("artifact directory is required")
	}
	if strings.TrimSpace(publicBase) == "" {
		return nil, errors.New("public base url is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	return &LocalStore{dir: abs, publicBase: strings.TrimSuffix(publicBase, "/")}, nil
}

// Dir is the absolute directory artifacts are written to.
func (s *LocalStore) Dir() string { return s.dir }

// Put writes data to a temporary file next to the target and renames it into
// place, so readers observe either the previous artifact or the new one.
func (s *LocalStore) Put(ctx context.Context, name string, data []byte) (string, error) {
	const op = "artifacts.LocalStore.Put"

	if err := validateName(op, name); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", storageErr(op, name, err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", storageErr(op, name, err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+name+".tmp-*")
	if err != nil {
		return "", storageErr(op, name, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return "", storageErr(op, name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return "", storageErr(op, name, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", storageErr(op, name, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return "", storageErr(op, name, err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		cleanup()
		return "", storageErr(op, name, err)
	}

	metrics.ArtifactBytes.WithLabelValues("local").Add(float64(len(data)))
	return joinLocator(s.publicBase, name), nil
}

// Handler serves stored artifacts. Mount it with the prefix stripped.
func (s *LocalStore) Handler() http.Handler {
	fs := http.FileServer(http.Dir(s.dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(filepath.Base(r.URL.Path), ".") {
			http.NotFound(w, r)
			return
		}
		fs.ServeHTTP(w, r)
	})
}
