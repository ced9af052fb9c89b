package artifacts

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"assetd/pkg/apierr"
)

func TestLocalStorePut(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "qr-images")
	store, err := NewLocalStore(root, "https://assets.example.com/qr-images/")
	if err != nil {
		t.Fatalf("NewLocalStore() error = %v", err)
	}

	locator, err := store.Put(context.Background(), "QR-AAAA1111.png", []byte("first"))
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if want := "https://assets.example.com/qr-images/QR-AAAA1111.png"; locator != want {
		t.Fatalf("Put() locator = %q, want %q", locator, want)
	}

	if _, err := store.Put(context.Background(), "QR-AAAA1111.png", []byte("second")); err != nil {
		t.Fatalf("Put() overwrite error = %v", err)
	}
	got, err := os.ReadFile(filepath.Join(root, "QR-AAAA1111.png"))
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if string(got) != "second" {
		t.Fatalf("artifact = %q, want %q", got, "second")
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("directory has %d entries, want only the artifact", len(entries))
	}
}

func TestLocalStoreRejectsBadNames(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "https://assets.example.com")
	if err != nil {
		t.Fatalf("NewLocalStore() error = %v", err)
	}
	for _, name := range []string{"", "..", "../escape.png", `a\b.png`} {
		if _, err := store.Put(context.Background(), name, []byte("x")); !apierr.Is(err, apierr.KindInvalidInput) {
			t.Fatalf("Put(%q) error = %v, want invalid input", name, err)
		}
	}
}

func TestLocalStoreIOFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	// A regular file where the directory should be makes MkdirAll fail.
	store, err := NewLocalStore(filepath.Join(blocker, "sub"), "https://assets.example.com")
	if err != nil {
		t.Fatalf("NewLocalStore() error = %v", err)
	}
	if _, err := store.Put(context.Background(), "QR-1.png", []byte("x")); !apierr.Is(err, apierr.KindStorage) {
		t.Fatalf("Put() error = %v, want storage error", err)
	}
}

func TestLocalStoreHandler(t *testing.T) {
	store, err := NewLocalStore(t.TempDir(), "https://assets.example.com")
	if err != nil {
		t.Fatalf("NewLocalStore() error = %v", err)
	}
	if _, err := store.Put(context.Background(), "QR-1.png", []byte("png-bytes")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(store.Dir(), ".hidden"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write hidden: %v", err)
	}

	h := http.StripPrefix("/qr-images/", store.Handler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/qr-images/QR-1.png", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "png-bytes" {
		t.Fatalf("GET artifact = %d %q, want 200 png-bytes", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/qr-images/.hidden", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("GET hidden = %d, want 404", rec.Code)
	}
}

type fakePutter struct {
	bucket, key string
	data        []byte
	err         error
}

func (f *fakePutter) PutBytes(_ context.Context, bucket, key string, data []byte) (string, error) {
	f.bucket, f.key, f.data = bucket, key, data
	return "digest", f.err
}

func TestS3StorePut(t *testing.T) {
	client := &fakePutter{}
	store, err := NewS3Store(client, "qr", "/qr/", "https://cdn.example.com/")
	if err != nil {
		t.Fatalf("NewS3Store() error = %v", err)
	}
	locator, err := store.Put(context.Background(), "QR-1.png", []byte("img"))
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if client.bucket != "qr" || client.key != "qr/QR-1.png" {
		t.Fatalf("uploaded to %s/%s, want qr/qr/QR-1.png", client.bucket, client.key)
	}
	if want := "https://cdn.example.com/qr/QR-1.png"; locator != want {
		t.Fatalf("locator = %q, want %q", locator, want)
	}

	client.err = errors.New("access denied")
	if _, err := store.Put(context.Background(), "QR-1.png", []byte("img")); !apierr.Is(err, apierr.KindStorage) {
		t.Fatalf("Put() error = %v, want storage error", err)
	}
}

type fakeWriter struct {
	buf      bytes.Buffer
	closeErr error
	closed   bool
}

func (w *fakeWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }
func (w *fakeWriter) Close() error {
	w.closed = true
	return w.closeErr
}

func TestGCSStorePut(t *testing.T) {
	var (
		lastKey string
		writer  = &fakeWriter{}
	)
	open := func(_ context.Context, key string) io.WriteCloser {
		lastKey = key
		return writer
	}
	store, err := newGCSStore(open, "qr/", "https://storage.googleapis.com/bucket")
	if err != nil {
		t.Fatalf("newGCSStore() error = %v", err)
	}

	locator, err := store.Put(context.Background(), "QR-2.png", []byte("img"))
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if lastKey != "qr/QR-2.png" || writer.buf.String() != "img" || !writer.closed {
		t.Fatalf("wrote key=%q data=%q closed=%v", lastKey, writer.buf.String(), writer.closed)
	}
	if !strings.HasSuffix(locator, "/bucket/qr/QR-2.png") {
		t.Fatalf("locator = %q", locator)
	}

	writer.closeErr = errors.New("quota exceeded")
	if _, err := store.Put(context.Background(), "QR-2.png", []byte("img")); !apierr.Is(err, apierr.KindStorage) {
		t.Fatalf("Put() error = %v, want storage error", err)
	}
}
