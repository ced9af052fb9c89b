package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"assetd/pkg/logger"
)

func TestInitWithoutEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	shutdown, middleware, err := Init(context.Background(), "assetd-test", logger.NewNop())
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer shutdown(context.Background())

	h := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}
}

func TestInitRequiresServiceName(t *testing.T) {
	if _, _, err := Init(context.Background(), "", nil); err == nil {
		t.Fatalf("Init() error = nil, want error")
	}
}

func TestNewTraceExporterRejectsHostlessURL(t *testing.T) {
	if _, err := newTraceExporter(context.Background(), "http://"); err == nil {
		t.Fatalf("newTraceExporter() error = nil, want error")
	}
}
