package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Routes constructs the chi router containing all API endpoints.
func (a *API) Routes() (http.Handler, error) {
	if a == nil {
		return nil, errors.New("nil api")
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/v1", func(r chi.Router) {
		r.Route("/assets", func(r chi.Router) {
			r.Post("/", a.handleCreateAsset)
			r.Get("/", a.handleSearchAssets)
			r.Get("/by-code/{code}", a.handleGetAssetByCode)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", a.handleGetAsset)
				r.Get("/manual/preview", a.handleManualPreview)
				r.Get("/qr.png", a.handleQRImage)
				r.Post("/qr/retry", a.handleRetryQR)
			})
		})
		r.Post("/worklogs", a.handleCreateWorkLog)
		r.Get("/worklogs", a.handleListWorkLogs)
	})

	if a.config.QRImages != nil {
		r.Mount("/qr-images", http.StripPrefix("/qr-images", a.config.QRImages))
	}
	if a.config.MCP != nil {
		r.Mount("/mcp", a.config.MCP)
	}

	return r, nil
}
