package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"assetd/services/assets"
)

const defaultSearchSize = 20

func (a *API) handleCreateAsset(w http.ResponseWriter, r *http.Request) {
	var draft assets.Draft
	if err := decodeJSON(r, &draft); err != nil {
		a.respondError(w, r, badRequest("api.CreateAsset", "decode body: %v", err))
		return
	}

	res, err := a.assets.CreateAsset(r.Context(), draft)
	if err != nil {
		a.respondError(w, r, err)
		return
	}

	if res.LocatorErr != nil {
		respondJSON(w, http.StatusAccepted, map[string]any{
			"asset":    res.Asset,
			"qr_error": res.LocatorErr.Error(),
		})
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"asset": res.Asset})
}

func (a *API) handleSearchAssets(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 0)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	size, err := queryInt(r, "size", defaultSearchSize)
	if err != nil {
		a.respondError(w, r, err)
		return
	}

	result, err := a.assets.Search(r.Context(), r.URL.Query().Get("q"), page, size)
	if err != nil {
		a.respondError(w, r, err)
		return
	}

	h := w.Header()
	h.Set("X-Total-Count", strconv.FormatInt(result.Total, 10))
	h.Set("X-Total-Pages", strconv.Itoa(result.TotalPages))
	h.Set("X-Page", strconv.Itoa(result.Page))
	h.Set("X-Size", strconv.Itoa(result.Size))
	respondJSON(w, http.StatusOK, result)
}

func (a *API) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	asset, err := a.assets.Get(r.Context(), id)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"asset": asset})
}

func (a *API) handleGetAssetByCode(w http.ResponseWriter, r *http.Request) {
	asset, err := a.assets.GetByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"asset": asset})
}

func (a *API) handleManualPreview(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	maxChars, err := queryInt(r, "maxChars", a.assets.Limits().Default)
	if err != nil {
		a.respondError(w, r, err)
		return
	}

	preview, err := a.assets.GetManualPreview(r.Context(), id, maxChars)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, preview)
}

// handleQRImage regenerates the code image from the scan payload, so it is
// served even while the stored locator is pending.
func (a *API) handleQRImage(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	asset, err := a.assets.Get(r.Context(), id)
	if err != nil {
		a.respondError(w, r, err)
		return
	}

	png, err := a.images.Render(a.assets.ScanPayload(asset.Code))
	if err != nil {
		a.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", `inline; filename="`+strings.ReplaceAll(asset.Code, `"`, "")+`.png"`)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (a *API) handleRetryQR(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	asset, err := a.assets.ResumeLocator(r.Context(), id)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"asset": asset})
}
