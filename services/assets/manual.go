package assets

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"

	"assetd/pkg/apierr"
	"assetd/pkg/logger"
	"assetd/pkg/manualref"
	"assetd/pkg/metrics"
)

// RemotePreviewText is returned for manuals that live behind http or https.
const RemotePreviewText = "[Preview not available for non-file manuals. Open the full manual link.]"

// DefaultPreviewChars is used when a caller does not ask for a size.
const DefaultPreviewChars = 2000

// ManualReader produces bounded previews of asset manuals.
type ManualReader struct {
	log *logger.Logger
}

// NewManualReader returns a reader. A nil logger discards output.
func NewManualReader(log *logger.Logger) *ManualReader {
	if log == nil {
		log = logger.NewNop()
	}
	return &ManualReader{log: log}
}

// Preview returns at most maxChars characters of the asset's manual.
// Truncated is true only when the manual holds more characters than were
// returned. Remote manuals are never fetched.
func (r *ManualReader) Preview(asset Asset, maxChars int) (ManualPreview, error) {
	const op = "assets.Preview"

	out := ManualPreview{AssetID: asset.ID, ManualRef: asset.ManualRef}
	if maxChars <= 0 {
		return out, apierr.New(apierr.KindInvalidInput, op, "maxChars must be positive, got %d", maxChars)
	}
	if strings.TrimSpace(asset.ManualRef) == "" {
		metrics.ManualPreviews.WithLabelValues("none", metrics.ResultError).Inc()
		return out, apierr.New(apierr.KindNotFound, op, "asset %s has no manual", asset.ID)
	}

	ref, err := manualref.Parse(asset.ManualRef)
	if err != nil {
		metrics.ManualPreviews.WithLabelValues("invalid", metrics.ResultError).Inc()
		return out, err
	}

	switch ref := ref.(type) {
	case manualref.LocalFile:
		text, truncated, err := readPrefix(ref.Path, maxChars)
		metrics.ManualPreviews.WithLabelValues("file", metrics.Result(err)).Inc()
		if err != nil {
			r.log.Debug("manual unreadable", "asset_id", asset.ID, "path", ref.Path, "error", err)
			return out, apierr.Wrap(apierr.KindNotFound, op, err)
		}
		out.Text, out.Truncated = text, truncated
		return out, nil
	case manualref.Remote:
		metrics.ManualPreviews.WithLabelValues("remote", metrics.ResultOK).Inc()
		out.Text, out.Truncated = RemotePreviewText, true
		return out, nil
	case manualref.Unsupported:
		metrics.ManualPreviews.WithLabelValues("unsupported", metrics.ResultError).Inc()
		return out, apierr.New(apierr.KindUnsupportedScheme, op, "manual scheme %q is not supported", ref.Scheme)
	default:
		return out, apierr.New(apierr.KindInternal, op, "unhandled reference %T", ref)
	}
}

// readPrefix decodes up to limit runes of UTF-8 from path, then probes one
// more rune to learn whether anything was left behind.
func readPrefix(path string, limit int) (string, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", false, err
	}
	defer f.Close()

	br := bufio.NewReader(f)
	var sb strings.Builder
	for n := 0; n < limit; n++ {
		r, _, err := br.ReadRune()
		if errors.Is(err, io.EOF) {
			return sb.String(), false, nil
		}
		if err != nil {
			return "", false, err
		}
		sb.WriteRune(r)
	}

	_, _, err = br.ReadRune()
	switch {
	case errors.Is(err, io.EOF):
		return sb.String(), false, nil
	case err != nil:
		return "", false, err
	}
	return sb.String(), true, nil
}
