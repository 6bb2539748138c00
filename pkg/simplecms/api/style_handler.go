package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/tendant/simple-cms/pkg/simplecms/imagestyle"
	"github.com/tendant/simple-cms/pkg/simplecms/storage"
)

// StyleHandler serves image style derivatives, generating them on first
// request.
type StyleHandler struct {
	styles   *imagestyle.Service
	wrappers *storage.Wrappers
	logger   *slog.Logger
}

// NewStyleHandler creates a new style handler
func NewStyleHandler(styles *imagestyle.Service, wrappers *storage.Wrappers, logger *slog.Logger) *StyleHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StyleHandler{styles: styles, wrappers: wrappers, logger: logger}
}

// Routes returns the routes for image styles
func (h *StyleHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{style}/{scheme}/*", h.Deliver)
	return r
}

// sourceTarget strips the extension a converting style appends to
// derivative names, e.g. "a.png.jpg" back to "a.png".
func sourceTarget(style *imagestyle.Style, target string) string {
	ext := path.Ext(target)
	trimmed := strings.TrimSuffix(target, ext)
	srcExt := path.Ext(trimmed)
	if ext == "" || srcExt == "" || strings.EqualFold(ext, srcExt) {
		return target
	}
	if style.DerivativeExtension(srcExt) == strings.TrimPrefix(ext, ".") {
		return trimmed
	}
	return target
}

// Deliver streams the derivative of {scheme}://{path} for {style}.
func (h *StyleHandler) Deliver(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	styleName := chi.URLParam(r, "style")
	scheme := chi.URLParam(r, "scheme")
	target := chi.URLParam(r, "*")

	if _, ok := h.wrappers.Store(scheme); !ok || target == "" {
		writeError(w, r, http.StatusBadRequest, "invalid image path")
		return
	}
	style, err := h.styles.LoadStyle(ctx, styleName)
	if err != nil {
		if errors.Is(err, imagestyle.ErrStyleNotFound) {
			writeError(w, r, http.StatusNotFound, "image style not found")
			return
		}
		h.logger.Error("Failed to load image style", "style", styleName, "err", err)
		writeError(w, r, http.StatusInternalServerError, "failed to load image style")
		return
	}

	sourceURI := storage.BuildURI(scheme, sourceTarget(style, target))
	derivativeURI, err := style.DerivativeURI(sourceURI)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	meta, err := h.wrappers.Stat(ctx, derivativeURI)
	if errors.Is(err, storage.ErrNotFound) {
		if err := h.styles.CreateDerivative(ctx, style, sourceURI, derivativeURI); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				writeError(w, r, http.StatusNotFound, "source image not found")
				return
			}
			h.logger.Error("Failed to generate image derivative", "style", styleName, "source", sourceURI, "err", err)
			writeError(w, r, http.StatusInternalServerError, "error generating image")
			return
		}
		meta, err = h.wrappers.Stat(ctx, derivativeURI)
	}
	if err != nil {
		h.logger.Error("Failed to stat image derivative", "uri", derivativeURI, "err", err)
		writeError(w, r, http.StatusInternalServerError, "failed to read image derivative")
		return
	}

	rc, err := h.wrappers.Open(ctx, derivativeURI)
	if err != nil {
		h.logger.Error("Failed to open image derivative", "uri", derivativeURI, "err", err)
		writeError(w, r, http.StatusInternalServerError, "failed to read image derivative")
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", meta.ContentType)
	if meta.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(meta.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("Failed to stream image derivative", "uri", derivativeURI, "err", err)
	}
}
