package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/simple-cms/pkg/simplecms/configstore"
	"github.com/tendant/simple-cms/pkg/simplecms/entity"
	"github.com/tendant/simple-cms/pkg/simplecms/system"
)

// DateFormatHandler handles HTTP requests for date formats
type DateFormatHandler struct {
	config *configstore.Factory
	access entity.AccessControlHandler
	logger *slog.Logger
}

// NewDateFormatHandler creates a new date format handler. A nil access
// handler uses the date format access handler.
func NewDateFormatHandler(config *configstore.Factory, access entity.AccessControlHandler, logger *slog.Logger) *DateFormatHandler {
	if access == nil {
		access = system.NewDateFormatAccessHandler(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DateFormatHandler{config: config, access: access, logger: logger}
}

// Routes returns the routes for date formats
func (h *DateFormatHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListDateFormats)
	r.Get("/{id}", h.GetDateFormat)
	r.Patch("/{id}", h.UpdateDateFormat)
	r.Delete("/{id}", h.DeleteDateFormat)
	return r
}

// UpdateDateFormatRequest is the request body for changing a date format
type UpdateDateFormatRequest struct {
	Label   *string `json:"label"`
	Pattern *string `json:"pattern"`
}

// load reads the format and writes the error response when it cannot.
func (h *DateFormatHandler) load(w http.ResponseWriter, r *http.Request) (*system.DateFormat, bool) {
	id := chi.URLParam(r, "id")
	data, err := h.config.Get(r.Context(), system.DateFormatConfigPrefix+id)
	if err != nil {
		if errors.Is(err, configstore.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "date format not found")
			return nil, false
		}
		h.logger.Error("Failed to read date format", "id", id, "err", err)
		writeError(w, r, http.StatusInternalServerError, "failed to read date format")
		return nil, false
	}
	format, err := system.DateFormatFromConfig(data)
	if err != nil {
		h.logger.Error("Stored date format is broken", "id", id, "err", err)
		writeError(w, r, http.StatusInternalServerError, "failed to read date format")
		return nil, false
	}
	return format, true
}

func (h *DateFormatHandler) allowed(w http.ResponseWriter, r *http.Request, format *system.DateFormat, operation string) bool {
	account := AccountFromContext(r.Context())
	if h.access.Access(format, operation, "", account) {
		return true
	}
	h.logger.Info("Date format access denied", "id", format.FormatID, "operation", operation, "account", account.ID())
	writeError(w, r, http.StatusForbidden, "access denied")
	return false
}

// ListDateFormats returns every stored date format
func (h *DateFormatHandler) ListDateFormats(w http.ResponseWriter, r *http.Request) {
	names, err := h.config.ListAll(r.Context(), system.DateFormatConfigPrefix)
	if err != nil {
		h.logger.Error("Failed to list date formats", "err", err)
		writeError(w, r, http.StatusInternalServerError, "failed to list date formats")
		return
	}
	objects, err := h.config.LoadMultiple(r.Context(), names)
	if err != nil {
		h.logger.Error("Failed to load date formats", "err", err)
		writeError(w, r, http.StatusInternalServerError, "failed to list date formats")
		return
	}

	formats := make([]*system.DateFormat, 0, len(names))
	for _, name := range names {
		data, ok := objects[name]
		if !ok {
			continue
		}
		format, err := system.DateFormatFromConfig(data)
		if err != nil {
			h.logger.Warn("Skipping broken date format", "name", name, "err", err)
			continue
		}
		formats = append(formats, format)
	}
	render.JSON(w, r, formats)
}

// GetDateFormat returns one date format
func (h *DateFormatHandler) GetDateFormat(w http.ResponseWriter, r *http.Request) {
	format, ok := h.load(w, r)
	if !ok || !h.allowed(w, r, format, entity.OpView) {
		return
	}
	render.JSON(w, r, format)
}

// UpdateDateFormat changes the label or pattern of a date format
func (h *DateFormatHandler) UpdateDateFormat(w http.ResponseWriter, r *http.Request) {
	format, ok := h.load(w, r)
	if !ok || !h.allowed(w, r, format, entity.OpUpdate) {
		return
	}

	var req UpdateDateFormatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Label != nil {
		format.Label = *req.Label
	}
	if req.Pattern != nil {
		if strings.TrimSpace(*req.Pattern) == "" {
			writeError(w, r, http.StatusBadRequest, "pattern cannot be empty")
			return
		}
		format.Pattern = *req.Pattern
	}

	if err := h.config.Save(r.Context(), format.ConfigName(), format.ToConfig()); err != nil {
		var schemaErr *configstore.SchemaError
		if errors.As(err, &schemaErr) {
			render.Status(r, http.StatusUnprocessableEntity)
			render.JSON(w, r, ErrorResponse{Error: "schema violation", Errors: schemaErr.Errors})
			return
		}
		h.logger.Error("Failed to save date format", "id", format.FormatID, "err", err)
		writeError(w, r, http.StatusInternalServerError, "failed to save date format")
		return
	}
	render.JSON(w, r, format)
}

// DeleteDateFormat removes a date format
func (h *DateFormatHandler) DeleteDateFormat(w http.ResponseWriter, r *http.Request) {
	format, ok := h.load(w, r)
	if !ok || !h.allowed(w, r, format, entity.OpDelete) {
		return
	}
	if err := h.config.Delete(r.Context(), format.ConfigName()); err != nil && !errors.Is(err, configstore.ErrNotFound) {
		h.logger.Error("Failed to delete date format", "id", format.FormatID, "err", err)
		writeError(w, r, http.StatusInternalServerError, "failed to delete date format")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
