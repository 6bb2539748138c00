package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/simple-cms/pkg/simplecms/configstore"
)

// ConfigHandler handles HTTP requests for config objects
type ConfigHandler struct {
	config *configstore.Factory
	logger *slog.Logger
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(config *configstore.Factory, logger *slog.Logger) *ConfigHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConfigHandler{config: config, logger: logger}
}

// Routes returns the routes for config objects
func (h *ConfigHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListConfig)
	r.Get("/{name}", h.GetConfig)
	r.Put("/{name}", h.SaveConfig)
	r.Post("/{name}/check", h.CheckConfig)
	return r
}

// CheckResponse is the response body of a schema check
type CheckResponse struct {
	Name      string            `json:"name"`
	Status    string            `json:"status"`
	HasSchema bool              `json:"has_schema"`
	Valid     bool              `json:"valid"`
	Errors    map[string]string `json:"errors,omitempty"`
}

// decodeData reads a JSON object, keeping numbers exact so integers
// validate as integers.
func decodeData(r *http.Request) (map[string]any, error) {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var data map[string]any
	if err := dec.Decode(&data); err != nil {
		return nil, err
	}
	if data == nil {
		return nil, errors.New("request body must be a JSON object")
	}
	return data, nil
}

// CheckConfig validates the request body against the schema of {name}
// without saving it.
func (h *ConfigHandler) CheckConfig(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	data, err := decodeData(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	result := h.config.Check(name, data)
	render.JSON(w, r, CheckResponse{
		Name:      name,
		Status:    result.Status.String(),
		HasSchema: result.HasSchema(),
		Valid:     result.Valid(),
		Errors:    result.Errors,
	})
}

// GetConfig returns one config object
func (h *ConfigHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	data, err := h.config.Get(r.Context(), name)
	if err != nil {
		if errors.Is(err, configstore.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "config object not found")
			return
		}
		h.logger.Error("Failed to read config", "name", name, "err", err)
		writeError(w, r, http.StatusInternalServerError, "failed to read config")
		return
	}
	render.JSON(w, r, data)
}

// SaveConfig writes the request body as config object {name}
func (h *ConfigHandler) SaveConfig(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	data, err := decodeData(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.config.Save(r.Context(), name, data); err != nil {
		var schemaErr *configstore.SchemaError
		switch {
		case errors.As(err, &schemaErr):
			render.Status(r, http.StatusUnprocessableEntity)
			render.JSON(w, r, ErrorResponse{Error: "schema violation", Errors: schemaErr.Errors})
		case errors.Is(err, configstore.ErrInvalidName):
			writeError(w, r, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("Failed to save config", "name", name, "err", err)
			writeError(w, r, http.StatusInternalServerError, "failed to save config")
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListConfig returns the stored names, filtered by ?prefix=
func (h *ConfigHandler) ListConfig(w http.ResponseWriter, r *http.Request) {
	names, err := h.config.ListAll(r.Context(), r.URL.Query().Get("prefix"))
	if err != nil {
		h.logger.Error("Failed to list config", "err", err)
		writeError(w, r, http.StatusInternalServerError, "failed to list config")
		return
	}
	if names == nil {
		names = []string{}
	}
	render.JSON(w, r, names)
}
