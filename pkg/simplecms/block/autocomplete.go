package block

import (
	"html"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// Suggestion is one autocomplete match.
type Suggestion struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// CategoryAutocompleteHandler suggests block categories for the admin UI.
type CategoryAutocompleteHandler struct {
	manager *Manager
}

// NewCategoryAutocompleteHandler creates a handler backed by manager.
func NewCategoryAutocompleteHandler(manager *Manager) *CategoryAutocompleteHandler {
	return &CategoryAutocompleteHandler{manager: manager}
}

// Routes returns the routes for block categories
func (h *CategoryAutocompleteHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/autocomplete", h.Autocomplete)
	return r
}

// Match returns the categories starting with typed, ignoring case.
func (h *CategoryAutocompleteHandler) Match(typed string) []Suggestion {
	typed = strings.ToLower(typed)
	matches := []Suggestion{}
	for _, category := range h.manager.Categories() {
		if strings.HasPrefix(strings.ToLower(category), typed) {
			matches = append(matches, Suggestion{Value: category, Label: html.EscapeString(category)})
		}
	}
	return matches
}

// Autocomplete handles GET ?q=.
func (h *CategoryAutocompleteHandler) Autocomplete(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.Match(r.URL.Query().Get("q")))
}
