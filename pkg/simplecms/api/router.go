// Package api exposes the CMS services over HTTP.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth"
	"github.com/go-chi/render"
	"github.com/tendant/simple-cms/pkg/simplecms/block"
	"github.com/tendant/simple-cms/pkg/simplecms/configstore"
	"github.com/tendant/simple-cms/pkg/simplecms/imagestyle"
	"github.com/tendant/simple-cms/pkg/simplecms/storage"
)

// Deps are the services the router serves. Nil services leave their
// routes unmounted.
type Deps struct {
	Config   *configstore.Factory
	Blocks   *block.Manager
	Styles   *imagestyle.Service
	Wrappers *storage.Wrappers
	// JWTAuth verifies bearer tokens. Without it every request is anonymous.
	JWTAuth *jwtauth.JWTAuth
	Logger  *slog.Logger
}

// NewRouter builds the HTTP routes.
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))
	if deps.JWTAuth != nil {
		r.Use(Authenticate(deps.JWTAuth))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "healthy"})
	})

	if deps.Config != nil {
		r.Mount("/config", NewConfigHandler(deps.Config, logger).Routes())
		r.Mount("/date-formats", NewDateFormatHandler(deps.Config, nil, logger).Routes())
	}
	if deps.Blocks != nil {
		r.Mount("/block-category", block.NewCategoryAutocompleteHandler(deps.Blocks).Routes())
	}
	if deps.Styles != nil && deps.Wrappers != nil {
		r.Mount("/styles", NewStyleHandler(deps.Styles, deps.Wrappers, logger).Routes())
	}
	return r
}
