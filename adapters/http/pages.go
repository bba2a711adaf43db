package http

import (
	"bytes"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/artpar/saasgate/app"
	"github.com/artpar/saasgate/domain/extension"
	"github.com/artpar/saasgate/domain/filter"
	"github.com/artpar/saasgate/pkg/jsonapi"
	"github.com/artpar/saasgate/web"
)

// PageHandler renders server-side pages.
type PageHandler struct {
	pages    *web.Renderer
	settings *app.SettingsService
	title    string
	language string // Used when the caller has no language setting
	logger   zerolog.Logger
}

// NewPageHandler creates a new page handler.
func NewPageHandler(pages *web.Renderer, settings *app.SettingsService, title, defaultLanguage string, logger zerolog.Logger) *PageHandler {
	return &PageHandler{
		pages:    pages,
		settings: settings,
		title:    title,
		language: defaultLanguage,
		logger:   logger.With().Str("handler", "pages").Logger(),
	}
}

// Home renders the start page with the caller's settings.
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	values, err := h.settings.Values(r.Context(), filter.ServerFrom(r.Context()), scopeFrom(r))
	if err != nil {
		h.logger.Error().Err(err).Msg("load settings for page")
		jsonapi.WriteError(w, jsonapi.ErrInternal(""))
		return
	}
	for i := range values {
		values[i] = values[i].Masked()
	}
	h.render(w, r, http.StatusOK, "home", values)
}

// NotFound renders the not found page.
func (h *PageHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusNotFound, "not_found", nil)
}

func (h *PageHandler) render(w http.ResponseWriter, r *http.Request, status int, page string, values []app.Value) {
	args := extension.PageArgs{
		Path:     r.URL.Path,
		Title:    h.title,
		Language: h.language,
		Scope:    scopeFrom(r),
	}
	for _, v := range values {
		s, _ := v.Value.(string)
		switch v.Name {
		case "language":
			if s != "" {
				args.Language = s
			}
		case "theme":
			args.Theme = s
		}
	}

	c, err := h.pages.Page(page, args, values)
	if err != nil {
		h.logger.Error().Err(err).Str("page", page).Msg("assemble page")
		jsonapi.WriteError(w, jsonapi.ErrInternal(""))
		return
	}

	// Render into a buffer so a failing component cannot leave half a page.
	var buf bytes.Buffer
	if err := c.Render(r.Context(), &buf); err != nil {
		h.logger.Error().Err(err).Str("page", page).Msg("render page")
		jsonapi.WriteError(w, jsonapi.ErrInternal(""))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Debug().Err(err).Msg("write page")
	}
}
