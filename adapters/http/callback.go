package http

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/artpar/saasgate/app"
	"github.com/artpar/saasgate/domain/filter"
	"github.com/artpar/saasgate/pkg/jsonapi"
)

// CallbackHandler routes auth provider callbacks.
type CallbackHandler struct {
	router *app.CallbackRouter
	logger zerolog.Logger
}

// NewCallbackHandler creates a new callback handler.
func NewCallbackHandler(router *app.CallbackRouter, logger zerolog.Logger) *CallbackHandler {
	return &CallbackHandler{
		router: router,
		logger: logger.With().Str("handler", "callback").Logger(),
	}
}

// ServeHTTP matches the request path against the callback routes and
// redirects to the requested local page.
//
//	@Summary		Auth callback
//	@Description	Matches the path against the configured callback patterns and redirects to the next parameter
//	@Tags			Auth
//	@Param			path	path	string	true	"Callback path below /auth"
//	@Param			next	query	string	false	"Local path to continue to"
//	@Success		302		"Redirect to the next page"
//	@Failure		404		{object}	jsonapi.Document	"No callback route matches"
//	@Router			/auth/{path} [get]
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	redirect, ok, err := h.router.Resolve(r.Context(), filter.ServerFrom(r.Context()), r.URL.Path, r.URL.Query().Get("next"), scopeFrom(r))
	if err != nil {
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("resolve callback")
		jsonapi.WriteError(w, jsonapi.ErrInternal(""))
		return
	}
	if !ok {
		jsonapi.WriteError(w, jsonapi.ErrNotFound("callback route", ""))
		return
	}

	h.logger.Info().
		Str("route", redirect.Match.Name).
		Interface("params", redirect.Match.Params).
		Str("location", redirect.Location).
		Str("request_id", middleware.GetReqID(r.Context())).
		Msg("auth callback")
	http.Redirect(w, r, redirect.Location, http.StatusFound)
}
