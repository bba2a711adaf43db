package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/artpar/saasgate/app"
	"github.com/artpar/saasgate/domain/filter"
	"github.com/artpar/saasgate/domain/settings"
	"github.com/artpar/saasgate/pkg/jsonapi"
)

// Headers carrying the caller's scope. Authentication happens upstream.
const (
	HeaderUserID         = "X-User-ID"
	HeaderOrganizationID = "X-Organization-ID"
)

const maxSettingBody = 64 << 10

// SettingValueRequest is the body of PUT /settings/{name}.
type SettingValueRequest struct {
	Data struct {
		Type       string         `json:"type" example:"settings"`
		Attributes map[string]any `json:"attributes"`
	} `json:"data"`
}

// SettingsHandler serves the settings JSON:API.
type SettingsHandler struct {
	service *app.SettingsService
	logger  zerolog.Logger
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(service *app.SettingsService, logger zerolog.Logger) *SettingsHandler {
	return &SettingsHandler{
		service: service,
		logger:  logger.With().Str("handler", "settings").Logger(),
	}
}

// Router returns the settings routes, to be mounted at /settings.
func (h *SettingsHandler) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/schema", h.Schema)
	r.Get("/", h.List)
	r.Get("/{name}", h.Get)
	r.Put("/{name}", h.Put)
	return r
}

// Schema returns the merged settings schema.
//
//	@Summary		Get settings schema
//	@Description	Returns every field contributed through server_get_settings_schema
//	@Tags			Settings
//	@Produce		json
//	@Param			X-User-ID			header		string	false	"User the request acts for"
//	@Param			X-Organization-ID	header		string	false	"Organization the request acts for"
//	@Success		200					{object}	jsonapi.Document
//	@Failure		500					{object}	jsonapi.Document	"Conflicting fragments"
//	@Router			/settings/schema [get]
func (h *SettingsHandler) Schema(w http.ResponseWriter, r *http.Request) {
	schema, err := h.service.ResolveSchema(r.Context(), filter.ServerFrom(r.Context()), scopeFrom(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resources := make([]jsonapi.Resource, 0, schema.Len())
	for _, name := range schema.Names() {
		field, _ := schema.Field(name)
		rb := jsonapi.NewResource("setting_fields", name).
			Attr("type", field.Type).
			Attr("storage", field.Storage).
			Attr("sensitive", field.Sensitive).
			Meta("fragment", schema.Source(name))
		if field.Description != "" {
			rb.Attr("description", field.Description)
		}
		if len(field.Values) > 0 {
			rb.Attr("values", field.Values)
		}
		if field.Default != nil {
			rb.Attr("default", field.Default)
		}
		if len(field.Constraints) > 0 {
			rb.Attr("constraints", field.Constraints)
		}
		resources = append(resources, rb.Build())
	}
	jsonapi.WriteCollection(w, http.StatusOK, resources)
}

// List returns every setting visible to the caller.
//
//	@Summary		List settings
//	@Description	Returns the values the caller's scope can read; sensitive values are masked
//	@Tags			Settings
//	@Produce		json
//	@Param			X-User-ID			header		string	false	"User the request acts for"
//	@Param			X-Organization-ID	header		string	false	"Organization the request acts for"
//	@Success		200					{object}	jsonapi.Document
//	@Router			/settings [get]
func (h *SettingsHandler) List(w http.ResponseWriter, r *http.Request) {
	values, err := h.service.Values(r.Context(), filter.ServerFrom(r.Context()), scopeFrom(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resources := make([]jsonapi.Resource, len(values))
	for i, v := range values {
		resources[i] = valueResource(v)
	}
	jsonapi.WriteCollection(w, http.StatusOK, resources)
}

// Get returns one setting.
//
//	@Summary		Get setting
//	@Description	Returns the stored value or the declared default
//	@Tags			Settings
//	@Produce		json
//	@Param			name				path		string	true	"Setting name"
//	@Param			X-User-ID			header		string	false	"User the request acts for"
//	@Param			X-Organization-ID	header		string	false	"Organization the request acts for"
//	@Success		200					{object}	jsonapi.Document
//	@Failure		400					{object}	jsonapi.Document	"Scope lacks the owner the setting needs"
//	@Failure		404					{object}	jsonapi.Document	"Unknown setting"
//	@Router			/settings/{name} [get]
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	v, err := h.service.GetValue(r.Context(), filter.ServerFrom(r.Context()), scopeFrom(r), name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	jsonapi.WriteResource(w, http.StatusOK, valueResource(v))
}

// Put validates and stores one setting. A null value resets it to the default.
//
//	@Summary		Update setting
//	@Description	Validates the value against the schema and stores it in the field's backend
//	@Tags			Settings
//	@Accept			json
//	@Produce		json
//	@Param			name				path		string				true	"Setting name"
//	@Param			X-User-ID			header		string				false	"User the request acts for"
//	@Param			X-Organization-ID	header		string				false	"Organization the request acts for"
//	@Param			body				body		SettingValueRequest	true	"New value"
//	@Success		200					{object}	jsonapi.Document
//	@Failure		400					{object}	jsonapi.Document	"Malformed body or missing scope"
//	@Failure		404					{object}	jsonapi.Document	"Unknown setting"
//	@Failure		422					{object}	jsonapi.Document	"Value failed validation"
//	@Router			/settings/{name} [put]
func (h *SettingsHandler) Put(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req SettingValueRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxSettingBody))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		jsonapi.WriteError(w, jsonapi.ErrBadRequest("Request body must be a JSON:API document"))
		return
	}
	if req.Data.Type != "" && req.Data.Type != "settings" {
		jsonapi.WriteError(w, jsonapi.NewError(http.StatusConflict, "type_mismatch", "Conflict").
			Detailf("Resource type %q does not match this endpoint", req.Data.Type).
			Pointer("/data/type").
			Build())
		return
	}
	value, ok := req.Data.Attributes["value"]
	if !ok {
		jsonapi.WriteError(w, jsonapi.NewError(http.StatusBadRequest, "bad_request", "Bad Request").
			Detail("The value attribute is required; send null to reset").
			Pointer("/data/attributes/value").
			Build())
		return
	}

	v, err := h.service.SetValue(r.Context(), filter.ServerFrom(r.Context()), scopeFrom(r), name, value)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	jsonapi.WriteResource(w, http.StatusOK, valueResource(v))
}

func scopeFrom(r *http.Request) settings.Scope {
	return settings.Scope{
		UserID:         r.Header.Get(HeaderUserID),
		OrganizationID: r.Header.Get(HeaderOrganizationID),
	}
}

func valueResource(v app.Value) jsonapi.Resource {
	v = v.Masked()
	return jsonapi.NewResource("settings", v.Name).
		Attr("value", v.Value).
		Attr("storage", v.Storage).
		Attr("sensitive", v.Sensitive).
		Meta("default", v.Default).
		Link("/settings/" + v.Name).
		Build()
}

// writeError maps settings errors to JSON:API responses.
func (h *SettingsHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *settings.ValidationError
	var oerr *settings.OwnerError

	switch {
	case errors.As(err, &verr):
		errs := make([]jsonapi.Error, len(verr.Errors))
		for i, ce := range verr.Errors {
			errs[i] = jsonapi.ErrValidation("/data/attributes/value", ce.Constraint, ce.Message)
		}
		jsonapi.WriteError(w, errs...)

	case errors.Is(err, settings.ErrNotFound):
		jsonapi.WriteError(w, jsonapi.ErrNotFound("setting", chi.URLParam(r, "name")))

	case errors.As(err, &oerr):
		header := HeaderUserID
		if oerr.Backend == settings.OrganizationSettings {
			header = HeaderOrganizationID
		}
		jsonapi.WriteError(w, jsonapi.ErrMissingScope(header, "This setting is stored per owner; send the "+header+" header"))

	default:
		// Schema conflicts, unknown backends and store failures are server faults.
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("settings request failed")
		jsonapi.WriteError(w, jsonapi.ErrInternal(""))
	}
}
