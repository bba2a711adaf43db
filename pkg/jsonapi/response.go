package jsonapi

import (
	"encoding/json"
	"net/http"
)

// WriteDocument writes doc with the JSON:API content type.
func WriteDocument(w http.ResponseWriter, status int, doc Document) {
	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(doc)
}

// WriteResource writes a single resource.
func WriteResource(w http.ResponseWriter, status int, r Resource) {
	WriteDocument(w, status, NewDocument().Data(r).Build())
}

// WriteCollection writes a list of resources with a total count in meta.
func WriteCollection(w http.ResponseWriter, status int, resources []Resource) {
	doc := NewDocument().
		Collection(resources).
		Meta("total", len(resources)).
		Build()
	WriteDocument(w, status, doc)
}

// WriteError writes one or more errors. The HTTP status is the first
// error's status.
func WriteError(w http.ResponseWriter, errs ...Error) {
	if len(errs) == 0 {
		errs = []Error{ErrInternal("")}
	}
	WriteDocument(w, errs[0].StatusCode(), NewDocument().Errors(errs...).Build())
}

// WriteNoContent writes a 204 response.
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
