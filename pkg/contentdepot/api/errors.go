package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"github.com/tendant/content-depot/pkg/contentdepot"
)

// ErrorResponse is the JSON body returned for failed requests
type ErrorResponse struct {
	Error string `json:"error"`
}

// statusForError maps service errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, contentdepot.ErrArtifactNotFound),
		errors.Is(err, contentdepot.ErrContentUnitNotFound),
		errors.Is(err, contentdepot.ErrRepositoryNotFound),
		errors.Is(err, contentdepot.ErrVersionNotFound),
		errors.Is(err, contentdepot.ErrPublicationNotFound),
		errors.Is(err, contentdepot.ErrDistributionNotFound):
		return http.StatusNotFound

	case errors.Is(err, contentdepot.ErrInvalidDigest),
		errors.Is(err, contentdepot.ErrInvalidBasePath),
		errors.Is(err, contentdepot.ErrInvalidTarget),
		errors.Is(err, contentdepot.ErrOverlappingSets),
		errors.Is(err, contentdepot.ErrVersionZeroDeletion),
		errors.Is(err, contentdepot.ErrGuardNotFound),
		errors.Is(err, contentdepot.ErrRendererNotFound),
		errors.Is(err, contentdepot.ErrBlobStoreNotFound):
		return http.StatusBadRequest

	case errors.Is(err, contentdepot.ErrRepositoryExists),
		errors.Is(err, contentdepot.ErrBasePathTaken),
		errors.Is(err, contentdepot.ErrConcurrentModification):
		return http.StatusConflict

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}

	var conflict *contentdepot.ConflictError
	var referenced *contentdepot.ReferencedError
	var incomplete *contentdepot.IncompleteContentError
	var notInVersion *contentdepot.NotInVersionError
	var corruption *contentdepot.CorruptionError
	switch {
	case errors.As(err, &conflict),
		errors.As(err, &referenced),
		errors.As(err, &incomplete):
		return http.StatusConflict
	case errors.As(err, &notInVersion):
		return http.StatusBadRequest
	case errors.As(err, &corruption):
		return http.StatusBadGateway
	}

	return http.StatusInternalServerError
}

// renderError writes the JSON error body with the mapped status code.
func renderError(w http.ResponseWriter, r *http.Request, err error) {
	render.Status(r, statusForError(err))
	render.JSON(w, r, ErrorResponse{Error: err.Error()})
}

// renderBadRequest writes a 400 with a fixed message.
func renderBadRequest(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, ErrorResponse{Error: msg})
}
