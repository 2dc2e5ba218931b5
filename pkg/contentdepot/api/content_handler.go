package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/tendant/content-depot/pkg/contentdepot"
)

// ContentHandler handles HTTP requests for artifacts and content units
type ContentHandler struct {
	service contentdepot.Service
}

// NewContentHandler creates a new content handler
func NewContentHandler(service contentdepot.Service) *ContentHandler {
	return &ContentHandler{service: service}
}

// ArtifactRoutes returns the routes for artifacts
func (h *ContentHandler) ArtifactRoutes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.UploadArtifact)
	r.Get("/{digest}", h.GetArtifact)
	r.Get("/{digest}/download", h.DownloadArtifact)

	return r
}

// UnitRoutes returns the routes for content units
func (h *ContentHandler) UnitRoutes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.RegisterContentUnit)
	r.Get("/", h.LookupContentUnit)
	r.Get("/{id}", h.GetContentUnit)

	return r
}

// ArtifactResponse is the response body for an artifact
type ArtifactResponse struct {
	ID                 string    `json:"id"`
	Digest             string    `json:"digest"`
	Size               int64     `json:"size"`
	StorageBackendName string    `json:"storage_backend_name"`
	CreatedAt          time.Time `json:"created_at"`
}

func artifactResponse(artifact *contentdepot.Artifact) ArtifactResponse {
	return ArtifactResponse{
		ID:                 artifact.ID.String(),
		Digest:             artifact.Digest,
		Size:               artifact.Size,
		StorageBackendName: artifact.StorageBackendName,
		CreatedAt:          artifact.CreatedAt,
	}
}

// UploadArtifact stores the request body as a content-addressed artifact.
// Query parameters:
//   - digest: expected sha256 hex; a mismatch fails the upload
//   - storage_backend: blob backend name (default: service default)
func (h *ContentHandler) UploadArtifact(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	artifact, err := h.service.UploadArtifact(r.Context(), r.Body, contentdepot.UploadArtifactRequest{
		ExpectedDigest:     r.URL.Query().Get("digest"),
		StorageBackendName: r.URL.Query().Get("storage_backend"),
	})
	if err != nil {
		slog.Error("Failed to upload artifact", "error", err)
		renderError(w, r, err)
		return
	}

	slog.Info("Artifact uploaded", "digest", artifact.Digest, "size", artifact.Size)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, artifactResponse(artifact))
}

// GetArtifact retrieves artifact metadata by digest
func (h *ContentHandler) GetArtifact(w http.ResponseWriter, r *http.Request) {
	digest := chi.URLParam(r, "digest")

	artifact, err := h.service.GetArtifact(r.Context(), digest)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, artifactResponse(artifact))
}

// DownloadArtifact streams artifact bytes by digest
func (h *ContentHandler) DownloadArtifact(w http.ResponseWriter, r *http.Request) {
	digest := chi.URLParam(r, "digest")

	artifact, err := h.service.GetArtifact(r.Context(), digest)
	if err != nil {
		renderError(w, r, err)
		return
	}

	reader, err := h.service.OpenArtifact(r.Context(), digest)
	if err != nil {
		slog.Error("Failed to open artifact", "digest", digest, "error", err)
		renderError(w, r, err)
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("X-Content-Digest", artifact.Digest)
	if _, err := io.Copy(w, reader); err != nil {
		// Headers are already out; the client sees a truncated body.
		slog.Warn("Artifact stream interrupted", "digest", digest, "error", err)
	}
}

// ContentArtifactBody is one artifact binding in a content unit request
type ContentArtifactBody struct {
	RelativePath string `json:"relative_path"`
	Digest       string `json:"digest"`
}

// RegisterContentUnitRequest is the request body for registering a content unit
type RegisterContentUnitRequest struct {
	Type       string                `json:"type"`
	NaturalKey string                `json:"natural_key"`
	Artifacts  []ContentArtifactBody `json:"artifacts"`
}

// ContentUnitResponse is the response body for a content unit
type ContentUnitResponse struct {
	ID         string                `json:"id"`
	Type       string                `json:"type"`
	NaturalKey string                `json:"natural_key"`
	Artifacts  []ContentArtifactBody `json:"artifacts"`
	CreatedAt  time.Time             `json:"created_at"`
}

func contentUnitResponse(unit *contentdepot.ContentUnit) ContentUnitResponse {
	artifacts := make([]ContentArtifactBody, 0, len(unit.Artifacts))
	for _, a := range unit.Artifacts {
		artifacts = append(artifacts, ContentArtifactBody{
			RelativePath: a.RelativePath,
			Digest:       a.Digest,
		})
	}
	return ContentUnitResponse{
		ID:         unit.ID.String(),
		Type:       unit.Type,
		NaturalKey: unit.NaturalKey,
		Artifacts:  artifacts,
		CreatedAt:  unit.CreatedAt,
	}
}

// RegisterContentUnit registers a typed content unit. Registration is
// idempotent: an equivalent unit returns the existing record with 200.
func (h *ContentHandler) RegisterContentUnit(w http.ResponseWriter, r *http.Request) {
	var req RegisterContentUnitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderBadRequest(w, r, err.Error())
		return
	}

	artifacts := make([]contentdepot.ContentArtifact, 0, len(req.Artifacts))
	for _, a := range req.Artifacts {
		artifacts = append(artifacts, contentdepot.ContentArtifact{
			RelativePath: a.RelativePath,
			Digest:       a.Digest,
		})
	}

	unit, err := h.service.RegisterContentUnit(r.Context(), contentdepot.RegisterContentUnitRequest{
		Type:       req.Type,
		NaturalKey: req.NaturalKey,
		Artifacts:  artifacts,
	})
	if err != nil {
		slog.Error("Failed to register content unit", "type", req.Type, "natural_key", req.NaturalKey, "error", err)
		renderError(w, r, err)
		return
	}

	slog.Info("Content unit registered", "unit_id", unit.ID.String(), "type", unit.Type)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, contentUnitResponse(unit))
}

// GetContentUnit retrieves a content unit by ID
func (h *ContentHandler) GetContentUnit(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		renderBadRequest(w, r, "Invalid content unit ID")
		return
	}

	unit, err := h.service.GetContentUnit(r.Context(), id)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, contentUnitResponse(unit))
}

// LookupContentUnit retrieves a content unit by its natural key.
// Query parameters: type, natural_key (both required).
func (h *ContentHandler) LookupContentUnit(w http.ResponseWriter, r *http.Request) {
	contentType := r.URL.Query().Get("type")
	naturalKey := r.URL.Query().Get("natural_key")
	if contentType == "" || naturalKey == "" {
		renderBadRequest(w, r, "Missing required 'type' and 'natural_key' parameters")
		return
	}

	unit, err := h.service.LookupContentUnit(r.Context(), contentType, naturalKey)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, contentUnitResponse(unit))
}
