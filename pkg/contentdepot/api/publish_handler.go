package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/tendant/content-depot/pkg/contentdepot"
)

// PublishHandler handles HTTP requests for publications and distributions
type PublishHandler struct {
	service contentdepot.Service
}

// NewPublishHandler creates a new publish handler
func NewPublishHandler(service contentdepot.Service) *PublishHandler {
	return &PublishHandler{service: service}
}

// PublicationRoutes returns the routes for publications
func (h *PublishHandler) PublicationRoutes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.CreatePublication)
	r.Get("/", h.ListPublications)
	r.Get("/{id}", h.GetPublication)
	r.Delete("/{id}", h.DeletePublication)

	return r
}

// DistributionRoutes returns the routes for distributions
func (h *PublishHandler) DistributionRoutes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.CreateDistribution)
	r.Get("/", h.ListDistributions)
	r.Get("/{id}", h.GetDistribution)
	r.Patch("/{id}", h.UpdateDistribution)
	r.Delete("/{id}", h.DeleteDistribution)

	return r
}

// CreatePublicationRequest is the request body for building a publication
type CreatePublicationRequest struct {
	VersionID    *uuid.UUID `json:"version_id,omitempty"`
	RepositoryID *uuid.UUID `json:"repository_id,omitempty"`
	Renderer     string     `json:"renderer,omitempty"`
}

// PublishedEntryBody is one servable file in a publication response
type PublishedEntryBody struct {
	RelativePath string `json:"relative_path"`
	Digest       string `json:"digest"`
	Size         int64  `json:"size"`
}

// PublicationResponse is the response body for a publication
type PublicationResponse struct {
	ID            string               `json:"id"`
	RepositoryID  string               `json:"repository_id"`
	VersionID     string               `json:"version_id"`
	VersionNumber int64                `json:"version_number"`
	Renderer      string               `json:"renderer,omitempty"`
	Entries       []PublishedEntryBody `json:"entries"`
	CreatedAt     time.Time            `json:"created_at"`
}

func publicationResponse(pub *contentdepot.Publication) PublicationResponse {
	entries := make([]PublishedEntryBody, 0, len(pub.Entries))
	for _, e := range pub.Entries {
		entries = append(entries, PublishedEntryBody{
			RelativePath: e.RelativePath,
			Digest:       e.Digest,
			Size:         e.Size,
		})
	}
	return PublicationResponse{
		ID:            pub.ID.String(),
		RepositoryID:  pub.RepositoryID.String(),
		VersionID:     pub.VersionID.String(),
		VersionNumber: pub.VersionNumber,
		Renderer:      pub.Renderer,
		Entries:       entries,
		CreatedAt:     pub.CreatedAt,
	}
}

// CreatePublication builds a publication from a version or a repository's
// current version
func (h *PublishHandler) CreatePublication(w http.ResponseWriter, r *http.Request) {
	var req CreatePublicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderBadRequest(w, r, err.Error())
		return
	}

	pub, err := h.service.CreatePublication(r.Context(), contentdepot.CreatePublicationRequest{
		VersionID:    req.VersionID,
		RepositoryID: req.RepositoryID,
		Renderer:     req.Renderer,
	})
	if err != nil {
		slog.Error("Failed to create publication", "error", err)
		renderError(w, r, err)
		return
	}

	slog.Info("Publication created", "publication_id", pub.ID.String(), "version_number", pub.VersionNumber)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, publicationResponse(pub))
}

// ListPublications lists publications for a repository.
// Query parameters: repository_id (required).
func (h *PublishHandler) ListPublications(w http.ResponseWriter, r *http.Request) {
	repoIDStr := r.URL.Query().Get("repository_id")
	repositoryID, err := uuid.Parse(repoIDStr)
	if err != nil {
		renderBadRequest(w, r, "Missing or invalid 'repository_id' parameter")
		return
	}

	pubs, err := h.service.ListPublications(r.Context(), repositoryID)
	if err != nil {
		renderError(w, r, err)
		return
	}

	resp := make([]PublicationResponse, 0, len(pubs))
	for _, pub := range pubs {
		resp = append(resp, publicationResponse(pub))
	}
	render.JSON(w, r, resp)
}

// GetPublication retrieves a publication by ID
func (h *PublishHandler) GetPublication(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		renderBadRequest(w, r, "Invalid publication ID")
		return
	}

	pub, err := h.service.GetPublication(r.Context(), id)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, publicationResponse(pub))
}

// DeletePublication deletes a publication by ID
func (h *PublishHandler) DeletePublication(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		renderBadRequest(w, r, "Invalid publication ID")
		return
	}

	if err := h.service.DeletePublication(r.Context(), id); err != nil {
		slog.Error("Failed to delete publication", "publication_id", idStr, "error", err)
		renderError(w, r, err)
		return
	}

	slog.Info("Publication deleted", "publication_id", idStr)
	w.WriteHeader(http.StatusNoContent)
}

// GuardConfigBody is one guard in a distribution request or response
type GuardConfigBody struct {
	Name   string                 `json:"name"`
	Config map[string]interface{} `json:"config,omitempty"`
}

// CreateDistributionRequest is the request body for creating a distribution
type CreateDistributionRequest struct {
	Name          string            `json:"name,omitempty"`
	BasePath      string            `json:"base_path"`
	PublicationID *uuid.UUID        `json:"publication_id,omitempty"`
	VersionID     *uuid.UUID        `json:"version_id,omitempty"`
	RepositoryID  *uuid.UUID        `json:"repository_id,omitempty"`
	Guards        []GuardConfigBody `json:"guards,omitempty"`
}

// UpdateDistributionRequest is the request body for patching a distribution.
// Absent fields keep their current value.
type UpdateDistributionRequest struct {
	Name          *string            `json:"name,omitempty"`
	BasePath      *string            `json:"base_path,omitempty"`
	PublicationID *uuid.UUID         `json:"publication_id,omitempty"`
	VersionID     *uuid.UUID         `json:"version_id,omitempty"`
	RepositoryID  *uuid.UUID         `json:"repository_id,omitempty"`
	Guards        *[]GuardConfigBody `json:"guards,omitempty"`
}

// DistributionResponse is the response body for a distribution
type DistributionResponse struct {
	ID            string            `json:"id"`
	Name          string            `json:"name,omitempty"`
	BasePath      string            `json:"base_path"`
	TargetKind    string            `json:"target_kind"`
	PublicationID *uuid.UUID        `json:"publication_id,omitempty"`
	VersionID     *uuid.UUID        `json:"version_id,omitempty"`
	RepositoryID  *uuid.UUID        `json:"repository_id,omitempty"`
	Guards        []GuardConfigBody `json:"guards,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

func guardConfigs(bodies []GuardConfigBody) []contentdepot.GuardConfig {
	guards := make([]contentdepot.GuardConfig, 0, len(bodies))
	for _, g := range bodies {
		guards = append(guards, contentdepot.GuardConfig{Name: g.Name, Config: g.Config})
	}
	return guards
}

func distributionResponse(dist *contentdepot.Distribution) DistributionResponse {
	guards := make([]GuardConfigBody, 0, len(dist.Guards))
	for _, g := range dist.Guards {
		guards = append(guards, GuardConfigBody{Name: g.Name, Config: g.Config})
	}
	return DistributionResponse{
		ID:            dist.ID.String(),
		Name:          dist.Name,
		BasePath:      dist.BasePath,
		TargetKind:    dist.TargetKind(),
		PublicationID: dist.PublicationID,
		VersionID:     dist.VersionID,
		RepositoryID:  dist.RepositoryID,
		Guards:        guards,
		CreatedAt:     dist.CreatedAt,
		UpdatedAt:     dist.UpdatedAt,
	}
}

// CreateDistribution creates a distribution binding a base path to a target
func (h *PublishHandler) CreateDistribution(w http.ResponseWriter, r *http.Request) {
	var req CreateDistributionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderBadRequest(w, r, err.Error())
		return
	}

	dist, err := h.service.CreateDistribution(r.Context(), contentdepot.CreateDistributionRequest{
		Name:          req.Name,
		BasePath:      req.BasePath,
		PublicationID: req.PublicationID,
		VersionID:     req.VersionID,
		RepositoryID:  req.RepositoryID,
		Guards:        guardConfigs(req.Guards),
	})
	if err != nil {
		slog.Error("Failed to create distribution", "base_path", req.BasePath, "error", err)
		renderError(w, r, err)
		return
	}

	slog.Info("Distribution created", "distribution_id", dist.ID.String(), "base_path", dist.BasePath)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, distributionResponse(dist))
}

// ListDistributions lists all distributions
func (h *PublishHandler) ListDistributions(w http.ResponseWriter, r *http.Request) {
	dists, err := h.service.ListDistributions(r.Context())
	if err != nil {
		renderError(w, r, err)
		return
	}

	resp := make([]DistributionResponse, 0, len(dists))
	for _, dist := range dists {
		resp = append(resp, distributionResponse(dist))
	}
	render.JSON(w, r, resp)
}

// GetDistribution retrieves a distribution by ID
func (h *PublishHandler) GetDistribution(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		renderBadRequest(w, r, "Invalid distribution ID")
		return
	}

	dist, err := h.service.GetDistribution(r.Context(), id)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, distributionResponse(dist))
}

// UpdateDistribution patches a distribution. Setting any target field
// replaces the whole target; new requests see the change immediately.
func (h *PublishHandler) UpdateDistribution(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		renderBadRequest(w, r, "Invalid distribution ID")
		return
	}

	var req UpdateDistributionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderBadRequest(w, r, err.Error())
		return
	}

	update := contentdepot.UpdateDistributionRequest{
		ID:            id,
		Name:          req.Name,
		BasePath:      req.BasePath,
		PublicationID: req.PublicationID,
		VersionID:     req.VersionID,
		RepositoryID:  req.RepositoryID,
	}
	if req.Guards != nil {
		guards := guardConfigs(*req.Guards)
		update.Guards = &guards
	}

	dist, err := h.service.UpdateDistribution(r.Context(), update)
	if err != nil {
		slog.Error("Failed to update distribution", "distribution_id", idStr, "error", err)
		renderError(w, r, err)
		return
	}

	slog.Info("Distribution updated", "distribution_id", idStr, "base_path", dist.BasePath)
	render.JSON(w, r, distributionResponse(dist))
}

// DeleteDistribution deletes a distribution by ID
func (h *PublishHandler) DeleteDistribution(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		renderBadRequest(w, r, "Invalid distribution ID")
		return
	}

	if err := h.service.DeleteDistribution(r.Context(), id); err != nil {
		slog.Error("Failed to delete distribution", "distribution_id", idStr, "error", err)
		renderError(w, r, err)
		return
	}

	slog.Info("Distribution deleted", "distribution_id", idStr)
	w.WriteHeader(http.StatusNoContent)
}
