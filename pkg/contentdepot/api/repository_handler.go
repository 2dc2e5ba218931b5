package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/tendant/content-depot/pkg/contentdepot"
)

// RepositoryHandler handles HTTP requests for repositories and their versions
type RepositoryHandler struct {
	service contentdepot.Service
}

// NewRepositoryHandler creates a new repository handler
func NewRepositoryHandler(service contentdepot.Service) *RepositoryHandler {
	return &RepositoryHandler{service: service}
}

// Routes returns the routes for repositories
func (h *RepositoryHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.CreateRepository)
	r.Get("/", h.ListRepositories)
	r.Get("/{id}", h.GetRepository)
	r.Delete("/{id}", h.DeleteRepository)

	r.Post("/{id}/versions", h.CreateVersion)
	r.Get("/{id}/versions", h.ListVersions)
	r.Get("/{id}/versions/{number}", h.GetVersion)
	r.Get("/{id}/versions/{number}/content", h.GetVersionContent)
	r.Delete("/{id}/versions/{number}", h.DeleteVersion)

	return r
}

// CreateRepositoryRequest is the request body for creating a repository
type CreateRepositoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// RepositoryResponse is the response body for a repository
type RepositoryResponse struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	CurrentVersion int64     `json:"current_version"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// VersionResponse is the response body for a repository version
type VersionResponse struct {
	ID           string    `json:"id"`
	RepositoryID string    `json:"repository_id"`
	Number       int64     `json:"number"`
	AddedCount   int       `json:"added_count"`
	RemovedCount int       `json:"removed_count"`
	ContentCount int       `json:"content_count"`
	CreatedAt    time.Time `json:"created_at"`
}

func repositoryResponse(repo *contentdepot.ContentRepository) RepositoryResponse {
	return RepositoryResponse{
		ID:             repo.ID.String(),
		Name:           repo.Name,
		Description:    repo.Description,
		CurrentVersion: repo.CurrentVersion,
		CreatedAt:      repo.CreatedAt,
		UpdatedAt:      repo.UpdatedAt,
	}
}

func versionResponse(version *contentdepot.RepositoryVersion) VersionResponse {
	return VersionResponse{
		ID:           version.ID.String(),
		RepositoryID: version.RepositoryID.String(),
		Number:       version.Number,
		AddedCount:   version.AddedCount,
		RemovedCount: version.RemovedCount,
		ContentCount: version.ContentCount,
		CreatedAt:    version.CreatedAt,
	}
}

// CreateRepository creates a new repository with an empty version 0
func (h *RepositoryHandler) CreateRepository(w http.ResponseWriter, r *http.Request) {
	var req CreateRepositoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderBadRequest(w, r, err.Error())
		return
	}

	repo, err := h.service.CreateRepository(r.Context(), contentdepot.CreateRepositoryRequest{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		slog.Error("Failed to create repository", "name", req.Name, "error", err)
		renderError(w, r, err)
		return
	}

	slog.Info("Repository created", "repository_id", repo.ID.String(), "name", repo.Name)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, repositoryResponse(repo))
}

// ListRepositories lists all repositories. The optional name query parameter
// looks up a single repository by name instead.
func (h *RepositoryHandler) ListRepositories(w http.ResponseWriter, r *http.Request) {
	if name := r.URL.Query().Get("name"); name != "" {
		repo, err := h.service.GetRepositoryByName(r.Context(), name)
		if err != nil {
			renderError(w, r, err)
			return
		}
		render.JSON(w, r, []RepositoryResponse{repositoryResponse(repo)})
		return
	}

	repos, err := h.service.ListRepositories(r.Context())
	if err != nil {
		slog.Error("Failed to list repositories", "error", err)
		renderError(w, r, err)
		return
	}

	resp := make([]RepositoryResponse, 0, len(repos))
	for _, repo := range repos {
		resp = append(resp, repositoryResponse(repo))
	}
	render.JSON(w, r, resp)
}

// GetRepository retrieves a repository by ID
func (h *RepositoryHandler) GetRepository(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		renderBadRequest(w, r, "Invalid repository ID")
		return
	}

	repo, err := h.service.GetRepository(r.Context(), id)
	if err != nil {
		renderError(w, r, err)
		return
	}

	render.JSON(w, r, repositoryResponse(repo))
}

// DeleteRepository deletes a repository and its version chain
func (h *RepositoryHandler) DeleteRepository(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		renderBadRequest(w, r, "Invalid repository ID")
		return
	}

	if err := h.service.DeleteRepository(r.Context(), id); err != nil {
		slog.Error("Failed to delete repository", "repository_id", idStr, "error", err)
		renderError(w, r, err)
		return
	}

	slog.Info("Repository deleted", "repository_id", idStr)
	w.WriteHeader(http.StatusNoContent)
}

// CreateVersionRequest is the request body for committing a new version
type CreateVersionRequest struct {
	Add    []string `json:"add,omitempty"`
	Remove []string `json:"remove,omitempty"`
}

// CreateVersion commits a new repository version from add and remove sets
func (h *RepositoryHandler) CreateVersion(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	repositoryID, err := uuid.Parse(idStr)
	if err != nil {
		renderBadRequest(w, r, "Invalid repository ID")
		return
	}

	var req CreateVersionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderBadRequest(w, r, err.Error())
		return
	}

	add, err := parseUUIDs(req.Add)
	if err != nil {
		renderBadRequest(w, r, "Invalid content unit ID in add set")
		return
	}
	remove, err := parseUUIDs(req.Remove)
	if err != nil {
		renderBadRequest(w, r, "Invalid content unit ID in remove set")
		return
	}

	version, err := h.service.CreateVersion(r.Context(), contentdepot.CreateVersionRequest{
		RepositoryID: repositoryID,
		Add:          add,
		Remove:       remove,
	})
	if err != nil {
		slog.Error("Failed to create version", "repository_id", idStr, "error", err)
		renderError(w, r, err)
		return
	}

	slog.Info("Version created", "repository_id", idStr, "number", version.Number)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, versionResponse(version))
}

// ListVersions lists all live versions of a repository
func (h *RepositoryHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	repositoryID, err := uuid.Parse(idStr)
	if err != nil {
		renderBadRequest(w, r, "Invalid repository ID")
		return
	}

	versions, err := h.service.ListVersions(r.Context(), repositoryID)
	if err != nil {
		renderError(w, r, err)
		return
	}

	resp := make([]VersionResponse, 0, len(versions))
	for _, version := range versions {
		resp = append(resp, versionResponse(version))
	}
	render.JSON(w, r, resp)
}

// GetVersion retrieves a repository version by number
func (h *RepositoryHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	version, ok := h.versionFromURL(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, versionResponse(version))
}

// GetVersionContent lists the content units in a repository version
func (h *RepositoryHandler) GetVersionContent(w http.ResponseWriter, r *http.Request) {
	version, ok := h.versionFromURL(w, r)
	if !ok {
		return
	}

	units, err := h.service.VersionContent(r.Context(), version.ID)
	if err != nil {
		renderError(w, r, err)
		return
	}

	resp := make([]ContentUnitResponse, 0, len(units))
	for _, unit := range units {
		resp = append(resp, contentUnitResponse(unit))
	}
	render.JSON(w, r, resp)
}

// DeleteVersion deletes a repository version by number
func (h *RepositoryHandler) DeleteVersion(w http.ResponseWriter, r *http.Request) {
	version, ok := h.versionFromURL(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteVersion(r.Context(), version.ID); err != nil {
		slog.Error("Failed to delete version", "version_id", version.ID.String(), "error", err)
		renderError(w, r, err)
		return
	}

	slog.Info("Version deleted", "repository_id", version.RepositoryID.String(), "number", version.Number)
	w.WriteHeader(http.StatusNoContent)
}

func (h *RepositoryHandler) versionFromURL(w http.ResponseWriter, r *http.Request) (*contentdepot.RepositoryVersion, bool) {
	idStr := chi.URLParam(r, "id")
	repositoryID, err := uuid.Parse(idStr)
	if err != nil {
		renderBadRequest(w, r, "Invalid repository ID")
		return nil, false
	}

	number, err := strconv.ParseInt(chi.URLParam(r, "number"), 10, 64)
	if err != nil || number < 0 {
		renderBadRequest(w, r, "Invalid version number")
		return nil, false
	}

	version, err := h.service.GetVersion(r.Context(), repositoryID, number)
	if err != nil {
		renderError(w, r, err)
		return nil, false
	}
	return version, true
}

func parseUUIDs(values []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(values))
	for _, v := range values {
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
