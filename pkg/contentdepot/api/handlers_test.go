package api_test

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/content-depot/pkg/contentdepot"
	"github.com/tendant/content-depot/pkg/contentdepot/api"
	tokenguard "github.com/tendant/content-depot/pkg/contentdepot/guard/token"
	"github.com/tendant/content-depot/pkg/contentdepot/repo/memory"
	memorystorage "github.com/tendant/content-depot/pkg/contentdepot/storage/memory"
)

// newTestRouter wires the handlers the way cmd/server does, backed by
// in-memory storage.
func newTestRouter(t *testing.T) chi.Router {
	t.Helper()

	svc, err := contentdepot.New(
		contentdepot.WithStore(memory.New()),
		contentdepot.WithBlobStore("memory", memorystorage.New()),
		contentdepot.WithGuard(tokenguard.GuardName, tokenguard.Factory()),
	)
	require.NoError(t, err)

	repositoryHandler := api.NewRepositoryHandler(svc)
	contentHandler := api.NewContentHandler(svc)
	publishHandler := api.NewPublishHandler(svc)
	serveHandler := api.NewServeHandler(svc)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/repositories", repositoryHandler.Routes())
		r.Mount("/artifacts", contentHandler.ArtifactRoutes())
		r.Mount("/units", contentHandler.UnitRoutes())
		r.Mount("/publications", publishHandler.PublicationRoutes())
		r.Mount("/distributions", publishHandler.DistributionRoutes())
	})
	r.Mount("/content", serveHandler.Routes())
	return r
}

func doJSON(t *testing.T, router chi.Router, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func uploadBytes(t *testing.T, router chi.Router, payload string) api.ArtifactResponse {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/artifacts", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp api.ArtifactResponse
	decodeJSON(t, rec, &resp)
	return resp
}

func registerUnit(t *testing.T, router chi.Router, unitType, naturalKey, relPath, payload string) api.ContentUnitResponse {
	t.Helper()

	artifact := uploadBytes(t, router, payload)
	rec := doJSON(t, router, http.MethodPost, "/api/v1/units", api.RegisterContentUnitRequest{
		Type:       unitType,
		NaturalKey: naturalKey,
		Artifacts:  []api.ContentArtifactBody{{RelativePath: relPath, Digest: artifact.Digest}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp api.ContentUnitResponse
	decodeJSON(t, rec, &resp)
	return resp
}

func createRepository(t *testing.T, router chi.Router, name string) api.RepositoryResponse {
	t.Helper()

	rec := doJSON(t, router, http.MethodPost, "/api/v1/repositories", api.CreateRepositoryRequest{Name: name})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp api.RepositoryResponse
	decodeJSON(t, rec, &resp)
	return resp
}

func TestRepositoryEndpoints(t *testing.T) {
	router := newTestRouter(t)

	repo := createRepository(t, router, "fedora")
	assert.Equal(t, int64(0), repo.CurrentVersion, "a new repository starts at version 0")

	t.Run("duplicate name conflicts", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/repositories", api.CreateRepositoryRequest{Name: "fedora"})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("get by id", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/v1/repositories/"+repo.ID, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var got api.RepositoryResponse
		decodeJSON(t, rec, &got)
		assert.Equal(t, "fedora", got.Name)
	})

	t.Run("lookup by name", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/v1/repositories?name=fedora", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var got []api.RepositoryResponse
		decodeJSON(t, rec, &got)
		require.Len(t, got, 1)
		assert.Equal(t, repo.ID, got[0].ID)
	})

	t.Run("lookup unknown name", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/v1/repositories?name=ghost", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/v1/repositories/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("delete", func(t *testing.T) {
		doomed := createRepository(t, router, "doomed")
		rec := doJSON(t, router, http.MethodDelete, "/api/v1/repositories/"+doomed.ID, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = doJSON(t, router, http.MethodGet, "/api/v1/repositories/"+doomed.ID, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestVersionEndpoints(t *testing.T) {
	router := newTestRouter(t)
	repo := createRepository(t, router, "r1")
	unit := registerUnit(t, router, "file", "a.txt", "a.txt", "payload a")

	t.Run("create version", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/repositories/"+repo.ID+"/versions", api.CreateVersionRequest{
			Add: []string{unit.ID},
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var version api.VersionResponse
		decodeJSON(t, rec, &version)
		assert.Equal(t, int64(1), version.Number)
		assert.Equal(t, 1, version.AddedCount)
		assert.Equal(t, 1, version.ContentCount)
	})

	t.Run("list versions", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/v1/repositories/"+repo.ID+"/versions", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var versions []api.VersionResponse
		decodeJSON(t, rec, &versions)
		require.Len(t, versions, 2)
		assert.Equal(t, int64(0), versions[0].Number)
		assert.Equal(t, int64(1), versions[1].Number)
	})

	t.Run("version content", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/v1/repositories/"+repo.ID+"/versions/1/content", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var units []api.ContentUnitResponse
		decodeJSON(t, rec, &units)
		require.Len(t, units, 1)
		assert.Equal(t, unit.ID, units[0].ID)
	})

	t.Run("bad unit id in add set", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/repositories/"+repo.ID+"/versions", api.CreateVersionRequest{
			Add: []string{"not-a-uuid"},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed version number", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/v1/repositories/"+repo.ID+"/versions/latest", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown version number", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/v1/repositories/"+repo.ID+"/versions/42", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("version zero is undeletable", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodDelete, "/api/v1/repositories/"+repo.ID+"/versions/0", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("delete version", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodDelete, "/api/v1/repositories/"+repo.ID+"/versions/1", nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestArtifactEndpoints(t *testing.T) {
	router := newTestRouter(t)
	payload := "artifact payload"
	sum := sha256.Sum256([]byte(payload))
	digest := hex.EncodeToString(sum[:])

	t.Run("upload computes the digest", func(t *testing.T) {
		resp := uploadBytes(t, router, payload)
		assert.Equal(t, digest, resp.Digest)
		assert.Equal(t, int64(len(payload)), resp.Size)
	})

	t.Run("re-upload dedupes", func(t *testing.T) {
		first := uploadBytes(t, router, payload)
		second := uploadBytes(t, router, payload)
		assert.Equal(t, first.ID, second.ID)
	})

	t.Run("expected digest mismatch", func(t *testing.T) {
		wrong := strings.Repeat("ab", 32)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/artifacts?digest="+wrong, strings.NewReader(payload))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})

	t.Run("malformed expected digest", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/artifacts?digest=abc", strings.NewReader(payload))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("get metadata", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/v1/artifacts/"+digest, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var got api.ArtifactResponse
		decodeJSON(t, rec, &got)
		assert.Equal(t, digest, got.Digest)
	})

	t.Run("download", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/artifacts/"+digest+"/download", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, payload, rec.Body.String())
		assert.Equal(t, "application/octet-stream", rec.Header().Get("Content-Type"))
		assert.Equal(t, digest, rec.Header().Get("X-Content-Digest"))
	})

	t.Run("unknown digest", func(t *testing.T) {
		unknown := strings.Repeat("cd", 32)
		rec := doJSON(t, router, http.MethodGet, "/api/v1/artifacts/"+unknown, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestContentUnitEndpoints(t *testing.T) {
	router := newTestRouter(t)
	unit := registerUnit(t, router, "rpm", "bash-5.2-1.x86_64", "pool/bash.rpm", "rpm bytes")

	t.Run("get by id", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/v1/units/"+unit.ID, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var got api.ContentUnitResponse
		decodeJSON(t, rec, &got)
		assert.Equal(t, "bash-5.2-1.x86_64", got.NaturalKey)
		require.Len(t, got.Artifacts, 1)
		assert.Equal(t, "pool/bash.rpm", got.Artifacts[0].RelativePath)
	})

	t.Run("lookup by natural key", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/v1/units?type=rpm&natural_key=bash-5.2-1.x86_64", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var got api.ContentUnitResponse
		decodeJSON(t, rec, &got)
		assert.Equal(t, unit.ID, got.ID)
	})

	t.Run("lookup requires both parameters", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/v1/units?type=rpm", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown artifact digest", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/units", api.RegisterContentUnitRequest{
			Type:       "rpm",
			NaturalKey: "ghost",
			Artifacts:  []api.ContentArtifactBody{{RelativePath: "ghost.rpm", Digest: strings.Repeat("ef", 32)}},
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("conflicting registration", func(t *testing.T) {
		other := uploadBytes(t, router, "different bytes")
		rec := doJSON(t, router, http.MethodPost, "/api/v1/units", api.RegisterContentUnitRequest{
			Type:       "rpm",
			NaturalKey: "bash-5.2-1.x86_64",
			Artifacts:  []api.ContentArtifactBody{{RelativePath: "pool/bash.rpm", Digest: other.Digest}},
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestPublicationEndpoints(t *testing.T) {
	router := newTestRouter(t)
	repo := createRepository(t, router, "r1")
	unit := registerUnit(t, router, "file", "a.txt", "a.txt", "payload a")

	rec := doJSON(t, router, http.MethodPost, "/api/v1/repositories/"+repo.ID+"/versions", api.CreateVersionRequest{
		Add: []string{unit.ID},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var pub api.PublicationResponse
	t.Run("create from repository", func(t *testing.T) {
		repoID := mustUUID(t, repo.ID)
		rec := doJSON(t, router, http.MethodPost, "/api/v1/publications", api.CreatePublicationRequest{
			RepositoryID: &repoID,
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		decodeJSON(t, rec, &pub)
		assert.Equal(t, int64(1), pub.VersionNumber)
		require.Len(t, pub.Entries, 1)
		assert.Equal(t, "a.txt", pub.Entries[0].RelativePath)
	})

	t.Run("no target is invalid", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/publications", api.CreatePublicationRequest{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("list requires repository_id", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/v1/publications", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("list by repository", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/v1/publications?repository_id="+repo.ID, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var pubs []api.PublicationResponse
		decodeJSON(t, rec, &pubs)
		assert.Len(t, pubs, 1)
	})

	t.Run("delete referenced publication conflicts", func(t *testing.T) {
		pubID := mustUUID(t, pub.ID)
		rec := doJSON(t, router, http.MethodPost, "/api/v1/distributions", api.CreateDistributionRequest{
			BasePath:      "live",
			PublicationID: &pubID,
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		rec = doJSON(t, router, http.MethodDelete, "/api/v1/publications/"+pub.ID, nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestDistributionEndpoints(t *testing.T) {
	router := newTestRouter(t)
	repo := createRepository(t, router, "r1")
	repoID := mustUUID(t, repo.ID)

	var dist api.DistributionResponse
	t.Run("create", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/distributions", api.CreateDistributionRequest{
			Name:         "latest",
			BasePath:     "/apt/stable/",
			RepositoryID: &repoID,
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		decodeJSON(t, rec, &dist)
		assert.Equal(t, "apt/stable", dist.BasePath, "base paths are normalized")
		assert.Equal(t, "repository", dist.TargetKind)
	})

	t.Run("base path collision", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/distributions", api.CreateDistributionRequest{
			BasePath:     "apt/stable",
			RepositoryID: &repoID,
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("invalid base path", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/distributions", api.CreateDistributionRequest{
			BasePath:     "../escape",
			RepositoryID: &repoID,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown guard", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/distributions", api.CreateDistributionRequest{
			BasePath:     "guarded",
			RepositoryID: &repoID,
			Guards:       []api.GuardConfigBody{{Name: "mystery"}},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("patch name keeps target", func(t *testing.T) {
		name := "renamed"
		rec := doJSON(t, router, http.MethodPatch, "/api/v1/distributions/"+dist.ID, api.UpdateDistributionRequest{
			Name: &name,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got api.DistributionResponse
		decodeJSON(t, rec, &got)
		assert.Equal(t, "renamed", got.Name)
		assert.Equal(t, "repository", got.TargetKind)
	})

	t.Run("list", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/v1/distributions", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var dists []api.DistributionResponse
		decodeJSON(t, rec, &dists)
		assert.Len(t, dists, 1)
	})

	t.Run("delete", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodDelete, "/api/v1/distributions/"+dist.ID, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		rec = doJSON(t, router, http.MethodGet, "/api/v1/distributions/"+dist.ID, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func mustUUID(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	require.NoError(t, err)
	return id
}
