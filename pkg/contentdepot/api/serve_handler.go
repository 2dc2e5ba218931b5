package api

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/content-depot/pkg/contentdepot"
)

// ServeHandler handles public content requests: it resolves the request path
// to a distribution, runs the distribution's guard chain, and serves the
// matching published file.
type ServeHandler struct {
	service contentdepot.Service

	// RedirectDownloads sends clients a redirect to a backend download URL
	// (e.g. a presigned S3 URL) instead of streaming through the server,
	// for backends that support it.
	RedirectDownloads bool
}

// NewServeHandler creates a new serve handler
func NewServeHandler(service contentdepot.Service) *ServeHandler {
	return &ServeHandler{service: service}
}

// Routes returns the routes for content serving
func (h *ServeHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/*", h.Serve)
	r.Head("/*", h.Serve)
	return r
}

// indexEntry is one line of a distribution listing
type indexEntry struct {
	RelativePath string `json:"relative_path"`
	Size         int64  `json:"size"`
}

// Serve resolves and serves a single published file. A request for the
// distribution base itself returns a JSON listing of the published paths.
func (h *ServeHandler) Serve(w http.ResponseWriter, r *http.Request) {
	requestPath := chi.URLParam(r, "*")

	target, err := h.service.Resolve(r.Context(), requestPath)
	if err != nil {
		if errors.Is(err, contentdepot.ErrDistributionNotFound) {
			renderError(w, r, err)
			return
		}
		slog.Error("Failed to resolve content path", "path", requestPath, "error", err)
		renderError(w, r, err)
		return
	}

	chain, err := h.service.GuardChainFor(target.Distribution)
	if err != nil {
		slog.Error("Failed to build guard chain", "distribution_id", target.Distribution.ID.String(), "error", err)
		renderError(w, r, err)
		return
	}

	decision := chain.Evaluate(r.Context(), &contentdepot.RequestContext{
		Path:       requestPath,
		RemoteAddr: r.RemoteAddr,
		Header:     r.Header,
		Request:    r,
	})
	if !decision.Allowed {
		slog.Info("Content request denied", "path", requestPath, "reason", decision.Reason)
		render.Status(r, http.StatusForbidden)
		render.JSON(w, r, ErrorResponse{Error: decision.Reason})
		return
	}

	if target.RemainingPath == "" {
		h.serveListing(w, r, target)
		return
	}

	entry, ok := target.Entry(target.RemainingPath)
	if !ok {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, ErrorResponse{Error: "file not found in distribution"})
		return
	}

	h.serveEntry(w, r, entry)
}

// serveListing returns the published paths under a distribution base
func (h *ServeHandler) serveListing(w http.ResponseWriter, r *http.Request, target *contentdepot.ResolvedTarget) {
	entries := make([]indexEntry, 0, len(target.Entries))
	for _, e := range target.Entries {
		entries = append(entries, indexEntry{RelativePath: e.RelativePath, Size: e.Size})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].RelativePath < entries[j].RelativePath
	})
	render.JSON(w, r, entries)
}

// serveEntry streams or redirects one published file
func (h *ServeHandler) serveEntry(w http.ResponseWriter, r *http.Request, entry contentdepot.PublishedEntry) {
	filename := path.Base(entry.RelativePath)

	if h.RedirectDownloads {
		url, err := h.service.ArtifactDownloadURL(r.Context(), entry.Digest, filename)
		if err == nil && url != "" {
			http.Redirect(w, r, url, http.StatusTemporaryRedirect)
			return
		}
		// Backend has no direct URLs; fall through to streaming.
	}

	contentType := mime.TypeByExtension(path.Ext(entry.RelativePath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(entry.Size, 10))
	w.Header().Set("X-Content-Digest", entry.Digest)

	if r.Method == http.MethodHead {
		return
	}

	reader, err := h.service.OpenArtifact(r.Context(), entry.Digest)
	if err != nil {
		slog.Error("Failed to open published artifact", "digest", entry.Digest, "error", err)
		renderError(w, r, err)
		return
	}
	defer reader.Close()

	if _, err := io.Copy(w, reader); err != nil {
		// Client disconnects land here; nothing useful to send back.
		slog.Warn("Content stream interrupted", "digest", entry.Digest, "error", err)
	}
}
