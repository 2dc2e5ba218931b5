package contentdepot

import (
	"context"
	"io"
	"net/http"

	"github.com/google/uuid"
)

// BlobStore defines the interface for blob storage backends. Keys are
// derived from artifact digests by the service; backends never see domain
// records and callers never see backend paths.
type BlobStore interface {
	// Upload writes blob bytes under the given key. Uploading the same key
	// twice is safe: content-addressed keys make the bytes identical.
	Upload(ctx context.Context, objectKey string, reader io.Reader) error

	// Download opens the blob for reading
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// Exists reports whether a blob is stored under the key
	Exists(ctx context.Context, objectKey string) (bool, error)

	// Delete removes the blob
	Delete(ctx context.Context, objectKey string) error

	// GetDownloadURL returns a URL a client can fetch the blob from directly,
	// or an error if the backend only supports direct download
	GetDownloadURL(ctx context.Context, objectKey string, downloadFilename string) (string, error)

	// GetObjectMeta retrieves metadata for a stored blob
	GetObjectMeta(ctx context.Context, objectKey string) (*ObjectMeta, error)
}

// Store defines the interface for domain record persistence. (The domain
// entity itself is ContentRepository; "Store" avoids the name collision.)
type Store interface {
	// Artifact records
	CreateArtifact(ctx context.Context, artifact *Artifact) error
	GetArtifactByDigest(ctx context.Context, digest string) (*Artifact, error)
	DeleteArtifact(ctx context.Context, digest string) error

	// Content unit records
	CreateContentUnit(ctx context.Context, unit *ContentUnit) error
	GetContentUnit(ctx context.Context, id uuid.UUID) (*ContentUnit, error)
	GetContentUnitByKey(ctx context.Context, contentType, naturalKey string) (*ContentUnit, error)
	ListContentUnits(ctx context.Context, contentType string) ([]*ContentUnit, error)

	// Repository records
	CreateRepository(ctx context.Context, repo *ContentRepository) error
	GetRepository(ctx context.Context, id uuid.UUID) (*ContentRepository, error)
	GetRepositoryByName(ctx context.Context, name string) (*ContentRepository, error)
	ListRepositories(ctx context.Context) ([]*ContentRepository, error)
	UpdateRepository(ctx context.Context, repo *ContentRepository) error
	DeleteRepository(ctx context.Context, id uuid.UUID) error

	// Version records. CreateVersion persists the version together with its
	// materialized membership in one atomic step; a (repository, number)
	// collision returns ErrConcurrentModification.
	CreateVersion(ctx context.Context, version *RepositoryVersion, contentIDs []uuid.UUID) error
	GetVersion(ctx context.Context, id uuid.UUID) (*RepositoryVersion, error)
	GetVersionByNumber(ctx context.Context, repositoryID uuid.UUID, number int64) (*RepositoryVersion, error)
	ListVersions(ctx context.Context, repositoryID uuid.UUID) ([]*RepositoryVersion, error)
	GetVersionContent(ctx context.Context, versionID uuid.UUID) ([]uuid.UUID, error)
	DeleteVersion(ctx context.Context, id uuid.UUID) error

	// Publication records
	CreatePublication(ctx context.Context, pub *Publication) error
	GetPublication(ctx context.Context, id uuid.UUID) (*Publication, error)
	ListPublications(ctx context.Context, repositoryID uuid.UUID) ([]*Publication, error)
	ListPublicationsByVersion(ctx context.Context, versionID uuid.UUID) ([]*Publication, error)
	DeletePublication(ctx context.Context, id uuid.UUID) error

	// Distribution records
	CreateDistribution(ctx context.Context, dist *Distribution) error
	GetDistribution(ctx context.Context, id uuid.UUID) (*Distribution, error)
	GetDistributionByBasePath(ctx context.Context, basePath string) (*Distribution, error)
	ListDistributions(ctx context.Context) ([]*Distribution, error)
	UpdateDistribution(ctx context.Context, dist *Distribution) error
	DeleteDistribution(ctx context.Context, id uuid.UUID) error
}

// RequestContext carries the request attributes guards evaluate against.
type RequestContext struct {
	Path       string
	RemoteAddr string
	Header     http.Header

	// Request is the underlying HTTP request when the evaluation originates
	// from the serving layer. May be nil for programmatic evaluation.
	Request *http.Request
}

// Decision is the outcome of a guard evaluation.
type Decision struct {
	Allowed bool
	Reason  string
}

// Allow is the decision that lets a request proceed.
func Allow() Decision { return Decision{Allowed: true} }

// Deny is the decision that rejects a request with a reason.
func Deny(reason string) Decision { return Decision{Allowed: false, Reason: reason} }

// ContentGuard is a pluggable request-authorization check. Guards must not
// mutate core state; side effects such as token consumption are the guard's
// own external concern.
type ContentGuard interface {
	// Name returns the guard variant name
	Name() string

	// Evaluate decides whether the request may proceed. A returned error is
	// treated as a denial by the chain.
	Evaluate(ctx context.Context, rc *RequestContext) (Decision, error)
}

// GuardFactory builds a guard variant from its distribution-level config.
type GuardFactory func(config map[string]interface{}) (ContentGuard, error)

// MetadataRenderer is the content-type plugin hook used by the publication
// builder. Implementations generate type-specific metadata files (package
// indexes, manifests) for a version's content set.
type MetadataRenderer interface {
	// Name returns the renderer name distributions and publications refer to
	Name() string

	// Render produces the metadata files for the version's content set
	Render(ctx context.Context, version *RepositoryVersion, units []*ContentUnit) ([]RenderedFile, error)

	// RequiresComplete reports whether every content artifact must be present
	// in the blob store before publishing. Renderers for on-demand content
	// return false and tolerate missing artifacts.
	RequiresComplete() bool
}

// EventSink defines the interface for event handling
type EventSink interface {
	// ArtifactUploaded is fired when a new artifact is stored
	ArtifactUploaded(ctx context.Context, artifact *Artifact) error

	// ContentUnitRegistered is fired when a new content unit is registered
	ContentUnitRegistered(ctx context.Context, unit *ContentUnit) error

	// VersionCreated is fired when a repository version commits
	VersionCreated(ctx context.Context, version *RepositoryVersion) error

	// PublicationCreated is fired when a publication build completes
	PublicationCreated(ctx context.Context, pub *Publication) error

	// DistributionUpdated is fired when a distribution is created or updated
	DistributionUpdated(ctx context.Context, dist *Distribution) error
}
