package contentdepot

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// Service defines the main interface for the content-depot library
type Service interface {
	// Artifact store operations
	UploadArtifact(ctx context.Context, reader io.Reader, req UploadArtifactRequest) (*Artifact, error)
	GetArtifact(ctx context.Context, digest string) (*Artifact, error)
	OpenArtifact(ctx context.Context, digest string) (io.ReadCloser, error)
	ArtifactExists(ctx context.Context, digest string) (bool, error)

	// Content registry operations
	RegisterContentUnit(ctx context.Context, req RegisterContentUnitRequest) (*ContentUnit, error)
	GetContentUnit(ctx context.Context, id uuid.UUID) (*ContentUnit, error)
	LookupContentUnit(ctx context.Context, contentType, naturalKey string) (*ContentUnit, error)

	// Repository and version operations
	CreateRepository(ctx context.Context, req CreateRepositoryRequest) (*ContentRepository, error)
	GetRepository(ctx context.Context, id uuid.UUID) (*ContentRepository, error)
	GetRepositoryByName(ctx context.Context, name string) (*ContentRepository, error)
	ListRepositories(ctx context.Context) ([]*ContentRepository, error)
	DeleteRepository(ctx context.Context, id uuid.UUID) error
	CreateVersion(ctx context.Context, req CreateVersionRequest) (*RepositoryVersion, error)
	GetVersion(ctx context.Context, repositoryID uuid.UUID, number int64) (*RepositoryVersion, error)
	ListVersions(ctx context.Context, repositoryID uuid.UUID) ([]*RepositoryVersion, error)
	VersionContent(ctx context.Context, versionID uuid.UUID) ([]*ContentUnit, error)
	DeleteVersion(ctx context.Context, versionID uuid.UUID) error

	// Publication operations
	CreatePublication(ctx context.Context, req CreatePublicationRequest) (*Publication, error)
	GetPublication(ctx context.Context, id uuid.UUID) (*Publication, error)
	ListPublications(ctx context.Context, repositoryID uuid.UUID) ([]*Publication, error)
	DeletePublication(ctx context.Context, id uuid.UUID) error

	// Distribution operations
	CreateDistribution(ctx context.Context, req CreateDistributionRequest) (*Distribution, error)
	GetDistribution(ctx context.Context, id uuid.UUID) (*Distribution, error)
	ListDistributions(ctx context.Context) ([]*Distribution, error)
	UpdateDistribution(ctx context.Context, req UpdateDistributionRequest) (*Distribution, error)
	DeleteDistribution(ctx context.Context, id uuid.UUID) error

	// Serving operations
	Resolve(ctx context.Context, requestPath string) (*ResolvedTarget, error)
	GuardChainFor(dist *Distribution) (GuardChain, error)
	ArtifactDownloadURL(ctx context.Context, digest string, downloadFilename string) (string, error)

	// Plugin registration
	RegisterBlobStore(name string, store BlobStore)
	GetBlobStore(name string) (BlobStore, error)
	RegisterGuard(name string, factory GuardFactory)
	RegisterRenderer(renderer MetadataRenderer)
}
