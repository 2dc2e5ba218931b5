package contentdepot

import "github.com/google/uuid"

// Request/Response DTOs

// UploadArtifactRequest contains parameters for storing an artifact.
//
// ExpectedDigest, when set, is verified against the digest computed from the
// uploaded bytes; a mismatch fails the call with CorruptionError.
// StorageBackendName selects the blob backend; empty means the service
// default.
type UploadArtifactRequest struct {
	ExpectedDigest     string
	StorageBackendName string
}

// RegisterContentUnitRequest contains parameters for registering a content
// unit. Registration is idempotent on (Type, NaturalKey): an equivalent unit
// with an equal artifact set resolves to the existing record.
type RegisterContentUnitRequest struct {
	Type       string
	NaturalKey string
	Artifacts  []ContentArtifact
}

// CreateRepositoryRequest contains parameters for creating a repository
type CreateRepositoryRequest struct {
	Name        string
	Description string
}

// CreateVersionRequest contains parameters for committing a new repository
// version. Add and Remove must be disjoint; Remove members must be present
// in the current version. Both empty returns the current version unchanged.
type CreateVersionRequest struct {
	RepositoryID uuid.UUID
	Add          []uuid.UUID
	Remove       []uuid.UUID
}

// CreatePublicationRequest contains parameters for building a publication.
// Exactly one of VersionID and RepositoryID must be set; a repository target
// publishes its current version at build time. Renderer names a registered
// MetadataRenderer and may be empty for a plain artifact-tree publication.
type CreatePublicationRequest struct {
	VersionID    *uuid.UUID
	RepositoryID *uuid.UUID
	Renderer     string
}

// CreateDistributionRequest contains parameters for creating a distribution.
// Exactly one of PublicationID, VersionID and RepositoryID must be set.
type CreateDistributionRequest struct {
	Name          string
	BasePath      string
	PublicationID *uuid.UUID
	VersionID     *uuid.UUID
	RepositoryID  *uuid.UUID
	Guards        []GuardConfig
}

// UpdateDistributionRequest contains parameters for updating a distribution.
// Nil pointer fields keep their current value; the target, when changed,
// must still name exactly one of the three kinds.
type UpdateDistributionRequest struct {
	ID            uuid.UUID
	Name          *string
	BasePath      *string
	PublicationID *uuid.UUID
	VersionID     *uuid.UUID
	RepositoryID  *uuid.UUID
	Guards        *[]GuardConfig
}
