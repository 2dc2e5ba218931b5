package contentdepot

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrArtifactNotFound indicates no artifact exists for a digest
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrContentUnitNotFound indicates a content unit was not found
	ErrContentUnitNotFound = errors.New("content unit not found")

	// ErrRepositoryNotFound indicates a repository was not found
	ErrRepositoryNotFound = errors.New("repository not found")

	// ErrVersionNotFound indicates a repository version was not found
	ErrVersionNotFound = errors.New("repository version not found")

	// ErrPublicationNotFound indicates a publication was not found
	ErrPublicationNotFound = errors.New("publication not found")

	// ErrDistributionNotFound indicates no distribution matches a base path
	ErrDistributionNotFound = errors.New("distribution not found")

	// ErrBlobStoreNotFound indicates a storage backend name is not registered
	ErrBlobStoreNotFound = errors.New("storage backend not found")

	// ErrGuardNotFound indicates a guard name is not registered
	ErrGuardNotFound = errors.New("content guard not found")

	// ErrRendererNotFound indicates a metadata renderer name is not registered
	ErrRendererNotFound = errors.New("metadata renderer not found")

	// ErrInvalidDigest indicates a malformed digest string
	ErrInvalidDigest = errors.New("invalid digest")

	// ErrRepositoryExists indicates a repository name collision
	ErrRepositoryExists = errors.New("repository already exists")

	// ErrBasePathTaken indicates a distribution base path collision
	ErrBasePathTaken = errors.New("base path already taken")

	// ErrInvalidBasePath indicates a malformed distribution base path
	ErrInvalidBasePath = errors.New("invalid base path")

	// ErrVersionZeroDeletion indicates an attempt to delete version 0, which
	// always exists for a live repository
	ErrVersionZeroDeletion = errors.New("version 0 cannot be deleted")

	// ErrOverlappingSets indicates add and remove sets share a content unit
	ErrOverlappingSets = errors.New("add and remove sets overlap")

	// ErrInvalidTarget indicates a distribution or publication request does not
	// name exactly one target
	ErrInvalidTarget = errors.New("exactly one target must be set")

	// ErrConcurrentModification indicates a version commit lost a race. The
	// service serializes version creation per repository, so callers only see
	// this if the store is shared with a writer that bypasses the service.
	ErrConcurrentModification = errors.New("concurrent repository modification")

	// ErrDeadlineExceeded indicates a guard or read exceeded its deadline
	ErrDeadlineExceeded = errors.New("deadline exceeded")
)

// ConflictError indicates a registry identity collision: a content unit with
// the same (type, natural key) exists but owns a different artifact set.
type ConflictError struct {
	ContentType string
	NaturalKey  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("content unit %s/%s already registered with a different artifact set", e.ContentType, e.NaturalKey)
}

// CorruptionError indicates the bytes written for an artifact do not hash to
// the digest the caller claimed. Fatal to the call, never retried.
type CorruptionError struct {
	Expected string
	Computed string
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("digest mismatch: expected %s, computed %s", e.Expected, e.Computed)
}

// NotInVersionError indicates a remove-set member that is absent from the
// repository's current version.
type NotInVersionError struct {
	ContentID     uuid.UUID
	VersionNumber int64
}

func (e *NotInVersionError) Error() string {
	return fmt.Sprintf("content unit %s is not in version %d", e.ContentID, e.VersionNumber)
}

// ReferencedError indicates a delete was blocked because a live publication
// or distribution still points at the resource.
type ReferencedError struct {
	Resource     string // "version", "publication", "repository"
	ID           uuid.UUID
	ReferencedBy string
}

func (e *ReferencedError) Error() string {
	return fmt.Sprintf("%s %s is still referenced by %s", e.Resource, e.ID, e.ReferencedBy)
}

// IncompleteContentError indicates a publication build found content units
// whose artifacts are missing from the blob store.
type IncompleteContentError struct {
	Missing []string // digests
}

func (e *IncompleteContentError) Error() string {
	return fmt.Sprintf("publication incomplete: %d artifact(s) missing: %s", len(e.Missing), strings.Join(e.Missing, ", "))
}

// StorageError represents an error from a blob storage backend
type StorageError struct {
	Backend string
	Key     string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s on backend %s: %v", e.Op, e.Key, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
