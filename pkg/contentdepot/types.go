package contentdepot

import (
	"time"

	"github.com/google/uuid"
)

// DigestAlgorithm is the checksum algorithm used for artifact addressing.
const DigestAlgorithm = "sha256"

// Artifact is an immutable, content-addressed blob. The digest uniquely
// determines the byte content; the store never holds two artifacts with the
// same digest and different bytes.
type Artifact struct {
	ID                 uuid.UUID `json:"id"`
	Digest             string    `json:"digest"` // lowercase sha256 hex
	Size               int64     `json:"size"`
	StorageBackendName string    `json:"storage_backend_name"`
	CreatedAt          time.Time `json:"created_at"`
}

// ContentArtifact binds one artifact to a content unit at a relative path.
// The relative path is where the artifact appears when the unit is published
// or served from a repository version.
type ContentArtifact struct {
	RelativePath string `json:"relative_path"`
	Digest       string `json:"digest"`
}

// ContentUnit is the smallest typed, addressable unit of managed content.
// Identity is (Type, NaturalKey) and is unique: registering an equivalent
// unit resolves to the existing record. The type tag and natural-key scheme
// are defined by content-type plugins, not by this package.
type ContentUnit struct {
	ID         uuid.UUID         `json:"id"`
	Type       string            `json:"type"`
	NaturalKey string            `json:"natural_key"`
	Artifacts  []ContentArtifact `json:"artifacts"`
	CreatedAt  time.Time         `json:"created_at"`
}

// ContentRepository is a named, mutable pointer to an immutable chain of
// repository versions. CurrentVersion is the number of the latest live
// version; version 0 always exists and is empty.
type ContentRepository struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	CurrentVersion int64     `json:"current_version"`
	// NextVersion only ever increases, so version numbers are never reused
	// even when the latest version is deleted.
	NextVersion int64     `json:"next_version"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RepositoryVersion is an immutable snapshot of content-unit membership.
// Numbers increase monotonically per repository and are never reused, even
// after deletion.
type RepositoryVersion struct {
	ID           uuid.UUID `json:"id"`
	RepositoryID uuid.UUID `json:"repository_id"`
	Number       int64     `json:"number"`
	AddedCount   int       `json:"added_count"`
	RemovedCount int       `json:"removed_count"`
	ContentCount int       `json:"content_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// PublishedEntry is one servable file inside a publication: a relative path
// mapped to the artifact that backs it.
type PublishedEntry struct {
	RelativePath string `json:"relative_path"`
	Digest       string `json:"digest"`
	Size         int64  `json:"size"`
}

// Publication is a frozen, servable rendering of one repository version.
// Entries cover every content artifact in the version plus any metadata
// files produced by the renderer. Immutable once created.
type Publication struct {
	ID            uuid.UUID        `json:"id"`
	RepositoryID  uuid.UUID        `json:"repository_id"`
	VersionID     uuid.UUID        `json:"version_id"`
	VersionNumber int64            `json:"version_number"`
	Renderer      string           `json:"renderer,omitempty"`
	Entries       []PublishedEntry `json:"entries"`
	CreatedAt     time.Time        `json:"created_at"`
}

// GuardConfig names a registered guard variant plus its configuration.
// Guards run in the order they appear on a distribution.
type GuardConfig struct {
	Name   string                 `json:"name"`
	Config map[string]interface{} `json:"config,omitempty"`
}

// Distribution binds a public base path to exactly one servable target:
// a publication, an explicit repository version, or a repository (meaning
// its latest version at request time). Base paths are unique; changes take
// effect for new requests immediately.
type Distribution struct {
	ID            uuid.UUID     `json:"id"`
	Name          string        `json:"name"`
	BasePath      string        `json:"base_path"`
	PublicationID *uuid.UUID    `json:"publication_id,omitempty"`
	VersionID     *uuid.UUID    `json:"version_id,omitempty"`
	RepositoryID  *uuid.UUID    `json:"repository_id,omitempty"`
	Guards        []GuardConfig `json:"guards,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// TargetKind reports which of the three target fields a distribution uses.
func (d *Distribution) TargetKind() string {
	switch {
	case d.PublicationID != nil:
		return "publication"
	case d.VersionID != nil:
		return "version"
	case d.RepositoryID != nil:
		return "repository"
	default:
		return ""
	}
}

// ResolvedTarget is the outcome of resolving a request path against the
// registered distributions. The entry set is pinned at resolution time, so
// a concurrent repository mutation never changes what a request serves.
type ResolvedTarget struct {
	Distribution  *Distribution
	Publication   *Publication       // nil for bare version/repository targets
	Version       *RepositoryVersion // pinned version for version/repository targets
	Entries       map[string]PublishedEntry
	RemainingPath string
}

// Entry looks up a servable file by its path below the distribution base.
func (t *ResolvedTarget) Entry(relPath string) (PublishedEntry, bool) {
	e, ok := t.Entries[relPath]
	return e, ok
}

// ObjectMeta contains metadata about a blob in a storage backend.
type ObjectMeta struct {
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
	ETag        string
	Metadata    map[string]string
}

// RenderedFile is a metadata file produced by a MetadataRenderer. It is
// stored as an artifact and published at its relative path.
type RenderedFile struct {
	RelativePath string
	Data         []byte
}
