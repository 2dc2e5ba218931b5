package contentdepot

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// service implements the Service interface
type service struct {
	store            Store
	blobStores       map[string]BlobStore
	defaultBlobStore string
	eventSink        EventSink

	guardMu   sync.RWMutex
	guards    map[string]GuardFactory
	renderMu  sync.RWMutex
	renderers map[string]MetadataRenderer

	// repoLocks serializes version creation per repository identity
	repoLocks sync.Map // uuid.UUID -> *sync.Mutex
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithStore sets the metadata store for the service
func WithStore(store Store) Option {
	return func(s *service) {
		s.store = store
	}
}

// WithBlobStore adds a blob storage backend. The first registered backend
// becomes the default unless WithDefaultBlobStore overrides it.
func WithBlobStore(name string, store BlobStore) Option {
	return func(s *service) {
		if s.blobStores == nil {
			s.blobStores = make(map[string]BlobStore)
		}
		s.blobStores[name] = store
		if s.defaultBlobStore == "" {
			s.defaultBlobStore = name
		}
	}
}

// WithDefaultBlobStore selects the backend used when a request names none
func WithDefaultBlobStore(name string) Option {
	return func(s *service) {
		s.defaultBlobStore = name
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.eventSink = sink
	}
}

// WithGuard registers a content guard variant
func WithGuard(name string, factory GuardFactory) Option {
	return func(s *service) {
		s.guards[name] = factory
	}
}

// WithRenderer registers a metadata renderer
func WithRenderer(renderer MetadataRenderer) Option {
	return func(s *service) {
		s.renderers[renderer.Name()] = renderer
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		blobStores: make(map[string]BlobStore),
		guards:     make(map[string]GuardFactory),
		renderers:  make(map[string]MetadataRenderer),
	}

	for _, option := range options {
		option(s)
	}

	if s.store == nil {
		return nil, fmt.Errorf("store is required")
	}

	return s, nil
}

// Plugin registration

func (s *service) RegisterBlobStore(name string, store BlobStore) {
	s.blobStores[name] = store
	if s.defaultBlobStore == "" {
		s.defaultBlobStore = name
	}
}

func (s *service) GetBlobStore(name string) (BlobStore, error) {
	store, ok := s.blobStores[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBlobStoreNotFound, name)
	}
	return store, nil
}

func (s *service) RegisterGuard(name string, factory GuardFactory) {
	s.guardMu.Lock()
	defer s.guardMu.Unlock()
	s.guards[name] = factory
}

func (s *service) RegisterRenderer(renderer MetadataRenderer) {
	s.renderMu.Lock()
	defer s.renderMu.Unlock()
	s.renderers[renderer.Name()] = renderer
}

func (s *service) getRenderer(name string) (MetadataRenderer, error) {
	s.renderMu.RLock()
	defer s.renderMu.RUnlock()
	r, ok := s.renderers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRendererNotFound, name)
	}
	return r, nil
}

// Artifact store operations

func (s *service) UploadArtifact(ctx context.Context, reader io.Reader, req UploadArtifactRequest) (*Artifact, error) {
	backendName := req.StorageBackendName
	if backendName == "" {
		backendName = s.defaultBlobStore
	}
	blobStore, err := s.GetBlobStore(backendName)
	if err != nil {
		return nil, err
	}

	if req.ExpectedDigest != "" {
		if err := ValidateDigest(req.ExpectedDigest); err != nil {
			return nil, err
		}
	}

	// Spool to a temp file while hashing; the final blob key is not known
	// until the whole stream has been digested.
	tmp, err := os.CreateTemp("", "depot-upload-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging file: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	hasher := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, hasher), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to stage upload: %w", err)
	}
	digest := hex.EncodeToString(hasher.Sum(nil))

	if req.ExpectedDigest != "" && req.ExpectedDigest != digest {
		return nil, &CorruptionError{Expected: req.ExpectedDigest, Computed: digest}
	}

	// Dedupe: an existing record with this digest owns byte-identical
	// content, so the new bytes are discarded.
	if existing, err := s.store.GetArtifactByDigest(ctx, digest); err == nil {
		return existing, nil
	} else if !errors.Is(err, ErrArtifactNotFound) {
		return nil, err
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind staging file: %w", err)
	}

	objectKey := objectKeyForDigest(digest)
	if err := blobStore.Upload(ctx, objectKey, tmp); err != nil {
		return nil, &StorageError{Backend: backendName, Key: objectKey, Op: "upload", Err: err}
	}

	artifact := &Artifact{
		ID:                 uuid.New(),
		Digest:             digest,
		Size:               size,
		StorageBackendName: backendName,
		CreatedAt:          time.Now().UTC(),
	}
	if err := s.store.CreateArtifact(ctx, artifact); err != nil {
		// A concurrent identical-digest upload may have won the record race.
		// The bytes are identical either way, so return the winner.
		if winner, getErr := s.store.GetArtifactByDigest(ctx, digest); getErr == nil {
			return winner, nil
		}
		return nil, err
	}

	if s.eventSink != nil {
		if err := s.eventSink.ArtifactUploaded(ctx, artifact); err != nil {
			slog.Warn("artifact uploaded event failed", "digest", digest, "err", err)
		}
	}

	return artifact, nil
}

func (s *service) GetArtifact(ctx context.Context, digest string) (*Artifact, error) {
	if err := ValidateDigest(digest); err != nil {
		return nil, err
	}
	return s.store.GetArtifactByDigest(ctx, digest)
}

func (s *service) OpenArtifact(ctx context.Context, digest string) (io.ReadCloser, error) {
	artifact, err := s.GetArtifact(ctx, digest)
	if err != nil {
		return nil, err
	}
	blobStore, err := s.GetBlobStore(artifact.StorageBackendName)
	if err != nil {
		return nil, err
	}
	objectKey := objectKeyForDigest(digest)
	rc, err := blobStore.Download(ctx, objectKey)
	if err != nil {
		return nil, &StorageError{Backend: artifact.StorageBackendName, Key: objectKey, Op: "download", Err: err}
	}
	return rc, nil
}

func (s *service) ArtifactExists(ctx context.Context, digest string) (bool, error) {
	if err := ValidateDigest(digest); err != nil {
		return false, err
	}
	_, err := s.store.GetArtifactByDigest(ctx, digest)
	if errors.Is(err, ErrArtifactNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *service) ArtifactDownloadURL(ctx context.Context, digest string, downloadFilename string) (string, error) {
	artifact, err := s.GetArtifact(ctx, digest)
	if err != nil {
		return "", err
	}
	blobStore, err := s.GetBlobStore(artifact.StorageBackendName)
	if err != nil {
		return "", err
	}
	return blobStore.GetDownloadURL(ctx, objectKeyForDigest(digest), downloadFilename)
}

// Content registry operations

func (s *service) RegisterContentUnit(ctx context.Context, req RegisterContentUnitRequest) (*ContentUnit, error) {
	if req.Type == "" || req.NaturalKey == "" {
		return nil, fmt.Errorf("content type and natural key are required")
	}
	for _, ca := range req.Artifacts {
		if ca.RelativePath == "" {
			return nil, fmt.Errorf("artifact relative path is required")
		}
		if err := ValidateDigest(ca.Digest); err != nil {
			return nil, err
		}
		if _, err := s.store.GetArtifactByDigest(ctx, ca.Digest); err != nil {
			return nil, fmt.Errorf("artifact %s: %w", ca.Digest, err)
		}
	}

	existing, err := s.store.GetContentUnitByKey(ctx, req.Type, req.NaturalKey)
	if err == nil {
		if artifactSetsEqual(existing.Artifacts, req.Artifacts) {
			return existing, nil
		}
		return nil, &ConflictError{ContentType: req.Type, NaturalKey: req.NaturalKey}
	}
	if !errors.Is(err, ErrContentUnitNotFound) {
		return nil, err
	}

	unit := &ContentUnit{
		ID:         uuid.New(),
		Type:       req.Type,
		NaturalKey: req.NaturalKey,
		Artifacts:  append([]ContentArtifact(nil), req.Artifacts...),
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.CreateContentUnit(ctx, unit); err != nil {
		// Identity race: a concurrent register with the same key may have
		// committed first. Resolve to the winner if the sets match.
		if winner, getErr := s.store.GetContentUnitByKey(ctx, req.Type, req.NaturalKey); getErr == nil {
			if artifactSetsEqual(winner.Artifacts, req.Artifacts) {
				return winner, nil
			}
			return nil, &ConflictError{ContentType: req.Type, NaturalKey: req.NaturalKey}
		}
		return nil, err
	}

	if s.eventSink != nil {
		if err := s.eventSink.ContentUnitRegistered(ctx, unit); err != nil {
			slog.Warn("content unit registered event failed", "unit", unit.ID, "err", err)
		}
	}

	return unit, nil
}

func (s *service) GetContentUnit(ctx context.Context, id uuid.UUID) (*ContentUnit, error) {
	return s.store.GetContentUnit(ctx, id)
}

func (s *service) LookupContentUnit(ctx context.Context, contentType, naturalKey string) (*ContentUnit, error) {
	return s.store.GetContentUnitByKey(ctx, contentType, naturalKey)
}

func artifactSetsEqual(a, b []ContentArtifact) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[ContentArtifact]struct{}, len(a))
	for _, ca := range a {
		set[ca] = struct{}{}
	}
	for _, ca := range b {
		if _, ok := set[ca]; !ok {
			return false
		}
	}
	return true
}

// Repository and version operations

func (s *service) repoLock(id uuid.UUID) *sync.Mutex {
	mu, _ := s.repoLocks.LoadOrStore(id, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func (s *service) CreateRepository(ctx context.Context, req CreateRepositoryRequest) (*ContentRepository, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("repository name is required")
	}
	if _, err := s.store.GetRepositoryByName(ctx, req.Name); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrRepositoryExists, req.Name)
	} else if !errors.Is(err, ErrRepositoryNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	repo := &ContentRepository{
		ID:             uuid.New(),
		Name:           req.Name,
		Description:    req.Description,
		CurrentVersion: 0,
		NextVersion:    1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.CreateRepository(ctx, repo); err != nil {
		return nil, err
	}

	// Version 0 always exists and is empty.
	base := &RepositoryVersion{
		ID:           uuid.New(),
		RepositoryID: repo.ID,
		Number:       0,
		CreatedAt:    now,
	}
	if err := s.store.CreateVersion(ctx, base, nil); err != nil {
		return nil, err
	}

	return repo, nil
}

func (s *service) GetRepository(ctx context.Context, id uuid.UUID) (*ContentRepository, error) {
	return s.store.GetRepository(ctx, id)
}

func (s *service) GetRepositoryByName(ctx context.Context, name string) (*ContentRepository, error) {
	return s.store.GetRepositoryByName(ctx, name)
}

func (s *service) ListRepositories(ctx context.Context) ([]*ContentRepository, error) {
	return s.store.ListRepositories(ctx)
}

func (s *service) DeleteRepository(ctx context.Context, id uuid.UUID) error {
	mu := s.repoLock(id)
	mu.Lock()
	defer mu.Unlock()

	repo, err := s.store.GetRepository(ctx, id)
	if err != nil {
		return err
	}

	dists, err := s.store.ListDistributions(ctx)
	if err != nil {
		return err
	}
	versions, err := s.store.ListVersions(ctx, id)
	if err != nil {
		return err
	}
	versionIDs := make(map[uuid.UUID]struct{}, len(versions))
	for _, v := range versions {
		versionIDs[v.ID] = struct{}{}
	}
	for _, d := range dists {
		if d.RepositoryID != nil && *d.RepositoryID == id {
			return &ReferencedError{Resource: "repository", ID: id, ReferencedBy: "distribution " + d.BasePath}
		}
		if d.VersionID != nil {
			if _, ok := versionIDs[*d.VersionID]; ok {
				return &ReferencedError{Resource: "repository", ID: id, ReferencedBy: "distribution " + d.BasePath}
			}
		}
		if d.PublicationID != nil {
			pub, err := s.store.GetPublication(ctx, *d.PublicationID)
			if err != nil {
				continue
			}
			if pub.RepositoryID == id {
				return &ReferencedError{Resource: "repository", ID: id, ReferencedBy: "distribution " + d.BasePath}
			}
		}
	}

	// Deleting a repository invalidates all its versions and publications.
	pubs, err := s.store.ListPublications(ctx, id)
	if err != nil {
		return err
	}
	for _, pub := range pubs {
		if err := s.store.DeletePublication(ctx, pub.ID); err != nil {
			return err
		}
	}
	if err := s.store.DeleteRepository(ctx, repo.ID); err != nil {
		return err
	}
	s.repoLocks.Delete(id)
	return nil
}

func (s *service) CreateVersion(ctx context.Context, req CreateVersionRequest) (*RepositoryVersion, error) {
	addSet := make(map[uuid.UUID]struct{}, len(req.Add))
	for _, id := range req.Add {
		addSet[id] = struct{}{}
	}
	for _, id := range req.Remove {
		if _, ok := addSet[id]; ok {
			return nil, fmt.Errorf("%w: %s", ErrOverlappingSets, id)
		}
	}

	// Serialize per repository: concurrent callers wait, then compute their
	// diff against the post-commit state. Repositories are independent.
	mu := s.repoLock(req.RepositoryID)
	mu.Lock()
	defer mu.Unlock()

	repo, err := s.store.GetRepository(ctx, req.RepositoryID)
	if err != nil {
		return nil, err
	}
	current, err := s.store.GetVersionByNumber(ctx, repo.ID, repo.CurrentVersion)
	if err != nil {
		return nil, err
	}

	if len(req.Add) == 0 && len(req.Remove) == 0 {
		// Empty diff: no new version is created.
		return current, nil
	}

	currentIDs, err := s.store.GetVersionContent(ctx, current.ID)
	if err != nil {
		return nil, err
	}
	contentSet := make(map[uuid.UUID]struct{}, len(currentIDs))
	for _, id := range currentIDs {
		contentSet[id] = struct{}{}
	}

	for _, id := range req.Remove {
		if _, ok := contentSet[id]; !ok {
			return nil, &NotInVersionError{ContentID: id, VersionNumber: current.Number}
		}
	}

	added := 0
	for _, id := range req.Add {
		if _, err := s.store.GetContentUnit(ctx, id); err != nil {
			return nil, fmt.Errorf("add set: %s: %w", id, err)
		}
		if _, ok := contentSet[id]; !ok {
			added++
		}
		contentSet[id] = struct{}{}
	}
	for _, id := range req.Remove {
		delete(contentSet, id)
	}

	newIDs := make([]uuid.UUID, 0, len(contentSet))
	for id := range contentSet {
		newIDs = append(newIDs, id)
	}
	sort.Slice(newIDs, func(i, j int) bool { return newIDs[i].String() < newIDs[j].String() })

	version := &RepositoryVersion{
		ID:           uuid.New(),
		RepositoryID: repo.ID,
		Number:       repo.NextVersion,
		AddedCount:   added,
		RemovedCount: len(req.Remove),
		ContentCount: len(newIDs),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.CreateVersion(ctx, version, newIDs); err != nil {
		return nil, err
	}

	repo.CurrentVersion = version.Number
	repo.NextVersion = version.Number + 1
	repo.UpdatedAt = version.CreatedAt
	if err := s.store.UpdateRepository(ctx, repo); err != nil {
		return nil, err
	}

	if s.eventSink != nil {
		if err := s.eventSink.VersionCreated(ctx, version); err != nil {
			slog.Warn("version created event failed", "repository", repo.ID, "number", version.Number, "err", err)
		}
	}

	return version, nil
}

func (s *service) GetVersion(ctx context.Context, repositoryID uuid.UUID, number int64) (*RepositoryVersion, error) {
	return s.store.GetVersionByNumber(ctx, repositoryID, number)
}

func (s *service) ListVersions(ctx context.Context, repositoryID uuid.UUID) ([]*RepositoryVersion, error) {
	return s.store.ListVersions(ctx, repositoryID)
}

func (s *service) VersionContent(ctx context.Context, versionID uuid.UUID) ([]*ContentUnit, error) {
	ids, err := s.store.GetVersionContent(ctx, versionID)
	if err != nil {
		return nil, err
	}
	units := make([]*ContentUnit, 0, len(ids))
	for _, id := range ids {
		unit, err := s.store.GetContentUnit(ctx, id)
		if err != nil {
			return nil, err
		}
		units = append(units, unit)
	}
	sort.Slice(units, func(i, j int) bool {
		if units[i].Type != units[j].Type {
			return units[i].Type < units[j].Type
		}
		return units[i].NaturalKey < units[j].NaturalKey
	})
	return units, nil
}

func (s *service) DeleteVersion(ctx context.Context, versionID uuid.UUID) error {
	version, err := s.store.GetVersion(ctx, versionID)
	if err != nil {
		return err
	}
	if version.Number == 0 {
		return ErrVersionZeroDeletion
	}

	// Reference checks run under the repository lock so a publication or
	// distribution created concurrently cannot slip in between the check
	// and the delete.
	mu := s.repoLock(version.RepositoryID)
	mu.Lock()
	defer mu.Unlock()

	pubs, err := s.store.ListPublicationsByVersion(ctx, versionID)
	if err != nil {
		return err
	}
	if len(pubs) > 0 {
		return &ReferencedError{Resource: "version", ID: versionID, ReferencedBy: "publication " + pubs[0].ID.String()}
	}
	dists, err := s.store.ListDistributions(ctx)
	if err != nil {
		return err
	}
	for _, d := range dists {
		if d.VersionID != nil && *d.VersionID == versionID {
			return &ReferencedError{Resource: "version", ID: versionID, ReferencedBy: "distribution " + d.BasePath}
		}
	}

	if err := s.store.DeleteVersion(ctx, versionID); err != nil {
		return err
	}

	// Deleting the current version repoints the repository to the highest
	// surviving number. Numbers are never reused, so history stays sparse.
	repo, err := s.store.GetRepository(ctx, version.RepositoryID)
	if err != nil {
		return err
	}
	if repo.CurrentVersion == version.Number {
		survivors, err := s.store.ListVersions(ctx, repo.ID)
		if err != nil {
			return err
		}
		var highest int64
		for _, v := range survivors {
			if v.Number > highest {
				highest = v.Number
			}
		}
		repo.CurrentVersion = highest
		repo.UpdatedAt = time.Now().UTC()
		if err := s.store.UpdateRepository(ctx, repo); err != nil {
			return err
		}
	}
	return nil
}

// Publication operations

func (s *service) CreatePublication(ctx context.Context, req CreatePublicationRequest) (*Publication, error) {
	if (req.VersionID == nil) == (req.RepositoryID == nil) {
		return nil, ErrInvalidTarget
	}

	var version *RepositoryVersion
	var err error
	if req.VersionID != nil {
		version, err = s.store.GetVersion(ctx, *req.VersionID)
	} else {
		var repo *ContentRepository
		repo, err = s.store.GetRepository(ctx, *req.RepositoryID)
		if err == nil {
			// A repository target publishes its current version as of now.
			version, err = s.store.GetVersionByNumber(ctx, repo.ID, repo.CurrentVersion)
		}
	}
	if err != nil {
		return nil, err
	}

	var renderer MetadataRenderer
	if req.Renderer != "" {
		renderer, err = s.getRenderer(req.Renderer)
		if err != nil {
			return nil, err
		}
	}

	units, err := s.VersionContent(ctx, version.ID)
	if err != nil {
		return nil, err
	}

	entries := make(map[string]PublishedEntry)
	var missing []string
	for _, unit := range units {
		for _, ca := range unit.Artifacts {
			if _, ok := entries[ca.RelativePath]; ok {
				return nil, fmt.Errorf("duplicate relative path %q in version %d content", ca.RelativePath, version.Number)
			}
			artifact, err := s.store.GetArtifactByDigest(ctx, ca.Digest)
			if errors.Is(err, ErrArtifactNotFound) {
				missing = append(missing, ca.Digest)
				continue
			}
			if err != nil {
				return nil, err
			}
			blobStore, err := s.GetBlobStore(artifact.StorageBackendName)
			if err != nil {
				return nil, err
			}
			ok, err := blobStore.Exists(ctx, objectKeyForDigest(ca.Digest))
			if err != nil {
				return nil, &StorageError{Backend: artifact.StorageBackendName, Key: objectKeyForDigest(ca.Digest), Op: "exists", Err: err}
			}
			if !ok {
				missing = append(missing, ca.Digest)
				continue
			}
			entries[ca.RelativePath] = PublishedEntry{RelativePath: ca.RelativePath, Digest: ca.Digest, Size: artifact.Size}
		}
	}
	if len(missing) > 0 && (renderer == nil || renderer.RequiresComplete()) {
		sort.Strings(missing)
		return nil, &IncompleteContentError{Missing: missing}
	}

	if renderer != nil {
		files, err := renderer.Render(ctx, version, units)
		if err != nil {
			return nil, fmt.Errorf("renderer %s: %w", renderer.Name(), err)
		}
		for _, file := range files {
			artifact, err := s.UploadArtifact(ctx, bytes.NewReader(file.Data), UploadArtifactRequest{})
			if err != nil {
				return nil, fmt.Errorf("storing rendered metadata %q: %w", file.RelativePath, err)
			}
			entries[file.RelativePath] = PublishedEntry{RelativePath: file.RelativePath, Digest: artifact.Digest, Size: artifact.Size}
		}
	}

	entryList := make([]PublishedEntry, 0, len(entries))
	for _, e := range entries {
		entryList = append(entryList, e)
	}
	sort.Slice(entryList, func(i, j int) bool { return entryList[i].RelativePath < entryList[j].RelativePath })

	pub := &Publication{
		ID:            uuid.New(),
		RepositoryID:  version.RepositoryID,
		VersionID:     version.ID,
		VersionNumber: version.Number,
		Renderer:      req.Renderer,
		Entries:       entryList,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.store.CreatePublication(ctx, pub); err != nil {
		return nil, err
	}

	if s.eventSink != nil {
		if err := s.eventSink.PublicationCreated(ctx, pub); err != nil {
			slog.Warn("publication created event failed", "publication", pub.ID, "err", err)
		}
	}

	return pub, nil
}

func (s *service) GetPublication(ctx context.Context, id uuid.UUID) (*Publication, error) {
	return s.store.GetPublication(ctx, id)
}

func (s *service) ListPublications(ctx context.Context, repositoryID uuid.UUID) ([]*Publication, error) {
	return s.store.ListPublications(ctx, repositoryID)
}

func (s *service) DeletePublication(ctx context.Context, id uuid.UUID) error {
	if _, err := s.store.GetPublication(ctx, id); err != nil {
		return err
	}
	dists, err := s.store.ListDistributions(ctx)
	if err != nil {
		return err
	}
	for _, d := range dists {
		if d.PublicationID != nil && *d.PublicationID == id {
			return &ReferencedError{Resource: "publication", ID: id, ReferencedBy: "distribution " + d.BasePath}
		}
	}
	return s.store.DeletePublication(ctx, id)
}

// Distribution operations

func (s *service) CreateDistribution(ctx context.Context, req CreateDistributionRequest) (*Distribution, error) {
	basePath, err := normalizeBasePath(req.BasePath)
	if err != nil {
		return nil, err
	}
	if err := s.validateTarget(ctx, req.PublicationID, req.VersionID, req.RepositoryID); err != nil {
		return nil, err
	}

	if _, err := s.store.GetDistributionByBasePath(ctx, basePath); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrBasePathTaken, basePath)
	} else if !errors.Is(err, ErrDistributionNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	dist := &Distribution{
		ID:            uuid.New(),
		Name:          req.Name,
		BasePath:      basePath,
		PublicationID: req.PublicationID,
		VersionID:     req.VersionID,
		RepositoryID:  req.RepositoryID,
		Guards:        append([]GuardConfig(nil), req.Guards...),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	// Building the chain up front surfaces unknown guard names and bad
	// configs at create time rather than on the first request.
	if _, err := s.GuardChainFor(dist); err != nil {
		return nil, err
	}
	if err := s.store.CreateDistribution(ctx, dist); err != nil {
		return nil, err
	}

	if s.eventSink != nil {
		if err := s.eventSink.DistributionUpdated(ctx, dist); err != nil {
			slog.Warn("distribution updated event failed", "distribution", dist.ID, "err", err)
		}
	}

	return dist, nil
}

func (s *service) GetDistribution(ctx context.Context, id uuid.UUID) (*Distribution, error) {
	return s.store.GetDistribution(ctx, id)
}

func (s *service) ListDistributions(ctx context.Context) ([]*Distribution, error) {
	return s.store.ListDistributions(ctx)
}

func (s *service) UpdateDistribution(ctx context.Context, req UpdateDistributionRequest) (*Distribution, error) {
	dist, err := s.store.GetDistribution(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		dist.Name = *req.Name
	}
	if req.BasePath != nil {
		basePath, err := normalizeBasePath(*req.BasePath)
		if err != nil {
			return nil, err
		}
		if basePath != dist.BasePath {
			if other, err := s.store.GetDistributionByBasePath(ctx, basePath); err == nil && other.ID != dist.ID {
				return nil, fmt.Errorf("%w: %s", ErrBasePathTaken, basePath)
			} else if err != nil && !errors.Is(err, ErrDistributionNotFound) {
				return nil, err
			}
			dist.BasePath = basePath
		}
	}
	if req.PublicationID != nil || req.VersionID != nil || req.RepositoryID != nil {
		// Any target field present replaces the whole target.
		dist.PublicationID = req.PublicationID
		dist.VersionID = req.VersionID
		dist.RepositoryID = req.RepositoryID
	}
	if req.Guards != nil {
		dist.Guards = append([]GuardConfig(nil), (*req.Guards)...)
	}

	if err := s.validateTarget(ctx, dist.PublicationID, dist.VersionID, dist.RepositoryID); err != nil {
		return nil, err
	}
	if _, err := s.GuardChainFor(dist); err != nil {
		return nil, err
	}

	dist.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateDistribution(ctx, dist); err != nil {
		return nil, err
	}

	if s.eventSink != nil {
		if err := s.eventSink.DistributionUpdated(ctx, dist); err != nil {
			slog.Warn("distribution updated event failed", "distribution", dist.ID, "err", err)
		}
	}

	return dist, nil
}

func (s *service) DeleteDistribution(ctx context.Context, id uuid.UUID) error {
	if _, err := s.store.GetDistribution(ctx, id); err != nil {
		return err
	}
	return s.store.DeleteDistribution(ctx, id)
}

func (s *service) validateTarget(ctx context.Context, pubID, versionID, repoID *uuid.UUID) error {
	count := 0
	for _, p := range []*uuid.UUID{pubID, versionID, repoID} {
		if p != nil {
			count++
		}
	}
	if count != 1 {
		return ErrInvalidTarget
	}
	switch {
	case pubID != nil:
		_, err := s.store.GetPublication(ctx, *pubID)
		return err
	case versionID != nil:
		_, err := s.store.GetVersion(ctx, *versionID)
		return err
	default:
		_, err := s.store.GetRepository(ctx, *repoID)
		return err
	}
}
