package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/tendant/content-depot/pkg/contentdepot"
)

// Store implements contentdepot.Store using in-memory storage
type Store struct {
	mu sync.RWMutex

	artifacts       map[string]*contentdepot.Artifact // digest -> artifact
	units           map[uuid.UUID]*contentdepot.ContentUnit
	unitsByKey      map[string]uuid.UUID // "type\x00natural_key" -> unit id
	repositories    map[uuid.UUID]*contentdepot.ContentRepository
	reposByName     map[string]uuid.UUID
	versions        map[uuid.UUID]*contentdepot.RepositoryVersion
	versionContent  map[uuid.UUID][]uuid.UUID // version id -> member unit ids
	publications    map[uuid.UUID]*contentdepot.Publication
	distributions   map[uuid.UUID]*contentdepot.Distribution
	distsByBasePath map[string]uuid.UUID
}

// New creates a new in-memory store
func New() contentdepot.Store {
	return &Store{
		artifacts:       make(map[string]*contentdepot.Artifact),
		units:           make(map[uuid.UUID]*contentdepot.ContentUnit),
		unitsByKey:      make(map[string]uuid.UUID),
		repositories:    make(map[uuid.UUID]*contentdepot.ContentRepository),
		reposByName:     make(map[string]uuid.UUID),
		versions:        make(map[uuid.UUID]*contentdepot.RepositoryVersion),
		versionContent:  make(map[uuid.UUID][]uuid.UUID),
		publications:    make(map[uuid.UUID]*contentdepot.Publication),
		distributions:   make(map[uuid.UUID]*contentdepot.Distribution),
		distsByBasePath: make(map[string]uuid.UUID),
	}
}

func unitKey(contentType, naturalKey string) string {
	return contentType + "\x00" + naturalKey
}

// Artifact operations

func (s *Store) CreateArtifact(ctx context.Context, artifact *contentdepot.Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.artifacts[artifact.Digest]; exists {
		return contentdepot.ErrConcurrentModification
	}
	artifactCopy := *artifact
	s.artifacts[artifact.Digest] = &artifactCopy
	return nil
}

func (s *Store) GetArtifactByDigest(ctx context.Context, digest string) (*contentdepot.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	artifact, exists := s.artifacts[digest]
	if !exists {
		return nil, contentdepot.ErrArtifactNotFound
	}
	artifactCopy := *artifact
	return &artifactCopy, nil
}

func (s *Store) DeleteArtifact(ctx context.Context, digest string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.artifacts[digest]; !exists {
		return contentdepot.ErrArtifactNotFound
	}
	delete(s.artifacts, digest)
	return nil
}

// Content unit operations

func (s *Store) CreateContentUnit(ctx context.Context, unit *contentdepot.ContentUnit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := unitKey(unit.Type, unit.NaturalKey)
	if _, exists := s.unitsByKey[key]; exists {
		return contentdepot.ErrConcurrentModification
	}
	unitCopy := *unit
	unitCopy.Artifacts = append([]contentdepot.ContentArtifact(nil), unit.Artifacts...)
	s.units[unit.ID] = &unitCopy
	s.unitsByKey[key] = unit.ID
	return nil
}

func (s *Store) GetContentUnit(ctx context.Context, id uuid.UUID) (*contentdepot.ContentUnit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	unit, exists := s.units[id]
	if !exists {
		return nil, contentdepot.ErrContentUnitNotFound
	}
	return copyUnit(unit), nil
}

func (s *Store) GetContentUnitByKey(ctx context.Context, contentType, naturalKey string) (*contentdepot.ContentUnit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.unitsByKey[unitKey(contentType, naturalKey)]
	if !exists {
		return nil, contentdepot.ErrContentUnitNotFound
	}
	return copyUnit(s.units[id]), nil
}

func (s *Store) ListContentUnits(ctx context.Context, contentType string) ([]*contentdepot.ContentUnit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*contentdepot.ContentUnit
	for _, unit := range s.units {
		if contentType == "" || unit.Type == contentType {
			result = append(result, copyUnit(unit))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Type != result[j].Type {
			return result[i].Type < result[j].Type
		}
		return result[i].NaturalKey < result[j].NaturalKey
	})
	return result, nil
}

func copyUnit(unit *contentdepot.ContentUnit) *contentdepot.ContentUnit {
	unitCopy := *unit
	unitCopy.Artifacts = append([]contentdepot.ContentArtifact(nil), unit.Artifacts...)
	return &unitCopy
}

// Repository operations

func (s *Store) CreateRepository(ctx context.Context, repo *contentdepot.ContentRepository) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reposByName[repo.Name]; exists {
		return contentdepot.ErrRepositoryExists
	}
	repoCopy := *repo
	s.repositories[repo.ID] = &repoCopy
	s.reposByName[repo.Name] = repo.ID
	return nil
}

func (s *Store) GetRepository(ctx context.Context, id uuid.UUID) (*contentdepot.ContentRepository, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	repo, exists := s.repositories[id]
	if !exists {
		return nil, contentdepot.ErrRepositoryNotFound
	}
	repoCopy := *repo
	return &repoCopy, nil
}

func (s *Store) GetRepositoryByName(ctx context.Context, name string) (*contentdepot.ContentRepository, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.reposByName[name]
	if !exists {
		return nil, contentdepot.ErrRepositoryNotFound
	}
	repoCopy := *s.repositories[id]
	return &repoCopy, nil
}

func (s *Store) ListRepositories(ctx context.Context) ([]*contentdepot.ContentRepository, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*contentdepot.ContentRepository, 0, len(s.repositories))
	for _, repo := range s.repositories {
		repoCopy := *repo
		result = append(result, &repoCopy)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (s *Store) UpdateRepository(ctx context.Context, repo *contentdepot.ContentRepository) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.repositories[repo.ID]
	if !exists {
		return contentdepot.ErrRepositoryNotFound
	}
	if existing.Name != repo.Name {
		delete(s.reposByName, existing.Name)
		s.reposByName[repo.Name] = repo.ID
	}
	repoCopy := *repo
	s.repositories[repo.ID] = &repoCopy
	return nil
}

func (s *Store) DeleteRepository(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	repo, exists := s.repositories[id]
	if !exists {
		return contentdepot.ErrRepositoryNotFound
	}

	// Deleting a repository invalidates its whole version chain.
	for versionID, version := range s.versions {
		if version.RepositoryID == id {
			delete(s.versions, versionID)
			delete(s.versionContent, versionID)
		}
	}
	delete(s.reposByName, repo.Name)
	delete(s.repositories, id)
	return nil
}

// Version operations

func (s *Store) CreateVersion(ctx context.Context, version *contentdepot.RepositoryVersion, contentIDs []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.repositories[version.RepositoryID]; !exists {
		return contentdepot.ErrRepositoryNotFound
	}
	for _, v := range s.versions {
		if v.RepositoryID == version.RepositoryID && v.Number == version.Number {
			return contentdepot.ErrConcurrentModification
		}
	}
	versionCopy := *version
	s.versions[version.ID] = &versionCopy
	s.versionContent[version.ID] = append([]uuid.UUID(nil), contentIDs...)
	return nil
}

func (s *Store) GetVersion(ctx context.Context, id uuid.UUID) (*contentdepot.RepositoryVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	version, exists := s.versions[id]
	if !exists {
		return nil, contentdepot.ErrVersionNotFound
	}
	versionCopy := *version
	return &versionCopy, nil
}

func (s *Store) GetVersionByNumber(ctx context.Context, repositoryID uuid.UUID, number int64) (*contentdepot.RepositoryVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, version := range s.versions {
		if version.RepositoryID == repositoryID && version.Number == number {
			versionCopy := *version
			return &versionCopy, nil
		}
	}
	return nil, contentdepot.ErrVersionNotFound
}

func (s *Store) ListVersions(ctx context.Context, repositoryID uuid.UUID) ([]*contentdepot.RepositoryVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*contentdepot.RepositoryVersion
	for _, version := range s.versions {
		if version.RepositoryID == repositoryID {
			versionCopy := *version
			result = append(result, &versionCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Number < result[j].Number })
	return result, nil
}

func (s *Store) GetVersionContent(ctx context.Context, versionID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, exists := s.versions[versionID]; !exists {
		return nil, contentdepot.ErrVersionNotFound
	}
	return append([]uuid.UUID(nil), s.versionContent[versionID]...), nil
}

func (s *Store) DeleteVersion(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.versions[id]; !exists {
		return contentdepot.ErrVersionNotFound
	}
	delete(s.versions, id)
	delete(s.versionContent, id)
	return nil
}

// Publication operations

func (s *Store) CreatePublication(ctx context.Context, pub *contentdepot.Publication) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pubCopy := *pub
	pubCopy.Entries = append([]contentdepot.PublishedEntry(nil), pub.Entries...)
	s.publications[pub.ID] = &pubCopy
	return nil
}

func (s *Store) GetPublication(ctx context.Context, id uuid.UUID) (*contentdepot.Publication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pub, exists := s.publications[id]
	if !exists {
		return nil, contentdepot.ErrPublicationNotFound
	}
	pubCopy := *pub
	pubCopy.Entries = append([]contentdepot.PublishedEntry(nil), pub.Entries...)
	return &pubCopy, nil
}

func (s *Store) ListPublications(ctx context.Context, repositoryID uuid.UUID) ([]*contentdepot.Publication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*contentdepot.Publication
	for _, pub := range s.publications {
		if pub.RepositoryID == repositoryID {
			pubCopy := *pub
			pubCopy.Entries = append([]contentdepot.PublishedEntry(nil), pub.Entries...)
			result = append(result, &pubCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) ListPublicationsByVersion(ctx context.Context, versionID uuid.UUID) ([]*contentdepot.Publication, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*contentdepot.Publication
	for _, pub := range s.publications {
		if pub.VersionID == versionID {
			pubCopy := *pub
			pubCopy.Entries = append([]contentdepot.PublishedEntry(nil), pub.Entries...)
			result = append(result, &pubCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) DeletePublication(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.publications[id]; !exists {
		return contentdepot.ErrPublicationNotFound
	}
	delete(s.publications, id)
	return nil
}

// Distribution operations

func (s *Store) CreateDistribution(ctx context.Context, dist *contentdepot.Distribution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.distsByBasePath[dist.BasePath]; exists {
		return contentdepot.ErrBasePathTaken
	}
	s.distributions[dist.ID] = copyDistribution(dist)
	s.distsByBasePath[dist.BasePath] = dist.ID
	return nil
}

func (s *Store) GetDistribution(ctx context.Context, id uuid.UUID) (*contentdepot.Distribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dist, exists := s.distributions[id]
	if !exists {
		return nil, contentdepot.ErrDistributionNotFound
	}
	return copyDistribution(dist), nil
}

func (s *Store) GetDistributionByBasePath(ctx context.Context, basePath string) (*contentdepot.Distribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.distsByBasePath[basePath]
	if !exists {
		return nil, contentdepot.ErrDistributionNotFound
	}
	return copyDistribution(s.distributions[id]), nil
}

func (s *Store) ListDistributions(ctx context.Context) ([]*contentdepot.Distribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*contentdepot.Distribution, 0, len(s.distributions))
	for _, dist := range s.distributions {
		result = append(result, copyDistribution(dist))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].BasePath < result[j].BasePath })
	return result, nil
}

func (s *Store) UpdateDistribution(ctx context.Context, dist *contentdepot.Distribution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.distributions[dist.ID]
	if !exists {
		return contentdepot.ErrDistributionNotFound
	}
	if existing.BasePath != dist.BasePath {
		if _, taken := s.distsByBasePath[dist.BasePath]; taken {
			return contentdepot.ErrBasePathTaken
		}
		delete(s.distsByBasePath, existing.BasePath)
		s.distsByBasePath[dist.BasePath] = dist.ID
	}
	s.distributions[dist.ID] = copyDistribution(dist)
	return nil
}

func (s *Store) DeleteDistribution(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dist, exists := s.distributions[id]
	if !exists {
		return contentdepot.ErrDistributionNotFound
	}
	delete(s.distsByBasePath, dist.BasePath)
	delete(s.distributions, id)
	return nil
}

func copyDistribution(dist *contentdepot.Distribution) *contentdepot.Distribution {
	distCopy := *dist
	distCopy.Guards = append([]contentdepot.GuardConfig(nil), dist.Guards...)
	if dist.PublicationID != nil {
		id := *dist.PublicationID
		distCopy.PublicationID = &id
	}
	if dist.VersionID != nil {
		id := *dist.VersionID
		distCopy.VersionID = &id
	}
	if dist.RepositoryID != nil {
		id := *dist.RepositoryID
		distCopy.RepositoryID = &id
	}
	return &distCopy
}
