package contentdepot_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/content-depot/pkg/contentdepot"
	"github.com/tendant/content-depot/pkg/contentdepot/repo/memory"
	memorystorage "github.com/tendant/content-depot/pkg/contentdepot/storage/memory"
)

func TestServiceCreation(t *testing.T) {
	tests := []struct {
		name        string
		options     []contentdepot.Option
		expectError bool
	}{
		{
			name:        "no options should fail",
			options:     []contentdepot.Option{},
			expectError: true,
		},
		{
			name: "with store should succeed",
			options: []contentdepot.Option{
				contentdepot.WithStore(memory.New()),
			},
			expectError: false,
		},
		{
			name: "with store and blob store should succeed",
			options: []contentdepot.Option{
				contentdepot.WithStore(memory.New()),
				contentdepot.WithBlobStore("memory", memorystorage.New()),
			},
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := contentdepot.New(tt.options...)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, svc)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, svc)
			}
		})
	}
}

func setupTestService(t *testing.T) contentdepot.Service {
	svc, err := contentdepot.New(
		contentdepot.WithStore(memory.New()),
		contentdepot.WithBlobStore("memory", memorystorage.New()),
		contentdepot.WithEventSink(contentdepot.NewNoopEventSink()),
	)
	require.NoError(t, err)
	require.NotNil(t, svc)

	return svc
}

func sha256Hex(data string) string {
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}

func uploadTestArtifact(t *testing.T, svc contentdepot.Service, data string) *contentdepot.Artifact {
	t.Helper()
	artifact, err := svc.UploadArtifact(context.Background(), strings.NewReader(data), contentdepot.UploadArtifactRequest{})
	require.NoError(t, err)
	return artifact
}

// registerTestUnit uploads one artifact and registers a unit that publishes
// it at relativePath.
func registerTestUnit(t *testing.T, svc contentdepot.Service, contentType, naturalKey, relativePath, data string) *contentdepot.ContentUnit {
	t.Helper()
	artifact := uploadTestArtifact(t, svc, data)
	unit, err := svc.RegisterContentUnit(context.Background(), contentdepot.RegisterContentUnitRequest{
		Type:       contentType,
		NaturalKey: naturalKey,
		Artifacts: []contentdepot.ContentArtifact{
			{RelativePath: relativePath, Digest: artifact.Digest},
		},
	})
	require.NoError(t, err)
	return unit
}

func TestUploadArtifactRoundTrip(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	data := "hello, depot"
	artifact := uploadTestArtifact(t, svc, data)

	assert.Equal(t, sha256Hex(data), artifact.Digest)
	assert.Equal(t, int64(len(data)), artifact.Size)
	assert.Equal(t, "memory", artifact.StorageBackendName)

	reader, err := svc.OpenArtifact(ctx, artifact.Digest)
	require.NoError(t, err)
	defer reader.Close()
	got, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, data, string(got))

	exists, err := svc.ArtifactExists(ctx, artifact.Digest)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestUploadArtifactDedupe(t *testing.T) {
	svc := setupTestService(t)

	first := uploadTestArtifact(t, svc, "same bytes")
	second := uploadTestArtifact(t, svc, "same bytes")

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Digest, second.Digest)
}

func TestUploadArtifactExpectedDigest(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	data := "verified payload"

	t.Run("matching digest succeeds", func(t *testing.T) {
		artifact, err := svc.UploadArtifact(ctx, strings.NewReader(data), contentdepot.UploadArtifactRequest{
			ExpectedDigest: sha256Hex(data),
		})
		require.NoError(t, err)
		assert.Equal(t, sha256Hex(data), artifact.Digest)
	})

	t.Run("mismatched digest fails", func(t *testing.T) {
		_, err := svc.UploadArtifact(ctx, strings.NewReader("other payload"), contentdepot.UploadArtifactRequest{
			ExpectedDigest: sha256Hex(data),
		})
		var corruption *contentdepot.CorruptionError
		require.ErrorAs(t, err, &corruption)
		assert.Equal(t, sha256Hex(data), corruption.Expected)
		assert.Equal(t, sha256Hex("other payload"), corruption.Computed)
	})

	t.Run("malformed digest fails", func(t *testing.T) {
		_, err := svc.UploadArtifact(ctx, strings.NewReader(data), contentdepot.UploadArtifactRequest{
			ExpectedDigest: "not-a-digest",
		})
		assert.ErrorIs(t, err, contentdepot.ErrInvalidDigest)
	})
}

func TestGetArtifactNotFound(t *testing.T) {
	svc := setupTestService(t)

	_, err := svc.GetArtifact(context.Background(), sha256Hex("never uploaded"))
	assert.ErrorIs(t, err, contentdepot.ErrArtifactNotFound)
}

func TestRegisterContentUnit(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	artifact := uploadTestArtifact(t, svc, "rpm payload")
	req := contentdepot.RegisterContentUnitRequest{
		Type:       "rpm",
		NaturalKey: "bash-5.2-1.x86_64",
		Artifacts: []contentdepot.ContentArtifact{
			{RelativePath: "Packages/b/bash-5.2-1.x86_64.rpm", Digest: artifact.Digest},
		},
	}

	unit, err := svc.RegisterContentUnit(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "rpm", unit.Type)
	assert.Equal(t, "bash-5.2-1.x86_64", unit.NaturalKey)

	t.Run("idempotent on equal artifact set", func(t *testing.T) {
		again, err := svc.RegisterContentUnit(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, unit.ID, again.ID)
	})

	t.Run("conflict on different artifact set", func(t *testing.T) {
		other := uploadTestArtifact(t, svc, "different payload")
		_, err := svc.RegisterContentUnit(ctx, contentdepot.RegisterContentUnitRequest{
			Type:       "rpm",
			NaturalKey: "bash-5.2-1.x86_64",
			Artifacts: []contentdepot.ContentArtifact{
				{RelativePath: "Packages/b/bash-5.2-1.x86_64.rpm", Digest: other.Digest},
			},
		})
		var conflict *contentdepot.ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, "rpm", conflict.ContentType)
	})

	t.Run("unknown artifact digest fails", func(t *testing.T) {
		_, err := svc.RegisterContentUnit(ctx, contentdepot.RegisterContentUnitRequest{
			Type:       "rpm",
			NaturalKey: "ghost-1.0-1.x86_64",
			Artifacts: []contentdepot.ContentArtifact{
				{RelativePath: "ghost.rpm", Digest: sha256Hex("not uploaded")},
			},
		})
		assert.ErrorIs(t, err, contentdepot.ErrArtifactNotFound)
	})

	t.Run("lookup by natural key", func(t *testing.T) {
		found, err := svc.LookupContentUnit(ctx, "rpm", "bash-5.2-1.x86_64")
		require.NoError(t, err)
		assert.Equal(t, unit.ID, found.ID)

		_, err = svc.LookupContentUnit(ctx, "rpm", "missing")
		assert.ErrorIs(t, err, contentdepot.ErrContentUnitNotFound)
	})
}

func TestCreateRepository(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	repo, err := svc.CreateRepository(ctx, contentdepot.CreateRepositoryRequest{Name: "fedora-updates"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), repo.CurrentVersion)

	// Version 0 exists and is empty.
	base, err := svc.GetVersion(ctx, repo.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), base.Number)
	assert.Equal(t, 0, base.ContentCount)

	units, err := svc.VersionContent(ctx, base.ID)
	require.NoError(t, err)
	assert.Empty(t, units)

	t.Run("duplicate name fails", func(t *testing.T) {
		_, err := svc.CreateRepository(ctx, contentdepot.CreateRepositoryRequest{Name: "fedora-updates"})
		assert.ErrorIs(t, err, contentdepot.ErrRepositoryExists)
	})
}

func TestCreateVersionLifecycle(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	unitA := registerTestUnit(t, svc, "rpm", "a-1.0", "a.rpm", "payload a")
	unitB := registerTestUnit(t, svc, "rpm", "b-1.0", "b.rpm", "payload b")
	unitC := registerTestUnit(t, svc, "rpm", "c-1.0", "c.rpm", "payload c")

	repo, err := svc.CreateRepository(ctx, contentdepot.CreateRepositoryRequest{Name: "r1"})
	require.NoError(t, err)

	v1, err := svc.CreateVersion(ctx, contentdepot.CreateVersionRequest{
		RepositoryID: repo.ID,
		Add:          []uuid.UUID{unitA.ID, unitB.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), v1.Number)
	assert.Equal(t, 2, v1.AddedCount)
	assert.Equal(t, 0, v1.RemovedCount)
	assert.Equal(t, 2, v1.ContentCount)

	v2, err := svc.CreateVersion(ctx, contentdepot.CreateVersionRequest{
		RepositoryID: repo.ID,
		Add:          []uuid.UUID{unitC.ID},
		Remove:       []uuid.UUID{unitA.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), v2.Number)
	assert.Equal(t, 1, v2.AddedCount)
	assert.Equal(t, 1, v2.RemovedCount)
	assert.Equal(t, 2, v2.ContentCount)

	// v2 content is (v1 + C) - A.
	v2Units, err := svc.VersionContent(ctx, v2.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{unitB.ID, unitC.ID}, unitIDs(v2Units))

	// v1 is immutable: its content is unchanged by the v2 commit.
	v1Units, err := svc.VersionContent(ctx, v1.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{unitA.ID, unitB.ID}, unitIDs(v1Units))

	// The repository pointer advanced.
	repo, err = svc.GetRepository(ctx, repo.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), repo.CurrentVersion)
}

func unitIDs(units []*contentdepot.ContentUnit) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(units))
	for _, u := range units {
		ids = append(ids, u.ID)
	}
	return ids
}

func TestCreateVersionEmptyDiff(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	repo, err := svc.CreateRepository(ctx, contentdepot.CreateRepositoryRequest{Name: "r1"})
	require.NoError(t, err)

	got, err := svc.CreateVersion(ctx, contentdepot.CreateVersionRequest{RepositoryID: repo.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Number)

	versions, err := svc.ListVersions(ctx, repo.ID)
	require.NoError(t, err)
	assert.Len(t, versions, 1)
}

func TestCreateVersionValidation(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	unitA := registerTestUnit(t, svc, "rpm", "a-1.0", "a.rpm", "payload a")
	repo, err := svc.CreateRepository(ctx, contentdepot.CreateRepositoryRequest{Name: "r1"})
	require.NoError(t, err)

	t.Run("overlapping add and remove", func(t *testing.T) {
		_, err := svc.CreateVersion(ctx, contentdepot.CreateVersionRequest{
			RepositoryID: repo.ID,
			Add:          []uuid.UUID{unitA.ID},
			Remove:       []uuid.UUID{unitA.ID},
		})
		assert.ErrorIs(t, err, contentdepot.ErrOverlappingSets)
	})

	t.Run("remove of absent unit", func(t *testing.T) {
		_, err := svc.CreateVersion(ctx, contentdepot.CreateVersionRequest{
			RepositoryID: repo.ID,
			Remove:       []uuid.UUID{unitA.ID},
		})
		var notIn *contentdepot.NotInVersionError
		require.ErrorAs(t, err, &notIn)
		assert.Equal(t, unitA.ID, notIn.ContentID)
	})

	t.Run("add of unknown unit", func(t *testing.T) {
		_, err := svc.CreateVersion(ctx, contentdepot.CreateVersionRequest{
			RepositoryID: repo.ID,
			Add:          []uuid.UUID{uuid.New()},
		})
		assert.ErrorIs(t, err, contentdepot.ErrContentUnitNotFound)
	})

	t.Run("unknown repository", func(t *testing.T) {
		_, err := svc.CreateVersion(ctx, contentdepot.CreateVersionRequest{
			RepositoryID: uuid.New(),
			Add:          []uuid.UUID{unitA.ID},
		})
		assert.ErrorIs(t, err, contentdepot.ErrRepositoryNotFound)
	})
}

func TestConcurrentCreateVersion(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	repo, err := svc.CreateRepository(ctx, contentdepot.CreateRepositoryRequest{Name: "busy"})
	require.NoError(t, err)

	const writers = 8
	units := make([]*contentdepot.ContentUnit, writers)
	for i := 0; i < writers; i++ {
		units[i] = registerTestUnit(t, svc, "rpm",
			fmt.Sprintf("pkg-%d", i), fmt.Sprintf("pkg-%d.rpm", i), fmt.Sprintf("payload %d", i))
	}

	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CreateVersion(ctx, contentdepot.CreateVersionRequest{
				RepositoryID: repo.ID,
				Add:          []uuid.UUID{units[i].ID},
			})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "writer %d", i)
	}

	// Writers serialized: every commit got a unique number and the final
	// content is the result of applying all diffs.
	versions, err := svc.ListVersions(ctx, repo.ID)
	require.NoError(t, err)
	assert.Len(t, versions, writers+1)
	seen := make(map[int64]bool)
	for _, v := range versions {
		assert.False(t, seen[v.Number], "duplicate version number %d", v.Number)
		seen[v.Number] = true
	}

	repo, err = svc.GetRepository(ctx, repo.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(writers), repo.CurrentVersion)

	current, err := svc.GetVersion(ctx, repo.ID, repo.CurrentVersion)
	require.NoError(t, err)
	finalUnits, err := svc.VersionContent(ctx, current.ID)
	require.NoError(t, err)
	assert.Len(t, finalUnits, writers)
}

func TestDeleteVersion(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	unitA := registerTestUnit(t, svc, "rpm", "a-1.0", "a.rpm", "payload a")
	unitB := registerTestUnit(t, svc, "rpm", "b-1.0", "b.rpm", "payload b")

	repo, err := svc.CreateRepository(ctx, contentdepot.CreateRepositoryRequest{Name: "r1"})
	require.NoError(t, err)

	v1, err := svc.CreateVersion(ctx, contentdepot.CreateVersionRequest{RepositoryID: repo.ID, Add: []uuid.UUID{unitA.ID}})
	require.NoError(t, err)
	v2, err := svc.CreateVersion(ctx, contentdepot.CreateVersionRequest{RepositoryID: repo.ID, Add: []uuid.UUID{unitB.ID}})
	require.NoError(t, err)

	t.Run("version zero is protected", func(t *testing.T) {
		base, err := svc.GetVersion(ctx, repo.ID, 0)
		require.NoError(t, err)
		assert.ErrorIs(t, svc.DeleteVersion(ctx, base.ID), contentdepot.ErrVersionZeroDeletion)
	})

	t.Run("deleting an intermediate version keeps numbering sparse", func(t *testing.T) {
		require.NoError(t, svc.DeleteVersion(ctx, v1.ID))

		_, err := svc.GetVersion(ctx, repo.ID, 1)
		assert.ErrorIs(t, err, contentdepot.ErrVersionNotFound)

		// The current pointer is untouched.
		repo, err := svc.GetRepository(ctx, repo.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), repo.CurrentVersion)
	})

	t.Run("deleting the current version repoints and never reuses numbers", func(t *testing.T) {
		require.NoError(t, svc.DeleteVersion(ctx, v2.ID))

		repo, err := svc.GetRepository(ctx, repo.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), repo.CurrentVersion)

		next, err := svc.CreateVersion(ctx, contentdepot.CreateVersionRequest{RepositoryID: repo.ID, Add: []uuid.UUID{unitA.ID}})
		require.NoError(t, err)
		assert.Equal(t, int64(3), next.Number)
	})
}

func TestDeleteVersionReferenced(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	unit := registerTestUnit(t, svc, "rpm", "a-1.0", "a.rpm", "payload a")
	repo, err := svc.CreateRepository(ctx, contentdepot.CreateRepositoryRequest{Name: "r1"})
	require.NoError(t, err)
	v1, err := svc.CreateVersion(ctx, contentdepot.CreateVersionRequest{RepositoryID: repo.ID, Add: []uuid.UUID{unit.ID}})
	require.NoError(t, err)

	pub, err := svc.CreatePublication(ctx, contentdepot.CreatePublicationRequest{VersionID: &v1.ID})
	require.NoError(t, err)

	var referenced *contentdepot.ReferencedError
	err = svc.DeleteVersion(ctx, v1.ID)
	require.ErrorAs(t, err, &referenced)
	assert.Equal(t, "version", referenced.Resource)

	// Dropping the publication unblocks the delete.
	require.NoError(t, svc.DeletePublication(ctx, pub.ID))
	require.NoError(t, svc.DeleteVersion(ctx, v1.ID))
}

// parkingStore wraps a Store and, once armed, parks the next
// ListPublicationsByVersion call until released. It exposes the window
// between a deletion's reference check and its commit.
type parkingStore struct {
	contentdepot.Store
	armed   atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func (p *parkingStore) ListPublicationsByVersion(ctx context.Context, versionID uuid.UUID) ([]*contentdepot.Publication, error) {
	if p.armed.CompareAndSwap(true, false) {
		close(p.entered)
		<-p.release
	}
	return p.Store.ListPublicationsByVersion(ctx, versionID)
}

func TestDeleteVersionSerializesWithVersionCreation(t *testing.T) {
	store := &parkingStore{
		Store:   memory.New(),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	svc, err := contentdepot.New(
		contentdepot.WithStore(store),
		contentdepot.WithBlobStore("memory", memorystorage.New()),
	)
	require.NoError(t, err)
	ctx := context.Background()

	unitA := registerTestUnit(t, svc, "rpm", "a-1.0", "a.rpm", "payload a")
	unitB := registerTestUnit(t, svc, "rpm", "b-1.0", "b.rpm", "payload b")
	unitC := registerTestUnit(t, svc, "rpm", "c-1.0", "c.rpm", "payload c")
	repo, err := svc.CreateRepository(ctx, contentdepot.CreateRepositoryRequest{Name: "r1"})
	require.NoError(t, err)
	v1, err := svc.CreateVersion(ctx, contentdepot.CreateVersionRequest{RepositoryID: repo.ID, Add: []uuid.UUID{unitA.ID}})
	require.NoError(t, err)
	_, err = svc.CreateVersion(ctx, contentdepot.CreateVersionRequest{RepositoryID: repo.ID, Add: []uuid.UUID{unitB.ID}})
	require.NoError(t, err)

	// Park the deletion inside its reference check.
	store.armed.Store(true)
	deleteDone := make(chan error, 1)
	go func() {
		deleteDone <- svc.DeleteVersion(ctx, v1.ID)
	}()
	<-store.entered

	// A concurrent commit on the same repository must wait for the parked
	// deletion; the reference check and the delete are one critical section.
	createDone := make(chan error, 1)
	go func() {
		_, err := svc.CreateVersion(ctx, contentdepot.CreateVersionRequest{RepositoryID: repo.ID, Add: []uuid.UUID{unitC.ID}})
		createDone <- err
	}()

	select {
	case <-createDone:
		t.Fatal("version creation proceeded while a deletion held the repository")
	case <-time.After(50 * time.Millisecond):
	}

	close(store.release)
	require.NoError(t, <-deleteDone)
	require.NoError(t, <-createDone)
}

func TestDeleteRepository(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	unit := registerTestUnit(t, svc, "rpm", "a-1.0", "a.rpm", "payload a")
	repo, err := svc.CreateRepository(ctx, contentdepot.CreateRepositoryRequest{Name: "r1"})
	require.NoError(t, err)
	v1, err := svc.CreateVersion(ctx, contentdepot.CreateVersionRequest{RepositoryID: repo.ID, Add: []uuid.UUID{unit.ID}})
	require.NoError(t, err)

	pub, err := svc.CreatePublication(ctx, contentdepot.CreatePublicationRequest{VersionID: &v1.ID})
	require.NoError(t, err)
	dist, err := svc.CreateDistribution(ctx, contentdepot.CreateDistributionRequest{
		BasePath:      "r1/stable",
		PublicationID: &pub.ID,
	})
	require.NoError(t, err)

	t.Run("blocked while a distribution serves it", func(t *testing.T) {
		var referenced *contentdepot.ReferencedError
		err := svc.DeleteRepository(ctx, repo.ID)
		require.ErrorAs(t, err, &referenced)
	})

	t.Run("cascade once unreferenced", func(t *testing.T) {
		require.NoError(t, svc.DeleteDistribution(ctx, dist.ID))
		require.NoError(t, svc.DeleteRepository(ctx, repo.ID))

		_, err := svc.GetRepository(ctx, repo.ID)
		assert.ErrorIs(t, err, contentdepot.ErrRepositoryNotFound)
		_, err = svc.GetPublication(ctx, pub.ID)
		assert.ErrorIs(t, err, contentdepot.ErrPublicationNotFound)
		_, err = svc.GetVersion(ctx, repo.ID, 1)
		assert.ErrorIs(t, err, contentdepot.ErrVersionNotFound)

		// Content units outlive the repositories that held them.
		_, err = svc.GetContentUnit(ctx, unit.ID)
		assert.NoError(t, err)
	})
}

func TestVersionContentOrdering(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	zeta := registerTestUnit(t, svc, "rpm", "zeta-1.0", "zeta.rpm", "z")
	alpha := registerTestUnit(t, svc, "rpm", "alpha-1.0", "alpha.rpm", "a")
	doc := registerTestUnit(t, svc, "doc", "manual-1.0", "manual.pdf", "m")

	repo, err := svc.CreateRepository(ctx, contentdepot.CreateRepositoryRequest{Name: "r1"})
	require.NoError(t, err)
	v1, err := svc.CreateVersion(ctx, contentdepot.CreateVersionRequest{
		RepositoryID: repo.ID,
		Add:          []uuid.UUID{zeta.ID, alpha.ID, doc.ID},
	})
	require.NoError(t, err)

	units, err := svc.VersionContent(ctx, v1.ID)
	require.NoError(t, err)
	require.Len(t, units, 3)
	// Sorted by type, then natural key.
	assert.Equal(t, doc.ID, units[0].ID)
	assert.Equal(t, alpha.ID, units[1].ID)
	assert.Equal(t, zeta.ID, units[2].ID)
}

func TestErrorsAreComparable(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", contentdepot.ErrRepositoryNotFound)
	assert.True(t, errors.Is(err, contentdepot.ErrRepositoryNotFound))

	storageErr := &contentdepot.StorageError{Backend: "s3", Key: "k", Op: "upload", Err: io.ErrUnexpectedEOF}
	assert.True(t, errors.Is(storageErr, io.ErrUnexpectedEOF))
}
