package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/content-depot/pkg/contentdepot"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Store implements contentdepot.Store using PostgreSQL
type Store struct {
	db DBTX
}

// New creates a new PostgreSQL store
func New(db DBTX) contentdepot.Store {
	return &Store{db: db}
}

// NewWithPool creates a new PostgreSQL store with connection pool
func NewWithPool(pool *pgxpool.Pool) contentdepot.Store {
	return &Store{db: pool}
}

// Error handling helper
func (s *Store) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			if strings.Contains(pgErr.ConstraintName, "repository_version") {
				return contentdepot.ErrConcurrentModification
			}
			if strings.Contains(pgErr.ConstraintName, "repository") {
				return contentdepot.ErrRepositoryExists
			}
			if strings.Contains(pgErr.ConstraintName, "distribution") {
				return contentdepot.ErrBasePathTaken
			}
			return contentdepot.ErrConcurrentModification
		case "23503": // foreign_key_violation
			return fmt.Errorf("referenced record not found")
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}
	return fmt.Errorf("database error in %s: %w", operation, err)
}

// Artifact operations

func (s *Store) CreateArtifact(ctx context.Context, artifact *contentdepot.Artifact) error {
	query := `
		INSERT INTO artifact (id, digest, size, storage_backend_name, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.db.Exec(ctx, query,
		artifact.ID, artifact.Digest, artifact.Size, artifact.StorageBackendName, artifact.CreatedAt)
	if err != nil {
		return s.handlePostgresError("create artifact", err)
	}
	return nil
}

func (s *Store) GetArtifactByDigest(ctx context.Context, digest string) (*contentdepot.Artifact, error) {
	query := `
		SELECT id, digest, size, storage_backend_name, created_at
		FROM artifact WHERE digest = $1`

	var artifact contentdepot.Artifact
	err := s.db.QueryRow(ctx, query, digest).Scan(
		&artifact.ID, &artifact.Digest, &artifact.Size, &artifact.StorageBackendName, &artifact.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, contentdepot.ErrArtifactNotFound
		}
		return nil, err
	}
	return &artifact, nil
}

func (s *Store) DeleteArtifact(ctx context.Context, digest string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM artifact WHERE digest = $1`, digest)
	if err != nil {
		return s.handlePostgresError("delete artifact", err)
	}
	if tag.RowsAffected() == 0 {
		return contentdepot.ErrArtifactNotFound
	}
	return nil
}

// Content unit operations

func (s *Store) CreateContentUnit(ctx context.Context, unit *contentdepot.ContentUnit) error {
	artifacts, err := json.Marshal(unit.Artifacts)
	if err != nil {
		return fmt.Errorf("failed to marshal artifacts: %w", err)
	}

	query := `
		INSERT INTO content_unit (id, content_type, natural_key, artifacts, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err = s.db.Exec(ctx, query,
		unit.ID, unit.Type, unit.NaturalKey, artifacts, unit.CreatedAt)
	if err != nil {
		return s.handlePostgresError("create content unit", err)
	}
	return nil
}

func (s *Store) scanContentUnit(row pgx.Row) (*contentdepot.ContentUnit, error) {
	var unit contentdepot.ContentUnit
	var artifacts []byte
	err := row.Scan(&unit.ID, &unit.Type, &unit.NaturalKey, &artifacts, &unit.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, contentdepot.ErrContentUnitNotFound
		}
		return nil, err
	}
	if len(artifacts) > 0 {
		if err := json.Unmarshal(artifacts, &unit.Artifacts); err != nil {
			return nil, fmt.Errorf("failed to unmarshal artifacts: %w", err)
		}
	}
	return &unit, nil
}

func (s *Store) GetContentUnit(ctx context.Context, id uuid.UUID) (*contentdepot.ContentUnit, error) {
	query := `
		SELECT id, content_type, natural_key, artifacts, created_at
		FROM content_unit WHERE id = $1`
	return s.scanContentUnit(s.db.QueryRow(ctx, query, id))
}

func (s *Store) GetContentUnitByKey(ctx context.Context, contentType, naturalKey string) (*contentdepot.ContentUnit, error) {
	query := `
		SELECT id, content_type, natural_key, artifacts, created_at
		FROM content_unit WHERE content_type = $1 AND natural_key = $2`
	return s.scanContentUnit(s.db.QueryRow(ctx, query, contentType, naturalKey))
}

func (s *Store) ListContentUnits(ctx context.Context, contentType string) ([]*contentdepot.ContentUnit, error) {
	query := `
		SELECT id, content_type, natural_key, artifacts, created_at
		FROM content_unit`
	args := []interface{}{}
	if contentType != "" {
		query += ` WHERE content_type = $1`
		args = append(args, contentType)
	}
	query += ` ORDER BY content_type, natural_key`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, s.handlePostgresError("list content units", err)
	}
	defer rows.Close()

	var result []*contentdepot.ContentUnit
	for rows.Next() {
		unit, err := s.scanContentUnit(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, unit)
	}
	return result, rows.Err()
}

// Repository operations

func (s *Store) CreateRepository(ctx context.Context, repo *contentdepot.ContentRepository) error {
	query := `
		INSERT INTO repository (id, name, description, current_version, next_version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.db.Exec(ctx, query,
		repo.ID, repo.Name, repo.Description, repo.CurrentVersion, repo.NextVersion, repo.CreatedAt, repo.UpdatedAt)
	if err != nil {
		return s.handlePostgresError("create repository", err)
	}
	return nil
}

func (s *Store) scanRepository(row pgx.Row) (*contentdepot.ContentRepository, error) {
	var repo contentdepot.ContentRepository
	err := row.Scan(&repo.ID, &repo.Name, &repo.Description, &repo.CurrentVersion, &repo.NextVersion, &repo.CreatedAt, &repo.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, contentdepot.ErrRepositoryNotFound
		}
		return nil, err
	}
	return &repo, nil
}

func (s *Store) GetRepository(ctx context.Context, id uuid.UUID) (*contentdepot.ContentRepository, error) {
	query := `
		SELECT id, name, description, current_version, next_version, created_at, updated_at
		FROM repository WHERE id = $1`
	return s.scanRepository(s.db.QueryRow(ctx, query, id))
}

func (s *Store) GetRepositoryByName(ctx context.Context, name string) (*contentdepot.ContentRepository, error) {
	query := `
		SELECT id, name, description, current_version, next_version, created_at, updated_at
		FROM repository WHERE name = $1`
	return s.scanRepository(s.db.QueryRow(ctx, query, name))
}

func (s *Store) ListRepositories(ctx context.Context) ([]*contentdepot.ContentRepository, error) {
	query := `
		SELECT id, name, description, current_version, next_version, created_at, updated_at
		FROM repository ORDER BY name`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, s.handlePostgresError("list repositories", err)
	}
	defer rows.Close()

	var result []*contentdepot.ContentRepository
	for rows.Next() {
		repo, err := s.scanRepository(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, repo)
	}
	return result, rows.Err()
}

func (s *Store) UpdateRepository(ctx context.Context, repo *contentdepot.ContentRepository) error {
	query := `
		UPDATE repository SET
			name = $2, description = $3, current_version = $4, next_version = $5, updated_at = $6
		WHERE id = $1`

	tag, err := s.db.Exec(ctx, query,
		repo.ID, repo.Name, repo.Description, repo.CurrentVersion, repo.NextVersion, repo.UpdatedAt)
	if err != nil {
		return s.handlePostgresError("update repository", err)
	}
	if tag.RowsAffected() == 0 {
		return contentdepot.ErrRepositoryNotFound
	}
	return nil
}

func (s *Store) DeleteRepository(ctx context.Context, id uuid.UUID) error {
	// repository_version and repository_version_content cascade via FK
	tag, err := s.db.Exec(ctx, `DELETE FROM repository WHERE id = $1`, id)
	if err != nil {
		return s.handlePostgresError("delete repository", err)
	}
	if tag.RowsAffected() == 0 {
		return contentdepot.ErrRepositoryNotFound
	}
	return nil
}

// Version operations

// CreateVersion inserts the version row and its full membership atomically.
// Readers never observe a version with a partial content set.
func (s *Store) CreateVersion(ctx context.Context, version *contentdepot.RepositoryVersion, contentIDs []uuid.UUID) error {
	starter, ok := s.db.(interface {
		Begin(ctx context.Context) (pgx.Tx, error)
	})
	if !ok {
		// Already inside a caller-supplied transaction.
		return s.insertVersion(ctx, s.db, version, contentIDs)
	}

	tx, err := starter.Begin(ctx)
	if err != nil {
		return s.handlePostgresError("begin create version", err)
	}
	defer tx.Rollback(ctx)

	if err := s.insertVersion(ctx, tx, version, contentIDs); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return s.handlePostgresError("commit create version", err)
	}
	return nil
}

func (s *Store) insertVersion(ctx context.Context, db DBTX, version *contentdepot.RepositoryVersion, contentIDs []uuid.UUID) error {
	query := `
		INSERT INTO repository_version (id, repository_id, number, added_count, removed_count, content_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := db.Exec(ctx, query,
		version.ID, version.RepositoryID, version.Number,
		version.AddedCount, version.RemovedCount, version.ContentCount, version.CreatedAt)
	if err != nil {
		return s.handlePostgresError("create version", err)
	}

	for _, contentID := range contentIDs {
		_, err := db.Exec(ctx,
			`INSERT INTO repository_version_content (version_id, content_unit_id) VALUES ($1, $2)`,
			version.ID, contentID)
		if err != nil {
			return s.handlePostgresError("create version content", err)
		}
	}
	return nil
}

func (s *Store) scanVersion(row pgx.Row) (*contentdepot.RepositoryVersion, error) {
	var version contentdepot.RepositoryVersion
	err := row.Scan(&version.ID, &version.RepositoryID, &version.Number,
		&version.AddedCount, &version.RemovedCount, &version.ContentCount, &version.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, contentdepot.ErrVersionNotFound
		}
		return nil, err
	}
	return &version, nil
}

func (s *Store) GetVersion(ctx context.Context, id uuid.UUID) (*contentdepot.RepositoryVersion, error) {
	query := `
		SELECT id, repository_id, number, added_count, removed_count, content_count, created_at
		FROM repository_version WHERE id = $1`
	return s.scanVersion(s.db.QueryRow(ctx, query, id))
}

func (s *Store) GetVersionByNumber(ctx context.Context, repositoryID uuid.UUID, number int64) (*contentdepot.RepositoryVersion, error) {
	query := `
		SELECT id, repository_id, number, added_count, removed_count, content_count, created_at
		FROM repository_version WHERE repository_id = $1 AND number = $2`
	return s.scanVersion(s.db.QueryRow(ctx, query, repositoryID, number))
}

func (s *Store) ListVersions(ctx context.Context, repositoryID uuid.UUID) ([]*contentdepot.RepositoryVersion, error) {
	query := `
		SELECT id, repository_id, number, added_count, removed_count, content_count, created_at
		FROM repository_version WHERE repository_id = $1 ORDER BY number`

	rows, err := s.db.Query(ctx, query, repositoryID)
	if err != nil {
		return nil, s.handlePostgresError("list versions", err)
	}
	defer rows.Close()

	var result []*contentdepot.RepositoryVersion
	for rows.Next() {
		version, err := s.scanVersion(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, version)
	}
	return result, rows.Err()
}

func (s *Store) GetVersionContent(ctx context.Context, versionID uuid.UUID) ([]uuid.UUID, error) {
	if _, err := s.GetVersion(ctx, versionID); err != nil {
		return nil, err
	}

	query := `
		SELECT content_unit_id FROM repository_version_content
		WHERE version_id = $1 ORDER BY content_unit_id`

	rows, err := s.db.Query(ctx, query, versionID)
	if err != nil {
		return nil, s.handlePostgresError("get version content", err)
	}
	defer rows.Close()

	var result []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		result = append(result, id)
	}
	return result, rows.Err()
}

func (s *Store) DeleteVersion(ctx context.Context, id uuid.UUID) error {
	// repository_version_content cascades via FK
	tag, err := s.db.Exec(ctx, `DELETE FROM repository_version WHERE id = $1`, id)
	if err != nil {
		return s.handlePostgresError("delete version", err)
	}
	if tag.RowsAffected() == 0 {
		return contentdepot.ErrVersionNotFound
	}
	return nil
}

// Publication operations

func (s *Store) CreatePublication(ctx context.Context, pub *contentdepot.Publication) error {
	entries, err := json.Marshal(pub.Entries)
	if err != nil {
		return fmt.Errorf("failed to marshal entries: %w", err)
	}

	query := `
		INSERT INTO publication (id, repository_id, version_id, version_number, renderer, entries, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = s.db.Exec(ctx, query,
		pub.ID, pub.RepositoryID, pub.VersionID, pub.VersionNumber, pub.Renderer, entries, pub.CreatedAt)
	if err != nil {
		return s.handlePostgresError("create publication", err)
	}
	return nil
}

func (s *Store) scanPublication(row pgx.Row) (*contentdepot.Publication, error) {
	var pub contentdepot.Publication
	var entries []byte
	err := row.Scan(&pub.ID, &pub.RepositoryID, &pub.VersionID, &pub.VersionNumber,
		&pub.Renderer, &entries, &pub.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, contentdepot.ErrPublicationNotFound
		}
		return nil, err
	}
	if len(entries) > 0 {
		if err := json.Unmarshal(entries, &pub.Entries); err != nil {
			return nil, fmt.Errorf("failed to unmarshal entries: %w", err)
		}
	}
	return &pub, nil
}

func (s *Store) GetPublication(ctx context.Context, id uuid.UUID) (*contentdepot.Publication, error) {
	query := `
		SELECT id, repository_id, version_id, version_number, renderer, entries, created_at
		FROM publication WHERE id = $1`
	return s.scanPublication(s.db.QueryRow(ctx, query, id))
}

func (s *Store) listPublications(ctx context.Context, query string, arg interface{}) ([]*contentdepot.Publication, error) {
	rows, err := s.db.Query(ctx, query, arg)
	if err != nil {
		return nil, s.handlePostgresError("list publications", err)
	}
	defer rows.Close()

	var result []*contentdepot.Publication
	for rows.Next() {
		pub, err := s.scanPublication(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, pub)
	}
	return result, rows.Err()
}

func (s *Store) ListPublications(ctx context.Context, repositoryID uuid.UUID) ([]*contentdepot.Publication, error) {
	query := `
		SELECT id, repository_id, version_id, version_number, renderer, entries, created_at
		FROM publication WHERE repository_id = $1 ORDER BY created_at`
	return s.listPublications(ctx, query, repositoryID)
}

func (s *Store) ListPublicationsByVersion(ctx context.Context, versionID uuid.UUID) ([]*contentdepot.Publication, error) {
	query := `
		SELECT id, repository_id, version_id, version_number, renderer, entries, created_at
		FROM publication WHERE version_id = $1 ORDER BY created_at`
	return s.listPublications(ctx, query, versionID)
}

func (s *Store) DeletePublication(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM publication WHERE id = $1`, id)
	if err != nil {
		return s.handlePostgresError("delete publication", err)
	}
	if tag.RowsAffected() == 0 {
		return contentdepot.ErrPublicationNotFound
	}
	return nil
}

// Distribution operations

func (s *Store) CreateDistribution(ctx context.Context, dist *contentdepot.Distribution) error {
	guards, err := json.Marshal(dist.Guards)
	if err != nil {
		return fmt.Errorf("failed to marshal guards: %w", err)
	}

	query := `
		INSERT INTO distribution (id, name, base_path, publication_id, version_id, repository_id, guards, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = s.db.Exec(ctx, query,
		dist.ID, dist.Name, dist.BasePath, dist.PublicationID, dist.VersionID, dist.RepositoryID,
		guards, dist.CreatedAt, dist.UpdatedAt)
	if err != nil {
		return s.handlePostgresError("create distribution", err)
	}
	return nil
}

func (s *Store) scanDistribution(row pgx.Row) (*contentdepot.Distribution, error) {
	var dist contentdepot.Distribution
	var guards []byte
	err := row.Scan(&dist.ID, &dist.Name, &dist.BasePath,
		&dist.PublicationID, &dist.VersionID, &dist.RepositoryID,
		&guards, &dist.CreatedAt, &dist.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, contentdepot.ErrDistributionNotFound
		}
		return nil, err
	}
	if len(guards) > 0 {
		if err := json.Unmarshal(guards, &dist.Guards); err != nil {
			return nil, fmt.Errorf("failed to unmarshal guards: %w", err)
		}
	}
	return &dist, nil
}

func (s *Store) GetDistribution(ctx context.Context, id uuid.UUID) (*contentdepot.Distribution, error) {
	query := `
		SELECT id, name, base_path, publication_id, version_id, repository_id, guards, created_at, updated_at
		FROM distribution WHERE id = $1`
	return s.scanDistribution(s.db.QueryRow(ctx, query, id))
}

func (s *Store) GetDistributionByBasePath(ctx context.Context, basePath string) (*contentdepot.Distribution, error) {
	query := `
		SELECT id, name, base_path, publication_id, version_id, repository_id, guards, created_at, updated_at
		FROM distribution WHERE base_path = $1`
	return s.scanDistribution(s.db.QueryRow(ctx, query, basePath))
}

func (s *Store) ListDistributions(ctx context.Context) ([]*contentdepot.Distribution, error) {
	query := `
		SELECT id, name, base_path, publication_id, version_id, repository_id, guards, created_at, updated_at
		FROM distribution ORDER BY base_path`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, s.handlePostgresError("list distributions", err)
	}
	defer rows.Close()

	var result []*contentdepot.Distribution
	for rows.Next() {
		dist, err := s.scanDistribution(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, dist)
	}
	return result, rows.Err()
}

func (s *Store) UpdateDistribution(ctx context.Context, dist *contentdepot.Distribution) error {
	guards, err := json.Marshal(dist.Guards)
	if err != nil {
		return fmt.Errorf("failed to marshal guards: %w", err)
	}

	query := `
		UPDATE distribution SET
			name = $2, base_path = $3, publication_id = $4, version_id = $5,
			repository_id = $6, guards = $7, updated_at = $8
		WHERE id = $1`

	tag, err := s.db.Exec(ctx, query,
		dist.ID, dist.Name, dist.BasePath, dist.PublicationID, dist.VersionID, dist.RepositoryID,
		guards, dist.UpdatedAt)
	if err != nil {
		return s.handlePostgresError("update distribution", err)
	}
	if tag.RowsAffected() == 0 {
		return contentdepot.ErrDistributionNotFound
	}
	return nil
}

func (s *Store) DeleteDistribution(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM distribution WHERE id = $1`, id)
	if err != nil {
		return s.handlePostgresError("delete distribution", err)
	}
	if tag.RowsAffected() == 0 {
		return contentdepot.ErrDistributionNotFound
	}
	return nil
}
