package contentdepot

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

// normalizeBasePath canonicalizes a distribution base path to the form
// "segment/segment" with no leading or trailing slash. Parent-directory
// segments are rejected before cleaning; path.Clean would otherwise collapse
// a leading ".." against the root and let the traversal through.
func normalizeBasePath(basePath string) (string, error) {
	trimmed := strings.TrimSpace(basePath)
	for _, segment := range strings.Split(trimmed, "/") {
		if segment == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidBasePath, basePath)
		}
	}
	cleaned := strings.Trim(path.Clean("/"+trimmed), "/")
	if cleaned == "" || cleaned == "." {
		return "", fmt.Errorf("%w: %q", ErrInvalidBasePath, basePath)
	}
	return cleaned, nil
}

// Resolve maps a request path onto a distribution by longest-prefix match
// and pins the distribution's target to a concrete entry set. Pinning
// happens before guard evaluation, so a concurrent repository mutation never
// changes what is served mid-request.
func (s *service) Resolve(ctx context.Context, requestPath string) (*ResolvedTarget, error) {
	cleaned, err := normalizeBasePath(requestPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDistributionNotFound, requestPath)
	}

	dists, err := s.store.ListDistributions(ctx)
	if err != nil {
		return nil, err
	}

	var match *Distribution
	for _, d := range dists {
		if cleaned != d.BasePath && !strings.HasPrefix(cleaned, d.BasePath+"/") {
			continue
		}
		if match == nil || len(d.BasePath) > len(match.BasePath) {
			match = d
		}
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %s", ErrDistributionNotFound, requestPath)
	}

	remaining := strings.TrimPrefix(strings.TrimPrefix(cleaned, match.BasePath), "/")

	target := &ResolvedTarget{
		Distribution:  match,
		RemainingPath: remaining,
	}

	switch match.TargetKind() {
	case "publication":
		pub, err := s.store.GetPublication(ctx, *match.PublicationID)
		if err != nil {
			return nil, err
		}
		target.Publication = pub
		target.Entries = make(map[string]PublishedEntry, len(pub.Entries))
		for _, e := range pub.Entries {
			target.Entries[e.RelativePath] = e
		}
		version, err := s.store.GetVersion(ctx, pub.VersionID)
		if err == nil {
			target.Version = version
		}

	case "version":
		version, err := s.store.GetVersion(ctx, *match.VersionID)
		if err != nil {
			return nil, err
		}
		if err := s.pinVersionEntries(ctx, target, version); err != nil {
			return nil, err
		}

	case "repository":
		repo, err := s.store.GetRepository(ctx, *match.RepositoryID)
		if err != nil {
			return nil, err
		}
		// "Latest" is whatever the current pointer says right now; the
		// version itself is immutable once pinned.
		version, err := s.store.GetVersionByNumber(ctx, repo.ID, repo.CurrentVersion)
		if err != nil {
			return nil, err
		}
		if err := s.pinVersionEntries(ctx, target, version); err != nil {
			return nil, err
		}

	default:
		return nil, ErrInvalidTarget
	}

	return target, nil
}

// pinVersionEntries materializes the servable entry set for a bare version
// target. Units whose artifacts are not yet fetched are skipped; requests
// for them return not-found until the bytes arrive.
func (s *service) pinVersionEntries(ctx context.Context, target *ResolvedTarget, version *RepositoryVersion) error {
	units, err := s.VersionContent(ctx, version.ID)
	if err != nil {
		return err
	}
	target.Version = version
	target.Entries = make(map[string]PublishedEntry)
	for _, unit := range units {
		for _, ca := range unit.Artifacts {
			artifact, err := s.store.GetArtifactByDigest(ctx, ca.Digest)
			if errors.Is(err, ErrArtifactNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			target.Entries[ca.RelativePath] = PublishedEntry{
				RelativePath: ca.RelativePath,
				Digest:       ca.Digest,
				Size:         artifact.Size,
			}
		}
	}
	return nil
}
