package contentdepot

import (
	"context"
	"log/slog"
)

// NoopEventSink is a no-operation implementation of EventSink
// Useful for production when you don't need event handling or for testing
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

// ArtifactUploaded does nothing and returns nil
func (n *NoopEventSink) ArtifactUploaded(ctx context.Context, artifact *Artifact) error {
	return nil
}

// ContentUnitRegistered does nothing and returns nil
func (n *NoopEventSink) ContentUnitRegistered(ctx context.Context, unit *ContentUnit) error {
	return nil
}

// VersionCreated does nothing and returns nil
func (n *NoopEventSink) VersionCreated(ctx context.Context, version *RepositoryVersion) error {
	return nil
}

// PublicationCreated does nothing and returns nil
func (n *NoopEventSink) PublicationCreated(ctx context.Context, pub *Publication) error {
	return nil
}

// DistributionUpdated does nothing and returns nil
func (n *NoopEventSink) DistributionUpdated(ctx context.Context, dist *Distribution) error {
	return nil
}

// LoggingEventSink is an event sink that logs events but takes no other action
// Useful for development and debugging
type LoggingEventSink struct {
	logger *slog.Logger
}

// NewLoggingEventSink creates a new logging event sink
func NewLoggingEventSink(logger *slog.Logger) EventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingEventSink{logger: logger}
}

// ArtifactUploaded logs the artifact upload event
func (l *LoggingEventSink) ArtifactUploaded(ctx context.Context, artifact *Artifact) error {
	l.logger.Info("artifact uploaded", "digest", artifact.Digest, "size", artifact.Size, "backend", artifact.StorageBackendName)
	return nil
}

// ContentUnitRegistered logs the content unit registration event
func (l *LoggingEventSink) ContentUnitRegistered(ctx context.Context, unit *ContentUnit) error {
	l.logger.Info("content unit registered", "id", unit.ID, "type", unit.Type, "natural_key", unit.NaturalKey)
	return nil
}

// VersionCreated logs the version commit event
func (l *LoggingEventSink) VersionCreated(ctx context.Context, version *RepositoryVersion) error {
	l.logger.Info("repository version created", "repository", version.RepositoryID, "number", version.Number,
		"added", version.AddedCount, "removed", version.RemovedCount)
	return nil
}

// PublicationCreated logs the publication build event
func (l *LoggingEventSink) PublicationCreated(ctx context.Context, pub *Publication) error {
	l.logger.Info("publication created", "id", pub.ID, "repository", pub.RepositoryID, "version", pub.VersionNumber,
		"entries", len(pub.Entries))
	return nil
}

// DistributionUpdated logs the distribution change event
func (l *LoggingEventSink) DistributionUpdated(ctx context.Context, dist *Distribution) error {
	l.logger.Info("distribution updated", "id", dist.ID, "base_path", dist.BasePath, "target", dist.TargetKind())
	return nil
}
