// Package contentdepot provides a versioned content repository substrate:
// content-addressed artifact storage, a typed content registry, immutable
// repository versions built by copy-on-write diffs, publications that freeze
// a version into a servable bundle, and guarded distributions that map public
// base paths onto those bundles.
//
// The package is storage-agnostic. Blob backends (memory, filesystem, S3) and
// metadata stores (memory, PostgreSQL) plug in through the BlobStore and
// Store interfaces. Content types plug in through MetadataRenderer, and
// request authorization through ContentGuard.
//
// Construct a Service with functional options:
//
//	svc, err := contentdepot.New(
//	    contentdepot.WithStore(memory.New()),
//	    contentdepot.WithBlobStore("default", memorystorage.New()),
//	)
package contentdepot
