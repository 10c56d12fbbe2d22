// Package objectstore defines the blob-store contract the sync server
// uses to persist uploaded markdown files, standing in for the out-of-scope
// S3/MinIO binding named in spec.md §1 (supplemented from original_source's
// services/storage.rs).
package objectstore

import "context"

// Store puts path-addressed objects under a device-scoped key.
type Store interface {
	Put(ctx context.Context, key string, content []byte, contentType string) error
}
