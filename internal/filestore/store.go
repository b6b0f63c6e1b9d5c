// Package filestore defines the interface for the object storage that holds
// exported table data.
//
// Providers (MinIO, local filesystem) implement the Store interface.
// Callers depend only on this package, never on a specific provider package.
//
// Usage:
//
//	store, err := minio.New(ctx, &cfg)
//	if err != nil { ... }
//	defer store.Close()
//
//	info, err := store.PutObject(ctx, "exports/users.csv", r, size, "text/csv")
package filestore

import (
	"context"
	"io"
	"time"
)

// Store is the single interface all file storage providers must implement.
// Every call addresses the bucket (or root directory) fixed by the provider's
// Config.
type Store interface {
	// Ping verifies the storage backend is reachable and the bucket exists.
	Ping(ctx context.Context) error

	// Close releases any held resources.
	Close() error

	// PutObject writes r under key. size may be -1 when unknown.
	PutObject(ctx context.Context, key string, r io.Reader, size int64, contentType string) (*ObjectInfo, error)

	// ListObjects returns the objects that match opts.
	ListObjects(ctx context.Context, opts ListOptions) ([]ObjectInfo, error)

	// GetObject opens a streaming handle to the object at key.
	// The caller MUST call Object.Close() after reading.
	GetObject(ctx context.Context, key string) (Object, error)

	// StatObject returns metadata for the object at key without
	// downloading its content.
	StatObject(ctx context.Context, key string) (*ObjectInfo, error)

	// PresignGetURL returns a time-limited URL that allows anyone to download
	// the object at key without credentials. Providers that cannot sign URLs
	// return an ErrKindStorage error.
	PresignGetURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}
