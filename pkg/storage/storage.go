// Package storage defines the blob stores that back the local upload endpoint.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrObjectNotFound indicates no object exists under the key
var ErrObjectNotFound = errors.New("object not found")

// BlobStore stores uploaded objects
type BlobStore interface {
	// Upload uploads content directly
	Upload(ctx context.Context, objectKey string, reader io.Reader) error

	// UploadWithParams uploads content with additional parameters
	UploadWithParams(ctx context.Context, reader io.Reader, params UploadParams) error

	// Download downloads content directly
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// Delete deletes content
	Delete(ctx context.Context, objectKey string) error

	// GetObjectMeta retrieves metadata for an object
	GetObjectMeta(ctx context.Context, objectKey string) (*ObjectMeta, error)
}

// UploadParams carries the form fields that affect how an object is stored
type UploadParams struct {
	ObjectKey string
	MimeType  string
	ACL       string
}

// ObjectMeta describes a stored object
type ObjectMeta struct {
	Key         string
	Size        int64
	ContentType string
	ETag        string
	UpdatedAt   time.Time
	Metadata    map[string]string
}
