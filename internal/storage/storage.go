// Package storage abstracts where uploaded media lives. The service
// stores only an opaque reference string (a URL path) on boxes and
// items; attaching a stored reference to a record is a separate update
// call with no transactional link to the upload.
package storage

import (
	"context"
	"io"
)

// MediaStore saves uploaded media and returns a stable reference the
// caller can attach to a box or item photo_url field.
type MediaStore interface {
	// Save writes the media and returns its reference. contentType is
	// the declared image MIME type; implementations use it only to pick
	// a file extension and never inspect the bytes.
	Save(ctx context.Context, contentType string, r io.Reader) (ref string, err error)
	// Remove deletes previously stored media by reference. Nothing in
	// the request path calls it; it exists for operational cleanup.
	Remove(ctx context.Context, ref string) error
}
