/*
Package objectstore is the boundary to wherever attachment bytes live. Callers
never see bucket names or credentials, only object paths and short-lived URLs.
*/
package objectstore

import (
	"context"
	"fmt"
	"io"
	"mime"
	"time"

	"github.com/opsportal/portal/src/config"
	"github.com/opsportal/portal/src/oops"
)

type AccessOptions struct {
	// When set, the URL makes browsers save the object under this name
	// instead of displaying it inline.
	ForceDownloadAs string
}

type Store interface {
	Put(ctx context.Context, objectPath string, body io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, objectPath string) error
	IssueTemporaryAccess(ctx context.Context, objectPath string, ttl time.Duration, opts AccessOptions) (string, error)
}

const (
	DriverS3    = "s3"
	DriverMinio = "minio"
)

// New builds the Store selected by cfg.Driver. An empty driver means S3.
func New(cfg config.ObjectStoreConfig) (Store, error) {
	switch cfg.Driver {
	case "", DriverS3:
		return NewS3Store(cfg)
	case DriverMinio:
		return NewMinioStore(cfg)
	default:
		return nil, oops.New(nil, "unknown object store driver '%s'", cfg.Driver)
	}
}

// ContentDisposition builds an attachment disposition header for filename,
// falling back to RFC 2231 encoding for names that aren't plain ASCII.
func ContentDisposition(filename string) string {
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": filename})
	if disposition == "" {
		// FormatMediaType gives up on names it can't encode at all.
		return fmt.Sprintf("attachment; filename=%q", "download")
	}
	return disposition
}
