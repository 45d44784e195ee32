// Package datasource defines where raw entity files come from. Concrete
// sources live in subpackages: file (local disk), httpds (HTTP with retries)
// and s3ds (S3 objects).
package datasource

import (
	"context"
	"io"
)

// Source opens one raw file. The caller closes the returned reader.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	// Name identifies the source in logs (a path, URL or s3:// URI).
	Name() string
}
