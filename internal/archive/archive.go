// =============================================================================
// ifirma client - Rendering Archive
// =============================================================================
//
// This module stores invoice renderings (PDF, XML, JSON) fetched from ifirma,
// and the invoice files that produced them, under stable keys.
//
// DRIVERS:
//   - fs:     files under a local directory, with a ".meta" JSON sidecar
//   - memory: process memory, for tests and dry runs
//   - s3:     an S3-compatible bucket (AWS S3, MinIO)
//   - none:   archiving disabled, Open returns a nil Store
//
// Keys use forward slashes, e.g. "domestic/final/1234.pdf". Put never
// overwrites: storing an existing key fails with ErrExists.
//
// =============================================================================

package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/ginjaninja78/ifirma-client/internal/config"
	"github.com/ginjaninja78/ifirma-client/internal/types"
)

// Driver identifies a storage backend.
type Driver string

const (
	DriverNone       Driver = "none"
	DriverFilesystem Driver = "fs"
	DriverMemory     Driver = "memory"
	DriverS3         Driver = "s3"
)

var (
	// ErrExists is returned by Put when the key is already stored.
	ErrExists = errors.New("archive entry already exists")

	// ErrNotFound is returned for keys that are not stored.
	ErrNotFound = errors.New("archive entry not found")
)

// PutOptions carries optional attributes of a stored entry.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// Info describes a stored entry.
type Info struct {
	Key          string
	Size         int64
	ContentType  string
	ETag         string
	Metadata     map[string]string
	LastModified time.Time
}

// Store is implemented by every archive driver.
type Store interface {
	// Put stores the content of r under key. It fails with ErrExists if the
	// key is taken.
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)

	// Get returns the entry and its content. The caller closes the reader.
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)

	// Head returns the entry without its content.
	Head(ctx context.Context, key string) (Info, error)

	// Delete removes key, reporting whether it existed.
	Delete(ctx context.Context, key string) (bool, error)

	// List returns the entries whose key starts with prefix, sorted by key.
	List(ctx context.Context, prefix string) ([]Info, error)

	Driver() Driver
}

// Open builds the store selected by settings. The "none" driver yields a
// nil Store and no error.
func Open(ctx context.Context, settings config.ArchiveSettings) (Store, error) {
	switch Driver(strings.ToLower(settings.Driver)) {
	case DriverNone:
		return nil, nil
	case DriverFilesystem, "":
		return NewFilesystem(settings.Dir)
	case DriverMemory:
		return NewMemory(), nil
	case DriverS3:
		return NewS3(ctx, S3Config{
			Bucket:          settings.S3.Bucket,
			Prefix:          settings.S3.Prefix,
			Region:          settings.S3.Region,
			Endpoint:        settings.S3.Endpoint,
			AccessKeyID:     settings.S3.AccessKeyID,
			SecretAccessKey: settings.S3.SecretAccessKey,
			PathStyle:       settings.S3.UsePathStyle,
		})
	default:
		return nil, &types.ConfigurationError{Field: "archive.driver", Reason: fmt.Sprintf("unknown driver %q", settings.Driver)}
	}
}

// Key joins parts into an archive key, dropping empty parts.
func Key(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.Trim(p, "/"); p != "" {
			kept = append(kept, p)
		}
	}
	return path.Join(kept...)
}

// cleanKey rejects keys that are empty, absolute or escape the archive root.
func cleanKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("invalid archive key: empty")
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, `\`) {
		return "", fmt.Errorf("invalid archive key %q: must be relative and use forward slashes", key)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return "", fmt.Errorf("invalid archive key %q: contains '..'", key)
		}
	}
	return path.Clean(key), nil
}

func cloneMetadata(md map[string]string) map[string]string {
	if len(md) == 0 {
		return nil
	}
	out := make(map[string]string, len(md))
	for k, v := range md {
		out[k] = v
	}
	return out
}
