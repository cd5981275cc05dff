// Package artifact fetches per-sensor model bundles into job-scoped local
// directories.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrNotFound is returned when no artifact exists for a sensor.
var ErrNotFound = errors.New("artifact: not found")

// Repository yields a local directory holding a sensor's model bundle
// (model weights plus fitted scalers). The directory is scoped to one job;
// callers must invoke cleanup on every exit path.
type Repository interface {
	Fetch(ctx context.Context, sensorID string) (dir string, cleanup func(), err error)
}

// S3Repository downloads artifacts from an S3-compatible object store.
// Objects live under the "{sensorID}/" prefix in one bucket.
type S3Repository struct {
	client  *minio.Client
	bucket  string
	baseDir string
}

// S3Config holds object store connection settings.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Secure    bool
	// BaseDir is where per-sensor download directories are created.
	// Defaults to the OS temp dir.
	BaseDir string
}

// NewS3Repository creates an S3-backed artifact repository.
func NewS3Repository(cfg S3Config) (*S3Repository, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	baseDir := cfg.BaseDir
	if baseDir == "" {
		baseDir = os.TempDir()
	}

	return &S3Repository{
		client:  client,
		bucket:  cfg.Bucket,
		baseDir: baseDir,
	}, nil
}

// Fetch implements Repository. The local directory is cleared before the
// download so a previous job for the same sensor cannot leave stale files.
func (r *S3Repository) Fetch(ctx context.Context, sensorID string) (string, func(), error) {
	prefix := sensorID + "/"
	localDir := filepath.Join(r.baseDir, sensorID)

	if err := os.RemoveAll(localDir); err != nil {
		return "", nil, fmt.Errorf("failed to clear artifact dir: %w", err)
	}
	if err := os.MkdirAll(localDir, 0o755); err != nil {
		return "", nil, fmt.Errorf("failed to create artifact dir: %w", err)
	}

	cleanup := func() {
		if err := os.RemoveAll(localDir); err != nil {
			log.Printf("[%s] Failed to remove artifact dir: %v", sensorID, err)
		}
	}

	found := 0
	objects := r.client.ListObjects(ctx, r.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	for obj := range objects {
		if obj.Err != nil {
			cleanup()
			return "", nil, fmt.Errorf("failed to list artifacts: %w", obj.Err)
		}
		if strings.HasSuffix(obj.Key, "/") {
			continue // Skip folder markers
		}

		relPath := strings.TrimPrefix(obj.Key, prefix)
		localPath := filepath.Join(localDir, relPath)

		log.Printf("[%s] Downloading %s to %s", sensorID, obj.Key, localPath)
		if err := r.client.FGetObject(ctx, r.bucket, obj.Key, localPath, minio.GetObjectOptions{}); err != nil {
			cleanup()
			return "", nil, fmt.Errorf("failed to download %s: %w", obj.Key, err)
		}
		found++
	}

	if found == 0 {
		cleanup()
		return "", nil, fmt.Errorf("%w: no objects under %s for %s", ErrNotFound, r.bucket, sensorID)
	}

	return localDir, cleanup, nil
}

// DirRepository serves artifacts from a local directory tree, one
// subdirectory per sensor. Used for development and tests.
type DirRepository struct {
	Root string
}

// Fetch implements Repository. The directory is shared, so cleanup is a
// no-op.
func (r *DirRepository) Fetch(ctx context.Context, sensorID string) (string, func(), error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}

	dir := filepath.Join(r.Root, sensorID)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", nil, fmt.Errorf("%w: no local bundle for %s", ErrNotFound, sensorID)
	}

	return dir, func() {}, nil
}
