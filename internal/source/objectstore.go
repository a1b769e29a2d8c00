package source

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Digital-Shane/catalog-tidy/internal/catalog"
	"github.com/Digital-Shane/catalog-tidy/internal/log"
	"github.com/Digital-Shane/catalog-tidy/internal/media"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectLister is the part of the minio client used to enumerate keys.
type ObjectLister interface {
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
}

// ObjectStoreConfig holds connection details for an S3 compatible store.
type ObjectStoreConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
	Bucket    string
	Prefix    string
}

// ObjectStore lists a flat key space and folds keys on "/".
type ObjectStore struct {
	client ObjectLister
	bucket string
	prefix string
	logger *slog.Logger
}

var _ Source = (*ObjectStore)(nil)

// NewObjectStore connects to the configured endpoint. Without an access key
// the standard AWS_* environment credentials are used.
func NewObjectStore(cfg ObjectStoreConfig, logger *slog.Logger) (*ObjectStore, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("object store bucket is required")
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = "s3.amazonaws.com"
	}

	creds := credentials.NewEnvAWS()
	if cfg.AccessKey != "" {
		creds = credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, "")
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  creds,
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("object store client: %w", err)
	}
	return NewObjectStoreWithClient(client, cfg.Bucket, cfg.Prefix, logger), nil
}

// NewObjectStoreWithClient wraps an existing lister.
func NewObjectStoreWithClient(client ObjectLister, bucket, prefix string, logger *slog.Logger) *ObjectStore {
	if logger == nil {
		logger = log.NewNop()
	}
	return &ObjectStore{
		client: client,
		bucket: bucket,
		prefix: prefix,
		logger: log.NewComponentLogger(logger, "source.objectstore"),
	}
}

// folderPrefix cuts prefix back to its last "/" so only whole key segments
// are stripped from listed keys.
func folderPrefix(prefix string) string {
	return prefix[:strings.LastIndex(prefix, "/")+1]
}

// Entries drains the listing under the prefix. Entry paths are the full keys.
func (o *ObjectStore) Entries(ctx context.Context) ([]catalog.Entry, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var entries []catalog.Entry
	objects := o.client.ListObjects(ctx, o.bucket, minio.ListObjectsOptions{Prefix: o.prefix, Recursive: true})
	for obj := range objects {
		if obj.Err != nil {
			return nil, fmt.Errorf("list s3://%s/%s: %w", o.bucket, o.prefix, obj.Err)
		}
		if strings.HasSuffix(obj.Key, "/") || !media.IsVideo(obj.Key) {
			continue
		}
		names := splitKey(strings.TrimPrefix(obj.Key, folderPrefix(o.prefix)))
		if len(names) == 0 {
			continue
		}
		entries = append(entries, catalog.Entry{Names: names, Path: obj.Key})
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sortEntries(entries)
	o.logger.Debug("listing complete", slog.String("bucket", o.bucket), slog.String("prefix", o.prefix), slog.Int("entries", len(entries)))
	return entries, nil
}
