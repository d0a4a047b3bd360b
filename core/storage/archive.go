package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// Archive stores JSON reports as objects named <prefix>/<kind>/<timestamp>-<uuid>.json.
type Archive struct {
	client Client
	bucket string
	prefix string
	keep   int
	region string
	logger *zap.Logger
	now    func() time.Time
}

// NewArchive creates an archive over client.
func NewArchive(client Client, cfg Config, logger *zap.Logger) *Archive {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Archive{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		keep:   cfg.Keep,
		region: cfg.Region,
		logger: logger,
		now:    time.Now,
	}
}

// EnsureBucket creates the bucket when it does not exist.
func (a *Archive) EnsureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", a.bucket, err)
	}
	if exists {
		return nil
	}
	if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{Region: a.region}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", a.bucket, err)
	}
	a.logger.Info("Created report bucket", zap.String("bucket", a.bucket))
	return nil
}

func (a *Archive) dir(kind string) string {
	return path.Join(a.prefix, kind) + "/"
}

// Put marshals report and uploads it. It returns the object name.
func (a *Archive) Put(ctx context.Context, kind string, report any) (string, error) {
	body, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode %s report: %w", kind, err)
	}

	name := a.dir(kind) + a.now().UTC().Format("20060102T150405Z") + "-" + uuid.NewString() + ".json"
	_, err = a.client.PutObject(ctx, a.bucket, name, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", name, err)
	}

	a.logger.Info("Report archived", zap.String("bucket", a.bucket), zap.String("object", name))
	if a.keep > 0 {
		if err := a.Prune(ctx, kind, a.keep); err != nil {
			a.logger.Warn("Report pruning failed", zap.String("kind", kind), zap.Error(err))
		}
	}
	return name, nil
}

// Get downloads a report and decodes it into out.
func (a *Archive) Get(ctx context.Context, name string, out any) error {
	obj, err := a.client.GetObject(ctx, a.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer obj.Close()

	raw, err := io.ReadAll(obj)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	return json.Unmarshal(raw, out)
}

// List returns the archived report names of a kind, oldest first.
func (a *Archive) List(ctx context.Context, kind string) ([]string, error) {
	var names []string
	for obj := range a.client.ListObjects(ctx, a.bucket, minio.ListObjectsOptions{Prefix: a.dir(kind), Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list reports: %w", obj.Err)
		}
		names = append(names, obj.Key)
	}
	sort.Strings(names)
	return names, nil
}

// Prune removes all but the newest keep reports of a kind.
func (a *Archive) Prune(ctx context.Context, kind string, keep int) error {
	names, err := a.List(ctx, kind)
	if err != nil {
		return err
	}
	if len(names) <= keep {
		return nil
	}
	for _, name := range names[:len(names)-keep] {
		if err := a.client.RemoveObject(ctx, a.bucket, name, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("failed to remove %s: %w", name, err)
		}
	}
	return nil
}
