package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"glass-tracker/core/storage/mocks"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func listing(keys ...string) func(context.Context, string, minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	return func(context.Context, string, minio.ListObjectsOptions) <-chan minio.ObjectInfo {
		ch := make(chan minio.ObjectInfo, len(keys))
		for _, k := range keys {
			ch <- minio.ObjectInfo{Key: k}
		}
		close(ch)
		return ch
	}
}

func TestArchive_EnsureBucket(t *testing.T) {
	ctx := context.Background()
	cfg := Config{Bucket: "reports", Region: "eu-central-1"}

	t.Run("Exists", func(t *testing.T) {
		m := new(mocks.Client)
		m.On("BucketExists", ctx, "reports").Return(true, nil)
		assert.NoError(t, NewArchive(m, cfg, zap.NewNop()).EnsureBucket(ctx))
		m.AssertNotCalled(t, "MakeBucket", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Created", func(t *testing.T) {
		m := new(mocks.Client)
		m.On("BucketExists", ctx, "reports").Return(false, nil)
		m.On("MakeBucket", ctx, "reports", minio.MakeBucketOptions{Region: "eu-central-1"}).Return(nil)
		assert.NoError(t, NewArchive(m, cfg, zap.NewNop()).EnsureBucket(ctx))
		m.AssertExpectations(t)
	})

	t.Run("Unreachable", func(t *testing.T) {
		m := new(mocks.Client)
		m.On("BucketExists", ctx, "reports").Return(false, errors.New("dial tcp: refused"))
		assert.ErrorContains(t, NewArchive(m, cfg, zap.NewNop()).EnsureBucket(ctx), "refused")
	})
}

func TestArchive_PutAndPrune(t *testing.T) {
	ctx := context.Background()
	m := new(mocks.Client)
	a := NewArchive(m, Config{Bucket: "reports", Prefix: "integrity", Keep: 2}, zap.NewNop())
	a.now = func() time.Time { return time.Date(2026, 10, 18, 7, 30, 0, 0, time.UTC) }

	var uploaded string
	m.On("PutObject", ctx, "reports", mock.MatchedBy(func(name string) bool {
		uploaded = name
		return strings.HasPrefix(name, "integrity/drift/20261018T073000Z-") && strings.HasSuffix(name, ".json")
	}), mock.Anything, mock.Anything, minio.PutObjectOptions{ContentType: "application/json"}).
		Return(minio.UploadInfo{}, nil)
	m.On("ListObjects", ctx, "reports", minio.ListObjectsOptions{Prefix: "integrity/drift/", Recursive: true}).
		Return(listing("integrity/drift/20261016.json", "integrity/drift/20261018.json", "integrity/drift/20261017.json"))
	m.On("RemoveObject", ctx, "reports", "integrity/drift/20261016.json", minio.RemoveObjectOptions{}).Return(nil)

	name, err := a.Put(ctx, "drift", map[string]int{"drifted": 1})
	require.NoError(t, err)
	assert.Equal(t, uploaded, name)
	m.AssertExpectations(t)
	m.AssertNumberOfCalls(t, "RemoveObject", 1)
}

func TestArchive_Get(t *testing.T) {
	ctx := context.Background()
	m := new(mocks.Client)
	a := NewArchive(m, Config{Bucket: "reports"}, zap.NewNop())

	m.On("GetObject", ctx, "reports", "integrity/drift/x.json", minio.GetObjectOptions{}).
		Return(io.NopCloser(bytes.NewReader([]byte(`{"drifted":3}`))), nil)

	var out struct {
		Drifted int `json:"drifted"`
	}
	require.NoError(t, a.Get(ctx, "integrity/drift/x.json", &out))
	assert.Equal(t, 3, out.Drifted)
}
