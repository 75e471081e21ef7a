package repository

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/bytedance/sonic"
	"github.com/minio/minio-go/v7"

	"siapguru/domain"
)

type minioCache struct {
	client *minio.Client
	bucket string
	object string
}

// NewMinioCache keeps the snapshot as one object, for deployments without a
// persistent disk.
func NewMinioCache(ctx context.Context, client *minio.Client, bucket, key string) (domain.LocalCache, error) {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("could not check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("could not create bucket %s: %w", bucket, err)
		}
	}
	return &minioCache{
		client: client,
		bucket: bucket,
		object: key + ".json",
	}, nil
}

func (mc *minioCache) Load(ctx context.Context) (*domain.Snapshot, error) {
	obj, err := mc.client.GetObject(ctx, mc.bucket, mc.object, minio.GetObjectOptions{})
	if err != nil {
		return nil, mc.loadErr(err)
	}
	defer obj.Close()

	raw, err := io.ReadAll(obj)
	if err != nil {
		return nil, mc.loadErr(err)
	}

	var snap domain.Snapshot
	if err := sonic.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("could not decode snapshot %s/%s: %w", mc.bucket, mc.object, err)
	}
	return &snap, nil
}

func (mc *minioCache) Save(ctx context.Context, snap *domain.Snapshot) error {
	raw, err := sonic.Marshal(snap)
	if err != nil {
		return fmt.Errorf("could not encode snapshot: %w", err)
	}
	_, err = mc.client.PutObject(ctx, mc.bucket, mc.object, bytes.NewReader(raw), int64(len(raw)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("could not upload snapshot: %w", err)
	}
	return nil
}

func (mc *minioCache) loadErr(err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return domain.ErrCacheMiss
	}
	return fmt.Errorf("could not download snapshot: %w", err)
}
