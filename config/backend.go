package config

import (
	"context"
	"fmt"
	"os"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"

	"siapguru/domain"
	"siapguru/services/attendance/repository"
)

// InitRemoteStore builds the backend chosen by REMOTE_BACKEND. The returned
// func releases its connections.
func InitRemoteStore(ctx context.Context, log *logrus.Logger) (domain.RemoteStore, func(), error) {
	switch backend := GetRemoteBackend(); backend {
	case "postgres":
		gdb, err := BootDB()
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, nil, fmt.Errorf("could not get sql handle: %w", err)
		}
		pool, err := BootPool(ctx)
		if err != nil {
			_ = sqlDB.Close()
			return nil, nil, err
		}

		log.Info("Remote store: postgres")
		store := repository.NewPostgresStore(gdb, repository.NewChangeListener(pool, log))
		return store, func() {
			pool.Close()
			if err := sqlDB.Close(); err != nil {
				log.WithError(err).Warn("Error closing database")
			}
		}, nil

	case "spreadsheet":
		url, err := GetSpreadsheetURL()
		if err != nil {
			return nil, nil, err
		}
		log.Info("Remote store: spreadsheet")
		return repository.NewSpreadsheetStore(url, GetRemoteTimeout()), func() {}, nil

	case "memory":
		log.Warn("Remote store: in-memory, data lives only as long as the process and its local cache")
		return repository.NewMemoryStore(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown REMOTE_BACKEND %q", backend)
	}
}

// InitLocalCache builds the snapshot cache chosen by CACHE_BACKEND.
func InitLocalCache(ctx context.Context) (domain.LocalCache, error) {
	switch backend := GetCacheBackend(); backend {
	case "file":
		return repository.NewFileCache(GetCacheDir(), GetCacheKey())

	case "minio":
		endpoint, err := GetMinioEndpoint()
		if err != nil {
			return nil, err
		}
		client, err := minio.New(endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(os.Getenv("MINIO_ACCESS_KEY"), os.Getenv("MINIO_SECRET_KEY"), ""),
			Secure: GetMinioUseSSL(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create minio client: %w", err)
		}
		return repository.NewMinioCache(ctx, client, GetMinioBucket(), GetCacheKey())

	default:
		return nil, fmt.Errorf("unknown CACHE_BACKEND %q", backend)
	}
}
