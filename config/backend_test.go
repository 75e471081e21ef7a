package config

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestInitRemoteStore(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	ctx := context.Background()

	t.Setenv("REMOTE_BACKEND", "memory")
	store, closeFn, err := InitRemoteStore(ctx, log)
	if err != nil || store == nil {
		t.Fatalf("memory backend: %v", err)
	}
	closeFn()

	t.Setenv("REMOTE_BACKEND", "spreadsheet")
	t.Setenv("SPREADSHEET_URL", "")
	if _, _, err := InitRemoteStore(ctx, log); err == nil {
		t.Fatal("spreadsheet backend without url must fail")
	}

	t.Setenv("REMOTE_BACKEND", "firestore")
	if _, _, err := InitRemoteStore(ctx, log); err == nil {
		t.Fatal("unknown backend must fail")
	}
}

func TestInitLocalCache(t *testing.T) {
	ctx := context.Background()

	t.Setenv("CACHE_BACKEND", "file")
	t.Setenv("CACHE_DIR", t.TempDir())
	if _, err := InitLocalCache(ctx); err != nil {
		t.Fatalf("file cache: %v", err)
	}

	t.Setenv("CACHE_BACKEND", "minio")
	t.Setenv("MINIO_ENDPOINT", "")
	if _, err := InitLocalCache(ctx); err == nil {
		t.Fatal("minio cache without endpoint must fail")
	}
}
