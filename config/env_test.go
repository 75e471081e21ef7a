package config

import (
	"strings"
	"testing"
	"time"
)

func TestEnvDefaults(t *testing.T) {
	t.Setenv("REMOTE_BACKEND", "")
	t.Setenv("REMOTE_TIMEOUT_SECONDS", "")
	t.Setenv("SYNC_GRACE_SECONDS", "-3")
	t.Setenv("RESOLUTION_CACHE_MINUTES", "abc")
	t.Setenv("SPREADSHEET_URL", "")

	if got := GetRemoteBackend(); got != "memory" {
		t.Fatalf("remote backend: got %q", got)
	}
	if got := GetRemoteTimeout(); got != 10*time.Second {
		t.Fatalf("remote timeout: got %v", got)
	}
	if got := GetSyncGrace(); got != 5*time.Second {
		t.Fatalf("sync grace: got %v", got)
	}
	if got := GetResolutionCacheTTL(); got != 10*time.Minute {
		t.Fatalf("resolution ttl: got %v", got)
	}
	if got := GetPullSchedule(); got != "@every 30s" {
		t.Fatalf("pull schedule: got %q", got)
	}
	if _, err := GetSpreadsheetURL(); err == nil {
		t.Fatal("missing spreadsheet url must fail")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("REMOTE_BACKEND", "Postgres")
	t.Setenv("SYNC_GRACE_SECONDS", "2")
	t.Setenv("CACHE_BACKEND", "MINIO")
	t.Setenv("DB_SSLMODE", "require")

	if got := GetRemoteBackend(); got != "postgres" {
		t.Fatalf("remote backend: got %q", got)
	}
	if got := GetSyncGrace(); got != 2*time.Second {
		t.Fatalf("sync grace: got %v", got)
	}
	if got := GetCacheBackend(); got != "minio" {
		t.Fatalf("cache backend: got %q", got)
	}
	if dsn := GetDatabaseURL(); !strings.Contains(dsn, "sslmode=require") {
		t.Fatalf("dsn: got %q", dsn)
	}
}
