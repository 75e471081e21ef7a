package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getSeconds(key string, def int) time.Duration {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		v = def
	}
	return time.Duration(v) * time.Second
}

func requireEnv(key string) (string, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return "", fmt.Errorf("%s is missing", key)
	}
	return v, nil
}

// GetRemoteBackend is one of postgres, spreadsheet or memory.
func GetRemoteBackend() string {
	return strings.ToLower(getEnv("REMOTE_BACKEND", "memory"))
}

func GetRemoteTimeout() time.Duration {
	return getSeconds("REMOTE_TIMEOUT_SECONDS", 10)
}

func GetSyncGrace() time.Duration {
	return getSeconds("SYNC_GRACE_SECONDS", 5)
}

func GetPullSchedule() string {
	return getEnv("PULL_SCHEDULE", "@every 30s")
}

func GetSpreadsheetURL() (string, error) {
	return requireEnv("SPREADSHEET_URL")
}

// GetCacheBackend is one of file or minio.
func GetCacheBackend() string {
	return strings.ToLower(getEnv("CACHE_BACKEND", "file"))
}

func GetCacheDir() string {
	return getEnv("CACHE_DIR", "./data")
}

func GetCacheKey() string {
	return getEnv("CACHE_KEY", "siapguru_snapshot")
}

func GetResolutionCacheTTL() time.Duration {
	v, err := strconv.Atoi(os.Getenv("RESOLUTION_CACHE_MINUTES"))
	if err != nil || v <= 0 {
		v = 10
	}
	return time.Duration(v) * time.Minute
}

func GetMinioEndpoint() (string, error) {
	return requireEnv("MINIO_ENDPOINT")
}

func GetMinioBucket() string {
	return getEnv("MINIO_BUCKET", "siapguru")
}

func GetMinioUseSSL() bool {
	v, _ := strconv.ParseBool(os.Getenv("MINIO_USE_SSL"))
	return v
}
