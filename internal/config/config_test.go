package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	t.Setenv("UPLOADSIM_DATA_DIR", "/tmp/sim")
	t.Setenv("DB_HOST", "test-host")
	t.Setenv("DB_MAX_OPEN_CONNS", "20")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("ANALYZER_CHUNK_SIZE", "4096")

	cfg := Load()

	assert.Equal(t, "/tmp/sim", cfg.DataDir)
	assert.Equal(t, filepath.Join("/tmp/sim", "s3", "uploads"), cfg.ContentDir)
	assert.Equal(t, filepath.Join("/tmp/sim", "db", "dynamodb_mock.json"), cfg.RecordFile)
	assert.Equal(t, StorageLocal, cfg.StorageBackend)
	assert.Equal(t, RecordJSONFile, cfg.RecordBackend)
	assert.Equal(t, 4096, cfg.Analyzer.ChunkSize)
	assert.False(t, cfg.Analyzer.SniffContent)
	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.True(t, cfg.MinIO.UseSSL)
}

func TestLoad_ExplicitPathsWin(t *testing.T) {
	t.Setenv("UPLOADSIM_DATA_DIR", "/tmp/sim")
	t.Setenv("UPLOADSIM_CONTENT_DIR", "/elsewhere/objects")

	cfg := Load()

	assert.Equal(t, "/elsewhere/objects", cfg.ContentDir)
}

func TestValidate(t *testing.T) {
	valid := func() *AppConfig {
		return &AppConfig{
			ContentDir:     "objects",
			RecordFile:     "records.json",
			StorageBackend: StorageLocal,
			RecordBackend:  RecordJSONFile,
			Analyzer:       AnalyzerConfig{ChunkSize: DefaultChunkSize},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *AppConfig)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *AppConfig) {}},
		{name: "minio backend", mutate: func(c *AppConfig) { c.StorageBackend = StorageMinIO }},
		{name: "postgres backend", mutate: func(c *AppConfig) { c.RecordBackend = RecordPostgres; c.RecordFile = "" }},
		{name: "unknown storage backend", mutate: func(c *AppConfig) { c.StorageBackend = "ftp" }, wantErr: true},
		{name: "unknown record backend", mutate: func(c *AppConfig) { c.RecordBackend = "redis" }, wantErr: true},
		{name: "missing content dir", mutate: func(c *AppConfig) { c.ContentDir = "" }, wantErr: true},
		{name: "missing record file", mutate: func(c *AppConfig) { c.RecordFile = "" }, wantErr: true},
		{name: "zero chunk size", mutate: func(c *AppConfig) { c.Analyzer.ChunkSize = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGetEnv(t *testing.T) {
	key := "TEST_ENV_VAR"
	os.Setenv(key, "value")
	defer os.Unsetenv(key)

	assert.Equal(t, "value", getEnv(key, "default"))
	assert.Equal(t, "default", getEnv("NON_EXISTENT", "default"))
}

func TestGetEnvBool(t *testing.T) {
	key := "TEST_BOOL_VAR"

	os.Setenv(key, "true")
	assert.True(t, getEnvBool(key, false))

	os.Setenv(key, "false")
	assert.False(t, getEnvBool(key, true))

	os.Setenv(key, "invalid")
	assert.True(t, getEnvBool(key, true))

	os.Unsetenv(key)
	assert.True(t, getEnvBool(key, true))
}

func TestGetEnvInt(t *testing.T) {
	key := "TEST_INT_VAR"

	os.Setenv(key, "123")
	assert.Equal(t, 123, getEnvInt(key, 0))

	os.Setenv(key, "invalid")
	assert.Equal(t, 10, getEnvInt(key, 10))

	os.Unsetenv(key)
	assert.Equal(t, 10, getEnvInt(key, 10))
}
