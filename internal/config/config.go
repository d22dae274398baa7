package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Storage backends for uploaded objects.
const (
	StorageLocal  = "local"
	StorageMinIO  = "minio"
	StorageWebDAV = "webdav"
)

// Record backends for analysis records.
const (
	RecordJSONFile = "jsonfile"
	RecordPostgres = "postgres"
)

// DefaultChunkSize is the read size used when hashing stored objects.
const DefaultChunkSize = 8192

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// WebDAVConfig holds settings for a WebDAV-backed content store.
type WebDAVConfig struct {
	URL      string
	User     string
	Password string
	Root     string
}

// AnalyzerConfig tunes the file analysis step.
type AnalyzerConfig struct {
	ChunkSize    int
	SniffContent bool
}

// AppConfig is the centralized configuration struct for the application.
// Every filesystem location is explicit so tests can point a whole instance at a temp dir.
type AppConfig struct {
	DataDir     string
	ContentDir  string
	RecordFile  string
	LogFile     string
	SamplesDir  string
	MetricsFile string
	LogLevel    string

	StorageBackend string
	RecordBackend  string

	Analyzer AnalyzerConfig
	Database DatabaseConfig
	MinIO    MinIOConfig
	WebDAV   WebDAVConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// Paths that are not set explicitly are derived from UPLOADSIM_DATA_DIR.
func Load() *AppConfig {
	dataDir := getEnv("UPLOADSIM_DATA_DIR", "data")
	return &AppConfig{
		DataDir:     dataDir,
		ContentDir:  getEnv("UPLOADSIM_CONTENT_DIR", filepath.Join(dataDir, "s3", "uploads")),
		RecordFile:  getEnv("UPLOADSIM_RECORD_FILE", filepath.Join(dataDir, "db", "dynamodb_mock.json")),
		LogFile:     getEnv("UPLOADSIM_LOG_FILE", filepath.Join("logs", "lambda_output.log")),
		SamplesDir:  getEnv("UPLOADSIM_SAMPLES_DIR", "sample_files"),
		MetricsFile: getEnv("UPLOADSIM_METRICS_FILE", filepath.Join(dataDir, "metrics.prom")),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		StorageBackend: getEnv("STORAGE_BACKEND", StorageLocal),
		RecordBackend:  getEnv("RECORD_BACKEND", RecordJSONFile),

		Analyzer: AnalyzerConfig{
			ChunkSize:    getEnvInt("ANALYZER_CHUNK_SIZE", DefaultChunkSize),
			SniffContent: getEnvBool("ANALYZER_SNIFF_CONTENT", false),
		},
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		WebDAV: WebDAVConfig{
			URL:      getEnv("WEBDAV_URL", ""),
			User:     getEnv("WEBDAV_USER", ""),
			Password: getEnv("WEBDAV_PASSWORD", ""),
			Root:     getEnv("WEBDAV_ROOT", "uploads"),
		},
	}
}

// Validate checks backend selections and analyzer tuning.
// Backend-specific credentials are checked by the backend constructors.
func (c *AppConfig) Validate() error {
	switch c.StorageBackend {
	case StorageLocal, StorageMinIO, StorageWebDAV:
	default:
		return fmt.Errorf("invalid STORAGE_BACKEND %q: want %s, %s or %s", c.StorageBackend, StorageLocal, StorageMinIO, StorageWebDAV)
	}
	switch c.RecordBackend {
	case RecordJSONFile, RecordPostgres:
	default:
		return fmt.Errorf("invalid RECORD_BACKEND %q: want %s or %s", c.RecordBackend, RecordJSONFile, RecordPostgres)
	}
	if c.StorageBackend == StorageLocal && c.ContentDir == "" {
		return fmt.Errorf("content dir is required for the local storage backend")
	}
	if c.RecordBackend == RecordJSONFile && c.RecordFile == "" {
		return fmt.Errorf("record file is required for the jsonfile record backend")
	}
	if c.Analyzer.ChunkSize <= 0 {
		return fmt.Errorf("invalid ANALYZER_CHUNK_SIZE %d: must be positive", c.Analyzer.ChunkSize)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
