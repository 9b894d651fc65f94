package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Backend names accepted by DOCUMENT_STORE and OBJECT_STORE.
const (
	BackendMongo     = "mongo"
	BackendFirestore = "firestore"
	BackendMinIO     = "minio"
	BackendGCS       = "gcs"
	BackendMemory    = "memory"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Documents DocumentStoreConfig
	MongoDB   MongoDBConfig
	Firestore FirestoreConfig
	Storage   StorageConfig
	OCR       OCRConfig
	Upload    UploadConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Keycloak  KeycloakConfig
	JWT       JWTConfig
	Poller    PollerConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	Environment     string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string
}

type LogConfig struct {
	Level  string
	Format string
}

type DocumentStoreConfig struct {
	Backend string
}

type MongoDBConfig struct {
	URI        string
	Database   string
	Collection string
	Timeout    time.Duration
}

type FirestoreConfig struct {
	ProjectID  string
	Collection string
}

type StorageConfig struct {
	Backend string
	MinIO   MinIOConfig
	GCS     GCSConfig
}

type MinIOConfig struct {
	Endpoint       string
	PublicEndpoint string
	AccessKey      string
	SecretKey      string
	UseSSL         bool
	Bucket         string
	Region         string
}

type GCSConfig struct {
	Bucket string
}

type OCRConfig struct {
	ProjectID       string
	Region          string
	Model           string
	CredentialsFile string
	Temperature     float32
}

type UploadConfig struct {
	MaxBytes       int64
	ExtractTimeout time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

func (r RedisConfig) Addr() string { return r.Host + ":" + r.Port }

type RateLimitConfig struct {
	Enabled       bool
	RPS           float64
	Burst         int
	UseRedis      bool
	WindowSeconds int
}

type KeycloakConfig struct {
	URL      string
	Realm    string
	ClientID string
	// AllowInsecure skips signature checks. Local integration runs only.
	AllowInsecure bool
}

type JWTConfig struct {
	Secret string
}

type PollerConfig struct {
	Interval    time.Duration
	MaxAttempts int
}

// AuthEnabled reports whether any bearer token verifier is configured.
func (c *Config) AuthEnabled() bool {
	return c.Keycloak.URL != "" || c.JWT.Secret != "" || c.Keycloak.AllowInsecure
}

func setDefaults() {
	viper.SetDefault("SERVER_PORT", "5001")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_ENVIRONMENT", "development")
	viper.SetDefault("SERVER_READ_TIMEOUT", "30s")
	viper.SetDefault("SERVER_WRITE_TIMEOUT", "180s")
	viper.SetDefault("SERVER_SHUTDOWN_TIMEOUT", "15s")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "text")
	viper.SetDefault("DOCUMENT_STORE", BackendMongo)
	viper.SetDefault("MONGODB_DATABASE", "pdfscan")
	viper.SetDefault("MONGODB_COLLECTION", "documents")
	viper.SetDefault("MONGODB_TIMEOUT", 10)
	viper.SetDefault("FIRESTORE_COLLECTION", "documents")
	viper.SetDefault("OBJECT_STORE", BackendMinIO)
	viper.SetDefault("MINIO_BUCKET", "pdfscan")
	viper.SetDefault("MINIO_REGION", "us-east-1")
	viper.SetDefault("VERTEX_AI_REGION", "us-central1")
	viper.SetDefault("GEMINI_MODEL", "gemini-1.5-flash")
	viper.SetDefault("GEMINI_TEMPERATURE", 0.0)
	viper.SetDefault("UPLOAD_MAX_BYTES", 10<<20)
	viper.SetDefault("EXTRACT_TIMEOUT", "120s")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("RATE_LIMIT_RPS", 5)
	viper.SetDefault("RATE_LIMIT_BURST", 10)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)
	viper.SetDefault("POLL_INTERVAL", "2s")
	viper.SetDefault("POLL_MAX_ATTEMPTS", 150)
}

// LoadConfig loads configuration from environment variables and an optional
// .env file (ENV_FILE overrides the path).
func LoadConfig() (*Config, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	_ = godotenv.Load(envFile)

	viper.AutomaticEnv()
	setDefaults()

	cfg := &Config{
		Server: ServerConfig{
			Port:            viper.GetString("SERVER_PORT"),
			Host:            viper.GetString("SERVER_HOST"),
			Environment:     viper.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:     viper.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout:    viper.GetDuration("SERVER_WRITE_TIMEOUT"),
			ShutdownTimeout: viper.GetDuration("SERVER_SHUTDOWN_TIMEOUT"),
			CORSOrigins:     splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Log: LogConfig{
			Level:  viper.GetString("LOG_LEVEL"),
			Format: viper.GetString("LOG_FORMAT"),
		},
		Documents: DocumentStoreConfig{
			Backend: strings.ToLower(viper.GetString("DOCUMENT_STORE")),
		},
		MongoDB: MongoDBConfig{
			URI:        viper.GetString("MONGODB_URI"),
			Database:   viper.GetString("MONGODB_DATABASE"),
			Collection: viper.GetString("MONGODB_COLLECTION"),
			Timeout:    time.Duration(viper.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Firestore: FirestoreConfig{
			ProjectID:  firstNonEmpty(viper.GetString("FIRESTORE_PROJECT_ID"), viper.GetString("GCP_PROJECT_ID")),
			Collection: viper.GetString("FIRESTORE_COLLECTION"),
		},
		Storage: StorageConfig{
			Backend: strings.ToLower(viper.GetString("OBJECT_STORE")),
			MinIO: MinIOConfig{
				Endpoint:       viper.GetString("MINIO_ENDPOINT"),
				PublicEndpoint: viper.GetString("MINIO_PUBLIC_ENDPOINT"),
				AccessKey:      viper.GetString("MINIO_ACCESS_KEY"),
				SecretKey:      os.Getenv("MINIO_SECRET_KEY"),
				UseSSL:         viper.GetBool("MINIO_USE_SSL"),
				Bucket:         viper.GetString("MINIO_BUCKET"),
				Region:         viper.GetString("MINIO_REGION"),
			},
			GCS: GCSConfig{Bucket: viper.GetString("GCS_BUCKET")},
		},
		OCR: OCRConfig{
			ProjectID:       viper.GetString("GCP_PROJECT_ID"),
			Region:          viper.GetString("VERTEX_AI_REGION"),
			Model:           viper.GetString("GEMINI_MODEL"),
			CredentialsFile: viper.GetString("GOOGLE_APPLICATION_CREDENTIALS"),
			Temperature:     float32(viper.GetFloat64("GEMINI_TEMPERATURE")),
		},
		Upload: UploadConfig{
			MaxBytes:       viper.GetInt64("UPLOAD_MAX_BYTES"),
			ExtractTimeout: viper.GetDuration("EXTRACT_TIMEOUT"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		RateLimit: RateLimitConfig{
			Enabled:       viper.GetBool("RATE_LIMIT_ENABLED"),
			RPS:           viper.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         viper.GetInt("RATE_LIMIT_BURST"),
			UseRedis:      viper.GetBool("RATE_LIMIT_USE_REDIS"),
			WindowSeconds: viper.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		Keycloak: KeycloakConfig{
			URL:           viper.GetString("KEYCLOAK_URL"),
			Realm:         viper.GetString("KEYCLOAK_REALM"),
			ClientID:      viper.GetString("KEYCLOAK_CLIENT_ID"),
			AllowInsecure: viper.GetBool("ALLOW_INSECURE_TOKEN"),
		},
		JWT: JWTConfig{
			Secret: os.Getenv("JWT_SECRET"),
		},
		Poller: PollerConfig{
			Interval:    viper.GetDuration("POLL_INTERVAL"),
			MaxAttempts: viper.GetInt("POLL_MAX_ATTEMPTS"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every missing or inconsistent setting at once.
func (c *Config) Validate() error {
	var errs []error
	require := func(key, val string) {
		if strings.TrimSpace(val) == "" {
			errs = append(errs, fmt.Errorf("environment variable %s is required", key))
		}
	}

	switch c.Documents.Backend {
	case BackendMongo:
		require("MONGODB_URI", c.MongoDB.URI)
	case BackendFirestore:
		require("GCP_PROJECT_ID", c.Firestore.ProjectID)
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("DOCUMENT_STORE must be mongo, firestore or memory, got %q", c.Documents.Backend))
	}

	switch c.Storage.Backend {
	case BackendMinIO:
		require("MINIO_ENDPOINT", c.Storage.MinIO.Endpoint)
		require("MINIO_ACCESS_KEY", c.Storage.MinIO.AccessKey)
		require("MINIO_SECRET_KEY", c.Storage.MinIO.SecretKey)
		require("MINIO_BUCKET", c.Storage.MinIO.Bucket)
	case BackendGCS:
		require("GCS_BUCKET", c.Storage.GCS.Bucket)
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("OBJECT_STORE must be minio, gcs or memory, got %q", c.Storage.Backend))
	}

	require("GCP_PROJECT_ID", c.OCR.ProjectID)

	if c.Upload.MaxBytes <= 0 {
		errs = append(errs, errors.New("UPLOAD_MAX_BYTES must be positive"))
	}
	if c.Upload.ExtractTimeout <= 0 {
		errs = append(errs, errors.New("EXTRACT_TIMEOUT must be positive"))
	}
	if c.Poller.Interval <= 0 || c.Poller.MaxAttempts <= 0 {
		errs = append(errs, errors.New("POLL_INTERVAL and POLL_MAX_ATTEMPTS must be positive"))
	}
	if c.RateLimit.Enabled && c.RateLimit.UseRedis && c.Redis.Host == "" {
		errs = append(errs, errors.New("RATE_LIMIT_USE_REDIS needs REDIS_HOST"))
	}
	if c.Keycloak.URL != "" && c.Keycloak.ClientID == "" {
		errs = append(errs, errors.New("KEYCLOAK_CLIENT_ID is required when KEYCLOAK_URL is set"))
	}
	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
