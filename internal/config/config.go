package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode     Mode   `yaml:"mode"`
	HTTPAddr string `yaml:"http_addr"`

	DBDriver string `yaml:"db_driver"`
	DBDSN    string `yaml:"db_dsn"`

	BlobDriver   string `yaml:"blob_driver"`    // fs|s3
	BlobBasePath string `yaml:"blob_base_path"` // for fs
	S3           S3     `yaml:"s3"`

	RedisAddr string        `yaml:"redis_addr"` // empty disables the cache and async grading
	CacheTTL  time.Duration `yaml:"cache_ttl"`

	Sandbox          Sandbox `yaml:"sandbox"`
	GradeConcurrency int     `yaml:"grade_concurrency"`

	OMRBaseURL string `yaml:"omr_base_url"`

	EnableLocalAuth bool   `yaml:"enable_local_auth"`
	HMACSecret      string `yaml:"-"`
	AdminUser       string `yaml:"admin_user"`
	AdminPassHash   string `yaml:"-"` // bcrypt

	CORSOriginsOnline  []string `yaml:"cors_origins_online"`
	CORSOriginsOffline []string `yaml:"cors_origins_offline"`
}

// S3 addresses an S3 bucket or a MinIO endpoint.
type S3 struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"-"`
	SecretKey string `yaml:"-"`
}

type Sandbox struct {
	Enabled bool              `yaml:"enabled"`
	Timeout time.Duration     `yaml:"timeout"`
	Memory  int64             `yaml:"memory_bytes"`
	CPUs    float64           `yaml:"cpus"`
	Images  map[string]string `yaml:"images"` // language -> image
}

func defaults() Config {
	return Config{
		Mode:             ModeOffline,
		HTTPAddr:         ":8080",
		DBDriver:         "sqlite",
		BlobDriver:       "fs",
		BlobBasePath:     "./data",
		S3:               S3{Region: "us-east-1"},
		CacheTTL:         time.Hour,
		GradeConcurrency: 4,
		EnableLocalAuth:  true,
		AdminUser:        "admin",
		AdminPassHash:    "$2y$12$pyZAiWaTfVtM7UElIRStvOC3gNbnp70nmQU4eYopLGBfCJr1DOvji",
		Sandbox: Sandbox{
			Timeout: 30 * time.Second,
			Memory:  256 << 20,
			CPUs:    1,
			Images: map[string]string{
				"python":     "python:3.12-alpine",
				"javascript": "node:22-alpine",
				"go":         "golang:1.24-alpine",
			},
		},
		CORSOriginsOnline:  []string{"https://lms.mindengage.ai"},
		CORSOriginsOffline: []string{"http://localhost:3000", "http://localhost:3010", "http://localhost:3020"},
	}
}

// Load reads the optional YAML file named by GRADING_CONFIG, then applies
// environment overrides.
func Load() (Config, error) {
	cfg := defaults()
	if path := os.Getenv("GRADING_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv is Load without a config file; it panics on invalid values.
func FromEnv() Config {
	cfg := defaults()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	return cfg
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Mode = Mode(envOr("MODE", string(c.Mode)))
	c.HTTPAddr = envOr("HTTP_ADDR", c.HTTPAddr)
	c.DBDriver = envOr("DB_DRIVER", c.DBDriver)
	c.DBDSN = envOr("DB_DSN", c.DBDSN)
	c.BlobDriver = envOr("BLOB_DRIVER", c.BlobDriver)
	c.BlobBasePath = envOr("BLOB_BASE_PATH", c.BlobBasePath)
	c.S3.Endpoint = envOr("S3_ENDPOINT", c.S3.Endpoint)
	c.S3.Region = envOr("S3_REGION", c.S3.Region)
	c.S3.Bucket = envOr("S3_BUCKET", c.S3.Bucket)
	c.S3.AccessKey = envOr("S3_ACCESS_KEY", c.S3.AccessKey)
	c.S3.SecretKey = envOr("S3_SECRET_KEY", c.S3.SecretKey)
	c.RedisAddr = envOr("REDIS_ADDR", c.RedisAddr)
	c.CacheTTL = envDuration("CACHE_TTL", c.CacheTTL)
	c.Sandbox.Enabled = envBool("SANDBOX_ENABLED", c.Sandbox.Enabled)
	c.Sandbox.Timeout = envDuration("SANDBOX_TIMEOUT", c.Sandbox.Timeout)
	for lang := range c.Sandbox.Images {
		c.Sandbox.Images[lang] = envOr("SANDBOX_IMAGE_"+strings.ToUpper(lang), c.Sandbox.Images[lang])
	}
	c.GradeConcurrency = envInt("GRADE_CONCURRENCY", c.GradeConcurrency)
	c.OMRBaseURL = envOr("OMR_BASE_URL", c.OMRBaseURL)
	c.EnableLocalAuth = envBool("ENABLE_LOCAL_AUTH", c.EnableLocalAuth)
	c.HMACSecret = envOr("AUTH_HMAC_SECRET", "supersecret-dev-key")
	c.AdminUser = envOr("ADMIN_USER", c.AdminUser)
	c.AdminPassHash = envOr("ADMIN_PASS_HASH", c.AdminPassHash)
	c.CORSOriginsOnline = csvOr("CORS_ORIGINS_ONLINE", c.CORSOriginsOnline)
	c.CORSOriginsOffline = csvOr("CORS_ORIGINS_OFFLINE", c.CORSOriginsOffline)
}

// Validate rejects combinations the service cannot start with.
func (c Config) Validate() error {
	switch c.Mode {
	case ModeOffline, ModeOnline:
	default:
		return fmt.Errorf("mode: unknown %q", c.Mode)
	}
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("db_driver: unsupported %q", c.DBDriver)
	}
	switch c.BlobDriver {
	case "fs":
	case "s3", "minio":
		if c.S3.Bucket == "" {
			return fmt.Errorf("s3.bucket is required for blob driver %q", c.BlobDriver)
		}
	default:
		return fmt.Errorf("blob_driver: unsupported %q", c.BlobDriver)
	}
	if c.GradeConcurrency < 1 {
		return fmt.Errorf("grade_concurrency must be at least 1, got %d", c.GradeConcurrency)
	}
	if c.Mode == ModeOnline && c.HMACSecret == "supersecret-dev-key" {
		return fmt.Errorf("AUTH_HMAC_SECRET must be set in online mode")
	}
	return nil
}

// CORSOrigins returns the origins for the active mode.
func (c Config) CORSOrigins() []string {
	if c.Mode == ModeOnline {
		return c.CORSOriginsOnline
	}
	return c.CORSOriginsOffline
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}
func envInt(k string, def int) int {
	n, err := strconv.Atoi(os.Getenv(k))
	if err != nil {
		return def
	}
	return n
}
func envDuration(k string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(k))
	if err != nil {
		return def
	}
	return d
}
func csvOr(k string, def []string) []string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
