package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrMissingAPIKey is returned by Validate when the AI credential is absent.
var ErrMissingAPIKey = errors.New("API_KEY is not set")

type Config struct {
	Server struct {
		Port           int           `yaml:"port" env:"PORT"`
		AllowedOrigins []string      `yaml:"allowedOrigins" env:"ALLOWED_ORIGINS" envSeparator:","`
		MaxUploadMB    int64         `yaml:"maxUploadMB" env:"MAX_UPLOAD_MB"`
		ReadTimeout    time.Duration `yaml:"readTimeout" env:"SERVER_READ_TIMEOUT"`
		WriteTimeout   time.Duration `yaml:"writeTimeout" env:"SERVER_WRITE_TIMEOUT"`
	} `yaml:"server"`

	AI struct {
		APIKey      string  `yaml:"apiKey" env:"API_KEY"`
		BaseURL     string  `yaml:"baseURL" env:"AI_BASE_URL"`
		Model       string  `yaml:"model" env:"AI_MODEL"`
		Temperature float32 `yaml:"temperature" env:"AI_TEMPERATURE"`
	} `yaml:"ai"`

	Storage struct {
		Driver   string `yaml:"driver" env:"STORAGE_DRIVER"` // memory | file | redis | mysql | postgres | minio
		Path     string `yaml:"path" env:"STORAGE_PATH"`
		RedisURL string `yaml:"redisURL" env:"REDIS_URL"`
		Prefix   string `yaml:"prefix" env:"STORAGE_PREFIX"`

		Database struct {
			Host     string `yaml:"host" env:"DB_HOST"`
			Port     int    `yaml:"port" env:"DB_PORT"`
			User     string `yaml:"user" env:"DB_USER"`
			Password string `yaml:"password" env:"DB_PASSWORD"`
			Name     string `yaml:"name" env:"DB_NAME"`
			SSLMode  string `yaml:"sslMode" env:"DB_SSLMODE"`
		} `yaml:"database"`

		Minio struct {
			Endpoint   string `yaml:"endpoint" env:"MINIO_ENDPOINT"`
			AccessKey  string `yaml:"accessKey" env:"MINIO_ACCESS_KEY"`
			SecretKey  string `yaml:"secretKey" env:"MINIO_SECRET_KEY"`
			BucketName string `yaml:"bucketName" env:"MINIO_BUCKET"`
			Region     string `yaml:"region" env:"MINIO_REGION"`
			UseSSL     bool   `yaml:"useSSL" env:"MINIO_USE_SSL"`
		} `yaml:"minio"`
	} `yaml:"storage"`

	Client struct {
		ServerURL   string        `yaml:"serverURL" env:"CAMERA_SERVER_URL"`
		AuthLatency time.Duration `yaml:"authLatency" env:"CAMERA_AUTH_LATENCY"`
	} `yaml:"client"`

	Log struct {
		Level string `yaml:"level" env:"LOG_LEVEL"`
	} `yaml:"log"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	var c Config
	c.Server.Port = 8080
	c.Server.AllowedOrigins = []string{"*"}
	c.Server.MaxUploadMB = 10
	c.Server.ReadTimeout = 30 * time.Second
	// model latency untuk gambar besar bisa lama
	c.Server.WriteTimeout = 120 * time.Second

	c.AI.BaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"
	c.AI.Model = "gemini-3-pro-preview"
	c.AI.Temperature = 0.4

	c.Storage.Driver = "file"
	c.Storage.Path = defaultStatePath()
	c.Storage.RedisURL = "redis://localhost:6379/0"
	c.Storage.Database.Port = 3306
	c.Storage.Database.Name = "research_camera"
	c.Storage.Database.SSLMode = "disable"
	c.Storage.Minio.BucketName = "research-camera"

	c.Client.ServerURL = "http://localhost:8080"
	c.Client.AuthLatency = 600 * time.Millisecond

	c.Log.Level = "info"
	return &c
}

// Load layers the configuration: defaults, then the yaml file at path (a
// missing file is fine), then .env, then environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	// .env opsional, untuk development lokal
	_ = godotenv.Load()

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("error getting env configs: %w", err)
	}
	return cfg, nil
}

// Validate checks what the api server needs before it starts serving.
func (c *Config) Validate() error {
	if c.AI.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid maxUploadMB: %d", c.Server.MaxUploadMB)
	}
	return nil
}

// MaxUploadBytes is the per-file upload limit.
func (c *Config) MaxUploadBytes() int64 {
	return c.Server.MaxUploadMB << 20
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	d := c.Storage.Database
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// PostgresDSN builds a lib/pq connection string.
func (c *Config) PostgresDSN() string {
	d := c.Storage.Database
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

func defaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".research-camera.json"
	}
	return filepath.Join(dir, "research-camera", "state.json")
}
