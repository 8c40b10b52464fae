package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	NATS     NATSConfig     `yaml:"nats"`
	MinIO    MinIOConfig    `yaml:"minio"`
	Redis    RedisConfig    `yaml:"redis"`
	Telegram TelegramConfig `yaml:"telegram"`
	Audio    AudioConfig    `yaml:"audio"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port        int    `yaml:"port"`
	MetricsPort int    `yaml:"metrics_port"`
	APIKey      string `yaml:"api_key"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int    `yaml:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
	// PublicURL is the externally reachable base for evidence links.
	// When empty it is derived from Endpoint and UseSSL.
	PublicURL string `yaml:"public_url"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type TelegramConfig struct {
	APIURL  string        `yaml:"api_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type AudioConfig struct {
	Command   string `yaml:"command"`
	SoundFile string `yaml:"sound_file"`
}

type PipelineConfig struct {
	ChannelTimeout  time.Duration `yaml:"channel_timeout"`
	StoreTimeout    time.Duration `yaml:"store_timeout"`
	LaneBuffer      int           `yaml:"lane_buffer"`
	WorkerCount     int           `yaml:"worker_count"`
	Cooldown        time.Duration `yaml:"cooldown"`
	StoreEmbeddings bool          `yaml:"store_embeddings"`
	// AcceptUnregistered opens a camera lane on first detection instead of
	// waiting for an explicit start command.
	AcceptUnregistered *bool `yaml:"accept_unregistered"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from YAML file and applies environment variable overrides.
// A .env file in the working directory is loaded first when present. A missing
// config file is not an error; defaults and environment apply.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config file: %w", err)
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.MetricsPort == 0 {
		cfg.Server.MetricsPort = 8082
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 20
	}
	if cfg.NATS.URL == "" {
		cfg.NATS.URL = "nats://localhost:4222"
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = "evidence"
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Telegram.APIURL == "" {
		cfg.Telegram.APIURL = "https://api.telegram.org"
	}
	if cfg.Telegram.Timeout == 0 {
		cfg.Telegram.Timeout = 5 * time.Second
	}
	if cfg.Pipeline.ChannelTimeout == 0 {
		cfg.Pipeline.ChannelTimeout = 5 * time.Second
	}
	if cfg.Pipeline.StoreTimeout == 0 {
		cfg.Pipeline.StoreTimeout = 5 * time.Second
	}
	if cfg.Pipeline.LaneBuffer == 0 {
		cfg.Pipeline.LaneBuffer = 16
	}
	if cfg.Pipeline.WorkerCount == 0 {
		cfg.Pipeline.WorkerCount = 4
	}
	if cfg.Pipeline.AcceptUnregistered == nil {
		accept := true
		cfg.Pipeline.AcceptUnregistered = &accept
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FD_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("FD_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.MetricsPort = port
		}
	}
	if v := os.Getenv("FD_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("FD_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("FD_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("FD_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("FD_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("FD_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("FD_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("FD_MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("FD_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("FD_MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
	if v := os.Getenv("FD_MINIO_BUCKET"); v != "" {
		cfg.MinIO.Bucket = v
	}
	if v := os.Getenv("FD_MINIO_PUBLIC_URL"); v != "" {
		cfg.MinIO.PublicURL = v
	}
	if v := os.Getenv("FD_REDIS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Redis.Enabled = b
		}
	}
	if v := os.Getenv("FD_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("FD_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("FD_TELEGRAM_API_URL"); v != "" {
		cfg.Telegram.APIURL = v
	}
	if v := os.Getenv("FD_AUDIO_COMMAND"); v != "" {
		cfg.Audio.Command = v
	}
	if v := os.Getenv("FD_AUDIO_SOUND_FILE"); v != "" {
		cfg.Audio.SoundFile = v
	}
	if v := os.Getenv("FD_ALERT_COOLDOWN"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Pipeline.Cooldown = d
		}
	}
	if v := os.Getenv("FD_WORKER_COUNT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Pipeline.WorkerCount = n
		}
	}
	if v := os.Getenv("FD_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
