// Package config loads settings from an optional YAML file and the
// environment. Environment variables win over the file; secrets are only
// read from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port     string       `yaml:"port"`
	DBPath   string       `yaml:"db_path"`
	LogLevel string       `yaml:"log_level"`
	LogJSON  bool         `yaml:"log_json"`
	Coach    CoachConfig  `yaml:"coach"`
	Backup   BackupConfig `yaml:"backup"`

	// AllowedOrigins are the origin patterns accepted on /ws.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type CoachConfig struct {
	APIKey     string        `yaml:"-"`
	BaseURL    string        `yaml:"base_url"`
	Model      string        `yaml:"model"`
	ImageModel string        `yaml:"image_model"`
	Timeout    time.Duration `yaml:"timeout"`
	AvatarTTL  time.Duration `yaml:"avatar_ttl"`
}

type BackupConfig struct {
	Dir        string        `yaml:"dir"`
	Interval   time.Duration `yaml:"interval"`
	Passphrase string        `yaml:"-"`
	S3         S3Config      `yaml:"s3"`
}

type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"-"`
	SecretKey string `yaml:"-"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Port:     "8080",
		DBPath:   "pixelquest.db",
		LogLevel: "info",
		Coach: CoachConfig{
			Model:      "gpt-4o-mini",
			ImageModel: "dall-e-3",
			Timeout:    30 * time.Second,
			AvatarTTL:  time.Hour,
		},
		Backup: BackupConfig{
			Dir: "backups",
			S3:  S3Config{Region: "us-east-1"},
		},
		AllowedOrigins: []string{"localhost:*", "127.0.0.1:*"},
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// path is non-empty) and the environment, in that order.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Port, "PIXELQUEST_PORT")
	setString(&cfg.DBPath, "PIXELQUEST_DB_PATH")
	setString(&cfg.LogLevel, "PIXELQUEST_LOG_LEVEL")
	if v := os.Getenv("PIXELQUEST_LOG_JSON"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("PIXELQUEST_LOG_JSON: %w", err)
		}
		cfg.LogJSON = b
	}

	if v := os.Getenv("PIXELQUEST_ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = strings.Split(v, ",")
	}

	setString(&cfg.Coach.APIKey, "OPENAI_API_KEY")
	setString(&cfg.Coach.BaseURL, "OPENAI_BASE_URL")
	setString(&cfg.Coach.Model, "PIXELQUEST_COACH_MODEL")
	setString(&cfg.Coach.ImageModel, "PIXELQUEST_COACH_IMAGE_MODEL")

	setString(&cfg.Backup.Dir, "PIXELQUEST_BACKUP_DIR")
	setString(&cfg.Backup.Passphrase, "PIXELQUEST_BACKUP_PASSPHRASE")
	setString(&cfg.Backup.S3.Endpoint, "PIXELQUEST_S3_ENDPOINT")
	setString(&cfg.Backup.S3.Bucket, "PIXELQUEST_S3_BUCKET")
	setString(&cfg.Backup.S3.Region, "PIXELQUEST_S3_REGION")
	setString(&cfg.Backup.S3.AccessKey, "PIXELQUEST_S3_ACCESS_KEY")
	setString(&cfg.Backup.S3.SecretKey, "PIXELQUEST_S3_SECRET_KEY")

	return errors.Join(
		setDuration(&cfg.Coach.Timeout, "PIXELQUEST_COACH_TIMEOUT"),
		setDuration(&cfg.Coach.AvatarTTL, "PIXELQUEST_AVATAR_TTL"),
		setDuration(&cfg.Backup.Interval, "PIXELQUEST_BACKUP_INTERVAL"),
	)
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	var errs []error
	if p, err := strconv.Atoi(c.Port); err != nil || p < 1 || p > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %q", c.Port))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("database path is required"))
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("invalid log level %q", c.LogLevel))
	}
	if c.Coach.Timeout <= 0 {
		errs = append(errs, errors.New("coach timeout must be positive"))
	}
	if c.Backup.Interval < 0 {
		errs = append(errs, errors.New("backup interval must not be negative"))
	}
	return errors.Join(errs...)
}

// CoachEnabled reports whether an OpenAI key is configured.
func (c Config) CoachEnabled() bool {
	return c.Coach.APIKey != ""
}
