package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"vccadmin/internal/logger"
)

const (
	EnvPrefix = "VCCADMIN_"

	DefaultRESTURL = "https://api.five9.com/restadmin/api/v1/domains"
	DefaultSOAPURL = "https://api.five9.com:443/wsadmin/v12/AdminWebService"
	// MaxPageSize 平台 REST 列表單頁上限
	MaxPageSize = 100
)

type Config struct {
	API         APIConfig            `koanf:"api"`
	Storage     StorageConfig        `koanf:"storage"`
	Credentials CredentialsConfig    `koanf:"credentials"`
	Logging     logger.LoggingConfig `koanf:"logging"`
}

type APIConfig struct {
	RESTURL              string        `koanf:"rest_url"`
	SOAPURL              string        `koanf:"soap_url"`
	RequestTimeout       time.Duration `koanf:"request_timeout"`
	PageSize             int           `koanf:"page_size"`
	BootstrapInterval    time.Duration `koanf:"bootstrap_interval"`
	BootstrapMaxAttempts int           `koanf:"bootstrap_max_attempts"`
}

type StorageConfig struct {
	BackupDir           string `koanf:"backup_dir"`
	FailureDir          string `koanf:"failure_dir"`
	DisableFailureDumps bool   `koanf:"disable_failure_dumps"`
}

type CredentialsConfig struct {
	Username       string `koanf:"username"`
	EnvFile        string `koanf:"env_file"`
	KeyringService string `koanf:"keyring_service"`
}

// Load 讀取 TOML 設定檔與 VCCADMIN_ 環境變數
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config file %s: %w", configPath, err)
		}
	}

	// VCCADMIN_API_REQUEST_TIMEOUT -> api.request_timeout
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, EnvPrefix)), "_", ".", 1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	setDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Default 返回僅含預設值的設定
func Default() *Config {
	var config Config
	setDefaults(&config)
	return &config
}

func setDefaults(cfg *Config) {
	if cfg.API.RESTURL == "" {
		cfg.API.RESTURL = DefaultRESTURL
	}
	if cfg.API.SOAPURL == "" {
		cfg.API.SOAPURL = DefaultSOAPURL
	}
	if cfg.API.RequestTimeout == 0 {
		cfg.API.RequestTimeout = 60 * time.Second
	}
	if cfg.API.PageSize == 0 {
		cfg.API.PageSize = MaxPageSize
	}
	if cfg.API.BootstrapInterval == 0 {
		cfg.API.BootstrapInterval = 2 * time.Second
	}
	if cfg.API.BootstrapMaxAttempts == 0 {
		cfg.API.BootstrapMaxAttempts = 10
	}

	if cfg.Storage.BackupDir == "" {
		cfg.Storage.BackupDir = "IVR Backups"
	}
	if cfg.Storage.FailureDir == "" {
		cfg.Storage.FailureDir = "Failed Updates"
	}

	if cfg.Credentials.EnvFile == "" {
		cfg.Credentials.EnvFile = ".env"
	}
	if cfg.Credentials.KeyringService == "" {
		cfg.Credentials.KeyringService = "vccadmin"
	}

	// Logging 預設值
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "warn"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stderr"
	}
	if cfg.Logging.MaxSize == 0 {
		cfg.Logging.MaxSize = 100 // 100MB
	}
	if cfg.Logging.MaxBackups == 0 {
		cfg.Logging.MaxBackups = 3
	}
	if cfg.Logging.MaxAge == 0 {
		cfg.Logging.MaxAge = 28 // 28 days
	}
}

func validateConfig(cfg *Config) error {
	if err := validateAPIConfig(&cfg.API); err != nil {
		return fmt.Errorf("api config validation failed: %w", err)
	}

	if err := validateStorageConfig(&cfg.Storage); err != nil {
		return fmt.Errorf("storage config validation failed: %w", err)
	}

	if err := validateLoggingConfig(&cfg.Logging); err != nil {
		return fmt.Errorf("logging config validation failed: %w", err)
	}

	return nil
}

func validateAPIConfig(cfg *APIConfig) error {
	for name, raw := range map[string]string{"rest_url": cfg.RESTURL, "soap_url": cfg.SOAPURL} {
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, raw, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("%s must be an http(s) URL, got %q", name, raw)
		}
	}

	if cfg.RequestTimeout < time.Second {
		return fmt.Errorf("request timeout must be at least 1 second, got %v", cfg.RequestTimeout)
	}

	if cfg.RequestTimeout > 10*time.Minute {
		return fmt.Errorf("request timeout cannot exceed 10 minutes, got %v", cfg.RequestTimeout)
	}

	if cfg.PageSize < 1 || cfg.PageSize > MaxPageSize {
		return fmt.Errorf("page size must be between 1 and %d, got %d", MaxPageSize, cfg.PageSize)
	}

	if cfg.BootstrapInterval < 0 || cfg.BootstrapInterval > time.Minute {
		return fmt.Errorf("bootstrap interval must be between 0 and 1 minute, got %v", cfg.BootstrapInterval)
	}

	if cfg.BootstrapMaxAttempts < 1 {
		return fmt.Errorf("bootstrap max attempts must be at least 1, got %d", cfg.BootstrapMaxAttempts)
	}

	if cfg.BootstrapMaxAttempts > 100 {
		return fmt.Errorf("bootstrap max attempts cannot exceed 100, got %d", cfg.BootstrapMaxAttempts)
	}

	return nil
}

func validateStorageConfig(cfg *StorageConfig) error {
	if cfg.BackupDir == "" {
		return fmt.Errorf("backup dir cannot be empty")
	}

	if cfg.FailureDir == "" {
		return fmt.Errorf("failure dir cannot be empty")
	}

	if filepath.Clean(cfg.BackupDir) == filepath.Clean(cfg.FailureDir) {
		return fmt.Errorf("backup dir and failure dir must differ, both are %q", cfg.BackupDir)
	}

	return nil
}

func validateLoggingConfig(cfg *logger.LoggingConfig) error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLevels[cfg.Level] {
		return fmt.Errorf("invalid logging level: %s, must be one of: debug, info, warn, error", cfg.Level)
	}

	validFormats := map[string]bool{
		"json": true,
		"text": true,
	}

	if !validFormats[cfg.Format] {
		return fmt.Errorf("invalid logging format: %s, must be one of: json, text", cfg.Format)
	}

	validOutputs := map[string]bool{
		"stdout": true,
		"stderr": true,
		"file":   true,
	}

	if !validOutputs[cfg.Output] {
		return fmt.Errorf("invalid logging output: %s, must be one of: stdout, stderr, file", cfg.Output)
	}

	if cfg.Output == "file" && cfg.FilePath == "" {
		return fmt.Errorf("file_path must be specified when output is 'file'")
	}

	if cfg.MaxSize < 1 || cfg.MaxSize > 1000 {
		return fmt.Errorf("max_size must be between 1 and 1000 MB, got %d", cfg.MaxSize)
	}

	if cfg.MaxBackups < 0 || cfg.MaxBackups > 100 {
		return fmt.Errorf("max_backups must be between 0 and 100, got %d", cfg.MaxBackups)
	}

	if cfg.MaxAge < 1 || cfg.MaxAge > 365 {
		return fmt.Errorf("max_age must be between 1 and 365 days, got %d", cfg.MaxAge)
	}

	return nil
}
