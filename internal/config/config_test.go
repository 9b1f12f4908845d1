package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"vccadmin/internal/logger"
)

func TestLoadConfig(t *testing.T) {
	// 測試載入預設配置
	config, err := Load("")
	if err != nil {
		t.Fatalf("Failed to load default config: %v", err)
	}

	if config.API.RESTURL != DefaultRESTURL {
		t.Errorf("Expected REST URL '%s', got '%s'", DefaultRESTURL, config.API.RESTURL)
	}

	if config.API.SOAPURL != DefaultSOAPURL {
		t.Errorf("Expected SOAP URL '%s', got '%s'", DefaultSOAPURL, config.API.SOAPURL)
	}

	if config.API.PageSize != 100 {
		t.Errorf("Expected page size 100, got %d", config.API.PageSize)
	}

	if config.API.RequestTimeout != 60*time.Second {
		t.Errorf("Expected request timeout 60s, got %v", config.API.RequestTimeout)
	}

	if config.API.BootstrapMaxAttempts != 10 {
		t.Errorf("Expected bootstrap max attempts 10, got %d", config.API.BootstrapMaxAttempts)
	}

	if config.Storage.BackupDir != "IVR Backups" {
		t.Errorf("Expected backup dir 'IVR Backups', got '%s'", config.Storage.BackupDir)
	}

	if config.Storage.FailureDir != "Failed Updates" {
		t.Errorf("Expected failure dir 'Failed Updates', got '%s'", config.Storage.FailureDir)
	}

	if config.Storage.DisableFailureDumps {
		t.Error("Expected failure dumps to be enabled by default")
	}

	if config.Logging.Level != "warn" {
		t.Errorf("Expected logging level 'warn', got '%s'", config.Logging.Level)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	config, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Missing config file should not fail: %v", err)
	}
	if config.API.PageSize != MaxPageSize {
		t.Errorf("Expected default page size, got %d", config.API.PageSize)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vccadmin.toml")
	content := `
[api]
rest_url = "http://localhost:9000/rest"
soap_url = "http://localhost:9000/soap"
request_timeout = "15s"
page_size = 50
bootstrap_max_attempts = 3

[storage]
backup_dir = "snapshots"
failure_dir = "failures"
disable_failure_dumps = true

[logging]
level = "debug"
format = "json"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	config, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config file: %v", err)
	}

	if config.API.RESTURL != "http://localhost:9000/rest" {
		t.Errorf("Expected REST URL from file, got '%s'", config.API.RESTURL)
	}
	if config.API.RequestTimeout != 15*time.Second {
		t.Errorf("Expected request timeout 15s, got %v", config.API.RequestTimeout)
	}
	if config.API.PageSize != 50 {
		t.Errorf("Expected page size 50, got %d", config.API.PageSize)
	}
	if config.API.BootstrapMaxAttempts != 3 {
		t.Errorf("Expected bootstrap attempts 3, got %d", config.API.BootstrapMaxAttempts)
	}
	if config.Storage.BackupDir != "snapshots" || config.Storage.FailureDir != "failures" {
		t.Errorf("Unexpected storage dirs: %+v", config.Storage)
	}
	if !config.Storage.DisableFailureDumps {
		t.Error("Expected failure dumps disabled from file")
	}
	if config.Logging.Level != "debug" || config.Logging.Format != "json" {
		t.Errorf("Unexpected logging config: %+v", config.Logging)
	}
}

func TestLoadInvalidConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.toml")
	if err := os.WriteFile(path, []byte("[api\nrest_url = "), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Expected error for malformed TOML")
	}
}

func TestAPIConfigValidation(t *testing.T) {
	valid := APIConfig{
		RESTURL:              DefaultRESTURL,
		SOAPURL:              DefaultSOAPURL,
		RequestTimeout:       60 * time.Second,
		PageSize:             100,
		BootstrapInterval:    2 * time.Second,
		BootstrapMaxAttempts: 10,
	}

	tests := []struct {
		name      string
		mutate    func(c *APIConfig)
		expectErr bool
	}{
		{name: "valid config", mutate: func(c *APIConfig) {}, expectErr: false},
		{name: "non-http rest url", mutate: func(c *APIConfig) { c.RESTURL = "ftp://example.com" }, expectErr: true},
		{name: "empty soap url", mutate: func(c *APIConfig) { c.SOAPURL = "" }, expectErr: true},
		{name: "timeout too short", mutate: func(c *APIConfig) { c.RequestTimeout = 500 * time.Millisecond }, expectErr: true},
		{name: "timeout too long", mutate: func(c *APIConfig) { c.RequestTimeout = time.Hour }, expectErr: true},
		{name: "page size too large", mutate: func(c *APIConfig) { c.PageSize = 101 }, expectErr: true},
		{name: "page size zero", mutate: func(c *APIConfig) { c.PageSize = 0 }, expectErr: true},
		{name: "bootstrap attempts too low", mutate: func(c *APIConfig) { c.BootstrapMaxAttempts = 0 }, expectErr: true},
		{name: "bootstrap attempts too high", mutate: func(c *APIConfig) { c.BootstrapMaxAttempts = 101 }, expectErr: true},
		{name: "negative bootstrap interval", mutate: func(c *APIConfig) { c.BootstrapInterval = -time.Second }, expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := validateAPIConfig(&cfg)
			if tt.expectErr && err == nil {
				t.Errorf("Expected error but got none")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

func TestStorageConfigValidation(t *testing.T) {
	tests := []struct {
		name      string
		config    StorageConfig
		expectErr bool
	}{
		{name: "valid", config: StorageConfig{BackupDir: "IVR Backups", FailureDir: "Failed Updates"}},
		{name: "empty backup dir", config: StorageConfig{FailureDir: "Failed Updates"}, expectErr: true},
		{name: "empty failure dir", config: StorageConfig{BackupDir: "IVR Backups"}, expectErr: true},
		{name: "same dirs", config: StorageConfig{BackupDir: "out/", FailureDir: "out"}, expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateStorageConfig(&tt.config)
			if tt.expectErr && err == nil {
				t.Errorf("Expected error but got none")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

func TestConfigFromEnvironment(t *testing.T) {
	t.Setenv("VCCADMIN_API_SOAP_URL", "http://127.0.0.1:8080/soap")
	t.Setenv("VCCADMIN_API_REQUEST_TIMEOUT", "30s")
	t.Setenv("VCCADMIN_API_BOOTSTRAP_MAX_ATTEMPTS", "20")
	t.Setenv("VCCADMIN_STORAGE_BACKUP_DIR", "/tmp/ivr-backups")
	t.Setenv("VCCADMIN_LOGGING_LEVEL", "info")

	config, err := Load("")
	if err != nil {
		t.Fatalf("Failed to load config from environment: %v", err)
	}

	if config.API.SOAPURL != "http://127.0.0.1:8080/soap" {
		t.Errorf("Expected SOAP URL from env, got '%s'", config.API.SOAPURL)
	}

	if config.API.RequestTimeout != 30*time.Second {
		t.Errorf("Expected request timeout from env 30s, got %v", config.API.RequestTimeout)
	}

	if config.API.BootstrapMaxAttempts != 20 {
		t.Errorf("Expected bootstrap attempts from env 20, got %d", config.API.BootstrapMaxAttempts)
	}

	if config.Storage.BackupDir != "/tmp/ivr-backups" {
		t.Errorf("Expected backup dir from env, got '%s'", config.Storage.BackupDir)
	}

	if config.Logging.Level != "info" {
		t.Errorf("Expected logging level from env 'info', got '%s'", config.Logging.Level)
	}
}

func TestConfigValidationIntegration(t *testing.T) {
	// 測試完整的配置驗證流程
	config := Default()

	if err := validateConfig(config); err != nil {
		t.Errorf("Valid config should pass validation, got error: %v", err)
	}

	// 測試無效配置
	config.Logging = logger.LoggingConfig{Level: "loud", Format: "text", Output: "stdout", MaxSize: 1, MaxAge: 1}
	if err := validateConfig(config); err == nil {
		t.Error("Invalid config should fail validation")
	}
}
