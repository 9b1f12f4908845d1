package cmd

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"vccadmin/internal/backup"
	"vccadmin/internal/config"
	"vccadmin/internal/credentials"
	"vccadmin/internal/logger"
	"vccadmin/internal/soap"
	"vccadmin/internal/vcc"
)

// session 單次執行所需的設定、日誌與已初始化網域的客戶端
type session struct {
	cfg    *config.Config
	log    *logger.Logger
	client *vcc.Client
}

// loadSettings 讀取設定並依 --verbose/--debug 建立日誌記錄器
func loadSettings(opts *rootOptions) (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, nil, err
	}

	switch {
	case opts.debug:
		cfg.Logging.Level = "debug"
	case opts.verbose:
		cfg.Logging.Level = "info"
	}

	// 未明確傳入日誌的元件也使用同一份設定
	if err := logger.InitDefaultLogger(&cfg.Logging); err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	log := logger.GetDefaultLogger().With("run_id", uuid.NewString())
	return cfg, log, nil
}

// newSession 解析憑證、建立客戶端並取得網域資訊
func newSession(cmd *cobra.Command, opts *rootOptions) (*session, error) {
	cfg, log, err := loadSettings(opts)
	if err != nil {
		return nil, err
	}

	resolver := &credentials.Resolver{
		Username:        opts.username,
		Password:        opts.password,
		DefaultUsername: cfg.Credentials.Username,
		EnvFile:         cfg.Credentials.EnvFile,
		KeyringService:  cfg.Credentials.KeyringService,
		Prompter:        credentials.NewTerminalPrompter(),
		Logger:          log,
	}
	creds, source, err := resolver.Resolve()
	if err != nil {
		return nil, err
	}
	log.Debug("Credentials resolved", "source", string(source), "username", creds.Username)

	client := vcc.NewClient(cfg.API, creds, vcc.WithLogger(log))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	domain, err := client.Bootstrap(ctx, soap.ConfigurationProbe{})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve domain configuration: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", headerLabel("Domain:"), domain.Name, domain.ID)

	return &session{cfg: cfg, log: log, client: client}, nil
}

// logMetrics 記錄本次執行的管線統計
func (s *session) logMetrics() {
	m := s.log.Metrics()
	s.log.Info("Pipeline metrics",
		"fetched", m.Fetched,
		"fetch_failures", m.FetchFailures,
		"parse_failures", m.ParseFailures,
		"confirmed", m.Confirmed,
		"rejected", m.Rejected,
		"backups_written", m.BackupsWritten,
		"dumps_written", m.DumpsWritten,
	)
}

// sidecar 依設定建立備份與失敗轉儲
func (s *session) sidecar() *backup.Sidecar {
	store := backup.NewStore(s.cfg.Storage.BackupDir, s.cfg.Storage.FailureDir)
	return backup.NewSidecar(store, s.log, !s.cfg.Storage.DisableFailureDumps)
}
