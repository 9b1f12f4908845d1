package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger 包裝 slog.Logger 提供結構化日誌記錄
type Logger struct {
	*slog.Logger
	level   slog.Level
	metrics *pipelineMetrics
}

// LoggingConfig 日誌配置結構
type LoggingConfig struct {
	Level      string `koanf:"level"`
	Format     string `koanf:"format"`
	Output     string `koanf:"output"`
	FilePath   string `koanf:"file_path"`
	MaxSize    int    `koanf:"max_size"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAge     int    `koanf:"max_age"`
	Compress   bool   `koanf:"compress"`
}

// ScriptEvent 定義腳本更新流程的日誌事件類型
type ScriptEvent string

const (
	ScriptEventFetchStart       ScriptEvent = "fetch_start"
	ScriptEventFetchFailed      ScriptEvent = "fetch_failed"
	ScriptEventParsed           ScriptEvent = "parsed"
	ScriptEventParseFailed      ScriptEvent = "parse_failed"
	ScriptEventBackupWritten    ScriptEvent = "backup_written"
	ScriptEventBackupFailed     ScriptEvent = "backup_failed"
	ScriptEventModuleRenamed    ScriptEvent = "module_renamed"
	ScriptEventVariableAdded    ScriptEvent = "variable_added"
	ScriptEventMutationFailed   ScriptEvent = "mutation_failed"
	ScriptEventSubmitStart      ScriptEvent = "submit_start"
	ScriptEventConfirmed        ScriptEvent = "confirmed"
	ScriptEventRejected         ScriptEvent = "rejected"
	ScriptEventDumpWritten      ScriptEvent = "dump_written"
	ScriptEventDumpFailed       ScriptEvent = "dump_failed"
	ScriptEventBatchSkipped     ScriptEvent = "batch_skipped"
	ScriptEventBatchSummary     ScriptEvent = "batch_summary"
	ScriptEventBootstrapAttempt ScriptEvent = "bootstrap_attempt"
	ScriptEventBootstrapSuccess ScriptEvent = "bootstrap_success"
	ScriptEventBootstrapFailed  ScriptEvent = "bootstrap_failed"
	ScriptEventBootstrapGiveUp  ScriptEvent = "bootstrap_give_up"
	ScriptEventRequest          ScriptEvent = "request"
)

// PipelineMetrics 腳本更新監控指標
type PipelineMetrics struct {
	Fetched           int64     `json:"fetched"`
	FetchFailures     int64     `json:"fetch_failures"`
	ParseFailures     int64     `json:"parse_failures"`
	Confirmed         int64     `json:"confirmed"`
	Rejected          int64     `json:"rejected"`
	BackupsWritten    int64     `json:"backups_written"`
	DumpsWritten      int64     `json:"dumps_written"`
	BootstrapAttempts int64     `json:"bootstrap_attempts"`
	LastConfirmedAt   time.Time `json:"last_confirmed_at"`
}

type pipelineMetrics struct {
	mu sync.Mutex
	PipelineMetrics
}

var (
	defaultLogger *Logger
	defaultMu     sync.Mutex
)

// NewLogger 創建新的結構化日誌記錄器
func NewLogger(config *LoggingConfig) (*Logger, error) {
	if config == nil {
		config = &LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		}
	}

	// 解析日誌級別
	level, err := parseLogLevel(config.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	// 創建輸出目標
	writer, err := createWriter(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create log writer: %w", err)
	}

	return newWithWriter(writer, config.Format, level)
}

// NewWithWriter 使用指定的輸出目標創建日誌記錄器，主要供測試使用
func NewWithWriter(w io.Writer, format, levelStr string) (*Logger, error) {
	level, err := parseLogLevel(levelStr)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	return newWithWriter(w, format, level)
}

func newWithWriter(w io.Writer, format string, level slog.Level) (*Logger, error) {
	// 創建處理器
	var handler slog.Handler
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	switch strings.ToLower(format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		return nil, fmt.Errorf("unsupported log format: %s", format)
	}

	return &Logger{
		Logger:  slog.New(handler),
		level:   level,
		metrics: &pipelineMetrics{},
	}, nil
}

// Discard 返回丟棄所有輸出的日誌記錄器
func Discard() *Logger {
	l, _ := newWithWriter(io.Discard, "text", slog.LevelError)
	return l
}

// With 返回帶有額外屬性的日誌記錄器，共用同一份指標
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger:  l.Logger.With(args...),
		level:   l.level,
		metrics: l.metrics,
	}
}

// Level 返回日誌級別
func (l *Logger) Level() slog.Level {
	return l.level
}

// InitDefaultLogger 初始化默認日誌記錄器
func InitDefaultLogger(config *LoggingConfig) error {
	logger, err := NewLogger(config)
	if err != nil {
		return err
	}
	defaultMu.Lock()
	defaultLogger = logger
	defaultMu.Unlock()
	return nil
}

// GetDefaultLogger 獲取默認日誌記錄器
func GetDefaultLogger() *Logger {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger == nil {
		// 如果沒有初始化，創建一個基本的日誌記錄器
		logger, _ := NewLogger(nil)
		defaultLogger = logger
	}
	return defaultLogger
}

// parseLogLevel 解析日誌級別字符串
func parseLogLevel(levelStr string) (slog.Level, error) {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", levelStr)
	}
}

// createWriter 根據配置創建日誌輸出目標
func createWriter(config *LoggingConfig) (io.Writer, error) {
	switch strings.ToLower(config.Output) {
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	case "file":
		if config.FilePath == "" {
			return nil, fmt.Errorf("file path is required when output is 'file'")
		}

		// 確保日誌目錄存在
		dir := filepath.Dir(config.FilePath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		// 使用 lumberjack 進行日誌輪轉
		return &lumberjack.Logger{
			Filename:   config.FilePath,
			MaxSize:    config.MaxSize,
			MaxBackups: config.MaxBackups,
			MaxAge:     config.MaxAge,
			Compress:   config.Compress,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported output type: %s", config.Output)
	}
}

// 腳本流程相關的結構化日誌方法

// LogScriptEvent 記錄腳本流程事件
func (l *Logger) LogScriptEvent(event ScriptEvent, message string, attrs ...slog.Attr) {
	baseAttrs := []slog.Attr{
		slog.String("component", "ivr"),
		slog.String("event", string(event)),
	}

	allAttrs := append(baseAttrs, attrs...)

	// 轉換 slog.Attr 到 any
	anyAttrs := make([]any, len(allAttrs))
	for i, attr := range allAttrs {
		anyAttrs[i] = attr
	}

	switch event {
	case ScriptEventFetchFailed, ScriptEventParseFailed, ScriptEventMutationFailed, ScriptEventRejected,
		ScriptEventBootstrapGiveUp, ScriptEventBackupFailed, ScriptEventDumpFailed:
		l.Error(message, anyAttrs...)
	case ScriptEventBootstrapFailed:
		l.Warn(message, anyAttrs...)
	case ScriptEventFetchStart, ScriptEventConfirmed, ScriptEventBackupWritten, ScriptEventDumpWritten,
		ScriptEventBootstrapSuccess, ScriptEventBatchSummary, ScriptEventVariableAdded:
		l.Info(message, anyAttrs...)
	default:
		l.Debug(message, anyAttrs...)
	}
}

// LogFetchStart 記錄開始讀取腳本
func (l *Logger) LogFetchStart(script string) {
	l.metrics.mu.Lock()
	l.metrics.Fetched++
	l.metrics.mu.Unlock()
	l.LogScriptEvent(ScriptEventFetchStart, "Fetching IVR script",
		slog.String("script", script),
	)
}

// LogFetchFailed 記錄讀取腳本失敗
func (l *Logger) LogFetchFailed(script string, err error) {
	l.metrics.mu.Lock()
	l.metrics.FetchFailures++
	l.metrics.mu.Unlock()
	l.LogScriptEvent(ScriptEventFetchFailed, "Problem retrieving script",
		slog.String("script", script),
		slog.String("error", err.Error()),
	)
}

// LogParseFailed 記錄解析腳本失敗
func (l *Logger) LogParseFailed(script string, err error) {
	l.metrics.mu.Lock()
	l.metrics.ParseFailures++
	l.metrics.mu.Unlock()
	l.LogScriptEvent(ScriptEventParseFailed, "Problem parsing script definition",
		slog.String("script", script),
		slog.String("error", err.Error()),
	)
}

// LogModuleRenamed 記錄模組改名
func (l *Logger) LogModuleRenamed(script, moduleType, from, to string) {
	l.LogScriptEvent(ScriptEventModuleRenamed, "Renaming module",
		slog.String("script", script),
		slog.String("module_type", moduleType),
		slog.String("from", from),
		slog.String("to", to),
	)
}

// LogConfirmed 記錄腳本更新成功
func (l *Logger) LogConfirmed(script string, duration time.Duration) {
	l.metrics.mu.Lock()
	l.metrics.Confirmed++
	l.metrics.LastConfirmedAt = time.Now()
	l.metrics.mu.Unlock()
	l.LogScriptEvent(ScriptEventConfirmed, "Script updated",
		slog.String("script", script),
		slog.Duration("duration", duration),
	)
}

// LogRejected 記錄腳本更新被拒絕
func (l *Logger) LogRejected(script string, err error) {
	l.metrics.mu.Lock()
	l.metrics.Rejected++
	l.metrics.mu.Unlock()
	l.LogScriptEvent(ScriptEventRejected, "Problem updating script",
		slog.String("script", script),
		slog.String("error", err.Error()),
	)
}

// LogSidecarWrite 記錄備份或失敗轉儲的寫入結果
func (l *Logger) LogSidecarWrite(kind, script, path string, err error) {
	if err != nil {
		event := ScriptEventBackupFailed
		if kind == "dump" {
			event = ScriptEventDumpFailed
		}
		l.LogScriptEvent(event, "Problem writing "+kind,
			slog.String("script", script),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return
	}

	l.metrics.mu.Lock()
	event := ScriptEventBackupWritten
	if kind == "dump" {
		event = ScriptEventDumpWritten
		l.metrics.DumpsWritten++
	} else {
		l.metrics.BackupsWritten++
	}
	l.metrics.mu.Unlock()
	l.LogScriptEvent(event, "Wrote "+kind,
		slog.String("script", script),
		slog.String("path", path),
	)
}

// LogBootstrapAttempt 記錄網域啟動嘗試
func (l *Logger) LogBootstrapAttempt(attempt, maxAttempts int, backoff time.Duration) {
	l.metrics.mu.Lock()
	l.metrics.BootstrapAttempts++
	l.metrics.mu.Unlock()
	l.LogScriptEvent(ScriptEventBootstrapAttempt, "Requesting VCC configuration",
		slog.Int("attempt", attempt),
		slog.Int("max_attempts", maxAttempts),
		slog.Duration("backoff", backoff),
	)
}

// LogBootstrapFailed 記錄網域啟動失敗
func (l *Logger) LogBootstrapFailed(attempt int, err error) {
	l.LogScriptEvent(ScriptEventBootstrapFailed, "One of the old APIs failed, trying again",
		slog.Int("attempt", attempt),
		slog.String("error", err.Error()),
	)
}

// LogBootstrapGiveUp 記錄放棄網域啟動
func (l *Logger) LogBootstrapGiveUp(attempts int, totalDuration time.Duration) {
	l.LogScriptEvent(ScriptEventBootstrapGiveUp, "Giving up on VCC configuration after max attempts",
		slog.Int("total_attempts", attempts),
		slog.Duration("total_duration", totalDuration),
	)
}

// LogBootstrapSuccess 記錄網域啟動成功
func (l *Logger) LogBootstrapSuccess(domainID, domainName string, attempts int) {
	l.LogScriptEvent(ScriptEventBootstrapSuccess, "Domain resolved",
		slog.String("domain_id", domainID),
		slog.String("domain_name", domainName),
		slog.Int("attempts", attempts),
	)
}

// LogRequest 記錄 API 請求
func (l *Logger) LogRequest(method, url string, status int, duration time.Duration) {
	l.LogScriptEvent(ScriptEventRequest, "API request",
		slog.String("method", method),
		slog.String("url", url),
		slog.Int("status", status),
		slog.Duration("duration", duration),
	)
}

// Metrics 獲取腳本更新監控指標
func (l *Logger) Metrics() PipelineMetrics {
	l.metrics.mu.Lock()
	defer l.metrics.mu.Unlock()
	return l.metrics.PipelineMetrics
}

func (l *Logger) resetMetrics() {
	l.metrics.mu.Lock()
	l.metrics.PipelineMetrics = PipelineMetrics{}
	l.metrics.mu.Unlock()
}
