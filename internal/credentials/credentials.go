// Package credentials 解析平台 Basic 認證所需的帳號密碼
package credentials

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/zalando/go-keyring"
	"golang.org/x/term"

	"vccadmin/internal/logger"
	"vccadmin/internal/vcc"
)

const (
	// EnvUsername dotenv 檔與環境變數中的帳號鍵
	EnvUsername = "VCC_USERNAME"
	// EnvPassword dotenv 檔與環境變數中的密碼鍵
	EnvPassword = "VCC_PASSWORD"

	DefaultKeyringService = "vccadmin"
)

// Source 憑證來源
type Source string

const (
	SourceFlags   Source = "flags"
	SourceEnvFile Source = "env_file"
	SourceEnv     Source = "environment"
	SourceKeyring Source = "keyring"
	SourcePrompt  Source = "prompt"
)

var ErrMissing = errors.New("credentials not provided")

// Prompter 向操作人員詢問輸入
type Prompter interface {
	Prompt(label string, secret bool) (string, error)
}

// TerminalPrompter 從終端讀取輸入，密碼不回顯
type TerminalPrompter struct {
	In  *os.File
	Out io.Writer
}

// NewTerminalPrompter 使用 stdin/stderr
func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{In: os.Stdin, Out: os.Stderr}
}

// Prompt 實現 Prompter
func (p *TerminalPrompter) Prompt(label string, secret bool) (string, error) {
	fd := int(p.In.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("%w: %s required but stdin is not a terminal", ErrMissing, strings.ToLower(label))
	}
	fmt.Fprintf(p.Out, "%s: ", label)

	if secret {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(p.Out)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(p.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(line), nil
}

// Resolver 依序嘗試旗標、dotenv 檔、環境變數、系統金鑰圈與互動輸入
type Resolver struct {
	// Username/Password 來自命令列旗標
	Username string
	Password string

	// DefaultUsername 設定檔中的帳號，用於金鑰圈查詢
	DefaultUsername string
	EnvFile         string
	KeyringService  string

	Prompter Prompter
	Logger   *logger.Logger

	// Getenv 預設為 os.Getenv
	Getenv func(string) string
}

// Resolve 返回第一個能提供完整帳密的來源
func (r *Resolver) Resolve() (vcc.Credentials, Source, error) {
	log := r.Logger
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	if r.Username != "" && r.Password != "" {
		return vcc.Credentials{Username: r.Username, Password: r.Password}, SourceFlags, nil
	}

	if r.EnvFile != "" {
		if creds, ok, err := r.fromEnvFile(); err != nil {
			log.Warn("Failed to read credentials file", slog.String("path", r.EnvFile), slog.String("error", err.Error()))
		} else if ok {
			return creds, SourceEnvFile, nil
		}
	}

	getenv := r.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	if u, p := getenv(EnvUsername), getenv(EnvPassword); u != "" && p != "" {
		return vcc.Credentials{Username: u, Password: p}, SourceEnv, nil
	}

	username := r.Username
	if username == "" {
		username = r.DefaultUsername
	}

	if username != "" {
		password, err := NewKeyringStore(r.KeyringService).Get(username)
		switch {
		case err == nil:
			return vcc.Credentials{Username: username, Password: password}, SourceKeyring, nil
		case !errors.Is(err, keyring.ErrNotFound):
			log.Debug("Keyring lookup failed", slog.String("username", username), slog.String("error", err.Error()))
		}
	}

	if r.Prompter == nil {
		return vcc.Credentials{}, "", ErrMissing
	}
	if username == "" {
		u, err := r.Prompter.Prompt("Username", false)
		if err != nil {
			return vcc.Credentials{}, "", err
		}
		username = u
	}
	password := r.Password
	if password == "" {
		p, err := r.Prompter.Prompt("Password", true)
		if err != nil {
			return vcc.Credentials{}, "", err
		}
		password = p
	}
	if username == "" || password == "" {
		return vcc.Credentials{}, "", ErrMissing
	}
	return vcc.Credentials{Username: username, Password: password}, SourcePrompt, nil
}

// fromEnvFile 讀取 dotenv 檔，不修改行程環境
func (r *Resolver) fromEnvFile() (vcc.Credentials, bool, error) {
	if _, err := os.Stat(r.EnvFile); errors.Is(err, os.ErrNotExist) {
		return vcc.Credentials{}, false, nil
	}
	values, err := godotenv.Read(r.EnvFile)
	if err != nil {
		return vcc.Credentials{}, false, err
	}
	u, p := values[EnvUsername], values[EnvPassword]
	if u == "" || p == "" {
		return vcc.Credentials{}, false, nil
	}
	return vcc.Credentials{Username: u, Password: p}, true, nil
}
