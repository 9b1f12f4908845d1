package vcc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"vccadmin/internal/config"
	"vccadmin/internal/logger"
)

// Credentials Basic 認證帳密
type Credentials struct {
	Username string
	Password string
}

// Domain 平台網域資訊，由 Bootstrap 取得
type Domain struct {
	ID   string
	Name string
}

// Response 平台回應
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Text 返回回應內容字串
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	return string(r.Body)
}

// Client 平台 REST 與 SOAP 請求的傳輸層
type Client struct {
	config     config.APIConfig
	creds      Credentials
	httpClient *http.Client
	logger     *logger.Logger

	mu     sync.RWMutex
	domain *Domain
}

// Option 客戶端選項
type Option func(*Client)

// WithHTTPClient 替換底層 HTTP 客戶端
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger 設定日誌記錄器
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithDomain 預先設定網域，跳過 Bootstrap
func WithDomain(d Domain) Option {
	return func(c *Client) {
		c.domain = &d
	}
}

// NewClient 創建平台客戶端
func NewClient(cfg config.APIConfig, creds Credentials, opts ...Option) *Client {
	defaults := config.Default().API
	if cfg.RESTURL == "" {
		cfg.RESTURL = defaults.RESTURL
	}
	if cfg.SOAPURL == "" {
		cfg.SOAPURL = defaults.SOAPURL
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaults.RequestTimeout
	}
	if cfg.PageSize <= 0 || cfg.PageSize > config.MaxPageSize {
		cfg.PageSize = config.MaxPageSize
	}
	if cfg.BootstrapMaxAttempts <= 0 {
		cfg.BootstrapMaxAttempts = defaults.BootstrapMaxAttempts
	}
	if cfg.BootstrapInterval <= 0 {
		cfg.BootstrapInterval = defaults.BootstrapInterval
	}

	c := &Client{
		config:     cfg,
		creds:      creds,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		logger:     logger.GetDefaultLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Logger 返回客戶端使用的日誌記錄器
func (c *Client) Logger() *logger.Logger {
	return c.logger
}

// Domain 返回已啟動的網域
func (c *Client) Domain() (Domain, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.domain == nil {
		return Domain{}, ErrNoDomain
	}
	return *c.domain, nil
}

func (c *Client) setDomain(d Domain) {
	c.mu.Lock()
	c.domain = &d
	c.mu.Unlock()
}

// SendSOAP 送出 SOAP 請求，僅 200 視為成功
//
// 非 200 時同時返回回應與錯誤，呼叫方可從回應中讀取 SOAP Fault。
func (c *Client) SendSOAP(ctx context.Context, body string) (*Response, error) {
	return c.do(ctx, "soap", http.MethodPost, c.config.SOAPURL, strings.NewReader(body), "text/xml; charset=utf-8")
}

// SendREST 送出 REST 請求到 {rest_url}/{domainId}/{path}
//
// jsonBody 可以是 string、[]byte（原樣送出）或任意可序列化為 JSON 的值。
func (c *Client) SendREST(ctx context.Context, method, path string, query url.Values, jsonBody any) (*Response, error) {
	op := strings.ToLower(method) + " " + path

	domain, err := c.Domain()
	if err != nil {
		return nil, NewError(KindTransport, op, 0, err)
	}

	target := strings.TrimRight(c.config.RESTURL, "/") + "/" + url.PathEscape(domain.ID) + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	contentType := ""
	if jsonBody != nil {
		payload, err := encodeJSON(jsonBody)
		if err != nil {
			return nil, NewError(KindParse, op, 0, fmt.Errorf("failed to encode request body: %w", err))
		}
		reader = bytes.NewReader(payload)
		contentType = "application/json"
	}

	return c.do(ctx, op, method, target, reader, contentType)
}

func encodeJSON(v any) ([]byte, error) {
	switch b := v.(type) {
	case string:
		return []byte(b), nil
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	default:
		return json.Marshal(v)
	}
}

func (c *Client) do(ctx context.Context, op, method, target string, body io.Reader, contentType string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, NewError(KindTransport, op, 0, fmt.Errorf("failed to build request: %w", err))
	}
	req.SetBasicAuth(c.creds.Username, c.creds.Password)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "*/*")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = errors.Join(ctxErr, err)
		}
		c.logger.LogRequest(method, redact(target), 0, time.Since(start))
		return nil, NewError(KindTransport, op, 0, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewError(KindTransport, op, resp.StatusCode, fmt.Errorf("failed to read response: %w", err))
	}
	c.logger.LogRequest(method, redact(target), resp.StatusCode, time.Since(start))

	out := &Response{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   data,
	}

	if kind := StatusKind(resp.StatusCode); kind != KindUnknown {
		return out, NewError(kind, op, resp.StatusCode, fmt.Errorf("%w: %s", kind.sentinel(), http.StatusText(resp.StatusCode)))
	}
	return out, nil
}

// redact 移除 URL 中的查詢參數，避免篩選值寫入日誌
func redact(target string) string {
	if i := strings.IndexByte(target, '?'); i >= 0 {
		return target[:i]
	}
	return target
}
