// Package fakevcc 提供模擬平台 REST 與 SOAP 介面的 HTTP 伺服器，供測試使用
package fakevcc

import (
	"net/http"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"vccadmin/internal/logger"
)

const (
	DefaultUsername   = "admin@acme"
	DefaultPassword   = "secret"
	DefaultDomainID   = "131000"
	DefaultDomainName = "Acme Support"
)

type ivrScript struct {
	name       string
	definition string
	owned      bool
	modified   int
}

type entity struct {
	id   string
	name string
	raw  string // 完整 JSON
}

// Server 模擬平台，所有狀態存在記憶體中
type Server struct {
	router chi.Router
	logger *logger.Logger

	mu         sync.Mutex
	username   string
	password   string
	domainID   string
	domainName string

	scripts      map[string]*ivrScript
	scriptOrder  []string
	collections  map[string][]*entity // campaigns, skills, prompts, call-variables
	details      map[string]string    // 路徑 -> JSON，如 campaigns/inbound_campaigns/{id}
	created      map[string][]string  // POST 建立的內容
	requests     map[string]int
	configFails  int
	rejectModify map[string]int // 名稱 -> 回應狀態碼
}

// Option 伺服器選項
type Option func(*Server)

// WithCredentials 設定接受的帳密
func WithCredentials(username, password string) Option {
	return func(s *Server) {
		s.username = username
		s.password = password
	}
}

// WithDomain 設定網域資訊
func WithDomain(id, name string) Option {
	return func(s *Server) {
		s.domainID = id
		s.domainName = name
	}
}

// WithLogger 設定請求日誌
func WithLogger(l *logger.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// New 創建模擬平台
func New(opts ...Option) *Server {
	s := &Server{
		logger:       logger.Discard(),
		username:     DefaultUsername,
		password:     DefaultPassword,
		domainID:     DefaultDomainID,
		domainName:   DefaultDomainName,
		scripts:      make(map[string]*ivrScript),
		collections:  make(map[string][]*entity),
		details:      make(map[string]string),
		created:      make(map[string][]string),
		requests:     make(map[string]int),
		rejectModify: make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()

	// 添加基本中間件
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLog)
	r.Use(s.basicAuth)

	r.Post("/soap", s.handleSOAP)
	r.Route("/rest/{domainID}", func(r chi.Router) {
		r.Use(s.domainCheck)
		r.Get("/campaigns/inbound_campaigns/{id}", s.getDetail)
		r.Put("/campaigns/inbound_campaigns/{id}", s.putDetail)
		r.Put("/skills/{id}", s.putSkill)
		r.Get("/{resource}", s.listCollection)
		r.Post("/{resource}", s.createEntity)
	})

	s.router = r
	return s
}

// ServeHTTP 實現 http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// requestLog 記錄請求並累計次數
func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.LogRequest(r.Method, r.URL.Path, ww.Status(), time.Since(start))
	})
}

// basicAuth 檢查 Basic 認證
func (s *Server) basicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		s.mu.Lock()
		valid := ok && username == s.username && password == s.password
		s.mu.Unlock()
		if !valid {
			w.Header().Set("WWW-Authenticate", `Basic realm="VCC"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) domainCheck(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		id := s.domainID
		s.mu.Unlock()
		if chi.URLParam(r, "domainID") != id {
			http.Error(w, "unknown domain", http.StatusNotFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) count(key string) {
	s.mu.Lock()
	s.requests[key]++
	s.mu.Unlock()
}

// Requests 返回某操作的請求次數，例如 "getIVRScripts" 或 "GET scripts"
func (s *Server) Requests(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[key]
}

// AddScript 加入一個 IVR 腳本，owned 表示平台擁有
func (s *Server) AddScript(name, definition string, owned bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.scripts[name]; !exists {
		s.scriptOrder = append(s.scriptOrder, name)
	}
	s.scripts[name] = &ivrScript{name: name, definition: definition, owned: owned}
}

// Script 返回腳本目前的定義
func (s *Server) Script(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.scripts[name]
	if !ok {
		return "", false
	}
	return sc.definition, true
}

// ModifyCount 返回腳本被成功更新的次數
func (s *Server) ModifyCount(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sc, ok := s.scripts[name]; ok {
		return sc.modified
	}
	return 0
}

// RejectModify 讓指定腳本的更新以 status 失敗
func (s *Server) RejectModify(name string, status int) {
	s.mu.Lock()
	s.rejectModify[name] = status
	s.mu.Unlock()
}

// FailConfiguration 讓接下來 n 次 getVCCConfiguration 回應 500
func (s *Server) FailConfiguration(n int) {
	s.mu.Lock()
	s.configFails = n
	s.mu.Unlock()
}

// AddEntity 在集合中加入一筆資料，raw 為完整 JSON
func (s *Server) AddEntity(resource, id, name, raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[resource] = append(s.collections[resource], &entity{id: id, name: name, raw: raw})
}

// SetDetail 設定單一資源的 JSON 內容
func (s *Server) SetDetail(path, raw string) {
	s.mu.Lock()
	s.details[strings.Trim(path, "/")] = raw
	s.mu.Unlock()
}

// Detail 返回單一資源的 JSON 內容
func (s *Server) Detail(path string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.details[strings.Trim(path, "/")]
}

// Created 返回以 POST 建立的內容
func (s *Server) Created(resource string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.created[resource]))
	copy(out, s.created[resource])
	return out
}

// Resources 返回有建立紀錄的資源名稱
func (s *Server) Resources() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.created))
	for k := range s.created {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

var filterPattern = regexp.MustCompile(`^(\w+)==['"](.*)['"]$`)

// parseFilter 支援 field=='value' 與 field=="value"
func parseFilter(filter string) (field, value string, ok bool) {
	m := filterPattern.FindStringSubmatch(filter)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}
