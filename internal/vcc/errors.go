package vcc

import (
	"errors"
	"fmt"
)

// 錯誤類型定義
var (
	ErrTransport    = errors.New("transport failure")
	ErrAuth         = errors.New("authentication rejected")
	ErrServer       = errors.New("platform internal error")
	ErrStatus       = errors.New("unexpected status")
	ErrNotFound     = errors.New("object not found")
	ErrParse        = errors.New("malformed payload")
	ErrConflict     = errors.New("object already exists")
	ErrNoDomain     = errors.New("domain not bootstrapped")
	ErrInvalidInput = errors.New("invalid input")
)

// Kind 錯誤分類
type Kind int

const (
	KindUnknown Kind = iota
	KindTransport
	KindAuth
	KindServer
	KindStatus
	KindNotFound
	KindParse
	KindConflict
)

// String 返回分類名稱
func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindAuth:
		return "auth"
	case KindServer:
		return "server"
	case KindStatus:
		return "status"
	case KindNotFound:
		return "not_found"
	case KindParse:
		return "parse"
	case KindConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindTransport:
		return ErrTransport
	case KindAuth:
		return ErrAuth
	case KindServer:
		return ErrServer
	case KindStatus:
		return ErrStatus
	case KindNotFound:
		return ErrNotFound
	case KindParse:
		return ErrParse
	case KindConflict:
		return ErrConflict
	default:
		return nil
	}
}

// Error 包裝平台相關錯誤，提供操作與狀態碼上下文
type Error struct {
	Kind   Kind   // 錯誤分類
	Op     string // 操作名稱
	Status int    // HTTP 狀態碼，非 HTTP 錯誤為 0
	Err    error  // 原始錯誤
}

// Error 實現error接口
func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s failed (%s, status %d): %v", e.Op, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s failed (%s): %v", e.Op, e.Kind, e.Err)
}

// Unwrap 支持errors.Unwrap
func (e *Error) Unwrap() error {
	return e.Err
}

// Is 讓 errors.Is 可以用哨兵錯誤比對分類
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && s == target
}

// NewError 創建新的平台錯誤
func NewError(kind Kind, op string, status int, err error) *Error {
	if err == nil {
		err = kind.sentinel()
	}
	return &Error{
		Kind:   kind,
		Op:     op,
		Status: status,
		Err:    err,
	}
}

// Errorf 以格式化訊息創建平台錯誤
func Errorf(kind Kind, op, format string, args ...any) *Error {
	return NewError(kind, op, 0, fmt.Errorf(format, args...))
}

// KindOf 返回錯誤鏈中第一個平台錯誤的分類
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// StatusKind 將 HTTP 狀態碼對應到錯誤分類，200 返回 KindUnknown
func StatusKind(status int) Kind {
	switch status {
	case 200:
		return KindUnknown
	case 401:
		return KindAuth
	case 500:
		return KindServer
	default:
		return KindStatus
	}
}
