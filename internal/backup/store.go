// Package backup 將腳本快照與送出失敗的內容寫入本機目錄
package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Namespace 存放區域
type Namespace int

const (
	// Snapshots 修改前的原始腳本
	Snapshots Namespace = iota
	// Failures 送出失敗的序列化腳本
	Failures
)

// String 返回區域名稱
func (n Namespace) String() string {
	switch n {
	case Snapshots:
		return "backup"
	case Failures:
		return "dump"
	default:
		return "unknown"
	}
}

// Store 每個名稱在每個區域各保留一份，後寫覆蓋先寫
type Store struct {
	dirs map[Namespace]string
}

// NewStore 創建存放區，目錄在第一次寫入時建立
func NewStore(snapshotDir, failureDir string) *Store {
	return &Store{
		dirs: map[Namespace]string{
			Snapshots: snapshotDir,
			Failures:  failureDir,
		},
	}
}

// Path 返回名稱對應的檔案路徑
func (s *Store) Path(ns Namespace, name string) (string, error) {
	dir, ok := s.dirs[ns]
	if !ok || dir == "" {
		return "", fmt.Errorf("unknown namespace %d", ns)
	}
	return filepath.Join(dir, SafeName(name)+".xml"), nil
}

// Write 以暫存檔加改名的方式寫入
func (s *Store) Write(ns Namespace, name, content string) (string, error) {
	path, err := s.Path(ns, name)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return path, fmt.Errorf("failed to create %s directory: %w", ns, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*.xml")
	if err != nil {
		return path, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return path, fmt.Errorf("failed to write %s file: %w", ns, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return path, fmt.Errorf("failed to close %s file: %w", ns, err)
	}

	// Atomic rename
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return path, fmt.Errorf("failed to rename %s file: %w", ns, err)
	}
	return path, nil
}

// Read 讀取已保存的內容
func (s *Store) Read(ns Namespace, name string) (string, error) {
	path, err := s.Path(ns, name)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s for %q: %w", ns, name, err)
	}
	return string(data), nil
}

var unsafeChars = strings.NewReplacer(
	"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
	"\"", "_", "<", "_", ">", "_", "|", "_", "\x00", "_",
)

// SafeName 將腳本名稱轉為可用的檔名
func SafeName(name string) string {
	s := unsafeChars.Replace(name)
	s = strings.Map(func(r rune) rune {
		if r < 0x20 {
			return '_'
		}
		return r
	}, s)
	s = strings.TrimRight(s, ". ")
	if s == "" || strings.Trim(s, ".") == "" {
		return "_"
	}
	return s
}
