package backup

import (
	"vccadmin/internal/logger"
)

// Sidecar 盡力寫入備份與失敗轉儲，失敗只記錄日誌
type Sidecar struct {
	store        *Store
	logger       *logger.Logger
	dumpFailures bool
}

// NewSidecar 創建備份輔助器，dumpFailures 為 false 時不寫失敗轉儲
func NewSidecar(store *Store, log *logger.Logger, dumpFailures bool) *Sidecar {
	if log == nil {
		log = logger.GetDefaultLogger()
	}
	return &Sidecar{
		store:        store,
		logger:       log,
		dumpFailures: dumpFailures,
	}
}

// Store 返回底層存放區
func (s *Sidecar) Store() *Store {
	return s.store
}

// Backup 保存取得時的原始腳本
func (s *Sidecar) Backup(name, raw string) bool {
	return s.write(Snapshots, name, raw)
}

// DumpFailure 保存送出失敗的腳本
func (s *Sidecar) DumpFailure(name, xml string) bool {
	if !s.dumpFailures {
		return false
	}
	return s.write(Failures, name, xml)
}

func (s *Sidecar) write(ns Namespace, name, content string) bool {
	path, err := s.store.Write(ns, name, content)
	s.logger.LogSidecarWrite(ns.String(), name, path, err)
	return err == nil
}
