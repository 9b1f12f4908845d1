package models

import (
	"time"
)

// ScriptState 腳本更新狀態（流程狀態）
type ScriptState int

const (
	StateFetching ScriptState = iota
	StateParsed
	StateBackedUp
	StateMutated
	StateSubmitting
	StateConfirmed
	StateRejectedWithDump
	StateFetchFailed
	StateParseFailed
	StateMutationFailed
)

// String returns the string representation of ScriptState
func (s ScriptState) String() string {
	switch s {
	case StateFetching:
		return "fetching"
	case StateParsed:
		return "parsed"
	case StateBackedUp:
		return "backed_up"
	case StateMutated:
		return "mutated"
	case StateSubmitting:
		return "submitting"
	case StateConfirmed:
		return "confirmed"
	case StateRejectedWithDump:
		return "rejected"
	case StateFetchFailed:
		return "fetch_failed"
	case StateParseFailed:
		return "parse_failed"
	case StateMutationFailed:
		return "mutation_failed"
	default:
		return "unknown"
	}
}

// IsTerminal 是否為終止狀態
func (s ScriptState) IsTerminal() bool {
	switch s {
	case StateConfirmed, StateRejectedWithDump, StateFetchFailed, StateParseFailed, StateMutationFailed:
		return true
	default:
		return false
	}
}

// ModuleRename 去重複時的一次改名
type ModuleRename struct {
	ModuleType string `json:"module_type"`
	From       string `json:"from"`
	To         string `json:"to"`
}

// ScriptOutcome 單一腳本的處理結果
type ScriptOutcome struct {
	Name string `json:"name"`

	// 處理狀態
	State ScriptState `json:"state"`

	// 套用的修改，例如 "clean" 或 "add_variable"
	Mutation string `json:"mutation"`

	Renamed []ModuleRename `json:"renamed,omitempty"`

	BackupWritten bool `json:"backup_written"`
	DumpWritten   bool `json:"dump_written"`

	// 處理時間記錄
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Err error `json:"-"`
}

// NewScriptOutcome 創建處於 Fetching 狀態的結果
func NewScriptOutcome(name, mutation string) *ScriptOutcome {
	now := time.Now()
	return &ScriptOutcome{
		Name:      name,
		State:     StateFetching,
		Mutation:  mutation,
		StartedAt: &now,
	}
}

// Succeeded 檢查是否已成功送出
func (o *ScriptOutcome) Succeeded() bool {
	return o.State == StateConfirmed
}

// Duration 處理耗時
func (o *ScriptOutcome) Duration() time.Duration {
	if o.StartedAt == nil || o.CompletedAt == nil {
		return 0
	}
	return o.CompletedAt.Sub(*o.StartedAt)
}

// Advance 推進到非終止狀態
func (o *ScriptOutcome) Advance(state ScriptState) {
	o.State = state
}

// MarkAsConfirmed 標記為更新成功
func (o *ScriptOutcome) MarkAsConfirmed() {
	o.complete(StateConfirmed, nil)
}

// MarkAsFailed 標記為失敗並記錄錯誤
func (o *ScriptOutcome) MarkAsFailed(state ScriptState, err error) {
	o.complete(state, err)
}

func (o *ScriptOutcome) complete(state ScriptState, err error) {
	o.State = state
	o.Err = err
	now := time.Now()
	o.CompletedAt = &now
}

// ErrorMessage 錯誤訊息（如果處理失敗）
func (o *ScriptOutcome) ErrorMessage() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// BatchSummary 批次處理統計
type BatchSummary struct {
	Total     int `json:"total"`
	Confirmed int `json:"confirmed"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Summarize 統計批次結果
func Summarize(outcomes []*ScriptOutcome, skipped int) BatchSummary {
	s := BatchSummary{Total: len(outcomes), Skipped: skipped}
	for _, o := range outcomes {
		if o.Succeeded() {
			s.Confirmed++
		} else {
			s.Failed++
		}
	}
	return s
}
