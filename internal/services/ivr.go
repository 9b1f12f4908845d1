package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"vccadmin/internal/backup"
	"vccadmin/internal/logger"
	"vccadmin/internal/models"
	"vccadmin/internal/script"
	"vccadmin/internal/soap"
	"vccadmin/internal/vcc"
)

const (
	MutationClean       = "clean"
	MutationAddVariable = "add_variable"
	MutationRestore     = "restore"
)

// Mutation 對腳本樹做一次就地修改
type Mutation interface {
	Name() string
	Apply(doc *script.Document, out *models.ScriptOutcome, log *logger.Logger) error
}

// DedupMutation 移除 "Copy of " 並為重複模組名稱編號
type DedupMutation struct{}

// Name 實現 Mutation
func (DedupMutation) Name() string { return MutationClean }

// Apply 實現 Mutation
func (DedupMutation) Apply(doc *script.Document, out *models.ScriptOutcome, log *logger.Logger) error {
	for _, r := range script.DedupModuleNames(doc) {
		out.Renamed = append(out.Renamed, models.ModuleRename{ModuleType: r.ModuleType, From: r.From, To: r.To})
		log.LogModuleRenamed(out.Name, r.ModuleType, r.From, r.To)
	}
	return nil
}

// AddVariableMutation 新增使用者變數
type AddVariableMutation struct {
	Spec    script.VariableSpec
	Options script.AddOptions
}

// Name 實現 Mutation
func (AddVariableMutation) Name() string { return MutationAddVariable }

// Apply 實現 Mutation
func (m AddVariableMutation) Apply(doc *script.Document, out *models.ScriptOutcome, log *logger.Logger) error {
	if err := script.AddVariable(doc, m.Spec, m.Options); err != nil {
		return err
	}
	log.LogScriptEvent(logger.ScriptEventVariableAdded, "Variable added",
		slog.String("script", out.Name),
		slog.String("variable", m.Spec.Name),
		slog.String("type", m.Spec.Type.String()),
		slog.Int("attributes", script.AttributesFlag(m.Spec.Input, m.Spec.Output)),
	)
	return nil
}

// UpdateOptions 單一腳本更新選項
type UpdateOptions struct {
	// Backup 修改前保存原始腳本
	Backup bool
}

// IVRService 腳本更新流程
type IVRService struct {
	soap    SOAPClient
	rest    RESTClient
	sidecar *backup.Sidecar
	logger  *logger.Logger
}

// NewIVRService 創建腳本服務，rest 僅在批次模式使用
func NewIVRService(soapClient SOAPClient, rest RESTClient, sidecar *backup.Sidecar, log *logger.Logger) *IVRService {
	if log == nil {
		log = logger.GetDefaultLogger()
	}
	return &IVRService{
		soap:    soapClient,
		rest:    rest,
		sidecar: sidecar,
		logger:  log,
	}
}

// Fetch 取得並解析腳本
func (s *IVRService) Fetch(ctx context.Context, name string) (*script.Document, error) {
	resp, err := s.soap.SendSOAP(ctx, soap.GetIVRScriptsRequest(name))
	if err != nil {
		return nil, &fetchError{withFault(err, resp)}
	}
	def, err := soap.ExtractDefinition(resp.Body, name)
	if err != nil {
		if vcc.KindOf(err) != vcc.KindParse {
			return nil, &fetchError{err}
		}
		return nil, err
	}
	return script.Parse(def)
}

// fetchError 標記取得階段的失敗，其餘錯誤屬於解析階段
type fetchError struct{ err error }

func (e *fetchError) Error() string { return e.err.Error() }
func (e *fetchError) Unwrap() error { return e.err }

// Update 將單一腳本推進到終止狀態
//
// 錯誤記錄在返回的結果中，不會中斷呼叫方。
func (s *IVRService) Update(ctx context.Context, name string, m Mutation, opts UpdateOptions) *models.ScriptOutcome {
	out := models.NewScriptOutcome(name, m.Name())
	s.logger.LogFetchStart(name)

	doc, err := s.Fetch(ctx, name)
	if err != nil {
		var fe *fetchError
		if errors.As(err, &fe) {
			s.logger.LogFetchFailed(name, fe.err)
			out.MarkAsFailed(models.StateFetchFailed, fe.err)
		} else {
			s.logger.LogParseFailed(name, err)
			out.MarkAsFailed(models.StateParseFailed, err)
		}
		return out
	}
	out.Advance(models.StateParsed)
	s.logger.LogScriptEvent(logger.ScriptEventParsed, "Script parsed",
		slog.String("script", name),
		slog.Int("modules", len(doc.ModuleNodes())),
		slog.Int("variables", len(doc.Variables())),
	)

	if opts.Backup && s.sidecar != nil {
		out.BackupWritten = s.sidecar.Backup(name, doc.RawSource)
		if out.BackupWritten {
			out.Advance(models.StateBackedUp)
		}
	}

	if err := m.Apply(doc, out, s.logger); err != nil {
		s.logger.LogScriptEvent(logger.ScriptEventMutationFailed, "Problem applying change",
			slog.String("script", name),
			slog.String("mutation", m.Name()),
			slog.String("error", err.Error()),
		)
		out.MarkAsFailed(models.StateMutationFailed, err)
		return out
	}

	xml, err := doc.Serialize()
	if err != nil {
		out.MarkAsFailed(models.StateMutationFailed, err)
		return out
	}
	out.Advance(models.StateMutated)

	s.submit(ctx, out, xml)
	return out
}

// submit 送出腳本並記錄結果，失敗時寫入轉儲
func (s *IVRService) submit(ctx context.Context, out *models.ScriptOutcome, xml string) {
	out.Advance(models.StateSubmitting)
	s.logger.LogScriptEvent(logger.ScriptEventSubmitStart, "Submitting script",
		slog.String("script", out.Name),
		slog.Int("bytes", len(xml)),
	)

	resp, err := s.soap.SendSOAP(ctx, soap.ModifyIVRScriptRequest(out.Name, xml))
	if err != nil {
		err = withFault(err, resp)
		s.logger.LogRejected(out.Name, err)
		if s.sidecar != nil {
			out.DumpWritten = s.sidecar.DumpFailure(out.Name, xml)
		}
		out.MarkAsFailed(models.StateRejectedWithDump, err)
		return
	}

	out.MarkAsConfirmed()
	s.logger.LogConfirmed(out.Name, out.Duration())
}

// UpdateAll 對所有非平台擁有的腳本依序執行修改
//
// 單一腳本失敗不會中斷批次；只有列表失敗或 context 取消會返回錯誤。
func (s *IVRService) UpdateAll(ctx context.Context, m Mutation, opts UpdateOptions) ([]*models.ScriptOutcome, models.BatchSummary, error) {
	if s.rest == nil {
		return nil, models.BatchSummary{}, fmt.Errorf("%w: batch mode requires a REST client", vcc.ErrInvalidInput)
	}

	start := time.Now()
	items, err := s.rest.ListAll(ctx, "scripts", vcc.ListOptions{})
	if err != nil {
		return nil, models.BatchSummary{}, fmt.Errorf("failed to list scripts: %w", err)
	}

	var outcomes []*models.ScriptOutcome
	skipped := 0
	for _, item := range items {
		name := item.Get("name").String()
		if item.Get("owner").Exists() {
			skipped++
			s.logger.LogScriptEvent(logger.ScriptEventBatchSkipped, "Skipping platform-owned script",
				slog.String("script", name),
			)
			continue
		}
		if err := ctx.Err(); err != nil {
			return outcomes, models.Summarize(outcomes, skipped), err
		}
		outcomes = append(outcomes, s.Update(ctx, name, m, opts))
	}

	summary := models.Summarize(outcomes, skipped)
	s.logger.LogScriptEvent(logger.ScriptEventBatchSummary, "Batch finished",
		slog.String("mutation", m.Name()),
		slog.Int("total", summary.Total),
		slog.Int("confirmed", summary.Confirmed),
		slog.Int("failed", summary.Failed),
		slog.Int("skipped", summary.Skipped),
		slog.Duration("duration", time.Since(start)),
	)
	return outcomes, summary, nil
}

// Restore 將保存的快照原樣送回平台
func (s *IVRService) Restore(ctx context.Context, name string) *models.ScriptOutcome {
	out := models.NewScriptOutcome(name, MutationRestore)
	if s.sidecar == nil {
		out.MarkAsFailed(models.StateFetchFailed, fmt.Errorf("%w: no backup store configured", vcc.ErrInvalidInput))
		return out
	}

	raw, err := s.sidecar.Store().Read(backup.Snapshots, name)
	if err != nil {
		s.logger.LogFetchFailed(name, err)
		out.MarkAsFailed(models.StateFetchFailed, err)
		return out
	}

	if _, err := script.Parse(raw); err != nil {
		s.logger.LogParseFailed(name, err)
		out.MarkAsFailed(models.StateParseFailed, err)
		return out
	}
	out.Advance(models.StateParsed)

	s.submit(ctx, out, raw)
	return out
}

// withFault 將 SOAP Fault 訊息附加到錯誤
func withFault(err error, resp *vcc.Response) error {
	if resp == nil {
		return err
	}
	if fault := soap.FaultString(resp.Body); fault != "" {
		return fmt.Errorf("%w: %s", err, fault)
	}
	return err
}
