package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tidwall/sjson"

	"vccadmin/internal/logger"
	"vccadmin/internal/vcc"
)

const CampaignTypeInbound = "INBOUND"

// Campaign 活動摘要
type Campaign struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// ScriptParameter 活動腳本參數
type ScriptParameter struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ParseScriptParameter 解析 "name:value" 格式
func ParseScriptParameter(arg string) (ScriptParameter, error) {
	name, value, ok := strings.Cut(arg, ":")
	if !ok || strings.TrimSpace(name) == "" {
		return ScriptParameter{}, fmt.Errorf("%w: parameter must be in the form name:value, got %q", vcc.ErrInvalidInput, arg)
	}
	return ScriptParameter{Name: strings.TrimSpace(name), Value: value}, nil
}

// CampaignService 活動設定操作
type CampaignService struct {
	client RESTClient
	logger *logger.Logger
}

// NewCampaignService 創建活動服務
func NewCampaignService(client RESTClient, log *logger.Logger) *CampaignService {
	if log == nil {
		log = logger.GetDefaultLogger()
	}
	return &CampaignService{client: client, logger: log}
}

// List 列出活動，name 非空時只返回同名活動
func (s *CampaignService) List(ctx context.Context, name string) ([]Campaign, error) {
	opts := vcc.ListOptions{}
	if name != "" {
		opts.Filter = quoteFilter("name", name)
	}
	items, err := s.client.ListAll(ctx, "campaigns", opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}

	campaigns := make([]Campaign, 0, len(items))
	for _, item := range items {
		campaigns = append(campaigns, Campaign{
			ID:   item.Get("id").String(),
			Name: item.Get("name").String(),
			Type: item.Get("type").String(),
		})
	}
	return campaigns, nil
}

func inboundCampaignPath(id string) string {
	return "campaigns/inbound_campaigns/" + id
}

// AddParameter 在預設與所有自訂排程加入腳本參數
//
// 只支援 inbound 活動；預設排程已有同名參數時返回 Conflict。
func (s *CampaignService) AddParameter(ctx context.Context, c Campaign, param ScriptParameter) error {
	op := "add parameter"
	if c.Type != CampaignTypeInbound {
		return fmt.Errorf("%w: campaign %q is %s, only inbound campaigns take script parameters", vcc.ErrInvalidInput, c.Name, c.Type)
	}

	def, err := s.client.GetJSON(ctx, inboundCampaignPath(c.ID), nil)
	if err != nil {
		return fmt.Errorf("failed to retrieve campaign %q: %w", c.Name, err)
	}

	schedule := def.Get("ivrSchedule")
	if !schedule.IsObject() {
		return vcc.Errorf(vcc.KindParse, op, "%v: campaign %q has no ivrSchedule", vcc.ErrParse, c.Name)
	}

	const defaultParams = "defaultScheduleEntry.generalData.scriptParameters"
	for _, p := range schedule.Get(defaultParams).Array() {
		if p.Get("name").String() == param.Name {
			return vcc.Errorf(vcc.KindConflict, op, "parameter %q already exists on %q", param.Name, c.Name)
		}
	}

	entry, err := parameterJSON(param)
	if err != nil {
		return err
	}

	raw, err := sjson.SetRaw(schedule.Raw, defaultParams+".-1", entry)
	if err != nil {
		return fmt.Errorf("failed to patch default schedule: %w", err)
	}

	custom := schedule.Get("customScheduleEntries").Array()
	for i := range custom {
		path := fmt.Sprintf("customScheduleEntries.%d.generalData.scriptParameters.-1", i)
		if raw, err = sjson.SetRaw(raw, path, entry); err != nil {
			return fmt.Errorf("failed to patch custom schedule %d: %w", i, err)
		}
	}

	payload, err := sjson.SetRaw(`{}`, "ivrSchedule", raw)
	if err != nil {
		return fmt.Errorf("failed to build payload: %w", err)
	}

	if _, err := s.client.PutJSON(ctx, inboundCampaignPath(c.ID), payload); err != nil {
		return fmt.Errorf("failed to update campaign %q: %w", c.Name, err)
	}

	s.logger.Info("Added script parameter",
		slog.String("campaign", c.Name),
		slog.String("parameter", param.Name),
		slog.Int("custom_schedules", len(custom)),
	)
	return nil
}

func parameterJSON(p ScriptParameter) (string, error) {
	entry, err := sjson.Set(`{}`, "name", p.Name)
	if err != nil {
		return "", err
	}
	entry, err = sjson.SetRaw(entry, "value", `{"type":"STRING","secure":false}`)
	if err != nil {
		return "", err
	}
	return sjson.Set(entry, "value.value", p.Value)
}
