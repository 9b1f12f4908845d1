package services

import (
	"context"
	"fmt"
	"log/slog"

	"vccadmin/internal/logger"
)

const (
	QualityIssuesList  = "Quality Issues"
	AddToListURL       = "https://api.five9.com/web2campaign/AddToList"
	ConnectorDeadAir   = "Dead Air"
	ConnectorOneWay    = "One Way Audio"
	ConnectorDropped   = "Dropped Call"
	triggerDisposition = "ON_CALL_DISPOSITIONED"
	valueTypeConstant  = "CONSTANT"
	valueTypeVariable  = "CALL_VARIABLE"
	contactFieldCustom = "CUSTOM"
)

// ContactField 聯絡人欄位定義
type ContactField struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	DisplayMode string `json:"displayMode"`
	DataType    string `json:"dataType"`
	Kind        string `json:"kind"`
}

func hiddenField(name, dataType string) ContactField {
	return ContactField{Name: name, Type: contactFieldCustom, DisplayMode: "HIDDEN", DataType: dataType, Kind: "CONTACT_FIELD"}
}

// AudioContactFields 音訊問題追蹤需要的欄位
var AudioContactFields = []ContactField{
	hiddenField("Agent Name", "STRING"),
	hiddenField("ANI", "STRING"),
	hiddenField("DNIS", "STRING"),
	hiddenField("Call_ID", "STRING"),
	hiddenField("Session_ID", "STRING"),
	hiddenField("Campaign", "STRING"),
	hiddenField("Quality Issue", "STRING"),
	hiddenField("Create_Date", "DATE_TIME"),
}

// AudioCallVariables 連接器引用的通話變數
var AudioCallVariables = []string{
	"Customer.Agent Name",
	"Call.ANI",
	"Call.DNIS",
	"Call.call_id",
	"Call.session_id",
	"Call.campaign_name",
	"Customer.number1",
}

// AudioConnectors 建立的連接器名稱
var AudioConnectors = []string{ConnectorDeadAir, ConnectorOneWay, ConnectorDropped}

// CallVariableRef 通話變數引用
type CallVariableRef struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// ConnectorValue 參數值，常數或通話變數
type ConnectorValue struct {
	Type            string           `json:"type"`
	Value           string           `json:"value,omitempty"`
	CallVariableRef *CallVariableRef `json:"callVariableRef,omitempty"`
}

// ConnectorParam 具名參數
type ConnectorParam struct {
	Name   string           `json:"name"`
	Values []ConnectorValue `json:"values"`
}

// ConnectorURL 連接器目標
type ConnectorURL struct {
	PathParams  []ConnectorValue `json:"pathParams"`
	QueryParams []ConnectorParam `json:"queryParams"`
}

// ConnectorBody 表單內容
type ConnectorBody struct {
	Type         string           `json:"type"`
	Parameters   []ConnectorParam `json:"parameters"`
	AddWorksheet bool             `json:"addWorksheet"`
}

// WebConnector web 連接器定義
type WebConnector struct {
	Name                   string        `json:"name"`
	Description            string        `json:"description"`
	URL                    ConnectorURL  `json:"url"`
	TriggerDispositionRefs []string      `json:"triggerDispositionRefs"`
	Type                   string        `json:"type"`
	Method                 string        `json:"method"`
	Body                   ConnectorBody `json:"body"`
	StartPageText          string        `json:"startPageText"`
	TriggerEvent           string        `json:"triggerEvent"`
	ExecutionMode          string        `json:"executionMode"`
	BrowserAppType         string        `json:"browserAppType"`
	BrowserWindowType      string        `json:"browserWindowType"`
	Kind                   string        `json:"kind"`
}

func constant(v string) []ConnectorValue {
	return []ConnectorValue{{Type: valueTypeConstant, Value: v}}
}

func variable(name string, ids map[string]string) []ConnectorValue {
	return []ConnectorValue{{Type: valueTypeVariable, CallVariableRef: &CallVariableRef{Name: name, ID: ids[name]}}}
}

// NewAudioIssueConnector 組裝把通話加入 Quality Issues 名單的連接器
func NewAudioIssueConnector(name, domainName string, ids map[string]string) WebConnector {
	return WebConnector{
		Name: name,
		URL: ConnectorURL{
			PathParams: constant(AddToListURL),
			QueryParams: []ConnectorParam{
				{Name: "Agent Name", Values: variable("Customer.Agent Name", ids)},
				{Name: "Call_ID", Values: variable("Call.call_id", ids)},
				{Name: "Quality Issue", Values: constant(name)},
				{Name: "Campaign", Values: variable("Call.campaign_name", ids)},
				{Name: "F9domain", Values: constant(domainName)},
				{Name: "F9key", Values: constant("Call_ID")},
				{Name: "F9list", Values: constant(QualityIssuesList)},
			},
		},
		TriggerDispositionRefs: []string{},
		Type:                   "CLASSIC",
		Method:                 "POST",
		Body: ConnectorBody{
			Type: "FORM",
			Parameters: []ConnectorParam{
				{Name: "ANI", Values: variable("Call.ANI", ids)},
				{Name: "DNIS", Values: variable("Call.DNIS", ids)},
				{Name: "number1", Values: variable("Customer.number1", ids)},
				{Name: "Session_ID", Values: variable("Call.session_id", ids)},
			},
		},
		StartPageText:     "Please wait while the connector is started",
		TriggerEvent:      triggerDisposition,
		ExecutionMode:     "SILENTLY",
		BrowserAppType:    "EMBEDDED_BROWSER",
		BrowserWindowType: "CURRENT_BROWSER_WINDOW",
		Kind:              "CONNECTOR",
	}
}

// StepResult 設定步驟結果
type StepResult struct {
	Step string
	Err  error
}

// TroubleshootService 網域疑難排解設定
type TroubleshootService struct {
	client RESTClient
	logger *logger.Logger
}

// NewTroubleshootService 創建疑難排解服務
func NewTroubleshootService(client RESTClient, log *logger.Logger) *TroubleshootService {
	if log == nil {
		log = logger.GetDefaultLogger()
	}
	return &TroubleshootService{client: client, logger: log}
}

// SetupAudioTracking 建立音訊問題追蹤需要的名單、欄位與連接器
//
// 每個步驟獨立回報；通話變數解析失敗時不建立連接器。
func (s *TroubleshootService) SetupAudioTracking(ctx context.Context) ([]StepResult, error) {
	domain, err := s.client.Domain()
	if err != nil {
		return nil, err
	}

	var steps []StepResult
	record := func(step string, err error) {
		steps = append(steps, StepResult{Step: step, Err: err})
		if err != nil {
			s.logger.Warn("Troubleshooting step failed", slog.String("step", step), slog.String("error", err.Error()))
		} else {
			s.logger.Info("Troubleshooting step done", slog.String("step", step))
		}
	}

	_, err = s.client.PostJSON(ctx, "call-lists", map[string]string{"name": QualityIssuesList, "kind": "CALL_LIST"})
	record("create list "+QualityIssuesList, err)

	for _, f := range AudioContactFields {
		if ctx.Err() != nil {
			return steps, ctx.Err()
		}
		_, err := s.client.PostJSON(ctx, "contact-fields", f)
		record("create contact field "+f.Name, err)
	}

	ids := make(map[string]string, len(AudioCallVariables))
	resolved := true
	for _, name := range AudioCallVariables {
		ent, err := s.client.FirstEntity(ctx, "call-variables", fmt.Sprintf("fullName==%q", name))
		if err == nil {
			ids[name] = ent.Get("id").String()
		} else {
			resolved = false
		}
		record("resolve call variable "+name, err)
	}
	if !resolved {
		return steps, fmt.Errorf("call variables could not be resolved, connectors not created")
	}

	for _, name := range AudioConnectors {
		if ctx.Err() != nil {
			return steps, ctx.Err()
		}
		_, err := s.client.PostJSON(ctx, "web-connectors", NewAudioIssueConnector(name, domain.Name, ids))
		record("create connector "+name, err)
	}
	return steps, nil
}

// Failed 統計失敗步驟
func Failed(steps []StepResult) int {
	n := 0
	for _, s := range steps {
		if s.Err != nil {
			n++
		}
	}
	return n
}
