package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"vccadmin/internal/logger"
	"vccadmin/internal/vcc"
)

// WhisperPrefix whisper 提示音名稱前綴
const WhisperPrefix = "Whisper "

// Skill 技能摘要
type Skill struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// WhisperResult 單一技能的指派結果
type WhisperResult struct {
	Skill      Skill
	PromptName string
	PromptID   string
	Err        error
}

// WhisperPromptName 技能對應的提示音名稱
func WhisperPromptName(skill string) string {
	return WhisperPrefix + skill
}

// SkillService 技能設定操作
type SkillService struct {
	client RESTClient
	logger *logger.Logger
}

// NewSkillService 創建技能服務
func NewSkillService(client RESTClient, log *logger.Logger) *SkillService {
	if log == nil {
		log = logger.GetDefaultLogger()
	}
	return &SkillService{client: client, logger: log}
}

// List 列出所有技能
func (s *SkillService) List(ctx context.Context) ([]Skill, error) {
	items, err := s.client.ListAll(ctx, "skills", vcc.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list skills: %w", err)
	}
	skills := make([]Skill, 0, len(items))
	for _, item := range items {
		skills = append(skills, Skill{ID: item.Get("id").String(), Name: item.Get("name").String()})
	}
	return skills, nil
}

// FindPrompt 以名稱查詢提示音 ID
func (s *SkillService) FindPrompt(ctx context.Context, name string) (string, error) {
	q := url.Values{}
	q.Set("fields", "id,name")
	q.Set("filter", quoteFilter("name", name))

	doc, err := s.client.GetJSON(ctx, "prompts", q)
	if err != nil {
		return "", err
	}
	id := doc.Get("entities.0.id")
	if !id.Exists() {
		return "", vcc.Errorf(vcc.KindNotFound, "get prompts", "%v: prompt %q", vcc.ErrNotFound, name)
	}
	return id.String(), nil
}

// AssignWhisperPrompt 將 "Whisper {技能}" 提示音指派給技能
func (s *SkillService) AssignWhisperPrompt(ctx context.Context, skill Skill) WhisperResult {
	res := WhisperResult{Skill: skill, PromptName: WhisperPromptName(skill.Name)}

	id, err := s.FindPrompt(ctx, res.PromptName)
	if err != nil {
		res.Err = fmt.Errorf("problem retrieving prompt %q: %w", res.PromptName, err)
		return res
	}
	res.PromptID = id

	body := map[string]any{"whisperPrompt": map[string]string{"id": id}}
	if _, err := s.client.PutJSON(ctx, "skills/"+skill.ID, body); err != nil {
		res.Err = fmt.Errorf("problem assigning %q to %q: %w", res.PromptName, skill.Name, err)
	}
	return res
}

// AssignWhisperPrompts 對所有技能指派 whisper 提示音，單一失敗不中斷
func (s *SkillService) AssignWhisperPrompts(ctx context.Context) ([]WhisperResult, error) {
	skills, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]WhisperResult, 0, len(skills))
	for _, skill := range skills {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res := s.AssignWhisperPrompt(ctx, skill)
		if res.Err != nil {
			s.logger.Warn("Whisper prompt not assigned",
				slog.String("skill", skill.Name),
				slog.String("error", res.Err.Error()),
			)
		} else {
			s.logger.Info("Whisper prompt assigned",
				slog.String("skill", skill.Name),
				slog.String("prompt_id", res.PromptID),
			)
		}
		results = append(results, res)
	}
	return results, nil
}
