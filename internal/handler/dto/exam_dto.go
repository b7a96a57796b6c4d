package dto

import (
	"strings"
	"time"

	"github.com/yourusername/examsim-api/internal/domain/entity"
	"github.com/yourusername/examsim-api/internal/handler/helper"
	"github.com/yourusername/examsim-api/internal/service"
)

// BuildExamRequest - запрос на сборку экзамена.
// Отсутствующий ratios = доли из конфигурации, пустой объект {} = равномерная выборка.
type BuildExamRequest struct {
	Modules      []string           `json:"modules"`
	Categories   []string           `json:"categories"`
	Limit        int                `json:"limit" binding:"omitempty,min=1"`
	Ratios       map[string]float64 `json:"ratios"`
	Seed         *int64             `json:"seed"`
	AntiGuessing *bool              `json:"anti_guessing"`
}

// ToService преобразует запрос в параметры сервиса
func (r *BuildExamRequest) ToService() service.BuildRequest {
	return service.BuildRequest{
		Modules:      r.Modules,
		Categories:   r.Categories,
		Limit:        r.Limit,
		Ratios:       r.Ratios,
		Seed:         r.Seed,
		AntiGuessing: r.AntiGuessing,
	}
}

// SimulationRequest - запрос на сборку полного экзамена
type SimulationRequest struct {
	Seed *int64 `json:"seed"`
}

// GradeExamRequest - ответы на экзамен; answers[i] относится к i-му вопросу, -1 = без ответа
type GradeExamRequest struct {
	Answers []int `json:"answers" binding:"required"`
}

// StartAdaptiveRequest - запрос на начало адаптивной сессии
type StartAdaptiveRequest struct {
	Modules      []string `json:"modules"`
	Categories   []string `json:"categories"`
	Limit        int      `json:"limit" binding:"omitempty,min=1"`
	Seed         *int64   `json:"seed"`
	AntiGuessing *bool    `json:"anti_guessing"`
}

// ToService преобразует запрос в параметры сервиса
func (r *StartAdaptiveRequest) ToService() service.StartAdaptiveRequest {
	return service.StartAdaptiveRequest{
		Modules:      r.Modules,
		Categories:   r.Categories,
		Limit:        r.Limit,
		Seed:         r.Seed,
		AntiGuessing: r.AntiGuessing,
	}
}

// AnswerRequest - ответ на текущий вопрос адаптивной сессии. selected = null - пропуск.
type AnswerRequest struct {
	Selected *int `json:"selected"`
}

// ItemResponse - вопрос для клиента, без ключа ответа
type ItemResponse struct {
	ID         uint                `json:"id"`
	Prompt     string              `json:"prompt"`
	Passage    string              `json:"passage,omitempty"`
	Options    []helper.ItemOption `json:"options"`
	Difficulty string              `json:"difficulty,omitempty"`
	Module     string              `json:"module,omitempty"`
	Category   string              `json:"category,omitempty"`
}

// ExamResponse - собранный экзамен для клиента
type ExamResponse struct {
	ID              string                `json:"id"`
	Seed            int64                 `json:"seed"`
	Modules         []string              `json:"modules,omitempty"`
	Categories      []string              `json:"categories,omitempty"`
	Items           []ItemResponse        `json:"items"`
	Sections        []service.ExamSection `json:"sections,omitempty"`
	DurationMinutes int                   `json:"duration_minutes,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
}

// AdaptiveStepResponse - шаг адаптивной сессии для клиента
type AdaptiveStepResponse struct {
	SessionID       string             `json:"session_id"`
	Item            *ItemResponse      `json:"item,omitempty"`
	Number          int                `json:"number"`
	Level           string             `json:"level"`
	LastCorrect     *bool              `json:"last_correct,omitempty"`
	LastAnswerIndex *int               `json:"last_answer_index,omitempty"`
	LastExplanation string             `json:"last_explanation,omitempty"`
	LastRationales  []string           `json:"last_rationales,omitempty"`
	Finished        bool               `json:"finished"`
	Result          *entity.ExamResult `json:"result,omitempty"`
}

// BankFile - файл банка вопросов в исходном формате: {"questions": [...]}
type BankFile struct {
	Questions []BankQuestion `json:"questions" binding:"required"`
}

// BankQuestion - вопрос в формате банка. Текст может прийти в поле prompt или question.
type BankQuestion struct {
	Prompt      string   `json:"prompt"`
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	AnswerIndex int      `json:"answerIndex"`
	Explanation string   `json:"explanation"`
	Rationales  []string `json:"rationales"`
	Difficulty  string   `json:"difficulty"`
	Module      string   `json:"module"`
	Category    string   `json:"category"`
	Passage     string   `json:"passage"`
}

// ToEntities преобразует банк в сущности
func (f *BankFile) ToEntities() []entity.Item {
	items := make([]entity.Item, len(f.Questions))
	for i, q := range f.Questions {
		prompt := q.Prompt
		if strings.TrimSpace(prompt) == "" {
			prompt = q.Question
		}
		items[i] = entity.Item{
			Prompt:      prompt,
			Options:     entity.StringArray(q.Options),
			AnswerIndex: q.AnswerIndex,
			Explanation: q.Explanation,
			Rationales:  entity.StringArray(q.Rationales),
			Difficulty:  entity.Difficulty(strings.ToLower(strings.TrimSpace(q.Difficulty))),
			Module:      q.Module,
			Category:    q.Category,
			Passage:     q.Passage,
		}
	}
	return items
}

// NewItemResponse создает DTO для вопроса
func NewItemResponse(item *entity.Item) ItemResponse {
	return ItemResponse{
		ID:         item.ID,
		Prompt:     item.Prompt,
		Passage:    item.Passage,
		Options:    helper.ConvertOptionsToObjects(item.Options),
		Difficulty: string(item.Difficulty),
		Module:     item.Module,
		Category:   item.Category,
	}
}

// NewExamResponse создает DTO для экзамена
func NewExamResponse(exam *service.Exam) *ExamResponse {
	items := make([]ItemResponse, len(exam.Items))
	for i := range exam.Items {
		items[i] = NewItemResponse(&exam.Items[i])
	}
	return &ExamResponse{
		ID:              exam.ID,
		Seed:            exam.Seed,
		Modules:         exam.Modules,
		Categories:      exam.Categories,
		Items:           items,
		Sections:        exam.Sections,
		DurationMinutes: exam.DurationMinutes,
		CreatedAt:       exam.CreatedAt,
	}
}

// NewAdaptiveStepResponse создает DTO для шага адаптивной сессии
func NewAdaptiveStepResponse(step *service.AdaptiveStep) *AdaptiveStepResponse {
	resp := &AdaptiveStepResponse{
		SessionID:       step.SessionID,
		Number:          step.Number,
		Level:           step.Level,
		LastCorrect:     step.LastCorrect,
		LastAnswerIndex: step.LastAnswerIndex,
		LastExplanation: step.LastExplanation,
		LastRationales:  step.LastRationales,
		Finished:        step.Finished,
		Result:          step.Result,
	}
	if step.Item != nil {
		item := NewItemResponse(step.Item)
		resp.Item = &item
	}
	return resp
}
