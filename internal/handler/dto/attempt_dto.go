package dto

import (
	"github.com/yourusername/attempt-runtime/internal/domain/entity"
	"github.com/yourusername/attempt-runtime/internal/service/attemptruntime"
)

// ChoiceResponse представляет вариант ответа в формате для клиента
type ChoiceResponse struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// QuestionResponse представляет вопрос в формате для клиента.
// Поля правильности сюда не попадают: грейдинг целиком на стороне платформы.
type QuestionResponse struct {
	ID         string           `json:"id"`
	Text       string           `json:"text"`
	Type       string           `json:"type"`
	PointValue int              `json:"point_value"`
	Choices    []ChoiceResponse `json:"choices,omitempty"`
}

// PaginationResponse представляет блок пагинации
type PaginationResponse struct {
	CurrentPage    int `json:"current_page"`
	TotalPages     int `json:"total_pages"`
	TotalQuestions int `json:"total_questions"`
	PageSize       int `json:"page_size"`
}

// PositionResponse представляет текущее положение в попытке
type PositionResponse struct {
	GlobalIndex int                `json:"global_index"`
	Page        int                `json:"page"`
	LocalOffset int                `json:"local_offset"`
	Questions   []QuestionResponse `json:"questions"`
	Pagination  PaginationResponse `json:"pagination"`
}

// PageResponse представляет страницу вопросов без привязки к позиции
type PageResponse struct {
	Questions  []QuestionResponse `json:"questions"`
	Pagination PaginationResponse `json:"pagination"`
}

// AttemptStateResponse представляет снимок состояния попытки
type AttemptStateResponse struct {
	AttemptID      string            `json:"attempt_id"`
	Title          string            `json:"title"`
	DurationMin    int               `json:"duration_min"`
	SecondsLeft    int               `json:"seconds_left"`
	CountdownState string            `json:"countdown_state"`
	AnsweredCount  int               `json:"answered_count"`
	Submitted      bool              `json:"submitted"`
	Position       *PositionResponse `json:"position,omitempty"`
}

// NewQuestionResponse создает DTO для вопроса
func NewQuestionResponse(q entity.Question) QuestionResponse {
	choices := make([]ChoiceResponse, 0, len(q.Choices))
	for _, choice := range q.Choices {
		choices = append(choices, ChoiceResponse{ID: choice.ID, Text: choice.Text})
	}
	return QuestionResponse{
		ID:         q.ID,
		Text:       q.Text,
		Type:       q.Type,
		PointValue: q.PointValue,
		Choices:    choices,
	}
}

// NewPositionResponse создает DTO для положения в попытке
func NewPositionResponse(pos *attemptruntime.Position) *PositionResponse {
	if pos == nil {
		return nil
	}
	questions := make([]QuestionResponse, 0, len(pos.Questions))
	for _, q := range pos.Questions {
		questions = append(questions, NewQuestionResponse(q))
	}
	return &PositionResponse{
		GlobalIndex: pos.GlobalIndex,
		Page:        pos.Page,
		LocalOffset: pos.LocalOffset,
		Questions:   questions,
		Pagination: PaginationResponse{
			CurrentPage:    pos.Pagination.CurrentPage,
			TotalPages:     pos.Pagination.TotalPages,
			TotalQuestions: pos.Pagination.TotalQuestions,
			PageSize:       pos.Pagination.PageSize,
		},
	}
}

// NewPageResponse создает DTO для страницы вопросов
func NewPageResponse(questions []entity.Question, pag entity.Pagination) *PageResponse {
	items := make([]QuestionResponse, 0, len(questions))
	for _, q := range questions {
		items = append(items, NewQuestionResponse(q))
	}
	return &PageResponse{
		Questions: items,
		Pagination: PaginationResponse{
			CurrentPage:    pag.CurrentPage,
			TotalPages:     pag.TotalPages,
			TotalQuestions: pag.TotalQuestions,
			PageSize:       pag.PageSize,
		},
	}
}

// NewAttemptStateResponse создает DTO для снимка состояния попытки
func NewAttemptStateResponse(snapshot *attemptruntime.Snapshot) *AttemptStateResponse {
	return &AttemptStateResponse{
		AttemptID:      snapshot.AttemptID,
		Title:          snapshot.Title,
		DurationMin:    snapshot.DurationMin,
		SecondsLeft:    snapshot.SecondsLeft,
		CountdownState: snapshot.CountdownState,
		AnsweredCount:  snapshot.AnsweredCount,
		Submitted:      snapshot.Submitted,
		Position:       NewPositionResponse(snapshot.Position),
	}
}
