package entity

import "time"

// Answer — ответ ученика на один вопрос. Ключом служит идентификатор вопроса:
// на вопрос существует не более одного ответа, поздний выбор замещает ранний.
type Answer struct {
	QuestionID string `json:"question_id"`
	// ChoiceID заполняется для mcq; для true_false аккумулятор гарантирует
	// только текст, id восстанавливается при сборке отправки.
	ChoiceID string `json:"choice_id,omitempty"`
	Text     string `json:"text,omitempty"`
}

// IsEmpty сообщает, что в ответе нет ни выбранного варианта, ни текста
func (a *Answer) IsEmpty() bool {
	return a.ChoiceID == "" && a.Text == ""
}

// SubmissionEntry — одна позиция итоговой отправки в формате грейдинг-эндпоинта.
// AnswerID равен nil для текстовых вопросов.
type SubmissionEntry struct {
	QuestionID string  `json:"question_id"`
	AnswerID   *string `json:"answer_id"`
	AnswerText string  `json:"answer_text"`
}

// SubmissionRequest — тело POST-запроса на грейдинг-эндпоинт.
// Неотвеченные вопросы в UserAnswers не включаются.
type SubmissionRequest struct {
	AttemptID   string            `json:"attemptId"`
	UserAnswers []SubmissionEntry `json:"userAnswers"`
	EndTime     time.Time         `json:"end_time"`
}
