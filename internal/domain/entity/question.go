package entity

import "strings"

// Типы вопросов, которые умеет отображать рантайм попытки
const (
	QuestionTypeMCQ       = "mcq"
	QuestionTypeTrueFalse = "true_false"
	QuestionTypeText      = "text"
)

// Choice представляет один вариант ответа на вопрос.
// Флаг правильности клиенту никогда не отдается и здесь отсутствует.
type Choice struct {
	ID   string `json:"id"`
	Text string `json:"choice_text"`
}

// Question представляет вопрос попытки в том виде, в котором его отдает
// вышестоящий API. Идентификаторы вопросов уникальны в пределах попытки
// и стабильны между повторными загрузками страниц.
type Question struct {
	ID         string   `json:"id"`
	Text       string   `json:"text"`
	Type       string   `json:"type"`
	PointValue int      `json:"point_value"`
	Choices    []Choice `json:"choices,omitempty"`
}

// HasChoices сообщает, предполагает ли тип вопроса выбор из вариантов
func (q *Question) HasChoices() bool {
	return q.Type == QuestionTypeMCQ || q.Type == QuestionTypeTrueFalse
}

// ChoiceByID ищет вариант ответа по идентификатору
func (q *Question) ChoiceByID(choiceID string) (Choice, bool) {
	for _, c := range q.Choices {
		if c.ID == choiceID {
			return c, true
		}
	}
	return Choice{}, false
}

// ChoiceByText ищет вариант ответа по тексту без учета регистра.
// Используется для true_false: аккумулятор хранит ответ как текст
// ("True"/"False"), а для отправки нужно восстановить id варианта.
func (q *Question) ChoiceByText(text string) (Choice, bool) {
	needle := strings.TrimSpace(strings.ToLower(text))
	if needle == "" {
		return Choice{}, false
	}
	for _, c := range q.Choices {
		if strings.TrimSpace(strings.ToLower(c.Text)) == needle {
			return c, true
		}
	}
	return Choice{}, false
}

// IsKnownType проверяет, поддерживается ли тип вопроса
func IsKnownQuestionType(t string) bool {
	switch t {
	case QuestionTypeMCQ, QuestionTypeTrueFalse, QuestionTypeText:
		return true
	}
	return false
}
