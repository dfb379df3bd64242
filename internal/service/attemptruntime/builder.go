package attemptruntime

import (
	"log"

	"github.com/yourusername/attempt-runtime/internal/domain/entity"
)

// BuildSubmission собирает итоговый payload для грейдинг-эндпоинта из
// накопленных ответов. Ветвление по типу вопроса:
//
//   - mcq: {question_id, answer_id, answer_text} с id выбранного варианта;
//   - true_false: накопленный ответ хранится как текст ("True"/"False"),
//     id варианта восстанавливается по тексту без учета регистра, потому что
//     аккумулятор не гарантирует, что для этого типа был захвачен choice id;
//   - text: answer_id = null, только текст.
//
// Неотвеченные вопросы опускаются целиком — null-заглушки не отправляются.
// Порядок позиций повторяет серверный порядок вопросов.
func BuildSubmission(answers map[string]entity.Answer, questions []entity.Question) []entity.SubmissionEntry {
	entries := make([]entity.SubmissionEntry, 0, len(answers))

	for _, q := range questions {
		answer, ok := answers[q.ID]
		if !ok || answer.IsEmpty() {
			continue
		}

		switch q.Type {
		case entity.QuestionTypeMCQ:
			if answer.ChoiceID == "" {
				continue
			}
			answerID := answer.ChoiceID
			text := answer.Text
			if choice, found := q.ChoiceByID(answer.ChoiceID); found {
				text = choice.Text
			}
			entries = append(entries, entity.SubmissionEntry{
				QuestionID: q.ID,
				AnswerID:   &answerID,
				AnswerText: text,
			})

		case entity.QuestionTypeTrueFalse:
			entry := entity.SubmissionEntry{
				QuestionID: q.ID,
				AnswerText: answer.Text,
			}
			if answer.ChoiceID != "" {
				answerID := answer.ChoiceID
				entry.AnswerID = &answerID
			} else if choice, found := q.ChoiceByText(answer.Text); found {
				answerID := choice.ID
				entry.AnswerID = &answerID
				entry.AnswerText = choice.Text
			} else {
				log.Printf("[SubmissionBuilder] Вопрос %s: текст %q не сопоставился ни с одним вариантом, answer_id останется пустым",
					q.ID, answer.Text)
			}
			entries = append(entries, entry)

		case entity.QuestionTypeText:
			if answer.Text == "" {
				continue
			}
			entries = append(entries, entity.SubmissionEntry{
				QuestionID: q.ID,
				AnswerID:   nil,
				AnswerText: answer.Text,
			})

		default:
			log.Printf("[SubmissionBuilder] Вопрос %s имеет неизвестный тип %q, позиция пропущена", q.ID, q.Type)
		}
	}

	return entries
}
