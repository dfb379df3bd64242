package entity

// AttemptRef идентифицирует одну попытку прохождения теста у вышестоящего API.
// Все поля задаются при создании попытки (вне этого сервиса) и неизменны
// на протяжении её жизни.
type AttemptRef struct {
	AttemptID    string `json:"attempt_id"`
	QuizID       string `json:"quiz_id"`
	CourseID     string `json:"course_id"`
	EnrollmentID string `json:"enrollment_id"`
	UserID       string `json:"user_id"`
}

// IsComplete проверяет, что все обязательные параметры маршрута заданы.
// Без них рантайм запускаться не должен (частичный UI не рисуем).
func (r *AttemptRef) IsComplete() bool {
	return r.AttemptID != "" && r.QuizID != "" && r.CourseID != "" && r.EnrollmentID != ""
}

// AttemptMeta содержит метаданные попытки, которые вышестоящий API возвращает
// при первой загрузке страницы вопросов. Повторные загрузки подтверждают,
// но не меняют эти значения (в частности дедлайн).
type AttemptMeta struct {
	Title       string `json:"title"`
	DurationMin int    `json:"duration"`
}

// Pagination описывает серверную пагинацию вопросов попытки.
// Номера страниц начинаются с 1, размер страницы контролируется сервером.
type Pagination struct {
	CurrentPage    int `json:"current_page"`
	TotalPages     int `json:"total_pages"`
	TotalQuestions int `json:"total_questions"`
	PageSize       int `json:"page_size"`
}

// AttemptPage — одна страница вопросов попытки вместе с метаданными.
type AttemptPage struct {
	Meta       AttemptMeta
	Questions  []Question
	Pagination Pagination
}
