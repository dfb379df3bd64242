package entity

import "time"

// Статусы журнальной записи об отправке попытки
const (
	ReceiptStatusDispatched   = "dispatched"
	ReceiptStatusAcknowledged = "acknowledged"
	ReceiptStatusFailed       = "failed"
)

// SubmissionReceipt — долговременная журнальная запись об отправке попытки.
// Уникальный индекс по attempt_id — второй, durable слой идемпотентности
// поверх Redis-флага: вставка дубликата даёт 23505 и трактуется как
// "попытка уже отправлена".
type SubmissionReceipt struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	AttemptID      string     `gorm:"size:64;not null;uniqueIndex" json:"attempt_id"`
	QuizID         string     `gorm:"size:64;not null;index" json:"quiz_id"`
	CourseID       string     `gorm:"size:64;not null" json:"course_id"`
	UserID         string     `gorm:"size:64;not null;index" json:"user_id"`
	AnswerCount    int        `gorm:"not null" json:"answer_count"`
	Status         string     `gorm:"size:20;not null;default:dispatched" json:"status"`
	FailureReason  string     `gorm:"size:500" json:"failure_reason,omitempty"`
	EndTime        time.Time  `gorm:"not null" json:"end_time"`
	DispatchedAt   time.Time  `gorm:"not null" json:"dispatched_at"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (SubmissionReceipt) TableName() string {
	return "submission_receipts"
}

// IsTerminal сообщает, что по записи больше не ожидается изменений статуса
func (r *SubmissionReceipt) IsTerminal() bool {
	return r.Status == ReceiptStatusAcknowledged
}
