package repository

import (
	"time"

	"github.com/yourusername/attempt-runtime/internal/domain/entity"
)

// ReceiptRepository определяет интерфейс для журнала отправок попыток.
// Журнал долговременный (PostgreSQL) и служит вторым слоем идемпотентности:
// вставка второй записи для того же attempt_id должна возвращать
// apperrors.ErrAlreadySubmitted.
type ReceiptRepository interface {
	// Create создает журнальную запись в момент диспетчеризации отправки
	Create(receipt *entity.SubmissionReceipt) error

	// GetByAttemptID возвращает запись или apperrors.ErrNotFound
	GetByAttemptID(attemptID string) (*entity.SubmissionReceipt, error)

	// MarkAcknowledged фиксирует подтверждение сервера
	MarkAcknowledged(attemptID string, at time.Time) error

	// MarkFailed фиксирует неудачную диспетчеризацию (для ручного повтора)
	MarkFailed(attemptID string, reason string) error
}
