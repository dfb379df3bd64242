package postgres

import (
	"errors"
	"log"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/yourusername/attempt-runtime/internal/domain/entity"
	apperrors "github.com/yourusername/attempt-runtime/internal/pkg/errors"
)

// ReceiptRepo реализует repository.ReceiptRepository
type ReceiptRepo struct {
	db *gorm.DB
}

// NewReceiptRepo создает новый репозиторий журнала отправок
func NewReceiptRepo(db *gorm.DB) *ReceiptRepo {
	return &ReceiptRepo{db: db}
}

// Create создает журнальную запись об отправке попытки.
// Уникальный индекс по attempt_id превращает дубликат в ErrAlreadySubmitted.
func (r *ReceiptRepo) Create(receipt *entity.SubmissionReceipt) error {
	if err := r.db.Create(receipt).Error; err != nil {
		// Проверяем ошибку уникального ключа (повторная отправка той же попытки)
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" { // 23505 - unique_violation
			log.Printf("[ReceiptRepo] Попытка %s уже имеет журнальную запись (определено по DB unique constraint)", receipt.AttemptID)
			return apperrors.ErrAlreadySubmitted
		}
		return err
	}
	return nil
}

// GetByAttemptID возвращает журнальную запись по id попытки
func (r *ReceiptRepo) GetByAttemptID(attemptID string) (*entity.SubmissionReceipt, error) {
	var receipt entity.SubmissionReceipt
	err := r.db.Where("attempt_id = ?", attemptID).First(&receipt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &receipt, nil
}

// MarkAcknowledged фиксирует подтверждение грейдинг-эндпоинта
func (r *ReceiptRepo) MarkAcknowledged(attemptID string, at time.Time) error {
	result := r.db.Model(&entity.SubmissionReceipt{}).
		Where("attempt_id = ?", attemptID).
		Updates(map[string]interface{}{
			"status":          entity.ReceiptStatusAcknowledged,
			"acknowledged_at": at,
			"failure_reason":  "",
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// MarkFailed фиксирует неудачную диспетчеризацию отправки
func (r *ReceiptRepo) MarkFailed(attemptID string, reason string) error {
	if len(reason) > 500 {
		reason = reason[:500]
	}
	result := r.db.Model(&entity.SubmissionReceipt{}).
		Where("attempt_id = ? AND status <> ?", attemptID, entity.ReceiptStatusAcknowledged).
		Updates(map[string]interface{}{
			"status":         entity.ReceiptStatusFailed,
			"failure_reason": reason,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
