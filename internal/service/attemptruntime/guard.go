package attemptruntime

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/yourusername/attempt-runtime/internal/domain/repository"
	apperrors "github.com/yourusername/attempt-runtime/internal/pkg/errors"
)

// SubmissionGuard — персистентный флаг идемпотентности по id попытки плюс
// лизинг единственного владельца. Флаг ставится в момент диспетчеризации
// отправки, до ответа сервера: второй конкурентный сабмит структурно
// невозможен, ценой того, что неудачная первая отправка блокирует
// повторный вход (ручной повтор остается доступен, пока рантайм жив).
type SubmissionGuard struct {
	cache          repository.CacheRepository
	guardRetention time.Duration
	leaseTTL       time.Duration
}

// NewSubmissionGuard создает новый guard
func NewSubmissionGuard(cache repository.CacheRepository, guardRetention, leaseTTL time.Duration) *SubmissionGuard {
	if guardRetention <= 0 {
		guardRetention = 72 * time.Hour
	}
	if leaseTTL <= 0 {
		leaseTTL = 30 * time.Second
	}
	return &SubmissionGuard{
		cache:          cache,
		guardRetention: guardRetention,
		leaseTTL:       leaseTTL,
	}
}

// IsAlreadySubmitted проверяется один раз на входе: если флаг стоит,
// рантайм отказывается запускаться.
func (g *SubmissionGuard) IsAlreadySubmitted(attemptID string) (bool, error) {
	exists, err := g.cache.Exists(submittedKey(attemptID))
	if err != nil {
		return false, fmt.Errorf("failed to check submission flag for attempt %s: %w", attemptID, err)
	}
	return exists, nil
}

// MarkSubmitted ставит флаг отправки. Вызывается синхронно ПЕРЕД сетевым
// вызовом, не после подтверждения. Идемпотентен.
func (g *SubmissionGuard) MarkSubmitted(attemptID string) error {
	if err := g.cache.Set(submittedKey(attemptID), "1", g.guardRetention); err != nil {
		return fmt.Errorf("failed to set submission flag for attempt %s: %w", attemptID, err)
	}
	log.Printf("[SubmissionGuard] Попытка %s помечена как отправленная", attemptID)
	return nil
}

// AcquireLease захватывает лизинг единственного владельца попытки через SetNX.
// Повторный захват тем же владельцем продлевает лизинг; чужой владелец
// получает ErrAttemptLocked.
func (g *SubmissionGuard) AcquireLease(attemptID, ownerID string) error {
	key := ownerKey(attemptID)

	ok, err := g.cache.SetNX(key, ownerID, g.leaseTTL)
	if err != nil {
		return fmt.Errorf("failed to acquire lease for attempt %s: %w", attemptID, err)
	}
	if ok {
		log.Printf("[SubmissionGuard] Лизинг попытки %s захвачен владельцем %s", attemptID, ownerID)
		return nil
	}

	current, err := g.cache.Get(key)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// Лизинг истек между SetNX и Get, пробуем еще раз
			ok, retryErr := g.cache.SetNX(key, ownerID, g.leaseTTL)
			if retryErr != nil {
				return fmt.Errorf("failed to acquire lease for attempt %s: %w", attemptID, retryErr)
			}
			if ok {
				return nil
			}
			return apperrors.ErrAttemptLocked
		}
		return fmt.Errorf("failed to read lease owner for attempt %s: %w", attemptID, err)
	}

	if current != ownerID {
		log.Printf("[SubmissionGuard] Попытка %s занята владельцем %s, вход для %s отклонен", attemptID, current, ownerID)
		return apperrors.ErrAttemptLocked
	}

	return g.RefreshLease(attemptID, ownerID)
}

// RefreshLease продлевает лизинг. Вызывается на каждом тике отсчета,
// поэтому упавший процесс освобождает попытку через LeaseTTL.
func (g *SubmissionGuard) RefreshLease(attemptID, ownerID string) error {
	key := ownerKey(attemptID)

	current, err := g.cache.Get(key)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// Лизинг успел истечь — перезахватываем
			_, err = g.cache.SetNX(key, ownerID, g.leaseTTL)
			return err
		}
		return err
	}
	if current != ownerID {
		return apperrors.ErrAttemptLocked
	}
	return g.cache.ExpireAt(key, time.Now().Add(g.leaseTTL))
}

// ReleaseLease освобождает лизинг при завершении рантайма.
// Чужой лизинг не трогаем.
func (g *SubmissionGuard) ReleaseLease(attemptID, ownerID string) error {
	key := ownerKey(attemptID)

	current, err := g.cache.Get(key)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil
		}
		return err
	}
	if current != ownerID {
		return nil
	}
	return g.cache.Delete(key)
}
