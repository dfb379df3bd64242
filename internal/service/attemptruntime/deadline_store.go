package attemptruntime

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/yourusername/attempt-runtime/internal/domain/repository"
	apperrors "github.com/yourusername/attempt-runtime/internal/pkg/errors"
)

// DeadlineStore хранит остаток времени попытки в Redis под стабильным ключом.
// После первого посева авторитетен сохраненный остаток, а не номинальная
// длительность: иначе перезагрузка страницы продлевала бы время бесконечно.
type DeadlineStore struct {
	cache     repository.CacheRepository
	retention time.Duration
}

// NewDeadlineStore создает новое хранилище дедлайнов
func NewDeadlineStore(cache repository.CacheRepository, retention time.Duration) *DeadlineStore {
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &DeadlineStore{cache: cache, retention: retention}
}

// Seed возвращает сохраненный остаток секунд для попытки, а при его отсутствии
// вычисляет durationMin*60, сохраняет и возвращает его. Если записи нет и
// длительность не задана, рантайм стартовать не должен — дефолтный дедлайн
// молча не синтезируется.
func (s *DeadlineStore) Seed(attemptID string, durationMin int) (int, error) {
	key := deadlineKey(attemptID)

	val, err := s.cache.Get(key)
	if err == nil {
		seconds, parseErr := strconv.Atoi(val)
		if parseErr != nil {
			return 0, fmt.Errorf("corrupted deadline record for attempt %s: %w", attemptID, parseErr)
		}
		if seconds < 0 {
			seconds = 0
		}
		log.Printf("[DeadlineStore] Попытка %s: найден сохраненный остаток %d сек., номинальная длительность игнорируется", attemptID, seconds)
		return seconds, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return 0, fmt.Errorf("failed to read deadline record for attempt %s: %w", attemptID, err)
	}

	if durationMin <= 0 {
		return 0, fmt.Errorf("%w: no deadline record and no duration for attempt %s", apperrors.ErrValidation, attemptID)
	}

	seconds := durationMin * 60
	if err := s.cache.Set(key, seconds, s.retention); err != nil {
		return 0, fmt.Errorf("failed to seed deadline for attempt %s: %w", attemptID, err)
	}
	log.Printf("[DeadlineStore] Попытка %s: посеян дедлайн %d сек. (%d мин.)", attemptID, seconds, durationMin)
	return seconds, nil
}

// Tick сохраняет декрементированный остаток. Вызывается на каждом тике,
// так что перезагрузка в середине секунды теряет не больше одной секунды.
func (s *DeadlineStore) Tick(attemptID string, seconds int) error {
	if seconds < 0 {
		seconds = 0
	}
	return s.cache.Set(deadlineKey(attemptID), seconds, s.retention)
}

// Remaining возвращает сохраненный остаток секунд
func (s *DeadlineStore) Remaining(attemptID string) (int, error) {
	val, err := s.cache.Get(deadlineKey(attemptID))
	if err != nil {
		return 0, err
	}
	seconds, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("corrupted deadline record for attempt %s: %w", attemptID, err)
	}
	return seconds, nil
}

// Clear удаляет запись дедлайна после принятой отправки
func (s *DeadlineStore) Clear(attemptID string) error {
	return s.cache.Delete(deadlineKey(attemptID))
}
