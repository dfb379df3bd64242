package attemptruntime

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/yourusername/attempt-runtime/internal/domain/entity"
	"github.com/yourusername/attempt-runtime/internal/domain/repository"
	apperrors "github.com/yourusername/attempt-runtime/internal/pkg/errors"
)

// AnswerAccumulator — накопитель ответов, ключ — идентификатор вопроса.
// Накопление монотонно относительно навигации: уход со страницы и возврат
// не стирают ранее введенные ответы, потому что карта глобальная, а не
// постраничная. Поздний Set для того же вопроса замещает ранний.
//
// Аккумулятор зеркалируется в Redis рядом с записью дедлайна, чтобы
// перезагрузка не теряла прогресс при живом таймере.
type AnswerAccumulator struct {
	mu      sync.RWMutex
	answers map[string]entity.Answer

	cache     repository.CacheRepository
	attemptID string
	retention time.Duration
	persist   bool
}

// NewAnswerAccumulator создает новый накопитель ответов
func NewAnswerAccumulator(cache repository.CacheRepository, attemptID string, retention time.Duration, persist bool) *AnswerAccumulator {
	return &AnswerAccumulator{
		answers:   make(map[string]entity.Answer),
		cache:     cache,
		attemptID: attemptID,
		retention: retention,
		persist:   persist,
	}
}

// Restore восстанавливает ответы из Redis при повторном входе в попытку.
// Отсутствие записи — не ошибка.
func (a *AnswerAccumulator) Restore() error {
	if !a.persist {
		return nil
	}

	var stored map[string]entity.Answer
	err := a.cache.GetJSON(answersKey(a.attemptID), &stored)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil
		}
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	for id, ans := range stored {
		a.answers[id] = ans
	}
	log.Printf("[AnswerAccumulator] Попытка %s: восстановлено %d ответов", a.attemptID, len(stored))
	return nil
}

// Set записывает ответ, замещая любой прежний для того же вопроса.
// Правильность ответа здесь не проверяется — это остается на сервере.
func (a *AnswerAccumulator) Set(questionID string, answer entity.Answer) {
	answer.QuestionID = questionID

	a.mu.Lock()
	a.answers[questionID] = answer
	snapshot := a.snapshotLocked()
	a.mu.Unlock()

	if a.persist {
		// Ошибка зеркалирования не фатальна: ответ уже в памяти
		if err := a.cache.SetJSON(answersKey(a.attemptID), snapshot, a.retention); err != nil {
			log.Printf("[AnswerAccumulator] WARNING: Не удалось сохранить ответы попытки %s в Redis: %v", a.attemptID, err)
		}
	}
}

// GetAll возвращает копию карты ответов
func (a *AnswerAccumulator) GetAll() map[string]entity.Answer {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snapshotLocked()
}

// Len возвращает количество отвеченных вопросов
func (a *AnswerAccumulator) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.answers)
}

// Clear удаляет зеркало ответов из Redis после принятой отправки
func (a *AnswerAccumulator) Clear() error {
	if !a.persist {
		return nil
	}
	return a.cache.Delete(answersKey(a.attemptID))
}

func (a *AnswerAccumulator) snapshotLocked() map[string]entity.Answer {
	snapshot := make(map[string]entity.Answer, len(a.answers))
	for id, ans := range a.answers {
		snapshot[id] = ans
	}
	return snapshot
}
