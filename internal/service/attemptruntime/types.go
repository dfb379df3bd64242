package attemptruntime

import (
	"fmt"
	"time"

	"github.com/yourusername/attempt-runtime/internal/domain/repository"
)

// Типы событий, которые рантайм публикует подписчикам попытки
const (
	EventAttemptTick      = "attempt:tick"
	EventAttemptExpired   = "attempt:expired"
	EventAttemptSubmitted = "attempt:submitted"
)

// Config содержит настройки рантайма попытки
type Config struct {
	// TickInterval — период обратного отсчета. Секунда в проде,
	// меньше в тестах.
	TickInterval time.Duration

	// StateRetention — время жизни Redis-записей попытки (остаток времени,
	// ответы). Должно с запасом перекрывать максимальную длительность теста.
	StateRetention time.Duration

	// GuardRetention — время жизни флага отправки. Флаг переживает попытку,
	// чтобы блокировать повторный вход после перезагрузки.
	GuardRetention time.Duration

	// LeaseTTL — время жизни лизинга владельца; продлевается на каждом тике
	LeaseTTL time.Duration

	// PersistAnswers — сохранять ли аккумулятор ответов в Redis.
	// Включено по умолчанию: перезагрузка не должна терять прогресс.
	PersistAnswers bool
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		TickInterval:   1 * time.Second,
		StateRetention: 24 * time.Hour,
		GuardRetention: 72 * time.Hour,
		LeaseTTL:       30 * time.Second,
		PersistAnswers: true,
	}
}

// Notifier доставляет события рантайма подписчикам попытки (WebSocket)
type Notifier interface {
	SendEventToAttempt(attemptID string, eventType string, data interface{}) error
}

// Dependencies содержит зависимости рантайма попытки
type Dependencies struct {
	CacheRepo   repository.CacheRepository
	ReceiptRepo repository.ReceiptRepository
	QuizGateway repository.QuizGateway
	Notifier    Notifier
}

// Ключи персистентного состояния попытки в Redis
func deadlineKey(attemptID string) string {
	return fmt.Sprintf("attempt:%s:time_left", attemptID)
}

func submittedKey(attemptID string) string {
	return fmt.Sprintf("attempt:%s:submitted", attemptID)
}

func answersKey(attemptID string) string {
	return fmt.Sprintf("attempt:%s:answers", attemptID)
}

func ownerKey(attemptID string) string {
	return fmt.Sprintf("attempt:%s:owner", attemptID)
}
