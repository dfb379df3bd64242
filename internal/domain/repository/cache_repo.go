package repository

import "time"

// CacheRepository определяет интерфейс для работы с кеш-хранилищем (Redis).
// Здесь живет всё клиентское персистентное состояние попытки: остаток
// времени, флаг отправки, накопленные ответы и лизинг владельца.
type CacheRepository interface {
	// Set сохраняет значение с временем жизни
	Set(key string, value interface{}, expiration time.Duration) error

	// Get получает значение; возвращает apperrors.ErrNotFound, если ключа нет
	Get(key string) (string, error)

	// Delete удаляет значение
	Delete(key string) error

	// Exists проверяет существование ключа
	Exists(key string) (bool, error)

	// SetNX устанавливает значение, только если ключ не существует.
	// Возвращает true, если ключ был установлен.
	SetNX(key string, value interface{}, expiration time.Duration) (bool, error)

	// ExpireAt устанавливает время истечения ключа
	ExpireAt(key string, expiration time.Time) error

	// SetJSON сохраняет структуру в JSON
	SetJSON(key string, value interface{}, expiration time.Duration) error

	// GetJSON читает структуру из JSON; apperrors.ErrNotFound, если ключа нет
	GetJSON(key string, dest interface{}) error
}
