package attemptruntime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/yourusername/attempt-runtime/internal/pkg/errors"
)

func TestDeadlineStore_SeedNewAttempt(t *testing.T) {
	// Arrange
	cache := newMemCache()
	store := NewDeadlineStore(cache, time.Hour)

	// Act
	seconds, err := store.Seed("attempt-1", 10)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 600, seconds, "Новая попытка должна получить durationMin*60 секунд")

	persisted, err := store.Remaining("attempt-1")
	require.NoError(t, err)
	assert.Equal(t, 600, persisted, "Посеянный остаток должен быть сохранен")
}

func TestDeadlineStore_SeedPrefersStoredRemainder(t *testing.T) {
	// Arrange: первая сессия посеяла дедлайн и успела потикать
	cache := newMemCache()
	store := NewDeadlineStore(cache, time.Hour)

	_, err := store.Seed("attempt-1", 10)
	require.NoError(t, err)
	require.NoError(t, store.Tick("attempt-1", 599))
	require.NoError(t, store.Tick("attempt-1", 598))

	// Act: "перезагрузка" — повторный посев с той же номинальной длительностью
	seconds, err := store.Seed("attempt-1", 10)

	// Assert: возвращается сохраненный остаток, а не 600
	require.NoError(t, err)
	assert.Equal(t, 598, seconds, "Повторный посев должен вернуть сохраненный остаток, а не номинал")
}

func TestDeadlineStore_SeedWithoutRecordAndDuration(t *testing.T) {
	// Arrange
	cache := newMemCache()
	store := NewDeadlineStore(cache, time.Hour)

	// Act
	_, err := store.Seed("attempt-1", 0)

	// Assert: дефолтный дедлайн молча не синтезируется
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestDeadlineStore_SeedCorruptedRecord(t *testing.T) {
	// Arrange
	cache := newMemCache()
	require.NoError(t, cache.Set(deadlineKey("attempt-1"), "not-a-number", time.Hour))
	store := NewDeadlineStore(cache, time.Hour)

	// Act
	_, err := store.Seed("attempt-1", 10)

	// Assert
	assert.Error(t, err)
}

func TestDeadlineStore_TickClampsNegative(t *testing.T) {
	// Arrange
	cache := newMemCache()
	store := NewDeadlineStore(cache, time.Hour)

	// Act
	require.NoError(t, store.Tick("attempt-1", -5))

	// Assert
	seconds, err := store.Remaining("attempt-1")
	require.NoError(t, err)
	assert.Equal(t, 0, seconds, "Отрицательный остаток должен сохраняться как 0")
}

func TestDeadlineStore_Clear(t *testing.T) {
	// Arrange
	cache := newMemCache()
	store := NewDeadlineStore(cache, time.Hour)
	_, err := store.Seed("attempt-1", 1)
	require.NoError(t, err)

	// Act
	require.NoError(t, store.Clear("attempt-1"))

	// Assert
	_, err = store.Remaining("attempt-1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
