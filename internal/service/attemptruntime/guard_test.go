package attemptruntime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/yourusername/attempt-runtime/internal/pkg/errors"
)

func TestSubmissionGuard_MarkAndCheck(t *testing.T) {
	// Arrange
	cache := newMemCache()
	guard := NewSubmissionGuard(cache, time.Hour, time.Minute)

	// Assert: флага еще нет
	submitted, err := guard.IsAlreadySubmitted("attempt-1")
	require.NoError(t, err)
	assert.False(t, submitted)

	// Act
	require.NoError(t, guard.MarkSubmitted("attempt-1"))

	// Assert
	submitted, err = guard.IsAlreadySubmitted("attempt-1")
	require.NoError(t, err)
	assert.True(t, submitted, "После MarkSubmitted флаг должен стоять")
}

func TestSubmissionGuard_MarkSubmittedIdempotent(t *testing.T) {
	// Arrange
	cache := newMemCache()
	guard := NewSubmissionGuard(cache, time.Hour, time.Minute)

	// Act: двойная установка флага не должна падать
	require.NoError(t, guard.MarkSubmitted("attempt-1"))
	require.NoError(t, guard.MarkSubmitted("attempt-1"))

	// Assert
	submitted, err := guard.IsAlreadySubmitted("attempt-1")
	require.NoError(t, err)
	assert.True(t, submitted)
}

func TestSubmissionGuard_LeaseConflict(t *testing.T) {
	// Arrange
	cache := newMemCache()
	guard := NewSubmissionGuard(cache, time.Hour, time.Minute)
	require.NoError(t, guard.AcquireLease("attempt-1", "owner-a"))

	// Act: другой владелец пробует войти в ту же попытку
	err := guard.AcquireLease("attempt-1", "owner-b")

	// Assert
	assert.ErrorIs(t, err, apperrors.ErrAttemptLocked)
}

func TestSubmissionGuard_LeaseReacquireBySameOwner(t *testing.T) {
	// Arrange
	cache := newMemCache()
	guard := NewSubmissionGuard(cache, time.Hour, time.Minute)
	require.NoError(t, guard.AcquireLease("attempt-1", "owner-a"))

	// Act: тот же владелец захватывает лизинг повторно
	err := guard.AcquireLease("attempt-1", "owner-a")

	// Assert
	assert.NoError(t, err, "Повторный захват тем же владельцем должен продлевать лизинг")
}

func TestSubmissionGuard_ReleaseLease(t *testing.T) {
	// Arrange
	cache := newMemCache()
	guard := NewSubmissionGuard(cache, time.Hour, time.Minute)
	require.NoError(t, guard.AcquireLease("attempt-1", "owner-a"))

	// Act
	require.NoError(t, guard.ReleaseLease("attempt-1", "owner-a"))

	// Assert: после освобождения попытка доступна другому владельцу
	assert.NoError(t, guard.AcquireLease("attempt-1", "owner-b"))
}

func TestSubmissionGuard_ReleaseForeignLeaseIsNoop(t *testing.T) {
	// Arrange
	cache := newMemCache()
	guard := NewSubmissionGuard(cache, time.Hour, time.Minute)
	require.NoError(t, guard.AcquireLease("attempt-1", "owner-a"))

	// Act: чужой владелец пытается освободить лизинг
	require.NoError(t, guard.ReleaseLease("attempt-1", "owner-b"))

	// Assert: лизинг владельца owner-a не тронут
	err := guard.AcquireLease("attempt-1", "owner-b")
	assert.ErrorIs(t, err, apperrors.ErrAttemptLocked)
}
