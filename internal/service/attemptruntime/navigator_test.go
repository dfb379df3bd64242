package attemptruntime

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/yourusername/attempt-runtime/internal/pkg/errors"
)

func newTestNavigator(t *testing.T, totalQuestions, pageSize int) (*NavigationController, *fakeGateway) {
	t.Helper()
	gw := newFakeGateway("Тестовый квиз", 10, makeQuestions(totalQuestions), pageSize)
	nav := NewNavigationController(NewQuestionPager(gw, testAttemptRef("attempt-1")))
	_, err := nav.GoTo(context.Background(), 0)
	require.NoError(t, err)
	return nav, gw
}

func TestNavigationController_GoToCrossesPageBoundary(t *testing.T) {
	// Arrange
	nav, _ := newTestNavigator(t, 12, 5)

	// Act: прыжок на вопрос 8 (индекс 7) — вторая страница
	pos, err := nav.GoTo(context.Background(), 7)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 7, pos.GlobalIndex)
	assert.Equal(t, 2, pos.Page)
	assert.Equal(t, 2, pos.LocalOffset)
	assert.Equal(t, "q-8", pos.Questions[pos.LocalOffset].ID)
}

func TestNavigationController_GoToOutOfRange(t *testing.T) {
	// Arrange
	nav, _ := newTestNavigator(t, 12, 5)

	// Act & Assert
	_, err := nav.GoTo(context.Background(), 12)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = nav.GoTo(context.Background(), -1)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	// Индекс не сдвинулся
	assert.Equal(t, 0, nav.CurrentIndex())
}

func TestNavigationController_NextStopsAtLastQuestion(t *testing.T) {
	// Arrange
	nav, _ := newTestNavigator(t, 12, 5)
	_, err := nav.GoTo(context.Background(), 11)
	require.NoError(t, err)

	// Act: Далее на последнем вопросе
	pos, err := nav.Next(context.Background())

	// Assert: no-op, не ошибка
	require.NoError(t, err)
	assert.Equal(t, 11, pos.GlobalIndex, "Next на последнем вопросе должен оставаться на месте")
	assert.Equal(t, 3, pos.Page)
}

func TestNavigationController_PreviousStopsAtFirstQuestion(t *testing.T) {
	// Arrange
	nav, _ := newTestNavigator(t, 12, 5)

	// Act
	pos, err := nav.Previous(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 0, pos.GlobalIndex, "Previous на первом вопросе должен оставаться на месте")
}

func TestNavigationController_FailedFetchKeepsPosition(t *testing.T) {
	// Arrange
	nav, gw := newTestNavigator(t, 12, 5)
	gw.SetFetchErr(errors.New("network unreachable"))

	// Act: переход на незагруженную страницу падает
	_, err := nav.GoTo(context.Background(), 7)

	// Assert: индекс не сдвинулся, текущая страница доступна из кеша
	require.Error(t, err)
	assert.Equal(t, 0, nav.CurrentIndex())
	pos, err := nav.Current()
	require.NoError(t, err)
	assert.Equal(t, 1, pos.Page)
}

func TestNavigationController_PageAlwaysMatchesIndex(t *testing.T) {
	// Arrange
	nav, _ := newTestNavigator(t, 12, 5)
	rng := rand.New(rand.NewSource(42))

	// Act & Assert: случайная прогулка Next/Previous/GoTo; видимая страница
	// всегда соответствует PageOf(currentIndex)
	for i := 0; i < 200; i++ {
		var pos *Position
		var err error
		switch rng.Intn(3) {
		case 0:
			pos, err = nav.Next(context.Background())
		case 1:
			pos, err = nav.Previous(context.Background())
		default:
			pos, err = nav.GoTo(context.Background(), rng.Intn(12))
		}
		require.NoError(t, err)
		assert.Equal(t, PageOf(pos.GlobalIndex, 5), pos.Page)
		assert.Equal(t, pos.GlobalIndex, nav.CurrentIndex())
		assert.GreaterOrEqual(t, pos.GlobalIndex, 0)
		assert.Less(t, pos.GlobalIndex, 12)
	}
}
