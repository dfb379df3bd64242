package attemptruntime

import (
	"context"
	"fmt"
	"sync"

	"github.com/yourusername/attempt-runtime/internal/domain/entity"
	apperrors "github.com/yourusername/attempt-runtime/internal/pkg/errors"
)

// NavigationController переводит действия пользователя (клик по вопросу N,
// Далее, Назад) в загрузки страниц. Инвариант: видимая страница всегда
// соответствует PageOf(currentGlobalIndex), и контроллер никогда не
// указывает на вопрос, чья страница еще не загружена.
type NavigationController struct {
	pager *QuestionPager

	mu           sync.Mutex
	currentIndex int
}

// NewNavigationController создает новый контроллер навигации
func NewNavigationController(pager *QuestionPager) *NavigationController {
	return &NavigationController{pager: pager}
}

// Position описывает текущее положение после навигации
type Position struct {
	GlobalIndex int
	Page        int
	LocalOffset int
	Questions   []entity.Question
	Pagination  entity.Pagination
}

// GoTo переходит к вопросу по глобальному индексу: загружает владеющую
// страницу, если нужно, и только затем сдвигает индекс. При неудачной
// загрузке индекс остается прежним.
func (n *NavigationController) GoTo(ctx context.Context, globalIndex int) (*Position, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.goToLocked(ctx, globalIndex)
}

// Next переходит к следующему вопросу. На последнем вопросе — no-op,
// а не ошибка: кнопка отправки доступна с любой страницы.
func (n *NavigationController) Next(ctx context.Context) (*Position, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	pag := n.pager.Pagination()
	if pag.TotalQuestions > 0 && n.currentIndex >= pag.TotalQuestions-1 {
		return n.positionLocked()
	}
	return n.goToLocked(ctx, n.currentIndex+1)
}

// Previous переходит к предыдущему вопросу; на первом — no-op
func (n *NavigationController) Previous(ctx context.Context) (*Position, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.currentIndex <= 0 {
		return n.positionLocked()
	}
	return n.goToLocked(ctx, n.currentIndex-1)
}

// Current возвращает текущее положение без навигации
func (n *NavigationController) Current() (*Position, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.positionLocked()
}

// CurrentIndex возвращает текущий глобальный индекс
func (n *NavigationController) CurrentIndex() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.currentIndex
}

func (n *NavigationController) goToLocked(ctx context.Context, globalIndex int) (*Position, error) {
	if globalIndex < 0 {
		return nil, fmt.Errorf("%w: question index must be >= 0, got %d", apperrors.ErrValidation, globalIndex)
	}

	pag := n.pager.Pagination()
	if pag.TotalQuestions > 0 && globalIndex >= pag.TotalQuestions {
		return nil, fmt.Errorf("%w: question index %d is out of range [0, %d)",
			apperrors.ErrValidation, globalIndex, pag.TotalQuestions)
	}

	page := PageOf(globalIndex, pag.PageSize)

	// Загружаем владеющую страницу до сдвига индекса
	if _, err := n.pager.FetchPage(ctx, page); err != nil {
		return nil, err
	}

	n.currentIndex = globalIndex
	return n.positionLocked()
}

func (n *NavigationController) positionLocked() (*Position, error) {
	pag := n.pager.Pagination()
	page := PageOf(n.currentIndex, pag.PageSize)

	questions, err := n.pager.FetchPage(context.Background(), page)
	if err != nil {
		return nil, err
	}

	return &Position{
		GlobalIndex: n.currentIndex,
		Page:        page,
		LocalOffset: LocalOffset(n.currentIndex, pag.PageSize),
		Questions:   questions,
		Pagination:  pag,
	}, nil
}
