package attemptruntime

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/yourusername/attempt-runtime/internal/domain/entity"
	"github.com/yourusername/attempt-runtime/internal/domain/repository"
)

// PageOf возвращает 1-based номер страницы для плоского глобального индекса.
// Чистая функция: номер страницы всегда выводится из индекса и размера
// страницы, отдельно он не хранится и рассинхронизироваться не может.
func PageOf(globalIndex, pageSize int) int {
	if pageSize <= 0 {
		return 1
	}
	return globalIndex/pageSize + 1
}

// LocalOffset возвращает смещение вопроса внутри его страницы
func LocalOffset(globalIndex, pageSize int) int {
	if pageSize <= 0 {
		return globalIndex
	}
	return globalIndex % pageSize
}

// QuestionPager загружает страницы вопросов у вышестоящего API и кеширует их
// в памяти на время жизни рантайма. Метаданные попытки (название,
// длительность) берутся только из первой загрузки; последующие страницы их
// подтверждают, но на дедлайн не влияют.
type QuestionPager struct {
	gateway repository.QuizGateway
	ref     entity.AttemptRef

	mu    sync.RWMutex
	pages map[int][]entity.Question
	pag   entity.Pagination
	meta  *entity.AttemptMeta
}

// NewQuestionPager создает новый пейджер вопросов
func NewQuestionPager(gateway repository.QuizGateway, ref entity.AttemptRef) *QuestionPager {
	return &QuestionPager{
		gateway: gateway,
		ref:     ref,
		pages:   make(map[int][]entity.Question),
	}
}

// FetchPage возвращает страницу вопросов, загружая её при необходимости.
// Неудачная загрузка не трогает ранее закешированные страницы: пользователь
// видит прежнее состояние и может повторить переход.
func (p *QuestionPager) FetchPage(ctx context.Context, page int) ([]entity.Question, error) {
	p.mu.RLock()
	if questions, ok := p.pages[page]; ok {
		p.mu.RUnlock()
		return questions, nil
	}
	p.mu.RUnlock()

	result, err := p.gateway.FetchAttemptPage(ctx, p.ref, page)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Размер страницы контролируется сервером; его смена делает кеш и
	// отображение индекса устаревшими — сбрасываем и пересчитываем.
	if p.pag.PageSize != 0 && result.Pagination.PageSize != p.pag.PageSize {
		log.Printf("[QuestionPager] Попытка %s: размер страницы изменился %d -> %d, кеш страниц сброшен",
			p.ref.AttemptID, p.pag.PageSize, result.Pagination.PageSize)
		p.pages = make(map[int][]entity.Question)
	}

	p.pag = result.Pagination
	if p.meta == nil {
		meta := result.Meta
		p.meta = &meta
		log.Printf("[QuestionPager] Попытка %s: метаданные зафиксированы (title=%q, duration=%d мин.)",
			p.ref.AttemptID, meta.Title, meta.DurationMin)
	}

	p.pages[page] = result.Questions
	return result.Questions, nil
}

// Question возвращает вопрос по глобальному индексу, если его страница
// уже загружена.
func (p *QuestionPager) Question(globalIndex int) (entity.Question, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.pag.PageSize <= 0 {
		return entity.Question{}, false
	}
	page := PageOf(globalIndex, p.pag.PageSize)
	questions, ok := p.pages[page]
	if !ok {
		return entity.Question{}, false
	}
	offset := LocalOffset(globalIndex, p.pag.PageSize)
	if offset >= len(questions) {
		return entity.Question{}, false
	}
	return questions[offset], true
}

// QuestionByID ищет вопрос среди загруженных страниц
func (p *QuestionPager) QuestionByID(questionID string) (entity.Question, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, questions := range p.pages {
		for _, q := range questions {
			if q.ID == questionID {
				return q, true
			}
		}
	}
	return entity.Question{}, false
}

// FetchedQuestions возвращает все загруженные вопросы в серверном порядке.
// Вопросы незагруженных страниц отсутствуют — при сборке отправки они
// просто опускаются.
func (p *QuestionPager) FetchedQuestions() []entity.Question {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make([]entity.Question, 0)
	for page := 1; page <= p.pag.TotalPages; page++ {
		if questions, ok := p.pages[page]; ok {
			result = append(result, questions...)
		}
	}
	return result
}

// Meta возвращает метаданные попытки (nil до первой загрузки)
func (p *QuestionPager) Meta() *entity.AttemptMeta {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.meta == nil {
		return nil
	}
	meta := *p.meta
	return &meta
}

// Pagination возвращает последний известный блок пагинации
func (p *QuestionPager) Pagination() entity.Pagination {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.pag
}

// PageOfIndex возвращает страницу глобального индекса при текущем размере
// страницы. Ошибка до первой загрузки.
func (p *QuestionPager) PageOfIndex(globalIndex int) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.pag.PageSize <= 0 {
		return 0, fmt.Errorf("page size is not known yet for attempt %s", p.ref.AttemptID)
	}
	return PageOf(globalIndex, p.pag.PageSize), nil
}
