package attemptruntime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/yourusername/attempt-runtime/internal/domain/entity"
	apperrors "github.com/yourusername/attempt-runtime/internal/pkg/errors"
)

// ============================================================================
// In-memory реализации зависимостей для тестов
// ============================================================================

// memCache реализует repository.CacheRepository в памяти
type memCache struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemCache() *memCache {
	return &memCache{values: make(map[string]string)}
}

func (c *memCache) Set(key string, value interface{}, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = fmt.Sprintf("%v", value)
	return nil
}

func (c *memCache) Get(key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	val, ok := c.values[key]
	if !ok {
		return "", apperrors.ErrNotFound
	}
	return val, nil
}

func (c *memCache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, key)
	return nil
}

func (c *memCache) Exists(key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.values[key]
	return ok, nil
}

func (c *memCache) SetNX(key string, value interface{}, _ time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.values[key]; ok {
		return false, nil
	}
	c.values[key] = fmt.Sprintf("%v", value)
	return true, nil
}

func (c *memCache) ExpireAt(_ string, _ time.Time) error {
	return nil
}

func (c *memCache) SetJSON(key string, value interface{}, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = string(data)
	return nil
}

func (c *memCache) GetJSON(key string, dest interface{}) error {
	c.mu.Lock()
	val, ok := c.values[key]
	c.mu.Unlock()
	if !ok {
		return apperrors.ErrNotFound
	}
	return json.Unmarshal([]byte(val), dest)
}

// fakeGateway реализует repository.QuizGateway поверх заранее заданного
// списка вопросов с серверной пагинацией
type fakeGateway struct {
	mu          sync.Mutex
	title       string
	durationMin int
	questions   []entity.Question
	pageSize    int

	fetchCalls  int
	fetchErr    error
	submitCalls int
	submitErr   error
	lastSubmit  *entity.SubmissionRequest
}

func newFakeGateway(title string, durationMin int, questions []entity.Question, pageSize int) *fakeGateway {
	return &fakeGateway{
		title:       title,
		durationMin: durationMin,
		questions:   questions,
		pageSize:    pageSize,
	}
}

func (g *fakeGateway) FetchAttemptPage(_ context.Context, _ entity.AttemptRef, page int) (*entity.AttemptPage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.fetchCalls++
	if g.fetchErr != nil {
		return nil, g.fetchErr
	}

	total := len(g.questions)
	totalPages := (total + g.pageSize - 1) / g.pageSize
	if page < 1 || page > totalPages {
		return nil, fmt.Errorf("%w: page %d", apperrors.ErrNotFound, page)
	}

	start := (page - 1) * g.pageSize
	end := start + g.pageSize
	if end > total {
		end = total
	}

	return &entity.AttemptPage{
		Meta: entity.AttemptMeta{Title: g.title, DurationMin: g.durationMin},
		Questions: append([]entity.Question(nil), g.questions[start:end]...),
		Pagination: entity.Pagination{
			CurrentPage:    page,
			TotalPages:     totalPages,
			TotalQuestions: total,
			PageSize:       g.pageSize,
		},
	}, nil
}

func (g *fakeGateway) SubmitAttempt(_ context.Context, _ entity.AttemptRef, req *entity.SubmissionRequest) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.submitCalls++
	if g.submitErr != nil {
		return g.submitErr
	}
	g.lastSubmit = req
	return nil
}

func (g *fakeGateway) FetchCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fetchCalls
}

func (g *fakeGateway) SubmitCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.submitCalls
}

func (g *fakeGateway) LastSubmission() *entity.SubmissionRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastSubmit
}

func (g *fakeGateway) SetFetchErr(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fetchErr = err
}

func (g *fakeGateway) SetSubmitErr(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.submitErr = err
}

func (g *fakeGateway) SetPageSize(size int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pageSize = size
}

// fakeReceiptRepo реализует repository.ReceiptRepository в памяти
type fakeReceiptRepo struct {
	mu       sync.Mutex
	receipts map[string]*entity.SubmissionReceipt
}

func newFakeReceiptRepo() *fakeReceiptRepo {
	return &fakeReceiptRepo{receipts: make(map[string]*entity.SubmissionReceipt)}
}

func (r *fakeReceiptRepo) Create(receipt *entity.SubmissionReceipt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.receipts[receipt.AttemptID]; ok {
		return apperrors.ErrAlreadySubmitted
	}
	stored := *receipt
	r.receipts[receipt.AttemptID] = &stored
	return nil
}

func (r *fakeReceiptRepo) GetByAttemptID(attemptID string) (*entity.SubmissionReceipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	receipt, ok := r.receipts[attemptID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *receipt
	return &copied, nil
}

func (r *fakeReceiptRepo) MarkAcknowledged(attemptID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	receipt, ok := r.receipts[attemptID]
	if !ok {
		return apperrors.ErrNotFound
	}
	receipt.Status = entity.ReceiptStatusAcknowledged
	receipt.AcknowledgedAt = &at
	return nil
}

func (r *fakeReceiptRepo) MarkFailed(attemptID string, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	receipt, ok := r.receipts[attemptID]
	if !ok || receipt.IsTerminal() {
		// Подтвержденную запись назад в failed не переводим,
		// как и SQL-фильтр по статусу в реальном репозитории
		return apperrors.ErrNotFound
	}
	receipt.Status = entity.ReceiptStatusFailed
	receipt.FailureReason = reason
	return nil
}

// captureNotifier записывает опубликованные события
type captureNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *captureNotifier) SendEventToAttempt(_ string, eventType string, _ interface{}) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, eventType)
	return nil
}

func (n *captureNotifier) Events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

// ============================================================================
// Вспомогательные конструкторы тестовых данных
// ============================================================================

// makeQuestions генерирует n вопросов: каждый третий — true_false,
// каждый пятый — text, остальные mcq
func makeQuestions(n int) []entity.Question {
	questions := make([]entity.Question, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("q-%d", i+1)
		switch {
		case (i+1)%5 == 0:
			questions = append(questions, entity.Question{
				ID: id, Text: fmt.Sprintf("Вопрос %d", i+1), Type: entity.QuestionTypeText, PointValue: 5,
			})
		case (i+1)%3 == 0:
			questions = append(questions, entity.Question{
				ID: id, Text: fmt.Sprintf("Вопрос %d", i+1), Type: entity.QuestionTypeTrueFalse, PointValue: 2,
				Choices: []entity.Choice{
					{ID: id + "-t", Text: "True"},
					{ID: id + "-f", Text: "False"},
				},
			})
		default:
			questions = append(questions, entity.Question{
				ID: id, Text: fmt.Sprintf("Вопрос %d", i+1), Type: entity.QuestionTypeMCQ, PointValue: 3,
				Choices: []entity.Choice{
					{ID: id + "-a", Text: "Вариант А"},
					{ID: id + "-b", Text: "Вариант Б"},
					{ID: id + "-c", Text: "Вариант В"},
				},
			})
		}
	}
	return questions
}

func testAttemptRef(attemptID string) entity.AttemptRef {
	return entity.AttemptRef{
		AttemptID:    attemptID,
		QuizID:       "quiz-1",
		CourseID:     "course-1",
		EnrollmentID: "enr-1",
		UserID:       "user-1",
	}
}
