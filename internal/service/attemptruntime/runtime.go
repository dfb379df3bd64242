package attemptruntime

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/yourusername/attempt-runtime/internal/domain/entity"
	apperrors "github.com/yourusername/attempt-runtime/internal/pkg/errors"
)

// Runtime — живой рантайм одной попытки: пейджер, навигация, аккумулятор,
// отсчет и отправка, связанные вместе. Создается менеджером на входе в
// попытку и живет до отправки или явного закрытия.
type Runtime struct {
	ref     entity.AttemptRef
	ownerID string
	cfg     *Config
	deps    *Dependencies

	deadlines *DeadlineStore
	guard     *SubmissionGuard
	pager     *QuestionPager
	nav       *NavigationController
	acc       *AnswerAccumulator
	countdown *CountdownDriver

	// baseCtx управляет жизнью горутины отсчета независимо от
	// контекстов отдельных HTTP-запросов
	baseCtx    context.Context
	baseCancel context.CancelFunc

	mu              sync.Mutex
	closed          bool
	submitInFlight  bool
	submitSucceeded bool
	guardMarked     bool
	receiptCreated  bool

	// onTerminated уведомляет менеджер о завершении рантайма
	onTerminated func(attemptID string)
}

// newRuntime собирает рантайм попытки; запускается отдельно через start
func newRuntime(ref entity.AttemptRef, ownerID string, cfg *Config, deps *Dependencies, onTerminated func(string)) *Runtime {
	baseCtx, baseCancel := context.WithCancel(context.Background())

	r := &Runtime{
		ref:          ref,
		ownerID:      ownerID,
		cfg:          cfg,
		deps:         deps,
		baseCtx:      baseCtx,
		baseCancel:   baseCancel,
		onTerminated: onTerminated,
	}

	r.deadlines = NewDeadlineStore(deps.CacheRepo, cfg.StateRetention)
	r.guard = NewSubmissionGuard(deps.CacheRepo, cfg.GuardRetention, cfg.LeaseTTL)
	r.pager = NewQuestionPager(deps.QuizGateway, ref)
	r.nav = NewNavigationController(r.pager)
	r.acc = NewAnswerAccumulator(deps.CacheRepo, ref.AttemptID, cfg.StateRetention, cfg.PersistAnswers)
	r.countdown = NewCountdownDriver(r.deadlines, ref.AttemptID, cfg.TickInterval, r.handleTick, r.handleExpire)

	return r
}

// start выполняет последовательность входа в попытку: проверка флага
// отправки, захват лизинга, первая страница, посев дедлайна, восстановление
// ответов, запуск отсчета. Любая неудача до запуска отсчета оставляет
// попытку нетронутой для следующего входа.
func (r *Runtime) start(ctx context.Context) error {
	// Проверяется один раз на входе: уже отправленная попытка не рендерится
	submitted, err := r.guard.IsAlreadySubmitted(r.ref.AttemptID)
	if err != nil {
		return err
	}
	if submitted {
		return fmt.Errorf("%w: attempt %s", apperrors.ErrAlreadySubmitted, r.ref.AttemptID)
	}

	if err := r.guard.AcquireLease(r.ref.AttemptID, r.ownerID); err != nil {
		return err
	}

	// Первая страница несет метаданные попытки (название, длительность)
	if _, err := r.nav.GoTo(ctx, 0); err != nil {
		r.releaseLease()
		return err
	}

	meta := r.pager.Meta()
	if meta == nil {
		r.releaseLease()
		return fmt.Errorf("upstream did not return attempt metadata for %s", r.ref.AttemptID)
	}

	seed, err := r.deadlines.Seed(r.ref.AttemptID, meta.DurationMin)
	if err != nil {
		r.releaseLease()
		return err
	}

	if err := r.acc.Restore(); err != nil {
		log.Printf("[Runtime] WARNING: Не удалось восстановить ответы попытки %s: %v", r.ref.AttemptID, err)
	}

	if err := r.countdown.Start(r.baseCtx, seed); err != nil {
		r.releaseLease()
		return err
	}

	log.Printf("[Runtime] Попытка %s запущена: %q, остаток %d сек., владелец %s",
		r.ref.AttemptID, meta.Title, seed, r.ownerID)
	return nil
}

// handleTick вызывается драйвером после персиста нового остатка
func (r *Runtime) handleTick(secondsLeft int) {
	if r.deps.Notifier != nil {
		event := map[string]interface{}{
			"attempt_id":   r.ref.AttemptID,
			"seconds_left": secondsLeft,
		}
		if err := r.deps.Notifier.SendEventToAttempt(r.ref.AttemptID, EventAttemptTick, event); err != nil {
			log.Printf("[Runtime] Не удалось отправить тик попытки %s: %v", r.ref.AttemptID, err)
		}
	}

	if err := r.guard.RefreshLease(r.ref.AttemptID, r.ownerID); err != nil {
		log.Printf("[Runtime] WARNING: Не удалось продлить лизинг попытки %s: %v", r.ref.AttemptID, err)
	}
}

// handleExpire вызывается драйвером ровно один раз на нуле.
// Отправка в отдельной горутине: колбэк исполняется внутри горутины
// таймера, а Submit останавливает таймер.
func (r *Runtime) handleExpire() {
	if r.deps.Notifier != nil {
		event := map[string]interface{}{"attempt_id": r.ref.AttemptID}
		if err := r.deps.Notifier.SendEventToAttempt(r.ref.AttemptID, EventAttemptExpired, event); err != nil {
			log.Printf("[Runtime] Не удалось отправить событие истечения попытки %s: %v", r.ref.AttemptID, err)
		}
	}

	go func() {
		if err := r.Submit(context.Background(), "timer"); err != nil {
			log.Printf("[Runtime] Автоотправка попытки %s не удалась: %v", r.ref.AttemptID, err)
		}
	}()
}

// ensureOpen отклоняет операции над завершенным рантаймом: поздние запросы
// после отправки или закрытия отбрасываются, а не исполняются на остатках
// состояния.
func (r *Runtime) ensureOpen() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.submitSucceeded {
		return fmt.Errorf("%w: attempt %s", apperrors.ErrAlreadySubmitted, r.ref.AttemptID)
	}
	if r.closed {
		return fmt.Errorf("%w: attempt %s runtime is closed", apperrors.ErrConflict, r.ref.AttemptID)
	}
	return nil
}

// isTerminated сообщает, что рантайм уже свернулся (отправка или Close)
func (r *Runtime) isTerminated() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Answer записывает ответ ученика. Вопрос должен быть на уже загруженной
// странице — ответ на неизвестный вопрос невозможен по построению навигации.
func (r *Runtime) Answer(questionID, choiceID, text string) error {
	if err := r.ensureOpen(); err != nil {
		return err
	}

	if r.countdown.State() == CountdownExpired {
		return fmt.Errorf("%w: attempt %s", apperrors.ErrExpired, r.ref.AttemptID)
	}

	question, ok := r.pager.QuestionByID(questionID)
	if !ok {
		return fmt.Errorf("%w: question %s is not on a fetched page", apperrors.ErrValidation, questionID)
	}

	if choiceID != "" {
		if !question.HasChoices() {
			return fmt.Errorf("%w: question %s does not take a choice answer", apperrors.ErrValidation, questionID)
		}
		if _, found := question.ChoiceByID(choiceID); !found {
			return fmt.Errorf("%w: unknown choice %s for question %s", apperrors.ErrValidation, choiceID, questionID)
		}
	}

	answer := entity.Answer{ChoiceID: choiceID, Text: text}
	if answer.IsEmpty() {
		return fmt.Errorf("%w: empty answer for question %s", apperrors.ErrValidation, questionID)
	}

	r.acc.Set(questionID, answer)
	return nil
}

// GoTo переходит к вопросу по глобальному индексу
func (r *Runtime) GoTo(ctx context.Context, globalIndex int) (*Position, error) {
	if err := r.ensureOpen(); err != nil {
		return nil, err
	}
	return r.nav.GoTo(ctx, globalIndex)
}

// Next переходит к следующему вопросу
func (r *Runtime) Next(ctx context.Context) (*Position, error) {
	if err := r.ensureOpen(); err != nil {
		return nil, err
	}
	return r.nav.Next(ctx)
}

// Previous переходит к предыдущему вопросу
func (r *Runtime) Previous(ctx context.Context) (*Position, error) {
	if err := r.ensureOpen(); err != nil {
		return nil, err
	}
	return r.nav.Previous(ctx)
}

// Page загружает страницу вопросов, не смещая текущую позицию навигации.
// Повторный запрос уже загруженной страницы отдается из кэша пейджера.
func (r *Runtime) Page(ctx context.Context, page int) ([]entity.Question, entity.Pagination, error) {
	if err := r.ensureOpen(); err != nil {
		return nil, entity.Pagination{}, err
	}
	if page < 1 {
		return nil, entity.Pagination{}, fmt.Errorf("%w: page must be >= 1, got %d", apperrors.ErrValidation, page)
	}
	questions, err := r.pager.FetchPage(ctx, page)
	if err != nil {
		return nil, entity.Pagination{}, err
	}
	return questions, r.pager.Pagination(), nil
}

// Submit собирает payload и отправляет его на грейдинг-эндпоинт.
// Флаг отправки ставится ДО сетевого вызова: после первой диспетчеризации
// второй конкурентный сабмит (двойной клик, гонка с автоотправкой по
// таймеру, перезагрузка) невозможен. Неудачная отправка оставляет флаг
// стоять; повторить можно только из этого же живого рантайма.
func (r *Runtime) Submit(ctx context.Context, trigger string) error {
	r.mu.Lock()
	if r.submitSucceeded || r.closed {
		r.mu.Unlock()
		return fmt.Errorf("%w: attempt %s", apperrors.ErrAlreadySubmitted, r.ref.AttemptID)
	}
	if r.submitInFlight {
		r.mu.Unlock()
		return fmt.Errorf("%w: submission for attempt %s is already in flight", apperrors.ErrConflict, r.ref.AttemptID)
	}
	r.submitInFlight = true
	alreadyMarked := r.guardMarked
	r.mu.Unlock()

	finishInFlight := func() {
		r.mu.Lock()
		r.submitInFlight = false
		r.mu.Unlock()
	}

	// Чужой флаг (другой процесс успел отправить) блокирует нас тоже
	if !alreadyMarked {
		submitted, err := r.guard.IsAlreadySubmitted(r.ref.AttemptID)
		if err != nil {
			finishInFlight()
			return err
		}
		if submitted {
			finishInFlight()
			return fmt.Errorf("%w: attempt %s", apperrors.ErrAlreadySubmitted, r.ref.AttemptID)
		}

		// Оптимистичная отметка до диспетчеризации
		if err := r.guard.MarkSubmitted(r.ref.AttemptID); err != nil {
			finishInFlight()
			return err
		}
		r.mu.Lock()
		r.guardMarked = true
		r.mu.Unlock()
	}

	answers := r.acc.GetAll()
	questions := r.pager.FetchedQuestions()
	entries := BuildSubmission(answers, questions)
	endTime := time.Now().UTC()

	log.Printf("[Runtime] Попытка %s: отправка %d ответов (триггер: %s)", r.ref.AttemptID, len(entries), trigger)

	// Долговременная журнальная запись об отправке. Ошибка журнала не
	// блокирует отправку: первичный guard уже стоит в Redis.
	r.mu.Lock()
	needReceipt := !r.receiptCreated
	r.mu.Unlock()
	if needReceipt {
		receipt := &entity.SubmissionReceipt{
			AttemptID:    r.ref.AttemptID,
			QuizID:       r.ref.QuizID,
			CourseID:     r.ref.CourseID,
			UserID:       r.ref.UserID,
			AnswerCount:  len(entries),
			Status:       entity.ReceiptStatusDispatched,
			EndTime:      endTime,
			DispatchedAt: endTime,
		}
		if err := r.deps.ReceiptRepo.Create(receipt); err != nil {
			if errors.Is(err, apperrors.ErrAlreadySubmitted) {
				finishInFlight()
				return fmt.Errorf("%w: attempt %s (durable journal)", apperrors.ErrAlreadySubmitted, r.ref.AttemptID)
			}
			log.Printf("[Runtime] WARNING: Не удалось создать журнальную запись для попытки %s: %v", r.ref.AttemptID, err)
		}
		r.mu.Lock()
		r.receiptCreated = true
		r.mu.Unlock()
	}

	submission := &entity.SubmissionRequest{
		AttemptID:   r.ref.AttemptID,
		UserAnswers: entries,
		EndTime:     endTime,
	}

	if err := r.deps.QuizGateway.SubmitAttempt(ctx, r.ref, submission); err != nil {
		finishInFlight()
		if markErr := r.deps.ReceiptRepo.MarkFailed(r.ref.AttemptID, err.Error()); markErr != nil {
			log.Printf("[Runtime] Не удалось отметить неудачную отправку попытки %s в журнале: %v", r.ref.AttemptID, markErr)
		}
		return err
	}

	// Подтверждение получено: финализируем состояние попытки
	r.mu.Lock()
	r.submitInFlight = false
	r.submitSucceeded = true
	r.closed = true
	r.mu.Unlock()

	r.countdown.Stop()

	if err := r.deps.ReceiptRepo.MarkAcknowledged(r.ref.AttemptID, time.Now().UTC()); err != nil {
		log.Printf("[Runtime] Не удалось отметить подтверждение попытки %s в журнале: %v", r.ref.AttemptID, err)
	}
	if err := r.deadlines.Clear(r.ref.AttemptID); err != nil {
		log.Printf("[Runtime] Не удалось удалить запись дедлайна попытки %s: %v", r.ref.AttemptID, err)
	}
	if err := r.acc.Clear(); err != nil {
		log.Printf("[Runtime] Не удалось удалить зеркало ответов попытки %s: %v", r.ref.AttemptID, err)
	}
	r.releaseLease()

	if r.deps.Notifier != nil {
		event := map[string]interface{}{
			"attempt_id":   r.ref.AttemptID,
			"answer_count": len(entries),
		}
		if err := r.deps.Notifier.SendEventToAttempt(r.ref.AttemptID, EventAttemptSubmitted, event); err != nil {
			log.Printf("[Runtime] Не удалось отправить событие отправки попытки %s: %v", r.ref.AttemptID, err)
		}
	}

	r.baseCancel()
	if r.onTerminated != nil {
		r.onTerminated(r.ref.AttemptID)
	}

	log.Printf("[Runtime] Попытка %s успешно отправлена (%d ответов)", r.ref.AttemptID, len(entries))
	return nil
}

// Snapshot — наблюдаемое состояние рантайма для HTTP-слоя
type Snapshot struct {
	AttemptID      string
	Title          string
	DurationMin    int
	SecondsLeft    int
	CountdownState string
	AnsweredCount  int
	Submitted      bool
	Position       *Position
}

// State возвращает снимок текущего состояния попытки
func (r *Runtime) State() (*Snapshot, error) {
	r.mu.Lock()
	submitted := r.submitSucceeded
	r.mu.Unlock()

	meta := r.pager.Meta()
	if meta == nil {
		return nil, fmt.Errorf("attempt %s metadata is not loaded", r.ref.AttemptID)
	}

	secondsLeft := 0
	if !submitted {
		remaining, err := r.deadlines.Remaining(r.ref.AttemptID)
		if err == nil {
			secondsLeft = remaining
		} else if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
	}

	position, err := r.nav.Current()
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		AttemptID:      r.ref.AttemptID,
		Title:          meta.Title,
		DurationMin:    meta.DurationMin,
		SecondsLeft:    secondsLeft,
		CountdownState: r.countdown.State().String(),
		AnsweredCount:  r.acc.Len(),
		Submitted:      submitted,
		Position:       position,
	}, nil
}

// Close — teardown рантайма без отправки (уход со страницы, завершение
// процесса). Таймер останавливается детерминированно, лизинг освобождается,
// запись дедлайна остается: при повторном входе отсчет продолжится с
// сохраненного остатка.
func (r *Runtime) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	r.countdown.Stop()
	r.baseCancel()
	r.releaseLease()

	if r.onTerminated != nil {
		r.onTerminated(r.ref.AttemptID)
	}
	log.Printf("[Runtime] Попытка %s закрыта без отправки", r.ref.AttemptID)
}

// Ref возвращает идентификаторы попытки
func (r *Runtime) Ref() entity.AttemptRef {
	return r.ref
}

func (r *Runtime) releaseLease() {
	if err := r.guard.ReleaseLease(r.ref.AttemptID, r.ownerID); err != nil {
		log.Printf("[Runtime] Не удалось освободить лизинг попытки %s: %v", r.ref.AttemptID, err)
	}
}
