package attemptruntime

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/yourusername/attempt-runtime/internal/domain/entity"
	apperrors "github.com/yourusername/attempt-runtime/internal/pkg/errors"
)

// Manager держит реестр живых рантаймов процесса, по одному на попытку.
// Это гарантия отсутствия второго драйвера отсчета для той же попытки
// в одном процессе: двойной драйвер удваивал бы декремент и отправку.
// Между процессами ту же роль играет лизинг владельца в Redis.
type Manager struct {
	cfg  *Config
	deps *Dependencies

	mu     sync.Mutex
	active map[string]*Runtime

	// Одновременные входы в одну попытку схлопываются на один запуск
	flight singleflight.Group
}

// NewManager создает новый менеджер рантаймов
func NewManager(cfg *Config, deps *Dependencies) *Manager {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Manager{
		cfg:    cfg,
		deps:   deps,
		active: make(map[string]*Runtime),
	}
}

// Enter входит в попытку: возвращает уже живой рантайм или создает и
// запускает новый. Повторный вход в уже отправленную попытку отклоняется,
// вход в чужую попытку — тоже: рантайм принадлежит ученику, который его
// запустил.
func (m *Manager) Enter(ctx context.Context, ref entity.AttemptRef) (*Runtime, error) {
	if !ref.IsComplete() {
		return nil, fmt.Errorf("%w: attempt, quiz, course and enrollment ids are all required", apperrors.ErrValidation)
	}

	v, err, _ := m.flight.Do(ref.AttemptID, func() (interface{}, error) {
		rt, err := m.enter(ctx, ref)
		if err != nil {
			return nil, err
		}
		return rt, nil
	})
	if err != nil {
		return nil, err
	}

	runtime := v.(*Runtime)
	if runtime.Ref().UserID != ref.UserID {
		log.Printf("[RuntimeManager] Попытка %s: вход пользователя %s отклонен, рантайм принадлежит другому пользователю", ref.AttemptID, ref.UserID)
		return nil, fmt.Errorf("%w: attempt %s belongs to another user", apperrors.ErrUnauthorized, ref.AttemptID)
	}
	return runtime, nil
}

func (m *Manager) enter(ctx context.Context, ref entity.AttemptRef) (*Runtime, error) {
	m.mu.Lock()
	if existing, ok := m.active[ref.AttemptID]; ok {
		m.mu.Unlock()
		log.Printf("[RuntimeManager] Попытка %s уже активна в этом процессе, возвращаем существующий рантайм", ref.AttemptID)
		return existing, nil
	}
	m.mu.Unlock()

	ownerID := uuid.NewString()
	runtime := newRuntime(ref, ownerID, m.cfg, m.deps, m.remove)

	if err := runtime.start(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if runtime.isTerminated() {
		// Нулевой остаток: автоотправка по истечению успела свернуть рантайм
		// еще на старте. В реестр его не кладем, иначе мертвый рантайм
		// застрянет в нем навсегда.
		return runtime, nil
	}
	m.active[ref.AttemptID] = runtime
	return runtime, nil
}

// Get возвращает живой рантайм попытки, если он есть
func (m *Manager) Get(attemptID string) (*Runtime, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rt, ok := m.active[attemptID]
	return rt, ok
}

// ActiveCount возвращает число живых рантаймов
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

// Shutdown закрывает все живые рантаймы (graceful shutdown процесса)
func (m *Manager) Shutdown() {
	m.mu.Lock()
	runtimes := make([]*Runtime, 0, len(m.active))
	for _, rt := range m.active {
		runtimes = append(runtimes, rt)
	}
	m.mu.Unlock()

	for _, rt := range runtimes {
		rt.Close()
	}
	log.Printf("[RuntimeManager] Остановлено рантаймов: %d", len(runtimes))
}

func (m *Manager) remove(attemptID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.active, attemptID)
}
