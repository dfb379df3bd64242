package attemptruntime

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	apperrors "github.com/yourusername/attempt-runtime/internal/pkg/errors"
)

// Состояния обратного отсчета
type CountdownState int32

const (
	CountdownIdle CountdownState = iota
	CountdownRunning
	CountdownExpired
)

// String возвращает строковое представление состояния
func (s CountdownState) String() string {
	switch s {
	case CountdownIdle:
		return "idle"
	case CountdownRunning:
		return "running"
	case CountdownExpired:
		return "expired"
	}
	return "unknown"
}

// CountdownDriver — односекундный повторяющийся таймер попытки.
// Машина состояний Idle -> Running -> Expired: на каждом тике остаток
// декрементируется и немедленно персистится, на нуле ровно один раз
// вызывается onExpire и тики прекращаются. Паузы/возобновления нет —
// отсчет непрерывен и останавливается только истечением или отправкой.
type CountdownDriver struct {
	store     *DeadlineStore
	attemptID string
	interval  time.Duration

	state      atomic.Int32
	cancel     context.CancelFunc
	cancelMu   sync.Mutex
	done       chan struct{}
	expireOnce sync.Once

	// onTick вызывается с новым остатком после его персиста
	onTick func(secondsLeft int)
	// onExpire вызывается ровно один раз при достижении нуля
	onExpire func()
}

// NewCountdownDriver создает новый драйвер отсчета
func NewCountdownDriver(store *DeadlineStore, attemptID string, interval time.Duration, onTick func(int), onExpire func()) *CountdownDriver {
	if interval <= 0 {
		interval = 1 * time.Second
	}
	return &CountdownDriver{
		store:     store,
		attemptID: attemptID,
		interval:  interval,
		onTick:    onTick,
		onExpire:  onExpire,
	}
}

// Start запускает отсчет от seedSeconds. Повторный запуск — ошибка:
// два драйвера на одну попытку удваивали бы декремент и отправку.
func (d *CountdownDriver) Start(ctx context.Context, seedSeconds int) error {
	if !d.state.CompareAndSwap(int32(CountdownIdle), int32(CountdownRunning)) {
		return fmt.Errorf("%w: countdown for attempt %s is already started", apperrors.ErrConflict, d.attemptID)
	}

	if seedSeconds <= 0 {
		// Время уже истекло (например, перезагрузка после нуля)
		d.state.Store(int32(CountdownExpired))
		d.fireExpire()
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancelMu.Lock()
	d.cancel = cancel
	d.done = make(chan struct{})
	d.cancelMu.Unlock()

	go d.run(runCtx, seedSeconds)
	log.Printf("[CountdownDriver] Попытка %s: отсчет запущен с %d сек.", d.attemptID, seedSeconds)
	return nil
}

// Stop детерминированно останавливает тики (teardown при завершении
// рантайма). Ожидает выхода горутины таймера.
func (d *CountdownDriver) Stop() {
	d.cancelMu.Lock()
	cancel := d.cancel
	done := d.done
	d.cancelMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// State возвращает текущее состояние машины
func (d *CountdownDriver) State() CountdownState {
	return CountdownState(d.state.Load())
}

func (d *CountdownDriver) run(ctx context.Context, seedSeconds int) {
	defer close(d.done)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	remaining := seedSeconds
	for {
		select {
		case <-ticker.C:
			remaining--
			if remaining < 0 {
				remaining = 0
			}

			// Персистим сразу: перезагрузка в середине секунды теряет
			// не больше секунды точности
			if err := d.store.Tick(d.attemptID, remaining); err != nil {
				log.Printf("[CountdownDriver] WARNING: Не удалось сохранить остаток %d для попытки %s: %v",
					remaining, d.attemptID, err)
			}

			if d.onTick != nil {
				d.onTick(remaining)
			}

			if remaining <= 0 {
				log.Printf("[CountdownDriver] Попытка %s: время истекло, запуск автоотправки", d.attemptID)
				d.state.Store(int32(CountdownExpired))
				d.fireExpire()
				return
			}

		case <-ctx.Done():
			log.Printf("[CountdownDriver] Попытка %s: отсчет остановлен", d.attemptID)
			return
		}
	}
}

func (d *CountdownDriver) fireExpire() {
	d.expireOnce.Do(func() {
		if d.onExpire != nil {
			d.onExpire()
		}
	})
}
