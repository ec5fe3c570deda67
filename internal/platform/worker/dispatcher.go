// Package worker runs background tasks keyed by record id.
package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

// DefaultWorkers is the number of tasks allowed to run at the same time.
const DefaultWorkers = 4

// ErrClosed is returned by TrySchedule after Shutdown has been called.
var ErrClosed = errors.New("dispatcher is shut down")

// TaskFunc is the work executed for one scheduled id. Failures are the
// task's own concern; the dispatcher never sees them.
type TaskFunc func(ctx context.Context, id uint)

// Config はディスパッチャーの設定です。
type Config struct {
	Workers int // 同時実行数の上限
}

// Dispatcher はスケジュールされたIDごとに独立したタスクを非同期実行します。
// Schedule は呼び出し元をブロックせず、同時実行数はセマフォで制限されます。
// 待機中のタスク数には上限がありません。同じIDの重複排除は行いません。
type Dispatcher struct {
	run TaskFunc
	sem *semaphore.Weighted

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher creates a Dispatcher that runs fn for every scheduled id.
func NewDispatcher(fn TaskFunc, cfg Config) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		run:    fn,
		sem:    semaphore.NewWeighted(int64(cfg.Workers)),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Schedule enqueues a task for id and returns immediately. Schedules after
// Shutdown are dropped with a warning.
func (d *Dispatcher) Schedule(id uint) {
	if err := d.TrySchedule(id); err != nil {
		log.Warn().Err(err).Uint("stock_id", id).Msg("task not scheduled")
	}
}

// TrySchedule is Schedule with the rejection reported to the caller.
func (d *Dispatcher) TrySchedule(id uint) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}

	d.wg.Add(1)
	go d.execute(uuid.NewString(), id)
	return nil
}

func (d *Dispatcher) execute(taskID string, id uint) {
	defer d.wg.Done()

	logger := log.With().Str("task_id", taskID).Uint("stock_id", id).Logger()
	if err := d.sem.Acquire(d.ctx, 1); err != nil {
		logger.Warn().Err(err).Msg("task dropped before start")
		return
	}
	defer d.sem.Release(1)

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("task panicked")
		}
	}()

	logger.Debug().Msg("task started")
	d.run(logger.WithContext(d.ctx), id)
}

// Shutdown はタスクの受け付けを停止し、実行中・待機中のタスクの完了を待ちます。
// ctx が先に終了した場合は残りのタスクのコンテキストをキャンセルして ctx.Err() を返します。
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		return ctx.Err()
	}
}
