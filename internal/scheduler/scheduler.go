// Package scheduler runs a fixed set of named background tasks, each on its
// own interval. A task never overlaps with itself: an in-flight run causes
// the next tick to be skipped, and an optional redis lock extends the same
// guarantee across instances.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

type scheduledTask struct {
	Task
	running atomic.Bool
}

type Scheduler struct {
	logger *slog.Logger
	redis  redis.UniversalClient
	tasks  []*scheduledTask

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// New creates a scheduler. The redis client may be nil, in which case runs
// are only guarded within this process.
func New(logger *slog.Logger, redisClient redis.UniversalClient) *Scheduler {
	return &Scheduler{
		logger: logger,
		redis:  redisClient,
	}
}

func (s *Scheduler) Register(tasks ...Task) {
	for _, task := range tasks {
		s.tasks = append(s.tasks, &scheduledTask{Task: task})
	}
}

// Start launches one goroutine per task. Each task runs once right away and
// then on every tick of its interval.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	for _, task := range s.tasks {
		s.wg.Add(1)

		go func(task *scheduledTask) {
			defer s.wg.Done()

			s.runTask(ctx, task)

			ticker := time.NewTicker(task.Interval)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					s.runTask(ctx, task)
				}
			}
		}(task)
	}
}

// Stop cancels all task contexts and waits for in-flight runs to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}

	s.wg.Wait()
}

func (s *Scheduler) runTask(ctx context.Context, task *scheduledTask) {
	if !task.running.CompareAndSwap(false, true) {
		s.logger.Warn("previous run still in flight, skipping", "task", task.Name)
		return
	}
	defer task.running.Store(false)

	if !s.acquireRunLock(ctx, task) {
		return
	}

	start := time.Now()

	err := task.Run(ctx)
	if err != nil {
		s.logger.Error("task failed", "task", task.Name, "error", err, "duration", time.Since(start))
		return
	}

	s.logger.Info("task completed", "task", task.Name, "duration", time.Since(start))
}

// acquireRunLock claims the cross-instance lock for this interval. The lock
// expires with the interval, so each window is processed by one instance.
// A redis outage degrades to local-only guarding rather than stopping sweeps.
func (s *Scheduler) acquireRunLock(ctx context.Context, task *scheduledTask) bool {
	if s.redis == nil {
		return true
	}

	ok, err := s.redis.SetNX(ctx, "sweep_lock:"+task.Name, time.Now().Unix(), task.Interval).Result()
	if err != nil {
		s.logger.Warn("failed to acquire run lock, running unguarded", "task", task.Name, "error", err)
		return true
	}

	if !ok {
		s.logger.Debug("run lock held by another instance, skipping", "task", task.Name)
	}

	return ok
}
