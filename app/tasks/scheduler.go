package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/keepit/app/cfg"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

const (
	queueSize     = 100
	taskTimeout   = 5 * time.Minute
	maxRetryDelay = 30 * time.Second
)

// TaskFactory builds a fresh task for each periodic run.
type TaskFactory func() TaskInterface

// Scheduler runs tasks on a fixed worker pool. Periodic tasks are enqueued
// once at startup and then on every tick.
type Scheduler struct {
	periodic    []TaskFactory
	interval    time.Duration
	workerCount int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface
}

func NewScheduler(interval time.Duration, workerCount int, periodic ...TaskFactory) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		periodic:    periodic,
		interval:    interval,
		workerCount: max(workerCount, 1),
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, queueSize),
	}
}

// NewConfiguredScheduler takes the interval and worker count from the loaded configuration.
func NewConfiguredScheduler(periodic ...TaskFactory) *Scheduler {
	cfg := cfg.Get()

	return NewScheduler(time.Duration(cfg.SchedulerInterval)*time.Second, cfg.WorkerCount, periodic...)
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.enqueuePeriodic()

		if s.interval <= 0 {
			return
		}

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueuePeriodic()
			}
		}
	}()

	slog.Info("Scheduler started", "workers", s.workerCount, "interval", s.interval, "periodic_tasks", len(s.periodic))
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	slog.Info("Scheduler stopped")
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
	}

	select {
	case s.taskQueue <- task:
		return nil
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueuePeriodic() {
	for _, factory := range s.periodic {
		task := factory()
		if err := s.EnqueueTask(task); err != nil {
			slog.Warn("Failed to enqueue task", "type", string(task.State().Type), "error", err)
		}
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	state := task.State()
	state.StartedAt = time.Now()

	taskCtx, cancel := context.WithTimeout(s.ctx, taskTimeout)
	defer cancel()

	err := task.Execute(taskCtx)
	if err == nil {
		return
	}

	log := slog.With("type", string(state.Type), "id", state.ID)
	log.Error("Worker task execution failed", "worker_id", workerID, "retry_count", state.Retries, "error", err)

	if !state.CanRetry() {
		log.Error("Task failed after maximum retries", "max_retries", state.MaxRetries, "last_error", err)
		return
	}

	state.Retries++
	retryDelay := retryDelayFor(state.Retries)

	log.Warn("Task retry scheduled", "retry_count", state.Retries, "max_retries", state.MaxRetries, "delay", retryDelay.String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		timer := time.NewTimer(retryDelay)
		defer timer.Stop()

		select {
		case <-s.ctx.Done():
			log.Debug("Scheduler stopped, skipping task retry")
		case <-timer.C:
			if retryErr := s.EnqueueTask(task); retryErr != nil {
				log.Error("Failed to re-enqueue task for retry", "error", retryErr)
			}
		}
	}()
}

// retryDelayFor doubles from one second per attempt, capped at maxRetryDelay.
func retryDelayFor(retryCount int) time.Duration {
	if retryCount < 1 {
		retryCount = 1
	}
	delay := time.Duration(1<<uint(retryCount-1)) * time.Second
	return min(delay, maxRetryDelay)
}
