package tasks

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lysyi3m/keepit/app/cfg"
	"github.com/lysyi3m/keepit/app/database"
)

type countingTask struct {
	Task
	runs     *atomic.Int32
	failures int32
}

func (t *countingTask) Execute(ctx context.Context) error {
	n := t.runs.Add(1)
	if n <= t.failures {
		return errors.New("temporary failure")
	}
	return nil
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("Condition not met before timeout")
}

func TestScheduler_RunsPeriodicTasksAtStartup(t *testing.T) {
	var runs atomic.Int32

	scheduler := NewScheduler(0, 2, func() TaskInterface {
		return &countingTask{Task: NewTask(TaskTypeReindexSearch), runs: &runs}
	})
	scheduler.Start()
	defer scheduler.Stop()

	waitFor(t, 2*time.Second, func() bool { return runs.Load() == 1 })
}

func TestScheduler_RunsOnTick(t *testing.T) {
	var runs atomic.Int32

	scheduler := NewScheduler(50*time.Millisecond, 1, func() TaskInterface {
		return &countingTask{Task: NewTask(TaskTypeReindexSearch), runs: &runs}
	})
	scheduler.Start()
	defer scheduler.Stop()

	waitFor(t, 2*time.Second, func() bool { return runs.Load() >= 3 })
}

func TestScheduler_RetriesFailedTask(t *testing.T) {
	var runs atomic.Int32

	scheduler := NewScheduler(0, 1)
	scheduler.Start()
	defer scheduler.Stop()

	task := &countingTask{Task: NewTask(TaskTypeReindexSearch), runs: &runs, failures: 1}
	if err := scheduler.EnqueueTask(task); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	waitFor(t, 3*time.Second, func() bool { return runs.Load() == 2 })

	if task.Retries != 1 {
		t.Errorf("Expected retry count 1, got %d", task.Retries)
	}
}

func TestScheduler_EnqueueAfterStop(t *testing.T) {
	scheduler := NewScheduler(0, 1)
	scheduler.Start()
	scheduler.Stop()

	var runs atomic.Int32
	err := scheduler.EnqueueTask(&countingTask{Task: NewTask(TaskTypeReindexSearch), runs: &runs})
	if err == nil {
		t.Error("Expected error when enqueueing after stop")
	}
}

func TestRetryDelayFor(t *testing.T) {
	tests := []struct {
		retryCount int
		expected   time.Duration
	}{
		{0, time.Second},
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{6, 30 * time.Second},
		{10, 30 * time.Second},
	}

	for _, tt := range tests {
		if got := retryDelayFor(tt.retryCount); got != tt.expected {
			t.Errorf("retryDelayFor(%d): expected %v, got %v", tt.retryCount, tt.expected, got)
		}
	}
}

func TestTask_CanRetry(t *testing.T) {
	task := NewTask(TaskTypeReindexSearch)

	for i := 0; i < DefaultMaxRetries; i++ {
		if !task.CanRetry() {
			t.Fatalf("Expected retry to be allowed after %d attempts", i)
		}
		task.Retries++
	}

	if task.CanRetry() {
		t.Error("Expected no retries left")
	}
}

type fakeRebuilder struct {
	count int
	err   error
	calls int
}

func (f *fakeRebuilder) Rebuild(ctx context.Context, repo database.ItemRepository) (int, error) {
	f.calls++
	return f.count, f.err
}

func TestReindexSearchTask_Execute(t *testing.T) {
	rebuilder := &fakeRebuilder{count: 7}
	task := NewReindexSearchTask(rebuilder, nil)
	task.StartedAt = time.Now()

	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if rebuilder.calls != 1 {
		t.Errorf("Expected 1 rebuild, got %d", rebuilder.calls)
	}

	rebuilder.err = errors.New("disk full")
	if err := task.Execute(context.Background()); err == nil {
		t.Error("Expected rebuild error to be returned")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := task.Execute(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got: %v", err)
	}
}

func TestNewConfiguredScheduler(t *testing.T) {
	if _, err := cfg.LoadArgs([]string{"--scheduler-interval", "120", "--worker-count", "3"}); err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}

	scheduler := NewConfiguredScheduler()

	if scheduler.interval != 2*time.Minute {
		t.Errorf("Expected interval 2m, got %v", scheduler.interval)
	}
	if scheduler.workerCount != 3 {
		t.Errorf("Expected 3 workers, got %d", scheduler.workerCount)
	}
}
