package tasks

// TaskSchedulerInterface is what main needs to run background maintenance.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}
