package tasks

// TaskSchedulerInterface defines the interface for background task scheduling.
// Used by the main application in serve mode to run periodic crawl and
// processing cycles.
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	TriggerCycle() error
}
