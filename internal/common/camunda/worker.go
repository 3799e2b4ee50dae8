// internal/common/camunda/worker.go
package camunda

import (
	"time"

	"health-reminders/internal/common/config"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.uber.org/zap"
)

// JobHandler processes one activated job. Handlers complete or fail the job
// themselves; a returned error is only logged.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job) error
}

// Worker is one open job subscription for a task type.
type Worker struct {
	worker   worker.JobWorker
	logger   *zap.Logger
	taskType string
}

// NewWorker opens a job worker for taskType on the shared client.
func NewWorker(client zbc.Client, taskType string, cfg config.WorkerConfig, handler JobHandler, logger *zap.Logger) *Worker {
	logger = logger.With(zap.String("taskType", taskType))

	step := client.NewJobWorker().
		JobType(taskType).
		Handler(func(client worker.JobClient, job entities.Job) {
			if err := handler.Handle(client, job); err != nil {
				logger.Error("handler returned error", zap.Error(err), zap.Int64("jobKey", job.Key))
			}
		}).
		MaxJobsActive(cfg.MaxJobsActive)
	if cfg.Timeout > 0 {
		step = step.Timeout(time.Duration(cfg.Timeout) * time.Millisecond)
	}

	w := &Worker{worker: step.Open(), logger: logger, taskType: taskType}
	logger.Info("worker started", zap.Int("maxJobsActive", cfg.MaxJobsActive))
	return w
}

// TaskType returns the job type the worker subscribes to.
func (w *Worker) TaskType() string { return w.taskType }

// Stop closes the subscription and waits for in-flight jobs. The shared
// client stays open.
func (w *Worker) Stop() {
	w.logger.Info("stopping worker")
	w.worker.Close()
	w.worker.AwaitClose()
}
