package camunda

import (
	"context"
	"time"

	"payment-workers/internal/common/config"
	"payment-workers/internal/common/logger"
	"payment-workers/internal/common/metrics"
	"payment-workers/internal/common/observability"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// JobHandler is the zeebe handler signature every payment worker implements.
type JobHandler = worker.JobHandler

type Worker struct {
	worker   worker.JobWorker
	taskType string
	logger   logger.Logger
}

// StartWorker opens a job worker for taskType. Returns nil when the worker is
// disabled in config.
func StartWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handle JobHandler, obs *observability.Observability, log logger.Logger) *Worker {
	log = log.WithFields(map[string]interface{}{"taskType": taskType})
	if !wcfg.Enabled {
		log.Info("worker disabled", nil)
		return nil
	}

	jobWorker := client.NewJobWorker().
		JobType(taskType).
		Handler(Instrument(taskType, handle, obs)).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(time.Duration(wcfg.Timeout) * time.Millisecond).
		Open()

	log.Info("worker started", map[string]interface{}{
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeout_ms":    wcfg.Timeout,
	})

	return &Worker{worker: jobWorker, taskType: taskType, logger: log}
}

// Instrument wraps handle with the active-jobs gauge and job metrics.
func Instrument(taskType string, handle JobHandler, obs *observability.Observability) JobHandler {
	return func(client worker.JobClient, job entities.Job) {
		active := metrics.WorkerJobsActive.WithLabelValues(taskType)
		active.Inc()
		start := time.Now()
		defer func() {
			active.Dec()
			if obs != nil {
				obs.RecordJob(context.Background(), taskType, time.Since(start))
			}
		}()
		handle(client, job)
	}
}

func (w *Worker) Stop() {
	w.logger.Info("stopping worker", nil)
	w.worker.Close()
	w.worker.AwaitClose()
}
