package camunda

import (
	"context"
	"sync"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"scholarship-matcher/internal/common/config"
	"scholarship-matcher/internal/common/logger"
	"scholarship-matcher/internal/common/metrics"
)

// HandlerFunc is the signature every worker's Handle method satisfies.
type HandlerFunc func(client worker.JobClient, job entities.Job)

// JobRecorder receives one record per handled job.
type JobRecorder interface {
	RecordJobProcessed(ctx context.Context, taskType, status string)
	RecordJobDuration(ctx context.Context, taskType string, duration time.Duration, status string)
}

// Job statuses, derived from the last command the handler created.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusThrown    = "error_thrown"
	StatusUnknown   = "unanswered"
)

// Registry keeps the open job workers so they can be closed on shutdown.
type Registry struct {
	client   zbc.Client
	recorder JobRecorder
	logger   logger.Logger
	mu       sync.Mutex
	workers  map[string]worker.JobWorker
}

// NewRegistry accepts a nil recorder.
func NewRegistry(client zbc.Client, recorder JobRecorder, log logger.Logger) *Registry {
	return &Registry{
		client:   client,
		recorder: recorder,
		logger:   log,
		workers:  make(map[string]worker.JobWorker),
	}
}

// Start opens a job worker for taskType. Disabled workers are logged and
// skipped.
func (r *Registry) Start(taskType string, wcfg config.WorkerConfig, handler HandlerFunc) {
	if !wcfg.Enabled {
		r.logger.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return
	}

	jw := r.client.NewJobWorker().
		JobType(taskType).
		Handler(worker.JobHandler(r.Instrument(taskType, handler))).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(config.GetDuration(wcfg.Timeout)).
		Open()

	r.mu.Lock()
	r.workers[taskType] = jw
	r.mu.Unlock()

	r.logger.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeout_ms":    wcfg.Timeout,
	})
}

// Instrument wraps handler with the worker metrics. The job status is taken
// from the command the handler answered with.
func (r *Registry) Instrument(taskType string, handler HandlerFunc) HandlerFunc {
	return func(client worker.JobClient, job entities.Job) {
		metrics.WorkerJobsActive.WithLabelValues(taskType).Inc()
		defer metrics.WorkerJobsActive.WithLabelValues(taskType).Dec()

		tracked := &statusClient{JobClient: client, status: StatusUnknown}
		start := time.Now()
		handler(tracked, job)
		elapsed := time.Since(start)

		metrics.WorkerJobDuration.WithLabelValues(taskType).Observe(elapsed.Seconds())
		if tracked.status == StatusCompleted {
			metrics.WorkerJobsCompleted.WithLabelValues(taskType).Inc()
		} else {
			metrics.WorkerJobsFailed.WithLabelValues(taskType, tracked.status).Inc()
		}

		if r.recorder != nil {
			ctx := context.Background()
			r.recorder.RecordJobProcessed(ctx, taskType, tracked.status)
			r.recorder.RecordJobDuration(ctx, taskType, elapsed, tracked.status)
		}
	}
}

// Running lists the task types with an open worker.
func (r *Registry) Running() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.workers))
	for taskType := range r.workers {
		out = append(out, taskType)
	}
	return out
}

// Close stops polling and waits for in-flight jobs to finish.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for taskType, jw := range r.workers {
		jw.Close()
		r.logger.Info("worker stopped", map[string]interface{}{"taskType": taskType})
		delete(r.workers, taskType)
	}
}

type statusClient struct {
	worker.JobClient
	status string
}

func (c *statusClient) NewCompleteJobCommand() commands.CompleteJobCommandStep1 {
	c.status = StatusCompleted
	return c.JobClient.NewCompleteJobCommand()
}

func (c *statusClient) NewFailJobCommand() commands.FailJobCommandStep1 {
	c.status = StatusFailed
	return c.JobClient.NewFailJobCommand()
}

func (c *statusClient) NewThrowErrorCommand() commands.ThrowErrorCommandStep1 {
	c.status = StatusThrown
	return c.JobClient.NewThrowErrorCommand()
}
