package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/wms-console/internal/audit"
	jobmetrics "github.com/odyssey-erp/wms-console/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAuditRecord persists one console activity entry.
	TaskAuditRecord = "audit:record"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// NewAuditRecordTask constructs an Asynq task carrying the entry.
func NewAuditRecordTask(entry audit.Entry) (*asynq.Task, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditRecord, data, asynq.Queue(QueueDefault), asynq.MaxRetry(5)), nil
}

// AuditRecordJob drains queued entries into a sink.
type AuditRecordJob struct {
	Sink    audit.Sink
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewAuditRecordJob wires dependencies for the audit handler.
func NewAuditRecordJob(sink audit.Sink, logger *slog.Logger, metrics *jobmetrics.Metrics) *AuditRecordJob {
	return &AuditRecordJob{Sink: sink, Logger: logger, Metrics: metrics}
}

// Handle processes TaskAuditRecord tasks.
func (j *AuditRecordJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Sink == nil {
		return errors.New("audit record: handler not configured")
	}
	var entry audit.Entry
	if err := json.Unmarshal(t.Payload(), &entry); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskAuditRecord)
	defer func() {
		err = tracker.End(err)
	}()

	if err = j.Sink.Write(ctx, entry); err != nil {
		j.logger().Warn("audit record", slog.String("action", entry.Action), slog.Any("error", err))
		return err
	}
	return nil
}

func (j *AuditRecordJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *AuditRecordJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

// Enqueuer is the subset of asynq.Client used to submit tasks.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// AuditEnqueuer is an audit.Sink that hands entries to the worker.
type AuditEnqueuer struct {
	client Enqueuer
}

// NewAuditEnqueuer wraps an Asynq client.
func NewAuditEnqueuer(client Enqueuer) *AuditEnqueuer {
	return &AuditEnqueuer{client: client}
}

// Write enqueues the entry.
func (e *AuditEnqueuer) Write(ctx context.Context, entry audit.Entry) error {
	task, err := NewAuditRecordTask(entry)
	if err != nil {
		return err
	}
	_, err = e.client.EnqueueContext(ctx, task)
	return err
}
