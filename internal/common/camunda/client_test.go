package camunda

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scholarship-matcher/internal/common/config"
	"scholarship-matcher/internal/common/logger"
)

func fastRetry(n int) RetryConfig {
	return RetryConfig{MaxRetries: n, BaseDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond}
}

func TestRetryWithBackoff_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("dial tcp: connection refused")
		}
		return nil
	}, fastRetry(5), logger.NewTestLogger(t), "postgres")

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryWithBackoff_GivesUp(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), func() error {
		calls++
		return errors.New("unavailable")
	}, fastRetry(3), logger.NewNoOpLogger(), "zeebe")

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "zeebe failed after 3 attempts")
	assert.Contains(t, err.Error(), "unavailable")
}

func TestRetryWithBackoff_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := RetryWithBackoff(ctx, func() error {
		calls++
		return errors.New("connection reset")
	}, RetryConfig{MaxRetries: 5, BaseDelay: time.Minute}, logger.NewNoOpLogger(), "redis")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("rpc error: code = Unavailable desc = connection refused"), true},
		{errors.New("context deadline exceeded"), true},
		{errors.New("lookup zeebe: no such host"), true},
		{errors.New("permission denied"), false},
		{errors.New("NOT_FOUND"), false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsRetryable(tt.err), "%v", tt.err)
	}
}

func TestRegistry_SkipsDisabledWorkers(t *testing.T) {
	r := NewRegistry(nil, nil, logger.NewNoOpLogger())
	r.Start("run-scholarship-match", config.WorkerConfig{Enabled: false}, nil)

	assert.Empty(t, r.Running())
	r.Close()
}

// ==========================
// Instrument
// ==========================

// nopJobClient only answers the command constructors; the returned builders
// are nil and must not be used.
type nopJobClient struct {
	worker.JobClient
}

func (nopJobClient) NewCompleteJobCommand() commands.CompleteJobCommandStep1 { return nil }
func (nopJobClient) NewFailJobCommand() commands.FailJobCommandStep1         { return nil }
func (nopJobClient) NewThrowErrorCommand() commands.ThrowErrorCommandStep1   { return nil }

type recorded struct {
	taskType string
	status   string
}

type fakeRecorder struct {
	mu        sync.Mutex
	processed []recorded
	durations int
}

func (f *fakeRecorder) RecordJobProcessed(_ context.Context, taskType, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.processed = append(f.processed, recorded{taskType, status})
}

func (f *fakeRecorder) RecordJobDuration(_ context.Context, _ string, _ time.Duration, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.durations++
}

func TestRegistry_InstrumentRecordsStatus(t *testing.T) {
	tests := []struct {
		name   string
		answer func(c worker.JobClient)
		want   string
	}{
		{"completed", func(c worker.JobClient) { c.NewCompleteJobCommand() }, StatusCompleted},
		{"failed with retries", func(c worker.JobClient) { c.NewFailJobCommand() }, StatusFailed},
		{"bpmn error", func(c worker.JobClient) { c.NewThrowErrorCommand() }, StatusThrown},
		{"no answer", func(c worker.JobClient) {}, StatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &fakeRecorder{}
			r := NewRegistry(nil, rec, logger.NewNoOpLogger())

			wrapped := r.Instrument("get-match-history", func(client worker.JobClient, job entities.Job) {
				tt.answer(client)
			})
			wrapped(nopJobClient{}, entities.Job{})

			require.Len(t, rec.processed, 1)
			assert.Equal(t, recorded{"get-match-history", tt.want}, rec.processed[0])
			assert.Equal(t, 1, rec.durations)
		})
	}
}
