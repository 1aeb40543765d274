// Package worker drives persisted tasks to their terminal state. It claims
// batches of due tasks from the store, polls the provider once per task, and
// either records the terminal outcome or reschedules the next poll. The
// worker never decides a task failed on its own authority: only a provider
// fail record or a non-retryable gateway error terminalizes a row.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/rs/zerolog"

	"genbridge/internal/domain"
	"genbridge/internal/gateway"
	"genbridge/internal/infra"
)

const (
	defaultPollInterval = 3 * time.Second
	defaultClaimBatch   = 16
	defaultClaimLease   = 30 * time.Second
)

// Poller is the slice of the gateway the worker depends on.
type Poller interface {
	Poll(ctx context.Context, modelID, taskID string) (*gateway.TaskStatus, error)
}

// Options configures a Worker.
type Options struct {
	Tasks        domain.TaskRepository
	Gateway      Poller
	Logger       *infra.Logger
	PollInterval time.Duration
	ClaimBatch   int
	ClaimLease   time.Duration
}

// Worker polls claimed tasks until they finish.
type Worker struct {
	tasks        domain.TaskRepository
	gateway      Poller
	logger       infra.Logger
	pollInterval time.Duration
	claimBatch   int
	claimLease   time.Duration
}

// New validates the options and applies defaults.
func New(opts Options) (*Worker, error) {
	if opts.Tasks == nil {
		return nil, errors.New("worker: task repository is required")
	}
	if opts.Gateway == nil {
		return nil, errors.New("worker: gateway is required")
	}
	w := &Worker{
		tasks:        opts.Tasks,
		gateway:      opts.Gateway,
		pollInterval: opts.PollInterval,
		claimBatch:   opts.ClaimBatch,
		claimLease:   opts.ClaimLease,
	}
	if opts.Logger != nil {
		w.logger = *opts.Logger
	} else {
		w.logger = infra.Logger(zerolog.New(io.Discard))
	}
	if w.pollInterval <= 0 {
		w.pollInterval = defaultPollInterval
	}
	if w.claimBatch <= 0 {
		w.claimBatch = defaultClaimBatch
	}
	if w.claimLease <= 0 {
		w.claimLease = defaultClaimLease
	}
	return w, nil
}

// Run loops until the context is cancelled. An empty claim or a store error
// pauses for one poll interval before trying again.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info().Msg("worker: started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := w.RunOnce(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Error().Err(err).Msg("worker: claim failed")
		}
		if n == 0 || err != nil {
			if err := w.sleep(ctx); err != nil {
				return err
			}
		}
	}
}

// RunOnce claims one batch of due tasks and polls each of them. It returns
// how many tasks were claimed.
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	tasks, err := w.tasks.ClaimDue(ctx, w.claimBatch, w.claimLease)
	if err != nil {
		return 0, err
	}
	for i := range tasks {
		w.handle(ctx, &tasks[i])
	}
	return len(tasks), nil
}

func (w *Worker) handle(ctx context.Context, task *domain.Task) {
	status, err := w.gateway.Poll(ctx, task.Model, task.ID)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		if gateway.Retryable(err) {
			w.logger.Warn().Err(err).Str("task_id", task.ID).Msg("worker: poll failed, will retry")
			w.reschedule(ctx, task.ID)
			return
		}
		// The provider's answer (or our catalog) is permanently unusable
		// for this task; mark it failed so the chat layer sees a terminal
		// outcome instead of a task stuck waiting forever.
		w.logger.Error().Err(err).Str("task_id", task.ID).Msg("worker: poll failed permanently")
		w.update(ctx, task.ID, domain.TaskStateFail, nil, "gateway_error", err.Error())
		return
	}

	state := domain.TaskState(status.State)
	if !state.Terminal() {
		w.update(ctx, task.ID, state, nil, "", "")
		w.reschedule(ctx, task.ID)
		return
	}

	switch {
	case status.Result != nil:
		resultJSON, err := json.Marshal(status.Result)
		if err != nil {
			w.logger.Error().Err(err).Str("task_id", task.ID).Msg("worker: encode result failed")
			w.reschedule(ctx, task.ID)
			return
		}
		w.update(ctx, task.ID, state, resultJSON, "", "")
		w.logger.Info().Str("task_id", task.ID).Str("model", task.Model).Msg("worker: task succeeded")
	case status.Failure != nil:
		w.update(ctx, task.ID, state, nil, status.Failure.Code, status.Failure.Message)
		w.logger.Info().
			Str("task_id", task.ID).
			Str("fail_code", status.Failure.Code).
			Msg("worker: task failed")
	}
}

func (w *Worker) update(ctx context.Context, id string, state domain.TaskState, resultJSON []byte, failCode, failMessage string) {
	if err := w.tasks.UpdateState(ctx, id, state, resultJSON, failCode, failMessage); err != nil {
		w.logger.Error().Err(err).Str("task_id", id).Msg("worker: update state failed")
	}
}

func (w *Worker) reschedule(ctx context.Context, id string) {
	if err := w.tasks.ScheduleNextPoll(ctx, id, time.Now().Add(w.pollInterval)); err != nil {
		w.logger.Error().Err(err).Str("task_id", id).Msg("worker: reschedule failed")
	}
}

// sleep pauses for one poll interval, returning early when the context is
// cancelled.
func (w *Worker) sleep(ctx context.Context) error {
	timer := time.NewTimer(w.pollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
