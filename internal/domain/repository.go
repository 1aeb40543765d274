package domain

import (
	"context"
	"time"
)

// TaskRepository defines persistence for generation tasks.
type TaskRepository interface {
	Create(ctx context.Context, task *Task) error
	GetByID(ctx context.Context, id string) (*Task, error)
	GetByCallbackToken(ctx context.Context, token string) (*Task, error)
	// ClaimDue leases up to limit non-terminal tasks whose next poll is
	// due, pushing their next_poll_at forward so concurrent workers skip
	// them.
	ClaimDue(ctx context.Context, limit int, lease time.Duration) ([]Task, error)
	// UpdateState records a state transition together with its result or
	// failure payload. Terminal rows are never overwritten.
	UpdateState(ctx context.Context, id string, state TaskState, resultJSON []byte, failCode, failMessage string) error
	ScheduleNextPoll(ctx context.Context, id string, next time.Time) error
}
