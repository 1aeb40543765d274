package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"genbridge/internal/db"
	"genbridge/internal/domain"
	"genbridge/internal/sqlinline"
)

// TaskRepositoryPG implements domain.TaskRepository on PostgreSQL.
type TaskRepositoryPG struct {
	db db.DBTX
}

// NewTaskRepository creates a task repository backed by the given executor.
func NewTaskRepository(dbtx db.DBTX) *TaskRepositoryPG {
	return &TaskRepositoryPG{db: dbtx}
}

// Create inserts a new task record.
func (r *TaskRepositoryPG) Create(ctx context.Context, task *domain.Task) error {
	_, err := r.db.Exec(ctx, sqlinline.QTaskInsert,
		task.ID,
		task.Model,
		task.CallbackToken,
		task.State,
		task.InputJSON,
		task.NextPollAt,
	)
	return err
}

// GetByID fetches a task by its identifier.
func (r *TaskRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	return r.getBy(ctx, sqlinline.QTaskByID, id)
}

// GetByCallbackToken fetches the task owning the given callback token.
func (r *TaskRepositoryPG) GetByCallbackToken(ctx context.Context, token string) (*domain.Task, error) {
	return r.getBy(ctx, sqlinline.QTaskByCallbackToken, token)
}

func (r *TaskRepositoryPG) getBy(ctx context.Context, query, arg string) (*domain.Task, error) {
	row := r.db.QueryRow(ctx, query, arg)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return task, nil
}

// ClaimDue leases up to limit due tasks, pushing next_poll_at forward by the
// lease so parallel workers skip rows already taken.
func (r *TaskRepositoryPG) ClaimDue(ctx context.Context, limit int, lease time.Duration) ([]domain.Task, error) {
	rows, err := r.db.Query(ctx, sqlinline.QTaskClaimDue, limit, lease.Seconds())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tasks []domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

// UpdateState records a transition with its result or failure payload. The
// WHERE clause skips rows already in a terminal state, so replays of a final
// callback or a racing worker update are no-ops.
func (r *TaskRepositoryPG) UpdateState(ctx context.Context, id string, state domain.TaskState, resultJSON []byte, failCode, failMessage string) error {
	_, err := r.db.Exec(ctx, sqlinline.QTaskUpdateState,
		id,
		state,
		nullableBytes(resultJSON),
		failCode,
		failMessage,
	)
	return err
}

// ScheduleNextPoll moves a non-terminal task's next poll time.
func (r *TaskRepositoryPG) ScheduleNextPoll(ctx context.Context, id string, next time.Time) error {
	_, err := r.db.Exec(ctx, sqlinline.QTaskSchedulePoll, id, next)
	return err
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var task domain.Task
	if err := row.Scan(
		&task.ID,
		&task.Model,
		&task.CallbackToken,
		&task.State,
		&task.InputJSON,
		&task.ResultJSON,
		&task.FailCode,
		&task.FailMessage,
		&task.CreatedAt,
		&task.UpdatedAt,
		&task.NextPollAt,
	); err != nil {
		return nil, err
	}
	return &task, nil
}

func nullableBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}
