package domain

import "time"

// TaskState enumerates provider task lifecycle states.
type TaskState string

const (
	TaskStateWaiting    TaskState = "waiting"
	TaskStateQueuing    TaskState = "queuing"
	TaskStateGenerating TaskState = "generating"
	TaskStateSuccess    TaskState = "success"
	TaskStateFail       TaskState = "fail"
)

// Terminal reports whether the state is final. Terminal tasks are never
// polled again and never change state.
func (s TaskState) Terminal() bool {
	return s == TaskStateSuccess || s == TaskStateFail
}

// Task tracks one provider generation request from submission to its
// terminal outcome.
type Task struct {
	ID            string
	Model         string
	CallbackToken string
	State         TaskState
	InputJSON     []byte
	ResultJSON    []byte
	FailCode      string
	FailMessage   string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	NextPollAt    time.Time
}
