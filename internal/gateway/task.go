package gateway

import (
	"encoding/json"
	"time"

	"genbridge/internal/normalize"
)

// State is a task's lifecycle position as reported by the provider.
type State string

const (
	StateWaiting    State = "waiting"
	StateQueuing    State = "queuing"
	StateGenerating State = "generating"
	StateSuccess    State = "success"
	StateFail       State = "fail"
)

// Terminal reports whether the state is final. A terminal task never moves
// again; repeated polls return the same snapshot.
func (s State) Terminal() bool {
	return s == StateSuccess || s == StateFail
}

// TaskHandle identifies one accepted generation job.
type TaskHandle struct {
	ID        string
	Model     string
	CreatedAt time.Time
	Input     normalize.Payload
}

// Result is a finished task's output, shaped by the model's declared output
// kind: URLs for media-url-list models, Object for structured-object models.
type Result struct {
	URLs   []string
	Object map[string]any
}

// MarshalJSON writes the result in its provider document shape, so a stored
// result round-trips against the same decoding Poll applies.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.Object != nil {
		return json.Marshal(r.Object)
	}
	return json.Marshal(struct {
		ResultURLs []string `json:"resultUrls"`
	}{ResultURLs: r.URLs})
}

// Failure carries the provider's terminal failure descriptor verbatim. It is
// a normal outcome of a finished task, not a gateway error.
type Failure struct {
	Code    string
	Message string
}

// TaskStatus is one poll observation. Result is set only in state success,
// Failure only in state fail.
type TaskStatus struct {
	TaskID  string
	Model   string
	State   State
	Result  *Result
	Failure *Failure
}
