package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"genbridge/internal/catalog"
	"genbridge/internal/domain"
	"genbridge/internal/gateway"
	"genbridge/internal/infra"
	"genbridge/internal/normalize"
)

const defaultFirstPollDelay = 3 * time.Second

// TaskGateway is the slice of the gateway the HTTP surface depends on.
// Polling belongs to the worker; handlers only submit.
type TaskGateway interface {
	Submit(ctx context.Context, modelID string, input normalize.Payload, callbackURL string) (*gateway.TaskHandle, error)
}

// App carries the wired dependencies for every HTTP handler.
type App struct {
	Logger   infra.Logger
	Registry *catalog.Registry
	Gateway  TaskGateway
	Tasks    domain.TaskRepository

	// CallbackBaseURL, when set, mints a per-task callback target handed to
	// the provider on submit. Empty disables callbacks; the worker then
	// drives every task by polling alone.
	CallbackBaseURL string

	// FirstPollDelay is how far in the future a freshly created task's
	// next_poll_at lands.
	FirstPollDelay time.Duration
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]string{"error": code, "message": message})
}

func (a *App) firstPollDelay() time.Duration {
	if a.FirstPollDelay > 0 {
		return a.FirstPollDelay
	}
	return defaultFirstPollDelay
}
