package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"genbridge/internal/catalog"
	"genbridge/internal/domain"
	"genbridge/internal/normalize"
)

type generateRequest struct {
	Model string         `json:"model"`
	Mode  string         `json:"mode,omitempty"`
	Input map[string]any `json:"input"`
}

type taskDTO struct {
	TaskID      string          `json:"task_id"`
	Model       string          `json:"model"`
	State       string          `json:"state"`
	Result      json.RawMessage `json:"result,omitempty"`
	FailCode    string          `json:"fail_code,omitempty"`
	FailMessage string          `json:"fail_message,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func taskToDTO(task *domain.Task) taskDTO {
	return taskDTO{
		TaskID:      task.ID,
		Model:       task.Model,
		State:       string(task.State),
		Result:      json.RawMessage(task.ResultJSON),
		FailCode:    task.FailCode,
		FailMessage: task.FailMessage,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
}

// CreateGeneration normalizes the chat layer's raw input against the model's
// contract and submits the job to the provider. Unnormalized input never
// reaches the network: a validation failure aborts before the gateway is
// touched.
func (a *App) CreateGeneration(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.Model == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "model required")
		return
	}

	spec, ok := a.Registry.Get(req.Model)
	if !ok {
		a.error(w, http.StatusNotFound, "model_not_found", "unknown model "+req.Model)
		return
	}
	var mode *catalog.Mode
	if req.Mode != "" {
		if mode = spec.Mode(req.Mode); mode == nil {
			a.error(w, http.StatusBadRequest, "bad_request", "unknown mode "+req.Mode)
			return
		}
	}

	payload, err := normalize.Normalize(spec, mode, req.Input)
	if err != nil {
		var verr *normalize.ValidationError
		if errors.As(err, &verr) {
			a.error(w, http.StatusBadRequest, "validation_failed", verr.Error())
			return
		}
		a.error(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	var callbackToken, callbackURL string
	if a.CallbackBaseURL != "" {
		callbackToken = uuid.NewString()
		callbackURL = a.CallbackBaseURL + "/v1/provider/callback?token=" + callbackToken
	}

	handle, err := a.Gateway.Submit(r.Context(), req.Model, payload, callbackURL)
	if err != nil {
		if errors.Is(err, catalog.ErrModelNotFound) {
			a.error(w, http.StatusNotFound, "model_not_found", err.Error())
			return
		}
		a.Logger.Error().Err(err).Str("model", req.Model).Msg("submit failed")
		a.error(w, http.StatusBadGateway, "upstream_error", err.Error())
		return
	}

	inputJSON, err := payload.Encode()
	if err != nil {
		a.Logger.Error().Err(err).Str("task_id", handle.ID).Msg("encode input snapshot failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to persist task")
		return
	}
	task := &domain.Task{
		ID:            handle.ID,
		Model:         handle.Model,
		CallbackToken: callbackToken,
		State:         domain.TaskStateWaiting,
		InputJSON:     inputJSON,
		NextPollAt:    time.Now().Add(a.firstPollDelay()),
	}
	if err := a.Tasks.Create(r.Context(), task); err != nil {
		// The provider already owns the job at this point; a lost row means
		// the worker will never poll it, so surface the failure loudly.
		a.Logger.Error().Err(err).Str("task_id", handle.ID).Msg("persist task failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to persist task")
		return
	}

	a.json(w, http.StatusAccepted, taskDTO{
		TaskID:    task.ID,
		Model:     task.Model,
		State:     string(task.State),
		CreatedAt: handle.CreatedAt,
		UpdatedAt: handle.CreatedAt,
	})
}

// GetGeneration reads one task's stored snapshot. The store only ever holds
// states the worker or callback path wrote, so callers never observe a
// half-applied terminal state.
func (a *App) GetGeneration(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "task_id")
	if id == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "task_id required")
		return
	}
	task, err := a.Tasks.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "task not found")
			return
		}
		a.Logger.Error().Err(err).Str("task_id", id).Msg("load task failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load task")
		return
	}
	a.json(w, http.StatusOK, taskToDTO(task))
}
