package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"genbridge/internal/domain"
	"genbridge/internal/gateway"
)

// maxCallbackBody caps how much of a provider push the handler reads. Record
// envelopes are small; anything larger is not one.
const maxCallbackBody = 1 << 20

// ProviderCallback receives the provider's push for a finished (or merely
// progressed) task. The per-task token minted at submit time is the only
// credential: the provider is not a holder of our API token. Terminal rows
// are never rewritten, so replayed callbacks are no-ops.
func (a *App) ProviderCallback(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "token required")
		return
	}
	task, err := a.Tasks.GetByCallbackToken(r.Context(), token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "unknown_token", "no task owns this token")
			return
		}
		a.Logger.Error().Err(err).Msg("callback: load task failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load task")
		return
	}
	if task.State.Terminal() {
		a.json(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	spec, ok := a.Registry.Get(task.Model)
	if !ok {
		// A live task referencing a model the catalog no longer carries
		// means the catalog regressed underneath us.
		a.Logger.Error().Str("model", task.Model).Str("task_id", task.ID).Msg("callback: model missing from catalog")
		a.error(w, http.StatusInternalServerError, "internal", "model no longer registered")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBody))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "unreadable body")
		return
	}
	status, err := gateway.ParseRecord(spec, task.ID, body)
	if err != nil {
		a.Logger.Warn().Err(err).Str("task_id", task.ID).Msg("callback: bad record envelope")
		a.error(w, http.StatusBadRequest, "bad_envelope", err.Error())
		return
	}

	var resultJSON []byte
	var failCode, failMessage string
	switch {
	case status.Result != nil:
		if resultJSON, err = json.Marshal(status.Result); err != nil {
			a.Logger.Error().Err(err).Str("task_id", task.ID).Msg("callback: encode result failed")
			a.error(w, http.StatusInternalServerError, "internal", "failed to store result")
			return
		}
	case status.Failure != nil:
		failCode, failMessage = status.Failure.Code, status.Failure.Message
	}
	if err := a.Tasks.UpdateState(r.Context(), task.ID, domain.TaskState(status.State), resultJSON, failCode, failMessage); err != nil {
		a.Logger.Error().Err(err).Str("task_id", task.ID).Msg("callback: update task failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to update task")
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}
