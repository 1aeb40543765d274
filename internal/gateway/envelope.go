package gateway

import (
	"encoding/json"
	"fmt"
	"strings"

	"genbridge/internal/catalog"
	"genbridge/internal/normalize"
)

// The provider wraps every answer in the same envelope: a numeric success
// marker, a human message, and a payload object. Task records carry their
// result document as a serialized JSON string inside that payload.

type createRequest struct {
	Model       string            `json:"model"`
	Input       normalize.Payload `json:"input"`
	CallBackURL string            `json:"callBackUrl,omitempty"`
}

type providerEnvelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type createData struct {
	TaskID string `json:"taskId"`
}

type recordData struct {
	TaskID     string `json:"taskId"`
	State      string `json:"state"`
	ResultJSON string `json:"resultJson"`
	FailCode   string `json:"failCode"`
	FailMsg    string `json:"failMsg"`
}

type resultDocument struct {
	ResultURLs []string `json:"resultUrls"`
}

const envelopeSuccess = 200

func parseEnvelope(raw []byte) (*providerEnvelope, error) {
	var env providerEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if env.Code != envelopeSuccess {
		return nil, &StatusError{Status: env.Code, Body: env.Msg}
	}
	return &env, nil
}

func parseCreateEnvelope(raw []byte) (string, error) {
	env, err := parseEnvelope(raw)
	if err != nil {
		return "", err
	}
	var data createData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return "", fmt.Errorf("%w: create data: %v", ErrMalformedEnvelope, err)
	}
	if data.TaskID == "" {
		return "", fmt.Errorf("%w: create response carries no task id", ErrMalformedEnvelope)
	}
	return data.TaskID, nil
}

// ParseRecord decodes a record envelope delivered out of band, for example a
// provider callback push. The document matches what Poll reads from the
// record endpoint.
func ParseRecord(spec *catalog.ModelSpec, taskID string, raw []byte) (*TaskStatus, error) {
	return parseRecordEnvelope(spec, taskID, raw)
}

func parseRecordEnvelope(spec *catalog.ModelSpec, taskID string, raw []byte) (*TaskStatus, error) {
	env, err := parseEnvelope(raw)
	if err != nil {
		return nil, err
	}
	var data recordData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, fmt.Errorf("%w: record data: %v", ErrMalformedEnvelope, err)
	}
	if data.TaskID != "" {
		taskID = data.TaskID
	}

	state := State(data.State)
	switch state {
	case StateWaiting, StateQueuing, StateGenerating, StateSuccess, StateFail:
	default:
		return nil, fmt.Errorf("%w: unknown state %q", ErrMalformedEnvelope, data.State)
	}
	if !spec.AllowsState(data.State) {
		return nil, fmt.Errorf("%w: state %q not declared for %s", ErrMalformedEnvelope, data.State, spec.ID)
	}

	status := &TaskStatus{TaskID: taskID, Model: spec.ID, State: state}
	switch state {
	case StateSuccess:
		result, err := parseResult(spec.Output, data.ResultJSON)
		if err != nil {
			return nil, err
		}
		status.Result = result
	case StateFail:
		status.Failure = &Failure{Code: data.FailCode, Message: data.FailMsg}
	}
	return status, nil
}

// parseResult decodes the serialized result document. A success record with
// no usable result is treated as a malformed envelope rather than handed to
// the caller as a phantom success.
func parseResult(kind catalog.OutputKind, resultJSON string) (*Result, error) {
	if strings.TrimSpace(resultJSON) == "" {
		return nil, fmt.Errorf("%w: success without result document", ErrMalformedEnvelope)
	}
	if kind == catalog.OutputStructuredObject {
		var obj map[string]any
		if err := json.Unmarshal([]byte(resultJSON), &obj); err != nil {
			return nil, fmt.Errorf("%w: result document: %v", ErrMalformedEnvelope, err)
		}
		if len(obj) == 0 {
			return nil, fmt.Errorf("%w: empty result document", ErrMalformedEnvelope)
		}
		return &Result{Object: obj}, nil
	}
	var doc resultDocument
	if err := json.Unmarshal([]byte(resultJSON), &doc); err != nil {
		return nil, fmt.Errorf("%w: result document: %v", ErrMalformedEnvelope, err)
	}
	if len(doc.ResultURLs) == 0 {
		return nil, fmt.Errorf("%w: success without result urls", ErrMalformedEnvelope)
	}
	return &Result{URLs: doc.ResultURLs}, nil
}
