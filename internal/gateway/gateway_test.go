package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"genbridge/internal/catalog"
	"genbridge/internal/normalize"
)

const gatewayTestCatalog = `{
  "version": "test",
  "models": [
    {
      "id": "google/veo3",
      "category": "text-to-video",
      "output": "media-url-list",
      "create_path": "/api/v1/veo/generate",
      "record_path": "/api/v1/veo/record-info",
      "states": ["waiting", "generating", "success", "fail"],
      "fields": [{"name": "prompt", "type": "string", "required": true}]
    },
    {
      "id": "suno/v5",
      "category": "text-to-music",
      "output": "structured-object",
      "create_path": "/api/v1/suno/generate",
      "record_path": "/api/v1/suno/record-info",
      "states": ["waiting", "queuing", "generating", "success", "fail"],
      "fields": [{"name": "style", "type": "string", "required": true}]
    }
  ]
}`

func testRegistry(t *testing.T) *catalog.Registry {
	t.Helper()
	reg, err := catalog.Parse([]byte(gatewayTestCatalog), catalog.FormatJSON)
	if err != nil {
		t.Fatalf("parse test catalog: %v", err)
	}
	return reg
}

func newTestGateway(t *testing.T, transport http.RoundTripper, opts Options) *Gateway {
	t.Helper()
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.provider.test"
	}
	if opts.Registry == nil {
		opts.Registry = testRegistry(t)
	}
	if opts.RetryBase == 0 {
		opts.RetryBase = time.Millisecond
	}
	opts.HTTPClient = &http.Client{Transport: transport}
	g, err := New(opts)
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}
	return g
}

func createOK(taskID string) string {
	return fmt.Sprintf(`{"code":200,"msg":"success","data":{"taskId":"%s"}}`, taskID)
}

func recordState(taskID, state string) string {
	return fmt.Sprintf(`{"code":200,"msg":"success","data":{"taskId":"%s","state":"%s"}}`, taskID, state)
}

func recordSuccess(taskID, resultJSON string) string {
	return fmt.Sprintf(`{"code":200,"msg":"success","data":{"taskId":"%s","state":"success","resultJson":%s}}`,
		taskID, strconv.Quote(resultJSON))
}

func recordFail(taskID, code, msg string) string {
	return fmt.Sprintf(`{"code":200,"msg":"success","data":{"taskId":"%s","state":"fail","failCode":"%s","failMsg":"%s"}}`,
		taskID, code, msg)
}

func TestNewValidation(t *testing.T) {
	if _, err := New(Options{BaseURL: "https://x.test"}); !errors.Is(err, ErrMissingRegistry) {
		t.Fatalf("err = %v, want ErrMissingRegistry", err)
	}
	if _, err := New(Options{Registry: testRegistry(t)}); !errors.Is(err, ErrMissingBaseURL) {
		t.Fatalf("err = %v, want ErrMissingBaseURL", err)
	}
}

func TestSubmitUnknownModelMakesNoNetworkCall(t *testing.T) {
	transport := &scriptTransport{script: []stub{{status: 200, body: createOK("t1")}}}
	g := newTestGateway(t, transport, Options{})

	_, err := g.Submit(context.Background(), "vendor/unknown", normalize.Payload{"prompt": "x"}, "")
	if !errors.Is(err, catalog.ErrModelNotFound) {
		t.Fatalf("err = %v, want ErrModelNotFound", err)
	}
	if n := transport.callCount(); n != 0 {
		t.Fatalf("transport recorded %d calls, want 0", n)
	}
}

func TestPollUnknownModelMakesNoNetworkCall(t *testing.T) {
	transport := &scriptTransport{script: []stub{{status: 200, body: recordState("t1", "waiting")}}}
	g := newTestGateway(t, transport, Options{})

	_, err := g.Poll(context.Background(), "vendor/unknown", "t1")
	if !errors.Is(err, catalog.ErrModelNotFound) {
		t.Fatalf("err = %v, want ErrModelNotFound", err)
	}
	if n := transport.callCount(); n != 0 {
		t.Fatalf("transport recorded %d calls, want 0", n)
	}
}

func TestSubmitBuildsCreateRequest(t *testing.T) {
	transport := &scriptTransport{script: []stub{{status: 200, body: createOK("task-123")}}}
	g := newTestGateway(t, transport, Options{APIKey: "secret-key"})

	input := normalize.Payload{"prompt": "a fox at dawn", "duration": 8.0}
	handle, err := g.Submit(context.Background(), "google/veo3", input, "https://cb.example.com/hook")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if handle.ID != "task-123" {
		t.Fatalf("task id = %q, want task-123", handle.ID)
	}
	if handle.Model != "google/veo3" {
		t.Fatalf("model = %q", handle.Model)
	}
	if handle.CreatedAt.IsZero() {
		t.Fatalf("created at not stamped")
	}

	req := transport.lastRequest()
	if req.Method != http.MethodPost {
		t.Fatalf("method = %s, want POST", req.Method)
	}
	if req.URL.Path != "/api/v1/veo/generate" {
		t.Fatalf("path = %s", req.URL.Path)
	}
	if got := req.Header.Get("Authorization"); got != "Bearer secret-key" {
		t.Fatalf("authorization = %q", got)
	}

	var body struct {
		Model       string         `json:"model"`
		Input       map[string]any `json:"input"`
		CallBackURL string         `json:"callBackUrl"`
	}
	if err := json.Unmarshal(transport.body(0), &body); err != nil {
		t.Fatalf("decode captured body: %v", err)
	}
	if body.Model != "google/veo3" {
		t.Fatalf("body model = %q", body.Model)
	}
	if body.Input["prompt"] != "a fox at dawn" {
		t.Fatalf("body input = %v", body.Input)
	}
	if body.CallBackURL != "https://cb.example.com/hook" {
		t.Fatalf("callback = %q", body.CallBackURL)
	}
}

func TestSubmitOmitsCallbackWhenEmpty(t *testing.T) {
	transport := &scriptTransport{script: []stub{{status: 200, body: createOK("t1")}}}
	g := newTestGateway(t, transport, Options{})

	if _, err := g.Submit(context.Background(), "google/veo3", normalize.Payload{"prompt": "x"}, ""); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if strings.Contains(string(transport.body(0)), "callBackUrl") {
		t.Fatalf("empty callback must be omitted from the wire body")
	}
}

func TestSubmitMalformedEnvelope(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"not json", `<html>busy</html>`},
		{"missing task id", `{"code":200,"msg":"success","data":{}}`},
		{"no data", `{"code":200,"msg":"success"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			transport := &scriptTransport{script: []stub{{status: 200, body: tc.body}}}
			g := newTestGateway(t, transport, Options{MaxRetries: 3})

			_, err := g.Submit(context.Background(), "google/veo3", normalize.Payload{"prompt": "x"}, "")
			if !errors.Is(err, ErrMalformedEnvelope) {
				t.Fatalf("err = %v, want ErrMalformedEnvelope", err)
			}
			if n := transport.callCount(); n != 1 {
				t.Fatalf("shape errors must not be retried: %d calls", n)
			}
			if Retryable(err) {
				t.Fatalf("malformed envelope must be non-retryable")
			}
		})
	}
}

func TestSubmitEnvelopeLevelFailure(t *testing.T) {
	transport := &scriptTransport{script: []stub{
		{status: 200, body: `{"code":422,"msg":"prompt rejected by moderation"}`},
	}}
	g := newTestGateway(t, transport, Options{})

	_, err := g.Submit(context.Background(), "google/veo3", normalize.Payload{"prompt": "x"}, "")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("err = %v, want StatusError", err)
	}
	if statusErr.Status != 422 || !strings.Contains(statusErr.Body, "moderation") {
		t.Fatalf("status error = %+v", statusErr)
	}
}

func TestPollSequenceToSuccess(t *testing.T) {
	transport := &scriptTransport{script: []stub{
		{status: 200, body: recordState("t1", "generating")},
		{status: 200, body: recordState("t1", "generating")},
		{status: 200, body: recordSuccess("t1", `{"resultUrls":["http://x/1.png"]}`)},
	}}
	g := newTestGateway(t, transport, Options{})

	var last *TaskStatus
	for i := 0; i < 3; i++ {
		status, err := g.Poll(context.Background(), "google/veo3", "t1")
		if err != nil {
			t.Fatalf("poll %d: %v", i, err)
		}
		if i < 2 {
			if status.State.Terminal() {
				t.Fatalf("poll %d: state %s should be non-terminal", i, status.State)
			}
			if status.State != StateGenerating {
				t.Fatalf("poll %d: state = %s", i, status.State)
			}
		}
		last = status
	}

	if last.State != StateSuccess || !last.State.Terminal() {
		t.Fatalf("final state = %s, want terminal success", last.State)
	}
	if last.Result == nil || len(last.Result.URLs) != 1 || last.Result.URLs[0] != "http://x/1.png" {
		t.Fatalf("result = %+v, want the single parsed url", last.Result)
	}
	if last.Failure != nil {
		t.Fatalf("success must not carry a failure descriptor")
	}

	req := transport.lastRequest()
	if req.URL.Path != "/api/v1/veo/record-info" {
		t.Fatalf("path = %s", req.URL.Path)
	}
	if got := req.URL.Query().Get("taskId"); got != "t1" {
		t.Fatalf("taskId query = %q", got)
	}
}

func TestPollFailureSurfacesProviderDescriptor(t *testing.T) {
	transport := &scriptTransport{script: []stub{
		{status: 200, body: recordFail("t1", "content_policy", "prompt violates policy")},
	}}
	g := newTestGateway(t, transport, Options{})

	status, err := g.Poll(context.Background(), "google/veo3", "t1")
	if err != nil {
		t.Fatalf("a provider-side failure is a normal outcome, got gateway error %v", err)
	}
	if status.State != StateFail || !status.State.Terminal() {
		t.Fatalf("state = %s, want terminal fail", status.State)
	}
	if status.Failure == nil || status.Failure.Code != "content_policy" || status.Failure.Message != "prompt violates policy" {
		t.Fatalf("failure = %+v, want verbatim code and message", status.Failure)
	}
	if status.Result != nil {
		t.Fatalf("failed task must not carry a result")
	}
}

func TestPollStructuredObjectResult(t *testing.T) {
	transport := &scriptTransport{script: []stub{
		{status: 200, body: recordSuccess("t9", `{"songs":[{"id":"s1","audioUrl":"http://x/s1.mp3"}]}`)},
	}}
	g := newTestGateway(t, transport, Options{})

	status, err := g.Poll(context.Background(), "suno/v5", "t9")
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if status.Result == nil || status.Result.Object == nil {
		t.Fatalf("result = %+v, want structured object", status.Result)
	}
	if _, ok := status.Result.Object["songs"]; !ok {
		t.Fatalf("object = %v, want songs key", status.Result.Object)
	}
	if status.Result.URLs != nil {
		t.Fatalf("structured-object result must not populate URLs")
	}
}

func TestPollSuccessWithoutResultIsMalformed(t *testing.T) {
	transport := &scriptTransport{script: []stub{
		{status: 200, body: recordState("t1", "success")},
	}}
	g := newTestGateway(t, transport, Options{})

	_, err := g.Poll(context.Background(), "google/veo3", "t1")
	if !errors.Is(err, ErrMalformedEnvelope) {
		t.Fatalf("err = %v, want ErrMalformedEnvelope", err)
	}
}

func TestPollRejectsUndeclaredState(t *testing.T) {
	// veo3 does not declare queuing.
	transport := &scriptTransport{script: []stub{
		{status: 200, body: recordState("t1", "queuing")},
	}}
	g := newTestGateway(t, transport, Options{})

	_, err := g.Poll(context.Background(), "google/veo3", "t1")
	if !errors.Is(err, ErrMalformedEnvelope) {
		t.Fatalf("err = %v, want ErrMalformedEnvelope", err)
	}
}

func TestPollRejectsUnknownState(t *testing.T) {
	transport := &scriptTransport{script: []stub{
		{status: 200, body: recordState("t1", "daydreaming")},
	}}
	g := newTestGateway(t, transport, Options{})

	_, err := g.Poll(context.Background(), "google/veo3", "t1")
	if !errors.Is(err, ErrMalformedEnvelope) {
		t.Fatalf("err = %v, want ErrMalformedEnvelope", err)
	}
}

func TestConcurrencyBound(t *testing.T) {
	transport := &scriptTransport{
		script: []stub{{status: 200, body: createOK("t1")}},
		delay:  30 * time.Millisecond,
	}
	g := newTestGateway(t, transport, Options{MaxConcurrent: 2})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := g.Submit(context.Background(), "google/veo3", normalize.Payload{"prompt": "x"}, ""); err != nil {
				t.Errorf("submit: %v", err)
			}
		}()
	}
	wg.Wait()

	if peak := transport.maxConcurrent(); peak > 2 {
		t.Fatalf("observed %d in-flight calls, semaphore capacity is 2", peak)
	}
	if n := transport.callCount(); n != 8 {
		t.Fatalf("calls = %d, want 8", n)
	}
}

func TestCancellationDuringBackoff(t *testing.T) {
	transport := &scriptTransport{script: []stub{{status: 503, body: "unavailable"}}}
	g := newTestGateway(t, transport, Options{MaxRetries: 5, RetryBase: 10 * time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := g.Submit(ctx, "google/veo3", normalize.Payload{"prompt": "x"}, "")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("cancellation took %v, backoff sleep is not cooperative", elapsed)
	}
}

type stub struct {
	status int
	body   string
	err    error
}

// scriptTransport plays back a scripted response sequence, repeating the
// last entry once the script runs out, and records enough about the calls
// to assert on retry counts, timing, and concurrency.
type scriptTransport struct {
	mu     sync.Mutex
	script []stub
	delay  time.Duration

	calls    int
	stamps   []time.Time
	bodies   [][]byte
	last     *http.Request
	inFlight int
	peak     int
}

func (s *scriptTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	s.mu.Lock()
	idx := s.calls
	s.calls++
	s.stamps = append(s.stamps, time.Now())
	if req.Body != nil {
		b, err := io.ReadAll(req.Body)
		if err != nil {
			s.mu.Unlock()
			return nil, err
		}
		req.Body.Close()
		s.bodies = append(s.bodies, b)
	}
	s.last = req
	s.inFlight++
	if s.inFlight > s.peak {
		s.peak = s.inFlight
	}
	cur := s.script[len(s.script)-1]
	if idx < len(s.script) {
		cur = s.script[idx]
	}
	delay := s.delay
	s.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	s.mu.Lock()
	s.inFlight--
	s.mu.Unlock()

	if cur.err != nil {
		return nil, cur.err
	}
	return &http.Response{
		StatusCode: cur.status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(cur.body)),
	}, nil
}

func (s *scriptTransport) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *scriptTransport) maxConcurrent() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peak
}

func (s *scriptTransport) lastRequest() *http.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *scriptTransport) body(i int) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i >= len(s.bodies) {
		return nil
	}
	return s.bodies[i]
}

func (s *scriptTransport) stampAt(i int) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stamps[i]
}
