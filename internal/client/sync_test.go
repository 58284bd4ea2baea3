package client

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Backland-Labs/runclient/internal/schema"
)

// fakeService answers POST /api/run and GET /api/run with scripted responses
type fakeService struct {
	t          *testing.T
	submitCode int
	polls      atomic.Int32
	// respond returns status code and body for poll number n (1-based)
	respond func(n int) (int, string)
}

func (f *fakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/api/run":
		code := f.submitCode
		if code == 0 {
			code = http.StatusOK
		}
		w.WriteHeader(code)
		if code == http.StatusOK {
			_ = json.NewEncoder(w).Encode(map[string]string{"run_id": "run-42"})
		}
	case r.Method == http.MethodGet && r.URL.Path == "/api/run":
		assert.Equal(f.t, "run-42", r.URL.Query().Get("run_id"))
		n := int(f.polls.Add(1))
		code, body := f.respond(n)
		w.WriteHeader(code)
		_, _ = w.Write([]byte(body))
	default:
		f.t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
	}
}

func statusBody(status schema.RunStatus) string {
	return `{"id":"run-42","status":"` + string(status) + `","outputs":[],"progress":0.5}`
}

func TestRunSync_SucceedsOnAttemptK(t *testing.T) {
	const k = 3
	interval := 20 * time.Millisecond
	svc := &fakeService{t: t, respond: func(n int) (int, string) {
		if n == k {
			return http.StatusOK, `{"id":"run-42","status":"success","outputs":[{"data":{"images":[{"url":"https://cdn/out.png","filename":"out.png"}]}}],"progress":1}`
		}
		return http.StatusOK, statusBody(schema.StatusRunning)
	}}
	c, _ := newTestClient(t, svc.ServeHTTP, WithPollConfig(PollConfig{Interval: interval, MaxAttempts: 10}))

	var observed []int
	start := time.Now()
	out, err := c.RunSync(context.Background(), schema.RunRequest{DeploymentID: "dep-1"}, OnPoll(func(attempt int, _ *schema.RunOutput, _ error) {
		observed = append(observed, attempt)
	}))
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, schema.StatusSuccess, out.Status)
	assert.Equal(t, "out.png", out.Outputs[0].Data.Images[0].Filename)
	assert.False(t, out.Incomplete())
	assert.Equal(t, int32(k), svc.polls.Load())
	assert.Equal(t, []int{1, 2, 3}, observed)
	assert.GreaterOrEqual(t, elapsed, time.Duration(k-1)*interval)
}

func TestRunSync_ExhaustedReturnsOnlyRunID(t *testing.T) {
	svc := &fakeService{t: t, respond: func(n int) (int, string) {
		return http.StatusOK, statusBody(schema.StatusQueued)
	}}
	c, _ := newTestClient(t, svc.ServeHTTP, WithPollConfig(PollConfig{Interval: time.Millisecond, MaxAttempts: 5}))

	out, err := c.RunSync(context.Background(), schema.RunRequest{DeploymentID: "dep-1"})
	require.NoError(t, err)
	assert.True(t, out.Incomplete())
	assert.Equal(t, int32(5), svc.polls.Load())

	raw, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"run-42"}`, string(raw))
}

func TestRunSync_FailedPollsConsumeAttempts(t *testing.T) {
	svc := &fakeService{t: t, respond: func(n int) (int, string) {
		switch n % 3 {
		case 0:
			return http.StatusBadGateway, "upstream down"
		case 1:
			return http.StatusOK, "not json"
		default:
			return http.StatusOK, `{"id":"run-42","status":"weird","outputs":[]}`
		}
	}}
	c, _ := newTestClient(t, svc.ServeHTTP, WithPollConfig(PollConfig{Interval: time.Millisecond, MaxAttempts: 4}))

	var errs int
	out, err := c.RunSync(context.Background(), schema.RunRequest{DeploymentID: "dep-1"}, OnPoll(func(_ int, out *schema.RunOutput, err error) {
		if err != nil {
			errs++
			assert.Nil(t, out)
		}
	}))
	require.NoError(t, err)
	assert.Equal(t, &schema.RunOutput{ID: "run-42"}, out)
	assert.Equal(t, int32(4), svc.polls.Load())
	assert.Equal(t, 4, errs)
}

func TestRunSync_FailedSubmissionSkipsPolling(t *testing.T) {
	svc := &fakeService{t: t, submitCode: http.StatusInternalServerError, respond: func(n int) (int, string) {
		t.Error("GetRun must not be called after a failed submission")
		return http.StatusOK, statusBody(schema.StatusSuccess)
	}}
	c, _ := newTestClient(t, svc.ServeHTTP, WithPollConfig(PollConfig{Interval: time.Millisecond, MaxAttempts: 3}))

	out, err := c.RunSync(context.Background(), schema.RunRequest{DeploymentID: "dep-1"})
	assert.Nil(t, out)
	assert.True(t, IsKind(err, KindStatus))
	assert.Zero(t, svc.polls.Load())
}

func TestRunSync_CanceledStopsPolling(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := &fakeService{t: t, respond: func(n int) (int, string) {
		if n == 2 {
			cancel()
		}
		return http.StatusOK, statusBody(schema.StatusRunning)
	}}
	c, _ := newTestClient(t, svc.ServeHTTP, WithPollConfig(PollConfig{Interval: 5 * time.Millisecond, MaxAttempts: 100}))

	out, err := c.RunSync(ctx, schema.RunRequest{DeploymentID: "dep-1"})
	assert.Nil(t, out)
	assert.True(t, IsKind(err, KindCanceled), "got %v", err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, svc.polls.Load(), int32(2))
}

func TestPollConfigDefaults(t *testing.T) {
	assert.Equal(t, PollConfig{Interval: time.Second, MaxAttempts: 300}, DefaultPollConfig())
	assert.Equal(t, DefaultPollConfig(), PollConfig{}.withDefaults())
	assert.Equal(t, PollConfig{Interval: time.Minute, MaxAttempts: 300}, PollConfig{Interval: time.Minute}.withDefaults())

	c, err := New(WithAPIToken("tok"))
	require.NoError(t, err)
	assert.Equal(t, DefaultPollConfig(), c.poll)
}
