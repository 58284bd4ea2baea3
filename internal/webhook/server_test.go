package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Backland-Labs/runclient/internal/logger"
	"github.com/Backland-Labs/runclient/internal/schema"
)

type recordingConsumer struct {
	payloads []*schema.WebhookPayload
	err      error
}

func (c *recordingConsumer) HandleRun(_ context.Context, p *schema.WebhookPayload) error {
	c.payloads = append(c.payloads, p)
	return c.err
}

func newTestServer(t *testing.T, consumer Consumer, opts ...Option) *httptest.Server {
	t.Helper()
	opts = append([]Option{WithLogger(logger.NewNop())}, opts...)
	s := NewServer("localhost:0", consumer, opts...)
	server := httptest.NewServer(s.Handler())
	t.Cleanup(server.Close)
	return server
}

func TestDeliveryAccepted(t *testing.T) {
	consumer := &recordingConsumer{}
	server := newTestServer(t, consumer)

	body := `{"status":"success","run_id":"run-7","outputs":[{"data":{"files":[{"url":"https://cdn/x.zip","filename":"x.zip"}]}}]}`
	resp, err := http.Post(server.URL+"/webhook", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	var got map[string]bool
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.True(t, got["received"])

	require.Len(t, consumer.payloads, 1)
	assert.Equal(t, "run-7", consumer.payloads[0].RunID)
	assert.Equal(t, schema.StatusSuccess, consumer.payloads[0].Status)
	assert.Equal(t, "x.zip", consumer.payloads[0].Outputs[0].Data.Files[0].Filename)
}

func TestDeliveryBogusStatus(t *testing.T) {
	consumer := &recordingConsumer{}
	server := newTestServer(t, consumer, WithResponseHeader("Access-Control-Allow-Origin", "*"))

	req, err := http.NewRequest(http.MethodPost, server.URL+"/webhook", strings.NewReader(`{"status":"bogus","run_id":"run-7","outputs":[]}`))
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "delivery-1")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "delivery-1", resp.Header.Get("X-Request-ID"))

	var fields map[string][]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&fields))
	require.Contains(t, fields, "status")
	assert.Len(t, fields, 1)
	assert.Empty(t, consumer.payloads)
}

func TestDeliveryMalformed(t *testing.T) {
	server := newTestServer(t, &recordingConsumer{})

	resp, err := http.Post(server.URL+"/webhook", "application/json", strings.NewReader(`{{`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	var got map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, schema.MsgInvalidRequest, got["message"])
}

func TestDeliveryConsumerError(t *testing.T) {
	consumer := &recordingConsumer{err: errors.New("downstream unavailable")}
	server := newTestServer(t, consumer)

	body := `{"status":"failed","run_id":"run-8","outputs":[]}`
	resp, err := http.Post(server.URL+"/webhook", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Len(t, consumer.payloads, 1)
}

func TestCustomPathAndHealth(t *testing.T) {
	server := newTestServer(t, ConsumerFunc(func(context.Context, *schema.WebhookPayload) error { return nil }), WithPath("/hooks/run"))

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(server.URL+"/webhook", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Post(server.URL+"/hooks/run", "application/json", strings.NewReader(`{"status":"queued","run_id":"r","outputs":[]}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStartAndShutdown(t *testing.T) {
	s := NewServer("localhost:0", &recordingConsumer{}, WithLogger(logger.NewNop()))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Start(ctx) }()

	require.Eventually(t, func() bool { return s.Addr() != "" }, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + s.Addr() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
