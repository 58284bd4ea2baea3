package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Backland-Labs/runclient/internal/logger"
	"github.com/Backland-Labs/runclient/internal/schema"
)

const (
	// DefaultAPIBase is used when no base URL is configured
	DefaultAPIBase = "https://www.comfydeploy.com/api"

	// DefaultTimeout is the default HTTP client timeout
	DefaultTimeout = 30 * time.Second

	// maxResponseBytes bounds how much of a response body is decoded
	maxResponseBytes = 10 << 20
)

// Client talks to the workflow-execution service.
// It is immutable after New and safe for concurrent use.
type Client struct {
	apiBase    string
	apiToken   string
	httpClient *http.Client
	poll       PollConfig
	log        *logger.Logger
}

// Option configures a Client
type Option func(*Client)

// WithAPIBase points the client at a self-hosted service. The "/api" suffix is appended.
func WithAPIBase(base string) Option {
	return func(c *Client) {
		if base != "" {
			c.apiBase = strings.TrimRight(base, "/") + "/api"
		}
	}
}

// WithAPIToken sets the bearer token sent with every request
func WithAPIToken(token string) Option {
	return func(c *Client) {
		c.apiToken = token
	}
}

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithPollConfig overrides the RunSync polling parameters
func WithPollConfig(p PollConfig) Option {
	return func(c *Client) {
		c.poll = p.withDefaults()
	}
}

// WithLogger sets the logger used for failure diagnostics
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New creates a Client. An API token is required.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		apiBase: DefaultAPIBase,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		poll: DefaultPollConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.GetLogger()
	}

	if c.apiToken == "" {
		return nil, ErrMissingToken
	}

	return c, nil
}

// APIBase returns the resolved base URL including the /api suffix
func (c *Client) APIBase() string {
	return c.apiBase
}

// Run submits a run for the given deployment
func (c *Client) Run(ctx context.Context, req schema.RunRequest) (*schema.RunHandle, error) {
	const op = "run"

	if err := schema.Validate(&req); err != nil {
		return nil, c.fail(classify(ctx, op, KindValidation, err))
	}

	var handle schema.RunHandle
	if err := c.do(ctx, op, http.MethodPost, "/run", nil, req, &handle); err != nil {
		return nil, err
	}
	return &handle, nil
}

// GetRun fetches a single status snapshot of a run
func (c *Client) GetRun(ctx context.Context, runID string) (*schema.RunOutput, error) {
	query := url.Values{}
	query.Set("run_id", runID)

	var out schema.RunOutput
	if err := c.do(ctx, "get_run", http.MethodGet, "/run", query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetUploadURL obtains one-shot credentials for uploading a file of the given type and size
func (c *Client) GetUploadURL(ctx context.Context, fileType string, fileSize int64) (*schema.UploadTicket, error) {
	query := url.Values{}
	query.Set("type", fileType)
	query.Set("file_size", strconv.FormatInt(fileSize, 10))

	var ticket schema.UploadTicket
	if err := c.do(ctx, "get_upload_url", http.MethodGet, "/upload-url", query, nil, &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// GetWebsocketURL returns the live progress endpoint for a deployment
func (c *Client) GetWebsocketURL(ctx context.Context, deploymentID string) (*schema.WebsocketEndpoint, error) {
	var endpoint schema.WebsocketEndpoint
	path := "/websocket/" + url.PathEscape(deploymentID)
	if err := c.do(ctx, "get_websocket_url", http.MethodGet, path, nil, nil, &endpoint); err != nil {
		return nil, err
	}
	return &endpoint, nil
}

// do sends one request and decodes the validated response into out
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out interface{}) error {
	endpoint := c.apiBase + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return c.fail(&Error{Op: op, Kind: KindValidation, Err: fmt.Errorf("failed to marshal request: %w", err)})
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return c.fail(&Error{Op: op, Kind: KindNetwork, Err: fmt.Errorf("failed to create request: %w", err)})
	}

	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.fail(classify(ctx, op, KindNetwork, fmt.Errorf("failed to execute request: %w", err)))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return c.fail(classify(ctx, op, KindNetwork, fmt.Errorf("failed to read response: %w", err)))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.fail(&Error{
			Op:         op,
			Kind:       KindStatus,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s", strings.TrimSpace(string(data))),
		})
	}

	if err := schema.Decode(data, out); err != nil {
		return c.fail(classify(ctx, op, KindDecode, err))
	}
	return nil
}

// fail logs the cause of a failed operation and returns it
func (c *Client) fail(e *Error) *Error {
	log := c.log.WithFields(map[string]interface{}{
		"op":   e.Op,
		"kind": string(e.Kind),
	})
	if e.StatusCode != 0 {
		log = log.WithField("status", e.StatusCode)
	}
	log.WithError(e.Err).Warn("Request to workflow service failed")
	return e
}
