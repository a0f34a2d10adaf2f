package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Run statuses reported by the Assistants API.
const (
	StatusQueued         = "queued"
	StatusRunning        = "running"
	StatusInProgress     = "in_progress"
	StatusRequiresAction = "requires_action"
	StatusCompleted      = "completed"
	StatusFailed         = "failed"
)

// Run is the state of one assistant execution against a thread.
type Run struct {
	ID             string          `json:"id"`
	Status         string          `json:"status"`
	RequiredAction *RequiredAction `json:"required_action,omitempty"`
	LastError      *RunError       `json:"last_error,omitempty"`
}

// RequiredAction carries the tool calls a run is blocked on.
type RequiredAction struct {
	SubmitToolOutputs SubmitToolOutputsAction `json:"submit_tool_outputs"`
}

type SubmitToolOutputsAction struct {
	ToolCalls []ToolCall `json:"tool_calls"`
}

// ToolCall is a backend request to execute a named local function.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolOutput is the result fed back to the backend for one tool call.
type ToolOutput struct {
	ToolCallID string `json:"tool_call_id"`
	Output     string `json:"output"`
}

// RunError is diagnostic detail attached to a failed run.
type RunError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ThreadMessage is one message on a thread, flattened to its first text part.
type ThreadMessage struct {
	Role string
	Text string
}

// threadResponse is the minimal shape returned when creating a thread.
type threadResponse struct {
	ID string `json:"id"`
}

type messageRequest struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type runRequest struct {
	AssistantID string `json:"assistant_id"`
}

type toolOutputsRequest struct {
	ToolOutputs []ToolOutput `json:"tool_outputs"`
}

// listMessagesResponse is the minimal shape of the thread message list,
// ordered latest-first.
type listMessagesResponse struct {
	Data []struct {
		Role    string `json:"role"`
		Content []struct {
			Type string `json:"type"`
			Text struct {
				Value string `json:"value"`
			} `json:"text"`
		} `json:"content"`
	} `json:"data"`
}

// HTTPStatusError captures non-2xx upstream responses with status-aware
// context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("assistant: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// AssistantClient is a focused client for the OpenAI Assistants API: threads,
// messages, runs and tool outputs.
type AssistantClient struct {
	baseURL    string
	httpClient *http.Client
	apiKey     string
}

type ClientOption func(*AssistantClient)

func WithBaseURL(baseURL string) ClientOption {
	return func(c *AssistantClient) {
		c.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
}

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *AssistantClient) {
		c.httpClient = httpClient
	}
}

// NewAssistantClient creates a client authenticated with the given API key.
func NewAssistantClient(apiKey string, opts ...ClientOption) *AssistantClient {
	c := &AssistantClient{
		baseURL:    "https://api.openai.com/v1",
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiKey:     apiKey,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateThread starts a new empty conversation thread and returns its ID.
func (c *AssistantClient) CreateThread(ctx context.Context) (string, error) {
	var resp threadResponse
	if err := c.doJSON(ctx, http.MethodPost, "/threads", struct{}{}, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("assistant: empty thread id in response")
	}
	return resp.ID, nil
}

// AddMessage appends a message to a thread.
func (c *AssistantClient) AddMessage(ctx context.Context, threadID, role, content string) error {
	path := fmt.Sprintf("/threads/%s/messages", threadID)
	return c.doJSON(ctx, http.MethodPost, path, messageRequest{Role: role, Content: content}, nil)
}

// CreateRun starts an assistant run on a thread and returns the run ID.
func (c *AssistantClient) CreateRun(ctx context.Context, threadID, assistantID string) (string, error) {
	var resp Run
	path := fmt.Sprintf("/threads/%s/runs", threadID)
	if err := c.doJSON(ctx, http.MethodPost, path, runRequest{AssistantID: assistantID}, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("assistant: empty run id in response")
	}
	return resp.ID, nil
}

// GetRun retrieves the current state of a run.
func (c *AssistantClient) GetRun(ctx context.Context, threadID, runID string) (*Run, error) {
	var resp Run
	path := fmt.Sprintf("/threads/%s/runs/%s", threadID, runID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SubmitToolOutputs feeds tool results back to a run blocked on
// requires_action.
func (c *AssistantClient) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []ToolOutput) error {
	path := fmt.Sprintf("/threads/%s/runs/%s/submit_tool_outputs", threadID, runID)
	return c.doJSON(ctx, http.MethodPost, path, toolOutputsRequest{ToolOutputs: outputs}, nil)
}

// LatestMessage returns the most recent message on a thread.
func (c *AssistantClient) LatestMessage(ctx context.Context, threadID string) (*ThreadMessage, error) {
	var resp listMessagesResponse
	path := fmt.Sprintf("/threads/%s/messages", threadID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("assistant: no messages in thread %s", threadID)
	}

	latest := resp.Data[0]
	msg := &ThreadMessage{Role: latest.Role}
	if len(latest.Content) > 0 {
		msg.Text = latest.Content[0].Text.Value
	}
	return msg, nil
}

func (c *AssistantClient) doJSON(ctx context.Context, method, path string, payload, out interface{}) error {
	url := c.baseURL + path

	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("assistant: marshal request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("assistant: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("OpenAI-Beta", "assistants=v2")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("assistant: request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        url,
			Body:       string(buf),
		}
	}

	if out == nil {
		return nil
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("assistant: read response body: %w", err)
	}
	if err := json.Unmarshal(buf, out); err != nil {
		return fmt.Errorf("assistant: decode response: %w", err)
	}
	return nil
}
