package xtrace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xtrace-dev/xtrace-go/internal/record"
)

// ChatMessage is one message in a chat-completions conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StreamOptions mirrors the provider's stream_options object.
type StreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

// ChatRequest is the request body for an OpenAI-compatible
// chat-completions endpoint.
type ChatRequest struct {
	Model         string         `json:"model"`
	Messages      []ChatMessage  `json:"messages"`
	MaxTokens     int            `json:"max_tokens,omitempty"`
	Temperature   *float64       `json:"temperature,omitempty"`
	Stream        bool           `json:"stream,omitempty"`
	StreamOptions *StreamOptions `json:"stream_options,omitempty"`
}

// ChatUsage is the provider's token accounting. Every field is
// optional: providers differ in what they report, and absence is a
// normal case, not an error.
type ChatUsage struct {
	PromptTokens     *int64 `json:"prompt_tokens,omitempty"`
	CompletionTokens *int64 `json:"completion_tokens,omitempty"`
	TotalTokens      *int64 `json:"total_tokens,omitempty"`
}

// ChatChoice is one completion alternative. Message is set on
// non-streaming responses, Delta on stream chunks.
type ChatChoice struct {
	Message      *ChatMessage `json:"message,omitempty"`
	Delta        *ChatMessage `json:"delta,omitempty"`
	FinishReason *string      `json:"finish_reason,omitempty"`
}

// ChatResponse is a chat-completions response or stream chunk.
type ChatResponse struct {
	ID      string       `json:"id,omitempty"`
	Model   string       `json:"model,omitempty"`
	Choices []ChatChoice `json:"choices"`
	Usage   *ChatUsage   `json:"usage,omitempty"`
}

// OutputText returns the first choice's message content, or "" when the
// provider returned none.
func (r *ChatResponse) OutputText() string {
	if len(r.Choices) == 0 || r.Choices[0].Message == nil {
		return ""
	}
	return r.Choices[0].Message.Content
}

// ChatClient instruments an OpenAI-compatible chat-completions endpoint.
// Every successful call produces one trace with one GENERATION
// observation, enqueued on the attached Client. Telemetry is a
// side-channel: enqueueing never delays or fails the provider call.
type ChatClient struct {
	tracer     *Client
	apiURL     string
	apiKey     string
	httpClient *http.Client

	name      string
	userID    string
	sessionID string
	projectID string
	tags      []string
	metadata  map[string]any
}

// ChatOption configures a ChatClient.
type ChatOption func(*ChatClient)

// ChatWithName sets the display name recorded on traces.
func ChatWithName(name string) ChatOption {
	return func(c *ChatClient) { c.name = name }
}

// ChatWithUser sets the user identifier recorded on traces.
func ChatWithUser(id string) ChatOption {
	return func(c *ChatClient) { c.userID = id }
}

// ChatWithSession sets the session identifier recorded on traces.
func ChatWithSession(id string) ChatOption {
	return func(c *ChatClient) { c.sessionID = id }
}

// ChatWithTags sets the tags recorded on traces.
func ChatWithTags(tags ...string) ChatOption {
	return func(c *ChatClient) { c.tags = tags }
}

// ChatWithMetadata sets free-form metadata recorded on traces.
func ChatWithMetadata(m map[string]any) ChatOption {
	return func(c *ChatClient) { c.metadata = m }
}

// ChatWithProject overrides the tracer's default project identifier.
func ChatWithProject(id string) ChatOption {
	return func(c *ChatClient) { c.projectID = id }
}

// ChatWithHTTPClient replaces the underlying HTTP client.
func ChatWithHTTPClient(hc *http.Client) ChatOption {
	return func(c *ChatClient) { c.httpClient = hc }
}

// NewChatClient wraps a chat-completions endpoint. apiURL is the full
// endpoint URL (e.g. http://localhost:11434/v1/chat/completions);
// apiKey may be empty for unauthenticated local providers.
func NewChatClient(tracer *Client, apiURL, apiKey string, opts ...ChatOption) *ChatClient {
	c := &ChatClient{
		tracer:     tracer,
		apiURL:     apiURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Complete issues a non-streaming chat completion and records it. The
// provider's response is returned unchanged; telemetry failures are
// invisible here.
func (c *ChatClient) Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	req.Stream = false
	req.StreamOptions = nil

	start := record.Now()
	resp, err := c.post(ctx, req)
	if err != nil {
		return nil, err
	}
	latency := time.Since(start).Seconds()

	c.tracer.Enqueue(c.buildBatch(start, latency, nil, req, resp.OutputText(), usageFromChat(resp.Usage)))
	return resp, nil
}

// post sends the request body and decodes a single JSON response.
func (c *ChatClient) post(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, _ := io.ReadAll(httpResp.Body)
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", httpResp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var out ChatResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

// buildBatch assembles the trace header and GENERATION observation for
// one completed call. latency and ttfb are in seconds, matching the
// collector's schema.
func (c *ChatClient) buildBatch(start time.Time, latency float64, ttfb *float64, req ChatRequest, output string, usage *record.Usage) *record.Batch {
	traceID := record.NewID()
	obsID := record.NewID()

	projectID := c.projectID
	if projectID == "" {
		projectID = c.tracer.ProjectID()
	}

	end := start.Add(time.Duration(latency * float64(time.Second)))
	var completionStart *time.Time
	if ttfb != nil {
		t := start.Add(time.Duration(*ttfb * float64(time.Second)))
		completionStart = &t
	}

	var outputAny any
	if output != "" {
		outputAny = output
	}

	obs := record.Observation{
		ID:                  obsID,
		TraceID:             traceID,
		Type:                record.ObservationTypeGeneration,
		Name:                "chat",
		StartTime:           &start,
		EndTime:             &end,
		CompletionStartTime: completionStart,
		Model:               req.Model,
		Input:               req.Messages,
		Output:              outputAny,
		Usage:               usage,
		Level:               record.LevelDefault,
		Latency:             &latency,
		TimeToFirstToken:    ttfb,
		Unit:                record.UsageUnitTokens,
		ProjectID:           projectID,
	}
	if usage != nil {
		obs.PromptTokens = &usage.Input
		obs.CompletionTokens = &usage.Output
		obs.TotalTokens = &usage.Total
	}

	return &record.Batch{
		Trace: &record.Trace{
			ID:        traceID,
			Timestamp: start,
			Name:      c.name,
			UserID:    c.userID,
			SessionID: c.sessionID,
			Tags:      c.tags,
			Metadata:  c.metadata,
			ProjectID: projectID,
			Latency:   &latency,
		},
		Observations: []record.Observation{obs},
	}
}

// usageFromChat converts provider token accounting to the collector's
// usage shape. Returns nil when the provider reported nothing.
func usageFromChat(u *ChatUsage) *record.Usage {
	if u == nil {
		return nil
	}
	if u.PromptTokens == nil && u.CompletionTokens == nil && u.TotalTokens == nil {
		return nil
	}

	var in, out, total int64
	if u.PromptTokens != nil {
		in = *u.PromptTokens
	}
	if u.CompletionTokens != nil {
		out = *u.CompletionTokens
	}
	if u.TotalTokens != nil {
		total = *u.TotalTokens
	} else {
		total = in + out
	}
	return &record.Usage{Input: in, Output: out, Total: total, Unit: record.UsageUnitTokens}
}
