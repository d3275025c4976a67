package xtrace

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xtrace-dev/xtrace-go/internal/record"
)

// streamDone is the SSE sentinel terminating a chat-completions stream.
const streamDone = "[DONE]"

// ChatStream is a streaming chat completion in flight. The caller pulls
// chunks with Recv until io.EOF; the telemetry record is enqueued once,
// when the stream ends or is closed, whichever comes first.
type ChatStream struct {
	client *ChatClient
	req    ChatRequest
	body   io.ReadCloser
	sc     *bufio.Scanner

	start     time.Time
	ttfb      *float64
	parts     []string
	usage     *ChatUsage
	finalized bool
}

// Stream issues a streaming chat completion. stream_options.include_usage
// is enabled unless the caller set StreamOptions explicitly, so providers
// that support it report token usage in the trailing chunk.
func (c *ChatClient) Stream(ctx context.Context, req ChatRequest) (*ChatStream, error) {
	req.Stream = true
	if req.StreamOptions == nil {
		req.StreamOptions = &StreamOptions{IncludeUsage: true}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := record.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(httpResp.Body)
		httpResp.Body.Close()
		return nil, fmt.Errorf("HTTP %d: %s", httpResp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	return &ChatStream{
		client: c,
		req:    req,
		body:   httpResp.Body,
		sc:     bufio.NewScanner(httpResp.Body),
		start:  start,
	}, nil
}

// Recv returns the next chunk, or io.EOF when the stream is complete.
// The first chunk carrying delta text fixes the time-to-first-token.
func (s *ChatStream) Recv() (*ChatResponse, error) {
	for s.sc.Scan() {
		line := strings.TrimSpace(s.sc.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == streamDone {
			s.finalize()
			return nil, io.EOF
		}

		var chunk ChatResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			// Skip malformed keep-alive noise rather than killing the stream.
			continue
		}

		if delta := chunk.deltaText(); delta != "" {
			if s.ttfb == nil {
				d := time.Since(s.start).Seconds()
				s.ttfb = &d
			}
			s.parts = append(s.parts, delta)
		}
		if chunk.Usage != nil {
			s.usage = chunk.Usage
		}
		return &chunk, nil
	}

	s.finalize()
	if err := s.sc.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// Close releases the connection and records whatever was received so
// far. Safe to call after Recv returned io.EOF.
func (s *ChatStream) Close() error {
	s.finalize()
	return s.body.Close()
}

// finalize enqueues the telemetry record exactly once.
func (s *ChatStream) finalize() {
	if s.finalized {
		return
	}
	s.finalized = true

	latency := time.Since(s.start).Seconds()
	output := strings.Join(s.parts, "")
	s.client.tracer.Enqueue(s.client.buildBatch(s.start, latency, s.ttfb, s.req, output, usageFromChat(s.usage)))
}

// deltaText returns the chunk's streamed content fragment, if any.
func (r *ChatResponse) deltaText() string {
	if len(r.Choices) == 0 || r.Choices[0].Delta == nil {
		return ""
	}
	return r.Choices[0].Delta.Content
}
