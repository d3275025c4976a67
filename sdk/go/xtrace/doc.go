// Package xtrace is the Go client for the xtrace telemetry collector.
// Application code records traces and observations describing LLM-client
// calls; a background worker batches them, groups them by trace, and
// delivers them to the collector without ever blocking the caller.
//
// Usage:
//
//	xt, err := xtrace.New(xtrace.WithAPIKey("sk-..."))
//	defer xt.Shutdown(time.Second)
//
//	chat := xtrace.NewChatClient(xt, "http://localhost:11434/v1/chat/completions", apiKey,
//	    xtrace.ChatWithName("support-bot"))
//	resp, err := chat.Complete(ctx, xtrace.ChatRequest{
//	    Model:    "llama3.2",
//	    Messages: []xtrace.ChatMessage{{Role: "user", Content: "hi"}},
//	})
//
// Delivery is best-effort: a full queue drops the newest record and a
// payload that exhausts its retry budget is discarded. Both outcomes
// are visible through Stats, never as errors on the caller's path.
//
// The SDK links directly against internal packages for zero-copy
// enqueue. External users import github.com/xtrace-dev/xtrace-go/sdk/go/xtrace.
package xtrace
