// Package record defines the Batch: the unit handed to the ingestion
// queue and, after grouping, the unit delivered to the collector's
// /v1/l/batch endpoint. Field names follow the collector's wire schema;
// optional fields are pointers or nilable so absent values marshal as
// null rather than zero.
package record

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ObservationTypeGeneration tags an observation as one model call.
const ObservationTypeGeneration = "GENERATION"

// LevelDefault is the collector's neutral observation level.
const LevelDefault = "DEFAULT"

// UsageUnitTokens is the unit reported for token-based usage counts.
const UsageUnitTokens = "TOKENS"

// Trace is the header describing one logical end-to-end request.
type Trace struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Name      string         `json:"name,omitempty"`
	UserID    string         `json:"userId,omitempty"`
	SessionID string         `json:"sessionId,omitempty"`
	Tags      []string       `json:"tags,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	ProjectID string         `json:"projectId,omitempty"`
	Latency   *float64       `json:"latency,omitempty"`
	TotalCost *float64       `json:"totalCost,omitempty"`
}

// Usage carries token counts for one model call.
type Usage struct {
	Input  int64  `json:"input"`
	Output int64  `json:"output"`
	Total  int64  `json:"total"`
	Unit   string `json:"unit"`
}

// Observation is one measured unit of work within a trace.
type Observation struct {
	ID                   string         `json:"id"`
	TraceID              string         `json:"traceId"`
	Type                 string         `json:"type"`
	Name                 string         `json:"name,omitempty"`
	StartTime            *time.Time     `json:"startTime,omitempty"`
	EndTime              *time.Time     `json:"endTime,omitempty"`
	CompletionStartTime  *time.Time     `json:"completionStartTime,omitempty"`
	Model                string         `json:"model,omitempty"`
	ModelParameters      map[string]any `json:"modelParameters,omitempty"`
	Input                any            `json:"input,omitempty"`
	Output               any            `json:"output,omitempty"`
	Usage                *Usage         `json:"usage,omitempty"`
	Level                string         `json:"level,omitempty"`
	StatusMessage        string         `json:"statusMessage,omitempty"`
	ParentObservationID  string         `json:"parentObservationId,omitempty"`
	PromptName           string         `json:"promptName,omitempty"`
	PromptVersion        string         `json:"promptVersion,omitempty"`
	ModelID              string         `json:"modelId,omitempty"`
	InputPrice           *float64       `json:"inputPrice,omitempty"`
	OutputPrice          *float64       `json:"outputPrice,omitempty"`
	TotalPrice           *float64       `json:"totalPrice,omitempty"`
	CalculatedInputCost  *float64       `json:"calculatedInputCost,omitempty"`
	CalculatedOutputCost *float64       `json:"calculatedOutputCost,omitempty"`
	CalculatedTotalCost  *float64       `json:"calculatedTotalCost,omitempty"`
	Latency              *float64       `json:"latency,omitempty"`
	TimeToFirstToken     *float64       `json:"timeToFirstToken,omitempty"`
	CompletionTokens     *int64         `json:"completionTokens,omitempty"`
	PromptTokens         *int64         `json:"promptTokens,omitempty"`
	TotalTokens          *int64         `json:"totalTokens,omitempty"`
	Unit                 string         `json:"unit,omitempty"`
	Metadata             map[string]any `json:"metadata,omitempty"`
	ProjectID            string         `json:"projectId,omitempty"`
}

// Batch combines an optional trace header with the observations recorded
// under it. It is immutable once enqueued: the pipeline reads it but
// never mutates it, so a single value can be shared without copying.
type Batch struct {
	Trace        *Trace        `json:"trace"`
	Observations []Observation `json:"observations"`
}

// TraceID resolves the trace identity a batch belongs to: the header's
// id if a header is present, else the traceId of the first observation.
// Returns "" when neither is available; such a batch is unroutable and
// the grouper drops it.
func (b *Batch) TraceID() string {
	if b.Trace != nil && b.Trace.ID != "" {
		return b.Trace.ID
	}
	if len(b.Observations) > 0 {
		return b.Observations[0].TraceID
	}
	return ""
}

// Validate checks that a batch can be routed and that every observation
// carries the identities the collector requires.
func Validate(b *Batch) error {
	if b.TraceID() == "" {
		return fmt.Errorf("batch has no resolvable trace id")
	}
	for i, o := range b.Observations {
		if o.ID == "" {
			return fmt.Errorf("observation %d: id is required", i)
		}
		if o.TraceID == "" {
			return fmt.Errorf("observation %d: traceId is required", i)
		}
	}
	return nil
}

// ReadFile loads a batch from a JSON spool file.
func ReadFile(path string) (*Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read batch file: %w", err)
	}
	var b Batch
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decode batch file: %w", err)
	}
	return &b, nil
}

// WriteFile atomically writes a batch to dir/{name}.json (tmp + rename,
// so a concurrent reader never sees a partial file).
func WriteFile(b *Batch, dir, name string) error {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}

	dst := filepath.Join(dir, name+".json")
	tmp := dst + ".tmp"

	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename to final: %w", err)
	}
	return nil
}
