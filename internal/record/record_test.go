package record

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func testBatch() *Batch {
	lat := 1.25
	ct := int64(42)
	start := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	end := start.Add(1250 * time.Millisecond)
	return &Batch{
		Trace: &Trace{
			ID:        "0f1e2d3c-4b5a-6978-8796-a5b4c3d2e1f0",
			Timestamp: start,
			Name:      "chat",
			UserID:    "user-7",
			SessionID: "sess-12",
			Tags:      []string{"prod"},
			ProjectID: "default",
			Latency:   &lat,
		},
		Observations: []Observation{
			{
				ID:               "11111111-2222-3333-4444-555555555555",
				TraceID:          "0f1e2d3c-4b5a-6978-8796-a5b4c3d2e1f0",
				Type:             ObservationTypeGeneration,
				Name:             "chat",
				StartTime:        &start,
				EndTime:          &end,
				Model:            "llama-3.1-8b-instant",
				Input:            []map[string]string{{"role": "user", "content": "hi"}},
				Output:           "hello",
				Usage:            &Usage{Input: 3, Output: 42, Total: 45, Unit: UsageUnitTokens},
				Level:            LevelDefault,
				Latency:          &lat,
				CompletionTokens: &ct,
			},
		},
	}
}

func TestTraceIDFromHeader(t *testing.T) {
	b := testBatch()
	if got := b.TraceID(); got != b.Trace.ID {
		t.Errorf("TraceID() = %q, want header id %q", got, b.Trace.ID)
	}
}

func TestTraceIDFromObservation(t *testing.T) {
	b := testBatch()
	b.Trace = nil
	if got := b.TraceID(); got != "0f1e2d3c-4b5a-6978-8796-a5b4c3d2e1f0" {
		t.Errorf("TraceID() = %q, want first observation's traceId", got)
	}
}

func TestTraceIDUnroutable(t *testing.T) {
	b := &Batch{}
	if got := b.TraceID(); got != "" {
		t.Errorf("TraceID() = %q, want empty for unroutable batch", got)
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(testBatch()); err != nil {
		t.Errorf("valid batch rejected: %v", err)
	}

	b := testBatch()
	b.Observations[0].ID = ""
	if err := Validate(b); err == nil {
		t.Error("expected error for observation without id")
	}

	if err := Validate(&Batch{}); err == nil {
		t.Error("expected error for unroutable batch")
	}
}

func TestWireFieldNames(t *testing.T) {
	data, err := json.Marshal(testBatch())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	body := string(data)

	// The collector expects camelCase field names.
	for _, field := range []string{`"trace"`, `"observations"`, `"traceId"`, `"userId"`, `"sessionId"`, `"startTime"`, `"completionTokens"`} {
		if !strings.Contains(body, field) {
			t.Errorf("wire payload missing field %s", field)
		}
	}
	if strings.Contains(body, `"trace_id"`) {
		t.Error("wire payload must not use snake_case field names")
	}
}

func TestMarshalNilTrace(t *testing.T) {
	b := testBatch()
	b.Trace = nil
	data, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	// A missing header is sent as explicit null, not omitted.
	if !strings.Contains(string(data), `"trace":null`) {
		t.Errorf("expected trace:null in %s", data)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	b := testBatch()

	if err := WriteFile(b, dir, "batch-001"); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := ReadFile(filepath.Join(dir, "batch-001.json"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got.TraceID() != b.TraceID() {
		t.Errorf("trace id = %q, want %q", got.TraceID(), b.TraceID())
	}
	if len(got.Observations) != 1 {
		t.Fatalf("observations = %d, want 1", len(got.Observations))
	}
	if got.Observations[0].Usage == nil || got.Observations[0].Usage.Total != 45 {
		t.Error("usage not preserved through round trip")
	}
}

func TestWriteFileLeavesNoTemp(t *testing.T) {
	dir := t.TempDir()
	if err := WriteFile(testBatch(), dir, "b"); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()
	if a == b {
		t.Error("NewID returned duplicate values")
	}
	if len(a) != 36 {
		t.Errorf("NewID() = %q, want UUID string", a)
	}
}
