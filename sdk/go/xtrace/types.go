package xtrace

import (
	"github.com/xtrace-dev/xtrace-go/internal/pipeline"
	"github.com/xtrace-dev/xtrace-go/internal/record"
)

// The wire types live in an internal package so the pipeline can share
// them without an import cycle; these aliases are the public surface.
type (
	// Batch is the unit handed to Enqueue: an optional trace header
	// plus the observations recorded under it.
	Batch = record.Batch

	// Trace is the header describing one logical end-to-end request.
	Trace = record.Trace

	// Observation is one measured unit of work within a trace.
	Observation = record.Observation

	// Usage carries token counts for one model call.
	Usage = record.Usage

	// Stats is a point-in-time snapshot of the client's monotonic
	// counters.
	Stats = pipeline.Snapshot
)

// Re-exported wire constants.
const (
	ObservationTypeGeneration = record.ObservationTypeGeneration
	LevelDefault              = record.LevelDefault
	UsageUnitTokens           = record.UsageUnitTokens
)

// NewID generates a collector-compatible trace or observation id.
func NewID() string {
	return record.NewID()
}

// ReadBatchFile loads a batch from a JSON spool file.
func ReadBatchFile(path string) (*Batch, error) {
	return record.ReadFile(path)
}

// WriteBatchFile atomically writes a batch to dir/{name}.json for a
// spool relay to pick up.
func WriteBatchFile(b *Batch, dir, name string) error {
	return record.WriteFile(b, dir, name)
}
