package pipeline

import "github.com/xtrace-dev/xtrace-go/internal/record"

// GroupByTrace merges a drained buffer into delivery batches, one per
// distinct trace identity, in order of first appearance. The trace
// header is first-non-nil wins: a later duplicate header for the same
// identity does not overwrite an earlier one. Observations concatenate
// in arrival order. Batches with no resolvable trace identity cannot be
// routed and are counted in the second return value, not delivered.
func GroupByTrace(items []*record.Batch) ([]*record.Batch, int) {
	grouped := make(map[string]*record.Batch)
	var order []string
	unroutable := 0

	for _, it := range items {
		id := it.TraceID()
		if id == "" {
			unroutable++
			continue
		}

		g, ok := grouped[id]
		if !ok {
			g = &record.Batch{}
			grouped[id] = g
			order = append(order, id)
		}
		if g.Trace == nil && it.Trace != nil {
			g.Trace = it.Trace
		}
		g.Observations = append(g.Observations, it.Observations...)
	}

	out := make([]*record.Batch, 0, len(order))
	for _, id := range order {
		out = append(out, grouped[id])
	}
	return out, unroutable
}
