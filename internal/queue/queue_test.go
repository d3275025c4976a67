package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/xtrace-dev/xtrace-go/internal/record"
)

func batchWithTrace(id string) *record.Batch {
	return &record.Batch{Trace: &record.Trace{ID: id, Timestamp: record.Now()}}
}

func TestTryEnqueueBounded(t *testing.T) {
	q := New(2)

	if !q.TryEnqueue(batchWithTrace("a")) {
		t.Fatal("first enqueue should succeed")
	}
	if !q.TryEnqueue(batchWithTrace("b")) {
		t.Fatal("second enqueue should succeed")
	}
	if q.TryEnqueue(batchWithTrace("c")) {
		t.Error("enqueue past capacity should fail")
	}
	if q.Len() != 2 {
		t.Errorf("Len() = %d, want 2", q.Len())
	}
}

func TestFIFOOrder(t *testing.T) {
	q := New(10)
	for _, id := range []string{"t1", "t2", "t3"} {
		q.TryEnqueue(batchWithTrace(id))
	}

	for _, want := range []string{"t1", "t2", "t3"} {
		b, ok := q.DequeueTimeout(time.Second)
		if !ok {
			t.Fatal("unexpected timeout")
		}
		if b.TraceID() != want {
			t.Errorf("dequeued %q, want %q", b.TraceID(), want)
		}
	}
}

func TestDequeueTimeout(t *testing.T) {
	q := New(1)
	start := time.Now()
	_, ok := q.DequeueTimeout(20 * time.Millisecond)
	if ok {
		t.Fatal("dequeue on empty queue should time out")
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Error("dequeue returned before the timeout elapsed")
	}
}

func TestDrainNonBlocking(t *testing.T) {
	q := New(10)
	for i := 0; i < 5; i++ {
		q.TryEnqueue(batchWithTrace("t"))
	}

	got := q.DrainNonBlocking()
	if len(got) != 5 {
		t.Errorf("drained %d batches, want 5", len(got))
	}
	if !q.Empty() {
		t.Error("queue should be empty after drain")
	}

	if got := q.DrainNonBlocking(); got != nil {
		t.Errorf("second drain returned %d batches, want none", len(got))
	}
}

func TestConcurrentEnqueue(t *testing.T) {
	const producers = 16
	const perProducer = 50

	q := New(producers * perProducer)
	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				q.TryEnqueue(batchWithTrace("t"))
			}
		}()
	}
	wg.Wait()

	if q.Len() != producers*perProducer {
		t.Errorf("Len() = %d, want %d", q.Len(), producers*perProducer)
	}
}
