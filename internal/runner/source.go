package runner

import (
	"context"
	"encoding/json"
	"sync"
)

// RecordSource hands the runner raw input records for one pipeline cycle.
// The manifest's `source` field names a real event-bus topic or webhook,
// which is an external collaborator this control plane does not
// reimplement (same boundary as the model-serving processes themselves,
// spec §1); a RecordSource is the seam something upstream (an ingest RPC
// handler, a broker consumer process not in this module) feeds through.
type RecordSource interface {
	// Pull returns up to max pending records, oldest first, or fewer if
	// that's all that's queued. An empty, nil-error result means idle.
	Pull(ctx context.Context, max int) ([]json.RawMessage, error)
}

// QueueSource is an in-process FIFO RecordSource, grounded on the
// teacher's MemoryStore's mutex-guarded map idiom adapted to a queue: Push
// is how an ingest handler or test enqueues a record, Pull is how a
// runner's cycle drains it.
type QueueSource struct {
	mu    sync.Mutex
	items []json.RawMessage
}

// NewQueueSource builds an empty in-process queue.
func NewQueueSource() *QueueSource {
	return &QueueSource{}
}

// Push enqueues one raw record for a future Pull.
func (q *QueueSource) Push(raw json.RawMessage) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, raw)
}

// Pull drains up to max queued records in FIFO order.
func (q *QueueSource) Pull(_ context.Context, max int) ([]json.RawMessage, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, nil
	}
	n := max
	if n <= 0 || n > len(q.items) {
		n = len(q.items)
	}
	batch := q.items[:n]
	q.items = q.items[n:]
	return batch, nil
}

// Len reports the number of records currently queued.
func (q *QueueSource) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

var _ RecordSource = (*QueueSource)(nil)
