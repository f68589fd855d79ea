package runner

import (
	"context"
	"sync"

	"github.com/flywheel-ml/flywheel/internal/domain"
)

// QueueFeedbackCollector is an in-process domain.FeedbackCollector,
// symmetric to QueueSource: something upstream of this module (a webhook
// handler, a broker consumer) pushes ground-truth events as they arrive,
// and the runner's feedback-join stage drains them once per cycle.
type QueueFeedbackCollector struct {
	mu    sync.Mutex
	items []domain.Feedback
}

// NewQueueFeedbackCollector builds an empty collector.
func NewQueueFeedbackCollector() *QueueFeedbackCollector {
	return &QueueFeedbackCollector{}
}

// Push enqueues one feedback event for a future Collect.
func (q *QueueFeedbackCollector) Push(fb domain.Feedback) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, fb)
}

// Collect drains every queued feedback event.
func (q *QueueFeedbackCollector) Collect(_ context.Context) ([]domain.Feedback, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, nil
	}
	out := q.items
	q.items = nil
	return out, nil
}

var _ domain.FeedbackCollector = (*QueueFeedbackCollector)(nil)
