package runner

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flywheel-ml/flywheel/internal/domain"
)

func TestQueueSource_PullDrainsFIFOUpToMax(t *testing.T) {
	q := NewQueueSource()
	q.Push(json.RawMessage(`{"n":1}`))
	q.Push(json.RawMessage(`{"n":2}`))
	q.Push(json.RawMessage(`{"n":3}`))
	require.Equal(t, 3, q.Len())

	batch, err := q.Pull(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.JSONEq(t, `{"n":1}`, string(batch[0]))
	assert.JSONEq(t, `{"n":2}`, string(batch[1]))
	assert.Equal(t, 1, q.Len())

	rest, err := q.Pull(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.JSONEq(t, `{"n":3}`, string(rest[0]))
	assert.Equal(t, 0, q.Len())
}

func TestQueueSource_PullEmptyReturnsNilNotError(t *testing.T) {
	q := NewQueueSource()
	batch, err := q.Pull(context.Background(), 10)
	require.NoError(t, err)
	assert.Nil(t, batch)
}

func TestQueueFeedbackCollector_CollectDrainsAll(t *testing.T) {
	c := NewQueueFeedbackCollector()
	c.Push(domain.Feedback{ID: "fb-1"})
	c.Push(domain.Feedback{ID: "fb-2"})

	events, err := c.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "fb-1", events[0].ID)
	assert.Equal(t, "fb-2", events[1].ID)

	again, err := c.Collect(context.Background())
	require.NoError(t, err)
	assert.Nil(t, again)
}
