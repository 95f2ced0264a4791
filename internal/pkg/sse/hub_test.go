package sse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishSubscribe(t *testing.T) {
	h := NewHub(1)

	a, cancelA := h.Subscribe("reports")
	b, cancelB := h.Subscribe("reports")
	other, cancelOther := h.Subscribe("other")
	defer cancelOther()
	assert.Equal(t, 2, h.SubscriberCount("reports"))

	h.Publish("reports", Event{Name: "report.generated", Data: "r-1"})

	got := <-a
	assert.Equal(t, "reports", got.Topic)
	assert.Equal(t, "report.generated", got.Name)
	assert.Equal(t, "r-1", (<-b).Data)
	assert.Empty(t, other)

	// full buffers drop instead of blocking
	h.Publish("reports", Event{Name: "first"})
	h.Publish("reports", Event{Name: "second"})
	assert.Equal(t, "first", (<-a).Name)
	assert.Empty(t, a)

	cancelA()
	cancelA()
	_, open := <-a
	assert.False(t, open)
	assert.Equal(t, 1, h.SubscriberCount("reports"))

	cancelB()
	require.Equal(t, 0, h.SubscriberCount("reports"))
	h.Publish("reports", Event{Name: "nobody"})
}
