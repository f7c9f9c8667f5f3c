package telemetry

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcastReachesTopicSubscribersOnly(t *testing.T) {
	h := NewHub()
	a := h.Subscribe("a")
	b := h.Subscribe("b")

	h.Broadcast("a", "hello")

	assert.Equal(t, "hello", <-a)
	assert.Empty(t, b)
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe(TopicSweeps)
	other := h.Subscribe(TopicSweeps)
	require.Equal(t, 2, h.Subscribers(TopicSweeps))

	h.Unsubscribe(TopicSweeps, ch)
	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 1, h.Subscribers(TopicSweeps))

	h.Unsubscribe(TopicSweeps, other)
	assert.Zero(t, h.Subscribers(TopicSweeps))

	// Unknown channels are ignored.
	h.Unsubscribe(TopicSweeps, make(chan string))
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe("t")

	for i := 0; i < subscriberBuffer+5; i++ {
		h.Broadcast("t", "x")
	}

	assert.Len(t, ch, subscriberBuffer)
	assert.EqualValues(t, 5, h.Dropped())
}

func TestPublishEncodesJSON(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe("t")

	require.NoError(t, h.Publish("t", map[string]int{"converted": 3}))

	var got map[string]int
	require.NoError(t, json.Unmarshal([]byte(<-ch), &got))
	assert.Equal(t, 3, got["converted"])

	assert.Error(t, h.Publish("t", func() {}))
}

func TestConcurrentSubscribeAndBroadcast(t *testing.T) {
	h := NewHub()
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			ch := h.Subscribe("t")
			h.Unsubscribe("t", ch)
		}()
		go func() {
			defer wg.Done()
			h.Broadcast("t", "x")
		}()
	}
	wg.Wait()
	assert.Zero(t, h.Subscribers("t"))
}
