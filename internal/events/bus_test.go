package events

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/indago/internal/models"
)

func statusEvent(progress int) models.Event {
	return models.NewEvent(models.EventStatusUpdate, map[string]interface{}{
		"status":   "processing",
		"progress": progress,
	})
}

func TestBus_DeliveryOrder(t *testing.T) {
	bus := NewBus(16, nil)
	sub := bus.Subscribe("job-1")
	defer sub.Close()

	for i := 0; i < 10; i++ {
		bus.Publish("job-1", models.NewEvent(models.EventQueryGenerated, map[string]interface{}{"seq": i}))
	}

	for i := 0; i < 10; i++ {
		ev := <-sub.Events()
		assert.Equal(t, i, ev.Data["seq"])
	}
}

func TestBus_DropOldestOnOverflow(t *testing.T) {
	bus := NewBus(4, nil)
	sub := bus.Subscribe("job-1")
	defer sub.Close()

	for i := 0; i < 10; i++ {
		bus.Publish("job-1", models.NewEvent(models.EventReportChunk, map[string]interface{}{"seq": i}))
	}

	assert.Equal(t, uint64(6), sub.Dropped())

	// Drops occur only from the head: the survivors are the most recent
	// events, in publish order.
	var seen []int
	for i := 0; i < 4; i++ {
		ev := <-sub.Events()
		seen = append(seen, ev.Data["seq"].(int))
	}
	assert.Equal(t, []int{6, 7, 8, 9}, seen)
}

func TestBus_LateSubscriberReceivesLastStatus(t *testing.T) {
	bus := NewBus(16, nil)

	bus.Publish("job-1", statusEvent(10))
	bus.Publish("job-1", statusEvent(50))
	bus.Publish("job-1", models.NewEvent(models.EventQueryGenerated, nil))

	sub := bus.Subscribe("job-1")
	defer sub.Close()

	first := <-sub.Events()
	require.Equal(t, models.EventStatusUpdate, first.Type)
	assert.Equal(t, 50, first.Data["progress"])

	// Live stream continues after the synthetic catch-up event.
	bus.Publish("job-1", statusEvent(60))
	next := <-sub.Events()
	assert.Equal(t, 60, next.Data["progress"])
}

func TestBus_NoStatusYet(t *testing.T) {
	bus := NewBus(16, nil)
	sub := bus.Subscribe("job-1")
	defer sub.Close()

	select {
	case ev := <-sub.Events():
		t.Fatalf("expected no event, got %v", ev)
	default:
	}
}

func TestBus_IndependentJobs(t *testing.T) {
	bus := NewBus(16, nil)
	sub1 := bus.Subscribe("job-1")
	sub2 := bus.Subscribe("job-2")
	defer sub1.Close()
	defer sub2.Close()

	bus.Publish("job-1", statusEvent(5))

	ev := <-sub1.Events()
	assert.Equal(t, 5, ev.Data["progress"])

	select {
	case <-sub2.Events():
		t.Fatal("job-2 subscriber must not see job-1 events")
	default:
	}
}

func TestBus_MultipleSubscribers(t *testing.T) {
	bus := NewBus(16, nil)
	var subs []*Subscription
	for i := 0; i < 3; i++ {
		subs = append(subs, bus.Subscribe("job-1"))
	}

	bus.Publish("job-1", statusEvent(25))

	for i, sub := range subs {
		ev := <-sub.Events()
		assert.Equal(t, 25, ev.Data["progress"], fmt.Sprintf("subscriber %d", i))
		sub.Close()
	}
}

func TestBus_CloseJobClosesSubscribers(t *testing.T) {
	bus := NewBus(16, nil)
	sub := bus.Subscribe("job-1")

	bus.Publish("job-1", statusEvent(100))
	bus.CloseJob("job-1")

	// Buffered event still drains, then the channel closes.
	ev, ok := <-sub.Events()
	require.True(t, ok)
	assert.Equal(t, 100, ev.Data["progress"])

	_, ok = <-sub.Events()
	assert.False(t, ok)
}

func TestBus_UnsubscribeIsIdempotent(t *testing.T) {
	bus := NewBus(16, nil)
	sub := bus.Subscribe("job-1")
	sub.Close()
	sub.Close()

	// Publishing after unsubscribe must not panic.
	bus.Publish("job-1", statusEvent(1))
}
