package notify

import (
	"sync"
	"testing"
	"time"
)

func TestHubDeliversToSubscribers(t *testing.T) {
	hub := NewHub(8)
	defer hub.Close()

	var mu sync.Mutex
	var received []Event

	unsub := hub.Subscribe(TopicQueueUpdate, func(e Event) {
		mu.Lock()
		received = append(received, e)
		mu.Unlock()
	})
	defer unsub()

	hub.Publish(TopicQueueUpdate, map[string]interface{}{"queue": "default"})

	// Delivery is asynchronous.
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 {
		t.Fatalf("got %d events, want 1", len(received))
	}
	if received[0].Topic != TopicQueueUpdate {
		t.Errorf("topic = %s, want %s", received[0].Topic, TopicQueueUpdate)
	}
	if name, ok := received[0].Data["queue"].(string); !ok || name != "default" {
		t.Errorf("data[queue] = %v, want %q", received[0].Data["queue"], "default")
	}
}

func TestHubTopicIsolation(t *testing.T) {
	hub := NewHub(8)
	defer hub.Close()

	var mu sync.Mutex
	statsEvents := 0

	unsub := hub.Subscribe(TopicStatsUpdate, func(e Event) {
		mu.Lock()
		statsEvents++
		mu.Unlock()
	})
	defer unsub()

	hub.Publish(TopicQueueUpdate, nil)
	hub.Publish(TopicStatsUpdate, nil)

	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if statsEvents != 1 {
		t.Errorf("stats subscriber got %d events, want 1", statsEvents)
	}
}

func TestHubUnsubscribeStopsDelivery(t *testing.T) {
	hub := NewHub(8)
	defer hub.Close()

	var mu sync.Mutex
	count := 0

	unsub := hub.Subscribe(TopicStatsUpdate, func(e Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	hub.Publish(TopicStatsUpdate, nil)
	time.Sleep(50 * time.Millisecond)
	unsub()
	hub.Publish(TopicStatsUpdate, nil)
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if count != 1 {
		t.Errorf("got %d events after unsubscribe, want 1", count)
	}
}

func TestHubPublishNeverBlocks(t *testing.T) {
	hub := NewHub(1)
	defer hub.Close()

	block := make(chan struct{})
	unsub := hub.Subscribe(TopicStatsUpdate, func(e Event) {
		<-block
	})
	defer unsub()
	defer close(block)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			hub.Publish(TopicStatsUpdate, nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestHubSurvivesPanickingHandler(t *testing.T) {
	hub := NewHub(8)
	defer hub.Close()

	var mu sync.Mutex
	delivered := 0

	unsubBad := hub.Subscribe(TopicQueueUpdate, func(e Event) {
		panic("handler bug")
	})
	defer unsubBad()
	unsubGood := hub.Subscribe(TopicQueueUpdate, func(e Event) {
		mu.Lock()
		delivered++
		mu.Unlock()
	})
	defer unsubGood()

	hub.Publish(TopicQueueUpdate, nil)
	hub.Publish(TopicQueueUpdate, nil)
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if delivered != 2 {
		t.Errorf("healthy subscriber got %d events, want 2", delivered)
	}
}
