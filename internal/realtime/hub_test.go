package realtime

import (
	"sync"
	"testing"
	"time"
)

type recordingSubscriber struct {
	mu   sync.Mutex
	got  []Envelope
	name string
}

func (s *recordingSubscriber) Deliver(e Envelope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, e)
}

func (s *recordingSubscriber) received() []Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Envelope, len(s.got))
	copy(out, s.got)
	return out
}

func TestHub_PublishReachesAllSubscribers(t *testing.T) {
	h := NewHub()
	a := &recordingSubscriber{name: "a"}
	b := &recordingSubscriber{name: "b"}
	h.Subscribe("team:o1", a)
	h.Subscribe("team:o1", b)

	h.Publish("team:o1", Envelope{Type: "message", Stream: "team:o1", Content: "gg", SentAt: time.Now()})

	for _, s := range []*recordingSubscriber{a, b} {
		got := s.received()
		if len(got) != 1 || got[0].Content != "gg" {
			t.Errorf("subscriber %s got %+v", s.name, got)
		}
	}
}

func TestHub_StreamsAreIsolated(t *testing.T) {
	h := NewHub()
	a := &recordingSubscriber{name: "a"}
	b := &recordingSubscriber{name: "b"}
	h.Subscribe("team:o1", a)
	h.Subscribe("team:o2", b)

	h.Publish("team:o1", Envelope{Type: "message", Stream: "team:o1", Content: "hi"})

	if got := b.received(); len(got) != 0 {
		t.Errorf("cross-stream delivery: %+v", got)
	}
	if got := a.received(); len(got) != 1 {
		t.Errorf("own-stream delivery missing: %+v", got)
	}
}

func TestHub_Unsubscribe(t *testing.T) {
	h := NewHub()
	a := &recordingSubscriber{name: "a"}
	h.Subscribe("team:o1", a)
	h.Unsubscribe("team:o1", a)

	h.Publish("team:o1", Envelope{Type: "message", Content: "late"})

	if got := a.received(); len(got) != 0 {
		t.Errorf("delivery after unsubscribe: %+v", got)
	}
	if n := h.Subscribers("team:o1"); n != 0 {
		t.Errorf("Subscribers = %d, want 0", n)
	}
}

func TestHub_UnsubscribeUnknownIsNoop(t *testing.T) {
	h := NewHub()
	h.Unsubscribe("team:o1", &recordingSubscriber{})
}

func TestHub_DuplicateSubscribeIsIdempotent(t *testing.T) {
	h := NewHub()
	a := &recordingSubscriber{name: "a"}
	h.Subscribe("team:o1", a)
	h.Subscribe("team:o1", a)

	if n := h.Subscribers("team:o1"); n != 1 {
		t.Fatalf("Subscribers = %d, want 1", n)
	}
	h.Publish("team:o1", Envelope{Type: "message", Content: "once"})
	if got := a.received(); len(got) != 1 {
		t.Errorf("duplicate subscribe caused %d deliveries", len(got))
	}
}

func TestHub_ConcurrentPublishAndSubscribe(t *testing.T) {
	h := NewHub()
	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s := &recordingSubscriber{}
			h.Subscribe("team:o1", s)
			h.Unsubscribe("team:o1", s)
		}()
		go func() {
			defer wg.Done()
			h.Publish("team:o1", Envelope{Type: "message", Content: "x"})
		}()
	}
	wg.Wait()
}
