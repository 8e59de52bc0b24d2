package fanout

import "testing"

func newTestSession(id string) *Session {
	return newSession(id, nil)
}

func TestSessionSubscribeTracksInstrumentsAndState(t *testing.T) {
	s := newTestSession("c1")
	if s.currentState() != StateConnecting {
		t.Fatalf("expected initial state Connecting, got %v", s.currentState())
	}

	s.subscribe([]string{"EUR_USD", "GBP_USD"})
	if s.currentState() != StateActive {
		t.Fatalf("expected state Active after subscribing, got %v", s.currentState())
	}
	instruments, wildcard := s.snapshot()
	if wildcard {
		t.Fatal("expected no wildcard subscription")
	}
	got := make(map[string]bool, len(instruments))
	for _, i := range instruments {
		got[i] = true
	}
	if !got["EUR_USD"] || !got["GBP_USD"] {
		t.Fatalf("expected both subscribed instruments in the snapshot, got %v", instruments)
	}
	if got["USD_JPY"] {
		t.Fatal("expected an unsubscribed instrument to not appear in the snapshot")
	}
}

func TestSessionWildcardMatchesEverything(t *testing.T) {
	s := newTestSession("c1")
	s.subscribeWildcard()
	if _, wildcard := s.snapshot(); !wildcard {
		t.Fatal("expected wildcard subscription to be recorded")
	}
	s.unsubscribeWildcard()
	if _, wildcard := s.snapshot(); wildcard {
		t.Fatal("expected wildcard flag to clear after unsubscribing")
	}
}

func TestSessionUnsubscribeAllClearsEverything(t *testing.T) {
	s := newTestSession("c1")
	s.subscribe([]string{"EUR_USD"})
	s.subscribeWildcard()
	s.unsubscribeAll()

	instruments, wildcard := s.snapshot()
	if len(instruments) != 0 || wildcard {
		t.Fatalf("expected no subscriptions after unsubscribeAll, got instruments=%v wildcard=%v", instruments, wildcard)
	}
}

func TestSessionEnqueueDropsOldestWhenBufferFullAndDropable(t *testing.T) {
	s := newTestSession("c1")
	for i := 0; i < outboundBufferSize; i++ {
		s.send <- []byte{byte(i)}
	}

	s.enqueue([]byte{250}, true)

	if len(s.send) != outboundBufferSize {
		t.Fatalf("expected buffer to stay at capacity %d, got %d", outboundBufferSize, len(s.send))
	}
	first := <-s.send
	if first[0] != 1 {
		t.Fatalf("expected the oldest frame (index 0) to have been dropped, got first remaining frame %v", first)
	}
}

func TestSessionEnqueueNonDropableDoesNotEvictWhenFull(t *testing.T) {
	s := newTestSession("c1")
	for i := 0; i < outboundBufferSize; i++ {
		s.send <- []byte{byte(i)}
	}

	s.enqueue([]byte{250}, false)

	if len(s.send) != outboundBufferSize {
		t.Fatalf("expected buffer to stay at capacity %d, got %d", outboundBufferSize, len(s.send))
	}
	first := <-s.send
	if first[0] != 0 {
		t.Fatalf("expected non-dropable enqueue to never evict the oldest frame, got %v", first)
	}
}

func TestSessionEnqueueSucceedsWhenBufferHasRoom(t *testing.T) {
	s := newTestSession("c1")
	s.enqueue([]byte("hello"), true)
	if len(s.send) != 1 {
		t.Fatalf("expected 1 queued frame, got %d", len(s.send))
	}
}
