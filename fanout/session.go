package fanout

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// State is a session's position in the connection lifecycle.
type State int

const (
	StateConnecting State = iota
	StateIdle
	StateActive
	StateClosed
)

// outboundBufferSize bounds how many unsent relay messages a session can
// queue before backpressure kicks in.
const outboundBufferSize = 256

// slowConsumerDropThreshold closes a session once it has dropped this
// many price_updates messages, rather than letting it limp along
// indefinitely arbitrarily far behind the bus.
const slowConsumerDropThreshold = 100

// Session is one connected fan-out client: its websocket connection, its
// room membership, and its outbound delivery state. Grounded on the
// teacher's Client struct (conn + buffered send channel + per-client
// mutex) generalized with a client_id, a subscription set, and a drop
// counter for the backpressure policy.
type Session struct {
	ID   string
	conn *websocket.Conn
	send chan []byte

	mu            sync.Mutex
	state         State
	subscriptions map[string]bool
	wildcard      bool
	dropCount     int

	lastPong time.Time
}

func newSession(id string, conn *websocket.Conn) *Session {
	return &Session{
		ID:            id,
		conn:          conn,
		send:          make(chan []byte, outboundBufferSize),
		state:         StateConnecting,
		subscriptions: make(map[string]bool),
		lastPong:      time.Now(),
	}
}

// enqueue delivers a raw frame to the session's outbound buffer without
// blocking. When the buffer is full and dropable is true (price_updates
// traffic), the oldest queued frame is discarded to make room; that frame
// may be of any type, alerts and data_ready included. When the buffer is
// full and dropable is false (alerts and data_ready), one more
// non-blocking send is tried and the frame is discarded if the buffer is
// still full.
func (s *Session) enqueue(frame []byte, dropable bool) {
	select {
	case s.send <- frame:
		return
	default:
	}

	if !dropable {
		// Buffer is full of higher-priority traffic; still attempt a
		// non-blocking send so we never stall the publisher.
		select {
		case s.send <- frame:
		default:
		}
		return
	}

	// Drop the oldest queued frame and retry once.
	select {
	case <-s.send:
		s.mu.Lock()
		s.dropCount++
		shouldClose := s.dropCount >= slowConsumerDropThreshold
		s.mu.Unlock()
		if shouldClose {
			s.closeWithReason("slow-consumer")
			return
		}
	default:
	}
	select {
	case s.send <- frame:
	default:
	}
}

func (s *Session) closeWithReason(reason string) {
	s.mu.Lock()
	s.state = StateClosed
	s.mu.Unlock()
	_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason))
	_ = s.conn.Close()
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Session) currentState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) subscribe(instruments []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, i := range instruments {
		s.subscriptions[i] = true
	}
	s.state = StateActive
}

func (s *Session) subscribeWildcard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wildcard = true
	s.state = StateActive
}

func (s *Session) unsubscribe(instruments []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, i := range instruments {
		delete(s.subscriptions, i)
	}
}

func (s *Session) unsubscribeWildcard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wildcard = false
}

func (s *Session) unsubscribeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptions = make(map[string]bool)
	s.wildcard = false
}

func (s *Session) snapshot() (instruments []string, wildcard bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.subscriptions))
	for i := range s.subscriptions {
		out = append(out, i)
	}
	return out, s.wildcard
}
