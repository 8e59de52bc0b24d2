// Package fanout implements the real-time subscriber-facing server: a
// gorilla/websocket hub generalized from the teacher's single flat
// broadcast into per-instrument rooms, wildcard subscriptions, and
// filtered relay of the cache bus's four channels. The session
// lifecycle, ping/pong keep-alive, and register/unregister hub loop all
// follow services/realtime_price_service.go; client identity
// (google/uuid) and room filtering are additions this engine's
// multi-instrument fan-out needs that the teacher's single-stream
// service did not.
package fanout

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"fx_market_engine/cache"
	"fx_market_engine/config"
)

const (
	writeTimeout  = 10 * time.Second
	readLimitByte = 4096
)

// Server is the long-lived fan-out hub: one goroutine owns the session
// set and room bookkeeping, guarded by a single mutex per the server's
// shared-resource policy.
type Server struct {
	cfg   *config.Config
	cache *cache.Cache
	bus   *cache.Bus

	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[*Session]struct{}
	rooms    *rooms

	register   chan *Session
	unregister chan *Session
	shutdown   chan struct{}
	shutOnce   sync.Once
}

// New builds a Server bound to the shared cache and bus. Call Start to
// begin the hub loop and bus relay before accepting connections.
func New(cfg *config.Config, c *cache.Cache, bus *cache.Bus) *Server {
	return &Server{
		cfg:   cfg,
		cache: c,
		bus:   bus,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		sessions:   make(map[*Session]struct{}),
		rooms:      newRooms(),
		register:   make(chan *Session),
		unregister: make(chan *Session),
		shutdown:   make(chan struct{}),
	}
}

// Start launches the hub loop and the bus relay goroutine.
func (srv *Server) Start() {
	go srv.run()
	go srv.relayFromBus()
}

// Stop closes every session with a going-away frame and releases all bus
// subscriptions, per the process shutdown contract.
func (srv *Server) Stop() {
	srv.shutOnce.Do(func() { close(srv.shutdown) })

	srv.mu.Lock()
	defer srv.mu.Unlock()
	for s := range srv.sessions {
		_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		_ = s.conn.Close()
	}
	srv.sessions = make(map[*Session]struct{})
}

// run is the hub's single-goroutine owner of session/room state,
// generalizing the teacher's register/unregister select loop.
func (srv *Server) run() {
	for {
		select {
		case <-srv.shutdown:
			return
		case s := <-srv.register:
			srv.mu.Lock()
			if len(srv.sessions) >= srv.cfg.FanoutMaxClients {
				srv.mu.Unlock()
				s.closeWithReason("capacity")
				continue
			}
			srv.sessions[s] = struct{}{}
			count := len(srv.sessions)
			srv.mu.Unlock()
			log.Printf("fanout: session %s connected, total=%d", s.ID, count)
		case s := <-srv.unregister:
			srv.mu.Lock()
			if _, ok := srv.sessions[s]; ok {
				delete(srv.sessions, s)
				srv.rooms.leaveAll(s)
				close(s.send)
			}
			count := len(srv.sessions)
			srv.mu.Unlock()
			log.Printf("fanout: session %s disconnected, total=%d", s.ID, count)
		}
	}
}

// HandleWebSocket upgrades an inbound HTTP request to a session and
// starts its read/write pumps. Capacity rejection happens both here
// (fast path, before upgrading) and in run() (authoritative, race-safe).
func (srv *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	srv.mu.Lock()
	atCapacity := len(srv.sessions) >= srv.cfg.FanoutMaxClients
	srv.mu.Unlock()
	if atCapacity {
		http.Error(w, "server at capacity", http.StatusServiceUnavailable)
		return
	}

	conn, err := srv.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("fanout: upgrade failed: %v", err)
		return
	}

	session := newSession(uuid.NewString(), conn)
	srv.register <- session

	go srv.writePump(session)
	go srv.readPump(session)

	session.enqueue(encode(EventConnectionEstablished, map[string]any{
		"client_id":  session.ID,
		"instruments": srv.cfg.TrackedPairs,
	}), false)
	session.setState(StateIdle)
}

func (srv *Server) writePump(s *Session) {
	ticker := time.NewTicker(srv.cfg.FanoutPingInterval)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case message, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (srv *Server) readPump(s *Session) {
	defer func() {
		srv.unregister <- s
		_ = s.conn.Close()
	}()

	s.conn.SetReadLimit(readLimitByte)
	_ = s.conn.SetReadDeadline(time.Now().Add(srv.cfg.FanoutPingInterval + srv.cfg.FanoutPingTimeout))
	s.conn.SetPongHandler(func(string) error {
		_ = s.conn.SetReadDeadline(time.Now().Add(srv.cfg.FanoutPingInterval + srv.cfg.FanoutPingTimeout))
		return nil
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("fanout: session %s read error: %v", s.ID, err)
			}
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		srv.handleInbound(s, msg)
	}
}

// relayFromBus is the single reader of the bus's subscribe iterator, per
// the shared-resource policy. It fans each message out to the sessions
// whose room set matches.
func (srv *Server) relayFromBus() {
	sub := srv.bus.Subscribe(
		cache.ChannelPriceUpdates,
		cache.ChannelVolatilityAlerts,
		cache.ChannelCorrelationAlerts,
		cache.ChannelDataReady,
	)
	defer sub.Close()

	for {
		select {
		case <-srv.shutdown:
			return
		case msg, ok := <-sub.Messages():
			if !ok {
				return
			}
			srv.relay(msg)
		}
	}
}

func (srv *Server) relay(msg cache.Message) {
	var generic map[string]any
	if err := json.Unmarshal(msg.Payload, &generic); err != nil {
		return
	}

	event := relayEventFor(msg.Channel)
	frame := encode(event, generic)
	dropable := msg.Channel == cache.ChannelPriceUpdates

	srv.mu.Lock()
	defer srv.mu.Unlock()

	if msg.Channel == cache.ChannelDataReady {
		for s := range srv.sessions {
			s.enqueue(frame, false)
		}
		return
	}

	instrument, _ := generic["instrument"].(string)
	for _, s := range srv.rooms.subscribersFor(instrument) {
		s.enqueue(frame, dropable)
	}
}

func relayEventFor(channel string) string {
	switch channel {
	case cache.ChannelPriceUpdates:
		return EventPriceUpdate
	case cache.ChannelVolatilityAlerts:
		return EventVolatilityAlert
	case cache.ChannelCorrelationAlerts:
		return EventCorrelationAlert
	default:
		return EventDataReady
	}
}
