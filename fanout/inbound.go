package fanout

import (
	"encoding/json"
	"sort"

	"fx_market_engine/cache"
)

// handleInbound dispatches one decoded control message to its handler.
// Unknown events are ignored (no reply), matching the teacher's
// readPump switch which silently drops unrecognized actions.
func (srv *Server) handleInbound(s *Session, msg inboundMessage) {
	switch msg.Event {
	case EventSubscribe:
		srv.handleSubscribe(s, msg.Data)
	case EventUnsubscribe:
		srv.handleUnsubscribe(s, msg.Data)
	case EventGetSubscriptions:
		srv.handleGetSubscriptions(s)
	case EventRequestPrice:
		srv.handleRequestPrice(s, msg.Data)
	case EventRequestAllPrices:
		srv.handleRequestAllPrices(s)
	case EventGetServerStats:
		srv.handleGetServerStats(s)
	case EventPing:
		s.enqueue(encode(EventPong, map[string]any{"server_time": nowTimestamp()}), false)
	}
}

func (srv *Server) handleSubscribe(s *Session, raw json.RawMessage) {
	instruments, wildcard, err := parsePairs(raw)
	if err != nil {
		s.enqueue(encode(EventSubscriptionError, map[string]any{"error": "malformed pairs payload"}), false)
		return
	}

	if !wildcard {
		for _, instrument := range instruments {
			if !srv.isTracked(instrument) {
				s.enqueue(encode(EventSubscriptionError, map[string]any{
					"error":      "unknown instrument",
					"instrument": instrument,
				}), false)
				return
			}
		}
	}

	srv.mu.Lock()
	if wildcard {
		srv.rooms.joinWildcard(s)
	} else {
		for _, instrument := range instruments {
			srv.rooms.join(instrument, s)
		}
	}
	srv.mu.Unlock()

	if wildcard {
		s.subscribeWildcard()
	} else {
		s.subscribe(instruments)
	}

	s.enqueue(encode(EventSubscriptionConfirmed, map[string]any{
		"pairs": subscriptionView(instruments, wildcard),
	}), false)
}

func (srv *Server) handleUnsubscribe(s *Session, raw json.RawMessage) {
	instruments, wildcard, err := parsePairs(raw)
	if err != nil {
		s.enqueue(encode(EventSubscriptionError, map[string]any{"error": "malformed pairs payload"}), false)
		return
	}

	srv.mu.Lock()
	if wildcard {
		srv.rooms.leaveWildcard(s)
		subs, _ := s.snapshot()
		for _, instrument := range subs {
			srv.rooms.leave(instrument, s)
		}
	} else {
		for _, instrument := range instruments {
			srv.rooms.leave(instrument, s)
		}
	}
	srv.mu.Unlock()

	if wildcard {
		s.unsubscribeAll()
	} else {
		s.unsubscribe(instruments)
	}

	s.enqueue(encode(EventUnsubscriptionConfirmed, map[string]any{
		"pairs": subscriptionView(instruments, wildcard),
	}), false)
}

func (srv *Server) handleGetSubscriptions(s *Session) {
	instruments, wildcard := s.snapshot()
	sort.Strings(instruments)
	s.enqueue(encode(EventSubscriptionsInfo, map[string]any{
		"pairs":    instruments,
		"wildcard": wildcard,
	}), false)
}

func (srv *Server) handleRequestPrice(s *Session, raw json.RawMessage) {
	var req requestPricePayload
	if err := json.Unmarshal(raw, &req); err != nil || req.Instrument == "" {
		s.enqueue(encode(EventNotFoundError, map[string]any{"error": "missing instrument"}), false)
		return
	}

	value, ok := srv.cache.Get(cache.PriceKey(req.Instrument))
	if !ok {
		s.enqueue(encode(EventNotFoundError, map[string]any{
			"error":      "not-found",
			"instrument": req.Instrument,
		}), false)
		return
	}

	var price any
	_ = json.Unmarshal(value, &price)
	s.enqueue(encode(EventPriceResponse, map[string]any{
		"instrument": req.Instrument,
		"price":      price,
	}), false)
}

func (srv *Server) handleRequestAllPrices(s *Session) {
	all := make(map[string]any, len(srv.cfg.TrackedPairs))
	for _, instrument := range srv.cfg.TrackedPairs {
		value, ok := srv.cache.Get(cache.PriceKey(instrument))
		if !ok {
			continue
		}
		var price any
		if json.Unmarshal(value, &price) == nil {
			all[instrument] = price
		}
	}
	s.enqueue(encode(EventAllPricesResponse, map[string]any{"prices": all}), false)
}

func (srv *Server) handleGetServerStats(s *Session) {
	srv.mu.Lock()
	sessionCount := len(srv.sessions)
	totalSubs := srv.rooms.totalSubscriptions()
	srv.mu.Unlock()

	avg := 0.0
	if sessionCount > 0 {
		avg = float64(totalSubs) / float64(sessionCount)
	}

	s.enqueue(encode(EventServerStats, map[string]any{
		"active_sessions":       sessionCount,
		"total_subscriptions":   totalSubs,
		"avg_subscriptions":     avg,
	}), false)
}

func (srv *Server) isTracked(instrument string) bool {
	for _, p := range srv.cfg.TrackedPairs {
		if p == instrument {
			return true
		}
	}
	return false
}

func subscriptionView(instruments []string, wildcard bool) any {
	if wildcard {
		return "*"
	}
	return instruments
}
