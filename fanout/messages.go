package fanout

import (
	"encoding/json"
	"time"
)

// Inbound event names (session -> server).
const (
	EventSubscribe         = "subscribe"
	EventUnsubscribe       = "unsubscribe"
	EventGetSubscriptions  = "get_subscriptions"
	EventRequestPrice      = "request_price"
	EventRequestAllPrices  = "request_all_prices"
	EventGetServerStats    = "get_server_stats"
	EventPing              = "ping"
)

// Outbound event names (server -> session).
const (
	EventConnectionEstablished   = "connection_established"
	EventSubscriptionConfirmed   = "subscription_confirmed"
	EventUnsubscriptionConfirmed = "unsubscription_confirmed"
	EventSubscriptionsInfo       = "subscriptions_info"
	EventPriceResponse           = "price_response"
	EventAllPricesResponse       = "all_prices_response"
	EventServerStats             = "server_stats"
	EventPong                    = "pong"
	EventSubscriptionError       = "subscription_error"
	EventNotFoundError           = "not_found_error"

	// Bus relay event names, distinct from the bus's own channel names.
	EventPriceUpdate      = "price_update"
	EventVolatilityAlert  = "volatility_alert"
	EventCorrelationAlert = "correlation_alert"
	EventDataReady        = "data_ready"
)

// envelope is the fixed wire shape: {event, data}.
type envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

func encode(event string, data any) []byte {
	b, err := json.Marshal(envelope{Event: event, Data: data})
	if err != nil {
		// A marshal failure here means a programmer error in one of our
		// own payload types; fall back to an empty data object rather
		// than panic mid-relay.
		b, _ = json.Marshal(envelope{Event: event, Data: map[string]any{}})
	}
	return b
}

type inboundMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type pairsPayload struct {
	Pairs json.RawMessage `json:"pairs"`
}

// parsePairs accepts either {"pairs": ["A","B"]} or {"pairs": "*"}.
func parsePairs(raw json.RawMessage) (instruments []string, wildcard bool, err error) {
	var p pairsPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, false, err
	}
	var asStar string
	if err := json.Unmarshal(p.Pairs, &asStar); err == nil {
		return nil, asStar == "*", nil
	}
	var list []string
	if err := json.Unmarshal(p.Pairs, &list); err != nil {
		return nil, false, err
	}
	return list, false, nil
}

type requestPricePayload struct {
	Instrument string `json:"instrument"`
}

func nowTimestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
