package wsmarket

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	eventInfo         = "info"
	eventPing         = "ping"
	eventPong         = "pong"
	eventSubscribe    = "subscribe"
	eventSubscribed   = "subscribed"
	eventUnsubscribe  = "unsubscribe"
	eventUnsubscribed = "unsubscribed"
	eventError        = "error"

	heartbeatMarker = "hb"
)

var errUnknownShape = errors.New("message is neither an object nor an array")

// Event is an object-shaped message: info, pong, subscribed, error, ...
type Event struct {
	Event    string    `json:"event"`
	Version  *int      `json:"version,omitempty"`
	ServerID string    `json:"serverId,omitempty"`
	Platform *Platform `json:"platform,omitempty"`
	Code     int       `json:"code,omitempty"`
	Msg      string    `json:"msg,omitempty"`
	CID      int64     `json:"cid,omitempty"`
	TS       int64     `json:"ts,omitempty"`
	Channel  string    `json:"channel,omitempty"`
	ChanID   int64     `json:"chanId,omitempty"`
	Pair     string    `json:"pair,omitempty"`
	Symbol   string    `json:"symbol,omitempty"`
	Status   string    `json:"status,omitempty"`
}

// Platform is the platform block of the info event.
type Platform struct {
	Status int `json:"status"`
}

// Message is one decoded inbound frame. Exactly one of Event or the
// channel fields is set.
type Message struct {
	// Raw is the frame as received.
	Raw json.RawMessage
	// Event is set for object-shaped frames.
	Event *Event
	// ChanID and Body are set for array-shaped frames: [chanId, body...].
	ChanID int64
	Body   []json.RawMessage
}

// IsChannel reports whether m is a channel frame.
func (m Message) IsChannel() bool {
	return m.Event == nil && m.Body != nil
}

// IsEvent reports whether m is an event with the given name.
func (m Message) IsEvent(name string) bool {
	return m.Event != nil && m.Event.Event == name
}

// IsHeartbeat reports whether m is [chanId, "hb"].
func (m Message) IsHeartbeat() bool {
	return m.IsChannel() && len(m.Body) > 0 && bodyIsString(m.Body[0], heartbeatMarker)
}

// OnChannel reports whether m is a channel frame for chanID.
func (m Message) OnChannel(chanID int64) bool {
	return m.IsChannel() && m.ChanID == chanID
}

func decodeMessage(raw []byte) (Message, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Message{}, errUnknownShape
	}

	msg := Message{Raw: json.RawMessage(raw)}

	switch trimmed[0] {
	case '{':
		var ev Event
		if err := json.Unmarshal(trimmed, &ev); err != nil {
			return Message{}, fmt.Errorf("decode event: %w", err)
		}
		msg.Event = &ev

	case '[':
		var parts []json.RawMessage
		if err := json.Unmarshal(trimmed, &parts); err != nil {
			return Message{}, fmt.Errorf("decode channel frame: %w", err)
		}
		if len(parts) < 2 {
			return Message{}, fmt.Errorf("decode channel frame: %d elements", len(parts))
		}
		if err := json.Unmarshal(parts[0], &msg.ChanID); err != nil {
			return Message{}, fmt.Errorf("decode channel id: %w", err)
		}
		msg.Body = parts[1:]

	default:
		return Message{}, errUnknownShape
	}

	return msg, nil
}

func bodyIsString(raw json.RawMessage, want string) bool {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return false
	}
	return s == want
}

func encodePayload(payload any) ([]byte, error) {
	switch v := payload.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	case json.RawMessage:
		return v, nil
	default:
		return json.Marshal(v)
	}
}

type pingRequest struct {
	Event string `json:"event"`
	CID   int64  `json:"cid"`
}

type unsubscribeRequest struct {
	Event  string `json:"event"`
	ChanID int64  `json:"chanId"`
}

func newSubscribeRequest(channel, pair string, params map[string]any) map[string]any {
	req := make(map[string]any, len(params)+3)
	for k, v := range params {
		req[k] = v
	}
	req["event"] = eventSubscribe
	req["channel"] = channel
	if pair != "" {
		req["pair"] = pair
	}
	return req
}
