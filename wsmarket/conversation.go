package wsmarket

import (
	"time"

	"github.com/IvanTurko/bitfinex-ws-go/internal/expect"
	"github.com/IvanTurko/bitfinex-ws-go/internal/wsutil"
	"github.com/IvanTurko/bitfinex-ws-go/sdkerr"
)

// Ping sends {"event":"ping","cid":N} with a fresh correlation id and
// settles with the matching pong.
func (w *WSMarket) Ping() Pending {
	p := wsutil.NewPromise[Event]()
	w.mbox.Post(func() {
		w.ping(p)
	})
	return p
}

// Subscribe asks the server for channel data on pair. params are merged
// into the request; event, channel and pair cannot be overridden.
//
// Once the server acknowledges the pair, every non-heartbeat frame on the
// assigned channel id is passed to onData on the event loop, and the
// returned Pending settles with the acknowledgment. A server error event for
// the same pair rejects it with sdkerr.ErrWSServerError. A reply naming a
// different channel is not taken as the answer.
//
// A nil onData or empty channel rejects immediately with
// sdkerr.ErrValidation; nothing is sent.
func (w *WSMarket) Subscribe(channel, pair string, params map[string]any, onData func(Message)) Pending {
	if onData == nil {
		return w.rejectInput("Subscribe", "onData function is nil")
	}
	if channel == "" {
		return w.rejectInput("Subscribe", "channel must not be empty")
	}

	req := newSubscribeRequest(channel, pair, params)
	p := wsutil.NewPromise[Event]()
	w.mbox.Post(func() {
		w.subscribe(channel, pair, req, onData, p)
	})
	return p
}

// Unsubscribe asks the server to stop chanID and settles with the
// acknowledgment. From then on frames for chanID are no longer routed to
// the subscription callback.
func (w *WSMarket) Unsubscribe(chanID int64) Pending {
	p := wsutil.NewPromise[Event]()
	w.mbox.Post(func() {
		w.unsubscribe(chanID, p)
	})
	return p
}

func (w *WSMarket) rejectInput(op, msg string) Pending {
	err := w.errFactory(op, sdkerr.ErrValidation, nil).WithMessage(msg)
	return wsutil.Rejected[Event](wsutil.FromCaller, err)
}

func (w *WSMarket) ping(p Pending) {
	cid := w.cids.Next()
	start := w.now()

	w.epoch.registry.Once(
		func(m Message) bool {
			return m.IsEvent(eventPong) && m.Event.CID == cid
		},
		func(m Message) {
			if w.onLatency != nil {
				w.onLatency(w.now().Sub(start))
			}
			p.Resolve(*m.Event)
		},
	)
	w.send(pingRequest{Event: eventPing, CID: cid})
}

func (w *WSMarket) subscribe(channel, pair string, req map[string]any, onData func(Message), p Pending) {
	ep := w.epoch

	ep.registry.Once(
		func(m Message) bool {
			return isSubscribeReply(m, channel, pair)
		},
		func(m Message) {
			if m.IsEvent(eventError) {
				p.Reject(w.sessionErr("Subscribe", sdkerr.ErrWSServerError, nil).
					WithCode(m.Event.Code).
					WithMessage(m.Event.Msg))
				return
			}

			sub := &subscription{
				w:       w,
				chanID:  m.Event.ChanID,
				channel: channel,
				pair:    pair,
				onData:  onData,
				active:  true,
			}
			ep.subs[sub.chanID] = sub
			ep.registry.RegisterWhenever(&dataExpectation{sub: sub})
			ep.registry.RegisterWhenever(&heartbeatExpectation{sub: sub})

			w.debugf("subscribed %s %s on channel %d", channel, pair, sub.chanID)
			p.Resolve(*m.Event)
		},
	)
	w.send(req)
}

func isSubscribeReply(m Message, channel, pair string) bool {
	if m.Event == nil || m.Event.Pair != pair {
		return false
	}
	switch m.Event.Event {
	case eventSubscribed, eventError:
		// replies that omit the channel are matched on pair alone
		return m.Event.Channel == "" || m.Event.Channel == channel
	default:
		return false
	}
}

func (w *WSMarket) unsubscribe(chanID int64, p Pending) {
	ep := w.epoch

	ep.registry.Once(
		func(m Message) bool {
			return m.IsEvent(eventUnsubscribed) && m.Event.ChanID == chanID
		},
		func(m Message) {
			if sub, ok := ep.subs[chanID]; ok {
				sub.active = false
				delete(ep.subs, chanID)
			}
			w.debugf("unsubscribed channel %d", chanID)
			p.Resolve(*m.Event)
		},
	)
	w.send(unsubscribeRequest{Event: eventUnsubscribe, ChanID: chanID})
}

// subscription is an acknowledged channel. Its expectations stay in the
// registry after unsubscribe but stop matching.
type subscription struct {
	w       *WSMarket
	chanID  int64
	channel string
	pair    string
	onData  func(Message)
	active  bool

	lastHeartbeat time.Time
}

type dataExpectation struct {
	sub *subscription
}

func (d *dataExpectation) Matches(m Message) bool {
	return d.sub.active && m.OnChannel(d.sub.chanID) && !m.IsHeartbeat()
}

func (d *dataExpectation) Handle(m Message) {
	d.sub.onData(m)
}

type heartbeatExpectation struct {
	sub *subscription
}

func (h *heartbeatExpectation) Matches(m Message) bool {
	return h.sub.active && m.OnChannel(h.sub.chanID) && m.IsHeartbeat()
}

func (h *heartbeatExpectation) Handle(Message) {
	h.sub.lastHeartbeat = h.sub.w.now()
	h.sub.w.debugf("heartbeat on channel %d", h.sub.chanID)
}

var (
	_ expect.Expectation[Message] = (*dataExpectation)(nil)
	_ expect.Expectation[Message] = (*heartbeatExpectation)(nil)
)
