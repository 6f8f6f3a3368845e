package wsmarket

import (
	"github.com/IvanTurko/bitfinex-ws-go/internal/expect"
	"github.com/IvanTurko/bitfinex-ws-go/sdkerr"
	"github.com/google/uuid"
)

// Everything below runs on the event loop.

type pendingSend struct {
	payload any
}

func (w *WSMarket) newEpoch() {
	w.epochSeq++
	w.epoch = &epoch{
		id:       w.epochSeq,
		session:  uuid.NewString(),
		registry: expect.NewRegistry[Message](),
		subs:     make(map[int64]*subscription),
	}
}

func (w *WSMarket) connect() {
	w.setState(StateConnecting)
	w.epoch.registry.Once(isVersionInfo, w.checkVersion)

	w.gen++
	gen := w.gen
	client := w.factory(w.cfg.URL, &transportHandler{w: w, gen: gen})
	w.client = client

	w.debugf("epoch %d session %s: connecting to %s", w.epoch.id, w.epoch.session, w.cfg.URL)

	ctx := w.ctx
	go func() {
		if err := client.Connect(ctx); err != nil {
			w.mbox.Post(func() {
				w.onDialError(gen, err)
			})
		}
	}()
}

func (w *WSMarket) close() {
	if w.client == nil {
		return
	}
	client := w.client
	w.client = nil
	w.setState(StateDisconnected)

	if err := client.Close(); err != nil {
		w.errorf("%v", w.sessionErr("close", sdkerr.ErrWSClose, err))
	}
	w.endEpoch()
}

// endEpoch drops everything registered against the transport that just
// ended. Work registered from now on belongs to the next transport.
func (w *WSMarket) endEpoch() {
	if n := len(w.epoch.subs); n > 0 {
		w.debugf("epoch %d session %s ended, %d subscriptions dropped", w.epoch.id, w.epoch.session, n)
	}
	w.newEpoch()
}

func (w *WSMarket) restart() {
	w.close()
	w.connect()
}

func (w *WSMarket) pause() {
	w.paused = true
	w.pausedState.Store(true)
	w.setState(StatePaused)
}

func (w *WSMarket) resume() {
	w.paused = false
	w.pausedState.Store(false)
	w.setState(StateActive)

	if n := w.deferred.Len(); n > 0 {
		w.debugf("replaying %d deferred sends", n)
	}
	w.deferred.FireAll(func(p pendingSend) {
		w.send(p.payload)
	})
}

func (w *WSMarket) send(payload any) {
	if w.paused || w.client == nil || !w.client.Ready() {
		n := w.deferred.Add(pendingSend{payload: payload})
		w.debugf("send deferred, %d queued", n)
		return
	}

	data, err := encodePayload(payload)
	if err != nil {
		w.errorf("%v", w.sessionErr("send", sdkerr.ErrDecodeError, err))
		return
	}

	if err := w.client.WriteMessage(data); err != nil {
		w.errorf("%v", w.sessionErr("send", sdkerr.ErrWSWrite, err))
	}
}

func (w *WSMarket) handleMessage(raw []byte) {
	msg, err := decodeMessage(raw)
	if err != nil {
		w.errorf("%v", w.sessionErr("handleMessage", sdkerr.ErrDecodeError, err))
		return
	}

	if w.epoch.registry.Dispatch(msg) {
		return
	}

	if msg.IsEvent(eventInfo) && msg.Event.Code != 0 {
		w.handleControl(msg.Event.Code)
		return
	}

	w.debugf("unprocessed message: %s", string(raw))
}

func (w *WSMarket) checkVersion(msg Message) {
	v := *msg.Event.Version
	if w.cfg.VersionAllowed(v) {
		w.debugf("server version %d accepted", v)
		return
	}

	err := w.sessionErr("checkVersion", sdkerr.ErrVersionMismatch, nil).
		WithMessage(fmtVersionMismatch(v, w.cfg.AllowedVersions))
	w.errorf("%v", err)
	w.close()
}

func isVersionInfo(msg Message) bool {
	return msg.IsEvent(eventInfo) && msg.Event.Version != nil
}

func (w *WSMarket) stale(gen uint64) bool {
	return gen != w.gen || w.client == nil
}

func (w *WSMarket) onOpen(gen uint64) {
	if w.stale(gen) {
		return
	}
	w.debugf("transport open")
	w.resume()
}

func (w *WSMarket) onClose(gen uint64, cause error) {
	if w.stale(gen) {
		return
	}
	w.client = nil
	w.setState(StateDisconnected)

	err := w.sessionErr("readingMessage", sdkerr.ErrWSRead, cause)
	w.endEpoch()
	w.errorf("%v", err)
	if w.onDisconnect != nil {
		w.onDisconnect(err)
	}
}

func (w *WSMarket) onDialError(gen uint64, cause error) {
	if w.stale(gen) {
		return
	}
	w.client = nil
	w.setState(StateDisconnected)

	err := w.sessionErr("Connect", sdkerr.ErrWSConnection, cause)
	w.endEpoch()
	w.errorf("%v", err)
	if w.onDisconnect != nil {
		w.onDisconnect(err)
	}
}

// transportHandler forwards transport events to the event loop, tagged
// with the transport generation so events from a replaced transport are
// dropped.
type transportHandler struct {
	w   *WSMarket
	gen uint64
}

func (h *transportHandler) OnOpen() {
	h.w.mbox.Post(func() { h.w.onOpen(h.gen) })
}

func (h *transportHandler) OnMessage(data []byte) {
	h.w.mbox.Post(func() {
		if h.w.stale(h.gen) {
			return
		}
		h.w.handleMessage(data)
	})
}

func (h *transportHandler) OnClose(err error) {
	h.w.mbox.Post(func() { h.w.onClose(h.gen, err) })
}
