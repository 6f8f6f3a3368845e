package wsmarket

import (
	"encoding/json"
	"fmt"

	"github.com/IvanTurko/bitfinex-ws-go/sdkerr"
	"github.com/shopspring/decimal"
)

const ChannelTicker = "ticker"

// Ticker is a snapshot of the best bid/ask and daily statistics for a pair.
type Ticker struct {
	Pair            string
	Bid             decimal.Decimal
	BidSize         decimal.Decimal
	Ask             decimal.Decimal
	AskSize         decimal.Decimal
	DailyChange     decimal.Decimal
	DailyChangePerc decimal.Decimal
	LastPrice       decimal.Decimal
	Volume          decimal.Decimal
	High            decimal.Decimal
	Low             decimal.Decimal
}

// SubscribeTicker subscribes to the ticker channel of pair (e.g. "BTCUSD").
// Frames that do not decode are reported to the WithOnInvalid callback.
func (w *WSMarket) SubscribeTicker(pair string, onData func(Ticker)) Pending {
	if pair == "" {
		return w.rejectInput("SubscribeTicker", "invalid pair name")
	}

	var cb func(Message)
	if onData != nil {
		cb = func(m Message) {
			t, err := parseTicker(pair, m)
			if err != nil {
				w.invalid("SubscribeTicker", err)
				return
			}
			onData(t)
		}
	}
	return w.Subscribe(ChannelTicker, pair, nil, cb)
}

func parseTicker(pair string, m Message) (Ticker, error) {
	if len(m.Body) == 0 {
		return Ticker{}, fmt.Errorf("ticker: empty frame")
	}

	var row []decimal.Decimal
	if err := json.Unmarshal(m.Body[0], &row); err != nil {
		return Ticker{}, fmt.Errorf("ticker: %w", err)
	}
	if len(row) < 10 {
		return Ticker{}, fmt.Errorf("ticker: expected 10 fields, got %d", len(row))
	}

	return Ticker{
		Pair:            pair,
		Bid:             row[0],
		BidSize:         row[1],
		Ask:             row[2],
		AskSize:         row[3],
		DailyChange:     row[4],
		DailyChangePerc: row[5],
		LastPrice:       row[6],
		Volume:          row[7],
		High:            row[8],
		Low:             row[9],
	}, nil
}

func (w *WSMarket) invalid(op string, cause error) {
	err := w.sessionErr(op, sdkerr.ErrDecodeError, cause)
	w.debugf("%v", err)
	if w.onInvalid != nil {
		w.onInvalid(err)
	}
}
