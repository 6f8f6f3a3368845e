package wsmarket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const ChannelTrades = "trades"

// Trade is one public trade. A negative Amount is a sell.
type Trade struct {
	Pair   string
	ID     int64
	Time   time.Time
	Amount decimal.Decimal
	Price  decimal.Decimal
	// Update is "te" (executed) or "tu" (updated) for live trades and empty
	// for snapshot rows.
	Update string
}

// SubscribeTrades subscribes to the trades channel of pair. onData receives
// the snapshot once, then one-element slices per live update.
func (w *WSMarket) SubscribeTrades(pair string, onData func([]Trade)) Pending {
	if pair == "" {
		return w.rejectInput("SubscribeTrades", "invalid pair name")
	}

	var cb func(Message)
	if onData != nil {
		cb = func(m Message) {
			trades, err := parseTrades(pair, m)
			if err != nil {
				w.invalid("SubscribeTrades", err)
				return
			}
			onData(trades)
		}
	}
	return w.Subscribe(ChannelTrades, pair, nil, cb)
}

func parseTrades(pair string, m Message) ([]Trade, error) {
	switch len(m.Body) {
	case 0:
		return nil, fmt.Errorf("trades: empty frame")

	case 1:
		var rows [][]json.RawMessage
		if err := json.Unmarshal(m.Body[0], &rows); err != nil {
			return nil, fmt.Errorf("trades snapshot: %w", err)
		}
		trades := make([]Trade, 0, len(rows))
		for _, row := range rows {
			t, err := parseTradeRow(pair, row)
			if err != nil {
				return nil, err
			}
			trades = append(trades, t)
		}
		return trades, nil

	default:
		var kind string
		if err := json.Unmarshal(m.Body[0], &kind); err != nil {
			return nil, fmt.Errorf("trades update kind: %w", err)
		}
		var row []json.RawMessage
		if err := json.Unmarshal(m.Body[1], &row); err != nil {
			return nil, fmt.Errorf("trades update: %w", err)
		}
		t, err := parseTradeRow(pair, row)
		if err != nil {
			return nil, err
		}
		t.Update = kind
		return []Trade{t}, nil
	}
}

func parseTradeRow(pair string, row []json.RawMessage) (Trade, error) {
	if len(row) < 4 {
		return Trade{}, fmt.Errorf("trade: expected 4 fields, got %d", len(row))
	}

	t := Trade{Pair: pair}
	var mts int64
	if err := json.Unmarshal(row[0], &t.ID); err != nil {
		return Trade{}, fmt.Errorf("trade id: %w", err)
	}
	if err := json.Unmarshal(row[1], &mts); err != nil {
		return Trade{}, fmt.Errorf("trade mts: %w", err)
	}
	if err := json.Unmarshal(row[2], &t.Amount); err != nil {
		return Trade{}, fmt.Errorf("trade amount: %w", err)
	}
	if err := json.Unmarshal(row[3], &t.Price); err != nil {
		return Trade{}, fmt.Errorf("trade price: %w", err)
	}
	t.Time = time.UnixMilli(mts).UTC()
	return t, nil
}
