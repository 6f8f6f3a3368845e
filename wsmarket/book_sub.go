package wsmarket

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

const ChannelBook = "book"

// BookPrecision is the price aggregation level.
type BookPrecision string

const (
	PrecisionP0 BookPrecision = "P0"
	PrecisionP1 BookPrecision = "P1"
	PrecisionP2 BookPrecision = "P2"
	PrecisionP3 BookPrecision = "P3"
	PrecisionP4 BookPrecision = "P4"
)

// BookFrequency is the update rate: F0 realtime, F1 every two seconds.
type BookFrequency string

const (
	FrequencyRealtime BookFrequency = "F0"
	Frequency2s       BookFrequency = "F1"
)

// BookLength is the number of price levels per side.
type BookLength string

const (
	BookLength25  BookLength = "25"
	BookLength100 BookLength = "100"
)

// BookParams configures a book subscription. Zero fields take the server
// defaults P0, F0 and 25.
type BookParams struct {
	Precision BookPrecision
	Frequency BookFrequency
	Length    BookLength
}

func (p BookParams) withDefaults() BookParams {
	if p.Precision == "" {
		p.Precision = PrecisionP0
	}
	if p.Frequency == "" {
		p.Frequency = FrequencyRealtime
	}
	if p.Length == "" {
		p.Length = BookLength25
	}
	return p
}

func (p BookParams) validate() error {
	switch p.Precision {
	case PrecisionP0, PrecisionP1, PrecisionP2, PrecisionP3, PrecisionP4:
	default:
		return fmt.Errorf("invalid precision: %s", p.Precision)
	}
	switch p.Frequency {
	case FrequencyRealtime, Frequency2s:
	default:
		return fmt.Errorf("invalid frequency: %s", p.Frequency)
	}
	switch p.Length {
	case BookLength25, BookLength100:
	default:
		return fmt.Errorf("invalid length: %s", p.Length)
	}
	return nil
}

func (p BookParams) params() map[string]any {
	return map[string]any{
		"prec": string(p.Precision),
		"freq": string(p.Frequency),
		"len":  string(p.Length),
	}
}

// BookLevel is one price level. Count 0 removes the level; a positive
// Amount is a bid, a negative one an ask.
type BookLevel struct {
	Price  decimal.Decimal
	Count  int
	Amount decimal.Decimal
}

// SubscribeBook subscribes to the order book of pair. onData receives the
// snapshot once, then one-element slices per update.
func (w *WSMarket) SubscribeBook(pair string, params BookParams, onData func([]BookLevel)) Pending {
	if pair == "" {
		return w.rejectInput("SubscribeBook", "invalid pair name")
	}
	params = params.withDefaults()
	if err := params.validate(); err != nil {
		return w.rejectInput("SubscribeBook", err.Error())
	}

	var cb func(Message)
	if onData != nil {
		cb = func(m Message) {
			levels, err := parseBook(m)
			if err != nil {
				w.invalid("SubscribeBook", err)
				return
			}
			onData(levels)
		}
	}
	return w.Subscribe(ChannelBook, pair, params.params(), cb)
}

func parseBook(m Message) ([]BookLevel, error) {
	if len(m.Body) == 0 {
		return nil, fmt.Errorf("book: empty frame")
	}
	body := bytes.TrimSpace(m.Body[0])

	if isSnapshot(body) {
		var rows [][]json.RawMessage
		if err := json.Unmarshal(body, &rows); err != nil {
			return nil, fmt.Errorf("book snapshot: %w", err)
		}
		levels := make([]BookLevel, 0, len(rows))
		for _, row := range rows {
			lvl, err := parseBookRow(row)
			if err != nil {
				return nil, err
			}
			levels = append(levels, lvl)
		}
		return levels, nil
	}

	var row []json.RawMessage
	if err := json.Unmarshal(body, &row); err != nil {
		return nil, fmt.Errorf("book update: %w", err)
	}
	lvl, err := parseBookRow(row)
	if err != nil {
		return nil, err
	}
	return []BookLevel{lvl}, nil
}

func parseBookRow(row []json.RawMessage) (BookLevel, error) {
	if len(row) < 3 {
		return BookLevel{}, fmt.Errorf("book level: expected 3 fields, got %d", len(row))
	}

	var lvl BookLevel
	if err := json.Unmarshal(row[0], &lvl.Price); err != nil {
		return BookLevel{}, fmt.Errorf("book price: %w", err)
	}
	if err := json.Unmarshal(row[1], &lvl.Count); err != nil {
		return BookLevel{}, fmt.Errorf("book count: %w", err)
	}
	if err := json.Unmarshal(row[2], &lvl.Amount); err != nil {
		return BookLevel{}, fmt.Errorf("book amount: %w", err)
	}
	return lvl, nil
}

// isSnapshot reports whether b is an array of levels, possibly empty,
// rather than a single level.
func isSnapshot(b []byte) bool {
	if len(b) < 2 || b[0] != '[' {
		return false
	}
	rest := bytes.TrimSpace(b[1:])
	return len(rest) > 0 && (rest[0] == '[' || rest[0] == ']')
}
