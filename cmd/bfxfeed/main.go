// bfxfeed subscribes to one public market channel and prints the decoded
// frames to the console.
// Usage: go run ./cmd/bfxfeed --config configs/bfxfeed.example.yaml --pair BTCUSD --channel book
//
// Without --config the public endpoint and defaults are used.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/IvanTurko/bitfinex-ws-go/config"
	"github.com/IvanTurko/bitfinex-ws-go/ws"
	"github.com/IvanTurko/bitfinex-ws-go/wsmarket"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	pair := flag.String("pair", "BTCUSD", "trading pair")
	channel := flag.String("channel", wsmarket.ChannelTicker, "channel: ticker, trades or book")
	precision := flag.String("prec", string(wsmarket.PrecisionP0), "book precision P0-P4")
	pingEvery := flag.Duration("ping", 30*time.Second, "ping interval, 0 disables")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	market := wsmarket.NewWSMarket(cfg,
		wsmarket.WithLogger(ws.NewSlogLogger(logger)),
		wsmarket.WithOnDisconnect(func(err error) {
			logger.Error("disconnected", "error", err)
			cancel()
		}),
		wsmarket.WithPingLatencyHandler(func(d time.Duration) {
			logger.Info("pong", "latency", d)
		}),
		wsmarket.WithOnInvalid(func(err error) {
			logger.Warn("invalid frame", "error", err)
		}),
	)

	logger.Info("connecting", "url", cfg.URL)
	if err := market.Connect(ctx); err != nil {
		logger.Error("failed to connect", "error", err)
		os.Exit(1)
	}

	var pending wsmarket.Pending
	switch *channel {
	case wsmarket.ChannelTicker:
		pending = market.SubscribeTicker(*pair, printTicker)
	case wsmarket.ChannelTrades:
		pending = market.SubscribeTrades(*pair, printTrades)
	case wsmarket.ChannelBook:
		params := wsmarket.BookParams{Precision: wsmarket.BookPrecision(*precision)}
		pending = market.SubscribeBook(*pair, params, printBook)
	default:
		logger.Error("unknown channel", "channel", *channel)
		os.Exit(1)
	}

	subCtx, subCancel := context.WithTimeout(ctx, cfg.HandshakeTimeout+5*time.Second)
	ack, err := pending.Await(subCtx)
	subCancel()
	if err != nil {
		logger.Error("subscribe failed", "channel", *channel, "pair", *pair, "error", err)
		os.Exit(1)
	}
	logger.Info("subscribed", "channel", ack.Channel, "pair", ack.Pair, "chan_id", ack.ChanID)

	if *pingEvery > 0 {
		go pingLoop(ctx, market, *pingEvery)
	}

	<-ctx.Done()
	market.Close()
	logger.Info("stopped")
}

func pingLoop(ctx context.Context, market *wsmarket.WSMarket, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			market.Ping()
		}
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func printTicker(t wsmarket.Ticker) {
	fmt.Printf("[TICKER] %s bid=%s ask=%s last=%s vol=%s\n",
		t.Pair, t.Bid, t.Ask, t.LastPrice, t.Volume)
}

func printTrades(trades []wsmarket.Trade) {
	for _, t := range trades {
		side := "buy"
		if t.Amount.IsNegative() {
			side = "sell"
		}
		fmt.Printf("[TRADE] %s %s %s @ %s %s %s\n",
			t.Pair, side, t.Amount.Abs(), t.Price, t.Time.Format(time.RFC3339Nano), t.Update)
	}
}

func printBook(levels []wsmarket.BookLevel) {
	for _, l := range levels {
		side := "bid"
		if l.Amount.IsNegative() {
			side = "ask"
		}
		fmt.Printf("[BOOK] %s price=%s count=%d amount=%s\n", side, l.Price, l.Count, l.Amount.Abs())
	}
}
