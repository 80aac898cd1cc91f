package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"market-relay/src/client"
	"market-relay/src/logger"
	"market-relay/src/models"
)

// watch subscribes to a relay and prints every update it receives.
func main() {
	url := flag.String("url", "ws://127.0.0.1:8080/ws", "relay data stream endpoint")
	equities := flag.String("equities", "", "comma separated equity tickers")
	crypto := flag.String("crypto", "", "comma separated crypto symbols")
	currencies := flag.String("currencies", "", "comma separated currency pairs")
	retries := flag.Int("retries", client.DefaultMaxAttempts, "reconnect attempts before giving up")
	flag.Parse()

	appLogger := logger.NewLogger(nil, "watch")

	m := client.NewManager(*url, appLogger).WithMaxAttempts(*retries)
	for ch, list := range map[models.Channel]string{
		models.ChannelEquities:   *equities,
		models.ChannelCrypto:     *crypto,
		models.ChannelCurrencies: *currencies,
	} {
		syms := splitList(list)
		if len(syms) == 0 {
			continue
		}
		if err := m.Subscribe(ch, syms...); err != nil {
			fmt.Fprintf(os.Stderr, "invalid %s symbols: %v\n", ch, err)
			os.Exit(2)
		}
	}

	m.OnStateChange = func(s client.State) { appLogger.Info("Connection %s", s) }
	m.OnMessage = printMessage

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := m.Run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func printMessage(msg models.MInboundMessage) {
	switch msg.Type {
	case models.MsgStockUpdate, models.MsgCryptoUpdate, models.MsgCurrencyUpdate:
		var q models.MQuote
		if err := json.Unmarshal(msg.Payload, &q); err != nil {
			return
		}
		fmt.Printf("%-16s %-10s %14.4f %+8.2f%%  %s\n", msg.Type, q.Symbol, q.Price, q.ChangePercent, q.Source)
	case models.MsgError:
		var e models.MErrorPayload
		if err := json.Unmarshal(msg.Payload, &e); err == nil {
			fmt.Fprintf(os.Stderr, "relay error %s: %s\n", e.Code, e.Message)
		}
	case models.MsgConnected:
		var p models.MConnectedPayload
		if err := json.Unmarshal(msg.Payload, &p); err == nil {
			fmt.Printf("connected as %s, heartbeat %dms\n", p.ClientID, p.HeartbeatIntervalMs)
		}
	}
}
