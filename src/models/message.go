package models

import (
	"encoding/json"
	"time"
)

// -----------------------------------------------------------------------------
// Wire envelope shared by server and consumer
// -----------------------------------------------------------------------------

const (
	MsgConnected      = "connected"
	MsgStockUpdate    = "stock-update"
	MsgCryptoUpdate   = "crypto-update"
	MsgCurrencyUpdate = "currency-update"
	MsgError          = "error"
	MsgHeartbeat      = "heartbeat"
	MsgSubscribe      = "subscribe"
	MsgUnsubscribe    = "unsubscribe"
)

// MMessage is the typed JSON envelope for every frame on the data stream.
type MMessage struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp int64       `json:"timestamp"`
}

// NewMessage stamps payload with the current time in milliseconds.
func NewMessage(msgType string, payload interface{}) MMessage {
	if payload == nil {
		payload = struct{}{}
	}
	return MMessage{Type: msgType, Payload: payload, Timestamp: time.Now().UnixMilli()}
}

// MInboundMessage is the decoding side of MMessage, payload kept raw.
type MInboundMessage struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
}

// -----------------------------------------------------------------------------

// MSubscription is the subscribe/unsubscribe payload.
type MSubscription struct {
	Channel Channel  `json:"channel"`
	Symbols []string `json:"symbols,omitempty"`
}

type MConnectedPayload struct {
	ClientID            string               `json:"clientId"`
	HeartbeatIntervalMs int64                `json:"heartbeatIntervalMs"`
	Channels            []Channel            `json:"channels"`
	Snapshot            map[Channel][]MQuote `json:"snapshot,omitempty"`
}

type MErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// UpdateTypeFor maps a channel to its broadcast message type.
func UpdateTypeFor(ch Channel) string {
	switch ch {
	case ChannelCrypto:
		return MsgCryptoUpdate
	case ChannelCurrencies:
		return MsgCurrencyUpdate
	default:
		return MsgStockUpdate
	}
}
