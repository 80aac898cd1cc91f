package server

import (
	"errors"
	"sync"
	"time"

	"market-relay/src/logger"
	"market-relay/src/models"

	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

const (
	writeWait      = 2 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

var errSendBufferFull = errors.New("send buffer full")

// -----------------------------------------------------------------------------
// wsTransport
// -----------------------------------------------------------------------------

// wsTransport adapts a gorilla connection to interfaces.ITransport. Send never
// blocks; the write pump owns all writes to conn.
type wsTransport struct {
	conn   *websocket.Conn
	send   chan models.MMessage
	done   chan struct{}
	once   sync.Once
	logger *logger.Logger
}

func newWSTransport(conn *websocket.Conn, buffer int, log *logger.Logger) *wsTransport {
	return &wsTransport{
		conn:   conn,
		send:   make(chan models.MMessage, buffer),
		done:   make(chan struct{}),
		logger: log,
	}
}

func (t *wsTransport) Send(msg models.MMessage) error {
	select {
	case <-t.done:
		return websocket.ErrCloseSent
	default:
	}
	select {
	case t.send <- msg:
		return nil
	default:
		return errSendBufferFull
	}
}

func (t *wsTransport) Close() error {
	t.once.Do(func() { close(t.done) })
	return nil
}

func (t *wsTransport) RemoteAddr() string {
	return t.conn.RemoteAddr().String()
}

// -----------------------------------------------------------------------------
// readPump hands every text frame to onMessage until the peer goes away.
// -----------------------------------------------------------------------------

func (t *wsTransport) readPump(onMessage func([]byte)) {
	defer t.Close()

	t.conn.SetReadLimit(maxMessageSize)
	t.conn.SetReadDeadline(time.Now().Add(pongWait))
	t.conn.SetPongHandler(func(string) error {
		t.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := t.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				t.logger.Debug("WebSocket read error: %v", err)
			}
			return
		}
		t.conn.SetReadDeadline(time.Now().Add(pongWait))
		onMessage(message)
	}
}

// -----------------------------------------------------------------------------
// writePump drains the send buffer and keeps the socket alive with pings.
// -----------------------------------------------------------------------------

func (t *wsTransport) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		t.conn.Close()
	}()

	for {
		select {
		case <-t.done:
			t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			t.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case message := <-t.send:
			t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.conn.WriteJSON(message); err != nil {
				t.logger.Debug("Write error: %v", err)
				t.Close()
				return
			}

		case <-ticker.C:
			t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				t.Close()
				return
			}
		}
	}
}
