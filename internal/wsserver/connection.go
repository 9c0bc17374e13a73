package wsserver

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Ko-stant/dungeon-ai-server/internal/protocol"
	"github.com/coder/websocket"
)

// wsConnection adapts a raw *websocket.Conn to the game.Connection
// interface a Game instance sends envelopes through. Writes carry their
// own timeout so a stalled client can never hold a game's broadcast
// goroutine hostage.
type wsConnection struct {
	conn        *websocket.Conn
	writeTimeout time.Duration
}

func newConnection(conn *websocket.Conn, writeTimeout time.Duration) *wsConnection {
	return &wsConnection{conn: conn, writeTimeout: writeTimeout}
}

func (c *wsConnection) Send(envelope protocol.ServerEnvelope) error {
	data, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.writeTimeout)
	defer cancel()
	return c.conn.Write(ctx, websocket.MessageText, data)
}

func (c *wsConnection) Close(reason string) {
	_ = c.conn.Close(websocket.StatusNormalClosure, reason)
}
