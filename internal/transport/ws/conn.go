package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var (
	ErrSlowConsumer = errors.New("send queue is full")
	ErrConnClosed   = errors.New("connection closed")
)

type wsConn struct {
	id     string
	userID string
	conn   *websocket.Conn

	send      chan Message
	closed    chan struct{}
	closeOnce sync.Once

	writeWait time.Duration
}

func newWsConn(id, userID string, c *websocket.Conn, opts Options) *wsConn {
	return &wsConn{
		id:        id,
		userID:    userID,
		conn:      c,
		send:      make(chan Message, opts.SendBuffer),
		closed:    make(chan struct{}),
		writeWait: opts.WriteTimeout,
	}
}

func (c *wsConn) ID() string     { return c.id }
func (c *wsConn) UserID() string { return c.userID }

// Send не блокируется: сообщение ставится в очередь writeLoop.
func (c *wsConn) Send(msg Message) error {
	select {
	case <-c.closed:
		return ErrConnClosed
	default:
	}

	select {
	case c.send <- msg:
		return nil
	default:
		return ErrSlowConsumer
	}
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(c.writeWait),
		)
		err = c.conn.Close()
	})
	return err
}

func (c *wsConn) writeLoop(pingEvery time.Duration) {
	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				_ = c.Close()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeWait)); err != nil {
				_ = c.Close()
				return
			}
		case <-c.closed:
			return
		}
	}
}
