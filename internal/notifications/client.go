package notifications

import (
	"log/slog"
	"sync"
	"time"

	"quill/internal/middleware"
	"quill/internal/observability"

	"github.com/gofiber/websocket/v2"
)

// Connection timings. Pings go out a little more often than the peer's
// pong deadline so an idle but healthy socket never times out.
const (
	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
	pingInterval = pongTimeout * 9 / 10
	readLimit    = 4096
	queueSize    = 64
)

// Client is one live feed websocket of a signed-in user. The feed only
// pushes; inbound frames are read for control handling and dropped.
type Client struct {
	UserID uint

	hub   *Hub
	conn  *websocket.Conn
	queue chan []byte
	done  chan struct{}
	// writerDone closes once writeLoop has returned.
	writerDone chan struct{}

	stopOnce sync.Once
}

func newClient(hub *Hub, conn *websocket.Conn, userID uint) *Client {
	return &Client{
		UserID: userID,
		hub:    hub,
		conn:   conn,
		queue:  make(chan []byte, queueSize),
		done:   make(chan struct{}),

		writerDone: make(chan struct{}),
	}
}

// stop tells the writer to say goodbye and quit. Safe to call repeatedly.
func (c *Client) stop() {
	c.stopOnce.Do(func() { close(c.done) })
}

// Serve pumps the connection until either side closes it. It blocks, so
// call it from the websocket handler goroutine. The connection is not
// touched after Serve returns, so the handler may hand it back to fiber.
func (c *Client) Serve() {
	go func() {
		defer close(c.writerDone)
		c.writeLoop()
	}()
	c.readLoop()
	<-c.writerDone
}

// readLoop returns when the peer leaves or the writer closes the
// connection, and stops the writer on the way out.
func (c *Client) readLoop() {
	defer func() {
		c.hub.UnregisterClient(c)
		c.stop()
	}()

	c.conn.SetReadLimit(readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	for {
		_, _, err := c.conn.ReadMessage()
		if err == nil {
			continue
		}
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
			middleware.Logger.Debug("live feed read failed",
				slog.Uint64("user_id", uint64(c.UserID)), slog.String("error", err.Error()))
		}
		return
	}
}

func (c *Client) writeLoop() {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	defer func() { _ = c.conn.Close() }()

	write := func(kind int, data []byte) error {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		return c.conn.WriteMessage(kind, data)
	}

	for {
		select {
		case msg := <-c.queue:
			if err := write(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ping.C:
			if err := write(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		}
	}
}

// TrySend queues msg for delivery without blocking and reports whether it
// was queued. Stopped clients and full queues drop the message.
func (c *Client) TrySend(msg []byte) bool {
	select {
	case <-c.done:
		observability.WebSocketBackpressureDrops.WithLabelValues("closed").Inc()
		return false
	default:
	}

	select {
	case c.queue <- msg:
		return true
	default:
		observability.WebSocketBackpressureDrops.WithLabelValues("full").Inc()
		middleware.Logger.Warn("live feed queue full, message dropped", slog.Uint64("user_id", uint64(c.UserID)))
		return false
	}
}
