package infrastructure

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"chatWs/internal/modules/realtime/application/port"
)

// ClientConfig tunes the per-connection pumps.
type ClientConfig struct {
	SendBuffer   int
	ReadLimit    int64
	WriteWait    time.Duration
	PongWait     time.Duration
	PingInterval time.Duration
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		SendBuffer:   64,
		ReadLimit:    1 << 16,
		WriteWait:    10 * time.Second,
		PongWait:     60 * time.Second,
		PingInterval: 30 * time.Second,
	}
}

func (c ClientConfig) withDefaults() ClientConfig {
	def := DefaultClientConfig()
	if c.SendBuffer <= 0 {
		c.SendBuffer = def.SendBuffer
	}
	if c.ReadLimit <= 0 {
		c.ReadLimit = def.ReadLimit
	}
	if c.WriteWait <= 0 {
		c.WriteWait = def.WriteWait
	}
	if c.PongWait <= 0 {
		c.PongWait = def.PongWait
	}
	if c.PingInterval <= 0 || c.PingInterval >= c.PongWait {
		c.PingInterval = c.PongWait * 9 / 10
	}
	return c
}

// Client is the gorilla/websocket backed connection handle. Frames queued with Send are
// written by a single WritePump goroutine, so one connection never sees reordered frames.
type Client struct {
	conn       *websocket.Conn
	cfg        ClientConfig
	send       chan []byte
	done       chan struct{}
	closed     atomic.Bool
	closeOnce  sync.Once
	closeHooks []func(*Client)
	hookMu     sync.Mutex
	remoteAddr string
}

var _ port.ConnectionHandle = (*Client)(nil)

// NewClient wraps an upgraded socket; zero config fields take the defaults.
func NewClient(conn *websocket.Conn, cfg ClientConfig) *Client {
	cfg = cfg.withDefaults()
	client := &Client{
		conn: conn,
		cfg:  cfg,
		send: make(chan []byte, cfg.SendBuffer),
		done: make(chan struct{}),
	}
	if conn != nil {
		client.remoteAddr = conn.RemoteAddr().String()
	}
	return client
}

func (c *Client) RemoteAddr() string { return c.remoteAddr }

// Send queues a text frame without touching the network. A full queue is waited on for at
// most WriteWait before ErrSendBufferFull is returned.
func (c *Client) Send(data []byte) error {
	if c.closed.Load() {
		return port.ErrHandleClosed
	}
	select {
	case <-c.done:
		return port.ErrHandleClosed
	case c.send <- data:
		return nil
	default:
	}

	timer := time.NewTimer(c.cfg.WriteWait)
	defer timer.Stop()
	select {
	case <-c.done:
		return port.ErrHandleClosed
	case c.send <- data:
		return nil
	case <-timer.C:
		slog.Warn("websocket send queue stalled", slog.String("remoteAddr", c.remoteAddr), slog.Duration("waited", c.cfg.WriteWait))
		return port.ErrSendBufferFull
	}
}

func (c *Client) Alive() bool { return !c.closed.Load() }

// Close stops both pumps and releases the socket. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.done)
		if c.conn != nil {
			_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			_ = c.conn.Close()
		}
		c.invokeCloseHooks()
	})
}

// AddCloseHook registers a callback that will be executed once when the client closes.
func (c *Client) AddCloseHook(fn func(*Client)) {
	if fn == nil {
		return
	}
	c.hookMu.Lock()
	c.closeHooks = append(c.closeHooks, fn)
	c.hookMu.Unlock()
}

func (c *Client) invokeCloseHooks() {
	c.hookMu.Lock()
	hooks := append([]func(*Client){}, c.closeHooks...)
	c.closeHooks = nil
	c.hookMu.Unlock()

	for _, hook := range hooks {
		func(h func(*Client)) {
			defer func() {
				if r := recover(); r != nil {
					slog.Warn("ws close hook panic", slog.Any("error", r))
				}
			}()
			h(c)
		}(hook)
	}
}

func (c *Client) WritePump() {
	ping := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ping.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				slog.Warn("websocket write error", slog.String("remoteAddr", c.remoteAddr), slog.Any("error", err))
				return
			}
		case <-ping.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.cfg.WriteWait)); err != nil {
				slog.Warn("websocket ping error", slog.String("remoteAddr", c.remoteAddr), slog.Any("error", err))
				return
			}
		}
	}
}

// ReadPump blocks reading frames and hands each one to onFrame until the peer goes away.
func (c *Client) ReadPump(onFrame func([]byte)) {
	c.conn.SetReadLimit(c.cfg.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if c.Alive() && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("websocket read error", slog.String("remoteAddr", c.remoteAddr), slog.Any("error", err))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		onFrame(data)
	}
}
