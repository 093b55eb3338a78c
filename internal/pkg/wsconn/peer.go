package wsconn

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cheildo/pong-lobby/internal/metrics"
	"github.com/cheildo/pong-lobby/internal/protocol"
)

// Config controls buffering and keepalive for every peer.
type Config struct {
	ReadBufferSize  int
	WriteBufferSize int
	SendBuffer      int
	ReadLimit       int64
	PongWait        time.Duration
	WriteWait       time.Duration
}

// DefaultConfig mirrors the read deadline used throughout the services.
func DefaultConfig() Config {
	return Config{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBuffer:      64,
		ReadLimit:       64 * 1024,
		PongWait:        60 * time.Second,
		WriteWait:       10 * time.Second,
	}
}

func (c Config) pingPeriod() time.Duration {
	return c.PongWait * 9 / 10
}

// NewUpgrader builds the upgrader for the lobby endpoints. Origin checks are
// left to the CORS layer in front of the router.
func NewUpgrader(cfg Config) websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin:     func(r *http.Request) bool { return true },
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
	}
}

// Peer is one upgraded connection. Writes go through a single write pump;
// reads happen on the goroutine that calls Run.
type Peer struct {
	conn *websocket.Conn
	cfg  Config
	send chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

func NewPeer(conn *websocket.Conn, cfg Config) *Peer {
	def := DefaultConfig()
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = def.SendBuffer
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = def.PongWait
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = def.WriteWait
	}
	return &Peer{
		conn:   conn,
		cfg:    cfg,
		send:   make(chan []byte, cfg.SendBuffer),
		closed: make(chan struct{}),
	}
}

// RemoteAddr is used for logging.
func (p *Peer) RemoteAddr() string {
	return p.conn.RemoteAddr().String()
}

// TryNotify queues msg for delivery. It never blocks: a closed peer or a
// full send buffer drops the frame.
func (p *Peer) TryNotify(msg protocol.Outbound) {
	b, err := protocol.Encode(msg)
	if err != nil {
		metrics.DroppedMessages.WithLabelValues(metrics.ReasonEncode).Inc()
		slog.Error("Failed to encode outbound message", "type", msg.MessageType(), "error", err)
		return
	}
	select {
	case <-p.closed:
		return
	default:
	}
	select {
	case p.send <- b:
	default:
		metrics.DroppedMessages.WithLabelValues(metrics.ReasonSendBuffer).Inc()
		slog.Debug("Send buffer full, dropping frame", "remote", p.RemoteAddr(), "type", msg.MessageType())
	}
}

// Run pumps frames until the connection breaks or Close is called. Each text
// frame is passed to onMessage on the calling goroutine.
func (p *Peer) Run(onMessage func([]byte)) {
	go p.writePump()
	defer p.Close()

	if p.cfg.ReadLimit > 0 {
		p.conn.SetReadLimit(p.cfg.ReadLimit)
	}
	p.conn.SetReadDeadline(time.Now().Add(p.cfg.PongWait))
	p.conn.SetPongHandler(func(string) error {
		p.conn.SetReadDeadline(time.Now().Add(p.cfg.PongWait))
		return nil
	})

	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				slog.Warn("WebSocket connection closed unexpectedly", "remote", p.RemoteAddr(), "error", err)
			}
			return
		}
		// Any frame counts as liveness, not only pongs.
		p.conn.SetReadDeadline(time.Now().Add(p.cfg.PongWait))
		onMessage(data)
	}
}

func (p *Peer) writePump() {
	ticker := time.NewTicker(p.cfg.pingPeriod())
	defer func() {
		ticker.Stop()
		p.Close()
	}()

	for {
		select {
		case b := <-p.send:
			p.conn.SetWriteDeadline(time.Now().Add(p.cfg.WriteWait))
			if err := p.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				slog.Debug("Write failed", "remote", p.RemoteAddr(), "error", err)
				return
			}
		case <-ticker.C:
			p.conn.SetWriteDeadline(time.Now().Add(p.cfg.WriteWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-p.closed:
			return
		}
	}
}

// Close tears the connection down. Safe to call more than once.
func (p *Peer) Close() {
	p.closeOnce.Do(func() {
		close(p.closed)
		p.conn.Close()
	})
}
