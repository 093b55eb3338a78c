package matchmaking

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/cheildo/pong-lobby/internal/auth"
	"github.com/cheildo/pong-lobby/internal/pkg/wsconn"
	"github.com/cheildo/pong-lobby/internal/protocol"
)

// IdentityResolver works out the player behind a new connection.
type IdentityResolver interface {
	Resolve(r *http.Request) (string, error)
}

// WebsocketHandler handles the WebSocket connection for matchmaking.
type WebsocketHandler struct {
	svc      *Service
	identity IdentityResolver
	upgrader websocket.Upgrader
	peerCfg  wsconn.Config
	conns    *wsconn.ConnectionManager
}

func NewWebsocketHandler(svc *Service, identity IdentityResolver, cfg wsconn.Config, conns *wsconn.ConnectionManager) *WebsocketHandler {
	return &WebsocketHandler{
		svc:      svc,
		identity: identity,
		upgrader: wsconn.NewUpgrader(cfg),
		peerCfg:  cfg,
		conns:    conns,
	}
}

// ServeHTTP upgrades the connection and feeds its frames to the Queue actor.
func (h *WebsocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !wsconn.RequireUpgrade(w, r) {
		return
	}
	playerID, err := h.identity.Resolve(r)
	if err != nil {
		slog.Warn("Rejecting queue connection", "remote", r.RemoteAddr, "error", err)
		auth.WriteResolveError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	peer := wsconn.NewPeer(conn, h.peerCfg)
	h.conns.Add(peer)
	defer h.conns.Remove(peer)

	slog.Info("Queue connection established", "playerID", playerID, "remote", peer.RemoteAddr())
	h.handleConnection(peer, playerID)
}

// handleConnection runs for the lifetime of the connection. Closing or
// erroring out is reported to the actor as a disconnect.
func (h *WebsocketHandler) handleConnection(peer *wsconn.Peer, playerID string) {
	defer func() {
		slog.Info("Queue connection closed", "playerID", playerID)
		h.svc.Submit(Request{PlayerID: playerID, Peer: peer, Msg: protocol.Disconnect{}})
	}()

	peer.Run(func(data []byte) {
		msg, err := protocol.DecodeQueue(data)
		if err != nil {
			wsconn.DropInbound(peer, playerID, err)
			return
		}
		h.svc.Submit(Request{PlayerID: playerID, Peer: peer, Msg: msg})
	})
}
