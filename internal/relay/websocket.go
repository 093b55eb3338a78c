package relay

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/cheildo/pong-lobby/internal/auth"
	"github.com/cheildo/pong-lobby/internal/pkg/wsconn"
	"github.com/cheildo/pong-lobby/internal/protocol"
)

// IdentityResolver works out the player behind a new connection.
type IdentityResolver interface {
	Resolve(r *http.Request) (string, error)
}

// WebsocketHandler serves /ws/match/{matchID}.
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

func (h *WebsocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")
	if matchID == "" {
		http.Error(w, "Match ID is required", http.StatusBadRequest)
		return
	}
	if !wsconn.RequireUpgrade(w, r) {
		return
	}
	playerID, err := h.identity.Resolve(r)
	if err != nil {
		slog.Warn("Rejecting match connection", "matchID", matchID, "remote", r.RemoteAddr, "error", err)
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

	slog.Info("Match connection established", "matchID", matchID, "playerID", playerID, "remote", peer.RemoteAddr())
	h.handleConnection(peer, matchID, playerID)
}

func (h *WebsocketHandler) handleConnection(peer *wsconn.Peer, matchID, playerID string) {
	session := h.svc.Open(matchID)
	defer func() {
		slog.Info("Match connection closed", "matchID", matchID, "playerID", playerID)
		session.Send(Request{PlayerID: playerID, Peer: peer, Msg: protocol.Disconnect{}})
		session.Close()
	}()

	peer.Run(func(data []byte) {
		msg, err := protocol.DecodeMatch(data)
		if err != nil {
			wsconn.DropInbound(peer, playerID, err)
			return
		}
		session.Send(Request{PlayerID: playerID, Peer: peer, Msg: msg})
	})
}
