package wsconn

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/cheildo/pong-lobby/internal/metrics"
	"github.com/cheildo/pong-lobby/internal/protocol"
)

// RequireUpgrade answers 426 unless r asks for a WebSocket upgrade.
func RequireUpgrade(w http.ResponseWriter, r *http.Request) bool {
	if websocket.IsWebSocketUpgrade(r) {
		return true
	}
	http.Error(w, "Expected WebSocket", http.StatusUpgradeRequired)
	return false
}

// DropInbound records a frame that could not be decoded. The connection
// stays open.
func DropInbound(p *Peer, playerID string, err error) {
	reason := metrics.ReasonMalformed
	if errors.Is(err, protocol.ErrUnknownType) {
		reason = metrics.ReasonUnknownType
	}
	metrics.DroppedMessages.WithLabelValues(reason).Inc()
	slog.Debug("Dropping inbound frame", "playerID", playerID, "remote", p.RemoteAddr(), "reason", reason, "error", err)
}
