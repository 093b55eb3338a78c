package auth

import (
	"encoding/json"
	"errors"
	"net/http"
)

// HTTPHandler serves the guest token endpoint.
type HTTPHandler struct {
	resolver *Resolver
}

func NewHTTPHandler(resolver *Resolver) *HTTPHandler {
	return &HTTPHandler{resolver: resolver}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}

type guestRequest struct {
	Nickname string `json:"nickname"`
}

type guestResponse struct {
	PlayerID string `json:"playerId"`
	Token    string `json:"token"`
}

// HandleGuest is the HTTP handler for POST /api/v1/guest.
func (h *HTTPHandler) HandleGuest(w http.ResponseWriter, r *http.Request) {
	var req guestRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	playerID, token, err := h.resolver.IssueGuest(req.Nickname)
	if err != nil {
		if errors.Is(err, ErrTokensDisabled) {
			writeError(w, http.StatusNotFound, "Guest tokens are not enabled")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}
	writeJSON(w, http.StatusCreated, guestResponse{PlayerID: playerID, Token: token})
}

// WriteResolveError maps an identity resolution failure to an HTTP status.
func WriteResolveError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidPlayerID):
		writeError(w, http.StatusBadRequest, "Invalid player id")
	case errors.Is(err, ErrMissingToken):
		writeError(w, http.StatusUnauthorized, ErrMissingToken.Error())
	case errors.Is(err, ErrInvalidToken):
		// Parser detail stays out of the response.
		writeError(w, http.StatusUnauthorized, ErrInvalidToken.Error())
	default:
		writeError(w, http.StatusInternalServerError, "Failed to resolve identity")
	}
}
