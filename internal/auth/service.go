package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Custom error variables for clear, handler-level error mapping.
var (
	ErrInvalidToken    = errors.New("invalid session token")
	ErrMissingToken    = errors.New("session token required")
	ErrInvalidPlayerID = errors.New("invalid player id")
	ErrTokensDisabled  = errors.New("token issuance is not configured")
)

var playerIDPattern = regexp.MustCompile(`^[a-zA-Z0-9-]{1,64}$`)

// Config holds the configuration needed to resolve connection identities.
type Config struct {
	JWTSecret     string
	TokenDuration time.Duration
	// RequireToken rejects connections that present no token.
	RequireToken bool
}

// Claims defines the payload for our JWT.
type Claims struct {
	UserID   string `json:"uid"`
	Username string `json:"uname,omitempty"`
	jwt.RegisteredClaims
}

// Resolver works out which player a new connection belongs to.
type Resolver struct {
	config Config
	now    func() time.Time
}

func NewResolver(config Config) *Resolver {
	if config.TokenDuration <= 0 {
		config.TokenDuration = 24 * time.Hour
	}
	return &Resolver{config: config, now: time.Now}
}

// Resolve returns the identity for r, in order of preference: the uid claim
// of a valid token, the playerId query parameter, or a fresh UUID.
func (s *Resolver) Resolve(r *http.Request) (string, error) {
	if tok := tokenFromRequest(r); tok != "" && s.config.JWTSecret != "" {
		claims, err := s.parse(tok)
		if err != nil {
			return "", err
		}
		return claims.UserID, nil
	}
	if s.config.RequireToken {
		return "", ErrMissingToken
	}
	if id := r.URL.Query().Get("playerId"); id != "" {
		if !playerIDPattern.MatchString(id) {
			return "", fmt.Errorf("%w: %q", ErrInvalidPlayerID, id)
		}
		return id, nil
	}
	return uuid.NewString(), nil
}

// IssueGuest creates a fresh guest identity and a token bound to it.
func (s *Resolver) IssueGuest(username string) (playerID, token string, err error) {
	playerID = uuid.NewString()
	token, err = s.IssueToken(playerID, username)
	return playerID, token, err
}

// IssueToken creates a signed JWT for the given player.
func (s *Resolver) IssueToken(playerID, username string) (string, error) {
	if s.config.JWTSecret == "" {
		return "", ErrTokensDisabled
	}
	now := s.now()
	claims := &Claims{
		UserID:   playerID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.TokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   playerID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		slog.Error("Failed to sign JWT", "error", err)
		return "", err
	}
	return tokenString, nil
}

func (s *Resolver) parse(tok string) (*Claims, error) {
	claims := &Claims{}
	t, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.config.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !t.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func tokenFromRequest(r *http.Request) string {
	if tok := r.URL.Query().Get("token"); tok != "" {
		return tok
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}
