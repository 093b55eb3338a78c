package relay

import (
	"context"
	"log/slog"

	"github.com/cheildo/pong-lobby/internal/actor"
	"github.com/cheildo/pong-lobby/internal/events"
	"github.com/cheildo/pong-lobby/internal/metrics"
)

// Config holds the relay settings.
type Config struct {
	ScorePerspective ScorePerspective
	MailboxSize      int
}

// Service hosts one Match actor per match id. A match is instantiated the
// first time a connection addresses its id and reclaimed, with its state,
// once the last connection to it closes.
type Service struct {
	registry *actor.Registry[Request]
}

func NewService(ctx context.Context, cfg Config, publisher events.Publisher) *Service {
	if cfg.MailboxSize <= 0 {
		cfg.MailboxSize = 64
	}
	spawn := func(id string) func(Request) {
		metrics.ActiveMatches.Inc()
		slog.Debug("Match actor instantiated", "matchID", id)
		return NewMatch(id, cfg.ScorePerspective, publisher).Handle
	}
	reclaimed := func(id string) {
		metrics.ActiveMatches.Dec()
		slog.Debug("Match actor reclaimed", "matchID", id)
	}
	return &Service{
		registry: actor.NewRegistry(ctx, cfg.MailboxSize, spawn, actor.WithReclaimHook[Request](reclaimed)),
	}
}

// Session is one connection's handle on a match actor.
type Session struct {
	matchID  string
	mailbox  *actor.Mailbox[Request]
	registry *actor.Registry[Request]
}

// Open attaches a connection to the actor for matchID. The caller must
// Close the session when the connection ends.
func (s *Service) Open(matchID string) *Session {
	return &Session{
		matchID:  matchID,
		mailbox:  s.registry.Acquire(matchID),
		registry: s.registry,
	}
}

// Send delivers req to the match actor in arrival order.
func (ss *Session) Send(req Request) bool {
	return ss.mailbox.Send(req)
}

// Close detaches the connection. The actor drains pending messages before
// it is reclaimed.
func (ss *Session) Close() {
	ss.registry.Release(ss.matchID)
}

// ActiveMatches counts live match actors.
func (s *Service) ActiveMatches() int {
	return s.registry.Len()
}

// Stop stops every match actor.
func (s *Service) Stop() {
	s.registry.Close()
}
