package matchmaking

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cheildo/pong-lobby/internal/actor"
	"github.com/cheildo/pong-lobby/internal/events"
	"github.com/cheildo/pong-lobby/internal/metrics"
	"github.com/cheildo/pong-lobby/internal/protocol"
)

// LobbyID is the fixed identity of the single Queue actor.
const LobbyID = "global-lobby"

// Request is one message delivered to the Queue actor.
type Request struct {
	PlayerID string
	Peer     protocol.Notifier
	Msg      protocol.QueueMessage
}

// Service is the Queue actor. All pool access happens on its mailbox
// goroutine.
type Service struct {
	pool        Pool
	publisher   events.Publisher
	newMatchID  func() string
	now         func() time.Time
	mailboxSize int

	mailbox *actor.Mailbox[Request]
}

type Option func(*Service)

// WithMatchIDs replaces the match id generator.
func WithMatchIDs(fn func() string) Option {
	return func(s *Service) { s.newMatchID = fn }
}

// WithClock replaces the clock used to stamp queue entries.
func WithClock(fn func() time.Time) Option {
	return func(s *Service) { s.now = fn }
}

// WithMailboxSize sets the inbox buffer of the actor.
func WithMailboxSize(n int) Option {
	return func(s *Service) { s.mailboxSize = n }
}

// NewService creates a new matchmaking service.
func NewService(pool Pool, publisher events.Publisher, opts ...Option) *Service {
	if publisher == nil {
		publisher = events.Discard
	}
	s := &Service{
		pool:        pool,
		publisher:   publisher,
		newMatchID:  uuid.NewString,
		now:         time.Now,
		mailboxSize: 256,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs the actor until ctx is cancelled or Stop is called.
func (s *Service) Start(ctx context.Context) {
	slog.Info("Matchmaking queue actor started", "id", LobbyID)
	s.mailbox = actor.Start(ctx, s.mailboxSize, s.handle)
}

// Submit hands req to the actor in arrival order. It reports false once the
// actor has stopped.
func (s *Service) Submit(req Request) bool {
	return s.mailbox.Send(req)
}

func (s *Service) Stop() {
	s.mailbox.Stop()
}

func (s *Service) Done() <-chan struct{} {
	return s.mailbox.Done()
}

func (s *Service) handle(req Request) {
	switch msg := req.Msg.(type) {
	case protocol.JoinQueue:
		s.join(req, msg)
	case protocol.LeaveQueue:
		s.leave(req.PlayerID)
	case protocol.Ping:
		req.Peer.TryNotify(protocol.Pong{})
	case protocol.Disconnect:
		s.disconnect(req)
	default:
		slog.Debug("Ignoring unsupported queue message", "playerID", req.PlayerID, "message", msg)
	}
}

func (s *Service) join(req Request, msg protocol.JoinQueue) {
	added := s.pool.Add(&WaitingPlayer{
		ID:       req.PlayerID,
		Nickname: msg.Nickname,
		GroupTag: msg.GroupTag,
		Peer:     req.Peer,
		JoinedAt: s.now(),
	})
	if !added {
		slog.Debug("Player already queued", "playerID", req.PlayerID)
		return
	}
	slog.Info("Player added to matchmaking queue", "playerID", req.PlayerID, "queueSize", s.pool.Len())

	s.broadcastQueueSize()
	for s.pool.Len() >= 2 {
		s.pair()
	}
}

func (s *Service) leave(playerID string) {
	if _, ok := s.pool.Remove(playerID); !ok {
		return
	}
	slog.Info("Player removed from matchmaking queue", "playerID", playerID, "queueSize", s.pool.Len())
	s.broadcastQueueSize()
}

// disconnect only removes the entry owned by the closing connection, so a
// second connection sharing the identity cannot evict the first.
func (s *Service) disconnect(req Request) {
	w, ok := s.pool.Get(req.PlayerID)
	if !ok || w.Peer != req.Peer {
		return
	}
	s.leave(req.PlayerID)
}

// pair removes the two longest-waiting players and tells each about the
// other. Delivery is best-effort; the pairing stands either way.
func (s *Service) pair() {
	first, second, ok := s.pool.PopPair()
	if !ok {
		return
	}
	matchID := s.newMatchID()

	first.Peer.TryNotify(protocol.MatchFound{
		MatchID:  matchID,
		Opponent: second.Nickname,
		Role:     protocol.RoleForPosition(0),
	})
	second.Peer.TryNotify(protocol.MatchFound{
		MatchID:  matchID,
		Opponent: first.Nickname,
		Role:     protocol.RoleForPosition(1),
	})

	// Pairing is FIFO across tags; the event only carries a tag both share.
	var groupTag string
	if first.GroupTag == second.GroupTag {
		groupTag = first.GroupTag
	}

	metrics.MatchesTotal.Inc()
	s.publisher.Publish(events.Event{
		Kind:      events.KindMatchFound,
		MatchID:   matchID,
		PlayerIDs: []string{first.ID, second.ID},
		GroupTag:  groupTag,
	})
	slog.Info("Match found!", "matchID", matchID, "players", []string{first.ID, second.ID},
		"waited", s.now().Sub(first.JoinedAt))

	s.broadcastQueueSize()
}

func (s *Service) broadcastQueueSize() {
	count := s.pool.Len()
	metrics.QueueSize.Set(float64(count))
	update := protocol.QueueUpdate{Count: count}
	s.pool.Each(func(w *WaitingPlayer) {
		w.Peer.TryNotify(update)
	})
}
