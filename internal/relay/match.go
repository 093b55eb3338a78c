package relay

import (
	"log/slog"
	"time"

	"github.com/cheildo/pong-lobby/internal/events"
	"github.com/cheildo/pong-lobby/internal/metrics"
	"github.com/cheildo/pong-lobby/internal/protocol"
)

// ScorePerspective decides how a reported score reaches the non-sending seat.
type ScorePerspective string

const (
	// PerspectiveSender relays the pair to both seats exactly as sent.
	PerspectiveSender ScorePerspective = "sender"
	// PerspectiveRecipient swaps the pair for the non-sending seat so each
	// seat sees its own score as yourScore.
	PerspectiveRecipient ScorePerspective = "recipient"
)

// Request is one message delivered to a Match actor.
type Request struct {
	PlayerID string
	Peer     protocol.Notifier
	Msg      protocol.MatchMessage
}

// Seat is one player's slot in a match.
type Seat struct {
	PlayerID string
	Nickname string
	Role     protocol.Role
	Peer     protocol.Notifier
	PaddleX  float64
	JoinedAt time.Time
}

// Match is the state of one match id. It is owned by its actor goroutine.
//
// Lifecycle: waiting (0 or 1 seats) -> started (both seats joined). Started
// is entered once and never left; a disconnect only empties a seat, and
// vacated seats are not refilled.
type Match struct {
	ID          string
	perspective ScorePerspective
	publisher   events.Publisher
	now         func() time.Time

	seats    []*Seat
	started  bool
	lastBall protocol.BallState
}

func NewMatch(id string, perspective ScorePerspective, publisher events.Publisher) *Match {
	if publisher == nil {
		publisher = events.Discard
	}
	if perspective == "" {
		perspective = PerspectiveSender
	}
	return &Match{
		ID:          id,
		perspective: perspective,
		publisher:   publisher,
		now:         time.Now,
		seats:       make([]*Seat, 0, 2),
	}
}

// Started reports whether both seats have joined at some point.
func (m *Match) Started() bool { return m.started }

// Seats returns the currently occupied seats in join order.
func (m *Match) Seats() []Seat {
	out := make([]Seat, len(m.seats))
	for i, s := range m.seats {
		out[i] = *s
	}
	return out
}

// LastBall is the most recently relayed ball state.
func (m *Match) LastBall() protocol.BallState { return m.lastBall }

// Handle applies one message.
func (m *Match) Handle(req Request) {
	switch msg := req.Msg.(type) {
	case protocol.Join:
		m.join(req, msg)
	case protocol.Paddle:
		m.paddle(req, msg)
	case protocol.Ball:
		m.ball(req, msg)
	case protocol.Score:
		m.score(req, msg)
	case protocol.Disconnect:
		m.disconnect(req)
	default:
		slog.Debug("Ignoring unsupported match message", "matchID", m.ID, "playerID", req.PlayerID, "message", msg)
	}
}

func (m *Match) join(req Request, msg protocol.Join) {
	if m.seat(req.PlayerID) != nil {
		slog.Debug("Player already seated", "matchID", m.ID, "playerID", req.PlayerID)
		return
	}
	if m.started || len(m.seats) >= 2 {
		metrics.DroppedMessages.WithLabelValues(metrics.ReasonExtraJoin).Inc()
		slog.Warn("Ignoring join for a full or started match", "matchID", m.ID, "playerID", req.PlayerID)
		return
	}

	seat := &Seat{
		PlayerID: req.PlayerID,
		Nickname: msg.Nickname,
		Role:     protocol.RoleForPosition(len(m.seats)),
		Peer:     req.Peer,
		PaddleX:  0.5,
		JoinedAt: m.now(),
	}
	m.seats = append(m.seats, seat)
	slog.Info("Player seated", "matchID", m.ID, "playerID", seat.PlayerID, "role", seat.Role)

	if len(m.seats) == 2 {
		m.start()
	}
}

func (m *Match) start() {
	m.started = true
	for _, s := range m.seats {
		opponent := m.opponentOf(s).Nickname
		if opponent == "" {
			opponent = "Opponent"
		}
		s.Peer.TryNotify(protocol.GameStart{Opponent: opponent, Role: s.Role})
	}

	metrics.GamesStarted.Inc()
	m.publisher.Publish(events.Event{
		Kind:      events.KindGameStarted,
		MatchID:   m.ID,
		PlayerIDs: m.playerIDs(),
	})
	slog.Info("Game started", "matchID", m.ID, "players", m.playerIDs())
}

func (m *Match) paddle(req Request, msg protocol.Paddle) {
	s := m.seatedSender(req)
	if s == nil {
		return
	}
	s.PaddleX = msg.X
	m.relay(s, protocol.Paddle{X: msg.X})
}

// ball caches the reported state; nothing reads it back as authoritative.
func (m *Match) ball(req Request, msg protocol.Ball) {
	s := m.seatedSender(req)
	if s == nil {
		return
	}
	m.lastBall = msg.State()
	m.relay(s, m.lastBall)
}

func (m *Match) score(req Request, msg protocol.Score) {
	s := m.seatedSender(req)
	if s == nil {
		return
	}
	sent := protocol.ScoreUpdate{YourScore: msg.MyScore, OpponentScore: msg.OpponentScore}
	s.Peer.TryNotify(sent)

	if other := m.opponentOf(s); other != nil {
		if m.perspective == PerspectiveRecipient {
			other.Peer.TryNotify(protocol.ScoreUpdate{YourScore: msg.OpponentScore, OpponentScore: msg.MyScore})
		} else {
			other.Peer.TryNotify(sent)
		}
	}
	metrics.RelayedMessages.WithLabelValues(string(protocol.TypeScore)).Inc()
}

// disconnect vacates the seat held by the closing connection, if any, and
// tells whoever is left.
func (m *Match) disconnect(req Request) {
	idx := -1
	for i, s := range m.seats {
		if s.PlayerID == req.PlayerID && s.Peer == req.Peer {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	gone := m.seats[idx]
	m.seats = append(m.seats[:idx], m.seats[idx+1:]...)

	for _, s := range m.seats {
		s.Peer.TryNotify(protocol.OpponentDisconnected{})
	}

	m.publisher.Publish(events.Event{
		Kind:      events.KindSeatVacated,
		MatchID:   m.ID,
		PlayerIDs: []string{gone.PlayerID},
	})
	slog.Info("Player left match", "matchID", m.ID, "playerID", gone.PlayerID, "remaining", len(m.seats))
}

func (m *Match) relay(from *Seat, msg protocol.Outbound) {
	other := m.opponentOf(from)
	if other == nil {
		return
	}
	other.Peer.TryNotify(msg)
	metrics.RelayedMessages.WithLabelValues(string(msg.MessageType())).Inc()
}

// seatedSender returns the seat held by the sending connection. Another
// connection with the same identity does not act for the seat.
func (m *Match) seatedSender(req Request) *Seat {
	s := m.seat(req.PlayerID)
	if s != nil && s.Peer != req.Peer {
		s = nil
	}
	if s == nil {
		metrics.DroppedMessages.WithLabelValues(metrics.ReasonUnseated).Inc()
		slog.Debug("Ignoring message from unseated player", "matchID", m.ID, "playerID", req.PlayerID)
	}
	return s
}

func (m *Match) seat(playerID string) *Seat {
	for _, s := range m.seats {
		if s.PlayerID == playerID {
			return s
		}
	}
	return nil
}

func (m *Match) opponentOf(s *Seat) *Seat {
	for _, o := range m.seats {
		if o != s {
			return o
		}
	}
	return nil
}

func (m *Match) playerIDs() []string {
	ids := make([]string, len(m.seats))
	for i, s := range m.seats {
		ids[i] = s.PlayerID
	}
	return ids
}
