package tracker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/cheildo/pong-lobby/internal/events"
)

// DefaultPendingTTL bounds how long a found match waits for its players to
// reach the relay before the tracker forgets it.
const DefaultPendingTTL = 10 * time.Minute

// Stats is a snapshot of what the listener has seen on the event stream.
type Stats struct {
	Found   int64 `json:"found"`
	Started int64 `json:"started"`
	Ended   int64 `json:"ended"`
	Pending int   `json:"pending"`
	Live    int   `json:"live"`
}

type liveMatch struct {
	seated map[string]bool
	ended  bool
}

// Listener follows lobby events and keeps a running view of matches in
// progress. A match ends when the first of its seats is vacated.
type Listener struct {
	consumer   *kafka.Reader
	pendingTTL time.Duration
	now        func() time.Time

	mu      sync.Mutex
	stats   Stats
	pending map[string]time.Time
	matches map[string]*liveMatch
}

func NewListener(consumer *kafka.Reader, pendingTTL time.Duration) *Listener {
	if pendingTTL <= 0 {
		pendingTTL = DefaultPendingTTL
	}
	return &Listener{
		consumer:   consumer,
		pendingTTL: pendingTTL,
		now:        time.Now,
		pending:    make(map[string]time.Time),
		matches:    make(map[string]*liveMatch),
	}
}

// Run consumes events until ctx is cancelled. It should be run in a goroutine.
func (l *Listener) Run(ctx context.Context) {
	slog.Info("Match tracker started")
	events.Consume(ctx, l.consumer, l.Apply)
	slog.Info("Match tracker stopped.", "stats", l.Stats())
}

// Apply folds one event into the tracked state.
func (l *Listener) Apply(e events.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.expirePending(e.At)

	switch e.Kind {
	case events.KindMatchFound:
		l.stats.Found++
		l.pending[e.MatchID] = e.At
		slog.Info("Match found", "matchID", e.MatchID, "players", e.PlayerIDs, "groupTag", e.GroupTag)

	case events.KindGameStarted:
		if _, ok := l.matches[e.MatchID]; ok {
			return
		}
		delete(l.pending, e.MatchID)
		m := &liveMatch{seated: make(map[string]bool, len(e.PlayerIDs))}
		for _, id := range e.PlayerIDs {
			m.seated[id] = true
		}
		l.matches[e.MatchID] = m
		l.stats.Started++
		slog.Info("Game started", "matchID", e.MatchID, "players", e.PlayerIDs)

	case events.KindSeatVacated:
		m, ok := l.matches[e.MatchID]
		if !ok {
			return
		}
		if !m.ended {
			m.ended = true
			l.stats.Ended++
			slog.Info("Game ended", "matchID", e.MatchID, "leaver", e.PlayerIDs)
		}
		for _, id := range e.PlayerIDs {
			delete(m.seated, id)
		}
		if len(m.seated) == 0 {
			delete(l.matches, e.MatchID)
		}

	default:
		slog.Warn("Ignoring unknown lobby event", "kind", e.Kind, "matchID", e.MatchID)
	}
}

func (l *Listener) expirePending(now time.Time) {
	for id, at := range l.pending {
		if now.Sub(at) > l.pendingTTL {
			delete(l.pending, id)
		}
	}
}

// Stats returns a copy of the current counters.
func (l *Listener) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.expirePending(l.now())
	s := l.stats
	s.Pending = len(l.pending)
	for _, m := range l.matches {
		if !m.ended {
			s.Live++
		}
	}
	return s
}
