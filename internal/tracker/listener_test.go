package tracker

import (
	"testing"
	"time"

	"github.com/cheildo/pong-lobby/internal/events"
)

func TestListenerFollowsMatchLifecycle(t *testing.T) {
	l := NewListener(nil, 0)
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return at }

	l.Apply(events.Event{Kind: events.KindMatchFound, MatchID: "m-1", PlayerIDs: []string{"a", "b"}, At: at})
	if s := l.Stats(); s.Found != 1 || s.Pending != 1 || s.Live != 0 {
		t.Fatalf("after match_found: %+v", s)
	}

	l.Apply(events.Event{Kind: events.KindGameStarted, MatchID: "m-1", PlayerIDs: []string{"a", "b"}, At: at})
	l.Apply(events.Event{Kind: events.KindGameStarted, MatchID: "m-1", PlayerIDs: []string{"a", "b"}, At: at})
	if s := l.Stats(); s.Started != 1 || s.Pending != 0 || s.Live != 1 {
		t.Fatalf("after game_started: %+v", s)
	}

	l.Apply(events.Event{Kind: events.KindSeatVacated, MatchID: "m-1", PlayerIDs: []string{"a"}, At: at})
	if s := l.Stats(); s.Ended != 1 || s.Live != 0 {
		t.Fatalf("after first vacate: %+v", s)
	}
	l.Apply(events.Event{Kind: events.KindSeatVacated, MatchID: "m-1", PlayerIDs: []string{"b"}, At: at})
	if s := l.Stats(); s.Ended != 1 {
		t.Fatalf("second vacate counted again: %+v", s)
	}
	if len(l.matches) != 0 {
		t.Fatalf("empty match still tracked: %v", l.matches)
	}
}

func TestListenerIgnoresVacateBeforeStart(t *testing.T) {
	l := NewListener(nil, 0)
	l.Apply(events.Event{Kind: events.KindSeatVacated, MatchID: "lonely", PlayerIDs: []string{"a"}})
	l.Apply(events.Event{Kind: "unknown", MatchID: "x"})
	if s := l.Stats(); s != (Stats{}) {
		t.Fatalf("stats = %+v, want zero", s)
	}
}

func TestListenerExpiresPendingMatches(t *testing.T) {
	l := NewListener(nil, time.Minute)
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return at.Add(2 * time.Minute) }

	l.Apply(events.Event{Kind: events.KindMatchFound, MatchID: "stale", At: at})
	l.Apply(events.Event{Kind: events.KindMatchFound, MatchID: "fresh", At: at.Add(2 * time.Minute)})

	if s := l.Stats(); s.Found != 2 || s.Pending != 1 {
		t.Fatalf("stats = %+v, want one pending", s)
	}
	if _, ok := l.pending["fresh"]; !ok {
		t.Fatal("fresh match expired")
	}
}

func TestStatsExpiresPendingWithoutNewEvents(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l := NewListener(nil, time.Minute)
	l.now = func() time.Time { return at.Add(30 * time.Second) }

	l.Apply(events.Event{Kind: events.KindMatchFound, MatchID: "quiet", At: at})
	if s := l.Stats(); s.Pending != 1 {
		t.Fatalf("pending before TTL = %d, want 1", s.Pending)
	}

	l.now = func() time.Time { return at.Add(2 * time.Minute) }
	if s := l.Stats(); s.Pending != 0 || s.Found != 1 {
		t.Fatalf("stats after TTL = %+v, want nothing pending", s)
	}
}
