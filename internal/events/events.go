package events

import (
	"time"
)

// Kind identifies a lobby event.
type Kind string

const (
	KindMatchFound  Kind = "match_found"
	KindGameStarted Kind = "game_started"
	KindSeatVacated Kind = "seat_vacated"
)

// Event is the payload published to every sink.
type Event struct {
	Kind      Kind      `json:"kind"`
	MatchID   string    `json:"matchID"`
	PlayerIDs []string  `json:"playerIDs"`
	GroupTag  string    `json:"groupTag,omitempty"`
	At        time.Time `json:"at"`
}

// Publisher accepts events without blocking the caller. Actors publish
// from their own goroutine, so implementations must never wait on I/O.
type Publisher interface {
	Publish(e Event)
}

type discard struct{}

func (discard) Publish(Event) {}

// Discard drops every event.
var Discard Publisher = discard{}
