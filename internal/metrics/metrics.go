package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	QueueSize     = prometheus.NewGauge(prometheus.GaugeOpts{Name: "pong_queue_size", Help: "players currently waiting in the matchmaking queue"})
	MatchesTotal  = prometheus.NewCounter(prometheus.CounterOpts{Name: "pong_matches_total", Help: "pairings formed by the queue"})
	ActiveMatches = prometheus.NewGauge(prometheus.GaugeOpts{Name: "pong_active_matches", Help: "live match actors"})
	GamesStarted  = prometheus.NewCounter(prometheus.CounterOpts{Name: "pong_games_started_total", Help: "matches that seated both players"})

	RelayedMessages = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "pong_relayed_messages_total", Help: "gameplay events relayed between seats"}, []string{"type"})
	DroppedMessages = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "pong_dropped_messages_total", Help: "inbound or outbound frames dropped"}, []string{"reason"})

	EventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "pong_events_published_total", Help: "lobby events delivered to a sink"}, []string{"sink"})
	EventsDropped   = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "pong_events_dropped_total", Help: "lobby events dropped before or during delivery"}, []string{"reason"})
)

// Drop reasons.
const (
	ReasonMalformed   = "malformed"
	ReasonUnknownType = "unknown_type"
	ReasonSendBuffer  = "send_buffer_full"
	ReasonEncode      = "encode"
	ReasonUnseated    = "unseated"
	ReasonExtraJoin   = "extra_join"
)

func Init() {
	prometheus.MustRegister(
		QueueSize, MatchesTotal, ActiveMatches, GamesStarted,
		RelayedMessages, DroppedMessages, EventsPublished, EventsDropped,
	)
}
