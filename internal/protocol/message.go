package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Custom error variables for messages that cannot be routed to an actor.
var (
	ErrMalformed   = errors.New("malformed message")
	ErrUnknownType = errors.New("unknown message type")
)

// Type is the discriminator carried in the "type" field of every frame.
type Type string

const (
	// Queue inbound.
	TypeJoinQueue  Type = "join_queue"
	TypeLeaveQueue Type = "leave_queue"
	TypePing       Type = "ping"

	// Queue outbound.
	TypeQueueUpdate Type = "queue_update"
	TypeMatchFound  Type = "match_found"
	TypePong        Type = "pong"

	// Match inbound. paddle, ball and score are also relayed outbound.
	TypeJoin   Type = "join"
	TypePaddle Type = "paddle"
	TypeBall   Type = "ball"
	TypeScore  Type = "score"

	// Match outbound.
	TypeGameStart            Type = "game_start"
	TypeOpponentDisconnected Type = "opponent_disconnected"
)

const DefaultNickname = "Player"

// QueueMessage is the closed set of messages the Queue actor accepts.
type QueueMessage interface {
	queueMessage()
}

// MatchMessage is the closed set of messages a Match actor accepts.
type MatchMessage interface {
	matchMessage()
}

// Outbound is any event an actor delivers to a connection.
type Outbound interface {
	MessageType() Type
}

// Notifier is a best-effort delivery target. TryNotify never blocks and
// never reports failure: a closed or saturated connection drops the event.
type Notifier interface {
	TryNotify(msg Outbound)
}

type JoinQueue struct {
	Nickname string `json:"nickname"`
	GroupTag string `json:"groupTag,omitempty"`
	// TournamentID is the legacy spelling of GroupTag.
	TournamentID string `json:"tournamentId,omitempty"`
}

type LeaveQueue struct{}

type Ping struct{}

type Join struct {
	Nickname string `json:"nickname"`
}

type Paddle struct {
	X float64 `json:"x"`
}

// BallState is position and velocity as reported by a client.
type BallState struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	VX float64 `json:"vx"`
	VY float64 `json:"vy"`
}

// Ball accepts both the flat form and the older {"ball": {...}} form.
type Ball struct {
	BallState
	Nested *BallState `json:"ball,omitempty"`
}

// State returns the reported ball state, preferring the nested form.
func (b Ball) State() BallState {
	if b.Nested != nil {
		return *b.Nested
	}
	return b.BallState
}

type Score struct {
	MyScore       int `json:"myScore"`
	OpponentScore int `json:"opponentScore"`
}

// Disconnect is delivered by the transport when a connection closes or
// errors. It never arrives over the wire.
type Disconnect struct{}

func (JoinQueue) queueMessage()  {}
func (LeaveQueue) queueMessage() {}
func (Ping) queueMessage()       {}
func (Disconnect) queueMessage() {}

func (Join) matchMessage()       {}
func (Paddle) matchMessage()     {}
func (Ball) matchMessage()       {}
func (Score) matchMessage()      {}
func (Disconnect) matchMessage() {}

type QueueUpdate struct {
	Count int `json:"count"`
}

type MatchFound struct {
	MatchID  string `json:"matchId"`
	Opponent string `json:"opponent"`
	Role     Role   `json:"role"`
}

type Pong struct{}

type GameStart struct {
	Opponent string `json:"opponent"`
	Role     Role   `json:"role"`
}

type ScoreUpdate struct {
	YourScore     int `json:"yourScore"`
	OpponentScore int `json:"opponentScore"`
}

type OpponentDisconnected struct{}

func (QueueUpdate) MessageType() Type          { return TypeQueueUpdate }
func (MatchFound) MessageType() Type           { return TypeMatchFound }
func (Pong) MessageType() Type                 { return TypePong }
func (GameStart) MessageType() Type            { return TypeGameStart }
func (Paddle) MessageType() Type               { return TypePaddle }
func (BallState) MessageType() Type            { return TypeBall }
func (ScoreUpdate) MessageType() Type          { return TypeScore }
func (OpponentDisconnected) MessageType() Type { return TypeOpponentDisconnected }

type envelope struct {
	Type Type `json:"type"`
}

func peekType(data []byte) (Type, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Type == "" {
		return "", fmt.Errorf("%w: missing type", ErrMalformed)
	}
	return env.Type, nil
}

func decodeInto[T any](t Type, data []byte) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("%w: %s: %v", ErrMalformed, t, err)
	}
	return v, nil
}

// DecodeQueue parses a frame received on a queue connection.
func DecodeQueue(data []byte) (QueueMessage, error) {
	t, err := peekType(data)
	if err != nil {
		return nil, err
	}
	switch t {
	case TypeJoinQueue:
		msg, err := decodeInto[JoinQueue](t, data)
		if err != nil {
			return nil, err
		}
		if msg.Nickname == "" {
			msg.Nickname = DefaultNickname
		}
		if msg.GroupTag == "" {
			msg.GroupTag = msg.TournamentID
		}
		msg.TournamentID = ""
		return msg, nil
	case TypeLeaveQueue:
		return LeaveQueue{}, nil
	case TypePing:
		return Ping{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
}

// DecodeMatch parses a frame received on a match connection.
func DecodeMatch(data []byte) (MatchMessage, error) {
	t, err := peekType(data)
	if err != nil {
		return nil, err
	}
	switch t {
	case TypeJoin:
		msg, err := decodeInto[Join](t, data)
		if err != nil {
			return nil, err
		}
		if msg.Nickname == "" {
			msg.Nickname = DefaultNickname
		}
		return msg, nil
	case TypePaddle:
		return decodeInto[Paddle](t, data)
	case TypeBall:
		return decodeInto[Ball](t, data)
	case TypeScore:
		return decodeInto[Score](t, data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
}

// Encode renders msg as a flat JSON object whose first field is "type".
func Encode(msg Outbound) ([]byte, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", msg.MessageType(), err)
	}
	if len(body) < 2 || body[0] != '{' {
		return nil, fmt.Errorf("encode %s: payload is not an object", msg.MessageType())
	}
	typ, err := json.Marshal(msg.MessageType())
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(body)+len(typ)+9)
	out = append(out, `{"type":`...)
	out = append(out, typ...)
	if len(body) > 2 {
		out = append(out, ',')
	}
	out = append(out, body[1:]...)
	return out, nil
}
