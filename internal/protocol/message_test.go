package protocol

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecodeQueue(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    QueueMessage
		wantErr error
	}{
		{"join", `{"type":"join_queue","nickname":"ada","groupTag":"cup"}`, JoinQueue{Nickname: "ada", GroupTag: "cup"}, nil},
		{"join defaults nickname", `{"type":"join_queue"}`, JoinQueue{Nickname: DefaultNickname}, nil},
		{"tournament alias", `{"type":"join_queue","nickname":"ada","tournamentId":"t-1"}`, JoinQueue{Nickname: "ada", GroupTag: "t-1"}, nil},
		{"leave", `{"type":"leave_queue"}`, LeaveQueue{}, nil},
		{"ping", `{"type":"ping"}`, Ping{}, nil},
		{"not json", `hello`, nil, ErrMalformed},
		{"missing type", `{"nickname":"ada"}`, nil, ErrMalformed},
		{"bad field", `{"type":"join_queue","nickname":7}`, nil, ErrMalformed},
		{"unknown", `{"type":"paddle","x":1}`, nil, ErrUnknownType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeQueue([]byte(tt.in))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestDecodeMatch(t *testing.T) {
	t.Run("join defaults nickname", func(t *testing.T) {
		got, err := DecodeMatch([]byte(`{"type":"join"}`))
		if err != nil {
			t.Fatal(err)
		}
		if got != (Join{Nickname: DefaultNickname}) {
			t.Fatalf("got %#v", got)
		}
	})

	t.Run("flat ball", func(t *testing.T) {
		got, err := DecodeMatch([]byte(`{"type":"ball","x":0.1,"y":0.2,"vx":-0.3,"vy":0.4}`))
		if err != nil {
			t.Fatal(err)
		}
		ball, ok := got.(Ball)
		if !ok {
			t.Fatalf("got %T, want Ball", got)
		}
		want := BallState{X: 0.1, Y: 0.2, VX: -0.3, VY: 0.4}
		if ball.State() != want {
			t.Fatalf("state = %#v, want %#v", ball.State(), want)
		}
	})

	t.Run("nested ball", func(t *testing.T) {
		got, err := DecodeMatch([]byte(`{"type":"ball","ball":{"x":0.5,"y":0.6,"vx":0.01,"vy":0.02}}`))
		if err != nil {
			t.Fatal(err)
		}
		want := BallState{X: 0.5, Y: 0.6, VX: 0.01, VY: 0.02}
		if got.(Ball).State() != want {
			t.Fatalf("state = %#v, want %#v", got.(Ball).State(), want)
		}
	})

	t.Run("score", func(t *testing.T) {
		got, err := DecodeMatch([]byte(`{"type":"score","myScore":3,"opponentScore":1}`))
		if err != nil {
			t.Fatal(err)
		}
		if got != (Score{MyScore: 3, OpponentScore: 1}) {
			t.Fatalf("got %#v", got)
		}
	})

	t.Run("queue type on match connection", func(t *testing.T) {
		if _, err := DecodeMatch([]byte(`{"type":"join_queue"}`)); !errors.Is(err, ErrUnknownType) {
			t.Fatalf("err = %v, want ErrUnknownType", err)
		}
	})

	t.Run("malformed", func(t *testing.T) {
		if _, err := DecodeMatch([]byte(`{"type":"paddle","x":"left"}`)); !errors.Is(err, ErrMalformed) {
			t.Fatalf("err = %v, want ErrMalformed", err)
		}
	})
}

func TestEncode(t *testing.T) {
	tests := []struct {
		msg  Outbound
		want string
	}{
		{Pong{}, `{"type":"pong"}`},
		{OpponentDisconnected{}, `{"type":"opponent_disconnected"}`},
		{QueueUpdate{Count: 2}, `{"type":"queue_update","count":2}`},
		{MatchFound{MatchID: "m-1", Opponent: "bob", Role: RoleBottom}, `{"type":"match_found","matchId":"m-1","opponent":"bob","role":"bottom"}`},
		{GameStart{Opponent: "ada", Role: RoleTop}, `{"type":"game_start","opponent":"ada","role":"top"}`},
		{Paddle{X: 0.7}, `{"type":"paddle","x":0.7}`},
		{BallState{X: 1, Y: 2, VX: 3, VY: 4}, `{"type":"ball","x":1,"y":2,"vx":3,"vy":4}`},
		{ScoreUpdate{YourScore: 2, OpponentScore: 5}, `{"type":"score","yourScore":2,"opponentScore":5}`},
	}
	for _, tt := range tests {
		got, err := Encode(tt.msg)
		if err != nil {
			t.Fatalf("Encode(%T): %v", tt.msg, err)
		}
		if string(got) != tt.want {
			t.Errorf("Encode(%T) = %s, want %s", tt.msg, got, tt.want)
		}
		if !json.Valid(got) {
			t.Errorf("Encode(%T) produced invalid JSON", tt.msg)
		}
	}
}

func TestRoles(t *testing.T) {
	if RoleForPosition(0) != RoleBottom || RoleForPosition(1) != RoleTop {
		t.Fatal("first arrival must be bottom, second top")
	}
	if RoleForPosition(2) != RoleTop {
		t.Fatal("later positions must not wrap back to bottom")
	}
}
