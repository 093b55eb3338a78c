package apigateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cheildo/pong-lobby/internal/auth"
	"github.com/cheildo/pong-lobby/internal/events"
	"github.com/cheildo/pong-lobby/internal/matchmaking"
	"github.com/cheildo/pong-lobby/internal/pkg/wsconn"
	"github.com/cheildo/pong-lobby/internal/relay"
)

type testServer struct {
	*httptest.Server
	resolver *auth.Resolver
}

func newTestServer(t *testing.T, authCfg auth.Config) *testServer {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	resolver := auth.NewResolver(authCfg)
	conns := wsconn.NewConnectionManager()
	peerCfg := wsconn.DefaultConfig()

	queue := matchmaking.NewService(matchmaking.NewPool(), events.Discard)
	queue.Start(ctx)
	matches := relay.NewService(ctx, relay.Config{}, events.Discard)

	router := NewRouter(Handlers{
		Queue: matchmaking.NewWebsocketHandler(queue, resolver, peerCfg, conns),
		Match: relay.NewWebsocketHandler(matches, resolver, peerCfg, conns),
		Guest: auth.NewHTTPHandler(resolver).HandleGuest,
	}, DefaultCORSConfig())

	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		conns.CloseAll()
		srv.Close()
		matches.Stop()
		cancel()
	})
	return &testServer{Server: srv, resolver: resolver}
}

func (s *testServer) dial(t *testing.T, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.URL, "http") + path
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("dial %s: %v (status %d)", path, err, status)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, frame string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		t.Fatalf("write %s: %v", frame, err)
	}
}

func read(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg map[string]any
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("frame %s is not JSON: %v", data, err)
	}
	return msg
}

func expect(t *testing.T, conn *websocket.Conn, typ string) map[string]any {
	t.Helper()
	msg := read(t, conn)
	if msg["type"] != typ {
		t.Fatalf("got %v, want type %q", msg, typ)
	}
	return msg
}

func TestLobbyToMatchScenario(t *testing.T) {
	srv := newTestServer(t, auth.Config{})

	alice := srv.dial(t, "/ws/pong-lobby")
	send(t, alice, `{"type":"join_queue","nickname":"alice"}`)
	if msg := expect(t, alice, "queue_update"); msg["count"] != float64(1) {
		t.Fatalf("first update = %v", msg)
	}

	bob := srv.dial(t, "/ws/pong-lobby")
	send(t, bob, `{"type":"join_queue","nickname":"bob"}`)

	if msg := expect(t, alice, "queue_update"); msg["count"] != float64(2) {
		t.Fatalf("alice second update = %v", msg)
	}
	aliceFound := expect(t, alice, "match_found")
	if msg := expect(t, bob, "queue_update"); msg["count"] != float64(2) {
		t.Fatalf("bob update = %v", msg)
	}
	bobFound := expect(t, bob, "match_found")

	matchID, _ := aliceFound["matchId"].(string)
	if matchID == "" || bobFound["matchId"] != matchID {
		t.Fatalf("match ids differ: %v vs %v", aliceFound, bobFound)
	}
	if aliceFound["role"] != "bottom" || bobFound["role"] != "top" {
		t.Fatalf("roles: alice %v, bob %v", aliceFound["role"], bobFound["role"])
	}
	if aliceFound["opponent"] != "bob" || bobFound["opponent"] != "alice" {
		t.Fatalf("opponents: alice %v, bob %v", aliceFound["opponent"], bobFound["opponent"])
	}

	aliceGame := srv.dial(t, "/ws/match/"+matchID)
	bobGame := srv.dial(t, "/ws/match/"+matchID)
	send(t, aliceGame, `{"type":"join","nickname":"alice"}`)
	send(t, bobGame, `{"type":"join","nickname":"bob"}`)

	aliceStart := expect(t, aliceGame, "game_start")
	bobStart := expect(t, bobGame, "game_start")
	if aliceStart["opponent"] != "bob" || bobStart["opponent"] != "alice" {
		t.Fatalf("game_start opponents: %v / %v", aliceStart, bobStart)
	}
	if aliceStart["role"] == bobStart["role"] {
		t.Fatalf("both seats got role %v", aliceStart["role"])
	}

	send(t, aliceGame, `{"type":"paddle","x":0.7}`)
	if msg := expect(t, bobGame, "paddle"); msg["x"] != 0.7 {
		t.Fatalf("relayed paddle = %v", msg)
	}

	send(t, bobGame, `{"type":"ball","x":0.4,"y":0.6,"vx":0.01,"vy":-0.02}`)
	// Had alice's paddle come back to her, it would arrive before this.
	ball := expect(t, aliceGame, "ball")
	if ball["x"] != 0.4 || ball["y"] != 0.6 || ball["vx"] != 0.01 || ball["vy"] != -0.02 {
		t.Fatalf("relayed ball = %v", ball)
	}

	bobGame.Close()
	expect(t, aliceGame, "opponent_disconnected")
}

func TestMalformedFramesKeepConnectionOpen(t *testing.T) {
	srv := newTestServer(t, auth.Config{})
	conn := srv.dial(t, "/ws/pong-lobby")

	send(t, conn, `not json`)
	send(t, conn, `{"nickname":"no type"}`)
	send(t, conn, `{"type":"teleport"}`)
	send(t, conn, `{"type":"ping"}`)
	expect(t, conn, "pong")
}

func TestLongNicknameKeepsConnectionOpen(t *testing.T) {
	srv := newTestServer(t, auth.Config{})
	conn := srv.dial(t, "/ws/pong-lobby")

	send(t, conn, `{"type":"join_queue","nickname":"`+strings.Repeat("n", 5000)+`"}`)
	if msg := expect(t, conn, "queue_update"); msg["count"] != float64(1) {
		t.Fatalf("update = %v", msg)
	}
	send(t, conn, `{"type":"ping"}`)
	expect(t, conn, "pong")
}

func TestTokenIdentity(t *testing.T) {
	srv := newTestServer(t, auth.Config{JWTSecret: "test-secret", RequireToken: true})

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/pong-lobby"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil || resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("tokenless dial: err %v, resp %v", err, resp)
	}

	tok, err := srv.resolver.IssueToken("p-1", "ada")
	if err != nil {
		t.Fatal(err)
	}
	first := srv.dial(t, "/ws/pong-lobby?token="+tok)
	second := srv.dial(t, "/ws/pong-lobby?token="+tok)

	send(t, first, `{"type":"join_queue","nickname":"ada"}`)
	expect(t, first, "queue_update")
	// Same identity on a second connection: the join is a no-op.
	send(t, second, `{"type":"join_queue","nickname":"ada"}`)
	send(t, second, `{"type":"ping"}`)
	expect(t, second, "pong")
}

func TestHTTPRoutes(t *testing.T) {
	srv := newTestServer(t, auth.Config{JWTSecret: "test-secret"})

	for _, path := range []string{"/", "/health"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK || body["status"] != "ok" || body["service"] != ServiceName {
			t.Fatalf("%s: status %d, body %v", path, resp.StatusCode, body)
		}
	}

	for path, want := range map[string]int{
		"/ws/pong-lobby":    http.StatusUpgradeRequired,
		"/ws/match/abc-123": http.StatusUpgradeRequired,
		"/ws/match/bad_id!": http.StatusNotFound,
		"/nowhere":          http.StatusNotFound,
		"/metrics":          http.StatusOK,
	} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != want {
			t.Errorf("GET %s = %d, want %d", path, resp.StatusCode, want)
		}
	}

	resp, err := http.Post(srv.URL+"/api/v1/guest", "application/json", strings.NewReader(`{"nickname":"ada"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("guest status = %d", resp.StatusCode)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, auth.Config{})

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/v1/guest", nil)
	req.Header.Set("Origin", "https://example.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "content-type")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if resp.StatusCode >= 300 {
		t.Fatalf("preflight status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("Access-Control-Allow-Origin = %q", got)
	}
}
