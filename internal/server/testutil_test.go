package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"pokebattle/internal/battle"
	"pokebattle/internal/protocol"
	"pokebattle/internal/session"
	"pokebattle/internal/storage"
)

// --- Test environment ---

type testEnv struct {
	ts    *httptest.Server
	mgr   *session.Manager
	store *storage.Store
}

// fixedRand always hits, always picks the first option and rolls no damage
// variance, so battles over the websocket are deterministic.
type fixedRand struct{}

func (fixedRand) Intn(int) int     { return 0 }
func (fixedRand) Float64() float64 { return 1 }

const testRoster = `
- {id: 25, name: Pikachu, type1: electric, stats: {hp: 35, attack: 55, defense: 40, sp_attack: 50, sp_defense: 50, speed: 90}}
- {id: 95, name: Onix, type1: rock, type2: ground, stats: {hp: 35, attack: 45, defense: 160, sp_attack: 30, sp_defense: 45, speed: 70}}
- {id: 143, name: Snorlax, type1: normal, stats: {hp: 160, attack: 110, defense: 65, sp_attack: 65, sp_defense: 110, speed: 30}}
- {id: 157, name: Typhlosion, type1: fire, generation: 2, stats: {hp: 78, attack: 84, defense: 78, sp_attack: 109, sp_defense: 85, speed: 100}}
`

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if _, err := store.SeedIfEmpty(strings.NewReader(testRoster)); err != nil {
		t.Fatalf("seed roster: %v", err)
	}

	catalog := battle.DefaultCatalog()
	mgr := session.NewManager(battle.NewService(catalog, fixedRand{}), zap.NewNop())
	srv := New(mgr, catalog, store, zap.NewNop(), 64)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, mgr: mgr, store: store}
}

// --- Context helpers ---

func timeoutCtx(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithTimeout(context.Background(), 5*time.Second)
}

// --- REST helpers ---

func getJSON(t *testing.T, url string, wantStatus int, v any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		t.Fatalf("GET %s: expected %d, got %d", url, wantStatus, resp.StatusCode)
	}
	if v == nil {
		return
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
}

// --- WebSocket helpers ---

func wsURL(ts *httptest.Server) string {
	return strings.Replace(ts.URL, "http://", "ws://", 1) + "/ws"
}

// wsDial opens a socket without the handshake. The connection is closed on
// test cleanup.
func wsDial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := timeoutCtx(t)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, wsURL(ts), nil)
	if err != nil {
		t.Fatalf("ws dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

// wsConnect dials and completes the CONNECT handshake as username.
func wsConnect(t *testing.T, ts *httptest.Server, username string) *websocket.Conn {
	t.Helper()
	conn := wsDial(t, ts)
	ctx, cancel := timeoutCtx(t)
	defer cancel()
	wsSend(ctx, t, conn, protocol.MsgConnect, protocol.ConnectPayload{Username: username, ProtocolVersion: protocol.Version})
	return conn
}

// wsSend encodes and writes one message, calling t.Fatal on error.
func wsSend(ctx context.Context, t *testing.T, conn *websocket.Conn, typ protocol.Type, payload any) {
	t.Helper()
	data, err := protocol.Encode(typ, payload)
	if err != nil {
		t.Fatalf("encode %s: %v", typ, err)
	}
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		t.Fatalf("ws write: %v", err)
	}
}

// wsRead reads and decodes one message, calling t.Fatal on error.
func wsRead(ctx context.Context, t *testing.T, conn *websocket.Conn) protocol.Message {
	t.Helper()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("ws read: %v", err)
	}
	msg, err := protocol.Decode(data)
	if err != nil {
		t.Fatalf("decode ws message: %v", err)
	}
	return msg
}

// wsExpect reads one message, fails unless it has type typ, and binds its
// payload into v when v is non-nil.
func wsExpect(ctx context.Context, t *testing.T, conn *websocket.Conn, typ protocol.Type, v any) protocol.Message {
	t.Helper()
	msg := wsRead(ctx, t, conn)
	if msg.Type != typ {
		t.Fatalf("expected %s, got %s: %s", typ, msg.Type, string(msg.Payload))
	}
	if v != nil {
		if err := msg.Bind(v); err != nil {
			t.Fatalf("bind %s: %v", typ, err)
		}
	}
	return msg
}

// wsExpectError reads an ERROR message and returns its code.
func wsExpectError(ctx context.Context, t *testing.T, conn *websocket.Conn) protocol.ErrorCode {
	t.Helper()
	var e protocol.Error
	wsExpect(ctx, t, conn, protocol.MsgError, &e)
	return e.Code
}

// --- Battle helpers ---

func creatureSnap(name string, hp, power int) protocol.CreatureSnapshot {
	return protocol.CreatureSnapshot{
		ID: hp*1000 + power, Name: name, Type1: "normal",
		Stats: battle.Stats{HP: hp, Attack: power, Defense: power, SpAttack: power, SpDefense: power, Speed: 50},
	}
}

func brute(name string) protocol.CreatureSnapshot { return creatureSnap(name, 200, 200) }
func glass(name string) protocol.CreatureSnapshot { return creatureSnap(name, 1, 1) }

// startBattle connects ash and gary, pairs them and drains the opening
// frames. ash is player one and holds the first turn.
func startBattle(t *testing.T, env *testEnv, ashTeam, garyTeam []protocol.CreatureSnapshot) (ash, gary *websocket.Conn, gameID string) {
	t.Helper()
	ctx, cancel := timeoutCtx(t)
	defer cancel()

	ash = wsConnect(t, env.ts, "ash")
	wsSend(ctx, t, ash, protocol.MsgCreateGame, protocol.TeamPayload{PlayerName: "ash", Team: ashTeam})
	var created protocol.GameCreatedPayload
	wsExpect(ctx, t, ash, protocol.MsgGameCreated, &created)

	gary = wsConnect(t, env.ts, "gary")
	wsSend(ctx, t, gary, protocol.MsgJoinGame, protocol.TeamPayload{PlayerName: "gary", Team: garyTeam})
	for _, conn := range []*websocket.Conn{ash, gary} {
		wsExpect(ctx, t, conn, protocol.MsgGameJoined, nil)
		wsExpect(ctx, t, conn, protocol.MsgGameStarted, nil)
	}
	return ash, gary, created.GameID
}
