package server

import (
	"errors"
	"testing"

	"nhooyr.io/websocket"

	"pokebattle/internal/protocol"
)

func TestHandshakeRequiresConnect(t *testing.T) {
	env := setupTestEnv(t)
	ctx, cancel := timeoutCtx(t)
	defer cancel()

	conn := wsDial(t, env.ts)
	wsSend(ctx, t, conn, protocol.MsgPlayerMove, protocol.PlayerMovePayload{MoveIndex: 0})
	if code := wsExpectError(ctx, t, conn); code != protocol.CodeProtocolVersion {
		t.Fatalf("expected PROTOCOL_VERSION, got %s", code)
	}
	_, _, err := conn.Read(ctx)
	if websocket.CloseStatus(err) != websocket.StatusPolicyViolation {
		t.Fatalf("expected policy violation close, got %v", err)
	}
}

func TestHandshakeVersionMismatch(t *testing.T) {
	env := setupTestEnv(t)
	ctx, cancel := timeoutCtx(t)
	defer cancel()

	conn := wsDial(t, env.ts)
	wsSend(ctx, t, conn, protocol.MsgConnect, protocol.ConnectPayload{Username: "ash", ProtocolVersion: 99})
	if code := wsExpectError(ctx, t, conn); code != protocol.CodeProtocolVersion {
		t.Fatalf("expected PROTOCOL_VERSION, got %s", code)
	}
	if _, _, err := conn.Read(ctx); err == nil {
		t.Fatal("expected the server to close the socket")
	}
}

func TestHeartbeatEcho(t *testing.T) {
	env := setupTestEnv(t)
	ctx, cancel := timeoutCtx(t)
	defer cancel()

	conn := wsConnect(t, env.ts, "ash")
	wsSend(ctx, t, conn, protocol.MsgHeartbeat, nil)
	wsExpect(ctx, t, conn, protocol.MsgHeartbeat, nil)
}

func TestIntentBeforeMatchmaking(t *testing.T) {
	env := setupTestEnv(t)
	ctx, cancel := timeoutCtx(t)
	defer cancel()

	conn := wsConnect(t, env.ts, "ash")
	wsSend(ctx, t, conn, protocol.MsgPlayerMove, protocol.PlayerMovePayload{MoveIndex: 0})
	if code := wsExpectError(ctx, t, conn); code != protocol.CodeGameNotFound {
		t.Fatalf("expected GAME_NOT_FOUND, got %s", code)
	}
	wsSend(ctx, t, conn, protocol.MsgForfeit, protocol.ForfeitPayload{})
	if code := wsExpectError(ctx, t, conn); code != protocol.CodeGameNotFound {
		t.Fatalf("expected GAME_NOT_FOUND, got %s", code)
	}
}

func TestMalformedFrames(t *testing.T) {
	env := setupTestEnv(t)
	ctx, cancel := timeoutCtx(t)
	defer cancel()

	conn := wsConnect(t, env.ts, "ash")
	if err := conn.Write(ctx, websocket.MessageText, []byte("{not json")); err != nil {
		t.Fatalf("ws write: %v", err)
	}
	if code := wsExpectError(ctx, t, conn); code != protocol.CodeInvalidMove {
		t.Fatalf("expected INVALID_MOVE, got %s", code)
	}

	// Server-only types are rejected but the connection stays usable.
	wsSend(ctx, t, conn, protocol.MsgBattleEnd, protocol.BattleEndPayload{})
	if code := wsExpectError(ctx, t, conn); code != protocol.CodeInvalidMove {
		t.Fatalf("expected INVALID_MOVE, got %s", code)
	}
	wsSend(ctx, t, conn, protocol.MsgPlayerMove, nil)
	if code := wsExpectError(ctx, t, conn); code != protocol.CodeInvalidMove {
		t.Fatalf("expected INVALID_MOVE for a missing payload, got %s", code)
	}
	wsSend(ctx, t, conn, protocol.MsgHeartbeat, nil)
	wsExpect(ctx, t, conn, protocol.MsgHeartbeat, nil)
}

func TestInvalidTeamRejected(t *testing.T) {
	env := setupTestEnv(t)
	ctx, cancel := timeoutCtx(t)
	defer cancel()

	conn := wsConnect(t, env.ts, "ash")
	wsSend(ctx, t, conn, protocol.MsgCreateGame, protocol.TeamPayload{PlayerName: "ash"})
	if code := wsExpectError(ctx, t, conn); code != protocol.CodeInvalidTeam {
		t.Fatalf("expected INVALID_TEAM, got %s", code)
	}
	if n := len(env.mgr.List()); n != 0 {
		t.Fatalf("expected nobody queued, got %d", n)
	}
}

func TestUsernameFallsBackAsPlayerName(t *testing.T) {
	env := setupTestEnv(t)
	ctx, cancel := timeoutCtx(t)
	defer cancel()

	ash := wsConnect(t, env.ts, "ash")
	wsSend(ctx, t, ash, protocol.MsgCreateGame, protocol.TeamPayload{Team: []protocol.CreatureSnapshot{brute("Snorlax")}})
	wsExpect(ctx, t, ash, protocol.MsgGameCreated, nil)

	gary := wsConnect(t, env.ts, "gary")
	wsSend(ctx, t, gary, protocol.MsgJoinGame, protocol.TeamPayload{Team: []protocol.CreatureSnapshot{brute("Eevee")}})
	var joined protocol.GameJoinedPayload
	wsExpect(ctx, t, gary, protocol.MsgGameJoined, &joined)
	if joined.OpponentName != "ash" {
		t.Fatalf("expected opponent ash, got %q", joined.OpponentName)
	}
}

func TestJoinUnknownGame(t *testing.T) {
	env := setupTestEnv(t)
	ctx, cancel := timeoutCtx(t)
	defer cancel()

	conn := wsConnect(t, env.ts, "gary")
	wsSend(ctx, t, conn, protocol.MsgJoinGame, protocol.TeamPayload{
		PlayerName: "gary", Team: []protocol.CreatureSnapshot{brute("Eevee")}, GameID: "nope",
	})
	if code := wsExpectError(ctx, t, conn); code != protocol.CodeGameNotFound {
		t.Fatalf("expected GAME_NOT_FOUND, got %s", code)
	}
}

func TestDisconnectMessageClosesSocket(t *testing.T) {
	env := setupTestEnv(t)
	ctx, cancel := timeoutCtx(t)
	defer cancel()

	conn := wsConnect(t, env.ts, "ash")
	wsSend(ctx, t, conn, protocol.MsgDisconnect, nil)
	_, _, err := conn.Read(ctx)
	var ce websocket.CloseError
	if !errors.As(err, &ce) || ce.Code != websocket.StatusNormalClosure {
		t.Fatalf("expected normal closure, got %v", err)
	}
}
