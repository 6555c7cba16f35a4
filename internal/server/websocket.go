package server

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"pokebattle/internal/logging"
	"pokebattle/internal/protocol"
	"pokebattle/internal/session"
)

// flushTimeout bounds how long a closing connection waits for its writer
// to drain queued frames.
const flushTimeout = 2 * time.Second

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // any origin
	})
	if err != nil {
		s.log.Warn("websocket accept", logging.RemoteAddr(r.RemoteAddr), zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx := r.Context()
	log := s.log.With(logging.RemoteAddr(r.RemoteAddr))

	// First message must be CONNECT with a matching protocol version.
	hello, perr := readHandshake(ctx, conn)
	if perr != nil {
		log.Warn("handshake rejected", logging.ErrorCode(string(perr.Code)), zap.String("reason", perr.Message))
		if data, err := protocol.Encode(protocol.MsgError, perr); err == nil {
			conn.Write(ctx, websocket.MessageText, data)
		}
		conn.Close(websocket.StatusPolicyViolation, perr.Message)
		return
	}

	p := session.NewPlayer(uuid.NewString(), s.sendBuffer)
	log = log.With(logging.PlayerID(p.ID), logging.PlayerName(hello.Username))
	log.Info("player connected")

	// Writer goroutine: drain the outbox onto the socket in order.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range p.Outbox() {
			if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
				log.Debug("websocket write", zap.Error(err))
				return
			}
		}
		if p.Evicted() {
			log.Warn("client too slow, closing connection")
			conn.Close(websocket.StatusPolicyViolation, "outbound queue overflow")
		}
	}()

	// Reader loop: one intent at a time, in arrival order.
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			log.Info("player connection closed", zap.Error(err))
			break
		}
		msg, err := protocol.Decode(data)
		if err != nil {
			s.reply(p, protocol.MsgError, protocol.Errorf(protocol.CodeInvalidMove, "malformed message: %v", err))
			continue
		}
		log.Debug("inbound message", logging.MsgType(string(msg.Type)))
		if !s.dispatch(p, hello.Username, msg) {
			log.Info("player disconnected")
			break
		}
	}

	s.manager.HandleDisconnect(p)
	p.Close()
	select {
	case <-done:
	case <-time.After(flushTimeout):
	}
}

func readHandshake(ctx context.Context, conn *websocket.Conn) (protocol.ConnectPayload, *protocol.Error) {
	var hello protocol.ConnectPayload
	_, data, err := conn.Read(ctx)
	if err != nil {
		return hello, protocol.Errorf(protocol.CodeConnectionLost, "%v", err)
	}
	msg, err := protocol.Decode(data)
	if err != nil || msg.Type != protocol.MsgConnect {
		return hello, protocol.Errorf(protocol.CodeProtocolVersion, "first message must be %s", protocol.MsgConnect)
	}
	if err := msg.Bind(&hello); err != nil {
		return hello, protocol.Errorf(protocol.CodeProtocolVersion, "invalid %s payload", protocol.MsgConnect)
	}
	if hello.ProtocolVersion != protocol.Version {
		return hello, protocol.Errorf(protocol.CodeProtocolVersion,
			"protocol version %d not supported, server speaks %d", hello.ProtocolVersion, protocol.Version)
	}
	return hello, nil
}

// dispatch routes one inbound message. It returns false when the client
// asked to disconnect. Rejections are already answered by the session
// manager, so its errors are not handled here.
func (s *Server) dispatch(p *session.Player, username string, msg protocol.Message) bool {
	switch msg.Type {
	case protocol.MsgCreateGame, protocol.MsgJoinGame:
		var req protocol.TeamPayload
		if err := msg.Bind(&req); err != nil {
			s.reply(p, protocol.MsgError, protocol.Errorf(protocol.CodeInvalidTeam, "invalid %s payload", msg.Type))
			return true
		}
		if msg.Type == protocol.MsgCreateGame {
			req.GameID = ""
		}
		if req.PlayerName == "" {
			req.PlayerName = username
		}
		s.manager.MatchmakePlayer(p, req)

	case protocol.MsgPlayerMove:
		var mv protocol.PlayerMovePayload
		if err := msg.Bind(&mv); err != nil {
			s.reply(p, protocol.MsgError, protocol.Errorf(protocol.CodeInvalidMove, "invalid %s payload", msg.Type))
			return true
		}
		s.manager.ProcessMove(p, mv.MoveIndex)

	case protocol.MsgSwitchPokemon:
		var sw protocol.SwitchPokemonPayload
		if err := msg.Bind(&sw); err != nil {
			s.reply(p, protocol.MsgError, protocol.Errorf(protocol.CodeInvalidMove, "invalid %s payload", msg.Type))
			return true
		}
		s.manager.ProcessSwitchPokemon(p, sw.PokemonIndex)

	case protocol.MsgForfeit:
		var f protocol.ForfeitPayload
		msg.Bind(&f) // the reason is optional
		s.manager.ProcessForfeit(p, f.Reason)

	case protocol.MsgHeartbeat:
		s.reply(p, protocol.MsgHeartbeat, nil)

	case protocol.MsgDisconnect:
		return false

	default:
		s.reply(p, protocol.MsgError, protocol.Errorf(protocol.CodeInvalidMove, "unexpected message type %s", msg.Type))
	}
	return true
}

func (s *Server) reply(p *session.Player, t protocol.Type, payload any) {
	data, err := protocol.Encode(t, payload)
	if err != nil {
		s.log.Error("encode message", logging.MsgType(string(t)), zap.Error(err))
		return
	}
	if !p.Deliver(data) {
		s.log.Warn("dropped outbound message", logging.PlayerID(p.ID), logging.MsgType(string(t)))
	}
}
