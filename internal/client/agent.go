// Package client is the battle client: it holds one websocket to the
// server, decodes inbound frames on a background loop and hands them to a
// Listener.
package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"pokebattle/internal/logging"
	"pokebattle/internal/protocol"
)

// ErrNotConnected is returned by sends after the connection was lost.
var ErrNotConnected = errors.New("not connected")

const writeTimeout = 5 * time.Second

// Listener receives one callback per server message. Callbacks run on the
// agent's receive goroutine, one at a time.
type Listener interface {
	OnGameCreated(protocol.GameCreatedPayload)
	OnGameJoined(protocol.GameJoinedPayload)
	OnGameStarted(protocol.BattleSnapshot)
	OnBattleStateUpdate(protocol.BattleStateUpdatePayload)
	OnTurnComplete()
	OnBattleEnd(protocol.BattleEndPayload)
	// OnError receives ERROR and GAME_ERROR replies.
	OnError(protocol.Error)
	OnHeartbeat()
	// OnConnectionLost fires exactly once; err is nil for a clean close.
	OnConnectionLost(err error)
}

// NopListener ignores every callback. Embed it to implement only a few.
type NopListener struct{}

func (NopListener) OnGameCreated(protocol.GameCreatedPayload)             {}
func (NopListener) OnGameJoined(protocol.GameJoinedPayload)               {}
func (NopListener) OnGameStarted(protocol.BattleSnapshot)                 {}
func (NopListener) OnBattleStateUpdate(protocol.BattleStateUpdatePayload) {}
func (NopListener) OnTurnComplete()                                       {}
func (NopListener) OnBattleEnd(protocol.BattleEndPayload)                 {}
func (NopListener) OnError(protocol.Error)                                {}
func (NopListener) OnHeartbeat()                                          {}
func (NopListener) OnConnectionLost(error)                                {}

// Agent is a connected battle client.
type Agent struct {
	conn     *websocket.Conn
	listener Listener
	log      *zap.Logger

	writeMu   sync.Mutex
	connected atomic.Bool
	lost      sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

// Dial connects to the battle socket at url, performs the CONNECT
// handshake as username and starts the receive loop.
func Dial(ctx context.Context, url, username string, l Listener, log *zap.Logger) (*Agent, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	readCtx, cancel := context.WithCancel(context.Background())
	a := &Agent{
		conn:     conn,
		listener: l,
		log:      log.With(logging.PlayerName(username)),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	a.connected.Store(true)
	if err := a.send(protocol.MsgConnect, protocol.ConnectPayload{Username: username, ProtocolVersion: protocol.Version}); err != nil {
		cancel()
		conn.Close(websocket.StatusInternalError, "handshake failed")
		return nil, fmt.Errorf("handshake: %w", err)
	}
	go a.receiveLoop(readCtx)
	return a, nil
}

// Connected reports whether the connection is still up.
func (a *Agent) Connected() bool {
	return a.connected.Load()
}

func (a *Agent) receiveLoop(ctx context.Context) {
	defer close(a.done)
	for {
		_, data, err := a.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				err = nil
			}
			a.connectionLost(err)
			return
		}
		msg, err := protocol.Decode(data)
		if err != nil {
			a.log.Warn("undecodable frame", zap.Error(err))
			continue
		}
		if msg.Type == protocol.MsgDisconnect {
			a.connectionLost(nil)
			return
		}
		a.dispatch(msg)
	}
}

func (a *Agent) dispatch(msg protocol.Message) {
	var err error
	switch msg.Type {
	case protocol.MsgGameCreated:
		var p protocol.GameCreatedPayload
		if err = msg.Bind(&p); err == nil {
			a.listener.OnGameCreated(p)
		}
	case protocol.MsgGameJoined:
		var p protocol.GameJoinedPayload
		if err = msg.Bind(&p); err == nil {
			a.listener.OnGameJoined(p)
		}
	case protocol.MsgGameStarted:
		var p protocol.GameStartedPayload
		if err = msg.Bind(&p); err == nil {
			a.listener.OnGameStarted(p.State)
		}
	case protocol.MsgBattleStateUpdate:
		var p protocol.BattleStateUpdatePayload
		if err = msg.Bind(&p); err == nil {
			a.listener.OnBattleStateUpdate(p)
		}
	case protocol.MsgTurnComplete:
		a.listener.OnTurnComplete()
	case protocol.MsgBattleEnd:
		var p protocol.BattleEndPayload
		if err = msg.Bind(&p); err == nil {
			a.listener.OnBattleEnd(p)
		}
	case protocol.MsgError, protocol.MsgGameError:
		var p protocol.Error
		if err = msg.Bind(&p); err == nil {
			a.listener.OnError(p)
		}
	case protocol.MsgHeartbeat:
		a.listener.OnHeartbeat()
	default:
		a.log.Warn("unexpected message from server", logging.MsgType(string(msg.Type)))
	}
	if err != nil {
		a.log.Warn("bad payload from server", logging.MsgType(string(msg.Type)), zap.Error(err))
	}
}

func (a *Agent) connectionLost(err error) {
	a.lost.Do(func() {
		a.connected.Store(false)
		if err != nil {
			a.log.Info("connection lost", zap.Error(err))
		}
		a.listener.OnConnectionLost(err)
	})
}

func (a *Agent) send(t protocol.Type, payload any) error {
	if !a.connected.Load() {
		a.log.Warn("send on closed connection", logging.MsgType(string(t)))
		return ErrNotConnected
	}
	data, err := protocol.Encode(t, payload)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	if err := a.conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("send %s: %w", t, err)
	}
	return nil
}

// CreateGame enters matchmaking with team.
func (a *Agent) CreateGame(playerName string, team []protocol.CreatureSnapshot) error {
	return a.send(protocol.MsgCreateGame, protocol.TeamPayload{PlayerName: playerName, Team: team})
}

// JoinGame enters matchmaking with team. A non-empty gameID targets that
// waiting game only.
func (a *Agent) JoinGame(playerName string, team []protocol.CreatureSnapshot, gameID string) error {
	return a.send(protocol.MsgJoinGame, protocol.TeamPayload{PlayerName: playerName, Team: team, GameID: gameID})
}

// SendMove uses the active creature's moveIndex-th move.
func (a *Agent) SendMove(moveIndex int) error {
	return a.send(protocol.MsgPlayerMove, protocol.PlayerMovePayload{MoveIndex: moveIndex})
}

// SendSwitchPokemon makes team member index active.
func (a *Agent) SendSwitchPokemon(index int) error {
	return a.send(protocol.MsgSwitchPokemon, protocol.SwitchPokemonPayload{PokemonIndex: index})
}

// SendForfeit concedes the current battle.
func (a *Agent) SendForfeit(reason string) error {
	return a.send(protocol.MsgForfeit, protocol.ForfeitPayload{Reason: reason})
}

// Heartbeat asks the server for an echo.
func (a *Agent) Heartbeat() error {
	return a.send(protocol.MsgHeartbeat, nil)
}

// Close says DISCONNECT, closes the socket and waits for the receive loop.
func (a *Agent) Close() {
	if a.connected.Load() {
		a.send(protocol.MsgDisconnect, nil)
	}
	if err := a.conn.Close(websocket.StatusNormalClosure, ""); err != nil {
		a.log.Debug("close websocket", zap.Error(err))
	}
	a.cancel()
	<-a.done
	a.connectionLost(nil)
}
