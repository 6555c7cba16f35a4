// Package protocol defines the messages exchanged between battle clients
// and the server. Every frame is one JSON envelope.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Version is the protocol version clients must announce in CONNECT.
const Version = 1

// Type tags a message.
type Type string

const (
	// client → server
	MsgConnect       Type = "CONNECT"
	MsgCreateGame    Type = "CREATE_GAME"
	MsgJoinGame      Type = "JOIN_GAME"
	MsgPlayerMove    Type = "PLAYER_MOVE"
	MsgSwitchPokemon Type = "SWITCH_POKEMON"
	MsgForfeit       Type = "FORFEIT"

	// server → client
	MsgGameCreated       Type = "GAME_CREATED"
	MsgGameJoined        Type = "GAME_JOINED"
	MsgGameStarted       Type = "GAME_STARTED"
	MsgBattleStateUpdate Type = "BATTLE_STATE_UPDATE"
	MsgTurnComplete      Type = "TURN_COMPLETE"
	MsgBattleEnd         Type = "BATTLE_END"
	MsgError             Type = "ERROR"
	MsgGameError         Type = "GAME_ERROR"

	// both directions
	MsgDisconnect Type = "DISCONNECT"
	MsgHeartbeat  Type = "HEARTBEAT"
)

var knownTypes = map[Type]bool{
	MsgConnect: true, MsgCreateGame: true, MsgJoinGame: true, MsgPlayerMove: true,
	MsgSwitchPokemon: true, MsgForfeit: true, MsgGameCreated: true, MsgGameJoined: true,
	MsgGameStarted: true, MsgBattleStateUpdate: true, MsgTurnComplete: true,
	MsgBattleEnd: true, MsgError: true, MsgGameError: true, MsgDisconnect: true,
	MsgHeartbeat: true,
}

// Known reports whether t belongs to the protocol.
func (t Type) Known() bool { return knownTypes[t] }

// ErrUnknownType is returned when decoding a frame with an unknown tag.
var ErrUnknownType = errors.New("unknown message type")

// Message is the envelope for every frame.
type Message struct {
	Type      Type            `json:"type"`
	Timestamp int64           `json:"timestamp"` // unix milliseconds
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// New builds a message stamped with the current time. A nil payload
// produces a message without one.
func New(t Type, payload any) (Message, error) {
	msg := Message{Type: t, Timestamp: time.Now().UnixMilli()}
	if payload == nil {
		return msg, nil
	}
	p, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	msg.Payload = p
	return msg, nil
}

// Encode builds a message and serializes it to one frame.
func Encode(t Type, payload any) ([]byte, error) {
	msg, err := New(t, payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(msg)
}

// Decode parses one frame and rejects unknown types.
func Decode(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("decode frame: %w", err)
	}
	if !msg.Type.Known() {
		return msg, fmt.Errorf("%w: %q", ErrUnknownType, msg.Type)
	}
	return msg, nil
}

// Bind unmarshals the payload into v.
func (m Message) Bind(v any) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("%s: missing payload", m.Type)
	}
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("%s: invalid payload: %w", m.Type, err)
	}
	return nil
}
