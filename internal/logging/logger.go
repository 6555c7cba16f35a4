// Package logging builds the process logger and names the fields every
// component logs with.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	FieldAddr       = "addr"
	FieldGameID     = "game_id"
	FieldPlayerID   = "player_id"
	FieldPlayerName = "player_name"
	FieldRemoteAddr = "remote_addr"
	FieldMsgType    = "msg_type"
	FieldErrorCode  = "error_code"
	FieldOutcome    = "outcome"
)

// New builds a logger at level ("debug", "info", ...) writing format
// "json" or "console" to stderr.
func New(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	cfg := zap.NewProductionConfig()
	switch format {
	case "", "json":
	case "console":
		cfg.Encoding = "console"
		cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

func GameID(id string) zap.Field    { return zap.String(FieldGameID, id) }
func PlayerID(id string) zap.Field  { return zap.String(FieldPlayerID, id) }
func PlayerName(n string) zap.Field { return zap.String(FieldPlayerName, n) }
func RemoteAddr(a string) zap.Field { return zap.String(FieldRemoteAddr, a) }
func MsgType(t string) zap.Field    { return zap.String(FieldMsgType, t) }
func ErrorCode(c string) zap.Field  { return zap.String(FieldErrorCode, c) }
func Outcome(o string) zap.Field    { return zap.String(FieldOutcome, o) }
