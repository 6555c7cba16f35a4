package protocol

import "fmt"

// ErrorCode classifies a rejected intent or setup failure.
type ErrorCode string

const (
	CodeGameNotFound    ErrorCode = "GAME_NOT_FOUND"
	CodeGameFull        ErrorCode = "GAME_FULL"
	CodeInvalidMove     ErrorCode = "INVALID_MOVE"
	CodeNotYourTurn     ErrorCode = "NOT_YOUR_TURN"
	CodeConnectionLost  ErrorCode = "CONNECTION_LOST"
	CodeProtocolVersion ErrorCode = "PROTOCOL_VERSION"
	CodeInvalidTeam     ErrorCode = "INVALID_TEAM"
)

// Error is both the ERROR/GAME_ERROR payload and a Go error.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// Errorf builds an *Error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
