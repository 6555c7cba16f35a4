package protocol

// ConnectPayload opens a connection.
type ConnectPayload struct {
	Username        string `json:"username"`
	ProtocolVersion int    `json:"protocolVersion"`
}

// TeamPayload is carried by CREATE_GAME and JOIN_GAME. GameID is optional
// on JOIN_GAME and targets a specific waiting game.
type TeamPayload struct {
	PlayerName string             `json:"playerName"`
	Team       []CreatureSnapshot `json:"team"`
	GameID     string             `json:"gameId,omitempty"`
}

// GameCreatedPayload acknowledges that the sender is queued.
type GameCreatedPayload struct {
	GameID      string `json:"gameId"`
	IsPlayerOne bool   `json:"isPlayerOne"`
	Status      string `json:"status"`
}

// StatusWaiting is the GAME_CREATED status while no opponent is present.
const StatusWaiting = "WAITING"

// GameJoinedPayload announces the pairing.
type GameJoinedPayload struct {
	GameID       string `json:"gameId"`
	IsPlayerOne  bool   `json:"isPlayerOne"`
	OpponentName string `json:"opponentName"`
}

// GameStartedPayload carries the opening snapshot.
type GameStartedPayload struct {
	State BattleSnapshot `json:"state"`
}

// PlayerMovePayload selects one of the active creature's moves (0-3).
type PlayerMovePayload struct {
	MoveIndex int `json:"moveIndex"`
}

// SwitchPokemonPayload selects a team member (0-4).
type SwitchPokemonPayload struct {
	PokemonIndex int `json:"pokemonIndex"`
}

// ForfeitPayload concedes the match.
type ForfeitPayload struct {
	Reason string `json:"reason,omitempty"`
}

// BattleStateUpdatePayload reports the result of an intent.
type BattleStateUpdatePayload struct {
	State         BattleSnapshot `json:"state"`
	ActionMessage string         `json:"actionMessage"`
}

// BattleEndPayload closes the match.
type BattleEndPayload struct {
	WinnerName string `json:"winnerName"`
	LoserName  string `json:"loserName"`
	Outcome    string `json:"outcomeType"`
}
