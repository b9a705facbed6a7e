package room

// GameState values are part of the durable document format and of the
// "state" event payload, so they keep their historical numbering.
type GameState int

const (
	GameLobby          GameState = 0
	GamePlayingRound   GameState = 1
	GameSendingResults GameState = 4
	GameAwaitingLoser  GameState = 5
	GameRoundOver      GameState = 6
	GameGameOver       GameState = 7
	GamePreRoll        GameState = 8
	GamePreRollOver    GameState = 9
)

func (s GameState) valid() bool {
	switch s {
	case GameLobby, GamePlayingRound, GameSendingResults, GameAwaitingLoser,
		GameRoundOver, GameGameOver, GamePreRoll, GamePreRollOver:
		return true
	}
	return false
}

func (s GameState) String() string {
	switch s {
	case GameLobby:
		return "lobby"
	case GamePlayingRound:
		return "playing-round"
	case GameSendingResults:
		return "sending-results"
	case GameAwaitingLoser:
		return "awaiting-loser"
	case GameRoundOver:
		return "round-over"
	case GameGameOver:
		return "game-over"
	case GamePreRoll:
		return "pre-roll"
	case GamePreRollOver:
		return "pre-roll-over"
	}
	return "unknown"
}

type PlayerState int

const (
	PlayerLobby          PlayerState = 0
	PlayerAwaitingDice   PlayerState = 1
	PlayerHaveDice       PlayerState = 2
	PlayerDudoCandidate  PlayerState = 3
	PlayerCalzaCandidate PlayerState = 4
	PlayerAwaitingLoser  PlayerState = 5
	PlayerAwaitingRound  PlayerState = 6
	PlayerSpectator      PlayerState = 7
	PlayerPreRoll        PlayerState = 8
	PlayerPreRollSent    PlayerState = 9
	PlayerPreRollLost    PlayerState = 10
)

func (s PlayerState) valid() bool {
	return s >= PlayerLobby && s <= PlayerPreRollLost
}
