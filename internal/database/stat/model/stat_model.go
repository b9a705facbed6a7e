package model

import (
	"time"

	"github.com/google/uuid"
)

// ResultGameOver marks a game that finished normally with a winner.
// Anything else (an emptied lobby, an expiry sweep, shutdown) is
// excluded from the replayed aggregates.
const ResultGameOver = "game-over"

func NewFinishedGame(players int, result string) FinishedGame {
	return FinishedGame{ID: uuid.New(), Players: players, Result: result, CreatedAt: time.Now()}
}

// FinishedGame is one completed room's outcome record, appended once
// when the room is destroyed.
type FinishedGame struct {
	ID      uuid.UUID `json:"-"`
	Players int       `json:"players"`
	Result  string    `json:"result"`

	DudoSuccess  int `json:"dudo-success"`
	DudoFail     int `json:"dudo-fail"`
	CalzaSuccess int `json:"calza-success"`
	CalzaFail    int `json:"calza-fail"`
	Round        int `json:"round"`

	MaxDice            int  `json:"max-dice"`
	MaxDiceValue       int  `json:"max-dice-value"`
	AllowCalza         bool `json:"allow-calza"`
	LosersSeeDice      bool `json:"losers-see-dice"`
	ShowResultsTable   bool `json:"show-results-table"`
	RandomMaxDiceValue bool `json:"random-max-dice-value"`

	StartTime  string    `json:"start-time"`
	Duration   int64     `json:"duration"`
	DiceTotals []int     `json:"dice-totals"`
	CreatedAt  time.Time `json:"createdAt"`
}
