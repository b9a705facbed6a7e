// Package model defines the durable document shape of an in-progress
// game. Field names match the wire/document names the web client
// already understands.
package model

type Options struct {
	MaxDice            int  `json:"max-dice"`
	MaxDiceValue       int  `json:"max-dice-value"`
	AllowCalza         bool `json:"allow-calza"`
	RollDiceAtStart    bool `json:"roll-dice-at-start"`
	LosersSeeDice      bool `json:"losers-see-dice"`
	ShowResultsTable   bool `json:"show-results-table"`
	RandomMaxDiceValue bool `json:"random-max-dice-value"`
}

type Player struct {
	UUID       string `json:"uuid"`
	Name       string `json:"name"`
	State      int    `json:"state"`
	DiceCount  int    `json:"dice-count"`
	Dice       []int  `json:"dice"`
	ExPalifico bool   `json:"ex-palifico"`
}

type Game struct {
	UUID          string `json:"uuid"`
	PlayerCount   int    `json:"player-count"`
	CurrentCount  int    `json:"current-count"`
	State         int    `json:"state"`
	StartTime     int64  `json:"start-time"`
	LastEvent     int64  `json:"last-event"`
	Round         int    `json:"round"`
	DudoSuccess   int    `json:"dudo-success"`
	DudoFail      int    `json:"dudo-fail"`
	CalzaSuccess  int    `json:"calza-success"`
	CalzaFail     int    `json:"calza-fail"`
	Host          string `json:"host"`
	Starter       string `json:"starter"`
	DudoCaller    string `json:"dudo-caller"`
	CalzaCaller   string `json:"calza-caller"`
	RoundLoser    string `json:"round-loser"`
	RoundWinner   string `json:"round-winner"`
	PalificoRound bool   `json:"palifico-round"`
	FaceBound     int    `json:"face-bound"`

	Options     Options  `json:"options"`
	Players     []Player `json:"players"`
	LostPlayers []Player `json:"lost-players"`
	DiceTotals  []int    `json:"dice-totals"`
}
