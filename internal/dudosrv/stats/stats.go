// Package stats aggregates finished-game records into the public
// statistics document. The aggregator is rebuilt from the durable
// records at startup and updated incrementally as rooms finish.
package stats

import (
	"fmt"
	"math"

	"github.com/dudo-games/dudo/internal/database/stat/model"
	"github.com/dudo-games/dudo/internal/dudosrv/room"
)

// minDuration filters out games abandoned moments after starting;
// they would swamp the aggregates with noise.
const minDuration = 100

type Aggregator struct {
	games int

	playerCounts [100]int
	diceCounts   [room.MaxDice + 1]int
	diceValues   [room.MaxDiceValue + 1]int
	thrownValues [room.MaxDiceValue]int64

	durationSum   map[string]int64
	durationCount map[string]int

	dudoSuccess  int
	dudoFail     int
	calzaSuccess int
	calzaFail    int
	rounds       int

	calzaAllowed  int
	losersSeeDice int
	resultsTable  int
	randomBound   int
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		durationSum:   map[string]int64{},
		durationCount: map[string]int{},
	}
}

// Replay folds the stored records into the aggregates.
func (a *Aggregator) Replay(records []model.FinishedGame) {
	for _, rec := range records {
		a.Observe(rec)
	}
}

// Observe folds one record in. Abandoned and short games are skipped;
// only rooms that produced a winner count.
func (a *Aggregator) Observe(rec model.FinishedGame) {
	if rec.Result != model.ResultGameOver || rec.Duration < minDuration {
		return
	}

	a.games++
	a.rounds += rec.Round

	if rec.Players >= 2 && rec.Players < len(a.playerCounts) {
		a.playerCounts[rec.Players]++
	}
	if rec.MaxDice >= room.MinDice && rec.MaxDice <= room.MaxDice {
		a.diceCounts[rec.MaxDice]++
	}
	if rec.MaxDiceValue >= room.MinDiceValue && rec.MaxDiceValue <= room.MaxDiceValue {
		a.diceValues[rec.MaxDiceValue]++
	}
	for i, n := range rec.DiceTotals {
		if i < len(a.thrownValues) && n > 0 {
			a.thrownValues[i] += int64(n)
		}
	}

	key := durationKey(rec.Players, rec.MaxDice)
	a.durationSum[key] += rec.Duration
	a.durationCount[key]++

	a.dudoSuccess += rec.DudoSuccess
	a.dudoFail += rec.DudoFail
	a.calzaSuccess += rec.CalzaSuccess
	a.calzaFail += rec.CalzaFail

	if rec.AllowCalza {
		a.calzaAllowed++
	}
	if rec.LosersSeeDice {
		a.losersSeeDice++
	}
	if rec.ShowResultsTable {
		a.resultsTable++
	}
	if rec.RandomMaxDiceValue {
		a.randomBound++
	}
}

func durationKey(players, maxDice int) string {
	return fmt.Sprintf("%dp%dd", players, maxDice)
}

// Snapshot is the published statistics document. Distributions are
// percentages of counted games, durations are per-shape averages in
// seconds.
type Snapshot struct {
	Games        int `json:"games"`
	AverageRound int `json:"average-rounds"`

	PlayerCounts map[string]float64 `json:"player-counts"`
	DiceCounts   map[string]float64 `json:"dice-counts"`
	DiceValues   map[string]float64 `json:"dice-values"`
	ThrownValues []float64          `json:"thrown-values"`

	AverageDurations map[string]int64 `json:"average-durations"`

	DudoSuccess  float64 `json:"dudo-success"`
	DudoFail     float64 `json:"dudo-fail"`
	CalzaSuccess float64 `json:"calza-success"`
	CalzaFail    float64 `json:"calza-fail"`

	AllowCalza         float64 `json:"allow-calza"`
	LosersSeeDice      float64 `json:"losers-see-dice"`
	ShowResultsTable   float64 `json:"show-results-table"`
	RandomMaxDiceValue float64 `json:"random-max-dice-value"`
}

func (a *Aggregator) Snapshot() Snapshot {
	s := Snapshot{
		Games:            a.games,
		PlayerCounts:     map[string]float64{},
		DiceCounts:       map[string]float64{},
		DiceValues:       map[string]float64{},
		AverageDurations: map[string]int64{},
	}
	if a.games == 0 {
		return s
	}

	s.AverageRound = a.rounds / a.games

	for n, c := range a.playerCounts {
		if c > 0 {
			s.PlayerCounts[fmt.Sprintf("%d", n)] = pct(c, a.games)
		}
	}
	for n, c := range a.diceCounts {
		if c > 0 {
			s.DiceCounts[fmt.Sprintf("%d", n)] = pct(c, a.games)
		}
	}
	for n, c := range a.diceValues {
		if c > 0 {
			s.DiceValues[fmt.Sprintf("%d", n)] = pct(c, a.games)
		}
	}

	var thrown int64
	for _, n := range a.thrownValues {
		thrown += n
	}
	if thrown > 0 {
		s.ThrownValues = make([]float64, len(a.thrownValues))
		for i, n := range a.thrownValues {
			s.ThrownValues[i] = round1(float64(n) * 100 / float64(thrown))
		}
	}

	for key, sum := range a.durationSum {
		if c := a.durationCount[key]; c > 0 {
			s.AverageDurations[key] = sum / int64(c)
		}
	}

	if dudos := a.dudoSuccess + a.dudoFail; dudos > 0 {
		s.DudoSuccess = pct(a.dudoSuccess, dudos)
		s.DudoFail = pct(a.dudoFail, dudos)
	}
	if calzas := a.calzaSuccess + a.calzaFail; calzas > 0 {
		s.CalzaSuccess = pct(a.calzaSuccess, calzas)
		s.CalzaFail = pct(a.calzaFail, calzas)
	}

	s.AllowCalza = pct(a.calzaAllowed, a.games)
	s.LosersSeeDice = pct(a.losersSeeDice, a.games)
	s.ShowResultsTable = pct(a.resultsTable, a.games)
	s.RandomMaxDiceValue = pct(a.randomBound, a.games)
	return s
}

func pct(part, whole int) float64 {
	return round1(float64(part) * 100 / float64(whole))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
