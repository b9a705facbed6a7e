package room

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dudo-games/dudo/internal/database/gamestate/model"
)

// Snapshot projects the room into its durable document form.
func (r *Room) Snapshot() model.Game {
	return model.Game{
		UUID:          r.id,
		PlayerCount:   r.playerCount,
		CurrentCount:  len(r.players),
		State:         int(r.state),
		StartTime:     r.startTime.Unix(),
		LastEvent:     r.lastEvent.Unix(),
		Round:         r.round,
		DudoSuccess:   r.dudoSuccess,
		DudoFail:      r.dudoFail,
		CalzaSuccess:  r.calzaSuccess,
		CalzaFail:     r.calzaFail,
		Host:          r.hostID,
		Starter:       r.starterID,
		DudoCaller:    r.dudoCallerID,
		CalzaCaller:   r.calzaCallerID,
		RoundLoser:    r.roundLoserID,
		RoundWinner:   r.roundWinnerID,
		PalificoRound: r.palificoRound,
		FaceBound:     r.faceBound,
		Options: model.Options{
			MaxDice:            r.opts.MaxDice,
			MaxDiceValue:       r.opts.MaxDiceValue,
			AllowCalza:         r.opts.AllowCalza,
			RollDiceAtStart:    r.opts.RollDiceAtStart,
			LosersSeeDice:      r.opts.LosersSeeDice,
			ShowResultsTable:   r.opts.ShowResultsTable,
			RandomMaxDiceValue: r.opts.RandomMaxDiceValue,
		},
		Players:     snapshotPlayers(r.players),
		LostPlayers: snapshotPlayers(r.lost),
		DiceTotals:  r.diceTotals(),
	}
}

func snapshotPlayers(players []*Player) []model.Player {
	out := make([]model.Player, 0, len(players))
	for _, p := range players {
		out = append(out, model.Player{
			UUID:       p.ID,
			Name:       p.Name,
			State:      int(p.State),
			DiceCount:  p.DiceCount,
			Dice:       p.visibleDice(),
			ExPalifico: p.ExPalifico,
		})
	}
	return out
}

// FromSnapshot rebuilds a room from its durable document. Documents
// are untrusted after a restart; any field outside its legal range
// discards the whole entry rather than admitting a corrupt room.
func FromSnapshot(doc model.Game, logger *zap.SugaredLogger) (*Room, error) {
	if _, err := uuid.Parse(doc.UUID); err != nil {
		return nil, fmt.Errorf("room id: %w", err)
	}
	if !GameState(doc.State).valid() {
		return nil, fmt.Errorf("game state %d out of range", doc.State)
	}
	if doc.Round < 0 || doc.PlayerCount < 0 || doc.CurrentCount < 0 {
		return nil, fmt.Errorf("negative counters")
	}
	if doc.DudoSuccess < 0 || doc.DudoFail < 0 || doc.CalzaSuccess < 0 || doc.CalzaFail < 0 {
		return nil, fmt.Errorf("negative outcome counters")
	}

	r := New(doc.UUID, logger)
	r.opts = optionsFromDoc(doc.Options)
	r.state = GameState(doc.State)
	r.round = doc.Round
	r.playerCount = doc.PlayerCount
	r.dudoSuccess = doc.DudoSuccess
	r.dudoFail = doc.DudoFail
	r.calzaSuccess = doc.CalzaSuccess
	r.calzaFail = doc.CalzaFail
	r.palificoRound = doc.PalificoRound
	if doc.FaceBound != 0 {
		r.faceBound = clamp(doc.FaceBound, MinDiceValue, r.opts.MaxDiceValue)
	}
	r.startTime = time.Unix(doc.StartTime, 0)
	r.lastEvent = time.Unix(doc.LastEvent, 0)

	for i, t := range doc.DiceTotals {
		if i >= len(r.totals) {
			break
		}
		if t < 0 {
			return nil, fmt.Errorf("negative dice total")
		}
		r.totals[i] = t
	}

	for _, dp := range doc.Players {
		p, err := playerFromDoc(dp, r.opts)
		if err != nil {
			return nil, err
		}
		r.players = append(r.players, p)
	}
	for _, dp := range doc.LostPlayers {
		p, err := playerFromDoc(dp, r.opts)
		if err != nil {
			return nil, err
		}
		r.lost = append(r.lost, p)
	}

	// Role references are stored as ids; a reference to a player who
	// no longer exists is dropped, never invented.
	r.hostID = r.restoreRef(doc.Host)
	r.starterID = r.restoreRef(doc.Starter)
	r.dudoCallerID = r.restoreRef(doc.DudoCaller)
	r.calzaCallerID = r.restoreRef(doc.CalzaCaller)
	r.roundLoserID = r.restoreRef(doc.RoundLoser)
	r.roundWinnerID = r.restoreRef(doc.RoundWinner)

	if r.hostID == "" && len(r.players) > 0 {
		r.hostID = r.players[0].ID
	}

	if r.state == GamePreRoll {
		for _, p := range r.players {
			if p.State == PlayerPreRoll {
				r.preRollCount++
			}
		}
	}
	return r, nil
}

func (r *Room) restoreRef(id string) string {
	if id == "" || r.findPlayer(id) == nil {
		return ""
	}
	return id
}

// optionsFromDoc clamps stored option values back into their legal
// ranges instead of rejecting the room over them.
func optionsFromDoc(o model.Options) Options {
	opts := Options{
		MaxDice:            clamp(o.MaxDice, MinDice, MaxDice),
		MaxDiceValue:       clamp(o.MaxDiceValue, MinDiceValue, MaxDiceValue),
		AllowCalza:         o.AllowCalza,
		RollDiceAtStart:    o.RollDiceAtStart,
		LosersSeeDice:      o.LosersSeeDice,
		ShowResultsTable:   o.ShowResultsTable,
		RandomMaxDiceValue: o.RandomMaxDiceValue,
	}
	return opts
}

func playerFromDoc(dp model.Player, opts Options) (*Player, error) {
	if _, err := uuid.Parse(dp.UUID); err != nil {
		return nil, fmt.Errorf("player id: %w", err)
	}
	if len(dp.Name) == 0 || len(dp.Name) > MaxNameLen {
		return nil, fmt.Errorf("player name length %d", len(dp.Name))
	}
	if !PlayerState(dp.State).valid() {
		return nil, fmt.Errorf("player state %d out of range", dp.State)
	}
	if dp.DiceCount < 0 || dp.DiceCount > opts.MaxDice {
		return nil, fmt.Errorf("dice count %d out of range", dp.DiceCount)
	}
	if len(dp.Dice) > opts.MaxDice {
		return nil, fmt.Errorf("%d stored dice exceed cap", len(dp.Dice))
	}

	p := newPlayer(dp.UUID, dp.Name, "", dp.DiceCount)
	p.State = PlayerState(dp.State)
	p.ExPalifico = dp.ExPalifico
	p.Dice = make([]int, opts.MaxDice)
	for i, v := range dp.Dice {
		if v < 1 || v > opts.MaxDiceValue {
			return nil, fmt.Errorf("die value %d out of range", v)
		}
		p.Dice[i] = v
	}
	return p, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
