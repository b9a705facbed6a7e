package room

import (
	"github.com/dudo-games/dudo/internal/random"
)

// preRollInit draws a hidden tie-break die for every player still in
// contention for the first turn. Players knocked out of earlier
// tie-break passes sit the redraw out.
func (r *Room) preRollInit() error {
	contenders := make([]*Player, 0, len(r.players))
	for _, p := range r.players {
		if p.State != PlayerPreRollLost {
			contenders = append(contenders, p)
		}
	}

	bytes, err := random.Bytes(len(contenders))
	if err != nil {
		return err
	}

	for i, p := range contenders {
		p.PreRoll = int(bytes[i])%r.currentFaceBound() + 1
		p.State = PlayerPreRoll
	}

	r.preRollCount = len(contenders)
	r.state = GamePreRoll

	refs := make([]PlayerRef, 0, len(contenders))
	for _, p := range contenders {
		refs = append(refs, p.ref())
	}
	r.emit(TopicPreRollInit, map[string]interface{}{"players": refs})
	return nil
}

// preRollReveal publishes one player's tie-break die. When the last
// contender reveals, the round is resolved: a unique highest roll
// picks the starter, a tie redraws among the tied players.
func (r *Room) preRollReveal(p *Player) error {
	if p.State != PlayerPreRoll {
		return ErrBadState
	}

	p.State = PlayerPreRollSent
	r.emit(TopicPreRoll, playerRoll{PlayerRef: p.ref(), Value: p.PreRoll})

	r.preRollCount--
	if r.preRollCount > 0 {
		return nil
	}
	return r.preRollResolve()
}

func (r *Room) preRollResolve() error {
	max := 0
	for _, p := range r.players {
		if p.State == PlayerPreRollSent && p.PreRoll > max {
			max = p.PreRoll
		}
	}

	winners := make([]*Player, 0, len(r.players))
	for _, p := range r.players {
		if p.State != PlayerPreRollSent {
			continue
		}
		if p.PreRoll == max {
			winners = append(winners, p)
		} else {
			p.State = PlayerPreRollLost
		}
	}

	refs := make([]PlayerRef, 0, len(winners))
	for _, p := range winners {
		refs = append(refs, p.ref())
	}
	r.emit(TopicPreRollResults, map[string]interface{}{"value": max, "winners": refs})

	if len(winners) == 1 {
		r.starterID = winners[0].ID
		r.logger.Infof("room %s: pre-roll starter %s (%s)", r.id, winners[0].ID, winners[0].Name)
		for _, p := range r.players {
			p.State = PlayerAwaitingRound
		}
		r.state = GamePreRollOver
		return nil
	}

	// Tied on the highest value: redraw among the winners only.
	return r.preRollInit()
}

// preRollDoc lists the rolls already revealed, for resync documents.
func (r *Room) preRollDoc() []playerRoll {
	rolls := make([]playerRoll, 0, len(r.players))
	for _, p := range r.players {
		if p.State == PlayerPreRollSent {
			rolls = append(rolls, playerRoll{PlayerRef: p.ref(), Value: p.PreRoll})
		}
	}
	return rolls
}
