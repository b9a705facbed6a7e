package room

import (
	"github.com/dudo-games/dudo/internal/random"
)

// shufflePlayers randomizes the turn ring with a crypto-strong
// permutation at game start.
func (r *Room) shufflePlayers() error {
	perm, err := random.Perm(len(r.players))
	if err != nil {
		return err
	}

	shuffled := make([]*Player, len(r.players))
	for i, j := range perm {
		shuffled[i] = r.players[j]
	}
	r.players = shuffled
	return nil
}

func (r *Room) pickRandomStarter() error {
	i, err := random.Intn(len(r.players))
	if err != nil {
		return err
	}
	r.starterID = r.players[i].ID
	return nil
}

// startRound eliminates players who ran out of dice in the previous
// round, rolls fresh dice for everyone left and announces the starter.
func (r *Room) startRound() error {
	for i := 0; i < len(r.players); {
		p := r.players[i]
		if p.DiceCount == 0 {
			r.eliminate(p)
			continue
		}
		i++
	}
	if len(r.players) == 1 {
		r.finishGame()
		return nil
	}

	// Draw everything up front so an oversized room is rejected
	// before any state changes.
	bytes, err := random.Bytes(len(r.players)*r.opts.MaxDice + 1)
	if err != nil {
		return err
	}

	r.round++
	r.dudoCallerID = ""
	r.calzaCallerID = ""
	r.roundLoserID = ""
	r.roundWinnerID = ""

	r.faceBound = r.opts.MaxDiceValue
	if r.opts.RandomMaxDiceValue && r.round > 1 {
		r.randomizeDiceValueBound(bytes[len(bytes)-1])
	}

	r.dealDice(bytes)

	r.state = GamePlayingRound
	starter := r.resolve(r.starterID)
	if starter == nil {
		starter = r.players[0]
		r.starterID = starter.ID
	}

	r.logger.Infof("room %s: round %d, starter %s (%s)", r.id, r.round, starter.ID, starter.Name)
	r.emit(TopicNewRound, newRound{Starter: starter.ref(), PalificoRound: r.palificoRound})

	if r.opts.LosersSeeDice && len(r.lost) > 0 {
		r.emit(TopicLoserResults, r.allPlayersDice())
		r.emit(TopicLoserSummaryResults, summaryResults{Totals: r.summaryTotals()})
	}
	return nil
}

// currentFaceBound is the face range in play this round; outside a
// round it falls back to the configured option value.
func (r *Room) currentFaceBound() int {
	if r.faceBound > 0 {
		return r.faceBound
	}
	return r.opts.MaxDiceValue
}

// randomizeDiceValueBound folds one random byte into a round-local
// face bound in [MinDiceValue, configured MaxDiceValue] and broadcasts
// it like a host option change. The configured option itself stays
// untouched.
func (r *Room) randomizeDiceValueBound(b byte) {
	r.faceBound = MinDiceValue + int(b)%(r.opts.MaxDiceValue-MinDiceValue+1)
	r.emit(TopicSetOption, map[string]interface{}{"max-dice-value": r.faceBound})
}

// dealDice spends one pre-drawn byte per potential die, folding each
// into [1, currentFaceBound].
func (r *Room) dealDice(bytes []byte) {
	idx := 0
	bound := r.currentFaceBound()
	for _, p := range r.players {
		p.Dice = make([]int, r.opts.MaxDice)
		for j := 0; j < p.DiceCount; j++ {
			v := int(bytes[idx])%bound + 1
			idx++
			p.Dice[j] = v
			r.totals[v-1]++
		}
		p.State = PlayerAwaitingDice
	}
}

// RollDice reveals the caller's dice. In round-over states the first
// roll request also advances the game to the next round.
func (r *Room) RollDice(connID, playerID string) error {
	p, err := r.resolveActor(connID, playerID)
	if err != nil {
		return err
	}

	switch r.state {
	case GamePreRoll:
		return r.preRollReveal(p)
	case GamePreRollOver, GameRoundOver:
		if err := r.startRound(); err != nil {
			return err
		}
	case GamePlayingRound:
	default:
		return ErrBadState
	}

	if p.State != PlayerAwaitingDice {
		return ErrBadState
	}

	p.State = PlayerHaveDice
	r.emit(TopicDice+"/"+p.ID, map[string]interface{}{"dice": p.Dice[:p.DiceCount]})
	return nil
}

// CallDudo challenges the last bid. The caller and the player before
// them in turn order are the candidates for losing the round.
func (r *Room) CallDudo(connID, playerID string) error {
	if r.state != GamePlayingRound {
		return ErrBadState
	}

	p, err := r.resolveActor(connID, playerID)
	if err != nil {
		return err
	}
	if p.State != PlayerHaveDice {
		return ErrBadState
	}

	r.logger.Infof("room %s: dudo by %s (%s)", r.id, p.ID, p.Name)
	r.dudoCallerID = p.ID

	r.emit(TopicDudoCandidates, r.dudoCandidatesDoc(p))
	r.revealResults(p)

	prev := r.prevOf(p)
	for _, q := range r.players {
		q.State = PlayerAwaitingLoser
	}
	p.State = PlayerDudoCandidate
	prev.State = PlayerDudoCandidate

	r.state = GameAwaitingLoser
	return nil
}

// CallCalza claims the last bid is exactly right. Only a player below
// the dice cap may call it; a correct call wins a die back.
func (r *Room) CallCalza(connID, playerID string) error {
	if r.state != GamePlayingRound || !r.opts.AllowCalza {
		return ErrBadState
	}

	p, err := r.resolveActor(connID, playerID)
	if err != nil {
		return err
	}
	if p.State != PlayerHaveDice {
		return ErrBadState
	}
	if p.DiceCount == r.opts.MaxDice {
		return ErrValidation
	}

	r.logger.Infof("room %s: calza by %s (%s)", r.id, p.ID, p.Name)
	r.calzaCallerID = p.ID

	r.emitPlayer(TopicCalzaCandidate, p)
	r.revealResults(p)

	for _, q := range r.players {
		q.State = PlayerAwaitingLoser
	}
	p.State = PlayerCalzaCandidate

	r.state = GameAwaitingLoser
	return nil
}

func (r *Room) dudoCandidatesDoc(caller *Player) []PlayerRef {
	return []PlayerRef{caller.ref(), r.prevOf(caller).ref()}
}

// revealResults publishes every player's dice, starting from the
// caller and walking the ring, plus the per-face totals table.
func (r *Room) revealResults(caller *Player) {
	r.emit(TopicPlayerResults, r.resultsFrom(caller))
	if r.opts.ShowResultsTable {
		r.emit(TopicSummaryResults, summaryResults{Totals: r.summaryTotals()})
	}
}

func (r *Room) resultsFrom(caller *Player) []playerDice {
	start := r.indexOf(caller.ID)
	if start < 0 {
		start = 0
	}

	results := make([]playerDice, 0, len(r.players))
	for i := 0; i < len(r.players); i++ {
		p := r.players[(start+i)%len(r.players)]
		results = append(results, playerDice{PlayerRef: p.ref(), Dice: p.visibleDice()})
	}
	return results
}

func (r *Room) resultsDoc() []playerDice {
	caller := r.resolve(r.dudoCallerID)
	if caller == nil {
		caller = r.resolve(r.calzaCallerID)
	}
	if caller == nil && len(r.players) > 0 {
		caller = r.players[0]
	}
	if caller == nil {
		return nil
	}
	return r.resultsFrom(caller)
}

func (r *Room) allPlayersDice() []playerDice {
	results := make([]playerDice, 0, len(r.players))
	for _, p := range r.players {
		results = append(results, playerDice{PlayerRef: p.ref(), Dice: p.visibleDice()})
	}
	return results
}

// summaryTotals counts the dice on the table per face. Outside a
// palifico round ones are wild, so every other face also absorbs the
// count of ones.
func (r *Room) summaryTotals() []int {
	bound := r.currentFaceBound()
	totals := make([]int, bound)
	for _, p := range r.players {
		for _, v := range p.visibleDice() {
			if v >= 1 && v <= bound {
				totals[v-1]++
			}
		}
	}

	if r.palificoRound {
		return totals
	}

	wild := make([]int, len(totals))
	wild[0] = totals[0]
	for i := 1; i < len(totals); i++ {
		wild[i] = totals[0] + totals[i]
	}
	return wild
}

// ReportLost records which candidate lost the disputed round. The
// first report wins; a duplicate while a loser or winner is already
// set is silently dropped.
func (r *Room) ReportLost(connID, playerID string) error {
	// Both disputants may report at once; the first one wins and the
	// straggler is a silent no-op.
	if r.roundLoserID != "" || r.roundWinnerID != "" {
		return nil
	}
	if r.state != GameAwaitingLoser {
		return ErrBadState
	}

	p, err := r.resolveActor(connID, playerID)
	if err != nil {
		return err
	}
	if p.State != PlayerDudoCandidate && p.State != PlayerCalzaCandidate {
		return ErrValidation
	}

	if r.dudoCallerID != "" {
		if p.ID == r.dudoCallerID {
			r.dudoFail++
		} else {
			r.dudoSuccess++
		}
	}
	if r.calzaCallerID != "" && p.ID == r.calzaCallerID {
		r.calzaFail++
	}

	r.logger.Infof("room %s: i-lost %s (%s)", r.id, p.ID, p.Name)

	r.palificoRound = false
	p.DiceCount--
	if p.DiceCount == 1 && len(r.players) > 2 && !p.ExPalifico {
		r.palificoRound = true
		p.ExPalifico = true
	}

	r.roundLoserID = p.ID
	r.starterID = p.ID

	if p.DiceCount == 0 && len(r.players) == 2 {
		r.eliminate(p)
		r.finishGame()
		return nil
	}

	for _, q := range r.players {
		q.State = PlayerAwaitingRound
	}
	r.state = GameRoundOver

	r.emitPlayer(TopicRoundLoser, p)
	if p.DiceCount == 0 {
		// Out of dice; the seat leaves the ring when the next round
		// starts so the table can still show this round's outcome.
		r.emitPlayer(TopicGameLoser, p)
	}
	return nil
}

// ReportWon records a correct calza call. The caller gets a die back
// and starts the next round.
func (r *Room) ReportWon(connID, playerID string) error {
	if r.roundLoserID != "" || r.roundWinnerID != "" {
		return nil
	}
	if r.state != GameAwaitingLoser {
		return ErrBadState
	}

	p, err := r.resolveActor(connID, playerID)
	if err != nil {
		return err
	}
	if p.ID != r.calzaCallerID || p.State != PlayerCalzaCandidate {
		return ErrValidation
	}

	r.logger.Infof("room %s: i-won %s (%s)", r.id, p.ID, p.Name)

	r.calzaSuccess++
	r.palificoRound = false
	p.DiceCount++

	r.roundWinnerID = p.ID
	r.starterID = p.ID

	for _, q := range r.players {
		q.State = PlayerAwaitingRound
	}
	r.state = GameRoundOver

	r.emitPlayer(TopicRoundWinner, p)
	return nil
}

// UndoLoser lets the recorded loser take back a mistaken i-lost
// report before the next round starts, restoring the die and the
// outcome counters. Nobody else may undo it for them.
func (r *Room) UndoLoser(connID, playerID string) error {
	if r.state != GameRoundOver || r.roundLoserID == "" {
		return ErrBadState
	}

	loser, err := r.resolveActor(connID, playerID)
	if err != nil {
		return err
	}
	if loser.ID != r.roundLoserID {
		return ErrUnauthorized
	}

	r.logger.Infof("room %s: undo-loser %s (%s)", r.id, loser.ID, loser.Name)

	loser.DiceCount++
	if r.dudoCallerID != "" {
		if loser.ID == r.dudoCallerID {
			r.dudoFail--
		} else {
			r.dudoSuccess--
		}
	}
	if r.calzaCallerID != "" && loser.ID == r.calzaCallerID {
		r.calzaFail--
	}
	if r.palificoRound && loser.DiceCount == 2 {
		r.palificoRound = false
		loser.ExPalifico = false
	}

	r.roundLoserID = ""
	r.restoreCandidateStates()
	r.state = GameAwaitingLoser

	r.emit(TopicUndoLoser, nil)
	return nil
}

// UndoWinner lets the recorded winner take back a mistaken i-won
// report.
func (r *Room) UndoWinner(connID, playerID string) error {
	if r.state != GameRoundOver || r.roundWinnerID == "" {
		return ErrBadState
	}

	winner, err := r.resolveActor(connID, playerID)
	if err != nil {
		return err
	}
	if winner.ID != r.roundWinnerID {
		return ErrUnauthorized
	}

	r.logger.Infof("room %s: undo-winner %s (%s)", r.id, winner.ID, winner.Name)

	winner.DiceCount--
	r.calzaSuccess--
	r.roundWinnerID = ""
	r.restoreCandidateStates()
	r.state = GameAwaitingLoser

	r.emit(TopicUndoWinner, nil)
	return nil
}

func (r *Room) restoreCandidateStates() {
	for _, q := range r.players {
		q.State = PlayerAwaitingLoser
	}
	if caller := r.resolve(r.dudoCallerID); caller != nil {
		caller.State = PlayerDudoCandidate
		r.prevOf(caller).State = PlayerDudoCandidate
	} else if caller := r.resolve(r.calzaCallerID); caller != nil {
		caller.State = PlayerCalzaCandidate
	}
}

// eliminate moves a player with no dice left out of the turn ring.
func (r *Room) eliminate(p *Player) {
	if r.starterID == p.ID && len(r.players) > 1 {
		r.starterID = r.nextOf(p).ID
	}

	r.logger.Infof("room %s: player out %s (%s)", r.id, p.ID, p.Name)
	r.deletePlayer(p)
	r.lost = append(r.lost, p)
	p.State = PlayerSpectator
	r.emitPlayer(TopicPlayerLost, p)
}
