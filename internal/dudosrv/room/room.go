// Package room implements one dice-bluffing game session: the seats,
// the turn ring, round resolution (dudo, calza, palifico) and the
// pre-roll tie-break. A Room mutates itself synchronously; callers
// serialize commands per room and drain the produced events.
package room

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/valyala/fastrand"
	"go.uber.org/zap"

	"github.com/dudo-games/dudo/internal/random"
)

var (
	ErrValidation   = fmt.Errorf("validation failed")
	ErrUnauthorized = fmt.Errorf("not authorized")
	ErrBadState     = fmt.Errorf("not valid in current state")
)

// Destruction reasons recorded in the finished-game statistics.
const (
	ReasonGameOver = "game-over"
	ReasonLobby    = "lobby"
	ReasonExpire   = "expire"
)

type Room struct {
	sync.Mutex

	id   string
	opts Options

	// players is the active turn ring, in play order. lost keeps
	// eliminated players for display; they never re-enter the ring.
	players []*Player
	lost    []*Player

	// spectators joined after the game started; keyed by connection id.
	spectators map[string]*Player

	state GameState
	round int

	dudoSuccess  int
	dudoFail     int
	calzaSuccess int
	calzaFail    int

	// totals counts every die thrown over the game, per face.
	totals [MaxDiceValue]int

	palificoRound bool
	preRollCount  int

	// faceBound is the face range in play for the current round. It
	// is re-drawn per round when the random-max-dice-value option is
	// on, but never exceeds the configured MaxDiceValue.
	faceBound int

	// Weak role references: ids resolved against players on use.
	hostID        string
	starterID     string
	dudoCallerID  string
	calzaCallerID string
	roundLoserID  string
	roundWinnerID string

	// playerCount is the number of seats filled in the lobby; it is
	// frozen at game start for statistics.
	playerCount int

	startTime time.Time
	lastEvent time.Time

	pending []Event

	closed      bool
	closeReason string

	logger *zap.SugaredLogger
}

func New(id string, logger *zap.SugaredLogger) *Room {
	return &Room{
		id:         id,
		opts:       DefaultOptions(),
		spectators: map[string]*Player{},
		state:      GameLobby,
		lastEvent:  time.Now(),
		logger:     logger,
	}
}

func (r *Room) ID() string           { return r.id }
func (r *Room) State() GameState     { return r.state }
func (r *Room) Options() Options     { return r.opts }
func (r *Room) LastEvent() time.Time { return r.lastEvent }

// Touch records externally observed activity.
func (r *Room) Touch(t time.Time) { r.lastEvent = t }

// Closed reports whether the room has been destroyed and why.
func (r *Room) Closed() (string, bool) { return r.closeReason, r.closed }

// ActiveCount is the number of players still in the turn ring.
func (r *Room) ActiveCount() int { return len(r.players) }

// Summary captures the outcome counters used for the finished-game
// statistics record.
type Summary struct {
	Players      int
	Round        int
	DudoSuccess  int
	DudoFail     int
	CalzaSuccess int
	CalzaFail    int
	Options      Options
	StartTime    time.Time
	DiceTotals   []int
}

func (r *Room) Summary() Summary {
	return Summary{
		Players:      r.playerCount,
		Round:        r.round,
		DudoSuccess:  r.dudoSuccess,
		DudoFail:     r.dudoFail,
		CalzaSuccess: r.calzaSuccess,
		CalzaFail:    r.calzaFail,
		Options:      r.opts,
		StartTime:    r.startTime,
		DiceTotals:   r.diceTotals(),
	}
}

func (r *Room) diceTotals() []int {
	totals := make([]int, r.opts.MaxDiceValue)
	copy(totals, r.totals[:r.opts.MaxDiceValue])
	return totals
}

// ring helpers

func (r *Room) indexOf(id string) int {
	for i, p := range r.players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (r *Room) findPlayer(id string) *Player {
	if i := r.indexOf(id); i >= 0 {
		return r.players[i]
	}
	return nil
}

func (r *Room) findLost(id string) *Player {
	for _, p := range r.lost {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (r *Room) findByConn(connID string) *Player {
	for _, p := range r.players {
		if p.ConnID == connID {
			return p
		}
	}
	return nil
}

func (r *Room) nextOf(p *Player) *Player {
	i := r.indexOf(p.ID)
	return r.players[(i+1)%len(r.players)]
}

func (r *Room) prevOf(p *Player) *Player {
	i := r.indexOf(p.ID)
	return r.players[(i-1+len(r.players))%len(r.players)]
}

func (r *Room) resolve(id string) *Player {
	if id == "" {
		return nil
	}
	return r.findPlayer(id)
}

// resolveActor finds the seat claimed by playerID and checks the
// command arrived on the connection bound to that seat.
func (r *Room) resolveActor(connID, playerID string) (*Player, error) {
	p := r.findPlayer(playerID)
	if p == nil {
		return nil, ErrUnauthorized
	}
	if p.ConnID != connID {
		return nil, ErrUnauthorized
	}
	return p, nil
}

// Login seats a new player in the lobby, rebinds the connection of a
// returning player, or admits a spectator once the game has started.
func (r *Room) Login(connID, playerID, name string) error {
	p := r.findPlayer(playerID)

	if r.state == GameLobby {
		if p == nil {
			p = newPlayer(playerID, name, connID, r.opts.MaxDice)
			r.players = append(r.players, p)
			r.playerCount++
		} else {
			p.ConnID = connID
		}
		r.logger.Infof("room %s: login %s (%s)", r.id, p.ID, p.Name)
		r.emit(TopicLobbyPlayers, r.lobbyPlayersDoc())
	} else {
		if p != nil {
			r.logger.Infof("room %s: re-login %s (%s)", r.id, p.ID, p.Name)
			p.ConnID = connID
			r.sendCurrentState(p)
		} else {
			p = newPlayer(playerID, name, connID, 0)
			p.State = PlayerSpectator
			r.spectators[connID] = p
			r.logger.Infof("room %s: spectator %s (%s)", r.id, p.ID, p.Name)
			r.sendCurrentState(p)
		}
	}

	if r.hostID == "" && r.findPlayer(p.ID) != nil {
		r.setHost(p)
	}
	p.LoginCount++
	r.sendHost()
	return nil
}

func (r *Room) lobbyPlayersDoc() lobbyPlayers {
	refs := make([]PlayerRef, 0, len(r.players))
	for _, p := range r.players {
		refs = append(refs, p.ref())
	}
	return lobbyPlayers{Players: refs, Options: r.opts}
}

func (r *Room) setHost(p *Player) {
	if p == nil {
		r.hostID = ""
		return
	}
	r.hostID = p.ID
	r.logger.Infof("room %s: new host %s (%s)", r.id, p.ID, p.Name)
}

func (r *Room) sendHost() {
	if host := r.resolve(r.hostID); host != nil {
		r.emitPlayer(TopicHost, host)
	}
}

// sendCurrentState publishes the full resync document for a returning
// player or spectator.
func (r *Room) sendCurrentState(p *Player) {
	doc := stateDoc{
		Players:       r.lobbyPlayersDoc().Players,
		PalificoRound: r.palificoRound,
		Options:       r.opts,
	}
	if r.state != GameLobby {
		doc.State = r.state.String()
	}

	if r.state == GameSendingResults || r.state == GameAwaitingLoser || r.state == GameRoundOver {
		doc.Results = r.resultsDoc()
	}

	if r.state == GameAwaitingLoser || r.state == GameRoundOver {
		if caller := r.resolve(r.dudoCallerID); caller != nil {
			doc.DudoCandidates = r.dudoCandidatesDoc(caller)
		} else if caller := r.resolve(r.calzaCallerID); caller != nil {
			ref := caller.ref()
			doc.CalzaCandidate = &ref
		}
	}

	if host := r.resolve(r.hostID); host != nil {
		ref := host.ref()
		doc.Host = &ref
	}

	switch r.state {
	case GamePreRoll:
		doc.PreRoll = r.preRollDoc()
	case GamePreRollOver:
		if starter := r.resolve(r.starterID); starter != nil {
			ref := starter.ref()
			doc.Starter = &ref
		}
	case GamePlayingRound:
		if starter := r.resolve(r.starterID); starter != nil {
			ref := starter.ref()
			doc.Starter = &ref
		}
		if p.State == PlayerHaveDice {
			doc.Dice = p.Dice[:p.DiceCount]
		}
	case GameRoundOver:
		if loser := r.resolve(r.roundLoserID); loser != nil {
			ref := loser.ref()
			doc.RoundLoser = &ref
		} else if winner := r.resolve(r.roundWinnerID); winner != nil {
			ref := winner.ref()
			doc.RoundWinner = &ref
		} else {
			// Loser already eliminated; the client only needs the key.
			doc.RoundLoser = &PlayerRef{}
		}
	}

	r.logger.Infof("room %s: sending state to %s (%s)", r.id, p.ID, p.Name)
	r.emit(TopicState+"/"+p.ID, doc)
}

// Logout decrements the seat's reconnect counter; the seat itself is
// only released in the lobby.
func (r *Room) Logout(playerID string) error {
	p := r.findPlayer(playerID)
	if p == nil {
		return ErrValidation
	}

	p.LoginCount--
	if p.LoginCount > 0 {
		return nil
	}

	if r.state == GameLobby {
		r.logger.Infof("room %s: logout %s (%s)", r.id, p.ID, p.Name)
		r.deletePlayer(p)
		r.playerCount--
	}

	if len(r.players) == 0 {
		r.close(ReasonLobby)
		return nil
	}

	if r.state == GameLobby {
		r.emit(TopicLobbyPlayers, r.lobbyPlayersDoc())
	}
	return nil
}

// deletePlayer removes p from the turn ring and hands the host role to
// the first remaining player when needed.
func (r *Room) deletePlayer(p *Player) {
	if i := r.indexOf(p.ID); i >= 0 {
		r.players = append(r.players[:i], r.players[i+1:]...)
	}

	if p.ID == r.hostID && len(r.players) > 0 {
		r.setHost(r.players[0])
		r.sendHost()
	}
}

// StartGame freezes the seat count, shuffles the turn order with a
// crypto-strong permutation, resets every player's dice and picks the
// first starter (directly or via the pre-roll tie-break).
func (r *Room) StartGame(connID, playerID string) error {
	if r.state != GameLobby || len(r.players) < 2 {
		return ErrBadState
	}

	p, err := r.resolveActor(connID, playerID)
	if err != nil {
		return err
	}
	if p.ID != r.hostID {
		return ErrUnauthorized
	}

	// Reject rooms too big for a single dice draw before touching
	// anything.
	if len(r.players)*r.opts.MaxDice+1 > random.MaxRequest {
		return ErrValidation
	}

	r.playerCount = len(r.players)
	r.logger.Infof("room %s: start-game with %d players", r.id, r.playerCount)

	if err := r.shufflePlayers(); err != nil {
		return err
	}
	r.emit(TopicLobbyPlayers, r.lobbyPlayersDoc())

	for _, p := range r.players {
		p.DiceCount = r.opts.MaxDice
	}

	if err := r.pickRandomStarter(); err != nil {
		return err
	}

	r.startTime = time.Now()
	r.lastEvent = r.startTime

	if r.opts.RollDiceAtStart {
		return r.preRollInit()
	}
	return r.startRound()
}

// LeaveGame voluntarily retires a player mid-game; the seat moves to
// the eliminated list. In the lobby a leave is just a logout.
func (r *Room) LeaveGame(connID, playerID string) error {
	p, err := r.resolveActor(connID, playerID)
	if err != nil {
		return err
	}

	switch r.state {
	case GamePlayingRound, GameRoundOver, GameGameOver:
		r.logger.Infof("room %s: leave-game %s (%s)", r.id, p.ID, p.Name)
		r.emitPlayer(TopicPlayerLeft, p)
		r.deletePlayer(p)
		r.lost = append(r.lost, p)

		if len(r.players) == 1 {
			r.finishGame()
		}
		return nil
	case GameLobby:
		return r.Logout(playerID)
	default:
		return ErrBadState
	}
}

// KickPlayer removes the target without adding it to the eliminated
// list; kicked players stay out of the historical record.
func (r *Room) KickPlayer(connID, targetID string) error {
	kicker := r.findByConn(connID)
	if kicker == nil || kicker.ID != r.hostID {
		return ErrUnauthorized
	}

	switch r.state {
	case GameLobby, GamePlayingRound, GameRoundOver, GameGameOver:
	default:
		return ErrBadState
	}

	target := r.findPlayer(targetID)
	if target == nil {
		return ErrValidation
	}

	r.logger.Infof("room %s: kick-player %s (%s)", r.id, target.ID, target.Name)
	r.emitPlayer(TopicPlayerLeft, target)
	r.deletePlayer(target)

	if r.state == GameLobby {
		r.playerCount--
		if len(r.players) == 0 {
			r.close(ReasonLobby)
			return nil
		}
		r.emit(TopicLobbyPlayers, r.lobbyPlayersDoc())
		return nil
	}

	if len(r.players) == 1 {
		r.finishGame()
	}
	return nil
}

// SetOption validates and applies a lobby configuration change.
// Failures are silent: no event, no state change.
func (r *Room) SetOption(connID, playerID, option string, value json.RawMessage) error {
	p, err := r.resolveActor(connID, playerID)
	if err != nil {
		return err
	}
	if r.state != GameLobby || p.ID != r.hostID {
		return ErrUnauthorized
	}

	payload, err := r.opts.apply(option, value)
	if err != nil {
		return err
	}

	r.logger.Infof("room %s: set-option %s by %s (%s)", r.id, option, p.ID, p.Name)
	r.emit(TopicSetOption, payload)
	return nil
}

// PlaySound rebroadcasts a sound trigger with a random variant value.
// The draw chooses a jingle, nothing fairness-critical.
func (r *Room) PlaySound(variant string) error {
	if variant != "higher" && variant != "exact" {
		return ErrValidation
	}
	if r.state != GamePlayingRound {
		return ErrBadState
	}

	r.emit("snd-"+variant, map[string]interface{}{"sound": fastrand.Uint32n(256)})
	return nil
}

// finishGame announces the last remaining player as winner and moves
// the room to its terminal state.
func (r *Room) finishGame() {
	winner := r.players[0]
	r.logger.Infof("room %s: winner %s (%s)", r.id, winner.ID, winner.Name)

	r.emit(TopicWinner, winnerResult{Totals: r.diceTotals(), Winner: winner.ref()})
	r.state = GameGameOver
	r.emit(TopicRoomClosing, nil)
	r.close(ReasonGameOver)
}

// close marks the room destroyed; the engine finalizes statistics and
// persistence when it observes the flag.
func (r *Room) close(reason string) {
	if r.closed {
		return
	}
	r.closed = true
	r.closeReason = reason
	r.logger.Infof("room %s: cleanup (%s)", r.id, reason)
}

// Expire closes the room from the idle sweep.
func (r *Room) Expire() {
	r.logger.Infof("room %s: expiring with %d players", r.id, len(r.players))
	r.emit(TopicRoomClosing, nil)
	r.close(ReasonExpire)
}
