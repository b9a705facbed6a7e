package room

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type seat struct {
	id   string
	conn string
}

// newTestRoom seats n players and disables the pre-roll so rounds
// start deterministically. The first seat is the host.
func newTestRoom(t *testing.T, n int) (*Room, []seat) {
	t.Helper()

	r := New(uuid.NewString(), zap.NewNop().Sugar())
	seats := make([]seat, 0, n)
	for i := 0; i < n; i++ {
		s := seat{id: uuid.NewString(), conn: uuid.NewString()}
		require.NoError(t, r.Login(s.conn, s.id, "player"))
		seats = append(seats, s)
	}

	host := seats[0]
	require.NoError(t, r.SetOption(host.conn, host.id, "roll-dice-at-start", json.RawMessage(`false`)))
	r.TakeEvents()
	return r, seats
}

func startGame(t *testing.T, r *Room, seats []seat) {
	t.Helper()
	require.NoError(t, r.StartGame(seats[0].conn, seats[0].id))
	r.TakeEvents()
}

func (r *Room) seatOf(s seat) *Player {
	return r.findPlayer(s.id)
}

func rollAll(t *testing.T, r *Room, seats []seat) {
	t.Helper()
	for _, s := range seats {
		if p := r.findPlayer(s.id); p != nil && p.State == PlayerAwaitingDice {
			require.NoError(t, r.RollDice(s.conn, s.id))
		}
	}
	r.TakeEvents()
}

func suffixes(events []Event) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Suffix)
	}
	return out
}

func TestLoginHostAndRebind(t *testing.T) {
	t.Parallel()

	r := New(uuid.NewString(), zap.NewNop().Sugar())
	a := seat{id: uuid.NewString(), conn: "conn-1"}
	require.NoError(t, r.Login(a.conn, a.id, "alice"))
	require.Equal(t, a.id, r.hostID)

	events := suffixes(r.TakeEvents())
	require.Contains(t, events, TopicLobbyPlayers)
	require.Contains(t, events, TopicHost)

	// A reconnect rebinds the seat to the new connection.
	require.NoError(t, r.Login("conn-2", a.id, "alice"))
	require.Equal(t, "conn-2", r.seatOf(a).ConnID)
	require.Equal(t, 2, r.seatOf(a).LoginCount)
}

func TestStartGameGuards(t *testing.T) {
	t.Parallel()

	r, seats := newTestRoom(t, 2)
	require.ErrorIs(t, r.StartGame(seats[1].conn, seats[1].id), ErrUnauthorized)
	require.ErrorIs(t, r.StartGame("bogus-conn", seats[0].id), ErrUnauthorized)

	solo := New(uuid.NewString(), zap.NewNop().Sugar())
	a := seat{id: uuid.NewString(), conn: "c"}
	require.NoError(t, solo.Login(a.conn, a.id, "alone"))
	require.ErrorIs(t, solo.StartGame(a.conn, a.id), ErrBadState)
}

func TestSetOptionValidation(t *testing.T) {
	t.Parallel()

	r, seats := newTestRoom(t, 2)
	host, guest := seats[0], seats[1]

	require.ErrorIs(t, r.SetOption(host.conn, host.id, "max-dice", json.RawMessage(`21`)), ErrValidation)
	require.ErrorIs(t, r.SetOption(host.conn, host.id, "max-dice", json.RawMessage(`2`)), ErrValidation)
	require.ErrorIs(t, r.SetOption(guest.conn, guest.id, "max-dice", json.RawMessage(`10`)), ErrUnauthorized)
	require.ErrorIs(t, r.SetOption(host.conn, host.id, "no-such-option", json.RawMessage(`1`)), ErrValidation)
	require.Empty(t, r.TakeEvents())

	require.NoError(t, r.SetOption(host.conn, host.id, "max-dice", json.RawMessage(`10`)))
	require.Equal(t, 10, r.opts.MaxDice)
	require.Contains(t, suffixes(r.TakeEvents()), TopicSetOption)

	// Options freeze once the game starts.
	startGame(t, r, seats)
	require.ErrorIs(t, r.SetOption(host.conn, host.id, "max-dice", json.RawMessage(`5`)), ErrUnauthorized)
}

func TestDealtDiceWithinBounds(t *testing.T) {
	t.Parallel()

	r, seats := newTestRoom(t, 4)
	startGame(t, r, seats)
	require.Equal(t, GamePlayingRound, r.state)

	for _, p := range r.players {
		require.Equal(t, r.opts.MaxDice, p.DiceCount)
		for _, v := range p.visibleDice() {
			require.GreaterOrEqual(t, v, 1)
			require.LessOrEqual(t, v, r.opts.MaxDiceValue)
		}
	}
}

func TestRollDiceRevealsPrivately(t *testing.T) {
	t.Parallel()

	r, seats := newTestRoom(t, 2)
	startGame(t, r, seats)

	a := seats[0]
	require.NoError(t, r.RollDice(a.conn, a.id))
	require.Equal(t, PlayerHaveDice, r.seatOf(a).State)

	events := r.TakeEvents()
	require.Len(t, events, 1)
	require.Equal(t, TopicDice+"/"+a.id, events[0].Suffix)

	// A second reveal in the same round is rejected.
	require.ErrorIs(t, r.RollDice(a.conn, a.id), ErrBadState)
}

func TestDudoRoundDecrementsOneDie(t *testing.T) {
	t.Parallel()

	r, seats := newTestRoom(t, 3)
	startGame(t, r, seats)
	rollAll(t, r, seats)

	total := func() int {
		n := 0
		for _, p := range r.players {
			n += p.DiceCount
		}
		return n
	}
	before := total()

	caller := r.players[0]
	prev := r.prevOf(caller)
	require.NoError(t, r.CallDudo(caller.ConnID, caller.ID))
	require.Equal(t, GameAwaitingLoser, r.state)
	require.Equal(t, PlayerDudoCandidate, caller.State)
	require.Equal(t, PlayerDudoCandidate, prev.State)

	events := suffixes(r.TakeEvents())
	require.Contains(t, events, TopicDudoCandidates)
	require.Contains(t, events, TopicPlayerResults)
	require.Contains(t, events, TopicSummaryResults)

	require.NoError(t, r.ReportLost(prev.ConnID, prev.ID))
	require.Equal(t, GameRoundOver, r.state)
	require.Equal(t, 1, r.dudoSuccess)
	require.Contains(t, suffixes(r.TakeEvents()), TopicRoundLoser)

	// A duplicate report after the loser is set changes nothing.
	require.NoError(t, r.ReportLost(caller.ConnID, caller.ID))
	require.Equal(t, 1, r.dudoSuccess)
	require.Zero(t, r.dudoFail)
	require.Empty(t, r.TakeEvents())

	// The next round starts with exactly one die fewer on the table.
	require.NoError(t, r.RollDice(caller.ConnID, caller.ID))
	require.Equal(t, GamePlayingRound, r.state)
	require.Equal(t, before-1, total())
	require.Equal(t, prev.ID, r.starterID)
}

func TestCalzaNeedsMissingDie(t *testing.T) {
	t.Parallel()

	r, seats := newTestRoom(t, 3)
	startGame(t, r, seats)
	rollAll(t, r, seats)

	caller := r.players[0]
	require.ErrorIs(t, r.CallCalza(caller.ConnID, caller.ID), ErrValidation)

	caller.DiceCount--
	require.NoError(t, r.CallCalza(caller.ConnID, caller.ID))
	require.Equal(t, GameAwaitingLoser, r.state)
	require.Equal(t, PlayerCalzaCandidate, caller.State)
	require.Contains(t, suffixes(r.TakeEvents()), TopicCalzaCandidate)

	require.NoError(t, r.ReportWon(caller.ConnID, caller.ID))
	require.Equal(t, r.opts.MaxDice, caller.DiceCount)
	require.Equal(t, 1, r.calzaSuccess)
	require.Equal(t, caller.ID, r.starterID)
	require.Contains(t, suffixes(r.TakeEvents()), TopicRoundWinner)
}

func TestCalzaDisabledByOption(t *testing.T) {
	t.Parallel()

	r, seats := newTestRoom(t, 2)
	host := seats[0]
	require.NoError(t, r.SetOption(host.conn, host.id, "allow-calza", json.RawMessage(`false`)))
	startGame(t, r, seats)
	rollAll(t, r, seats)

	caller := r.players[0]
	caller.DiceCount--
	require.ErrorIs(t, r.CallCalza(caller.ConnID, caller.ID), ErrBadState)
}

func TestUndoLoserRestoresRound(t *testing.T) {
	t.Parallel()

	r, seats := newTestRoom(t, 3)
	startGame(t, r, seats)
	rollAll(t, r, seats)

	caller := r.players[0]
	prev := r.prevOf(caller)
	third := r.nextOf(caller)
	require.NoError(t, r.CallDudo(caller.ConnID, caller.ID))
	require.NoError(t, r.ReportLost(prev.ConnID, prev.ID))
	r.TakeEvents()

	// Only the recorded loser may take the report back.
	require.ErrorIs(t, r.UndoLoser(third.ConnID, third.ID), ErrUnauthorized)
	require.ErrorIs(t, r.UndoLoser(caller.ConnID, caller.ID), ErrUnauthorized)
	require.Equal(t, r.opts.MaxDice-1, prev.DiceCount)

	require.NoError(t, r.UndoLoser(prev.ConnID, prev.ID))
	require.Equal(t, GameAwaitingLoser, r.state)
	require.Equal(t, r.opts.MaxDice, prev.DiceCount)
	require.Zero(t, r.dudoSuccess)
	require.Empty(t, r.roundLoserID)
	require.Equal(t, PlayerDudoCandidate, caller.State)
	require.Contains(t, suffixes(r.TakeEvents()), TopicUndoLoser)

	// The dispute can be re-reported against the other candidate.
	require.NoError(t, r.ReportLost(caller.ConnID, caller.ID))
	require.Equal(t, 1, r.dudoFail)
	require.Equal(t, caller.ID, r.roundLoserID)
}

func TestUndoWinnerClearsWinner(t *testing.T) {
	t.Parallel()

	r, seats := newTestRoom(t, 3)
	startGame(t, r, seats)
	rollAll(t, r, seats)

	caller := r.players[0]
	caller.DiceCount--
	require.NoError(t, r.CallCalza(caller.ConnID, caller.ID))
	require.NoError(t, r.ReportWon(caller.ConnID, caller.ID))
	r.TakeEvents()

	other := r.nextOf(caller)
	require.ErrorIs(t, r.UndoWinner(other.ConnID, other.ID), ErrUnauthorized)

	require.NoError(t, r.UndoWinner(caller.ConnID, caller.ID))
	require.Equal(t, GameAwaitingLoser, r.state)
	require.Empty(t, r.roundWinnerID)
	require.Zero(t, r.calzaSuccess)
	require.Equal(t, r.opts.MaxDice-1, caller.DiceCount)
	require.Equal(t, PlayerCalzaCandidate, caller.State)
}

func TestPalificoSetOncePerPlayer(t *testing.T) {
	t.Parallel()

	r, seats := newTestRoom(t, 3)
	startGame(t, r, seats)
	rollAll(t, r, seats)

	victim := r.players[0]
	victim.DiceCount = 2

	require.NoError(t, r.CallDudo(victim.ConnID, victim.ID))
	require.NoError(t, r.ReportLost(victim.ConnID, victim.ID))
	require.Equal(t, 1, victim.DiceCount)
	require.True(t, r.palificoRound)
	require.True(t, victim.ExPalifico)
	r.TakeEvents()

	// The palifico round plays out and the flag clears on the next
	// loser report.
	require.NoError(t, r.RollDice(victim.ConnID, victim.ID))
	require.True(t, r.palificoRound)
	rollAll(t, r, seats)

	other := r.nextOf(victim)
	require.NoError(t, r.CallDudo(other.ConnID, other.ID))
	require.NoError(t, r.ReportLost(other.ConnID, other.ID))
	require.False(t, r.palificoRound)
	r.TakeEvents()

	// Dropping to one die a second time does not re-arm palifico.
	require.NoError(t, r.RollDice(victim.ConnID, victim.ID))
	rollAll(t, r, seats)
	victim.DiceCount = 2
	require.NoError(t, r.CallDudo(victim.ConnID, victim.ID))
	require.NoError(t, r.ReportLost(victim.ConnID, victim.ID))
	require.Equal(t, 1, victim.DiceCount)
	require.False(t, r.palificoRound)
}

func TestRandomFaceBoundDrawWithinCeiling(t *testing.T) {
	t.Parallel()

	r, _ := newTestRoom(t, 2)
	r.opts.MaxDiceValue = 4

	for b := 0; b < 256; b++ {
		r.randomizeDiceValueBound(byte(b))
		require.GreaterOrEqual(t, r.faceBound, MinDiceValue)
		require.LessOrEqual(t, r.faceBound, 4)
	}
	// The configured option never moves; only the round bound does.
	require.Equal(t, 4, r.opts.MaxDiceValue)
}

func TestRandomFaceBoundRespectsConfiguredCeiling(t *testing.T) {
	t.Parallel()

	r, seats := newTestRoom(t, 2)
	host := seats[0]
	require.NoError(t, r.SetOption(host.conn, host.id, "max-dice-value", json.RawMessage(`3`)))
	require.NoError(t, r.SetOption(host.conn, host.id, "random-max-dice-value", json.RawMessage(`true`)))
	startGame(t, r, seats)
	rollAll(t, r, seats)

	caller := r.players[0]
	loser := r.prevOf(caller)
	require.NoError(t, r.CallDudo(caller.ConnID, caller.ID))
	require.NoError(t, r.ReportLost(loser.ConnID, loser.ID))
	r.TakeEvents()

	require.NoError(t, r.RollDice(caller.ConnID, caller.ID))
	require.Equal(t, 2, r.round)
	require.Equal(t, 3, r.opts.MaxDiceValue)
	require.Equal(t, 3, r.currentFaceBound())
	for _, p := range r.players {
		for _, v := range p.visibleDice() {
			require.LessOrEqual(t, v, 3)
		}
	}
}

func TestSummaryTotalsWildOnes(t *testing.T) {
	t.Parallel()

	r, seats := newTestRoom(t, 2)
	startGame(t, r, seats)

	a, b := r.players[0], r.players[1]
	a.Dice = []int{1, 1, 2, 3, 3}
	b.Dice = []int{4, 5, 6, 6, 1}

	totals := r.summaryTotals()
	require.Equal(t, []int{3, 4, 5, 4, 4, 5}, totals)

	r.palificoRound = true
	totals = r.summaryTotals()
	require.Equal(t, []int{3, 1, 2, 1, 1, 2}, totals)
}

func TestLastDieEndsGame(t *testing.T) {
	t.Parallel()

	r, seats := newTestRoom(t, 2)
	startGame(t, r, seats)
	rollAll(t, r, seats)

	loser := r.players[0]
	winner := r.players[1]
	loser.DiceCount = 1

	require.NoError(t, r.CallDudo(loser.ConnID, loser.ID))
	require.NoError(t, r.ReportLost(loser.ConnID, loser.ID))

	require.Equal(t, GameGameOver, r.state)
	reason, closed := r.Closed()
	require.True(t, closed)
	require.Equal(t, ReasonGameOver, reason)

	events := r.TakeEvents()
	names := suffixes(events)
	require.Contains(t, names, TopicPlayerLost)
	require.Contains(t, names, TopicWinner)
	require.Contains(t, names, TopicRoomClosing)

	for _, ev := range events {
		if ev.Suffix == TopicWinner {
			res, ok := ev.Payload.(winnerResult)
			require.True(t, ok)
			require.Equal(t, winner.ID, res.Winner.UUID)
		}
	}
	require.Equal(t, 1, r.dudoFail)
}

func TestEliminationDeferredToRoundStart(t *testing.T) {
	t.Parallel()

	r, seats := newTestRoom(t, 3)
	startGame(t, r, seats)
	rollAll(t, r, seats)

	victim := r.players[0]
	victim.DiceCount = 1
	next := r.nextOf(victim)

	require.NoError(t, r.CallDudo(victim.ConnID, victim.ID))
	require.NoError(t, r.ReportLost(victim.ConnID, victim.ID))

	// The seat stays in the ring until the next round starts so the
	// table can show this round's outcome.
	require.Equal(t, 3, len(r.players))
	names := suffixes(r.TakeEvents())
	require.Contains(t, names, TopicRoundLoser)
	require.Contains(t, names, TopicGameLoser)

	require.NoError(t, r.RollDice(next.ConnID, next.ID))
	require.Equal(t, 2, len(r.players))
	require.Len(t, r.lost, 1)
	require.Equal(t, victim.ID, r.lost[0].ID)
	require.Equal(t, next.ID, r.starterID)
	require.Contains(t, suffixes(r.TakeEvents()), TopicPlayerLost)
}

func TestKickPlayer(t *testing.T) {
	t.Parallel()

	r, seats := newTestRoom(t, 3)
	host, guest := seats[0], seats[1]

	require.ErrorIs(t, r.KickPlayer(guest.conn, host.id), ErrUnauthorized)

	require.NoError(t, r.KickPlayer(host.conn, guest.id))
	require.Nil(t, r.findPlayer(guest.id))
	require.Equal(t, 2, r.playerCount)
	names := suffixes(r.TakeEvents())
	require.Contains(t, names, TopicPlayerLeft)
	require.Contains(t, names, TopicLobbyPlayers)
}

func TestLeaveMidGameCanFinish(t *testing.T) {
	t.Parallel()

	r, seats := newTestRoom(t, 2)
	startGame(t, r, seats)

	leaver := r.players[0]
	require.NoError(t, r.LeaveGame(leaver.ConnID, leaver.ID))

	require.Equal(t, GameGameOver, r.state)
	_, closed := r.Closed()
	require.True(t, closed)
}

func TestLogoutEmptiesLobby(t *testing.T) {
	t.Parallel()

	r, seats := newTestRoom(t, 2)
	require.NoError(t, r.Logout(seats[0].id))
	require.NoError(t, r.Logout(seats[1].id))

	reason, closed := r.Closed()
	require.True(t, closed)
	require.Equal(t, ReasonLobby, reason)
}

func TestSpectatorGetsStateDoc(t *testing.T) {
	t.Parallel()

	r, seats := newTestRoom(t, 2)
	startGame(t, r, seats)
	r.TakeEvents()

	watcher := seat{id: uuid.NewString(), conn: uuid.NewString()}
	require.NoError(t, r.Login(watcher.conn, watcher.id, "watcher"))

	events := r.TakeEvents()
	require.Contains(t, suffixes(events), TopicState+"/"+watcher.id)
	require.Nil(t, r.findPlayer(watcher.id))
	require.Equal(t, PlayerSpectator, r.spectators[watcher.conn].State)
}

func TestPlaySound(t *testing.T) {
	t.Parallel()

	r, seats := newTestRoom(t, 2)
	require.ErrorIs(t, r.PlaySound("higher"), ErrBadState)
	require.ErrorIs(t, r.PlaySound("booing"), ErrValidation)

	startGame(t, r, seats)
	r.TakeEvents()
	require.NoError(t, r.PlaySound("exact"))

	events := r.TakeEvents()
	require.Len(t, events, 1)
	require.Equal(t, "snd-exact", events[0].Suffix)
}
