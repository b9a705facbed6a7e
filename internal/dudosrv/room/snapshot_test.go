package room

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dudo-games/dudo/internal/database/gamestate/model"
)

func midGameRoom(t *testing.T) (*Room, []seat) {
	t.Helper()

	r, seats := newTestRoom(t, 3)
	startGame(t, r, seats)
	rollAll(t, r, seats)

	caller := r.players[0]
	require.NoError(t, r.CallDudo(caller.ConnID, caller.ID))
	r.TakeEvents()
	return r, seats
}

func TestSnapshotRestoresRoom(t *testing.T) {
	t.Parallel()

	r, _ := midGameRoom(t)
	doc := r.Snapshot()

	restored, err := FromSnapshot(doc, zap.NewNop().Sugar())
	require.NoError(t, err)

	require.Equal(t, r.id, restored.id)
	require.Equal(t, r.state, restored.state)
	require.Equal(t, r.round, restored.round)
	require.Equal(t, r.opts, restored.opts)
	require.Equal(t, r.playerCount, restored.playerCount)
	require.Equal(t, r.hostID, restored.hostID)
	require.Equal(t, r.starterID, restored.starterID)
	require.Equal(t, r.dudoCallerID, restored.dudoCallerID)
	require.Equal(t, r.faceBound, restored.faceBound)
	require.Equal(t, r.totals, restored.totals)

	require.Len(t, restored.players, len(r.players))
	for i, p := range r.players {
		q := restored.players[i]
		require.Equal(t, p.ID, q.ID)
		require.Equal(t, p.Name, q.Name)
		require.Equal(t, p.State, q.State)
		require.Equal(t, p.DiceCount, q.DiceCount)
		require.Equal(t, p.visibleDice(), q.visibleDice())
		// Connections do not survive a restart; seats rebind on the
		// next login.
		require.Empty(t, q.ConnID)
	}
}

func TestFromSnapshotRejectsCorruptDocs(t *testing.T) {
	t.Parallel()

	base := func() model.Game {
		r, _ := midGameRoom(t)
		return r.Snapshot()
	}

	doc := base()
	doc.UUID = "not-a-uuid"
	_, err := FromSnapshot(doc, zap.NewNop().Sugar())
	require.Error(t, err)

	doc = base()
	doc.State = 3
	_, err = FromSnapshot(doc, zap.NewNop().Sugar())
	require.Error(t, err)

	doc = base()
	doc.Players[0].Dice = []int{1, 2, 99}
	_, err = FromSnapshot(doc, zap.NewNop().Sugar())
	require.Error(t, err)

	doc = base()
	doc.Players[0].DiceCount = doc.Options.MaxDice + 1
	_, err = FromSnapshot(doc, zap.NewNop().Sugar())
	require.Error(t, err)

	doc = base()
	doc.Players[0].Name = "this name is far longer than the thirty characters allowed"
	_, err = FromSnapshot(doc, zap.NewNop().Sugar())
	require.Error(t, err)

	doc = base()
	doc.DudoFail = -1
	_, err = FromSnapshot(doc, zap.NewNop().Sugar())
	require.Error(t, err)
}

func TestFromSnapshotClampsOptions(t *testing.T) {
	t.Parallel()

	r, _ := newTestRoom(t, 2)
	doc := r.Snapshot()
	doc.Options.MaxDice = 50
	doc.Options.MaxDiceValue = 1

	restored, err := FromSnapshot(doc, zap.NewNop().Sugar())
	require.NoError(t, err)
	require.Equal(t, MaxDice, restored.opts.MaxDice)
	require.Equal(t, MinDiceValue, restored.opts.MaxDiceValue)
}

func TestFromSnapshotDropsDanglingRefs(t *testing.T) {
	t.Parallel()

	r, _ := midGameRoom(t)
	doc := r.Snapshot()
	doc.Starter = uuid.NewString()
	doc.DudoCaller = uuid.NewString()

	restored, err := FromSnapshot(doc, zap.NewNop().Sugar())
	require.NoError(t, err)
	require.Empty(t, restored.starterID)
	require.Empty(t, restored.dudoCallerID)
	// The host falls back to the first seat rather than vanishing.
	require.Equal(t, restored.players[0].ID, restored.hostID)

	doc.Host = uuid.NewString()
	restored, err = FromSnapshot(doc, zap.NewNop().Sugar())
	require.NoError(t, err)
	require.Equal(t, restored.players[0].ID, restored.hostID)
}
