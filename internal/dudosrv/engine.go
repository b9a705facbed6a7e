// Package dudosrv hosts the room directory and routes client commands
// to their rooms. The engine owns every room's lifecycle: creation on
// first login, persistence after every mutation, destruction on game
// over, emptied lobby or idle expiry.
package dudosrv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	gamedb "github.com/dudo-games/dudo/internal/database/gamestate/database"
	statdb "github.com/dudo-games/dudo/internal/database/stat/database"
	statmodel "github.com/dudo-games/dudo/internal/database/stat/model"
	"github.com/dudo-games/dudo/internal/dudosrv/room"
	"github.com/dudo-games/dudo/internal/dudosrv/stats"
	"github.com/dudo-games/dudo/internal/logging"
)

type Engine struct {
	mtx sync.Mutex

	cfg *Config
	pub Publisher

	rooms map[string]*room.Room

	stateDB *gamedb.DB
	statDB  *statdb.DB
	agg     *stats.Aggregator
}

func NewEngine(cfg *Config, pub Publisher, stateDB *gamedb.DB, statDB *statdb.DB) *Engine {
	return &Engine{
		cfg:     cfg,
		pub:     pub,
		rooms:   map[string]*room.Room{},
		stateDB: stateDB,
		statDB:  statDB,
		agg:     stats.NewAggregator(),
	}
}

// Load restores rooms persisted by a previous run and rebuilds the
// statistics aggregates. Entries that expired while the process was
// down, or that fail validation, are deleted rather than restored.
func (e *Engine) Load(ctx context.Context) error {
	logger := logging.FromContext(ctx)

	docs, err := e.stateDB.FetchAll()
	if err != nil && !errors.Is(err, gamedb.ErrEntryNotFound) {
		return fmt.Errorf("fetch games: %w", err)
	}

	for _, doc := range docs {
		if time.Since(time.Unix(doc.LastEvent, 0)) > e.cfg.RoomExpiry {
			logger.Infof("dropping expired room %s", doc.UUID)
			if err := e.stateDB.Delete(doc.UUID); err != nil {
				return fmt.Errorf("delete expired room: %w", err)
			}
			continue
		}

		r, err := room.FromSnapshot(doc, logger)
		if err != nil {
			logger.Warnf("dropping invalid room %s: %v", doc.UUID, err)
			if err := e.stateDB.Delete(doc.UUID); err != nil {
				return fmt.Errorf("delete invalid room: %w", err)
			}
			continue
		}
		e.rooms[r.ID()] = r
	}
	logger.Infof("restored %d rooms", len(e.rooms))

	records, err := e.statDB.FetchAll()
	if err != nil && !errors.Is(err, statdb.ErrNotFound) {
		return fmt.Errorf("fetch statistics: %w", err)
	}
	e.agg.Replay(records)

	return e.publishStats(ctx)
}

// Handle applies one client command. Bad input is dropped, never
// fatal; storage failures are the only errors surfaced.
func (e *Engine) Handle(ctx context.Context, cmd Command) error {
	logger := logging.FromContext(ctx)

	if _, err := uuid.Parse(cmd.RoomID); err != nil {
		logger.Debugf("dropping command with bad room id %q", cmd.RoomID)
		return nil
	}

	var p commandPayload
	if len(cmd.Payload) > 0 {
		if err := json.Unmarshal(cmd.Payload, &p); err != nil {
			logger.Debugf("room %s: dropping unparseable %s", cmd.RoomID, cmd.Verb)
			return nil
		}
	}
	if p.UUID != "" {
		if _, err := uuid.Parse(p.UUID); err != nil {
			logger.Debugf("room %s: dropping %s with bad player id", cmd.RoomID, cmd.Verb)
			return nil
		}
	}
	// A rejected login must not leave an empty room behind.
	if cmd.Verb == VerbLogin && (p.UUID == "" || p.Name == "" || len(p.Name) > room.MaxNameLen) {
		logger.Debugf("room %s: dropping login with bad claim", cmd.RoomID)
		return nil
	}

	// Starting a game is a natural moment to reclaim abandoned rooms
	// between timer sweeps.
	if cmd.Verb == VerbStartGame {
		if err := e.Sweep(ctx, time.Now()); err != nil {
			return err
		}
	}

	r, ok := e.room(ctx, cmd)
	if !ok {
		return nil
	}

	r.Lock()
	if _, closed := r.Closed(); closed {
		r.Unlock()
		return nil
	}

	if err := e.dispatch(r, cmd, p); err != nil {
		logger.Debugf("room %s: %s rejected: %v", cmd.RoomID, cmd.Verb, err)
	}
	r.Touch(time.Now())

	events := r.TakeEvents()
	reason, closed := r.Closed()
	var snapshot func() error
	if !closed {
		doc := r.Snapshot()
		snapshot = func() error { return e.stateDB.Upsert(doc) }
	}
	r.Unlock()

	if err := e.publishEvents(cmd.RoomID, events); err != nil {
		return err
	}

	if closed {
		return e.finalize(ctx, r, reason)
	}
	return snapshot()
}

// room finds the addressed room, creating it when the command is the
// first login of a fresh room id.
func (e *Engine) room(ctx context.Context, cmd Command) (*room.Room, bool) {
	e.mtx.Lock()
	defer e.mtx.Unlock()

	r, ok := e.rooms[cmd.RoomID]
	if !ok {
		if cmd.Verb != VerbLogin {
			return nil, false
		}
		r = room.New(cmd.RoomID, logging.FromContext(ctx))
		e.rooms[cmd.RoomID] = r
	}
	return r, true
}

func (e *Engine) dispatch(r *room.Room, cmd Command, p commandPayload) error {
	switch cmd.Verb {
	case VerbLogin:
		if p.UUID == "" || p.Name == "" || len(p.Name) > room.MaxNameLen {
			return room.ErrValidation
		}
		return r.Login(cmd.ConnID, p.UUID, p.Name)
	case VerbLogout:
		return r.Logout(p.UUID)
	case VerbStartGame:
		return r.StartGame(cmd.ConnID, p.UUID)
	case VerbLeaveGame:
		return r.LeaveGame(cmd.ConnID, p.UUID)
	case VerbKickPlayer:
		return r.KickPlayer(cmd.ConnID, p.Kick)
	case VerbSetOption:
		return r.SetOption(cmd.ConnID, p.UUID, p.Option, p.Value)
	case VerbRollDice:
		return r.RollDice(cmd.ConnID, p.UUID)
	case VerbDudo:
		return r.CallDudo(cmd.ConnID, p.UUID)
	case VerbCalza:
		return r.CallCalza(cmd.ConnID, p.UUID)
	case VerbLost:
		return r.ReportLost(cmd.ConnID, p.UUID)
	case VerbWon:
		return r.ReportWon(cmd.ConnID, p.UUID)
	case VerbUndoLoser:
		return r.UndoLoser(cmd.ConnID, p.UUID)
	case VerbUndoWinner:
		return r.UndoWinner(cmd.ConnID, p.UUID)
	case VerbSndHigher:
		return r.PlaySound("higher")
	case VerbSndExact:
		return r.PlaySound("exact")
	default:
		return room.ErrValidation
	}
}

func (e *Engine) publishEvents(roomID string, events []room.Event) error {
	for _, ev := range events {
		var (
			body []byte
			err  error
		)
		if ev.Payload != nil {
			body, err = json.Marshal(ev.Payload)
			if err != nil {
				return fmt.Errorf("marshal %s event: %w", ev.Suffix, err)
			}
		}
		if err := e.pub.Publish(roomID, ev.Suffix, body); err != nil {
			return fmt.Errorf("publish %s: %w", ev.Suffix, err)
		}
	}
	return nil
}

// finalize records the finished game, drops the durable document and
// removes the room from the directory.
func (e *Engine) finalize(ctx context.Context, r *room.Room, reason string) error {
	logger := logging.FromContext(ctx)

	r.Lock()
	sum := r.Summary()
	id := r.ID()
	r.Unlock()

	e.mtx.Lock()
	delete(e.rooms, id)
	e.mtx.Unlock()

	// A lobby that emptied out never was a game; drop its document
	// without touching the statistics.
	if sum.Players == 0 {
		if err := e.stateDB.Delete(id); err != nil {
			return fmt.Errorf("delete game document: %w", err)
		}
		logger.Infof("room %s finalized (%s)", id, reason)
		return nil
	}

	rec := statmodel.NewFinishedGame(sum.Players, reason)
	rec.Round = sum.Round
	rec.DudoSuccess = sum.DudoSuccess
	rec.DudoFail = sum.DudoFail
	rec.CalzaSuccess = sum.CalzaSuccess
	rec.CalzaFail = sum.CalzaFail
	rec.MaxDice = sum.Options.MaxDice
	rec.MaxDiceValue = sum.Options.MaxDiceValue
	rec.AllowCalza = sum.Options.AllowCalza
	rec.LosersSeeDice = sum.Options.LosersSeeDice
	rec.ShowResultsTable = sum.Options.ShowResultsTable
	rec.RandomMaxDiceValue = sum.Options.RandomMaxDiceValue
	rec.DiceTotals = sum.DiceTotals
	if !sum.StartTime.IsZero() {
		rec.StartTime = sum.StartTime.UTC().Format(time.RFC3339)
		rec.Duration = int64(time.Since(sum.StartTime).Seconds())
	}

	if err := e.statDB.Add(rec); err != nil {
		return fmt.Errorf("record finished game: %w", err)
	}
	e.agg.Observe(rec)

	if err := e.stateDB.Delete(id); err != nil {
		return fmt.Errorf("delete game document: %w", err)
	}

	logger.Infof("room %s finalized (%s)", id, reason)
	return e.publishStats(ctx)
}

func (e *Engine) publishStats(ctx context.Context) error {
	body, err := json.Marshal(e.agg.Snapshot())
	if err != nil {
		return fmt.Errorf("marshal statistics: %w", err)
	}
	if err := e.pub.PublishStats(body); err != nil {
		return fmt.Errorf("publish statistics: %w", err)
	}
	return nil
}

// Sweep destroys rooms idle for longer than the configured expiry.
func (e *Engine) Sweep(ctx context.Context, now time.Time) error {
	e.mtx.Lock()
	var expired []*room.Room
	for _, r := range e.rooms {
		r.Lock()
		if now.Sub(r.LastEvent()) > e.cfg.RoomExpiry {
			if _, closed := r.Closed(); !closed {
				r.Expire()
				expired = append(expired, r)
			}
		}
		r.Unlock()
	}
	e.mtx.Unlock()

	for _, r := range expired {
		r.Lock()
		events := r.TakeEvents()
		r.Unlock()
		if err := e.publishEvents(r.ID(), events); err != nil {
			return err
		}
		if err := e.finalize(ctx, r, room.ReasonExpire); err != nil {
			return err
		}
	}
	return nil
}

// Shutdown persists every open room and closes them without recording
// outcomes; a restarted process restores them from the documents.
func (e *Engine) Shutdown(ctx context.Context) error {
	logger := logging.FromContext(ctx)

	e.mtx.Lock()
	defer e.mtx.Unlock()

	for id, r := range e.rooms {
		r.Lock()
		doc := r.Snapshot()
		r.Unlock()
		if err := e.stateDB.Upsert(doc); err != nil {
			return fmt.Errorf("persist room %s: %w", id, err)
		}
	}
	logger.Infof("persisted %d rooms", len(e.rooms))
	return nil
}
