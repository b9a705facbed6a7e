// Package database persists the in-progress game documents. Each game
// lives under its own key so a single mutation rewrites one document,
// not the whole bucket.
package database

import (
	"encoding/json"
	"fmt"

	"github.com/dudo-games/dudo/internal/database"
	"github.com/dudo-games/dudo/internal/database/gamestate/model"
	bolt "go.etcd.io/bbolt"
)

const prefix = "games"

var ErrEntryNotFound = fmt.Errorf("not found")

func New(db *database.DB) *DB {
	return &DB{sDB: db}
}

type DB struct {
	sDB *database.DB
}

// FetchAll returns every stored game document. Entries that no longer
// unmarshal are skipped; the caller decides whether the rest survive
// validation.
func (db *DB) FetchAll() ([]model.Game, error) {
	var list []model.Game

	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(prefix))
		if b == nil {
			return ErrEntryNotFound
		}

		if err := b.ForEach(func(k, v []byte) error {
			var game model.Game
			if err := json.Unmarshal(v, &game); err != nil {
				return nil
			}
			list = append(list, game)
			return nil
		}); err != nil {
			return fmt.Errorf("bucket for each: %w", err)
		}

		return nil
	}); err != nil {
		return nil, fmt.Errorf("view transaction error: %w", err)
	}

	return list, nil
}

// Upsert writes the full document for one game.
func (db *DB) Upsert(m model.Game) error {
	tx, err := db.sDB.DB.Begin(true)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}

	defer tx.Rollback() // nolint

	b := tx.Bucket([]byte(prefix))
	if b == nil {
		bs, err := tx.CreateBucket([]byte(prefix))
		if err != nil {
			return fmt.Errorf("can not create bucket: %w", err)
		}
		b = bs
	}

	bytes, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	if err := b.Put([]byte(m.UUID), bytes); err != nil {
		return fmt.Errorf("put to bucket error: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}

// Delete removes a game document once its room is gone.
func (db *DB) Delete(uuid string) error {
	tx, err := db.sDB.DB.Begin(true)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}

	defer tx.Rollback() // nolint

	b := tx.Bucket([]byte(prefix))
	if b == nil {
		return tx.Commit()
	}

	if err := b.Delete([]byte(uuid)); err != nil {
		return fmt.Errorf("delete from bucket error: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}
