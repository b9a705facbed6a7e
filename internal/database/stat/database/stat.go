package database

import (
	"encoding/json"
	"fmt"

	"github.com/dudo-games/dudo/internal/cache"
	"github.com/dudo-games/dudo/internal/database"
	"github.com/dudo-games/dudo/internal/database/stat/model"
	bolt "go.etcd.io/bbolt"
)

const prefix = "statistics"

const cacheKey = "finished-games"

var ErrNotFound = fmt.Errorf("not found")

func New(db *database.DB, cache cache.Cache) *DB {
	return &DB{sDB: db, cache: cache}
}

type DB struct {
	sDB *database.DB

	cache cache.Cache
}

// FetchAll returns every finished-game record.
func (db *DB) FetchAll() ([]model.FinishedGame, error) {
	if db.cache != nil {
		if v, ok := db.cache.Get(cacheKey); ok {
			return v.([]model.FinishedGame), nil
		}
	}

	var list []model.FinishedGame
	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(prefix))
		if b == nil {
			return ErrNotFound
		}

		if err := b.ForEach(func(k, v []byte) error {
			var game model.FinishedGame
			if err := json.Unmarshal(v, &game); err != nil {
				return fmt.Errorf("json unmarshal error, %w", err)
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

	if db.cache != nil {
		db.cache.Add(cacheKey, list)
	}

	return list, nil
}

// Add appends one finished-game record.
func (db *DB) Add(m model.FinishedGame) error {
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

	binaryID, err := m.ID.MarshalBinary()
	if err != nil {
		return fmt.Errorf("uuid binary: %w", err)
	}

	bytes, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	if err := b.Put(binaryID, bytes); err != nil {
		return fmt.Errorf("put to bucket error: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	if db.cache != nil {
		db.cache.Delete(cacheKey)
	}

	return nil
}
