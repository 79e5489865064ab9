package persistence

import (
	"encoding/json"
	"errors"

	"binance-signal-bot-go/internal/models"

	"github.com/dgraph-io/badger/v3"
)

// stateKey is the single key the whole bot state lives under. There is one
// bot per database directory, so one key is all we need.
var stateKey = []byte("bot_state")

// badgerRepository is the BadgerDB implementation of the StateRepository.
type badgerRepository struct {
	db *badger.DB
}

// NewBadgerRepository opens (or creates) the state database at dbPath.
func NewBadgerRepository(dbPath string) (StateRepository, error) {
	opts := badger.DefaultOptions(dbPath)
	// Badger's own logging is noisy at INFO; errors still surface through
	// the returned values.
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &badgerRepository{db: db}, nil
}

// SaveState marshals the state to JSON and writes it in one transaction.
func (r *badgerRepository) SaveState(state *models.BotState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(stateKey, data)
	})
}

// LoadState reads the persisted state. A database that has never been
// written returns (nil, nil) rather than an error.
func (r *badgerRepository) LoadState() (*models.BotState, error) {
	var state models.BotState

	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(stateKey)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) == 0 {
				return errors.New("state value is empty in database")
			}
			return json.Unmarshal(val, &state)
		})
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// Close releases the database.
func (r *badgerRepository) Close() error {
	return r.db.Close()
}
