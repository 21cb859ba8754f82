// Package snapshot persists full ledger exports in a badger key-value
// store so the ledger's state, and with it every invariant, survives a
// restart.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"socialnet/ledger"
)

var stateKey = []byte("ledger_state")

// ErrNoSnapshot is returned by Load when the store is empty.
var ErrNoSnapshot = errors.New("no snapshot stored")

type Store struct {
	db *badger.DB
}

func NewStore(path string) (*Store, error) {
	options := badger.DefaultOptions(path)
	options.Logger = nil
	db, err := badger.Open(options)
	if err != nil {
		return nil, fmt.Errorf("error opening snapshot store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save writes the exported state, replacing any previous snapshot.
func (s *Store) Save(state ledger.State) error {
	bytes, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("error encoding snapshot: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(stateKey, bytes)
	})
	if err != nil {
		return fmt.Errorf("error writing snapshot: %w", err)
	}
	return nil
}

// Load returns the last saved state.
func (s *Store) Load() (ledger.State, error) {
	var state ledger.State
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(stateKey)
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNoSnapshot
			}
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &state)
		})
	})
	if err != nil && !errors.Is(err, ErrNoSnapshot) {
		return ledger.State{}, fmt.Errorf("error reading snapshot: %w", err)
	}
	return state, err
}
