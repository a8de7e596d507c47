// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package state persists per-vault guard state (pause flag, pending amounts)
// so vaults survive restarts.
package state

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/luxfi/database"
	"github.com/luxfi/ids"

	"github.com/luxfi/vault/types"
)

var (
	prefixPaused  = []byte("paused:")
	prefixPending = []byte("pending:")
)

// Store persists guard state for every vault in one database.
type Store struct {
	db database.Database
}

// New creates a store over db.
func New(db database.Database) *Store {
	return &Store{db: db}
}

func pausedKey(vault ids.ShortID) []byte {
	key := make([]byte, 0, len(prefixPaused)+len(vault))
	key = append(key, prefixPaused...)
	key = append(key, vault[:]...)
	return key
}

func pendingKey(vault ids.ShortID, acct types.AccountNumber, ft types.FreezeType) []byte {
	key := make([]byte, 0, len(prefixPending)+len(vault)+9)
	key = append(key, prefixPending...)
	key = append(key, vault[:]...)
	key = binary.BigEndian.AppendUint64(key, uint64(acct))
	key = append(key, byte(ft))
	return key
}

// PutPaused persists the pause flag for a vault.
func (s *Store) PutPaused(vault ids.ShortID, paused bool) error {
	v := []byte{0}
	if paused {
		v[0] = 1
	}
	return s.db.Put(pausedKey(vault), v)
}

// GetPaused loads the pause flag for a vault, defaulting to false.
func (s *Store) GetPaused(vault ids.ShortID) (bool, error) {
	v, err := s.db.Get(pausedKey(vault))
	if errors.Is(err, database.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load pause flag: %w", err)
	}
	return len(v) == 1 && v[0] == 1, nil
}

// PutPendingAmount persists one pending amount. A zero amount deletes the
// entry.
func (s *Store) PutPendingAmount(
	vault ids.ShortID,
	acct types.AccountNumber,
	ft types.FreezeType,
	amount *big.Int,
) error {
	key := pendingKey(vault, acct, ft)
	if amount == nil || amount.Sign() == 0 {
		return s.db.Delete(key)
	}
	return s.db.Put(key, amount.Bytes())
}

// GetPendingAmount loads one pending amount, defaulting to zero.
func (s *Store) GetPendingAmount(
	vault ids.ShortID,
	acct types.AccountNumber,
	ft types.FreezeType,
) (*big.Int, error) {
	v, err := s.db.Get(pendingKey(vault, acct, ft))
	if errors.Is(err, database.ErrNotFound) {
		return big.NewInt(0), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load pending amount: %w", err)
	}
	return new(big.Int).SetBytes(v), nil
}

// ForEachPendingAmount visits every persisted pending amount of one vault.
func (s *Store) ForEachPendingAmount(
	vault ids.ShortID,
	fn func(acct types.AccountNumber, ft types.FreezeType, amount *big.Int),
) error {
	prefix := make([]byte, 0, len(prefixPending)+len(vault))
	prefix = append(prefix, prefixPending...)
	prefix = append(prefix, vault[:]...)

	iter := s.db.NewIteratorWithPrefix(prefix)
	defer iter.Release()

	for iter.Next() {
		suffix := iter.Key()[len(prefix):]
		if len(suffix) != 9 {
			continue
		}
		acct := types.AccountNumber(binary.BigEndian.Uint64(suffix[:8]))
		ft := types.FreezeType(suffix[8])
		fn(acct, ft, new(big.Int).SetBytes(iter.Value()))
	}
	return iter.Error()
}

// VaultStore is a Store bound to one vault, satisfying the guard backend.
type VaultStore struct {
	store *Store
	vault ids.ShortID
}

// ForVault binds the store to one vault identity.
func (s *Store) ForVault(vault ids.ShortID) *VaultStore {
	return &VaultStore{store: s, vault: vault}
}

func (v *VaultStore) PutPaused(paused bool) error {
	return v.store.PutPaused(v.vault, paused)
}

func (v *VaultStore) PutPendingAmount(
	acct types.AccountNumber,
	ft types.FreezeType,
	amount *big.Int,
) error {
	return v.store.PutPendingAmount(v.vault, acct, ft, amount)
}
