// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package state

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/database/memdb"
	"github.com/luxfi/ids"

	"github.com/luxfi/vault/types"
)

func TestPaused(t *testing.T) {
	require := require.New(t)

	s := New(memdb.New())
	vault := ids.ShortID{1}

	paused, err := s.GetPaused(vault)
	require.NoError(err)
	require.False(paused)

	require.NoError(s.PutPaused(vault, true))
	paused, err = s.GetPaused(vault)
	require.NoError(err)
	require.True(paused)

	// Flags are per vault.
	paused, err = s.GetPaused(ids.ShortID{2})
	require.NoError(err)
	require.False(paused)

	require.NoError(s.PutPaused(vault, false))
	paused, err = s.GetPaused(vault)
	require.NoError(err)
	require.False(paused)
}

func TestPendingAmount(t *testing.T) {
	require := require.New(t)

	s := New(memdb.New())
	vault := ids.ShortID{1}

	got, err := s.GetPendingAmount(vault, 5, types.FreezeDeposit)
	require.NoError(err)
	require.Equal(int64(0), got.Int64())

	require.NoError(s.PutPendingAmount(vault, 5, types.FreezeDeposit, big.NewInt(123)))
	got, err = s.GetPendingAmount(vault, 5, types.FreezeDeposit)
	require.NoError(err)
	require.Equal(int64(123), got.Int64())

	// The freeze types key independently.
	got, err = s.GetPendingAmount(vault, 5, types.FreezeWithdrawal)
	require.NoError(err)
	require.Equal(int64(0), got.Int64())

	// A zero write deletes the entry.
	require.NoError(s.PutPendingAmount(vault, 5, types.FreezeDeposit, big.NewInt(0)))
	got, err = s.GetPendingAmount(vault, 5, types.FreezeDeposit)
	require.NoError(err)
	require.Equal(int64(0), got.Int64())
}

func TestForEachPendingAmount(t *testing.T) {
	require := require.New(t)

	s := New(memdb.New())
	vault := ids.ShortID{1}
	other := ids.ShortID{2}

	require.NoError(s.PutPendingAmount(vault, 1, types.FreezeDeposit, big.NewInt(10)))
	require.NoError(s.PutPendingAmount(vault, 2, types.FreezeWithdrawal, big.NewInt(20)))
	require.NoError(s.PutPendingAmount(other, 3, types.FreezeDeposit, big.NewInt(30)))

	type entry struct {
		acct   types.AccountNumber
		ft     types.FreezeType
		amount int64
	}
	var visited []entry
	require.NoError(s.ForEachPendingAmount(vault, func(
		acct types.AccountNumber,
		ft types.FreezeType,
		amount *big.Int,
	) {
		visited = append(visited, entry{acct, ft, amount.Int64()})
	}))

	// Only this vault's entries are visited.
	require.Len(visited, 2)
	require.Contains(visited, entry{1, types.FreezeDeposit, 10})
	require.Contains(visited, entry{2, types.FreezeWithdrawal, 20})
}

func TestVaultStoreBackend(t *testing.T) {
	require := require.New(t)

	s := New(memdb.New())
	vault := ids.ShortID{7}
	backend := s.ForVault(vault)

	require.NoError(backend.PutPaused(true))
	paused, err := s.GetPaused(vault)
	require.NoError(err)
	require.True(paused)

	require.NoError(backend.PutPendingAmount(4, types.FreezeWithdrawal, big.NewInt(99)))
	got, err := s.GetPendingAmount(vault, 4, types.FreezeWithdrawal)
	require.NoError(err)
	require.Equal(int64(99), got.Int64())
}
