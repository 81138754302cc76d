package keyring

import (
	"sync"
	"testing"

	"wallet/config"
	"wallet/db"
	"wallet/keys"
	"wallet/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusTransitions(t *testing.T) {
	s := newTestSession(t)
	assert.Equal(t, types.StatusEmpty, s.KeyRingStatus())

	_, err := s.CreateMnemonicKeyRing(testMnemonic, types.DefaultBIP44Path, "main", "")
	assert.ErrorIs(t, err, types.ErrValidation)
	assert.False(t, s.Vault.IsSignedUp())

	id := createMnemonic(t, s, "main")
	assert.Equal(t, types.StatusUnlocked, s.KeyRingStatus())
	selected, err := s.SelectedVaultID()
	require.NoError(t, err)
	assert.Equal(t, id, selected)

	s.LockKeyRing()
	assert.Equal(t, types.StatusLocked, s.KeyRingStatus())
	assert.ErrorIs(t, s.UnlockKeyRing("wrong"), types.ErrAuth)
	require.NoError(t, s.UnlockKeyRing(testPassword))
	assert.Equal(t, types.StatusUnlocked, s.KeyRingStatus())
}

func TestCreateStampsCoinType(t *testing.T) {
	s := newTestSession(t)
	tag := config.TestConfig().KeyRing.CoinTypeTag

	mnemonicID := createMnemonic(t, s, "mnemonic")
	keystoneID, err := s.CreateKeystoneKeyRing(testKeystoneAccounts(t), "keystone", "")
	require.NoError(t, err)

	for _, id := range []string{mnemonicID, keystoneID} {
		info, ok := s.GetKeyInfo(id)
		require.True(t, ok)
		ct, ok := types.IntValue(info.Insensitive[tag])
		require.True(t, ok)
		assert.Equal(t, 118, ct)

		err := s.FinalizeKeyCoinType(id, 60)
		assert.ErrorIs(t, err, types.ErrValidation)
		assert.Contains(t, err.Error(), "already finalized")
	}

	ledgerID := createLedger(t, s, "ledger")
	pkID, err := s.CreatePrivateKeyKeyRing(testPrivKey(1), nil, "pk", "")
	require.NoError(t, err)
	for _, id := range []string{ledgerID, pkID} {
		info, ok := s.GetKeyInfo(id)
		require.True(t, ok)
		assert.NotContains(t, info.Insensitive, tag)
		assert.ErrorIs(t, s.FinalizeKeyCoinType(id, 118), types.ErrValidation)
		need, err := s.NeedKeyCoinTypeFinalize(id)
		require.NoError(t, err)
		assert.False(t, need)
	}
}

func TestCreateRejectsInvalidPath(t *testing.T) {
	s := newTestSession(t)
	bad := []types.BIP44Path{
		{Account: -1},
		{Change: 2},
		{AddressIndex: -5},
	}
	for _, path := range bad {
		_, err := s.CreateMnemonicKeyRing(testMnemonic, path, "x", testPassword)
		assert.ErrorIs(t, err, types.ErrValidation)
		_, err = s.CreateLedgerKeyRing(testPubKey(t, 2), types.LedgerAppCosmos, path, "x", testPassword)
		assert.ErrorIs(t, err, types.ErrValidation)
	}
	assert.Empty(t, s.GetKeyInfos())
}

func TestDeleteLastVaultEmptiesRing(t *testing.T) {
	s := newTestSession(t)
	id := createMnemonic(t, s, "only")

	_, err := s.DeleteKeyRing(id, "wrong")
	assert.ErrorIs(t, err, types.ErrAuth)

	wasSelected, err := s.DeleteKeyRing(id, testPassword)
	require.NoError(t, err)
	assert.True(t, wasSelected)

	assert.Equal(t, types.StatusEmpty, s.KeyRingStatus())
	assert.False(t, s.Vault.IsSignedUp())
	_, err = s.SelectedVaultID()
	assert.ErrorIs(t, err, types.ErrNotFound)

	raw, err := s.store.Get(keys.SelectedVaultID())
	require.NoError(t, err)
	assert.Nil(t, raw)

	// the ring can be set up again with a new password
	createMnemonic(t, s, "again")
	assert.Equal(t, types.StatusUnlocked, s.KeyRingStatus())
}

func TestDeleteSelectedReselects(t *testing.T) {
	s := newTestSession(t)
	first := createMnemonic(t, s, "first")
	second := createLedger(t, s, "second")
	third := createMnemonic(t, s, "third")

	selected, err := s.SelectedVaultID()
	require.NoError(t, err)
	assert.Equal(t, third, selected)

	wasSelected, err := s.DeleteKeyRing(third, testPassword)
	require.NoError(t, err)
	assert.True(t, wasSelected)

	selected, err = s.SelectedVaultID()
	require.NoError(t, err)
	assert.NotEqual(t, third, selected)
	assert.Contains(t, []string{first, second}, selected)
	info, ok := s.GetKeyInfo(selected)
	require.True(t, ok)
	assert.True(t, info.IsSelected)

	other := first
	if selected == first {
		other = second
	}
	wasSelected, err = s.DeleteKeyRing(other, testPassword)
	require.NoError(t, err)
	assert.False(t, wasSelected)
	still, err := s.SelectedVaultID()
	require.NoError(t, err)
	assert.Equal(t, selected, still)
}

func TestDeleteRequiresUnlockAndKnownVault(t *testing.T) {
	s := newTestSession(t)
	id := createMnemonic(t, s, "main")

	_, err := s.DeleteKeyRing("missing", testPassword)
	assert.ErrorIs(t, err, types.ErrNotFound)

	s.LockKeyRing()
	_, err = s.DeleteKeyRing(id, testPassword)
	assert.ErrorIs(t, err, types.ErrLocked)
}

func TestAppendLedgerKeyRing(t *testing.T) {
	s := newTestSession(t)
	id := createLedger(t, s, "ledger")

	require.NoError(t, s.AppendLedgerKeyRing(id, testPubKey(t, 3), types.LedgerAppEthereum))
	err := s.AppendLedgerKeyRing(id, testPubKey(t, 4), types.LedgerAppEthereum)
	assert.ErrorIs(t, err, types.ErrValidation)

	// the existing entry is kept
	meta, err := s.KeyRingMeta(id)
	require.NoError(t, err)
	lm, ok := meta.(types.LedgerMeta)
	require.True(t, ok)
	assert.Equal(t, testPubKey(t, 3), lm.Apps[types.LedgerAppEthereum])
	assert.Equal(t, testPubKey(t, 2), lm.Apps[types.LedgerAppCosmos])

	assert.ErrorIs(t, s.AppendLedgerKeyRing(id, testPubKey(t, 3), types.LedgerAppCosmos), types.ErrValidation)
	assert.ErrorIs(t, s.AppendLedgerKeyRing(id, testPubKey(t, 3), "Bitcoin"), types.ErrValidation)
	assert.ErrorIs(t, s.AppendLedgerKeyRing("missing", testPubKey(t, 3), types.LedgerAppTerra), types.ErrNotFound)

	mnemonicID := createMnemonic(t, s, "m")
	assert.ErrorIs(t, s.AppendLedgerKeyRing(mnemonicID, testPubKey(t, 3), types.LedgerAppTerra), types.ErrValidation)
}

func TestSelectKeyRingAndListeners(t *testing.T) {
	s := newTestSession(t)

	var seen []string
	cancel := s.Subscribe(func(id string) { seen = append(seen, id) })

	first := createMnemonic(t, s, "first")
	second := createMnemonic(t, s, "second")
	require.NoError(t, s.SelectKeyRing(first))
	assert.Equal(t, []string{first, second, first}, seen)

	assert.ErrorIs(t, s.SelectKeyRing("missing"), types.ErrNotFound)

	cancel()
	cancel()
	require.NoError(t, s.SelectKeyRing(second))
	assert.Len(t, seen, 3)

	var persisted string
	found, err := db.GetJSON(s.store, keys.SelectedVaultID(), &persisted)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, second, persisted)

	s.LockKeyRing()
	assert.ErrorIs(t, s.SelectKeyRing(first), types.ErrLocked)
}

func TestConcurrentSelectionsAgree(t *testing.T) {
	s := newTestSession(t)
	ids := []string{createMnemonic(t, s, "a"), createMnemonic(t, s, "b"), createLedger(t, s, "c")}

	var (
		mu       sync.Mutex
		lastSeen string
	)
	s.Subscribe(func(id string) {
		mu.Lock()
		lastSeen = id
		mu.Unlock()
	})

	for round := 0; round < 50; round++ {
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				assert.NoError(t, s.SelectKeyRing(id))
			}(ids[(round+i)%len(ids)])
		}
		wg.Wait()

		selected, err := s.SelectedVaultID()
		require.NoError(t, err)
		var persisted string
		found, err := db.GetJSON(s.store, keys.SelectedVaultID(), &persisted)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, selected, persisted)

		// a round may end on the value already selected, which notifies nobody
		mu.Lock()
		if lastSeen != "" {
			assert.Equal(t, selected, lastSeen)
		}
		mu.Unlock()
	}
}

func TestSelectionSurvivesRestart(t *testing.T) {
	cfg := config.TestConfig()
	cfg.Storage.InMemory = false
	cfg.Storage.Path = t.TempDir()

	s, err := Open(cfg)
	require.NoError(t, err)
	first := createMnemonic(t, s, "first")
	createLedger(t, s, "second")
	require.NoError(t, s.SelectKeyRing(first))
	s.Close()

	reopened := newTestSessionWith(t, cfg)
	assert.Equal(t, types.StatusLocked, reopened.KeyRingStatus())
	selected, err := reopened.SelectedVaultID()
	require.NoError(t, err)
	assert.Equal(t, first, selected)
	info, ok := reopened.GetKeyInfo(first)
	require.True(t, ok)
	assert.True(t, info.IsSelected)
}

func TestInitDropsDanglingSelection(t *testing.T) {
	s := newTestSession(t)
	first := createMnemonic(t, s, "first")
	createMnemonic(t, s, "second")

	require.NoError(t, db.SetJSON(s.store, keys.SelectedVaultID(), "ghost"))
	require.NoError(t, s.Init())

	for _, info := range s.GetKeyInfos() {
		assert.False(t, info.IsSelected)
	}
	selected, err := s.SelectedVaultID()
	require.NoError(t, err)
	assert.Equal(t, first, selected)
}

func TestKeyRingNames(t *testing.T) {
	s := newTestSession(t)
	id := createMnemonic(t, s, "")

	name, err := s.GetKeyRingName(id)
	require.NoError(t, err)
	assert.Equal(t, config.TestConfig().KeyRing.DefaultName, name)

	require.NoError(t, s.ChangeKeyRingName(id, "savings"))
	name, err = s.GetKeyRingNameSelected()
	require.NoError(t, err)
	assert.Equal(t, "savings", name)

	_, err = s.GetKeyRingName("missing")
	assert.ErrorIs(t, err, types.ErrNotFound)

	s.LockKeyRing()
	assert.ErrorIs(t, s.ChangeKeyRingName(id, "x"), types.ErrLocked)
}

func TestCountKeyRingsByType(t *testing.T) {
	s := newTestSession(t)
	createMnemonic(t, s, "a")
	createMnemonic(t, s, "b")
	createLedger(t, s, "c")
	_, err := s.CreatePrivateKeyKeyRing(testPrivKey(1), types.PlainObject{
		"web3Auth": types.PlainObject{"email": "a@b.c", "type": "google"},
	}, "social", "")
	require.NoError(t, err)
	_, err = s.CreatePrivateKeyKeyRing(testPrivKey(2), nil, "plain", "")
	require.NoError(t, err)

	assert.Equal(t, map[string]int{
		"keyring_mnemonic_num":         2,
		"keyring_ledger_num":           1,
		"keyring_web3_auth_google_num": 1,
		"keyring_private-key_num":      1,
	}, s.CountKeyRingsByType())
}

func TestUnsupportedBackend(t *testing.T) {
	s := newTestSession(t)
	createMnemonic(t, s, "m")
	id, err := s.Vault.AddVault(types.CategoryKeyRing, types.PlainObject{
		types.FieldKeyRingType: "trezor",
	}, types.PlainObject{})
	require.NoError(t, err)

	_, err = s.GetPubKey(id)
	assert.ErrorIs(t, err, types.ErrUnsupportedBackend)
	_, err = s.Sign(id, []byte("x"), types.DigestSha256)
	assert.ErrorIs(t, err, types.ErrUnsupportedBackend)
	_, err = s.KeyRingMeta(id)
	assert.ErrorIs(t, err, types.ErrUnsupportedBackend)
}
