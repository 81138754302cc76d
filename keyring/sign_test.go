package keyring

import (
	"strings"
	"testing"

	"wallet/backend/mnemonic"
	"wallet/config"
	"wallet/types"
	"wallet/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// addUnfinalizedMnemonic stores a mnemonic vault without a coin type tag, as
// written by builds that did not stamp one at creation.
func addUnfinalizedMnemonic(t *testing.T, s *Session) string {
	t.Helper()
	id, err := s.Vault.AddVault(types.CategoryKeyRing, types.PlainObject{
		types.FieldKeyRingType: string(types.KeyRingMnemonic),
		types.FieldKeyRingName: "unfinalized",
		types.FieldBIP44Path:   types.DefaultBIP44Path.Plain(),
	}, types.PlainObject{mnemonic.SensitiveMnemonic: testMnemonic})
	require.NoError(t, err)
	return id
}

func TestSignFinalizesCoinTypeOnce(t *testing.T) {
	s := newTestSession(t)
	tag := config.TestConfig().KeyRing.CoinTypeTag

	// a fresh vault already carries the tag, so signing changes nothing
	fresh := createMnemonic(t, s, "fresh")
	need, err := s.NeedKeyCoinTypeFinalize(fresh)
	require.NoError(t, err)
	assert.False(t, need)
	_, err = s.Sign(fresh, []byte("msg"), types.DigestSha256)
	require.NoError(t, err)
	need, err = s.NeedKeyCoinTypeFinalize(fresh)
	require.NoError(t, err)
	assert.False(t, need)

	id := addUnfinalizedMnemonic(t, s)
	need, err = s.NeedKeyCoinTypeFinalize(id)
	require.NoError(t, err)
	assert.True(t, need)

	_, err = s.Sign(id, []byte("msg"), types.DigestSha256)
	require.NoError(t, err)
	need, err = s.NeedKeyCoinTypeFinalize(id)
	require.NoError(t, err)
	assert.False(t, need)

	info, ok := s.GetKeyInfo(id)
	require.True(t, ok)
	ct, ok := types.IntValue(info.Insensitive[tag])
	require.True(t, ok)
	assert.Equal(t, 118, ct)

	// a second signature keeps the committed value
	_, err = s.Sign(id, []byte("again"), types.DigestKeccak256)
	require.NoError(t, err)
	assert.ErrorIs(t, s.FinalizeKeyCoinType(id, 60), types.ErrValidation)
}

func TestExplicitFinalizeChangesDerivation(t *testing.T) {
	s := newTestSession(t)
	id := addUnfinalizedMnemonic(t, s)

	require.NoError(t, s.FinalizeKeyCoinType(id, 60))
	pub, err := s.GetPubKey(id)
	require.NoError(t, err)
	assert.Equal(t, "0x9858EfFD232B4033E47d90003D41EC34EcaEda94", pub.EthAddress())

	sig, err := s.Sign(id, []byte("tx"), types.DigestKeccak256)
	require.NoError(t, err)
	assert.True(t, utils.VerifySignature(pub, []byte("tx"), types.DigestKeccak256, sig))
}

func TestLedgerSignAlwaysCapabilityError(t *testing.T) {
	s := newTestSession(t)
	ledgerID := createLedger(t, s, "ledger")
	require.NoError(t, s.AppendLedgerKeyRing(ledgerID, testPubKey(t, 3), types.LedgerAppEthereum))
	keystoneID, err := s.CreateKeystoneKeyRing(testKeystoneAccounts(t), "keystone", "")
	require.NoError(t, err)

	for _, digest := range []types.DigestMethod{types.DigestSha256, types.DigestKeccak256, "bogus"} {
		_, err := s.Sign(ledgerID, []byte("data"), digest)
		assert.ErrorIs(t, err, types.ErrCapability)
		_, err = s.Sign(keystoneID, []byte("data"), digest)
		assert.ErrorIs(t, err, types.ErrCapability)
	}

	require.NoError(t, s.SelectKeyRing(ledgerID))
	s.LockKeyRing()
	_, err = s.Sign(ledgerID, []byte("data"), types.DigestSha256)
	assert.ErrorIs(t, err, types.ErrCapability)
	_, err = s.SignSelected([]byte("data"), types.DigestSha256)
	assert.ErrorIs(t, err, types.ErrCapability)

	// a refused signature never finalizes
	require.NoError(t, s.UnlockKeyRing(testPassword))
	info, ok := s.GetKeyInfo(ledgerID)
	require.True(t, ok)
	assert.NotContains(t, info.Insensitive, config.TestConfig().KeyRing.CoinTypeTag)
}

func TestSignGates(t *testing.T) {
	s := newTestSession(t)
	id := createMnemonic(t, s, "m")

	_, err := s.Sign("missing", []byte("x"), types.DigestSha256)
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, err = s.Sign(id, []byte("x"), "md5")
	assert.ErrorIs(t, err, types.ErrValidation)

	s.LockKeyRing()
	_, err = s.Sign(id, []byte("x"), types.DigestSha256)
	assert.ErrorIs(t, err, types.ErrLocked)
	_, err = s.Sign("missing", []byte("x"), types.DigestSha256)
	assert.ErrorIs(t, err, types.ErrLocked)
	_, err = s.GetPubKey(id)
	assert.ErrorIs(t, err, types.ErrLocked)
}

func TestSignSelected(t *testing.T) {
	s := newTestSession(t)
	_, err := s.SignSelected([]byte("x"), types.DigestSha256)
	assert.ErrorIs(t, err, types.ErrNotFound)

	pkID, err := s.CreatePrivateKeyKeyRing(testPrivKey(1), nil, "pk", testPassword)
	require.NoError(t, err)
	sig, err := s.SignSelected([]byte("x"), types.DigestKeccak256)
	require.NoError(t, err)
	require.NotNil(t, sig.V)

	pub, err := s.GetPubKey(pkID)
	require.NoError(t, err)
	assert.Equal(t, "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf", pub.EthAddress())
	assert.True(t, utils.VerifySignature(pub, []byte("x"), types.DigestKeccak256, sig))

	need, err := s.NeedKeyCoinTypeFinalize(pkID)
	require.NoError(t, err)
	assert.False(t, need)
}

func TestGetPubKeyWithNotFinalizedCoinType(t *testing.T) {
	s := newTestSession(t)
	id := createMnemonic(t, s, "m")

	// usable after finalization for previews
	eth, err := s.GetPubKeyWithNotFinalizedCoinType(id, 60)
	require.NoError(t, err)
	assert.Equal(t, "0x9858EfFD232B4033E47d90003D41EC34EcaEda94", eth.EthAddress())

	cosmos, err := s.GetPubKey(id)
	require.NoError(t, err)
	addr, err := cosmos.Bech32Address("cosmos")
	require.NoError(t, err)
	assert.Equal(t, "cosmos19rl4cm2hmr8afy4kldpxz3fka4jguq0auqdal4", addr)

	ledgerID := createLedger(t, s, "l")
	_, err = s.GetPubKeyWithNotFinalizedCoinType(ledgerID, 118)
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestComputeNotFinalizedKeyAddresses(t *testing.T) {
	cfg := config.TestConfig()
	cfg.KeyRing.PreviewCoinTypes = []int{118, 60}
	s := newTestSessionWith(t, cfg)
	id := createMnemonic(t, s, "m")

	addrs, err := s.ComputeNotFinalizedKeyAddresses(id)
	require.NoError(t, err)
	require.Len(t, addrs, 2)
	assert.Equal(t, 118, addrs[0].CoinType)
	assert.Equal(t, "cosmos19rl4cm2hmr8afy4kldpxz3fka4jguq0auqdal4", addrs[0].Bech32Address)
	assert.Equal(t, 60, addrs[1].CoinType)
	assert.Equal(t, "0x9858EfFD232B4033E47d90003D41EC34EcaEda94", addrs[1].EthereumAddress)

	// failures are skipped, not returned
	ledgerID := createLedger(t, s, "l")
	addrs, err = s.ComputeNotFinalizedKeyAddresses(ledgerID)
	require.NoError(t, err)
	assert.Empty(t, addrs)
}

func TestGetKeyAddressUsesConfiguredPrefix(t *testing.T) {
	cfg := config.TestConfig()
	cfg.KeyRing.Bech32Prefix = "terra"
	s := newTestSessionWith(t, cfg)
	id := createMnemonic(t, s, "m")

	pub, err := s.GetPubKey(id)
	require.NoError(t, err)
	want, err := pub.Bech32Address("terra")
	require.NoError(t, err)

	addr, err := s.GetKeyAddress(id)
	require.NoError(t, err)
	assert.Equal(t, pub.Hex(), addr.PubKey)
	assert.Equal(t, want, addr.Bech32Address)
	assert.True(t, strings.HasPrefix(addr.Bech32Address, "terra1"))

	preview, err := s.GetKeyAddressWithNotFinalizedCoinType(id, 60)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(preview.Bech32Address, "terra1"))
	assert.Equal(t, "0x9858EfFD232B4033E47d90003D41EC34EcaEda94", preview.EthereumAddress)

	// hardware keys have no coin type to finalize but still resolve
	ledgerID := createLedger(t, s, "l")
	addr, err = s.GetKeyAddress(ledgerID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(addr.Bech32Address, "terra1"))

	s.LockKeyRing()
	_, err = s.GetKeyAddress(id)
	assert.ErrorIs(t, err, types.ErrLocked)
}

func TestLockPurgesDerivedKeys(t *testing.T) {
	s := newTestSession(t)
	id := createMnemonic(t, s, "m")
	_, err := s.GetPubKey(id)
	require.NoError(t, err)

	s.LockKeyRing()
	require.NoError(t, s.UnlockKeyRing(testPassword))
	_, err = s.GetPubKey(id)
	require.NoError(t, err)

	// a locked vault cannot be read through the cache either
	s.LockKeyRing()
	_, err = s.GetPubKeyWithNotFinalizedCoinType(id, 60)
	assert.ErrorIs(t, err, types.ErrLocked)
}
