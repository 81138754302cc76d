package keyring

import (
	"encoding/hex"
	"testing"

	"wallet/config"
	"wallet/legacy"
	"wallet/types"
	"wallet/utils"

	"github.com/stretchr/testify/require"
)

const (
	testPassword = "password"
	testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	return newTestSessionWith(t, config.TestConfig())
}

func newTestSessionWith(t *testing.T, cfg *config.Config) *Session {
	t.Helper()
	s, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func testPrivKey(last byte) []byte {
	k := make([]byte, 32)
	k[31] = last
	return k
}

func testPubKey(t *testing.T, last byte) []byte {
	t.Helper()
	priv, err := utils.ParsePrivateKey(testPrivKey(last))
	require.NoError(t, err)
	return utils.PubKeyOf(priv).Bytes()
}

func testKeystoneAccounts(t *testing.T) types.KeystoneAccounts {
	t.Helper()
	return types.KeystoneAccounts{
		MasterFingerprint: "f23f9fd2",
		Keys: []types.KeystoneKey{
			{Chain: "ATOM", Path: "m/44'/118'/0'/0/0", PubKey: hex.EncodeToString(testPubKey(t, 5))},
		},
	}
}

func createMnemonic(t *testing.T, s *Session, name string) string {
	t.Helper()
	id, err := s.CreateMnemonicKeyRing(testMnemonic, types.DefaultBIP44Path, name, testPassword)
	require.NoError(t, err)
	return id
}

func createLedger(t *testing.T, s *Session, name string) string {
	t.Helper()
	id, err := s.CreateLedgerKeyRing(testPubKey(t, 2), types.LedgerAppCosmos, types.DefaultBIP44Path, name, testPassword)
	require.NoError(t, err)
	return id
}

// legacyEntry encrypts text with password into a legacy keystore.
func legacyEntry(t *testing.T, typ, id, text, password string, extraMeta map[string]string) legacy.KeyStore {
	t.Helper()
	meta := map[string]string{legacy.MetaID: id, legacy.MetaName: "legacy " + id}
	for k, v := range extraMeta {
		meta[k] = v
	}
	ks, err := legacy.Encrypt(legacy.ScryptCrypto{}, typ, []byte(text), password, meta, legacy.EncryptOptions{N: 1 << 4})
	require.NoError(t, err)
	return *ks
}

// seedLegacy writes the legacy store and re-runs Init so the pending
// migration is detected.
func seedLegacy(t *testing.T, s *Session, list []legacy.KeyStore, selected *legacy.KeyStore) {
	t.Helper()
	require.NoError(t, legacy.SaveKeyStores(s.LegacyStore, list, selected))
	require.NoError(t, s.Init())
}
