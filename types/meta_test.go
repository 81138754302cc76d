package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTag = "keyRing-test-coinType"

func TestParseKeyRingMeta(t *testing.T) {
	t.Run("mnemonic", func(t *testing.T) {
		v := &Vault{ID: "a", Insensitive: PlainObject{
			FieldKeyRingType: "mnemonic",
			FieldBIP44Path:   map[string]any{"account": 1, "change": 0, "addressIndex": 2},
			testTag:          float64(118),
		}}
		meta, err := ParseKeyRingMeta(v, testTag)
		require.NoError(t, err)
		m, ok := meta.(MnemonicMeta)
		require.True(t, ok)
		assert.Equal(t, BIP44Path{1, 0, 2}, m.BIP44Path)
		require.NotNil(t, m.CoinType)
		assert.Equal(t, 118, *m.CoinType)
	})

	t.Run("private key with web3auth", func(t *testing.T) {
		v := &Vault{ID: "b", Insensitive: PlainObject{
			FieldKeyRingType: "private-key",
			FieldKeyRingMeta: map[string]any{"web3Auth": map[string]any{"email": "a@b.c", "type": "google"}},
		}}
		meta, err := ParseKeyRingMeta(v, testTag)
		require.NoError(t, err)
		m := meta.(PrivateKeyMeta)
		require.NotNil(t, m.Web3Auth)
		assert.Equal(t, "google", m.Web3Auth.Type)
		assert.Equal(t, "a@b.c", m.Web3Auth.Email)
	})

	t.Run("ledger apps", func(t *testing.T) {
		v := &Vault{ID: "c", Insensitive: PlainObject{
			FieldKeyRingType:  "ledger",
			LedgerAppCosmos:   map[string]any{"pubKey": "0102"},
			LedgerAppEthereum: map[string]any{"pubKey": "0304"},
		}}
		meta, err := ParseKeyRingMeta(v, testTag)
		require.NoError(t, err)
		m := meta.(LedgerMeta)
		assert.Equal(t, []byte{1, 2}, m.Apps[LedgerAppCosmos])
		assert.Equal(t, []byte{3, 4}, m.Apps[LedgerAppEthereum])
		assert.Equal(t, DefaultBIP44Path, m.BIP44Path)
	})

	t.Run("ledger malformed pubkey", func(t *testing.T) {
		v := &Vault{ID: "d", Insensitive: PlainObject{
			FieldKeyRingType: "ledger",
			LedgerAppCosmos:  map[string]any{"pubKey": "zz"},
		}}
		_, err := ParseKeyRingMeta(v, testTag)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("unknown type", func(t *testing.T) {
		v := &Vault{ID: "e", Insensitive: PlainObject{FieldKeyRingType: "paper"}}
		_, err := ParseKeyRingMeta(v, testTag)
		assert.ErrorIs(t, err, ErrUnsupportedBackend)
	})
}

func TestIntValue(t *testing.T) {
	n, ok := IntValue(float64(60))
	assert.True(t, ok)
	assert.Equal(t, 60, n)

	_, ok = IntValue(1.25)
	assert.False(t, ok)
	_, ok = IntValue("118")
	assert.False(t, ok)
}

func TestCloneObject(t *testing.T) {
	orig := PlainObject{"a": map[string]any{"b": []any{1, 2}}}
	cp := CloneObject(orig)
	cp["a"].(map[string]any)["b"].([]any)[0] = 9
	assert.Equal(t, 1, orig["a"].(map[string]any)["b"].([]any)[0])
}
