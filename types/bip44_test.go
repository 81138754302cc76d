package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBIP44PathValidate(t *testing.T) {
	valid := []BIP44Path{
		{0, 0, 0},
		{0, 1, 0},
		{5, 0, 17},
		{1 << 20, 1, 1 << 20},
	}
	for _, p := range valid {
		assert.NoError(t, p.Validate(), "%+v", p)
	}

	invalid := []BIP44Path{
		{-1, 0, 0},
		{0, 2, 0},
		{0, -1, 0},
		{0, 0, -1},
		{-3, 5, -7},
	}
	for _, p := range invalid {
		err := p.Validate()
		require.Error(t, err, "%+v", p)
		assert.True(t, errors.Is(err, ErrValidation), "%+v: %v", p, err)
	}
}

func TestBIP44PathValidate_Exhaustive(t *testing.T) {
	for account := -2; account <= 2; account++ {
		for change := -2; change <= 3; change++ {
			for index := -2; index <= 2; index++ {
				p := BIP44Path{account, change, index}
				ok := account >= 0 && (change == 0 || change == 1) && index >= 0
				err := p.Validate()
				if ok {
					assert.NoError(t, err, "%+v", p)
				} else {
					assert.ErrorIs(t, err, ErrValidation, "%+v", p)
				}
			}
		}
	}
}

func TestParseBIP44Path(t *testing.T) {
	coinType, path, err := ParseBIP44Path("m/44'/118'/2'/1/9")
	require.NoError(t, err)
	assert.Equal(t, 118, coinType)
	assert.Equal(t, BIP44Path{Account: 2, Change: 1, AddressIndex: 9}, path)
	assert.Equal(t, "m/44'/118'/2'/1/9", path.String(coinType))

	for _, bad := range []string{"", "m/44'/118'/0'/0", "m/49'/0'/0'/0/0", "m/44/118/0/0/0", "m/44'/x'/0'/0/0"} {
		_, _, err := ParseBIP44Path(bad)
		assert.ErrorIs(t, err, ErrValidation, bad)
	}
}

func TestBIP44PathFrom(t *testing.T) {
	p, ok := BIP44PathFrom(map[string]any{"account": float64(1), "change": float64(0), "addressIndex": float64(3)})
	require.True(t, ok)
	assert.Equal(t, BIP44Path{1, 0, 3}, p)

	_, ok = BIP44PathFrom(map[string]any{"account": 1.5, "change": 0, "addressIndex": 0})
	assert.False(t, ok)
	_, ok = BIP44PathFrom("m/44'/118'/0'/0/0")
	assert.False(t, ok)
}
