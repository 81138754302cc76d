package privatekey

import (
	"encoding/hex"
	"fmt"

	"wallet/backend"
	"wallet/types"
	"wallet/utils"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// SensitivePrivateKey is the sensitive field holding the hex key.
const SensitivePrivateKey = "privateKey"

var _ backend.PrivateKeyCreator = (*Backend)(nil)

// Backend signs with a single imported secp256k1 key. The coin type does
// not change the key.
type Backend struct {
	decrypter backend.SecretDecrypter
}

func New(decrypter backend.SecretDecrypter) *Backend {
	return &Backend{decrypter: decrypter}
}

func (b *Backend) Type() types.KeyRingType {
	return types.KeyRingPrivateKey
}

func (b *Backend) SupportsSigning() bool {
	return true
}

// CreatePrivateKeyVault checks the key and stores it hex encoded.
func (b *Backend) CreatePrivateKeyVault(privateKey []byte) (*types.VaultData, error) {
	priv, err := utils.ParsePrivateKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, types.ErrValidation)
	}
	return &types.VaultData{
		Insensitive: types.PlainObject{
			"publicKey": utils.PubKeyOf(priv).Hex(),
		},
		Sensitive: types.PlainObject{
			SensitivePrivateKey: hex.EncodeToString(privateKey),
		},
	}, nil
}

func (b *Backend) GetPubKey(vault *types.Vault, _ int) (*utils.PubKey, error) {
	priv, err := b.privateKey(vault)
	if err != nil {
		return nil, err
	}
	return utils.PubKeyOf(priv), nil
}

func (b *Backend) Sign(vault *types.Vault, _ int, data []byte, digest types.DigestMethod) (*types.Signature, error) {
	priv, err := b.privateKey(vault)
	if err != nil {
		return nil, err
	}
	return utils.SignData(priv, data, digest)
}

func (b *Backend) privateKey(vault *types.Vault) (*secp256k1.PrivateKey, error) {
	sensitive, err := b.decrypter.Decrypt(vault.Sensitive)
	if err != nil {
		return nil, err
	}
	keyHex, _ := sensitive[SensitivePrivateKey].(string)
	priv, err := utils.ParsePrivateKeyHex(keyHex)
	if err != nil {
		return nil, fmt.Errorf("vault %s: %v: %w", vault.ID, err, types.ErrValidation)
	}
	return priv, nil
}
