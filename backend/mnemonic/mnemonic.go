package mnemonic

import (
	"fmt"
	"strconv"
	"strings"

	"wallet/backend"
	"wallet/logs"
	"wallet/types"
	"wallet/utils"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	lru "github.com/hashicorp/golang-lru"
)

// SensitiveMnemonic is the sensitive field holding the phrase.
const SensitiveMnemonic = "mnemonic"

var (
	_ backend.MnemonicCreator = (*Backend)(nil)
	_ backend.Forgetter       = (*Backend)(nil)
)

// Backend derives keys from a BIP39 seed phrase.
type Backend struct {
	decrypter backend.SecretDecrypter
	// vaultID/coinType -> derived private key
	cache *lru.Cache
}

// New creates the mnemonic backend. cacheSize bounds the derived-key cache.
func New(decrypter backend.SecretDecrypter, cacheSize int) (*Backend, error) {
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create derived key cache: %w", err)
	}
	return &Backend{decrypter: decrypter, cache: cache}, nil
}

func (b *Backend) Type() types.KeyRingType {
	return types.KeyRingMnemonic
}

func (b *Backend) SupportsSigning() bool {
	return true
}

// CreateMnemonicVault validates the phrase and the path.
func (b *Backend) CreateMnemonicVault(mnemonic string, path types.BIP44Path) (*types.VaultData, error) {
	if err := path.Validate(); err != nil {
		return nil, err
	}
	normalized := utils.NormalizeMnemonic(mnemonic)
	if err := utils.ValidateMnemonic(normalized); err != nil {
		return nil, err
	}
	return &types.VaultData{
		Insensitive: types.PlainObject{
			types.FieldBIP44Path: path.Plain(),
		},
		Sensitive: types.PlainObject{
			SensitiveMnemonic: normalized,
		},
	}, nil
}

func (b *Backend) GetPubKey(vault *types.Vault, coinType int) (*utils.PubKey, error) {
	priv, err := b.privateKey(vault, coinType)
	if err != nil {
		return nil, err
	}
	return utils.PubKeyOf(priv), nil
}

func (b *Backend) Sign(vault *types.Vault, coinType int, data []byte, digest types.DigestMethod) (*types.Signature, error) {
	priv, err := b.privateKey(vault, coinType)
	if err != nil {
		return nil, err
	}
	return utils.SignData(priv, data, digest)
}

func (b *Backend) privateKey(vault *types.Vault, coinType int) (*secp256k1.PrivateKey, error) {
	key := cacheKey(vault.ID, coinType)
	if cached, ok := b.cache.Get(key); ok {
		return cached.(*secp256k1.PrivateKey), nil
	}

	path, ok := types.BIP44PathFrom(vault.Insensitive[types.FieldBIP44Path])
	if !ok {
		return nil, fmt.Errorf("vault %s has no bip44 path: %w", vault.ID, types.ErrValidation)
	}

	sensitive, err := b.decrypter.Decrypt(vault.Sensitive)
	if err != nil {
		return nil, err
	}
	phrase, _ := sensitive[SensitiveMnemonic].(string)
	if phrase == "" {
		return nil, fmt.Errorf("vault %s has no mnemonic: %w", vault.ID, types.ErrValidation)
	}

	seed, err := utils.MnemonicToSeed(phrase)
	if err != nil {
		return nil, err
	}
	priv, err := utils.DeriveBIP44(seed, coinType, path)
	if err != nil {
		return nil, err
	}

	b.cache.Add(key, priv)
	logs.Trace("[mnemonic] derived key vault=%s path=%s", vault.ID, path.String(coinType))
	return priv, nil
}

// Forget drops every cached key of vaultID.
func (b *Backend) Forget(vaultID string) {
	prefix := vaultID + "/"
	for _, k := range b.cache.Keys() {
		if s, ok := k.(string); ok && strings.HasPrefix(s, prefix) {
			b.cache.Remove(k)
		}
	}
}

// Purge drops the whole cache.
func (b *Backend) Purge() {
	b.cache.Purge()
}

func cacheKey(vaultID string, coinType int) string {
	return vaultID + "/" + strconv.Itoa(coinType)
}
