package keystone

import (
	"fmt"
	"strings"

	"wallet/backend"
	"wallet/types"
	"wallet/utils"
)

var _ backend.KeystoneCreator = (*Backend)(nil)

// Backend references keys exported from a keystone device over QR codes.
type Backend struct{}

func New() *Backend {
	return &Backend{}
}

func (b *Backend) Type() types.KeyRingType {
	return types.KeyRingKeystone
}

func (b *Backend) SupportsSigning() bool {
	return false
}

// CreateKeystoneVault validates every exported key and stores the bundle.
func (b *Backend) CreateKeystoneVault(accounts types.KeystoneAccounts) (*types.VaultData, error) {
	if strings.TrimSpace(accounts.MasterFingerprint) == "" {
		return nil, fmt.Errorf("keystone master fingerprint is empty: %w", types.ErrValidation)
	}
	if len(accounts.Keys) == 0 {
		return nil, fmt.Errorf("keystone exported no keys: %w", types.ErrValidation)
	}
	for _, key := range accounts.Keys {
		_, path, err := types.ParseBIP44Path(key.Path)
		if err != nil {
			return nil, err
		}
		if err := path.Validate(); err != nil {
			return nil, err
		}
		if _, err := utils.NewPubKeyHex(key.PubKey); err != nil {
			return nil, fmt.Errorf("keystone key %s: %v: %w", key.Path, err, types.ErrValidation)
		}
	}

	bundle, err := types.ToPlain(accounts)
	if err != nil {
		return nil, err
	}
	return &types.VaultData{
		Insensitive: types.PlainObject{
			types.FieldKeystone: bundle,
		},
		Sensitive: types.PlainObject{},
	}, nil
}

// GetPubKey returns the first exported key whose path uses coinType.
func (b *Backend) GetPubKey(vault *types.Vault, coinType int) (*utils.PubKey, error) {
	var accounts types.KeystoneAccounts
	if err := types.FromPlain(vault.Insensitive[types.FieldKeystone], &accounts); err != nil {
		return nil, fmt.Errorf("vault %s: %v: %w", vault.ID, err, types.ErrValidation)
	}
	for _, key := range accounts.Keys {
		ct, _, err := types.ParseBIP44Path(key.Path)
		if err != nil || ct != coinType {
			continue
		}
		return utils.NewPubKeyHex(key.PubKey)
	}
	return nil, fmt.Errorf("keystone has no key for coin type %d: %w", coinType, types.ErrNotFound)
}

// Sign always fails: keystone signs on the device through QR codes.
func (b *Backend) Sign(*types.Vault, int, []byte, types.DigestMethod) (*types.Signature, error) {
	return nil, fmt.Errorf("keystone signs on the device via QR code: %w", types.ErrCapability)
}
