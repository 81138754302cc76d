package ledger

import (
	"encoding/hex"
	"fmt"

	"wallet/backend"
	"wallet/types"
	"wallet/utils"
)


var _ backend.LedgerCreator = (*Backend)(nil)

// Backend references keys held on a ledger device. Only public keys are
// stored; signing happens on the device.
type Backend struct{}

func New() *Backend {
	return &Backend{}
}

func (b *Backend) Type() types.KeyRingType {
	return types.KeyRingLedger
}

func (b *Backend) SupportsSigning() bool {
	return false
}

// IsKnownApp reports whether app is a ledger app the key ring understands.
func IsKnownApp(app string) bool {
	for _, a := range types.LedgerApps {
		if a == app {
			return true
		}
	}
	return false
}

// AppEntry is the insensitive value stored under an app name.
func AppEntry(pubKey []byte) types.PlainObject {
	return types.PlainObject{"pubKey": hex.EncodeToString(pubKey)}
}

// CreateLedgerVault stores pubKey under app.
func (b *Backend) CreateLedgerVault(pubKey []byte, app string, path types.BIP44Path) (*types.VaultData, error) {
	if !IsKnownApp(app) {
		return nil, fmt.Errorf("unknown ledger app %q: %w", app, types.ErrValidation)
	}
	if err := path.Validate(); err != nil {
		return nil, err
	}
	if _, err := utils.NewPubKey(pubKey); err != nil {
		return nil, fmt.Errorf("%v: %w", err, types.ErrValidation)
	}
	return &types.VaultData{
		Insensitive: types.PlainObject{
			app:                  AppEntry(pubKey),
			types.FieldBIP44Path: path.Plain(),
		},
		Sensitive: types.PlainObject{},
	}, nil
}

// GetPubKey ignores the coin type and serves the cosmos family key,
// preferring Secret, then Terra, then Cosmos. The Ethereum entry is only
// stored for the device side.
func (b *Backend) GetPubKey(vault *types.Vault, _ int) (*utils.PubKey, error) {
	app := types.LedgerAppCosmos
	if _, ok := vault.Insensitive[types.LedgerAppTerra]; ok {
		app = types.LedgerAppTerra
	}
	if _, ok := vault.Insensitive[types.LedgerAppSecret]; ok {
		app = types.LedgerAppSecret
	}

	entry, ok := vault.Insensitive[app].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("ledger is not initialized for %s: %w", app, types.ErrNotFound)
	}
	pubHex, _ := entry["pubKey"].(string)
	pub, err := utils.NewPubKeyHex(pubHex)
	if err != nil {
		return nil, fmt.Errorf("ledger %s: %v: %w", app, err, types.ErrValidation)
	}
	return pub, nil
}

// Sign always fails: ledger signatures must come from the device.
func (b *Backend) Sign(*types.Vault, int, []byte, types.DigestMethod) (*types.Signature, error) {
	return nil, fmt.Errorf("ledger can't sign in background, the signature must be provided by the device: %w", types.ErrCapability)
}
