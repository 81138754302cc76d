package backend

import (
	"fmt"
	"sort"
	"sync"

	"wallet/types"
	"wallet/utils"
)

// Backend is the capability set every key ring kind implements.
type Backend interface {
	// Type is the keyRingType tag this backend owns.
	Type() types.KeyRingType

	// GetPubKey returns the public key of vault for coinType.
	GetPubKey(vault *types.Vault, coinType int) (*utils.PubKey, error)

	// Sign digests data and signs it with the key of vault for coinType.
	Sign(vault *types.Vault, coinType int, data []byte, digest types.DigestMethod) (*types.Signature, error)

	// SupportsSigning is false for hardware backends whose Sign always
	// returns types.ErrCapability.
	SupportsSigning() bool
}

// SecretDecrypter opens the sensitive half of a vault.
type SecretDecrypter interface {
	Decrypt(sensitive []byte) (types.PlainObject, error)
}

// MnemonicCreator materializes a seed phrase vault.
type MnemonicCreator interface {
	Backend
	CreateMnemonicVault(mnemonic string, path types.BIP44Path) (*types.VaultData, error)
}

// PrivateKeyCreator materializes a raw private key vault.
type PrivateKeyCreator interface {
	Backend
	CreatePrivateKeyVault(privateKey []byte) (*types.VaultData, error)
}

// LedgerCreator materializes a ledger vault.
type LedgerCreator interface {
	Backend
	CreateLedgerVault(pubKey []byte, app string, path types.BIP44Path) (*types.VaultData, error)
}

// KeystoneCreator materializes a keystone vault.
type KeystoneCreator interface {
	Backend
	CreateKeystoneVault(accounts types.KeystoneAccounts) (*types.VaultData, error)
}

// Forgetter drops cached key material of a vault.
type Forgetter interface {
	Forget(vaultID string)
	Purge()
}

// Registry resolves a vault's declared type to exactly one backend.
type Registry struct {
	mu       sync.RWMutex
	backends map[types.KeyRingType]Backend
}

// NewRegistry creates a registry holding backends.
func NewRegistry(backends ...Backend) *Registry {
	r := &Registry{backends: make(map[types.KeyRingType]Backend)}
	for _, b := range backends {
		r.Register(b)
	}
	return r
}

// Register adds or replaces the backend for b.Type().
func (r *Registry) Register(b Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[b.Type()] = b
}

// Get returns the backend for typ.
func (r *Registry) Get(typ types.KeyRingType) (Backend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.backends[typ]
	if !ok {
		return nil, fmt.Errorf("key ring type %q: %w", typ, types.ErrUnsupportedBackend)
	}
	return b, nil
}

// ForVault returns the backend owning vault.
func (r *Registry) ForVault(vault *types.Vault) (Backend, error) {
	return r.Get(vault.Type())
}

// Types lists registered backend types in sorted order.
func (r *Registry) Types() []types.KeyRingType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.KeyRingType, 0, len(r.backends))
	for t := range r.backends {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Forget tells every caching backend to drop material of vaultID.
func (r *Registry) Forget(vaultID string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, b := range r.backends {
		if f, ok := b.(Forgetter); ok {
			f.Forget(vaultID)
		}
	}
}

// Purge drops all cached key material, used on lock.
func (r *Registry) Purge() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, b := range r.backends {
		if f, ok := b.(Forgetter); ok {
			f.Purge()
		}
	}
}
