package keyring

import (
	"fmt"

	"wallet/backend"
	"wallet/backend/keystone"
	"wallet/backend/ledger"
	"wallet/backend/mnemonic"
	"wallet/backend/privatekey"
	"wallet/config"
	"wallet/db"
	"wallet/legacy"
	"wallet/logs"
	"wallet/vault"
)

// NewDefaultRegistry registers the four built-in backends.
func NewDefaultRegistry(decrypter backend.SecretDecrypter, cfg config.KeyRingConfig) (*backend.Registry, error) {
	mn, err := mnemonic.New(decrypter, cfg.DerivedKeyCacheSize)
	if err != nil {
		return nil, err
	}
	return backend.NewRegistry(
		mn,
		privatekey.New(decrypter),
		ledger.New(),
		keystone.New(),
	), nil
}

// Session owns the store, the vault service and the key ring service of one
// running application.
type Session struct {
	*Service

	DB          *db.Manager
	Vault       *vault.Service
	LegacyStore *db.Namespace
}

// Open builds and initializes a session from cfg.
func Open(cfg *config.Config) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	logs.SetLevel(logs.ParseLevel(cfg.Log.Level))

	mgr, err := db.NewManager(cfg.Storage)
	if err != nil {
		return nil, err
	}
	vaultSvc, err := vault.New(db.NewNamespace(mgr, cfg.Storage.VaultNamespace), cfg.Vault)
	if err != nil {
		mgr.Close()
		return nil, err
	}
	registry, err := NewDefaultRegistry(vaultSvc, cfg.KeyRing)
	if err != nil {
		mgr.Close()
		return nil, err
	}
	legacyStore := db.NewNamespace(mgr, cfg.Storage.LegacyNamespace)
	svc := NewService(
		cfg.KeyRing,
		vaultSvc,
		db.NewNamespace(mgr, cfg.Storage.KeyRingNamespace),
		legacyStore,
		legacy.ScryptCrypto{},
		registry,
	)
	if err := svc.Init(); err != nil {
		mgr.Close()
		return nil, err
	}
	return &Session{Service: svc, DB: mgr, Vault: vaultSvc, LegacyStore: legacyStore}, nil
}

// Close locks the key ring and closes the store.
func (s *Session) Close() {
	s.LockKeyRing()
	s.DB.Close()
}
