// config/config.go
package config

import (
	"fmt"
	"strings"
)

// Config is the top-level configuration of a key-ring session.
type Config struct {
	Storage StorageConfig
	Vault   VaultConfig
	KeyRing KeyRingConfig
	Log     LogConfig
}

// StorageConfig configures the badger-backed KV store.
type StorageConfig struct {
	Path     string // "./data/keyring"
	InMemory bool   // false; tests use true

	ValueLogFileSize int64 // 16 << 20 (16MB)

	// Namespaces used for the new key-ring state and the legacy keystore.
	KeyRingNamespace string // "keyring-v2"
	LegacyNamespace  string // "keyring"
	VaultNamespace   string // "vault"
}

// VaultConfig holds the KDF parameters of the user password.
type VaultConfig struct {
	ScryptN      int // 1 << 15
	ScryptR      int // 8
	ScryptP      int // 1
	ScryptKeyLen int // 32
}

// KeyRingConfig holds orchestrator policy.
type KeyRingConfig struct {
	CoinTypeTag     string // "keyRing-clore-coinType"
	DefaultCoinType int    // 118
	DefaultName     string // "Wallet Account"

	// Address preview for not yet finalized vaults.
	PreviewCoinTypes []int  // [118]
	Bech32Prefix     string // "cosmos"

	DerivedKeyCacheSize int // 256
}

// LogConfig configures the logs package.
type LogConfig struct {
	Level string // "info"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Path:             "./data/keyring",
			InMemory:         false,
			ValueLogFileSize: 16 << 20,
			KeyRingNamespace: "keyring-v2",
			LegacyNamespace:  "keyring",
			VaultNamespace:   "vault",
		},
		Vault: VaultConfig{
			ScryptN:      1 << 15,
			ScryptR:      8,
			ScryptP:      1,
			ScryptKeyLen: 32,
		},
		KeyRing: KeyRingConfig{
			CoinTypeTag:         "keyRing-clore-coinType",
			DefaultCoinType:     118,
			DefaultName:         "Wallet Account",
			PreviewCoinTypes:    []int{118},
			Bech32Prefix:        "cosmos",
			DerivedKeyCacheSize: 256,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// TestConfig returns an in-memory configuration with cheap KDF parameters.
func TestConfig() *Config {
	cfg := DefaultConfig()
	cfg.Storage.InMemory = true
	cfg.Storage.Path = ""
	cfg.Vault.ScryptN = 1 << 4
	cfg.Log.Level = "warn"
	return cfg
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if !c.Storage.InMemory && strings.TrimSpace(c.Storage.Path) == "" {
		return fmt.Errorf("storage path must be set unless in-memory")
	}
	if c.Storage.KeyRingNamespace == "" || c.Storage.LegacyNamespace == "" || c.Storage.VaultNamespace == "" {
		return fmt.Errorf("storage namespaces must be non-empty")
	}
	if c.Storage.KeyRingNamespace == c.Storage.LegacyNamespace {
		return fmt.Errorf("key-ring and legacy namespaces must differ")
	}
	// scrypt requires N to be a power of two greater than 1
	if c.Vault.ScryptN <= 1 || c.Vault.ScryptN&(c.Vault.ScryptN-1) != 0 {
		return fmt.Errorf("ScryptN must be a power of two > 1")
	}
	if c.Vault.ScryptR <= 0 || c.Vault.ScryptP <= 0 {
		return fmt.Errorf("ScryptR and ScryptP must be positive")
	}
	if c.Vault.ScryptKeyLen != 32 {
		return fmt.Errorf("ScryptKeyLen must be 32")
	}
	if c.KeyRing.CoinTypeTag == "" {
		return fmt.Errorf("CoinTypeTag must be set")
	}
	if c.KeyRing.DefaultCoinType < 0 {
		return fmt.Errorf("DefaultCoinType must not be negative")
	}
	if c.KeyRing.DerivedKeyCacheSize <= 0 {
		return fmt.Errorf("DerivedKeyCacheSize must be positive")
	}
	return nil
}
