// interfaces/interfaces.go
package interfaces

import (
	"wallet/types"
)

// Store is a persistent key-value store. Get returns (nil, nil) when the key
// does not exist.
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

// WriteOp is the kind of a WriteTask.
type WriteOp int

const (
	OpSet WriteOp = iota
	OpDelete
)

// WriteTask is one write of an atomic batch.
type WriteTask struct {
	Key   string
	Value []byte
	Op    WriteOp
}

// KVStore can additionally list keys and apply atomic batches.
type KVStore interface {
	Store
	// Scan calls fn for every key starting with prefix, in key order.
	// Keys are passed relative to the store.
	Scan(prefix string, fn func(key string, value []byte) error) error
	// Apply writes all tasks in one transaction.
	Apply(tasks ...WriteTask) error
}

// VaultService owns encryption and persistence of vault records.
type VaultService interface {
	IsSignedUp() bool
	IsLocked() bool
	SignUp(password string) error
	Unlock(password string) error
	Lock()

	// GetVault returns nil when the vault does not exist.
	GetVault(category, id string) *types.Vault
	GetVaults(category string) []*types.Vault
	AddVault(category string, insensitive, sensitive types.PlainObject) (string, error)
	RemoveVault(category, id string) error
	SetAndMergeInsensitiveToVault(category, id string, patch types.PlainObject) error

	CheckUserPassword(password string) error
	ChangeUserPassword(prevPassword, newPassword string) error
	Decrypt(sensitive []byte) (types.PlainObject, error)
	ClearAll(password string) error
}

// ScryptParams are the KDF parameters of a legacy keystore.
type ScryptParams struct {
	DKLen int    `json:"dklen"`
	Salt  string `json:"salt"`
	N     int    `json:"n"`
	R     int    `json:"r"`
	P     int    `json:"p"`
}

// CommonCrypto is the scrypt provider the legacy keystore was encrypted with.
type CommonCrypto interface {
	Scrypt(text string, params ScryptParams) ([]byte, error)
}
