// legacy/keystore.go
// Legacy single-password keystore format, kept only so it can be migrated
// into vaults.

package legacy

import (
	"wallet/interfaces"
	"wallet/types"
)

// Legacy entry types.
const (
	TypeMnemonic   = "mnemonic"
	TypePrivateKey = "privateKey"
	TypeLedger     = "ledger"
)

// Meta keys of a legacy keystore.
const (
	MetaID              = "__id__"
	MetaName            = "name"
	MetaEmail           = "email"
	MetaSocialType      = "socialType"
	MetaLedgerCosmosApp = "__ledger__cosmos_app_like__"
)

const currentKeyStoreVersion = "1.2"

// KDF names.
const (
	KDFScrypt = "scrypt"
	KDFSha256 = "sha256"
	KDFPbkdf2 = "pbkdf2"
)

// KeyStore is one legacy entry of "key-multi-store".
type KeyStore struct {
	Version          string            `json:"version"`
	Type             string            `json:"type"`
	CoinTypeForChain map[string]int    `json:"coinTypeForChain,omitempty"`
	BIP44HDPath      *types.BIP44Path  `json:"bip44HDPath,omitempty"`
	Meta             map[string]string `json:"meta,omitempty"`
	Crypto           Crypto            `json:"crypto"`
}

// ID returns meta.__id__, empty when absent.
func (k *KeyStore) ID() string {
	return k.Meta[MetaID]
}

// Crypto is the encrypted payload of a KeyStore.
type Crypto struct {
	Cipher       string                  `json:"cipher"`
	CipherParams CipherParams            `json:"cipherparams"`
	CipherText   string                  `json:"ciphertext"`
	KDF          string                  `json:"kdf"`
	KDFParams    interfaces.ScryptParams `json:"kdfparams"`
	Mac          string                  `json:"mac"`
}

// CipherParams holds the hex AES-CTR iv.
type CipherParams struct {
	IV string `json:"iv"`
}

// ExportKeyRingData is the legacy export shape consumed by older clients.
type ExportKeyRingData struct {
	BIP44HDPath      types.BIP44Path   `json:"bip44HDPath"`
	CoinTypeForChain map[string]int    `json:"coinTypeForChain"`
	Key              string            `json:"key"`
	Meta             map[string]string `json:"meta"`
	Type             string            `json:"type"`
}
