package types

import (
	"encoding/json"
	"fmt"
	"math"
)

// CategoryKeyRing is the vault category every key ring lives under.
const CategoryKeyRing = "keyRing"

// Insensitive keys shared by all backends.
const (
	FieldKeyRingType = "keyRingType"
	FieldKeyRingName = "keyRingName"
	FieldKeyRingMeta = "keyRingMeta"
	FieldBIP44Path   = "bip44Path"
	FieldKeystone    = "keystone"
)

// KeyRingType is the discriminator stored under FieldKeyRingType.
type KeyRingType string

const (
	KeyRingMnemonic   KeyRingType = "mnemonic"
	KeyRingPrivateKey KeyRingType = "private-key"
	KeyRingLedger     KeyRingType = "ledger"
	KeyRingKeystone   KeyRingType = "keystone"
)

// KeyRingTypes lists every backend kind the core knows about.
var KeyRingTypes = []KeyRingType{KeyRingMnemonic, KeyRingPrivateKey, KeyRingLedger, KeyRingKeystone}

// PlainObject is a JSON-compatible bag of values.
type PlainObject = map[string]any

// Vault is one encrypted-at-rest key ring record. Sensitive stays encrypted
// until the vault service decrypts it.
type Vault struct {
	ID          string
	Insensitive PlainObject
	Sensitive   []byte
}

// Type returns the declared backend type.
func (v *Vault) Type() KeyRingType {
	s, _ := v.Insensitive[FieldKeyRingType].(string)
	return KeyRingType(s)
}

// Name returns the display name, empty when unset.
func (v *Vault) Name() string {
	s, _ := v.Insensitive[FieldKeyRingName].(string)
	return s
}

// CoinType reads the write-once coin type tag.
func (v *Vault) CoinType(tag string) (int, bool) {
	raw, ok := v.Insensitive[tag]
	if !ok || raw == nil {
		return 0, false
	}
	return IntValue(raw)
}

// VaultData is what a backend materializes for a new vault.
type VaultData struct {
	Insensitive PlainObject
	Sensitive   PlainObject
}

// KeyInfo is a read-only projection of a vault.
type KeyInfo struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Type        KeyRingType `json:"type"`
	IsSelected  bool        `json:"isSelected"`
	Insensitive PlainObject `json:"insensitive"`
}

// KeyRingStatus is the coarse lock state reported upward.
type KeyRingStatus string

const (
	StatusEmpty    KeyRingStatus = "empty"
	StatusLocked   KeyRingStatus = "locked"
	StatusUnlocked KeyRingStatus = "unlocked"
)

// DigestMethod selects the hash applied to data before signing.
type DigestMethod string

const (
	DigestSha256    DigestMethod = "sha256"
	DigestKeccak256 DigestMethod = "keccak256"
)

// Valid reports whether d is a known digest method.
func (d DigestMethod) Valid() bool {
	return d == DigestSha256 || d == DigestKeccak256
}

// Signature is a secp256k1 signature. V is nil when no recovery id is produced.
type Signature struct {
	R []byte
	S []byte
	V *int
}

// IntValue reads an integer out of a decoded JSON / protobuf value.
func IntValue(raw any) (int, bool) {
	switch n := raw.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint32:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}

// ToPlain converts a JSON-tagged struct into a PlainObject.
func ToPlain(v any) (PlainObject, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal plain object: %w", err)
	}
	out := PlainObject{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("unmarshal plain object: %w", err)
	}
	return out, nil
}

// FromPlain decodes a PlainObject value into out.
func FromPlain(raw any, out any) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("marshal plain value: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode plain value: %w", err)
	}
	return nil
}

// CloneObject returns a deep copy of obj.
func CloneObject(obj PlainObject) PlainObject {
	if obj == nil {
		return nil
	}
	out := make(PlainObject, len(obj))
	for k, v := range obj {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneObject(t)
	case []any:
		cp := make([]any, len(t))
		for i := range t {
			cp[i] = cloneValue(t[i])
		}
		return cp
	default:
		return v
	}
}
