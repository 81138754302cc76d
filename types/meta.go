package types

import (
	"encoding/hex"
	"fmt"
)

// Ledger app names that may appear as insensitive keys of a ledger vault.
const (
	LedgerAppCosmos   = "Cosmos"
	LedgerAppTerra    = "Terra"
	LedgerAppSecret   = "Secret"
	LedgerAppEthereum = "Ethereum"
)

// LedgerApps lists the app entries a ledger vault can carry.
var LedgerApps = []string{LedgerAppCosmos, LedgerAppTerra, LedgerAppSecret, LedgerAppEthereum}

// KeyRingMeta is the typed view of a vault's insensitive data. The set of
// implementations is closed: MnemonicMeta, PrivateKeyMeta, LedgerMeta, KeystoneMeta.
type KeyRingMeta interface {
	KeyRingType() KeyRingType
	isKeyRingMeta()
}

// MnemonicMeta describes a seed phrase vault.
type MnemonicMeta struct {
	BIP44Path BIP44Path
	CoinType  *int
}

// PrivateKeyMeta describes a raw private key vault.
type PrivateKeyMeta struct {
	Web3Auth *Web3Auth
}

// Web3Auth records the social login a private key came from.
type Web3Auth struct {
	Email string `json:"email"`
	Type  string `json:"type"`
}

// LedgerMeta describes a ledger vault: one hex public key per app.
type LedgerMeta struct {
	BIP44Path BIP44Path
	Apps      map[string][]byte
}

// KeystoneMeta describes a keystone vault.
type KeystoneMeta struct {
	Accounts KeystoneAccounts
	CoinType *int
}

// KeystoneAccounts is the account bundle scanned from a keystone QR code.
type KeystoneAccounts struct {
	MasterFingerprint string        `json:"masterFingerprint"`
	Device            string        `json:"device,omitempty"`
	Keys              []KeystoneKey `json:"keys"`
}

// KeystoneKey is one exported public key of a keystone device.
type KeystoneKey struct {
	Chain  string `json:"chain"`
	Path   string `json:"path"`
	PubKey string `json:"pubKey"`
	Name   string `json:"name,omitempty"`
}

func (MnemonicMeta) KeyRingType() KeyRingType   { return KeyRingMnemonic }
func (PrivateKeyMeta) KeyRingType() KeyRingType { return KeyRingPrivateKey }
func (LedgerMeta) KeyRingType() KeyRingType     { return KeyRingLedger }
func (KeystoneMeta) KeyRingType() KeyRingType   { return KeyRingKeystone }

func (MnemonicMeta) isKeyRingMeta()   {}
func (PrivateKeyMeta) isKeyRingMeta() {}
func (LedgerMeta) isKeyRingMeta()     {}
func (KeystoneMeta) isKeyRingMeta()   {}

// ParseKeyRingMeta builds the typed metadata of a vault. coinTypeTag is the
// insensitive key of the write-once coin type.
func ParseKeyRingMeta(v *Vault, coinTypeTag string) (KeyRingMeta, error) {
	var coinType *int
	if ct, ok := v.CoinType(coinTypeTag); ok {
		coinType = &ct
	}

	switch v.Type() {
	case KeyRingMnemonic:
		path, ok := BIP44PathFrom(v.Insensitive[FieldBIP44Path])
		if !ok {
			path = DefaultBIP44Path
		}
		return MnemonicMeta{BIP44Path: path, CoinType: coinType}, nil

	case KeyRingPrivateKey:
		meta := PrivateKeyMeta{}
		if raw, ok := v.Insensitive[FieldKeyRingMeta].(map[string]any); ok {
			if w, ok := raw["web3Auth"].(map[string]any); ok {
				email, _ := w["email"].(string)
				typ, _ := w["type"].(string)
				meta.Web3Auth = &Web3Auth{Email: email, Type: typ}
			}
		}
		return meta, nil

	case KeyRingLedger:
		path, ok := BIP44PathFrom(v.Insensitive[FieldBIP44Path])
		if !ok {
			path = DefaultBIP44Path
		}
		meta := LedgerMeta{BIP44Path: path, Apps: map[string][]byte{}}
		for _, app := range LedgerApps {
			entry, ok := v.Insensitive[app].(map[string]any)
			if !ok {
				continue
			}
			pubHex, _ := entry["pubKey"].(string)
			pub, err := hex.DecodeString(pubHex)
			if err != nil {
				return nil, fmt.Errorf("ledger app %s has malformed pubKey: %w", app, ErrValidation)
			}
			meta.Apps[app] = pub
		}
		return meta, nil

	case KeyRingKeystone:
		meta := KeystoneMeta{CoinType: coinType}
		if err := FromPlain(v.Insensitive[FieldKeystone], &meta.Accounts); err != nil {
			return nil, fmt.Errorf("keystone accounts: %v: %w", err, ErrValidation)
		}
		return meta, nil

	default:
		return nil, fmt.Errorf("vault %s declares %q: %w", v.ID, v.Type(), ErrUnsupportedBackend)
	}
}
