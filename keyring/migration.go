// keyring/migration.go
// One-time replay of the legacy keystore list into vaults. Every entry is
// flagged after replay so an interrupted run can resume without duplicates.

package keyring

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"wallet/db"
	"wallet/keys"
	"wallet/legacy"
	"wallet/logs"
	"wallet/types"
	"wallet/utils"
)

// ledgerPubKeys is the JSON payload of a ledger entry.
type ledgerPubKeys struct {
	Cosmos   string `json:"cosmos"`
	Ethereum string `json:"ethereum"`
}

// migrate runs the legacy migration. needMigration stays set on failure so
// the call can be retried.
func (s *Service) migrate(password string) error {
	if !s.NeedMigration() {
		return fmt.Errorf("migration is not needed: %w", types.ErrMigration)
	}
	if !s.isMigrating.CompareAndSwap(false, true) {
		return fmt.Errorf("migration is already in progress: %w", types.ErrMigration)
	}
	defer s.isMigrating.Store(false)

	if !s.vault.IsSignedUp() && password == "" {
		return fmt.Errorf("must provide password to migrate: %w", types.ErrValidation)
	}
	if s.vault.IsSignedUp() && s.vault.IsLocked() {
		if err := s.vault.Unlock(password); err != nil {
			return err
		}
	}

	legacySelected, err := legacy.LoadSelected(s.legacyStore)
	if err != nil {
		return fmt.Errorf("failed to load legacy selection: %w", err)
	}
	list, err := legacy.LoadKeyStores(s.legacyStore)
	if err != nil {
		return fmt.Errorf("failed to load legacy key stores: %w", err)
	}
	if len(list) == 0 {
		return fmt.Errorf("no key store to migrate: %w", types.ErrMigration)
	}
	selectedID := ""
	if legacySelected != nil {
		selectedID = legacySelected.ID()
	}

	logs.Info("[migration] start entries=%d", len(list))
	candidate := ""
	for i := range list {
		ks := &list[i]
		id := ks.ID()
		if id != "" {
			var done bool
			if _, err := db.GetJSON(s.store, keys.MigratedKeyStore(id), &done); err != nil {
				return err
			}
			if done {
				logs.Debug("[migration] skip migrated entry %s", id)
				continue
			}
		}

		vaultID, handled, err := s.replayKeyStore(ks, password)
		if err != nil {
			// once a vault exists, or the entry itself is unusable, the
			// entry is flagged so a rerun neither duplicates nor retries it
			if vaultID == "" && !entryDefect(err) {
				logs.Warn("[migration] entry %d (%s) failed: %v", i, ks.Type, err)
				return err
			}
			logs.Error("[migration] entry %d (%s) %s migrated partially or not at all: %v", i, ks.Type, id, err)
		}
		if !handled {
			// left unflagged, a later run sees it again
			logs.Warn("[migration] unknown key store type %q", ks.Type)
			continue
		}
		if vaultID != "" && id != "" && id == selectedID {
			candidate = vaultID
		}
		if id != "" {
			if err := db.SetJSON(s.store, keys.MigratedKeyStore(id), true); err != nil {
				return err
			}
		}
	}

	if candidate != "" && s.vault.GetVault(types.CategoryKeyRing, candidate) != nil {
		if err := s.SelectKeyRing(candidate); err != nil {
			return err
		}
	}
	if err := db.SetJSON(s.store, keys.MigrationV1(), true); err != nil {
		return err
	}

	s.mu.Lock()
	s.needMigration = false
	s.mu.Unlock()
	logs.Info("[migration] done")
	return nil
}

// replayKeyStore recreates one legacy entry. handled is false for unknown
// entry types. vaultID is empty when nothing was created.
func (s *Service) replayKeyStore(ks *legacy.KeyStore, password string) (vaultID string, handled bool, err error) {
	name := ks.Meta[legacy.MetaName]
	if name == "" {
		name = s.cfg.DefaultName
	}
	path := types.DefaultBIP44Path
	if ks.BIP44HDPath != nil {
		path = *ks.BIP44HDPath
	}

	switch ks.Type {
	case legacy.TypeMnemonic:
		plain, err := legacy.Decrypt(s.commonCrypto, ks, password)
		if err != nil {
			return "", true, err
		}
		id, err := s.CreateMnemonicKeyRing(string(plain), path, name, password)
		return id, true, err

	case legacy.TypePrivateKey:
		plain, err := legacy.Decrypt(s.commonCrypto, ks, password)
		if err != nil {
			return "", true, err
		}
		key, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(string(plain)), "0x"))
		if err != nil {
			return "", true, fmt.Errorf("legacy private key: %v: %w", err, types.ErrMigration)
		}
		meta := types.PlainObject{}
		if email := ks.Meta[legacy.MetaEmail]; email != "" {
			social := ks.Meta[legacy.MetaSocialType]
			if social == "" {
				social = "google"
			}
			meta["web3Auth"] = types.PlainObject{"email": email, "type": social}
		}
		id, err := s.CreatePrivateKeyKeyRing(key, meta, name, password)
		return id, true, err

	case legacy.TypeLedger:
		plain, err := legacy.Decrypt(s.commonCrypto, ks, password)
		if err != nil {
			return "", true, err
		}
		id, err := s.replayLedger(ks, plain, path, name, password)
		return id, true, err

	default:
		return "", false, nil
	}
}

// replayLedger classifies the payload strictly: hex of a valid secp256k1
// key is a raw cosmos key, a JSON object is {cosmos, ethereum}, anything
// else is an entry defect. An invalid ethereum key is dropped before the
// vault is created.
func (s *Service) replayLedger(ks *legacy.KeyStore, payload []byte, path types.BIP44Path, name, password string) (string, error) {
	text := strings.TrimSpace(string(payload))

	if raw, err := hex.DecodeString(text); err == nil {
		if _, err := utils.NewPubKey(raw); err == nil {
			return s.CreateLedgerKeyRing(raw, types.LedgerAppCosmos, path, name, password)
		}
	}

	var pubKeys ledgerPubKeys
	if err := json.Unmarshal([]byte(text), &pubKeys); err != nil {
		return "", fmt.Errorf("ledger payload is neither a public key nor a key map: %w", types.ErrMigration)
	}
	if pubKeys.Cosmos == "" {
		logs.Warn("[migration] ledger entry %s has no cosmos key", ks.ID())
		return "", nil
	}
	cosmos, err := decodeLedgerPubKey(pubKeys.Cosmos)
	if err != nil {
		return "", fmt.Errorf("ledger cosmos key: %v: %w", err, types.ErrMigration)
	}
	var eth []byte
	if pubKeys.Ethereum != "" {
		if eth, err = decodeLedgerPubKey(pubKeys.Ethereum); err != nil {
			logs.Warn("[migration] ledger entry %s drops its ethereum key: %v", ks.ID(), err)
			eth = nil
		}
	}

	app := types.LedgerAppCosmos
	if ks.Meta[legacy.MetaLedgerCosmosApp] == types.LedgerAppTerra {
		app = types.LedgerAppTerra
	}
	id, err := s.CreateLedgerKeyRing(cosmos, app, path, name, password)
	if err != nil {
		return "", err
	}
	if eth != nil {
		if err := s.AppendLedgerKeyRing(id, eth, types.LedgerAppEthereum); err != nil {
			return id, err
		}
	}
	return id, nil
}

func decodeLedgerPubKey(s string) ([]byte, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, err
	}
	if _, err := utils.NewPubKey(raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// entryDefect reports errors caused by the content of one legacy entry.
// Those are not fixed by retrying, so the entry is flagged and skipped.
// Wrong passwords and store failures abort the run instead.
func entryDefect(err error) bool {
	return errors.Is(err, types.ErrMigration) || errors.Is(err, types.ErrValidation)
}
