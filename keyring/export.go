package keyring

import (
	"fmt"
	"strings"

	"wallet/backend/mnemonic"
	"wallet/backend/privatekey"
	"wallet/legacy"
	"wallet/logs"
	"wallet/types"
)

// ExportedKeyRingVault is a decrypted mnemonic or private key vault.
type ExportedKeyRingVault struct {
	Type        types.KeyRingType `json:"type"`
	ID          string            `json:"id"`
	Insensitive types.PlainObject `json:"insensitive"`
	Sensitive   string            `json:"sensitive"`
}

// social logins the legacy export target can restore
var exportableWeb3Auth = map[string]bool{"google": true, "apple": true}

// DeleteKeyRing removes a vault after re-checking password. It reports
// whether the vault was selected. Removing the last vault signs the vault
// service out.
func (s *Service) DeleteKeyRing(vaultID, password string) (bool, error) {
	if err := s.checkUnlocked(); err != nil {
		return false, err
	}
	if _, err := s.getVault(vaultID); err != nil {
		return false, err
	}
	if err := s.vault.CheckUserPassword(password); err != nil {
		return false, err
	}

	selected, _ := s.SelectedVaultID()
	wasSelected := selected == vaultID

	if err := s.vault.RemoveVault(types.CategoryKeyRing, vaultID); err != nil {
		return false, err
	}
	s.registry.Forget(vaultID)
	logs.Info("[keyring] deleted vault %s wasSelected=%v", vaultID, wasSelected)

	remaining := s.keyRingVaults()
	if wasSelected {
		next := ""
		if len(remaining) > 0 {
			next = remaining[0].ID
		}
		if err := s.setSelected(next); err != nil {
			return wasSelected, err
		}
	}

	if len(remaining) == 0 {
		if err := s.vault.ClearAll(password); err != nil {
			return wasSelected, err
		}
		s.registry.Purge()
	}
	return wasSelected, nil
}

// ShowSensitiveKeyRingData returns the mnemonic or hex private key.
func (s *Service) ShowSensitiveKeyRingData(vaultID, password string) (string, error) {
	if err := s.checkUnlocked(); err != nil {
		return "", err
	}
	v, err := s.getVault(vaultID)
	if err != nil {
		return "", err
	}
	if err := s.vault.CheckUserPassword(password); err != nil {
		return "", err
	}
	return s.sensitiveOf(v)
}

func (s *Service) sensitiveOf(v *types.Vault) (string, error) {
	var field string
	switch v.Type() {
	case types.KeyRingMnemonic:
		field = mnemonic.SensitiveMnemonic
	case types.KeyRingPrivateKey:
		field = privatekey.SensitivePrivateKey
	default:
		return "", fmt.Errorf("%s key has no sensitive data to show: %w", v.Type(), types.ErrCapability)
	}
	plain, err := s.vault.Decrypt(v.Sensitive)
	if err != nil {
		return "", err
	}
	value, _ := plain[field].(string)
	return value, nil
}

// ExportKeyRingVaults decrypts every mnemonic and private key vault.
func (s *Service) ExportKeyRingVaults(password string) ([]ExportedKeyRingVault, error) {
	if err := s.vault.CheckUserPassword(password); err != nil {
		return nil, err
	}
	var out []ExportedKeyRingVault
	for _, v := range s.keyRingVaults() {
		if v.Type() != types.KeyRingMnemonic && v.Type() != types.KeyRingPrivateKey {
			continue
		}
		secret, err := s.sensitiveOf(v)
		if err != nil {
			return nil, err
		}
		out = append(out, ExportedKeyRingVault{
			Type:        v.Type(),
			ID:          v.ID,
			Insensitive: v.Insensitive,
			Sensitive:   secret,
		})
	}
	return out, nil
}

// coinTypeIdentifier extracts "clore" from "keyRing-clore-coinType".
func coinTypeIdentifier(tag string) string {
	return strings.TrimSuffix(strings.TrimPrefix(tag, "keyRing-"), "-coinType")
}

// ExportKeyRingData exports in the legacy keystore shape. Private keys from
// a social login other than google or apple are skipped.
func (s *Service) ExportKeyRingData(password string) ([]legacy.ExportKeyRingData, error) {
	if err := s.vault.CheckUserPassword(password); err != nil {
		return nil, err
	}

	var out []legacy.ExportKeyRingData
	for _, info := range s.GetKeyInfos() {
		meta := map[string]string{
			legacy.MetaID:   info.ID,
			legacy.MetaName: info.Name,
		}
		switch info.Type {
		case types.KeyRingMnemonic:
			phrase, err := s.ShowSensitiveKeyRingData(info.ID, password)
			if err != nil {
				return nil, err
			}
			path, ok := types.BIP44PathFrom(info.Insensitive[types.FieldBIP44Path])
			if !ok {
				path = types.DefaultBIP44Path
			}
			coinTypes := map[string]int{}
			if raw, ok := info.Insensitive[s.cfg.CoinTypeTag]; ok && raw != nil {
				if ct, ok := types.IntValue(raw); ok {
					coinTypes[coinTypeIdentifier(s.cfg.CoinTypeTag)] = ct
				}
			}
			out = append(out, legacy.ExportKeyRingData{
				BIP44HDPath:      path,
				CoinTypeForChain: coinTypes,
				Key:              phrase,
				Meta:             meta,
				Type:             legacy.TypeMnemonic,
			})

		case types.KeyRingPrivateKey:
			v, err := s.getVault(info.ID)
			if err != nil {
				return nil, err
			}
			parsed, err := types.ParseKeyRingMeta(v, s.cfg.CoinTypeTag)
			if err != nil {
				return nil, err
			}
			if pk, ok := parsed.(types.PrivateKeyMeta); ok && pk.Web3Auth != nil {
				if !exportableWeb3Auth[pk.Web3Auth.Type] || pk.Web3Auth.Email == "" {
					logs.Debug("[keyring] export skips %s web3Auth=%s", info.ID, pk.Web3Auth.Type)
					continue
				}
				meta[legacy.MetaSocialType] = pk.Web3Auth.Type
				meta[legacy.MetaEmail] = pk.Web3Auth.Email
			}
			key, err := s.ShowSensitiveKeyRingData(info.ID, password)
			if err != nil {
				return nil, err
			}
			out = append(out, legacy.ExportKeyRingData{
				BIP44HDPath:      types.DefaultBIP44Path,
				CoinTypeForChain: map[string]int{},
				Key:              strings.TrimPrefix(key, "0x"),
				Meta:             meta,
				Type:             legacy.TypePrivateKey,
			})
		}
	}
	return out, nil
}

func (s *Service) ChangeUserPassword(prevPassword, newPassword string) error {
	return s.vault.ChangeUserPassword(prevPassword, newPassword)
}

// CheckLegacyKeyRingPassword verifies password against the first legacy
// entry without migrating anything.
func (s *Service) CheckLegacyKeyRingPassword(password string) error {
	if !s.NeedMigration() {
		return fmt.Errorf("migration is not needed: %w", types.ErrMigration)
	}
	list, err := legacy.LoadKeyStores(s.legacyStore)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return fmt.Errorf("no key store to migrate: %w", types.ErrMigration)
	}
	_, err = legacy.Decrypt(s.commonCrypto, &list[0], password)
	return err
}

// GetKeyRingName falls back to the configured default name.
func (s *Service) GetKeyRingName(vaultID string) (string, error) {
	v, err := s.getVault(vaultID)
	if err != nil {
		return "", err
	}
	if name := v.Name(); name != "" {
		return name, nil
	}
	return s.cfg.DefaultName, nil
}

func (s *Service) GetKeyRingNameSelected() (string, error) {
	id, err := s.SelectedVaultID()
	if err != nil {
		return "", err
	}
	return s.GetKeyRingName(id)
}

func (s *Service) ChangeKeyRingName(vaultID, name string) error {
	if err := s.checkUnlocked(); err != nil {
		return err
	}
	if _, err := s.getVault(vaultID); err != nil {
		return err
	}
	return s.vault.SetAndMergeInsensitiveToVault(types.CategoryKeyRing, vaultID, types.PlainObject{
		types.FieldKeyRingName: name,
	})
}
