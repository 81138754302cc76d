package keyring

import (
	"fmt"

	"wallet/backend"
	"wallet/backend/ledger"
	"wallet/logs"
	"wallet/types"
	"wallet/utils"
)

// ensureSignedUp signs the vault up with password on the first create.
func (s *Service) ensureSignedUp(password string) error {
	if s.vault.IsSignedUp() {
		return nil
	}
	if password == "" {
		return fmt.Errorf("must provide password to sign in to vault: %w", types.ErrValidation)
	}
	return s.vault.SignUp(password)
}

func creatorFor[T backend.Backend](r *backend.Registry, typ types.KeyRingType) (T, error) {
	var zero T
	b, err := r.Get(typ)
	if err != nil {
		return zero, err
	}
	c, ok := b.(T)
	if !ok {
		return zero, fmt.Errorf("backend %s cannot create vaults: %w", typ, types.ErrUnsupportedBackend)
	}
	return c, nil
}

// addKeyRing stores a materialized vault and selects it.
func (s *Service) addKeyRing(typ types.KeyRingType, data *types.VaultData, extra types.PlainObject, name string) (string, error) {
	insensitive := types.CloneObject(data.Insensitive)
	if insensitive == nil {
		insensitive = types.PlainObject{}
	}
	for k, v := range extra {
		insensitive[k] = v
	}
	insensitive[types.FieldKeyRingName] = name
	insensitive[types.FieldKeyRingType] = string(typ)

	id, err := s.vault.AddVault(types.CategoryKeyRing, insensitive, data.Sensitive)
	if err != nil {
		return "", err
	}
	logs.Info("[keyring] created %s vault %s", typ, id)
	if err := s.setSelected(id); err != nil {
		return id, err
	}
	return id, nil
}

// defaultCoinType is stamped on mnemonic and keystone vaults at creation.
func (s *Service) defaultCoinType() types.PlainObject {
	return types.PlainObject{s.cfg.CoinTypeTag: s.cfg.DefaultCoinType}
}

func (s *Service) CreateMnemonicKeyRing(mnemonic string, path types.BIP44Path, name, password string) (string, error) {
	if err := s.ensureSignedUp(password); err != nil {
		return "", err
	}
	if err := path.Validate(); err != nil {
		return "", err
	}
	creator, err := creatorFor[backend.MnemonicCreator](s.registry, types.KeyRingMnemonic)
	if err != nil {
		return "", err
	}
	data, err := creator.CreateMnemonicVault(mnemonic, path)
	if err != nil {
		return "", err
	}
	return s.addKeyRing(types.KeyRingMnemonic, data, s.defaultCoinType(), name)
}

// CreatePrivateKeyKeyRing stores meta under keyRingMeta. The coin type is
// left unset.
func (s *Service) CreatePrivateKeyKeyRing(privateKey []byte, meta types.PlainObject, name, password string) (string, error) {
	if err := s.ensureSignedUp(password); err != nil {
		return "", err
	}
	creator, err := creatorFor[backend.PrivateKeyCreator](s.registry, types.KeyRingPrivateKey)
	if err != nil {
		return "", err
	}
	data, err := creator.CreatePrivateKeyVault(privateKey)
	if err != nil {
		return "", err
	}
	if meta == nil {
		meta = types.PlainObject{}
	}
	return s.addKeyRing(types.KeyRingPrivateKey, data, types.PlainObject{types.FieldKeyRingMeta: meta}, name)
}

func (s *Service) CreateLedgerKeyRing(pubKey []byte, app string, path types.BIP44Path, name, password string) (string, error) {
	if err := s.ensureSignedUp(password); err != nil {
		return "", err
	}
	if err := path.Validate(); err != nil {
		return "", err
	}
	creator, err := creatorFor[backend.LedgerCreator](s.registry, types.KeyRingLedger)
	if err != nil {
		return "", err
	}
	data, err := creator.CreateLedgerVault(pubKey, app, path)
	if err != nil {
		return "", err
	}
	return s.addKeyRing(types.KeyRingLedger, data, nil, name)
}

func (s *Service) CreateKeystoneKeyRing(accounts types.KeystoneAccounts, name, password string) (string, error) {
	if err := s.ensureSignedUp(password); err != nil {
		return "", err
	}
	for _, key := range accounts.Keys {
		_, path, err := types.ParseBIP44Path(key.Path)
		if err != nil {
			return "", err
		}
		if err := path.Validate(); err != nil {
			return "", err
		}
	}
	creator, err := creatorFor[backend.KeystoneCreator](s.registry, types.KeyRingKeystone)
	if err != nil {
		return "", err
	}
	data, err := creator.CreateKeystoneVault(accounts)
	if err != nil {
		return "", err
	}
	return s.addKeyRing(types.KeyRingKeystone, data, s.defaultCoinType(), name)
}

// AppendLedgerKeyRing adds the public key of another ledger app. An app
// entry is never overwritten.
func (s *Service) AppendLedgerKeyRing(vaultID string, pubKey []byte, app string) error {
	v, err := s.getVault(vaultID)
	if err != nil {
		return err
	}
	if v.Type() != types.KeyRingLedger {
		return fmt.Errorf("vault %s is not a ledger key: %w", vaultID, types.ErrValidation)
	}
	if _, exists := v.Insensitive[app]; exists {
		return fmt.Errorf("ledger app %s is already appended: %w", app, types.ErrValidation)
	}
	if !ledger.IsKnownApp(app) {
		return fmt.Errorf("unknown ledger app %q: %w", app, types.ErrValidation)
	}
	if _, err := utils.NewPubKey(pubKey); err != nil {
		return fmt.Errorf("%v: %w", err, types.ErrValidation)
	}
	return s.vault.SetAndMergeInsensitiveToVault(types.CategoryKeyRing, vaultID, types.PlainObject{
		app: ledger.AppEntry(pubKey),
	})
}
