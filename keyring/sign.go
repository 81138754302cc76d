package keyring

import (
	"fmt"

	"wallet/logs"
	"wallet/types"
	"wallet/utils"
)

// KeyAddress is the public key of a vault and its addresses for one coin
// type. The bech32 prefix comes from the key ring config.
type KeyAddress struct {
	CoinType        int    `json:"coinType"`
	PubKey          string `json:"pubKey"`
	Bech32Address   string `json:"bech32Address"`
	EthereumAddress string `json:"ethereumAddress"`
}

// needsFinalize reports whether the vault kind carries a coin type tag.
func needsFinalize(v *types.Vault) bool {
	t := v.Type()
	return t == types.KeyRingMnemonic || t == types.KeyRingKeystone
}

// coinTypeOf returns the finalized coin type or the default one.
func (s *Service) coinTypeOf(v *types.Vault) int {
	if ct, ok := v.CoinType(s.cfg.CoinTypeTag); ok {
		return ct
	}
	return s.cfg.DefaultCoinType
}

// FinalizeKeyCoinType writes the coin type tag once.
func (s *Service) FinalizeKeyCoinType(vaultID string, coinType int) error {
	if err := s.checkUnlocked(); err != nil {
		return err
	}
	s.finalizeMu.Lock()
	defer s.finalizeMu.Unlock()

	v, err := s.getVault(vaultID)
	if err != nil {
		return err
	}
	if !needsFinalize(v) {
		return fmt.Errorf("%s key does not need coin type finalization: %w", v.Type(), types.ErrValidation)
	}
	if _, ok := v.CoinType(s.cfg.CoinTypeTag); ok {
		return fmt.Errorf("coin type is already finalized: %w", types.ErrValidation)
	}
	if coinType < 0 {
		return fmt.Errorf("invalid coin type %d: %w", coinType, types.ErrValidation)
	}
	return s.writeCoinType(vaultID, coinType)
}

func (s *Service) NeedKeyCoinTypeFinalize(vaultID string) (bool, error) {
	if err := s.checkUnlocked(); err != nil {
		return false, err
	}
	v, err := s.getVault(vaultID)
	if err != nil {
		return false, err
	}
	if !needsFinalize(v) {
		return false, nil
	}
	_, ok := v.CoinType(s.cfg.CoinTypeTag)
	return !ok, nil
}

// GetPubKey derives with the finalized coin type, or the default one.
func (s *Service) GetPubKey(vaultID string) (*utils.PubKey, error) {
	if err := s.checkUnlocked(); err != nil {
		return nil, err
	}
	v, err := s.getVault(vaultID)
	if err != nil {
		return nil, err
	}
	return s.pubKeyWithVault(v, s.coinTypeOf(v))
}

// GetPubKeyWithNotFinalizedCoinType derives for an arbitrary coin type. It
// works after finalization too, so it can preview many coin types.
func (s *Service) GetPubKeyWithNotFinalizedCoinType(vaultID string, coinType int) (*utils.PubKey, error) {
	if err := s.checkUnlocked(); err != nil {
		return nil, err
	}
	v, err := s.getVault(vaultID)
	if err != nil {
		return nil, err
	}
	if !needsFinalize(v) {
		return nil, fmt.Errorf("%s key does not need coin type finalization: %w", v.Type(), types.ErrValidation)
	}
	return s.pubKeyWithVault(v, coinType)
}

func (s *Service) pubKeyWithVault(v *types.Vault, coinType int) (*utils.PubKey, error) {
	b, err := s.registry.ForVault(v)
	if err != nil {
		return nil, err
	}
	return b.GetPubKey(v, coinType)
}

// Sign signs data with the vault key. The first successful signature of a
// mnemonic or keystone vault finalizes its coin type.
func (s *Service) Sign(vaultID string, data []byte, digest types.DigestMethod) (*types.Signature, error) {
	v := s.vault.GetVault(types.CategoryKeyRing, vaultID)
	if v == nil {
		if err := s.checkUnlocked(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("vault %s: %w", vaultID, types.ErrNotFound)
	}
	b, err := s.registry.ForVault(v)
	if err != nil {
		return nil, err
	}
	// hardware keys refuse before the lock gate
	if !b.SupportsSigning() {
		return b.Sign(v, s.coinTypeOf(v), data, digest)
	}
	if err := s.checkUnlocked(); err != nil {
		return nil, err
	}
	if !digest.Valid() {
		return nil, fmt.Errorf("unknown digest method %q: %w", digest, types.ErrValidation)
	}

	coinType := s.coinTypeOf(v)
	sig, err := b.Sign(v, coinType, data, digest)
	if err != nil {
		return nil, err
	}

	if err := s.finalizeIfNeeded(vaultID, coinType); err != nil {
		return nil, err
	}
	return sig, nil
}

// finalizeIfNeeded stamps coinType when the vault has no tag yet. Concurrent
// first signatures agree on the coin type, so the loser is a no-op.
func (s *Service) finalizeIfNeeded(vaultID string, coinType int) error {
	s.finalizeMu.Lock()
	defer s.finalizeMu.Unlock()

	v, err := s.getVault(vaultID)
	if err != nil {
		return err
	}
	if !needsFinalize(v) {
		return nil
	}
	if _, ok := v.CoinType(s.cfg.CoinTypeTag); ok {
		return nil
	}
	return s.writeCoinType(vaultID, coinType)
}

func (s *Service) writeCoinType(vaultID string, coinType int) error {
	if err := s.vault.SetAndMergeInsensitiveToVault(types.CategoryKeyRing, vaultID, types.PlainObject{
		s.cfg.CoinTypeTag: coinType,
	}); err != nil {
		return err
	}
	logs.Info("[keyring] finalized coin type %d for vault %s", coinType, vaultID)
	return nil
}

// SignSelected signs with the selected vault.
func (s *Service) SignSelected(data []byte, digest types.DigestMethod) (*types.Signature, error) {
	id, err := s.SelectedVaultID()
	if err != nil {
		return nil, err
	}
	return s.Sign(id, data, digest)
}

func (s *Service) keyAddress(pub *utils.PubKey, coinType int) (KeyAddress, error) {
	addr, err := pub.Bech32Address(s.cfg.Bech32Prefix)
	if err != nil {
		return KeyAddress{}, err
	}
	return KeyAddress{
		CoinType:        coinType,
		PubKey:          pub.Hex(),
		Bech32Address:   addr,
		EthereumAddress: pub.EthAddress(),
	}, nil
}

// GetKeyAddress returns the addresses of the vault key for its effective
// coin type.
func (s *Service) GetKeyAddress(vaultID string) (KeyAddress, error) {
	if err := s.checkUnlocked(); err != nil {
		return KeyAddress{}, err
	}
	v, err := s.getVault(vaultID)
	if err != nil {
		return KeyAddress{}, err
	}
	coinType := s.coinTypeOf(v)
	pub, err := s.pubKeyWithVault(v, coinType)
	if err != nil {
		return KeyAddress{}, err
	}
	return s.keyAddress(pub, coinType)
}

// GetKeyAddressWithNotFinalizedCoinType previews the addresses for coinType.
func (s *Service) GetKeyAddressWithNotFinalizedCoinType(vaultID string, coinType int) (KeyAddress, error) {
	pub, err := s.GetPubKeyWithNotFinalizedCoinType(vaultID, coinType)
	if err != nil {
		return KeyAddress{}, err
	}
	return s.keyAddress(pub, coinType)
}

// ComputeNotFinalizedKeyAddresses previews the address of each configured
// coin type. Coin types that fail to derive are logged and skipped.
func (s *Service) ComputeNotFinalizedKeyAddresses(vaultID string) ([]KeyAddress, error) {
	out := make([]KeyAddress, 0, len(s.cfg.PreviewCoinTypes))
	for _, coinType := range s.cfg.PreviewCoinTypes {
		addr, err := s.GetKeyAddressWithNotFinalizedCoinType(vaultID, coinType)
		if err != nil {
			logs.Warn("[keyring] preview coin type %d of %s: %v", coinType, vaultID, err)
			continue
		}
		out = append(out, addr)
	}
	return out, nil
}
