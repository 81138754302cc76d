package utils

import (
	"fmt"
	"strings"

	"wallet/types"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/tyler-smith/go-bip39"
)

const bip44Purpose = 44

// NormalizeMnemonic lowercases and collapses whitespace.
func NormalizeMnemonic(mnemonic string) string {
	return strings.Join(strings.Fields(strings.ToLower(mnemonic)), " ")
}

// MnemonicToSeed validates the BIP39 checksum and returns the 64 byte seed.
func MnemonicToSeed(mnemonic string) ([]byte, error) {
	seed, err := bip39.NewSeedWithErrorChecking(NormalizeMnemonic(mnemonic), "")
	if err != nil {
		return nil, fmt.Errorf("invalid mnemonic: %v: %w", err, types.ErrValidation)
	}
	return seed, nil
}

// ValidateMnemonic reports whether mnemonic is a valid BIP39 phrase.
func ValidateMnemonic(mnemonic string) error {
	if !bip39.IsMnemonicValid(NormalizeMnemonic(mnemonic)) {
		return fmt.Errorf("invalid mnemonic: %w", types.ErrValidation)
	}
	return nil
}

// GenerateMnemonic returns a fresh phrase with bits of entropy (128 to 256).
func GenerateMnemonic(bits int) (string, error) {
	entropy, err := bip39.NewEntropy(bits)
	if err != nil {
		return "", fmt.Errorf("entropy: %v: %w", err, types.ErrValidation)
	}
	return bip39.NewMnemonic(entropy)
}

// DeriveBIP44 derives m/44'/coinType'/account'/change/addressIndex from seed.
func DeriveBIP44(seed []byte, coinType int, path types.BIP44Path) (*secp256k1.PrivateKey, error) {
	if err := path.Validate(); err != nil {
		return nil, err
	}
	for _, n := range []int{coinType, path.Account, path.Change, path.AddressIndex} {
		if n < 0 || n >= hdkeychain.HardenedKeyStart {
			return nil, fmt.Errorf("%s: index out of range: %w", path.String(coinType), types.ErrValidation)
		}
	}

	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("failed to create master key: %w", err)
	}

	key := master
	for _, idx := range []uint32{
		hdkeychain.HardenedKeyStart + bip44Purpose,
		hdkeychain.HardenedKeyStart + uint32(coinType),
		hdkeychain.HardenedKeyStart + uint32(path.Account),
		uint32(path.Change),
		uint32(path.AddressIndex),
	} {
		key, err = key.Derive(idx)
		if err != nil {
			return nil, fmt.Errorf("failed to derive %s: %w", path.String(coinType), err)
		}
	}

	priv, err := key.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("failed to extract private key: %w", err)
	}
	return priv, nil
}
