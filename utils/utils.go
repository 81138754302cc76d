package utils

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// PubKey is a secp256k1 public key as handed out by the key ring.
type PubKey struct {
	key *btcec.PublicKey
}

// NewPubKey parses a compressed (33 byte) or uncompressed (65 byte) key.
func NewPubKey(raw []byte) (*PubKey, error) {
	key, err := btcec.ParsePubKey(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid secp256k1 public key: %w", err)
	}
	return &PubKey{key: key}, nil
}

// NewPubKeyHex parses a hex encoded public key.
func NewPubKeyHex(s string) (*PubKey, error) {
	raw, err := hex.DecodeString(stripHexPrefix(s))
	if err != nil {
		return nil, fmt.Errorf("invalid public key hex: %w", err)
	}
	return NewPubKey(raw)
}

// Bytes returns the 33 byte compressed encoding.
func (p *PubKey) Bytes() []byte {
	return p.key.SerializeCompressed()
}

// UncompressedBytes returns the 65 byte 0x04 || X || Y encoding.
func (p *PubKey) UncompressedBytes() []byte {
	return p.key.SerializeUncompressed()
}

// Hex returns the compressed key as lowercase hex.
func (p *PubKey) Hex() string {
	return hex.EncodeToString(p.Bytes())
}

// Equal reports whether both keys are the same point.
func (p *PubKey) Equal(other *PubKey) bool {
	if p == nil || other == nil {
		return p == other
	}
	return p.key.IsEqual(other.key)
}

// CosmosAddress is ripemd160(sha256(compressed)).
func (p *PubKey) CosmosAddress() []byte {
	return btcutil.Hash160(p.Bytes())
}

// Bech32Address encodes the cosmos address with the given human readable prefix.
func (p *PubKey) Bech32Address(prefix string) (string, error) {
	conv, err := bech32.ConvertBits(p.CosmosAddress(), 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32.Encode(prefix, conv)
}

// EthAddress is keccak256(X || Y)[12:] with EIP-55 checksum casing.
func (p *PubKey) EthAddress() string {
	pubUncompressed := p.UncompressedBytes()
	digest := crypto.Keccak256(pubUncompressed[1:])
	return common.BytesToAddress(digest[12:]).Hex()
}

// ParsePrivateKey accepts exactly 32 bytes forming a valid scalar.
func ParsePrivateKey(raw []byte) (*secp256k1.PrivateKey, error) {
	if len(raw) != 32 {
		return nil, errors.New("invalid private key length (must be 32 bytes)")
	}
	var scalar secp256k1.ModNScalar
	if overflow := scalar.SetByteSlice(raw); overflow || scalar.IsZero() {
		return nil, errors.New("private key is out of range")
	}
	return secp256k1.PrivKeyFromBytes(raw), nil
}

// ParsePrivateKeyHex accepts a 32 byte hex key with or without 0x.
func ParsePrivateKeyHex(s string) (*secp256k1.PrivateKey, error) {
	raw, err := hex.DecodeString(stripHexPrefix(strings.TrimSpace(s)))
	if err != nil {
		return nil, errors.New("invalid private key hex: " + err.Error())
	}
	return ParsePrivateKey(raw)
}

// PubKeyOf returns the public half of priv.
func PubKeyOf(priv *secp256k1.PrivateKey) *PubKey {
	return &PubKey{key: priv.PubKey()}
}

func stripHexPrefix(s string) string {
	if len(s) > 2 && (s[:2] == "0x" || s[:2] == "0X") {
		return s[2:]
	}
	return s
}
