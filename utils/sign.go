package utils

import (
	"crypto/sha256"
	"fmt"

	"wallet/types"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/ethereum/go-ethereum/crypto"
)

// Digest hashes data with the requested method.
func Digest(data []byte, method types.DigestMethod) ([]byte, error) {
	switch method {
	case types.DigestSha256:
		sum := sha256.Sum256(data)
		return sum[:], nil
	case types.DigestKeccak256:
		return crypto.Keccak256(data), nil
	default:
		return nil, fmt.Errorf("unknown digest method %q: %w", method, types.ErrValidation)
	}
}

// SignData digests data and signs it, returning r, s and the recovery id.
func SignData(priv *secp256k1.PrivateKey, data []byte, method types.DigestMethod) (*types.Signature, error) {
	digest, err := Digest(data, method)
	if err != nil {
		return nil, err
	}

	if method == types.DigestKeccak256 {
		// go-ethereum layout: R || S || V with V in {0,1}
		sig, err := crypto.Sign(digest, priv.ToECDSA())
		if err != nil {
			return nil, fmt.Errorf("keccak256 sign failed: %w", err)
		}
		v := int(sig[64])
		return &types.Signature{R: sig[:32], S: sig[32:64], V: &v}, nil
	}

	// compact layout: (27 + 4 + recid) || R || S
	compact := ecdsa.SignCompact(priv, digest, true)
	v := int(compact[0]) - 27 - 4
	return &types.Signature{R: compact[1:33], S: compact[33:65], V: &v}, nil
}

// VerifySignature checks r||s against the digest of data.
func VerifySignature(pub *PubKey, data []byte, method types.DigestMethod, sig *types.Signature) bool {
	if pub == nil || sig == nil || len(sig.R) != 32 || len(sig.S) != 32 {
		return false
	}
	digest, err := Digest(data, method)
	if err != nil {
		return false
	}
	var r, s secp256k1.ModNScalar
	if overflow := r.SetByteSlice(sig.R); overflow {
		return false
	}
	if overflow := s.SetByteSlice(sig.S); overflow {
		return false
	}
	return ecdsa.NewSignature(&r, &s).Verify(digest, pub.key)
}
