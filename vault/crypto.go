package vault

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"wallet/config"
	"wallet/types"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

const masterKeyLen = chacha20poly1305.KeySize

var errCiphertextTooShort = errors.New("ciphertext too short")

// passwordRecord wraps the random master key with a key derived from the
// user password.
type passwordRecord struct {
	Salt   string `json:"salt"`
	N      int    `json:"n"`
	R      int    `json:"r"`
	P      int    `json:"p"`
	Sealed string `json:"sealed"`
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("read random: %w", err)
	}
	return b, nil
}

// seal returns nonce || XChaCha20-Poly1305(key, plain).
func seal(key, plain []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	nonce, err := randomBytes(aead.NonceSize())
	if err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, plain, nil), nil
}

func open(key, sealed []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < aead.NonceSize()+aead.Overhead() {
		return nil, errCiphertextTooShort
	}
	nonce, ct := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	return aead.Open(nil, nonce, ct, nil)
}

func newPasswordRecord(cfg config.VaultConfig, password string, masterKey []byte) (*passwordRecord, error) {
	salt, err := randomBytes(32)
	if err != nil {
		return nil, err
	}
	rec := &passwordRecord{
		Salt: hex.EncodeToString(salt),
		N:    cfg.ScryptN,
		R:    cfg.ScryptR,
		P:    cfg.ScryptP,
	}
	kek, err := rec.derive(password)
	if err != nil {
		return nil, err
	}
	sealed, err := seal(kek, masterKey)
	if err != nil {
		return nil, err
	}
	rec.Sealed = hex.EncodeToString(sealed)
	return rec, nil
}

func (r *passwordRecord) derive(password string) ([]byte, error) {
	salt, err := hex.DecodeString(r.Salt)
	if err != nil {
		return nil, fmt.Errorf("password record salt: %w", err)
	}
	return scrypt.Key([]byte(password), salt, r.N, r.R, r.P, masterKeyLen)
}

// masterKey unwraps the master key. A wrong password returns types.ErrAuth.
func (r *passwordRecord) masterKey(password string) ([]byte, error) {
	kek, err := r.derive(password)
	if err != nil {
		return nil, err
	}
	sealed, err := hex.DecodeString(r.Sealed)
	if err != nil {
		return nil, fmt.Errorf("password record: %w", err)
	}
	key, err := open(kek, sealed)
	if err != nil {
		return nil, fmt.Errorf("invalid password: %w", types.ErrAuth)
	}
	return key, nil
}
