// legacy/crypto.go
// Keystore decryption: derivedKey = KDF(password), mac = sha256(derivedKey[len/2:] || ciphertext),
// plaintext = AES-CTR(derivedKey, iv, ciphertext).

package legacy

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"wallet/interfaces"
	"wallet/types"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"
)

const (
	pbkdf2Iterations = 4000
	pbkdf2KeyLen     = 32
)

var ErrUnknownKDF = errors.New("unknown kdf")

var _ interfaces.CommonCrypto = ScryptCrypto{}

// ScryptCrypto is the default CommonCrypto.
type ScryptCrypto struct{}

func (ScryptCrypto) Scrypt(text string, params interfaces.ScryptParams) ([]byte, error) {
	salt, err := hex.DecodeString(params.Salt)
	if err != nil {
		return nil, fmt.Errorf("invalid scrypt salt: %w", err)
	}
	return scrypt.Key([]byte(text), salt, params.N, params.R, params.P, params.DKLen)
}

func deriveKey(cc interfaces.CommonCrypto, c *Crypto, password string) ([]byte, error) {
	switch c.KDF {
	case KDFScrypt, "":
		return cc.Scrypt(password, c.KDFParams)
	case KDFSha256:
		salt, err := hex.DecodeString(c.KDFParams.Salt)
		if err != nil {
			return nil, fmt.Errorf("invalid sha256 salt: %w", err)
		}
		buf := make([]byte, 0, len(salt)+1+len(password))
		buf = append(buf, salt...)
		buf = append(buf, '/')
		buf = append(buf, password...)
		sum := sha256.Sum256(buf)
		return sum[:], nil
	case KDFPbkdf2:
		salt, err := hex.DecodeString(c.KDFParams.Salt)
		if err != nil {
			return nil, fmt.Errorf("invalid pbkdf2 salt: %w", err)
		}
		return pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, pbkdf2KeyLen, sha256.New), nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownKDF, c.KDF)
	}
}

func computeMac(derivedKey, cipherText []byte) []byte {
	h := sha256.New()
	h.Write(derivedKey[len(derivedKey)/2:])
	h.Write(cipherText)
	return h.Sum(nil)
}

func aesCTR(key, iv, in []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	if len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("iv must be %d bytes", aes.BlockSize)
	}
	out := make([]byte, len(in))
	cipher.NewCTR(block, iv).XORKeyStream(out, in)
	return out, nil
}

// Decrypt opens ks with password. A wrong password fails the mac check with
// types.ErrAuth.
func Decrypt(cc interfaces.CommonCrypto, ks *KeyStore, password string) ([]byte, error) {
	derivedKey, err := deriveKey(cc, &ks.Crypto, password)
	if err != nil {
		return nil, fmt.Errorf("derive legacy key: %w: %w", err, types.ErrValidation)
	}
	cipherText, err := hex.DecodeString(ks.Crypto.CipherText)
	if err != nil {
		return nil, fmt.Errorf("legacy ciphertext: %v: %w", err, types.ErrValidation)
	}
	mac, err := hex.DecodeString(ks.Crypto.Mac)
	if err != nil {
		return nil, fmt.Errorf("legacy mac: %v: %w", err, types.ErrValidation)
	}
	if !bytes.Equal(computeMac(derivedKey, cipherText), mac) {
		return nil, fmt.Errorf("unmatched mac: %w", types.ErrAuth)
	}
	iv, err := hex.DecodeString(ks.Crypto.CipherParams.IV)
	if err != nil {
		return nil, fmt.Errorf("legacy iv: %v: %w", err, types.ErrValidation)
	}
	return aesCTR(derivedKey, iv, cipherText)
}

// EncryptOptions controls Encrypt. Zero values pick scrypt with N=2^14.
type EncryptOptions struct {
	KDF  string
	N    int
	R    int
	P    int
	Path *types.BIP44Path
}

// Encrypt produces a keystore in the legacy format. It exists for import
// tooling and tests.
func Encrypt(cc interfaces.CommonCrypto, typ string, text []byte, password string, meta map[string]string, opts EncryptOptions) (*KeyStore, error) {
	salt := make([]byte, 32)
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	if _, err := rand.Read(iv); err != nil {
		return nil, err
	}

	if opts.N == 0 {
		opts.N = 1 << 14
	}
	if opts.R == 0 {
		opts.R = 8
	}
	if opts.P == 0 {
		opts.P = 1
	}
	if opts.KDF == "" {
		opts.KDF = KDFScrypt
	}

	c := Crypto{
		Cipher:       "aes-128-ctr",
		CipherParams: CipherParams{IV: hex.EncodeToString(iv)},
		KDF:          opts.KDF,
		KDFParams: interfaces.ScryptParams{
			DKLen: 32,
			Salt:  hex.EncodeToString(salt),
			N:     opts.N,
			R:     opts.R,
			P:     opts.P,
		},
	}
	derivedKey, err := deriveKey(cc, &c, password)
	if err != nil {
		return nil, err
	}
	cipherText, err := aesCTR(derivedKey, iv, text)
	if err != nil {
		return nil, err
	}
	c.CipherText = hex.EncodeToString(cipherText)
	c.Mac = hex.EncodeToString(computeMac(derivedKey, cipherText))

	return &KeyStore{
		Version:     currentKeyStoreVersion,
		Type:        typ,
		BIP44HDPath: opts.Path,
		Meta:        meta,
		Crypto:      c,
	}, nil
}
