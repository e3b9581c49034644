// Package wallet loads the bot's Solana keypair, either from a plain id.json
// file or from a password-encrypted blob.
package wallet

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/pbkdf2"

	"github.com/dmarkhas/solarbot/internal/domain"
	"github.com/dmarkhas/solarbot/internal/solana"
)

const (
	// pbkdf2Iterations is the OWASP-recommended minimum for HMAC-SHA256.
	pbkdf2Iterations = 480_000
	// saltLen is the random salt length in bytes.
	saltLen = 16
	// aesKeyLen is the derived AES-256 key length.
	aesKeyLen = 32
	// currentVersion is the encrypted-key JSON schema version.
	currentVersion = 1
)

// encryptedKeyJSON is the on-disk format for an encrypted keypair.
type encryptedKeyJSON struct {
	Version    int    `json:"version"`
	Salt       string `json:"salt"`       // base64 standard encoding
	Nonce      string `json:"nonce"`      // base64 standard encoding
	Ciphertext string `json:"ciphertext"` // base64 standard encoding
}

// KeyConfig carries the information LoadKeypair needs to resolve a keypair.
type KeyConfig struct {
	// KeypairPath is the path to a plain Solana id.json file (a JSON array of
	// 64 bytes: the ed25519 seed followed by the public key).
	KeypairPath string

	// EncryptedKeyPath is the path to a JSON file produced by EncryptKeypair.
	// Takes precedence over KeypairPath when set.
	EncryptedKeyPath string

	// KeyPassword is the password used to decrypt EncryptedKeyPath.
	KeyPassword string
}

// Keypair is the bot's signing identity.
type Keypair struct {
	priv ed25519.PrivateKey
}

// PrivateKey returns the ed25519 private key for transaction signing.
func (k Keypair) PrivateKey() ed25519.PrivateKey {
	return k.priv
}

// PublicKey returns the base58-encoded public key (the wallet address).
func (k Keypair) PublicKey() string {
	return solana.EncodeBase58(k.priv.Public().(ed25519.PublicKey))
}

// LoadKeypair resolves the keypair from cfg: the encrypted file is preferred
// when configured, otherwise the plain id.json path is read.
func LoadKeypair(cfg KeyConfig) (Keypair, error) {
	switch {
	case cfg.EncryptedKeyPath != "":
		if cfg.KeyPassword == "" {
			return Keypair{}, errors.New("wallet: key_password is required for an encrypted keypair")
		}
		data, err := os.ReadFile(cfg.EncryptedKeyPath)
		if err != nil {
			return Keypair{}, fmt.Errorf("wallet: read encrypted keypair: %w", err)
		}
		raw, err := decryptKeypair(data, cfg.KeyPassword)
		if err != nil {
			return Keypair{}, err
		}
		return keypairFromBytes(raw)

	case cfg.KeypairPath != "":
		data, err := os.ReadFile(cfg.KeypairPath)
		if err != nil {
			return Keypair{}, fmt.Errorf("wallet: read keypair: %w", err)
		}
		// id.json is a JSON array of numbers, which encoding/json will not
		// decode into []byte directly.
		var nums []int
		if err := json.Unmarshal(data, &nums); err != nil {
			return Keypair{}, fmt.Errorf("wallet: parse keypair file: %w", err)
		}
		raw := make([]byte, len(nums))
		for i, n := range nums {
			if n < 0 || n > 255 {
				return Keypair{}, fmt.Errorf("wallet: keypair byte %d out of range: %w", n, domain.ErrInvalidKeypair)
			}
			raw[i] = byte(n)
		}
		return keypairFromBytes(raw)

	default:
		return Keypair{}, errors.New("wallet: no keypair source configured")
	}
}

// keypairFromBytes validates and wraps a 64-byte ed25519 private key.
func keypairFromBytes(raw []byte) (Keypair, error) {
	if len(raw) != ed25519.PrivateKeySize {
		return Keypair{}, fmt.Errorf("wallet: expected %d-byte keypair, got %d: %w",
			ed25519.PrivateKeySize, len(raw), domain.ErrInvalidKeypair)
	}
	return Keypair{priv: ed25519.PrivateKey(raw)}, nil
}

// EncryptKeypair encrypts a 64-byte keypair with a password using
// PBKDF2-HMAC-SHA256 key derivation and AES-256-GCM authenticated encryption.
// It returns the JSON blob suitable for writing to disk.
func EncryptKeypair(keypair []byte, password string) ([]byte, error) {
	if password == "" {
		return nil, errors.New("wallet: password must not be empty")
	}
	if len(keypair) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("wallet: expected %d-byte keypair, got %d", ed25519.PrivateKeySize, len(keypair))
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("wallet: generating salt: %w", err)
	}
	derivedKey := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, aesKeyLen, sha256.New)

	block, err := aes.NewCipher(derivedKey)
	if err != nil {
		return nil, fmt.Errorf("wallet: aes cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("wallet: gcm mode: %w", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("wallet: generating nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, keypair, nil)

	return json.Marshal(encryptedKeyJSON{
		Version:    currentVersion,
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
	})
}

// decryptKeypair reverses EncryptKeypair.
func decryptKeypair(blob []byte, password string) ([]byte, error) {
	var enc encryptedKeyJSON
	if err := json.Unmarshal(blob, &enc); err != nil {
		return nil, fmt.Errorf("wallet: parse encrypted keypair: %w", err)
	}
	if enc.Version != currentVersion {
		return nil, fmt.Errorf("wallet: unsupported encrypted-key version %d", enc.Version)
	}

	salt, err := base64.StdEncoding.DecodeString(enc.Salt)
	if err != nil {
		return nil, fmt.Errorf("wallet: decode salt: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(enc.Nonce)
	if err != nil {
		return nil, fmt.Errorf("wallet: decode nonce: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(enc.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("wallet: decode ciphertext: %w", err)
	}

	derivedKey := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, aesKeyLen, sha256.New)
	block, err := aes.NewCipher(derivedKey)
	if err != nil {
		return nil, fmt.Errorf("wallet: aes cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("wallet: gcm mode: %w", err)
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errors.New("wallet: decryption failed (wrong password or corrupted file)")
	}
	return plaintext, nil
}
