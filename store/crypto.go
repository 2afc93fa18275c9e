package store

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/hkdf"

	"github.com/tanda-protocol/tanda-collector/types"
)

// DeriveKey derives the contributor's 32-byte record encryption key from
// their credential. The contributor id salts the derivation so the same
// credential yields distinct keys per contributor.
func DeriveKey(credential, contributor string) ([]byte, error) {
	kdf := hkdf.New(sha256.New, []byte(credential), []byte(contributor), []byte("tanda-payment-record"))
	key := make([]byte, 32)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("unable to derive record key: %w", err)
	}
	return key, nil
}

// EncryptAmount encrypts a payment amount with AES-256-GCM. The random nonce
// is prepended to the ciphertext; the result is base64 encoded.
func EncryptAmount(key []byte, amount uint64) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("unable to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("unable to create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("unable to generate nonce: %w", err)
	}

	plaintext := make([]byte, 8)
	binary.BigEndian.PutUint64(plaintext, amount)

	sealed := gcm.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptAmount reverses EncryptAmount. Any failure, including a wrong key,
// returns types.ErrDecryption.
func DecryptAmount(key []byte, encrypted string) (uint64, error) {
	sealed, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		return 0, types.ErrDecryption
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return 0, types.ErrDecryption
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return 0, types.ErrDecryption
	}
	if len(sealed) < gcm.NonceSize() {
		return 0, types.ErrDecryption
	}

	plaintext, err := gcm.Open(nil, sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():], nil)
	if err != nil || len(plaintext) != 8 {
		return 0, types.ErrDecryption
	}
	return binary.BigEndian.Uint64(plaintext), nil
}

// PaymentHash derives the record matching hash from the recipient commitment
// and the circle round. Matching works without decrypting the amount.
func PaymentHash(commitment, circleID string, round uint64) string {
	roundBz := make([]byte, 8)
	binary.BigEndian.PutUint64(roundBz, round)

	hashed := crypto.Keccak256([]byte(commitment), []byte(circleID), roundBz)
	return hex.EncodeToString(hashed)
}
