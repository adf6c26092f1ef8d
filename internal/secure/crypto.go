package secure

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
)

// Crypter seals stored payloads with AES-GCM. The cipher key is derived
// from the passphrase with SHA-256.
type Crypter struct {
	key []byte
}

func NewCrypter(passphrase string) (*Crypter, error) {
	if l := len(passphrase); l < 16 {
		return nil, fmt.Errorf("passphrase length must be >= 16 bytes, got %d", l)
	}
	k := sha256.Sum256([]byte(passphrase))
	return &Crypter{key: k[:]}, nil
}

func (c *Crypter) Encrypt(data []byte) ([]byte, error) {
	aesgcm, err := c.gcm()
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aesgcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return aesgcm.Seal(nonce, nonce, data, nil), nil
}

// Decrypt accepts raw ciphertext as produced by Encrypt
func (c *Crypter) Decrypt(data []byte) ([]byte, error) {
	aesgcm, err := c.gcm()
	if err != nil {
		return nil, err
	}
	nonceSize := aesgcm.NonceSize()
	if len(data) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}
	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	return aesgcm.Open(nil, nonce, ciphertext, nil)
}

func (c *Crypter) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
