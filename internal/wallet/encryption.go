package wallet

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// SaltSize is the Argon2id salt length.
const SaltSize = 32

// sealed layout: salt | memory(4) | iterations(4) | parallelism(1) | nonce | ciphertext
const headerSize = SaltSize + 4 + 4 + 1

// ErrSealedTooShort is returned when sealed data cannot hold a header,
// nonce and tag.
var ErrSealedTooShort = errors.New("sealed data too short")

// EncryptionParams holds Argon2id parameters.
type EncryptionParams struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
}

// DefaultParams returns the Argon2id parameters used for new wallets.
func DefaultParams() EncryptionParams {
	return EncryptionParams{Memory: 64 * 1024, Iterations: 3, Parallelism: 4}
}

func (p EncryptionParams) key(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, p.Iterations, p.Memory, p.Parallelism, chacha20poly1305.KeySize)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// Encrypt seals data under password with Argon2id and XChaCha20-Poly1305.
// The parameters travel in the header so Decrypt needs only the password.
func Encrypt(data, password []byte, params EncryptionParams) ([]byte, error) {
	out := make([]byte, headerSize+chacha20poly1305.NonceSizeX, headerSize+chacha20poly1305.NonceSizeX+len(data)+chacha20poly1305.Overhead)
	salt, nonce := out[:SaltSize], out[headerSize:]
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	binary.LittleEndian.PutUint32(out[SaltSize:], params.Memory)
	binary.LittleEndian.PutUint32(out[SaltSize+4:], params.Iterations)
	out[SaltSize+8] = params.Parallelism

	key := params.key(password, salt)
	defer zero(key)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	return aead.Seal(out, nonce, data, nil), nil
}

// Decrypt opens data sealed by Encrypt.
func Decrypt(sealed, password []byte) ([]byte, error) {
	if len(sealed) < headerSize+chacha20poly1305.NonceSizeX+chacha20poly1305.Overhead {
		return nil, fmt.Errorf("%w: %d bytes", ErrSealedTooShort, len(sealed))
	}
	params := EncryptionParams{
		Memory:      binary.LittleEndian.Uint32(sealed[SaltSize:]),
		Iterations:  binary.LittleEndian.Uint32(sealed[SaltSize+4:]),
		Parallelism: sealed[SaltSize+8],
	}
	if params.Iterations == 0 || params.Parallelism == 0 {
		return nil, fmt.Errorf("decrypt: invalid key parameters %+v", params)
	}
	nonce := sealed[headerSize : headerSize+chacha20poly1305.NonceSizeX]

	key := params.key(password, sealed[:SaltSize])
	defer zero(key)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	plain, err := aead.Open(nil, nonce, sealed[headerSize+chacha20poly1305.NonceSizeX:], nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plain, nil
}
