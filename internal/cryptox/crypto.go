// Package cryptox holds the cryptography of the transfer engine.
//
// Chunk data is transformed with AES-128 in counter mode keyed on absolute
// file offsets (SymmCipher.CTRCrypt), each chunk yields a MAC which is
// recorded in a ChunkMACs ledger, and the ledger is folded into a single
// file integrity code (ChunkMACs.Aggregate). Resume records kept in the
// local state cache are sealed separately with AES-GCM under a key derived
// from the user's passphrase.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"errors"

	"golang.org/x/crypto/argon2"
)

// MakeVerifier returns a value that proves knowledge of masterKey without
// revealing it. It is stored next to sealed records to reject wrong
// passphrases early.
func MakeVerifier(masterKey []byte) []byte {
	hash := sha256.Sum256(masterKey)
	return hash[:]
}

// DeriveMasterKey derives a 32-byte sealing key from a passphrase with Argon2id.
func DeriveMasterKey(password []byte, salt []byte) []byte {
	x := argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
	return x
}

// NewTransferKey generates a random transfer key and counter IV for an upload.
func NewTransferKey() (*SymmCipher, uint64, error) {
	var raw [KeyLength + 8]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return nil, 0, err
	}
	key, err := NewSymmCipher(raw[:KeyLength])
	if err != nil {
		return nil, 0, err
	}
	return key, binary.LittleEndian.Uint64(raw[KeyLength:]), nil
}

// NonceSize is the length of the nonce prefixed to every sealed blob.
const NonceSize = 12

var ErrSealedTooShort = errors.New("sealed blob too short")

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCMWithNonceSize(block, NonceSize)
}

// Seal marshals v to JSON and encrypts it with AES-GCM under key. The result
// is nonce || ciphertext. aad is authenticated but not stored; Open must be
// given the same value.
//
//	blob, err := cryptox.Seal(rec, masterKey, rowID)
func Seal(v any, key, aad []byte) ([]byte, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	out := make([]byte, NonceSize, NonceSize+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(out); err != nil {
		return nil, err
	}
	return aead.Seal(out, out[:NonceSize], plaintext, aad), nil
}

// Open reverses Seal and unmarshals the plaintext into v. A wrong key, a
// different aad or a modified blob fails authentication.
func Open(blob, key, aad []byte, v any) error {
	if len(blob) < NonceSize {
		return ErrSealedTooShort
	}
	aead, err := newGCM(key)
	if err != nil {
		return err
	}
	plaintext, err := aead.Open(nil, blob[:NonceSize], blob[NonceSize:], aad)
	if err != nil {
		return err
	}
	return json.Unmarshal(plaintext, v)
}
