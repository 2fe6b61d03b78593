package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"fmt"
)

const (
	// BlockSize is the AES block size; chunk MACs are one block long.
	BlockSize = aes.BlockSize
	// KeyLength is the length of a transfer key (AES-128).
	KeyLength = 16
)

// MAC is a per-chunk integrity tag.
type MAC [BlockSize]byte

// SymmCipher is a transfer key bound to an AES-128 block cipher.
//
// It provides raw single-block ECB encryption, used by the MAC aggregator,
// and the counter-mode transform with a simultaneous chunk MAC used for
// every chunk of a transfer.
type SymmCipher struct {
	key   [KeyLength]byte
	block cipher.Block
}

// NewSymmCipher binds key to a block cipher. key must be KeyLength bytes.
func NewSymmCipher(key []byte) (*SymmCipher, error) {
	if len(key) != KeyLength {
		return nil, fmt.Errorf("transfer key must be %d bytes, got %d", KeyLength, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	c := &SymmCipher{block: block}
	copy(c.key[:], key)
	return c, nil
}

// Key returns a copy of the raw key bytes.
func (c *SymmCipher) Key() []byte {
	k := make([]byte, KeyLength)
	copy(k, c.key[:])
	return k
}

// ECBEncrypt encrypts exactly one block from src into dst. dst and src may overlap.
func (c *SymmCipher) ECBEncrypt(dst, src []byte) {
	c.block.Encrypt(dst, src)
}

// CTRCrypt encrypts (encrypt=true) or decrypts data in place as the bytes
// found at absolute offset pos of the file, and returns the chunk MAC over
// the plaintext.
//
// The counter block is ctriv (little endian) followed by pos/BlockSize (big
// endian), so any block-aligned byte range can be transformed on its own and
// in any order. The MAC is a CBC-MAC seeded with ctriv‖ctriv; a trailing
// partial block is MACed as if zero padded.
func (c *SymmCipher) CTRCrypt(data []byte, pos int64, ctriv uint64, encrypt bool) (MAC, error) {
	var mac MAC
	if pos < 0 || pos%BlockSize != 0 {
		return mac, fmt.Errorf("ctr offset %d is not block aligned", pos)
	}

	var ctr [BlockSize]byte
	binary.LittleEndian.PutUint64(ctr[:8], ctriv)
	binary.BigEndian.PutUint64(ctr[8:], uint64(pos/BlockSize))

	copy(mac[:8], ctr[:8])
	copy(mac[8:], ctr[:8])

	stream := cipher.NewCTR(c.block, ctr[:])
	if encrypt {
		c.macBlocks(&mac, data)
		stream.XORKeyStream(data, data)
	} else {
		stream.XORKeyStream(data, data)
		c.macBlocks(&mac, data)
	}
	return mac, nil
}

func (c *SymmCipher) macBlocks(mac *MAC, data []byte) {
	for off := 0; off < len(data); off += BlockSize {
		end := min(off+BlockSize, len(data))
		XORBlock(mac[:], data[off:end])
		c.block.Encrypt(mac[:], mac[:])
	}
}

// XORBlock xors src into dst over the shorter of the two lengths.
func XORBlock(dst, src []byte) {
	n := min(len(dst), len(src))
	for i := 0; i < n; i++ {
		dst[i] ^= src[i]
	}
}
