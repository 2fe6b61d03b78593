package cryptox

import (
	"encoding/binary"
	"fmt"
)

// FileKeyLength is the length of the key registered for an uploaded file.
const FileKeyLength = 2 * KeyLength

// FileKey assembles the key that, together with the upload token, lets the
// backend register an uploaded file: key ‖ ctriv ‖ metaMAC with the first
// half xored by the second.
func FileKey(key *SymmCipher, ctriv, metaMAC uint64) [FileKeyLength]byte {
	var fk [FileKeyLength]byte
	copy(fk[:KeyLength], key.key[:])
	binary.LittleEndian.PutUint64(fk[16:24], ctriv)
	binary.LittleEndian.PutUint64(fk[24:32], metaMAC)
	XORBlock(fk[:KeyLength], fk[KeyLength:])
	return fk
}

// ParseFileKey is the inverse of FileKey: it recovers the transfer key, the
// counter IV and the expected integrity code needed to download the file.
func ParseFileKey(fk []byte) (key []byte, ctriv uint64, metaMAC uint64, err error) {
	if len(fk) != FileKeyLength {
		return nil, 0, 0, fmt.Errorf("file key must be %d bytes, got %d", FileKeyLength, len(fk))
	}
	key = make([]byte, KeyLength)
	copy(key, fk[:KeyLength])
	XORBlock(key, fk[KeyLength:])
	ctriv = binary.LittleEndian.Uint64(fk[16:24])
	metaMAC = binary.LittleEndian.Uint64(fk[24:32])
	return key, ctriv, metaMAC, nil
}
