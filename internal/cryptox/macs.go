package cryptox

import (
	"encoding/binary"
	"maps"
	"slices"
)

// ChunkMACs is the chunk MAC ledger of one transfer: chunk start offset to
// the MAC of that chunk. Entries may arrive in any order; Aggregate always
// folds them by ascending offset. Not safe for concurrent use.
type ChunkMACs struct {
	macs map[int64]MAC
}

func NewChunkMACs() *ChunkMACs {
	return &ChunkMACs{macs: make(map[int64]MAC)}
}

// Set records the MAC of the chunk starting at pos, replacing any previous one.
func (m *ChunkMACs) Set(pos int64, mac MAC) {
	if m.macs == nil {
		m.macs = make(map[int64]MAC)
	}
	m.macs[pos] = mac
}

func (m *ChunkMACs) Get(pos int64) (MAC, bool) {
	mac, ok := m.macs[pos]
	return mac, ok
}

func (m *ChunkMACs) Len() int {
	return len(m.macs)
}

// Offsets returns the recorded chunk offsets in ascending order.
func (m *ChunkMACs) Offsets() []int64 {
	return slices.Sorted(maps.Keys(m.macs))
}

// Clear drops every entry.
func (m *ChunkMACs) Clear() {
	clear(m.macs)
}

// Aggregate folds the ledger into the 8-byte file integrity code and drains
// it. Each MAC, in ascending offset order, is xored into a zero accumulator
// which is then ECB-encrypted with key. The four little-endian words of the
// accumulator are condensed as (m0^m1, m2^m3).
func (m *ChunkMACs) Aggregate(key *SymmCipher) uint64 {
	var acc MAC
	for _, pos := range m.Offsets() {
		mac := m.macs[pos]
		XORBlock(acc[:], mac[:])
		key.ECBEncrypt(acc[:], acc[:])
	}
	m.Clear()

	m0 := binary.LittleEndian.Uint32(acc[0:4])
	m1 := binary.LittleEndian.Uint32(acc[4:8])
	m2 := binary.LittleEndian.Uint32(acc[8:12])
	m3 := binary.LittleEndian.Uint32(acc[12:16])

	return uint64(m0^m1) | uint64(m2^m3)<<32
}
