package nodes

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Node is a completed upload registered under a name.
type Node struct {
	Name    string
	Object  string
	Size    int64
	Key     string
	Created time.Time
}

// Upload is a finished upload session not yet attached to a node.
type Upload struct {
	Object string
	Size   int64
}

// session collects the chunks of one upload until they cover its size.
type session struct {
	mu     sync.Mutex
	id     string
	size   int64
	parts  map[int64][]byte
	token  string
	closed bool
}

func newSession(id string, size int64) *session {
	return &session{id: id, size: size, parts: make(map[int64][]byte)}
}

// add stores a chunk; a resent chunk replaces the earlier copy.
func (s *session) add(pos int64, data []byte) error {
	if pos < 0 || pos+int64(len(data)) > s.size {
		return ErrOutOfRange
	}
	s.parts[pos] = append([]byte(nil), data...)
	return nil
}

// assemble returns the whole object once the chunks tile [0, size) exactly.
func (s *session) assemble() ([]byte, bool) {
	offsets := make([]int64, 0, len(s.parts))
	for pos := range s.parts {
		offsets = append(offsets, pos)
	}
	sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })

	var next int64
	for _, pos := range offsets {
		if pos != next {
			return nil, false
		}
		next += int64(len(s.parts[pos]))
	}
	if next != s.size {
		return nil, false
	}

	out := make([]byte, 0, s.size)
	for _, pos := range offsets {
		out = append(out, s.parts[pos]...)
	}
	return out, true
}

func objectKey(sessionID string) string {
	return fmt.Sprintf("objects/%s", sessionID)
}
