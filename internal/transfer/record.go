package transfer

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/gophxfer/internal/cryptox"
)

// Record is the resumable state of a transfer.
type Record struct {
	ID        uuid.UUID        `json:"id"`
	Direction Direction        `json:"direction"`
	Remote    string           `json:"remote"`
	Path      string           `json:"path"`
	Size      int64            `json:"size"`
	TempURL   string           `json:"tempurl"`
	Key       []byte           `json:"key"`
	CtrIV     uint64           `json:"ctriv"`
	MetaMAC   uint64           `json:"metamac"`
	Window    Window           `json:"window"`
	Confirmed map[int64]int64  `json:"confirmed"`
	MACs      map[int64][]byte `json:"macs"`
}

// ConfirmedBytes is the total size of the chunks the record marks as done.
func (r Record) ConfirmedBytes() int64 {
	var n int64
	for _, size := range r.Confirmed {
		n += size
	}
	return n
}

// Snapshot captures t for a later resume.
func (t *Transfer) Snapshot(tempURL string) Record {
	rec := Record{
		ID:        t.ID,
		Direction: t.Direction,
		Remote:    t.Remote,
		Path:      t.Path,
		Size:      t.Size,
		TempURL:   tempURL,
		Key:       t.Key.Key(),
		CtrIV:     t.CtrIV,
		MetaMAC:   t.MetaMAC,
		Window:    t.Window,
		Confirmed: make(map[int64]int64, len(t.confirmed)),
		MACs:      make(map[int64][]byte, t.MACs.Len()),
	}
	for pos, size := range t.confirmed {
		rec.Confirmed[pos] = size
	}
	for _, pos := range t.MACs.Offsets() {
		mac, _ := t.MACs.Get(pos)
		rec.MACs[pos] = mac[:]
	}
	return rec
}

// Restore rebuilds a pending transfer from rec.
func Restore(rec Record) (*Transfer, error) {
	key, err := cryptox.NewSymmCipher(rec.Key)
	if err != nil {
		return nil, fmt.Errorf("restore %s: %w", rec.ID, err)
	}

	t := &Transfer{
		ID:        rec.ID,
		Direction: rec.Direction,
		Remote:    rec.Remote,
		Path:      rec.Path,
		Size:      rec.Size,
		Key:       key,
		CtrIV:     rec.CtrIV,
		MetaMAC:   rec.MetaMAC,
		Window:    rec.Window,
		MACs:      cryptox.NewChunkMACs(),
		confirmed: make(map[int64]int64, len(rec.Confirmed)),
	}
	for pos, size := range rec.Confirmed {
		t.confirmed[pos] = size
	}
	for pos, raw := range rec.MACs {
		var mac cryptox.MAC
		if len(raw) != len(mac) {
			return nil, fmt.Errorf("restore %s: bad mac at %d", rec.ID, pos)
		}
		copy(mac[:], raw)
		t.MACs.Set(pos, mac)
	}
	return t, nil
}
