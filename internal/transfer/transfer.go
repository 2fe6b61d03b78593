// Package transfer drives the chunked, encrypted upload or download of one
// file.
//
// A Transfer holds what must survive a restart: key, counter IV, expected
// integrity code, the chunk MAC ledger and the set of confirmed chunks. A Slot
// is one attempt at moving the bytes: it owns a fixed pool of connections and
// advances them one non-blocking pass at a time (Slot.DoIO). A Runner loops
// those passes, sleeps between them and restarts stalled slots.
package transfer

import (
	"fmt"
	"maps"
	"slices"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/gophxfer/internal/cryptox"
)

// Direction of a transfer.
type Direction int

const (
	Download Direction = iota
	Upload
)

func (d Direction) String() string {
	if d == Upload {
		return "upload"
	}
	return "download"
}

// State of a transfer.
type State int

const (
	Pending State = iota
	Active
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Active:
		return "active"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Window is the byte range [Start, End) of a download that is written to the
// local file. End < 0 means up to the end of the file.
type Window struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// Unbounded is the window covering the whole file.
var Unbounded = Window{Start: 0, End: -1}

// clip returns how many bytes to skip at the front and drop at the back of
// the n bytes found at pos.
func (w Window) clip(pos int64, n int64) (skip, prune int64) {
	if w.End < 0 {
		return 0, 0
	}
	if w.Start > pos {
		skip = min(w.Start-pos, n)
	}
	if pos+n > w.End {
		prune = min(pos+n-w.End, n-skip)
	}
	return skip, prune
}

// Transfer is a single file being uploaded or downloaded.
type Transfer struct {
	ID        uuid.UUID
	Direction Direction
	// Remote names the file on the server side.
	Remote string
	// Path is the local file. Downloads are written to PartPath first.
	Path string
	Size int64
	// Pos is the planner cursor: every chunk below it has been assigned.
	Pos int64

	Key   *cryptox.SymmCipher
	CtrIV uint64
	// MetaMAC is the integrity code a download must reproduce.
	MetaMAC uint64
	Window  Window
	MACs    *cryptox.ChunkMACs

	State State
	Err   error

	// Set when an upload completes.
	UploadToken []byte
	FileKey     [cryptox.FileKeyLength]byte

	confirmed map[int64]int64
	slot      *Slot
}

// NewUpload describes the upload of size bytes from path under a fresh key.
func NewUpload(path, remote string, size int64, key *cryptox.SymmCipher, ctriv uint64) *Transfer {
	return &Transfer{
		ID:        uuid.New(),
		Direction: Upload,
		Remote:    remote,
		Path:      path,
		Size:      size,
		Key:       key,
		CtrIV:     ctriv,
		Window:    Unbounded,
		MACs:      cryptox.NewChunkMACs(),
		confirmed: make(map[int64]int64),
	}
}

// NewDownload describes the download of a file whose key, counter IV and
// integrity code were recovered from its file key.
func NewDownload(path, remote string, size int64, key *cryptox.SymmCipher, ctriv, metaMAC uint64) *Transfer {
	return &Transfer{
		ID:        uuid.New(),
		Direction: Download,
		Remote:    remote,
		Path:      path,
		Size:      size,
		Key:       key,
		CtrIV:     ctriv,
		MetaMAC:   metaMAC,
		Window:    Unbounded,
		MACs:      cryptox.NewChunkMACs(),
		confirmed: make(map[int64]int64),
	}
}

// PartPath is where a download is written until it verifies.
func (t *Transfer) PartPath() string {
	return t.Path + ".part"
}

// Slot returns the active slot, nil between attempts.
func (t *Transfer) Slot() *Slot {
	return t.slot
}

// Confirm marks the chunk [pos, npos) as acknowledged by the server.
func (t *Transfer) Confirm(pos, npos int64) {
	if t.confirmed == nil {
		t.confirmed = make(map[int64]int64)
	}
	t.confirmed[pos] = npos - pos
}

func (t *Transfer) IsConfirmed(pos int64) bool {
	_, ok := t.confirmed[pos]
	return ok
}

// ConfirmedChunks returns the confirmed chunk offsets in ascending order.
func (t *Transfer) ConfirmedChunks() []int64 {
	return slices.Sorted(maps.Keys(t.confirmed))
}

// ConfirmedBytes is the total size of the confirmed chunks.
func (t *Transfer) ConfirmedBytes() int64 {
	var n int64
	for _, size := range t.confirmed {
		n += size
	}
	return n
}

// Restart forgets a failed attempt so the transfer can be given a new slot.
// Confirmed chunks and their MACs are kept.
func (t *Transfer) Restart() {
	t.State = Pending
	t.Err = nil
	t.Pos = 0
}

func (t *Transfer) complete() {
	t.State = Completed
	t.Err = nil
}

func (t *Transfer) fail(err error) {
	t.State = Failed
	t.Err = err
}

func (t *Transfer) String() string {
	return fmt.Sprintf("%s %s (%s, %d bytes)", t.Direction, t.Remote, t.ID, t.Size)
}
