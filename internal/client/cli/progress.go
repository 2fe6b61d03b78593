package cli

import (
	"fmt"
	"io"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/gophxfer/internal/transfer"
)

// progress prints a line per transfer whenever its whole percentage moves.
type progress struct {
	mu   sync.Mutex
	w    io.Writer
	last map[uuid.UUID]int64
}

func newProgress(w io.Writer) *progress {
	return &progress{w: w, last: make(map[uuid.UUID]int64)}
}

func percent(n, size int64) int64 {
	if size <= 0 {
		return 100
	}
	return n * 100 / size
}

func (p *progress) TransferUpdate(t *transfer.Transfer, n int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pct := percent(n, t.Size)
	if last, ok := p.last[t.ID]; ok && last == pct {
		return
	}
	p.last[t.ID] = pct

	fmt.Fprintf(p.w, "%s %s: %d%% (%s of %s)\n", t.Direction, t.Remote, pct,
		humanize.IBytes(uint64(n)), humanize.IBytes(uint64(t.Size)))
}

func (p *progress) TransferLimit(t *transfer.Transfer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.w, "%s %s: server bandwidth limit reached, waiting\n", t.Direction, t.Remote)
}
