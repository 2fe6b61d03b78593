package transfer

import (
	"fmt"

	"github.com/dmitrijs2005/gophxfer/internal/cryptox"
	"github.com/dmitrijs2005/gophxfer/internal/filex"
	"github.com/dmitrijs2005/gophxfer/internal/httpio"
)

// chunkRequest is one connection of a slot. It is either an *uploadRequest or
// a *downloadRequest.
type chunkRequest interface {
	request() *httpio.Request
	span() (pos, npos int64)
	// prepare assigns the chunk [pos, npos) to the connection.
	prepare(tempURL string, t *Transfer, file filex.FileAccess, pos, npos int64) error
	// payload is the body to post.
	payload() []byte
	transferred() int64
}

func newChunkRequest(d Direction) chunkRequest {
	if d == Upload {
		return &uploadRequest{req: httpio.NewRequest(httpio.NewGrowable())}
	}
	return &downloadRequest{}
}

type downloadRequest struct {
	req       *httpio.Request
	pos, npos int64
}

func (r *downloadRequest) request() *httpio.Request { return r.req }
func (r *downloadRequest) span() (int64, int64)     { return r.pos, r.npos }
func (r *downloadRequest) payload() []byte          { return nil }
func (r *downloadRequest) transferred() int64       { return r.req.Received() }

func (r *downloadRequest) prepare(tempURL string, _ *Transfer, _ filex.FileAccess, pos, npos int64) error {
	size := int(npos - pos)
	if r.req == nil || r.req.Capacity() != size {
		r.req = httpio.NewRequest(httpio.NewFixed(size))
	}
	r.req.SetURL(fmt.Sprintf("%s/%d-%d", tempURL, pos, npos-1))
	r.pos, r.npos = pos, npos
	return nil
}

// complete reports whether the whole range arrived.
func (r *downloadRequest) complete() bool {
	return int64(len(r.req.Body())) == r.npos-r.pos
}

// finalize decrypts the received chunk in place, records its MAC and writes
// the part that falls inside the transfer window.
func (r *downloadRequest) finalize(t *Transfer, file filex.FileAccess) error {
	buf := r.req.Body()
	mac, err := t.Key.CTRCrypt(buf, r.pos, t.CtrIV, false)
	if err != nil {
		return err
	}

	skip, prune := t.Window.clip(r.pos, int64(len(buf)))
	if out := buf[skip : int64(len(buf))-prune]; len(out) > 0 {
		if err := file.Write(out, r.pos+skip); err != nil {
			return err
		}
	}

	t.MACs.Set(r.pos, mac)
	return nil
}

type uploadRequest struct {
	req       *httpio.Request
	pos, npos int64
	data      []byte
}

func (r *uploadRequest) request() *httpio.Request { return r.req }
func (r *uploadRequest) span() (int64, int64)     { return r.pos, r.npos }
func (r *uploadRequest) payload() []byte          { return r.data }
func (r *uploadRequest) transferred() int64       { return r.req.Sent() }

// prepare reads, MACs and encrypts the chunk. The MAC is recorded right away:
// the upload token may arrive on any connection, before the successes of the
// others have been processed.
func (r *uploadRequest) prepare(tempURL string, t *Transfer, file filex.FileAccess, pos, npos int64) error {
	size := int(npos - pos)
	padding := -size & (cryptox.BlockSize - 1)

	buf, err := file.Read(size, padding, pos)
	if err != nil {
		return err
	}
	mac, err := t.Key.CTRCrypt(buf, pos, t.CtrIV, true)
	if err != nil {
		return err
	}
	if size > 0 {
		t.MACs.Set(pos, mac)
	}

	r.req.SetURL(fmt.Sprintf("%s/%d", tempURL, pos))
	r.pos, r.npos = pos, npos
	r.data = buf[:size]
	return nil
}
