package transfer

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gophxfer/internal/chunk"
	"github.com/dmitrijs2005/gophxfer/internal/cryptox"
	"github.com/dmitrijs2005/gophxfer/internal/httpio"
)

const tempURL = "http://storage.test/dl/abc"

var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

type memFile struct {
	data   []byte
	out    []byte
	writes []int64
	closed bool
}

func (m *memFile) Read(n int, padding int, off int64) ([]byte, error) {
	if off+int64(n) > int64(len(m.data)) {
		return nil, fmt.Errorf("read past end: %d+%d", off, n)
	}
	buf := make([]byte, n+padding)
	copy(buf, m.data[off:off+int64(n)])
	return buf, nil
}

func (m *memFile) Write(p []byte, off int64) error {
	if end := off + int64(len(p)); end > int64(len(m.out)) {
		grown := make([]byte, end)
		copy(grown, m.out)
		m.out = grown
	}
	copy(m.out[off:], p)
	m.writes = append(m.writes, off)
	return nil
}

func (m *memFile) Close() error {
	m.closed = true
	return nil
}

type posted struct {
	req  *httpio.Request
	url  string
	data []byte
}

// fakeIO records posts; tests complete them by hand.
type fakeIO struct {
	posts     []posted
	cancelled int
}

func (f *fakeIO) Post(_ context.Context, req *httpio.Request, data []byte) {
	req.Reset()
	f.posts = append(f.posts, posted{req: req, url: req.URL(), data: append([]byte(nil), data...)})
}

func (f *fakeIO) Cancel(req *httpio.Request) {
	f.cancelled++
	req.SetStatus(httpio.Ready)
}

func (f *fakeIO) last(url string) *httpio.Request {
	for i := len(f.posts) - 1; i >= 0; i-- {
		if f.posts[i].url == url {
			return f.posts[i].req
		}
	}
	return nil
}

type recorder struct {
	updates []int64
	limits  int
}

func (r *recorder) TransferUpdate(_ *Transfer, p int64) { r.updates = append(r.updates, p) }
func (r *recorder) TransferLimit(*Transfer)             { r.limits++ }

func testKey(t *testing.T) *cryptox.SymmCipher {
	t.Helper()
	key, err := cryptox.NewSymmCipher([]byte("0123456789abcdef"))
	require.NoError(t, err)
	return key
}

func pattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*31 + i/251)
	}
	return b
}

// encryptFile produces what the server stores for plain, the chunk MACs and
// the resulting integrity code.
func encryptFile(t *testing.T, key *cryptox.SymmCipher, ctriv uint64, plain []byte) ([]byte, map[int64]cryptox.MAC, uint64) {
	t.Helper()
	enc := append([]byte(nil), plain...)
	macs := cryptox.NewChunkMACs()
	chunkMACs := make(map[int64]cryptox.MAC)
	size := int64(len(plain))
	for pos := int64(0); pos < size; pos = chunk.Next(pos, size) {
		npos := chunk.Next(pos, size)
		mac, err := key.CTRCrypt(enc[pos:npos], pos, ctriv, true)
		require.NoError(t, err)
		macs.Set(pos, mac)
		chunkMACs[pos] = mac
	}
	return enc, chunkMACs, macs.Aggregate(key)
}

func succeed(req *httpio.Request, body []byte) {
	req.Deliver(body)
	req.Complete(httpio.Success, 200)
}

func failWith(req *httpio.Request, code int) {
	req.Complete(httpio.Failure, code)
}

func dlURL(pos, npos int64) string {
	return fmt.Sprintf("%s/%d-%d", tempURL, pos, npos-1)
}

func ulURL(pos int64) string {
	return fmt.Sprintf("%s/%d", tempURL, pos)
}
