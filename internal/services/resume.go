// Package services contains the client's application services. This file
// defines the resume service: sealed snapshots of interrupted transfers kept
// in the local state cache.
package services

import (
	"context"
	"crypto/subtle"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/gophxfer/internal/common"
	"github.com/dmitrijs2005/gophxfer/internal/cryptox"
	"github.com/dmitrijs2005/gophxfer/internal/repositories/statecache"
	"github.com/dmitrijs2005/gophxfer/internal/transfer"
)

// ErrLocked is returned when records are accessed before Unlock.
var ErrLocked = errors.New("resume store is locked")

// ErrStoreCrowded is returned by Save when every row a transfer may use is
// taken by other transfers.
var ErrStoreCrowded = errors.New("no free resume row")

const (
	metaID  uint32 = 0
	saltLen        = 32
	// maxProbe is how many consecutive rows a transfer may occupy, starting
	// at recordID.
	maxProbe = 16
)

// ResumeService stores transfer records sealed under a passphrase.
//
// Contract:
//   - Unlock derives the sealing key; the first call on an empty cache sets
//     the passphrase, later calls must present the same one.
//   - Save, Load, List and Forget require a prior Unlock.
//   - Reset wipes the cache including the passphrase check.
type ResumeService interface {
	Unlock(ctx context.Context, passphrase []byte) error
	Save(ctx context.Context, rec transfer.Record) error
	Load(ctx context.Context, id uuid.UUID) (transfer.Record, error)
	List(ctx context.Context) ([]transfer.Record, error)
	Forget(ctx context.Context, id uuid.UUID) error
	Reset(ctx context.Context) error
}

type meta struct {
	Salt     []byte `json:"salt"`
	Verifier []byte `json:"verifier"`
}

type resumeService struct {
	repo statecache.Repository
	key  []byte
}

func NewResumeService(repo statecache.Repository) ResumeService {
	return &resumeService{repo: repo}
}

func (s *resumeService) Unlock(ctx context.Context, passphrase []byte) error {
	raw, err := s.repo.Get(ctx, metaID)
	if errors.Is(err, common.ErrorNotFound) {
		return s.initialize(ctx, passphrase)
	}
	if err != nil {
		return fmt.Errorf("read resume metadata: %w", err)
	}

	var m meta
	if err := json.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("parse resume metadata: %w", err)
	}

	key := cryptox.DeriveMasterKey(passphrase, m.Salt)
	if subtle.ConstantTimeCompare(m.Verifier, cryptox.MakeVerifier(key)) == 0 {
		return common.ErrWrongPassphrase
	}
	s.key = key
	return nil
}

func (s *resumeService) initialize(ctx context.Context, passphrase []byte) error {
	salt := common.GenerateRandByteArray(saltLen)
	key := cryptox.DeriveMasterKey(passphrase, salt)

	raw, err := json.Marshal(meta{Salt: salt, Verifier: cryptox.MakeVerifier(key)})
	if err != nil {
		return err
	}
	if err := s.repo.Put(ctx, metaID, raw); err != nil {
		return fmt.Errorf("save resume metadata: %w", err)
	}
	s.key = key
	return nil
}

// recordID is the first state cache row tried for a transfer. Row 0 holds
// the metadata. Transfers whose ids share the leading four bytes start at the
// same row; locate walks forward from there.
func recordID(id uuid.UUID) uint32 {
	n := binary.BigEndian.Uint32(id[:4])
	if n == metaID {
		n = 1
	}
	return n
}

func nextRow(row uint32) uint32 {
	row++
	if row == metaID {
		row++
	}
	return row
}

// rowAAD binds a sealed record to the row it was written to.
func rowAAD(row uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, row)
}

// slot is where a transfer's record lives, or may be written.
type slot struct {
	row   uint32
	rec   transfer.Record
	found bool
	free  bool
}

// locate walks the probe window of id. It returns the row holding id's
// record when there is one, otherwise the first free row. Rows that cannot be
// opened count as taken.
func (s *resumeService) locate(ctx context.Context, id uuid.UUID) (slot, error) {
	var first slot
	row := recordID(id)
	for range maxProbe {
		raw, err := s.repo.Get(ctx, row)
		switch {
		case errors.Is(err, common.ErrorNotFound):
			if !first.free {
				first = slot{row: row, free: true}
			}
		case err != nil:
			return slot{}, err
		default:
			if rec, err := s.open(row, raw); err == nil && rec.ID == id {
				return slot{row: row, rec: rec, found: true}, nil
			}
		}
		row = nextRow(row)
	}
	return first, nil
}

func (s *resumeService) Save(ctx context.Context, rec transfer.Record) error {
	if s.key == nil {
		return ErrLocked
	}
	at, err := s.locate(ctx, rec.ID)
	if err != nil {
		return fmt.Errorf("save record %s: %w", rec.ID, err)
	}
	if !at.found && !at.free {
		return fmt.Errorf("save record %s: %w", rec.ID, ErrStoreCrowded)
	}
	blob, err := cryptox.Seal(rec, s.key, rowAAD(at.row))
	if err != nil {
		return fmt.Errorf("seal record %s: %w", rec.ID, err)
	}
	if err := s.repo.Put(ctx, at.row, blob); err != nil {
		return fmt.Errorf("save record %s: %w", rec.ID, err)
	}
	return nil
}

func (s *resumeService) open(row uint32, raw []byte) (transfer.Record, error) {
	var rec transfer.Record
	err := cryptox.Open(raw, s.key, rowAAD(row), &rec)
	return rec, err
}

func (s *resumeService) Load(ctx context.Context, id uuid.UUID) (transfer.Record, error) {
	if s.key == nil {
		return transfer.Record{}, ErrLocked
	}
	at, err := s.locate(ctx, id)
	if err != nil {
		return transfer.Record{}, fmt.Errorf("load record %s: %w", id, err)
	}
	if !at.found {
		return transfer.Record{}, common.ErrorNotFound
	}
	return at.rec, nil
}

// List returns every stored record in state cache order.
func (s *resumeService) List(ctx context.Context) ([]transfer.Record, error) {
	if s.key == nil {
		return nil, ErrLocked
	}
	var out []transfer.Record
	err := s.repo.Iterate(ctx, func(id uint32, raw []byte) error {
		if id == metaID {
			return nil
		}
		rec, err := s.open(id, raw)
		if err != nil {
			return fmt.Errorf("open record %d: %w", id, err)
		}
		out = append(out, rec)
		return nil
	})
	return out, err
}

// Forget removes id's record. Forgetting an unknown transfer is a no-op.
func (s *resumeService) Forget(ctx context.Context, id uuid.UUID) error {
	if s.key == nil {
		return ErrLocked
	}
	at, err := s.locate(ctx, id)
	if err != nil || !at.found {
		return err
	}
	return s.repo.Delete(ctx, at.row)
}

func (s *resumeService) Reset(ctx context.Context) error {
	s.key = nil
	return s.repo.Truncate(ctx)
}
