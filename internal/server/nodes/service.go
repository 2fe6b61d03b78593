// Package nodes implements the storage server's upload sessions and its
// flat namespace of completed files.
package nodes

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/gophxfer/internal/common"
	"github.com/dmitrijs2005/gophxfer/internal/server/config"
	"github.com/dmitrijs2005/gophxfer/internal/server/storage"
	"github.com/dmitrijs2005/gophxfer/internal/server/tempurl"
)

var (
	ErrOutOfRange   = errors.New("chunk outside upload")
	ErrNameTaken    = errors.New("name already registered")
	ErrSizeMismatch = errors.New("size does not match upload")
)

// UploadTokenLength is the decoded size of the token returned when an
// upload completes.
const UploadTokenLength = 27

// Download describes where and how to fetch a node.
type Download struct {
	TempURL string
	Size    int64
	Key     string
}

type Service struct {
	repo      Repository
	store     storage.Storage
	publicURL string
	secret    []byte
	validity  time.Duration
	now       func() time.Time
}

func NewService(repo Repository, store storage.Storage, cfg *config.Config) *Service {
	return &Service{
		repo:      repo,
		store:     store,
		publicURL: cfg.PublicURL,
		secret:    []byte(cfg.SecretKey),
		validity:  cfg.TempURLValidity,
		now:       time.Now,
	}
}

// BeginUpload opens an upload session for size bytes and returns its tempurl.
func (s *Service) BeginUpload(ctx context.Context, size int64) (string, error) {
	if size < 0 {
		return "", ErrOutOfRange
	}

	id := uuid.NewString()
	if err := s.repo.CreateSession(ctx, newSession(id, size)); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}

	token, err := tempurl.Issue(tempurl.KindUpload, id, size, s.secret, s.validity)
	if err != nil {
		return "", fmt.Errorf("issue tempurl: %w", err)
	}

	return s.publicURL + "/ul/" + token, nil
}

// PutChunk stores a chunk of the session behind the tempurl token. Once the
// chunks cover the whole upload the object is persisted and the encoded
// upload token is returned; before that the result is empty.
func (s *Service) PutChunk(ctx context.Context, urlToken string, pos int64, data []byte) (string, error) {
	claims, err := tempurl.Parse(urlToken, tempurl.KindUpload, s.secret)
	if err != nil {
		return "", err
	}

	sess, err := s.repo.GetSession(ctx, claims.Object)
	if err != nil {
		return "", err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.closed {
		return sess.token, nil
	}
	if err := sess.add(pos, data); err != nil {
		return "", err
	}

	blob, ok := sess.assemble()
	if !ok {
		return "", nil
	}

	object := objectKey(sess.id)
	if err := s.store.Put(ctx, object, blob); err != nil {
		return "", fmt.Errorf("store object: %w", err)
	}

	token := base64.RawURLEncoding.EncodeToString(common.GenerateRandByteArray(UploadTokenLength))
	if err := s.repo.SaveUpload(ctx, token, Upload{Object: object, Size: sess.size}); err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}

	sess.closed = true
	sess.token = token
	sess.parts = nil

	return token, nil
}

// Register attaches a completed upload to name. key is the encoded file key
// the owner needs to decrypt it.
func (s *Service) Register(ctx context.Context, name, uploadToken, key string, size int64) (Node, error) {
	u, err := s.repo.TakeUpload(ctx, uploadToken)
	if err != nil {
		return Node{}, err
	}
	if u.Size != size {
		_ = s.repo.SaveUpload(ctx, uploadToken, u)
		return Node{}, ErrSizeMismatch
	}

	n := Node{Name: name, Object: u.Object, Size: u.Size, Key: key, Created: s.now().UTC()}
	if err := s.repo.CreateNode(ctx, n); err != nil {
		_ = s.repo.SaveUpload(ctx, uploadToken, u)
		return Node{}, err
	}

	return n, nil
}

func (s *Service) List(ctx context.Context) ([]Node, error) {
	return s.repo.ListNodes(ctx)
}

// BeginDownload issues a download tempurl for the named node.
func (s *Service) BeginDownload(ctx context.Context, name string) (Download, error) {
	n, err := s.repo.GetNode(ctx, name)
	if err != nil {
		return Download{}, err
	}

	token, err := tempurl.Issue(tempurl.KindDownload, n.Object, n.Size, s.secret, s.validity)
	if err != nil {
		return Download{}, fmt.Errorf("issue tempurl: %w", err)
	}

	return Download{TempURL: s.publicURL + "/dl/" + token, Size: n.Size, Key: n.Key}, nil
}

// GetChunk returns bytes [start, end) of the object behind the tempurl token.
func (s *Service) GetChunk(ctx context.Context, urlToken string, start, end int64) ([]byte, error) {
	claims, err := tempurl.Parse(urlToken, tempurl.KindDownload, s.secret)
	if err != nil {
		return nil, err
	}
	if start < 0 || end < start || end > claims.Size {
		return nil, ErrOutOfRange
	}

	return s.store.GetRange(ctx, claims.Object, start, end)
}
