package listing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/abduss/homelist/internal/image"
	"github.com/abduss/homelist/internal/metrics"
	"go.uber.org/zap"
)

const maxIDAttempts = 5

// FileStore keeps the whole collection as a JSON array in one file.
// Every mutation is a load -> modify -> persist cycle under one mutex, and the
// file is replaced atomically (temp -> fsync -> rename) so readers never see a partial write.
type FileStore struct {
	path    string
	log     *zap.Logger
	nowFunc func() time.Time
	idFunc  func() (string, error)

	mu sync.RWMutex
}

// NewFileStore returns a store persisting to path. The file and its directory
// are created on the first mutation.
func NewFileStore(path string, log *zap.Logger) *FileStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &FileStore{
		path:    path,
		log:     log.With(zap.String("component", "file_store")),
		nowFunc: time.Now,
		idFunc:  newID,
	}
}

// Path returns the collection file location.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Create(ctx context.Context, attrs map[string]any, images []image.Asset) (Record, error) {
	var created Record
	err := s.mutate(ctx, "create", func(records []Record) ([]Record, error) {
		id, err := s.uniqueID(records)
		if err != nil {
			return nil, err
		}
		now := nextTimestamp(time.Time{}, s.nowFunc())
		created = Record{
			ID:         id,
			Attributes: cleanAttributes(attrs),
			Images:     append([]image.Asset{}, images...),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		return append(records, created), nil
	})
	if err != nil {
		return Record{}, err
	}
	return created.clone(), nil
}

func (s *FileStore) Get(ctx context.Context, id string) (Record, error) {
	records, err := s.List(ctx)
	if err != nil {
		return Record{}, err
	}
	for _, r := range records {
		if r.ID == id {
			return r, nil
		}
	}
	return Record{}, ErrNotFound
}

func (s *FileStore) List(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load()
}

func (s *FileStore) Update(ctx context.Context, id string, patch Patch) (Record, error) {
	var updated Record
	err := s.mutate(ctx, "update", func(records []Record) ([]Record, error) {
		for i := range records {
			if records[i].ID != id {
				continue
			}
			merge(&records[i], patch, s.nowFunc())
			updated = records[i]
			return records, nil
		}
		return nil, ErrNotFound
	})
	if err != nil {
		return Record{}, err
	}
	return updated.clone(), nil
}

func (s *FileStore) Delete(ctx context.Context, id string) (bool, error) {
	removed := false
	err := s.mutate(ctx, "delete", func(records []Record) ([]Record, error) {
		kept := records[:0]
		for _, r := range records {
			if r.ID == id {
				removed = true
				continue
			}
			kept = append(kept, r)
		}
		if !removed {
			return nil, errUnchanged
		}
		return kept, nil
	})
	if errors.Is(err, errUnchanged) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// errUnchanged lets a mutation skip the write.
var errUnchanged = errors.New("collection unchanged")

// mutate runs one serialized read-modify-write cycle. Cancellation is only
// honoured before the cycle starts.
func (s *FileStore) mutate(ctx context.Context, op string, fn func([]Record) ([]Record, error)) (err error) {
	defer func() {
		if !errors.Is(err, errUnchanged) {
			metrics.ObserveRecordOp(op, ignoreNotFound(err))
		}
	}()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	next, err := fn(records)
	if err != nil {
		return err
	}
	if err := s.persist(next); err != nil {
		s.log.Error("persist collection", zap.String("op", op), zap.Error(err))
		return err
	}
	metrics.Records.Set(float64(len(next)))
	return nil
}

// load reads the collection. A missing file is an empty collection; an
// unreadable or unparsable file is a StorageError so it is never overwritten.
func (s *FileStore) load() ([]Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Record{}, nil
		}
		return nil, storageErr("read collection", err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		s.log.Error("collection file is not valid JSON", zap.String("path", s.path), zap.Error(err))
		return nil, storageErr("parse collection", fmt.Errorf("%w: %v", ErrCorruptCollection, err))
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

func (s *FileStore) persist(records []Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return storageErr("encode collection", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return storageErr("create data dir", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return storageErr("create temp file", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return storageErr("write collection", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return storageErr("sync collection", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return storageErr("close collection", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return storageErr("replace collection", err)
	}
	return nil
}

func (s *FileStore) uniqueID(records []Record) (string, error) {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id, err := s.idFunc()
		if err != nil {
			return "", storageErr("generate id", err)
		}
		if !containsID(records, id) {
			return id, nil
		}
	}
	return "", storageErr("generate id", errors.New("could not generate a unique id"))
}

func containsID(records []Record, id string) bool {
	for _, r := range records {
		if r.ID == id {
			return true
		}
	}
	return false
}

func ignoreNotFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}
