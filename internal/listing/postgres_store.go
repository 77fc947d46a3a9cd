package listing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/abduss/homelist/internal/image"
	"github.com/abduss/homelist/internal/metrics"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const repoTimeout = 5 * time.Second

// pgxConn is the subset of *pgxpool.Pool used by PostgresStore.
type pgxConn interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const (
	lockQuery   = `SELECT pg_advisory_xact_lock($1)`
	selectQuery = `SELECT id, attributes, images, created_at, updated_at FROM listings`
)

// PostgresStore keeps listings in the listings table. Mutations run in a
// transaction holding a transaction-scoped advisory lock, so writers are
// serialized across every process sharing the database.
type PostgresStore struct {
	db      pgxConn
	lockKey int64
	nowFunc func() time.Time
	idFunc  func() (string, error)
}

// NewPostgresStore builds a store over db. name scopes the advisory lock.
func NewPostgresStore(db pgxConn, name string) *PostgresStore {
	return &PostgresStore{
		db:      db,
		lockKey: LockKey(name),
		nowFunc: time.Now,
		idFunc:  newID,
	}
}

// LockKey derives the advisory lock key for a store name.
func LockKey(name string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte("homelist:listings:"))
	_, _ = h.Write([]byte(name))
	return int64(h.Sum64())
}

func (s *PostgresStore) Create(ctx context.Context, attrs map[string]any, images []image.Asset) (rec Record, err error) {
	defer func() { metrics.ObserveRecordOp("create", err) }()

	id, err := s.idFunc()
	if err != nil {
		return Record{}, storageErr("generate id", err)
	}
	now := nextTimestamp(time.Time{}, s.nowFunc())
	rec = Record{
		ID:         id,
		Attributes: cleanAttributes(attrs),
		Images:     append([]image.Asset{}, images...),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	attrsJSON, imagesJSON, err := encodeColumns(rec)
	if err != nil {
		return Record{}, err
	}

	err = s.withLock(ctx, "create", func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
INSERT INTO listings (id, attributes, images, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)`, rec.ID, attrsJSON, imagesJSON, rec.CreatedAt, rec.UpdatedAt)
		return err
	})
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Record, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	rec, err := scanRecord(s.db.QueryRow(ctx, selectQuery+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	return rec, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Record, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	rows, err := s.db.Query(ctx, selectQuery+` ORDER BY seq`)
	if err != nil {
		return nil, storageErr("list listings", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate listings", err)
	}
	return records, nil
}

func (s *PostgresStore) Update(ctx context.Context, id string, patch Patch) (rec Record, err error) {
	defer func() { metrics.ObserveRecordOp("update", ignoreNotFound(err)) }()

	err = s.withLock(ctx, "update", func(tx pgx.Tx) error {
		current, err := scanRecord(tx.QueryRow(ctx, selectQuery+` WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}

		merge(&current, patch, s.nowFunc())
		attrsJSON, imagesJSON, err := encodeColumns(current)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
UPDATE listings SET attributes = $2, images = $3, updated_at = $4
WHERE id = $1`, current.ID, attrsJSON, imagesJSON, current.UpdatedAt); err != nil {
			return err
		}
		rec = current
		return nil
	})
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) (removed bool, err error) {
	defer func() { metrics.ObserveRecordOp("delete", err) }()

	err = s.withLock(ctx, "delete", func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM listings WHERE id = $1`, id)
		if err != nil {
			return err
		}
		removed = tag.RowsAffected() > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

// withLock runs fn inside a transaction that holds the store's advisory lock.
// The transaction runs on a context detached from the caller's cancellation
// once it has begun.
func (s *PostgresStore) withLock(ctx context.Context, op string, fn func(tx pgx.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), repoTimeout)
	defer cancel()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return storageErr(op+": begin", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(ctx, lockQuery, s.lockKey); err != nil {
		return storageErr(op+": lock", err)
	}
	if err := fn(tx); err != nil {
		var se *StorageError
		if errors.Is(err, ErrNotFound) || errors.As(err, &se) {
			return err
		}
		return storageErr(op, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return storageErr(op+": commit", err)
	}
	return nil
}

func encodeColumns(rec Record) ([]byte, []byte, error) {
	attrsJSON, err := json.Marshal(rec.Attributes)
	if err != nil {
		return nil, nil, storageErr("encode attributes", err)
	}
	images := rec.Images
	if images == nil {
		images = []image.Asset{}
	}
	imagesJSON, err := json.Marshal(images)
	if err != nil {
		return nil, nil, storageErr("encode images", err)
	}
	return attrsJSON, imagesJSON, nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var (
		rec        Record
		attrsJSON  []byte
		imagesJSON []byte
	)
	if err := row.Scan(&rec.ID, &attrsJSON, &imagesJSON, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, err
		}
		return Record{}, storageErr("scan listing", err)
	}
	if err := json.Unmarshal(attrsJSON, &rec.Attributes); err != nil {
		return Record{}, storageErr("decode attributes", fmt.Errorf("%w: listing %s: %v", ErrCorruptCollection, rec.ID, err))
	}
	if rec.Attributes == nil {
		rec.Attributes = map[string]any{}
	}
	if len(imagesJSON) > 0 {
		if err := json.Unmarshal(imagesJSON, &rec.Images); err != nil {
			return Record{}, storageErr("decode images", fmt.Errorf("%w: listing %s: %v", ErrCorruptCollection, rec.ID, err))
		}
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return rec, nil
}
