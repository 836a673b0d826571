package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/meterkit/pkg/pg"
)

const insertEventQuery = `INSERT INTO audit_logs (id, event_type, actor, resource, action, details, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

// PgDB is the subset of *pgxpool.Pool used by PostgresStorage.
type PgDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStorage writes events to the audit_logs table.
type PostgresStorage struct {
	db PgDB
}

// NewPostgresStorage creates a storage over db.
func NewPostgresStorage(db PgDB) *PostgresStorage {
	return &PostgresStorage{db: db}
}

func (s *PostgresStorage) Store(ctx context.Context, event Event) error {
	args, err := eventArgs(event)
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(ctx, insertEventQuery, args...); err != nil {
		if pg.IsDuplicateKeyError(err) {
			// Already written by an earlier attempt.
			return nil
		}
		return errors.Join(ErrStorageNotAvailable, err)
	}
	return nil
}

// StoreBatch inserts all events in one transaction.
func (s *PostgresStorage) StoreBatch(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, event := range events {
		args, err := eventArgs(event)
		if err != nil {
			return err
		}
		batch.Queue(insertEventQuery, args...)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return errors.Join(ErrStorageNotAvailable, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return errors.Join(ErrStorageNotAvailable, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return errors.Join(ErrStorageNotAvailable, err)
	}
	return nil
}

func eventArgs(event Event) ([]any, error) {
	details, err := json.Marshal(event.Details)
	if err != nil {
		return nil, fmt.Errorf("audit: encode details of %s: %w", event.ID, err)
	}
	return []any{
		event.ID,
		event.EventType,
		event.Actor,
		event.Resource,
		event.Action,
		details,
		event.CreatedAt,
	}, nil
}
