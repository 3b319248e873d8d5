package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/storefront/domain"
	"github.com/fastygo/storefront/repository"
)

type aggregateStore struct {
	pool *pgxpool.Pool
}

// NewAggregateStore creates a Postgres-backed AggregateStore implementation.
func NewAggregateStore(pool *pgxpool.Pool) repository.AggregateStore {
	return &aggregateStore{pool: pool}
}

func (r *aggregateStore) Get(ctx context.Context, kind, id string) (*domain.Record, error) {
	const query = `
	SELECT id, kind, owner_id, version, payload, deleted, created_at, updated_at
	FROM aggregates
	WHERE id = $1 AND kind = $2
	`
	row := r.pool.QueryRow(ctx, query, id, kind)
	return scanRecord(row)
}

func (r *aggregateStore) List(ctx context.Context, filter repository.AggregateFilter) ([]domain.Record, error) {
	const query = `
	SELECT id, kind, owner_id, version, payload, deleted, created_at, updated_at
	FROM aggregates
	WHERE ($1 = '' OR kind = $1)
	  AND ($2 = '' OR owner_id = $2)
	  AND ($3 OR NOT deleted)
	ORDER BY created_at ASC, id ASC
	LIMIT $4 OFFSET $5
	`
	rows, err := r.pool.Query(ctx, query, filter.Kind, filter.OwnerID, filter.IncludeDeleted, repository.PageLimit(filter.Limit), filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

func (r *aggregateStore) CompareAndSwap(ctx context.Context, record domain.Record, expected int64, events []domain.EventRecord) (repository.SaveOutcome, error) {
	if record.ID == "" || record.Kind == "" {
		return repository.SaveOutcome{}, domain.ErrInvalidPayload
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return repository.SaveOutcome{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	next := expected + 1
	var tag pgconn.CommandTag
	if expected == 0 {
		const insert = `
		INSERT INTO aggregates (id, kind, owner_id, version, payload, deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
		`
		tag, err = tx.Exec(ctx, insert,
			record.ID, record.Kind, record.OwnerID, next, []byte(record.Payload),
			record.Deleted, record.CreatedAt, record.UpdatedAt,
		)
	} else {
		const update = `
		UPDATE aggregates
		SET owner_id = $3,
			version = $4,
			payload = $5,
			deleted = $6,
			updated_at = $7
		WHERE id = $1 AND kind = $2 AND version = $8
		`
		tag, err = tx.Exec(ctx, update,
			record.ID, record.Kind, record.OwnerID, next, []byte(record.Payload),
			record.Deleted, record.UpdatedAt, expected,
		)
	}
	if err != nil {
		return repository.SaveOutcome{}, fmt.Errorf("write aggregate %s/%s: %w", record.Kind, record.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return repository.Rejected(r.currentVersion(ctx, record.ID)), nil
	}

	if len(events) > 0 {
		batch := &pgx.Batch{}
		for _, event := range events {
			batch.Queue(`
			INSERT INTO aggregate_events (id, aggregate_id, aggregate_kind, name, version, payload, metadata, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, NOW()))
			`,
				event.ID, event.AggregateID, event.AggregateKind, event.Name, next,
				[]byte(event.Payload), marshalMap(event.Metadata), nullTime(event.CreatedAt),
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return repository.SaveOutcome{}, fmt.Errorf("append events for %s: %w", record.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return repository.SaveOutcome{}, err
	}
	return repository.Applied(next), nil
}

func (r *aggregateStore) Events(ctx context.Context, aggregateID string) ([]domain.EventRecord, error) {
	const query = `
	SELECT id, aggregate_id, aggregate_kind, name, version, payload, metadata, created_at
	FROM aggregate_events
	WHERE aggregate_id = $1
	ORDER BY version ASC, seq ASC
	`
	rows, err := r.pool.Query(ctx, query, aggregateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.EventRecord
	for rows.Next() {
		var (
			record   domain.EventRecord
			payload  []byte
			metadata []byte
		)
		if err := rows.Scan(
			&record.ID,
			&record.AggregateID,
			&record.AggregateKind,
			&record.Name,
			&record.Version,
			&payload,
			&metadata,
			&record.CreatedAt,
		); err != nil {
			return nil, err
		}
		record.Payload = append([]byte(nil), payload...)
		record.Metadata = unmarshalMap(metadata)
		records = append(records, record)
	}
	return records, rows.Err()
}

func (r *aggregateStore) currentVersion(ctx context.Context, id string) int64 {
	var version int64
	if err := r.pool.QueryRow(ctx, `SELECT version FROM aggregates WHERE id = $1`, id).Scan(&version); err != nil {
		return 0
	}
	return version
}

func scanRecord(row interface {
	Scan(dest ...interface{}) error
}) (*domain.Record, error) {
	var record domain.Record
	var payload []byte

	if err := row.Scan(
		&record.ID,
		&record.Kind,
		&record.OwnerID,
		&record.Version,
		&payload,
		&record.Deleted,
		&record.CreatedAt,
		&record.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAggregateNotFound
		}
		return nil, err
	}

	record.Payload = make([]byte, len(payload))
	copy(record.Payload, payload)
	return &record, nil
}
