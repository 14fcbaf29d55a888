package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v5"
	pgconnv5 "github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// Repository persists catalog records.
type Repository interface {
	Insert(ctx context.Context, rec Record) (Record, error)
	Get(ctx context.Context, code string) (Record, error)
	List(ctx context.Context, filter ListFilter) ([]Record, error)
	Delete(ctx context.Context, code string) error
	// Window returns records whose range touches [from, to]: end_at >= from and start_at <= to.
	Window(ctx context.Context, from, to time.Time) ([]Record, error)
	// Scan streams every record ordered by code in batches of batchSize.
	Scan(ctx context.Context, batchSize int, fn func(Record) error) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds a pgx-backed Repository over the period_catalog table.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const selectColumns = `id, code, label, zone, start_at, end_at, utc_offset_seconds, created_at`

func (r *repository) Insert(ctx context.Context, rec Record) (Record, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO period_catalog (id, code, label, zone, start_at, end_at, utc_offset_seconds)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING created_at`,
		rec.ID, rec.Code, rec.Label, rec.Zone, rec.StartAt, rec.EndAt, rec.OffsetSeconds).Scan(&rec.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return Record{}, ErrDuplicateCode
		}
		return Record{}, fmt.Errorf("catalog: insert: %w", err)
	}
	return rec, nil
}

func (r *repository) Get(ctx context.Context, code string) (Record, error) {
	row := r.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM period_catalog WHERE code=$1`, code)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("catalog: get: %w", err)
	}
	return rec, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Record, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	rows, err := r.db.Query(ctx, `SELECT `+selectColumns+` FROM period_catalog ORDER BY start_at, code LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("catalog: list: %w", err)
	}
	return collect(rows)
}

func (r *repository) Delete(ctx context.Context, code string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM period_catalog WHERE code=$1`, code)
	if err != nil {
		return fmt.Errorf("catalog: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Window(ctx context.Context, from, to time.Time) ([]Record, error) {
	rows, err := r.db.Query(ctx, `SELECT `+selectColumns+` FROM period_catalog
WHERE end_at >= $1 AND start_at <= $2 ORDER BY start_at, code`, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("catalog: window: %w", err)
	}
	return collect(rows)
}

func (r *repository) Scan(ctx context.Context, batchSize int, fn func(Record) error) error {
	if batchSize <= 0 {
		batchSize = 500
	}
	after := ""
	for {
		rows, err := r.db.Query(ctx, `SELECT `+selectColumns+` FROM period_catalog WHERE code > $1 ORDER BY code LIMIT $2`, after, batchSize)
		if err != nil {
			return fmt.Errorf("catalog: scan: %w", err)
		}
		batch, err := collect(rows)
		if err != nil {
			return err
		}
		for _, rec := range batch {
			if err := fn(rec); err != nil {
				return err
			}
		}
		if len(batch) < batchSize {
			return nil
		}
		after = batch[len(batch)-1].Code
	}
}

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.Code, &rec.Label, &rec.Zone, &rec.StartAt, &rec.EndAt, &rec.OffsetSeconds, &rec.CreatedAt)
	return rec, err
}

func collect(rows pgx.Rows) ([]Record, error) {
	defer rows.Close()
	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("catalog: scan row: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: rows: %w", err)
	}
	return out, nil
}

// isUniqueViolation recognises unique violations from both the pgx v5 driver and the
// standalone pgconn package.
func isUniqueViolation(err error) bool {
	var pgErr *pgconnv5.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	var legacy *pgconn.PgError
	if errors.As(err, &legacy) {
		return legacy.Code == uniqueViolation
	}
	return false
}
