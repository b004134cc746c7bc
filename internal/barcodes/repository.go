package barcodes

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

const recordColumns = `code, name, entry_date, expiry_date, withdrawal_date, weight::double precision, quantity, batch`

// Repository persists barcode records.
type Repository interface {
	Exists(ctx context.Context, code string) (bool, error)
	List(ctx context.Context) ([]Record, error)
	Create(ctx context.Context, rec Record) (Record, error)
	Update(ctx context.Context, rec Record) (Record, error)
	ListExpiring(ctx context.Context, before Date) ([]Record, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns a Repository backed by the barcodes table.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) Exists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM barcodes WHERE code = $1)`, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("barcodes: exists %s: %w", code, err)
	}
	return exists, nil
}

func (r *repository) List(ctx context.Context) ([]Record, error) {
	rows, err := r.db.Query(ctx, `SELECT `+recordColumns+` FROM barcodes`)
	if err != nil {
		return nil, fmt.Errorf("barcodes: list: %w", err)
	}
	return collectRecords(rows)
}

func (r *repository) Create(ctx context.Context, rec Record) (Record, error) {
	query := `INSERT INTO barcodes (code, name, entry_date, expiry_date, withdrawal_date, weight, quantity, batch)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + recordColumns
	row := r.db.QueryRow(ctx, query,
		rec.Code, rec.Name, pgDate(rec.EntryDate), pgDate(rec.ExpiryDate), pgDate(rec.WithdrawalDate),
		rec.Weight, rec.Quantity, rec.Batch,
	)
	created, err := scanRecord(row)
	if err != nil {
		return Record{}, createError(rec.Code, err)
	}
	return created, nil
}

func (r *repository) Update(ctx context.Context, rec Record) (Record, error) {
	query := `UPDATE barcodes
		SET entry_date = $1, expiry_date = $2, withdrawal_date = $3, weight = $4, quantity = $5, batch = $6
		WHERE code = $7
		RETURNING ` + recordColumns
	row := r.db.QueryRow(ctx, query,
		pgDate(rec.EntryDate), pgDate(rec.ExpiryDate), pgDate(rec.WithdrawalDate),
		rec.Weight, rec.Quantity, rec.Batch, rec.Code,
	)
	updated, err := scanRecord(row)
	if err != nil {
		return Record{}, updateError(rec.Code, err)
	}
	return updated, nil
}

// ListExpiring returns records still in stock whose expiry date is on or
// before the given date, soonest first.
func (r *repository) ListExpiring(ctx context.Context, before Date) ([]Record, error) {
	query := `SELECT ` + recordColumns + ` FROM barcodes
		WHERE withdrawal_date IS NULL AND expiry_date <= $1
		ORDER BY expiry_date, code`
	rows, err := r.db.Query(ctx, query, pgDate(&before))
	if err != nil {
		return nil, fmt.Errorf("barcodes: list expiring: %w", err)
	}
	return collectRecords(rows)
}

func createError(code string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s (%s)", ErrDuplicate, code, pgErr.ConstraintName)
	}
	return fmt.Errorf("barcodes: create %s: %w", code, err)
}

// updateError maps a missing row to ErrNotFound; RETURNING yields no row
// when the WHERE clause matched nothing.
func updateError(code string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, code)
	}
	return fmt.Errorf("barcodes: update %s: %w", code, err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		rec                       Record
		entry, expiry, withdrawal pgtype.Date
	)
	if err := row.Scan(&rec.Code, &rec.Name, &entry, &expiry, &withdrawal, &rec.Weight, &rec.Quantity, &rec.Batch); err != nil {
		return Record{}, err
	}
	rec.EntryDate = fromPGDate(entry)
	rec.ExpiryDate = fromPGDate(expiry)
	rec.WithdrawalDate = fromPGDate(withdrawal)
	return rec, nil
}

func collectRecords(rows pgx.Rows) ([]Record, error) {
	defer rows.Close()
	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("barcodes: scan: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("barcodes: rows: %w", err)
	}
	return records, nil
}

func pgDate(d *Date) pgtype.Date {
	if d == nil || d.IsZero() {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: d.Time, Valid: true}
}

func fromPGDate(v pgtype.Date) *Date {
	if !v.Valid || v.InfinityModifier != pgtype.Finite {
		return nil
	}
	d := NewDate(v.Time.Date())
	return &d
}
