package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"presupuesto/internal/core"
	"presupuesto/internal/ports"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

var _ ports.Store = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db            *sql.DB
	schemaVersion uint
	now           func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer keeps read-modify-write upserts serialized.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:            db,
		schemaVersion: version,
		now:           func() time.Time { return time.Now().UTC() },
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) SchemaVersion() uint {
	return r.schemaVersion
}

// GetGlobalSettings implements ports.SettingsReader
func (r *SQLiteRepository) GetGlobalSettings(ctx context.Context) (core.GlobalSettings, error) {
	s := core.DefaultSettings()
	err := r.db.QueryRowContext(ctx,
		`SELECT purchase_percent, timezone FROM settings WHERE id = 1`,
	).Scan(&s.PurchasePercent, &s.Timezone)
	if errors.Is(err, sql.ErrNoRows) {
		return core.DefaultSettings(), nil
	}
	if err != nil {
		return core.GlobalSettings{}, fmt.Errorf("get settings: %w", err)
	}
	return s.Normalize(), nil
}

// UpsertGlobalSettings implements ports.SettingsWriter
func (r *SQLiteRepository) UpsertGlobalSettings(ctx context.Context, patch core.SettingsPatch) (core.GlobalSettings, error) {
	var out core.GlobalSettings
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		current := core.DefaultSettings()
		err := tx.QueryRowContext(ctx,
			`SELECT purchase_percent, timezone FROM settings WHERE id = 1`,
		).Scan(&current.PurchasePercent, &current.Timezone)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("read settings: %w", err)
		}

		next := current.Apply(patch)
		if err := next.Validate(); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO settings (id, purchase_percent, timezone, updated_at)
			VALUES (1, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				purchase_percent = excluded.purchase_percent,
				timezone = excluded.timezone,
				updated_at = excluded.updated_at`,
			next.PurchasePercent, next.Timezone, r.now())
		if err != nil {
			return fmt.Errorf("write settings: %w", err)
		}
		out = next
		return nil
	})
	if err != nil {
		return core.GlobalSettings{}, err
	}

	slog.InfoContext(ctx, "Settings saved to SQLite",
		"purchase_percent", out.PurchasePercent,
		"timezone", out.Timezone)
	return out, nil
}

// GetSales implements ports.SalesReader
func (r *SQLiteRepository) GetSales(ctx context.Context, ym core.YearMonth) (core.SalesRecord, bool, error) {
	rec := core.SalesRecord{YearMonth: ym}
	err := r.db.QueryRowContext(ctx,
		`SELECT amount, created_at, updated_at FROM sales WHERE year_month = ?`, ym.String(),
	).Scan(&rec.Amount, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.SalesRecord{}, false, nil
	}
	if err != nil {
		return core.SalesRecord{}, false, fmt.Errorf("get sales %s: %w", ym, err)
	}
	return rec, true, nil
}

// ListRecentSales implements ports.SalesReader
func (r *SQLiteRepository) ListRecentSales(ctx context.Context, count int) ([]core.SalesRecord, error) {
	if count <= 0 {
		count = ports.DefaultRecentSales
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT year_month, amount, created_at, updated_at
		FROM sales
		ORDER BY year_month DESC
		LIMIT ?`, count)
	if err != nil {
		return nil, fmt.Errorf("list recent sales: %w", err)
	}
	defer rows.Close()

	var out []core.SalesRecord
	for rows.Next() {
		var (
			rec core.SalesRecord
			ym  string
		)
		if err := rows.Scan(&ym, &rec.Amount, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan sales: %w", err)
		}
		if rec.YearMonth, err = core.ParseYearMonth(ym); err != nil {
			return nil, fmt.Errorf("scan sales: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SetSales implements ports.SalesWriter
func (r *SQLiteRepository) SetSales(ctx context.Context, ym core.YearMonth, amount decimal.Decimal) (core.SalesRecord, error) {
	rec := core.SalesRecord{YearMonth: ym, Amount: amount}
	if err := rec.Validate(); err != nil {
		return core.SalesRecord{}, err
	}

	now := r.now()
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO sales (year_month, amount, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(year_month) DO UPDATE SET
			amount = excluded.amount,
			updated_at = excluded.updated_at
		RETURNING created_at, updated_at`,
		ym.String(), amount, now, now,
	).Scan(&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return core.SalesRecord{}, fmt.Errorf("set sales %s: %w", ym, err)
	}

	slog.InfoContext(ctx, "Sales saved to SQLite", "year_month", ym.String(), "amount", amount.String())
	return rec, nil
}

// ListCommitments implements ports.CommitmentReader
func (r *SQLiteRepository) ListCommitments(ctx context.Context, ym core.YearMonth) ([]core.CommitmentRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT date, planned, paid, created_at, updated_at
		FROM commitments
		WHERE year_month = ?
		ORDER BY date`, ym.String())
	if err != nil {
		return nil, fmt.Errorf("list commitments %s: %w", ym, err)
	}
	defer rows.Close()

	var out []core.CommitmentRecord
	for rows.Next() {
		var (
			c    core.CommitmentRecord
			date string
		)
		if err := rows.Scan(&date, &c.Planned, &c.Paid, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan commitment: %w", err)
		}
		if c.Date, err = core.ParseDate(date); err != nil {
			return nil, fmt.Errorf("scan commitment: %w", err)
		}
		c.YearMonth = c.Date.YearMonth()
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpsertCommitment implements ports.CommitmentWriter
func (r *SQLiteRepository) UpsertCommitment(ctx context.Context, date core.Date, patch core.CommitmentPatch) (core.CommitmentRecord, error) {
	if err := date.Validate(); err != nil {
		return core.CommitmentRecord{}, err
	}
	if err := patch.Validate(); err != nil {
		return core.CommitmentRecord{}, err
	}

	var out core.CommitmentRecord
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		current := core.NewCommitment(date)
		err := tx.QueryRowContext(ctx,
			`SELECT planned, paid, created_at FROM commitments WHERE date = ?`, date.String(),
		).Scan(&current.Planned, &current.Paid, &current.CreatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			current.CreatedAt = r.now()
		} else if err != nil {
			return fmt.Errorf("read commitment %s: %w", date, err)
		}

		next := current.Apply(patch)
		next.UpdatedAt = r.now()

		_, err = tx.ExecContext(ctx, `
			INSERT INTO commitments (date, year_month, planned, paid, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(date) DO UPDATE SET
				planned = excluded.planned,
				paid = excluded.paid,
				updated_at = excluded.updated_at`,
			date.String(), next.YearMonth.String(), next.Planned, next.Paid, next.CreatedAt, next.UpdatedAt)
		if err != nil {
			return fmt.Errorf("write commitment %s: %w", date, err)
		}
		out = next
		return nil
	})
	if err != nil {
		return core.CommitmentRecord{}, err
	}

	slog.InfoContext(ctx, "Commitment saved to SQLite",
		"date", date.String(),
		"planned", out.Planned.String(),
		"paid", out.Paid.String())
	return out, nil
}

// ListPurchases implements ports.PurchaseReader
func (r *SQLiteRepository) ListPurchases(ctx context.Context, ym core.YearMonth) ([]core.PurchaseRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, date, amount, category, note, created_at
		FROM purchases
		WHERE year_month = ?
		ORDER BY date DESC, created_at DESC`, ym.String())
	if err != nil {
		return nil, fmt.Errorf("list purchases %s: %w", ym, err)
	}
	defer rows.Close()

	var out []core.PurchaseRecord
	for rows.Next() {
		var (
			p    core.PurchaseRecord
			date string
		)
		if err := rows.Scan(&p.ID, &date, &p.Amount, &p.Category, &p.Note, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		if p.Date, err = core.ParseDate(date); err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		p.YearMonth = p.Date.YearMonth()
		out = append(out, p)
	}
	return out, rows.Err()
}

// AddPurchase implements ports.PurchaseWriter
func (r *SQLiteRepository) AddPurchase(ctx context.Context, p core.PurchaseRecord) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = r.now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO purchases (id, date, year_month, amount, category, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Date.String(), p.YearMonth.String(), p.Amount, p.Category, p.Note, p.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("create purchase: %w", err)
	}

	slog.InfoContext(ctx, "Purchase saved to SQLite",
		"id", p.ID,
		"date", p.Date.String(),
		"amount", p.Amount.String(),
		"category", p.Category)
	return p.ID, nil
}

// DeletePurchase implements ports.PurchaseWriter
func (r *SQLiteRepository) DeletePurchase(ctx context.Context, id string) (core.PurchaseRecord, error) {
	var out core.PurchaseRecord
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var date string
		err := tx.QueryRowContext(ctx,
			`SELECT id, date, amount, category, note, created_at FROM purchases WHERE id = ?`, id,
		).Scan(&out.ID, &date, &out.Amount, &out.Category, &out.Note, &out.CreatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", core.ErrPurchaseNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("read purchase %s: %w", id, err)
		}
		if out.Date, err = core.ParseDate(date); err != nil {
			return fmt.Errorf("read purchase %s: %w", id, err)
		}
		out.YearMonth = out.Date.YearMonth()

		if _, err := tx.ExecContext(ctx, `DELETE FROM purchases WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete purchase %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return core.PurchaseRecord{}, err
	}

	slog.InfoContext(ctx, "Purchase deleted from SQLite", "id", id, "year_month", out.YearMonth.String())
	return out, nil
}

func (r *SQLiteRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
