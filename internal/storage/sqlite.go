package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"prestiti/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository implements core.Repository on an embedded SQLite database.
// Dates are stored as ISO-8601 text, so lexicographic range comparisons are
// date comparisons.
type SQLiteRepository struct {
	db *sql.DB
}

var _ core.Repository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runSQLiteMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (core.User, error) {
	var (
		u   core.User
		reg string
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT id, login, registration_date FROM users WHERE id = ?", id).
		Scan(&u.ID, &u.Login, &reg)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.Errf(core.KindNotFound, "User not found")
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user %d: %w", id, err)
	}
	if u.RegistrationDate, err = core.ParseDate(reg); err != nil {
		return core.User{}, fmt.Errorf("decode user %d: %w", id, err)
	}
	return u, nil
}

func (r *SQLiteRepository) ListCredits(ctx context.Context, userID int64) ([]core.Credit, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, issuance_date, return_date, actual_return_date, body, percent
		FROM credits WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list credits for user %d: %w", userID, err)
	}
	defer rows.Close()

	var out []core.Credit
	for rows.Next() {
		var (
			c                  core.Credit
			issued             string
			retDate, actualRet sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.UserID, &issued, &retDate, &actualRet, &c.Body, &c.Percent); err != nil {
			return nil, fmt.Errorf("scan credit: %w", err)
		}
		if c.IssuanceDate, err = core.ParseDate(issued); err != nil {
			return nil, fmt.Errorf("decode credit %d: %w", c.ID, err)
		}
		if c.ReturnDate, err = nullDate(retDate); err != nil {
			return nil, fmt.Errorf("decode credit %d: %w", c.ID, err)
		}
		if c.ActualReturnDate, err = nullDate(actualRet); err != nil {
			return nil, fmt.Errorf("decode credit %d: %w", c.ID, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ListPayments(ctx context.Context, creditID int64) ([]core.Payment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, credit_id, type_id, sum, payment_date
		FROM payments WHERE credit_id = ? ORDER BY id`, creditID)
	if err != nil {
		return nil, fmt.Errorf("list payments for credit %d: %w", creditID, err)
	}
	defer rows.Close()

	var out []core.Payment
	for rows.Next() {
		var (
			p    core.Payment
			date string
		)
		if err := rows.Scan(&p.ID, &p.CreditID, &p.TypeID, &p.Sum, &date); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		if p.PaymentDate, err = core.ParseDate(date); err != nil {
			return nil, fmt.Errorf("decode payment %d: %w", p.ID, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) ListPlans(ctx context.Context, upTo core.Date) ([]core.Plan, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, period, category_id, sum
		FROM plans WHERE period <= ? ORDER BY period, category_id`, upTo.String())
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var out []core.Plan
	for rows.Next() {
		var (
			p      core.Plan
			period string
		)
		if err := rows.Scan(&p.ID, &period, &p.CategoryID, &p.Sum); err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		if p.Period, err = core.ParseDate(period); err != nil {
			return nil, fmt.Errorf("decode plan %d: %w", p.ID, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CountCredits(ctx context.Context, from, to core.Date) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM credits WHERE issuance_date >= ? AND issuance_date <= ?",
		from.String(), to.String()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count credits: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) CountPayments(ctx context.Context, from, to core.Date) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM payments WHERE payment_date >= ? AND payment_date <= ?",
		from.String(), to.String()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count payments: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) RecordImportAudit(ctx context.Context, audit core.ImportAudit) error {
	at := audit.ImportedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO import_audit(kind, row_count, imported_at) VALUES (?, ?, ?)",
		audit.Kind, audit.RowCount, at)
	if err != nil {
		return fmt.Errorf("record import audit: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListImportAudit(ctx context.Context, limit int) ([]core.ImportAudit, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, row_count, imported_at
		FROM import_audit ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list import audit: %w", err)
	}
	defer rows.Close()

	var out []core.ImportAudit
	for rows.Next() {
		var a core.ImportAudit
		if err := rows.Scan(&a.ID, &a.Kind, &a.RowCount, &a.ImportedAt); err != nil {
			return nil, fmt.Errorf("scan import audit: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) Begin(ctx context.Context) (core.Batch, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin batch: %w", err)
	}
	return &sqliteBatch{tx: tx}, nil
}

type sqliteBatch struct {
	tx   *sql.Tx
	done bool
}

func (b *sqliteBatch) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var found bool
	if err := b.tx.QueryRowContext(ctx, query, args...).Scan(&found); err != nil {
		return false, err
	}
	return found, nil
}

func (b *sqliteBatch) UserExists(ctx context.Context, id int64) (bool, error) {
	return b.exists(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)", id)
}

func (b *sqliteBatch) CreditExists(ctx context.Context, id int64) (bool, error) {
	return b.exists(ctx, "SELECT EXISTS(SELECT 1 FROM credits WHERE id = ?)", id)
}

func (b *sqliteBatch) PlanExists(ctx context.Context, period core.Date, categoryID int64) (bool, error) {
	return b.exists(ctx,
		"SELECT EXISTS(SELECT 1 FROM plans WHERE period = ? AND category_id = ?)",
		period.String(), categoryID)
}

func (b *sqliteBatch) DictionaryEntryExists(ctx context.Context, id int64) (bool, error) {
	return b.exists(ctx, "SELECT EXISTS(SELECT 1 FROM dictionary WHERE id = ?)", id)
}

func (b *sqliteBatch) InsertUser(ctx context.Context, u core.User) error {
	_, err := b.tx.ExecContext(ctx,
		"INSERT INTO users(id, login, registration_date) VALUES (?, ?, ?)",
		u.ID, u.Login, u.RegistrationDate.String())
	if isSQLiteUniqueViolation(err) {
		return core.Errf(core.KindDuplicateKey, "User with id %d already exists.", u.ID)
	}
	if err != nil {
		return fmt.Errorf("insert user %d: %w", u.ID, err)
	}
	return nil
}

func (b *sqliteBatch) InsertCredit(ctx context.Context, c core.Credit) error {
	_, err := b.tx.ExecContext(ctx, `
		INSERT INTO credits(id, user_id, issuance_date, return_date, actual_return_date, body, percent)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.IssuanceDate.String(),
		dateOrNull(c.ReturnDate), dateOrNull(c.ActualReturnDate), c.Body, c.Percent)
	if isSQLiteUniqueViolation(err) {
		return core.Errf(core.KindDuplicateKey, "Credit with id %d already exists.", c.ID)
	}
	if err != nil {
		return fmt.Errorf("insert credit %d: %w", c.ID, err)
	}
	return nil
}

func (b *sqliteBatch) InsertPlan(ctx context.Context, p core.Plan) error {
	_, err := b.tx.ExecContext(ctx,
		"INSERT INTO plans(period, category_id, sum) VALUES (?, ?, ?)",
		p.Period.String(), p.CategoryID, p.Sum)
	if isSQLiteUniqueViolation(err) {
		return core.Errf(core.KindDuplicateKey, "Plan already exists for this month and category.")
	}
	if err != nil {
		return fmt.Errorf("insert plan: %w", err)
	}
	return nil
}

func (b *sqliteBatch) InsertDictionaryEntry(ctx context.Context, e core.DictionaryEntry) error {
	_, err := b.tx.ExecContext(ctx,
		"INSERT INTO dictionary(id, name) VALUES (?, ?)", e.ID, e.Name)
	if isSQLiteUniqueViolation(err) {
		return core.Errf(core.KindDuplicateKey, "Dictionary with id %d already exists.", e.ID)
	}
	if err != nil {
		return fmt.Errorf("insert dictionary entry %d: %w", e.ID, err)
	}
	return nil
}

func (b *sqliteBatch) InsertPayment(ctx context.Context, p core.Payment) error {
	_, err := b.tx.ExecContext(ctx,
		"INSERT INTO payments(id, sum, payment_date, credit_id, type_id) VALUES (?, ?, ?, ?, ?)",
		p.ID, p.Sum, p.PaymentDate.String(), p.CreditID, p.TypeID)
	if isSQLiteUniqueViolation(err) {
		return core.Errf(core.KindDuplicateKey, "Payment with id %d already exists.", p.ID)
	}
	if err != nil {
		return fmt.Errorf("insert payment %d: %w", p.ID, err)
	}
	return nil
}

func (b *sqliteBatch) Commit() error {
	b.done = true
	return b.tx.Commit()
}

func (b *sqliteBatch) Rollback() error {
	if b.done {
		return nil
	}
	b.done = true
	return b.tx.Rollback()
}

func isSQLiteUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func nullDate(s sql.NullString) (core.Date, error) {
	if !s.Valid || s.String == "" {
		return core.Date{}, nil
	}
	return core.ParseDate(s.String)
}

func dateOrNull(d core.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.String()
}
