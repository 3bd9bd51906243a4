package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"prestiti/internal/core"

	"github.com/lib/pq"
)

// PostgresRepository implements core.Repository on PostgreSQL.
type PostgresRepository struct {
	db *sql.DB
}

var _ core.Repository = (*PostgresRepository)(nil)

func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runPostgresMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresRepository{db: db}, nil
}

func (r *PostgresRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *PostgresRepository) GetUser(ctx context.Context, id int64) (core.User, error) {
	var (
		u   core.User
		reg time.Time
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT id, login, registration_date FROM users WHERE id = $1", id).
		Scan(&u.ID, &u.Login, &reg)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.Errf(core.KindNotFound, "User not found")
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user %d: %w", id, err)
	}
	u.RegistrationDate = fromTime(reg)
	return u, nil
}

func (r *PostgresRepository) ListCredits(ctx context.Context, userID int64) ([]core.Credit, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, issuance_date, return_date, actual_return_date, body, percent
		FROM credits WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list credits for user %d: %w", userID, err)
	}
	defer rows.Close()

	var out []core.Credit
	for rows.Next() {
		var (
			c                  core.Credit
			issued             time.Time
			retDate, actualRet sql.NullTime
		)
		if err := rows.Scan(&c.ID, &c.UserID, &issued, &retDate, &actualRet, &c.Body, &c.Percent); err != nil {
			return nil, fmt.Errorf("scan credit: %w", err)
		}
		c.IssuanceDate = fromTime(issued)
		c.ReturnDate = fromNullTime(retDate)
		c.ActualReturnDate = fromNullTime(actualRet)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) ListPayments(ctx context.Context, creditID int64) ([]core.Payment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, credit_id, type_id, sum, payment_date
		FROM payments WHERE credit_id = $1 ORDER BY id`, creditID)
	if err != nil {
		return nil, fmt.Errorf("list payments for credit %d: %w", creditID, err)
	}
	defer rows.Close()

	var out []core.Payment
	for rows.Next() {
		var (
			p    core.Payment
			date time.Time
		)
		if err := rows.Scan(&p.ID, &p.CreditID, &p.TypeID, &p.Sum, &date); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		p.PaymentDate = fromTime(date)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) ListPlans(ctx context.Context, upTo core.Date) ([]core.Plan, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, period, category_id, sum
		FROM plans WHERE period <= $1 ORDER BY period, category_id`, upTo.Time)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var out []core.Plan
	for rows.Next() {
		var (
			p      core.Plan
			period time.Time
		)
		if err := rows.Scan(&p.ID, &period, &p.CategoryID, &p.Sum); err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		p.Period = fromTime(period)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) CountCredits(ctx context.Context, from, to core.Date) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM credits WHERE issuance_date >= $1 AND issuance_date <= $2",
		from.Time, to.Time).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count credits: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) CountPayments(ctx context.Context, from, to core.Date) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM payments WHERE payment_date >= $1 AND payment_date <= $2",
		from.Time, to.Time).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count payments: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) RecordImportAudit(ctx context.Context, audit core.ImportAudit) error {
	at := audit.ImportedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO import_audit(kind, row_count, imported_at) VALUES ($1, $2, $3)",
		audit.Kind, audit.RowCount, at)
	if err != nil {
		return fmt.Errorf("record import audit: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListImportAudit(ctx context.Context, limit int) ([]core.ImportAudit, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, row_count, imported_at
		FROM import_audit ORDER BY id DESC LIMIT $1`, limit)
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

func (r *PostgresRepository) Begin(ctx context.Context) (core.Batch, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin batch: %w", err)
	}
	return &postgresBatch{tx: tx}, nil
}

type postgresBatch struct {
	tx   *sql.Tx
	done bool
}

func (b *postgresBatch) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var found bool
	if err := b.tx.QueryRowContext(ctx, query, args...).Scan(&found); err != nil {
		return false, err
	}
	return found, nil
}

func (b *postgresBatch) UserExists(ctx context.Context, id int64) (bool, error) {
	return b.exists(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)", id)
}

func (b *postgresBatch) CreditExists(ctx context.Context, id int64) (bool, error) {
	return b.exists(ctx, "SELECT EXISTS(SELECT 1 FROM credits WHERE id = $1)", id)
}

func (b *postgresBatch) PlanExists(ctx context.Context, period core.Date, categoryID int64) (bool, error) {
	return b.exists(ctx,
		"SELECT EXISTS(SELECT 1 FROM plans WHERE period = $1 AND category_id = $2)",
		period.Time, categoryID)
}

func (b *postgresBatch) DictionaryEntryExists(ctx context.Context, id int64) (bool, error) {
	return b.exists(ctx, "SELECT EXISTS(SELECT 1 FROM dictionary WHERE id = $1)", id)
}

func (b *postgresBatch) InsertUser(ctx context.Context, u core.User) error {
	_, err := b.tx.ExecContext(ctx,
		"INSERT INTO users(id, login, registration_date) VALUES ($1, $2, $3)",
		u.ID, u.Login, u.RegistrationDate.Time)
	if isPostgresUniqueViolation(err) {
		return core.Errf(core.KindDuplicateKey, "User with id %d already exists.", u.ID)
	}
	if err != nil {
		return fmt.Errorf("insert user %d: %w", u.ID, err)
	}
	return nil
}

func (b *postgresBatch) InsertCredit(ctx context.Context, c core.Credit) error {
	_, err := b.tx.ExecContext(ctx, `
		INSERT INTO credits(id, user_id, issuance_date, return_date, actual_return_date, body, percent)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.UserID, c.IssuanceDate.Time,
		toNullTime(c.ReturnDate), toNullTime(c.ActualReturnDate), c.Body, c.Percent)
	if isPostgresUniqueViolation(err) {
		return core.Errf(core.KindDuplicateKey, "Credit with id %d already exists.", c.ID)
	}
	if err != nil {
		return fmt.Errorf("insert credit %d: %w", c.ID, err)
	}
	return nil
}

func (b *postgresBatch) InsertPlan(ctx context.Context, p core.Plan) error {
	_, err := b.tx.ExecContext(ctx,
		"INSERT INTO plans(period, category_id, sum) VALUES ($1, $2, $3)",
		p.Period.Time, p.CategoryID, p.Sum)
	if isPostgresUniqueViolation(err) {
		return core.Errf(core.KindDuplicateKey, "Plan already exists for this month and category.")
	}
	if err != nil {
		return fmt.Errorf("insert plan: %w", err)
	}
	return nil
}

func (b *postgresBatch) InsertDictionaryEntry(ctx context.Context, e core.DictionaryEntry) error {
	_, err := b.tx.ExecContext(ctx,
		"INSERT INTO dictionary(id, name) VALUES ($1, $2)", e.ID, e.Name)
	if isPostgresUniqueViolation(err) {
		return core.Errf(core.KindDuplicateKey, "Dictionary with id %d already exists.", e.ID)
	}
	if err != nil {
		return fmt.Errorf("insert dictionary entry %d: %w", e.ID, err)
	}
	return nil
}

func (b *postgresBatch) InsertPayment(ctx context.Context, p core.Payment) error {
	_, err := b.tx.ExecContext(ctx,
		"INSERT INTO payments(id, sum, payment_date, credit_id, type_id) VALUES ($1, $2, $3, $4, $5)",
		p.ID, p.Sum, p.PaymentDate.Time, p.CreditID, p.TypeID)
	if isPostgresUniqueViolation(err) {
		return core.Errf(core.KindDuplicateKey, "Payment with id %d already exists.", p.ID)
	}
	if err != nil {
		return fmt.Errorf("insert payment %d: %w", p.ID, err)
	}
	return nil
}

func (b *postgresBatch) Commit() error {
	b.done = true
	return b.tx.Commit()
}

func (b *postgresBatch) Rollback() error {
	if b.done {
		return nil
	}
	b.done = true
	return b.tx.Rollback()
}

// 23505 is unique_violation.
func isPostgresUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func fromTime(t time.Time) core.Date {
	return core.NewDate(t.Year(), int(t.Month()), t.Day())
}

func fromNullTime(t sql.NullTime) core.Date {
	if !t.Valid {
		return core.Date{}
	}
	return fromTime(t.Time)
}

func toNullTime(d core.Date) sql.NullTime {
	if d.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: d.Time, Valid: true}
}
