package core

import "context"

// Repository is the port for persisted ledger state. Implementations return
// slices in their natural fetch order; callers must not re-sort.
type Repository interface {
	// GetUser returns the user or a KindNotFound error.
	GetUser(ctx context.Context, id int64) (User, error)
	ListCredits(ctx context.Context, userID int64) ([]Credit, error)
	ListPayments(ctx context.Context, creditID int64) ([]Payment, error)
	// ListPlans returns every plan whose period is on or before upTo.
	ListPlans(ctx context.Context, upTo Date) ([]Plan, error)
	// CountCredits counts credits issued in [from, to] inclusive.
	CountCredits(ctx context.Context, from, to Date) (int64, error)
	// CountPayments counts payments dated in [from, to] inclusive.
	CountPayments(ctx context.Context, from, to Date) (int64, error)

	RecordImportAudit(ctx context.Context, audit ImportAudit) error
	ListImportAudit(ctx context.Context, limit int) ([]ImportAudit, error)

	// Begin opens a write batch. The caller must end it with Commit or
	// Rollback; nothing staged is visible before Commit.
	Begin(ctx context.Context) (Batch, error)

	Ping(ctx context.Context) error
	Close() error
}

// Batch is the transactional handle for one import unit of work. Exists
// checks observe both persisted and staged rows. Insert methods surface
// uniqueness violations as KindDuplicateKey errors, at the latest on Commit.
type Batch interface {
	UserExists(ctx context.Context, id int64) (bool, error)
	CreditExists(ctx context.Context, id int64) (bool, error)
	PlanExists(ctx context.Context, period Date, categoryID int64) (bool, error)
	DictionaryEntryExists(ctx context.Context, id int64) (bool, error)

	InsertUser(ctx context.Context, u User) error
	InsertCredit(ctx context.Context, c Credit) error
	InsertPlan(ctx context.Context, p Plan) error
	InsertDictionaryEntry(ctx context.Context, e DictionaryEntry) error
	InsertPayment(ctx context.Context, p Payment) error

	Commit() error
	// Rollback after Commit is a no-op, so it can be deferred.
	Rollback() error
}
