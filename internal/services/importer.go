package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"prestiti/internal/amqp"
	"prestiti/internal/core"
	"prestiti/internal/rows"
)

// Importer validates and persists import batches. Spreadsheet-shaped kinds
// (users, credits, plans, dictionary) commit all-or-nothing; payments commit
// one by one and keep earlier rows on a later failure.
type Importer struct {
	repo   core.Repository
	events *amqp.Client
}

func NewImporter(repo core.Repository, events *amqp.Client) *Importer {
	return &Importer{repo: repo, events: events}
}

// ImportUsers inserts every row of the set, or nothing.
func (imp *Importer) ImportUsers(ctx context.Context, set rows.Set) error {
	if err := requireColumns(set, "id", "login", "registration_date"); err != nil {
		return err
	}

	batch, err := imp.repo.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer batch.Rollback()

	for _, row := range set.Rows {
		id, err := intField(row, "id")
		if err != nil {
			return err
		}
		login, _ := row.Get("login")

		exists, err := batch.UserExists(ctx, id)
		if err != nil {
			return fmt.Errorf("check user %d: %w", id, err)
		}
		if exists {
			return core.Errf(core.KindDuplicateKey, "User with id %d already exists.", id)
		}

		raw, _ := row.Get("registration_date")
		registered, err := core.ParseDate(raw)
		if err != nil {
			return core.Errf(core.KindInvalidFormat, "Invalid registration date format for user %s.", login)
		}

		u := core.User{ID: id, Login: login, RegistrationDate: registered}
		if err := batch.InsertUser(ctx, u); err != nil {
			return fmt.Errorf("insert user %d: %w", id, err)
		}
	}

	if err := batch.Commit(); err != nil {
		return fmt.Errorf("commit users: %w", err)
	}

	imp.publishEvent(ctx, "users", len(set.Rows))
	return nil
}

// ImportCredits inserts every row of the set, or nothing. The user_id column
// is stored as-is and not checked against existing users.
func (imp *Importer) ImportCredits(ctx context.Context, set rows.Set) error {
	if err := requireColumns(set, "id", "user_id", "issuance_date", "body", "percent"); err != nil {
		return err
	}

	batch, err := imp.repo.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer batch.Rollback()

	for _, row := range set.Rows {
		id, err := intField(row, "id")
		if err != nil {
			return err
		}

		exists, err := batch.CreditExists(ctx, id)
		if err != nil {
			return fmt.Errorf("check credit %d: %w", id, err)
		}
		if exists {
			return core.Errf(core.KindDuplicateKey, "Credit with id %d already exists.", id)
		}

		c := core.Credit{ID: id}
		if c.UserID, err = intField(row, "user_id"); err != nil {
			return err
		}
		if c.Body, err = intField(row, "body"); err != nil {
			return err
		}
		if c.Percent, err = intField(row, "percent"); err != nil {
			return err
		}

		raw, _ := row.Get("issuance_date")
		if c.IssuanceDate, err = core.ParseDate(raw); err != nil {
			return core.Errf(core.KindInvalidFormat, "Invalid date format.")
		}
		if c.ReturnDate, err = optionalDate(row, "return_date"); err != nil {
			return err
		}
		if c.ActualReturnDate, err = optionalDate(row, "actual_return_date"); err != nil {
			return err
		}

		if err := batch.InsertCredit(ctx, c); err != nil {
			return fmt.Errorf("insert credit %d: %w", id, err)
		}
	}

	if err := batch.Commit(); err != nil {
		return fmt.Errorf("commit credits: %w", err)
	}

	imp.publishEvent(ctx, "credits", len(set.Rows))
	return nil
}

// ImportPlans inserts every row of the set, or nothing. The month column must
// land on the first day of the month when it carries an explicit day.
func (imp *Importer) ImportPlans(ctx context.Context, set rows.Set) error {
	if err := requireColumns(set, "month", "category", "sum"); err != nil {
		return err
	}

	batch, err := imp.repo.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer batch.Rollback()

	for _, row := range set.Rows {
		raw, _ := row.Get("month")
		period, structured, err := core.ParsePeriod(raw)
		if err != nil {
			return core.Errf(core.KindInvalidFormat, "Invalid date format.")
		}

		category, err := intField(row, "category")
		if err != nil {
			return err
		}

		exists, err := batch.PlanExists(ctx, period, category)
		if err != nil {
			return fmt.Errorf("check plan %s/%d: %w", period, category, err)
		}
		if exists {
			return core.Errf(core.KindDuplicateKey, "Plan already exists for this month and category.")
		}

		if structured && period.Day() != 1 {
			return core.Errf(core.KindValidation, "Month must start on the first day.")
		}

		sumRaw, ok := row.Get("sum")
		if !ok {
			return core.Errf(core.KindValidation, "Sum cannot be empty.")
		}
		sum, err := strconv.ParseInt(sumRaw, 10, 64)
		if err != nil {
			return core.Errf(core.KindInvalidFormat, "Invalid value %q for column %q.", sumRaw, "sum")
		}

		p := core.Plan{Period: period, CategoryID: category, Sum: sum}
		if err := batch.InsertPlan(ctx, p); err != nil {
			return fmt.Errorf("insert plan %s/%d: %w", period, category, err)
		}
	}

	if err := batch.Commit(); err != nil {
		return fmt.Errorf("commit plans: %w", err)
	}

	imp.publishEvent(ctx, "plans", len(set.Rows))
	return nil
}

// ImportDictionary inserts every row of the set, or nothing.
func (imp *Importer) ImportDictionary(ctx context.Context, set rows.Set) error {
	if err := requireColumns(set, "id", "name"); err != nil {
		return err
	}

	batch, err := imp.repo.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer batch.Rollback()

	for _, row := range set.Rows {
		id, err := intField(row, "id")
		if err != nil {
			return err
		}

		exists, err := batch.DictionaryEntryExists(ctx, id)
		if err != nil {
			return fmt.Errorf("check dictionary %d: %w", id, err)
		}
		if exists {
			return core.Errf(core.KindDuplicateKey, "Dictionary with id %d already exists.", id)
		}

		name, _ := row.Get("name")
		e := core.DictionaryEntry{ID: id, Name: name}
		if err := batch.InsertDictionaryEntry(ctx, e); err != nil {
			return fmt.Errorf("insert dictionary %d: %w", id, err)
		}
	}

	if err := batch.Commit(); err != nil {
		return fmt.Errorf("commit dictionary: %w", err)
	}

	imp.publishEvent(ctx, "dictionary", len(set.Rows))
	return nil
}

// ImportPayments commits each payment in its own batch. On failure it returns
// the number already committed together with the error; those rows stand.
func (imp *Importer) ImportPayments(ctx context.Context, payments []core.Payment) (int, error) {
	for i, p := range payments {
		if err := imp.importPayment(ctx, p); err != nil {
			return i, err
		}
	}

	imp.publishEvent(ctx, "payments", len(payments))
	return len(payments), nil
}

func (imp *Importer) importPayment(ctx context.Context, p core.Payment) error {
	batch, err := imp.repo.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer batch.Rollback()

	exists, err := batch.CreditExists(ctx, p.CreditID)
	if err != nil {
		return fmt.Errorf("check credit %d: %w", p.CreditID, err)
	}
	if !exists {
		return core.Errf(core.KindReference, "Credit with id %d does not exist.", p.CreditID)
	}

	if err := batch.InsertPayment(ctx, p); err != nil {
		if core.IsKind(err, core.KindDuplicateKey) {
			return core.Errf(core.KindDuplicateKey, "Payment with id %d already exists.", p.ID)
		}
		return fmt.Errorf("insert payment %d: %w", p.ID, err)
	}

	if err := batch.Commit(); err != nil {
		if core.IsKind(err, core.KindDuplicateKey) {
			return core.Errf(core.KindDuplicateKey, "Payment with id %d already exists.", p.ID)
		}
		return fmt.Errorf("commit payment %d: %w", p.ID, err)
	}
	return nil
}

func (imp *Importer) publishEvent(ctx context.Context, kind string, count int) {
	if imp.events == nil {
		return
	}
	if err := imp.events.PublishImportEvent(ctx, kind, count); err != nil {
		slog.ErrorContext(ctx, "Failed to publish import event",
			"kind", kind, "rows", count, "error", err)
		// Don't fail the import - rows are already committed
	}
}

// requireColumns checks the set's header before any row is touched.
func requireColumns(set rows.Set, required ...string) error {
	present := make(map[string]bool, len(set.Columns))
	for _, c := range set.Columns {
		present[c] = true
	}

	var missing []string
	for _, c := range required {
		if !present[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return core.Errf(core.KindMissingColumns, "Missing columns: %s", strings.Join(missing, ", "))
}

func intField(row rows.Row, column string) (int64, error) {
	raw, ok := row.Get(column)
	if !ok {
		return 0, core.Errf(core.KindInvalidFormat, "Invalid value %q for column %q.", "", column)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, core.Errf(core.KindInvalidFormat, "Invalid value %q for column %q.", raw, column)
	}
	return v, nil
}

func optionalDate(row rows.Row, column string) (core.Date, error) {
	raw, ok := row.Get(column)
	if !ok {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(raw)
	if err != nil {
		return core.Date{}, core.Errf(core.KindInvalidFormat, "Invalid date format.")
	}
	return d, nil
}
