package services

import (
	"context"
	"testing"

	"prestiti/internal/core"
	"prestiti/internal/storage/memory"
)

func TestPerformanceService_PlansPerformance(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T) *memory.Store {
		t.Helper()
		store := memory.New()
		batch, err := store.Begin(ctx)
		if err != nil {
			t.Fatalf("Begin() error = %v", err)
		}

		must := func(err error) {
			t.Helper()
			if err != nil {
				t.Fatalf("seed error = %v", err)
			}
		}

		must(batch.InsertPlan(ctx, core.Plan{Period: core.NewDate(2023, 1, 1), CategoryID: 2, Sum: 1000}))
		must(batch.InsertPlan(ctx, core.Plan{Period: core.NewDate(2023, 2, 1), CategoryID: 3, Sum: 500}))
		must(batch.InsertPlan(ctx, core.Plan{Period: core.NewDate(2023, 6, 1), CategoryID: 2, Sum: 800}))
		must(batch.InsertCredit(ctx, core.Credit{
			ID: 10, UserID: 1, IssuanceDate: core.NewDate(2023, 2, 1), Body: 1000, Percent: 5,
		}))
		must(batch.InsertPayment(ctx, core.Payment{
			ID: 1, CreditID: 10, TypeID: core.PaymentTypeBody, Sum: 400,
			PaymentDate: core.NewDate(2023, 2, 10),
		}))
		must(batch.Commit())
		return store
	}

	t.Run("bad date", func(t *testing.T) {
		svc := NewPerformanceService(memory.New())
		_, err := svc.PlansPerformance(ctx, "02.01.2023")
		if !core.IsKind(err, core.KindInvalidFormat) {
			t.Fatalf("PlansPerformance() error = %v, want InvalidFormat", err)
		}
	})

	t.Run("only plans up to the target date", func(t *testing.T) {
		svc := NewPerformanceService(seed(t))
		out, err := svc.PlansPerformance(ctx, "2023-03-01")
		if err != nil {
			t.Fatalf("PlansPerformance() error = %v", err)
		}
		if len(out) != 2 {
			t.Fatalf("got %d plans, want 2", len(out))
		}
	})

	t.Run("counts rows in the inclusive window, category ignored", func(t *testing.T) {
		svc := NewPerformanceService(seed(t))
		out, err := svc.PlansPerformance(ctx, "2023-02-10")
		if err != nil {
			t.Fatalf("PlansPerformance() error = %v", err)
		}
		if len(out) != 2 {
			t.Fatalf("got %d plans, want 2", len(out))
		}

		// January plan window [2023-01-01, 2023-02-10] spans the credit and
		// the payment even though their category never matches the plan's.
		jan := out[0]
		if jan.CreditsCount != 1 || jan.PaymentsCount != 1 {
			t.Errorf("january counts = %d/%d, want 1/1", jan.CreditsCount, jan.PaymentsCount)
		}

		// February plan window starts exactly on the credit's issuance date.
		feb := out[1]
		if feb.CreditsCount != 1 || feb.PaymentsCount != 1 {
			t.Errorf("february counts = %d/%d, want 1/1", feb.CreditsCount, feb.PaymentsCount)
		}
	})

	t.Run("plan with an empty window reports zero counts", func(t *testing.T) {
		store := memory.New()
		batch, _ := store.Begin(ctx)
		if err := batch.InsertPlan(ctx, core.Plan{Period: core.NewDate(2023, 1, 1), CategoryID: 2, Sum: 1000}); err != nil {
			t.Fatalf("seed error = %v", err)
		}
		if err := batch.Commit(); err != nil {
			t.Fatalf("seed commit error = %v", err)
		}

		svc := NewPerformanceService(store)
		out, err := svc.PlansPerformance(ctx, "2023-04-01")
		if err != nil {
			t.Fatalf("PlansPerformance() error = %v", err)
		}
		if len(out) != 1 {
			t.Fatalf("got %d plans, want 1", len(out))
		}
		if out[0].CreditsCount != 0 || out[0].PaymentsCount != 0 {
			t.Errorf("counts = %d/%d, want 0/0", out[0].CreditsCount, out[0].PaymentsCount)
		}
	})
}
