package services

import (
	"context"
	"fmt"
	"time"

	"prestiti/internal/core"
)

// PerformanceService compares plans against actual credit and payment counts.
type PerformanceService struct {
	repo core.Repository
}

func NewPerformanceService(repo core.Repository) *PerformanceService {
	return &PerformanceService{repo: repo}
}

// PlansPerformance reports, for every plan whose period is on or before the
// target date, the number of credits issued and payments made between the
// plan's period and the target date inclusive. Counts are row counts over the
// whole ledger; the plan's category does not narrow them.
func (s *PerformanceService) PlansPerformance(ctx context.Context, date string) ([]core.PlanPerformance, error) {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return nil, core.Errf(core.KindInvalidFormat, "Invalid date format.")
	}
	target := core.NewDate(t.Year(), int(t.Month()), t.Day())

	plans, err := s.repo.ListPlans(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("list plans up to %s: %w", target, err)
	}

	out := make([]core.PlanPerformance, 0, len(plans))
	for _, p := range plans {
		credits, err := s.repo.CountCredits(ctx, p.Period, target)
		if err != nil {
			return nil, fmt.Errorf("count credits for plan %d: %w", p.ID, err)
		}
		payments, err := s.repo.CountPayments(ctx, p.Period, target)
		if err != nil {
			return nil, fmt.Errorf("count payments for plan %d: %w", p.ID, err)
		}
		out = append(out, core.PlanPerformance{
			Plan:          p,
			CreditsCount:  credits,
			PaymentsCount: payments,
		})
	}
	return out, nil
}
