package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"prestiti/internal/cache"
	"prestiti/internal/core"
)

// StatementService builds per-user credit statements. Computed statements are
// kept in a cache-aside store keyed by user id; a nil cache disables caching.
type StatementService struct {
	repo     core.Repository
	cache    cache.Cache
	cacheTTL time.Duration
	now      func() time.Time
}

func NewStatementService(repo core.Repository, c cache.Cache, ttl time.Duration) *StatementService {
	return &StatementService{
		repo:     repo,
		cache:    c,
		cacheTTL: ttl,
		now:      time.Now,
	}
}

// UserStatement returns the full credit statement for one user.
func (s *StatementService) UserStatement(ctx context.Context, userID int64) (core.Statement, error) {
	key := fmt.Sprintf("statement:%d", userID)

	if s.cache != nil {
		if raw, ok := s.cache.Get(ctx, key); ok {
			var st core.Statement
			if err := json.Unmarshal([]byte(raw), &st); err == nil {
				return st, nil
			}
			slog.WarnContext(ctx, "Discarding unreadable cached statement", "user_id", userID)
		}
	}

	st, err := s.build(ctx, userID)
	if err != nil {
		return core.Statement{}, err
	}

	if s.cache != nil {
		raw, err := json.Marshal(st)
		if err == nil {
			if err := s.cache.Set(ctx, key, string(raw), s.cacheTTL); err != nil {
				slog.WarnContext(ctx, "Failed to cache statement",
					"user_id", userID, "error", err)
			}
		}
	}

	return st, nil
}

func (s *StatementService) build(ctx context.Context, userID int64) (core.Statement, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return core.Statement{}, err
	}

	credits, err := s.repo.ListCredits(ctx, userID)
	if err != nil {
		return core.Statement{}, fmt.Errorf("list credits for user %d: %w", userID, err)
	}

	today := dateOf(s.now())
	st := core.Statement{
		UserID:           user.ID,
		Login:            user.Login,
		RegistrationDate: user.RegistrationDate,
		Credits:          make([]core.CreditLine, 0, len(credits)),
	}

	for _, c := range credits {
		payments, err := s.repo.ListPayments(ctx, c.ID)
		if err != nil {
			return core.Statement{}, fmt.Errorf("list payments for credit %d: %w", c.ID, err)
		}

		var bodySum, interestSum int64
		for _, p := range payments {
			switch p.TypeID {
			case core.PaymentTypeBody:
				bodySum += p.Sum
			case core.PaymentTypeInterest:
				interestSum += p.Sum
			}
		}

		line := core.CreditLine{
			IssuanceDate:        c.IssuanceDate,
			IsClosed:            c.IsClosed(),
			Body:                c.Body,
			Percent:             c.Percent,
			PaymentsSum:         bodySum + interestSum,
			PaymentsBodySum:     bodySum,
			PaymentsInterestSum: interestSum,
		}

		// return_date and return_deadline expose the same field, gated by
		// whether the credit is closed.
		if line.IsClosed {
			if !c.ReturnDate.IsZero() {
				rd := c.ReturnDate
				line.ReturnDate = &rd
			}
		} else if !c.ReturnDate.IsZero() {
			deadline := c.ReturnDate
			line.ReturnDeadline = &deadline
			// Negative means not yet due; callers read the sign, not a clamp.
			line.OverdueDays = c.ReturnDate.DaysUntil(today)
		}

		st.Credits = append(st.Credits, line)
	}

	return st, nil
}

func dateOf(t time.Time) core.Date {
	return core.NewDate(t.Year(), int(t.Month()), t.Day())
}
