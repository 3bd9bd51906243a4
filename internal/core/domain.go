package core

import (
	"time"
)

// Payment type ids are a fixed convention of the dictionary table:
// 1 is a principal (body) repayment, 2 is an interest repayment.
const (
	PaymentTypeBody     int64 = 1
	PaymentTypeInterest int64 = 2
)

type (
	// User is a borrower. Users are created only through import and never
	// mutated afterwards.
	User struct {
		ID               int64  `json:"id"`
		Login            string `json:"login"`
		RegistrationDate Date   `json:"registration_date"`
	}

	// Credit is a loan issued to a user. A set ActualReturnDate marks the
	// credit closed; ReturnDate is the planned deadline and may be absent.
	Credit struct {
		ID               int64 `json:"id"`
		UserID           int64 `json:"user_id"`
		IssuanceDate     Date  `json:"issuance_date"`
		ReturnDate       Date  `json:"return_date"`
		ActualReturnDate Date  `json:"actual_return_date"`
		Body             int64 `json:"body"`
		Percent          int64 `json:"percent"`
	}

	// Payment is a repayment against a credit. TypeID references the
	// dictionary table.
	Payment struct {
		ID          int64 `json:"id"`
		CreditID    int64 `json:"credit_id"`
		TypeID      int64 `json:"type_id"`
		Sum         int64 `json:"sum"`
		PaymentDate Date  `json:"payment_date"`
	}

	// Plan is a monthly target sum for one category. (Period, CategoryID)
	// is unique.
	Plan struct {
		ID         int64 `json:"id"`
		Period     Date  `json:"period"`
		CategoryID int64 `json:"category_id"`
		Sum        int64 `json:"sum"`
	}

	// DictionaryEntry is a flat lookup row shared by payment types and
	// plan categories.
	DictionaryEntry struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}

	// ImportAudit records one committed import batch.
	ImportAudit struct {
		ID         int64     `json:"id"`
		Kind       string    `json:"kind"`
		RowCount   int       `json:"row_count"`
		ImportedAt time.Time `json:"imported_at"`
	}
)

// IsClosed reports whether the credit has an actual return date.
func (c Credit) IsClosed() bool {
	return !c.ActualReturnDate.IsZero()
}

// CreditLine is one row of a user's credit statement. ReturnDate is set only
// for closed credits, ReturnDeadline only for open ones; both views gate the
// same underlying field.
type CreditLine struct {
	IssuanceDate        Date  `json:"issuance_date"`
	IsClosed            bool  `json:"is_closed"`
	ReturnDate          *Date `json:"return_date"`
	Body                int64 `json:"body"`
	Percent             int64 `json:"percent"`
	PaymentsSum         int64 `json:"payments_sum"`
	ReturnDeadline      *Date `json:"return_deadline"`
	OverdueDays         int64 `json:"overdue_days"`
	PaymentsBodySum     int64 `json:"payments_body_sum"`
	PaymentsInterestSum int64 `json:"payments_interest_sum"`
}

// Statement is the full credit statement for one user. Credits keep the
// repository's natural fetch order.
type Statement struct {
	UserID           int64        `json:"user_id"`
	Login            string       `json:"login"`
	RegistrationDate Date         `json:"registration_date"`
	Credits          []CreditLine `json:"credits"`
}

// PlanPerformance compares one plan against the credit and payment activity
// in [plan period, target date]. Counts are row counts, not amount sums, and
// are not filtered by the plan's category.
type PlanPerformance struct {
	Plan          Plan  `json:"plan"`
	CreditsCount  int64 `json:"credits_count"`
	PaymentsCount int64 `json:"payments_count"`
}
