package services

import (
	"context"
	"fmt"
	"log/slog"

	"prestiti/internal/amqp"
	"prestiti/internal/core"
)

// Auditor records a ledger row for every import event it consumes. It is the
// worker-side counterpart of the Importer's publishes.
type Auditor struct {
	repo   core.Repository
	events *amqp.Client
}

func NewAuditor(repo core.Repository, events *amqp.Client) *Auditor {
	return &Auditor{repo: repo, events: events}
}

// Run consumes import events until ctx is cancelled. A handler failure nacks
// the event back onto the queue.
func (a *Auditor) Run(ctx context.Context) error {
	return a.events.ConsumeImportEvents(ctx, func(ev *amqp.ImportEvent) error {
		return a.Record(ctx, ev)
	})
}

// Record writes one audit row for an import event.
func (a *Auditor) Record(ctx context.Context, ev *amqp.ImportEvent) error {
	audit := core.ImportAudit{
		Kind:       ev.Kind,
		RowCount:   ev.Rows,
		ImportedAt: ev.Timestamp,
	}
	if err := a.repo.RecordImportAudit(ctx, audit); err != nil {
		return fmt.Errorf("record import audit: %w", err)
	}

	slog.InfoContext(ctx, "Recorded import audit",
		"kind", ev.Kind, "rows", ev.Rows)
	return nil
}
