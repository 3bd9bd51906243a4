package services

import (
	"context"
	"testing"
	"time"

	"prestiti/internal/amqp"
	"prestiti/internal/storage/memory"
)

func TestAuditor_Record(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	auditor := NewAuditor(store, nil)

	at := time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)
	ev := &amqp.ImportEvent{Kind: "users", Rows: 3, Timestamp: at}
	if err := auditor.Record(ctx, ev); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	audits, err := store.ListImportAudit(ctx, 10)
	if err != nil {
		t.Fatalf("ListImportAudit() error = %v", err)
	}
	if len(audits) != 1 {
		t.Fatalf("got %d audit rows, want 1", len(audits))
	}
	if audits[0].Kind != "users" || audits[0].RowCount != 3 {
		t.Errorf("audit = %+v, want kind users rows 3", audits[0])
	}
	if !audits[0].ImportedAt.Equal(at) {
		t.Errorf("ImportedAt = %v, want %v", audits[0].ImportedAt, at)
	}
}
