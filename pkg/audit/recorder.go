package audit

import (
	"context"
	"database/sql"
)

// Recorder writes audit records. RecordTx exists so the orchestrator can
// commit a record in the same transaction as the mutation it describes.
type Recorder interface {
	Record(ctx context.Context, rec *Record) error
	RecordTx(ctx context.Context, tx *sql.Tx, rec *Record) error
}

// NopRecorder discards records. Used in tests and tooling where the audit
// trail is irrelevant.
type NopRecorder struct{}

func (NopRecorder) Record(ctx context.Context, rec *Record) error {
	return nil
}

func (NopRecorder) RecordTx(ctx context.Context, tx *sql.Tx, rec *Record) error {
	return nil
}
