package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Store persists audit records in Postgres. It satisfies Recorder.
type Store struct {
	db *sql.DB
}

// NewStore creates a new audit store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Record inserts an audit record in its own implicit transaction
func (s *Store) Record(ctx context.Context, rec *Record) error {
	return s.insert(ctx, s.db, rec)
}

// RecordTx inserts an audit record inside an existing transaction
func (s *Store) RecordTx(ctx context.Context, tx *sql.Tx, rec *Record) error {
	return s.insert(ctx, tx, rec)
}

type execQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (s *Store) insert(ctx context.Context, q execQuerier, rec *Record) error {
	query := `
		INSERT INTO audit_records
			(actor_id, user_id, company_id, entity_type, entity_key, action, old_state, new_state, reason, request_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	err := q.QueryRowContext(ctx, query,
		rec.ActorID,
		rec.UserID,
		rec.CompanyID,
		rec.EntityType,
		rec.EntityKey,
		rec.Action,
		nullableJSON(rec.OldState),
		nullableJSON(rec.NewState),
		rec.Reason,
		rec.RequestID,
		rec.CreatedAt,
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("failed to insert audit record: %w", err)
	}
	return nil
}

// Search returns a time-ordered page of records matching the filter,
// newest first, with the total match count for pagination.
func (s *Store) Search(ctx context.Context, filter Filter) (*SearchResult, error) {
	var conditions []string
	var args []interface{}
	argNum := 1

	addCondition := func(clause string, value interface{}) {
		conditions = append(conditions, fmt.Sprintf(clause, argNum))
		args = append(args, value)
		argNum++
	}

	if filter.ActorID != nil {
		addCondition("actor_id = $%d", *filter.ActorID)
	}
	if filter.UserID != nil {
		addCondition("user_id = $%d", *filter.UserID)
	}
	if filter.CompanyID != nil {
		addCondition("company_id = $%d", *filter.CompanyID)
	}
	if filter.EntityType != "" {
		addCondition("entity_type = $%d", filter.EntityType)
	}
	if filter.Action != "" {
		addCondition("action = $%d", filter.Action)
	}
	if filter.StartTime != nil {
		addCondition("created_at >= $%d", *filter.StartTime)
	}
	if filter.EndTime != nil {
		addCondition("created_at <= $%d", *filter.EndTime)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM audit_records %s", where)
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count audit records: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`
		SELECT id, actor_id, user_id, company_id, entity_type, entity_key, action, old_state, new_state, reason, request_id, created_at
		FROM audit_records
		%s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, where, argNum, argNum+1)
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search audit records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &SearchResult{
		Records: records,
		Total:   total,
		HasMore: int64(offset+len(records)) < total,
	}, nil
}

// Get fetches one record by ID
func (s *Store) Get(ctx context.Context, id int64) (*Record, error) {
	query := `
		SELECT id, actor_id, user_id, company_id, entity_type, entity_key, action, old_state, new_state, reason, request_id, created_at
		FROM audit_records
		WHERE id = $1
	`

	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("audit record %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Cleanup deletes records older than the retention window and returns how
// many were removed. The audit log is otherwise append-only.
func (s *Store) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	result, err := s.db.ExecContext(ctx, `DELETE FROM audit_records WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up audit records: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var rec Record
	var userID sql.NullInt64
	var oldState, newState []byte
	var reason, requestID sql.NullString
	err := row.Scan(
		&rec.ID,
		&rec.ActorID,
		&userID,
		&rec.CompanyID,
		&rec.EntityType,
		&rec.EntityKey,
		&rec.Action,
		&oldState,
		&newState,
		&reason,
		&requestID,
		&rec.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan audit record: %w", err)
	}

	if userID.Valid {
		rec.UserID = &userID.Int64
	}
	rec.OldState = oldState
	rec.NewState = newState
	rec.Reason = reason.String
	rec.RequestID = requestID.String
	return &rec, nil
}

func nullableJSON(data []byte) interface{} {
	if len(data) == 0 {
		return nil
	}
	return []byte(data)
}
