package audit

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Record(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO audit_records`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(101))

	store := NewStore(db)
	rec := &Record{
		ActorID:    1,
		CompanyID:  5,
		EntityType: EntityPermission,
		EntityKey:  "reports.view",
		Action:     ActionPermissionGrant,
		NewState:   json.RawMessage(`{"is_granted":true}`),
	}
	err = store.Record(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, int64(101), rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())
}

func TestStore_RecordTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO audit_records`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	store := NewStore(db)
	tx, err := db.Begin()
	require.NoError(t, err)

	err = store.RecordTx(context.Background(), tx, &Record{
		ActorID:    1,
		CompanyID:  5,
		EntityType: EntityModule,
		EntityKey:  "3",
		Action:     ActionModuleGrant,
	})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Search_Filters(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	actorID := int64(1)
	companyID := int64(5)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM audit_records`).
		WithArgs(actorID, companyID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "actor_id", "user_id", "company_id", "entity_type", "entity_key",
		"action", "old_state", "new_state", "reason", "request_id", "created_at",
	}).
		AddRow(3, 1, 7, 5, "permission", "reports.view", "permission.grant", nil, []byte(`{"is_granted":true}`), "onboarding", "req-1", now).
		AddRow(2, 1, 7, 5, "permission", "reports.export", "permission.revoke", []byte(`{"is_granted":true}`), nil, nil, nil, now.Add(-time.Minute))

	mock.ExpectQuery(`FROM audit_records`).
		WithArgs(actorID, companyID, 2, 0).
		WillReturnRows(rows)

	store := NewStore(db)
	result, err := store.Search(context.Background(), Filter{
		ActorID:   &actorID,
		CompanyID: &companyID,
		Limit:     2,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.Total)
	assert.True(t, result.HasMore)
	require.Len(t, result.Records, 2)
	assert.Equal(t, ActionPermissionGrant, result.Records[0].Action)
	require.NotNil(t, result.Records[0].UserID)
	assert.Equal(t, int64(7), *result.Records[0].UserID)
	assert.Equal(t, "onboarding", result.Records[0].Reason)
}

func TestStore_Search_DefaultLimit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM audit_records`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`FROM audit_records`).
		WithArgs(50, 0).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "actor_id", "user_id", "company_id", "entity_type", "entity_key",
			"action", "old_state", "new_state", "reason", "request_id", "created_at",
		}))

	store := NewStore(db)
	result, err := store.Search(context.Background(), Filter{})
	require.NoError(t, err)
	assert.False(t, result.HasMore)
	assert.Empty(t, result.Records)
}

func TestStore_Cleanup(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM audit_records`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 7))

	store := NewStore(db)
	deleted, err := store.Cleanup(context.Background(), 90*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(7), deleted)
}

func TestSnapshot(t *testing.T) {
	assert.Nil(t, Snapshot(nil))

	snap := Snapshot(map[string]bool{"is_granted": true})
	assert.JSONEq(t, `{"is_granted":true}`, string(snap))
}
