package catalog

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func graphRows(pairs ...[2]string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"key", "requires"})
	for _, p := range pairs {
		rows.AddRow(p[0], p[1])
	}
	return rows
}

func permissionRow(key, group string, isFoundation, isSystem bool, requires string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"key", "display_name", "description", "perm_group", "is_foundation", "is_system", "requires", "created_at", "updated_at",
	}).AddRow(key, key, "", group, isFoundation, isSystem, requires, now, now)
}

func TestStore_CreatePermission(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT key, requires FROM permissions`).
		WillReturnRows(graphRows([2]string{"reports.view", "{}"}))
	mock.ExpectExec(`INSERT INTO permissions`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewStore(db)
	err = store.CreatePermission(context.Background(), &Permission{
		Key:         "reports.export",
		DisplayName: "Export Reports",
		Group:       "reports",
		Requires:    []string{"reports.view"},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_CreatePermission_MalformedKey(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db)
	err = store.CreatePermission(context.Background(), &Permission{Key: "NotAKey"})

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "key", verr.Field)
}

func TestStore_CreatePermission_Duplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT key, requires FROM permissions`).
		WillReturnRows(graphRows([2]string{"reports.view", "{}"}))

	store := NewStore(db)
	err = store.CreatePermission(context.Background(), &Permission{Key: "reports.view"})

	var conflict *ConflictError
	require.True(t, errors.As(err, &conflict))
}

func TestStore_CreatePermission_CyclicRequires(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT key, requires FROM permissions`).
		WillReturnRows(graphRows([2]string{"reports.view", "{reports.export}"}))

	store := NewStore(db)
	err = store.CreatePermission(context.Background(), &Permission{
		Key:      "reports.export",
		Requires: []string{"reports.view"},
	})

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
}

func TestStore_UpdatePermission_SystemLocked(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT key, display_name`).
		WithArgs("users.view").
		WillReturnRows(permissionRow("users.view", "users", true, true, "{}"))

	store := NewStore(db)
	err = store.UpdatePermission(context.Background(), &Permission{Key: "users.view"})

	var conflict *ConflictError
	require.True(t, errors.As(err, &conflict))
}

func TestStore_DeletePermission_ReferencedByGrants(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT key, display_name`).
		WithArgs("reports.export").
		WillReturnRows(permissionRow("reports.export", "reports", false, false, "{reports.view}"))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("reports.export").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	store := NewStore(db)
	err = store.DeletePermission(context.Background(), "reports.export")

	var conflict *ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Contains(t, conflict.Message, "referenced")
}

func TestStore_GetPermission_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT key, display_name`).
		WithArgs("missing.key").
		WillReturnError(sql.ErrNoRows)

	store := NewStore(db)
	_, err = store.GetPermission(context.Background(), "missing.key")

	var notFound *NotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "permission", notFound.Entity)
}

func TestStore_ListPermissions_GroupFilter(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"key", "display_name", "description", "perm_group", "is_foundation", "is_system", "requires", "created_at", "updated_at",
	}).
		AddRow("reports.export", "Export Reports", "", "reports", false, false, "{reports.view}", now, now).
		AddRow("reports.view", "View Reports", "", "reports", false, false, "{}", now, now)

	mock.ExpectQuery(`FROM permissions`).
		WithArgs("reports", false).
		WillReturnRows(rows)

	store := NewStore(db)
	perms, err := store.ListPermissions(context.Background(), PermissionFilter{Group: "reports"})
	require.NoError(t, err)
	require.Len(t, perms, 2)
	assert.Equal(t, []string{"reports.view"}, perms[0].Requires)
}

func TestStore_UpdateModule_CoreCannotDeactivate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT id, name, description, tier`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "description", "tier", "base_price_cents", "per_user_price_cents", "permission_keys", "is_active", "created_at", "updated_at",
		}).AddRow(1, "platform", "", "core", 0, 0, "{users.view}", true, now, now))

	store := NewStore(db)
	err = store.UpdateModule(context.Background(), &Module{ID: 1, Name: "platform", IsActive: false})

	var conflict *ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Contains(t, conflict.Message, "core")
}

func TestStore_CreateModule_InvalidTier(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewStore(db)
	err = store.CreateModule(context.Background(), &Module{Name: "x", Tier: "platinum"})

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "tier", verr.Field)
}

func TestStore_DeleteTemplate_SystemLocked(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`FROM permission_templates`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "description", "target_role", "permission_keys", "module_ids", "is_system", "created_at", "updated_at",
		}).AddRow(3, "company-administrator", "", "admin", "{users.view}", "{1}", true, now, now))

	store := NewStore(db)
	err = store.DeleteTemplate(context.Background(), 3)

	var conflict *ConflictError
	require.True(t, errors.As(err, &conflict))
}

func TestStore_RoleDefaults(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM role_defaults`).
		WithArgs("admin").
		WillReturnRows(sqlmock.NewRows([]string{"permission_keys"}).
			AddRow([]byte(`["users.view","users.manage"]`)))

	store := NewStore(db)
	keys, err := store.RoleDefaults(context.Background(), "admin")
	require.NoError(t, err)
	assert.Equal(t, []string{"users.view", "users.manage"}, keys)
}

func TestStore_RoleDefaults_UnknownRole(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM role_defaults`).
		WithArgs("contractor").
		WillReturnError(sql.ErrNoRows)

	store := NewStore(db)
	keys, err := store.RoleDefaults(context.Background(), "contractor")
	require.NoError(t, err)
	assert.Nil(t, keys)
}
