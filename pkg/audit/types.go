package audit

import (
	"encoding/json"
	"time"
)

// Action categorizes what a record describes
type Action string

const (
	ActionPermissionGrant    Action = "permission.grant"
	ActionPermissionRevoke   Action = "permission.revoke"
	ActionPermissionDeny     Action = "permission.deny"
	ActionModuleGrant        Action = "module.grant"
	ActionModuleRevoke       Action = "module.revoke"
	ActionModuleProvision    Action = "module.provision"
	ActionTemplateApply      Action = "template.apply"
	ActionCustomRoleCreate   Action = "custom_role.create"
	ActionCustomRoleUpdate   Action = "custom_role.update"
	ActionCustomRoleDisable  Action = "custom_role.disable"
	ActionCustomRoleAssign   Action = "custom_role.assign"
	ActionCustomRoleUnassign Action = "custom_role.unassign"
)

// EntityType identifies the kind of entity a record refers to
type EntityType string

const (
	EntityPermission   EntityType = "permission"
	EntityModule       EntityType = "module"
	EntityProvisioning EntityType = "provisioning"
	EntityCustomRole   EntityType = "custom_role"
	EntityTemplate     EntityType = "template"
)

// Record is one immutable audit log entry. OldState and NewState are
// before/after snapshots sufficient to reconstruct the change.
type Record struct {
	ID         int64           `json:"id"`
	ActorID    int64           `json:"actor_id"`
	UserID     *int64          `json:"user_id,omitempty"`
	CompanyID  int64           `json:"company_id"`
	EntityType EntityType      `json:"entity_type"`
	EntityKey  string          `json:"entity_key"`
	Action     Action          `json:"action"`
	OldState   json.RawMessage `json:"old_state,omitempty"`
	NewState   json.RawMessage `json:"new_state,omitempty"`
	Reason     string          `json:"reason,omitempty"`
	RequestID  string          `json:"request_id,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Filter narrows a search over audit records
type Filter struct {
	ActorID    *int64
	UserID     *int64
	CompanyID  *int64
	EntityType EntityType
	Action     Action
	StartTime  *time.Time
	EndTime    *time.Time
	Limit      int
	Offset     int
}

// SearchResult is one page of audit records
type SearchResult struct {
	Records []*Record `json:"records"`
	Total   int64     `json:"total"`
	HasMore bool      `json:"has_more"`
}

// ExportFormat selects an export encoding
type ExportFormat string

const (
	ExportFormatJSON   ExportFormat = "json"
	ExportFormatCSV    ExportFormat = "csv"
	ExportFormatNDJSON ExportFormat = "ndjson"
)

// Snapshot marshals a value for OldState/NewState, dropping the error:
// states come from already-decoded structs that cannot fail to encode.
func Snapshot(v interface{}) json.RawMessage {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}
