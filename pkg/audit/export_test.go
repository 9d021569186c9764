package audit

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords() []*Record {
	userID := int64(7)
	return []*Record{
		{
			ID:         1,
			ActorID:    1,
			UserID:     &userID,
			CompanyID:  5,
			EntityType: EntityPermission,
			EntityKey:  "reports.view",
			Action:     ActionPermissionGrant,
			NewState:   json.RawMessage(`{"is_granted":true}`),
			Reason:     "onboarding",
			CreatedAt:  time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
		},
		{
			ID:         2,
			ActorID:    1,
			CompanyID:  5,
			EntityType: EntityModule,
			EntityKey:  "3",
			Action:     ActionModuleProvision,
			CreatedAt:  time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC),
		},
	}
}

func TestExportJSON(t *testing.T) {
	data, err := exportJSON(sampleRecords())
	require.NoError(t, err)

	var decoded []*Record
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, ActionPermissionGrant, decoded[0].Action)
}

func TestExportNDJSON(t *testing.T) {
	data, err := exportNDJSON(sampleRecords())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		var rec Record
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
	}
}

func TestExportCSV(t *testing.T) {
	data, err := exportCSV(sampleRecords())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "entity_type")
	assert.Contains(t, lines[1], "reports.view")
	assert.Contains(t, lines[2], "module.provision")
}
