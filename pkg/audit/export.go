package audit

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
)

// Export searches with the filter and encodes the results in the chosen
// format. Pagination in the filter applies: callers page through large
// exports rather than streaming everything at once.
func (s *Store) Export(ctx context.Context, filter Filter, format ExportFormat) ([]byte, error) {
	result, err := s.Search(ctx, filter)
	if err != nil {
		return nil, err
	}

	switch format {
	case ExportFormatJSON:
		return exportJSON(result.Records)
	case ExportFormatNDJSON:
		return exportNDJSON(result.Records)
	case ExportFormatCSV:
		return exportCSV(result.Records)
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}

func exportJSON(records []*Record) ([]byte, error) {
	return json.MarshalIndent(records, "", "  ")
}

func exportNDJSON(records []*Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func exportCSV(records []*Record) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{
		"id", "actor_id", "user_id", "company_id", "entity_type", "entity_key",
		"action", "old_state", "new_state", "reason", "request_id", "created_at",
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, rec := range records {
		userID := ""
		if rec.UserID != nil {
			userID = strconv.FormatInt(*rec.UserID, 10)
		}
		row := []string{
			strconv.FormatInt(rec.ID, 10),
			strconv.FormatInt(rec.ActorID, 10),
			userID,
			strconv.FormatInt(rec.CompanyID, 10),
			string(rec.EntityType),
			rec.EntityKey,
			string(rec.Action),
			string(rec.OldState),
			string(rec.NewState),
			rec.Reason,
			rec.RequestID,
			rec.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}
