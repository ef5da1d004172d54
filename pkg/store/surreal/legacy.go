package surreal

import (
	"context"
	"fmt"

	surrealdb "github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/medicita/medicita/pkg/apperrors"
)

// Legacy collection names from the first deployment of the remote store.
// Newer deployments use the English names; CopyLegacyCollection folds old
// data into them during migration.
const (
	LegacyAppointments  = "citas"
	LegacyRatings       = "calificaciones"
	LegacyNotifications = "notificaciones"
)

// LegacyRenames maps each legacy collection to its current name.
var LegacyRenames = map[string]string{
	LegacyAppointments:  "appointments",
	LegacyRatings:       "ratings",
	LegacyNotifications: "notifications",
}

// CopyLegacyCollection copies every document from the legacy collection into
// target, preserving document ids. The legacy collection is left in place so
// the copy can be re-run; an existing target document with the same id is
// overwritten. An empty or missing legacy collection copies zero documents
// and is not an error.
func (s *Store) CopyLegacyCollection(ctx context.Context, legacy, target string) (int64, error) {
	res, err := surrealdb.Query[[]map[string]any](ctx, s.db,
		"SELECT * FROM type::table($tb)", map[string]any{"tb": legacy})
	if err != nil {
		return 0, apperrors.Classify(fmt.Errorf("failed to read legacy collection %s: %w", legacy, err))
	}

	docs := rows(res)
	var copied int64
	for _, doc := range docs {
		id, err := documentID(doc["id"])
		if err != nil {
			return copied, fmt.Errorf("legacy collection %s: %w", legacy, err)
		}
		delete(doc, "id")

		rid := surrealmodels.RecordID{Table: target, ID: id}
		if _, err := surrealdb.Upsert[map[string]any](ctx, s.db, rid, doc); err != nil {
			return copied, apperrors.Classify(
				fmt.Errorf("failed to copy %s:%v to %s: %w", legacy, id, target, err))
		}
		copied++
	}
	return copied, nil
}

// CountTable exposes record counts for migration verification, including
// legacy collections not covered by the Store interface counts.
func (s *Store) CountTable(ctx context.Context, table string) (int64, error) {
	return s.countTable(ctx, table)
}

// documentID extracts the id portion of a decoded record id. The codec
// yields a RecordID for tag-8 values; bare strings appear in data written
// by older clients.
func documentID(v any) (any, error) {
	switch id := v.(type) {
	case surrealmodels.RecordID:
		return id.ID, nil
	case *surrealmodels.RecordID:
		return id.ID, nil
	case string:
		return id, nil
	case nil:
		return nil, fmt.Errorf("document has no id")
	default:
		return nil, fmt.Errorf("unsupported document id type %T", v)
	}
}
