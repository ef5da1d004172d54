package surreal

import (
	"context"
	"fmt"

	surrealdb "github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/pkg/connection"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/medicita/medicita/pkg/apperrors"
	"github.com/medicita/medicita/pkg/models"
)

// Event is a change notification from a live query. Data holds the full
// record as decoded by the codec.
type Event struct {
	Action string
	Data   map[string]any
}

// watchTable starts a live query on table and streams change events until
// ctx is cancelled. The filter, when non-nil, drops records it rejects.
func (s *Store) watchTable(ctx context.Context, table string, filter func(map[string]any) bool) (<-chan Event, error) {
	live, err := surrealdb.Live(ctx, s.db, surrealmodels.Table(table), false)
	if err != nil {
		return nil, apperrors.Classify(fmt.Errorf("failed to start live query on %s: %w", table, err))
	}

	notifications, err := s.db.LiveNotifications(live.String())
	if err != nil {
		_ = surrealdb.Kill(ctx, s.db, live.String())
		return nil, apperrors.Classify(err)
	}

	events := make(chan Event)
	go func() {
		defer close(events)
		defer func() {
			// Kill needs its own context; the watch context is already done
			// on the usual exit path.
			_ = surrealdb.Kill(context.WithoutCancel(ctx), s.db, live.String())
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case notification, ok := <-notifications:
				if !ok {
					return
				}
				record, ok := notification.Result.(map[string]any)
				if !ok {
					continue
				}
				if filter != nil && !filter(record) {
					continue
				}
				ev := Event{Data: record}
				switch notification.Action {
				case connection.CreateAction:
					ev.Action = "create"
				case connection.UpdateAction:
					ev.Action = "update"
				case connection.DeleteAction:
					ev.Action = "delete"
				default:
					continue
				}
				select {
				case events <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return events, nil
}

// WatchDoctors streams changes to the doctors collection, used to keep
// doctor listings current without polling.
func (s *Store) WatchDoctors(ctx context.Context) (<-chan Event, error) {
	return s.watchTable(ctx, "doctors", nil)
}

// WatchUserAppointments streams appointment changes belonging to one user.
// The live protocol delivers table-wide events; filtering happens here.
func (s *Store) WatchUserAppointments(ctx context.Context, userID models.UserID) (<-chan Event, error) {
	want := userID.RecordID()
	return s.watchTable(ctx, "appointments", func(record map[string]any) bool {
		switch owner := record["user_id"].(type) {
		case surrealmodels.RecordID:
			return owner.Table == want.Table && fmt.Sprint(owner.ID) == fmt.Sprint(want.ID)
		case *surrealmodels.RecordID:
			return owner.Table == want.Table && fmt.Sprint(owner.ID) == fmt.Sprint(want.ID)
		case string:
			return owner == userID.String()
		default:
			return false
		}
	})
}
