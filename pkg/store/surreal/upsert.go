package surreal

import (
	"context"
	"fmt"

	surrealdb "github.com/surrealdb/surrealdb.go"

	"github.com/medicita/medicita/pkg/apperrors"
	"github.com/medicita/medicita/pkg/models"
)

// Put methods write records under their existing ids with upsert semantics.
// Migration uses them so a re-run overwrites identical documents instead of
// duplicating or failing on uniqueness checks.

func (s *Store) PutUser(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		return apperrors.Validation("user ID is required")
	}
	if _, err := surrealdb.Upsert[userDoc](ctx, s.db, user.ID.RecordID(), docFromUser(user)); err != nil {
		return apperrors.Classify(fmt.Errorf("failed to put user %s: %w", user.ID, err))
	}
	return nil
}

func (s *Store) PutDoctor(ctx context.Context, doctor *models.Doctor) error {
	if doctor.ID.IsZero() {
		return apperrors.Validation("doctor ID is required")
	}
	if _, err := surrealdb.Upsert[models.Doctor](ctx, s.db, doctor.ID.RecordID(), doctor); err != nil {
		return apperrors.Classify(fmt.Errorf("failed to put doctor %s: %w", doctor.ID, err))
	}
	return nil
}

func (s *Store) PutAppointment(ctx context.Context, appt *models.Appointment) error {
	if appt.ID.IsZero() {
		return apperrors.Validation("appointment ID is required")
	}
	if _, err := surrealdb.Upsert[models.Appointment](ctx, s.db, appt.ID.RecordID(), appt); err != nil {
		return apperrors.Classify(fmt.Errorf("failed to put appointment %s: %w", appt.ID, err))
	}
	return nil
}

func (s *Store) PutRating(ctx context.Context, rating *models.Rating) error {
	if rating.ID.IsZero() {
		return apperrors.Validation("rating ID is required")
	}
	if _, err := surrealdb.Upsert[models.Rating](ctx, s.db, rating.ID.RecordID(), rating); err != nil {
		return apperrors.Classify(fmt.Errorf("failed to put rating %s: %w", rating.ID, err))
	}
	return nil
}

func (s *Store) PutNotification(ctx context.Context, n *models.Notification) error {
	if n.ID.IsZero() {
		return apperrors.Validation("notification ID is required")
	}
	if _, err := surrealdb.Upsert[models.Notification](ctx, s.db, n.ID.RecordID(), n); err != nil {
		return apperrors.Classify(fmt.Errorf("failed to put notification %s: %w", n.ID, err))
	}
	return nil
}
