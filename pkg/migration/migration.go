// Package migration copies the full data set from the embedded relational
// store to the remote document store. The copy is a one-time operation
// guarded by a persisted completion flag, but every step is idempotent:
// records are written under their existing ids with upsert semantics, so an
// interrupted run can simply be repeated.
//
// A run proceeds in a fixed order that respects references between
// collections: users, doctors, appointments, ratings, notifications. After
// the entity copy, documents still sitting in legacy collection names are
// folded into the current collections, and record counts are compared
// between the two stores.
package migration

import (
	"context"

	"github.com/medicita/medicita/pkg/models"
)

// Source is the read side of a migration, implemented by the local store.
type Source interface {
	ListUsers(ctx context.Context) ([]*models.User, error)
	ListDoctors(ctx context.Context) ([]*models.Doctor, error)
	ListAllAppointments(ctx context.Context) ([]*models.Appointment, error)
	ListAllRatings(ctx context.Context) ([]*models.Rating, error)
	ListAllNotifications(ctx context.Context) ([]*models.Notification, error)

	CountUsers(ctx context.Context) (int64, error)
	CountDoctors(ctx context.Context) (int64, error)
	CountAppointments(ctx context.Context) (int64, error)
	CountRatings(ctx context.Context) (int64, error)
	CountNotifications(ctx context.Context) (int64, error)
}

// Target is the write side of a migration, implemented by the remote store.
// Put operations overwrite any existing document with the same id.
type Target interface {
	PutUser(ctx context.Context, user *models.User) error
	PutDoctor(ctx context.Context, doctor *models.Doctor) error
	PutAppointment(ctx context.Context, appt *models.Appointment) error
	PutRating(ctx context.Context, rating *models.Rating) error
	PutNotification(ctx context.Context, n *models.Notification) error

	CopyLegacyCollection(ctx context.Context, legacy, target string) (int64, error)
	CountTable(ctx context.Context, table string) (int64, error)
}

// SessionState is the slice of session behavior the migration needs: the
// sign-in check that gates all writes and the persisted completion flag.
type SessionState interface {
	IsLoggedIn() bool
	IsMigrationCompleted() bool
	SetMigrationCompleted(done bool) error
}

// ProgressFunc receives progress updates during a run. done and total refer
// to records within the named stage.
type ProgressFunc func(stage string, done, total int64)

// EntityResult reports the outcome of copying one collection.
type EntityResult struct {
	Entity   string `json:"entity"`
	Migrated int64  `json:"migrated"`
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
}

// LegacyCopyResult reports one legacy collection fold. Error carries a
// fold failure; folds never abort the run, since a missing or unreadable
// legacy collection only means there is nothing old to carry forward.
type LegacyCopyResult struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Copied int64  `json:"copied"`
	Error  string `json:"error,omitempty"`
}

// migrateUsers copies every local user to the remote store.
func (s *Service) migrateUsers(ctx context.Context) EntityResult {
	res := EntityResult{Entity: "users"}
	users, err := s.source.ListUsers(ctx)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	total := int64(len(users))
	for i, u := range users {
		if err := s.target.PutUser(ctx, u); err != nil {
			res.Error = err.Error()
			return res
		}
		res.Migrated = int64(i) + 1
		s.report("users", res.Migrated, total)
	}
	res.OK = true
	return res
}

func (s *Service) migrateDoctors(ctx context.Context) EntityResult {
	res := EntityResult{Entity: "doctors"}
	doctors, err := s.source.ListDoctors(ctx)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	total := int64(len(doctors))
	for i, d := range doctors {
		if err := s.target.PutDoctor(ctx, d); err != nil {
			res.Error = err.Error()
			return res
		}
		res.Migrated = int64(i) + 1
		s.report("doctors", res.Migrated, total)
	}
	res.OK = true
	return res
}

func (s *Service) migrateAppointments(ctx context.Context) EntityResult {
	res := EntityResult{Entity: "appointments"}
	appts, err := s.source.ListAllAppointments(ctx)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	total := int64(len(appts))
	for i, a := range appts {
		if err := s.target.PutAppointment(ctx, a); err != nil {
			res.Error = err.Error()
			return res
		}
		res.Migrated = int64(i) + 1
		s.report("appointments", res.Migrated, total)
	}
	res.OK = true
	return res
}

func (s *Service) migrateRatings(ctx context.Context) EntityResult {
	res := EntityResult{Entity: "ratings"}
	ratings, err := s.source.ListAllRatings(ctx)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	total := int64(len(ratings))
	for i, r := range ratings {
		if err := s.target.PutRating(ctx, r); err != nil {
			res.Error = err.Error()
			return res
		}
		res.Migrated = int64(i) + 1
		s.report("ratings", res.Migrated, total)
	}
	res.OK = true
	return res
}

func (s *Service) migrateNotifications(ctx context.Context) EntityResult {
	res := EntityResult{Entity: "notifications"}
	notifs, err := s.source.ListAllNotifications(ctx)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	total := int64(len(notifs))
	for i, n := range notifs {
		if err := s.target.PutNotification(ctx, n); err != nil {
			res.Error = err.Error()
			return res
		}
		res.Migrated = int64(i) + 1
		s.report("notifications", res.Migrated, total)
	}
	res.OK = true
	return res
}
