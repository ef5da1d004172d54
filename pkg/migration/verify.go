package migration

import (
	"context"
	"fmt"
)

// VerificationPolicy controls how count mismatches after a run are handled.
type VerificationPolicy int

const (
	// PolicyLenient logs mismatches as warnings and lets the run succeed.
	// The copy itself reported no errors, so a mismatch usually means
	// remote writes from another client, not lost data.
	PolicyLenient VerificationPolicy = iota
	// PolicyStrict fails the run on any mismatch and leaves the completion
	// flag unset.
	PolicyStrict
)

// CollectionCheck compares record counts for one collection.
type CollectionCheck struct {
	Collection string `json:"collection"`
	Local      int64  `json:"local"`
	Remote     int64  `json:"remote"`
	Match      bool   `json:"match"`
}

// Verify compares per-collection record counts between source and target.
// A collection with zero local records is trivially verified; otherwise the
// counts must be equal. Remote-born documents or folded legacy documents
// make the remote count larger and the check report a mismatch, which the
// lenient policy downgrades to a warning.
func (s *Service) Verify(ctx context.Context) ([]CollectionCheck, bool, error) {
	type counter struct {
		name  string
		local func(context.Context) (int64, error)
	}
	counters := []counter{
		{"users", s.source.CountUsers},
		{"doctors", s.source.CountDoctors},
		{"appointments", s.source.CountAppointments},
		{"ratings", s.source.CountRatings},
		{"notifications", s.source.CountNotifications},
	}

	checks := make([]CollectionCheck, 0, len(counters))
	allMatch := true
	for _, c := range counters {
		local, err := c.local(ctx)
		if err != nil {
			return nil, false, fmt.Errorf("failed to count local %s: %w", c.name, err)
		}
		remote, err := s.target.CountTable(ctx, c.name)
		if err != nil {
			return nil, false, fmt.Errorf("failed to count remote %s: %w", c.name, err)
		}
		check := CollectionCheck{
			Collection: c.name,
			Local:      local,
			Remote:     remote,
			Match:      local == 0 || local == remote,
		}
		if !check.Match {
			allMatch = false
			s.log.Warn().
				Str("collection", c.name).
				Int64("local", local).
				Int64("remote", remote).
				Msg("migration verification mismatch")
		}
		checks = append(checks, check)
	}
	return checks, allMatch, nil
}
