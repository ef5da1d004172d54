package medicita

import (
	"context"
	"fmt"

	"github.com/medicita/medicita/pkg/models"
)

// Seed loads a small demo data set into the embedded store so the API has
// something to show on a fresh install. Doctors are keyed by name; running
// seed twice does not duplicate them.
func (a *App) Seed(ctx context.Context) error {
	if err := a.local.Migrate(ctx); err != nil {
		return err
	}

	doctors := []models.Doctor{
		{Name: "Dr. Elena Vargas", Specialty: "Cardiology", Experience: "15 years", Availability: "Mon-Fri 9:00-17:00"},
		{Name: "Dr. Miguel Soto", Specialty: "Dermatology", Experience: "8 years", Availability: "Tue-Sat 10:00-18:00"},
		{Name: "Dr. Lucia Herrera", Specialty: "Pediatrics", Experience: "12 years", Availability: "Mon-Fri 8:00-14:00"},
		{Name: "Dr. Andres Molina", Specialty: "General Medicine", Experience: "20 years", Availability: "Mon-Sat 9:00-19:00"},
		{Name: "Dr. Sofia Castillo", Specialty: "Neurology", Experience: "10 years", Availability: "Wed-Fri 11:00-17:00"},
	}

	existing, err := a.local.ListDoctors(ctx)
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(existing))
	for _, d := range existing {
		known[d.Name] = true
	}

	var created int
	for i := range doctors {
		if known[doctors[i].Name] {
			continue
		}
		if err := a.local.CreateDoctor(ctx, &doctors[i]); err != nil {
			return fmt.Errorf("failed to seed doctor %s: %w", doctors[i].Name, err)
		}
		created++
	}

	a.log.Info().Int("created", created).Int("existing", len(existing)).Msg("seed finished")
	return nil
}
