package medicita

// Command is a discrete application operation selected on the command line.
// Parsing produces a Command plus the shared Config; Main routes execution
// to the matching App method.
type Command interface {
	// Name returns the CLI sub-command this command corresponds to.
	Name() string
}

// RunCommand starts the HTTP server.
type RunCommand struct{}

func (c *RunCommand) Name() string { return "run" }

// MigrateCommand applies the embedded store's schema. Safe to run on every
// deployment; it only adds tables, columns and indexes.
type MigrateCommand struct{}

func (c *MigrateCommand) Name() string { return "migrate" }

// TransferCommand runs the one-time local to remote data migration from the
// command line, without starting the server.
type TransferCommand struct {
	// Strict fails the transfer when post-copy record counts do not match.
	Strict bool
}

func (c *TransferCommand) Name() string { return "transfer" }

// SeedCommand loads a small demo data set into the embedded store.
type SeedCommand struct{}

func (c *SeedCommand) Name() string { return "seed" }
