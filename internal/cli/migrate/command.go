package migrate

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/dushyantisbest/SIH-Student-attendence/internal/cli"
	"github.com/dushyantisbest/SIH-Student-attendence/internal/config"
	"github.com/dushyantisbest/SIH-Student-attendence/internal/database"
	"github.com/dushyantisbest/SIH-Student-attendence/internal/migrations"
)

// ErrRollbackUnsupported is returned for down on the sqlite driver
var ErrRollbackUnsupported = errors.New("rollback needs the postgres driver; sqlite schemas are managed by gorm")

// Command implements the schema migration command
type Command struct{}

func (c *Command) Name() string {
	return "migrate"
}

func (c *Command) Description() string {
	return "Apply or roll back database migrations (up, down)"
}

func (c *Command) Run(args []string) error {
	if len(args) < 1 {
		c.printUsage()
		return fmt.Errorf("subcommand required")
	}

	switch args[0] {
	case "up":
		return c.runUp()
	case "down":
		return c.runDown(args[1:])
	default:
		c.printUsage()
		return fmt.Errorf("unknown subcommand: %s", args[0])
	}
}

func (c *Command) printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: attendance-cli migrate <subcommand> [args]\n\n")
	fmt.Fprintf(os.Stderr, "Subcommands:\n")
	fmt.Fprintf(os.Stderr, "  up                    Apply all pending migrations\n")
	fmt.Fprintf(os.Stderr, "  down                  Roll back migrations\n")
	fmt.Fprintf(os.Stderr, "    -steps <n>          Number of migrations to revert (default: 1)\n")
}

func (c *Command) runUp() error {
	cfg, err := cli.LoadConfig()
	if err != nil {
		return err
	}

	if err := database.ConnectDB(cfg); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() { _ = database.Close() }()

	if err := migrations.Apply(cfg, database.DB); err != nil {
		return err
	}
	slog.Info("Migrations completed successfully", "driver", cfg.Database.Driver)
	return nil
}

func (c *Command) runDown(args []string) error {
	fs := flag.NewFlagSet("down", flag.ContinueOnError)
	steps := fs.Int("steps", 1, "Number of migrations to revert")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := cli.LoadConfig()
	if err != nil {
		return err
	}
	return rollback(cfg, *steps)
}

func rollback(cfg *config.Config, steps int) error {
	if cfg.Database.Driver == "sqlite" {
		return ErrRollbackUnsupported
	}
	if err := migrations.Rollback(cfg, steps); err != nil {
		return err
	}
	slog.Info("Migrations rolled back", "steps", steps)
	return nil
}
