package admin

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/dushyantisbest/SIH-Student-attendence/internal/cli"
	"github.com/dushyantisbest/SIH-Student-attendence/internal/database"
	"github.com/dushyantisbest/SIH-Student-attendence/internal/domain/user"
	"github.com/dushyantisbest/SIH-Student-attendence/internal/migrations"
	"github.com/dushyantisbest/SIH-Student-attendence/internal/utils"
)

// Command implements the admin management command
type Command struct{}

func (c *Command) Name() string {
	return "admin"
}

func (c *Command) Description() string {
	return "Administration tasks (create)"
}

func (c *Command) Run(args []string) error {
	if len(args) < 1 {
		c.printUsage()
		return fmt.Errorf("subcommand required")
	}

	subcmd := args[0]
	switch subcmd {
	case "create":
		return c.runCreate(args[1:])
	default:
		c.printUsage()
		return fmt.Errorf("unknown subcommand: %s", subcmd)
	}
}

func (c *Command) printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: attendance-cli admin <subcommand> [args]\n\n")
	fmt.Fprintf(os.Stderr, "Subcommands:\n")
	fmt.Fprintf(os.Stderr, "  create   Create an admin account (admins cannot self-register)\n")
	fmt.Fprintf(os.Stderr, "    -email <email>       Admin email (required)\n")
	fmt.Fprintf(os.Stderr, "    -password <pass>     Admin password (required)\n")
	fmt.Fprintf(os.Stderr, "    -name <name>         Display name (default: Administrator)\n")
}

func (c *Command) runCreate(args []string) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	email := fs.String("email", "", "Admin email")
	password := fs.String("password", "", "Admin password")
	name := fs.String("name", "Administrator", "Admin display name")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *email == "" || *password == "" {
		return fmt.Errorf("email and password are required")
	}

	cfg, err := cli.LoadConfig()
	if err != nil {
		return err
	}

	// Connect to database
	if err := database.ConnectDB(cfg); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() { _ = database.Close() }()

	// Run migrations
	if err := migrations.Apply(cfg, database.DB); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	users := user.NewService(user.NewRepository(database.DB))
	_, created, err := EnsureAdmin(context.Background(), users, user.RegisterRequest{
		Email:    *email,
		Password: *password,
		Name:     *name,
		Role:     user.RoleAdmin,
	})
	if err != nil {
		return err
	}

	if created {
		slog.Info("Admin account created", "email", *email)
	} else {
		slog.Info("Admin account already exists", "email", *email)
	}
	return nil
}

// EnsureAdmin registers an admin account unless the email is already taken.
// An existing account is left untouched, whatever its role.
func EnsureAdmin(ctx context.Context, users user.Service, req user.RegisterRequest) (*user.User, bool, error) {
	req.Role = user.RoleAdmin
	if err := utils.ValidateStruct(req); err != nil {
		return nil, false, err
	}

	u, err := users.Register(ctx, req)
	if err != nil {
		if errors.Is(err, user.ErrEmailExists) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to create admin: %w", err)
	}
	return u, true, nil
}
