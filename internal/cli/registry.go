package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/dushyantisbest/SIH-Student-attendence/internal/config"
)

// ErrCommandRequired is returned when no command name is given
var ErrCommandRequired = errors.New("command required")

// Command is one top-level subcommand of attendance-cli
type Command interface {
	Name() string
	Description() string
	Run(args []string) error
}

// Registry dispatches arguments to registered commands
type Registry struct {
	commands map[string]Command
	out      io.Writer
}

func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]Command), out: os.Stderr}
}

// Register adds cmd; a later command with the same name replaces the earlier one
func (r *Registry) Register(cmd Command) {
	r.commands[cmd.Name()] = cmd
}

// Run executes the command named by args[0] with the remaining arguments
func (r *Registry) Run(args []string) error {
	if len(args) < 1 {
		r.printUsage()
		return ErrCommandRequired
	}

	name := args[0]
	if name == "help" || name == "-h" || name == "--help" {
		r.printUsage()
		return nil
	}

	cmd, ok := r.commands[name]
	if !ok {
		r.printUsage()
		return fmt.Errorf("unknown command: %s", name)
	}
	return cmd.Run(args[1:])
}

func (r *Registry) printUsage() {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(r.out, "Usage: attendance-cli <command> [args]\n\n")
	fmt.Fprintf(r.out, "Commands:\n")
	for _, name := range names {
		fmt.Fprintf(r.out, "  %-12s %s\n", name, r.commands[name].Description())
	}
}

// LoadConfig reads .env, resolves CONFIG_PATH and returns the defaulted config
func LoadConfig() (*config.Config, error) {
	config.LoadDotEnv()
	envConfig := config.LoadEnv()

	cfg, err := config.Load(envConfig.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}
