// main.go - Operator control tool for vetpulse
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"
	"gorm.io/gorm"

	"vetpulse/internal"
	"vetpulse/internal/centers"
)

const (
	defaultShutdownTimeout = 30 * time.Second
)

var logger = logrus.New()

// Command defines the interface for all command implementations
type Command interface {
	// Name returns the command name
	Name() string
	// Description returns the command description
	Description() string
	// Execute runs the command with the given app and args
	Execute(ctx context.Context, app *internal.Application, args []string) error
}

// The set of available commands
var commands = []Command{
	&RegisterCommand{},
	&RotateKeyCommand{},
	&ActivateCommand{},
	&DeactivateCommand{},
	&ListCommand{},
	&MigrateCommand{},
	&HelpCommand{},
}

func main() {
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sig := <-sigChan
		logger.Infof("Received signal: %v, initiating cleanup...", sig)
		cancel()
	}()

	cmdName, args := parseArgs()

	cmd := findCommand(cmdName)
	if cmd == nil {
		showUsageAndExit()
	}

	app, err := internal.NewApp()
	if err != nil {
		logger.Fatalf("Failed to initialize app: %v", err)
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()
		if err := app.Shutdown(shutdownCtx); err != nil {
			logger.Warnf("Cleanup error: %v", err)
		}
	}()

	if err := cmd.Execute(ctx, app, args); err != nil {
		logger.Fatalf("Command failed: %v", err)
	}

	logger.Infof("Command %s completed successfully", cmd.Name())
}

// RegisterCommand provisions a new center
type RegisterCommand struct{}

func (c *RegisterCommand) Name() string { return "register" }

func (c *RegisterCommand) Description() string {
	return "Registers a new center (prompts for a credential, or generates one)"
}

func (c *RegisterCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: %s <code> <name>", c.Name())
	}
	code := args[0]
	name := strings.Join(args[1:], " ")

	db := app.DBManager.GetConnection()
	if _, err := centers.GetCenterByCode(db, code); err == nil {
		return fmt.Errorf("center %s already exists", code)
	}

	apiKey, err := promptOrGenerateKey()
	if err != nil {
		return err
	}
	generated := apiKey == ""
	if generated {
		apiKey, err = centers.GenerateAPIKey()
		if err != nil {
			return err
		}
	}

	center, err := centers.RegisterCenter(db, code, name, apiKey)
	if err != nil {
		return err
	}

	logger.Infof("Registered center %s (%s)", center.Code, center.Name)
	if generated {
		// Printed exactly once; the hash in the database cannot be reversed.
		fmt.Printf("API key for %s: %s\n", center.Code, apiKey)
	}
	return nil
}

// promptOrGenerateKey reads a credential without echo. An empty input means
// the operator wants a generated one.
func promptOrGenerateKey() (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", nil
	}

	fmt.Print("Enter API key (empty to generate): ")
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read credential: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

// RotateKeyCommand replaces a center's credential
type RotateKeyCommand struct{}

func (c *RotateKeyCommand) Name() string        { return "rotate-key" }
func (c *RotateKeyCommand) Description() string { return "Replaces a center's API key" }

func (c *RotateKeyCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: %s <code>", c.Name())
	}

	db := app.DBManager.GetConnection()
	center, apiKey, err := centers.RotateAPIKey(db, args[0])
	if err != nil {
		return err
	}

	logger.Infof("Rotated API key for center %s", center.Code)
	fmt.Printf("New API key for %s: %s\n", center.Code, apiKey)
	return nil
}

// ActivateCommand re-enables snapshot submissions for a center
type ActivateCommand struct{}

func (c *ActivateCommand) Name() string        { return "activate" }
func (c *ActivateCommand) Description() string { return "Marks a center as active" }

func (c *ActivateCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	return setActive(app.DBManager.GetConnection(), args, c.Name(), true)
}

// DeactivateCommand blocks snapshot submissions for a center
type DeactivateCommand struct{}

func (c *DeactivateCommand) Name() string        { return "deactivate" }
func (c *DeactivateCommand) Description() string { return "Marks a center as inactive" }

func (c *DeactivateCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	return setActive(app.DBManager.GetConnection(), args, c.Name(), false)
}

func setActive(db *gorm.DB, args []string, name string, active bool) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: %s <code>", name)
	}
	center, err := centers.SetActive(db, args[0], active)
	if err != nil {
		return err
	}
	logger.Infof("Center %s active=%v", center.Code, center.Active)
	return nil
}

// ListCommand prints every registered center
type ListCommand struct{}

func (c *ListCommand) Name() string        { return "list" }
func (c *ListCommand) Description() string { return "Lists registered centers" }

func (c *ListCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	db := app.DBManager.GetConnection()
	all, err := centers.GetAllCenters(db)
	if err != nil {
		return err
	}

	if len(all) == 0 {
		fmt.Println("No centers registered")
		return nil
	}

	for _, center := range all {
		status := "active"
		if !center.Active {
			status = "inactive"
		}
		lastSync := "never"
		if center.LastSyncAt != nil {
			lastSync = center.LastSyncAt.Format(time.RFC3339)
		}
		fmt.Printf("%-10s %-30s %-10s last sync: %s\n", center.Code, center.Name, status, lastSync)
	}
	return nil
}

// MigrateCommand runs database migrations
type MigrateCommand struct{}

func (c *MigrateCommand) Name() string        { return "migrate" }
func (c *MigrateCommand) Description() string { return "Runs database migrations" }

func (c *MigrateCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	logger.Info("Running database migrations...")

	if err := app.DBManager.MigrateDatabase(); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	logger.Info("Migrations completed successfully")
	return nil
}

// HelpCommand implements a command to show usage information
type HelpCommand struct{}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Description() string { return "Shows usage information" }

func (c *HelpCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	printUsage()
	return nil
}

// Helper functions

// parseArgs parses the command name and arguments
func parseArgs() (string, []string) {
	args := os.Args[1:]
	if len(args) == 0 {
		return "help", []string{}
	}
	return args[0], args[1:]
}

// findCommand finds a command by name
func findCommand(name string) Command {
	for _, cmd := range commands {
		if cmd.Name() == name {
			return cmd
		}
	}
	return nil
}

func printUsage() {
	fmt.Println("Usage: vetpulsectl [command] [args...]")
	fmt.Println("Available commands:")

	for _, cmd := range commands {
		fmt.Printf("  %s: %s\n", cmd.Name(), cmd.Description())
	}
}

// showUsageAndExit shows usage information and exits
func showUsageAndExit() {
	printUsage()
	os.Exit(1)
}
