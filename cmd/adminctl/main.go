// Package main provides a CLI for operating the self-hosted backends:
// granting admin access and generating configuration keys.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"inclusao/internal/backend/setup"
	"inclusao/internal/platform/config"
	"inclusao/internal/platform/logger"
	"inclusao/pkg/secrets"
)

func main() {
	createCmd := flag.NewFlagSet("create-admin", flag.ExitOnError)
	createEmail := createCmd.String("email", "", "Admin e-mail (required)")
	createPassword := createCmd.String("password", "", "Admin password (required for new accounts)")

	keysCmd := flag.NewFlagSet("keys", flag.ExitOnError)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "create-admin":
		_ = createCmd.Parse(os.Args[2:])
		err = createAdmin(*createEmail, *createPassword)
	case "keys":
		_ = keysCmd.Parse(os.Args[2:])
		err = printKeys()
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// createAdmin adds the e-mail to the admins table of the configured
// backend, creating its credential first when it does not exist. An
// existing account keeps its password.
func createAdmin(email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return fmt.Errorf("-email and -password are required")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	switch cfg.Backend {
	case config.BackendPostgres, config.BackendSQLite:
	case config.BackendSupabase:
		return fmt.Errorf("admins of the hosted backend are managed in its dashboard (table admins)")
	default:
		return fmt.Errorf("backend %q does not persist admins", cfg.Backend)
	}
	cfg.SeedAdminEmail = email
	cfg.SeedAdminPass = password

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	b, err := setup.Open(ctx, cfg, logger.New(cfg.SlogLevel()))
	if err != nil {
		return err
	}
	defer b.Close() //nolint:errcheck // process exits right after

	fmt.Printf("Admin %s is ready on backend %s.\n", email, cfg.Backend)
	return nil
}

func printKeys() error {
	signing, err := secrets.Generate()
	if err != nil {
		return err
	}
	csrfKey, err := secrets.Generate()
	if err != nil {
		return err
	}
	fmt.Printf("AUTH_SIGNING_KEY=%s\n", signing)
	fmt.Printf("CSRF_KEY=%s\n", csrfKey)
	return nil
}

func printUsage() {
	fmt.Println(`adminctl - operate the self-hosted backends

Usage:
  adminctl create-admin -email <e-mail> -password <senha>
  adminctl keys

Commands:
  create-admin  Create the credential (if missing) and grant admin access.
                Uses the same environment as the server (BACKEND, DATABASE_URL, SQLITE_PATH).
  keys          Print freshly generated AUTH_SIGNING_KEY and CSRF_KEY values.`)
}
