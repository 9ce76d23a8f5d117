// Package setup opens the backend selected by configuration and seeds the
// first admin on the self-hosted variants.
package setup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"inclusao/internal/backend"
	"inclusao/internal/backend/local"
	"inclusao/internal/backend/memory"
	"inclusao/internal/backend/sqlstore"
	"inclusao/internal/backend/supabase"
	"inclusao/internal/platform/config"
	"inclusao/internal/platform/database"
	"inclusao/internal/sentinel"
	"inclusao/migrations"
	id "inclusao/pkg/domain"
)

// sqlitePragmas enables WAL and waits on locks instead of failing.
const sqlitePragmas = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"

// Open builds the backend for cfg.Backend.
func Open(ctx context.Context, cfg config.Server, logger *slog.Logger) (backend.Backend, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return openMemory(ctx, cfg, logger)
	case config.BackendPostgres:
		return openSQL(ctx, cfg, logger, database.DefaultConfig(cfg.DatabaseURL), migrations.DirPostgres)
	case config.BackendSQLite:
		return openSQL(ctx, cfg, logger, database.Config{
			Driver:       database.DriverSQLite,
			URL:          "file:" + cfg.SQLitePath + sqlitePragmas,
			MaxOpenConns: 1,
		}, migrations.DirSQLite)
	case config.BackendSupabase:
		return openSupabase(cfg), nil
	default:
		return backend.Backend{}, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// adminSeeder is satisfied by the self-hosted stores.
type adminSeeder interface {
	SaveCredential(ctx context.Context, c *local.Credential) error
	FindByEmail(ctx context.Context, email string) (*local.Credential, error)
	AddAdmin(ctx context.Context, userID id.UserID) error
}

func openMemory(ctx context.Context, cfg config.Server, logger *slog.Logger) (backend.Backend, error) {
	creds := local.NewMemoryCredentials()
	admins := memory.NewAdmins()
	auth := local.NewAuth(creds, cfg.AuthSigningKey, cfg.AuthTokenTTL, local.WithLogger(logger))

	seed := memorySeeder{creds: creds, admins: admins}
	if err := seedAdmin(ctx, cfg, seed, logger); err != nil {
		return backend.Backend{}, err
	}

	return backend.Backend{
		Kind:          string(config.BackendMemory),
		Auth:          auth,
		Registrations: memory.NewRegistrations(),
		Admins:        admins,
		Health:        func(context.Context) error { return nil },
		Close: func() error {
			auth.Close()
			return nil
		},
	}, nil
}

func openSQL(ctx context.Context, cfg config.Server, logger *slog.Logger, dbCfg database.Config, dir string) (backend.Backend, error) {
	pool, err := database.New(dbCfg)
	if err != nil {
		return backend.Backend{}, err
	}
	if err := pool.Migrate(ctx, migrations.FS, dir); err != nil {
		_ = pool.Close()
		return backend.Backend{}, err
	}

	store := sqlstore.New(pool)
	auth := local.NewAuth(store, cfg.AuthSigningKey, cfg.AuthTokenTTL, local.WithLogger(logger))
	if err := seedAdmin(ctx, cfg, store, logger); err != nil {
		_ = pool.Close()
		return backend.Backend{}, err
	}

	return backend.Backend{
		Kind:          string(cfg.Backend),
		Auth:          auth,
		Registrations: store,
		Admins:        store,
		Health:        pool.Health,
		Close: func() error {
			auth.Close()
			return pool.Close()
		},
	}, nil
}

func openSupabase(cfg config.Server) backend.Backend {
	client := supabase.New(cfg.SupabaseURL, cfg.SupabaseAnon, cfg.BackendTimeout)
	return backend.Backend{
		Kind:          string(config.BackendSupabase),
		Auth:          client,
		Registrations: client,
		Admins:        client,
		Health:        client.Health,
		Close:         client.Close,
	}
}

// seedAdmin creates the configured admin when it does not exist yet. An
// existing credential keeps its password.
func seedAdmin(ctx context.Context, cfg config.Server, store adminSeeder, logger *slog.Logger) error {
	if cfg.SeedAdminEmail == "" || cfg.SeedAdminPass == "" {
		return nil
	}
	existing, err := store.FindByEmail(ctx, cfg.SeedAdminEmail)
	switch {
	case err == nil:
		return store.AddAdmin(ctx, existing.UserID)
	case !errors.Is(err, sentinel.ErrNotFound):
		return fmt.Errorf("look up seed admin: %w", err)
	}

	cred, err := local.NewCredential(cfg.SeedAdminEmail, cfg.SeedAdminPass)
	if err != nil {
		return err
	}
	if err := store.SaveCredential(ctx, cred); err != nil {
		return err
	}
	if err := store.AddAdmin(ctx, cred.UserID); err != nil {
		return err
	}
	logger.InfoContext(ctx, "seeded admin account", "email", cred.Email, "user_id", cred.UserID.String())
	return nil
}

type memorySeeder struct {
	creds  *local.MemoryCredentials
	admins *memory.Admins
}

func (m memorySeeder) SaveCredential(ctx context.Context, c *local.Credential) error {
	return m.creds.Save(ctx, c)
}

func (m memorySeeder) FindByEmail(ctx context.Context, email string) (*local.Credential, error) {
	return m.creds.FindByEmail(ctx, email)
}

func (m memorySeeder) AddAdmin(_ context.Context, userID id.UserID) error {
	m.admins.Add(userID)
	return nil
}
