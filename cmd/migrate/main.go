package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/smart-inventory/internal/app"
	"github.com/angelmondragon/smart-inventory/pkg/config"
	"github.com/angelmondragon/smart-inventory/pkg/db"
	"github.com/angelmondragon/smart-inventory/pkg/db/models"
	"github.com/angelmondragon/smart-inventory/pkg/logger"
	"github.com/angelmondragon/smart-inventory/pkg/migrate"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "migrate"})

	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "command: up|down|status|version|create|validate|seed")
	dir := flag.String("dir", "", "migrations directory on disk (embedded set when empty; create defaults to "+migrate.SourceDir+")")
	name := flag.String("name", "", "migration name (for create)")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	seed := flag.Bool("seed", false, "seed ledger records from the catalog after -cmd=up")
	flag.Parse()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "migrate"

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx = logg.WithFields(context.Background(), map[string]any{
		"env":    cfg.App.Env,
		"cmd":    *cmd,
		"dir":    *dir,
		"driver": cfg.DB.Driver,
	})

	switch *cmd {
	case "create":
		if *name == "" {
			fail("missing -name for create")
		}
		target := *dir
		if target == "" {
			target = migrate.SourceDir
		}
		path, err := migrate.CreateSQLMigration(target, *name, time.Now())
		if err != nil {
			fail("failed to create migration: %v", err)
		}
		fmt.Println("created migration:", path)
		return

	case "validate":
		if err := migrate.Validate(migrate.Source(*dir)); err != nil {
			fail("migration validation failed: %v", err)
		}
		fmt.Println("migration validation passed")
		return
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	logg.Info(ctx, "migrate ready")

	switch *cmd {
	case "up":
		if err := up(ctx, cfg, dbClient, *dir); err != nil {
			fail("migrate up failed: %v", err)
		}
		if *seed {
			seedLedger(ctx, cfg, logg, dbClient)
		}

	case "seed":
		seedLedger(ctx, cfg, logg, dbClient)

	case "down":
		applied, err := runner(ctx, logg, cfg, dbClient, *dir).Down(ctx)
		if err != nil {
			fail("migrate down failed: %v", err)
		}
		fmt.Println("rolled back migration", applied)

	case "status":
		states, err := runner(ctx, logg, cfg, dbClient, *dir).Status(ctx)
		if err != nil {
			fail("migrate status failed: %v", err)
		}
		for _, st := range states {
			state := "pending"
			if st.Applied {
				state = "applied"
			}
			fmt.Printf("%d\t%-8s %s\n", st.Version, state, st.Path)
		}

	case "version":
		if *version == "" {
			fail("missing -version for version command")
		}
		if err := runner(ctx, logg, cfg, dbClient, *dir).To(ctx, *version); err != nil {
			fail("migrate to version failed: %v", err)
		}

	default:
		fail("unknown -cmd value: %s", *cmd)
	}
}

// up applies goose migrations on Postgres and AutoMigrate on SQLite.
func up(ctx context.Context, cfg *config.Config, client *db.Client, dir string) error {
	if cfg.DB.Driver == db.DriverSQLite {
		return client.DB().WithContext(ctx).AutoMigrate(models.Inventory()...)
	}
	sqlDB, err := client.DB().DB()
	if err != nil {
		return err
	}
	r, err := migrate.NewRunner(sqlDB, migrate.Source(dir))
	if err != nil {
		return err
	}
	applied, err := r.Up(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("applied %d migrations\n", applied)
	return nil
}

// runner builds a goose runner; goose commands other than up need Postgres.
func runner(ctx context.Context, logg *logger.Logger, cfg *config.Config, client *db.Client, dir string) *migrate.Runner {
	if cfg.DB.Driver == db.DriverSQLite {
		fail("goose commands target postgres; sqlite databases only support up and seed")
	}
	sqlDB, err := client.DB().DB()
	requireResource(ctx, logg, "sql database", err)
	r, err := migrate.NewRunner(sqlDB, migrate.Source(dir))
	requireResource(ctx, logg, "migration runner", err)
	return r
}

func seedLedger(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) {
	// Seeding runs alone, so the in-process guard is enough.
	cfg.FeatureFlags.DistributedGuard = false

	services, err := app.Build(ctx, app.Params{
		Config:     cfg,
		Logger:     logg,
		DB:         client,
		Registerer: prometheus.NewRegistry(),
	})
	requireResource(ctx, logg, "services", err)
	defer func() {
		if err := services.Close(); err != nil {
			logg.Error(ctx, "error closing service clients", err)
		}
	}()

	result, err := services.Inventory.SeedFromCatalog(ctx)
	if err != nil {
		fail("seed failed: %v", err)
	}
	fmt.Printf("seeded %d ledger records (%d failed)\n", result.Created, result.Failed)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
