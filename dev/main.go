package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	devenv "pathwise-backend/dev/env"
	"pathwise-backend/internal/app"
	"pathwise-backend/lib/util/serviceutil"
	"pathwise-backend/services/auth"
	"pathwise-backend/pkg/migrations"
	"pathwise-backend/services/discussions"
)

type options struct {
	recreate bool
	seed     bool
}

func resetState() error {
	dir, err := devenv.StateDir()
	if err != nil {
		return err
	}
	slog.Info("removing dev state", "dir", dir)
	return os.RemoveAll(dir)
}

func seed(ctx context.Context) error {
	path, err := devenv.ResolvePath("<dev_state>/pathwise-auth.db")
	if err != nil {
		return err
	}
	db, err := migrations.OpenAndMigrateDB(ctx, app.AuthdSchema, path)
	if err != nil {
		return err
	}
	defer db.Close()

	created, err := auth.NewService(db, auth.Options{}).SeedAdmin(ctx)
	if err != nil {
		return err
	}
	if created {
		fmt.Printf("admin login: %s / %s\n", auth.AdminEmail, auth.AdminPassword)
	}
	count, err := discussions.NewService(db).Seed(ctx, false)
	if err != nil {
		return err
	}
	fmt.Println("seeded discussions:", count)
	return nil
}

func create(ctx context.Context, opts options) error {
	root, err := devenv.WorkspaceRoot()
	if err != nil {
		return fmt.Errorf("run the dev setup from inside the repository: %w", err)
	}
	err = os.Chdir(root)
	if err != nil {
		return err
	}

	if opts.recreate {
		err = resetState()
		if err != nil {
			return err
		}
	}

	err = CreateServiceDBs(ctx)
	if err != nil {
		return err
	}
	if opts.seed {
		err = seed(ctx)
		if err != nil {
			return err
		}
	}
	err = WriteLocalConfigs()
	if err != nil {
		return err
	}
	PrintConfigLocations()
	return nil
}

func main() {
	var opts options
	flag.BoolVar(&opts.recreate, "recreate", false, "delete dev/.state before creating it again")
	flag.BoolVar(&opts.seed, "seed", false, "create the admin account and sample discussions")
	flag.Parse()

	ctx, cancel := serviceutil.SignalContext()
	defer cancel()

	err := create(ctx, opts)
	if err != nil {
		serviceutil.Fatal("failed to create dev environment", err)
	}
	slog.Info("dev environment ready")
}
