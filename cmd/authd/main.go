package main

import (
	"flag"
	"log/slog"

	"pathwise-backend/internal/app"
	"pathwise-backend/lib/util/serviceutil"
)

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	configPath := flag.String("config", app.AuthdConfigFile, "Path to the json5 config file.")
	seedAdmin := flag.Bool("seed-admin", false, "Create the default admin account when no admin exists.")
	flag.Parse()

	ctx, cancel := serviceutil.SignalContext()
	defer cancel()

	output := InitTelemetry(ctx, *verbose)

	cfg, err := app.LoadAuthd(*configPath)
	if err != nil {
		serviceutil.Fatal("read config", err)
	}

	stack, err := app.NewAuthd(ctx, cfg, output)
	if err != nil {
		serviceutil.Fatal("init services", err)
	}
	defer stack.Close()

	if *seedAdmin {
		created, err := stack.Auth.SeedAdmin(ctx)
		if err != nil {
			serviceutil.Fatal("seed admin", err)
		}
		slog.InfoContext(ctx, "seeded admin", "created", created)
	}

	err = serviceutil.StartHttpServer(ctx, cfg.Port, NewHandler(stack, cfg))
	if err != nil {
		serviceutil.Fatal("serve http", err)
	}
	slog.Info("authd stopped")
}
