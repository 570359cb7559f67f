package main

import (
	"flag"
	"log/slog"

	"pathwise-backend/internal/app"
	"pathwise-backend/lib/util/serviceutil"
	"pathwise-backend/services/scraping"
)

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	configPath := flag.String("config", app.ResourcesdConfigFile, "Path to the json5 config file.")
	flag.Parse()

	ctx, cancel := serviceutil.SignalContext()
	defer cancel()

	output := InitTelemetry(ctx, *verbose)

	cfg, err := app.LoadResourcesd(*configPath)
	if err != nil {
		serviceutil.Fatal("read config", err)
	}

	stack, err := app.NewResourcesd(ctx, cfg, output)
	if err != nil {
		serviceutil.Fatal("init services", err)
	}

	scheduler, err := scraping.NewScheduler(ctx, stack.Scraping, cfg.Scraping.Schedule)
	if err != nil {
		serviceutil.Fatal("init scheduler", err)
	}
	if scheduler.Entries() > 0 {
		slog.InfoContext(ctx, "starting scheduler", "entries", scheduler.Entries())
	}
	scheduler.Start()

	err = serviceutil.StartHttpServer(ctx, cfg.Port, NewHandler(stack, cfg))
	if err != nil {
		serviceutil.Fatal("serve http", err)
	}

	slog.Info("stopping scheduler and background jobs")
	scheduler.Stop()
	err = stack.Close()
	if err != nil {
		slog.Error("failed to close cleanly", "err", err)
	}
	slog.Info("resourcesd stopped")
}
