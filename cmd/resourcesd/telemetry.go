package main

import (
	"context"
	"log/slog"

	"pathwise-backend/lib/restyutil"
	"pathwise-backend/lib/telemetry"
	"pathwise-backend/lib/util/serviceutil"
)

// InitTelemetry sets up logging and exporters. In verbose mode it returns
// an output that dumps outgoing scraper requests to .dev/resty.
func InitTelemetry(ctx context.Context, verbose bool) restyutil.InstrumentOutput {
	telemetry.InitSlog(verbose)

	if verbose {
		slog.DebugContext(ctx, "verbose logging enabled")
	}

	t, err := telemetry.SetupFromEnv(ctx, "resourcesd")
	if err != nil {
		serviceutil.Fatal("setup telemetry", err)
	}
	go func() {
		<-ctx.Done()
		t.Shutdown(context.Background())
	}()
	telemetry.InstrumentPerfStats(ctx)

	if !verbose {
		return nil
	}
	output, err := restyutil.NewFilesystemOutput(".dev/resty/scraper")
	if err != nil {
		slog.WarnContext(ctx, "request dumps disabled", "err", err)
		return nil
	}
	return output
}
