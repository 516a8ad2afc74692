// Command crimewatch-probe checks a crime backend from the command line using
// the same gateway and alert controller the plugin runs.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mattermost/mattermost-plugin-crimewatch/server/alerts"
	"github.com/mattermost/mattermost-plugin-crimewatch/server/gateway"
	"github.com/mattermost/mattermost-plugin-crimewatch/server/metrics"
)

func main() {
	_ = godotenv.Load(".env")

	watch := flag.Bool("watch", false, "keep polling camera alerts until interrupted")
	site := flag.String("site", os.Getenv("CRIMEWATCH_SITE"), "only alerts whose location contains this text")
	category := flag.String("category", os.Getenv("CRIMEWATCH_CATEGORY"), "only alerts whose crime type contains this text")
	interval := flag.Duration("interval", alerts.DefaultInterval, "poll interval in watch mode")
	flag.Parse()

	l := setupLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, l, *site, *category, *interval, *watch); err != nil {
		l.Error("probe_failed", "err", err)
		os.Exit(1)
	}
}

// setupLogger reads LOG_LEVEL and LOG_FORMAT; output goes to stderr
func setupLogger() *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}

	var h slog.Handler
	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		h = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	} else {
		h = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	}
	return slog.New(h)
}

func gatewayConfigFromEnv() gateway.Config {
	config := gateway.Config{
		BaseURL:   os.Getenv("CRIMEWATCH_BASE_URL"),
		Endpoints: gateway.DefaultEndpoints(),
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:8000"
	}
	if v, err := strconv.Atoi(os.Getenv("CRIMEWATCH_TIMEOUT_SECONDS")); err == nil && v > 0 {
		config.Timeout = time.Duration(v) * time.Second
	}
	return config
}

func run(ctx context.Context, l *slog.Logger, site, category string, interval time.Duration, watch bool) error {
	m := metrics.New()

	client, err := gateway.NewClient(gatewayConfigFromEnv(), l, m)
	if err != nil {
		return fmt.Errorf("failed to create gateway: %w", err)
	}
	l.Info("gateway_ready", "base", client.BaseURL())

	if res := client.HealthCheck(ctx); res.Err != nil {
		return res.Err
	}
	fmt.Println("backend healthy")

	if res := client.GetCrimeTypes(ctx); res.Err != nil {
		l.Warn("crime_types_error", "kind", string(res.Err.Kind), "err", res.Err.Message)
	} else {
		fmt.Printf("crime types: %s\n", strings.Join(res.Value, ", "))
	}

	controller, err := alerts.NewController(alerts.Config{
		WatchID:  "probe",
		Name:     "probe",
		Filter:   alerts.Filter{Site: site, Category: category},
		Interval: interval,
	}, alerts.Dependencies{
		Source:    client,
		Notifier:  alerts.NotifierFunc(printAlert),
		Scheduler: alerts.LocalScheduler{},
		Logger:    l,
		Metrics:   m,
	})
	if err != nil {
		return err
	}
	defer func() { _ = controller.Stop() }()

	if !watch {
		if err := controller.Refresh(ctx); err != nil {
			return err
		}
		printSnapshot(controller.Snapshot())
		return nil
	}

	if err := controller.Start(); err != nil {
		return err
	}
	l.Info("watching", "site", site, "category", category, "interval", interval.String())

	<-ctx.Done()
	printSnapshot(controller.Snapshot())
	return nil
}

func printAlert(_ context.Context, alert gateway.Alert) error {
	fmt.Printf("NEW %s at %s (%.0f%%) id=%s %s\n",
		alert.CrimeType, alert.Location, alert.Confidence*100, alert.ID, alert.Timestamp.Format(time.RFC3339))
	return nil
}

func printSnapshot(s alerts.Snapshot) {
	fmt.Printf("%d matching alerts, %d known ids\n", len(s.Items), s.KnownCount)
	for _, alert := range s.Items {
		fmt.Printf("  %s  %-20s %-30s %.0f%%\n", alert.ID, alert.CrimeType, alert.Location, alert.Confidence*100)
	}
	if s.LastError != "" {
		fmt.Printf("last error: %s\n", s.LastError)
	}
}
