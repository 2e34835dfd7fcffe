// Package main provides the cueloop daemon entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"cueloop/internal/api/httpapi"
	"cueloop/internal/app/filter"
	"cueloop/internal/app/jockey"
	"cueloop/internal/app/resolve"
	"cueloop/internal/infra/config"
	"cueloop/internal/infra/fetch"
	"cueloop/internal/infra/logger"
	"cueloop/internal/infra/sink"
)

var (
	app        = kingpin.New("cueloop-server", "cueloop playback queue daemon")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()

	// list-filters command
	listFiltersCmd = app.Command("list-filters", "List available admission filters and exit")
)

func init() {
	// start command (default) - no need to store the command
	app.Command("start", "Start the daemon (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if command == listFiltersCmd.FullCommand() {
		printFilters()
		return
	}

	// Initialize logger
	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		os.Exit(1)
	}
}

// run executes the main daemon logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	outSink, err := sink.New(cfg.Sink)
	if err != nil {
		return fmt.Errorf("failed to create sink: %w", err)
	}

	fetcher, err := fetch.New(fetch.Config{
		CacheDir:   cfg.Fetch.CacheDir,
		Timeout:    cfg.Fetch.Timeout(),
		MaxBytes:   cfg.Fetch.MaxBytes,
		RatePerMin: cfg.Fetch.RatePerMin,
	})
	if err != nil {
		return fmt.Errorf("failed to create fetcher: %w", err)
	}
	zlog.Info().Msgf("Using cache dir %s", fetcher.CacheDir())

	resolver := resolve.NewChain(
		resolve.NewFileResolver(),
		resolve.NewDownloadResolver(fetcher),
	)

	svc, err := jockey.NewService(cfg, outSink, resolver)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	defer svc.Close()

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: httpapi.NewServer(svc).Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		zlog.Info().Msgf("Control API listening on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	runHooks(cfg.Server.Hooks.OnStarted)
	defer runHooks(cfg.Server.Hooks.OnStopped)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		zlog.Info().Msgf("Received signal %v, shutting down", sig)
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	}

	// Stop playback first so the session is released before the API goes.
	svc.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		zlog.Warn().Msgf("HTTP shutdown did not finish cleanly: %v", err)
	}

	return nil
}

// runHooks runs lifecycle hook commands through the shell, sequentially.
func runHooks(commands []string) {
	for _, command := range commands {
		zlog.Info().Msgf("Running hook: %s", command)
		cmd := exec.Command("sh", "-c", command)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Run(); err != nil {
			zlog.Warn().Msgf("Hook failed: command=%q error=%v", command, err)
		}
	}
}

// printFilters lists registered admission filters.
func printFilters() {
	for name, factory := range filter.GetRegistered() {
		f := factory()
		fmt.Printf("%s\n  %s\n  codes: %v\n", name, f.Description(), f.ReturnCodes())
	}
}
