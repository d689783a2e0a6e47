package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"co2dash/internal/api"
	"co2dash/internal/config"
	"co2dash/internal/engine"
	"co2dash/internal/export"
	"co2dash/internal/logging"
)

var version = "0.1.0"

func main() {
	if err := godotenv.Load(); err == nil {
		slog.Info("loaded .env file")
	}

	root := &cobra.Command{
		Use:           "co2dash",
		Short:         "CO₂ emissions dashboard backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var dataPath string
	var port int
	root.PersistentFlags().StringVar(&dataPath, "data", "", "path to the wide-format emissions CSV (overrides DATA_PATH)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(dataPath, os.Stdout)
			if err != nil {
				return err
			}
			if port != 0 {
				cfg.Server.Port = port
			}
			return serve(cfg)
		},
	}
	serveCmd.Flags().IntVar(&port, "port", 0, "listen port (overrides SERVER_PORT)")

	var outPath, format string
	reshapeCmd := &cobra.Command{
		Use:   "reshape",
		Short: "Write the tidy table to a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			// stdout may carry the table itself
			cfg, err := loadConfig(dataPath, os.Stderr)
			if err != nil {
				return err
			}
			return reshape(cfg.Data.Path, outPath, format)
		},
	}
	reshapeCmd.Flags().StringVar(&outPath, "out", "-", "output file, - for stdout")
	reshapeCmd.Flags().StringVar(&format, "format", "csv", "output format: csv or arrow")

	root.AddCommand(serveCmd, reshapeCmd, &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("co2dash v%s\n", version)
		},
	})

	if err := root.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func loadConfig(dataPath string, logOut io.Writer) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if dataPath != "" {
		cfg.Data.Path = dataPath
	}
	logging.Setup(logOut, cfg.Logging.Level, cfg.Logging.Format)
	return cfg, nil
}

func serve(cfg *config.Config) error {
	ds := engine.NewDataset(cfg.Data.Path)

	var metrics *api.Metrics
	if cfg.Metrics.Enabled {
		metrics = api.NewMetrics(prometheus.NewRegistry())
	}

	// The API is live immediately and returns 503 until the data is loaded.
	h := api.NewHandler(ds, cfg.Data.TopN, cfg.Data.Footer, metrics)
	e := api.NewServer(h, metrics)

	loadFailed := make(chan error, 1)
	go func() {
		snap, err := ds.Snapshot(context.Background())
		if err != nil {
			loadFailed <- err
			return
		}
		metrics.ObserveLoad(snap)
		slog.Info("data ready", "rows", snap.Table.Len(), "elapsed", snap.Elapsed)
	}()

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", cfg.Server.Addr(), "data", cfg.Data.Path)
		serverErr <- e.Start(cfg.Server.Addr())
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case err := <-loadFailed:
		// A bad input file is fatal: nothing partial is served.
		slog.Error("failed to load data", "path", cfg.Data.Path, "error", err)
		runErr = err
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = err
		}
	case <-sigCh:
		slog.Info("shutting down...")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	return runErr
}

func reshape(in, out, format string) error {
	snap, err := engine.LoadFile(in)
	if err != nil {
		return err
	}

	w := os.Stdout
	if out != "-" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("create %s: %w", out, err)
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "csv":
		err = export.WriteCSV(w, snap.Table)
	case "arrow":
		err = export.WriteArrow(w, snap.Table)
	default:
		return fmt.Errorf("unknown format %q (want csv or arrow)", format)
	}
	if err != nil {
		return err
	}
	if out != "-" {
		slog.Info("tidy table written", "path", out, "rows", snap.Table.Len(), "format", format)
		return w.Close()
	}
	return nil
}
