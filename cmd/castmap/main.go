package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/spf13/pflag"

	"github.com/inkforge/castmap/pkg/analysis"
	"github.com/inkforge/castmap/pkg/config"
	"github.com/inkforge/castmap/pkg/logging"
	"github.com/inkforge/castmap/pkg/output"
	"github.com/inkforge/castmap/pkg/project"
	"github.com/inkforge/castmap/pkg/research"
	"github.com/inkforge/castmap/pkg/storage"
	"github.com/inkforge/castmap/pkg/web"
)

func main() {
	flags := pflag.NewFlagSet("castmap", pflag.ExitOnError)
	flags.String("project", ".", "Path to the project root (contains project.json)")
	flags.Bool("web", false, "Start web server instead of printing to console")
	flags.Int("port", 8080, "Port for web server (only used with --web)")
	flags.Bool("watch", false, "Watch the research vault for changes (web mode)")
	flags.Bool("open", true, "Open the browser after starting the web server")
	flags.Int("proximity-window", analysis.DefaultProximityWindow, "Word-distance window for proximity bonuses")
	flags.Float64("prune-threshold", analysis.DefaultPruneThreshold, "Minimum edge weight to keep")
	flags.String("verbosity", "", "Log level: debug, info, warn, error")
	flags.CountP("verbose", "v", "Increase log verbosity")
	if err := flags.Parse(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	applyLogLevel(cfg)

	repo := storage.LocalRepository{}
	manager := project.NewManager(repo)
	coordinator := analysis.NewCoordinator(repo)

	opts := analysis.Options{
		ProximityWindow: cfg.ProximityWindow,
		PruneThreshold:  cfg.PruneThreshold,
	}

	if cfg.WebMode {
		runWebServer(cfg, manager, coordinator, repo, opts)
		return
	}

	// CLI mode: analyze once and print the cast report
	meta, err := manager.Load(cfg.Project)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load project at %s: %v\n", cfg.Project, err)
		os.Exit(1)
	}

	payload, err := coordinator.Analyze(context.Background(), meta.ID, cfg.Project, meta, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: analysis failed: %v\n", err)
		os.Exit(1)
	}

	output.PrintCastReport(meta.Title, payload)
}

func runWebServer(cfg *config.Config, manager *project.Manager, coordinator *analysis.Coordinator, repo storage.FileRepository, opts analysis.Options) {
	server := web.NewServer(manager, coordinator, repo, opts)

	// Load the project up front when one is present; the API can load
	// others later
	meta, err := manager.Load(cfg.Project)
	if err != nil {
		logging.Warn("no project loaded at startup", "path", cfg.Project, "error", err)
	} else {
		logging.Info("project loaded", "id", meta.ID, "title", meta.Title)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Watch && meta != nil {
		watcher, err := research.NewVaultWatcher(cfg.Project, server.Publisher())
		if err != nil {
			logging.Warn("failed to create research watcher", "error", err)
		} else if err := watcher.Start(ctx); err != nil {
			logging.Warn("failed to start research watcher", "error", err)
		}
	}

	url := fmt.Sprintf("http://localhost:%d", cfg.Port)
	if cfg.OpenBrowser {
		go func() {
			// Give the listener a moment to come up
			time.Sleep(500 * time.Millisecond)
			openBrowser(url)
		}()
	}

	if err := server.Start(cfg.Port); err != nil {
		logging.Fatal("failed to start server", "error", err)
	}
}

func applyLogLevel(cfg *config.Config) {
	switch cfg.Verbosity {
	case "trace":
		logging.SetLevel(slog.LevelDebug - 4)
		return
	case "debug":
		logging.SetLevel(slog.LevelDebug)
		return
	case "info":
		logging.SetLevel(slog.LevelInfo)
		return
	case "warn":
		logging.SetLevel(slog.LevelWarn)
		return
	case "error":
		logging.SetLevel(slog.LevelError)
		return
	}
	if cfg.VerboseCnt > 0 {
		logging.SetLevel(slog.LevelDebug)
	}
}

func openBrowser(url string) {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
		args = []string{url}
	case "linux":
		cmd = "xdg-open"
		args = []string{url}
	case "windows":
		cmd = "cmd"
		args = []string{"/c", "start", url}
	default:
		logging.Warn("cannot open browser on platform", "platform", runtime.GOOS)
		return
	}

	if err := exec.Command(cmd, args...).Start(); err != nil {
		logging.Warn("failed to open browser", "error", err)
	}
}
