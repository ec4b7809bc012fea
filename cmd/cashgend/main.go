// Package main runs the cashgen automation daemon: it serves the scraping
// and stock-workflow API over HTTP and websocket, driving browser workers
// through the session orchestrator.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/allendavis-developer/cashgen-extension/pkg/browser"
	"github.com/allendavis-developer/cashgen-extension/pkg/checkpoint"
	appconfig "github.com/allendavis-developer/cashgen-extension/pkg/config"
	"github.com/allendavis-developer/cashgen-extension/pkg/logging"
	"github.com/allendavis-developer/cashgen-extension/pkg/orchestrator"
	"github.com/allendavis-developer/cashgen-extension/pkg/scrape"
	"github.com/allendavis-developer/cashgen-extension/pkg/server"
)

const version = "0.1.0"

// Config holds the command line configuration.
type Config struct {
	ConfigPath    string
	CatalogPath   string
	ListenAddr    string
	Headed        bool
	CheckpointDir string
	ShowVersion   bool
}

func main() {
	config := parseFlags()

	if config.ShowVersion {
		fmt.Printf("cashgend v%s\n", version)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nShutting down gracefully...")
		cancel()
	}()

	if err := run(ctx, config); err != nil {
		cancel()
		log.Fatalf("Application error: %v", err)
	}
}

func parseFlags() *Config {
	config := &Config{}

	flag.StringVar(&config.ConfigPath, "config", "", "Path to the config file (default ~/.cashgen/config.json)")
	flag.StringVar(&config.CatalogPath, "catalog", "", "Path to a YAML target catalog overriding the built-in sites")
	flag.StringVar(&config.ListenAddr, "listen", "", "Listen address (overrides config)")
	flag.StringVar(&config.CheckpointDir, "checkpoints", "", "Checkpoint directory (default ~/.cashgen/checkpoints)")
	flag.BoolVar(&config.Headed, "headed", false, "Run browser windows visibly")
	flag.BoolVar(&config.ShowVersion, "version", false, "Show version and exit")
	flag.Parse()

	return config
}

func run(ctx context.Context, config *Config) error {
	if err := appconfig.Initialize(config.ConfigPath); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	logger, logErr := logging.NewLogger("main")
	if logErr != nil {
		log.Printf("file logging unavailable: %v", logErr)
	}
	defer logger.Close()

	catalog, stock, err := scrape.LoadCatalog(config.CatalogPath)
	if err != nil {
		return fmt.Errorf("failed to load target catalog: %w", err)
	}

	checkpoints, err := checkpoint.NewStore(config.CheckpointDir)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint store: %w", err)
	}

	browserCfg := appconfig.GetBrowser()
	width, height := browserCfg.Viewport()
	manager := browser.NewManager(browser.Options{
		Headless:       browserCfg.Headless() && !config.Headed,
		ViewportWidth:  width,
		ViewportHeight: height,
		NavTimeout:     browserCfg.NavTimeout(),
	})
	defer func() {
		if err := manager.Shutdown(); err != nil {
			logger.Warnf("browser shutdown failed: %v", err)
		}
	}()

	orchCfg := appconfig.GetOrchestrator()
	delayMin, delayMax := orchCfg.ItemDelayBounds()
	orch := orchestrator.New(
		orchestrator.NewRegistry(),
		manager,
		catalog,
		stock,
		checkpoints,
		orchestrator.Options{
			FanOutTimeout:     orchCfg.FanOutTimeout(),
			SequentialTimeout: orchCfg.SequentialTimeout(),
			PollInterval:      orchCfg.PollInterval(),
			ItemDelayMin:      delayMin,
			ItemDelayMax:      delayMax,
		},
	)

	addr := config.ListenAddr
	if addr == "" {
		addr = appconfig.GetServer().ListenAddr()
	}
	srv := server.New(orch, addr)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.ListenAndServe()
	}()
	logger.Infof("cashgend v%s started on %s", version, addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}
