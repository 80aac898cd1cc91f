package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"market-relay/src/broadcast"
	"market-relay/src/chart"
	"market-relay/src/config"
	"market-relay/src/interfaces"
	"market-relay/src/logger"
	"market-relay/src/models"
	"market-relay/src/server"
)

func main() {
	// 1. Parse command line flags
	configPath := flag.String("config", "config/default.yaml", "path to config file")
	envFile := flag.String("env", ".env", "optional dotenv file with provider credentials")
	flag.Parse()

	// 2. Load config
	conf, err := config.NewConfig(*configPath, *envFile)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// 3. Setup Logger
	appLogger := logger.NewLogger(conf, conf.Name)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Setup Components
	store, err := setupStorage(ctx, conf)
	if err != nil {
		os.Exit(1)
	}
	defer store.Close()

	registry, err := setupDataSources(conf, appLogger)
	if err != nil {
		appLogger.Critical("Failed to register data sources: %v", err)
		os.Exit(1)
	}

	charts, err := chart.NewChartService(registry, logger.NewLogger(conf, "ChartService"))
	if err != nil {
		appLogger.Critical("Failed to build chart service: %v", err)
		os.Exit(1)
	}
	calendar, err := registry.CalendarChain()
	if err != nil {
		appLogger.Critical("Failed to build calendar service: %v", err)
		os.Exit(1)
	}

	fetchers := make(map[models.Channel]interfaces.IQuoteFetcher, len(models.AllChannels))
	for _, ch := range models.AllChannels {
		fetchers[ch] = charts.QuoteFetcher(ch)
	}
	broadcaster := broadcast.NewBroadcaster(conf, fetchers, store, logger.NewLogger(conf, "Broadcaster"))

	// 5. Start Servers
	servers := startServers(conf, server.Services{
		Charts:      charts,
		Calendar:    calendar,
		Broadcaster: broadcaster,
		Store:       store,
		Providers:   describeProviders(registry),
	}, broadcaster, appLogger)

	// 6. Background loops
	broadcaster.Start(ctx)
	go registry.RunJanitor(ctx, time.Duration(conf.Cache.JanitorIntervalSeconds)*time.Second)

	appLogger.Info("%s running on %s:%d", conf.Name, conf.Host, conf.Port)
	<-ctx.Done()

	// 7. Shutdown
	appLogger.Info("Shutting down...")
	broadcaster.Stop()
	servers.stop(appLogger)
	appLogger.Info("Shutdown complete.")
}
