package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/nithiyan25/reviewtrack/internal/app"
	"github.com/nithiyan25/reviewtrack/internal/export"
)

func main() {
	var configPath = flag.String("config", "config.toml", "Path to config file")
	flag.Parse()

	service, err := app.NewService(*configPath)
	if err != nil {
		logger.Error.Fatalf("Failed to load config: %v", err)
	}
	defer service.Close()

	exporter, err := export.NewMarksExporter(service.Config, service.Store)
	if err != nil {
		logger.Error.Fatalf("Failed to initialize Google Sheets exporter: %v", err)
	}
	defer exporter.Stop()

	logger.Info.Println("Marks exporter running")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info.Println("Marks exporter stopped")
}
