package main

import (
	"flag"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/nithiyan25/reviewtrack/internal/app"
	"github.com/nithiyan25/reviewtrack/internal/handlers"
)

func main() {
	var configPath = flag.String("config", "config.toml", "Path to config file")
	flag.Parse()

	service, err := app.NewService(*configPath)
	if err != nil {
		logger.Error.Fatalf("Failed to load config: %v", err)
	}
	defer service.Close()

	reviewHandler := handlers.NewReviewHandler(service)

	http.HandleFunc("GET /api/v1/{scope}/teams", reviewHandler.HandleTeams)
	http.HandleFunc("GET /api/v1/{scope}/teams/{team}/phase", reviewHandler.HandleTeamPhase)
	http.HandleFunc("GET /api/v1/{scope}/teams/{team}/eligibility", reviewHandler.HandleEligibility)
	http.HandleFunc("POST /api/v1/{scope}/teams/{team}/submissions", reviewHandler.HandleSubmit)
	http.HandleFunc("GET /api/v1/{scope}/students/{student}/marks", reviewHandler.HandleStudentMarks)
	http.HandleFunc("GET /api/v1/{scope}/sessions", reviewHandler.HandleSessions)

	http.Handle("/metrics", promhttp.Handler())

	logger.Info.Printf("Starting reviewtrack server on %s", service.Config.Server.Port)
	logger.Debug.Println("Requiring headers:")
	for _, h := range service.Config.API.RequiredHeaders {
		logger.Debug.Printf("  %s: %s", h.Name, h.Value)
	}
	if err := http.ListenAndServe(service.Config.Server.Port, nil); err != nil {
		logger.Error.Fatalf("Reviewtrack server failed: %v", err)
	}
}
