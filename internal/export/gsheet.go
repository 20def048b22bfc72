package export

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/nithiyan25/reviewtrack/internal/app"
	"github.com/nithiyan25/reviewtrack/internal/review"
	"github.com/nithiyan25/reviewtrack/internal/store"
)

// MarksExporter pushes published cumulative marks into Google Sheets on
// a cron schedule. Scopes with unpublished results are skipped entirely.
type MarksExporter struct {
	config    *app.Config
	store     store.ReviewStore
	scheduler *gocron.Scheduler
	sheets    map[string]*sheets.Service
}

func NewMarksExporter(config *app.Config, st store.ReviewStore) (*MarksExporter, error) {
	ctx := context.Background()

	e := &MarksExporter{
		config:    config,
		store:     st,
		scheduler: gocron.NewScheduler(time.UTC),
		sheets:    make(map[string]*sheets.Service),
	}

	for scope, configs := range config.GSheet {
		for i := range configs {
			cfg := configs[i]

			svc, err := sheets.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsPath))
			if err != nil {
				return nil, fmt.Errorf("failed to create sheets service: %w", err)
			}
			e.sheets[cfg.SheetID] = svc

			scope := scope
			if _, err := e.scheduler.Cron(cfg.Schedule).Do(func() {
				if err := e.Export(scope, &cfg); err != nil {
					logger.Error.Printf("Export for %s failed: %v", scope, err)
				}
			}); err != nil {
				return nil, fmt.Errorf("failed to schedule export: %w", err)
			}
		}
	}

	e.scheduler.StartAsync()
	return e, nil
}

func (e *MarksExporter) Export(scope string, cfg *app.GSheetConfig) error {
	sc, err := e.store.GetScope(scope)
	if err != nil {
		return fmt.Errorf("failed to load scope: %w", err)
	}
	if sc == nil {
		return fmt.Errorf("scope %s not configured", scope)
	}
	if !sc.ResultsPublished {
		logger.Debug.Printf("Results for %s not published yet, skipping export", scope)
		return nil
	}

	svc := e.sheets[cfg.SheetID]

	readRange := fmt.Sprintf("%s!%s", cfg.SheetName, cfg.StudentsRange)
	resp, err := svc.Spreadsheets.Values.Get(cfg.SheetID, readRange).Do()
	if err != nil {
		return fmt.Errorf("failed to read students: %w", err)
	}

	var values [][]interface{}
	for _, row := range resp.Values {
		if len(row) == 0 {
			values = append(values, []interface{}{""})
			continue
		}
		student, ok := row[0].(string)
		if !ok || student == "" {
			values = append(values, []interface{}{""})
			continue
		}

		reviews, err := e.store.StudentReviews(scope, student)
		if err != nil {
			logger.Error.Printf("Failed to load reviews for %s/%s: %v", scope, student, err)
			values = append(values, []interface{}{""})
			continue
		}

		summary := review.AggregateMarks(reviews, student, sc.ResultsPublished)
		if summary.CumulativePct == nil {
			values = append(values, []interface{}{"no score yet"})
			continue
		}
		values = append(values, []interface{}{fmt.Sprintf("%.1f%%", *summary.CumulativePct)})
	}

	writeRange := fmt.Sprintf("%s!%s", cfg.SheetName, cfg.MarksColumn)
	_, err = svc.Spreadsheets.Values.Update(cfg.SheetID, writeRange, &sheets.ValueRange{
		Values: values,
	}).ValueInputOption("RAW").Do()
	if err != nil {
		return fmt.Errorf("failed to write marks: %w", err)
	}

	logger.Info.Printf("Exported %d mark rows for %s", len(values), scope)
	return nil
}

func (e *MarksExporter) Stop() {
	e.scheduler.Stop()
}
