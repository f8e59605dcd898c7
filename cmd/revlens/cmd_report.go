package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/revlens/revlens/internal/app"
	"github.com/revlens/revlens/internal/config"
	"github.com/revlens/revlens/internal/domain"
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Build one attribution report and print it as JSON",
		Long: `Loads the configured tables, compares the two dates and writes the
structured payload (key metrics, factor ranking, high-IV drill-downs)
to stdout or a file.`,
		RunE: runReport,
	}

	cmd.Flags().String("today", "", "Date under analysis, YYYY-MM-DD (required)")
	cmd.Flags().String("baseline", "", "Comparison date, YYYY-MM-DD (defaults to the day before today)")
	cmd.Flags().String("data", "", "CSV data directory (overrides source.dir from config)")
	cmd.Flags().String("out", "-", "Output file, - for stdout")
	_ = cmd.MarkFlagRequired("today")

	return cmd
}

func runReport(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if dataDir, _ := cmd.Flags().GetString("data"); dataDir != "" {
		cfg.Source.Driver = "csv"
		cfg.Source.Dir = dataDir
	}

	todayRaw, _ := cmd.Flags().GetString("today")
	today, err := domain.ParseDay(todayRaw)
	if err != nil {
		return err
	}
	baseline := today.AddDate(0, 0, -1)
	if baselineRaw, _ := cmd.Flags().GetString("baseline"); baselineRaw != "" {
		if baseline, err = domain.ParseDay(baselineRaw); err != nil {
			return err
		}
	}

	src, closeSrc, err := openSource(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeSrc()

	svc := app.NewService(src, cfg.Report, nil)

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()

	payload, err := svc.Report(ctx, today, baseline)
	if err != nil {
		return fmt.Errorf("build report: %w", err)
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	data = append(data, '\n')

	outPath, _ := cmd.Flags().GetString("out")
	if outPath == "" || outPath == "-" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}
	log.Info().Str("path", outPath).Msg("report written")
	return nil
}
