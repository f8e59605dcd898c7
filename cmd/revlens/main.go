package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	appName = "revlens"
	version = "v0.3.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Explain why today's revenue differs from a baseline day",
		Version: version,
		Long: `revlens ranks the factors behind day-over-day revenue, cost and profit
changes in e-commerce transaction tables. Candidate dimensions (channel,
campaign, influencer, product mix) and cost components (refunds, coupons)
are scored by Information Value against a today-vs-baseline label; high-IV
factors are expanded into summary and detail tables.`,
	}

	rootCmd.PersistentFlags().String("config", "", "Path to YAML config (defaults apply when empty)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (trace|debug|info|warn|error)")

	rootCmd.AddCommand(newReportCmd())
	rootCmd.AddCommand(newServeCmd())

	cobra.OnInitialize(func() {
		levelRaw, _ := rootCmd.PersistentFlags().GetString("log-level")
		level, err := zerolog.ParseLevel(levelRaw)
		if err != nil {
			level = zerolog.InfoLevel
		}
		zerolog.SetGlobalLevel(level)
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
