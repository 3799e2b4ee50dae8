// cmd/reminderctl/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"health-reminders/internal/common/config"
	"health-reminders/internal/common/database"
	"health-reminders/internal/common/logger"
	"health-reminders/internal/models"
	"health-reminders/internal/reminders/alert"
	"health-reminders/internal/reminders/matcher"
	"health-reminders/internal/store/postgres"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "reminderctl",
		Short:        "Inspect the reminder engine without sending anything",
		SilenceUsage: true,
	}
	rootCmd.SetOut(out)
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: configs/config.yaml)")

	rootCmd.AddCommand(sweepCmd())
	rootCmd.AddCommand(slotsCmd())
	rootCmd.AddCommand(configCmd())
	return rootCmd
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

func loadMatcher(cfg *config.Config) (*matcher.Matcher, error) {
	mcfg, err := matcher.ConfigFrom(cfg.Reminders)
	if err != nil {
		return nil, err
	}
	return matcher.New(mcfg)
}

func sweepCmd() *cobra.Command {
	var (
		userID string
		at     string
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Evaluate one user's reminders and print the events",
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			if at != "" {
				parsed, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("--at must be RFC3339: %w", err)
				}
				now = parsed
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			m, err := loadMatcher(cfg)
			if err != nil {
				return err
			}

			pg, err := database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			defer pg.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			snap, err := postgres.New(pg.DB).FetchSnapshot(ctx, userID)
			if err != nil {
				return err
			}

			result := m.Evaluate(now, snap)

			log := logger.NewZapAdapter(logger.NewWithOptions(logger.Options{
				Level:  cfg.Logging.Level,
				Format: "console",
				Output: "stderr",
			}))
			raised := raiseAlerts(ctx, log, result.Events)
			fmt.Fprintf(cmd.ErrOrStderr(), "%d alert(s) raised for %s\n", len(raised), userID)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id to evaluate")
	cmd.Flags().StringVar(&at, "at", "", "evaluation instant, RFC3339 (default: now)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

// raiseAlerts logs each event locally and returns what was raised.
func raiseAlerts(ctx context.Context, log logger.Logger, events []models.ReminderEvent) []alert.Entry {
	var rec alert.Recorder
	alerter := alert.Multi{alert.NewLogAlerter(log), &rec}
	for _, ev := range events {
		alerter.Alert(ctx, ev.UserID, ev.Severity, ev.Message)
	}
	return rec.Entries()
}

func slotsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "slots",
		Short: "Print the effective meal slot schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			m, err := loadMatcher(cfg)
			if err != nil {
				return err
			}
			printSlots(cmd.OutOrStdout(), m)
			return nil
		},
	}
}

func printSlots(out io.Writer, m *matcher.Matcher) {
	mcfg := m.Config()
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SLOT\tLABEL\tTIME")
	for _, s := range m.Slots() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.Slot, s.Label, s.Clock)
	}
	w.Flush()
	fmt.Fprintf(out, "\nmeal window ±%s, medication window ±%s, expiry warning %d days, timezone %s\n",
		mcfg.MealWindow, mcfg.MedicationWindow, mcfg.ExpiryWarningDays, mcfg.Location)
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration helpers",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Load and validate the configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if _, err := loadMatcher(cfg); err != nil {
				return fmt.Errorf("invalid reminder configuration: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration OK (dispatch=%s, provider=%s, camunda=%t)\n",
				cfg.Dispatch.Mode, cfg.Notifications.Provider, cfg.Camunda.Enabled)
			return nil
		},
	})
	return cmd
}
