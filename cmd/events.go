package cmd

import (
	"fmt"
	"io"

	"github.com/josephlewis42/mpwsh/core/logger"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Explore the shell event log.",
}

type eventHandler interface {
	Update(le *logger.Entry)
}

// printEventReport feeds the configured event log to report and prints it
// as YAML.
func printEventReport(cmd *cobra.Command, report eventHandler) error {
	cmd.SilenceUsage = true

	configuration, err := loadConfig()
	if err != nil {
		return err
	}
	if configuration.EventLog == "" {
		return fmt.Errorf("no event_log is configured in %s", configuration.Dir())
	}

	fd, err := configuration.ReadEventLog()
	if err != nil {
		return err
	}
	defer fd.Close()

	return writeEventReport(cmd.OutOrStdout(), fd, report)
}

func writeEventReport(w io.Writer, r io.Reader, report eventHandler) error {
	if err := logger.ReadJSONLinesLog(r, report.Update); err != nil {
		return err
	}

	out, err := yaml.Marshal(report)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, string(out))
	return nil
}

var reportCommand = &cobra.Command{
	Use:   "report",
	Short: "Show a summary of events.",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		return printEventReport(cmd, logger.NewReport())
	},
}

var sessionsCommand = &cobra.Command{
	Use:   "sessions",
	Short: "Show the commands run in each session.",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		return printEventReport(cmd, &logger.SessionsReport{})
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(reportCommand)
	eventsCmd.AddCommand(sessionsCommand)
}
