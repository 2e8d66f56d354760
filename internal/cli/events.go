package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/uiforge/uiforge/internal/events"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect the progress event log",
}

func openEventsDB() (*events.DB, error) {
	path, err := events.DefaultDBPath()
	if err != nil {
		return nil, err
	}
	db, err := events.Open(path)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func printRows(cmd *cobra.Command, rows []events.Row) {
	w := cmd.OutOrStdout()
	for _, r := range rows {
		iso := ""
		if r.Isolated {
			iso = " [isolated]"
		}
		fmt.Fprintf(w, "%s  %-38s %-18s %-12s%s %s\n",
			r.Timestamp, r.JobID, r.Step, r.Status, iso, r.Message)
	}
}

var eventsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent events, oldest first for a job",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openEventsDB()
		if err != nil {
			return err
		}
		defer db.Close()

		jobID, _ := cmd.Flags().GetString("job")
		limit, _ := cmd.Flags().GetInt("limit")

		var rows []events.Row
		if jobID != "" {
			rows, err = db.ListForJob(jobID, limit)
		} else {
			rows, err = db.Recent(limit)
		}
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No events found.")
			return nil
		}
		printRows(cmd, rows)
		return nil
	},
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Follow new events as they are written",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openEventsDB()
		if err != nil {
			return err
		}
		defer db.Close()

		jobID, _ := cmd.Flags().GetString("job")

		lastID := 0
		if recent, err := db.Recent(1); err == nil && len(recent) > 0 {
			lastID = recent[0].ID
		}

		tick := time.NewTicker(time.Second)
		defer tick.Stop()
		for {
			select {
			case <-cmd.Context().Done():
				return nil
			case <-tick.C:
			}
			rows, err := db.Since(lastID, jobID)
			if err != nil {
				return err
			}
			if len(rows) > 0 {
				printRows(cmd, rows)
				lastID = rows[len(rows)-1].ID
			}
		}
	},
}

func init() {
	eventsListCmd.Flags().String("job", "", "Only events for this job")
	eventsListCmd.Flags().Int("limit", 50, "Maximum events to show")
	eventsTailCmd.Flags().String("job", "", "Only events for this job")

	eventsCmd.AddCommand(eventsListCmd)
	eventsCmd.AddCommand(eventsTailCmd)
}
