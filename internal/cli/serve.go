package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/uiforge/uiforge/internal/progress"
	"github.com/uiforge/uiforge/internal/tcc"
	"github.com/uiforge/uiforge/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the read-only observer web server",
	Long: `Serves job state as JSON plus live progress streams (SSE and
WebSocket). Jobs created by other uiforge processes show up too: the server
tails the shared SQLite event log and forwards new rows to stream
subscribers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		port, _ := cmd.Flags().GetInt("port")
		if port == 0 {
			port = a.cfg.Server.Port
		}

		go a.forwardEventLog(cmd.Context())

		srv := web.NewServer(a.store, a.db, a.hub, port, a.log)
		return srv.Start()
	},
}

// forwardEventLog polls the SQLite event log and replays rows into the
// in-process hub, so stream subscribers see events written by other uiforge
// processes. In-process events reach the hub twice this way; stream
// consumers already tolerate duplicates.
func (a *app) forwardEventLog(ctx context.Context) {
	lastID := 0
	if recent, err := a.db.Recent(1); err == nil && len(recent) > 0 {
		lastID = recent[0].ID
	}
	tick := time.NewTicker(time.Second)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
		rows, err := a.db.Since(lastID, "")
		if err != nil {
			a.log.WithError(err).Warn("tailing event log failed")
			continue
		}
		for _, r := range rows {
			ts, _ := time.Parse(time.RFC3339, r.Timestamp)
			_ = a.hub.Deliver(ctx, progress.Event{
				JobID:     r.JobID,
				Step:      tcc.Step(r.Step),
				Status:    tcc.StepStatus(r.Status),
				Message:   r.Message,
				Isolated:  r.Isolated,
				Timestamp: ts,
			})
			lastID = r.ID
		}
	}
}

func init() {
	serveCmd.Flags().Int("port", 0, "Listen port (overrides config)")
}
