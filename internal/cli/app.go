package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/uiforge/uiforge/internal/agents"
	"github.com/uiforge/uiforge/internal/agents/ollama"
	"github.com/uiforge/uiforge/internal/agents/openaiapi"
	"github.com/uiforge/uiforge/internal/config"
	"github.com/uiforge/uiforge/internal/controller"
	"github.com/uiforge/uiforge/internal/events"
	"github.com/uiforge/uiforge/internal/executor"
	"github.com/uiforge/uiforge/internal/logging"
	"github.com/uiforge/uiforge/internal/models"
	"github.com/uiforge/uiforge/internal/progress"
	"github.com/uiforge/uiforge/internal/tcc"
	"github.com/uiforge/uiforge/internal/tcc/pgstore"
)

// app bundles the wired runtime for one command invocation.
type app struct {
	cfg     *config.Config
	log     *logrus.Entry
	store   tcc.Store
	db      *events.DB
	hub     *progress.Hub
	emitter *progress.Emitter
	ctl     *controller.Controller

	cancel  context.CancelFunc
	closers []func()
}

// newApp loads configuration and wires the controller stack. Call close when
// done; it stops workers and releases the event database.
func newApp() (*app, error) {
	cfg, err := config.LoadDefault()
	if err != nil {
		return nil, err
	}
	if verrs := config.Validate(cfg); len(verrs) > 0 {
		return nil, fmt.Errorf("invalid config: %s", verrs[0])
	}

	logger := logging.Setup(cfg.Logging)
	log := logrus.NewEntry(logger)

	a := &app{cfg: cfg, log: log, hub: progress.NewHub()}

	a.store, err = openStore(cfg)
	if err != nil {
		return nil, err
	}

	dbPath, err := events.DefaultDBPath()
	if err != nil {
		return nil, err
	}
	a.db, err = events.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	a.closers = append(a.closers, func() { _ = a.db.Close() })
	if err := a.db.Migrate(); err != nil {
		a.close()
		return nil, err
	}

	gen, err := openGenerator(cfg, log)
	if err != nil {
		a.close()
		return nil, err
	}
	sel := models.NewSelector(cfg.Models, log)
	exec := executor.New(sel, gen, log)
	exec.SetMaxRetries(cfg.Generation.MaxRetries)
	if d, err := time.ParseDuration(cfg.Generation.Timeout); err == nil {
		exec.SetCallTimeout(d)
	}

	a.emitter = progress.NewEmitter(log, &progress.LogSink{Log: log}, a.db, a.hub)
	a.ctl = controller.New(controller.Options{
		Store:    a.store,
		Executor: exec,
		Emitter:  a.emitter,
		Log:      log,
	})

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.ctl.Start(ctx)
	return a, nil
}

func (a *app) close() {
	if a.ctl != nil {
		a.ctl.Stop()
	}
	if a.cancel != nil {
		a.cancel()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func openStore(cfg *config.Config) (tcc.Store, error) {
	switch cfg.Storage.Driver {
	case "file":
		if cfg.Storage.Dir != "" {
			return tcc.NewFileStore(cfg.Storage.Dir), nil
		}
		return tcc.DefaultFileStore()
	case "postgres":
		return pgstore.Open(context.Background(), cfg.Storage.DSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func openGenerator(cfg *config.Config, log *logrus.Entry) (agents.Generator, error) {
	switch cfg.Generation.Backend {
	case "ollama":
		return ollama.New(cfg.Models.Providers["ollama"].Host, log)
	case "openai":
		p := cfg.Models.Providers["openai"]
		return openaiapi.New(p.BaseURL, p.APIKeyEnv, log), nil
	default:
		return nil, fmt.Errorf("unknown generation backend %q", cfg.Generation.Backend)
	}
}

// waitForOutcome polls the store until the job leaves the running states.
// Progress lands on the logger as it happens; this just blocks the command.
func (a *app) waitForOutcome(jobID string) (*tcc.ToolConstructionContext, error) {
	for {
		t, err := a.store.Get(jobID)
		if err != nil {
			return nil, err
		}
		switch t.JobStatus {
		case tcc.JobCompleted, tcc.JobHalted, tcc.JobPaused:
			return t, nil
		}
		time.Sleep(250 * time.Millisecond)
	}
}
