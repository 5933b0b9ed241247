// Package orchestrator is the composition root (§9): it owns the
// lifetime of the Metadata Store, Multiplexer Client, Log Reader, Provider
// Manager, Terminal Service, and Inbox Scheduler, and wires them together
// for main.go. Modeled as an explicit struct rather than package-level
// singletons, the way the teacher threads its handlers through
// api.SetupRouter rather than reaching for globals.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/yubing744/cli-agent-orchestrator/src/handler/logreader"
	"github.com/yubing744/cli-agent-orchestrator/src/handler/multiplexer"
	"github.com/yubing744/cli-agent-orchestrator/src/handler/provider"
	"github.com/yubing744/cli-agent-orchestrator/src/handler/scheduler"
	"github.com/yubing744/cli-agent-orchestrator/src/handler/store"
	"github.com/yubing744/cli-agent-orchestrator/src/handler/terminalsvc"
)

// Config holds the environment-driven settings main.go resolves before
// constructing an Orchestrator.
type Config struct {
	DBPath     string // CAO_DB_PATH, default ./data/cao.db
	LogDir     string // CAO_LOG_DIR, default ./data/logs
	MuxBackend string // CAO_MUX_BACKEND: "tmux" (default) or "pty"
	TmuxBinary string // CAO_TMUX_BIN, default "tmux"
	PTYShell   string // CAO_PTY_SHELL, default $SHELL or /bin/sh
}

// Orchestrator owns every long-lived collaborator the HTTP and CLI layers
// need.
type Orchestrator struct {
	Store     *store.Store
	Mux       multiplexer.Multiplexer
	PTYMux    *multiplexer.PTYBackend // non-nil only when Config.MuxBackend == "pty"
	Logs      *logreader.Reader
	Providers *provider.Manager
	Terminals *terminalsvc.Service
	Scheduler *scheduler.Scheduler
}

// New resolves cfg's defaults, opens the Metadata Store, constructs the
// Multiplexer Client the backend selects, and wires the rest of the
// collaborators.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.DBPath == "" {
		cfg.DBPath = "./data/cao.db"
	}
	if cfg.LogDir == "" {
		cfg.LogDir = "./data/logs"
	}
	if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	if dir := filepath.Dir(cfg.DBPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	var mux multiplexer.Multiplexer
	var ptyMux *multiplexer.PTYBackend
	switch cfg.MuxBackend {
	case "pty":
		shell := cfg.PTYShell
		if shell == "" {
			shell = os.Getenv("SHELL")
		}
		if shell == "" {
			shell = "/bin/sh"
		}
		ptyMux = multiplexer.NewPTYBackend(shell, cfg.LogDir)
		mux = ptyMux
	default:
		mux = multiplexer.NewTmuxClient(cfg.TmuxBinary, cfg.LogDir)
	}

	logs := logreader.New(cfg.LogDir, logreader.DefaultCapacity)
	providers := provider.NewManager(mux, st)
	terminals := terminalsvc.New(st, mux, providers, logs)
	sched := scheduler.New(cfg.LogDir, logs, st, providers, mux)

	return &Orchestrator{
		Store:     st,
		Mux:       mux,
		PTYMux:    ptyMux,
		Logs:      logs,
		Providers: providers,
		Terminals: terminals,
		Scheduler: sched,
	}, nil
}

// Start begins the Inbox Scheduler's filesystem watch.
func (o *Orchestrator) Start(ctx context.Context) error {
	if err := o.Scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	logrus.Info("inbox scheduler started")
	return nil
}

// Close releases the Scheduler's watcher, cleans up every live provider,
// and closes the Metadata Store's connection.
func (o *Orchestrator) Close() {
	o.Scheduler.Stop()
	for id := range o.Providers.ListProviders() {
		o.Providers.CleanupProvider(id)
	}
	if err := o.Store.Close(); err != nil {
		logrus.WithError(err).Warn("error closing metadata store")
	}
}

