package main

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"workshop-optimizer/internal/config"
	"workshop-optimizer/internal/gamedata"
	"workshop-optimizer/internal/gateway"
	"workshop-optimizer/internal/island"
	"workshop-optimizer/internal/search"
)

// app bundles what every entry point needs.
type app struct {
	cfg    config.Config
	data   *gamedata.Data
	gw     *gateway.Gateway
	logger *slog.Logger
}

func newApp(cfg config.Config, logger *slog.Logger) (*app, error) {
	data, err := gamedata.LoadOrDefault(cfg.DataPath)
	if err != nil {
		return nil, err
	}
	logger.Debug("[load] game data",
		"products", len(data.Products),
		"tiers", len(data.Tiers),
		"source", cmp.Or(cfg.DataPath, "embedded"))
	gw, err := newGateway(cfg.Optimizer, data, logger)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, data: data, gw: gw, logger: logger}, nil
}

// newGateway starts the configured worker, or returns the unavailable
// gateway when the optimizer is switched off.
func newGateway(opt config.OptimizerConfig, data *gamedata.Data, logger *slog.Logger) (*gateway.Gateway, error) {
	if !opt.Enabled {
		return gateway.Unavailable(gateway.WithLogger(logger)), nil
	}
	if opt.Command != "" {
		t, err := startWorkerProcess(opt.Command, logger)
		if err != nil {
			return nil, err
		}
		return gateway.New(t, data, gateway.WithLogger(logger)), nil
	}
	w := newWorker(opt, logger)
	w.Start()
	return gateway.New(w, data, gateway.WithLogger(logger)), nil
}

// startWorkerProcess runs the worker as a child process. Closing the
// transport closes the child's stdin; it drains its queue and exits.
func startWorkerProcess(command string, logger *slog.Logger) (*gateway.StreamTransport, error) {
	args := strings.Fields(command)
	if len(args) == 0 {
		return nil, fmt.Errorf("worker process: empty command")
	}
	cmd := exec.Command(args[0], args[1:]...)
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("worker process: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("worker process: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("worker process: start %q: %w", args[0], err)
	}
	logger.Debug("[worker] process started", "pid", cmd.Process.Pid, "command", command)

	t := gateway.NewStreamTransport(stdout, stdin, logger)
	go func() {
		// Wait must not run before stdout has been read to the end.
		<-t.Done()
		if err := cmd.Wait(); err != nil {
			logger.Error("[worker] process exited", "err", err)
		}
	}()
	return t, nil
}

func newWorker(opt config.OptimizerConfig, logger *slog.Logger) *gateway.Worker {
	engine := search.NewEngine(search.Config{Parallelism: opt.Parallelism}, logger)
	return gateway.NewWorker(engine, opt.QueueDepth, logger)
}

func (a *app) loadIsland() (*island.Island, error) {
	return island.Load(a.cfg.StatePath, a.data, a.logger)
}

// plan pushes the island's catalog and runs one search against it.
func (a *app) plan(ctx context.Context, is *island.Island, limit int) ([]gateway.Plan, error) {
	return a.gw.OptimizeWith(ctx, is.Snapshot(a.data), is.Request(a.data, limit))
}

func (a *app) Close() error {
	return a.gw.Close()
}

func newLogger(w io.Writer, format string, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
