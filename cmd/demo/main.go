package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/comalice/stateful"
	"github.com/comalice/stateful/internal/definition"
	"github.com/comalice/stateful/internal/logger"
	"github.com/comalice/stateful/internal/metrics"
	"github.com/comalice/stateful/internal/production"
	"github.com/comalice/stateful/realtime"
)

// trafficLight is used when no definition file is given.
var trafficLight = definition.Definition{
	ID:    "traffic-light",
	Start: "red",
	States: []definition.StateDef{
		{Name: "red"},
		{Name: "green"},
		{Name: "yellow"},
	},
}

type machine = stateful.Machine[*stateful.Node]

// session is one built machine with everything attached to it. A reload
// replaces the whole session.
type session struct {
	rt        *realtime.Runtime[*stateful.Node]
	publisher *production.ChannelPublisher[*stateful.Node]
	changes   chan production.Change
	detach    func()
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "demo:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	log := logger.New(cfg.LogLevel, logger.ParseFormat(cfg.LogFormat)).Named(logger.ComponentDemo)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	collector, err := metrics.NewCollector(reg)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr, reg, log.Named(logger.ComponentMetrics))
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	defLog := log.Named(logger.ComponentDefinition)
	def, err := loadDefinition(cfg.Definition, defLog)
	if err != nil {
		return err
	}
	s, err := open(ctx, def, cfg, collector, log)
	if err != nil {
		return err
	}
	defer func() { s.close(log) }()

	var reloads <-chan string
	if cfg.Watch {
		w, err := definition.NewWatcher(log.Named(logger.ComponentWatcher), cfg.Definition)
		if err != nil {
			return fmt.Errorf("watch %s: %w", cfg.Definition, err)
		}
		defer w.Close()
		reloads = w.Events
		log.Info("watching definition", zap.String("path", cfg.Definition))
	}

	step := time.NewTicker(cfg.StepEvery)
	defer step.Stop()

	for steps := 0; cfg.Steps == 0 || steps < cfg.Steps; {
		select {
		case <-ctx.Done():
			log.Info("shutting down")
			return nil
		case path := <-reloads:
			next, err := loadDefinition(path, defLog)
			if err != nil {
				defLog.Warn("ignoring invalid definition", zap.String("path", path), zap.Error(err))
				continue
			}
			reopened, err := open(ctx, next, cfg, collector, log)
			if err != nil {
				log.Warn("keeping current machine", zap.String("path", path), zap.Error(err))
				continue
			}
			s.close(log)
			s = reopened
			log.Info("machine reloaded", zap.String("machine", next.ID), zap.Strings("states", next.Names()))
		case c, ok := <-s.changes:
			if ok {
				log.Info("state changed",
					zap.String("machine", c.MachineID),
					zap.String("state", c.Name),
					zap.Int("index", c.Index))
			}
		case <-step.C:
			if err := advance(s.rt); err != nil {
				log.Warn("step rejected", zap.Error(err))
			}
			steps++
		}
	}

	// Stop the tick loop, then apply whatever is still queued.
	if err := s.rt.Stop(); err != nil {
		log.Warn("stop runtime", zap.Error(err))
	}
	s.rt.Tick()
	drain(s.changes, log)
	log.Info("demo complete", zap.Int("steps", cfg.Steps), zap.Uint64("ticks", s.rt.TickNumber()))

	if cfg.DOT {
		var view production.View
		s.rt.Do(func(m *machine) { view = production.ViewOf(m) })
		fmt.Print((&production.Visualizer{}).ExportDOT(view))
	}
	return nil
}

func loadDefinition(path string, log *zap.Logger) (*definition.Definition, error) {
	if path == "" {
		d := trafficLight
		log.Debug("using built-in definition", zap.String("machine", d.ID))
		return &d, nil
	}
	d, err := definition.Load(path)
	if err != nil {
		return nil, err
	}
	log.Info("definition loaded",
		zap.String("path", path),
		zap.String("machine", d.ID),
		zap.Strings("states", d.Names()))
	return d, nil
}

// open builds a machine from def and starts driving it.
func open(ctx context.Context, def *definition.Definition, cfg Config, c *metrics.Collector, log *zap.Logger) (*session, error) {
	m, start, err := def.Build(stateful.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", def.ID, err)
	}
	if start == nil {
		start, _ = m.Lookup(def.States[0].Name)
	}

	s := &session{changes: make(chan production.Change, 64)}
	s.detach = metrics.Attach(c, m)
	s.publisher = production.NewChannelPublisher(m, s.changes)
	s.rt = realtime.NewRuntime(m, realtime.Config{TickRate: cfg.TickRate, Logger: log})

	if err := s.rt.Start(ctx, start); err != nil {
		s.detach()
		_ = s.publisher.Close()
		return nil, fmt.Errorf("start %s: %w", def.ID, err)
	}
	return s, nil
}

func (s *session) close(log *zap.Logger) {
	if err := s.rt.Stop(); err != nil {
		log.Warn("stop runtime", zap.Error(err))
	}
	s.rt.Do(func(*machine) {
		s.detach()
		_ = s.publisher.Close()
	})
}

// advance queues one step around the cycle. Past the last state the
// machine exits and stays dark for a step; the step after that enters the
// first state again. Where to go is decided when the command applies, so
// several steps queued within one tick still follow the cycle.
func advance(rt *realtime.Runtime[*stateful.Node]) error {
	return rt.Next(true)
}

func drain(changes <-chan production.Change, log *zap.Logger) {
	for {
		select {
		case c, ok := <-changes:
			if !ok {
				return
			}
			log.Info("state changed", zap.String("machine", c.MachineID), zap.String("state", c.Name), zap.Int("index", c.Index))
		default:
			return
		}
	}
}

func serveMetrics(addr string, reg *prometheus.Registry, log *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()
	log.Info("serving metrics", zap.String("addr", addr))
	return srv
}
