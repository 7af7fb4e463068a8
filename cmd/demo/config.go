package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the demo configuration. Environment variables (optionally from
// a .env file) set the defaults and command-line flags override them.
type Config struct {
	LogLevel    string        `env:"LOGGING_LEVEL" envDefault:"info"`
	LogFormat   string        `env:"LOGGING_FORMAT" envDefault:"console"`
	Definition  string        `env:"DEFINITION"`
	TickRate    time.Duration `env:"TICK_RATE" envDefault:"16ms"`
	StepEvery   time.Duration `env:"STEP_EVERY" envDefault:"1s"`
	Steps       int           `env:"STEPS" envDefault:"12"`
	MetricsAddr string        `env:"METRICS_ADDR"`
	Watch       bool          `env:"WATCH" envDefault:"false"`
	DOT         bool          `env:"DOT" envDefault:"false"`
}

func loadConfig(args []string) (Config, error) {
	// A missing .env file is fine
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}

	fs := flag.NewFlagSet("demo", flag.ContinueOnError)
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format (console, json)")
	fs.StringVar(&cfg.Definition, "definition", cfg.Definition, "machine definition file (.yaml, .yml, .json)")
	fs.DurationVar(&cfg.TickRate, "tick", cfg.TickRate, "runtime tick rate")
	fs.DurationVar(&cfg.StepEvery, "step", cfg.StepEvery, "interval between transitions")
	fs.IntVar(&cfg.Steps, "steps", cfg.Steps, "transitions to run before exiting (0 runs until interrupted)")
	fs.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "address to serve Prometheus metrics on")
	fs.BoolVar(&cfg.Watch, "watch", cfg.Watch, "rebuild the machine when the definition file changes")
	fs.BoolVar(&cfg.DOT, "dot", cfg.DOT, "print Graphviz DOT of the final position")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	if cfg.StepEvery <= 0 {
		return cfg, fmt.Errorf("step interval must be positive, got %s", cfg.StepEvery)
	}
	if cfg.Watch && cfg.Definition == "" {
		return cfg, fmt.Errorf("-watch requires -definition")
	}
	return cfg, nil
}
