package stateful

import "go.uber.org/zap"

type config struct {
	id           string
	allowReentry bool
	verbose      bool
	logger       *zap.Logger
}

// Option applies configuration to a Machine via functional options pattern.
type Option func(*config)

// WithReentry allows switching to the already-current state, which re-runs
// its exit and enter hooks and notifies subscribers again.
func WithReentry(allow bool) Option {
	return func(c *config) {
		c.allowReentry = allow
	}
}

// WithLogger sets the diagnostic sink. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithID names the machine in logs and metrics. Defaults to a random UUID.
func WithID(id string) Option {
	return func(c *config) {
		c.id = id
	}
}

// WithVerbose logs enter/exit traces at Info instead of Debug.
func WithVerbose(verbose bool) Option {
	return func(c *config) {
		c.verbose = verbose
	}
}
