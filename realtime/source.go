package realtime

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/comalice/stateful"
)

// Source supplies commands from outside the runtime.
type Source[S interface {
	stateful.State
	comparable
}] interface {
	Commands() <-chan Command[S]
}

// ChannelSource is a Source backed by a Go channel.
type ChannelSource[S interface {
	stateful.State
	comparable
}] struct {
	ch chan Command[S]
}

// NewChannelSource wraps ch. The channel should be buffered if producers
// must not block.
func NewChannelSource[S interface {
	stateful.State
	comparable
}](ch chan Command[S]) *ChannelSource[S] {
	return &ChannelSource[S]{ch: ch}
}

func (s *ChannelSource[S]) Commands() <-chan Command[S] {
	return s.ch
}

// TimerSource emits the same command every period. Emissions are dropped
// while the consumer is behind.
type TimerSource[S interface {
	stateful.State
	comparable
}] struct {
	ch     chan Command[S]
	cmd    Command[S]
	ticker *time.Ticker
	stop   chan struct{}
}

// NewTimerSource starts emitting cmd every d.
func NewTimerSource[S interface {
	stateful.State
	comparable
}](cmd Command[S], d time.Duration) *TimerSource[S] {
	t := &TimerSource[S]{
		ch:     make(chan Command[S], 10),
		cmd:    cmd,
		ticker: time.NewTicker(d),
		stop:   make(chan struct{}),
	}
	go t.run()
	return t
}

func (t *TimerSource[S]) run() {
	for {
		select {
		case <-t.ticker.C:
			select {
			case t.ch <- t.cmd:
			default:
				// drop if full
			}
		case <-t.stop:
			t.ticker.Stop()
			close(t.ch)
			return
		}
	}
}

func (t *TimerSource[S]) Commands() <-chan Command[S] {
	return t.ch
}

// Stop stops the ticker and closes the channel.
func (t *TimerSource[S]) Stop() {
	close(t.stop)
}

// Feed submits every command from src until ctx is done or the source
// closes. Commands refused with ErrQueueFull are dropped and logged; the
// feed keeps going.
func (rt *Runtime[S]) Feed(ctx context.Context, src Source[S]) error {
	cmds := src.Commands()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd, ok := <-cmds:
			if !ok {
				return nil
			}
			if err := rt.Submit(cmd); err != nil {
				if !errors.Is(err, ErrQueueFull) {
					return err
				}
				rt.logger.Warn("dropped command", zap.Stringer("op", cmd.Op), zap.Error(err))
			}
		}
	}
}
