package engine

import (
	"errors"
	"time"

	"pigchase/experiments/metrics"
	"pigchase/meta"
)

// ErrNoObservation is returned when the environment keeps resetting without
// producing an observation.
var ErrNoObservation = errors.New("environment returned no observation after reset")

// Observer is notified of loop progress.
type Observer interface {
	EpisodeCompleted()
	StepTaken(reward float64)
	ResetRetried()
}

type Option func(l *loop)

type loop struct {
	name          string
	episodes      int
	collector     metrics.Collector
	resetRetries  int
	resetInterval time.Duration
	observer      Observer
}

func WithName(name string) Option {
	return func(l *loop) {
		if name != "" {
			l.name = name
		}
	}
}

func WithEpisodes(episodes int) Option {
	return func(l *loop) {
		if episodes > 0 {
			l.episodes = episodes
		}
	}
}

// WithCollector records the reward of every step. A nil collector records nothing.
func WithCollector(c metrics.Collector) Option {
	return func(l *loop) {
		if c != nil {
			l.collector = c
		}
	}
}

func WithResetRetries(retries int) Option {
	return func(l *loop) {
		if retries >= 0 {
			l.resetRetries = retries
		}
	}
}

func WithResetInterval(interval time.Duration) Option {
	return func(l *loop) {
		if interval >= 0 {
			l.resetInterval = interval
		}
	}
}

func WithObserver(o Observer) Option {
	return func(l *loop) {
		if o != nil {
			l.observer = o
		}
	}
}

func newLoop(options ...Option) *loop {
	l := &loop{ // Default values
		name:          "agent",
		episodes:      meta.Episodes,
		collector:     metrics.NewDummyCollector(),
		resetRetries:  meta.RESET_RETRIES,
		resetInterval: meta.RESET_INTERVAL,
		observer:      noObserver{},
	}
	for _, option := range options {
		option(l)
	}
	return l
}

type noObserver struct{}

func (noObserver) EpisodeCompleted()        {}
func (noObserver) StepTaken(reward float64) {}
func (noObserver) ResetRetried()            {}
