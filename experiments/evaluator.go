package experiments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"pigchase/agent"
	"pigchase/engine"
	"pigchase/environment"
	"pigchase/experiments/metrics"
	"pigchase/meta"
)

var (
	ErrNotEnoughClients = errors.New("not enough clients provided")
	ErrOpponentNotReady = errors.New("opponent did not become ready in time")
)

type Option func(e *Evaluator)

func WithEnvironmentFactory(f environment.Factory) Option {
	return func(e *Evaluator) {
		if f != nil {
			e.newEnv = f
		}
	}
}

func WithOpponentFactory(f OpponentFactory) Option {
	return func(e *Evaluator) {
		if f != nil {
			e.newOpponent = f
		}
	}
}

func WithReadyTimeout(d time.Duration) Option {
	return func(e *Evaluator) {
		if d > 0 {
			e.readyTimeout = d
		}
	}
}

func WithStopTimeout(d time.Duration) Option {
	return func(e *Evaluator) {
		if d > 0 {
			e.stopTimeout = d
		}
	}
}

// WithLoopOptions applies to both the trained and the opponent loops.
func WithLoopOptions(options ...engine.Option) Option {
	return func(e *Evaluator) {
		e.loopOptions = append(e.loopOptions, options...)
	}
}

func WithInstruments(in *metrics.Instruments) Option {
	return func(e *Evaluator) {
		e.instruments = in
	}
}

type phase struct {
	label string
	agent agent.Agent
}

// Evaluator plays the 100k and 500k checkpoints against the challenge agent,
// one phase after the other, on a single shared environment.
type Evaluator struct {
	clients      []environment.Endpoint
	phases       []phase
	builder      environment.StateBuilder
	newEnv       environment.Factory
	newOpponent  OpponentFactory
	readyTimeout time.Duration
	stopTimeout  time.Duration
	loopOptions  []engine.Option
	instruments  *metrics.Instruments
	acc          *metrics.Accumulator
	writer       *metrics.Writer
}

func NewEvaluator(clients []environment.Endpoint, agent100k, agent500k agent.Agent, builder environment.StateBuilder, options ...Option) (*Evaluator, error) {
	if len(clients) < 2 {
		return nil, fmt.Errorf("%w: need at least 2, got %d", ErrNotEnoughClients, len(clients))
	}
	if agent100k == nil || agent500k == nil {
		return nil, fmt.Errorf("both trained agents are required")
	}

	e := &Evaluator{ // Default values
		clients: append([]environment.Endpoint(nil), clients...),
		phases: []phase{
			{label: meta.Phase100k, agent: agent100k},
			{label: meta.Phase500k, agent: agent500k},
		},
		builder:      builder,
		newEnv:       environment.Remote,
		newOpponent:  DefaultOpponent,
		readyTimeout: meta.READY_TIMEOUT,
		stopTimeout:  meta.STOP_TIMEOUT,
		acc:          metrics.NewAccumulator(meta.Phases...),
		writer:       metrics.NewWriter(),
	}
	for _, option := range options {
		option(e)
	}
	return e, nil
}

// Accumulator returns the reward samples collected so far.
func (e *Evaluator) Accumulator() *metrics.Accumulator {
	return e.acc
}

// Run evaluates every phase in order. It stops at the first phase that fails.
func (e *Evaluator) Run(ctx context.Context) error {
	logger := log.With().Str("run", uuid.NewString()).Logger()

	env, err := e.newEnv(e.clients, e.builder, meta.RoleTrained, true)
	if err != nil {
		return fmt.Errorf("failed to create environment: %w", err)
	}

	for i, p := range e.phases {
		logger.Info().Msgf("starting evaluation of agent @%s (phase %d of %d)", p.label, i+1, len(e.phases))
		if err := e.runPhase(ctx, logger.With().Str("phase", p.label).Logger(), env, p); err != nil {
			return fmt.Errorf("phase %s: %w", p.label, err)
		}
		logger.Info().Msgf("completed evaluation of agent @%s with %d samples", p.label, len(e.acc.Samples(p.label)))
	}
	return nil
}

func (e *Evaluator) runPhase(ctx context.Context, logger zerolog.Logger, env environment.Environment, p phase) error {
	opponentCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ready := make(chan struct{})
	exited := make(chan error, 1)
	go func() {
		exited <- RunChallengeAgent(opponentCtx, e.clients, e.newOpponent, ready, e.loopOptions...)
	}()
	e.instruments.OpponentEvent("started")

	timer := time.NewTimer(e.readyTimeout)
	defer timer.Stop()
	select {
	case <-ready:
		logger.Debug().Msg("opponent ready")
	case err := <-exited:
		select {
		case <-ready:
			// Ready was signalled before it exited, the phase still runs.
			logger.Warn().Err(err).Msg("opponent ended right after starting")
			e.instruments.OpponentEvent("stopped")
			exited = nil
		default:
			if err == nil {
				err = errors.New("exited without error")
			}
			e.instruments.OpponentEvent("failed")
			return fmt.Errorf("opponent exited before it was ready: %w", err)
		}
	case <-timer.C:
		e.stop(logger, cancel, exited)
		return ErrOpponentNotReady
	case <-ctx.Done():
		e.stop(logger, cancel, exited)
		return ctx.Err()
	}

	options := append([]engine.Option{}, e.loopOptions...)
	options = append(options, engine.WithName(p.label), engine.WithCollector(e.acc.Phase(p.label)))
	if e.instruments != nil {
		options = append(options, engine.WithObserver(e.instruments.Observer(p.label)))
	}
	loopErr := engine.Run(ctx, p.agent, env, options...)

	if exited != nil {
		e.stop(logger, cancel, exited)
	}
	return loopErr
}

// stop cancels the opponent whatever state it is in and waits a bounded time
// for it to exit.
func (e *Evaluator) stop(logger zerolog.Logger, cancel context.CancelFunc, exited <-chan error) {
	cancel()

	timer := time.NewTimer(e.stopTimeout)
	defer timer.Stop()
	select {
	case err := <-exited:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn().Err(err).Msg("opponent stopped with an error")
		}
		e.instruments.OpponentEvent("stopped")
	case <-timer.C:
		logger.Warn().Dur("timeout", e.stopTimeout).Msg("opponent did not stop in time, abandoning it")
		e.instruments.OpponentEvent("stuck")
	}
}

// Save writes the mean reward of each phase to path.
func (e *Evaluator) Save(path string) error {
	return e.writer.Save(path, e.acc)
}
