package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"pigchase/agent"
	"pigchase/environment"
)

// Run drives a through the configured number of episodes on env. Every step
// hands the agent the current observation, the previous reward and done flag,
// executes its action and records the reward. It returns when the last episode
// ends, when ctx is cancelled, or on the first agent or environment error.
func Run(ctx context.Context, a agent.Agent, env environment.Environment, options ...Option) error {
	l := newLoop(options...)
	logger := log.With().Str("loop", l.name).Logger()

	obs, err := l.reset(ctx, env)
	if err != nil {
		return err
	}

	reward := 0.0
	agentDone := false
	episode := 0
	steps := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if env.Done() {
			episode++
			l.observer.EpisodeCompleted()
			logger.Info().Msgf("episode %d of %d done (%.2f%%)", episode, l.episodes, float64(episode)/float64(l.episodes)*100)
			if episode >= l.episodes {
				logger.Debug().Int("steps", steps).Msg("agent loop finished")
				return nil
			}

			obs, err = l.reset(ctx, env)
			if err != nil {
				return err
			}
		}

		action, err := a.Act(ctx, obs, reward, agentDone, true)
		if err != nil {
			return fmt.Errorf("agent failed to act in episode %d: %w", episode+1, err)
		}

		obs, reward, agentDone, err = env.Do(ctx, action)
		if err != nil {
			return fmt.Errorf("environment failed to step in episode %d: %w", episode+1, err)
		}
		steps++

		l.collector.AddReward(reward)
		l.observer.StepTaken(reward)
	}
}

// reset starts a new episode. The episode can end on the other agent's first
// action before this loop resets, in which case the environment has no
// observation yet and the reset is retried.
func (l *loop) reset(ctx context.Context, env environment.Environment) (environment.Observation, error) {
	var obs environment.Observation
	attempt := 0

	operation := func() error {
		attempt++
		o, err := env.Reset(ctx)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to reset environment: %w", err))
		}
		if o == nil {
			return ErrNoObservation
		}
		obs = o
		return nil
	}
	notify := func(err error, wait time.Duration) {
		l.observer.ResetRetried()
		log.Warn().Str("loop", l.name).Int("attempt", attempt).Msg("received empty observation after reset, retrying")
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(l.resetInterval), uint64(l.resetRetries)), ctx)
	if err := backoff.RetryNotify(operation, b, notify); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, ErrNoObservation) {
			return nil, fmt.Errorf("%w (%d attempts)", ErrNoObservation, attempt)
		}
		return nil, err
	}
	return obs, nil
}
