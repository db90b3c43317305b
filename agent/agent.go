package agent

import (
	"context"

	"pigchase/environment"
)

type Agent interface {
	// Act picks the next action from the current observation, the reward of the
	// previous step and whether the previous step ended the agent's episode.
	Act(ctx context.Context, obs environment.Observation, reward float64, done bool, training bool) (environment.Action, error)
}
