package agent

import (
	"context"
	"time"

	"golang.org/x/exp/rand"

	"pigchase/environment"
)

type randomAgent struct {
	rng *rand.Rand
}

// NewRandomAgent returns an agent that picks uniformly among all actions.
func NewRandomAgent(seed uint64) Agent {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &randomAgent{rng: rand.New(rand.NewSource(seed))}
}

func (a *randomAgent) Act(ctx context.Context, obs environment.Observation, reward float64, done bool, training bool) (environment.Action, error) {
	return environment.Actions[a.rng.Intn(len(environment.Actions))], nil
}
