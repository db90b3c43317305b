package experiments

import (
	"context"
	"fmt"

	"pigchase/agent"
	"pigchase/engine"
	"pigchase/environment"
	"pigchase/experiments/metrics"
	"pigchase/meta"
)

// OpponentFactory builds a fresh opponent agent and its own environment handle.
type OpponentFactory func(clients []environment.Endpoint) (agent.Agent, environment.Environment, error)

// DefaultOpponent is the scripted challenge agent on a role 0 remote
// environment with randomized start positions.
func DefaultOpponent(clients []environment.Endpoint) (agent.Agent, environment.Environment, error) {
	builder := environment.NewSymbolicStateBuilder()
	env, err := environment.Remote(clients, builder, meta.RoleChallenger, true)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create challenger environment: %w", err)
	}
	return agent.NewChallengeAgent(meta.AgentNames[meta.RoleChallenger]), env, nil
}

// RunChallengeAgent builds an opponent with factory and runs it until its
// episodes are over or ctx is cancelled. Rewards are never recorded. ready is
// closed once the opponent exists and before it first touches the environment.
func RunChallengeAgent(ctx context.Context, clients []environment.Endpoint, factory OpponentFactory, ready chan<- struct{}, options ...engine.Option) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("challenge agent panicked: %v", r)
		}
	}()

	if factory == nil {
		factory = DefaultOpponent
	}
	a, env, err := factory(clients)
	if err != nil {
		return err
	}
	if ready != nil {
		close(ready)
	}

	loopOptions := append([]engine.Option{}, options...)
	loopOptions = append(loopOptions, engine.WithName("challenger"), engine.WithCollector(metrics.NewDummyCollector()))
	return engine.Run(ctx, a, env, loopOptions...)
}
