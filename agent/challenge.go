package agent

import (
	"context"
	"math"
	"time"

	"golang.org/x/exp/rand"

	"pigchase/environment"
)

const PigName = "Pig"

// RandomProbability is the chance the challenge agent plays an episode randomly.
const RandomProbability = 0.25

type policy int

const (
	randomPolicy policy = iota
	focusedPolicy
)

type ChallengeOption func(a *ChallengeAgent)

func WithSeed(seed uint64) ChallengeOption {
	return func(a *ChallengeAgent) {
		if seed != 0 {
			a.rng = rand.New(rand.NewSource(seed))
		}
	}
}

func WithRandomProbability(p float64) ChallengeOption {
	return func(a *ChallengeAgent) {
		if p >= 0 && p <= 1 {
			a.randomProb = p
		}
	}
}

// ChallengeAgent is the scripted opponent. Each episode it either wanders
// randomly or chases the pig, and it keeps that choice until the episode ends.
type ChallengeAgent struct {
	name       string
	rng        *rand.Rand
	randomProb float64
	current    policy
	started    bool
}

func NewChallengeAgent(name string, options ...ChallengeOption) *ChallengeAgent {
	a := &ChallengeAgent{
		name:       name,
		rng:        rand.New(rand.NewSource(uint64(time.Now().UnixNano()))),
		randomProb: RandomProbability,
	}
	for _, option := range options {
		option(a)
	}
	return a
}

func (a *ChallengeAgent) Name() string {
	return a.name
}

// Focused reports whether the current episode is played by the chasing policy.
func (a *ChallengeAgent) Focused() bool {
	return a.started && a.current == focusedPolicy
}

func (a *ChallengeAgent) Act(ctx context.Context, obs environment.Observation, reward float64, done bool, training bool) (environment.Action, error) {
	if done || !a.started {
		a.started = true
		if a.rng.Float64() < a.randomProb {
			a.current = randomPolicy
		} else {
			a.current = focusedPolicy
		}
	}

	if a.current == focusedPolicy {
		if action, ok := a.chase(obs); ok {
			return action, nil
		}
	}
	return environment.Actions[a.rng.Intn(len(environment.Actions))], nil
}

// chase turns toward the pig and walks once roughly facing it.
func (a *ChallengeAgent) chase(obs environment.Observation) (environment.Action, bool) {
	state, ok := obs.(*environment.SymbolicState)
	if !ok || state == nil {
		return 0, false
	}
	me, ok := state.Entity(a.name)
	if !ok {
		return 0, false
	}
	pig, ok := state.Entity(PigName)
	if !ok {
		return 0, false
	}
	dx, dz := pig.X-me.X, pig.Z-me.Z
	if math.Abs(dx) < 1e-9 && math.Abs(dz) < 1e-9 {
		return 0, false
	}

	// Yaw 0 faces +z and grows clockwise, so facing (dx, dz) means yaw atan2(-dx, dz).
	target := math.Atan2(-dx, dz) * 180 / math.Pi
	diff := normalizeAngle(target - me.Yaw)
	switch {
	case math.Abs(diff) <= 45:
		return environment.MoveForward, true
	case diff > 0:
		return environment.TurnRight, true
	default:
		return environment.TurnLeft, true
	}
}

// normalizeAngle maps degrees into [-180, 180).
func normalizeAngle(deg float64) float64 {
	deg = math.Mod(deg+180, 360)
	if deg < 0 {
		deg += 360
	}
	return deg - 180
}
