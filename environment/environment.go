package environment

import "context"

// Observation is whatever the state builder produced for the current frame.
// A nil Observation means the environment had nothing to report.
type Observation any

type Action int

const (
	MoveForward Action = iota
	TurnLeft
	TurnRight
)

// Actions lists every action an agent may take.
var Actions = []Action{MoveForward, TurnLeft, TurnRight}

var commands = []string{"move 1", "turn -1", "turn 1"}

// Command returns the wire command for the action.
func (a Action) Command() string {
	if a < 0 || int(a) >= len(commands) {
		return ""
	}
	return commands[a]
}

func (a Action) Valid() bool {
	return a >= 0 && int(a) < len(commands)
}

// Environment is one agent's handle on a shared Pig Chase session.
type Environment interface {
	// Reset starts a new episode. It may return a nil observation when the
	// episode already ended before this agent joined it.
	Reset(ctx context.Context) (Observation, error)
	// Do executes an action and returns the next observation, the step reward
	// and whether the agent is done.
	Do(ctx context.Context, action Action) (Observation, float64, bool, error)
	// Done reports whether the current episode is over.
	Done() bool
}

// StateBuilder turns a raw environment frame into an Observation.
type StateBuilder interface {
	Build(raw []byte) (Observation, error)
}

// Factory constructs an environment handle for a role.
type Factory func(clients []Endpoint, builder StateBuilder, role int, randomize bool) (Environment, error)
