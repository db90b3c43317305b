// meta/meta.go
package meta

import "time"

// Episodes defines the number of episodes each agent loop plays.
const Episodes = 10

// Phase labels, in the order they are evaluated.
const (
	Phase100k = "100k"
	Phase500k = "500k"
)

// Phases lists every evaluation phase in run order.
var Phases = []string{Phase100k, Phase500k}

// Environment roles. The challenger creates the mission, the trained agent joins it.
const (
	RoleChallenger = 0
	RoleTrained    = 1
)

// AgentNames maps each role to the agent name the environment expects.
var AgentNames = []string{"Agent_1", "Agent_2"}

// DefaultClients are the environment endpoints used when none are configured.
var DefaultClients = []string{"127.0.0.1:10000", "127.0.0.1:10001"}

// READY_TIMEOUT bounds how long the evaluator waits for the opponent to come up.
const READY_TIMEOUT = 5 * time.Second

// STOP_TIMEOUT bounds how long the evaluator waits for a cancelled opponent to exit.
const STOP_TIMEOUT = 5 * time.Second

// RESET_RETRIES caps the retries on an empty observation after reset.
const RESET_RETRIES = 50

const RESET_INTERVAL = 100 * time.Millisecond
