package environment

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type Entity struct {
	Name string  `json:"name"`
	X    float64 `json:"x"`
	Z    float64 `json:"z"`
	Yaw  float64 `json:"yaw"`
}

// SymbolicState is the decoded symbolic view of the arena: the block grid and
// every entity in it.
type SymbolicState struct {
	Board    [][]string `json:"board"`
	Entities []Entity   `json:"entities"`
}

// Entity returns the first entity with the given name.
func (s *SymbolicState) Entity(name string) (Entity, bool) {
	for _, e := range s.Entities {
		if e.Name == name {
			return e, true
		}
	}
	return Entity{}, false
}

type SymbolicStateBuilder struct{}

func NewSymbolicStateBuilder() *SymbolicStateBuilder {
	return &SymbolicStateBuilder{}
}

func (b *SymbolicStateBuilder) Build(raw []byte) (Observation, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	var state SymbolicState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("failed to decode symbolic state: %w", err)
	}
	return &state, nil
}
