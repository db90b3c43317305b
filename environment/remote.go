package environment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type resetRequest struct {
	Role               int  `json:"role"`
	RandomizePositions bool `json:"randomize_positions"`
}

type stepRequest struct {
	Role    int    `json:"role"`
	Action  Action `json:"action"`
	Command string `json:"command"`
}

// frame is the server's answer to both reset and step.
type frame struct {
	State  json.RawMessage `json:"state"`
	Reward float64         `json:"reward"`
	Done   bool            `json:"done"`
}

// RemoteEnvironment talks to the environment server that hosts its role.
type RemoteEnvironment struct {
	endpoint  Endpoint
	builder   StateBuilder
	role      int
	randomize bool
	client    *http.Client
	done      bool
}

// NewRemote binds a handle for role to clients[role].
func NewRemote(clients []Endpoint, builder StateBuilder, role int, randomize bool) (*RemoteEnvironment, error) {
	if role < 0 || role >= len(clients) {
		return nil, fmt.Errorf("%w: role %d needs at least %d, got %d", ErrNotEnoughEndpoints, role, role+1, len(clients))
	}
	if builder == nil {
		builder = NewSymbolicStateBuilder()
	}
	return &RemoteEnvironment{
		endpoint:  clients[role],
		builder:   builder,
		role:      role,
		randomize: randomize,
		client:    &http.Client{Timeout: 30 * time.Second},
		done:      true, // nothing started yet
	}, nil
}

// Remote is NewRemote as a Factory.
func Remote(clients []Endpoint, builder StateBuilder, role int, randomize bool) (Environment, error) {
	env, err := NewRemote(clients, builder, role, randomize)
	if err != nil {
		return nil, err
	}
	return env, nil
}

func (e *RemoteEnvironment) Endpoint() Endpoint {
	return e.endpoint
}

func (e *RemoteEnvironment) Done() bool {
	return e.done
}

func (e *RemoteEnvironment) Reset(ctx context.Context) (Observation, error) {
	f, err := e.post(ctx, "/reset", resetRequest{Role: e.role, RandomizePositions: e.randomize})
	if err != nil {
		return nil, err
	}
	obs, err := e.builder.Build(f.State)
	if err != nil {
		return nil, err
	}
	if obs == nil {
		e.done = true
		return nil, nil
	}
	e.done = f.Done
	return obs, nil
}

func (e *RemoteEnvironment) Do(ctx context.Context, action Action) (Observation, float64, bool, error) {
	if !action.Valid() {
		return nil, 0, false, fmt.Errorf("invalid action %d", action)
	}
	f, err := e.post(ctx, "/step", stepRequest{Role: e.role, Action: action, Command: action.Command()})
	if err != nil {
		return nil, 0, false, err
	}
	obs, err := e.builder.Build(f.State)
	if err != nil {
		return nil, 0, false, err
	}
	e.done = f.Done
	return obs, f.Reward, f.Done, nil
}

func (e *RemoteEnvironment) post(ctx context.Context, path string, payload any) (*frame, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint.URL()+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("environment %s%s: %w", e.endpoint, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		out, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("environment %s%s returned status %d: %s", e.endpoint, path, resp.StatusCode, bytes.TrimSpace(out))
	}

	var f frame
	if err := json.NewDecoder(resp.Body).Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return &f, nil
}
