package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"pigchase/environment"
)

type actRequest struct {
	Observation json.RawMessage `json:"observation"`
	Reward      float64         `json:"reward"`
	Done        bool            `json:"done"`
	IsTraining  bool            `json:"is_training"`
}

type actResponse struct {
	Action environment.Action `json:"action"`
}

// RemoteAgent asks an agent server for every action. Trained checkpoints are
// served this way.
type RemoteAgent struct {
	url    string
	client *http.Client
}

func NewRemoteAgent(url string) *RemoteAgent {
	return &RemoteAgent{
		url:    strings.TrimRight(url, "/"),
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (a *RemoteAgent) URL() string {
	return a.url
}

func (a *RemoteAgent) Act(ctx context.Context, obs environment.Observation, reward float64, done bool, training bool) (environment.Action, error) {
	raw, err := json.Marshal(obs)
	if err != nil {
		return 0, fmt.Errorf("failed to encode observation: %w", err)
	}
	body, err := json.Marshal(actRequest{Observation: raw, Reward: reward, Done: done, IsTraining: training})
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url+"/act", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("agent %s: %w", a.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		out, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("agent %s returned status %d: %s", a.url, resp.StatusCode, bytes.TrimSpace(out))
	}

	var out actResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("failed to decode action: %w", err)
	}
	if !out.Action.Valid() {
		return 0, fmt.Errorf("agent %s returned invalid action %d", a.url, out.Action)
	}
	return out.Action, nil
}
