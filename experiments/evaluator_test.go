package experiments

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pigchase/agent"
	"pigchase/engine"
	"pigchase/environment"
	"pigchase/experiments/metrics"
	"pigchase/meta"
)

var twoClients = []environment.Endpoint{{Host: "127.0.0.1", Port: 10000}, {Host: "127.0.0.1", Port: 10001}}

// episodeEnv ends every episode after a fixed number of steps with reward +1
// per step.
type episodeEnv struct {
	stepsPerEpisode int
	inEpisode       int
	done            bool
}

func (s *episodeEnv) Reset(ctx context.Context) (environment.Observation, error) {
	s.done = false
	s.inEpisode = 0
	return "start", nil
}

func (s *episodeEnv) Do(ctx context.Context, action environment.Action) (environment.Observation, float64, bool, error) {
	s.inEpisode++
	s.done = s.inEpisode >= s.stepsPerEpisode
	return "step", 1, s.done, nil
}

func (s *episodeEnv) Done() bool {
	return s.done
}

// idleEnv never ends an episode and only stops when its context is cancelled.
type idleEnv struct{}

func (idleEnv) Reset(ctx context.Context) (environment.Observation, error) {
	return "idle", ctx.Err()
}

func (idleEnv) Do(ctx context.Context, action environment.Action) (environment.Observation, float64, bool, error) {
	select {
	case <-ctx.Done():
		return nil, 0, false, ctx.Err()
	case <-time.After(time.Millisecond):
		return "idle", 0, false, nil
	}
}

func (idleEnv) Done() bool {
	return false
}

type countingAgent struct {
	mu    sync.Mutex
	acts  int
	ctxs  []context.Context
	panic bool
}

func (a *countingAgent) Act(ctx context.Context, obs environment.Observation, reward float64, done bool, training bool) (environment.Action, error) {
	if a.panic {
		panic("broken policy")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acts++
	a.ctxs = append(a.ctxs, ctx)
	return environment.MoveForward, nil
}

func (a *countingAgent) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.acts
}

type opponents struct {
	mu     sync.Mutex
	agents []*countingAgent
}

func (o *opponents) factory(clients []environment.Endpoint) (agent.Agent, environment.Environment, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	a := &countingAgent{}
	o.agents = append(o.agents, a)
	return a, idleEnv{}, nil
}

func (o *opponents) built() []*countingAgent {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*countingAgent(nil), o.agents...)
}

type envRecorder struct {
	roles     []int
	randomize []bool
	env       *episodeEnv
}

func (r *envRecorder) factory(clients []environment.Endpoint, builder environment.StateBuilder, role int, randomize bool) (environment.Environment, error) {
	r.roles = append(r.roles, role)
	r.randomize = append(r.randomize, randomize)
	return r.env, nil
}

func TestNewEvaluator(t *testing.T) {
	t.Run("fails with a single client before starting anything", func(t *testing.T) {
		opp := &opponents{}
		_, err := NewEvaluator(twoClients[:1], &countingAgent{}, &countingAgent{}, nil, WithOpponentFactory(opp.factory))
		require.ErrorIs(t, err, ErrNotEnoughClients)
		require.Empty(t, opp.built(), "No opponent should be started")
	})

	t.Run("requires both agents", func(t *testing.T) {
		_, err := NewEvaluator(twoClients, &countingAgent{}, nil, nil)
		require.Error(t, err)
	})

	t.Run("starts with an empty accumulator per phase", func(t *testing.T) {
		e, err := NewEvaluator(twoClients, &countingAgent{}, &countingAgent{}, nil)
		require.NoError(t, err)
		require.Equal(t, meta.Phases, e.Accumulator().Phases())
	})
}

func TestEvaluatorRun(t *testing.T) {
	ctx := context.Background()

	t.Run("evaluates both phases against a fresh opponent each", func(t *testing.T) {
		envs := &envRecorder{env: &episodeEnv{stepsPerEpisode: 3}}
		opp := &opponents{}
		a100k, a500k := &countingAgent{}, &countingAgent{}
		in, err := metrics.NewInstruments(nil)
		require.NoError(t, err)

		e, err := NewEvaluator(twoClients, a100k, a500k, nil,
			WithEnvironmentFactory(envs.factory),
			WithOpponentFactory(opp.factory),
			WithStopTimeout(time.Second),
			WithInstruments(in),
			WithLoopOptions(engine.WithResetInterval(0)),
		)
		require.NoError(t, err)
		require.NoError(t, e.Run(ctx))

		require.Equal(t, []int{meta.RoleTrained}, envs.roles, "One shared environment for the whole run")
		require.Equal(t, []bool{true}, envs.randomize)

		require.Equal(t, 30, a100k.count())
		require.Equal(t, 30, a500k.count())
		require.Len(t, e.Accumulator().Samples(meta.Phase100k), 30)
		require.Len(t, e.Accumulator().Samples(meta.Phase500k), 30)

		built := opp.built()
		require.Len(t, built, 2, "One opponent per phase")
		for _, o := range built {
			o.mu.Lock()
			for _, c := range o.ctxs {
				require.Error(t, c.Err(), "Opponent should be cancelled once its phase ends")
			}
			o.mu.Unlock()
		}
	})

	t.Run("saves the phase means after a run", func(t *testing.T) {
		envs := &envRecorder{env: &episodeEnv{stepsPerEpisode: 2}}
		opp := &opponents{}
		e, err := NewEvaluator(twoClients, &countingAgent{}, &countingAgent{}, nil,
			WithEnvironmentFactory(envs.factory),
			WithOpponentFactory(opp.factory),
			WithLoopOptions(engine.WithResetInterval(0)),
		)
		require.NoError(t, err)
		require.NoError(t, e.Run(ctx))

		path := filepath.Join(t.TempDir(), "results", "pig_chase.json")
		require.NoError(t, e.Save(path))

		got, err := metrics.Load(path)
		require.NoError(t, err)
		require.InDelta(t, 1.0, *got[meta.Phase100k], 1e-9)
		require.InDelta(t, 1.0, *got[meta.Phase500k], 1e-9)
	})

	t.Run("opponent that cannot be built fails the phase", func(t *testing.T) {
		envs := &envRecorder{env: &episodeEnv{stepsPerEpisode: 2}}
		a100k := &countingAgent{}
		e, err := NewEvaluator(twoClients, a100k, &countingAgent{}, nil,
			WithEnvironmentFactory(envs.factory),
			WithOpponentFactory(func(clients []environment.Endpoint) (agent.Agent, environment.Environment, error) {
				return nil, nil, errors.New("minecraft not running")
			}),
		)
		require.NoError(t, err)

		err = e.Run(ctx)
		require.ErrorContains(t, err, "minecraft not running")
		require.Zero(t, a100k.count(), "Trained agent should not play without an opponent")
	})

	t.Run("opponent that never gets ready times out", func(t *testing.T) {
		release := make(chan struct{})
		t.Cleanup(func() { close(release) })
		envs := &envRecorder{env: &episodeEnv{stepsPerEpisode: 2}}
		e, err := NewEvaluator(twoClients, &countingAgent{}, &countingAgent{}, nil,
			WithEnvironmentFactory(envs.factory),
			WithOpponentFactory(func(clients []environment.Endpoint) (agent.Agent, environment.Environment, error) {
				<-release
				return nil, nil, errors.New("released")
			}),
			WithReadyTimeout(20*time.Millisecond),
			WithStopTimeout(10*time.Millisecond),
		)
		require.NoError(t, err)

		require.ErrorIs(t, e.Run(ctx), ErrOpponentNotReady)
	})

	t.Run("opponent panic is contained", func(t *testing.T) {
		envs := &envRecorder{env: &episodeEnv{stepsPerEpisode: 2}}
		e, err := NewEvaluator(twoClients, &countingAgent{}, &countingAgent{}, nil,
			WithEnvironmentFactory(envs.factory),
			WithOpponentFactory(func(clients []environment.Endpoint) (agent.Agent, environment.Environment, error) {
				return &countingAgent{panic: true}, idleEnv{}, nil
			}),
			WithLoopOptions(engine.WithResetInterval(0)),
		)
		require.NoError(t, err)

		require.NoError(t, e.Run(ctx), "A crashing opponent only ends its own loop")
	})

	t.Run("environment factory failure stops the run", func(t *testing.T) {
		e, err := NewEvaluator(twoClients, &countingAgent{}, &countingAgent{}, nil,
			WithEnvironmentFactory(func(clients []environment.Endpoint, builder environment.StateBuilder, role int, randomize bool) (environment.Environment, error) {
				return nil, errors.New("no session")
			}),
		)
		require.NoError(t, err)
		require.ErrorContains(t, e.Run(ctx), "no session")
	})
}

func TestRunChallengeAgent(t *testing.T) {
	t.Run("signals ready and stops on cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		ready := make(chan struct{})
		opp := &opponents{}
		done := make(chan error, 1)

		go func() { done <- RunChallengeAgent(ctx, twoClients, opp.factory, ready) }()

		select {
		case <-ready:
		case <-time.After(time.Second):
			t.Fatal("opponent never signalled ready")
		}
		cancel()

		select {
		case err := <-done:
			require.ErrorIs(t, err, context.Canceled)
		case <-time.After(time.Second):
			t.Fatal("opponent did not stop after cancel")
		}
	})

	t.Run("default opponent needs an endpoint for its role", func(t *testing.T) {
		err := RunChallengeAgent(context.Background(), nil, nil, nil)
		require.ErrorIs(t, err, environment.ErrNotEnoughEndpoints)
	})
}
