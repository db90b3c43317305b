package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Instruments exposes Prometheus collectors for agent loop and opponent activity.
type Instruments struct {
	episodes     *prometheus.CounterVec
	steps        *prometheus.CounterVec
	rewards      *prometheus.GaugeVec
	resetRetries *prometheus.CounterVec
	opponents    *prometheus.CounterVec
}

// NewInstruments registers the collectors with reg. A nil reg leaves them
// unregistered, which is what tests and library callers without a metrics
// endpoint want.
func NewInstruments(reg prometheus.Registerer) (*Instruments, error) {
	in := &Instruments{
		episodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pigchase",
			Subsystem: "loop",
			Name:      "episodes_total",
			Help:      "Episodes completed by an agent loop.",
		}, []string{"loop"}),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pigchase",
			Subsystem: "loop",
			Name:      "steps_total",
			Help:      "Environment steps taken by an agent loop.",
		}, []string{"loop"}),
		rewards: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "pigchase",
			Subsystem: "loop",
			Name:      "reward_sum",
			Help:      "Sum of step rewards seen by an agent loop.",
		}, []string{"loop"}),
		resetRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pigchase",
			Subsystem: "loop",
			Name:      "reset_retries_total",
			Help:      "Resets retried because the environment returned no observation.",
		}, []string{"loop"}),
		opponents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pigchase",
			Subsystem: "evaluator",
			Name:      "opponent_events_total",
			Help:      "Opponent lifecycle events by outcome.",
		}, []string{"outcome"}),
	}
	if reg == nil {
		return in, nil
	}
	for _, c := range []prometheus.Collector{in.episodes, in.steps, in.rewards, in.resetRetries, in.opponents} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return in, nil
}

// OpponentEvent counts an opponent lifecycle outcome such as "started",
// "stopped" or "stuck".
func (in *Instruments) OpponentEvent(outcome string) {
	if in == nil {
		return
	}
	in.opponents.WithLabelValues(outcome).Inc()
}

// Observer returns the per-loop view used by the agent loop.
func (in *Instruments) Observer(loop string) *LoopObserver {
	return &LoopObserver{
		episodes:     in.episodes.WithLabelValues(loop),
		steps:        in.steps.WithLabelValues(loop),
		rewards:      in.rewards.WithLabelValues(loop),
		resetRetries: in.resetRetries.WithLabelValues(loop),
	}
}

type LoopObserver struct {
	episodes     prometheus.Counter
	steps        prometheus.Counter
	rewards      prometheus.Gauge
	resetRetries prometheus.Counter
}

func (o *LoopObserver) EpisodeCompleted() {
	o.episodes.Inc()
}

func (o *LoopObserver) StepTaken(reward float64) {
	o.steps.Inc()
	o.rewards.Add(reward)
}

func (o *LoopObserver) ResetRetried() {
	o.resetRetries.Inc()
}
