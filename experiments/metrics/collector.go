package metrics

import (
	"sync"

	"pigchase/utils"
)

// Collector receives the reward of every step an agent loop takes.
type Collector interface {
	AddReward(reward float64)
}

type phaseCollector struct {
	acc   *Accumulator
	phase string
}

func (c phaseCollector) AddReward(reward float64) {
	c.acc.add(c.phase, reward)
}

type dummyCollector struct{}

// NewDummyCollector returns a Collector that records nothing.
func NewDummyCollector() Collector {
	return dummyCollector{}
}

func (dummyCollector) AddReward(reward float64) {}

// Accumulator keeps the reward samples of each evaluation phase.
type Accumulator struct {
	mu      sync.RWMutex
	phases  []string
	samples map[string][]float64
}

// NewAccumulator creates an empty sample list for each phase.
func NewAccumulator(phases ...string) *Accumulator {
	acc := &Accumulator{samples: make(map[string][]float64, len(phases))}
	for _, p := range phases {
		acc.ensure(p)
	}
	return acc
}

func (a *Accumulator) ensure(phase string) {
	if _, ok := a.samples[phase]; !ok {
		a.phases = append(a.phases, phase)
		a.samples[phase] = []float64{}
	}
}

func (a *Accumulator) add(phase string, reward float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ensure(phase)
	a.samples[phase] = append(a.samples[phase], reward)
}

// Phase returns the collector that appends to the phase's samples.
func (a *Accumulator) Phase(phase string) Collector {
	a.mu.Lock()
	a.ensure(phase)
	a.mu.Unlock()
	return phaseCollector{acc: a, phase: phase}
}

// Phases returns the phase labels in the order they were added.
func (a *Accumulator) Phases() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]string(nil), a.phases...)
}

// Samples returns a copy of the samples recorded for phase.
func (a *Accumulator) Samples(phase string) []float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]float64(nil), a.samples[phase]...)
}

// Means maps every phase to the mean of its samples. Phases without samples
// map to nil.
func (a *Accumulator) Means() map[string]*float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	means := make(map[string]*float64, len(a.samples))
	for phase, samples := range a.samples {
		if mean, ok := utils.Mean(samples); ok {
			means[phase] = &mean
		} else {
			means[phase] = nil
		}
	}
	return means
}
