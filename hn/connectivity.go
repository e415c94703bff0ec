package hn

import (
	"context"
	"sync/atomic"
)

// Transition describes a change in observed connectivity
type Transition int

const (
	NoChange Transition = iota
	Lost
	Restored
)

// Prober is satisfied by Client
type Prober interface {
	Reachable(ctx context.Context) bool
}

// ConnectivityReporter turns repeated probe results into single transitions
// so a lost connection is reported once and not on every failed load.
type ConnectivityReporter struct {
	offline atomic.Bool
}

// Observe records a probe result and returns the transition it caused
func (r *ConnectivityReporter) Observe(reachable bool) Transition {
	if reachable {
		if r.offline.CompareAndSwap(true, false) {
			return Restored
		}
		return NoChange
	}
	if r.offline.CompareAndSwap(false, true) {
		return Lost
	}
	return NoChange
}

// Check probes and observes in one step
func (r *ConnectivityReporter) Check(ctx context.Context, p Prober) (bool, Transition) {
	reachable := p.Reachable(ctx)
	return reachable, r.Observe(reachable)
}

// Offline reports the last observed state
func (r *ConnectivityReporter) Offline() bool {
	return r.offline.Load()
}
