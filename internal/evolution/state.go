package evolution

import (
	"context"
	"sync/atomic"
)

// State is the driver's position in the generational loop.
type State int32

const (
	Initializing State = iota
	Evaluating
	Selecting
	Breeding
	CheckStop
	Terminated
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Evaluating:
		return "evaluating"
	case Selecting:
		return "selecting"
	case Breeding:
		return "breeding"
	case CheckStop:
		return "check_stop"
	case Terminated:
		return "terminated"
	}
	return "unknown"
}

// StopSignal is queried once per generation, after breeding.
type StopSignal interface {
	Stop() bool
}

// StopFunc adapts a function to StopSignal.
type StopFunc func() bool

func (f StopFunc) Stop() bool { return f() }

// StopFlag is a StopSignal that can be raised from another goroutine,
// typically a signal handler.
type StopFlag struct {
	requested atomic.Bool
}

// Request asks the driver to halt after the in-flight generation.
func (f *StopFlag) Request() { f.requested.Store(true) }

func (f *StopFlag) Stop() bool { return f.requested.Load() }

// ContextStop raises the flag when ctx is done. Unlike cancelling the
// context passed to Run, the current generation still completes.
func (f *StopFlag) ContextStop(ctx context.Context) {
	go func() {
		<-ctx.Done()
		f.Request()
	}()
}

type never struct{}

func (never) Stop() bool { return false }
