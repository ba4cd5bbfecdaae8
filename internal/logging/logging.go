// Package logging routes the engine's structured events. Every record
// carries a phase attribute; a handler built by NewHandler shows Info
// records when verbose and Debug records only for the selected phase.
package logging

import (
	"context"
	"io"
	"log/slog"
	"slices"
)

// PhaseKey is the attribute key naming the component that emitted a record.
const PhaseKey = "phase"

const (
	PhaseConfig      = "config"
	PhaseData        = "data"
	PhaseCluster     = "cluster"
	PhaseBounds      = "bounds"
	PhaseCentroids   = "centroids"
	PhaseDunn        = "dunn"
	PhaseCrossover   = "crossover"
	PhaseMutate      = "mutate"
	PhaseProbability = "probability"
	PhaseSelection   = "selection"
	PhaseEvolution   = "evolution"
)

var debugCodes = map[int]string{
	1:  PhaseConfig,
	2:  PhaseData,
	3:  PhaseCluster,
	4:  PhaseBounds,
	5:  PhaseCentroids,
	6:  PhaseDunn,
	7:  PhaseCrossover,
	8:  PhaseMutate,
	10: PhaseProbability,
}

// PhaseForCode maps a numeric debug code to its phase. Unknown codes,
// including 0, map to "".
func PhaseForCode(code int) string {
	return debugCodes[code]
}

// Phase returns the phase attribute.
func Phase(p string) slog.Attr {
	return slog.String(PhaseKey, p)
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// Options selects what a handler lets through.
type Options struct {
	Verbose bool
	// DebugPhase enables Debug records of a single phase.
	DebugPhase string
	JSON       bool
}

type phaseHandler struct {
	next   slog.Handler
	opts   Options
	phases []string
}

// NewHandler builds the filtering handler on top of a text (or JSON) handler writing to w.
func NewHandler(w io.Writer, opts Options) slog.Handler {
	ho := &slog.HandlerOptions{Level: slog.LevelDebug}
	var next slog.Handler = slog.NewTextHandler(w, ho)
	if opts.JSON {
		next = slog.NewJSONHandler(w, ho)
	}
	return &phaseHandler{next: next, opts: opts}
}

func (h *phaseHandler) Enabled(_ context.Context, level slog.Level) bool {
	switch {
	case level >= slog.LevelWarn:
		return true
	case level >= slog.LevelInfo:
		return h.opts.Verbose
	default:
		return h.opts.DebugPhase != ""
	}
}

func (h *phaseHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level < slog.LevelInfo {
		phase := ""
		if n := len(h.phases); n > 0 {
			phase = h.phases[n-1]
		}
		r.Attrs(func(a slog.Attr) bool {
			if a.Key == PhaseKey {
				phase = a.Value.String()
				return false
			}
			return true
		})
		if phase != h.opts.DebugPhase {
			return nil
		}
	}
	return h.next.Handle(ctx, r)
}

func (h *phaseHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	phases := slices.Clone(h.phases)
	for _, a := range attrs {
		if a.Key == PhaseKey {
			phases = append(phases, a.Value.String())
		}
	}
	return &phaseHandler{next: h.next.WithAttrs(attrs), opts: h.opts, phases: phases}
}

func (h *phaseHandler) WithGroup(name string) slog.Handler {
	return &phaseHandler{next: h.next.WithGroup(name), opts: h.opts, phases: h.phases}
}
