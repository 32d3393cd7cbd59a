package engine

import (
	"context"
	"time"

	"github.com/lintang-b-s/tiledroute/pkg/costing"
	da "github.com/lintang-b-s/tiledroute/pkg/datastructure"
	"github.com/lintang-b-s/tiledroute/pkg/engine/routing"
	"go.uber.org/zap"
)

type Pass uint8

const (
	FIRST_PASS Pass = iota
	RELAXED_PASS
	DISABLED_TRANSITIONS_PASS
	SUCCEEDED
	FAILED
)

func (p Pass) String() string {
	switch p {
	case FIRST_PASS:
		return "first"
	case RELAXED_PASS:
		return "relaxed"
	case DISABLED_TRANSITIONS_PASS:
		return "disabled_transitions"
	case SUCCEEDED:
		return "succeeded"
	default:
		return "failed"
	}
}

// nextPass after a pass found no path. At most three passes run.
func nextPass(p Pass, caps routing.Capabilities, allowMultiPass bool) Pass {
	if !allowMultiPass {
		return FAILED
	}
	switch p {
	case FIRST_PASS:
		return RELAXED_PASS
	case RELAXED_PASS:
		if caps.SupportsDisableTransitions {
			return DISABLED_TRANSITIONS_PASS
		}
	}
	return FAILED
}

// capabilities of alg with the configured relax factors applied.
func (e *Engine) capabilities(alg routing.PathAlgorithm) routing.Capabilities {
	caps := alg.Capabilities()
	if r, ok := e.cfg.Relax[alg.Name()]; ok {
		if r.Factor > 0 {
			caps.RelaxFactor = r.Factor
		}
		if r.ExpansionWithinFactor > 0 {
			caps.ExpansionWithinFactor = r.ExpansionWithinFactor
		}
	}
	return caps
}

/*
routeLeg runs alg through the pass state machine. Relaxation and disabling transitions apply to clones
of the mode's costing, so costings is never modified. The algorithm is cleared before every retry and
before returning.
*/
func (e *Engine) routeLeg(ctx context.Context, alg routing.PathAlgorithm, origin, dest *da.Location,
	costings routing.ModeCostings, mode da.TravelMode) Leg {
	primary := costings[mode]
	caps := e.capabilities(alg)
	leg := Leg{Algorithm: alg.Name()}
	current := costings

	t := time.Now()
	pass := FIRST_PASS
	for pass != SUCCEEDED && pass != FAILED {
		path := alg.GetBestPath(ctx, origin, dest, e.reader, current, mode)
		leg.Passes++
		leg.Stats = addStats(leg.Stats, alg.Stats())
		if len(path) > 0 {
			leg.Path = path
			pass = SUCCEEDED
			break
		}

		pass = nextPass(pass, caps, primary != nil && primary.AllowMultiPass())
		alg.Clear()
		switch pass {
		case RELAXED_PASS:
			e.log.Info("Try again with relaxed hierarchy limits", zap.String("algorithm", alg.Name()),
				zap.Float64("relax_factor", caps.RelaxFactor),
				zap.Float64("expansion_within_factor", caps.ExpansionWithinFactor))
			relaxed := primary.Clone()
			relaxed.RelaxHierarchyLimits(caps.RelaxFactor, caps.ExpansionWithinFactor)
			current = replaceCosting(current, mode, relaxed)
		case DISABLED_TRANSITIONS_PASS:
			e.log.Info("Try again with highway transitions disabled", zap.String("algorithm", alg.Name()))
			disabled := current[mode].Clone()
			disabled.DisableHighwayTransitions()
			current = replaceCosting(current, mode, disabled)
		}
	}
	alg.Clear()

	e.log.Debug("PathAlgorithm GetBestPath took", zap.String("algorithm", alg.Name()),
		zap.Int("passes", leg.Passes), zap.Int64("ms", time.Since(t).Milliseconds()))
	return leg
}

// multiRun reruns a leg n times and logs the average search time.
func (e *Engine) multiRun(ctx context.Context, alg routing.PathAlgorithm, origin, dest *da.Location,
	costings routing.ModeCostings, mode da.TravelMode, n int) time.Duration {
	if n <= 0 {
		return 0
	}
	var total time.Duration
	for i := 0; i < n; i++ {
		t := time.Now()
		alg.GetBestPath(ctx, origin, dest, e.reader, costings, mode)
		total += time.Since(t)
		alg.Clear()
	}
	avg := total / time.Duration(n)
	e.log.Info("PathAlgorithm GetBestPath average", zap.String("algorithm", alg.Name()),
		zap.Int("runs", n), zap.Int64("ms", avg.Milliseconds()))
	return avg
}

// replaceCosting returns a copy of costings with mode mapped to c.
func replaceCosting(costings routing.ModeCostings, mode da.TravelMode, c *costing.Costing) routing.ModeCostings {
	out := make(routing.ModeCostings, len(costings))
	for m, mc := range costings {
		out[m] = mc
	}
	out[mode] = c
	return out
}

func addStats(a, b routing.Stats) routing.Stats {
	return routing.Stats{
		Iterations:          a.Iterations + b.Iterations,
		Labels:              max(a.Labels, b.Labels),
		ScheduleUnavailable: a.ScheduleUnavailable + b.ScheduleUnavailable,
		Interrupted:         a.Interrupted || b.Interrupted,
	}
}
