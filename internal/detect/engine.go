package detect

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"skygate/internal/logging"
)

// Default decision thresholds. The verdict threshold decides the final
// boolean; the significance threshold gates contributing factors. Both are
// exclusive bounds and independently overridable per deployment.
const (
	DefaultVerdictThreshold      = 0.5
	DefaultSignificanceThreshold = 0.6
)

// Recorder receives engine-level observability events. The prometheus-backed
// implementation lives in internal/metrics; the engine itself only depends on
// this interface.
type Recorder interface {
	DetectorRun(name string)
	DetectorFailed(name string)
	DegradedDetection()
	DetectionDuration(seconds float64)
}

type nopRecorder struct{}

func (nopRecorder) DetectorRun(string)        {}
func (nopRecorder) DetectorFailed(string)     {}
func (nopRecorder) DegradedDetection()        {}
func (nopRecorder) DetectionDuration(float64) {}

// Options tunes engine policy. Zero values select the reference behavior:
// sequential execution, no per-detector timeout, default thresholds.
type Options struct {
	// VerdictThreshold: final verdict is true when confidence exceeds it.
	VerdictThreshold float64
	// SignificanceThreshold: a detector contributes only above it.
	SignificanceThreshold float64
	// Parallelism bounds concurrent detector invocations; <= 1 runs them
	// sequentially in registry order.
	Parallelism int
	// Timeout converts a hung detector into a failed outcome. 0 disables.
	Timeout time.Duration
	// Recorder receives observability events; nil installs a no-op.
	Recorder Recorder
}

// Engine runs every registered detector against an image and fuses their
// outcomes into one Result. Detect never fails at runtime: detector errors,
// panics, and timeouts are absorbed as failed outcomes, and the all-failed
// case is a defined degraded result rather than an error.
type Engine struct {
	registry     *Registry
	verdictThr   float64
	significance float64
	parallelism  int
	timeout      time.Duration
	recorder     Recorder
	log          *slog.Logger
}

// NewEngine builds an engine over a validated registry.
func NewEngine(registry *Registry, opts Options) (*Engine, error) {
	if registry == nil || registry.Len() == 0 {
		return nil, fmt.Errorf("engine: empty registry")
	}
	e := &Engine{
		registry:     registry,
		verdictThr:   opts.VerdictThreshold,
		significance: opts.SignificanceThreshold,
		parallelism:  opts.Parallelism,
		timeout:      opts.Timeout,
		recorder:     opts.Recorder,
		log:          logging.New("engine"),
	}
	if e.verdictThr == 0 {
		e.verdictThr = DefaultVerdictThreshold
	}
	if e.significance == 0 {
		e.significance = DefaultSignificanceThreshold
	}
	if e.verdictThr <= 0 || e.verdictThr >= 1 {
		return nil, fmt.Errorf("engine: verdict threshold %v out of (0,1)", e.verdictThr)
	}
	if e.significance <= 0 || e.significance >= 1 {
		return nil, fmt.Errorf("engine: significance threshold %v out of (0,1)", e.significance)
	}
	if e.recorder == nil {
		e.recorder = nopRecorder{}
	}
	return e, nil
}

// Detect runs all registered detectors against imagePath and aggregates
// their outcomes. The Result it returns is complete and immutable; callers
// never observe a partially populated result.
func (e *Engine) Detect(ctx context.Context, imagePath string) *Result {
	start := time.Now()

	specs := e.registry.specs
	outcomes := make([]Outcome, len(specs))

	if e.parallelism > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.parallelism)
		for i, spec := range specs {
			i, spec := i, spec
			g.Go(func() error {
				outcomes[i] = e.invoke(gctx, spec, imagePath)
				return nil
			})
		}
		_ = g.Wait() // failures are values inside outcomes, never errors
	} else {
		for i, spec := range specs {
			outcomes[i] = e.invoke(ctx, spec, imagePath)
		}
	}

	perDetector := make(map[string]Outcome, len(specs))
	for i, spec := range specs {
		out := outcomes[i]
		perDetector[spec.Name] = out
		if out.Failed {
			e.recorder.DetectorFailed(spec.Name)
			e.log.Warn("detector failed", "detector", spec.Name, "reason", out.FailureReason)
		}
	}

	confidence, verdict, factors := e.aggregate(specs, outcomes)

	result := &Result{
		Verdict:        verdict,
		Confidence:     confidence,
		PerDetector:    perDetector,
		Factors:        factors,
		ProcessingTime: time.Since(start).Seconds(),
	}
	e.recorder.DetectionDuration(result.ProcessingTime)
	return result
}

// invoke runs one detector with failure isolation: panics and timeouts are
// converted to failed outcomes so one detector can never abort its siblings
// or the request.
func (e *Engine) invoke(ctx context.Context, spec Spec, imagePath string) Outcome {
	e.recorder.DetectorRun(spec.Name)

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	done := make(chan Outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- FailedOutcome(fmt.Sprintf("detector panic: %v", r))
			}
		}()
		done <- spec.Run(ctx, imagePath)
	}()

	select {
	case out := <-done:
		return out
	case <-ctx.Done():
		return FailedOutcome(fmt.Sprintf("detector %s: %v", spec.Name, ctx.Err()))
	}
}

// aggregate computes the weighted-average confidence over the detectors that
// succeeded, derives the verdict, and extracts contributing factors in
// registry order. All detectors failed is the defined degraded state:
// confidence 0.0, verdict false.
func (e *Engine) aggregate(specs []Spec, outcomes []Outcome) (float64, bool, []Factor) {
	var weightedSum, totalWeight float64
	for i, spec := range specs {
		out := outcomes[i]
		if out.Failed {
			continue
		}
		weightedSum += spec.Weight * clamp01(out.Confidence)
		totalWeight += spec.Weight
	}

	confidence := 0.0
	if totalWeight > 0 {
		confidence = weightedSum / totalWeight
	} else {
		e.recorder.DegradedDetection()
		e.log.Warn("all detectors failed; reporting degraded result")
	}
	verdict := confidence > e.verdictThr

	var factors []Factor
	for i, spec := range specs {
		out := outcomes[i]
		if out.Failed || out.Detected != verdict || out.Confidence <= e.significance {
			continue
		}
		factors = append(factors, Factor{
			Name:         spec.Name,
			Weight:       spec.Weight,
			Contribution: out.Confidence,
		})
	}

	return confidence, verdict, factors
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
