package detect

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func fixed(detected bool, confidence float64) DetectorFunc {
	return func(context.Context, string) Outcome {
		return Outcome{Detected: detected, Confidence: confidence}
	}
}

func failing(reason string) DetectorFunc {
	return func(context.Context, string) Outcome {
		return FailedOutcome(reason)
	}
}

func mustRegistry(t *testing.T, specs []Spec) *Registry {
	t.Helper()
	reg, err := NewRegistry(specs)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return reg
}

func mustEngine(t *testing.T, reg *Registry, opts Options) *Engine {
	t.Helper()
	eng, err := NewEngine(reg, opts)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return eng
}

// countingRecorder counts observability events for assertions.
type countingRecorder struct {
	mu       sync.Mutex
	runs     int
	failures int
	degraded int
}

func (r *countingRecorder) DetectorRun(string) {
	r.mu.Lock()
	r.runs++
	r.mu.Unlock()
}
func (r *countingRecorder) DetectorFailed(string) {
	r.mu.Lock()
	r.failures++
	r.mu.Unlock()
}
func (r *countingRecorder) DegradedDetection() {
	r.mu.Lock()
	r.degraded++
	r.mu.Unlock()
}
func (r *countingRecorder) DetectionDuration(float64) {}

func TestDetect_WeightedAverageExact(t *testing.T) {
	// Mirrors the production weight profile with one failed detector.
	// Non-failed weight = 0.85; weighted sum = 0.6035; confidence = 0.71.
	reg := mustRegistry(t, []Spec{
		{Name: "metadata", Weight: 0.15, Run: fixed(true, 0.7)},
		{Name: "ela", Weight: 0.20, Run: fixed(false, 0.3)},
		{Name: "prnu", Weight: 0.20, Run: fixed(true, 0.88)},
		{Name: "texture", Weight: 0.15, Run: failing("decode error")},
		{Name: "vit", Weight: 0.15, Run: fixed(true, 0.85)},
		{Name: "resnet", Weight: 0.15, Run: fixed(true, 0.9)},
	})
	eng := mustEngine(t, reg, Options{})

	res := eng.Detect(context.Background(), "img.jpg")
	if math.Abs(res.Confidence-0.71) > 1e-9 {
		t.Fatalf("confidence: got %.12f, want 0.71", res.Confidence)
	}
	if !res.Verdict {
		t.Fatal("verdict: got false, want true")
	}
	// Factors: agree with verdict AND confidence > 0.6, in registry order.
	want := []Factor{
		{Name: "metadata", Weight: 0.15, Contribution: 0.7},
		{Name: "prnu", Weight: 0.20, Contribution: 0.88},
		{Name: "vit", Weight: 0.15, Contribution: 0.85},
		{Name: "resnet", Weight: 0.15, Contribution: 0.9},
	}
	if diff := cmp.Diff(want, res.Factors); diff != "" {
		t.Fatalf("factors mismatch (-want +got):\n%s", diff)
	}
}

func TestDetect_SingleDetectorIdentity(t *testing.T) {
	reg := mustRegistry(t, []Spec{{Name: "only", Weight: 0.4, Run: fixed(true, 0.9)}})
	eng := mustEngine(t, reg, Options{})

	res := eng.Detect(context.Background(), "img.jpg")
	if res.Confidence != 0.9 {
		t.Fatalf("confidence: got %v, want detector's own 0.9", res.Confidence)
	}
	if !res.Verdict {
		t.Fatal("verdict: got false, want true")
	}
}

func TestDetect_AllFailedIsDegraded(t *testing.T) {
	rec := &countingRecorder{}
	reg := mustRegistry(t, []Spec{
		{Name: "a", Weight: 1, Run: failing("boom")},
		{Name: "b", Weight: 1, Run: failing("boom")},
	})
	eng := mustEngine(t, reg, Options{Recorder: rec})

	res := eng.Detect(context.Background(), "img.jpg")
	if res.Confidence != 0 || res.Verdict {
		t.Fatalf("degraded result: got confidence=%v verdict=%v, want 0/false", res.Confidence, res.Verdict)
	}
	if len(res.Factors) != 0 {
		t.Fatalf("degraded result: got %d factors, want none", len(res.Factors))
	}
	if len(res.PerDetector) != 2 {
		t.Fatalf("per-detector outcomes: got %d, want 2", len(res.PerDetector))
	}
	if rec.degraded != 1 || rec.failures != 2 || rec.runs != 2 {
		t.Fatalf("recorder: degraded=%d failures=%d runs=%d", rec.degraded, rec.failures, rec.runs)
	}
}

func TestDetect_ConfidenceClampedToUnitInterval(t *testing.T) {
	reg := mustRegistry(t, []Spec{
		{Name: "hot", Weight: 1, Run: fixed(true, 1.7)},
		{Name: "cold", Weight: 1, Run: fixed(false, -0.4)},
	})
	eng := mustEngine(t, reg, Options{})

	res := eng.Detect(context.Background(), "img.jpg")
	// 1.7 clamps to 1, -0.4 clamps to 0: average 0.5.
	if res.Confidence != 0.5 {
		t.Fatalf("confidence: got %v, want 0.5", res.Confidence)
	}
	if res.Confidence < 0 || res.Confidence > 1 {
		t.Fatalf("confidence out of [0,1]: %v", res.Confidence)
	}
}

func TestDetect_VerdictThresholdIsExclusive(t *testing.T) {
	at := mustEngine(t, mustRegistry(t, []Spec{{Name: "d", Weight: 1, Run: fixed(true, 0.5)}}), Options{})
	if res := at.Detect(context.Background(), "x"); res.Verdict {
		t.Fatal("confidence exactly at threshold must not flip the verdict")
	}
	above := mustEngine(t, mustRegistry(t, []Spec{{Name: "d", Weight: 1, Run: fixed(true, 0.51)}}), Options{})
	if res := above.Detect(context.Background(), "x"); !res.Verdict {
		t.Fatal("confidence above threshold must flip the verdict")
	}
}

func TestDetect_FactorRules(t *testing.T) {
	reg := mustRegistry(t, []Spec{
		// Agrees with verdict, above significance: included.
		{Name: "in", Weight: 1, Run: fixed(true, 0.95)},
		// Exactly at significance: excluded (bound is exclusive).
		{Name: "boundary", Weight: 1, Run: fixed(true, 0.6)},
		// Disagrees with the final verdict: excluded even though confident.
		{Name: "dissent", Weight: 1, Run: fixed(false, 0.99)},
		// Failed: excluded from factors and from the average.
		{Name: "broken", Weight: 1, Run: failing("io error")},
	})
	eng := mustEngine(t, reg, Options{})

	res := eng.Detect(context.Background(), "img.jpg")
	// (0.95 + 0.6 + 0.99) / 3 ≈ 0.8467 → verdict true.
	if !res.Verdict {
		t.Fatalf("verdict: got false (confidence %v)", res.Confidence)
	}
	want := []Factor{{Name: "in", Weight: 1, Contribution: 0.95}}
	if diff := cmp.Diff(want, res.Factors); diff != "" {
		t.Fatalf("factors mismatch (-want +got):\n%s", diff)
	}
}

func TestDetect_FactorsAgreeWithNegativeVerdict(t *testing.T) {
	// When the fused verdict is authentic, confident negative detectors
	// are the contributing factors.
	reg := mustRegistry(t, []Spec{
		{Name: "neg", Weight: 3, Run: fixed(false, 0.9)},
		{Name: "pos", Weight: 1, Run: fixed(true, 0.7)},
	})
	eng := mustEngine(t, reg, Options{})

	res := eng.Detect(context.Background(), "img.jpg")
	if res.Verdict {
		t.Fatalf("verdict: got true (confidence %v)", res.Confidence)
	}
	want := []Factor{{Name: "neg", Weight: 3, Contribution: 0.9}}
	if diff := cmp.Diff(want, res.Factors); diff != "" {
		t.Fatalf("factors mismatch (-want +got):\n%s", diff)
	}
}

func TestDetect_OrderInvariance(t *testing.T) {
	specs := []Spec{
		{Name: "a", Weight: 0.15, Run: fixed(true, 0.7)},
		{Name: "b", Weight: 0.20, Run: fixed(true, 0.88)},
		{Name: "c", Weight: 0.15, Run: fixed(false, 0.3)},
		{Name: "d", Weight: 0.50, Run: fixed(true, 0.65)},
	}
	perms := [][]int{{0, 1, 2, 3}, {3, 2, 1, 0}, {1, 3, 0, 2}}

	var base *Result
	for _, p := range perms {
		permuted := make([]Spec, len(specs))
		for i, j := range p {
			permuted[i] = specs[j]
		}
		eng := mustEngine(t, mustRegistry(t, permuted), Options{})
		res := eng.Detect(context.Background(), "img.jpg")
		if base == nil {
			base = res
			continue
		}
		if math.Abs(res.Confidence-base.Confidence) > 1e-12 || res.Verdict != base.Verdict {
			t.Fatalf("permutation %v changed the fused result: %v/%v vs %v/%v",
				p, res.Confidence, res.Verdict, base.Confidence, base.Verdict)
		}
		if len(res.Factors) != len(base.Factors) {
			t.Fatalf("permutation %v changed factor count: %d vs %d", p, len(res.Factors), len(base.Factors))
		}
	}
}

func TestDetect_PanicIsolation(t *testing.T) {
	reg := mustRegistry(t, []Spec{
		{Name: "bomb", Weight: 1, Run: func(context.Context, string) Outcome {
			panic("corrupt buffer")
		}},
		{Name: "steady", Weight: 1, Run: fixed(true, 0.8)},
	})
	eng := mustEngine(t, reg, Options{})

	res := eng.Detect(context.Background(), "img.jpg")
	out := res.PerDetector["bomb"]
	if !out.Failed {
		t.Fatal("panicking detector must surface as failed")
	}
	if out.FailureReason == "" {
		t.Fatal("failed outcome must carry a reason")
	}
	if res.Confidence != 0.8 {
		t.Fatalf("surviving detector should drive the average: got %v", res.Confidence)
	}
}

func TestDetect_TimeoutBecomesFailure(t *testing.T) {
	reg := mustRegistry(t, []Spec{
		{Name: "hung", Weight: 1, Run: func(ctx context.Context, _ string) Outcome {
			<-ctx.Done()
			return Outcome{Detected: true, Confidence: 1}
		}},
		{Name: "fast", Weight: 1, Run: fixed(false, 0.2)},
	})
	eng := mustEngine(t, reg, Options{Timeout: 20 * time.Millisecond})

	res := eng.Detect(context.Background(), "img.jpg")
	if !res.PerDetector["hung"].Failed {
		t.Fatal("hung detector must be reported as failed")
	}
	if res.Confidence != 0.2 {
		t.Fatalf("timed-out detector must not contribute: got %v", res.Confidence)
	}
}

func TestDetect_ParallelMatchesSequential(t *testing.T) {
	specs := make([]Spec, 8)
	for i := range specs {
		conf := 0.1 * float64(i+1)
		specs[i] = Spec{Name: fmt.Sprintf("d%d", i), Weight: float64(i + 1), Run: fixed(i%2 == 0, conf)}
	}

	seq := mustEngine(t, mustRegistry(t, specs), Options{Parallelism: 1})
	par := mustEngine(t, mustRegistry(t, specs), Options{Parallelism: 4})

	a := seq.Detect(context.Background(), "img.jpg")
	b := par.Detect(context.Background(), "img.jpg")
	if math.Abs(a.Confidence-b.Confidence) > 1e-12 || a.Verdict != b.Verdict {
		t.Fatalf("parallel run diverged: %v/%v vs %v/%v", b.Confidence, b.Verdict, a.Confidence, a.Verdict)
	}
	if diff := cmp.Diff(a.Factors, b.Factors); diff != "" {
		t.Fatalf("parallel factors diverged (-seq +par):\n%s", diff)
	}
}

func TestDetect_CustomThresholds(t *testing.T) {
	reg := mustRegistry(t, []Spec{{Name: "d", Weight: 1, Run: fixed(true, 0.45)}})
	eng := mustEngine(t, reg, Options{VerdictThreshold: 0.4, SignificanceThreshold: 0.4})

	res := eng.Detect(context.Background(), "img.jpg")
	if !res.Verdict {
		t.Fatal("lowered verdict threshold should flip the verdict")
	}
	if len(res.Factors) != 1 {
		t.Fatalf("lowered significance should admit the factor: got %d", len(res.Factors))
	}
}

func TestNewEngine_Validation(t *testing.T) {
	reg := mustRegistry(t, []Spec{{Name: "d", Weight: 1, Run: fixed(true, 0.5)}})

	if _, err := NewEngine(nil, Options{}); err == nil {
		t.Fatal("nil registry should be rejected")
	}
	if _, err := NewEngine(reg, Options{VerdictThreshold: 1.2}); err == nil {
		t.Fatal("verdict threshold outside (0,1) should be rejected")
	}
	if _, err := NewEngine(reg, Options{SignificanceThreshold: -0.1}); err == nil {
		t.Fatal("significance threshold outside (0,1) should be rejected")
	}
}
