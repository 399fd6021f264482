package detect

import "fmt"

// Spec is one registry entry: a named detector with its ensemble weight.
// Weights are relative; they are renormalized over the detectors that
// succeeded at aggregation time and need not sum to 1.
type Spec struct {
	Name   string
	Weight float64
	Run    DetectorFunc
}

// Registry is the fixed, ordered set of detectors consulted by the engine.
// Order matters only for deterministic output (per-detector serialization,
// factor ordering); the aggregation math is order-independent. A Registry
// is read-only after construction and safe to share across concurrent
// Detect calls.
type Registry struct {
	specs []Spec
}

// NewRegistry validates the specs and builds a registry. A duplicate name,
// a non-positive weight, a nil detector function, or an empty spec list is
// a configuration error, surfaced here so the caller can fail at startup.
func NewRegistry(specs []Spec) (*Registry, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("registry: no detectors configured")
	}
	seen := make(map[string]bool, len(specs))
	for _, s := range specs {
		if s.Name == "" {
			return nil, fmt.Errorf("registry: detector with empty name")
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("registry: duplicate detector %q", s.Name)
		}
		seen[s.Name] = true
		if s.Weight <= 0 {
			return nil, fmt.Errorf("registry: detector %q has non-positive weight %v", s.Name, s.Weight)
		}
		if s.Run == nil {
			return nil, fmt.Errorf("registry: detector %q has no function", s.Name)
		}
	}
	out := make([]Spec, len(specs))
	copy(out, specs)
	return &Registry{specs: out}, nil
}

// Specs returns the registered detectors in registration order.
func (r *Registry) Specs() []Spec {
	out := make([]Spec, len(r.specs))
	copy(out, r.specs)
	return out
}

// Len returns the number of registered detectors.
func (r *Registry) Len() int { return len(r.specs) }

// Names returns detector names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.specs))
	for i, s := range r.specs {
		names[i] = s.Name
	}
	return names
}
