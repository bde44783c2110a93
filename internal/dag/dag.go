// Package dag builds the runtime dependency graph the scheduler walks: an
// adjacency list and in-degree map derived from a validated plan, plus the
// wave-by-wave admission order used for a dry-run print.
package dag

import (
	"fmt"

	"github.com/dagctl/dagctl/internal/plan"
)

// Graph is the adjacency representation of a plan's task dependencies.
// It assumes the plan has already passed plan.Load's validation (unique
// ids, resolved references, acyclic) and does not re-validate.
type Graph struct {
	// Dependents maps a task id to the ids that list it in depends_on.
	Dependents map[string][]string
	// DependsOn maps a task id to its declared dependencies.
	DependsOn map[string][]string
	// Order preserves the plan's declaration order, used to break ties.
	Order []string
}

// Build constructs a Graph from spec.
func Build(spec *plan.Spec) *Graph {
	g := &Graph{
		Dependents: make(map[string][]string, len(spec.Tasks)),
		DependsOn:  make(map[string][]string, len(spec.Tasks)),
		Order:      make([]string, 0, len(spec.Tasks)),
	}
	for _, t := range spec.Tasks {
		g.Order = append(g.Order, t.ID)
		g.DependsOn[t.ID] = append([]string(nil), t.DependsOn...)
	}
	for _, t := range spec.Tasks {
		for _, dep := range t.DependsOn {
			g.Dependents[dep] = append(g.Dependents[dep], t.ID)
		}
	}
	return g
}

// Waves returns the task ids grouped by Kahn-algorithm admission round:
// wave 0 has no dependencies, wave 1 depends only on wave 0, and so on.
// Used by `validate` and `run --dry-run` to print the execution plan
// without running anything.
func (g *Graph) Waves() ([][]string, error) {
	indeg := make(map[string]int, len(g.Order))
	for _, id := range g.Order {
		indeg[id] = len(g.DependsOn[id])
	}

	var waves [][]string
	remaining := len(g.Order)
	for remaining > 0 {
		var wave []string
		for _, id := range g.Order {
			if indeg[id] == 0 {
				wave = append(wave, id)
			}
		}
		if len(wave) == 0 {
			return nil, fmt.Errorf("dependency graph has no admissible nodes; cycle present")
		}
		for _, id := range wave {
			indeg[id] = -1 // mark consumed so it isn't re-admitted
			remaining--
			for _, next := range g.Dependents[id] {
				if indeg[next] > 0 {
					indeg[next]--
				}
			}
		}
		waves = append(waves, wave)
	}
	return waves, nil
}

// Ready returns the subset of ids (in declaration order) whose dependencies
// are all present in done, excluding ids already present in done or inFlight.
func (g *Graph) Ready(done, inFlight map[string]bool) []string {
	var ready []string
	for _, id := range g.Order {
		if done[id] || inFlight[id] {
			continue
		}
		satisfied := true
		for _, dep := range g.DependsOn[id] {
			if !done[dep] {
				satisfied = false
				break
			}
		}
		if satisfied {
			ready = append(ready, id)
		}
	}
	return ready
}
