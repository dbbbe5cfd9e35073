package planner

import (
	"github.com/josephgoksu/ngbuild/internal/errs"
)

// VerifyDAG checks that steps form a directed acyclic graph: IDs are unique
// and non-empty, every dependency exists and there is no cycle.
func VerifyDAG(steps []Step) error {
	stepMap := make(map[StepRef]Step, len(steps))
	for _, s := range steps {
		if s.ID == "" {
			return errs.Internal("step ID cannot be empty")
		}
		if _, dup := stepMap[s.ID]; dup {
			return errs.Internal("duplicate step ID %q", s.ID)
		}
		stepMap[s.ID] = s
	}

	visited := make(map[StepRef]bool)
	recursionStack := make(map[StepRef]bool)

	var checkCycle func(id StepRef) error
	checkCycle = func(id StepRef) error {
		visited[id] = true
		recursionStack[id] = true

		for _, dep := range stepMap[id].DependsOn {
			if _, ok := stepMap[dep]; !ok {
				return errs.Internal("step %q depends on unknown step %q", id, dep)
			}
			if !visited[dep] {
				if err := checkCycle(dep); err != nil {
					return err
				}
			} else if recursionStack[dep] {
				return errs.Internal("cycle detected involving step %s -> %s", id, dep)
			}
		}

		recursionStack[id] = false
		return nil
	}

	for _, s := range steps {
		if !visited[s.ID] {
			if err := checkCycle(s.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// TopologicalSort returns steps in dependency order (dependencies first).
// Independent steps keep their declaration order.
func TopologicalSort(steps []Step) ([]Step, error) {
	if err := VerifyDAG(steps); err != nil {
		return nil, err
	}

	stepMap := make(map[StepRef]Step, len(steps))
	for _, s := range steps {
		stepMap[s.ID] = s
	}

	sorted := make([]Step, 0, len(steps))
	visited := make(map[StepRef]bool, len(steps))

	var visit func(id StepRef)
	visit = func(id StepRef) {
		if visited[id] {
			return
		}
		visited[id] = true
		s := stepMap[id]
		for _, dep := range s.DependsOn {
			visit(dep)
		}
		sorted = append(sorted, s)
	}

	for _, s := range steps {
		visit(s.ID)
	}
	return sorted, nil
}
