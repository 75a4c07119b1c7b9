package domain

import (
	"fmt"
)

// LoopGroup is a sub-graph that repeats until a member step signals stop
// or the iteration ceiling is reached. The ceiling is mandatory and
// finite; exhausting it terminates the group successfully with the last
// iteration's output.
type LoopGroup struct {
	ID            string
	MaxIterations int
}

// Graph is an immutable, validated set of steps and loop groups. Steps
// declare predecessor dependencies by ID; a dependency may name another
// step or a loop group. Graphs are registered with the engine by name and
// looked up again on resume, so handlers never need to be serialized.
type Graph struct {
	Name string

	steps map[string]*Step
	loops map[string]*LoopGroup

	// order preserves registration order for deterministic scheduling of
	// independent steps.
	order []string
}

func NewGraph(name string) *Graph {
	return &Graph{
		Name:  name,
		steps: make(map[string]*Step),
		loops: make(map[string]*LoopGroup),
	}
}

// AddStep registers a top-level step. dependsOn may reference step IDs or
// loop group IDs.
func (g *Graph) AddStep(id string, handler Handler, dependsOn ...string) *Graph {
	g.steps[id] = &Step{
		ID:        id,
		DependsOn: dependsOn,
		Handler:   handler,
	}
	g.order = append(g.order, id)
	return g
}

// AddLoop declares a loop group with a mandatory finite iteration ceiling.
func (g *Graph) AddLoop(id string, maxIterations int) *Graph {
	g.loops[id] = &LoopGroup{
		ID:            id,
		MaxIterations: maxIterations,
	}
	g.order = append(g.order, id)
	return g
}

// AddLoopStep registers a step inside a loop group. Its dependencies may
// reference other members of the same group or units outside the group.
func (g *Graph) AddLoopStep(loopID, id string, handler Handler, dependsOn ...string) *Graph {
	g.steps[id] = &Step{
		ID:        id,
		DependsOn: dependsOn,
		Loop:      loopID,
		Handler:   handler,
	}
	g.order = append(g.order, id)
	return g
}

func (g *Graph) Step(id string) (*Step, bool) {
	s, ok := g.steps[id]
	return s, ok
}

func (g *Graph) Loop(id string) (*LoopGroup, bool) {
	l, ok := g.loops[id]
	return l, ok
}

// Steps returns all steps in registration order.
func (g *Graph) Steps() []*Step {
	out := make([]*Step, 0, len(g.steps))
	for _, id := range g.order {
		if s, ok := g.steps[id]; ok {
			out = append(out, s)
		}
	}
	return out
}

// LoopMembers returns the steps of a loop group in registration order.
func (g *Graph) LoopMembers(loopID string) []*Step {
	var out []*Step
	for _, id := range g.order {
		if s, ok := g.steps[id]; ok && s.Loop == loopID {
			out = append(out, s)
		}
	}
	return out
}

// Units returns the schedulable unit IDs in registration order: top-level
// steps and loop groups. Loop members are scheduled inside their group.
func (g *Graph) Units() []string {
	var out []string
	for _, id := range g.order {
		if s, ok := g.steps[id]; ok {
			if s.Loop == "" {
				out = append(out, id)
			}
			continue
		}
		if _, ok := g.loops[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// ExternalDeps returns the dependencies of a loop group: every member
// dependency that points outside the group, deduplicated in order.
func (g *Graph) ExternalDeps(loopID string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, member := range g.LoopMembers(loopID) {
		for _, dep := range member.DependsOn {
			if s, ok := g.steps[dep]; ok && s.Loop == loopID {
				continue
			}
			if !seen[dep] {
				seen[dep] = true
				out = append(out, dep)
			}
		}
	}
	return out
}

// Validate checks the graph at registration time: unique IDs, resolvable
// dependencies, finite loop ceilings, populated loops, and an acyclic
// unit graph. Repetition happens at the iteration level; the structural
// graph must still be a DAG.
func (g *Graph) Validate() error {
	if g.Name == "" {
		return NewValidationError("graph", "name cannot be empty")
	}
	if len(g.steps) == 0 {
		return NewValidationError("graph", "must contain at least one step")
	}

	for id, step := range g.steps {
		if id == "" {
			return NewValidationError("step", "id cannot be empty")
		}
		if step.Handler == nil {
			return NewValidationError("step", fmt.Sprintf("%s: handler cannot be nil", id))
		}
		if _, clash := g.loops[id]; clash {
			return NewValidationError("step", fmt.Sprintf("%s: id collides with a loop group", id))
		}
		if step.Loop != "" {
			if _, ok := g.loops[step.Loop]; !ok {
				return NewValidationError("step", fmt.Sprintf("%s: unknown loop group %q", id, step.Loop))
			}
		}
		for _, dep := range step.DependsOn {
			if dep == id {
				return NewValidationError("step", fmt.Sprintf("%s: depends on itself", id))
			}
			depStep, isStep := g.steps[dep]
			_, isLoop := g.loops[dep]
			if !isStep && !isLoop {
				return NewValidationError("step", fmt.Sprintf("%s: unknown dependency %q", id, dep))
			}
			if isLoop && dep == step.Loop {
				return NewValidationError("step", fmt.Sprintf("%s: depends on its own loop group", id))
			}
			if isStep && depStep.Loop != "" && depStep.Loop != step.Loop {
				return NewValidationError("step", fmt.Sprintf("%s: depends on loop member %q; depend on loop group %q instead", id, dep, depStep.Loop))
			}
		}
	}

	for id, loop := range g.loops {
		if id == "" {
			return NewValidationError("loop", "id cannot be empty")
		}
		if loop.MaxIterations < 1 {
			return NewValidationError("loop", fmt.Sprintf("%s: max iterations must be at least 1", id))
		}
		if len(g.LoopMembers(id)) == 0 {
			return NewValidationError("loop", fmt.Sprintf("%s: loop group has no steps", id))
		}
	}

	return g.checkAcyclic()
}

// checkAcyclic runs a depth-first cycle check over the unit graph, with
// loop members collapsed into their group.
func (g *Graph) checkAcyclic() error {
	unitOf := func(id string) string {
		if s, ok := g.steps[id]; ok && s.Loop != "" {
			return s.Loop
		}
		return id
	}

	edges := make(map[string]map[string]bool)
	for _, step := range g.steps {
		from := unitOf(step.ID)
		for _, dep := range step.DependsOn {
			to := unitOf(dep)
			if from == to {
				continue
			}
			if edges[from] == nil {
				edges[from] = make(map[string]bool)
			}
			edges[from][to] = true
		}
	}

	const (
		unvisited = iota
		visiting
		done
	)
	colors := make(map[string]int)

	var visit func(id string) error
	visit = func(id string) error {
		switch colors[id] {
		case visiting:
			return NewValidationError("graph", fmt.Sprintf("dependency cycle involving %q", id))
		case done:
			return nil
		}
		colors[id] = visiting
		for dep := range edges[id] {
			if err := visit(dep); err != nil {
				return err
			}
		}
		colors[id] = done
		return nil
	}

	for _, id := range g.Units() {
		if err := visit(id); err != nil {
			return err
		}
	}

	// Intra-loop member ordering must also be acyclic.
	for loopID := range g.loops {
		memberColors := make(map[string]int)
		var visitMember func(id string) error
		visitMember = func(id string) error {
			switch memberColors[id] {
			case visiting:
				return NewValidationError("loop", fmt.Sprintf("%s: member dependency cycle involving %q", loopID, id))
			case done:
				return nil
			}
			memberColors[id] = visiting
			step := g.steps[id]
			for _, dep := range step.DependsOn {
				if depStep, ok := g.steps[dep]; ok && depStep.Loop == loopID {
					if err := visitMember(dep); err != nil {
						return err
					}
				}
			}
			memberColors[id] = done
			return nil
		}
		for _, member := range g.LoopMembers(loopID) {
			if err := visitMember(member.ID); err != nil {
				return err
			}
		}
	}

	return nil
}
