package daemon

import (
	"fmt"
	"sort"
	"strings"
)

// planOrder sorts components so each one comes after everything it depends
// on. Among components that are ready at the same time, registration order
// wins, so the plan is stable across runs.
func planOrder(comps []Component) ([]Component, error) {
	index := make(map[string]int, len(comps))
	for i, c := range comps {
		index[c.Name()] = i
	}

	pending := make([]int, len(comps))
	dependents := make([][]int, len(comps))
	for i, c := range comps {
		for _, dep := range c.Dependencies() {
			j, ok := index[dep]
			if !ok {
				return nil, fmt.Errorf("component %s depends on %s which is not registered", c.Name(), dep)
			}
			pending[i]++
			dependents[j] = append(dependents[j], i)
		}
	}

	var ready []int
	for i := range comps {
		if pending[i] == 0 {
			ready = append(ready, i)
		}
	}

	order := make([]Component, 0, len(comps))
	for len(ready) > 0 {
		sort.Ints(ready)
		next := ready[0]
		ready = ready[1:]
		order = append(order, comps[next])
		for _, d := range dependents[next] {
			pending[d]--
			if pending[d] == 0 {
				ready = append(ready, d)
			}
		}
	}

	if len(order) != len(comps) {
		var stuck []string
		for i, c := range comps {
			if pending[i] > 0 {
				stuck = append(stuck, c.Name())
			}
		}
		return nil, fmt.Errorf("circular dependency detected involving %s", strings.Join(stuck, ", "))
	}
	return order, nil
}

func names(comps []Component) []string {
	out := make([]string, len(comps))
	for i, c := range comps {
		out[i] = c.Name()
	}
	return out
}
